// Command inspect prints the history of a chat room straight from the message store.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"tipster-chat/domain"
	"tipster-chat/internal"
	"tipster-chat/repositories"

	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "inspect: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	config, err := internal.Load()
	if err != nil {
		return err
	}

	flags := pflag.NewFlagSet("inspect", pflag.ContinueOnError)
	driver := flags.String("driver", config.StoreDriver, "message store driver (badger|sqlite)")
	badgerPath := flags.String("badger", config.BadgerFilepath, "path to the badger directory")
	sqlitePath := flags.String("sqlite", config.SQLiteFilepath, "path to the sqlite database")
	room := flags.StringP("room", "r", "", "room to print (required)")
	limit := flags.IntP("limit", "n", config.LimitMessages, "messages per page")
	cursor := flags.String("cursor", "", "resume after this cursor")
	if err = flags.Parse(os.Args[1:]); err != nil {
		return err
	}
	if *room == "" {
		return fmt.Errorf("--room is required")
	}

	store, err := repositories.Open(repositories.StoreConfig{
		Driver:     *driver,
		BadgerPath: *badgerPath,
		SQLitePath: *sqlitePath,
		ReadOnly:   true,
	}, logs.GetLoggerFromLevel(slog.LevelWarn))
	if err != nil {
		return err
	}
	defer store.Close()

	var from *string
	if *cursor != "" {
		from = cursor
	}
	messages, next, err := store.History(context.Background(), domain.RoomID(*room), from, *limit)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Timestamp", "Sender", "Lang", "Mentions", "Message"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	for _, m := range messages {
		table.Append([]string{m.Timestamp(), m.Sender, m.Lang, strings.Join(m.Mentions, " "), m.Body})
	}
	table.Render()

	if next != nil {
		fmt.Printf("\nnext page: --cursor %s\n", *next)
	}
	return nil
}

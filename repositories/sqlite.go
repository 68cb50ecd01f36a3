package repositories

import (
	"context"
	"database/sql"
	"embed"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"tipster-chat/contract"
	"tipster-chat/domain"
	"tipster-chat/errors"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed migrations.sql
var migrationsFS embed.FS

var _ contract.IMessageStore = (*SQLiteRepository)(nil)

// SQLiteRepository stores chat messages in the messages table.
// Pages use the same cursor as the badger driver: "{unixnano 19 digits}:{uuid}".
type SQLiteRepository struct {
	db  *sql.DB
	log *slog.Logger
}

func OpenSQLite(path string, readOnly bool, log *slog.Logger) (*SQLiteRepository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: sqlite path is required", errors.ErrStore)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrStore, err)
	}
	dsn := path
	if readOnly {
		dsn = "file:" + path + "?mode=ro"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite db: %w", errors.ErrStore, err)
	}
	// SQLite prefers a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	repository := &SQLiteRepository{db: db, log: log}
	if readOnly {
		return repository, nil
	}

	// Failures are logged, the store still opens
	_ = repository.applyPragmas(context.Background(), writerPragmas)

	if err = repository.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: run migrations: %w", errors.ErrStore, err)
	}
	return repository, nil
}

var writerPragmas = []string{
	"PRAGMA busy_timeout = 5000",
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
}

// applyPragmas runs every pragma, warns about each failure and returns them joined.
func (s *SQLiteRepository) applyPragmas(ctx context.Context, pragmas []string) error {
	var errs []error
	for _, pragma := range pragmas {
		if _, err := s.db.ExecContext(ctx, pragma); err != nil {
			s.log.Warn("Failed to apply sqlite pragma", "pragma", pragma, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", pragma, err))
		}
	}
	return stderrors.Join(errs...)
}

func (s *SQLiteRepository) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

// Append inserts the message in a single statement.
func (s *SQLiteRepository) Append(ctx context.Context, message domain.ChatMessage) error {
	mentions, err := marshalMentions(message.Mentions)
	if err != nil {
		return fmt.Errorf("%w: encode mentions: %w", errors.ErrStore, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO messages(id, room, sender, body, at, mentions, lang) VALUES(?,?,?,?,?,?,?)`,
		message.ID.String(), string(message.Room), message.Sender, message.Body,
		message.At.UnixNano(), mentions, message.Lang,
	)
	if err != nil {
		return fmt.Errorf("%w: %w", errors.ErrStore, err)
	}
	return nil
}

// History returns up to limit messages of the room, newest first, starting right before cursor.
// One extra row is read so the last page comes back without a cursor.
func (s *SQLiteRepository) History(ctx context.Context, room domain.RoomID, cursor *string, limit int) ([]domain.ChatMessage, *string, error) {
	fetch := limit + 1
	if limit <= 0 {
		fetch = -1
	}
	var rows *sql.Rows
	var err error
	switch cursor {
	case nil:
		rows, err = s.db.QueryContext(ctx,
			`SELECT id, sender, body, at, mentions, lang FROM messages
			 WHERE room = ?
			 ORDER BY at DESC, id DESC LIMIT ?`,
			string(room), fetch)
	default:
		at, id, parseErr := parseCursor(*cursor)
		if parseErr != nil {
			return nil, nil, fmt.Errorf("%w: %w", errors.ErrStore, parseErr)
		}
		rows, err = s.db.QueryContext(ctx,
			`SELECT id, sender, body, at, mentions, lang FROM messages
			 WHERE room = ? AND (at < ? OR (at = ? AND id < ?))
			 ORDER BY at DESC, id DESC LIMIT ?`,
			string(room), at, at, id, fetch)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", errors.ErrStore, err)
	}
	defer rows.Close()

	messages := []domain.ChatMessage{}
	for rows.Next() {
		var (
			id, sender, body, lang string
			at                     int64
			rawMentions            []byte
		)
		if err = rows.Scan(&id, &sender, &body, &at, &rawMentions, &lang); err != nil {
			return nil, nil, fmt.Errorf("%w: %w", errors.ErrStore, err)
		}
		parsedID, err := uuid.Parse(id)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %w", errors.ErrStore, err)
		}
		mentions, err := unmarshalMentions(rawMentions)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: decode mentions: %w", errors.ErrStore, err)
		}
		messages = append(messages, domain.ChatMessage{
			ID:       parsedID,
			Room:     room,
			Sender:   sender,
			Body:     body,
			At:       time.Unix(0, at).UTC(),
			Mentions: mentions,
			Lang:     lang,
		})
	}
	if err = rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", errors.ErrStore, err)
	}
	if limit <= 0 || len(messages) <= limit {
		return messages, nil, nil
	}
	messages = messages[:limit]
	next := messageCursor(messages[len(messages)-1])
	return messages, &next, nil
}

func (s *SQLiteRepository) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func parseCursor(cursor string) (int64, string, error) {
	rawAt, id, ok := strings.Cut(cursor, ":")
	if !ok {
		return 0, "", fmt.Errorf("invalid cursor %q", cursor)
	}
	at, err := strconv.ParseInt(rawAt, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("invalid cursor %q: %w", cursor, err)
	}
	return at, id, nil
}

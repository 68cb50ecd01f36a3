package repositories

import (
	"fmt"
	"log/slog"
	"tipster-chat/contract"
	"tipster-chat/errors"
)

const (
	DriverBadger = "badger"
	DriverSQLite = "sqlite"
)

type StoreConfig struct {
	Driver     string
	BadgerPath string
	SQLitePath string
	ReadOnly   bool
}

// Open returns the message store of the configured driver.
func Open(cfg StoreConfig, log *slog.Logger) (contract.IMessageStore, error) {
	switch cfg.Driver {
	case DriverBadger, "":
		log.Info("Opening message store", "driver", DriverBadger, "path", cfg.BadgerPath, "read_only", cfg.ReadOnly)
		repository, err := OpenBadger(cfg.BadgerPath, cfg.ReadOnly, log)
		if err != nil {
			return nil, err
		}
		return repository, nil
	case DriverSQLite:
		log.Info("Opening message store", "driver", DriverSQLite, "path", cfg.SQLitePath, "read_only", cfg.ReadOnly)
		repository, err := OpenSQLite(cfg.SQLitePath, cfg.ReadOnly, log)
		if err != nil {
			return nil, err
		}
		return repository, nil
	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnknownDriver, cfg.Driver)
	}
}

package repositories

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"tipster-chat/contract"
	"tipster-chat/domain"
	"tipster-chat/errors"

	"github.com/dgraph-io/badger/v4"
)

var _ contract.IMessageStore = (*MessageRepository)(nil)

// newestCursor sorts after every 19 digits timestamp of a room.
const newestCursor = "9999999999999999999"

// MessageRepository stores chat messages in BadgerDB, CBOR encoded.
type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) *MessageRepository {
	return &MessageRepository{db: db, log: log}
}

// OpenBadger opens the database at path. A read-only repository doesn't take the directory lock.
func OpenBadger(path string, readOnly bool, log *slog.Logger) (*MessageRepository, error) {
	options := badger.DefaultOptions(path).WithLoggingLevel(badger.WARNING)
	if readOnly {
		options = options.WithReadOnly(true).WithBypassLockGuard(true)
	}
	db, err := badger.Open(options)
	if err != nil {
		return nil, fmt.Errorf("%w: open badger at %s: %w", errors.ErrStore, path, err)
	}
	return NewMessageRepository(db, log), nil
}

// Append persists a message in a single transaction.
// The key is formatted as "msg:{room}:{timestamp_padded}:{uuid}":
//  1. the 19 digits zero padding keeps keys of a room in chronological order.
//  2. the uuid tells apart two messages stored at the same nanosecond.
func (m *MessageRepository) Append(ctx context.Context, message domain.ChatMessage) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", errors.ErrStore, err)
	}
	value, err := marshalMessage(message)
	if err != nil {
		return fmt.Errorf("%w: encode message %s: %w", errors.ErrStore, message.ID, err)
	}
	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(message), value)
	})
	if err != nil {
		return fmt.Errorf("%w: %w", errors.ErrStore, err)
	}
	return nil
}

// History returns up to limit messages of the room, newest first, starting right before cursor.
// The returned cursor is nil once the page holds the oldest message of the room.
func (m *MessageRepository) History(ctx context.Context, room domain.RoomID, cursor *string, limit int) ([]domain.ChatMessage, *string, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", errors.ErrStore, err)
	}
	var values [][]byte
	var lastKey string
	var hasMore bool
	prefix := roomPrefix(room)

	err := m.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()

		seekKey := append(bytes.Clone(prefix), newestCursor...)
		if cursor != nil {
			seekKey = append(bytes.Clone(prefix), *cursor...)
		}

		it.Seek(seekKey)
		// The cursor message was already returned by the previous page
		if cursor != nil && it.ValidForPrefix(prefix) && bytes.Equal(it.Item().Key(), seekKey) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(values) == limit {
				hasMore = true
				m.log.Debug(fmt.Sprintf("Maximum of %d messages reached", limit), "room", room)
				break
			}
			item := it.Item()
			lastKey = string(item.Key()[len(prefix):])
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			values = append(values, value)
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", errors.ErrStore, err)
	}

	messages := make([]domain.ChatMessage, 0, len(values))
	for _, value := range values {
		message, err := unmarshalMessage(value)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: decode message: %w", errors.ErrStore, err)
		}
		messages = append(messages, message)
	}
	if !hasMore {
		return messages, nil, nil
	}
	return messages, &lastKey, nil
}

func (m *MessageRepository) Close() error {
	return m.db.Close()
}

func roomPrefix(room domain.RoomID) []byte {
	return []byte(fmt.Sprintf("msg:%s:", room))
}

func messageKey(message domain.ChatMessage) []byte {
	return append(roomPrefix(message.Room), messageCursor(message)...)
}

// messageCursor is the position of a message inside its room, shared by every driver.
func messageCursor(message domain.ChatMessage) string {
	return fmt.Sprintf("%019d:%s", message.At.UnixNano(), message.ID)
}

package repositories

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"tipster-chat/contract"
	"tipster-chat/domain"

	"github.com/blugelabs/bluge"
	"github.com/google/uuid"
)

var _ contract.IMessageIndex = (*SearchIndex)(nil)

const (
	fieldID       = "_id"
	fieldRoom     = "room"
	fieldSender   = "sender"
	fieldBody     = "body"
	fieldAt       = "at"
	fieldMentions = "mentions"
	fieldLang     = "lang"
)

// SearchIndex is the full-text index of persisted messages.
// Searches never cross rooms.
type SearchIndex struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewSearchIndex(writer *bluge.Writer, log *slog.Logger) *SearchIndex {
	return &SearchIndex{writer: writer, log: log}
}

// OpenSearchIndex opens the index stored at path, or an in-memory one when path is empty.
func OpenSearchIndex(path string, log *slog.Logger) (*SearchIndex, error) {
	cfg := bluge.InMemoryOnlyConfig()
	if path != "" {
		cfg = bluge.DefaultConfig(path)
	}
	writer, err := bluge.OpenWriter(cfg)
	if err != nil {
		return nil, fmt.Errorf("open bluge index: %w", err)
	}
	return NewSearchIndex(writer, log), nil
}

// Index adds the message, indexing it twice keeps a single document.
func (s *SearchIndex) Index(_ context.Context, message domain.ChatMessage) error {
	mentions, err := marshalMentions(message.Mentions)
	if err != nil {
		return err
	}
	doc := bluge.NewDocument(message.ID.String()).
		AddField(bluge.NewKeywordField(fieldRoom, string(message.Room)).StoreValue()).
		AddField(bluge.NewKeywordField(fieldSender, message.Sender).StoreValue()).
		AddField(bluge.NewTextField(fieldBody, message.Body).StoreValue()).
		AddField(bluge.NewDateTimeField(fieldAt, message.At).StoreValue().Sortable()).
		AddField(bluge.NewStoredOnlyField(fieldMentions, mentions)).
		AddField(bluge.NewKeywordField(fieldLang, message.Lang).StoreValue())
	return s.writer.Update(doc.ID(), doc)
}

// Search matches query against the bodies of the room, best matches first.
// It returns at most limit messages and the total number of matches.
func (s *SearchIndex) Search(ctx context.Context, room domain.RoomID, query string, limit int) ([]domain.ChatMessage, uint64, error) {
	reader, err := s.writer.Reader()
	if err != nil {
		return nil, 0, err
	}
	defer func() {
		if err := reader.Close(); err != nil {
			s.log.Warn("Failed to close index reader", "error", err)
		}
	}()

	q := bluge.NewBooleanQuery().
		AddMust(bluge.NewMatchQuery(query).SetField(fieldBody)).
		AddMust(bluge.NewTermQuery(string(room)).SetField(fieldRoom))
	request := bluge.NewTopNSearch(limit, q).WithStandardAggregations()

	matches, err := reader.Search(ctx, request)
	if err != nil {
		return nil, 0, err
	}

	messages := []domain.ChatMessage{}
	match, err := matches.Next()
	for err == nil && match != nil {
		message := domain.ChatMessage{Room: room, Mentions: []string{}}
		var visitErr error
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case fieldID:
				message.ID, visitErr = uuid.ParseBytes(value)
			case fieldSender:
				message.Sender = string(value)
			case fieldBody:
				message.Body = string(value)
			case fieldAt:
				var at time.Time
				at, visitErr = bluge.DecodeDateTime(value)
				message.At = at.UTC()
			case fieldMentions:
				message.Mentions, visitErr = unmarshalMentions(value)
			case fieldLang:
				message.Lang = string(value)
			}
			return visitErr == nil
		})
		if err != nil {
			return nil, 0, err
		}
		if visitErr != nil {
			return nil, 0, visitErr
		}
		messages = append(messages, message)
		match, err = matches.Next()
	}
	if err != nil {
		return nil, 0, err
	}
	return messages, matches.Aggregations().Count(), nil
}

func (s *SearchIndex) Close() error {
	return s.writer.Close()
}

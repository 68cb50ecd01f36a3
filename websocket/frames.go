package websocket

import (
	"encoding/json"
	"fmt"
	"tipster-chat/domain"
	"tipster-chat/errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// inboundFrame is the union of every inbound JSON frame, told apart by type.
type inboundFrame struct {
	Type     domain.EventKind `json:"type"`
	Username string           `json:"username"`
	Room     domain.RoomID    `json:"room"`
	Msg      string           `json:"msg"`
	Cursor   *string          `json:"cursor"`
	Query    string           `json:"query"`
}

// DecodeEvent turns a JSON frame into its inbound event.
// Invalid JSON, an unknown type or a missing field is reported as errors.ErrMalformedEvent.
func DecodeEvent(raw []byte) (domain.InboundEvent, error) {
	var frame inboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrMalformedEvent, err)
	}

	var evt domain.InboundEvent
	switch frame.Type {
	case domain.JoinKind:
		evt = domain.JoinEvent{Username: frame.Username, Room: frame.Room}
	case domain.LeaveKind:
		evt = domain.LeaveEvent{Username: frame.Username, Room: frame.Room}
	case domain.MessageKind:
		evt = domain.MessageEvent{Msg: frame.Msg, Room: frame.Room}
	case domain.HistoryKind:
		evt = domain.HistoryEvent{Room: frame.Room, Cursor: frame.Cursor}
	case domain.SearchKind:
		evt = domain.SearchEvent{Room: frame.Room, Query: frame.Query}
	default:
		return nil, fmt.Errorf("%w: unknown type %q", errors.ErrMalformedEvent, frame.Type)
	}

	if err := validate.Struct(evt); err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrMalformedEvent, err)
	}
	return evt, nil
}

// EncodePayload writes the payload as a flat JSON object tagged with its type.
func EncodePayload(payload domain.Payload) ([]byte, error) {
	t := payload.PayloadType()
	switch p := payload.(type) {
	case domain.Notice:
		return json.Marshal(struct {
			Type string `json:"type"`
			domain.Notice
		}{t, p})
	case domain.MessagePayload:
		return json.Marshal(struct {
			Type string `json:"type"`
			domain.MessagePayload
		}{t, p})
	case domain.HistoryPayload:
		return json.Marshal(struct {
			Type string `json:"type"`
			domain.HistoryPayload
		}{t, p})
	case domain.SearchPayload:
		return json.Marshal(struct {
			Type string `json:"type"`
			domain.SearchPayload
		}{t, p})
	case domain.ErrorPayload:
		return json.Marshal(struct {
			Type string `json:"type"`
			domain.ErrorPayload
		}{t, p})
	default:
		return nil, fmt.Errorf("unsupported payload %T", payload)
	}
}

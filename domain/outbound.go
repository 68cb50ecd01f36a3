package domain

import "fmt"

const (
	TooLongNotice   = "Message is too long!"
	SendFailedError = "An error occurred while sending your message. Please try again."
	HistoryFailed   = "Unable to load the room history."
	SearchFailed    = "Unable to search the room history."
)

// Payload is the content of an outbound event.
type Payload interface {
	PayloadType() string
}

// Outbound is a payload addressed to a set of connections.
// The dispatcher produces it, a transport adapter delivers it.
type Outbound struct {
	Targets []ConnectionID
	Payload Payload
}

type Notice struct {
	Msg string `json:"msg"`
}

func (Notice) PayloadType() string { return "notice" }

func JoinedNotice(displayName string, room RoomID) Notice {
	return Notice{Msg: fmt.Sprintf("%s has joined the %s room.", displayName, room)}
}

func LeftNotice(displayName string, room RoomID) Notice {
	return Notice{Msg: fmt.Sprintf("%s has left the %s room.", displayName, room)}
}

type MessagePayload struct {
	Msg       string   `json:"msg"`
	Timestamp string   `json:"timestamp"`
	Mentions  []string `json:"mentions"`
	Sender    string   `json:"sender"`
}

func (MessagePayload) PayloadType() string { return "message" }

func NewMessagePayload(m ChatMessage) MessagePayload {
	mentions := m.Mentions
	if mentions == nil {
		mentions = []string{}
	}
	return MessagePayload{
		Msg:       m.Body,
		Timestamp: m.Timestamp(),
		Mentions:  mentions,
		Sender:    m.Sender,
	}
}

type HistoryPayload struct {
	Room     RoomID           `json:"room"`
	Messages []MessagePayload `json:"messages"`
	Cursor   *string          `json:"cursor,omitempty"`
}

func (HistoryPayload) PayloadType() string { return "history" }

type SearchPayload struct {
	Room     RoomID           `json:"room"`
	Query    string           `json:"query"`
	Messages []MessagePayload `json:"messages"`
	Total    uint64           `json:"total"`
}

func (SearchPayload) PayloadType() string { return "search" }

type ErrorPayload struct {
	Error string `json:"error"`
}

func (ErrorPayload) PayloadType() string { return "error" }

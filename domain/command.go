package domain

type EventKind string

const (
	JoinKind    EventKind = "join"
	LeaveKind   EventKind = "leave"
	MessageKind EventKind = "message"
	HistoryKind EventKind = "history"
	SearchKind  EventKind = "search"
)

// InboundEvent is an event received from a connection, addressed to a room.
type InboundEvent interface {
	Kind() EventKind
	RoomID() RoomID
}

type JoinEvent struct {
	Username string `validate:"required,max=80"`
	Room     RoomID `validate:"required,max=64"`
}

func (e JoinEvent) Kind() EventKind { return JoinKind }
func (e JoinEvent) RoomID() RoomID  { return e.Room }

type LeaveEvent struct {
	Username string `validate:"required,max=80"`
	Room     RoomID `validate:"required,max=64"`
}

func (e LeaveEvent) Kind() EventKind { return LeaveKind }
func (e LeaveEvent) RoomID() RoomID  { return e.Room }

// MessageEvent carries the raw body as typed by the user.
// Length is checked by the sanitizer so oversized bodies get a proper notice.
type MessageEvent struct {
	Msg  string `validate:"required"`
	Room RoomID `validate:"required,max=64"`
}

func (e MessageEvent) Kind() EventKind { return MessageKind }
func (e MessageEvent) RoomID() RoomID  { return e.Room }

type HistoryEvent struct {
	Room   RoomID `validate:"required,max=64"`
	Cursor *string
}

func (e HistoryEvent) Kind() EventKind { return HistoryKind }
func (e HistoryEvent) RoomID() RoomID  { return e.Room }

type SearchEvent struct {
	Room  RoomID `validate:"required,max=64"`
	Query string `validate:"required,max=200"`
}

func (e SearchEvent) Kind() EventKind { return SearchKind }
func (e SearchEvent) RoomID() RoomID  { return e.Room }

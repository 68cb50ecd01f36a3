//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"
	"tipster-chat/domain"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// It is used for logging during supervision.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// IRegistry tracks which connections belong to which room.
// Rooms outside the allow-list are never registered.
type IRegistry interface {
	IsValidRoom(room domain.RoomID) bool
	Join(conn domain.ConnectionID, room domain.RoomID)
	Leave(conn domain.ConnectionID, room domain.RoomID)
	Members(room domain.RoomID) []domain.ConnectionID
	RoomsOf(conn domain.ConnectionID) []domain.RoomID
	Rooms() []domain.Room
	// Lock acquires the serialization point of a room and returns its release.
	Lock(room domain.RoomID) func()
}

type ISanitizer interface {
	Sanitize(raw string) (domain.SanitizedText, error)
}

// IMessageStore persists accepted messages, append only.
// History returns a nil cursor when no older message is left.
// Any failure is reported as errors.ErrStore.
type IMessageStore interface {
	Append(ctx context.Context, message domain.ChatMessage) error
	History(ctx context.Context, room domain.RoomID, cursor *string, limit int) ([]domain.ChatMessage, *string, error)
	Close() error
}

type IMessageIndex interface {
	Index(ctx context.Context, message domain.ChatMessage) error
	Search(ctx context.Context, room domain.RoomID, query string, limit int) ([]domain.ChatMessage, uint64, error)
	Close() error
}

// Emitter delivers outbound payloads to connections.
// Emit must not block: a slow connection loses the payload, the room doesn't wait.
type Emitter interface {
	Emit(ctx context.Context, out domain.Outbound)
}

type IDispatcher interface {
	Handle(ctx context.Context, conn domain.ConnectionID, sender string, evt domain.InboundEvent)
	OnDisconnect(ctx context.Context, conn domain.ConnectionID, displayName string)
}

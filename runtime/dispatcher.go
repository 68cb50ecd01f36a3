// Package runtime holds the chat core: room membership and the broadcast dispatcher.
// It validates, persists and fans out, delivery itself belongs to the transport.
package runtime

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sync"
	"time"
	"tipster-chat/contract"
	"tipster-chat/domain"
	"tipster-chat/errors"
	"tipster-chat/observability"

	"github.com/samber/lo"
)

var _ contract.IDispatcher = (*Dispatcher)(nil)

const defaultHistoryLimit = 50

// Dispatcher is the single entry point for join, leave and message events.
// It is the only writer of the registry.
//
// Membership changes and broadcast decisions of a room run under the room lock of the registry.
// Messages of a room are additionally published one at a time: persistence happens outside
// the room lock, so joins are never held by a slow store, while broadcast order still
// follows append order.
type Dispatcher struct {
	log          *slog.Logger
	registry     contract.IRegistry
	sanitizer    contract.ISanitizer
	store        contract.IMessageStore
	index        contract.IMessageIndex
	emitter      contract.Emitter
	historyLimit int
	monitoring   *observability.MonitoringManager
	now          func() time.Time

	mu           sync.Mutex
	publishLocks map[domain.RoomID]*sync.Mutex
}

// NewDispatcher wires the core. index may be nil when search is disabled.
func NewDispatcher(
	log *slog.Logger,
	registry contract.IRegistry,
	sanitizer contract.ISanitizer,
	store contract.IMessageStore,
	index contract.IMessageIndex,
	emitter contract.Emitter,
	historyLimit int) *Dispatcher {
	if historyLimit <= 0 {
		historyLimit = defaultHistoryLimit
	}
	return &Dispatcher{
		log:          log,
		registry:     registry,
		sanitizer:    sanitizer,
		store:        store,
		index:        index,
		emitter:      emitter,
		historyLimit: historyLimit,
		now:          time.Now,
		publishLocks: make(map[domain.RoomID]*sync.Mutex),
	}
}

// WithMonitoring counts accepted, rejected and failed messages.
func (d *Dispatcher) WithMonitoring(monitoring *observability.MonitoringManager) *Dispatcher {
	d.monitoring = monitoring
	return d
}

// Handle routes an inbound event to its operation.
// sender is the session identity of the connection, used as message author.
func (d *Dispatcher) Handle(ctx context.Context, conn domain.ConnectionID, sender string, evt domain.InboundEvent) {
	switch e := evt.(type) {
	case domain.JoinEvent:
		d.OnJoin(ctx, conn, e.Room, e.Username)
	case domain.LeaveEvent:
		d.OnLeave(ctx, conn, e.Room, e.Username)
	case domain.MessageEvent:
		d.OnMessage(ctx, conn, e.Room, e.Msg, sender)
	case domain.HistoryEvent:
		d.OnHistory(ctx, conn, e.Room, e.Cursor)
	case domain.SearchEvent:
		d.OnSearch(ctx, conn, e.Room, e.Query)
	default:
		d.log.Warn("Dropping unsupported event", "conn", conn, "error", errors.ErrMalformedEvent)
	}
}

// OnJoin registers the connection in the room and tells every member, the newcomer included.
func (d *Dispatcher) OnJoin(ctx context.Context, conn domain.ConnectionID, room domain.RoomID, displayName string) {
	if !d.registry.IsValidRoom(room) {
		d.log.Warn("Dropping join", "room", room, "conn", conn, "error", errors.ErrInvalidRoom)
		return
	}
	unlock := d.registry.Lock(room)
	defer unlock()

	d.registry.Join(conn, room)
	d.emit(ctx, d.registry.Members(room), domain.JoinedNotice(displayName, room))
}

// OnLeave removes the connection from the room and tells the remaining members.
// The leaving connection gets the notice too, as a confirmation.
func (d *Dispatcher) OnLeave(ctx context.Context, conn domain.ConnectionID, room domain.RoomID, displayName string) {
	d.leave(ctx, conn, room, displayName, true)
}

// OnDisconnect leaves every room the connection joined.
// The connection is gone, only the remaining members are told.
func (d *Dispatcher) OnDisconnect(ctx context.Context, conn domain.ConnectionID, displayName string) {
	if displayName == "" {
		displayName = domain.AnonymousSender
	}
	for _, room := range d.registry.RoomsOf(conn) {
		d.leave(ctx, conn, room, displayName, false)
	}
}

func (d *Dispatcher) leave(ctx context.Context, conn domain.ConnectionID, room domain.RoomID, displayName string, notifyLeaver bool) {
	if !d.registry.IsValidRoom(room) {
		d.log.Warn("Dropping leave", "room", room, "conn", conn, "error", errors.ErrInvalidRoom)
		return
	}
	unlock := d.registry.Lock(room)
	defer unlock()

	d.registry.Leave(conn, room)
	targets := d.registry.Members(room)
	if notifyLeaver {
		targets = append(targets, conn)
	}
	d.emit(ctx, targets, domain.LeftNotice(displayName, room))
}

// OnMessage sanitizes, persists then broadcasts a message to the members of its room.
// A message that failed to persist is never broadcast.
func (d *Dispatcher) OnMessage(ctx context.Context, conn domain.ConnectionID, room domain.RoomID, rawBody, sender string) {
	if room == "" || rawBody == "" {
		d.log.Debug("Dropping message without room or body", "room", room, "conn", conn)
		return
	}
	if !d.registry.IsValidRoom(room) {
		d.monitoring.IncrRejected()
		d.log.Warn("Dropping message", "room", room, "conn", conn, "error", errors.ErrInvalidRoom)
		return
	}

	text, err := d.sanitizer.Sanitize(rawBody)
	if err != nil {
		d.monitoring.IncrRejected()
		if stderrors.Is(err, errors.ErrMessageTooLong) {
			d.emit(ctx, []domain.ConnectionID{conn}, domain.Notice{Msg: domain.TooLongNotice})
			return
		}
		d.log.Warn("Dropping message that can't be sanitized", "room", room, "conn", conn, "error", err)
		return
	}
	if text.Body == "" {
		d.monitoring.IncrRejected()
		d.log.Debug("Dropping message empty after sanitization", "room", room, "conn", conn)
		return
	}

	message := domain.NewChatMessage(room, sender, text, d.now())

	publish := d.publishLock(room)
	publish.Lock()
	if err = d.store.Append(ctx, message); err != nil {
		publish.Unlock()
		d.monitoring.IncrStoreFailure()
		d.log.Error("Failed to persist message",
			"room", room,
			"conn", conn,
			"message_id", message.ID,
			"error", err)
		d.emit(ctx, []domain.ConnectionID{conn}, domain.ErrorPayload{Error: domain.SendFailedError})
		return
	}
	d.broadcast(ctx, message)
	publish.Unlock()
	d.monitoring.IncrBroadcast()

	d.indexMessage(ctx, message)
}

// OnHistory sends a page of the room history to the requesting connection only.
func (d *Dispatcher) OnHistory(ctx context.Context, conn domain.ConnectionID, room domain.RoomID, cursor *string) {
	if !d.registry.IsValidRoom(room) {
		d.log.Warn("Dropping history request", "room", room, "conn", conn, "error", errors.ErrInvalidRoom)
		return
	}
	messages, next, err := d.store.History(ctx, room, cursor, d.historyLimit)
	if err != nil {
		d.log.Error("Failed to load history", "room", room, "conn", conn, "error", err)
		d.emit(ctx, []domain.ConnectionID{conn}, domain.ErrorPayload{Error: domain.HistoryFailed})
		return
	}
	d.emit(ctx, []domain.ConnectionID{conn}, domain.HistoryPayload{
		Room:     room,
		Messages: toPayloads(messages),
		Cursor:   next,
	})
}

// OnSearch runs a full-text search on the room and answers the requesting connection only.
func (d *Dispatcher) OnSearch(ctx context.Context, conn domain.ConnectionID, room domain.RoomID, query string) {
	if !d.registry.IsValidRoom(room) {
		d.log.Warn("Dropping search request", "room", room, "conn", conn, "error", errors.ErrInvalidRoom)
		return
	}
	if query == "" || d.index == nil {
		d.log.Debug("Dropping search request", "room", room, "conn", conn, "enabled", d.index != nil)
		return
	}
	messages, total, err := d.index.Search(ctx, room, query, d.historyLimit)
	if err != nil {
		d.log.Error("Failed to search messages", "room", room, "conn", conn, "error", err)
		d.emit(ctx, []domain.ConnectionID{conn}, domain.ErrorPayload{Error: domain.SearchFailed})
		return
	}
	d.emit(ctx, []domain.ConnectionID{conn}, domain.SearchPayload{
		Room:     room,
		Query:    query,
		Messages: toPayloads(messages),
		Total:    total,
	})
}

// broadcast takes the membership snapshot after persistence, under the room lock,
// so a connection that joined while the message was stored receives it.
func (d *Dispatcher) broadcast(ctx context.Context, message domain.ChatMessage) {
	unlock := d.registry.Lock(message.Room)
	defer unlock()
	d.emit(ctx, d.registry.Members(message.Room), domain.NewMessagePayload(message))
}

func (d *Dispatcher) indexMessage(ctx context.Context, message domain.ChatMessage) {
	if d.index == nil {
		return
	}
	if err := d.index.Index(ctx, message); err != nil {
		d.log.Warn("Failed to index message", "room", message.Room, "message_id", message.ID, "error", err)
	}
}

func (d *Dispatcher) publishLock(room domain.RoomID) *sync.Mutex {
	d.mu.Lock()
	defer d.mu.Unlock()
	mu, ok := d.publishLocks[room]
	if !ok {
		mu = &sync.Mutex{}
		d.publishLocks[room] = mu
	}
	return mu
}

func (d *Dispatcher) emit(ctx context.Context, targets []domain.ConnectionID, payload domain.Payload) {
	if len(targets) == 0 {
		return
	}
	d.emitter.Emit(ctx, domain.Outbound{Targets: targets, Payload: payload})
}

func toPayloads(messages []domain.ChatMessage) []domain.MessagePayload {
	return lo.Map(messages, func(m domain.ChatMessage, _ int) domain.MessagePayload {
		return domain.NewMessagePayload(m)
	})
}

package runtime

import (
	"log/slog"
	"slices"
	"sync"
	"tipster-chat/contract"
	"tipster-chat/domain"
)

var _ contract.IRegistry = (*Registry)(nil)

type Set map[domain.ConnectionID]struct{}

// Registry holds the static room allow-list and the live membership of each room.
// Memberships live in memory only and are reset on restart.
type Registry struct {
	log   *slog.Logger
	rooms []domain.Room
	// locks is built once from the allow-list and never mutated, it needs no guard.
	locks map[domain.RoomID]*sync.Mutex

	mu          sync.RWMutex
	roomMembers map[domain.RoomID]Set                              // room -> connections
	connRooms   map[domain.ConnectionID]map[domain.RoomID]struct{} // connection -> rooms
}

func NewRegistry(log *slog.Logger, rooms []domain.Room) *Registry {
	locks := make(map[domain.RoomID]*sync.Mutex, len(rooms))
	for _, r := range rooms {
		locks[r.ID] = &sync.Mutex{}
	}
	return &Registry{
		log:         log,
		rooms:       slices.Clone(rooms),
		locks:       locks,
		roomMembers: make(map[domain.RoomID]Set),
		connRooms:   make(map[domain.ConnectionID]map[domain.RoomID]struct{}),
	}
}

func (r *Registry) IsValidRoom(room domain.RoomID) bool {
	_, ok := r.locks[room]
	return ok
}

// Join adds a connection to a room. Joining twice has the effect of joining once.
func (r *Registry) Join(conn domain.ConnectionID, room domain.RoomID) {
	if !r.IsValidRoom(room) {
		r.log.Warn("Refusing to join an unknown room", "room", room, "conn", conn)
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.roomMembers[room]; !ok {
		r.roomMembers[room] = make(Set)
	}
	r.roomMembers[room][conn] = struct{}{}

	if _, ok := r.connRooms[conn]; !ok {
		r.connRooms[conn] = make(map[domain.RoomID]struct{})
	}
	r.connRooms[conn][room] = struct{}{}
}

// Leave removes a connection from a room. Leaving a room never joined is a no-op.
// Empty entries are removed so the maps don't grow with closed connections.
func (r *Registry) Leave(conn domain.ConnectionID, room domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if members, ok := r.roomMembers[room]; ok {
		delete(members, conn)
		if len(members) == 0 {
			delete(r.roomMembers, room)
		}
	}
	if rooms, ok := r.connRooms[conn]; ok {
		delete(rooms, room)
		if len(rooms) == 0 {
			delete(r.connRooms, conn)
		}
	}
}

// Members returns the sorted connections of a room, empty for an unknown or empty room.
func (r *Registry) Members(room domain.RoomID) []domain.ConnectionID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := make([]domain.ConnectionID, 0, len(r.roomMembers[room]))
	for conn := range r.roomMembers[room] {
		members = append(members, conn)
	}
	slices.Sort(members)
	return members
}

func (r *Registry) RoomsOf(conn domain.ConnectionID) []domain.RoomID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms := make([]domain.RoomID, 0, len(r.connRooms[conn]))
	for room := range r.connRooms[conn] {
		rooms = append(rooms, room)
	}
	slices.Sort(rooms)
	return rooms
}

func (r *Registry) Rooms() []domain.Room {
	return slices.Clone(r.rooms)
}

// Lock acquires the serialization point of a room.
// Unknown rooms have none, the returned release is a no-op.
func (r *Registry) Lock(room domain.RoomID) func() {
	mu, ok := r.locks[room]
	if !ok {
		return func() {}
	}
	mu.Lock()
	return mu.Unlock
}

package domain

import "strings"

type RoomID string

// RoomKeySeparator splits the room from the message position in store keys, room IDs never contain it.
const RoomKeySeparator = ":"

// Room is a chat channel served for the whole process lifetime.
// Rooms are declared at configuration time and never created by users.
type Room struct {
	ID          RoomID
	Name        string
	Description string
}

func NewRoom(id RoomID, name, description string) Room {
	return Room{ID: id, Name: name, Description: description}
}

// DefaultRooms are the sport rooms of Tipster Arena.
var DefaultRooms = []Room{
	NewRoom("football-chat", "Football", "Match talk, tips and transfer gossip"),
	NewRoom("golf-chat", "Golf", "Tournaments, tee times and outright picks"),
	NewRoom("tennis-chat", "Tennis", "Live matches and tournament tips"),
	NewRoom("horse-racing-chat", "Horse Racing", "Race cards, going and each-way tips"),
}

// RoomsFromIDs builds the allow-list from configured identifiers.
// Known sport rooms keep their name and description, unknown ones are named after their ID.
// Blank, duplicated and separator holding identifiers are ignored.
func RoomsFromIDs(ids []string) []Room {
	known := make(map[RoomID]Room, len(DefaultRooms))
	for _, r := range DefaultRooms {
		known[r.ID] = r
	}
	seen := make(map[RoomID]struct{}, len(ids))
	var rooms []Room
	for _, raw := range ids {
		id := RoomID(strings.TrimSpace(raw))
		if id == "" || strings.Contains(string(id), RoomKeySeparator) {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		if r, ok := known[id]; ok {
			rooms = append(rooms, r)
			continue
		}
		rooms = append(rooms, NewRoom(id, string(id), ""))
	}
	return rooms
}

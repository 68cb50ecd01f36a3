package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRoomsFromIDs(t *testing.T) {
	req := require.New(t)

	rooms := RoomsFromIDs([]string{" tennis-chat", "darts-chat", "", "tennis-chat"})

	// Known rooms keep their description, unknown ones are named after their ID, duplicates are ignored
	req.Equal([]Room{
		NewRoom("tennis-chat", "Tennis", "Live matches and tournament tips"),
		NewRoom("darts-chat", "darts-chat", ""),
	}, rooms)
}

func TestRoomsFromIDs_Ignores_Key_Separator(t *testing.T) {
	req := require.New(t)

	rooms := RoomsFromIDs([]string{"football-chat", "darts:chat", "football-chat:"})

	req.Equal([]Room{DefaultRooms[0]}, rooms)
}

func TestNewChatMessage(t *testing.T) {
	req := require.New(t)
	paris := time.FixedZone("CEST", 2*60*60)
	at := time.Date(2026, 10, 18, 16, 30, 5, 0, paris)

	message := NewChatMessage("football-chat", "", SanitizedText{Body: "hi @B", Mentions: []string{"@B"}, Lang: "en"}, at)

	req.NotEmpty(message.ID)
	req.Equal(AnonymousSender, message.Sender)
	req.Equal(time.UTC, message.At.Location())
	req.Equal("2026-10-18 14:30:05", message.Timestamp())
	req.Equal([]string{"@B"}, message.Mentions)
}

func TestNewMessagePayload_Never_Has_Nil_Mentions(t *testing.T) {
	req := require.New(t)

	payload := NewMessagePayload(ChatMessage{Sender: "alice", Body: "no mention"})

	req.NotNil(payload.Mentions)
	req.Empty(payload.Mentions)
}

func TestNotices(t *testing.T) {
	req := require.New(t)
	req.Equal("Alice has joined the golf-chat room.", JoinedNotice("Alice", "golf-chat").Msg)
	req.Equal("Alice has left the golf-chat room.", LeftNotice("Alice", "golf-chat").Msg)
}

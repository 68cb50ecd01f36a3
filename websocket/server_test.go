package websocket

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"tipster-chat/auth"
	"tipster-chat/domain"
	"tipster-chat/mocks"
	"tipster-chat/moderation"
	"tipster-chat/runtime"

	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const testSecret = "a_long_enough_secret_for_the_tests"

func newTestServer(t *testing.T) *httptest.Server {
	return newTestServerWithOptions(t, Options{AllowedOrigins: []string{"https://tipster-arena.com"}})
}

func newTestServerWithOptions(t *testing.T, opts Options) *httptest.Server {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	store := mocks.NewMockIMessageStore(ctrl)
	store.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	registry := runtime.NewRegistry(log, domain.DefaultRooms)
	hub := NewHub(log, 16)
	sanitizer := moderation.NewSanitizer(log, domain.MaxMessageLength, nil)
	dispatcher := runtime.NewDispatcher(log, registry, sanitizer, store, nil, hub, 10)
	server := NewServer(log, opts, hub, registry, dispatcher, auth.NewSessionResolver(testSecret, log))

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func dial(t *testing.T, ts *httptest.Server, token string) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	if token != "" {
		url += "?token=" + token
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, frame string) {
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame map[string]any
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func TestServer_Chat_Scenario(t *testing.T) {
	req := require.New(t)
	ts := newTestServer(t)
	token, err := auth.GenerateToken([]byte(testSecret), "alice", time.Hour)
	req.NoError(err)

	// Given Alice signed in and Bob anonymous
	alice := dial(t, ts, token)
	bob := dial(t, ts, "")

	// When Alice joins the football room
	send(t, alice, `{"type":"join","username":"Alice","room":"football-chat"}`)
	req.Equal(map[string]any{"type": "notice", "msg": "Alice has joined the football-chat room."}, readFrame(t, alice))

	// When Bob joins the same room
	send(t, bob, `{"type":"join","username":"Bob","room":"football-chat"}`)
	bobJoined := map[string]any{"type": "notice", "msg": "Bob has joined the football-chat room."}
	req.Equal(bobJoined, readFrame(t, alice))
	req.Equal(bobJoined, readFrame(t, bob))

	// When Alice mentions Bob
	send(t, alice, `{"type":"message","msg":"hi @Bob","room":"football-chat"}`)

	// Then both receive the message authored by her session identity
	for _, conn := range []*websocket.Conn{alice, bob} {
		frame := readFrame(t, conn)
		req.Equal("message", frame["type"])
		req.Equal("hi @Bob", frame["msg"])
		req.Equal("alice", frame["sender"])
		req.Equal([]any{"@Bob"}, frame["mentions"])
		req.NotEmpty(frame["timestamp"])
	}

	// When Bob sends a malformed frame then a message
	send(t, bob, `{"type":"message","room":"football-chat"}`)
	send(t, bob, `{"type":"message","msg":"who is playing?","room":"football-chat"}`)

	// Then only the valid message is delivered, authored by Anonymous
	frame := readFrame(t, alice)
	req.Equal("who is playing?", frame["msg"])
	req.Equal(domain.AnonymousSender, frame["sender"])

	// When Bob's connection drops
	req.NoError(bob.Close())

	// Then Alice is told
	req.Equal(map[string]any{"type": "notice", "msg": "Bob has left the football-chat room."}, readFrame(t, alice))
}

func TestServer_Message_Too_Long(t *testing.T) {
	req := require.New(t)
	ts := newTestServer(t)
	alice := dial(t, ts, "")

	send(t, alice, `{"type":"join","username":"Alice","room":"tennis-chat"}`)
	readFrame(t, alice)

	body, err := json.Marshal(map[string]string{"type": "message", "room": "tennis-chat", "msg": strings.Repeat("a", 516)})
	req.NoError(err)
	send(t, alice, string(body))

	req.Equal(map[string]any{"type": "notice", "msg": "Message is too long!"}, readFrame(t, alice))
}

func TestServer_Huge_Message_Keeps_Connection(t *testing.T) {
	req := require.New(t)
	ts := newTestServer(t)
	alice := dial(t, ts, "")

	// Given Alice in the tennis room
	send(t, alice, `{"type":"join","username":"Alice","room":"tennis-chat"}`)
	readFrame(t, alice)

	// When she pastes a tip far above the message length
	body, err := json.Marshal(map[string]string{"type": "message", "room": "tennis-chat", "msg": strings.Repeat("a", 10000)})
	req.NoError(err)
	send(t, alice, string(body))

	// Then she is told once and stays connected
	req.Equal(map[string]any{"type": "notice", "msg": "Message is too long!"}, readFrame(t, alice))
	send(t, alice, `{"type":"message","msg":"Sinner in straight sets","room":"tennis-chat"}`)
	frame := readFrame(t, alice)
	req.Equal("message", frame["type"])
	req.Equal("Sinner in straight sets", frame["msg"])
}

func TestServer_Frame_Above_Limit_Closes_Connection(t *testing.T) {
	req := require.New(t)
	ts := newTestServerWithOptions(t, Options{MaxFrameSize: 4096})
	alice := dial(t, ts, "")

	// When a frame exceeds the transport limit
	body, err := json.Marshal(map[string]string{"type": "message", "room": "tennis-chat", "msg": strings.Repeat("a", 5000)})
	req.NoError(err)
	send(t, alice, string(body))

	// Then the server closes the connection as too big
	req.NoError(alice.SetReadDeadline(time.Now().Add(2 * time.Second)))
	_, _, err = alice.ReadMessage()
	req.True(websocket.IsCloseError(err, websocket.CloseMessageTooBig), "unexpected error: %v", err)
}

func TestServer_Origin_Check(t *testing.T) {
	req := require.New(t)
	ts := newTestServer(t)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	// A disallowed browser origin is refused
	header := http.Header{}
	header.Set("Origin", "https://evil.example.com")
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	req.Error(err)
	req.Equal(http.StatusForbidden, resp.StatusCode)

	// An allowed one is accepted
	header.Set("Origin", "https://Tipster-Arena.com")
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	req.NoError(err)
	req.NoError(conn.Close())
}

func TestServer_Health_And_Rooms(t *testing.T) {
	req := require.New(t)
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	req.NoError(err)
	body, err := io.ReadAll(resp.Body)
	req.NoError(err)
	_ = resp.Body.Close()
	req.Equal(http.StatusOK, resp.StatusCode)
	req.Equal("ok", string(body))

	// Given one member in the golf room
	alice := dial(t, ts, "")
	send(t, alice, `{"type":"join","username":"Alice","room":"golf-chat"}`)
	readFrame(t, alice)

	resp, err = http.Get(ts.URL + "/rooms")
	req.NoError(err)
	defer resp.Body.Close()
	var rooms []roomView
	req.NoError(json.NewDecoder(resp.Body).Decode(&rooms))

	req.Len(rooms, len(domain.DefaultRooms))
	members := make(map[string]int)
	for _, room := range rooms {
		members[room.ID] = room.Members
	}
	req.Equal(1, members["golf-chat"])
	req.Equal(0, members["football-chat"])
}

package internal

import (
	"testing"
	"time"
	"tipster-chat/domain"
	"tipster-chat/errors"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	req := require.New(t)

	config, err := Load()

	req.NoError(err)
	req.Equal("localhost", config.Host)
	req.Equal(8080, config.Port)
	req.Equal(domain.MaxMessageLength, config.MaxMessageLength)
	req.Equal("badger", config.StoreDriver)
	req.Equal(50, config.LimitMessages)
	req.Equal(200*time.Millisecond, config.RestartInterval)
	req.Equal(64*1024, config.MaxFrameSize)
	req.Equal(domain.DefaultRooms, config.Rooms())
}

func TestLoad_From_Environment(t *testing.T) {
	req := require.New(t)
	t.Setenv("PORT", "9000")
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("CHAT_ROOMS", "football-chat, darts-chat,,football-chat")
	t.Setenv("ALLOWED_ORIGINS", "https://tipster-arena.com, http://localhost:3000")
	t.Setenv("RATE_LIMIT_PER_SECOND", "2.5")
	t.Setenv("HEARTBEAT_INTERVAL", "1m")

	config, err := Load()

	req.NoError(err)
	req.Equal(9000, config.Port)
	req.Equal("sqlite", config.StoreDriver)
	req.Equal(2.5, config.RateLimitPerSecond)
	req.Equal(time.Minute, config.HeartbeatInterval)
	req.Equal([]string{"https://tipster-arena.com", "http://localhost:3000"}, config.Origins())
	rooms := config.Rooms()
	req.Len(rooms, 2)
	req.Equal(domain.RoomID("football-chat"), rooms[0].ID)
	req.Equal("Football", rooms[0].Name)
	req.Equal(domain.RoomID("darts-chat"), rooms[1].ID)
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{
		Port:                 8080,
		MaxMessageLength:     515,
		StoreDriver:          "badger",
		BadgerFilepath:       "data/badger",
		LimitMessages:        50,
		ConnectionBufferSize: 256,
		MaxFrameSize:         65536,
		CharReplacement:      "*",
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"Unknown driver", func(c *Config) { c.StoreDriver = "postgres" }},
		{"Badger without path", func(c *Config) { c.BadgerFilepath = "" }},
		{"Sqlite without path", func(c *Config) { c.StoreDriver = "sqlite" }},
		{"Port out of range", func(c *Config) { c.Port = 70000 }},
		{"Replacement of two characters", func(c *Config) { c.CharReplacement = "**" }},
		{"No history", func(c *Config) { c.LimitMessages = 0 }},
		{"Only blank rooms", func(c *Config) { c.ChatRooms = " , ," }},
		{"Frame limit too small", func(c *Config) { c.MaxFrameSize = 1024 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := valid
			tt.mutate(&config)
			require.Error(t, config.Validate())
		})
	}
}

func TestConfig_Validate_Room_With_Key_Separator(t *testing.T) {
	req := require.New(t)
	config := Config{
		Port:                 8080,
		MaxMessageLength:     515,
		StoreDriver:          "badger",
		BadgerFilepath:       "data/badger",
		LimitMessages:        50,
		ConnectionBufferSize: 256,
		MaxFrameSize:         65536,
		CharReplacement:      "*",
		ChatRooms:            "football-chat,darts:chat",
	}

	err := config.Validate()

	req.ErrorIs(err, errors.ErrInvalidRoom)
}

func TestCharacterRune(t *testing.T) {
	req := require.New(t)

	r, err := CharacterRune("#")
	req.NoError(err)
	req.Equal('#', r)

	_, err = CharacterRune("")
	req.Error(err)
}

package internal

import (
	"fmt"
	"strings"
	"time"
	"tipster-chat/domain"
	"tipster-chat/errors"

	"github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Host                 string        `env:"HOST,default=localhost"`
	Port                 int           `env:"PORT,default=8080" validate:"min=1,max=65535"`
	LogLevel             string        `env:"LOG_LEVEL,default=INFO"`
	ChatRooms            string        `env:"CHAT_ROOMS"`
	MaxMessageLength     int           `env:"MAX_MESSAGE_LENGTH,default=515" validate:"min=1"`
	StoreDriver          string        `env:"STORE_DRIVER,default=badger" validate:"oneof=badger sqlite"`
	BadgerFilepath       string        `env:"BADGER_FILEPATH,default=data/badger" validate:"required_if=StoreDriver badger"`
	SQLiteFilepath       string        `env:"SQLITE_FILEPATH,default=data/messages.db" validate:"required_if=StoreDriver sqlite"`
	BlugeFilepath        string        `env:"BLUGE_FILEPATH"`
	LimitMessages        int           `env:"LIMIT_MESSAGES,default=50" validate:"min=1,max=500"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=256" validate:"min=1"`
	MaxFrameSize         int           `env:"MAX_FRAME_SIZE,default=65536" validate:"min=4096"`
	CensoredDir          string        `env:"CENSORED_DIR"`
	CharReplacement      string        `env:"CHARACTER_REPLACEMENT,default=*"`
	JWTSecret            string        `env:"JWT_SECRET"`
	AllowedOrigins       string        `env:"ALLOWED_ORIGINS"`
	RateLimitPerSecond   float64       `env:"RATE_LIMIT_PER_SECOND,default=5" validate:"min=0"`
	RateLimitBurst       int           `env:"RATE_LIMIT_BURST,default=10" validate:"min=0"`
	HeartbeatInterval    time.Duration `env:"HEARTBEAT_INTERVAL,default=30s"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	ShutdownTimeout      time.Duration `env:"SHUTDOWN_TIMEOUT,default=5s"`
}

// Load reads an optional .env file then the environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := CharacterRune(c.CharReplacement); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	for _, id := range splitList(c.ChatRooms) {
		if strings.Contains(id, domain.RoomKeySeparator) {
			return fmt.Errorf("invalid config: %w: %q must not contain %q", errors.ErrInvalidRoom, id, domain.RoomKeySeparator)
		}
	}
	if len(c.Rooms()) == 0 {
		return fmt.Errorf("invalid config: %w", errors.ErrEmptyRooms)
	}
	return nil
}

// Rooms is the allow-list of chat rooms, the sport rooms when CHAT_ROOMS is not set.
func (c Config) Rooms() []domain.Room {
	if strings.TrimSpace(c.ChatRooms) == "" {
		return domain.DefaultRooms
	}
	return domain.RoomsFromIDs(splitList(c.ChatRooms))
}

func (c Config) Origins() []string {
	return splitList(c.AllowedOrigins)
}

func splitList(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}

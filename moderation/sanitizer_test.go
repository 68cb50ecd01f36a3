package moderation

import (
	"log/slog"
	"strings"
	"testing"
	"tipster-chat/domain"
	"tipster-chat/errors"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestSanitizer_Mentions(t *testing.T) {
	req := require.New(t)
	sanitizer := NewSanitizer(logs.GetLoggerFromLevel(slog.LevelDebug), domain.MaxMessageLength, nil)

	tests := []struct {
		name     string
		input    string
		mentions []string
	}{
		{"Two mentions in order", "hello @bob and @alice99!", []string{"@bob", "@alice99"}},
		{"Duplicates are kept", "@bob @bob", []string{"@bob", "@bob"}},
		{"Underscore is a word character", "cc @tip_ster", []string{"@tip_ster"}},
		{"Accented username", "bravo @zoé", []string{"@zoé"}},
		{"Lonely at sign", "meet @ noon", []string{}},
		{"No mention", "Arsenal to win", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, err := sanitizer.Sanitize(tt.input)
			req.NoError(err)
			req.Equal(tt.mentions, text.Mentions)
		})
	}
}

func TestSanitizer_Length_Boundary(t *testing.T) {
	req := require.New(t)
	sanitizer := NewSanitizer(logs.GetLoggerFromLevel(slog.LevelDebug), domain.MaxMessageLength, nil)

	// Given a body of exactly 515 characters
	text, err := sanitizer.Sanitize(strings.Repeat("a", 515))
	// Then it is accepted
	req.NoError(err)
	req.Len(text.Body, 515)

	// Given a body of 516 characters
	_, err = sanitizer.Sanitize(strings.Repeat("a", 516))
	// Then it is rejected
	req.ErrorIs(err, errors.ErrMessageTooLong)

	// Given 515 multibyte characters
	_, err = sanitizer.Sanitize(strings.Repeat("é", 515))
	// Then characters are counted, not bytes
	req.NoError(err)
}

func TestSanitizer_Markup(t *testing.T) {
	req := require.New(t)
	sanitizer := NewSanitizer(logs.GetLoggerFromLevel(slog.LevelDebug), domain.MaxMessageLength, nil)

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Tags are stripped", "<b>Arsenal</b> to win", "Arsenal to win"},
		{"Scripts are dropped with their content", "<script>alert(1)</script>hi", "hi"},
		{"Markup characters are escaped", "2 < 3", "2 &lt; 3"},
		{"Plain text is untouched", "hi @B", "hi @B"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, err := sanitizer.Sanitize(tt.input)
			req.NoError(err)
			req.Equal(tt.expected, text.Body)
		})
	}
}

func TestSanitizer_Empty_Body(t *testing.T) {
	req := require.New(t)
	sanitizer := NewSanitizer(logs.GetLoggerFromLevel(slog.LevelDebug), domain.MaxMessageLength, nil)

	text, err := sanitizer.Sanitize("")

	req.NoError(err)
	req.Empty(text.Body)
	req.Empty(text.Mentions)
}

func TestSanitizer_Censors_Words(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	moderator, err := NewModerator([]string{"cheat"}, '*', log)
	req.NoError(err)
	sanitizer := NewSanitizer(log, domain.MaxMessageLength, moderator)

	text, err := sanitizer.Sanitize("you cheat @ref")

	req.NoError(err)
	req.Equal("you ***** @ref", text.Body)
	req.Equal([]string{"cheat"}, text.CensoredWords)
	req.Equal([]string{"@ref"}, text.Mentions)
}

package moderation

import (
	"log/slog"
	"regexp"
	"tipster-chat/domain"
	"tipster-chat/errors"
	"unicode/utf8"

	"github.com/abadojack/whatlanggo"
	"github.com/microcosm-cc/bluemonday"
)

// mentionPattern matches "@" followed by word characters, letters of any script included.
var mentionPattern = regexp.MustCompile(`@[\p{L}\p{N}_]+`)

// Sanitizer turns a raw chat body into text safe to store and broadcast.
type Sanitizer struct {
	policy    *bluemonday.Policy
	moderator *Moderator
	maxLength int
	log       *slog.Logger
}

// NewSanitizer builds a sanitizer rejecting bodies longer than maxLength characters.
// moderator may be nil, no word is censored then.
func NewSanitizer(log *slog.Logger, maxLength int, moderator *Moderator) *Sanitizer {
	if maxLength <= 0 {
		maxLength = domain.MaxMessageLength
	}
	return &Sanitizer{
		policy:    bluemonday.StrictPolicy(),
		moderator: moderator,
		maxLength: maxLength,
		log:       log,
	}
}

// Sanitize checks the length of the raw body, strips every HTML element, escapes what is left
// and censors forbidden words. Mentions are extracted from the cleaned text.
// An empty body is not an error.
func (s *Sanitizer) Sanitize(raw string) (domain.SanitizedText, error) {
	if utf8.RuneCountInString(raw) > s.maxLength {
		return domain.SanitizedText{}, errors.ErrMessageTooLong
	}
	if raw == "" {
		return domain.SanitizedText{Mentions: []string{}}, nil
	}

	body := s.policy.Sanitize(raw)

	var censored []string
	if s.moderator != nil {
		body, censored = s.moderator.Censor(body)
		if len(censored) > 0 {
			s.log.Debug("Message censored", "words", censored)
		}
	}

	mentions := mentionPattern.FindAllString(body, -1)
	if mentions == nil {
		mentions = []string{}
	}

	return domain.SanitizedText{
		Body:          body,
		Mentions:      mentions,
		CensoredWords: censored,
		Lang:          detectLang(body),
	}, nil
}

// detectLang returns the ISO 639-1 code of the text, or "" when the guess is not reliable.
func detectLang(text string) string {
	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return ""
	}
	return info.Lang.Iso6391()
}

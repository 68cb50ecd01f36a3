package auth

import (
	"log/slog"
	"net/http"
	"strings"
	"tipster-chat/domain"
)

// SessionResolver reads the session identity of a websocket handshake.
// A connection without a valid session chats as "Anonymous".
type SessionResolver struct {
	secret []byte
	log    *slog.Logger
}

func NewSessionResolver(secret string, log *slog.Logger) *SessionResolver {
	return &SessionResolver{secret: []byte(secret), log: log}
}

// Username returns the user of the token found in the "token" query parameter
// or in the Authorization header.
func (s *SessionResolver) Username(r *http.Request) string {
	if len(s.secret) == 0 {
		return domain.AnonymousSender
	}
	token := tokenFromRequest(r)
	if token == "" {
		return domain.AnonymousSender
	}
	claims, err := ValidateToken(s.secret, token)
	if err != nil {
		s.log.Debug("Rejecting session token", "remote", r.RemoteAddr, "error", err)
		return domain.AnonymousSender
	}
	return claims.Username
}

func tokenFromRequest(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

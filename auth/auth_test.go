package auth

import (
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"
	"tipster-chat/domain"
	"tipster-chat/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

var secret = []byte("a_long_enough_secret_for_the_tests")

func TestGenerateAndValidateToken(t *testing.T) {
	req := require.New(t)

	token, err := GenerateToken(secret, "alice", time.Hour)
	req.NoError(err)

	claims, err := ValidateToken(secret, token)
	req.NoError(err)
	req.Equal("alice", claims.Username)
	req.Equal(Issuer, claims.Issuer)
}

func TestValidateToken_Rejections(t *testing.T) {
	req := require.New(t)

	expired, err := GenerateToken(secret, "alice", -time.Minute)
	req.NoError(err)
	otherSecret, err := GenerateToken([]byte("another_secret_entirely_different"), "alice", time.Hour)
	req.NoError(err)
	noUsername, err := GenerateToken(secret, "", time.Hour)
	req.NoError(err)
	foreignIssuer, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &CustomClaims{
		Username: "alice",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			Issuer:    "someone-else",
		},
	}).SignedString(secret)
	req.NoError(err)
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, &CustomClaims{Username: "alice"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	req.NoError(err)

	tests := []struct {
		name  string
		token string
	}{
		{"Expired", expired},
		{"Signed with another secret", otherSecret},
		{"Without username", noUsername},
		{"Foreign issuer", foreignIssuer},
		{"Unsigned", unsigned},
		{"Garbage", "not.a.token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateToken(secret, tt.token)
			require.ErrorIs(t, err, errors.ErrInvalidToken)
		})
	}
}

func TestSessionResolver_Username(t *testing.T) {
	req := require.New(t)
	resolver := NewSessionResolver(string(secret), logs.GetLoggerFromLevel(slog.LevelDebug))
	token, err := GenerateToken(secret, "bob", time.Hour)
	req.NoError(err)

	// Token in the query string
	r := httptest.NewRequest("GET", "/ws?token="+token, nil)
	req.Equal("bob", resolver.Username(r))

	// Token in the Authorization header
	r = httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	req.Equal("bob", resolver.Username(r))

	// No token
	r = httptest.NewRequest("GET", "/ws", nil)
	req.Equal(domain.AnonymousSender, resolver.Username(r))

	// Invalid token
	r = httptest.NewRequest("GET", "/ws?token=forged", nil)
	req.Equal(domain.AnonymousSender, resolver.Username(r))
}

func TestSessionResolver_Without_Secret(t *testing.T) {
	req := require.New(t)
	resolver := NewSessionResolver("", logs.GetLoggerFromLevel(slog.LevelDebug))
	token, err := GenerateToken(secret, "bob", time.Hour)
	req.NoError(err)

	r := httptest.NewRequest("GET", "/ws?token="+token, nil)
	req.Equal(domain.AnonymousSender, resolver.Username(r))
}

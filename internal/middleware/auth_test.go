package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	auth := NewSessionAuth("secret")
	id := uuid.New()

	token, expiresAt, err := auth.GenerateSessionToken(id)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(DefaultTokenTTL), expiresAt, 5*time.Second)

	got, err := auth.ParseSessionToken(token)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestParseSessionTokenRejects(t *testing.T) {
	auth := NewSessionAuth("secret")
	id := uuid.New()

	other, _, err := NewSessionAuth("other-secret").GenerateSessionToken(id)
	require.NoError(t, err)

	noSession := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})
	noSessionStr, err := noSession.SignedString([]byte("secret"))
	require.NoError(t, err)

	badID := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"session_id": "nope", "exp": time.Now().Add(time.Hour).Unix()})
	badIDStr, err := badID.SignedString([]byte("secret"))
	require.NoError(t, err)

	for name, tok := range map[string]string{
		"garbage":      "not-a-token",
		"wrong secret": other,
		"no claim":     noSessionStr,
		"bad uuid":     badIDStr,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := auth.ParseSessionToken(tok)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestSessionAuthMiddleware(t *testing.T) {
	auth := NewSessionAuth("secret")
	id := uuid.New()
	valid, _, err := auth.GenerateSessionToken(id)
	require.NoError(t, err)

	expiredAuth := &SessionAuth{Secret: []byte("secret"), TTL: -time.Minute}
	expired, _, err := expiredAuth.GenerateSessionToken(id)
	require.NoError(t, err)

	var seen uuid.UUID
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetSessionID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	h := auth.Middleware(next)

	tests := []struct {
		name     string
		header   string
		wantCode int
		wantErr  string
	}{
		{"valid", "Bearer " + valid, http.StatusNoContent, ""},
		{"missing", "", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"wrong scheme", "Basic " + valid, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"invalid", "Bearer nope", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"expired", "Bearer " + expired, http.StatusUnauthorized, "TOKEN_EXPIRED"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			seen = uuid.Nil
			req := httptest.NewRequest(http.MethodGet, "/api/v1/messages", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()

			h.ServeHTTP(rr, req)

			assert.Equal(t, tc.wantCode, rr.Code)
			if tc.wantErr == "" {
				assert.Equal(t, id, seen)
				return
			}
			assert.Equal(t, uuid.Nil, seen)

			var body struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
			assert.Equal(t, tc.wantErr, body.Error.Code)
		})
	}
}

package ws

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCheckOrigin(t *testing.T) {
	check := makeCheckOrigin([]string{"http://localhost:3000", " https://app.example.com "})

	cases := []struct {
		origin  string
		allowed bool
	}{
		{"http://localhost:3000", true},
		{"HTTP://LOCALHOST:3000", true},
		{"https://app.example.com", true},
		{"https://app.example.com/", true},
		{"https://evil.example.com", false},
		{"", false},
	}
	for _, tc := range cases {
		r := httptest.NewRequest("GET", "/ws", nil)
		if tc.origin != "" {
			r.Header.Set("Origin", tc.origin)
		}
		assert.Equal(t, tc.allowed, check(r), "origin %q", tc.origin)
	}

	deny := makeCheckOrigin(nil)
	r := httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Origin", "http://localhost:3000")
	assert.False(t, deny(r), "empty allowlist denies everything")
}

func TestExtractTokenFromWSRequest(t *testing.T) {
	t.Run("AuthorizationHeader", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/ws", nil)
		r.Header.Set("Authorization", "Bearer abc123")

		token, err := extractTokenFromWSRequest(r)
		assert.NoError(t, err)
		assert.Equal(t, "abc123", token)
	})

	t.Run("Subprotocol", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/ws", nil)
		r.Header.Set("Sec-WebSocket-Protocol", "bearer, abc123")

		token, err := extractTokenFromWSRequest(r)
		assert.NoError(t, err)
		assert.Equal(t, "abc123", token)
	})

	t.Run("Missing", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/ws", nil)
		_, err := extractTokenFromWSRequest(r)
		assert.Error(t, err)
	})
}

func TestParseEventID(t *testing.T) {
	assert.Equal(t, int64(42), parseEventID(float64(42)))
	assert.Equal(t, int64(9007199254740993), parseEventID("9007199254740993"))

	assert.Zero(t, parseEventID(nil))
	assert.Zero(t, parseEventID("not a number"))
	assert.Zero(t, parseEventID(true))
}

func TestParseEventTime(t *testing.T) {
	at := parseEventTime("2026-08-28T12:00:00Z")
	assert.Equal(t, time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC), at)

	assert.True(t, parseEventTime(nil).IsZero())
	assert.True(t, parseEventTime("not a time").IsZero())
	assert.True(t, parseEventTime(42).IsZero())
}

package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOTPIssueAndVerify(t *testing.T) {
	store := NewOTPStore(10 * time.Minute)

	code, err := store.Issue("alice@example.com")
	assert.NoError(t, err)
	assert.Len(t, code, 6)

	assert.False(t, store.Verify("bob@example.com", code), "codes are bound to the address")
	assert.True(t, store.Verify("alice@example.com", code))
	assert.False(t, store.Verify("alice@example.com", code), "a code verifies at most once")
}

func TestOTPWrongCodeConsumesEntry(t *testing.T) {
	store := NewOTPStore(10 * time.Minute)

	code, err := store.Issue("alice@example.com")
	assert.NoError(t, err)

	assert.False(t, store.Verify("alice@example.com", "000000"))
	assert.False(t, store.Verify("alice@example.com", code), "failed attempt burns the entry")
}

func TestOTPReissueReplaces(t *testing.T) {
	store := NewOTPStore(10 * time.Minute)

	first, err := store.Issue("alice@example.com")
	assert.NoError(t, err)
	second, err := store.Issue("alice@example.com")
	assert.NoError(t, err)

	if first != second {
		assert.False(t, store.Verify("alice@example.com", first))
		second, err = store.Issue("alice@example.com")
		assert.NoError(t, err)
	}
	assert.True(t, store.Verify("alice@example.com", second))
}

func TestOTPExpiry(t *testing.T) {
	store := NewOTPStore(10 * time.Minute)
	base := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return base }

	code, err := store.Issue("alice@example.com")
	assert.NoError(t, err)

	store.now = func() time.Time { return base.Add(11 * time.Minute) }
	assert.False(t, store.Verify("alice@example.com", code))

	// Expired entries are dropped on access, not kept forever.
	store.mu.Lock()
	assert.Empty(t, store.m)
	store.mu.Unlock()
}

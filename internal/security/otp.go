package security

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"
)

type otpEntry struct {
	code      string
	expiresAt time.Time
}

// OTPStore keeps one-time codes keyed by email address. Entries expire
// after the configured TTL; verification consumes the entry.
type OTPStore struct {
	mu  sync.Mutex
	ttl time.Duration
	m   map[string]otpEntry

	now func() time.Time
}

func NewOTPStore(ttl time.Duration) *OTPStore {
	return &OTPStore{
		ttl: ttl,
		m:   make(map[string]otpEntry),
		now: time.Now,
	}
}

// Issue generates a six-digit code for the email, replacing any previous
// code for the same address.
func (s *OTPStore) Issue(email string) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	code := fmt.Sprintf("%06d", n.Int64()+100000)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.gcLocked()
	s.m[email] = otpEntry{code: code, expiresAt: s.now().Add(s.ttl)}
	return code, nil
}

// Verify consumes the code for the email. A wrong or expired code leaves
// nothing behind to brute-force against.
func (s *OTPStore) Verify(email, code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gcLocked()

	entry, ok := s.m[email]
	if !ok {
		return false
	}
	delete(s.m, email)
	return entry.code == code && s.now().Before(entry.expiresAt)
}

// gcLocked drops expired entries. Called under s.mu on every access so the
// map stays bounded without a background janitor.
func (s *OTPStore) gcLocked() {
	now := s.now()
	for k, e := range s.m {
		if now.After(e.expiresAt) {
			delete(s.m, k)
		}
	}
}

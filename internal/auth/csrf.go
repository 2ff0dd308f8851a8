package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"sync"
	"time"
)

// csrfEntry stores one user's live token
type csrfEntry struct {
	token  string
	expiry time.Time
}

// CSRFTokenStore holds per-user CSRF tokens in process memory. Each user has
// at most one live token: Generate overwrites any prior token, so only the
// latest issued token validates. Tokens are best-effort per-instance and are
// not shared across horizontally scaled instances.
type CSRFTokenStore struct {
	tokens map[string]*csrfEntry // userID -> entry
	mu     sync.RWMutex
	ttl    time.Duration
}

// NewCSRFTokenStore creates a store whose tokens expire after ttl.
func NewCSRFTokenStore(ttl time.Duration) *CSRFTokenStore {
	store := &CSRFTokenStore{
		tokens: make(map[string]*csrfEntry),
		ttl:    ttl,
	}

	// Cleanup goroutine removes expired tokens
	go store.cleanupExpiredTokens()

	return store
}

// Generate creates a new CSRF token for a user, invalidating any prior one.
func (s *CSRFTokenStore) Generate(userID string) (string, error) {
	randomBytes := make([]byte, 32)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(randomBytes)

	s.mu.Lock()
	s.tokens[userID] = &csrfEntry{
		token:  token,
		expiry: time.Now().Add(s.ttl),
	}
	s.mu.Unlock()

	return token, nil
}

// Validate checks that token is the user's current live token.
func (s *CSRFTokenStore) Validate(userID, token string) bool {
	if token == "" {
		return false
	}

	s.mu.RLock()
	entry, exists := s.tokens[userID]
	s.mu.RUnlock()

	if !exists {
		return false
	}

	if time.Now().After(entry.expiry) {
		s.mu.Lock()
		// Re-check under the write lock; a fresh token may have been issued
		if cur, ok := s.tokens[userID]; ok && cur == entry {
			delete(s.tokens, userID)
		}
		s.mu.Unlock()
		return false
	}

	return subtle.ConstantTimeCompare([]byte(entry.token), []byte(token)) == 1
}

// Delete removes a user's token (called on logout).
func (s *CSRFTokenStore) Delete(userID string) {
	s.mu.Lock()
	delete(s.tokens, userID)
	s.mu.Unlock()
}

// cleanupExpiredTokens periodically removes expired tokens
func (s *CSRFTokenStore) cleanupExpiredTokens() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		s.mu.Lock()
		now := time.Now()
		for userID, entry := range s.tokens {
			if now.After(entry.expiry) {
				delete(s.tokens, userID)
			}
		}
		s.mu.Unlock()
	}
}

package auth

import (
	"sync"
	"time"
)

// RevocationList is an in-memory denylist of token IDs (jti claims). Entries
// expire together with the token they revoke, so the list never grows beyond
// the set of refresh tokens still within their lifetime.
//
// A single process holds the full list; horizontal scale-out would need a
// shared backing store behind the same methods.
type RevocationList struct {
	mu       sync.Mutex
	revoked  map[string]time.Time
	timeFunc func() time.Time
}

// NewRevocationList creates an empty revocation list.
func NewRevocationList() *RevocationList {
	return &RevocationList{
		revoked:  make(map[string]time.Time),
		timeFunc: time.Now,
	}
}

// Revoke adds the token ID to the list until expiresAt, after which the
// token is rejected by its own expiry anyway.
func (l *RevocationList) Revoke(tokenID string, expiresAt time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.purgeLocked()
	l.revoked[tokenID] = expiresAt
}

// IsRevoked reports whether the token ID has been revoked and is still
// within its original lifetime.
func (l *RevocationList) IsRevoked(tokenID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.purgeLocked()
	_, ok := l.revoked[tokenID]
	return ok
}

// purgeLocked drops entries whose tokens have expired. Callers must hold mu.
func (l *RevocationList) purgeLocked() {
	now := l.timeFunc()
	for id, expiresAt := range l.revoked {
		if now.After(expiresAt) {
			delete(l.revoked, id)
		}
	}
}

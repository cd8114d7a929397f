package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/monibu1548/JKFirebaseSDK/internal"
)

// ErrUserKeyUnavailable is returned by UserKey when the stable user key has
// not been resolved yet: either no identity is signed in, or its profile
// record has not reached the document store. Callers retry once sign-in and
// registration have completed.
var ErrUserKeyUnavailable = errors.New("auth: stable user key is not available yet")

// Session holds the currently authenticated identity.
//
// Exactly one canonical identity is current at any time, or none. The
// session is owned by the auth Client: only a confirmed successful backend
// operation mutates it. Other components read snapshots through Current and
// never observe partial state.
type Session struct {
	mu       sync.RWMutex
	identity *Identity

	store internal.DocumentStore
	keys  *gocache.Cache
}

func newSession(store internal.DocumentStore) *Session {
	return &Session{
		store: store,
		keys:  gocache.New(gocache.NoExpiration, 10*time.Minute),
	}
}

// Current returns a snapshot of the current identity, or nil when no
// identity is signed in. Mutating the returned value does not affect the
// session.
func (s *Session) Current() *Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.identity == nil {
		return nil
	}
	snapshot := *s.identity
	return &snapshot
}

func (s *Session) set(identity *Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = identity
}

func (s *Session) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = nil
	s.keys.Flush()
}

// UserKey returns the stable user key of the current identity: the ID under
// which its profile record is stored.
//
// The key is resolved lazily. A memoized value is returned when present;
// otherwise the profile record is read from the document store and the key
// memoized. When neither source can produce a value yet, UserKey returns
// ErrUserKeyUnavailable rather than failing hard, and the caller is expected
// to retry after sign-in or registration completes.
func (s *Session) UserKey(ctx context.Context) (string, error) {
	current := s.Current()
	if current == nil {
		return "", ErrUserKeyUnavailable
	}

	if v, ok := s.keys.Get(current.UID); ok {
		return v.(string), nil
	}

	if s.store == nil {
		return "", ErrUserKeyUnavailable
	}
	var record Identity
	if err := s.store.Read(ctx, usersCollection, current.UID, &record); err != nil || record.UID == "" {
		return "", ErrUserKeyUnavailable
	}

	s.keys.Set(current.UID, record.UID, gocache.NoExpiration)
	return record.UID, nil
}

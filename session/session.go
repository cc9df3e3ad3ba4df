// Package session holds the authentication session of the API client.
//
// The Store is a two-state machine, Anonymous and Authenticated, mirrored in
// a durable Storage under a single record named StorageName. It starts
// un-hydrated; Hydrate restores the persisted record and only then does
// Hydrated report true. Consumers gate on Hydrated and read the Store, never
// the Storage.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// StorageName is the key of the persisted session record.
const StorageName = "auth-storage"

// Keys of the standalone token and user values older clients wrote next to
// the record. They are migrated on hydration and removed on logout.
const (
	legacyTokenKey = "token"
	legacyUserKey  = "user"
)

// ErrInvalidSession is returned by SetAuth for a session missing its user or token.
var ErrInvalidSession = errors.New("session: user and token are required")

// User is the authenticated user.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FamilyID string `json:"family_id"`
}

// Session is a snapshot of the Store state.
//
// IsAuthenticated is true iff User is not nil and Token is not empty.
type Session struct {
	User            *User
	Token           string
	IsAuthenticated bool
}

// record is the persisted form of a Session.
type record struct {
	State struct {
		User            *User   `json:"user"`
		Token           *string `json:"token"`
		IsAuthenticated bool    `json:"isAuthenticated"`
	} `json:"state"`
	Version int `json:"version"`
}

// Store is the session state, safe for concurrent use.
type Store struct {
	storage Storage
	logger  *slog.Logger
	now     func() time.Time

	// transition serializes the changes of state, storage I/O included.
	// Hydration is one: a SetAuth or Logout issued meanwhile applies after it.
	transition sync.Mutex

	mu        sync.RWMutex
	session   Session
	listeners map[int]func(Session)
	nextID    int

	hydrateOnce sync.Once
	hydrateErr  error
	hydrated    chan struct{} // closed when hydration completes
}

// NewStore returns an Anonymous, un-hydrated Store persisted in storage.
func NewStore(storage Storage, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		storage:   storage,
		logger:    logger,
		now:       time.Now,
		listeners: make(map[int]func(Session)),
		hydrated:  make(chan struct{}),
	}
}

// Open returns a hydrated Store.
func Open(ctx context.Context, storage Storage, logger *slog.Logger) (*Store, error) {
	s := NewStore(storage, logger)
	return s, s.Hydrate(ctx)
}

// Hydrate restores the persisted session. Only the first call has an effect.
//
// A malformed or expired record is not an error: the store starts Anonymous
// and the record is removed. The returned error reports a storage failure;
// the store is hydrated Anonymous in that case too.
func (s *Store) Hydrate(ctx context.Context) error {
	s.hydrateOnce.Do(func() {
		defer close(s.hydrated)
		s.transition.Lock()
		sess, err := s.restore(ctx)
		if err != nil {
			s.hydrateErr = fmt.Errorf("cannot restore session: %w", err)
			s.logger.Warn("session not restored", "error", err)
			sess = Session{}
		}
		listeners := s.set(sess)
		s.transition.Unlock()
		notify(listeners, sess)
	})
	return s.hydrateErr
}

// Hydrated reports whether the persisted session has been restored.
func (s *Store) Hydrated() bool {
	select {
	case <-s.hydrated:
		return true
	default:
		return false
	}
}

// WaitHydrated blocks until the persisted session has been restored.
func (s *Store) WaitHydrated(ctx context.Context) error {
	select {
	case <-s.hydrated:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// restore reads the persisted session.
func (s *Store) restore(ctx context.Context) (Session, error) {
	raw, err := s.storage.Get(ctx, StorageName)
	if errors.Is(err, ErrNotFound) {
		return s.migrateLegacy(ctx)
	}
	if err != nil {
		return Session{}, err
	}

	sess, err := decodeRecord(raw)
	if err != nil {
		s.logger.Warn("discarding malformed session record", "error", err)
		return Session{}, s.storage.Delete(ctx, StorageName)
	}
	if sess.IsAuthenticated && tokenExpired(sess.Token, s.now()) {
		s.logger.Info("session token expired", "email", sess.User.Email)
		return Session{}, s.storage.Delete(ctx, StorageName)
	}
	return sess, nil
}

// migrateLegacy turns the standalone token and user values into a record.
func (s *Store) migrateLegacy(ctx context.Context) (Session, error) {
	token, terr := s.storage.Get(ctx, legacyTokenKey)
	rawUser, uerr := s.storage.Get(ctx, legacyUserKey)
	if errors.Is(terr, ErrNotFound) && errors.Is(uerr, ErrNotFound) {
		return Session{}, nil
	}
	if err := errors.Join(ignoreNotFound(terr), ignoreNotFound(uerr)); err != nil {
		return Session{}, err
	}

	var sess Session
	var user User
	switch {
	case terr != nil || uerr != nil:
		s.logger.Warn("discarding incomplete legacy session")
	case json.Unmarshal(rawUser, &user) != nil || len(token) == 0:
		s.logger.Warn("discarding malformed legacy session")
	case tokenExpired(string(token), s.now()):
		s.logger.Info("legacy session token expired")
	default:
		sess = Session{User: &user, Token: string(token), IsAuthenticated: true}
		raw, err := encodeRecord(sess)
		if err != nil {
			return Session{}, err
		}
		if err := s.storage.Set(ctx, StorageName, raw); err != nil {
			return Session{}, err
		}
		s.logger.Info("migrated legacy session", "email", user.Email)
	}
	return sess, s.deleteLegacy(ctx)
}

func (s *Store) deleteLegacy(ctx context.Context) error {
	return errors.Join(
		s.storage.Delete(ctx, legacyTokenKey),
		s.storage.Delete(ctx, legacyUserKey),
	)
}

// SetAuth makes the session Authenticated as user with token.
//
// The record is persisted first: if the write fails the session is unchanged.
func (s *Store) SetAuth(ctx context.Context, user User, token string) error {
	if token == "" {
		return ErrInvalidSession
	}
	sess := Session{User: &user, Token: token, IsAuthenticated: true}
	raw, err := encodeRecord(sess)
	if err != nil {
		return err
	}

	s.transition.Lock()
	if err := s.storage.Set(ctx, StorageName, raw); err != nil {
		s.transition.Unlock()
		return fmt.Errorf("cannot persist session: %w", err)
	}
	listeners := s.set(sess)
	s.transition.Unlock()

	notify(listeners, sess)
	return nil
}

// Logout makes the session Anonymous and removes the persisted record.
//
// The in-memory session is cleared even when the storage fails, the storage
// error is returned. Logout of an Anonymous session is a no-op.
func (s *Store) Logout(ctx context.Context) error {
	s.transition.Lock()
	err := errors.Join(
		s.storage.Delete(ctx, StorageName),
		s.deleteLegacy(ctx),
	)
	wasAuthenticated := s.IsAuthenticated()
	listeners := s.set(Session{})
	s.transition.Unlock()

	if wasAuthenticated {
		notify(listeners, Session{})
	}
	if err != nil {
		return fmt.Errorf("cannot clear persisted session: %w", err)
	}
	return nil
}

// Snapshot returns a copy of the current session.
func (s *Store) Snapshot() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.clone()
}

// Token returns the bearer token, or "" when Anonymous.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.Token
}

// IsAuthenticated reports whether the session is Authenticated.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.IsAuthenticated
}

// Expiry returns the expiration time carried by the token, if any.
func (s *Store) Expiry() (time.Time, bool) {
	return tokenExpiry(s.Token())
}

// Subscribe registers fn to be called with the new session after every
// transition. The returned function unregisters it.
func (s *Store) Subscribe(fn func(Session)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// set replaces the in-memory session and returns the listeners to notify.
func (s *Store) set(sess Session) []func(Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = sess
	return s.snapshotListeners()
}

// snapshotListeners must be called with s.mu held.
func (s *Store) snapshotListeners() []func(Session) {
	listeners := make([]func(Session), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	return listeners
}

func notify(listeners []func(Session), sess Session) {
	for _, fn := range listeners {
		fn(sess.clone())
	}
}

func (sess Session) clone() Session {
	if sess.User != nil {
		u := *sess.User
		sess.User = &u
	}
	return sess
}

func encodeRecord(sess Session) ([]byte, error) {
	var r record
	r.State.User = sess.User
	r.State.IsAuthenticated = sess.IsAuthenticated
	if sess.Token != "" {
		r.State.Token = &sess.Token
	}
	return json.Marshal(r)
}

// decodeRecord parses a persisted record and checks it is consistent.
func decodeRecord(raw []byte) (Session, error) {
	var r record
	if err := json.Unmarshal(raw, &r); err != nil {
		return Session{}, err
	}
	st := r.State
	hasToken := st.Token != nil && *st.Token != ""
	switch {
	case !st.IsAuthenticated && st.User == nil && !hasToken:
		return Session{}, nil
	case st.IsAuthenticated && st.User != nil && hasToken:
		return Session{User: st.User, Token: *st.Token, IsAuthenticated: true}, nil
	default:
		return Session{}, fmt.Errorf("inconsistent session record: authenticated=%v user=%v token=%v",
			st.IsAuthenticated, st.User != nil, hasToken)
	}
}

func ignoreNotFound(err error) error {
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

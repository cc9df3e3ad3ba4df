package session

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var alice = User{ID: "u1", Email: "alice@example.com", FamilyID: "f1"}

// failingStorage fails every Set.
type failingStorage struct {
	*MemoryStorage
}

func (failingStorage) Set(context.Context, string, []byte) error { return errors.New("disk full") }

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("cannot sign token: %v", err)
	}
	return token
}

func mustOpen(t *testing.T, storage Storage) *Store {
	t.Helper()
	s, err := Open(context.Background(), storage, nil)
	if err != nil {
		t.Fatalf("Open() unexpected error = %v", err)
	}
	return s
}

func TestStore_SetAuthPersists(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	s := mustOpen(t, storage)

	if err := s.SetAuth(ctx, alice, "t0k3n"); err != nil {
		t.Fatalf("SetAuth() unexpected error = %v", err)
	}
	sess := s.Snapshot()
	if !sess.IsAuthenticated || sess.Token != "t0k3n" || *sess.User != alice {
		t.Errorf("Snapshot() = %+v", sess)
	}

	raw, err := storage.Get(ctx, StorageName)
	if err != nil {
		t.Fatalf("record not persisted: %v", err)
	}
	persisted, err := decodeRecord(raw)
	if err != nil {
		t.Fatalf("persisted record is malformed: %v", err)
	}
	if persisted.Token != "t0k3n" || *persisted.User != alice {
		t.Errorf("persisted = %+v, want alice and t0k3n", persisted)
	}

	// a new process sees the same session.
	again := mustOpen(t, storage)
	if got := again.Snapshot(); !got.IsAuthenticated || got.Token != "t0k3n" || *got.User != alice {
		t.Errorf("rehydrated = %+v", got)
	}
}

func TestStore_LogoutClears(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	s := mustOpen(t, storage)
	if err := s.SetAuth(ctx, alice, "t0k3n"); err != nil {
		t.Fatalf("SetAuth() unexpected error = %v", err)
	}
	// leftovers of an older client.
	storage.Set(ctx, legacyTokenKey, []byte("old"))

	for i := 0; i < 2; i++ { // logout is idempotent
		if err := s.Logout(ctx); err != nil {
			t.Fatalf("Logout() #%d unexpected error = %v", i, err)
		}
		if sess := s.Snapshot(); sess.IsAuthenticated || sess.User != nil || sess.Token != "" {
			t.Errorf("Snapshot() after logout = %+v", sess)
		}
		for _, key := range []string{StorageName, legacyTokenKey, legacyUserKey} {
			if _, err := storage.Get(ctx, key); !errors.Is(err, ErrNotFound) {
				t.Errorf("key %q still present after logout: %v", key, err)
			}
		}
	}
}

func TestStore_SetAuthFailureKeepsState(t *testing.T) {
	ctx := context.Background()
	s := mustOpen(t, failingStorage{NewMemoryStorage()})

	if err := s.SetAuth(ctx, alice, "t0k3n"); err == nil {
		t.Fatal("SetAuth() expected an error")
	}
	if s.IsAuthenticated() || s.Token() != "" {
		t.Errorf("memory updated despite the failed write: %+v", s.Snapshot())
	}
	if err := s.SetAuth(ctx, alice, ""); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("SetAuth() with no token error = %v, want ErrInvalidSession", err)
	}
}

func TestStore_Hydrate(t *testing.T) {
	valid := func() []byte {
		raw, _ := encodeRecord(Session{User: &alice, Token: "t0k3n", IsAuthenticated: true})
		return raw
	}
	tests := []struct {
		name       string
		record     []byte // nil for absent
		wantAuth   bool
		wantRecord bool // record still present after hydration
	}{
		{name: "absent"},
		{name: "valid", record: valid(), wantAuth: true, wantRecord: true},
		{name: "anonymous record", record: []byte(`{"state":{"user":null,"token":null,"isAuthenticated":false},"version":0}`), wantRecord: true},
		{name: "not json", record: []byte(`{"state":`)},
		{name: "wrong type", record: []byte(`["token"]`)},
		{name: "authenticated without token", record: []byte(`{"state":{"user":{"id":"u1"},"token":null,"isAuthenticated":true}}`)},
		{name: "token but not authenticated", record: []byte(`{"state":{"user":{"id":"u1"},"token":"x","isAuthenticated":false}}`)},
		{name: "authenticated without user", record: []byte(`{"state":{"user":null,"token":"x","isAuthenticated":true}}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			storage := NewMemoryStorage()
			if tt.record != nil {
				storage.Set(ctx, StorageName, tt.record)
			}
			s := NewStore(storage, nil)
			if s.Hydrated() {
				t.Fatal("Hydrated() = true before Hydrate")
			}
			if err := s.Hydrate(ctx); err != nil {
				t.Fatalf("Hydrate() unexpected error = %v", err)
			}
			if !s.Hydrated() {
				t.Error("Hydrated() = false after Hydrate")
			}
			if got := s.IsAuthenticated(); got != tt.wantAuth {
				t.Errorf("IsAuthenticated() = %v, want %v", got, tt.wantAuth)
			}
			_, err := storage.Get(ctx, StorageName)
			if present := err == nil; present != tt.wantRecord {
				t.Errorf("record present = %v, want %v", present, tt.wantRecord)
			}
		})
	}
}

func TestStore_HydrateExpiredToken(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		token    string
		wantAuth bool
	}{
		{name: "expired", token: signedToken(t, now.Add(-time.Minute))},
		{name: "valid", token: signedToken(t, now.Add(time.Hour)), wantAuth: true},
		{name: "opaque", token: "not-a-jwt", wantAuth: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage := NewMemoryStorage()
			raw, _ := encodeRecord(Session{User: &alice, Token: tt.token, IsAuthenticated: true})
			storage.Set(ctx, StorageName, raw)

			s := NewStore(storage, nil)
			s.now = func() time.Time { return now }
			if err := s.Hydrate(ctx); err != nil {
				t.Fatalf("Hydrate() unexpected error = %v", err)
			}
			if got := s.IsAuthenticated(); got != tt.wantAuth {
				t.Errorf("IsAuthenticated() = %v, want %v", got, tt.wantAuth)
			}
		})
	}
}

func TestStore_MigratesLegacyKeys(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	rawUser, _ := json.Marshal(alice)
	storage.Set(ctx, legacyTokenKey, []byte("t0k3n"))
	storage.Set(ctx, legacyUserKey, rawUser)

	s := mustOpen(t, storage)
	if sess := s.Snapshot(); !sess.IsAuthenticated || sess.Token != "t0k3n" || *sess.User != alice {
		t.Errorf("Snapshot() = %+v", sess)
	}
	if _, err := storage.Get(ctx, StorageName); err != nil {
		t.Errorf("record not written by the migration: %v", err)
	}
	for _, key := range []string{legacyTokenKey, legacyUserKey} {
		if _, err := storage.Get(ctx, key); !errors.Is(err, ErrNotFound) {
			t.Errorf("legacy key %q not removed: %v", key, err)
		}
	}
}

func TestStore_DiscardsBrokenLegacyKeys(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	storage.Set(ctx, legacyTokenKey, []byte("t0k3n"))
	storage.Set(ctx, legacyUserKey, []byte("{not json"))

	s := mustOpen(t, storage)
	if s.IsAuthenticated() {
		t.Error("IsAuthenticated() = true for a malformed legacy user")
	}
	if _, err := storage.Get(ctx, legacyTokenKey); !errors.Is(err, ErrNotFound) {
		t.Errorf("legacy token not removed: %v", err)
	}
}

func TestStore_WaitHydrated(t *testing.T) {
	s := NewStore(NewMemoryStorage(), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := s.WaitHydrated(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("WaitHydrated() before Hydrate = %v, want DeadlineExceeded", err)
	}

	done := make(chan error)
	go func() { done <- s.WaitHydrated(context.Background()) }()
	s.Hydrate(context.Background())
	if err := <-done; err != nil {
		t.Errorf("WaitHydrated() unexpected error = %v", err)
	}
}

func TestStore_Subscribe(t *testing.T) {
	ctx := context.Background()
	s := mustOpen(t, NewMemoryStorage())

	var got []bool
	cancel := s.Subscribe(func(sess Session) { got = append(got, sess.IsAuthenticated) })
	s.SetAuth(ctx, alice, "t0k3n")
	s.Logout(ctx)
	s.Logout(ctx) // no transition
	cancel()
	s.SetAuth(ctx, alice, "t0k3n")

	if len(got) != 2 || !got[0] || got[1] {
		t.Errorf("notifications = %v, want [true false]", got)
	}
}

func TestStore_SnapshotIsACopy(t *testing.T) {
	s := mustOpen(t, NewMemoryStorage())
	s.SetAuth(context.Background(), alice, "t0k3n")

	snap := s.Snapshot()
	snap.User.Email = "mallory@example.com"
	if s.Snapshot().User.Email != alice.Email {
		t.Error("Snapshot() shares the user with the store")
	}
}

func TestStore_Expiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	s := mustOpen(t, NewMemoryStorage())
	s.SetAuth(context.Background(), alice, signedToken(t, exp))

	got, ok := s.Expiry()
	if !ok || !got.Equal(exp) {
		t.Errorf("Expiry() = %v, %v, want %v", got, ok, exp)
	}
}

// slowStorage blocks reads of the session record until release is closed.
type slowStorage struct {
	*MemoryStorage
	reading chan struct{}
	release chan struct{}
}

func (s *slowStorage) Get(ctx context.Context, key string) ([]byte, error) {
	if key == StorageName {
		close(s.reading)
		<-s.release
	}
	return s.MemoryStorage.Get(ctx, key)
}

func TestStore_TransitionDuringHydrate(t *testing.T) {
	bob := User{ID: "u2", Email: "bob@example.com", FamilyID: "f1"}
	tests := []struct {
		name      string
		change    func(ctx context.Context, s *Store) error
		wantToken string
	}{
		{"SetAuth", func(ctx context.Context, s *Store) error { return s.SetAuth(ctx, alice, "new-token") }, "new-token"},
		{"Logout", func(ctx context.Context, s *Store) error { return s.Logout(ctx) }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			storage := &slowStorage{MemoryStorage: NewMemoryStorage(), reading: make(chan struct{}), release: make(chan struct{})}
			old, err := encodeRecord(Session{User: &bob, Token: "old-token", IsAuthenticated: true})
			if err != nil {
				t.Fatal(err)
			}
			storage.MemoryStorage.Set(ctx, StorageName, old)

			s := NewStore(storage, nil)
			hydrated := make(chan error)
			go func() { hydrated <- s.Hydrate(ctx) }()
			<-storage.reading

			changed := make(chan error)
			go func() { changed <- tt.change(ctx, s) }()
			time.Sleep(10 * time.Millisecond)
			close(storage.release)

			if err := <-hydrated; err != nil {
				t.Fatalf("Hydrate() unexpected error = %v", err)
			}
			if err := <-changed; err != nil {
				t.Fatalf("%s() unexpected error = %v", tt.name, err)
			}

			if got := s.Token(); got != tt.wantToken {
				t.Errorf("Token() = %q, want %q", got, tt.wantToken)
			}
			raw, err := storage.MemoryStorage.Get(ctx, StorageName)
			if tt.wantToken == "" {
				if !errors.Is(err, ErrNotFound) {
					t.Errorf("persisted record = %s, %v, want none", raw, err)
				}
				return
			}
			persisted, err := decodeRecord(raw)
			if err != nil || persisted.Token != tt.wantToken {
				t.Errorf("persisted record = %+v, %v, want token %q", persisted, err, tt.wantToken)
			}
		})
	}
}

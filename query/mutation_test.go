package query

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestMutation_InvalidatesThenCallsOnSuccess(t *testing.T) {
	c := New()
	ctx := context.Background()
	var calls atomic.Int32

	if _, err := Fetch(ctx, c, accounts, counter(&calls)); err != nil {
		t.Fatalf("Fetch() unexpected error = %v", err)
	}

	var staleInCallback bool
	m := NewMutation(c, func(_ context.Context, name string) (string, error) {
		return "created " + name, nil
	}, MutationOptions[string]{
		Invalidates: []Key{accounts},
		OnSuccess: func(_ context.Context, r string) error {
			e, _ := Peek[int](c, accounts)
			staleInCallback = e.Stale
			return nil
		},
	})

	got, err := m.Mutate(ctx, "checking")
	if err != nil {
		t.Fatalf("Mutate() unexpected error = %v", err)
	}
	if got != "created checking" || m.Data() != got {
		t.Errorf("Mutate() = %q, Data() = %q", got, m.Data())
	}
	if !staleInCallback {
		t.Error("OnSuccess ran before the invalidation")
	}
	if m.IsPending() || m.Err() != nil {
		t.Errorf("IsPending() = %v, Err() = %v", m.IsPending(), m.Err())
	}
}

func TestMutation_Failure(t *testing.T) {
	c := New()
	ctx := context.Background()
	var calls atomic.Int32
	if _, err := Fetch(ctx, c, accounts, counter(&calls)); err != nil {
		t.Fatalf("Fetch() unexpected error = %v", err)
	}

	boom := errors.New("boom")
	var onError error
	succeeded := false
	_, err := Mutate(ctx, c, 1, func(context.Context, int) (int, error) { return 0, boom },
		MutationOptions[int]{
			Invalidates: []Key{accounts},
			OnSuccess:   func(context.Context, int) error { succeeded = true; return nil },
			OnError:     func(err error) { onError = err },
		})
	if !errors.Is(err, boom) || !errors.Is(onError, boom) {
		t.Errorf("Mutate() error = %v, OnError got %v, want boom", err, onError)
	}
	if succeeded {
		t.Error("OnSuccess called for a failed mutation")
	}
	if e, _ := Peek[int](c, accounts); e.Stale {
		t.Error("a failed mutation invalidated the cache")
	}
}

func TestMutation_OnSuccessError(t *testing.T) {
	c := New()
	bad := errors.New("cannot persist")
	m := NewMutation(c, func(context.Context, int) (int, error) { return 1, nil },
		MutationOptions[int]{OnSuccess: func(context.Context, int) error { return bad }})
	if _, err := m.Mutate(context.Background(), 0); !errors.Is(err, bad) {
		t.Errorf("Mutate() error = %v, want the OnSuccess error", err)
	}
	if !errors.Is(m.Err(), bad) {
		t.Errorf("Err() = %v", m.Err())
	}
}

func TestMutation_IsPending(t *testing.T) {
	c := New()
	entered := make(chan struct{})
	release := make(chan struct{})
	m := NewMutation(c, func(context.Context, int) (int, error) {
		close(entered)
		<-release
		return 1, nil
	}, MutationOptions[int]{})

	done := make(chan struct{})
	go func() {
		m.Mutate(context.Background(), 0)
		close(done)
	}()
	<-entered
	if !m.IsPending() {
		t.Error("IsPending() = false during the mutation")
	}
	close(release)
	<-done
	if m.IsPending() {
		t.Error("IsPending() = true after the mutation")
	}
}

package query

import (
	"context"
	"sync"
)

// MutationOptions configures a Mutation.
type MutationOptions[R any] struct {
	// Invalidates lists the keys marked stale after a successful mutation.
	Invalidates []Key
	// OnSuccess is called with the result, after the invalidations. An
	// error it returns fails the mutation.
	OnSuccess func(ctx context.Context, result R) error
	// OnError is called with the error of a failed mutation.
	OnError func(err error)
}

// Mutation is a remote write taking variables V and producing R.
//
// Mutations are never retried and apply no optimistic update.
type Mutation[V, R any] struct {
	c    *Client
	fn   func(context.Context, V) (R, error)
	opts MutationOptions[R]

	mu      sync.Mutex
	pending int
	err     error
	data    R
}

// NewMutation returns a Mutation calling fn.
func NewMutation[V, R any](c *Client, fn func(context.Context, V) (R, error), opts MutationOptions[R]) *Mutation[V, R] {
	return &Mutation[V, R]{c: c, fn: fn, opts: opts}
}

// Mutate runs the mutation with vars.
func (m *Mutation[V, R]) Mutate(ctx context.Context, vars V) (R, error) {
	m.mu.Lock()
	m.pending++
	m.mu.Unlock()

	r, err := m.fn(ctx, vars)
	if err == nil {
		m.c.Invalidate(m.opts.Invalidates...)
		if m.opts.OnSuccess != nil {
			err = m.opts.OnSuccess(ctx, r)
		}
	}
	if err != nil && m.opts.OnError != nil {
		m.opts.OnError(err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending--
	m.err = err
	if err == nil {
		m.data = r
	}
	return r, err
}

// IsPending reports whether a Mutate call is in progress.
func (m *Mutation[V, R]) IsPending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending > 0
}

// Err returns the error of the last Mutate call.
func (m *Mutation[V, R]) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Data returns the result of the last successful Mutate call.
func (m *Mutation[V, R]) Data() R {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data
}

// Mutate runs fn once as a Mutation.
func Mutate[V, R any](ctx context.Context, c *Client, vars V, fn func(context.Context, V) (R, error), opts MutationOptions[R]) (R, error) {
	return NewMutation(c, fn, opts).Mutate(ctx, vars)
}

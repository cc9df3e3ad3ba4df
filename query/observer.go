package query

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by the methods of a closed Observer.
var ErrClosed = errors.New("query: observer closed")

// Result is the state of a key as seen by an Observer.
type Result[T any] struct {
	Data      T
	HasData   bool
	IsLoading bool
	Status    Status
	Err       error
	Stale     bool // invalidated since the data was fetched
}

// Observer is a live consumer of a key. While it is open, invalidations of
// the key trigger a refetch. Once closed it no longer receives updates: data
// fetched after Close is never delivered to it.
type Observer[T any] struct {
	c       *Client
	key     Key
	fetch   fetchFunc
	changes chan struct{}

	mu     sync.Mutex
	closed bool
	frozen Result[T]
}

// Observe registers an Observer of key. When the cache holds no fresh data
// for key, a fetch starts in the background and the key is Loading until it
// completes.
func Observe[T any](c *Client, key Key, fn func(context.Context) (T, error)) *Observer[T] {
	o := &Observer[T]{
		c:       c,
		key:     key,
		fetch:   erase(fn),
		changes: make(chan struct{}, 1),
	}
	c.mu.Lock()
	e := c.lookup(key)
	e.fetch = o.fetch
	e.observers[o] = struct{}{}
	start := !e.fresh() && e.status != Loading
	if start {
		e.startLoading()
		e.notify()
	}
	c.mu.Unlock()

	if start {
		c.background(key, false)
	}
	return o
}

func (o *Observer[T]) changed() {
	select {
	case o.changes <- struct{}{}:
	default:
	}
}

// Changes receives a value after the key changed. Changes are coalesced.
func (o *Observer[T]) Changes() <-chan struct{} { return o.changes }

// Key returns the observed key.
func (o *Observer[T]) Key() Key { return o.key }

// Result returns the current state of the key.
func (o *Observer[T]) Result() Result[T] {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return o.frozen
	}
	return o.result()
}

func (o *Observer[T]) result() Result[T] {
	o.c.mu.Lock()
	defer o.c.mu.Unlock()
	e := snapshot[T](o.c.lookup(o.key))
	return Result[T]{
		Data:      e.Data,
		HasData:   e.HasData,
		IsLoading: e.Status == Loading,
		Status:    e.Status,
		Err:       e.Err,
		Stale:     e.Stale,
	}
}

// Wait blocks until the key is settled, successfully or not.
func (o *Observer[T]) Wait(ctx context.Context) (Result[T], error) {
	for {
		r := o.Result()
		if o.isClosed() {
			return r, ErrClosed
		}
		if r.Status == Success || r.Status == Error {
			return r, r.Err
		}
		select {
		case <-ctx.Done():
			return r, ctx.Err()
		case <-o.changes:
		}
	}
}

// Refetch fetches the key even if the cache is fresh.
func (o *Observer[T]) Refetch(ctx context.Context) (T, error) {
	var zero T
	if o.isClosed() {
		return zero, ErrClosed
	}
	v, err := o.c.do(ctx, o.key, o.fetch, true)
	if o.isClosed() {
		return zero, ErrClosed
	}
	data, _ := v.(T)
	return data, err
}

func (o *Observer[T]) isClosed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}

// Close unregisters the observer. Result keeps returning the state at the
// time of Close.
func (o *Observer[T]) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.frozen = o.result()
	o.closed = true
	o.mu.Unlock()

	o.c.mu.Lock()
	defer o.c.mu.Unlock()
	if e, ok := o.c.entries[o.key.id()]; ok {
		delete(e.observers, o)
	}
}

// Package query is a keyed cache of remote resources.
//
// A read goes through Fetch (one shot) or an Observer (a live consumer). A
// fresh entry is served from the cache, otherwise the fetch function runs;
// concurrent reads of the same key share a single call. Mutations mark keys
// stale with Invalidate, which refetches in the background the keys that
// have live observers.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"
)

// Client is the cache. Its zero value is not usable, use New.
type Client struct {
	logger         *slog.Logger
	now            func() time.Time
	discardOnError bool
	registerer     prometheus.Registerer
	metrics        *metrics

	group singleflight.Group
	wg    sync.WaitGroup // background fetches

	mu      sync.Mutex
	entries map[string]*entry
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger, slog.Default() otherwise.
func WithLogger(l *slog.Logger) Option { return func(c *Client) { c.logger = l } }

// WithRegisterer registers the cache metrics on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *Client) { c.registerer = reg }
}

// WithDiscardOnError drops the cached data of an entry whose fetch fails.
// By default the last good data is kept alongside the error.
func WithDiscardOnError() Option { return func(c *Client) { c.discardOnError = true } }

// WithClock sets the clock used to stamp fetches.
func WithClock(now func() time.Time) Option { return func(c *Client) { c.now = now } }

// New returns an empty cache.
func New(opts ...Option) *Client {
	c := &Client{
		logger:  slog.Default(),
		now:     time.Now,
		entries: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.metrics = newMetrics(c.registerer)
	return c
}

// lookup returns the entry for key, creating it. c.mu must be held.
func (c *Client) lookup(key Key) *entry {
	id := key.id()
	e, ok := c.entries[id]
	if !ok {
		e = &entry{key: key, observers: make(map[listener]struct{})}
		c.entries[id] = e
	}
	return e
}

// Fetch returns the data for key, calling fn unless the cache holds a fresh value.
//
// ctx bounds the wait of this caller only: the fetch itself runs to completion
// for the other callers sharing it.
func Fetch[T any](ctx context.Context, c *Client, key Key, fn func(context.Context) (T, error)) (T, error) {
	v, err := c.do(ctx, key, erase(fn), false)
	data, _ := v.(T)
	return data, err
}

// Peek returns a snapshot of the entry for key, without fetching.
func Peek[T any](c *Client, key Key) (Entry[T], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key.id()]
	if !ok {
		return Entry[T]{Key: key}, false
	}
	return snapshot[T](e), true
}

// do runs the fetch for key, joining the one in flight if any.
// A nil fn uses the last function registered for key.
func (c *Client) do(ctx context.Context, key Key, fn fetchFunc, force bool) (any, error) {
	c.mu.Lock()
	e := c.lookup(key)
	if fn != nil {
		e.fetch = fn
	}
	if !force && e.fresh() {
		data := e.data
		c.mu.Unlock()
		c.metrics.hits.WithLabelValues(key.String()).Inc()
		return data, nil
	}
	fn = e.fetch
	if fn == nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("no fetch function registered for %q", key)
	}
	version := e.version
	if e.status != Loading {
		e.startLoading()
		e.notify()
	}
	e.pending = version
	c.mu.Unlock()

	// the flight outlives the caller that started it.
	fctx := context.WithoutCancel(ctx)
	flight := fmt.Sprintf("%s#%d", key.id(), version)
	ch := c.group.DoChan(flight, func() (any, error) {
		if !force {
			// a flight of the same version may have just completed.
			if data, ok := c.freshData(key, version); ok {
				return data, nil
			}
		}
		c.metrics.fetches.WithLabelValues(key.String()).Inc()
		c.logger.Debug("fetching", "key", key.String())
		v, err := fn(fctx)
		c.settle(key, version, v, err)
		return v, err
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		return r.Val, r.Err
	}
}

func (c *Client) freshData(key Key, version uint64) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key.id()]
	if !ok || e.version != version || !e.fresh() {
		return nil, false
	}
	return e.data, true
}

// settle records the outcome of a fetch started at version.
func (c *Client) settle(key Key, version uint64, v any, err error) {
	if err != nil {
		c.metrics.errors.WithLabelValues(key.String()).Inc()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key.id()]
	if !ok {
		return
	}
	if e.version != version {
		c.logger.Debug("dropping superseded fetch", "key", key.String())
		if e.pending == version && e.status == Loading {
			e.status = e.settledStatus()
			e.notify()
		}
		return
	}

	if err != nil {
		c.logger.Debug("fetch failed", "key", key.String(), "error", err)
		e.status = Error
		e.err = err
		if c.discardOnError {
			e.data, e.hasData = nil, false
		}
	} else {
		e.status = Success
		e.data, e.hasData = v, true
		e.err = nil
		e.stale = false
		e.fetchedAt = c.now()
	}
	e.notify()
}

// background starts a fetch of key that no caller waits for.
func (c *Client) background(key Key, force bool) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if _, err := c.do(context.Background(), key, nil, force); err != nil {
			c.logger.Warn("background fetch failed", "key", key.String(), "error", err)
		}
	}()
}

// Invalidate marks the entries for keys stale. Keys with live observers are
// refetched in the background, once per key, and are Loading as soon as
// Invalidate returns; the others are refetched on their next read.
//
// A fetch in flight for one of the keys is superseded: its result is not
// stored.
func (c *Client) Invalidate(keys ...Key) {
	var refetch []Key
	c.mu.Lock()
	for _, key := range keys {
		c.metrics.invalidations.WithLabelValues(key.String()).Inc()
		e, ok := c.entries[key.id()]
		if !ok {
			continue
		}
		e.stale = true
		e.version++
		if len(e.observers) > 0 && e.fetch != nil {
			e.startLoading()
			refetch = append(refetch, key)
		}
		e.notify()
	}
	c.mu.Unlock()

	for _, key := range refetch {
		c.background(key, true)
	}
}

// Clear empties every entry and supersedes the fetches in flight. Observers
// stay registered and see Idle entries.
func (c *Client) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		e.version++
		e.data, e.hasData = nil, false
		e.err = nil
		e.stale = false
		e.status = Idle
		e.fetchedAt = time.Time{}
		e.notify()
	}
}

// Wait blocks until the background fetches started so far are done.
func (c *Client) Wait() { c.wg.Wait() }

package query

import (
	"context"
	"time"
)

// Status is the state of a cache entry.
type Status int

const (
	Idle Status = iota
	Loading
	Success
	Error
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Success:
		return "success"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Entry is a snapshot of a cache entry.
//
// After a failed fetch Status is Error and Err is set, Data still holds the
// last successfully fetched value when HasData is true.
type Entry[T any] struct {
	Key       Key
	Data      T
	HasData   bool
	Status    Status
	Err       error
	FetchedAt time.Time // time of the last successful fetch
	Stale     bool      // invalidated since the last successful fetch
}

type fetchFunc func(context.Context) (any, error)

func erase[T any](fn func(context.Context) (T, error)) fetchFunc {
	return func(ctx context.Context) (any, error) { return fn(ctx) }
}

// listener is notified of every change of an entry.
type listener interface {
	changed()
}

// entry is the mutable cache entry, guarded by Client.mu.
type entry struct {
	key       Key
	data      any
	hasData   bool
	status    Status
	err       error
	fetchedAt time.Time
	stale     bool

	// version is bumped by every invalidation: results of fetches started
	// at an older version are not written.
	version uint64
	// pending is the version of the most recent fetch started.
	pending uint64

	fetch     fetchFunc // most recently registered fetch function
	observers map[listener]struct{}
}

func (e *entry) fresh() bool { return e.status == Success && !e.stale }

// startLoading marks a fetch of the current version as started.
func (e *entry) startLoading() {
	e.status = Loading
	e.pending = e.version
}

// settledStatus is the status an entry returns to when its fetch is dropped.
func (e *entry) settledStatus() Status {
	switch {
	case e.err != nil:
		return Error
	case e.hasData:
		return Success
	default:
		return Idle
	}
}

func (e *entry) notify() {
	for l := range e.observers {
		l.changed()
	}
}

func snapshot[T any](e *entry) Entry[T] {
	data, _ := e.data.(T)
	return Entry[T]{
		Key:       e.key,
		Data:      data,
		HasData:   e.hasData,
		Status:    e.status,
		Err:       e.err,
		FetchedAt: e.fetchedAt,
		Stale:     e.stale,
	}
}

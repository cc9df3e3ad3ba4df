package query

import (
	"strconv"
	"strings"
)

// Key identifies a cache entry. It is a tuple of strings, ("accounts") or
// ("transactions", "account", "a1").
type Key struct {
	parts []string
}

// NewKey returns the Key made of parts.
func NewKey(parts ...string) Key {
	return Key{parts: append([]string(nil), parts...)}
}

// Parts returns a copy of the key tuple.
func (k Key) Parts() []string { return append([]string(nil), k.parts...) }

// String returns the human readable form of the key, used in logs and metrics.
func (k Key) String() string { return strings.Join(k.parts, "/") }

// id is the unambiguous form of the key used to index the cache.
func (k Key) id() string {
	quoted := make([]string, len(k.parts))
	for i, p := range k.parts {
		quoted[i] = strconv.Quote(p)
	}
	return strings.Join(quoted, ",")
}

// Equal reports whether k and o are the same tuple.
func (k Key) Equal(o Key) bool { return k.id() == o.id() }

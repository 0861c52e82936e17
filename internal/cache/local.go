package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

// Local is a Versioned cache kept in process, for single-instance deployments
// without Redis.
type Local struct {
	entries *LRUCache[[]byte]
	version atomic.Int64
}

var _ Versioned = (*Local)(nil)

func NewLocal(maxSize int, ttl time.Duration) *Local {
	l := &Local{entries: NewLRUCache[[]byte](maxSize, ttl)}
	l.version.Store(1)
	return l
}

// Entries exposes the underlying LRU for cleanup registration.
func (l *Local) Entries() *LRUCache[[]byte] { return l.entries }

func (l *Local) BuildKey(_ context.Context, parts ...string) (string, error) {
	return fmt.Sprintf("%s:%d", strings.Join(parts, ":"), l.version.Load()), nil
}

func (l *Local) FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error {
	if loader == nil {
		return errors.New("cache: loader required")
	}
	if raw, ok := l.entries.Get(key); ok {
		return json.Unmarshal(raw, dest)
	}
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	l.entries.Set(key, raw)
	return json.Unmarshal(raw, dest)
}

// Bump leaves old entries to age out through the LRU.
func (l *Local) Bump(_ context.Context) error {
	l.version.Add(1)
	return nil
}

// Package cache holds the analytics caches: an in-process LRU with TTL and a
// Redis-backed cache shared between the server and the worker. Both key
// entries under a global version so one Bump invalidates every summary.
package cache

import (
	"context"
	"log/slog"
	"time"
)

// Cache is a typed in-process cache.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Size() int
}

// Versioned is a JSON cache whose keys embed a global version.
type Versioned interface {
	// BuildKey joins parts and appends the current version.
	BuildKey(ctx context.Context, parts ...string) (string, error)
	// FetchJSON decodes the cached value at key into dest, calling loader
	// and storing its result on a miss.
	FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error
	// Bump moves every later BuildKey to a fresh version.
	Bump(ctx context.Context) error
}

// Cleaner is implemented by caches that can drop expired entries.
type Cleaner interface {
	CleanExpired() int
}

// Manager periodically cleans registered caches.
type Manager struct {
	caches      []Cleaner
	stopCleanup chan struct{}
	cleanupDone chan struct{}
}

func NewManager() *Manager {
	return &Manager{
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

func (m *Manager) Register(c Cleaner) {
	m.caches = append(m.caches, c)
}

// StartCleanup runs CleanExpired on every registered cache each interval
// until Stop.
func (m *Manager) StartCleanup(interval time.Duration) {
	go m.cleanup(interval)
}

func (m *Manager) cleanup(interval time.Duration) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cleaned := 0
			for _, c := range m.caches {
				cleaned += c.CleanExpired()
			}
			if cleaned > 0 {
				slog.Debug("Cache cleanup", "component", "cache", "removed", cleaned)
			}
		case <-m.stopCleanup:
			return
		}
	}
}

// Stop ends the cleanup goroutine. It must be called at most once, and only
// after StartCleanup.
func (m *Manager) Stop() {
	close(m.stopCleanup)
	<-m.cleanupDone
}

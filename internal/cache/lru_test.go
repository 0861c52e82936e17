package cache

import (
	"context"
	"testing"
	"time"
)

func TestLRUCacheEvictsOldest(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a should be cached")
	}
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("a = %d, %v", v, ok)
	}
	if c.Size() != 2 {
		t.Errorf("Size() = %d, want 2", c.Size())
	}
}

func TestLRUCacheExpiry(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewLRUCache[string](10, time.Minute)
	c.now = func() time.Time { return now }
	c.Set("k", "v")
	c.Set("j", "w")

	now = now.Add(2 * time.Minute)
	if removed := c.CleanExpired(); removed != 2 {
		t.Errorf("CleanExpired() = %d, want 2", removed)
	}
	if _, ok := c.Get("k"); ok {
		t.Error("k should have expired")
	}
	hits, misses := c.Stats()
	if hits != 0 || misses != 1 {
		t.Errorf("Stats() = %d/%d, want 0/1", hits, misses)
	}
}

func TestLocalBumpChangesKeys(t *testing.T) {
	ctx := context.Background()
	l := NewLocal(8, time.Minute)
	calls := 0
	load := func(context.Context) (any, error) {
		calls++
		return map[string]int{"n": calls}, nil
	}

	key, _ := l.BuildKey(ctx, "analytics", "payments", "month:2024-03")
	var got map[string]int
	for i := 0; i < 2; i++ {
		if err := l.FetchJSON(ctx, key, &got, load); err != nil {
			t.Fatal(err)
		}
	}
	if calls != 1 || got["n"] != 1 {
		t.Fatalf("loader calls = %d, got = %v", calls, got)
	}

	_ = l.Bump(ctx)
	key2, _ := l.BuildKey(ctx, "analytics", "payments", "month:2024-03")
	if key2 == key {
		t.Fatal("key unchanged after bump")
	}
	if err := l.FetchJSON(ctx, key2, &got, load); err != nil {
		t.Fatal(err)
	}
	if calls != 2 || got["n"] != 2 {
		t.Fatalf("loader calls = %d, got = %v", calls, got)
	}
}

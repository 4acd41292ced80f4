package prefetch

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/launix-de/farmem/cache"
)

func TestStaticHintDispatchesExactCount(t *testing.T) {
	pool := NewPool(4)
	defer pool.Close()

	var dispatched atomic.Int64
	mapFn := func(idx int64) *cache.Pointer {
		dispatched.Add(1)
		id := cache.ObjectID{DsID: 1, ObjID: string(rune('a' + idx))}
		return cache.NewPointer(id, arrayFetcher{})
	}

	s := NewStatic(mapFn, pool)
	s.Hint(100, 5, 4) // 100, 105, 110, 115

	deadline := time.Now().Add(time.Second)
	for dispatched.Load() < 4 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if got := dispatched.Load(); got != 4 {
		t.Fatalf("expected 4 mapFn calls, got %d", got)
	}
}

func TestStaticHintSkipsNilPointers(t *testing.T) {
	pool := NewPool(2)
	defer pool.Close()

	mapFn := func(idx int64) *cache.Pointer {
		return nil // simulate out-of-range index
	}
	s := NewStatic(mapFn, pool)
	// must not panic dispatching for nil pointers.
	s.Hint(0, 1, 3)
}

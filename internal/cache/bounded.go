package cache

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const DefaultBoundedSize = 512

// Bounded is a size-capped LRU with one TTL for every entry. Keys built from
// client input go here so that memory use stays flat.
type Bounded[V any] struct {
	lru *expirable.LRU[string, V]

	mu  sync.Mutex
	gen uint64
}

func NewBounded[V any](size int, ttl time.Duration) *Bounded[V] {
	if size <= 0 {
		size = DefaultBoundedSize
	}
	if ttl <= 0 {
		ttl = 5 * time.Second
	}

	return &Bounded[V]{lru: expirable.NewLRU[string, V](size, nil, ttl)}
}

func (b *Bounded[V]) Get(key string) (V, bool) {
	return b.lru.Get(key)
}

func (b *Bounded[V]) Set(key string, val V) {
	b.lru.Add(key, val)
}

// SetIfGeneration stores val only if no Clear happened since gen was read.
// It reports whether the value was stored.
func (b *Bounded[V]) SetIfGeneration(key string, val V, gen uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.gen != gen {
		return false
	}
	b.lru.Add(key, val)
	return true
}

// Generation changes on every Clear.
func (b *Bounded[V]) Generation() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.gen
}

func (b *Bounded[V]) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.gen++
	b.lru.Purge()
}

func (b *Bounded[V]) Len() int {
	return b.lru.Len()
}

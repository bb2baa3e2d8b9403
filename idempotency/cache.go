// Package idempotency implements the producer deduplication cache used
// by the broker's Produce path (spec §4.3): one ProducerState per
// ProducerKey, validated by a strictly-increasing sequence rule.
package idempotency

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"github.com/CefBoud/corelog/types"
)

// Cache is the interface the broker depends on, satisfied by both the
// unbounded map-backed implementation and BoundedCache.
type Cache interface {
	IsValidSequence(key types.ProducerKey, seq int64) bool
	UpdateSequence(key types.ProducerKey, seq, offset int64, now time.Time)
	GetLastSequence(key types.ProducerKey) int64
	GetLastOffset(key types.ProducerKey) int64
	RemoveProducer(producerID string)
	Size() int
	Clear()
}

// isValidSequence implements the validation rule shared by both
// implementations: no entry means only seq 0 is valid; otherwise seq
// must be strictly greater than last_sequence. Duplicates and older
// sequences are rejected; gaps (seq > last_sequence+1) are accepted.
func isValidSequence(state types.ProducerState, ok bool, seq int64) bool {
	if !ok {
		return seq == 0
	}
	return seq > state.LastSequence
}

// MapCache is the unbounded map-backed implementation: no TTL, no
// capacity cap. Suitable for the controller-less single-broker core or
// for tests.
type MapCache struct {
	mu      sync.Mutex
	entries map[types.ProducerKey]types.ProducerState
}

// NewMapCache returns an empty unbounded cache.
func NewMapCache() *MapCache {
	return &MapCache{entries: make(map[types.ProducerKey]types.ProducerState)}
}

func (c *MapCache) IsValidSequence(key types.ProducerKey, seq int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	state, ok := c.entries[key]
	return isValidSequence(state, ok, seq)
}

func (c *MapCache) UpdateSequence(key types.ProducerKey, seq, offset int64, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = types.ProducerState{LastSequence: seq, LastOffset: offset, LastSeen: now}
}

func (c *MapCache) GetLastSequence(key types.ProducerKey) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[key].LastSequence
}

func (c *MapCache) GetLastOffset(key types.ProducerKey) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[key].LastOffset
}

func (c *MapCache) RemoveProducer(producerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if k.ProducerID == producerID {
			delete(c.entries, k)
		}
	}
}

func (c *MapCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *MapCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[types.ProducerKey]types.ProducerState)
}

// BoundedCache adds a TTL and an LRU capacity cap on top of the same
// validation rule, backed by hashicorp/golang-lru so that Add/Get
// already maintain MRU order for us; TTL expiry is swept on each
// mutating access (spec §4.3).
type BoundedCache struct {
	mu  sync.Mutex
	lru *lru.Cache
	ttl time.Duration
	now func() time.Time
}

// NewBoundedCache returns a cache capped at capacity entries, evicting
// by TTL first and then by LRU. now defaults to time.Now when nil.
func NewBoundedCache(capacity int, ttl time.Duration, now func() time.Time) (*BoundedCache, error) {
	c, err := lru.New(capacity)
	if err != nil {
		return nil, err
	}
	if now == nil {
		now = time.Now
	}
	return &BoundedCache{lru: c, ttl: ttl, now: now}, nil
}

func (c *BoundedCache) evictExpiredLocked() {
	if c.ttl <= 0 {
		return
	}
	cutoff := c.now().Add(-c.ttl)
	for _, k := range c.lru.Keys() {
		v, ok := c.lru.Peek(k)
		if !ok {
			continue
		}
		state := v.(types.ProducerState)
		if state.LastSeen.Before(cutoff) {
			c.lru.Remove(k)
		}
	}
}

func (c *BoundedCache) IsValidSequence(key types.ProducerKey, seq int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evictExpiredLocked()
	v, ok := c.lru.Get(key)
	var state types.ProducerState
	if ok {
		state = v.(types.ProducerState)
	}
	return isValidSequence(state, ok, seq)
}

func (c *BoundedCache) UpdateSequence(key types.ProducerKey, seq, offset int64, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evictExpiredLocked()
	c.lru.Add(key, types.ProducerState{LastSequence: seq, LastOffset: offset, LastSeen: now})
}

func (c *BoundedCache) GetLastSequence(key types.ProducerKey) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.lru.Peek(key)
	if !ok {
		return 0
	}
	return v.(types.ProducerState).LastSequence
}

func (c *BoundedCache) GetLastOffset(key types.ProducerKey) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.lru.Peek(key)
	if !ok {
		return 0
	}
	return v.(types.ProducerState).LastOffset
}

func (c *BoundedCache) RemoveProducer(producerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range c.lru.Keys() {
		pk := k.(types.ProducerKey)
		if pk.ProducerID == producerID {
			c.lru.Remove(k)
		}
	}
}

func (c *BoundedCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

func (c *BoundedCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
}

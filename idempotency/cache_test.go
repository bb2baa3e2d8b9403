package idempotency

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/CefBoud/corelog/types"
)

func key(id string) types.ProducerKey {
	return types.ProducerKey{ProducerID: id, Topic: "orders", Partition: 0}
}

func TestMapCacheValidationRule(t *testing.T) {
	c := NewMapCache()
	k := key("p1")

	require.True(t, c.IsValidSequence(k, 0))
	require.False(t, c.IsValidSequence(k, 1)) // no entry yet: only 0 is valid

	c.UpdateSequence(k, 0, 100, time.Now())
	require.False(t, c.IsValidSequence(k, 0)) // duplicate
	require.True(t, c.IsValidSequence(k, 1))
	require.True(t, c.IsValidSequence(k, 5)) // gaps are accepted: validation only checks > last

	c.UpdateSequence(k, 1, 101, time.Now())
	require.Equal(t, int64(1), c.GetLastSequence(k))
	require.Equal(t, int64(101), c.GetLastOffset(k))
}

func TestMapCacheRemoveProducer(t *testing.T) {
	c := NewMapCache()
	c.UpdateSequence(key("p1"), 0, 1, time.Now())
	c.UpdateSequence(key("p2"), 0, 2, time.Now())
	require.Equal(t, 2, c.Size())

	c.RemoveProducer("p1")
	require.Equal(t, 1, c.Size())
	require.True(t, c.IsValidSequence(key("p1"), 0))
}

func TestBoundedCacheLRUEviction(t *testing.T) {
	c, err := NewBoundedCache(2, 0, nil)
	require.NoError(t, err)

	c.UpdateSequence(key("a"), 0, 10, time.Now())
	c.UpdateSequence(key("b"), 0, 20, time.Now())
	c.UpdateSequence(key("c"), 0, 30, time.Now()) // evicts "a"

	require.Equal(t, 2, c.Size())
	require.True(t, c.IsValidSequence(key("a"), 0)) // forgotten, back to "no entry"
	require.False(t, c.IsValidSequence(key("b"), 0))
}

func TestBoundedCacheTTLExpiry(t *testing.T) {
	now := time.Now()
	clock := now
	c, err := NewBoundedCache(10, time.Minute, func() time.Time { return clock })
	require.NoError(t, err)

	c.UpdateSequence(key("a"), 0, 10, clock)
	require.Equal(t, 1, c.Size())

	clock = now.Add(2 * time.Minute)
	require.True(t, c.IsValidSequence(key("a"), 0)) // expired: treated as absent again
	require.Equal(t, 0, c.Size())
}

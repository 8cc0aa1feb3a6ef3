package lru

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrdered_EvictsOldestPair(t *testing.T) {
	var seen []int
	var c *OrderedCache[string, int]
	c, err := NewOrdered[string, int](2, WithOnEvict(func(_, _ any) {
		// the callback runs once the new pair is in place
		seen = append(seen, c.items.Len())
	}))
	require.NoError(t, err)

	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("c", 3)

	assert.Equal(t, []int{2}, seen)
	assert.Equal(t, 2, c.items.Len())
	assert.Equal(t, "b", c.items.Oldest().Key)
	assert.Equal(t, "c", c.items.Newest().Key)
}

func TestOrdered_GetReinsertsAtNewestEnd(t *testing.T) {
	c, err := NewOrdered[string, int](3)
	require.NoError(t, err)

	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("c", 3)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	assert.Equal(t, "b", c.items.Oldest().Key)
	assert.Equal(t, "a", c.items.Newest().Key)
}

func TestOrdered_ExpiredGetDeletes(t *testing.T) {
	clock := newFakeClock()
	c, err := NewOrdered[string, int](3, WithClock(clock.Now))
	require.NoError(t, err)

	c.PutWithTTL("a", 1, time.Second)
	clock.Advance(2 * time.Second)

	_, ok := c.Get("a")
	assert.False(t, ok)
	_, present := c.items.Get("a")
	assert.False(t, present)
}

func TestOrdered_ClearThenReuse(t *testing.T) {
	c, err := NewOrdered[string, int](2, WithThreadSafe(true))
	require.NoError(t, err)

	c.Put("a", 1)
	c.Clear()
	c.Put("b", 2)
	c.Put("c", 3)
	c.Put("d", 4)

	assert.Equal(t, []string{"d", "c"}, c.Keys())
	assert.Equal(t, 2, c.Cap())
}

package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheLayer(t *testing.T) {
	clock := time.Unix(100, 0)
	now := func() time.Time { return clock }

	var evicted []string
	c, err := newCacheLayer(2, now, func(k string, v int) { evicted = append(evicted, k) })
	require.NoError(t, err)

	c.add("a", 1)
	c.add("b", 2)
	clock = clock.Add(time.Second)

	v, ok := c.get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)
	used, _ := c.lastUsed("a")
	assert.Equal(t, clock, used)

	// b is now least recently used
	c.add("c", 3)
	assert.Equal(t, []string{"b"}, evicted)
	_, ok = c.peek("b")
	assert.False(t, ok)

	_, ok = c.get("b")
	assert.False(t, ok)

	var keys []string
	c.each(func(k string, _ int) { keys = append(keys, k) })
	assert.Equal(t, []string{"a", "c"}, keys)

	stats := c.statistics()
	assert.Equal(t, LayerStatistics{Size: 2, Capacity: 2, Hits: 1, Misses: 1, Evictions: 1}, stats)
}

func TestCacheLayer_RemoveAndPurgeAreSilent(t *testing.T) {
	var evicted int
	c, err := newCacheLayer(4, time.Now, func(string, int) { evicted++ })
	require.NoError(t, err)

	c.add("a", 1)
	c.add("b", 2)
	c.add("c", 3)
	assert.True(t, c.remove("a"))
	assert.False(t, c.remove("a"))
	assert.Zero(t, evicted)

	assert.Equal(t, 1, c.resize(1))
	assert.Equal(t, 1, evicted)
	assert.Equal(t, 1, c.len())

	c.purge()
	assert.Equal(t, 1, evicted)
	assert.Zero(t, c.len())
	assert.Equal(t, uint64(1), c.statistics().Evictions)
}

func TestCacheLayer_InvalidSize(t *testing.T) {
	_, err := newCacheLayer[string, int](0, time.Now, nil)
	assert.Error(t, err)
}

func TestLayerStatistics_HitRatio(t *testing.T) {
	assert.Zero(t, LayerStatistics{}.HitRatio())
	assert.InDelta(t, 0.75, LayerStatistics{Hits: 3, Misses: 1}.HitRatio(), 1e-9)
}

func TestCacheLayer_TouchRefreshesWithoutCounting(t *testing.T) {
	clock := time.Unix(100, 0)
	var evicted []string
	c, err := newCacheLayer(2, func() time.Time { return clock }, func(k string, _ int) { evicted = append(evicted, k) })
	require.NoError(t, err)

	c.add("a", 1)
	c.add("b", 2)
	clock = clock.Add(time.Second)
	assert.True(t, c.touch("a"))
	assert.False(t, c.touch("missing"))

	used, _ := c.lastUsed("a")
	assert.Equal(t, clock, used)

	c.add("c", 3)
	assert.Equal(t, []string{"b"}, evicted)
	stats := c.statistics()
	assert.Zero(t, stats.Hits)
	assert.Zero(t, stats.Misses)
}

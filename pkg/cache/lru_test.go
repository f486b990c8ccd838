package cache_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/courier/pkg/cache"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestLRU_Basic(t *testing.T) {
	t.Parallel()

	c := cache.NewLRU[string, int](3)
	c.Put("a", 1)
	c.Put("b", 2)

	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = c.Get("missing")
	assert.False(t, ok)

	c.Put("a", 10)
	v, _ = c.Get("a")
	assert.Equal(t, 10, v)
	assert.Equal(t, 2, c.Len())

	assert.True(t, c.Remove("a"))
	assert.False(t, c.Remove("a"))
	assert.Equal(t, 1, c.Len())
}

func TestLRU_Eviction(t *testing.T) {
	t.Parallel()

	t.Run("least recently used goes first", func(t *testing.T) {
		t.Parallel()
		c := cache.NewLRU[string, int](2)
		c.Put("a", 1)
		c.Put("b", 2)
		c.Put("c", 3)

		_, ok := c.Get("a")
		assert.False(t, ok)
		assert.Equal(t, 2, c.Len())
	})

	t.Run("get refreshes recency", func(t *testing.T) {
		t.Parallel()
		c := cache.NewLRU[string, int](2)
		c.Put("a", 1)
		c.Put("b", 2)
		c.Get("a")
		c.Put("c", 3)

		_, ok := c.Get("a")
		assert.True(t, ok)
		_, ok = c.Get("b")
		assert.False(t, ok)
	})

	t.Run("put refreshes recency", func(t *testing.T) {
		t.Parallel()
		c := cache.NewLRU[string, int](2)
		c.Put("a", 1)
		c.Put("b", 2)
		c.Put("a", 11)
		c.Put("c", 3)

		_, ok := c.Get("b")
		assert.False(t, ok)
		v, ok := c.Get("a")
		assert.True(t, ok)
		assert.Equal(t, 11, v)
	})
}

func TestLRU_TTL(t *testing.T) {
	t.Parallel()

	clk := &clock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	c := cache.NewLRU[string, string](10, cache.WithTTL(time.Minute), cache.WithClock(clk.Now))

	c.Put("u1", "alice@example.com")
	clk.Advance(59 * time.Second)
	_, ok := c.Get("u1")
	assert.True(t, ok)

	clk.Advance(time.Second)
	_, ok = c.Get("u1")
	assert.False(t, ok, "entry expires exactly at its TTL")
	assert.Equal(t, 0, c.Len(), "expired entries are dropped on access")

	c.Put("u1", "alice@example.com")
	clk.Advance(30 * time.Second)
	c.Put("u1", "alice@new.example.com")
	clk.Advance(45 * time.Second)
	v, ok := c.Get("u1")
	assert.True(t, ok, "put restarts the TTL")
	assert.Equal(t, "alice@new.example.com", v)
}

func TestLRU_NoTTL(t *testing.T) {
	t.Parallel()

	clk := &clock{now: time.Now()}
	c := cache.NewLRU[string, int](1, cache.WithTTL(0), cache.WithClock(clk.Now))
	c.Put("a", 1)
	clk.Advance(24 * time.Hour)

	_, ok := c.Get("a")
	assert.True(t, ok)
}

func TestLRU_InvalidCapacity(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { cache.NewLRU[string, int](0) })
	assert.Panics(t, func() { cache.NewLRU[string, int](-1) })
}

func TestLRU_Concurrent(t *testing.T) {
	t.Parallel()

	c := cache.NewLRU[string, int](50, cache.WithTTL(time.Hour))
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := range 100 {
				key := fmt.Sprintf("k%d", (i*100+j)%80)
				c.Put(key, j)
				c.Get(key)
				if j%10 == 0 {
					c.Remove(key)
				}
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 50)
}

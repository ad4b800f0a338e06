package geocode

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type manualClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	c.mu.Unlock()
	return ctx.Err()
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestCache(ttl time.Duration, maxItems int) (*Cache, *manualClock) {
	clock := &manualClock{now: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)}
	return NewCache(ttl, maxItems, WithCacheClock(clock)), clock
}

func TestCacheGetSet(t *testing.T) {
	c, clock := newTestCache(time.Hour, 10)

	c.Set("paris", Result{Display: "Paris"})
	got, ok := c.Get("paris")
	assert.True(t, ok)
	assert.Equal(t, "Paris", got.Display)

	clock.Advance(time.Hour)
	_, ok = c.Get("paris")
	assert.False(t, ok, "entry must expire after the ttl")
	assert.Equal(t, 0, c.Len())
}

func TestCacheEvictsInsertionOrder(t *testing.T) {
	c, _ := newTestCache(time.Hour, 3)

	for i := 0; i < 5; i++ {
		c.Set(fmt.Sprintf("k%d", i), Result{Display: fmt.Sprint(i)})
	}

	assert.Equal(t, 3, c.Len())
	for _, gone := range []string{"k0", "k1"} {
		_, ok := c.Get(gone)
		assert.False(t, ok, gone)
	}
	for _, kept := range []string{"k2", "k3", "k4"} {
		_, ok := c.Get(kept)
		assert.True(t, ok, kept)
	}
}

func TestCacheEvictsExpiredBeforeOldest(t *testing.T) {
	c, clock := newTestCache(time.Hour, 2)

	c.Set("old", Result{})
	clock.Advance(30 * time.Minute)
	c.Set("young", Result{})
	clock.Advance(45 * time.Minute) // "old" is now expired, "young" is not
	c.Set("fresh", Result{})

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("young")
	assert.True(t, ok)
	_, ok = c.Get("fresh")
	assert.True(t, ok)
}

func TestCacheRewriteRefreshesPosition(t *testing.T) {
	c, _ := newTestCache(time.Hour, 2)

	c.Set("a", Result{})
	c.Set("b", Result{})
	c.Set("a", Result{Display: "again"})
	c.Set("c", Result{})

	_, ok := c.Get("b")
	assert.False(t, ok)
	got, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "again", got.Display)
}

func TestCacheConcurrentAccess(t *testing.T) {
	c := NewCache(time.Hour, 50)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("k%d", (i*j)%80)
				c.Set(key, Result{})
				c.Get(key)
			}
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 50)
}

package ratelimit_test

import (
	"sync"
	"testing"
	"time"

	"github.com/fantom2513/vibe-ds-bot/internal/engine/dispatch/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testGuildID = uint64(1000)

// fakeClock is a manually advanced clock source safe for concurrent reads.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

func TestAllowedWithinBudget(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	limiter := ratelimit.NewWithClock(time.Minute, clock.Now)

	assert.True(t, limiter.Allowed(testGuildID, 2))

	limiter.Record(testGuildID)
	assert.True(t, limiter.Allowed(testGuildID, 2))

	limiter.Record(testGuildID)
	assert.False(t, limiter.Allowed(testGuildID, 2))
}

func TestBudgetReplenishesAfterWindow(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	limiter := ratelimit.NewWithClock(time.Minute, clock.Now)

	for range 3 {
		limiter.Record(testGuildID)
	}

	require.False(t, limiter.Allowed(testGuildID, 2))

	clock.Advance(61 * time.Second)
	assert.True(t, limiter.Allowed(testGuildID, 2))
}

func TestZeroLimitMeansUnlimited(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	limiter := ratelimit.NewWithClock(time.Minute, clock.Now)

	for range 100 {
		limiter.Record(testGuildID)
	}

	assert.True(t, limiter.Allowed(testGuildID, 0))
	assert.True(t, limiter.Allowed(testGuildID, -1))
}

func TestGuildsAreIndependent(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	limiter := ratelimit.NewWithClock(time.Minute, clock.Now)

	limiter.Record(testGuildID)
	limiter.Record(testGuildID)

	assert.False(t, limiter.Allowed(testGuildID, 2))
	assert.True(t, limiter.Allowed(testGuildID+1, 2))
}

func TestConcurrentRecordAndAllowed(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	limiter := ratelimit.NewWithClock(time.Minute, clock.Now)

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for range 50 {
				limiter.Record(testGuildID)
				limiter.Allowed(testGuildID, 10)
			}
		}()
	}

	wg.Wait()

	// All 800 records land inside one window.
	assert.False(t, limiter.Allowed(testGuildID, 700))
}

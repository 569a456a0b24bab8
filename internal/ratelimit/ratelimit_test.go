package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestLimiter(max int, window time.Duration, at *time.Time) *Limiter {
	l := New(max, window)
	l.now = func() time.Time { return *at }
	return l
}

func TestCheckAllowsUpToMaxThenRejects(t *testing.T) {
	now := time.Now()
	limiter := newTestLimiter(3, time.Minute, &now)

	for i := 0; i < 3; i++ {
		res := limiter.Check("k")
		require.True(t, res.Allowed, "request %d", i+1)
		require.Equal(t, 2-i, res.Remaining)
	}
	res := limiter.Check("k")
	require.False(t, res.Allowed)
	require.Equal(t, 0, res.Remaining)
	require.Equal(t, now.Add(time.Minute), res.ResetAt)
}

func TestCheckOpensNewWindowAfterExpiry(t *testing.T) {
	now := time.Now()
	limiter := newTestLimiter(1, time.Minute, &now)

	require.True(t, limiter.Check("k").Allowed)
	require.False(t, limiter.Check("k").Allowed)

	now = now.Add(time.Minute)
	res := limiter.Check("k")
	require.True(t, res.Allowed)
	require.Equal(t, now.Add(time.Minute), res.ResetAt)
}

func TestCheckKeysAreIndependent(t *testing.T) {
	now := time.Now()
	limiter := newTestLimiter(1, time.Minute, &now)

	require.True(t, limiter.Check("a").Allowed)
	require.True(t, limiter.Check("b").Allowed)
	require.False(t, limiter.Check("a").Allowed)
}

func TestSweepRemovesExpiredWindows(t *testing.T) {
	now := time.Now()
	limiter := newTestLimiter(5, time.Minute, &now)

	limiter.Check("old")
	now = now.Add(2 * time.Minute)
	limiter.Check("fresh")

	limiter.mu.Lock()
	_, hasOld := limiter.windows["old"]
	_, hasFresh := limiter.windows["fresh"]
	limiter.mu.Unlock()
	require.False(t, hasOld)
	require.True(t, hasFresh)
}

func TestCheckConcurrentTotalNeverExceedsMax(t *testing.T) {
	limiter := New(50, time.Minute)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.Check("shared").Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 50, allowed)
}

func TestZeroConfigAlwaysAllows(t *testing.T) {
	limiter := New(0, 0)
	for i := 0; i < 10; i++ {
		require.True(t, limiter.Check("k").Allowed)
	}
}

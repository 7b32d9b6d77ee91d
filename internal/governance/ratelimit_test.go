package governance

import (
	"testing"
	"time"

	"menu-qa/internal/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_ExceedingCapFails(t *testing.T) {
	clk := newManualClock()
	rl := NewRateLimiter(time.Minute, 3, clk.Now)

	for i := range 3 {
		assert.Nil(t, rl.Check("ip:1"), "call %d", i)
		clk.Advance(time.Second)
	}

	rerr := rl.Check("ip:1")
	require.NotNil(t, rerr)
	assert.Equal(t, shared.CodeRateLimit, rerr.Code)
	assert.Equal(t, 429, rerr.StatusCode)
	assert.GreaterOrEqual(t, rerr.RetryAfter, 1)
	// window started 3s ago, 57s remain
	assert.Equal(t, 57, rerr.RetryAfter)
}

func TestRateLimiter_RetryAfterRoundsUpWithFloorOfOne(t *testing.T) {
	clk := newManualClock()
	rl := NewRateLimiter(time.Minute, 1, clk.Now)

	require.Nil(t, rl.Check("k"))
	clk.Advance(59*time.Second + 900*time.Millisecond)
	rerr := rl.Check("k")
	require.NotNil(t, rerr)
	assert.Equal(t, 1, rerr.RetryAfter)

	clk.Advance(100 * time.Millisecond)
	rerr = rl.Check("k")
	require.NotNil(t, rerr, "window only resets once elapsed time exceeds it")
	assert.Equal(t, 1, rerr.RetryAfter)
}

func TestRateLimiter_WindowResets(t *testing.T) {
	clk := newManualClock()
	rl := NewRateLimiter(time.Minute, 2, clk.Now)

	require.Nil(t, rl.Check("k"))
	require.Nil(t, rl.Check("k"))
	require.NotNil(t, rl.Check("k"))

	clk.Advance(time.Minute + time.Millisecond)
	assert.Nil(t, rl.Check("k"))
}

func TestRateLimiter_OverLimitCallsStillCount(t *testing.T) {
	clk := newManualClock()
	rl := NewRateLimiter(time.Minute, 1, clk.Now)

	require.Nil(t, rl.Check("k"))
	for range 5 {
		require.NotNil(t, rl.Check("k"))
	}
	assert.Equal(t, 6, rl.clients["k"].count)
}

func TestRateLimiter_KeysAreIndependent(t *testing.T) {
	clk := newManualClock()
	rl := NewRateLimiter(time.Minute, 1, clk.Now)

	require.Nil(t, rl.Check("a"))
	require.NotNil(t, rl.Check("a"))
	assert.Nil(t, rl.Check("b"))
}

func TestRateLimiter_Sweep(t *testing.T) {
	clk := newManualClock()
	rl := NewRateLimiter(time.Minute, 5, clk.Now)

	rl.Check("old")
	clk.Advance(50 * time.Second)
	rl.Check("new")
	clk.Advance(11 * time.Second)

	assert.Equal(t, 1, rl.Sweep())
	assert.Equal(t, 1, rl.Len())
}

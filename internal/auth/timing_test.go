package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimingDelay_PadsFailures(t *testing.T) {
	td := NewTimingDelay(TimingConfig{BaseDelayMs: 50, RandomDelayMs: 20})

	start := time.Now()
	td.WaitFrom(start, false)
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
	assert.Less(t, elapsed, 200*time.Millisecond)
}

func TestTimingDelay_NoDelayOnSuccess(t *testing.T) {
	td := NewTimingDelay(TimingConfig{BaseDelayMs: 500, RandomDelayMs: 0})

	start := time.Now()
	td.WaitFrom(start, true)

	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestTimingDelay_AccountsForElapsedWork(t *testing.T) {
	td := NewTimingDelay(TimingConfig{BaseDelayMs: 40, RandomDelayMs: 0})

	// Work that already took longer than the target delay adds no extra wait.
	start := time.Now().Add(-100 * time.Millisecond)
	before := time.Now()
	td.WaitFrom(start, false)

	assert.Less(t, time.Since(before), 30*time.Millisecond)
}

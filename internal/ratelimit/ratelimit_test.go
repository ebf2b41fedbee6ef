package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedRateLimiter_Allow(t *testing.T) {
	tests := []struct {
		name     string
		rps      float64
		burst    int
		calls    int
		wantPass int
	}{
		{name: "burst allows initial requests", rps: 1, burst: 3, calls: 3, wantPass: 3},
		{name: "exceeding burst blocks", rps: 1, burst: 2, calls: 5, wantPass: 2},
		{name: "disabled", rps: 0, burst: 1, calls: 50, wantPass: 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			krl := New(tt.rps, tt.burst)
			passed := 0
			for range tt.calls {
				if krl.Allow("ideas") {
					passed++
				}
			}
			assert.Equal(t, tt.wantPass, passed)
		})
	}
}

func TestKeyedRateLimiter_KeysAreIndependent(t *testing.T) {
	krl := New(1, 1)

	assert.True(t, krl.Allow("ideas"))
	assert.False(t, krl.Allow("ideas"))
	assert.True(t, krl.Allow("comments"))
	assert.Equal(t, 2, krl.Len())

	krl.Forget("ideas")
	assert.True(t, krl.Allow("ideas"))
}

func TestKeyedRateLimiter_Wait(t *testing.T) {
	krl := New(1000, 1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	start := time.Now()
	for range 5 {
		require.NoError(t, krl.Wait(ctx, "ideas"))
	}
	assert.Less(t, time.Since(start), time.Second)
}

func TestKeyedRateLimiter_WaitCanceled(t *testing.T) {
	krl := New(0.001, 1)
	require.True(t, krl.Allow("ideas"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, krl.Wait(ctx, "ideas"))
}

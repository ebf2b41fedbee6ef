// Package ratelimit provides a keyed token-bucket limiter. The hosted
// backend client waits on it per table; the embedded backend uses Allow to
// throttle sign-in attempts per account.
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// KeyedRateLimiter keeps one independent limiter per key.
type KeyedRateLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// New creates a limiter allowing rps requests per second per key with the
// given burst. rps <= 0 disables limiting.
func New(rps float64, burst int) *KeyedRateLimiter {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &KeyedRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
		burst:    burst,
	}
}

// Allow reports whether a request for key may proceed now.
func (krl *KeyedRateLimiter) Allow(key string) bool {
	return krl.limiter(key).Allow()
}

// Wait blocks until a request for key may proceed or ctx is done.
func (krl *KeyedRateLimiter) Wait(ctx context.Context, key string) error {
	return krl.limiter(key).Wait(ctx)
}

// Forget drops the limiter for key, e.g. after a successful sign-in.
func (krl *KeyedRateLimiter) Forget(key string) {
	krl.mu.Lock()
	delete(krl.limiters, key)
	krl.mu.Unlock()
}

// Len is the number of tracked keys.
func (krl *KeyedRateLimiter) Len() int {
	krl.mu.RLock()
	defer krl.mu.RUnlock()
	return len(krl.limiters)
}

func (krl *KeyedRateLimiter) limiter(key string) *rate.Limiter {
	krl.mu.RLock()
	l, ok := krl.limiters[key]
	krl.mu.RUnlock()
	if ok {
		return l
	}

	krl.mu.Lock()
	defer krl.mu.Unlock()
	if l, ok = krl.limiters[key]; ok {
		return l
	}
	l = rate.NewLimiter(krl.limit, krl.burst)
	krl.limiters[key] = l
	return l
}

package ratelimit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"marketboard/internal/provider"
)

// TokenBucket is a token bucket limiter.
// - rate: tokens per second
// - capacity: maximum tokens the bucket can hold (burst)
type TokenBucket struct {
	rate     float64
	capacity float64

	mu     sync.Mutex
	tokens float64
	last   time.Time
}

// NewTokenBucket builds a bucket that starts full.
func NewTokenBucket(tokensPerSecond float64, burst int) *TokenBucket {
	if tokensPerSecond <= 0 {
		tokensPerSecond = 0.0000001
	}
	if burst <= 0 {
		burst = 1
	}
	return &TokenBucket{
		rate:     tokensPerSecond,
		capacity: float64(burst),
		tokens:   float64(burst),
		last:     time.Now(),
	}
}

// PerMinute builds a bucket allowing rpm calls per minute with the given burst.
func PerMinute(rpm, burst int) *TokenBucket {
	return NewTokenBucket(float64(rpm)/60.0, burst)
}

// Wait blocks until one token is available or ctx is done.
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		tb.mu.Lock()
		now := time.Now()
		elapsed := now.Sub(tb.last).Seconds()
		if elapsed > 0 {
			tb.tokens += elapsed * tb.rate
			if tb.tokens > tb.capacity {
				tb.tokens = tb.capacity
			}
			tb.last = now
		}
		if tb.tokens >= 1 {
			tb.tokens--
			tb.mu.Unlock()
			return nil
		}
		deficit := 1 - tb.tokens
		tb.mu.Unlock()

		waitDur := time.Duration(deficit / tb.rate * float64(time.Second))
		if waitDur <= 0 {
			waitDur = time.Millisecond
		}
		timer := time.NewTimer(waitDur)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// TokenBucketFetcher gates a Fetcher with a TokenBucket.
type TokenBucketFetcher struct {
	F  provider.Fetcher
	TB *TokenBucket
}

func (t *TokenBucketFetcher) Fetch(ctx context.Context, endpoint provider.Endpoint, params map[string]string) (json.RawMessage, error) {
	if t.TB != nil {
		if err := t.TB.Wait(ctx); err != nil {
			return nil, err
		}
	}
	return t.F.Fetch(ctx, endpoint, params)
}

// Wrap applies the configured gate to f. A positive rpm selects the token
// bucket, otherwise a positive interval selects MinInterval; with neither, f
// is returned unchanged.
func Wrap(f provider.Fetcher, rpm, burst int, interval time.Duration) provider.Fetcher {
	switch {
	case rpm > 0:
		return &TokenBucketFetcher{F: f, TB: PerMinute(rpm, burst)}
	case interval > 0:
		return &MinInterval{F: f, Interval: interval}
	default:
		return f
	}
}

// Package ratelimit provides per-key token bucket rate limiting for the
// MCP tools and the dashboard's assistant endpoint.
package ratelimit

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrLimited is wrapped by CheckLimit when a request is rejected.
var ErrLimited = errors.New("rate limit exceeded")

// Limiter implements a per-key token bucket rate limiter.
// Each key gets its own bucket with the configured rate and burst.
// It is safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    float64          // tokens per second
	burst   int              // max burst size (also initial token count)
	nowFunc func() time.Time // injectable clock for testing
}

type bucket struct {
	tokens    float64
	lastCheck time.Time
}

// NewLimiter creates a rate limiter with the given rate (tokens/sec) and burst size.
// The burst size also serves as the initial number of tokens available.
func NewLimiter(rate float64, burst int) *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
		rate:    rate,
		burst:   burst,
		nowFunc: time.Now,
	}
}

// PerMinute creates a limiter allowing n requests per minute with the given burst.
// A non-positive n disables limiting.
func PerMinute(n float64, burst int) *Limiter {
	if n <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return NewLimiter(n/60.0, burst)
}

// Allow reports whether a request for key may proceed, consuming a token if so.
// A nil Limiter allows everything.
func (l *Limiter) Allow(key string) bool {
	if l == nil {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{
			tokens:    float64(l.burst),
			lastCheck: now,
		}
		l.buckets[key] = b
	}

	if elapsed := now.Sub(b.lastCheck).Seconds(); elapsed > 0 {
		b.tokens = min(b.tokens+l.rate*elapsed, float64(l.burst))
		b.lastCheck = now
	}

	if b.tokens < 1.0 {
		return false
	}

	b.tokens--
	return true
}

// ToolLimiters maps tool names to their rate limiters.
type ToolLimiters map[string]*Limiter

// NewToolLimiters creates the default set of per-tool rate limiters.
// Simulation and lookups are cheap; asking reaches a paid API.
func NewToolLimiters() ToolLimiters {
	return ToolLimiters{
		"ecosim_simulate": NewLimiter(1.0, 10),      // 60/minute, burst 10
		"ecosim_ask":      NewLimiter(10.0/60.0, 3), // 10/minute, burst 3
		"ecosim_tips":     NewLimiter(1.0, 10),      // 60/minute, burst 10
		"ecosim_quiz":     NewLimiter(30.0/60.0, 5), // 30/minute, burst 5
		"ecosim_feedback": NewLimiter(5.0/60.0, 2),  // 5/minute, burst 2
		"ecosim_backup":   NewLimiter(5.0/60.0, 2),  // 5/minute, burst 2
		"ecosim_restore":  NewLimiter(5.0/60.0, 2),  // 5/minute, burst 2
	}
}

// CheckLimit checks the rate limit for a given tool name.
// Tools without a configured limiter are always allowed.
func CheckLimit(limiters ToolLimiters, toolName string) error {
	limiter, ok := limiters[toolName]
	if !ok {
		return nil
	}

	if !limiter.Allow(toolName) {
		return fmt.Errorf("%w for %s, please try again shortly", ErrLimited, toolName)
	}

	return nil
}

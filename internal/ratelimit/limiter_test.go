package ratelimit

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestAllow_WithinAndBeyondBurst(t *testing.T) {
	l := NewLimiter(1.0, 3)

	for i := 0; i < 3; i++ {
		if !l.Allow("ask") {
			t.Errorf("request %d should be allowed (within burst)", i+1)
		}
	}
	if l.Allow("ask") {
		t.Error("request after burst exhaustion should be rejected")
	}
}

func TestAllow_Refill(t *testing.T) {
	now := time.Now()
	l := NewLimiter(10.0, 2)
	l.nowFunc = func() time.Time { return now }

	l.Allow("k")
	l.Allow("k")
	if l.Allow("k") {
		t.Error("expected rejection after burst")
	}

	now = now.Add(200 * time.Millisecond)
	if !l.Allow("k") {
		t.Error("expected allow after refill")
	}
}

func TestAllow_RefillCappedAtBurst(t *testing.T) {
	now := time.Now()
	l := NewLimiter(100.0, 3)
	l.nowFunc = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		l.Allow("k")
	}
	now = now.Add(10 * time.Second)

	for i := 0; i < 3; i++ {
		if !l.Allow("k") {
			t.Errorf("request %d should be allowed after refill", i+1)
		}
	}
	if l.Allow("k") {
		t.Error("4th request should be rejected (burst cap)")
	}
}

func TestAllow_IndependentKeys(t *testing.T) {
	l := NewLimiter(0, 1)

	l.Allow("127.0.0.1")
	if l.Allow("127.0.0.1") {
		t.Error("first client should be exhausted")
	}
	if !l.Allow("10.0.0.2") {
		t.Error("second client should have its own bucket")
	}
}

func TestAllow_NilLimiter(t *testing.T) {
	var l *Limiter
	for i := 0; i < 100; i++ {
		if !l.Allow("k") {
			t.Fatal("nil limiter must allow everything")
		}
	}
}

func TestPerMinute(t *testing.T) {
	if l := PerMinute(0, 5); l != nil {
		t.Error("PerMinute(0) should disable limiting")
	}

	l := PerMinute(30, 0)
	if l.burst != 1 {
		t.Errorf("burst = %d, want 1", l.burst)
	}
	if l.rate != 0.5 {
		t.Errorf("rate = %v, want 0.5", l.rate)
	}
}

func TestAllow_ConcurrentAccess(t *testing.T) {
	l := NewLimiter(0, 100)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow("shared") {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 100 {
		t.Errorf("allowed %d requests, want exactly 100", allowed)
	}
}

func TestToolRateLimits(t *testing.T) {
	limiters := NewToolLimiters()

	tests := []struct {
		tool  string
		burst int
	}{
		{"ecosim_simulate", 10},
		{"ecosim_ask", 3},
		{"ecosim_tips", 10},
		{"ecosim_quiz", 5},
		{"ecosim_feedback", 2},
		{"ecosim_backup", 2},
		{"ecosim_restore", 2},
	}

	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			limiter, ok := limiters[tt.tool]
			if !ok {
				t.Fatalf("missing limiter for %s", tt.tool)
			}
			if limiter.burst != tt.burst {
				t.Errorf("burst = %d, want %d", limiter.burst, tt.burst)
			}
		})
	}
}

func TestCheckLimit(t *testing.T) {
	limiters := NewToolLimiters()

	if err := CheckLimit(limiters, "unknown_tool"); err != nil {
		t.Errorf("unknown tool should pass: %v", err)
	}

	CheckLimit(limiters, "ecosim_feedback")
	CheckLimit(limiters, "ecosim_feedback")
	err := CheckLimit(limiters, "ecosim_feedback")
	if !errors.Is(err, ErrLimited) {
		t.Errorf("err = %v, want ErrLimited", err)
	}
}

package market

import (
	"testing"
	"time"
)

func TestAcquireSpendsBudget(t *testing.T) {
	rl := NewRateLimiter()
	rl.SetMaxWeight(10)

	if !rl.Acquire(weightKlines) {
		t.Fatal("first acquire should succeed")
	}
	if !rl.Acquire(weightKlines) {
		t.Fatal("second acquire should fit the budget exactly")
	}
	if rl.Acquire(weightTicker) {
		t.Error("budget is spent, acquire should fail")
	}

	current, max, banned := rl.Usage()
	if current != 10 || max != 10 {
		t.Errorf("usage = %d/%d, want 10/10", current, max)
	}
	if banned != 0 {
		t.Errorf("bannedFor = %v, want 0", banned)
	}
}

func TestRateLimitErrorOpensCircuit(t *testing.T) {
	rl := NewRateLimiter()
	rl.RecordRateLimitError("30")

	if rl.Acquire(weightTicker) {
		t.Error("acquire during a ban should fail")
	}
	if _, _, banned := rl.Usage(); banned <= 0 || banned > 30*time.Second {
		t.Errorf("bannedFor = %v, want (0, 30s]", banned)
	}
}

func TestRateLimitErrorWithoutRetryAfter(t *testing.T) {
	rl := NewRateLimiter()
	rl.RecordRateLimitError("")

	if _, _, banned := rl.Usage(); banned <= 30*time.Second {
		t.Errorf("bannedFor = %v, want close to a minute", banned)
	}
}

func TestDataCacheTTL(t *testing.T) {
	c := NewDataCache(time.Hour, time.Hour)
	c.PutPrice("AAPL", 187.5)

	quote, ok := c.GetPrice("AAPL")
	if !ok {
		t.Fatal("fresh price should hit")
	}
	if quote.Price != 187.5 {
		t.Errorf("price = %v, want 187.5", quote.Price)
	}
	if _, ok := c.GetPrice("MSFT"); ok {
		t.Error("unknown symbol should miss")
	}

	expired := NewDataCache(5*time.Millisecond, time.Hour)
	expired.PutPrice("AAPL", 187.5)
	time.Sleep(20 * time.Millisecond)
	if _, ok := expired.GetPrice("AAPL"); ok {
		t.Error("expired price should miss")
	}
	if q, ok := expired.PeekPrice("AAPL"); !ok || q.Price != 187.5 {
		t.Error("PeekPrice should ignore the TTL")
	}
}

func TestDataCacheClampsNonPositiveTTL(t *testing.T) {
	// A zero or negative TTL falls back to the defaults rather than
	// expiring everything on arrival.
	c := NewDataCache(-time.Second, 0)
	c.PutPrice("AAPL", 187.5)
	if _, ok := c.GetPrice("AAPL"); !ok {
		t.Error("price stored under a clamped TTL should still hit")
	}
}

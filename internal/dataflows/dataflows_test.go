package dataflows

import (
	"errors"
	"testing"
	"time"
)

func TestNormalizeSymbol(t *testing.T) {
	if got := NormalizeSymbol("  aapl "); got != "AAPL" {
		t.Fatalf("NormalizeSymbol = %q, want AAPL", got)
	}
}

func TestValidateSymbol(t *testing.T) {
	if err := ValidateSymbol("BRK.B"); err != nil {
		t.Fatalf("ValidateSymbol(BRK.B): %v", err)
	}
	if err := ValidateSymbol("   "); err == nil {
		t.Fatal("ValidateSymbol accepted blank symbol")
	}
	if err := ValidateSymbol("WAYTOOLONGSYMBOL"); err == nil {
		t.Fatal("ValidateSymbol accepted oversized symbol")
	}
}

func TestYahooQuoteRejectsBadSymbol(t *testing.T) {
	c := NewYahooClient()
	if _, err := c.Quote("   "); err == nil {
		t.Fatal("Quote accepted blank symbol")
	}
	if _, err := c.Quote("WAYTOOLONGSYMBOL"); err == nil {
		t.Fatal("Quote accepted oversized symbol")
	}
}

func TestWithRetryStopsAfterSuccess(t *testing.T) {
	cfg := &RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
	calls := 0
	err := WithRetry(cfg, func() error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithRetry: %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

func TestWithRetryExhaustsAndWrapsLastError(t *testing.T) {
	cfg := &RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
	sentinel := errors.New("still broken")
	calls := 0
	err := WithRetry(cfg, func() error {
		calls++
		return sentinel
	})
	if err == nil {
		t.Fatal("WithRetry returned nil after exhausting retries")
	}
	if !errors.Is(err, sentinel) {
		t.Fatalf("error does not wrap the last failure: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3 (initial + 2 retries)", calls)
	}
}

func TestRetryFromSettings(t *testing.T) {
	cfg := RetryFromSettings(5, 2)
	if cfg.MaxRetries != 5 {
		t.Fatalf("MaxRetries = %d", cfg.MaxRetries)
	}
	if cfg.BaseDelay != 2*time.Second {
		t.Fatalf("BaseDelay = %v", cfg.BaseDelay)
	}
}

func TestCacheManagerRoundTrip(t *testing.T) {
	cm := NewCacheManager(t.TempDir(), time.Hour, true)
	params := map[string]string{"symbol": "AAPL"}

	var miss Quote
	if cm.Get("fmp", "quote", params, &miss) {
		t.Fatal("Get hit on empty cache")
	}

	want := Quote{Symbol: "AAPL", Currency: "USD"}
	if err := cm.Set("fmp", "quote", params, want); err != nil {
		t.Fatalf("Set: %v", err)
	}
	var got Quote
	if !cm.Get("fmp", "quote", params, &got) {
		t.Fatal("Get missed after Set")
	}
	if got.Symbol != "AAPL" || got.Currency != "USD" {
		t.Fatalf("got %+v", got)
	}
}

func TestCacheManagerDisabled(t *testing.T) {
	cm := NewCacheManager(t.TempDir(), time.Hour, false)
	if err := cm.Set("fmp", "quote", "AAPL", Quote{Symbol: "AAPL"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	var got Quote
	if cm.Get("fmp", "quote", "AAPL", &got) {
		t.Fatal("disabled cache returned a hit")
	}
}

func TestCacheManagerExpiry(t *testing.T) {
	cm := NewCacheManager(t.TempDir(), -time.Second, true)
	if err := cm.Set("fmp", "quote", "AAPL", Quote{Symbol: "AAPL"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	var got Quote
	if cm.Get("fmp", "quote", "AAPL", &got) {
		t.Fatal("expired entry returned a hit")
	}
}

package station

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestRateLimiterStore_Basic(t *testing.T) {
	store := NewRateLimiterStore(1, 2)

	limiter := store.GetLimiter("device1")
	if limiter == nil {
		t.Fatal("expected limiter, got nil")
	}
	if limiter.Limit() != 1 {
		t.Errorf("expected limit 1, got %v", limiter.Limit())
	}
}

func TestRateLimiterStore_CustomLimit(t *testing.T) {
	store := NewRateLimiterStore(1, 2)

	if !store.SetLimiter("device2", 5, 10) {
		t.Fatal("expected active store to accept limiter")
	}
	limiter := store.GetLimiter("device2")

	if limiter.Limit() != 5 {
		t.Errorf("expected limit 5, got %v", limiter.Limit())
	}
	if limiter.Burst() != 10 {
		t.Errorf("expected burst 10, got %v", limiter.Burst())
	}
}

func TestRateLimiterStore_NilAllowsEverything(t *testing.T) {
	var store *RateLimiterStore

	if store.GetLimiter("device") != nil {
		t.Error("expected nil limiter from nil store")
	}
	if store.SetLimiter("device", 1, 1) {
		t.Error("expected nil store to refuse limiter")
	}
	for range 10 {
		if !store.Allow("device") {
			t.Fatal("expected nil store to allow")
		}
	}
}

func TestRateLimiterStore_Concurrency(t *testing.T) {
	store := NewRateLimiterStore(10, 5)
	deviceID := uuid.NewString()

	var wg sync.WaitGroup

	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if store.GetLimiter(deviceID) == nil {
				t.Error("expected limiter, got nil")
			}
		}()
	}

	wg.Wait()

	if store.GetLimiter(deviceID) == nil {
		t.Error("expected limiter to exist after concurrent access")
	}
}

func TestRateLimiter_Enforcement(t *testing.T) {
	store := NewRateLimiterStore(2, 2) // 2 events/sec

	deviceID := uuid.NewString()

	if !store.Allow(deviceID) || !store.Allow(deviceID) {
		t.Fatal("expected first two calls to be allowed")
	}

	if store.Allow(deviceID) {
		t.Error("expected third call to be rate limited")
	}

	// wait for refill
	time.Sleep(600 * time.Millisecond)
	if !store.Allow(deviceID) {
		t.Error("expected one token to be available after refill")
	}
}

package storage

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestMemoryReplayStoreClaimsOnce(t *testing.T) {
	t.Parallel()

	store := NewMemoryReplayStore(DefaultClaimTTL)
	defer store.Close()

	claimed, err := store.CheckEventID(context.Background(), "msg-1")
	if err != nil {
		t.Fatalf("CheckEventID() error: %v", err)
	}
	if !claimed {
		t.Fatal("first claim = false, want true")
	}

	claimed, err = store.CheckEventID(context.Background(), "msg-1")
	if err != nil {
		t.Fatalf("CheckEventID() error: %v", err)
	}
	if claimed {
		t.Fatal("second claim = true, want false")
	}

	claimed, err = store.CheckEventID(context.Background(), "msg-2")
	if err != nil {
		t.Fatalf("CheckEventID() error: %v", err)
	}
	if !claimed {
		t.Fatal("claim for a different id = false, want true")
	}
}

func TestMemoryReplayStoreExpiry(t *testing.T) {
	t.Parallel()

	store := NewMemoryReplayStore(10 * time.Millisecond)
	defer store.Close()

	if claimed, _ := store.CheckEventID(context.Background(), "msg-1"); !claimed {
		t.Fatal("first claim = false, want true")
	}

	time.Sleep(20 * time.Millisecond)

	if claimed, _ := store.CheckEventID(context.Background(), "msg-1"); !claimed {
		t.Fatal("claim after expiry = false, want true")
	}
}

func TestMemoryReplayStoreConcurrentClaims(t *testing.T) {
	t.Parallel()

	store := NewMemoryReplayStore(DefaultClaimTTL)
	defer store.Close()

	const goroutines = 32

	var wins atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			claimed, err := store.CheckEventID(context.Background(), "contested-id")
			if err != nil {
				t.Errorf("CheckEventID() error: %v", err)
				return
			}
			if claimed {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := wins.Load(); got != 1 {
		t.Errorf("claims won = %d, want exactly 1", got)
	}
}

func TestMemoryRateLimiter(t *testing.T) {
	t.Parallel()

	limiter := NewMemoryRateLimiter(1, 2)

	for i := 0; i < 2; i++ {
		result, err := limiter.Allow(context.Background(), "203.0.113.1")
		if err != nil {
			t.Fatalf("Allow() error: %v", err)
		}
		if !result.Allowed {
			t.Fatalf("request %d within burst denied", i)
		}
	}

	result, err := limiter.Allow(context.Background(), "203.0.113.1")
	if err != nil {
		t.Fatalf("Allow() error: %v", err)
	}
	if result.Allowed {
		t.Error("request over burst allowed")
	}

	// Other keys have their own bucket.
	result, err = limiter.Allow(context.Background(), "203.0.113.2")
	if err != nil {
		t.Fatalf("Allow() error: %v", err)
	}
	if !result.Allowed {
		t.Error("request for a fresh key denied")
	}
}

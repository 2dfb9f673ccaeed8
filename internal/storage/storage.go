package storage

import (
	"context"
	"time"
)

// DefaultClaimTTL is how long a claimed message id stays claimed. It must be
// at least as long as the sender's freshness window (10 minutes) so that a
// replayed message is still recognized after its original delivery.
const DefaultClaimTTL = 15 * time.Minute

// ReplayStore claims message ids so each delivery is handled at most once
// within the claim TTL. Implementations must be safe for concurrent use by
// many simultaneous requests.
type ReplayStore interface {
	// CheckEventID atomically claims id. It returns true if the id was
	// newly claimed (process the delivery) and false if it was already
	// present (duplicate, discard).
	CheckEventID(ctx context.Context, id string) (bool, error)

	Close() error

	Ping(ctx context.Context) error
}

type RateLimitResult struct {
	Allowed    bool
	RetryAfter time.Duration
}

// RateLimiter guards the public webhook endpoint against abusive senders.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (RateLimitResult, error)
}

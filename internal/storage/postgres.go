package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var _ ReplayStore = (*PostgresReplayStore)(nil)

// PostgresReplayStore claims message ids in a shared table. A claim is a
// single INSERT that loses on conflict, which makes it atomic across
// replicas without Redis. Expired claims are pruned in the background.
type PostgresReplayStore struct {
	pool *pgxpool.Pool
	ttl  time.Duration

	done chan struct{}
}

const createClaimsTable = `
CREATE TABLE IF NOT EXISTS eventsub_message_ids (
	id         TEXT PRIMARY KEY,
	claimed_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

func NewPostgresReplayStore(ctx context.Context, pool *pgxpool.Pool, ttl time.Duration) (*PostgresReplayStore, error) {
	if ttl <= 0 {
		ttl = DefaultClaimTTL
	}

	if _, err := pool.Exec(ctx, createClaimsTable); err != nil {
		return nil, fmt.Errorf("failed to create claims table: %w", err)
	}

	p := &PostgresReplayStore{
		pool: pool,
		ttl:  ttl,
		done: make(chan struct{}),
	}

	go p.pruneLoop()

	return p, nil
}

func (p *PostgresReplayStore) CheckEventID(ctx context.Context, id string) (bool, error) {
	// An expired claim may still occupy the row; reclaim it in place.
	tag, err := p.pool.Exec(ctx, `
		INSERT INTO eventsub_message_ids (id, claimed_at)
		VALUES ($1, now())
		ON CONFLICT (id) DO UPDATE SET claimed_at = now()
		WHERE eventsub_message_ids.claimed_at < now() - $2::interval`,
		id, p.ttl)
	if err != nil {
		return false, fmt.Errorf("failed to claim event id: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (p *PostgresReplayStore) Close() error {
	close(p.done)
	p.pool.Close()
	return nil
}

func (p *PostgresReplayStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *PostgresReplayStore) pruneLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			_, _ = p.pool.Exec(ctx, `
				DELETE FROM eventsub_message_ids
				WHERE claimed_at < now() - $1::interval`, p.ttl)
			cancel()
		case <-p.done:
			return
		}
	}
}

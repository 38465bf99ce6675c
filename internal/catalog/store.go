package catalog

import (
	"context"
	"time"
)

const (
	pingTimeout  = 1 * time.Second
	queryTimeout = 3 * time.Second
)

// Store holds the canonical catalog state. Only primary items are ever
// mutated; secondary is written once at seed time.
type Store interface {
	Ping(ctx context.Context) error
	Snapshot(ctx context.Context) (State, error)
	AdjustPrice(ctx context.Context, id string, delta int64) (Item, uint64, error)
}

func withTimeout(parent context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()
	return fn(ctx)
}

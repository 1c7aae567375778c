package store

import (
	"context"
	"errors"

	"github.com/DoyleJ11/asken-backend/internal/engine"
)

var ErrNotFound = errors.New("room not found")

// Store persists room aggregates by code.
type Store interface {
	Get(ctx context.Context, code string) (engine.State, error)
	Set(ctx context.Context, s engine.State) error
	Delete(ctx context.Context, code string) error
	Count(ctx context.Context) (int, error)
	List(ctx context.Context) ([]engine.State, error)
}

// Purger is implemented by backends that keep rows past their expiry horizon.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

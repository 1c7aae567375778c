package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/DoyleJ11/asken-backend/internal/engine"
)

const (
	writeQueueSize = 256
	backendTimeout = 5 * time.Second
)

type write struct {
	code   string
	state  engine.State
	delete bool
}

// Cached keeps every live room in memory and mirrors writes to an optional
// backend in the background. The in-memory copy is always trusted over the
// backend's.
type Cached struct {
	mu      sync.RWMutex
	rooms   map[string]engine.State
	gone    map[string]struct{}
	backend Store
	group   singleflight.Group
	writes  chan write
	log     *zap.Logger
}

// NewCached wraps backend. A nil backend keeps rooms in memory only.
func NewCached(backend Store, log *zap.Logger) *Cached {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cached{
		rooms:   make(map[string]engine.State),
		gone:    make(map[string]struct{}),
		backend: backend,
		writes:  make(chan write, writeQueueSize),
		log:     log.Named("store"),
	}
}

func (c *Cached) Get(ctx context.Context, code string) (engine.State, error) {
	c.mu.RLock()
	s, ok := c.rooms[code]
	_, deleted := c.gone[code]
	c.mu.RUnlock()
	if ok {
		return s.Clone(), nil
	}
	// A deleted room may still sit in the backend until its delete is flushed.
	if c.backend == nil || deleted {
		return engine.State{}, ErrNotFound
	}

	v, err, _ := c.group.Do(code, func() (any, error) {
		return c.backend.Get(ctx, code)
	})
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			c.log.Warn("backend get failed", zap.String("room", code), zap.Error(err))
			return engine.State{}, ErrNotFound
		}
		return engine.State{}, err
	}

	loaded := v.(engine.State)
	c.mu.Lock()
	if cur, ok := c.rooms[code]; ok {
		loaded = cur
	} else {
		c.rooms[code] = loaded
	}
	c.mu.Unlock()
	return loaded.Clone(), nil
}

func (c *Cached) Set(_ context.Context, s engine.State) error {
	if s.Code == "" {
		return fmt.Errorf("set room: empty code")
	}
	s = s.Clone()
	c.mu.Lock()
	c.rooms[s.Code] = s
	delete(c.gone, s.Code)
	c.mu.Unlock()
	c.enqueue(write{code: s.Code, state: s})
	return nil
}

func (c *Cached) Delete(_ context.Context, code string) error {
	c.mu.Lock()
	delete(c.rooms, code)
	c.gone[code] = struct{}{}
	c.mu.Unlock()
	c.enqueue(write{code: code, delete: true})
	return nil
}

func (c *Cached) Count(context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.rooms), nil
}

// List merges the backend listing with the cache. If the backend cannot be
// listed the cache alone is returned.
func (c *Cached) List(ctx context.Context) ([]engine.State, error) {
	c.mu.RLock()
	merged := make(map[string]engine.State, len(c.rooms))
	for code, s := range c.rooms {
		merged[code] = s.Clone()
	}
	c.mu.RUnlock()

	if c.backend != nil {
		remote, err := c.backend.List(ctx)
		if err != nil {
			c.log.Warn("backend list failed, using cache", zap.Error(err))
		}
		c.mu.RLock()
		for _, s := range remote {
			_, deleted := c.gone[s.Code]
			if _, ok := merged[s.Code]; !ok && !deleted {
				merged[s.Code] = s
			}
		}
		c.mu.RUnlock()
	}

	out := make([]engine.State, 0, len(merged))
	for _, s := range merged {
		out = append(out, s)
	}
	return out, nil
}

func (c *Cached) enqueue(w write) {
	if c.backend == nil {
		return
	}
	select {
	case c.writes <- w:
	default:
		c.log.Warn("backend write queue full, deferring to reconcile", zap.String("room", w.code))
	}
}

// Run drains queued backend writes and reconciles the whole cache every
// interval until ctx is done.
func (c *Cached) Run(ctx context.Context, interval time.Duration) error {
	if c.backend == nil {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.drain()
			flushCtx, cancel := context.WithTimeout(context.Background(), backendTimeout)
			defer cancel()
			if err := c.Reconcile(flushCtx); err != nil {
				c.log.Warn("final reconcile failed", zap.Error(err))
			}
			return nil
		case w := <-c.writes:
			c.apply(w)
		case <-ticker.C:
			if err := c.Reconcile(ctx); err != nil {
				c.log.Warn("reconcile failed", zap.Error(err))
			}
		}
	}
}

func (c *Cached) drain() {
	for {
		select {
		case w := <-c.writes:
			c.apply(w)
		default:
			return
		}
	}
}

func (c *Cached) apply(w write) {
	ctx, cancel := context.WithTimeout(context.Background(), backendTimeout)
	defer cancel()

	var err error
	if w.delete {
		err = c.backend.Delete(ctx, w.code)
	} else {
		err = c.backend.Set(ctx, w.state)
	}
	if err != nil {
		c.log.Warn("backend write failed", zap.String("room", w.code), zap.Bool("delete", w.delete), zap.Error(err))
	}
}

// Reconcile rewrites every cached room to the backend and purges rows that
// are past their expiry.
func (c *Cached) Reconcile(ctx context.Context) error {
	if c.backend == nil {
		return nil
	}
	c.mu.RLock()
	snapshot := make([]engine.State, 0, len(c.rooms))
	for _, s := range c.rooms {
		snapshot = append(snapshot, s)
	}
	c.mu.RUnlock()

	var errs error
	for _, s := range snapshot {
		if err := c.backend.Set(ctx, s); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("sync %s: %w", s.Code, err))
		}
	}
	if p, ok := c.backend.(Purger); ok {
		n, err := p.PurgeExpired(ctx)
		errs = multierr.Append(errs, err)
		if n > 0 {
			c.log.Info("purged expired rooms", zap.Int64("count", n))
		}
	}
	c.log.Debug("reconciled", zap.Int("rooms", len(snapshot)), zap.Int("errors", len(multierr.Errors(errs))))
	return errs
}

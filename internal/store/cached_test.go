package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/asken-backend/internal/engine"
)

var errDown = errors.New("backend down")

type fakeBackend struct {
	mu     sync.Mutex
	rooms  map[string]engine.State
	down   bool
	gets   atomic.Int32
	purged atomic.Int32
	block  chan struct{}
}

func newFake() *fakeBackend { return &fakeBackend{rooms: map[string]engine.State{}} }

func (f *fakeBackend) setDown(v bool) {
	f.mu.Lock()
	f.down = v
	f.mu.Unlock()
}

func (f *fakeBackend) Get(_ context.Context, code string) (engine.State, error) {
	f.gets.Add(1)
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return engine.State{}, errDown
	}
	s, ok := f.rooms[code]
	if !ok {
		return engine.State{}, ErrNotFound
	}
	return s, nil
}

func (f *fakeBackend) Set(_ context.Context, s engine.State) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return errDown
	}
	f.rooms[s.Code] = s
	return nil
}

func (f *fakeBackend) Delete(_ context.Context, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return errDown
	}
	delete(f.rooms, code)
	return nil
}

func (f *fakeBackend) Count(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rooms), nil
}

func (f *fakeBackend) List(context.Context) ([]engine.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return nil, errDown
	}
	var out []engine.State
	for _, s := range f.rooms {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeBackend) PurgeExpired(context.Context) (int64, error) {
	f.purged.Add(1)
	return 0, nil
}

func (f *fakeBackend) has(code string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.rooms[code]
	return ok
}

func room(code string) engine.State {
	return engine.NewRoom(code, engine.Rules{}, time.Now(), engine.Seat{ID: "p1", Name: "Ann"})
}

func TestCached_MemoryOnly(t *testing.T) {
	ctx := context.Background()
	c := NewCached(nil, nil)

	_, err := c.Get(ctx, "ABCD")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, c.Set(ctx, room("ABCD")))
	got, err := c.Get(ctx, "ABCD")
	require.NoError(t, err)
	assert.Equal(t, "p1", got.HostID)

	got.Players[0].Name = "mutated"
	again, _ := c.Get(ctx, "ABCD")
	assert.Equal(t, "Ann", again.Players[0].Name, "callers get copies")

	n, _ := c.Count(ctx)
	assert.Equal(t, 1, n)

	require.NoError(t, c.Delete(ctx, "ABCD"))
	_, err = c.Get(ctx, "ABCD")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCached_WritesReachBackend(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fake := newFake()
	c := NewCached(fake, nil)
	go c.Run(ctx, time.Hour)

	require.NoError(t, c.Set(ctx, room("ABCD")))
	require.Eventually(t, func() bool { return fake.has("ABCD") }, time.Second, 5*time.Millisecond)

	require.NoError(t, c.Delete(ctx, "ABCD"))
	require.Eventually(t, func() bool { return !fake.has("ABCD") }, time.Second, 5*time.Millisecond)
}

func TestCached_LoadsMissFromBackendOnce(t *testing.T) {
	fake := newFake()
	fake.rooms["WXYZ"] = room("WXYZ")
	fake.block = make(chan struct{})
	c := NewCached(fake, nil)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := c.Get(context.Background(), "WXYZ")
			assert.NoError(t, err)
			assert.Equal(t, "WXYZ", s.Code)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(fake.block)
	wg.Wait()

	assert.Equal(t, int32(1), fake.gets.Load(), "concurrent misses share one backend read")
	_, err := c.Get(context.Background(), "WXYZ")
	require.NoError(t, err)
	assert.Equal(t, int32(1), fake.gets.Load(), "later reads are served from cache")
}

func TestCached_DeletedRoomIsNotReloaded(t *testing.T) {
	fake := newFake()
	fake.rooms["ABCD"] = room("ABCD")
	c := NewCached(fake, nil)

	require.NoError(t, c.Delete(context.Background(), "ABCD"))
	_, err := c.Get(context.Background(), "ABCD")
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := c.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCached_BackendFailureNeverSurfaces(t *testing.T) {
	ctx := context.Background()
	fake := newFake()
	fake.setDown(true)
	c := NewCached(fake, nil)

	require.NoError(t, c.Set(ctx, room("ABCD")))
	got, err := c.Get(ctx, "ABCD")
	require.NoError(t, err)
	assert.Equal(t, "ABCD", got.Code)

	_, err = c.Get(ctx, "NOPE")
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := c.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCached_Reconcile(t *testing.T) {
	ctx := context.Background()
	fake := newFake()
	fake.setDown(true)
	c := NewCached(fake, nil)
	require.NoError(t, c.Set(ctx, room("AAAA")))
	require.NoError(t, c.Set(ctx, room("BBBB")))

	err := c.Reconcile(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, errDown)

	fake.setDown(false)
	require.NoError(t, c.Reconcile(ctx))
	assert.True(t, fake.has("AAAA"))
	assert.True(t, fake.has("BBBB"))
	assert.Equal(t, int32(2), fake.purged.Load())
}

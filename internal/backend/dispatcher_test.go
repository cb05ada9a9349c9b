package backend

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/tbuchner/raumplan/internal/stats"
	"github.com/tbuchner/raumplan/internal/testutil"
)

func newTestDispatcher(t *testing.T, queueSize int) (*Dispatcher, *stats.MockStatsUpdater) {
	mockStats := &stats.MockStatsUpdater{}
	mockStats.On("Incr", stats.PersistErrors).Maybe()

	d := NewDispatcher(testutil.TestLogger(t), mockStats, time.Second, queueSize)
	return d, mockStats
}

func TestDispatcherAppliesResult(t *testing.T) {
	d, _ := newTestDispatcher(t, 8)
	d.Run()

	applied := make(chan struct{})
	ok := d.Dispatch(Command{
		Entity: "room/r1",
		Op:     "save",
		Run: func(ctx context.Context) (func(), error) {
			return func() { close(applied) }, nil
		},
	})
	assert.True(t, ok, "expected command to be enqueued")

	select {
	case <-applied:
	case <-time.After(time.Second):
		t.Fatal("apply was not invoked")
	}
	d.Stop()
}

func TestDispatcherReportsError(t *testing.T) {
	d, _ := newTestDispatcher(t, 8)
	d.Run()

	errCh := make(chan error, 1)
	d.Dispatch(Command{
		Entity: "room/r1",
		Op:     "save",
		Run: func(ctx context.Context) (func(), error) {
			return nil, errors.New("collaborator down")
		},
		OnError: func(err error) { errCh <- err },
	})

	select {
	case err := <-errCh:
		assert.ErrorContains(t, err, "collaborator down")
	case <-time.After(time.Second):
		t.Fatal("OnError was not invoked")
	}
	d.Stop()
}

func TestDispatcherDiscardsStaleResponse(t *testing.T) {
	d, _ := newTestDispatcher(t, 8)

	var mu sync.Mutex
	var applied []string

	release := make(chan struct{})
	d.Dispatch(Command{
		Entity: "room/r1",
		Op:     "save",
		Run: func(ctx context.Context) (func(), error) {
			<-release
			return func() {
				mu.Lock()
				applied = append(applied, "first")
				mu.Unlock()
			}, nil
		},
	})
	// supersedes the first command before the worker starts
	d.Dispatch(Command{
		Entity: "room/r1",
		Op:     "save",
		Run: func(ctx context.Context) (func(), error) {
			return func() {
				mu.Lock()
				applied = append(applied, "second")
				mu.Unlock()
			}, nil
		},
	})
	close(release)

	d.Run()
	d.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"second"}, applied, "expected the superseded response to be discarded")
}

func TestDispatcherIndependentEntities(t *testing.T) {
	d, _ := newTestDispatcher(t, 8)

	var mu sync.Mutex
	var applied []string
	record := func(name string) func(ctx context.Context) (func(), error) {
		return func(ctx context.Context) (func(), error) {
			return func() {
				mu.Lock()
				applied = append(applied, name)
				mu.Unlock()
			}, nil
		}
	}

	d.Dispatch(Command{Entity: "room/r1", Op: "save", Run: record("r1")})
	d.Dispatch(Command{Entity: "room/r2", Op: "save", Run: record("r2")})

	d.Run()
	d.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"r1", "r2"}, applied, "expected commands for different entities to both apply")
}

func TestDispatchQueueFull(t *testing.T) {
	d, mockStats := newTestDispatcher(t, 1)
	// worker not running, so the second dispatch overflows

	errCh := make(chan error, 1)
	noop := func(ctx context.Context) (func(), error) { return nil, nil }

	assert.True(t, d.Dispatch(Command{Entity: "a", Op: "save", Run: noop}))
	ok := d.Dispatch(Command{
		Entity:  "b",
		Op:      "save",
		Run:     noop,
		OnError: func(err error) { errCh <- err },
	})
	assert.False(t, ok, "expected dispatch to fail on a full queue")

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrQueueFull)
	default:
		t.Fatal("OnError was not invoked for the dropped command")
	}
	mockStats.AssertCalled(t, "Incr", stats.PersistErrors)

	d.Run()
	d.Stop()
}

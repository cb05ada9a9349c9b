package backend

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/tbuchner/raumplan/internal/stats"
)

var ErrQueueFull = errors.New("dispatch queue full")

// Command is one fire-and-forget mutation against the collaborator.
// Entity is the version key (e.g. "room/r1"); two commands with the same
// entity are ordered and the response of a superseded command is dropped
// instead of merged, so a slow save never overwrites newer local state.
type Command struct {
	Entity string
	Op     string
	// Run performs the request and returns an apply callback that merges
	// the response into local state. Apply is only invoked while the
	// command's version is still current.
	Run func(ctx context.Context) (apply func(), err error)
	// OnError is called when the request fails or is dropped. Optional.
	OnError func(err error)
}

// Dispatcher executes commands asynchronously on a single worker. The
// caller never blocks on the network: Dispatch enqueues and returns, and
// failures are terminal (logged and reported, never retried).
type Dispatcher struct {
	log     *log.Logger
	stats   stats.StatsProvider
	timeout time.Duration

	queue chan queuedCommand
	done  chan struct{}

	mu       sync.Mutex
	versions map[string]uint64
}

type queuedCommand struct {
	cmd     Command
	version uint64
}

func NewDispatcher(logger *log.Logger, sp stats.StatsProvider, timeout time.Duration, queueSize int) *Dispatcher {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	if queueSize <= 0 {
		queueSize = 256
	}

	return &Dispatcher{
		log:      logger,
		stats:    sp,
		timeout:  timeout,
		queue:    make(chan queuedCommand, queueSize),
		done:     make(chan struct{}),
		versions: make(map[string]uint64),
	}
}

// Dispatch assigns the command the next version for its entity and
// enqueues it. Returns false if the queue is full; the command is then
// dropped, counted, and reported via OnError.
func (d *Dispatcher) Dispatch(cmd Command) bool {
	d.mu.Lock()
	d.versions[cmd.Entity]++
	version := d.versions[cmd.Entity]
	d.mu.Unlock()

	select {
	case d.queue <- queuedCommand{cmd: cmd, version: version}:
		return true
	default:
		d.log.Printf("dispatch queue full, dropping %s for %s", cmd.Op, cmd.Entity)
		d.stats.Incr(stats.PersistErrors)
		if cmd.OnError != nil {
			cmd.OnError(ErrQueueFull)
		}
		return false
	}
}

func (d *Dispatcher) current(entity string) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.versions[entity]
}

func (d *Dispatcher) Run() {
	go d.work()
}

// Stop drains the queue and waits for the worker to exit. Dispatching
// after Stop is not allowed.
func (d *Dispatcher) Stop() {
	close(d.queue)
	<-d.done
}

func (d *Dispatcher) work() {
	defer close(d.done)

	for q := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		apply, err := q.cmd.Run(ctx)
		cancel()

		if err != nil {
			d.log.Printf("%s %s: %v", q.cmd.Op, q.cmd.Entity, err)
			d.stats.Incr(stats.PersistErrors)
			if q.cmd.OnError != nil {
				q.cmd.OnError(err)
			}
			continue
		}

		if d.current(q.cmd.Entity) != q.version {
			// a newer command for this entity was dispatched while the
			// request was in flight; its echo is stale
			d.log.Printf("discarding stale %s response for %s", q.cmd.Op, q.cmd.Entity)
			continue
		}

		if apply != nil {
			apply()
		}
	}
}

// Package shutdown drives the ordered flush sequence that ends a stream.
//
// The sequence is carried by defer requests looping through the stream
// handler: completing phase n emits the request for phase n+1, so flush work
// interleaves with records still in flight. The driver owns the ordering
// rules; the flush work itself is registered per phase.
package shutdown

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tidemark-io/runwire/log"
	"github.com/tidemark-io/runwire/types"
)

// ErrOutOfOrder is returned when a defer request skips ahead of the sequence.
var ErrOutOfOrder = errors.New("shutdown: defer state out of order")

// ErrInvalidState is returned for defer states outside the enumeration.
var ErrInvalidState = errors.New("shutdown: invalid defer state")

// DefaultPhaseTimeout bounds each phase's flush work. A hung flush must not
// wedge the whole shutdown.
const DefaultPhaseTimeout = 30 * time.Second

// PhaseFunc performs the flush work for one phase. Errors are logged and the
// sequence advances anyway; shutdown is best-effort per phase, total overall.
type PhaseFunc func(ctx context.Context) error

// Options configures a Driver.
type Options struct {
	// PhaseTimeout bounds each phase. Zero takes DefaultPhaseTimeout.
	PhaseTimeout time.Duration
	// Forward emits the defer request for the next phase back into the
	// stream. Called after each non-terminal phase completes.
	Forward func(next types.DeferState)
	// Logger for phase transitions and failures.
	Logger *log.Logger
}

// Driver advances the shutdown sequence one phase at a time. Phases run in
// strict forward order; re-delivered phases (resume after a crash replays the
// log, including defer requests already honored) are no-ops.
type Driver struct {
	mu        sync.Mutex
	completed types.DeferState // last completed phase; -1 before Begin
	timeout   time.Duration
	forward   func(types.DeferState)
	logger    *log.Logger
	phases    map[types.DeferState]PhaseFunc
	done      chan struct{}
}

// NewDriver creates a driver with no phase work registered.
func NewDriver(opts Options) *Driver {
	if opts.PhaseTimeout == 0 {
		opts.PhaseTimeout = DefaultPhaseTimeout
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNop()
	}
	return &Driver{
		completed: types.DeferBegin - 1,
		timeout:   opts.PhaseTimeout,
		forward:   opts.Forward,
		logger:    opts.Logger,
		phases:    make(map[types.DeferState]PhaseFunc),
		done:      make(chan struct{}),
	}
}

// OnPhase registers the flush work for one phase. Phases without registered
// work complete immediately. Must be called before the sequence starts.
func (d *Driver) OnPhase(s types.DeferState, fn PhaseFunc) {
	d.phases[s] = fn
}

// Handle processes one defer request. It runs the phase's flush work under
// the phase timeout, records completion, and forwards the next phase. The
// terminal phase closes Done instead of forwarding.
func (d *Driver) Handle(ctx context.Context, req *types.DeferRequest) error {
	state := req.State
	if !state.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidState, int32(state))
	}

	d.mu.Lock()
	if state <= d.completed {
		d.mu.Unlock()
		d.logger.Debug("shutdown: phase already completed", map[string]any{
			"state": state.String(),
		})
		return nil
	}
	if state != d.completed+1 {
		expected := d.completed + 1
		d.mu.Unlock()
		return fmt.Errorf("%w: got %s, expected %s", ErrOutOfOrder, state, expected)
	}
	d.mu.Unlock()

	if fn, ok := d.phases[state]; ok {
		phaseCtx, cancel := context.WithTimeout(ctx, d.timeout)
		err := fn(phaseCtx)
		cancel()
		if err != nil {
			d.logger.Warn("shutdown: phase failed, advancing anyway", map[string]any{
				"state": state.String(),
				"error": err.Error(),
			})
		}
	}

	d.mu.Lock()
	d.completed = state
	d.mu.Unlock()
	d.logger.Debug("shutdown: phase complete", map[string]any{
		"state": state.String(),
	})

	if state.Terminal() {
		close(d.done)
		return nil
	}
	if d.forward != nil {
		d.forward(state.Next())
	}
	return nil
}

// Completed returns the last completed phase, or DeferBegin-1 if the sequence
// has not started.
func (d *Driver) Completed() types.DeferState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.completed
}

// Done is closed when the terminal phase completes.
func (d *Driver) Done() <-chan struct{} { return d.done }

// Package mailbox correlates request records with the results that answer
// them. Each outstanding call holds a slot keyed by a fresh opaque token; the
// producer stamps the token into the record's control block and the consumer
// echoes it on the matching result.
package mailbox

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/tidemark-io/runwire/log"
	"github.com/tidemark-io/runwire/types"
)

// ErrCanceled is returned by Handle.Wait after the call was canceled.
var ErrCanceled = errors.New("mailbox: call canceled")

// CorrelationErrorKind classifies correlation protocol violations.
type CorrelationErrorKind int

const (
	// CorrelationNoSlot indicates a result with no mailbox slot at all.
	CorrelationNoSlot CorrelationErrorKind = iota
	// CorrelationUnknownSlot indicates a slot with no open call: either a
	// late delivery after cancellation or a consumer bug.
	CorrelationUnknownSlot
)

func (k CorrelationErrorKind) String() string {
	switch k {
	case CorrelationNoSlot:
		return "no_slot"
	case CorrelationUnknownSlot:
		return "unknown_slot"
	default:
		return "unknown"
	}
}

// CorrelationError reports a result that cannot be matched to an open call.
// Violations are warn-and-drop: the session continues, the result is lost.
type CorrelationError struct {
	Kind CorrelationErrorKind
	Slot string
}

func (e *CorrelationError) Error() string {
	return fmt.Sprintf("mailbox: %s: slot %q", e.Kind, e.Slot)
}

// IsCorrelationError reports whether err is a correlation violation.
func IsCorrelationError(err error) bool {
	var ce *CorrelationError
	return errors.As(err, &ce)
}

// Mailbox tracks outstanding calls awaiting results. All methods are safe for
// concurrent use.
type Mailbox struct {
	mu     sync.Mutex
	slots  map[string]*Handle
	logger *log.Logger
}

// New creates an empty mailbox.
func New(logger *log.Logger) *Mailbox {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Mailbox{
		slots:  make(map[string]*Handle),
		logger: logger,
	}
}

// OpenCall registers a new outstanding call and returns its handle. The
// caller stamps Slot() into the outgoing record's control block.
func (m *Mailbox) OpenCall() *Handle {
	h := &Handle{
		slot: uuid.NewString(),
		ch:   make(chan *types.Result, 1),
		mb:   m,
	}
	m.mu.Lock()
	m.slots[h.slot] = h
	m.mu.Unlock()
	return h
}

// Deliver routes a result to the call that opened its slot. Each slot is
// one-shot: the first delivery closes it. Results with no slot, an unknown
// slot, or an already-answered slot are dropped and reported as a
// CorrelationError; the caller decides whether to count or escalate.
func (m *Mailbox) Deliver(res *types.Result) error {
	slot := res.MailboxSlotOf()
	if slot == "" {
		err := &CorrelationError{Kind: CorrelationNoSlot}
		m.logger.Warn("mailbox: dropping result without slot", nil)
		return err
	}

	m.mu.Lock()
	h, ok := m.slots[slot]
	if ok {
		delete(m.slots, slot)
	}
	m.mu.Unlock()

	if !ok {
		err := &CorrelationError{Kind: CorrelationUnknownSlot, Slot: slot}
		m.logger.Warn("mailbox: dropping result for unknown slot", map[string]any{
			"slot": slot,
		})
		return err
	}

	h.deliver(res)
	return nil
}

// Outstanding returns the number of calls still awaiting a result.
func (m *Mailbox) Outstanding() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.slots)
}

// CancelAll cancels every outstanding call, waking all waiters with
// ErrCanceled. Used during stream teardown.
func (m *Mailbox) CancelAll() {
	m.mu.Lock()
	handles := make([]*Handle, 0, len(m.slots))
	for slot, h := range m.slots {
		handles = append(handles, h)
		delete(m.slots, slot)
	}
	m.mu.Unlock()

	for _, h := range handles {
		h.abandon()
	}
}

// Handle is one outstanding call. A handle receives at most one result; after
// delivery or cancellation it is spent.
type Handle struct {
	slot string
	ch   chan *types.Result
	once sync.Once
	mb   *Mailbox
}

// Slot returns the correlation token for this call.
func (h *Handle) Slot() string { return h.slot }

// Wait blocks until the result arrives, the call is canceled, or ctx ends.
func (h *Handle) Wait(ctx context.Context) (*types.Result, error) {
	select {
	case res, ok := <-h.ch:
		if !ok {
			return nil, ErrCanceled
		}
		return res, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cancel withdraws the call. A result arriving afterwards is treated like any
// other unknown-slot delivery: dropped with a warning.
func (h *Handle) Cancel() {
	h.mb.mu.Lock()
	delete(h.mb.slots, h.slot)
	h.mb.mu.Unlock()
	h.abandon()
}

func (h *Handle) deliver(res *types.Result) {
	h.once.Do(func() {
		h.ch <- res
		close(h.ch)
	})
}

func (h *Handle) abandon() {
	h.once.Do(func() {
		close(h.ch)
	})
}

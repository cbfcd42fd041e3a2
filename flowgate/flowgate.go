// Package flowgate paces record forwarding against consumer progress. The
// producer tracks the byte offset it has sent and the offset the consumer
// reports as read; when the gap exceeds the high watermark the gate blocks
// new flow-controlled sends until the consumer drains below the low
// watermark.
package flowgate

import (
	"context"
	"fmt"
	"sync"

	"github.com/tidemark-io/runwire/types"
)

// Default watermarks. The low watermark sits well under the high one so a
// blocked writer is released in bursts instead of thrashing at the boundary.
const (
	DefaultHighWatermark = 16 * 1024 * 1024
	DefaultLowWatermark  = 4 * 1024 * 1024
)

// Options configures a Gate.
type Options struct {
	// HighWatermark is the in-flight byte count above which sends block.
	HighWatermark int64
	// LowWatermark is the in-flight byte count a blocked gate must drain
	// to before sends resume.
	LowWatermark int64
	// Disabled turns the gate into a pass-through. Offsets are still
	// tracked for status reporting.
	Disabled bool
}

// Gate is the producer-side flow control gate. Safe for concurrent use,
// though sends normally come from a single writer goroutine.
type Gate struct {
	mu       sync.Mutex
	high     int64
	low      int64
	disabled bool

	sent    int64 // end offset of the last frame written
	read    int64 // end offset the consumer reported as processed
	blocked bool

	change chan struct{} // closed and replaced on every state change
}

// New creates a gate. Zero watermarks take the defaults; a low watermark at
// or above the high one is rejected.
func New(opts Options) (*Gate, error) {
	if opts.HighWatermark == 0 {
		opts.HighWatermark = DefaultHighWatermark
	}
	if opts.LowWatermark == 0 {
		opts.LowWatermark = DefaultLowWatermark
	}
	if opts.LowWatermark >= opts.HighWatermark {
		return nil, fmt.Errorf("flowgate: low watermark %d must be below high watermark %d",
			opts.LowWatermark, opts.HighWatermark)
	}
	return &Gate{
		high:     opts.HighWatermark,
		low:      opts.LowWatermark,
		disabled: opts.Disabled,
	}, nil
}

// ShouldPace reports whether rec is subject to pacing: the producer marked it
// flow-controlled and did not flag it always-send.
func ShouldPace(rec *types.Record) bool {
	if rec.Control == nil || !rec.Control.FlowControl {
		return false
	}
	return !rec.Control.AlwaysSend
}

// Admit blocks until the gate has room for another send, or ctx ends. Callers
// check ShouldPace first; Admit itself only looks at the byte ledger.
func (g *Gate) Admit(ctx context.Context) error {
	g.mu.Lock()
	for {
		if g.disabled {
			g.mu.Unlock()
			return nil
		}
		inflight := g.sent - g.read
		if g.blocked {
			if inflight <= g.low {
				g.blocked = false
				g.mu.Unlock()
				return nil
			}
		} else {
			if inflight < g.high {
				g.mu.Unlock()
				return nil
			}
			g.blocked = true
		}
		ch := g.changeLocked()
		g.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			g.mu.Lock()
			g.blocked = false
			g.mu.Unlock()
			return ctx.Err()
		}
		g.mu.Lock()
	}
}

// MarkSent records the end offset of a frame just written.
func (g *Gate) MarkSent(endOffset int64) {
	g.mu.Lock()
	if endOffset > g.sent {
		g.sent = endOffset
	}
	g.mu.Unlock()
}

// MarkRead records consumer progress from a status report. Stale offsets are
// ignored; progress only moves forward.
func (g *Gate) MarkRead(offset int64) {
	g.mu.Lock()
	if offset > g.read {
		g.read = offset
		g.notifyLocked()
	}
	g.mu.Unlock()
}

// Disable turns the gate into a pass-through, waking any blocked sender.
func (g *Gate) Disable() {
	g.mu.Lock()
	g.disabled = true
	g.notifyLocked()
	g.mu.Unlock()
}

// Inflight returns the current sent-minus-read byte gap.
func (g *Gate) Inflight() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sent - g.read
}

// Blocked reports whether the gate is currently holding back sends.
func (g *Gate) Blocked() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.blocked
}

func (g *Gate) changeLocked() chan struct{} {
	if g.change == nil {
		g.change = make(chan struct{})
	}
	return g.change
}

func (g *Gate) notifyLocked() {
	if g.change != nil {
		close(g.change)
		g.change = nil
	}
}

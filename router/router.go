// Package router demultiplexes records from a shared channel onto per-stream
// handlers. Several logical streams can ride one physical connection; the
// router picks the handler from the routing slot, falling back to the relay
// id in the control block for messages stamped before routing info existed.
package router

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/tidemark-io/runwire/log"
	"github.com/tidemark-io/runwire/metrics"
	"github.com/tidemark-io/runwire/types"
)

// ErrDuplicateStream is returned when registering an already-known stream id.
var ErrDuplicateStream = errors.New("router: stream already registered")

// RoutingError reports a record that could not be mapped to a stream.
// Routing failures are drop-and-log: the connection stays up.
type RoutingError struct {
	StreamID string
	Num      int64
}

func (e *RoutingError) Error() string {
	if e.StreamID == "" {
		return fmt.Sprintf("router: record %d has no stream id", e.Num)
	}
	return fmt.Sprintf("router: no handler for stream %q (record %d)", e.StreamID, e.Num)
}

// IsRoutingError reports whether err is a routing failure.
func IsRoutingError(err error) bool {
	var re *RoutingError
	return errors.As(err, &re)
}

// RecordHandler receives the records routed to one stream.
type RecordHandler interface {
	HandleRecord(ctx context.Context, rec *types.Record) error
}

// Router maps stream ids to handlers. Safe for concurrent use.
type Router struct {
	mu      sync.RWMutex
	streams map[string]RecordHandler
	logger  *log.Logger
	metrics *metrics.Collector
}

// New creates an empty router.
func New(logger *log.Logger, collector *metrics.Collector) *Router {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Router{
		streams: make(map[string]RecordHandler),
		logger:  logger,
		metrics: collector,
	}
}

// Register adds a handler for streamID. Registering a duplicate id is a
// caller bug and is rejected rather than silently replacing the handler.
func (r *Router) Register(streamID string, h RecordHandler) error {
	if streamID == "" {
		return fmt.Errorf("router: empty stream id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.streams[streamID]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateStream, streamID)
	}
	r.streams[streamID] = h
	return nil
}

// Deregister removes the handler for streamID. Records arriving afterwards
// are routing errors.
func (r *Router) Deregister(streamID string) {
	r.mu.Lock()
	delete(r.streams, streamID)
	r.mu.Unlock()
}

// Route dispatches rec to its stream's handler. A record with no resolvable
// stream, or a stream with no handler, is dropped and reported as a
// RoutingError.
func (r *Router) Route(ctx context.Context, rec *types.Record) error {
	id := streamIDOf(rec)
	if id == "" {
		r.metrics.IncRoutingError()
		r.logger.Warn("router: dropping record without stream id", routeFields(rec, ""))
		return &RoutingError{Num: rec.Num}
	}

	r.mu.RLock()
	h, ok := r.streams[id]
	r.mu.RUnlock()
	if !ok {
		r.metrics.IncRoutingError()
		r.logger.Warn("router: dropping record for unknown stream", routeFields(rec, id))
		return &RoutingError{StreamID: id, Num: rec.Num}
	}
	return h.HandleRecord(ctx, rec)
}

// routeFields builds the log context for routing drops. The tracelog id, when
// present, lets a dropped record be matched back to its producer-side log
// lines.
func routeFields(rec *types.Record, id string) map[string]any {
	fields := map[string]any{"num": rec.Num}
	if id != "" {
		fields["stream_id"] = id
	}
	if rec.Info != nil && rec.Info.TracelogID != "" {
		fields["tracelog_id"] = rec.Info.TracelogID
	}
	return fields
}

// streamIDOf resolves the routing id: the info slot wins, the control block's
// relay id is the fallback.
func streamIDOf(rec *types.Record) string {
	if id := rec.StreamIDOf(); id != "" {
		return id
	}
	if rec.Control != nil {
		return rec.Control.RelayID
	}
	return ""
}

// Streams returns the registered stream ids, sorted.
func (r *Router) Streams() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.streams))
	for id := range r.streams {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of registered streams.
func (r *Router) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.streams)
}

// Package metrics provides per-stream protocol metrics collection.
//
// The Collector accumulates counters for one stream session. It is a leaf
// package with no internal dependencies. Counters are incremented live on the
// hot path, so every increment is a single mutex-guarded add.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all stream metrics.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Envelope traffic
	RecordsSent     int64
	RecordsReceived int64
	ResultsSent     int64
	ResultsReceived int64
	BytesSent       int64
	BytesReceived   int64

	// Decode failures, by failure site
	DecodeErrors  int64
	FrameErrors   int64
	UnknownTags   int64
	RoutingErrors int64

	// Mailbox
	CallsOpened           int64
	CallsAnswered         int64
	CallsCanceled         int64
	CorrelationViolations int64

	// Flow control
	FlowPauses  int64
	FlowResumes int64

	// Durable log
	LogWriteSuccess int64
	LogWriteFailure int64

	// Dimensions (informational, set at construction)
	StreamID     string
	ConnectionID string
}

// Collector accumulates metrics for one stream session.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	recordsSent     int64
	recordsReceived int64
	resultsSent     int64
	resultsReceived int64
	bytesSent       int64
	bytesReceived   int64

	decodeErrors  int64
	frameErrors   int64
	unknownTags   int64
	routingErrors int64

	callsOpened           int64
	callsAnswered         int64
	callsCanceled         int64
	correlationViolations int64

	flowPauses  int64
	flowResumes int64

	logWriteSuccess int64
	logWriteFailure int64

	streamID     string
	connectionID string
}

// NewCollector creates a Collector with dimension labels. streamID identifies
// the logical run; connectionID is optional and identifies the client
// connection when several share a stream.
func NewCollector(streamID, connectionID string) *Collector {
	return &Collector{
		streamID:     streamID,
		connectionID: connectionID,
	}
}

// --- Envelope traffic ---

// AddRecordSent records one record written to the wire, with its frame size.
func (c *Collector) AddRecordSent(bytes int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.recordsSent++
	c.bytesSent += bytes
	c.mu.Unlock()
}

// AddRecordReceived records one record read from the wire, with its frame size.
func (c *Collector) AddRecordReceived(bytes int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.recordsReceived++
	c.bytesReceived += bytes
	c.mu.Unlock()
}

// AddResultSent records one result written to the wire, with its frame size.
func (c *Collector) AddResultSent(bytes int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.resultsSent++
	c.bytesSent += bytes
	c.mu.Unlock()
}

// AddResultReceived records one result read from the wire, with its frame size.
func (c *Collector) AddResultReceived(bytes int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.resultsReceived++
	c.bytesReceived += bytes
	c.mu.Unlock()
}

// --- Failures ---

// IncDecodeError records an envelope body that failed to decode.
func (c *Collector) IncDecodeError() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.decodeErrors++
	c.mu.Unlock()
}

// IncFrameError records a frame-level stream error.
func (c *Collector) IncFrameError() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.frameErrors++
	c.mu.Unlock()
}

// IncUnknownTag records a payload variant this build does not recognize.
func (c *Collector) IncUnknownTag() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.unknownTags++
	c.mu.Unlock()
}

// IncRoutingError records a message that could not be routed to a stream.
func (c *Collector) IncRoutingError() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.routingErrors++
	c.mu.Unlock()
}

// --- Mailbox ---

// IncCallOpened records a new outstanding call.
func (c *Collector) IncCallOpened() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.callsOpened++
	c.mu.Unlock()
}

// IncCallAnswered records a call that received its result.
func (c *Collector) IncCallAnswered() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.callsAnswered++
	c.mu.Unlock()
}

// IncCallCanceled records a call withdrawn before its result arrived.
func (c *Collector) IncCallCanceled() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.callsCanceled++
	c.mu.Unlock()
}

// IncCorrelationViolation records a result dropped for slot mismatch.
func (c *Collector) IncCorrelationViolation() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.correlationViolations++
	c.mu.Unlock()
}

// --- Flow control ---

// IncFlowPause records the gate blocking the sender.
func (c *Collector) IncFlowPause() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.flowPauses++
	c.mu.Unlock()
}

// IncFlowResume records the gate releasing a blocked sender.
func (c *Collector) IncFlowResume() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.flowResumes++
	c.mu.Unlock()
}

// --- Durable log ---

// IncLogWriteSuccess records a record persisted to the durable log.
func (c *Collector) IncLogWriteSuccess() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.logWriteSuccess++
	c.mu.Unlock()
}

// IncLogWriteFailure records a failed durable log write.
func (c *Collector) IncLogWriteFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.logWriteFailure++
	c.mu.Unlock()
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all metrics.
// The returned Snapshot is safe to read concurrently; the Collector can
// continue to be mutated independently.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		RecordsSent:     c.recordsSent,
		RecordsReceived: c.recordsReceived,
		ResultsSent:     c.resultsSent,
		ResultsReceived: c.resultsReceived,
		BytesSent:       c.bytesSent,
		BytesReceived:   c.bytesReceived,

		DecodeErrors:  c.decodeErrors,
		FrameErrors:   c.frameErrors,
		UnknownTags:   c.unknownTags,
		RoutingErrors: c.routingErrors,

		CallsOpened:           c.callsOpened,
		CallsAnswered:         c.callsAnswered,
		CallsCanceled:         c.callsCanceled,
		CorrelationViolations: c.correlationViolations,

		FlowPauses:  c.flowPauses,
		FlowResumes: c.flowResumes,

		LogWriteSuccess: c.logWriteSuccess,
		LogWriteFailure: c.logWriteFailure,

		StreamID:     c.streamID,
		ConnectionID: c.connectionID,
	}
}

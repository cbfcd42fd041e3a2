package types

// Record envelope field tags. Payload variant tags live on the variant types
// themselves; see doc.go for the global allocation table.
const (
	RecordFieldNum     = 1
	RecordFieldControl = 16
	RecordFieldUUID    = 19
	RecordFieldInfo    = 200
)

// Record is the durable, log-worthy envelope: one payload variant plus
// routing and control metadata. Records with a nil Control get default
// handling (no ack requested, not flow-controlled, persisted).
type Record struct {
	// Num is the producer-assigned monotonic sequence number, unique per
	// stream. It doubles as the log-position identifier for replay.
	Num int64
	// Control carries correlation, durability and flow-control instructions.
	Control *Control
	// UUID is an opaque de-duplication token, independent of the mailbox
	// slot. Empty when the producer does not need idempotent delivery.
	UUID string
	// Info is routing/diagnostic metadata, present on every message kind.
	Info *RecordInfo
	// Payload is exactly one variant; encoders reject a nil payload and
	// decoders reject frames carrying zero or multiple variants.
	Payload RecordPayload
}

// RecordPayload is implemented by every record payload variant. RecordTag
// returns the variant's wire tag from the global allocation table.
type RecordPayload interface {
	RecordTag() uint32
}

// Control is the metadata block attached to records and results.
type Control struct {
	// ReqResp requests that a Result be sent back for this record.
	ReqResp bool `msgpack:"req_resp,omitempty"`
	// Local marks a record that must not be persisted to the durable log
	// or forwarded to remote sync.
	Local bool `msgpack:"local,omitempty"`
	// RelayID routes a message to the correct logical stream when several
	// streams share one physical channel.
	RelayID string `msgpack:"relay_id,omitempty"`
	// MailboxSlot is the correlation token; fresh per outstanding call,
	// echoed verbatim on the matching response.
	MailboxSlot string `msgpack:"mailbox_slot,omitempty"`
	// AlwaysSend overrides normal suppression rules; the response is sent
	// even if the consumer would otherwise drop it.
	AlwaysSend bool `msgpack:"always_send,omitempty"`
	// FlowControl counts this message against the flow-control budget.
	FlowControl bool `msgpack:"flow_control,omitempty"`
	// EndOffset is the byte offset in the durable log immediately after
	// this message, stamped by the log writer for incremental replay.
	EndOffset int64 `msgpack:"end_offset,omitempty"`
	// ConnectionID identifies the client connection that issued the call.
	ConnectionID string `msgpack:"connection_id,omitempty"`
}

// RecordInfo is routing/diagnostic metadata stamped onto every record at the
// fixed info slot (tag 200).
type RecordInfo struct {
	// StreamID identifies the logical run this record belongs to.
	StreamID string `msgpack:"stream_id,omitempty"`
	// TracelogID correlates log lines back to wire messages.
	TracelogID string `msgpack:"tracelog_id,omitempty"`
}

// Clone returns a copy of the info block, for stamping onto derived messages.
func (i *RecordInfo) Clone() *RecordInfo {
	if i == nil {
		return nil
	}
	c := *i
	return &c
}

// StreamIDOf returns the record's stream id, or "" when no info is attached.
func (r *Record) StreamIDOf() string {
	if r.Info == nil {
		return ""
	}
	return r.Info.StreamID
}

// WantsResponse reports whether the producer asked for a Result.
func (r *Record) WantsResponse() bool {
	return r.Control != nil && r.Control.ReqResp
}

// IsLocal reports whether the record is excluded from persistence and sync.
func (r *Record) IsLocal() bool {
	return r.Control != nil && r.Control.Local
}

// EnsureControl returns the record's control block, allocating it if absent.
func (r *Record) EnsureControl() *Control {
	if r.Control == nil {
		r.Control = &Control{}
	}
	return r.Control
}

// UnknownRecordPayload preserves a payload variant whose tag this build does
// not recognize (newer producer, older consumer). The raw bytes are kept so
// the record can be re-encoded or skipped without losing stream sync.
type UnknownRecordPayload struct {
	Tag uint32
	Raw []byte
}

// RecordTag returns the unrecognized variant's wire tag.
func (p *UnknownRecordPayload) RecordTag() uint32 { return p.Tag }

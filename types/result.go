package types

// Result envelope field tags.
const (
	ResultFieldControl = 16
	ResultFieldUUID    = 24
	ResultFieldInfo    = 200
)

// Result payload wire tags. The discriminant space mirrors the record tags
// of the operations being acknowledged.
const (
	ResultTagRun      uint32 = 17
	ResultTagExit     uint32 = 18
	ResultTagLog      uint32 = 20
	ResultTagSummary  uint32 = 21
	ResultTagOutput   uint32 = 22
	ResultTagConfig   uint32 = 23
	ResultTagResponse uint32 = 100
)

// Result is the acknowledgement/response envelope for a Record. The control
// block echoes the originating record's mailbox slot.
type Result struct {
	Control *Control
	UUID    string
	Info    *ResultInfo
	Payload ResultPayload
}

// ResultPayload is implemented by every result payload variant.
type ResultPayload interface {
	ResultTag() uint32
}

// ResultInfo is routing/diagnostic metadata at the fixed info slot (tag 200).
type ResultInfo struct {
	StreamID   string `msgpack:"stream_id,omitempty"`
	TracelogID string `msgpack:"tracelog_id,omitempty"`
}

// MailboxSlotOf returns the correlation token echoed on this result, or "".
func (r *Result) MailboxSlotOf() string {
	if r.Control == nil {
		return ""
	}
	return r.Control.MailboxSlot
}

// ErrorInfo describes a failed operation inside a result payload.
type ErrorInfo struct {
	Message string `msgpack:"message,omitempty"`
	Code    int32  `msgpack:"code,omitempty"`
}

// RunUpdateResult acknowledges a RunRecord upsert.
type RunUpdateResult struct {
	Run   *RunRecord `msgpack:"run,omitempty"`
	Error *ErrorInfo `msgpack:"error,omitempty"`
}

func (*RunUpdateResult) ResultTag() uint32 { return ResultTagRun }

// RunExitResult acknowledges a RunExitRecord.
type RunExitResult struct {
	Error *ErrorInfo `msgpack:"error,omitempty"`
}

func (*RunExitResult) ResultTag() uint32 { return ResultTagExit }

// HistoryResult acknowledges a HistoryRecord.
type HistoryResult struct{}

func (*HistoryResult) ResultTag() uint32 { return ResultTagLog }

// SummaryResult acknowledges a SummaryRecord.
type SummaryResult struct{}

func (*SummaryResult) ResultTag() uint32 { return ResultTagSummary }

// OutputResult acknowledges an OutputRecord.
type OutputResult struct{}

func (*OutputResult) ResultTag() uint32 { return ResultTagOutput }

// ConfigResult acknowledges a ConfigRecord.
type ConfigResult struct{}

func (*ConfigResult) ResultTag() uint32 { return ResultTagConfig }

// UnknownResultPayload preserves an unrecognized result variant.
type UnknownResultPayload struct {
	Tag uint32
	Raw []byte
}

// ResultTag returns the unrecognized variant's wire tag.
func (p *UnknownResultPayload) ResultTag() uint32 { return p.Tag }

package types

// Request payload wire tags. 1-24 are run-facing calls, 64-76 service-level
// calls, 1000 test-only injection.
const (
	RequestTagStopStatus       uint32 = 1
	RequestTagNetworkStatus    uint32 = 2
	RequestTagDefer            uint32 = 3
	RequestTagGetSummary       uint32 = 4
	RequestTagLogin            uint32 = 5
	RequestTagPause            uint32 = 6
	RequestTagResume           uint32 = 7
	RequestTagPollExit         uint32 = 8
	RequestTagSampledHistory   uint32 = 9
	RequestTagPartialHistory   uint32 = 10
	RequestTagRunStart         uint32 = 11
	RequestTagCheckVersion     uint32 = 12
	RequestTagLogArtifact      uint32 = 13
	RequestTagDownloadArtifact uint32 = 14
	RequestTagKeepalive        uint32 = 17
	RequestTagRunStatus        uint32 = 20
	RequestTagCancel           uint32 = 21
	RequestTagMetadata         uint32 = 22
	RequestTagInternalMessages uint32 = 23
	RequestTagPythonPackages   uint32 = 24
	RequestTagShutdown         uint32 = 64
	RequestTagAttach           uint32 = 65
	RequestTagStatus           uint32 = 66
	RequestTagServerInfo       uint32 = 67
	RequestTagSenderMark       uint32 = 68
	RequestTagSenderRead       uint32 = 69
	RequestTagStatusReport     uint32 = 70
	RequestTagSummaryRecord    uint32 = 71
	RequestTagTelemetryRecord  uint32 = 72
	RequestTagJobInfo          uint32 = 73
	RequestTagSystemMetrics    uint32 = 74
	RequestTagFileTransferInfo uint32 = 75
	RequestTagSync             uint32 = 76
	RequestTagTestInject       uint32 = 1000
)

// Request is the non-persisted call sub-protocol, embedded in a Record at
// tag 100. Requests ride the same channel as durable records but are never
// written to the log unless explicitly marked otherwise.
type Request struct {
	Payload RequestPayload
}

// RecordTag places Request in the record discriminant space.
func (*Request) RecordTag() uint32 { return RecordTagRequest }

// RequestPayload is implemented by every request call kind.
type RequestPayload interface {
	RequestTag() uint32
}

// StopStatusRequest asks whether the server wants the run to stop.
type StopStatusRequest struct{}

func (*StopStatusRequest) RequestTag() uint32 { return RequestTagStopStatus }

// NetworkStatusRequest asks for recent network health responses.
type NetworkStatusRequest struct{}

func (*NetworkStatusRequest) RequestTag() uint32 { return RequestTagNetworkStatus }

// GetSummaryRequest asks for the current run summary.
type GetSummaryRequest struct{}

func (*GetSummaryRequest) RequestTag() uint32 { return RequestTagGetSummary }

// LoginRequest validates credentials against the backend.
type LoginRequest struct {
	APIKey string `msgpack:"api_key,omitempty"`
}

func (*LoginRequest) RequestTag() uint32 { return RequestTagLogin }

// PauseRequest suspends system-metrics sampling.
type PauseRequest struct{}

func (*PauseRequest) RequestTag() uint32 { return RequestTagPause }

// ResumeRequest resumes system-metrics sampling.
type ResumeRequest struct{}

func (*ResumeRequest) RequestTag() uint32 { return RequestTagResume }

// PollExitRequest polls shutdown progress (file pusher stats, done flag).
type PollExitRequest struct{}

func (*PollExitRequest) RequestTag() uint32 { return RequestTagPollExit }

// SampledHistoryRequest asks for a downsampled view of run history.
type SampledHistoryRequest struct{}

func (*SampledHistoryRequest) RequestTag() uint32 { return RequestTagSampledHistory }

// PartialHistoryItem is one key of a partial history row.
type PartialHistoryItem struct {
	Key       string `msgpack:"key"`
	ValueJSON string `msgpack:"value_json"`
}

// PartialHistoryRequest appends keys to the in-progress history row; the
// consumer flushes the row when the step advances or on FlushPartialHistory.
type PartialHistoryRequest struct {
	Item    []PartialHistoryItem `msgpack:"item,omitempty"`
	Step    int64                `msgpack:"step,omitempty"`
	Flush   bool                 `msgpack:"flush,omitempty"`
	HasStep bool                 `msgpack:"has_step,omitempty"`
}

func (*PartialHistoryRequest) RequestTag() uint32 { return RequestTagPartialHistory }

// RunStartRequest announces that the run has started and carries the run
// record for consumer-side initialization.
type RunStartRequest struct {
	Run *RunRecord `msgpack:"run,omitempty"`
}

func (*RunStartRequest) RequestTag() uint32 { return RequestTagRunStart }

// CheckVersionRequest asks whether the current SDK version is outdated.
type CheckVersionRequest struct {
	CurrentVersion string `msgpack:"current_version,omitempty"`
}

func (*CheckVersionRequest) RequestTag() uint32 { return RequestTagCheckVersion }

// LogArtifactRequest uploads an artifact and expects its server id back.
type LogArtifactRequest struct {
	Artifact    *ArtifactRecord `msgpack:"artifact,omitempty"`
	HistoryStep int64           `msgpack:"history_step,omitempty"`
	StagingDir  string          `msgpack:"staging_dir,omitempty"`
}

func (*LogArtifactRequest) RequestTag() uint32 { return RequestTagLogArtifact }

// DownloadArtifactRequest fetches an artifact into a local root.
type DownloadArtifactRequest struct {
	ArtifactID   string `msgpack:"artifact_id"`
	DownloadRoot string `msgpack:"download_root,omitempty"`
	AllowMissing bool   `msgpack:"allow_missing,omitempty"`
}

func (*DownloadArtifactRequest) RequestTag() uint32 { return RequestTagDownloadArtifact }

// KeepaliveRequest keeps the connection alive during idle periods.
type KeepaliveRequest struct{}

func (*KeepaliveRequest) RequestTag() uint32 { return RequestTagKeepalive }

// RunStatusRequest asks for sync progress of the current run.
type RunStatusRequest struct{}

func (*RunStatusRequest) RequestTag() uint32 { return RequestTagRunStatus }

// CancelRequest cancels an outstanding call by its cancel slot.
type CancelRequest struct {
	CancelSlot string `msgpack:"cancel_slot"`
}

func (*CancelRequest) RequestTag() uint32 { return RequestTagCancel }

// MetadataRequest updates run environment metadata.
type MetadataRequest struct {
	OS       string   `msgpack:"os,omitempty"`
	Python   string   `msgpack:"python,omitempty"`
	Host     string   `msgpack:"host,omitempty"`
	Program  string   `msgpack:"program,omitempty"`
	Args     []string `msgpack:"args,omitempty"`
	GPUCount int32    `msgpack:"gpu_count,omitempty"`
}

func (*MetadataRequest) RequestTag() uint32 { return RequestTagMetadata }

// InternalMessagesRequest drains warnings accumulated by the consumer.
type InternalMessagesRequest struct{}

func (*InternalMessagesRequest) RequestTag() uint32 { return RequestTagInternalMessages }

// PythonPackagesRequest records the installed package list.
type PythonPackagesRequest struct {
	Packages []string `msgpack:"packages,omitempty"`
}

func (*PythonPackagesRequest) RequestTag() uint32 { return RequestTagPythonPackages }

// ShutdownRequest asks the consumer to stop its record loop.
type ShutdownRequest struct{}

func (*ShutdownRequest) RequestTag() uint32 { return RequestTagShutdown }

// AttachRequest attaches a second client to an existing stream.
type AttachRequest struct {
	AttachID string `msgpack:"attach_id"`
}

func (*AttachRequest) RequestTag() uint32 { return RequestTagAttach }

// StatusRequest asks for basic liveness/run state.
type StatusRequest struct{}

func (*StatusRequest) RequestTag() uint32 { return RequestTagStatus }

// ServerInfoRequest asks for backend server details.
type ServerInfoRequest struct{}

func (*ServerInfoRequest) RequestTag() uint32 { return RequestTagServerInfo }

// SenderMarkRequest asks the sender to mark its current log position.
type SenderMarkRequest struct{}

func (*SenderMarkRequest) RequestTag() uint32 { return RequestTagSenderMark }

// SenderReadRequest asks the sender to re-read a span of the durable log.
type SenderReadRequest struct {
	StartOffset int64 `msgpack:"start_offset"`
	FinalOffset int64 `msgpack:"final_offset"`
}

func (*SenderReadRequest) RequestTag() uint32 { return RequestTagSenderRead }

// StatusReportRequest reports reader progress through the durable log; it is
// the drain signal consumed by the flow-control gate.
type StatusReportRequest struct {
	RecordNum  int64 `msgpack:"record_num"`
	SentOffset int64 `msgpack:"sent_offset"`
}

func (*StatusReportRequest) RequestTag() uint32 { return RequestTagStatusReport }

// SummaryRecordRequest carries a summary update that bypasses persistence.
type SummaryRecordRequest struct {
	Summary *SummaryRecord `msgpack:"summary,omitempty"`
}

func (*SummaryRecordRequest) RequestTag() uint32 { return RequestTagSummaryRecord }

// TelemetryRecordRequest carries a telemetry update that bypasses persistence.
type TelemetryRecordRequest struct {
	Telemetry *TelemetryRecord `msgpack:"telemetry,omitempty"`
}

func (*TelemetryRecordRequest) RequestTag() uint32 { return RequestTagTelemetryRecord }

// JobInfoRequest asks for the launch job identity of this run.
type JobInfoRequest struct{}

func (*JobInfoRequest) RequestTag() uint32 { return RequestTagJobInfo }

// SystemMetricsRequest asks for buffered system-metrics samples.
type SystemMetricsRequest struct{}

func (*SystemMetricsRequest) RequestTag() uint32 { return RequestTagSystemMetrics }

// FileTransferInfoRequest reports file-transfer progress into the stream.
type FileTransferInfoRequest struct {
	Type          int32 `msgpack:"type,omitempty"`
	UploadedBytes int64 `msgpack:"uploaded_bytes,omitempty"`
	TotalBytes    int64 `msgpack:"total_bytes,omitempty"`
	FileCount     int64 `msgpack:"file_count,omitempty"`
}

func (*FileTransferInfoRequest) RequestTag() uint32 { return RequestTagFileTransferInfo }

// SyncRequest replays a durable log into the backend.
type SyncRequest struct {
	StartOffset int64 `msgpack:"start_offset,omitempty"`
	FinalOffset int64 `msgpack:"final_offset,omitempty"`
}

func (*SyncRequest) RequestTag() uint32 { return RequestTagSync }

// TestInjectRequest injects synthetic faults in integration tests.
type TestInjectRequest struct {
	HandlerExc bool `msgpack:"handler_exc,omitempty"`
	SenderExc  bool `msgpack:"sender_exc,omitempty"`
}

func (*TestInjectRequest) RequestTag() uint32 { return RequestTagTestInject }

// UnknownRequestPayload preserves an unrecognized request kind.
type UnknownRequestPayload struct {
	Tag uint32
	Raw []byte
}

// RequestTag returns the unrecognized call's wire tag.
func (p *UnknownRequestPayload) RequestTag() uint32 { return p.Tag }

package types

// Response payload wire tags. Every request kind has exactly one matching
// response kind; correlation is via the mailbox slot, never by pairing tags.
const (
	ResponseTagKeepalive        uint32 = 18
	ResponseTagStopStatus       uint32 = 19
	ResponseTagNetworkStatus    uint32 = 20
	ResponseTagLogin            uint32 = 24
	ResponseTagGetSummary       uint32 = 25
	ResponseTagPollExit         uint32 = 26
	ResponseTagSampledHistory   uint32 = 27
	ResponseTagRunStart         uint32 = 28
	ResponseTagCheckVersion     uint32 = 29
	ResponseTagLogArtifact      uint32 = 30
	ResponseTagDownloadArtifact uint32 = 31
	ResponseTagRunStatus        uint32 = 35
	ResponseTagCancel           uint32 = 36
	ResponseTagInternalMessages uint32 = 37
	ResponseTagShutdown         uint32 = 64
	ResponseTagAttach           uint32 = 65
	ResponseTagStatus           uint32 = 66
	ResponseTagServerInfo       uint32 = 67
	ResponseTagJobInfo          uint32 = 68
	ResponseTagSystemMetrics    uint32 = 69
	ResponseTagSync             uint32 = 70
	ResponseTagTestInject       uint32 = 1000
)

// Response is the non-persisted reply sub-protocol, embedded in a Result at
// tag 100.
type Response struct {
	Payload ResponsePayload
}

// ResultTag places Response in the result discriminant space.
func (*Response) ResultTag() uint32 { return ResultTagResponse }

// ResponsePayload is implemented by every response kind.
type ResponsePayload interface {
	ResponseTag() uint32
}

// KeepaliveResponse acknowledges a keepalive.
type KeepaliveResponse struct{}

func (*KeepaliveResponse) ResponseTag() uint32 { return ResponseTagKeepalive }

// StopStatusResponse reports whether the server wants the run stopped.
type StopStatusResponse struct {
	RunShouldStop bool `msgpack:"run_should_stop"`
}

func (*StopStatusResponse) ResponseTag() uint32 { return ResponseTagStopStatus }

// NetworkStatusResponse reports recent backend HTTP responses.
type NetworkStatusResponse struct {
	NetworkResponses []HTTPResponse `msgpack:"network_responses,omitempty"`
}

// HTTPResponse is one observed backend response.
type HTTPResponse struct {
	StatusCode int32  `msgpack:"status_code"`
	Body       string `msgpack:"body,omitempty"`
}

func (*NetworkStatusResponse) ResponseTag() uint32 { return ResponseTagNetworkStatus }

// LoginResponse returns the resolved default entity.
type LoginResponse struct {
	ActiveEntity string `msgpack:"active_entity,omitempty"`
}

func (*LoginResponse) ResponseTag() uint32 { return ResponseTagLogin }

// GetSummaryResponse returns the current summary keys.
type GetSummaryResponse struct {
	Item []SummaryItem `msgpack:"item,omitempty"`
}

func (*GetSummaryResponse) ResponseTag() uint32 { return ResponseTagGetSummary }

// FilePusherStats reports upload progress during shutdown polling.
type FilePusherStats struct {
	UploadedBytes int64 `msgpack:"uploaded_bytes"`
	TotalBytes    int64 `msgpack:"total_bytes"`
	DedupedBytes  int64 `msgpack:"deduped_bytes,omitempty"`
}

// PollExitResponse reports shutdown progress.
type PollExitResponse struct {
	Done        bool             `msgpack:"done"`
	Exit        *RunExitResult   `msgpack:"exit_result,omitempty"`
	PusherStats *FilePusherStats `msgpack:"pusher_stats,omitempty"`
	FileCounts  map[string]int64 `msgpack:"file_counts,omitempty"`
}

func (*PollExitResponse) ResponseTag() uint32 { return ResponseTagPollExit }

// SampledHistoryItem is one downsampled history series.
type SampledHistoryItem struct {
	Key         string    `msgpack:"key"`
	ValuesFloat []float64 `msgpack:"values_float,omitempty"`
}

// SampledHistoryResponse returns downsampled history series.
type SampledHistoryResponse struct {
	Item []SampledHistoryItem `msgpack:"item,omitempty"`
}

func (*SampledHistoryResponse) ResponseTag() uint32 { return ResponseTagSampledHistory }

// RunStartResponse acknowledges run start.
type RunStartResponse struct{}

func (*RunStartResponse) ResponseTag() uint32 { return ResponseTagRunStart }

// CheckVersionResponse reports version advisories.
type CheckVersionResponse struct {
	UpgradeMessage string `msgpack:"upgrade_message,omitempty"`
	DeleteMessage  string `msgpack:"delete_message,omitempty"`
}

func (*CheckVersionResponse) ResponseTag() uint32 { return ResponseTagCheckVersion }

// LogArtifactResponse returns the committed artifact's server id.
type LogArtifactResponse struct {
	ArtifactID   string `msgpack:"artifact_id,omitempty"`
	ErrorMessage string `msgpack:"error_message,omitempty"`
}

func (*LogArtifactResponse) ResponseTag() uint32 { return ResponseTagLogArtifact }

// DownloadArtifactResponse acknowledges an artifact download.
type DownloadArtifactResponse struct {
	ErrorMessage string `msgpack:"error_message,omitempty"`
}

func (*DownloadArtifactResponse) ResponseTag() uint32 { return ResponseTagDownloadArtifact }

// RunStatusResponse reports sync progress of the current run.
type RunStatusResponse struct {
	SyncItemsTotal   int64 `msgpack:"sync_items_total,omitempty"`
	SyncItemsPending int64 `msgpack:"sync_items_pending,omitempty"`
}

func (*RunStatusResponse) ResponseTag() uint32 { return ResponseTagRunStatus }

// CancelResponse acknowledges a cancel request.
type CancelResponse struct{}

func (*CancelResponse) ResponseTag() uint32 { return ResponseTagCancel }

// InternalMessagesResponse drains accumulated consumer warnings.
type InternalMessagesResponse struct {
	Warnings []string `msgpack:"warnings,omitempty"`
}

func (*InternalMessagesResponse) ResponseTag() uint32 { return ResponseTagInternalMessages }

// ShutdownResponse acknowledges a shutdown request.
type ShutdownResponse struct{}

func (*ShutdownResponse) ResponseTag() uint32 { return ResponseTagShutdown }

// AttachResponse returns the run record for an attached client.
type AttachResponse struct {
	Run   *RunRecord `msgpack:"run,omitempty"`
	Error *ErrorInfo `msgpack:"error,omitempty"`
}

func (*AttachResponse) ResponseTag() uint32 { return ResponseTagAttach }

// StatusResponse reports basic run state.
type StatusResponse struct {
	RunShouldStop bool `msgpack:"run_should_stop"`
}

func (*StatusResponse) ResponseTag() uint32 { return ResponseTagStatus }

// ServerInfoResponse reports backend server details.
type ServerInfoResponse struct {
	ServerMessage string `msgpack:"server_message,omitempty"`
}

func (*ServerInfoResponse) ResponseTag() uint32 { return ResponseTagServerInfo }

// JobInfoResponse reports the launch job identity.
type JobInfoResponse struct {
	Sequence string `msgpack:"sequence,omitempty"`
	Version  string `msgpack:"version,omitempty"`
}

func (*JobInfoResponse) ResponseTag() uint32 { return ResponseTagJobInfo }

// SystemMetricsBuffer is the buffered sample series for one metric.
type SystemMetricsBuffer struct {
	TimestampsMS []int64   `msgpack:"timestamps_ms,omitempty"`
	Values       []float64 `msgpack:"values,omitempty"`
}

// SystemMetricsResponse returns buffered system-metrics samples by name.
type SystemMetricsResponse struct {
	SystemMetrics map[string]SystemMetricsBuffer `msgpack:"system_metrics,omitempty"`
}

func (*SystemMetricsResponse) ResponseTag() uint32 { return ResponseTagSystemMetrics }

// SyncResponse reports the outcome of a log replay.
type SyncResponse struct {
	URL          string `msgpack:"url,omitempty"`
	ErrorMessage string `msgpack:"error_message,omitempty"`
}

func (*SyncResponse) ResponseTag() uint32 { return ResponseTagSync }

// TestInjectResponse acknowledges a test injection.
type TestInjectResponse struct{}

func (*TestInjectResponse) ResponseTag() uint32 { return ResponseTagTestInject }

// UnknownResponsePayload preserves an unrecognized response kind.
type UnknownResponsePayload struct {
	Tag uint32
	Raw []byte
}

// ResponseTag returns the unrecognized reply's wire tag.
func (p *UnknownResponsePayload) ResponseTag() uint32 { return p.Tag }

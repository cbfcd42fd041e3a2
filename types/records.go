package types

import "fmt"

// Record payload wire tags. Low numbers are reserved for high-frequency
// kinds so the envelope key encodes in one byte.
const (
	RecordTagHistory          uint32 = 2
	RecordTagSummary          uint32 = 3
	RecordTagOutput           uint32 = 4
	RecordTagConfig           uint32 = 5
	RecordTagFiles            uint32 = 6
	RecordTagStats            uint32 = 7
	RecordTagArtifact         uint32 = 8
	RecordTagTensorboard      uint32 = 9
	RecordTagAlert            uint32 = 10
	RecordTagTelemetry        uint32 = 11
	RecordTagMetric           uint32 = 12
	RecordTagOutputRaw        uint32 = 13
	RecordTagRun              uint32 = 17
	RecordTagExit             uint32 = 18
	RecordTagFinal            uint32 = 20
	RecordTagHeader           uint32 = 21
	RecordTagFooter           uint32 = 22
	RecordTagPreempting       uint32 = 23
	RecordTagLinkArtifact     uint32 = 24
	RecordTagUseArtifact      uint32 = 25
	RecordTagConfigParameters uint32 = 26
	RecordTagRequest          uint32 = 100
)

// HistoryItem is one logged key within a history row.
type HistoryItem struct {
	Key       string `msgpack:"key"`
	ValueJSON string `msgpack:"value_json"`
}

// HistoryRecord is one row of run history (the hottest record kind).
type HistoryRecord struct {
	Step int64         `msgpack:"step"`
	Item []HistoryItem `msgpack:"item,omitempty"`
}

func (*HistoryRecord) RecordTag() uint32 { return RecordTagHistory }

// SummaryItem is one key of the run summary.
type SummaryItem struct {
	Key       string `msgpack:"key"`
	ValueJSON string `msgpack:"value_json"`
}

// SummaryRecord updates or removes run summary keys.
type SummaryRecord struct {
	Update []SummaryItem `msgpack:"update,omitempty"`
	Remove []SummaryItem `msgpack:"remove,omitempty"`
}

func (*SummaryRecord) RecordTag() uint32 { return RecordTagSummary }

// OutputRecord is a line of captured console output.
type OutputRecord struct {
	OutputType string `msgpack:"output_type"` // "stdout" or "stderr"
	Line       string `msgpack:"line"`
}

func (*OutputRecord) RecordTag() uint32 { return RecordTagOutput }

// OutputRawRecord is unprocessed console output captured at the fd level.
type OutputRawRecord struct {
	OutputType string `msgpack:"output_type"`
	Data       []byte `msgpack:"data"`
}

func (*OutputRawRecord) RecordTag() uint32 { return RecordTagOutputRaw }

// ConfigItem is one run-config key update.
type ConfigItem struct {
	Key       string `msgpack:"key"`
	ValueJSON string `msgpack:"value_json"`
}

// ConfigRecord updates or removes run config keys.
type ConfigRecord struct {
	Update []ConfigItem `msgpack:"update,omitempty"`
	Remove []ConfigItem `msgpack:"remove,omitempty"`
}

func (*ConfigRecord) RecordTag() uint32 { return RecordTagConfig }

// FilesItem names one file scheduled for saving with the run.
type FilesItem struct {
	Path   string `msgpack:"path"`
	Policy string `msgpack:"policy,omitempty"` // "now", "end", "live"
}

// FilesRecord schedules run files for upload.
type FilesRecord struct {
	Files []FilesItem `msgpack:"files,omitempty"`
}

func (*FilesRecord) RecordTag() uint32 { return RecordTagFiles }

// StatsRecord is one sample of system metrics.
type StatsRecord struct {
	TimestampMS int64             `msgpack:"timestamp_ms"`
	Item        map[string]string `msgpack:"item,omitempty"` // key -> value json
}

func (*StatsRecord) RecordTag() uint32 { return RecordTagStats }

// ArtifactManifestEntry is one file within an artifact manifest.
type ArtifactManifestEntry struct {
	Path      string `msgpack:"path"`
	Digest    string `msgpack:"digest"`
	Ref       string `msgpack:"ref,omitempty"`
	Size      int64  `msgpack:"size"`
	LocalPath string `msgpack:"local_path,omitempty"`
}

// ArtifactRecord declares an artifact and its manifest.
type ArtifactRecord struct {
	ArtifactID string                  `msgpack:"artifact_id,omitempty"`
	Name       string                  `msgpack:"name"`
	Type       string                  `msgpack:"type"`
	Digest     string                  `msgpack:"digest,omitempty"`
	Aliases    []string                `msgpack:"aliases,omitempty"`
	Contents   []ArtifactManifestEntry `msgpack:"contents,omitempty"`
}

func (*ArtifactRecord) RecordTag() uint32 { return RecordTagArtifact }

// LinkArtifactRecord links an artifact into a portfolio collection.
type LinkArtifactRecord struct {
	ClientID         string   `msgpack:"client_id,omitempty"`
	ServerID         string   `msgpack:"server_id,omitempty"`
	PortfolioName    string   `msgpack:"portfolio_name"`
	PortfolioAliases []string `msgpack:"portfolio_aliases,omitempty"`
}

func (*LinkArtifactRecord) RecordTag() uint32 { return RecordTagLinkArtifact }

// UseArtifactRecord marks an artifact as consumed by this run.
type UseArtifactRecord struct {
	ArtifactID string `msgpack:"artifact_id"`
	Type       string `msgpack:"type,omitempty"`
	Name       string `msgpack:"name,omitempty"`
}

func (*UseArtifactRecord) RecordTag() uint32 { return RecordTagUseArtifact }

// TensorboardRecord registers a tensorboard log directory to shadow.
type TensorboardRecord struct {
	LogDir  string `msgpack:"log_dir"`
	Save    bool   `msgpack:"save,omitempty"`
	RootDir string `msgpack:"root_dir,omitempty"`
}

func (*TensorboardRecord) RecordTag() uint32 { return RecordTagTensorboard }

// AlertRecord raises a user-visible alert.
type AlertRecord struct {
	Title        string `msgpack:"title"`
	Text         string `msgpack:"text,omitempty"`
	Level        string `msgpack:"level,omitempty"`
	WaitDuration int64  `msgpack:"wait_duration,omitempty"`
}

func (*AlertRecord) RecordTag() uint32 { return RecordTagAlert }

// TelemetryRecord reports SDK feature usage.
type TelemetryRecord struct {
	PythonVersion string   `msgpack:"python_version,omitempty"`
	CLIVersion    string   `msgpack:"cli_version,omitempty"`
	Features      []string `msgpack:"features,omitempty"`
}

func (*TelemetryRecord) RecordTag() uint32 { return RecordTagTelemetry }

// MetricRecord defines a metric (step relationship, summary aggregation).
type MetricRecord struct {
	Name       string `msgpack:"name,omitempty"`
	GlobName   string `msgpack:"glob_name,omitempty"`
	StepMetric string `msgpack:"step_metric,omitempty"`
	Hidden     bool   `msgpack:"hidden,omitempty"`
}

func (*MetricRecord) RecordTag() uint32 { return RecordTagMetric }

// RunRecord creates or updates run metadata.
type RunRecord struct {
	RunID        string         `msgpack:"run_id"`
	Entity       string         `msgpack:"entity,omitempty"`
	Project      string         `msgpack:"project,omitempty"`
	RunGroup     string         `msgpack:"run_group,omitempty"`
	JobType      string         `msgpack:"job_type,omitempty"`
	DisplayName  string         `msgpack:"display_name,omitempty"`
	Notes        string         `msgpack:"notes,omitempty"`
	Tags         []string       `msgpack:"tags,omitempty"`
	Host         string         `msgpack:"host,omitempty"`
	StartingStep int64          `msgpack:"starting_step,omitempty"`
	StorageID    string         `msgpack:"storage_id,omitempty"`
	StartTimeMS  int64          `msgpack:"start_time_ms,omitempty"`
	Resumed      bool           `msgpack:"resumed,omitempty"`
	Config       *ConfigRecord  `msgpack:"config,omitempty"`
	Summary      *SummaryRecord `msgpack:"summary,omitempty"`
}

func (*RunRecord) RecordTag() uint32 { return RecordTagRun }

// RunExitRecord ends a run with an exit code. It is the trigger for the
// shutdown sequence on the consumer side.
type RunExitRecord struct {
	ExitCode int32 `msgpack:"exit_code"`
	Runtime  int32 `msgpack:"runtime,omitempty"`
}

func (*RunExitRecord) RecordTag() uint32 { return RecordTagExit }

// RunPreemptingRecord marks the run as preempting (spot instance reclaim).
type RunPreemptingRecord struct{}

func (*RunPreemptingRecord) RecordTag() uint32 { return RecordTagPreempting }

// VersionInfo records which producer wrote a log and the minimum consumer
// version able to read it back.
type VersionInfo struct {
	Producer    string `msgpack:"producer"`
	MinConsumer string `msgpack:"min_consumer"`
}

// HeaderRecord is the first record of a durable log.
type HeaderRecord struct {
	VersionInfo *VersionInfo `msgpack:"version_info,omitempty"`
}

func (*HeaderRecord) RecordTag() uint32 { return RecordTagHeader }

// FooterRecord is the last record of a durable log.
type FooterRecord struct{}

func (*FooterRecord) RecordTag() uint32 { return RecordTagFooter }

// FinalRecord marks the end of run data, written during shutdown before the
// footer.
type FinalRecord struct{}

func (*FinalRecord) RecordTag() uint32 { return RecordTagFinal }

// ConfigParametersRecord declares externally-overridable config parameters
// for launch tooling.
type ConfigParametersRecord struct {
	IncludePaths []string `msgpack:"include_paths,omitempty"`
	ExcludePaths []string `msgpack:"exclude_paths,omitempty"`
}

func (*ConfigParametersRecord) RecordTag() uint32 { return RecordTagConfigParameters }

var recordKindNames = map[uint32]string{
	RecordTagHistory:          "history",
	RecordTagSummary:          "summary",
	RecordTagOutput:           "output",
	RecordTagConfig:           "config",
	RecordTagFiles:            "files",
	RecordTagStats:            "stats",
	RecordTagArtifact:         "artifact",
	RecordTagTensorboard:      "tensorboard",
	RecordTagAlert:            "alert",
	RecordTagTelemetry:        "telemetry",
	RecordTagMetric:           "metric",
	RecordTagOutputRaw:        "output_raw",
	RecordTagRun:              "run",
	RecordTagExit:             "exit",
	RecordTagFinal:            "final",
	RecordTagHeader:           "header",
	RecordTagFooter:           "footer",
	RecordTagPreempting:       "preempting",
	RecordTagLinkArtifact:     "link_artifact",
	RecordTagUseArtifact:      "use_artifact",
	RecordTagConfigParameters: "config_parameters",
	RecordTagRequest:          "request",
}

// RecordKindName returns a human-readable name for a record payload tag, or
// "unknown(<tag>)" for tags this build does not recognize.
func RecordKindName(tag uint32) string {
	if name, ok := recordKindNames[tag]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", tag)
}

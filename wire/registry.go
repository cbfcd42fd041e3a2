package wire

import "github.com/tidemark-io/runwire/types"

// Payload constructor registries. Decoders look the discriminant tag up
// here; a miss is not an error but a forward-compatible unknown variant.

var recordPayloads = map[uint32]func() types.RecordPayload{
	types.RecordTagHistory:          func() types.RecordPayload { return &types.HistoryRecord{} },
	types.RecordTagSummary:          func() types.RecordPayload { return &types.SummaryRecord{} },
	types.RecordTagOutput:           func() types.RecordPayload { return &types.OutputRecord{} },
	types.RecordTagConfig:           func() types.RecordPayload { return &types.ConfigRecord{} },
	types.RecordTagFiles:            func() types.RecordPayload { return &types.FilesRecord{} },
	types.RecordTagStats:            func() types.RecordPayload { return &types.StatsRecord{} },
	types.RecordTagArtifact:         func() types.RecordPayload { return &types.ArtifactRecord{} },
	types.RecordTagTensorboard:      func() types.RecordPayload { return &types.TensorboardRecord{} },
	types.RecordTagAlert:            func() types.RecordPayload { return &types.AlertRecord{} },
	types.RecordTagTelemetry:        func() types.RecordPayload { return &types.TelemetryRecord{} },
	types.RecordTagMetric:           func() types.RecordPayload { return &types.MetricRecord{} },
	types.RecordTagOutputRaw:        func() types.RecordPayload { return &types.OutputRawRecord{} },
	types.RecordTagRun:              func() types.RecordPayload { return &types.RunRecord{} },
	types.RecordTagExit:             func() types.RecordPayload { return &types.RunExitRecord{} },
	types.RecordTagFinal:            func() types.RecordPayload { return &types.FinalRecord{} },
	types.RecordTagHeader:           func() types.RecordPayload { return &types.HeaderRecord{} },
	types.RecordTagFooter:           func() types.RecordPayload { return &types.FooterRecord{} },
	types.RecordTagPreempting:       func() types.RecordPayload { return &types.RunPreemptingRecord{} },
	types.RecordTagLinkArtifact:     func() types.RecordPayload { return &types.LinkArtifactRecord{} },
	types.RecordTagUseArtifact:      func() types.RecordPayload { return &types.UseArtifactRecord{} },
	types.RecordTagConfigParameters: func() types.RecordPayload { return &types.ConfigParametersRecord{} },
}

var resultPayloads = map[uint32]func() types.ResultPayload{
	types.ResultTagRun:     func() types.ResultPayload { return &types.RunUpdateResult{} },
	types.ResultTagExit:    func() types.ResultPayload { return &types.RunExitResult{} },
	types.ResultTagLog:     func() types.ResultPayload { return &types.HistoryResult{} },
	types.ResultTagSummary: func() types.ResultPayload { return &types.SummaryResult{} },
	types.ResultTagOutput:  func() types.ResultPayload { return &types.OutputResult{} },
	types.ResultTagConfig:  func() types.ResultPayload { return &types.ConfigResult{} },
}

var requestPayloads = map[uint32]func() types.RequestPayload{
	types.RequestTagStopStatus:       func() types.RequestPayload { return &types.StopStatusRequest{} },
	types.RequestTagNetworkStatus:    func() types.RequestPayload { return &types.NetworkStatusRequest{} },
	types.RequestTagDefer:            func() types.RequestPayload { return &types.DeferRequest{} },
	types.RequestTagGetSummary:       func() types.RequestPayload { return &types.GetSummaryRequest{} },
	types.RequestTagLogin:            func() types.RequestPayload { return &types.LoginRequest{} },
	types.RequestTagPause:            func() types.RequestPayload { return &types.PauseRequest{} },
	types.RequestTagResume:           func() types.RequestPayload { return &types.ResumeRequest{} },
	types.RequestTagPollExit:         func() types.RequestPayload { return &types.PollExitRequest{} },
	types.RequestTagSampledHistory:   func() types.RequestPayload { return &types.SampledHistoryRequest{} },
	types.RequestTagPartialHistory:   func() types.RequestPayload { return &types.PartialHistoryRequest{} },
	types.RequestTagRunStart:         func() types.RequestPayload { return &types.RunStartRequest{} },
	types.RequestTagCheckVersion:     func() types.RequestPayload { return &types.CheckVersionRequest{} },
	types.RequestTagLogArtifact:      func() types.RequestPayload { return &types.LogArtifactRequest{} },
	types.RequestTagDownloadArtifact: func() types.RequestPayload { return &types.DownloadArtifactRequest{} },
	types.RequestTagKeepalive:        func() types.RequestPayload { return &types.KeepaliveRequest{} },
	types.RequestTagRunStatus:        func() types.RequestPayload { return &types.RunStatusRequest{} },
	types.RequestTagCancel:           func() types.RequestPayload { return &types.CancelRequest{} },
	types.RequestTagMetadata:         func() types.RequestPayload { return &types.MetadataRequest{} },
	types.RequestTagInternalMessages: func() types.RequestPayload { return &types.InternalMessagesRequest{} },
	types.RequestTagPythonPackages:   func() types.RequestPayload { return &types.PythonPackagesRequest{} },
	types.RequestTagShutdown:         func() types.RequestPayload { return &types.ShutdownRequest{} },
	types.RequestTagAttach:           func() types.RequestPayload { return &types.AttachRequest{} },
	types.RequestTagStatus:           func() types.RequestPayload { return &types.StatusRequest{} },
	types.RequestTagServerInfo:       func() types.RequestPayload { return &types.ServerInfoRequest{} },
	types.RequestTagSenderMark:       func() types.RequestPayload { return &types.SenderMarkRequest{} },
	types.RequestTagSenderRead:       func() types.RequestPayload { return &types.SenderReadRequest{} },
	types.RequestTagStatusReport:     func() types.RequestPayload { return &types.StatusReportRequest{} },
	types.RequestTagSummaryRecord:    func() types.RequestPayload { return &types.SummaryRecordRequest{} },
	types.RequestTagTelemetryRecord:  func() types.RequestPayload { return &types.TelemetryRecordRequest{} },
	types.RequestTagJobInfo:          func() types.RequestPayload { return &types.JobInfoRequest{} },
	types.RequestTagSystemMetrics:    func() types.RequestPayload { return &types.SystemMetricsRequest{} },
	types.RequestTagFileTransferInfo: func() types.RequestPayload { return &types.FileTransferInfoRequest{} },
	types.RequestTagSync:             func() types.RequestPayload { return &types.SyncRequest{} },
	types.RequestTagTestInject:       func() types.RequestPayload { return &types.TestInjectRequest{} },
}

var responsePayloads = map[uint32]func() types.ResponsePayload{
	types.ResponseTagKeepalive:        func() types.ResponsePayload { return &types.KeepaliveResponse{} },
	types.ResponseTagStopStatus:       func() types.ResponsePayload { return &types.StopStatusResponse{} },
	types.ResponseTagNetworkStatus:    func() types.ResponsePayload { return &types.NetworkStatusResponse{} },
	types.ResponseTagLogin:            func() types.ResponsePayload { return &types.LoginResponse{} },
	types.ResponseTagGetSummary:       func() types.ResponsePayload { return &types.GetSummaryResponse{} },
	types.ResponseTagPollExit:         func() types.ResponsePayload { return &types.PollExitResponse{} },
	types.ResponseTagSampledHistory:   func() types.ResponsePayload { return &types.SampledHistoryResponse{} },
	types.ResponseTagRunStart:         func() types.ResponsePayload { return &types.RunStartResponse{} },
	types.ResponseTagCheckVersion:     func() types.ResponsePayload { return &types.CheckVersionResponse{} },
	types.ResponseTagLogArtifact:      func() types.ResponsePayload { return &types.LogArtifactResponse{} },
	types.ResponseTagDownloadArtifact: func() types.ResponsePayload { return &types.DownloadArtifactResponse{} },
	types.ResponseTagRunStatus:        func() types.ResponsePayload { return &types.RunStatusResponse{} },
	types.ResponseTagCancel:           func() types.ResponsePayload { return &types.CancelResponse{} },
	types.ResponseTagInternalMessages: func() types.ResponsePayload { return &types.InternalMessagesResponse{} },
	types.ResponseTagShutdown:         func() types.ResponsePayload { return &types.ShutdownResponse{} },
	types.ResponseTagAttach:           func() types.ResponsePayload { return &types.AttachResponse{} },
	types.ResponseTagStatus:           func() types.ResponsePayload { return &types.StatusResponse{} },
	types.ResponseTagServerInfo:       func() types.ResponsePayload { return &types.ServerInfoResponse{} },
	types.ResponseTagJobInfo:          func() types.ResponsePayload { return &types.JobInfoResponse{} },
	types.ResponseTagSystemMetrics:    func() types.ResponsePayload { return &types.SystemMetricsResponse{} },
	types.ResponseTagSync:             func() types.ResponsePayload { return &types.SyncResponse{} },
	types.ResponseTagTestInject:       func() types.ResponsePayload { return &types.TestInjectResponse{} },
}

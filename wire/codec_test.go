package wire

import (
	"reflect"
	"testing"

	"github.com/tidemark-io/runwire/types"
)

func TestRecordRoundtripVariants(t *testing.T) {
	payloads := []types.RecordPayload{
		&types.HistoryRecord{Step: 7, Item: []types.HistoryItem{{Key: "loss", ValueJSON: "0.25"}}},
		&types.SummaryRecord{Update: []types.SummaryItem{{Key: "best", ValueJSON: "1"}}},
		&types.OutputRecord{OutputType: "stderr", Line: "warning\n"},
		&types.OutputRawRecord{OutputType: "stdout", Data: []byte{0x00, 0x01}},
		&types.ConfigRecord{Update: []types.ConfigItem{{Key: "lr", ValueJSON: "0.001"}}},
		&types.FilesRecord{Files: []types.FilesItem{{Path: "model.pt", Policy: "end"}}},
		&types.StatsRecord{TimestampMS: 1700000000000, Item: map[string]string{"cpu": "42.0"}},
		&types.ArtifactRecord{Name: "weights", Type: "model", Contents: []types.ArtifactManifestEntry{{Path: "w.bin", Digest: "abc", Size: 128}}},
		&types.LinkArtifactRecord{PortfolioName: "prod-models"},
		&types.UseArtifactRecord{ArtifactID: "art-1"},
		&types.TensorboardRecord{LogDir: "/tmp/tb", Save: true},
		&types.AlertRecord{Title: "diverged", Level: "ERROR"},
		&types.TelemetryRecord{CLIVersion: "0.9.1", Features: []string{"tensorboard"}},
		&types.MetricRecord{Name: "loss", StepMetric: "epoch"},
		&types.RunRecord{RunID: "r1", Project: "demo", Tags: []string{"a", "b"}},
		&types.RunExitRecord{ExitCode: 1, Runtime: 30},
		&types.RunPreemptingRecord{},
		&types.HeaderRecord{VersionInfo: &types.VersionInfo{Producer: "runwire 0.9.1", MinConsumer: "0.9.0"}},
		&types.FooterRecord{},
		&types.FinalRecord{},
		&types.ConfigParametersRecord{IncludePaths: []string{"train"}},
	}
	for _, p := range payloads {
		body, err := EncodeRecord(&types.Record{Num: 3, Payload: p})
		if err != nil {
			t.Fatalf("tag %d: encode: %v", p.RecordTag(), err)
		}
		got, err := DecodeRecord(body)
		if err != nil {
			t.Fatalf("tag %d: decode: %v", p.RecordTag(), err)
		}
		if got.Num != 3 {
			t.Errorf("tag %d: num = %d, want 3", p.RecordTag(), got.Num)
		}
		if !reflect.DeepEqual(got.Payload, p) {
			t.Errorf("tag %d: payload = %+v, want %+v", p.RecordTag(), got.Payload, p)
		}
	}
}

func TestRecordEnvelopeFields(t *testing.T) {
	in := &types.Record{
		Num: 42,
		Control: &types.Control{
			ReqResp:      true,
			Local:        true,
			MailboxSlot:  "slot-1",
			FlowControl:  true,
			EndOffset:    4096,
			ConnectionID: "conn-9",
		},
		UUID:    "dedupe-7",
		Info:    &types.RecordInfo{StreamID: "run-abc", TracelogID: "t-1"},
		Payload: &types.HistoryRecord{Step: 1},
	}
	body, err := EncodeRecord(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeRecord(body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(got, in) {
		t.Fatalf("roundtrip mismatch:\n got %+v\nwant %+v", got, in)
	}
	if !got.WantsResponse() || !got.IsLocal() {
		t.Error("control flags lost in transit")
	}
	if got.StreamIDOf() != "run-abc" {
		t.Errorf("stream id = %q, want run-abc", got.StreamIDOf())
	}
}

func TestRecordRequestNesting(t *testing.T) {
	cases := []types.RequestPayload{
		&types.StopStatusRequest{},
		&types.DeferRequest{State: types.DeferFlushRun},
		&types.StatusReportRequest{RecordNum: 10, SentOffset: 8192},
		&types.SenderReadRequest{StartOffset: 0, FinalOffset: 4096},
		&types.RunStartRequest{Run: &types.RunRecord{RunID: "r2"}},
	}
	for _, p := range cases {
		in := &types.Record{Payload: &types.Request{Payload: p}}
		body, err := EncodeRecord(in)
		if err != nil {
			t.Fatalf("request tag %d: encode: %v", p.RequestTag(), err)
		}
		got, err := DecodeRecord(body)
		if err != nil {
			t.Fatalf("request tag %d: decode: %v", p.RequestTag(), err)
		}
		req, ok := got.Payload.(*types.Request)
		if !ok {
			t.Fatalf("request tag %d: payload is %T", p.RequestTag(), got.Payload)
		}
		if !reflect.DeepEqual(req.Payload, p) {
			t.Errorf("request tag %d: payload = %+v, want %+v", p.RequestTag(), req.Payload, p)
		}
	}
}

func TestResultRoundtrip(t *testing.T) {
	in := &types.Result{
		Control: &types.Control{MailboxSlot: "slot-2", AlwaysSend: true},
		UUID:    "u-1",
		Info:    &types.ResultInfo{StreamID: "run-abc"},
		Payload: &types.RunUpdateResult{Run: &types.RunRecord{RunID: "r1", DisplayName: "demo"}},
	}
	body, err := EncodeResult(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeResult(body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(got, in) {
		t.Fatalf("roundtrip mismatch:\n got %+v\nwant %+v", got, in)
	}
	if got.MailboxSlotOf() != "slot-2" {
		t.Errorf("mailbox slot = %q, want slot-2", got.MailboxSlotOf())
	}
}

func TestResultResponseNesting(t *testing.T) {
	in := &types.Result{
		Control: &types.Control{MailboxSlot: "slot-3"},
		Payload: &types.Response{Payload: &types.StopStatusResponse{RunShouldStop: true}},
	}
	body, err := EncodeResult(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeResult(body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp, ok := got.Payload.(*types.Response)
	if !ok {
		t.Fatalf("payload is %T, want *types.Response", got.Payload)
	}
	ss, ok := resp.Payload.(*types.StopStatusResponse)
	if !ok {
		t.Fatalf("response payload is %T", resp.Payload)
	}
	if !ss.RunShouldStop {
		t.Error("run_should_stop lost in transit")
	}
}

func TestDecodeRecordNoPayload(t *testing.T) {
	body := appendVarintField(nil, types.RecordFieldNum, 5)
	_, err := DecodeRecord(body)
	de, ok := err.(*DecodeError)
	if !ok || de.Kind != DecodeErrorNoPayload {
		t.Fatalf("err = %v, want no_payload decode error", err)
	}
}

func TestDecodeRecordMultiplePayload(t *testing.T) {
	body, err := EncodeRecord(&types.Record{Payload: &types.HistoryRecord{Step: 1}})
	if err != nil {
		t.Fatal(err)
	}
	extra, err := EncodeRecord(&types.Record{Payload: &types.SummaryRecord{}})
	if err != nil {
		t.Fatal(err)
	}
	_, err = DecodeRecord(append(body, extra...))
	de, ok := err.(*DecodeError)
	if !ok || de.Kind != DecodeErrorMultiplePayload {
		t.Fatalf("err = %v, want multiple_payload decode error", err)
	}
}

func TestEncodeRecordNilPayload(t *testing.T) {
	if _, err := EncodeRecord(&types.Record{Num: 1}); err == nil {
		t.Fatal("expected error for nil payload")
	}
}

func TestUnknownRecordVariant(t *testing.T) {
	// A variant from the future: tag 150 with opaque bytes, plus routing info.
	raw := []byte{0xde, 0xad, 0xbe, 0xef}
	body := appendBytesField(nil, 150, raw)
	var err error
	body, err = appendMessageField(body, types.RecordFieldInfo, &types.RecordInfo{StreamID: "run-x"})
	if err != nil {
		t.Fatal(err)
	}

	got, err := DecodeRecord(body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	up, ok := got.Payload.(*types.UnknownRecordPayload)
	if !ok {
		t.Fatalf("payload is %T, want *types.UnknownRecordPayload", got.Payload)
	}
	if up.Tag != 150 || !reflect.DeepEqual(up.Raw, raw) {
		t.Errorf("unknown payload = %+v, want tag 150 raw %x", up, raw)
	}
	if got.StreamIDOf() != "run-x" {
		t.Errorf("stream id = %q, want run-x", got.StreamIDOf())
	}

	// Re-encoding preserves the bytes for relay.
	reenc, err := EncodeRecord(got)
	if err != nil {
		t.Fatalf("re-encode: %v", err)
	}
	again, err := DecodeRecord(reenc)
	if err != nil {
		t.Fatalf("re-decode: %v", err)
	}
	if !reflect.DeepEqual(again.Payload, up) {
		t.Errorf("relay roundtrip changed payload: %+v", again.Payload)
	}
}

func TestUnknownRequestVariant(t *testing.T) {
	inner := appendBytesField(nil, 9999, []byte{0x01})
	body := appendBytesField(nil, types.RecordTagRequest, inner)
	got, err := DecodeRecord(body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	req := got.Payload.(*types.Request)
	up, ok := req.Payload.(*types.UnknownRequestPayload)
	if !ok {
		t.Fatalf("request payload is %T", req.Payload)
	}
	if up.Tag != 9999 {
		t.Errorf("tag = %d, want 9999", up.Tag)
	}
}

func TestDecodeSkipsUnknownVarintFields(t *testing.T) {
	body := appendVarintField(nil, 180, 12345) // unknown scalar, not a payload
	var err error
	body, err = appendMessageField(body, types.RecordTagHistory, &types.HistoryRecord{Step: 2})
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeRecord(body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	h, ok := got.Payload.(*types.HistoryRecord)
	if !ok || h.Step != 2 {
		t.Fatalf("payload = %+v, want history step 2", got.Payload)
	}
}

func TestDecodeTruncatedBody(t *testing.T) {
	body, err := EncodeRecord(&types.Record{
		Info:    &types.RecordInfo{StreamID: "run-abc"},
		Payload: &types.HistoryRecord{Step: 3},
	})
	if err != nil {
		t.Fatal(err)
	}
	_, err = DecodeRecord(body[:len(body)-2])
	if !IsDecodeError(err) {
		t.Fatalf("err = %v, want decode error", err)
	}
	de := err.(*DecodeError)
	if de.Kind != DecodeErrorTruncated {
		t.Errorf("kind = %v, want truncated", de.Kind)
	}
}

func TestDecodeBadWiretype(t *testing.T) {
	// Wiretype 5 (fixed32) is not part of this protocol.
	body := []byte{byte(2<<3 | 5), 0, 0, 0, 0}
	_, err := DecodeRecord(body)
	de, ok := err.(*DecodeError)
	if !ok || de.Kind != DecodeErrorBadKey {
		t.Fatalf("err = %v, want bad_key decode error", err)
	}
}

func TestPeekInfo(t *testing.T) {
	body, err := EncodeRecord(&types.Record{
		Num:     9,
		Info:    &types.RecordInfo{StreamID: "run-abc", TracelogID: "t-2"},
		Payload: &types.HistoryRecord{Step: 5},
	})
	if err != nil {
		t.Fatal(err)
	}
	info, err := PeekInfo(body)
	if err != nil {
		t.Fatalf("peek: %v", err)
	}
	if info == nil || info.StreamID != "run-abc" || info.TracelogID != "t-2" {
		t.Fatalf("info = %+v, want stream run-abc tracelog t-2", info)
	}
}

func TestPeekInfoIgnoresPayloadBytes(t *testing.T) {
	// Payload bytes that are not valid msgpack must not break the peek.
	body := appendBytesField(nil, types.RecordTagHistory, []byte{0xc1, 0xc1, 0xc1})
	var err error
	body, err = appendMessageField(body, types.RecordFieldInfo, &types.RecordInfo{StreamID: "run-y"})
	if err != nil {
		t.Fatal(err)
	}
	info, err := PeekInfo(body)
	if err != nil {
		t.Fatalf("peek: %v", err)
	}
	if info == nil || info.StreamID != "run-y" {
		t.Fatalf("info = %+v, want stream run-y", info)
	}
}

func TestPeekInfoAbsent(t *testing.T) {
	body, err := EncodeRecord(&types.Record{Payload: &types.FooterRecord{}})
	if err != nil {
		t.Fatal(err)
	}
	info, err := PeekInfo(body)
	if err != nil {
		t.Fatalf("peek: %v", err)
	}
	if info != nil {
		t.Fatalf("info = %+v, want nil for bodies without a routing slot", info)
	}
}

func BenchmarkEncodeDecodeHistory(b *testing.B) {
	rec := &types.Record{
		Num:     1,
		Control: &types.Control{FlowControl: true},
		Info:    &types.RecordInfo{StreamID: "run-bench"},
		Payload: &types.HistoryRecord{
			Step: 100,
			Item: []types.HistoryItem{
				{Key: "loss", ValueJSON: "0.125"},
				{Key: "acc", ValueJSON: "0.97"},
			},
		},
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		body, err := EncodeRecord(rec)
		if err != nil {
			b.Fatal(err)
		}
		if _, err := DecodeRecord(body); err != nil {
			b.Fatal(err)
		}
	}
}

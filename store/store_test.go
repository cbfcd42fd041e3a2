package store

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/tidemark-io/runwire/iox"
	"github.com/tidemark-io/runwire/types"
)

func logPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "run.wire")
}

func writeLog(t *testing.T, path string, payloads ...types.RecordPayload) []int64 {
	t.Helper()
	w, err := CreateWriter(path, WriterOptions{})
	if err != nil {
		t.Fatal(err)
	}
	var offsets []int64
	for i, p := range payloads {
		end, err := w.Write(&types.Record{Num: int64(i + 1), Payload: p})
		if err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
		offsets = append(offsets, end)
	}
	if err := w.WriteFooter(); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return offsets
}

func TestWriteAndReplay(t *testing.T) {
	path := logPath(t)
	writeLog(t, path,
		&types.RunRecord{RunID: "r1"},
		&types.HistoryRecord{Step: 1},
		&types.HistoryRecord{Step: 2},
		&types.RunExitRecord{ExitCode: 0},
	)

	r, err := OpenReader(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(iox.CloseFunc(r))

	// First record is the header written by CreateWriter.
	first, err := r.Read()
	if err != nil {
		t.Fatal(err)
	}
	h, ok := first.Payload.(*types.HeaderRecord)
	if !ok {
		t.Fatalf("first record is %T, want header", first.Payload)
	}
	if h.VersionInfo == nil || h.VersionInfo.Producer == "" {
		t.Error("header missing version info")
	}

	var kinds []uint32
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		kinds = append(kinds, rec.Payload.RecordTag())
	}
	want := []uint32{
		types.RecordTagRun, types.RecordTagHistory, types.RecordTagHistory,
		types.RecordTagExit, types.RecordTagFooter,
	}
	if len(kinds) != len(want) {
		t.Fatalf("replayed %d records, want %d", len(kinds), len(want))
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("record %d: tag %d, want %d", i, kinds[i], want[i])
		}
	}
}

func TestEndOffsetStamp(t *testing.T) {
	path := logPath(t)
	w, err := CreateWriter(path, WriterOptions{})
	if err != nil {
		t.Fatal(err)
	}

	rec := &types.Record{Num: 1, Payload: &types.HistoryRecord{Step: 1}}
	end, err := w.Write(rec)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Control == nil || rec.Control.EndOffset != end {
		t.Fatalf("stamped end offset %v, writer reported %d", rec.Control, end)
	}
	if end != w.Offset() {
		t.Errorf("writer offset %d, want %d", w.Offset(), end)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	// The persisted bytes carry the same stamp.
	r, err := OpenReader(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(iox.CloseFunc(r))
	if _, err := r.Read(); err != nil { // header
		t.Fatal(err)
	}
	got, err := r.Read()
	if err != nil {
		t.Fatal(err)
	}
	if got.Control == nil || got.Control.EndOffset != end {
		t.Errorf("persisted stamp = %+v, want end offset %d", got.Control, end)
	}
	if r.Offset() != end {
		t.Errorf("reader offset %d after record, want %d", r.Offset(), end)
	}
}

func TestLocalRecordsExcluded(t *testing.T) {
	path := logPath(t)
	w, err := CreateWriter(path, WriterOptions{})
	if err != nil {
		t.Fatal(err)
	}
	before := w.Offset()
	end, err := w.Write(&types.Record{
		Control: &types.Control{Local: true},
		Payload: &types.Request{Payload: &types.StatusReportRequest{RecordNum: 1}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if end != before {
		t.Errorf("local record advanced offset %d -> %d", before, end)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	r, err := OpenReader(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(iox.CloseFunc(r))
	if _, err := r.Read(); err != nil { // header
		t.Fatal(err)
	}
	if _, err := r.Read(); err != io.EOF {
		t.Fatalf("err = %v, want EOF after header only", err)
	}
}

func TestOpenReaderAtStampedOffset(t *testing.T) {
	path := logPath(t)
	offsets := writeLog(t, path,
		&types.HistoryRecord{Step: 1},
		&types.HistoryRecord{Step: 2},
		&types.HistoryRecord{Step: 3},
	)

	// Resume reading right after the second history record.
	r, err := OpenReaderAt(path, offsets[1])
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(iox.CloseFunc(r))

	rec, err := r.Read()
	if err != nil {
		t.Fatal(err)
	}
	hist, ok := rec.Payload.(*types.HistoryRecord)
	if !ok || hist.Step != 3 {
		t.Fatalf("resumed at %+v, want history step 3", rec.Payload)
	}
}

func TestScanWindow(t *testing.T) {
	path := logPath(t)
	offsets := writeLog(t, path,
		&types.HistoryRecord{Step: 1},
		&types.HistoryRecord{Step: 2},
		&types.HistoryRecord{Step: 3},
	)

	var steps []int64
	err := Scan(path, offsets[0], offsets[2], func(rec *types.Record) error {
		if h, ok := rec.Payload.(*types.HistoryRecord); ok {
			steps = append(steps, h.Step)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(steps) != 2 || steps[0] != 2 || steps[1] != 3 {
		t.Errorf("scanned steps %v, want [2 3]", steps)
	}
}

func TestAppendAfterResume(t *testing.T) {
	path := logPath(t)
	w, err := CreateWriter(path, WriterOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write(&types.Record{Num: 1, Payload: &types.HistoryRecord{Step: 1}}); err != nil {
		t.Fatal(err)
	}
	resumeAt := w.Offset()
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	w2, err := OpenWriterAt(path, resumeAt, WriterOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w2.Write(&types.Record{Num: 2, Payload: &types.HistoryRecord{Step: 2}}); err != nil {
		t.Fatal(err)
	}
	if err := w2.Close(); err != nil {
		t.Fatal(err)
	}

	var steps []int64
	if err := Scan(path, 0, 0, func(rec *types.Record) error {
		if h, ok := rec.Payload.(*types.HistoryRecord); ok {
			steps = append(steps, h.Step)
		}
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if len(steps) != 2 || steps[0] != 1 || steps[1] != 2 {
		t.Errorf("steps after resume = %v, want [1 2]", steps)
	}
}

func TestCreateWriterRefusesExisting(t *testing.T) {
	path := logPath(t)
	writeLog(t, path, &types.HistoryRecord{Step: 1})
	if _, err := CreateWriter(path, WriterOptions{}); err == nil {
		t.Fatal("expected error creating over an existing log")
	}
}

func TestWriteAfterClose(t *testing.T) {
	path := logPath(t)
	w, err := CreateWriter(path, WriterOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write(&types.Record{Payload: &types.FinalRecord{}}); err != ErrClosed {
		t.Fatalf("err = %v, want ErrClosed", err)
	}
}

package types

import (
	"bytes"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

func TestDeferStateOrder(t *testing.T) {
	want := []DeferState{
		DeferBegin, DeferFlushRun, DeferFlushStats, DeferFlushPartialHistory,
		DeferFlushTB, DeferFlushSum, DeferFlushDebouncer, DeferFlushOutput,
		DeferFlushJob, DeferFlushDir, DeferFlushFP, DeferJoinFP,
		DeferFlushFS, DeferFlushFinal, DeferEnd,
	}
	s := DeferBegin
	for i, w := range want {
		if s != w {
			t.Fatalf("state %d: got %v, want %v", i, s, w)
		}
		s = s.Next()
	}
	// Terminal state absorbs Next
	if got := DeferEnd.Next(); got != DeferEnd {
		t.Errorf("End.Next() = %v, want End", got)
	}
}

func TestDeferStateValid(t *testing.T) {
	if DeferState(-1).Valid() {
		t.Error("negative state reported valid")
	}
	if DeferState(15).Valid() {
		t.Error("state 15 reported valid")
	}
	if !DeferBegin.Valid() || !DeferEnd.Valid() {
		t.Error("enumeration bounds reported invalid")
	}
}

func TestDeferRequestRoundtrip(t *testing.T) {
	in := &DeferRequest{State: DeferFlushFS}
	b, err := msgpack.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out DeferRequest
	if err := msgpack.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.State != DeferFlushFS {
		t.Fatalf("state = %v, want %v", out.State, DeferFlushFS)
	}
}

func TestDeferRequestRejectsOutOfRange(t *testing.T) {
	// Hand-build {"state": 99} — decoders must reject, not clamp.
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	if err := enc.EncodeMapLen(1); err != nil {
		t.Fatal(err)
	}
	if err := enc.EncodeString("state"); err != nil {
		t.Fatal(err)
	}
	if err := enc.EncodeInt32(99); err != nil {
		t.Fatal(err)
	}
	var out DeferRequest
	if err := msgpack.Unmarshal(buf.Bytes(), &out); err == nil {
		t.Fatal("expected out-of-range decode error, got nil")
	}
}

func TestDeferRequestRejectsEncodingInvalid(t *testing.T) {
	in := &DeferRequest{State: DeferState(42)}
	if _, err := msgpack.Marshal(in); err == nil {
		t.Fatal("expected encode error for invalid state")
	}
}

func TestControlDefaults(t *testing.T) {
	r := &Record{Payload: &HistoryRecord{Step: 1}}
	if r.WantsResponse() {
		t.Error("nil control should not request a response")
	}
	if r.IsLocal() {
		t.Error("nil control should not be local")
	}
	c := r.EnsureControl()
	if c == nil || r.Control != c {
		t.Fatal("EnsureControl did not attach a control block")
	}
	c.ReqResp = true
	if !r.WantsResponse() {
		t.Error("WantsResponse after setting req_resp")
	}
}

package router

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/tidemark-io/runwire/types"
)

type recordingHandler struct {
	mu   sync.Mutex
	nums []int64
}

func (h *recordingHandler) HandleRecord(_ context.Context, rec *types.Record) error {
	h.mu.Lock()
	h.nums = append(h.nums, rec.Num)
	h.mu.Unlock()
	return nil
}

func infoRecord(streamID string, num int64) *types.Record {
	return &types.Record{
		Num:     num,
		Info:    &types.RecordInfo{StreamID: streamID},
		Payload: &types.HistoryRecord{Step: num},
	}
}

func TestRouteByStreamID(t *testing.T) {
	r := New(nil, nil)
	a := &recordingHandler{}
	b := &recordingHandler{}
	if err := r.Register("run-a", a); err != nil {
		t.Fatal(err)
	}
	if err := r.Register("run-b", b); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	for i, id := range []string{"run-a", "run-b", "run-a"} {
		if err := r.Route(ctx, infoRecord(id, int64(i+1))); err != nil {
			t.Fatalf("route %d: %v", i, err)
		}
	}

	if !reflect.DeepEqual(a.nums, []int64{1, 3}) {
		t.Errorf("stream a got %v, want [1 3]", a.nums)
	}
	if !reflect.DeepEqual(b.nums, []int64{2}) {
		t.Errorf("stream b got %v, want [2]", b.nums)
	}
}

func TestRouteByRelayIDFallback(t *testing.T) {
	r := New(nil, nil)
	h := &recordingHandler{}
	if err := r.Register("run-relay", h); err != nil {
		t.Fatal(err)
	}

	rec := &types.Record{
		Num:     7,
		Control: &types.Control{RelayID: "run-relay"},
		Payload: &types.HistoryRecord{},
	}
	if err := r.Route(context.Background(), rec); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(h.nums, []int64{7}) {
		t.Errorf("handler got %v, want [7]", h.nums)
	}
}

func TestRouteUnknownStreamDropped(t *testing.T) {
	r := New(nil, nil)
	err := r.Route(context.Background(), infoRecord("never-registered", 1))
	if !IsRoutingError(err) {
		t.Fatalf("err = %v, want routing error", err)
	}
	re := err.(*RoutingError)
	if re.StreamID != "never-registered" {
		t.Errorf("stream id = %q", re.StreamID)
	}
}

func TestRouteMissingStreamIDDropped(t *testing.T) {
	r := New(nil, nil)
	err := r.Route(context.Background(), &types.Record{Num: 9, Payload: &types.HistoryRecord{}})
	re, ok := err.(*RoutingError)
	if !ok || re.StreamID != "" {
		t.Fatalf("err = %v, want routing error without stream id", err)
	}
}

func TestRegisterDuplicateRejected(t *testing.T) {
	r := New(nil, nil)
	if err := r.Register("run-a", &recordingHandler{}); err != nil {
		t.Fatal(err)
	}
	err := r.Register("run-a", &recordingHandler{})
	if !errors.Is(err, ErrDuplicateStream) {
		t.Fatalf("err = %v, want ErrDuplicateStream", err)
	}
}

func TestDeregister(t *testing.T) {
	r := New(nil, nil)
	if err := r.Register("run-a", &recordingHandler{}); err != nil {
		t.Fatal(err)
	}
	r.Deregister("run-a")
	if err := r.Route(context.Background(), infoRecord("run-a", 1)); !IsRoutingError(err) {
		t.Fatalf("err = %v, want routing error after deregister", err)
	}
	if r.Len() != 0 {
		t.Errorf("len = %d, want 0", r.Len())
	}
}

func TestStreamsSorted(t *testing.T) {
	r := New(nil, nil)
	for _, id := range []string{"run-c", "run-a", "run-b"} {
		if err := r.Register(id, &recordingHandler{}); err != nil {
			t.Fatal(err)
		}
	}
	got := r.Streams()
	want := []string{"run-a", "run-b", "run-c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("streams = %v, want %v", got, want)
	}
}

func TestHandlerErrorPropagates(t *testing.T) {
	r := New(nil, nil)
	boom := errors.New("handler failure")
	if err := r.Register("run-a", handlerFunc(func(context.Context, *types.Record) error {
		return boom
	})); err != nil {
		t.Fatal(err)
	}
	if err := r.Route(context.Background(), infoRecord("run-a", 1)); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want handler failure", err)
	}
}

type handlerFunc func(context.Context, *types.Record) error

func (f handlerFunc) HandleRecord(ctx context.Context, rec *types.Record) error {
	return f(ctx, rec)
}

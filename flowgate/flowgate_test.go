package flowgate

import (
	"context"
	"testing"
	"time"

	"github.com/tidemark-io/runwire/types"
)

func mustGate(t *testing.T, opts Options) *Gate {
	t.Helper()
	g, err := New(opts)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func TestAdmitPassesUnderHighWatermark(t *testing.T) {
	g := mustGate(t, Options{HighWatermark: 100, LowWatermark: 50})
	g.MarkSent(99)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := g.Admit(ctx); err != nil {
		t.Fatalf("admit under watermark: %v", err)
	}
}

func TestAdmitBlocksUntilDrainedBelowLow(t *testing.T) {
	g := mustGate(t, Options{HighWatermark: 100, LowWatermark: 50})
	g.MarkSent(200)

	admitted := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		admitted <- g.Admit(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	if !g.Blocked() {
		t.Fatal("gate not blocked above high watermark")
	}

	// Draining to 120 in-flight (above low) must not release the sender.
	g.MarkRead(80)
	select {
	case err := <-admitted:
		t.Fatalf("admitted with %d in-flight (err=%v), want still blocked", g.Inflight(), err)
	case <-time.After(20 * time.Millisecond):
	}

	// Draining to 40 in-flight (below low) releases it.
	g.MarkRead(160)
	select {
	case err := <-admitted:
		if err != nil {
			t.Fatalf("admit after drain: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("sender not released after drain below low watermark")
	}
	if g.Blocked() {
		t.Error("gate still reports blocked after release")
	}
}

func TestAdmitHonorsContext(t *testing.T) {
	g := mustGate(t, Options{HighWatermark: 100, LowWatermark: 50})
	g.MarkSent(1000)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := g.Admit(ctx); err != context.DeadlineExceeded {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}

func TestDisableReleasesBlockedSender(t *testing.T) {
	g := mustGate(t, Options{HighWatermark: 100, LowWatermark: 50})
	g.MarkSent(1000)

	admitted := make(chan error, 1)
	go func() {
		admitted <- g.Admit(context.Background())
	}()

	time.Sleep(20 * time.Millisecond)
	g.Disable()

	select {
	case err := <-admitted:
		if err != nil {
			t.Fatalf("admit after disable: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("sender not released by disable")
	}
}

func TestDisabledGateIsPassThrough(t *testing.T) {
	g := mustGate(t, Options{HighWatermark: 100, LowWatermark: 50, Disabled: true})
	g.MarkSent(1 << 30)
	if err := g.Admit(context.Background()); err != nil {
		t.Fatalf("admit on disabled gate: %v", err)
	}
}

func TestMarkReadIgnoresStaleOffsets(t *testing.T) {
	g := mustGate(t, Options{HighWatermark: 100, LowWatermark: 50})
	g.MarkSent(500)
	g.MarkRead(400)
	g.MarkRead(300) // stale report, out of order on the wire
	if got := g.Inflight(); got != 100 {
		t.Errorf("inflight = %d, want 100", got)
	}
}

func TestNewRejectsInvertedWatermarks(t *testing.T) {
	if _, err := New(Options{HighWatermark: 50, LowWatermark: 50}); err == nil {
		t.Fatal("expected error for low >= high")
	}
}

func TestShouldPace(t *testing.T) {
	cases := []struct {
		name string
		rec  *types.Record
		want bool
	}{
		{"nil control", &types.Record{}, false},
		{"flow controlled", &types.Record{Control: &types.Control{FlowControl: true}}, true},
		{"always send bypass", &types.Record{Control: &types.Control{FlowControl: true, AlwaysSend: true}}, false},
		{"not flow controlled", &types.Record{Control: &types.Control{}}, false},
	}
	for _, tc := range cases {
		if got := ShouldPace(tc.rec); got != tc.want {
			t.Errorf("%s: ShouldPace = %v, want %v", tc.name, got, tc.want)
		}
	}
}

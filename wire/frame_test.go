package wire

import (
	"bytes"
	"io"
	"testing"
)

func TestFrameRoundtrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewFrameWriter(&buf, 0)

	bodies := [][]byte{
		[]byte("first"),
		{},
		[]byte("third body"),
	}
	var wantOffset int64
	for _, b := range bodies {
		end, err := w.WriteBody(b)
		if err != nil {
			t.Fatalf("write: %v", err)
		}
		wantOffset += FrameSize(b)
		if end != wantOffset {
			t.Fatalf("end offset = %d, want %d", end, wantOffset)
		}
	}

	r := NewFrameReader(&buf)
	for i, want := range bodies {
		got, err := r.ReadBody()
		if err != nil {
			t.Fatalf("read %d: %v", i, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("read %d = %q, want %q", i, got, want)
		}
	}
	if r.Offset() != wantOffset {
		t.Errorf("reader offset = %d, want %d", r.Offset(), wantOffset)
	}
	if _, err := r.ReadBody(); err != io.EOF {
		t.Errorf("err = %v, want io.EOF at clean end", err)
	}
}

func TestFrameWriterResumeOffset(t *testing.T) {
	var buf bytes.Buffer
	w := NewFrameWriter(&buf, 1024)
	end, err := w.WriteBody([]byte("abc"))
	if err != nil {
		t.Fatal(err)
	}
	if want := int64(1024) + FrameSize([]byte("abc")); end != want {
		t.Errorf("end offset = %d, want %d", end, want)
	}
}

func TestFrameReaderPartialPrefix(t *testing.T) {
	r := NewFrameReader(bytes.NewReader([]byte{0x00, 0x00}))
	_, err := r.ReadBody()
	fe, ok := err.(*FrameError)
	if !ok || fe.Kind != FrameErrorPartial {
		t.Fatalf("err = %v, want partial frame error", err)
	}
}

func TestFrameReaderPartialBody(t *testing.T) {
	frame := AppendFrame(nil, []byte("truncated body"))
	r := NewFrameReader(bytes.NewReader(frame[:len(frame)-3]))
	_, err := r.ReadBody()
	fe, ok := err.(*FrameError)
	if !ok || fe.Kind != FrameErrorPartial {
		t.Fatalf("err = %v, want partial frame error", err)
	}
}

func TestFrameReaderTooLarge(t *testing.T) {
	prefix := []byte{0xff, 0xff, 0xff, 0xff}
	r := NewFrameReader(bytes.NewReader(prefix))
	_, err := r.ReadBody()
	fe, ok := err.(*FrameError)
	if !ok || fe.Kind != FrameErrorTooLarge {
		t.Fatalf("err = %v, want too-large frame error", err)
	}
	if !IsFrameError(err) {
		t.Error("IsFrameError = false for *FrameError")
	}
}

func TestFrameWriterRejectsOversize(t *testing.T) {
	w := NewFrameWriter(io.Discard, 0)
	_, err := w.WriteBody(make([]byte, MaxBodySize+1))
	fe, ok := err.(*FrameError)
	if !ok || fe.Kind != FrameErrorTooLarge {
		t.Fatalf("err = %v, want too-large frame error", err)
	}
}

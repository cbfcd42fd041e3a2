package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Frame size constants. A frame is a 4-byte big-endian length prefix
// followed by an envelope body of exactly that many bytes.
const (
	// MaxFrameSize is the maximum frame size (16 MiB), including prefix.
	MaxFrameSize = 16 * 1024 * 1024
	// MaxBodySize is the maximum envelope body size.
	MaxBodySize = MaxFrameSize - LengthPrefixSize
	// LengthPrefixSize is the size of the length prefix in bytes.
	LengthPrefixSize = 4
)

// FrameErrorKind classifies frame-level errors.
type FrameErrorKind int

const (
	// FrameErrorPartial indicates a truncated or incomplete frame.
	FrameErrorPartial FrameErrorKind = iota
	// FrameErrorTooLarge indicates a frame exceeding MaxFrameSize.
	FrameErrorTooLarge
)

// FrameError represents a frame reading error. Unlike body decode errors,
// frame errors mean the byte stream itself has lost sync and the session
// cannot continue.
type FrameError struct {
	Kind FrameErrorKind
	Msg  string
	Err  error
}

func (e *FrameError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *FrameError) Unwrap() error { return e.Err }

// IsFrameError reports whether err is a frame-level error.
func IsFrameError(err error) bool {
	var fe *FrameError
	return errors.As(err, &fe)
}

// FrameReader reads length-prefixed envelope bodies from an ordered byte
// stream. Reading never suspends beyond the underlying reader; decoding the
// body is the caller's concern.
type FrameReader struct {
	r      io.Reader
	offset int64
}

// NewFrameReader creates a frame reader positioned at offset zero.
func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{r: r}
}

// Offset returns the byte offset immediately after the last frame read.
func (d *FrameReader) Offset() int64 { return d.offset }

// ReadBody reads one frame and returns its body bytes.
//
// Errors:
//   - io.EOF: stream ended cleanly on a frame boundary
//   - *FrameError with Kind=FrameErrorPartial: incomplete frame
//   - *FrameError with Kind=FrameErrorTooLarge: frame exceeds limit
func (d *FrameReader) ReadBody() ([]byte, error) {
	var prefix [LengthPrefixSize]byte
	if _, err := io.ReadFull(d.r, prefix[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, &FrameError{
			Kind: FrameErrorPartial,
			Msg:  "failed to read length prefix",
			Err:  err,
		}
	}

	size := binary.BigEndian.Uint32(prefix[:])
	if size > MaxBodySize {
		return nil, &FrameError{
			Kind: FrameErrorTooLarge,
			Msg:  fmt.Sprintf("body size %d exceeds maximum %d", size, MaxBodySize),
		}
	}

	body := make([]byte, size)
	if _, err := io.ReadFull(d.r, body); err != nil {
		return nil, &FrameError{
			Kind: FrameErrorPartial,
			Msg:  "failed to read body",
			Err:  err,
		}
	}

	d.offset += int64(LengthPrefixSize) + int64(size)
	return body, nil
}

// FrameWriter writes length-prefixed envelope bodies to an ordered byte
// stream and tracks the running end offset for durable-log stamping.
type FrameWriter struct {
	w      io.Writer
	offset int64
}

// NewFrameWriter creates a frame writer positioned at the given offset
// (non-zero when appending to an existing log).
func NewFrameWriter(w io.Writer, offset int64) *FrameWriter {
	return &FrameWriter{w: w, offset: offset}
}

// Offset returns the byte offset immediately after the last frame written.
func (e *FrameWriter) Offset() int64 { return e.offset }

// WriteBody writes body as one frame and returns the end offset after it.
func (e *FrameWriter) WriteBody(body []byte) (int64, error) {
	if len(body) > MaxBodySize {
		return e.offset, &FrameError{
			Kind: FrameErrorTooLarge,
			Msg:  fmt.Sprintf("body size %d exceeds maximum %d", len(body), MaxBodySize),
		}
	}
	frame := AppendFrame(make([]byte, 0, LengthPrefixSize+len(body)), body)
	if _, err := e.w.Write(frame); err != nil {
		return e.offset, err
	}
	e.offset += int64(len(frame))
	return e.offset, nil
}

// AppendFrame appends the length prefix and body to dst.
func AppendFrame(dst, body []byte) []byte {
	var prefix [LengthPrefixSize]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(body)))
	dst = append(dst, prefix[:]...)
	return append(dst, body...)
}

// FrameSize returns the on-wire size of a frame carrying body.
func FrameSize(body []byte) int64 {
	return int64(LengthPrefixSize + len(body))
}

// Package store persists the record stream as a replayable append-only log.
//
// The log is a sequence of frames (see the wire package), opened by a header
// record and closed by a footer record. Every persisted record gets its
// end-of-frame byte offset stamped into its control block before the frame is
// written, so status reports and resumed syncs can address log positions
// without a separate index.
package store

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/tidemark-io/runwire/iox"
	"github.com/tidemark-io/runwire/log"
	"github.com/tidemark-io/runwire/metrics"
	"github.com/tidemark-io/runwire/types"
	"github.com/tidemark-io/runwire/wire"
)

// ErrClosed is returned by operations on a closed writer or reader.
var ErrClosed = errors.New("store: closed")

// Writer appends records to a durable log file. Safe for use by a single
// goroutine; the stream handler serializes writes.
type Writer struct {
	mu      sync.Mutex
	f       *os.File
	fw      *wire.FrameWriter
	closed  bool
	logger  *log.Logger
	metrics *metrics.Collector
}

// WriterOptions configures a log writer.
type WriterOptions struct {
	Logger  *log.Logger
	Metrics *metrics.Collector
}

// CreateWriter creates the log file at path and writes the header record.
// The file must not already exist; logs are never overwritten in place.
func CreateWriter(path string, opts WriterOptions) (*Writer, error) {
	if opts.Logger == nil {
		opts.Logger = log.NewNop()
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("store: create %s: %w", path, err)
	}
	w := &Writer{
		f:       f,
		fw:      wire.NewFrameWriter(f, 0),
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
	header := &types.Record{
		Payload: &types.HeaderRecord{
			VersionInfo: &types.VersionInfo{
				Producer:    "runwire " + types.Version,
				MinConsumer: types.MinReaderVersion,
			},
		},
	}
	if _, err := w.Write(header); err != nil {
		f.Close()
		os.Remove(path)
		return nil, err
	}
	return w, nil
}

// OpenWriterAt reopens an existing log for appending at the given offset.
// Used on resume; offset comes from scanning the log with a Reader.
func OpenWriterAt(path string, offset int64, opts WriterOptions) (*Writer, error) {
	if opts.Logger == nil {
		opts.Logger = log.NewNop()
	}
	f, err := os.OpenFile(path, os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		f.Close()
		return nil, fmt.Errorf("store: seek %s to %d: %w", path, offset, err)
	}
	return &Writer{
		f:       f,
		fw:      wire.NewFrameWriter(f, offset),
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}, nil
}

// Write persists one record and returns the end offset of its frame. The
// record's control block is stamped with that offset before encoding, so the
// persisted bytes carry their own log position.
//
// Local records are the producer's private control traffic; they are skipped
// and the current offset is returned unchanged.
func (w *Writer) Write(rec *types.Record) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return w.fw.Offset(), ErrClosed
	}
	if rec.IsLocal() {
		w.logger.Debug("store: skipping local record", map[string]any{
			"num": rec.Num,
		})
		return w.fw.Offset(), nil
	}

	// The offset stamp is part of the encoded bytes, and stamping can grow
	// the control block, which moves the offset. Iterate to the fixed point;
	// the frame size is monotone in the stamped value, so this converges in
	// a couple of rounds.
	var body []byte
	end := w.fw.Offset()
	for {
		rec.EnsureControl().EndOffset = end
		var err error
		body, err = wire.EncodeRecord(rec)
		if err != nil {
			w.metrics.IncLogWriteFailure()
			return w.fw.Offset(), fmt.Errorf("store: encode record %d: %w", rec.Num, err)
		}
		next := w.fw.Offset() + wire.FrameSize(body)
		if next == end {
			break
		}
		end = next
	}
	got, err := w.fw.WriteBody(body)
	if err != nil {
		w.metrics.IncLogWriteFailure()
		return w.fw.Offset(), fmt.Errorf("store: write record %d: %w", rec.Num, err)
	}
	w.metrics.IncLogWriteSuccess()
	return got, nil
}

// WriteFooter appends the footer record that marks a complete log.
func (w *Writer) WriteFooter() error {
	_, err := w.Write(&types.Record{Payload: &types.FooterRecord{}})
	return err
}

// Offset returns the byte offset after the last persisted frame.
func (w *Writer) Offset() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fw.Offset()
}

// Sync flushes the log to stable storage.
func (w *Writer) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	return w.f.Sync()
}

// Close syncs and closes the log file. Close does not write the footer; an
// abrupt shutdown leaves a footer-less log that readers treat as incomplete.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.f.Sync(); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}

// Reader replays records from a durable log file.
type Reader struct {
	f      *os.File
	fr     *wire.FrameReader
	base   int64
	closed bool
}

// OpenReader opens a log for replay from its beginning.
func OpenReader(path string) (*Reader, error) {
	return OpenReaderAt(path, 0)
}

// OpenReaderAt opens a log positioned at a frame boundary offset, as stamped
// into record control blocks by the writer.
func OpenReaderAt(path string, offset int64) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if offset != 0 {
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			f.Close()
			return nil, fmt.Errorf("store: seek %s to %d: %w", path, offset, err)
		}
	}
	return &Reader{f: f, fr: wire.NewFrameReader(f), base: offset}, nil
}

// Read returns the next record. io.EOF signals a clean end of log; a
// *wire.FrameError means the log was truncated mid-frame.
func (r *Reader) Read() (*types.Record, error) {
	if r.closed {
		return nil, ErrClosed
	}
	body, err := r.fr.ReadBody()
	if err != nil {
		return nil, err
	}
	rec, err := wire.DecodeRecord(body)
	if err != nil {
		return nil, fmt.Errorf("store: decode at offset %d: %w", r.Offset(), err)
	}
	return rec, nil
}

// Offset returns the byte offset after the last frame read.
func (r *Reader) Offset() int64 { return r.base + r.frOffset() }

func (r *Reader) frOffset() int64 { return r.fr.Offset() }

// Scan replays records in [startOffset, finalOffset) through fn, the access
// pattern of an incremental resumed sync. A zero finalOffset means read to
// the end of the log. Scan stops on the first fn error.
func Scan(path string, startOffset, finalOffset int64, fn func(*types.Record) error) error {
	r, err := OpenReaderAt(path, startOffset)
	if err != nil {
		return err
	}
	defer iox.DiscardClose(r)

	for {
		if finalOffset > 0 && r.Offset() >= finalOffset {
			return nil
		}
		rec, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.f.Close()
}

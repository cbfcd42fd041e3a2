// Package upload ships completed durable logs to object storage.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/tidemark-io/runwire/log"
	"github.com/tidemark-io/runwire/metrics"
)

// ObjectPutter is the slice of the S3 API the uploader needs. The real
// client satisfies it; tests substitute a capture.
type ObjectPutter interface {
	PutObject(ctx context.Context, bucket, key string, body io.Reader, size int64) error
}

// Options configures an Uploader.
type Options struct {
	// Bucket is the destination bucket (required).
	Bucket string
	// Prefix is the key prefix within the bucket (optional).
	Prefix  string
	Logger  *log.Logger
	Metrics *metrics.Collector
}

// Uploader copies finished durable logs into object storage, keyed by
// stream id. It does not watch or tail logs; callers invoke it after the
// footer record is written.
type Uploader struct {
	putter  ObjectPutter
	bucket  string
	prefix  string
	logger  *log.Logger
	metrics *metrics.Collector
}

// New creates an uploader over an object store.
func New(putter ObjectPutter, opts Options) (*Uploader, error) {
	if opts.Bucket == "" {
		return nil, errors.New("upload: bucket is required")
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNop()
	}
	return &Uploader{
		putter:  putter,
		bucket:  opts.Bucket,
		prefix:  opts.Prefix,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}, nil
}

// Key returns the object key a stream's log uploads under.
func (u *Uploader) Key(streamID string) string {
	return path.Join(u.prefix, streamID, "run-"+streamID+".wire")
}

// UploadLog ships one durable log file to the store.
func (u *Uploader) UploadLog(ctx context.Context, streamID, logPath string) error {
	f, err := os.Open(logPath)
	if err != nil {
		return fmt.Errorf("upload: open log: %w", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return fmt.Errorf("upload: stat log: %w", err)
	}

	key := u.Key(streamID)
	if err := u.putter.PutObject(ctx, u.bucket, key, f, fi.Size()); err != nil {
		u.metrics.IncLogWriteFailure()
		u.logger.Error("upload: put failed", map[string]any{
			"bucket": u.bucket,
			"key":    key,
			"error":  err.Error(),
		})
		return fmt.Errorf("upload: put %s: %w", key, err)
	}

	u.metrics.IncLogWriteSuccess()
	u.logger.Info("upload: log shipped", map[string]any{
		"bucket": u.bucket,
		"key":    key,
		"bytes":  fi.Size(),
	})
	return nil
}

// ParseBucketPath parses a path in format "bucket/prefix" or "bucket".
func ParseBucketPath(p string) (bucket, prefix string) {
	parts := strings.SplitN(p, "/", 2)
	bucket = parts[0]
	if len(parts) > 1 {
		prefix = parts[1]
	}
	return bucket, prefix
}

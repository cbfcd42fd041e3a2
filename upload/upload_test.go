package upload

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/tidemark-io/runwire/metrics"
)

type capturePutter struct {
	bucket string
	key    string
	body   []byte
	size   int64
	err    error
}

func (p *capturePutter) PutObject(ctx context.Context, bucket, key string, body io.Reader, size int64) error {
	if p.err != nil {
		return p.err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	p.bucket = bucket
	p.key = key
	p.body = data
	p.size = size
	return nil
}

func writeLog(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run-abc.wire")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestUploadLog(t *testing.T) {
	putter := &capturePutter{}
	u, err := New(putter, Options{Bucket: "logs", Prefix: "runs"})
	if err != nil {
		t.Fatal(err)
	}

	content := []byte("frame bytes")
	path := writeLog(t, content)
	if err := u.UploadLog(context.Background(), "abc", path); err != nil {
		t.Fatalf("upload: %v", err)
	}

	if putter.bucket != "logs" {
		t.Errorf("bucket = %q, want logs", putter.bucket)
	}
	if want := "runs/abc/run-abc.wire"; putter.key != want {
		t.Errorf("key = %q, want %q", putter.key, want)
	}
	if string(putter.body) != string(content) {
		t.Errorf("body = %q, want %q", putter.body, content)
	}
	if putter.size != int64(len(content)) {
		t.Errorf("size = %d, want %d", putter.size, len(content))
	}
}

func TestUploadLogKeyWithoutPrefix(t *testing.T) {
	u, err := New(&capturePutter{}, Options{Bucket: "logs"})
	if err != nil {
		t.Fatal(err)
	}
	if want := "abc/run-abc.wire"; u.Key("abc") != want {
		t.Errorf("key = %q, want %q", u.Key("abc"), want)
	}
}

func TestUploadLogPutFailureCounted(t *testing.T) {
	col := metrics.NewCollector("abc", "")
	putter := &capturePutter{err: errors.New("denied")}
	u, err := New(putter, Options{Bucket: "logs", Metrics: col})
	if err != nil {
		t.Fatal(err)
	}

	path := writeLog(t, []byte("x"))
	if err := u.UploadLog(context.Background(), "abc", path); err == nil {
		t.Fatal("expected put error")
	}
	if got := col.Snapshot().LogWriteFailure; got != 1 {
		t.Errorf("LogWriteFailure = %d, want 1", got)
	}
}

func TestUploadLogMissingFile(t *testing.T) {
	u, err := New(&capturePutter{}, Options{Bucket: "logs"})
	if err != nil {
		t.Fatal(err)
	}
	if err := u.UploadLog(context.Background(), "abc", "/nonexistent/run.wire"); err == nil {
		t.Fatal("expected error for missing log")
	}
}

func TestNewRequiresBucket(t *testing.T) {
	if _, err := New(&capturePutter{}, Options{}); err == nil {
		t.Fatal("expected error for missing bucket")
	}
}

func TestParseBucketPath(t *testing.T) {
	cases := []struct {
		in     string
		bucket string
		prefix string
	}{
		{"logs", "logs", ""},
		{"logs/runs", "logs", "runs"},
		{"logs/runs/2026", "logs", "runs/2026"},
	}
	for _, tc := range cases {
		bucket, prefix := ParseBucketPath(tc.in)
		if bucket != tc.bucket || prefix != tc.prefix {
			t.Errorf("ParseBucketPath(%q) = (%q, %q), want (%q, %q)",
				tc.in, bucket, prefix, tc.bucket, tc.prefix)
		}
	}
}

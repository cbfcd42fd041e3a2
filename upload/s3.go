package upload

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	uploadcfg "github.com/tidemark-io/runwire/config"
)

// s3Putter adapts the AWS SDK client to ObjectPutter.
type s3Putter struct {
	client *s3.Client
}

func (p *s3Putter) PutObject(ctx context.Context, bucket, key string, body io.Reader, size int64) error {
	_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        &bucket,
		Key:           &key,
		Body:          body,
		ContentLength: &size,
	})
	return err
}

// NewS3 creates an uploader backed by S3 (or an S3-compatible provider).
// Uses the AWS SDK default credential chain (env vars, shared config, IAM
// role).
func NewS3(ctx context.Context, cfg uploadcfg.UploadConfig, opts Options) (*Uploader, error) {
	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("upload: load AWS config: %w", err)
	}

	// Custom endpoint and path-style addressing cover S3-compatible
	// providers (R2, MinIO).
	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = &endpoint
		})
	}
	if cfg.S3PathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}
	client := s3.NewFromConfig(awsConfig, s3Opts...)

	if opts.Bucket == "" {
		opts.Bucket = cfg.Bucket
	}
	if opts.Prefix == "" {
		opts.Prefix = cfg.Prefix
	}
	return New(&s3Putter{client: client}, opts)
}

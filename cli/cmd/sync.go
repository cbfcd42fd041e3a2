package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/tidemark-io/runwire/config"
	"github.com/tidemark-io/runwire/store"
	"github.com/tidemark-io/runwire/types"
	"github.com/tidemark-io/runwire/upload"
)

// SyncCommand returns the sync command: ship a completed durable log to
// object storage. The log must carry a footer record; an unfinished log is
// refused rather than uploaded half-written.
func SyncCommand() *cli.Command {
	return &cli.Command{
		Name:      "sync",
		Usage:     "Upload a completed durable run log to object storage",
		ArgsUsage: "<log-path>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "Path to runwire.yaml"},
			&cli.StringFlag{Name: "bucket", Usage: "Destination bucket (overrides config)"},
			&cli.StringFlag{Name: "prefix", Usage: "Key prefix (overrides config)"},
			&cli.StringFlag{Name: "region", Usage: "AWS region (overrides config)"},
			&cli.StringFlag{Name: "endpoint", Usage: "Custom S3 endpoint (R2, MinIO)"},
			&cli.BoolFlag{Name: "path-style", Usage: "Force path-style addressing"},
			&cli.StringFlag{Name: "stream-id", Usage: "Stream id (default: derived from the file name)"},
			&cli.BoolFlag{Name: "allow-incomplete", Usage: "Upload even without a footer record"},
		},
		Action: syncAction,
	}
}

func syncAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("log-path required", 1)
	}
	path := c.Args().First()

	uploadCfg, err := resolveUploadConfig(c)
	if err != nil {
		return err
	}

	streamID := c.String("stream-id")
	if streamID == "" {
		streamID = streamIDFromPath(path)
	}
	if streamID == "" {
		return cli.Exit("cannot derive stream id from file name; pass --stream-id", 1)
	}

	complete, err := logHasFooter(path)
	if err != nil {
		return err
	}
	if !complete && !c.Bool("allow-incomplete") {
		return cli.Exit("log has no footer record (run still active or crashed); pass --allow-incomplete to upload anyway", 1)
	}

	timeout := uploadCfg.Timeout.Duration
	if timeout == 0 {
		timeout = 5 * time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	u, err := upload.NewS3(ctx, uploadCfg, upload.Options{})
	if err != nil {
		return err
	}
	if err := u.UploadLog(ctx, streamID, path); err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "uploaded %s to s3://%s/%s\n", path, uploadCfg.Bucket, u.Key(streamID))
	return nil
}

// resolveUploadConfig merges the config file's upload section with flag
// overrides. Flags always win.
func resolveUploadConfig(c *cli.Context) (config.UploadConfig, error) {
	var uploadCfg config.UploadConfig
	if cfgPath := c.String("config"); cfgPath != "" {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return uploadCfg, err
		}
		uploadCfg = cfg.Upload
	}
	if v := c.String("bucket"); v != "" {
		uploadCfg.Bucket = v
	}
	if v := c.String("prefix"); v != "" {
		uploadCfg.Prefix = v
	}
	if v := c.String("region"); v != "" {
		uploadCfg.Region = v
	}
	if v := c.String("endpoint"); v != "" {
		uploadCfg.Endpoint = v
	}
	if c.Bool("path-style") {
		uploadCfg.S3PathStyle = true
	}
	if uploadCfg.Bucket == "" {
		return uploadCfg, cli.Exit("bucket required (flag or config file)", 1)
	}
	return uploadCfg, nil
}

// streamIDFromPath extracts the stream id from a "run-<id>.wire" file name.
func streamIDFromPath(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, ".wire")
	if id, ok := strings.CutPrefix(name, "run-"); ok {
		return id
	}
	return ""
}

// logHasFooter scans the tail state of a log: true when a footer record is
// present, meaning shutdown ran to completion.
func logHasFooter(path string) (bool, error) {
	found := false
	err := store.Scan(path, 0, 0, func(rec *types.Record) error {
		if _, ok := rec.Payload.(*types.FooterRecord); ok {
			found = true
		}
		return nil
	})
	return found, err
}

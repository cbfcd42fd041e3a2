package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/tidemark-io/runwire/flowgate"
	"github.com/tidemark-io/runwire/shutdown"
)

// Config represents a runwire.yaml configuration file.
// All values are optional and act as defaults for session setup.
// Programmatic options always override config values.
type Config struct {
	StreamID string         `yaml:"stream_id"`
	LogDir   string         `yaml:"log_dir"`
	Flow     FlowConfig     `yaml:"flow"`
	Shutdown ShutdownConfig `yaml:"shutdown"`
	Upload   UploadConfig   `yaml:"upload"`
}

// FlowConfig holds flow-control gate defaults from the config file.
type FlowConfig struct {
	HighWatermark int64 `yaml:"high_watermark"`
	LowWatermark  int64 `yaml:"low_watermark"`
	Disabled      bool  `yaml:"disabled"`
}

// ShutdownConfig holds shutdown sequencing defaults from the config file.
type ShutdownConfig struct {
	PhaseTimeout Duration `yaml:"phase_timeout"`
}

// UploadConfig holds durable-log upload defaults from the config file.
// Backend is "s3" or empty (uploads disabled).
type UploadConfig struct {
	Backend     string   `yaml:"backend"`
	Bucket      string   `yaml:"bucket"`
	Prefix      string   `yaml:"prefix"`
	Region      string   `yaml:"region"`
	Endpoint    string   `yaml:"endpoint"`
	S3PathStyle bool     `yaml:"s3_path_style"`
	Timeout     Duration `yaml:"timeout,omitempty"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// Validate checks cross-field consistency. Zero values are always valid;
// they mean "use the built-in default".
func (c *Config) Validate() error {
	if (c.Flow.HighWatermark == 0) != (c.Flow.LowWatermark == 0) {
		return fmt.Errorf("flow: high_watermark and low_watermark must be set together")
	}
	if c.Flow.HighWatermark != 0 && c.Flow.LowWatermark >= c.Flow.HighWatermark {
		return fmt.Errorf("flow: low_watermark %d must be below high_watermark %d",
			c.Flow.LowWatermark, c.Flow.HighWatermark)
	}
	switch c.Upload.Backend {
	case "", "s3":
	default:
		return fmt.Errorf("upload: unknown backend %q", c.Upload.Backend)
	}
	if c.Upload.Backend == "s3" && c.Upload.Bucket == "" {
		return fmt.Errorf("upload: s3 backend requires a bucket")
	}
	return nil
}

// FlowOptions converts the flow section into gate options, filling in the
// built-in watermarks when the file leaves them unset.
func (c *Config) FlowOptions() flowgate.Options {
	opts := flowgate.Options{
		HighWatermark: c.Flow.HighWatermark,
		LowWatermark:  c.Flow.LowWatermark,
		Disabled:      c.Flow.Disabled,
	}
	if opts.HighWatermark == 0 {
		opts.HighWatermark = flowgate.DefaultHighWatermark
		opts.LowWatermark = flowgate.DefaultLowWatermark
	}
	return opts
}

// PhaseTimeout returns the configured shutdown phase timeout, or the
// built-in default when unset.
func (c *Config) PhaseTimeout() time.Duration {
	if c.Shutdown.PhaseTimeout.Duration == 0 {
		return shutdown.DefaultPhaseTimeout
	}
	return c.Shutdown.PhaseTimeout.Duration
}

// LogPath returns the durable log path for a stream under the configured
// log directory. An empty log_dir means the current directory.
func (c *Config) LogPath(streamID string) string {
	return filepath.Join(c.LogDir, "run-"+streamID+".wire")
}

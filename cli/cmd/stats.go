package cmd

import (
	"os"

	"github.com/urfave/cli/v2"

	"github.com/tidemark-io/runwire/cli/render"
	"github.com/tidemark-io/runwire/store"
	"github.com/tidemark-io/runwire/types"
)

// LogStats is the aggregated view of a durable log.
type LogStats struct {
	Records   int            `json:"records"`
	Bytes     int64          `json:"bytes"`
	FirstNum  int64          `json:"first_num,omitempty"`
	LastNum   int64          `json:"last_num,omitempty"`
	ByKind    map[string]int `json:"by_kind"`
	Producer  string         `json:"producer,omitempty"`
	HasFooter bool           `json:"has_footer"`
}

// StatsCommand returns the stats command. Stats aggregates a durable log:
// record counts by kind, sequence span, and completeness (footer presence).
func StatsCommand() *cli.Command {
	return &cli.Command{
		Name:      "stats",
		Usage:     "Show aggregated statistics for a durable run log",
		ArgsUsage: "<log-path>",
		Flags:     ReadOnlyFlags(),
		Action:    statsAction,
	}
}

func statsAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("log-path required", 1)
	}
	path := c.Args().First()

	stats := LogStats{ByKind: make(map[string]int)}
	if fi, err := os.Stat(path); err == nil {
		stats.Bytes = fi.Size()
	}

	err := store.Scan(path, 0, 0, func(rec *types.Record) error {
		stats.Records++
		stats.ByKind[types.RecordKindName(rec.Payload.RecordTag())]++
		if rec.Num > 0 {
			if stats.FirstNum == 0 {
				stats.FirstNum = rec.Num
			}
			stats.LastNum = rec.Num
		}
		switch p := rec.Payload.(type) {
		case *types.HeaderRecord:
			if p.VersionInfo != nil {
				stats.Producer = p.VersionInfo.Producer
			}
		case *types.FooterRecord:
			stats.HasFooter = true
		}
		return nil
	})
	if err != nil {
		return err
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	return r.Render(stats)
}

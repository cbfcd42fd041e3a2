package cmd

import (
	"errors"

	"github.com/urfave/cli/v2"

	"github.com/tidemark-io/runwire/cli/render"
	"github.com/tidemark-io/runwire/store"
	"github.com/tidemark-io/runwire/types"
)

// RecordView is one row of the inspect listing.
type RecordView struct {
	Index     int    `json:"index"`
	Num       int64  `json:"num"`
	Kind      string `json:"kind"`
	StreamID  string `json:"stream_id,omitempty"`
	EndOffset int64  `json:"end_offset,omitempty"`
	UUID      string `json:"uuid,omitempty"`
}

// InspectCommand returns the inspect command. Inspect lists the records of a
// durable log without interpreting them; it is read-only.
func InspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "List the records of a durable run log",
		ArgsUsage: "<log-path>",
		Flags: append(ReadOnlyFlags(),
			&cli.Int64Flag{Name: "start-offset", Usage: "Start at a stamped frame boundary offset"},
			&cli.IntFlag{Name: "limit", Usage: "Stop after N records (0 = all)"},
		),
		Action: inspectAction,
	}
}

var errLimitReached = errors.New("limit reached")

func inspectAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("log-path required", 1)
	}
	path := c.Args().First()
	limit := c.Int("limit")

	var rows []RecordView
	err := store.Scan(path, c.Int64("start-offset"), 0, func(rec *types.Record) error {
		row := RecordView{
			Index: len(rows),
			Num:   rec.Num,
			Kind:  types.RecordKindName(rec.Payload.RecordTag()),
			UUID:  rec.UUID,
		}
		if rec.Info != nil {
			row.StreamID = rec.Info.StreamID
		}
		if rec.Control != nil {
			row.EndOffset = rec.Control.EndOffset
		}
		rows = append(rows, row)
		if limit > 0 && len(rows) >= limit {
			return errLimitReached
		}
		return nil
	})
	if err != nil && !errors.Is(err, errLimitReached) {
		return err
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	return r.Render(rows)
}

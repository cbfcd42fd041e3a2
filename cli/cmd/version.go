package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/tidemark-io/runwire/cli/render"
	"github.com/tidemark-io/runwire/types"
)

// VersionResponse is the response for the version command.
type VersionResponse struct {
	Version          string `json:"version"`
	MinReaderVersion string `json:"min_reader_version"`
	Commit           string `json:"commit"`
}

// VersionCommand returns the version command. It reports the protocol
// version stamped into log headers and the minimum version able to read
// them back.
func VersionCommand(commit string) *cli.Command {
	return &cli.Command{
		Name:   "version",
		Usage:  "Show version information",
		Flags:  ReadOnlyFlags(),
		Action: versionAction(commit),
	}
}

func versionAction(commit string) cli.ActionFunc {
	return func(c *cli.Context) error {
		r, err := render.NewRenderer(c)
		if err != nil {
			return err
		}

		resp := VersionResponse{
			Version:          types.Version,
			MinReaderVersion: types.MinReaderVersion,
			Commit:           commit,
		}

		return r.Render(resp)
	}
}

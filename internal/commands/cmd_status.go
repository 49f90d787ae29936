package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

type StatusCmd struct {
	flags *Flags
}

// NewStatusCmd creates a new status command.
func NewStatusCmd(flags *Flags) *StatusCmd {
	return &StatusCmd{flags: flags}
}

// Register adds the status command to the application.
func (cmd *StatusCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "status",
		Usage:     "Show remaining diff statistics for the current review",
		UsageText: "cresca status",
		Action:    cmd.run,
	})

	return app
}

func (cmd *StatusCmd) run(ctx context.Context, c *cli.Command) error {
	st, err := cmd.flags.Service().Status(ctx)
	if err != nil {
		return err
	}

	w := c.Root().Writer
	_, _ = fmt.Fprintf(w, "Review status for %s:\n", st.Branch)
	_, _ = fmt.Fprintf(w, "  Approved commits: %d\n", st.Approved)
	_, _ = fmt.Fprintf(w, "  Remaining diff to %s: %s\n", st.Source, summarize(st.Remaining))

	if !st.Staged.Empty() {
		_, _ = fmt.Fprintf(w, "  Staged for approval: %s\n", summarize(st.Staged))
	}

	if len(st.Remaining.Files) > 0 {
		maxFiles := cmd.flags.Config.Status.MaxFiles
		_, _ = fmt.Fprintln(w, "  Files remaining:")
		for i, f := range st.Remaining.Files {
			if maxFiles > 0 && i == maxFiles {
				_, _ = fmt.Fprintf(w, "    ... and %d more file(s)\n", len(st.Remaining.Files)-maxFiles)
				break
			}
			_, _ = fmt.Fprintf(w, "    - %s\n", f.Path)
		}
	}

	return nil
}

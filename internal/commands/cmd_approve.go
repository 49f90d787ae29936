package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

type ApproveCmd struct {
	flags   *Flags
	message string
}

// NewApproveCmd creates a new approve command.
func NewApproveCmd(flags *Flags) *ApproveCmd {
	return &ApproveCmd{flags: flags}
}

// Register adds the approve command to the application.
func (cmd *ApproveCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "approve",
		Usage:     "Commit the staged changes as approved",
		UsageText: "cresca approve [-m <message>]",
		Description: `Converts the currently staged content of the review branch into an
approved commit. Unstaged pending changes are left untouched for a later
approve or review pass.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "message",
				Aliases:     []string{"m"},
				Usage:       "commit message for the approved changes",
				Destination: &cmd.message,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *ApproveCmd) run(ctx context.Context, c *cli.Command) error {
	res, err := cmd.flags.Service().Approve(ctx, cmd.message)
	if err != nil {
		return err
	}

	w := c.Root().Writer
	short := res.Commit
	if len(short) > 7 {
		short = short[:7]
	}
	_, _ = fmt.Fprintf(w, "Approved staged changes as commit %s.\n", short)

	if res.Remaining.Empty() {
		_, _ = fmt.Fprintln(w, "Everything is approved; the review is complete.")
	} else {
		_, _ = fmt.Fprintf(w, "Remaining to review: %s.\n", summarize(res.Remaining))
	}

	return nil
}

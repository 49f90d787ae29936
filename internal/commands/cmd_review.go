package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/cresca/internal/review"
)

type ReviewCmd struct {
	flags  *Flags
	skipTo string
	stopAt string
}

// NewReviewCmd creates a new review command.
func NewReviewCmd(flags *Flags) *ReviewCmd {
	return &ReviewCmd{flags: flags}
}

// Register adds the review command to the application.
func (cmd *ReviewCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "review",
		Usage:     "Prepare or synchronize a review branch",
		UsageText: "cresca review [options] <target> <source>",
		Description: `Prepares a review branch for the changes on <source> that are not yet on
<target>. On the first run the branch is created at the merge-base, commits
before --skip-to are auto-approved, and the remaining diff is staged for
review. On later runs new source commits are merged into the pending
changes without disturbing approved or staged content.

Examples:
  cresca review main feature/login
  cresca review main feature/login --skip-to=1a2b3c4
  cresca review main feature/login --stop-at=9f8e7d6`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "skip-to",
				Usage:       "auto-approve commits up to and including this hash",
				Destination: &cmd.skipTo,
			},
			&cli.StringFlag{
				Name:        "stop-at",
				Usage:       "exclude commits after this hash from review",
				Destination: &cmd.stopAt,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *ReviewCmd) run(ctx context.Context, c *cli.Command) error {
	if c.Args().Len() != 2 {
		return fmt.Errorf("expected <target> and <source> arguments. Run 'cresca review --help' for usage")
	}

	res, err := cmd.flags.Service().Review(ctx, review.ReviewOptions{
		Target: c.Args().Get(0),
		Source: c.Args().Get(1),
		SkipTo: cmd.skipTo,
		StopAt: cmd.stopAt,
	})
	if err != nil {
		return err
	}

	w := c.Root().Writer
	switch {
	case res.Created && res.Pending.Empty():
		_, _ = fmt.Fprintf(w, "Review branch %s prepared; there are no unreviewed changes.\n", res.Branch)
	case res.Created:
		_, _ = fmt.Fprintf(w, "Review branch %s prepared: %s to review.\n", res.Branch, summarize(res.Pending))
		_, _ = fmt.Fprintln(w, "Stage the changes you have reviewed and run 'cresca approve' to approve them.")
	case res.UpToDate:
		_, _ = fmt.Fprintf(w, "Review branch %s is already up to date.\n", res.Branch)
	default:
		_, _ = fmt.Fprintf(w, "Merged %d new commit(s) into %s: %s pending.\n", res.NewCommits, res.Branch, summarize(res.Pending))
	}

	return nil
}

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/4nozen/NymNodeInstall/internal/output"
)

func (a *app) newReleasesCmd() *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "releases",
		Short: "List recent stable releases that ship the node binary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runReleases(cmd.Context(), count)
		},
	}

	cmd.Flags().IntVarP(&count, "number", "n", 10, "Number of releases to request (max 100)")

	return cmd
}

func (a *app) runReleases(ctx context.Context, count int) error {
	if count < 1 {
		return fmt.Errorf("--number must be at least 1")
	}
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	releases, err := a.newFetcher(cfg).List(ctx, count)
	if err != nil {
		return err
	}
	if a.opts.quiet && a.format == output.FormatText {
		return nil
	}
	return a.writer().Write(output.ReleaseTable(releases))
}

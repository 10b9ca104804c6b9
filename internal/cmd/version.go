package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/4nozen/NymNodeInstall/internal/output"
)

func (a *app) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show nymnode version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.format == output.FormatText {
				_, err := fmt.Fprintln(a.stdout, a.build.String())
				return err
			}
			return a.writer().Write(a.build)
		},
	}
}

func (b BuildInfo) String() string {
	return fmt.Sprintf("nymnode %s (commit %s, built %s)", b.Version, b.Commit, b.Date)
}

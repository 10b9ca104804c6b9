package cmd

import (
	"context"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/4nozen/NymNodeInstall/internal/interactive"
	"github.com/4nozen/NymNodeInstall/internal/types"
)

const notesWrapWidth = 100

func (a *app) newCheckCmd() *cobra.Command {
	var showNotes bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check whether a newer nym-node release is available",
		Long: `Check downloads and verifies the latest release and compares the version it
reports with the installed binary. Nothing on the system is modified.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCheck(cmd.Context(), showNotes)
		},
	}

	cmd.Flags().BoolVar(&showNotes, "notes", true, "Show release notes when an update is available")

	return cmd
}

func (a *app) runCheck(ctx context.Context, showNotes bool) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	// No prompts are issued on this path.
	u, err := a.newUpdater(cfg, true)
	if err != nil {
		return err
	}

	res, err := u.Check(ctx)
	if err != nil {
		return err
	}
	if err := a.printResult(res); err != nil {
		return err
	}

	if showNotes && !a.quiet() && res.State == types.StateUpdateAvailable && strings.TrimSpace(res.ReleaseNotes) != "" {
		a.say("")
		a.say(a.renderNotes(res.ReleaseNotes))
	}
	return nil
}

// renderNotes renders markdown with glamour on a terminal and returns it
// unchanged otherwise.
func (a *app) renderNotes(md string) string {
	if !interactive.IsTerminalWriter(a.stdout) {
		return md
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(notesWrapWidth),
	)
	if err != nil {
		a.logger.Debug("markdown renderer unavailable", "err", err)
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		a.logger.Debug("could not render release notes", "err", err)
		return md
	}
	return strings.TrimRight(out, "\n")
}

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/4nozen/NymNodeInstall/internal/config"
	"github.com/4nozen/NymNodeInstall/internal/history"
	"github.com/4nozen/NymNodeInstall/internal/output"
	"github.com/4nozen/NymNodeInstall/internal/types"
	"github.com/4nozen/NymNodeInstall/internal/update"
)

type updateParams struct {
	yes       bool
	noRestart bool
}

func (a *app) newUpdateCmd() *cobra.Command {
	var p updateParams

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update the installed nym-node to the latest release",
		Long: `Update finds the installed nym-node, downloads and verifies the latest release,
and compares the build versions both binaries report.

When the release is newer and you confirm, the current binary is copied to
<path>.backup and the new one is moved into place in a single rename. The
systemd unit is then restarted unless --no-restart is given.

Declining, being up to date, or finding an older release all exit 0.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runUpdate(cmd.Context(), p)
		},
	}

	cmd.Flags().BoolVarP(&p.yes, "yes", "y", false, "Answer yes to all prompts")
	cmd.Flags().BoolVar(&p.noRestart, "no-restart", false, "Do not restart the service after updating")

	return cmd
}

func (a *app) runUpdate(ctx context.Context, p updateParams) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	return a.withLock(ctx, cfg, func() error {
		u, err := a.newUpdater(cfg, p.yes)
		if err != nil {
			return err
		}

		res, err := u.Run(ctx, update.RunOptions{Restart: cfg.Service.Restart && !p.noRestart})
		if res != nil && res.Changed {
			a.journal(cfg, res)
		}
		if err != nil {
			return err
		}
		return a.printResult(res)
	})
}

// journal records an applied update. Failure only warns: the swap already happened.
func (a *app) journal(cfg *config.Config, res *update.Result) {
	mgr, err := a.newHistory(cfg)
	if err == nil {
		_, err = mgr.Save(history.Record{
			BinaryPath:  res.BinaryPath,
			BackupPath:  res.BackupPath,
			FromVersion: string(res.InstalledVersion),
			ToVersion:   string(res.LatestVersion),
			ReleaseTag:  res.ReleaseTag,
			Restarted:   res.Restarted,
		})
	}
	if err != nil {
		a.logger.Warn("could not record update in history", "err", err)
	}
}

// printResult writes a headline in text mode followed by the result itself.
func (a *app) printResult(res *update.Result) error {
	if a.format == output.FormatText {
		if a.opts.quiet {
			return nil
		}
		a.say(headline(res))
	}
	return a.writer().Write(output.ResultReport{Result: res})
}

func headline(res *update.Result) string {
	switch res.State {
	case types.StateDone:
		line := SuccessStyle.Render(fmt.Sprintf("✓ Updated %s to %s", res.BinaryPath, res.LatestVersion))
		if res.RestartError != "" {
			line += "\n" + WarningStyle.Render("! Restart failed; restart the service manually")
		}
		return line
	case types.StateUpToDate:
		return SuccessStyle.Render(fmt.Sprintf("✓ Already up to date (%s)", res.InstalledVersion))
	case types.StateOlder:
		return WarningStyle.Render(fmt.Sprintf("! Latest release (%s) is older than the installed binary (%s); nothing changed",
			res.LatestVersion, res.InstalledVersion))
	case types.StateDeclined:
		return InfoStyle.Render("Update declined; nothing changed")
	case types.StateUpdateAvailable:
		return InfoStyle.Render(fmt.Sprintf("Update available: %s → %s", res.InstalledVersion, res.LatestVersion))
	default:
		return string(res.State)
	}
}

package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/4nozen/NymNodeInstall/internal/output"
)

func (a *app) newRollbackCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "rollback",
		Short: "Restore the previous nym-node from its backup",
		Long: `Rollback copies <path>.backup over the installed binary using the same atomic
replacement as update. The backup itself is kept. The service is not restarted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runRollback(cmd.Context(), yes)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Answer yes to all prompts")

	return cmd
}

func (a *app) runRollback(ctx context.Context, yes bool) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	return a.withLock(ctx, cfg, func() error {
		u, err := a.newUpdater(cfg, yes)
		if err != nil {
			return err
		}
		res, err := u.Rollback(ctx)
		if err != nil {
			return err
		}

		if a.format == output.FormatText {
			if res.Declined {
				a.say(InfoStyle.Render(output.RollbackReport{RollbackResult: res}.String()))
			} else {
				a.say(SuccessStyle.Render("✓ " + output.RollbackReport{RollbackResult: res}.String()))
				a.say(InfoStyle.Render("Restart the service to run the restored binary: sudo systemctl restart " + cfg.Service.Unit))
			}
			return nil
		}
		return a.writer().Write(output.RollbackReport{RollbackResult: res})
	})
}

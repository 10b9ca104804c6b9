package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/4nozen/NymNodeInstall/internal/install"
	"github.com/4nozen/NymNodeInstall/internal/output"
	"github.com/4nozen/NymNodeInstall/internal/update"
)

type installParams struct {
	yes      bool
	noUpdate bool
	path     string
}

func (a *app) newInstallCmd() *cobra.Command {
	var p installParams

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install nym-node on a host that does not have it yet",
		Long: `Install refreshes system packages with apt (unless --no-update), downloads and
verifies the latest release, and places the binary at the install path
(default /usr/local/bin/nym-node). It refuses to run when nym-node is already
installed; use update for that.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInstall(cmd.Context(), p)
		},
	}

	cmd.Flags().BoolVarP(&p.yes, "yes", "y", false, "Answer yes to all prompts")
	cmd.Flags().BoolVar(&p.noUpdate, "no-update", false, "Skip apt-get update and upgrade")
	cmd.Flags().StringVar(&p.path, "path", "", "Install path (default from config install.path)")

	return cmd
}

func (a *app) runInstall(ctx context.Context, p installParams) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	if p.path == "" {
		p.path = cfg.Install.Path
	}

	return a.withLock(ctx, cfg, func() error {
		downloader, err := a.newDownloader(cfg)
		if err != nil {
			return err
		}
		runner := &update.DefaultCommandRunner{}

		inst := install.New(install.Deps{
			Locator:    newLocator(cfg),
			Reader:     newReader(cfg),
			Fetcher:    a.newFetcher(cfg),
			Downloader: downloader,
			Confirmer:  a.confirmer(p.yes),
			Swapper:    swapperFactory(cfg, runner),
			Runner:     runner,
			Logger:     a.logger,
		})

		res, err := inst.Install(ctx, install.Options{Path: p.path, SkipPackageUpdate: p.noUpdate})
		if err != nil {
			return err
		}

		if a.format == output.FormatText {
			if res.Declined {
				a.say(InfoStyle.Render(res.String()))
			} else {
				a.say(SuccessStyle.Render("✓ " + res.String()))
			}
			return nil
		}
		return a.writer().Write(res)
	})
}

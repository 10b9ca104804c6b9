package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/4nozen/NymNodeInstall/internal/history"
	"github.com/4nozen/NymNodeInstall/internal/output"
)

func (a *app) newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show or prune the journal of applied updates",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List applied updates, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runHistoryList()
		},
	})

	var keep int
	prune := &cobra.Command{
		Use:   "prune",
		Short: "Delete old journal entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runHistoryPrune(keep)
		},
	}
	prune.Flags().IntVar(&keep, "keep", history.DefaultKeepCount, "Number of entries to keep")
	cmd.AddCommand(prune)

	return cmd
}

func (a *app) historyManager() (*history.Manager, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}
	return a.newHistory(cfg)
}

func (a *app) runHistoryList() error {
	mgr, err := a.historyManager()
	if err != nil {
		return err
	}
	records, err := mgr.List()
	if err != nil {
		return err
	}

	if a.format == output.FormatText {
		if a.opts.quiet {
			return nil
		}
		a.logger.Debug("history directory", "path", mgr.Dir())
	}
	return a.writer().Write(output.HistoryTable(records))
}

func (a *app) runHistoryPrune(keep int) error {
	if keep < 0 {
		return fmt.Errorf("--keep must not be negative")
	}
	mgr, err := a.historyManager()
	if err != nil {
		return err
	}
	res, err := mgr.Prune(keep)
	if err != nil {
		return err
	}

	if a.format == output.FormatText {
		a.say(output.PruneReport{PruneResult: res}.String())
		return nil
	}
	return a.writer().Write(output.PruneReport{PruneResult: res})
}

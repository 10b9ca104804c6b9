// Package cmd contains the CLI command implementations.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/4nozen/NymNodeInstall/internal/output"
)

// BuildInfo identifies this build of nymnode. Set via -ldflags in main.
type BuildInfo struct {
	Version string `json:"version" yaml:"version"`
	Commit  string `json:"commit" yaml:"commit"`
	Date    string `json:"date" yaml:"date"`
}

// globalOptions holds the persistent flags.
type globalOptions struct {
	outputFormat string
	configPath   string
	verbose      bool
	quiet        bool
}

// app carries the streams, flags and shared helpers of one invocation.
type app struct {
	build  BuildInfo
	opts   globalOptions
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	format output.Format
	logger *log.Logger
}

func newApp(build BuildInfo, stdin io.Reader, stdout, stderr io.Writer) *app {
	return &app{
		build:  build,
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		format: output.FormatText,
		logger: log.New(io.Discard),
	}
}

// Execute runs nymnode with the process arguments and returns the exit code.
func Execute(build BuildInfo) int {
	return run(context.Background(), build, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
}

func run(ctx context.Context, build BuildInfo, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := newApp(build, stdin, stdout, stderr)
	root := a.newRootCmd()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := fang.Execute(ctx, root,
		fang.WithVersion(build.Version),
		fang.WithCommit(build.Commit),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(handleError),
	)
	return exitCode(err)
}

func (a *app) newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "nymnode",
		Short: "Install and update the nym-node binary",
		Long: TitleStyle.Render("nymnode") + SubtitleStyle.Render(" - keeps a Nym node binary current") + `

nymnode finds the installed nym-node, compares its build version with the
latest upstream release, and replaces it atomically after taking a backup.

` + SubtitleStyle.Render("Examples:") + `
  nymnode check             Compare the installed binary with the latest release
  nymnode update            Update after confirmation, then restart the service
  nymnode update -y         Update unattended
  nymnode rollback          Restore the previous binary from its backup`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.opts.outputFormat, "output", "o", "text", "Output format: text, json, yaml")
	rootCmd.PersistentFlags().StringVar(&a.opts.configPath, "config", "", "Path to config file")
	rootCmd.PersistentFlags().BoolVarP(&a.opts.verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&a.opts.quiet, "quiet", "q", false, "Quiet mode (errors only)")

	rootCmd.AddCommand(a.newUpdateCmd())
	rootCmd.AddCommand(a.newCheckCmd())
	rootCmd.AddCommand(a.newReleasesCmd())
	rootCmd.AddCommand(a.newRollbackCmd())
	rootCmd.AddCommand(a.newInstallCmd())
	rootCmd.AddCommand(a.newHistoryCmd())
	rootCmd.AddCommand(a.newVersionCmd())
	rootCmd.AddCommand(newCompletionCmd())

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return output.Formats(), cobra.ShellCompDirectiveNoFileComp
	})

	return rootCmd
}

// setup validates global flags and builds the logger.
func (a *app) setup() error {
	format, err := output.ParseFormat(a.opts.outputFormat)
	if err != nil {
		return err
	}
	if a.opts.verbose && a.opts.quiet {
		return fmt.Errorf("--verbose and --quiet are mutually exclusive")
	}
	a.format = format

	a.logger = log.NewWithOptions(a.stderr, log.Options{
		Prefix:          "nymnode",
		ReportTimestamp: true,
	})
	switch {
	case a.opts.verbose:
		a.logger.SetLevel(log.DebugLevel)
	case a.opts.quiet:
		a.logger.SetLevel(log.ErrorLevel)
	default:
		a.logger.SetLevel(log.InfoLevel)
	}
	return nil
}

// writer returns an output writer on stdout in the selected format.
func (a *app) writer() *output.Writer {
	return output.NewWriter(a.stdout, a.format)
}

// say prints an operator-facing line in text mode unless quiet.
func (a *app) say(line string) {
	if a.quiet() {
		return
	}
	_, _ = fmt.Fprintln(a.stdout, line)
}

// quiet reports whether text output should be suppressed.
func (a *app) quiet() bool {
	return a.opts.quiet || a.format != output.FormatText
}

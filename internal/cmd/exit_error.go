package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/fang"

	"github.com/4nozen/NymNodeInstall/internal/config"
	"github.com/4nozen/NymNodeInstall/internal/install"
	"github.com/4nozen/NymNodeInstall/internal/update"
)

// Process exit codes.
const (
	ExitOK     = 0
	ExitLocal  = 1 // not found, version, backup, swap, lock, config
	ExitRemote = 2 // network, missing asset, checksum or signature
)

// ExitError carries an explicit exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// Unwrap returns the underlying error, if any.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// exitCode maps an error returned by a command to the process exit code.
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if update.IsRemote(err) {
		return ExitRemote
	}
	return ExitLocal
}

// errorHint suggests what the operator can do next. Empty when there is
// nothing useful to add to the error itself.
func errorHint(err error) string {
	var (
		notFound  *update.NotFoundError
		rateLimit *update.RateLimitError
		backupErr *update.BackupError
		procErr   *update.ProcessError
		parseErr  *update.VersionParseError
		sigErr    *update.SignatureError
		verrs     config.ValidationErrors
	)
	switch {
	case errors.As(err, &notFound):
		return "install the node with 'nymnode install', or set binary.fallback_dir to where it lives"
	case errors.As(err, &rateLimit):
		return "set GITHUB_TOKEN to raise the GitHub API rate limit"
	case errors.Is(err, update.ErrLocked):
		return "another nymnode run holds the lock; delete the lock file only if no nymnode process is running"
	case errors.Is(err, update.ErrNoBackup):
		return "a backup is created by 'nymnode update' right before the binary is replaced"
	case errors.Is(err, update.ErrChecksumMismatch), errors.As(err, &sigErr):
		return "the download failed verification and was not installed; try again later"
	case errors.As(err, &backupErr):
		return "check free space and permissions next to the binary, or set swap.mode to sudo"
	case errors.As(err, &procErr), errors.As(err, &parseErr):
		return "run the binary with --version by hand to see what it reports"
	case errors.Is(err, install.ErrAlreadyInstalled):
		return "use 'nymnode update' to upgrade an existing installation"
	case errors.As(err, &verrs):
		return "fix the config file or the NYMNODE_* environment variables"
	}
	return ""
}

// handleError prints err the way fang does, followed by a hint when one applies.
func handleError(w io.Writer, styles fang.Styles, err error) {
	fang.DefaultErrorHandler(w, styles, err)
	if hint := errorHint(err); hint != "" {
		_, _ = fmt.Fprintln(w, WarningStyle.Render("Hint: ")+hint)
	}
}

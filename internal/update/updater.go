package update

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/4nozen/NymNodeInstall/internal/types"
)

// Deps wires the workflow stages. Service may be nil when no unit is managed.
type Deps struct {
	Locator    Locator
	Reader     VersionReader
	Fetcher    ReleaseFetcher
	Downloader Downloader
	Confirmer  Confirmer
	Service    Service

	// Swapper returns the swapper to use for a canonical path.
	Swapper func(target string) Swapper

	Logger       *log.Logger
	BackupSuffix string
	BinaryName   string // used for the process check after a restart
	UnitName     string // used in the restart prompt
}

// RunOptions tune a single update run.
type RunOptions struct {
	Restart bool
}

// Updater runs the check/update workflow:
// locate, read version, fetch release, download and verify, compare, then
// back up, swap and optionally restart.
type Updater struct {
	deps Deps
	log  *log.Logger
}

// New creates an Updater from deps.
func New(deps Deps) *Updater {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if deps.BinaryName == "" {
		deps.BinaryName = DefaultBinaryName
	}
	return &Updater{deps: deps, log: logger}
}

// Check runs the workflow up to the comparison and never touches the
// canonical or backup paths.
func (u *Updater) Check(ctx context.Context) (*Result, error) {
	res, downloaded, err := u.compare(ctx)
	u.cleanup(downloaded)
	return res, err
}

// Run performs a full update. Declining, being up to date or finding an older
// release are successful outcomes. A failed restart is recorded in the result
// and never returned as an error.
func (u *Updater) Run(ctx context.Context, opts RunOptions) (*Result, error) {
	res, downloaded, err := u.compare(ctx)
	defer u.cleanup(downloaded)
	if err != nil || res.State != types.StateUpdateAvailable {
		return res, err
	}

	question := fmt.Sprintf("Update %s from %s to %s?", res.BinaryPath, res.InstalledVersion, res.LatestVersion)
	ok, err := u.deps.Confirmer.Confirm(question)
	if err != nil {
		return res, fmt.Errorf("confirmation failed: %w", err)
	}
	if !ok {
		res.enter(types.StateDeclined)
		u.log.Info("update declined", "path", res.BinaryPath)
		return res, nil
	}

	if err := downloaded.Verify(); err != nil {
		return res, &SwapError{Path: res.BinaryPath, Err: err}
	}

	replacer := NewBinaryReplacer(res.BinaryPath, u.deps.BackupSuffix, u.deps.Swapper(res.BinaryPath), u.deps.Reader)

	res.enter(types.StateBackingUp)
	u.log.Info("backing up", "from", res.BinaryPath, "to", replacer.BackupPath())
	if err := replacer.Backup(ctx); err != nil {
		return res, err
	}
	res.BackupPath = replacer.BackupPath()

	res.enter(types.StateSwapping)
	u.log.Info("replacing binary", "path", res.BinaryPath, "version", res.LatestVersion)
	if err := replacer.Swap(ctx, downloaded.Path, downloaded.Version); err != nil {
		return res, err
	}
	res.enter(types.StateSwapped)
	res.Changed = true

	if opts.Restart && u.deps.Service != nil {
		u.restart(ctx, res)
	}

	res.enter(types.StateDone)
	return res, nil
}

// cleanup removes the per-run download directory.
func (u *Updater) cleanup(downloaded *DownloadedBinary) {
	if err := downloaded.Cleanup(); err != nil {
		u.log.Warn("could not remove download directory", "dir", downloaded.Dir, "err", err)
	}
}

// compare locates the installed binary, fetches and verifies the latest
// release, and classifies the pair. The downloaded binary is returned for Run.
func (u *Updater) compare(ctx context.Context) (*Result, *DownloadedBinary, error) {
	res := &Result{}

	path, err := u.deps.Locator.Locate()
	if err != nil {
		return res, nil, err
	}
	res.BinaryPath = path
	u.log.Debug("found installed binary", "path", path)

	installed, err := u.deps.Reader.Read(ctx, path)
	if err != nil {
		return res, nil, err
	}
	res.InstalledVersion = installed
	u.log.Info("installed version", "path", path, "version", installed)

	release, err := u.deps.Fetcher.Latest(ctx)
	if err != nil {
		return res, nil, err
	}
	res.ReleaseTag = release.Tag
	res.ReleaseURL = release.HTMLURL
	res.ReleaseNotes = release.Body
	u.log.Info("latest release", "tag", release.Tag)

	downloaded, err := u.deps.Downloader.Fetch(ctx, release)
	if err != nil {
		return res, nil, err
	}
	u.log.Debug("downloaded release asset", "path", downloaded.Path, "sha256", downloaded.SHA256)

	latest, err := u.deps.Reader.Read(ctx, downloaded.Path)
	if err != nil {
		u.cleanup(downloaded)
		return res, nil, err
	}
	downloaded.Version = latest
	res.LatestVersion = latest

	res.enter(types.StateCompared)
	switch c := latest.Compare(installed); {
	case c > 0:
		res.enter(types.StateUpdateAvailable)
		u.log.Info("update available", "installed", installed, "latest", latest)
	case c == 0:
		res.enter(types.StateUpToDate)
		u.log.Info("already up to date", "version", installed)
	default:
		res.enter(types.StateOlder)
		u.log.Warn("release binary is older than the installed one; leaving it alone",
			"installed", installed, "latest", latest)
	}

	return res, downloaded, nil
}

// restart asks for confirmation, restarts the unit and records the outcome.
func (u *Updater) restart(ctx context.Context, res *Result) {
	unit := u.deps.UnitName
	if unit == "" {
		unit = "the service"
	}
	ok, err := u.deps.Confirmer.Confirm(fmt.Sprintf("Restart %s now?", unit))
	if err != nil || !ok {
		u.log.Info("restart skipped", "unit", unit)
		return
	}

	res.enter(types.StateRestarting)
	if err := u.deps.Service.Restart(ctx); err != nil {
		res.RestartError = err.Error()
		u.log.Warn("restart failed; the new binary is in place, restart the service manually",
			"unit", unit, "err", err)
		return
	}
	res.Restarted = true
	u.log.Info("service restarted", "unit", unit)

	if active, err := u.deps.Service.IsActive(ctx); err == nil {
		res.ServiceActive = &active
	} else {
		u.log.Debug("could not query unit state", "unit", unit, "err", err)
	}
	if running, err := u.deps.Service.ProcessRunning(ctx, u.deps.BinaryName); err == nil {
		res.ProcessRunning = &running
	} else {
		u.log.Debug("could not list processes", "err", err)
	}
}

// RollbackResult reports a restore from backup.
type RollbackResult struct {
	BinaryPath string       `json:"binary_path" yaml:"binary_path"`
	BackupPath string       `json:"backup_path" yaml:"backup_path"`
	Version    BuildVersion `json:"version,omitempty" yaml:"version,omitempty"`
	Declined   bool         `json:"declined" yaml:"declined"`
}

// Rollback restores the backup over the canonical path after confirmation.
func (u *Updater) Rollback(ctx context.Context) (*RollbackResult, error) {
	path, err := u.deps.Locator.Locate()
	if err != nil {
		return nil, err
	}

	replacer := NewBinaryReplacer(path, u.deps.BackupSuffix, u.deps.Swapper(path), u.deps.Reader)
	res := &RollbackResult{BinaryPath: path, BackupPath: replacer.BackupPath()}
	if !replacer.HasBackup() {
		return res, fmt.Errorf("%w: %s", ErrNoBackup, replacer.BackupPath())
	}

	ok, err := u.deps.Confirmer.Confirm(fmt.Sprintf("Restore %s from %s?", path, replacer.BackupPath()))
	if err != nil {
		return res, fmt.Errorf("confirmation failed: %w", err)
	}
	if !ok {
		res.Declined = true
		return res, nil
	}

	u.log.Info("restoring from backup", "path", path, "backup", replacer.BackupPath())
	v, err := replacer.Rollback(ctx)
	if err != nil {
		return res, err
	}
	res.Version = v
	return res, nil
}

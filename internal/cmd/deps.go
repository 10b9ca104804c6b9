package cmd

import (
	"context"
	"net/http"
	"os"

	"github.com/4nozen/NymNodeInstall/internal/config"
	"github.com/4nozen/NymNodeInstall/internal/history"
	"github.com/4nozen/NymNodeInstall/internal/interactive"
	"github.com/4nozen/NymNodeInstall/internal/output"
	"github.com/4nozen/NymNodeInstall/internal/service"
	"github.com/4nozen/NymNodeInstall/internal/update"
)

// loadConfig resolves and loads the configuration for this invocation.
func (a *app) loadConfig() (*config.Config, error) {
	path, err := config.Find(a.opts.configPath)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if path != "" {
		a.logger.Debug("using config file", "path", path)
	}
	return cfg, nil
}

func (a *app) userAgent() string {
	return "nymnode/" + a.build.Version
}

// httpClient returns a client honoring release.timeout (zero means none).
func httpClient(cfg *config.Config) *http.Client {
	return &http.Client{Timeout: cfg.Release.Timeout.Std()}
}

func (a *app) newFetcher(cfg *config.Config) *update.GitHubFetcher {
	return update.NewGitHubFetcher(
		update.WithHTTPClient(httpClient(cfg)),
		update.WithBaseURL(cfg.Release.APIURL),
		update.WithToken(cfg.Release.Token),
		update.WithUserAgent(a.userAgent()),
		update.WithRepo(cfg.Release.Owner, cfg.Release.Repo),
		update.WithAsset(cfg.Release.Asset),
		update.WithChecksumAsset(cfg.Release.ChecksumAsset),
	)
}

func (a *app) newDownloader(cfg *config.Config) (*update.HTTPDownloader, error) {
	opts := []update.DownloaderOption{
		update.WithDownloadClient(httpClient(cfg)),
		update.WithScratchDir(cfg.Paths.ScratchDir),
		update.WithDownloadUserAgent(a.userAgent()),
	}
	if cfg.Release.Keyring != "" {
		verifier, err := update.LoadKeyring(cfg.Release.Keyring)
		if err != nil {
			return nil, err
		}
		opts = append(opts, update.WithSignatureVerifier(verifier))
	}
	return update.NewHTTPDownloader(opts...), nil
}

func newReader(cfg *config.Config) *update.CommandVersionReader {
	return update.NewVersionReader(
		update.WithVersionFlag(cfg.Binary.VersionFlag),
		update.WithVersionField(cfg.Binary.VersionField),
		update.WithVersionTimeout(cfg.Binary.VersionTimeout.Std()),
	)
}

func newLocator(cfg *config.Config) *update.PathLocator {
	return update.NewPathLocator(cfg.Binary.Name, cfg.Binary.FallbackDir)
}

// swapperFactory picks a swapper per target according to swap.mode.
func swapperFactory(cfg *config.Config, runner update.CommandRunner) func(string) update.Swapper {
	mode := cfg.SwapMode()
	return func(target string) update.Swapper {
		return update.NewSwapper(mode, target, runner)
	}
}

// confirmer returns the confirmation provider. Prompts go to stderr when
// stdout carries machine-readable output.
func (a *app) confirmer(yes bool) update.Confirmer {
	out := a.stdout
	if a.format != output.FormatText {
		out = a.stderr
	}
	if yes {
		return interactive.NewAutoConfirmer(out)
	}
	if _, isFile := a.stdin.(*os.File); isFile && !interactive.IsTerminalReader(a.stdin) {
		a.logger.Warn("stdin is not a terminal; answer prompts on stdin or pass --yes")
	}
	return interactive.NewPrompterWithIO(a.stdin, out)
}

func (a *app) newService(cfg *config.Config, runner update.CommandRunner) *service.Manager {
	return service.NewManager(cfg.Service.Unit,
		service.WithRunner(runner),
		service.WithSudo(cfg.Service.UseSudo),
		service.WithLogger(a.logger),
	)
}

// newUpdater wires the full update workflow from cfg.
func (a *app) newUpdater(cfg *config.Config, yes bool) (*update.Updater, error) {
	downloader, err := a.newDownloader(cfg)
	if err != nil {
		return nil, err
	}
	runner := &update.DefaultCommandRunner{}
	svc := a.newService(cfg, runner)

	return update.New(update.Deps{
		Locator:      newLocator(cfg),
		Reader:       newReader(cfg),
		Fetcher:      a.newFetcher(cfg),
		Downloader:   downloader,
		Confirmer:    a.confirmer(yes),
		Service:      svc,
		Swapper:      swapperFactory(cfg, runner),
		Logger:       a.logger,
		BackupSuffix: cfg.Paths.BackupSuffix,
		BinaryName:   cfg.Binary.Name,
		UnitName:     svc.Unit(),
	}), nil
}

func (a *app) newHistory(cfg *config.Config) (*history.Manager, error) {
	return history.NewManager(cfg.Paths.HistoryDir, a.build.Version)
}

// withLock runs fn while holding the run lock.
func (a *app) withLock(ctx context.Context, cfg *config.Config, fn func() error) error {
	lock, err := update.AcquireLock(ctx, cfg.Paths.LockDir)
	if err != nil {
		return err
	}
	a.logger.Debug("lock acquired", "path", lock.Path())
	defer func() {
		if err := lock.Release(); err != nil {
			a.logger.Warn("failed to release lock", "path", lock.Path(), "err", err)
		}
	}()
	return fn()
}

package main

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/solvepkg/wspkg/internal/checkout"
	"github.com/solvepkg/wspkg/internal/container"
	"github.com/solvepkg/wspkg/internal/feedback"
	"github.com/solvepkg/wspkg/internal/model"
	"github.com/solvepkg/wspkg/internal/store"
	"github.com/solvepkg/wspkg/internal/workspace"
)

// workDirName is where wspkg keeps its materialized dependencies and caches,
// analogous to golang-dep's vendor/ plus its dotfile state.
const workDirName = ".wspkg"

// env bundles the composition root's wired collaborators for one CLI
// invocation.
type env struct {
	orch    *workspace.Orchestrator
	cache   *container.VersionCache
	rootDir string
}

func newEnv(rootDir string, outLogger, errLogger *log.Logger, verbose bool) (*env, error) {
	stateDir := filepath.Join(rootDir, workDirName)
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create state directory %s", stateDir)
	}

	cfg, err := loadConfigOrDefault(filepath.Join(rootDir, workspace.ConfigName))
	if err != nil {
		return nil, err
	}

	pins, err := store.LoadPinStore(filepath.Join(stateDir, store.PinStoreName))
	if err != nil {
		return nil, errors.Wrap(err, "load pin store")
	}
	managed, err := store.LoadManagedStore(filepath.Join(stateDir, store.ManagedStoreName))
	if err != nil {
		return nil, errors.Wrap(err, "load managed store")
	}

	cache, err := container.OpenVersionCache(filepath.Join(stateDir, "cache.db"), time.Now().Unix())
	if err != nil {
		return nil, errors.Wrap(err, "open version cache")
	}

	provider := container.NewSCMProvider(filepath.Join(stateDir, "sources"), cache)

	ctx := &workspace.Ctx{
		RootDir: rootDir,
		Config:  cfg,
		Loggers: &workspace.Loggers{Out: outLogger, Err: errLogger, Verbose: verbose},
	}
	ctx.UseDefaultSignalHandling()

	orch := &workspace.Orchestrator{
		Ctx:      ctx,
		Loader:   fileManifestLoader{},
		Pins:     pins,
		Managed:  managed,
		Provider: provider,
		Solver:   passthroughSolver{},
		Paths: checkout.PathResolver(func(id model.PackageIdentity) string {
			return filepath.Join(stateDir, "packages", string(id))
		}),
		Feedback: feedback.NewSink(nil),
	}

	return &env{orch: orch, cache: cache, rootDir: rootDir}, nil
}

func loadConfigOrDefault(path string) (workspace.Config, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return workspace.DefaultConfig(), nil
	}
	if err != nil {
		return workspace.Config{}, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()
	return workspace.LoadConfig(f)
}

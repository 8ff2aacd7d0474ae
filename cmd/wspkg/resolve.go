package main

import (
	"flag"

	"github.com/solvepkg/wspkg/internal/workspace"
)

const resolveShortHelp = `Resolve the workspace using the lock file, a forced update, or best effort`
const resolveLongHelp = `
With no flags, resolve() picks the best-effort strategy: reuse the lock file
when the manifests haven't drifted and nothing requires re-resolution,
otherwise fall back to a full update.

  -from-lock  trust Package.resolved as authoritative; error if it cannot
              satisfy the current manifests without further resolution
  -update     force a full resolve and update, ignoring the lock file
`

type resolveCommand struct {
	fromLock bool
	update   bool
	force    bool
}

func (cmd *resolveCommand) Name() string      { return "resolve" }
func (cmd *resolveCommand) Args() string      { return "" }
func (cmd *resolveCommand) ShortHelp() string { return resolveShortHelp }
func (cmd *resolveCommand) LongHelp() string  { return resolveLongHelp }
func (cmd *resolveCommand) Hidden() bool      { return false }

func (cmd *resolveCommand) Register(fs *flag.FlagSet) {
	fs.BoolVar(&cmd.fromLock, "from-lock", false, "trust the lock file as authoritative")
	fs.BoolVar(&cmd.update, "update", false, "force a full resolve and update")
	fs.BoolVar(&cmd.force, "force", false, "with -update, also move branch-tracking packages to their latest revision")
}

func (cmd *resolveCommand) Run(e *env, args []string) error {
	strategy := workspace.BestEffort()
	switch {
	case cmd.fromLock:
		strategy = workspace.LockFile()
	case cmd.update:
		strategy = workspace.UpdateStrategy(cmd.force)
	}

	result, err := e.orch.Resolve([]string{e.rootDir}, strategy)
	if err != nil {
		return err
	}

	if result.Update != nil {
		for _, c := range result.Update.Changes {
			e.orch.Ctx.Loggers.Printf("%s: %s\n", c.Ref.Identity, c.Change.Kind)
		}
		return nil
	}
	if result.Precomputation.RequiresResolution() {
		e.orch.Ctx.Loggers.Errf("lock file is stale: %s\n", result.Precomputation.Message)
	}
	return nil
}

package main

import (
	"flag"
	"fmt"

	"github.com/solvepkg/wspkg/internal/workspace"
)

const updateShortHelp = `Update locked dependencies to satisfy the current manifests`
const updateLongHelp = `
Re-resolves the workspace's dependency graph and checks out whatever changed.

With no arguments every managed dependency is eligible for an update. Passing
one or more package identities restricts the update to just those packages,
leaving the rest pinned at their current revision.
`

type updateCommand struct {
	dryRun         bool
	updateBranches bool
}

func (cmd *updateCommand) Name() string      { return "update" }
func (cmd *updateCommand) Args() string      { return "[package...]" }
func (cmd *updateCommand) ShortHelp() string { return updateShortHelp }
func (cmd *updateCommand) LongHelp() string  { return updateLongHelp }
func (cmd *updateCommand) Hidden() bool      { return false }

func (cmd *updateCommand) Register(fs *flag.FlagSet) {
	fs.BoolVar(&cmd.dryRun, "dry-run", false, "report what would change without checking anything out")
	fs.BoolVar(&cmd.updateBranches, "update-branches", false, "re-fetch branch-tracking packages instead of freezing them")
}

func (cmd *updateCommand) Run(e *env, args []string) error {
	opts := workspace.UpdateOptions{
		RootPaths:      []string{e.rootDir},
		DryRun:         cmd.dryRun,
		UpdateBranches: cmd.updateBranches,
	}
	for _, a := range args {
		opts.Packages = append(opts.Packages, identityArg(a))
	}

	result, err := e.orch.Update(opts)
	if err != nil {
		return err
	}

	if cmd.dryRun {
		fmt.Print(string(result.DryRunReport))
		return nil
	}
	for _, w := range result.Warnings {
		e.orch.Ctx.Loggers.Errf("%s: %s\n", w.Identity, w.Message)
	}
	for _, c := range result.Changes {
		e.orch.Ctx.Loggers.Printf("%s: %s\n", c.Ref.Identity, c.Change.Kind)
	}
	return nil
}

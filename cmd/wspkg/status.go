package main

import (
	"flag"
	"fmt"
	"text/tabwriter"
)

const statusShortHelp = `Report the status of the workspace's dependencies`
const statusLongHelp = `
Prints a read-only report comparing the manifests against the managed
dependency set and the lock file. Performs no network access and mutates
nothing.
`

type statusCommand struct{}

func (cmd *statusCommand) Name() string      { return "status" }
func (cmd *statusCommand) Args() string      { return "" }
func (cmd *statusCommand) ShortHelp() string { return statusShortHelp }
func (cmd *statusCommand) LongHelp() string  { return statusLongHelp }
func (cmd *statusCommand) Hidden() bool      { return false }

func (cmd *statusCommand) Register(fs *flag.FlagSet) {}

func (cmd *statusCommand) Run(e *env, args []string) error {
	report, err := e.orch.Status([]string{e.rootDir})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(e.orch.Ctx.Loggers.Out.Writer(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "PACKAGE\tKIND\tVERSION\tREVISION\tSTALE\n")
	for _, entry := range report.Entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%v\n", entry.Identity, entry.Kind, entry.Version, entry.Revision, entry.HashMismatch)
	}
	return w.Flush()
}

package checkout

import (
	"github.com/pelletier/go-toml"

	"github.com/solvepkg/wspkg/internal/model"
)

// ChangeReport is a TOML-renderable projection of a reconciler change list,
// the dry-run format update(dryRun=true) hands back instead of applying
// anything, mirroring golang-dep's SafeWriter.PrintPreparedActions.
type ChangeReport struct {
	Added     []ChangeReportEntry `toml:"added,omitempty"`
	Updated   []ChangeReportEntry `toml:"updated,omitempty"`
	Removed   []ChangeReportEntry `toml:"removed,omitempty"`
	Unchanged []ChangeReportEntry `toml:"unchanged,omitempty"`
}

// ChangeReportEntry is one row of a ChangeReport.
type ChangeReportEntry struct {
	Identity string `toml:"identity"`
	Version  string `toml:"version,omitempty"`
	Revision string `toml:"revision,omitempty"`
	Branch   string `toml:"branch,omitempty"`
}

// BuildChangeReport projects a reconciler change list into a ChangeReport.
func BuildChangeReport(entries []model.ReconcileEntry) ChangeReport {
	var r ChangeReport
	for _, e := range entries {
		row := ChangeReportEntry{
			Identity: string(e.Ref.Identity),
			Version:  e.Change.Requirement.Version.String(),
			Revision: string(e.Change.Requirement.Revision),
			Branch:   e.Change.Requirement.Branch,
		}
		switch e.Change.Kind {
		case model.ChangeAdded:
			r.Added = append(r.Added, row)
		case model.ChangeUpdated:
			r.Updated = append(r.Updated, row)
		case model.ChangeRemoved:
			r.Removed = append(r.Removed, row)
		case model.ChangeUnchanged:
			r.Unchanged = append(r.Unchanged, row)
		}
	}
	return r
}

// Render serializes a ChangeReport to TOML for human display.
func (r ChangeReport) Render() ([]byte, error) {
	return toml.Marshal(r)
}

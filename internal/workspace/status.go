package workspace

import (
	"sort"

	"github.com/solvepkg/wspkg/internal/model"
)

// StatusEntry is one row of a read-only dependency status report, mirroring
// the PROJECT/CONSTRAINT/VERSION/REVISION columns cmd/dep's `dep status`
// prints, minus the package-usage count this module doesn't track.
type StatusEntry struct {
	Identity     model.PackageIdentity
	Kind         model.ManagedKind
	Version      string
	Revision     string
	Branch       string
	OriginHash   string
	HashMismatch bool
}

// StatusReport is the full read-only snapshot Status() returns.
type StatusReport struct {
	Entries    []StatusEntry
	OriginHash string
}

// Status produces a read-only report of the current managed dependency set
// against the pin store, performing no mutation and no network access —
// SPEC_FULL.md's supplement to the three mutating entry points, grounded on
// cmd/dep's `status` subcommand.
func (o *Orchestrator) Status(rootPaths []string) (StatusReport, error) {
	roots, err := o.Loader.LoadRootManifests(rootPaths)
	if err != nil {
		return StatusReport{}, &FatalError{Kind: ErrorInvalidInput, Message: err.Error()}
	}

	var locations []string
	for _, c := range rootConstraintsFromManifests(roots) {
		locations = append(locations, c.Package.Location)
	}
	currentHash := computeOriginHash(roots, locations)
	savedHash := o.Pins.CurrentOriginHash()

	deps := o.Managed.All()
	entries := make([]StatusEntry, 0, len(deps))
	for _, dep := range deps {
		entry := StatusEntry{Identity: dep.Identity(), Kind: model.ManagedKind(dep.State.Kind), OriginHash: savedHash, HashMismatch: savedHash != currentHash}
		switch entry.Kind {
		case model.ManagedSourceControlCheckout:
			entry.Revision = string(dep.State.Checkout.Revision)
			switch dep.State.Checkout.Kind {
			case model.CheckoutVersion:
				entry.Version = dep.State.Checkout.Version.String()
			case model.CheckoutBranch:
				entry.Branch = dep.State.Checkout.Branch
			}
		case model.ManagedRegistryDownload, model.ManagedCustom:
			entry.Version = dep.State.Version.String()
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Identity < entries[j].Identity })

	return StatusReport{Entries: entries, OriginHash: currentHash}, nil
}

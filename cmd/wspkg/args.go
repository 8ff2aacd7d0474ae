package main

import "github.com/solvepkg/wspkg/internal/model"

// identityArg treats a bare CLI argument as a package identity. A fuller
// implementation would also accept "identity@constraint" the way `dep
// ensure`'s project spec does; constraint-editing from the CLI is out of
// this module's scope (constraints live in the manifest).
func identityArg(arg string) model.PackageIdentity {
	return model.PackageIdentity(arg)
}

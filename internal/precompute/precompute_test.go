package precompute

import (
	"testing"

	"github.com/solvepkg/wspkg/internal/model"
	"github.com/solvepkg/wspkg/internal/resolver"
)

type stubSource struct {
	root, loaded, edited []resolver.Constraint
}

func (s stubSource) RootConstraints() []resolver.Constraint   { return s.root }
func (s stubSource) LoadedConstraints() []resolver.Constraint { return s.loaded }
func (s stubSource) EditedConstraints() []resolver.Constraint { return s.edited }

type stubPins struct{ pins []model.ResolvedPackage }

func (s stubPins) Pins() []model.ResolvedPackage { return s.pins }

type stubSolver struct {
	gotParams resolver.Params
	result    resolver.Result
	err       error
}

func (s *stubSolver) Solve(params resolver.Params) (resolver.Result, error) {
	s.gotParams = params
	return s.result, s.err
}

func ref(id string) model.PackageReference {
	return model.PackageReference{Identity: model.PackageIdentity(id), Location: id}
}

func TestRunNotRequiredOnSuccess(t *testing.T) {
	solver := &stubSolver{result: resolver.Result{Bindings: []model.DependencyResolverBinding{{Package: ref("lib")}}}}
	p := New(solver)

	res, err := p.Run(stubSource{}, stubPins{}, nil, false)
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != model.PrecomputationNotRequired {
		t.Fatalf("expected notRequired, got %v", res.Kind)
	}
}

func TestRunMapsMissingPackageFailure(t *testing.T) {
	solver := &stubSolver{result: resolver.Result{Err: &resolver.Failure{Kind: resolver.FailureMissingPackage, Package: ref("lib")}}}
	p := New(solver)

	res, err := p.Run(stubSource{}, stubPins{}, nil, false)
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != model.PrecomputationRequiredNewPackages || res.NewPackage.Identity != "lib" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestRunMapsDifferentRequirementFailure(t *testing.T) {
	solver := &stubSolver{result: resolver.Result{Err: &resolver.Failure{
		Kind:         resolver.FailureDifferentRequirement,
		Package:      ref("lib"),
		CurrentState: model.ManagedDependencyState{Kind: uint8(model.ManagedRegistryDownload)},
		Requested:    model.Requirement{Kind: model.RequireVersion},
	}}}
	p := New(solver)

	res, err := p.Run(stubSource{}, stubPins{}, nil, false)
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != model.PrecomputationRequiredRequirementChange || res.ChangedPackage.Identity != "lib" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestRunShortCircuitsOnPriorDiagnostics(t *testing.T) {
	solver := &stubSolver{}
	p := New(solver)

	res, err := p.Run(stubSource{}, stubPins{}, nil, true)
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != model.PrecomputationRequiredErrorsPreviouslyReported {
		t.Fatalf("expected errorsPreviouslyReported, got %v", res.Kind)
	}
	if solver.gotParams.Constraints != nil || solver.gotParams.Hints != nil {
		t.Fatal("solver must not be invoked when diagnostics already failed")
	}
}

func TestRunUnionsConstraintsAndCallerConstraints(t *testing.T) {
	src := stubSource{
		root:   []resolver.Constraint{{Package: ref("a"), Source: resolver.SourceRoot}},
		loaded: []resolver.Constraint{{Package: ref("b"), Source: resolver.SourceManifest}},
		edited: []resolver.Constraint{{Package: ref("c"), Source: resolver.SourceEdited}},
	}
	caller := []resolver.Constraint{{Package: ref("d"), Source: resolver.SourceCaller}}
	pins := stubPins{pins: []model.ResolvedPackage{{PackageRef: ref("a"), State: model.PinState{Kind: model.PinVersion}}}}

	solver := &stubSolver{result: resolver.Result{Bindings: []model.DependencyResolverBinding{}}}
	p := New(solver)

	if _, err := p.Run(src, pins, caller, false); err != nil {
		t.Fatal(err)
	}
	if len(solver.gotParams.Constraints) != 4 {
		t.Fatalf("expected 4 unioned constraints, got %d", len(solver.gotParams.Constraints))
	}
	if len(solver.gotParams.Hints) != 1 || solver.gotParams.Hints[0].Package.Identity != "a" {
		t.Fatalf("expected pin hints to carry through, got %+v", solver.gotParams.Hints)
	}
}

// Package plugin models the compiler-pass-hook surface (§6): a pass
// captures a function before its own transformation runs, then on a
// second visit pairs that capture with the post-transformation
// function and verifies refinement between them, grounded on
// tools/tv.cpp's "TVPass" capture/compare workflow (carried here as
// the Observe/Verify two-call protocol rather than translated
// verbatim, since the original's shape is an LLVM pass, not a
// standalone API).
package plugin

import (
	"context"
	"fmt"
	"sync"

	"github.com/Masterminds/semver/v3"

	"github.com/borzacchiello/alivetv/internal/tvlog"
	"github.com/borzacchiello/alivetv/ir"
	"github.com/borzacchiello/alivetv/refine"
	"github.com/borzacchiello/alivetv/smt"
	"github.com/borzacchiello/alivetv/tv"
)

// CoreVersion is this module's own version, checked against a
// Registration's MinCoreVersion at registration time.
var CoreVersion = semver.MustParse("0.1.0")

// Options mirrors the CLI flags named in §6: FatalErrors stops a batch
// as soon as one pair fails refinement, PrintFunctionHeader prints
// Transform.Header() before each result, EachVar additionally runs the
// per-value refinement mode.
type Options struct {
	FatalErrors        bool
	PrintFunctionHeader bool
	EachVar            bool
}

// Registration is a compiler pass's hook into the verifier: it names
// the pass, declares the oldest core version it was written against,
// and is driven by Observe then Verify for every function the pass
// visits.
type Registration struct {
	PassName       string
	MinCoreVersion *semver.Constraints

	b      *smt.Builder
	opts   Options
	newSlv func() *smt.Solver

	mu      sync.Mutex
	pending map[string]*ir.Function // keyed by function name, set by Observe
}

// Register builds a Registration, rejecting it outright if this
// module's CoreVersion does not satisfy minCoreVersion — a pass built
// against a newer core than this one is refused rather than run with
// silently mismatched semantics.
func Register(passName, minCoreVersion string, b *smt.Builder, newSlv func() *smt.Solver, opts Options) (*Registration, error) {
	constraint, err := semver.NewConstraint(minCoreVersion)
	if err != nil {
		return nil, fmt.Errorf("plugin: invalid MinCoreVersion constraint %q: %w", minCoreVersion, err)
	}
	if !constraint.Check(CoreVersion) {
		return nil, fmt.Errorf("plugin: pass %q requires core %s, have %s", passName, minCoreVersion, CoreVersion)
	}
	return &Registration{
		PassName:       passName,
		MinCoreVersion: constraint,
		b:              b,
		opts:           opts,
		newSlv:         newSlv,
		pending:        make(map[string]*ir.Function),
	}, nil
}

// Observe captures fn as the pre-transformation state of the named
// function. It is the pass's first visit, before its own rewrite runs.
func (r *Registration) Observe(name string, fn *ir.Function) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending[name] = fn
}

// Verify is the pass's second visit: it pairs the transformed function
// against whatever Observe captured under the same name and runs the
// refinement checker. If Observe was never called for name, Verify
// returns an error rather than silently skipping — a pass driving this
// protocol out of order is a programming error in the pass, not a
// verification outcome.
func (r *Registration) Verify(ctx context.Context, name string, transformed *ir.Function) (*refine.Errors, error) {
	r.mu.Lock()
	src, ok := r.pending[name]
	if ok {
		delete(r.pending, name)
	}
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("plugin: Verify(%q) with no matching Observe", name)
	}

	t := &tv.Transform{Name: name, Src: src, Tgt: transformed}
	solver := smt.NewSolver(r.b)
	defer solver.Close()

	errs, err := tv.Verify(ctx, r.b, solver, t, tv.Options{CheckEachVar: r.opts.EachVar})
	if err != nil {
		return nil, err
	}

	if r.opts.PrintFunctionHeader {
		tvlog.Info.Print(t.Header())
	}
	if errs.HasFailures() && r.opts.FatalErrors {
		tvlog.Error.Printf("%s: refinement failed:\n%s", t.Header(), errs.String())
	}
	return errs, nil
}

package tv

import (
	"context"

	"github.com/borzacchiello/alivetv/internal/tvlog"
	"github.com/borzacchiello/alivetv/ir"
	"github.com/borzacchiello/alivetv/refine"
	"github.com/borzacchiello/alivetv/smt"
)

// DefaultMaxTypings bounds the typing-assignment enumeration loop
// (§4.8: "bounded") so a transform with many admissible symbolic
// types cannot run forever; it can be overridden per call via
// Options.MaxTypings.
const DefaultMaxTypings = 16

// Options configures one Verify call.
type Options struct {
	// SingleTyping stops after the first satisfying typing
	// assignment instead of enumerating all of them.
	SingleTyping bool
	// CheckEachVar additionally runs the per-value refinement
	// variant (§4.6) alongside the whole-function queries.
	CheckEachVar bool
	// MaxTypings bounds enumeration; 0 means DefaultMaxTypings.
	MaxTypings int
}

// Verify implements the C8 driver: enumerate joint typing
// assignments, symbolically execute both sides under each, and run
// the refinement checker, accumulating diagnostics across every
// assignment considered. Verify runs its queries on the given solver
// sequentially (§5: single-threaded); a caller driving many
// independent Transforms concurrently should give each its own
// Builder and Solver rather than share this one. cmd/tv shares one
// Builder across a file's transforms and verifies them one at a time.
func Verify(ctx context.Context, b *smt.Builder, solver *smt.Solver, t *Transform, opts Options) (*refine.Errors, error) {
	errs := &refine.Errors{}
	maxTypings := opts.MaxTypings
	if maxTypings <= 0 {
		maxTypings = DefaultMaxTypings
	}

	srcConstraints := t.Src.TypeConstraints()
	tgtConstraints := t.Tgt.TypeConstraints()
	joint, err := b.BoolAnd(srcConstraints, tgtConstraints)
	if err != nil {
		return nil, err
	}

	vars := append(append([]smt.BV{}, t.Src.TypeVars()...), t.Tgt.TypeVars()...)

	err = solver.WithScope(func() error {
		solver.Assert(joint)

		count := 0
		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, model := solver.CheckSat()
			if res == smt.ResultUnsat {
				if count == 0 {
					errs.Add(refine.KindTypeUnsat, "")
				}
				return nil
			}
			if res == smt.ResultUnknown {
				tvlog.Info.Print("type-constraint solving timed out")
				return nil
			}
			if res == smt.ResultError {
				tvlog.Error.Print("type-constraint solver error")
				return nil
			}

			count++
			t.Src.FixupTypes(model)
			t.Tgt.FixupTypes(model)

			stateS, err := ir.Exec(b, t.Src)
			if err != nil {
				return err
			}
			stateT, err := ir.Exec(b, t.Tgt)
			if err != nil {
				return err
			}
			finS, err := refine.Finalize(t.Src, stateS)
			if err != nil {
				return err
			}
			finT, err := refine.Finalize(t.Tgt, stateT)
			if err != nil {
				return err
			}

			if err := refine.Check(ctx, b, solver, finS, finT, errs); err != nil {
				return err
			}
			if opts.CheckEachVar {
				if err := refine.CheckEachVar(ctx, b, solver, finS, finT, errs); err != nil {
					return err
				}
			}

			if opts.SingleTyping {
				return nil
			}
			if count >= maxTypings {
				tvlog.Info.Printf("%s: typing enumeration stopped after %d assignments", t.Header(), maxTypings)
				return nil
			}
			solver.Block(vars, model)
		}
	})
	if err != nil {
		return nil, err
	}
	return errs, nil
}

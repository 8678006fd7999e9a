package refine

import (
	"context"

	"github.com/borzacchiello/alivetv/internal/tvlog"
	"github.com/borzacchiello/alivetv/ir"
	"github.com/borzacchiello/alivetv/smt"
)

// Finalized bundles an executed function's whole-function aggregate
// with the function and state it came from, so per-value lookups
// (check_each_var) can still reach named instructions.
type Finalized struct {
	Fn    *ir.Function
	State *ir.State

	Domain smt.Bool
	Value  ir.StateValue
}

// Finalize runs State.Finalize and bundles the result.
func Finalize(fn *ir.Function, s *ir.State) (Finalized, error) {
	domain, value, err := s.Finalize()
	if err != nil {
		return Finalized{}, err
	}
	return Finalized{Fn: fn, State: s, Domain: domain, Value: value}, nil
}

// quantVars is the union of both sides' quantifier variables (§4.6:
// Q_glob).
func quantVars(src, tgt Finalized) []smt.BV {
	return append(append([]smt.BV{}, src.State.QuantVars...), tgt.State.QuantVars...)
}

// Check runs the three whole-function refinement queries (§4.6) via a
// single, sequential CheckBatch dispatch, and appends any resulting
// diagnostics to errs.
func Check(ctx context.Context, b *smt.Builder, solver *smt.Solver, src, tgt Finalized, errs *Errors) error {
	q := quantVars(src, tgt)

	// A side that reaches no Return finalizes to a false domain and an
	// empty value. The other side's value stands in for it, so only the
	// domain query can report against it; with neither side returning,
	// no query can be satisfied.
	srcNone, tgtNone := src.Value.Value == (smt.BV{}), tgt.Value.Value == (smt.BV{})
	switch {
	case srcNone && tgtNone:
		return nil
	case srcNone:
		src.Value = tgt.Value
	case tgtNone:
		tgt.Value = src.Value
	}

	domainGoal, err := b.NotImplies(src.Domain, tgt.Domain)
	if err != nil {
		return err
	}
	poisonBase, err := b.BoolAnd(src.Domain, src.Value.NonPoison)
	if err != nil {
		return err
	}
	poisonGoal, err := b.NotImplies(poisonBase, tgt.Value.NonPoison)
	if err != nil {
		return err
	}
	valueBase, err := b.BoolAnd(src.Domain, src.Value.NonPoison)
	if err != nil {
		return err
	}
	valueEq, err := b.Eq(src.Value.Value, tgt.Value.Value)
	if err != nil {
		return err
	}
	valueGoal, err := b.NotImplies(valueBase, valueEq)
	if err != nil {
		return err
	}

	goals := []smt.Goal{
		{Name: "domain", Assert: b.ForAll(q, domainGoal)},
		{Name: "poison", Assert: b.ForAll(q, poisonGoal)},
		{Name: "value", Assert: b.ForAll(q, valueGoal)},
	}
	results := solver.CheckBatch(ctx, goals)

	kindByName := map[string]Kind{
		"domain": KindSourceMoreDefined,
		"poison": KindTargetMorePoisonous,
		"value":  KindValueMismatch,
	}
	for _, r := range results {
		switch r.Result {
		case smt.ResultSat:
			errs.Add(kindByName[r.Name], "")
		case smt.ResultUnknown:
			errs.Add(KindUndecided, r.Name)
			tvlog.Info.Printf("refinement query %q timed out", r.Name)
		case smt.ResultUnsat:
			// no failure
		case smt.ResultError:
			tvlog.Error.Printf("refinement query %q: solver error", r.Name)
		}
	}
	return nil
}

// CheckEachVar runs the poison and value refinement queries once per
// named source instruction that has a same-named target counterpart,
// with both domains forced to true; the domain query is not issued,
// since with both domains true it can never be satisfied (§4.6, §9 Open Questions: unsound in
// the presence of UB-propagating prior instructions — intermediate
// instructions are not actually always defined, but the reference
// behavior passes true regardless, and this implementation preserves
// that documented limitation rather than inventing different
// semantics).
func CheckEachVar(ctx context.Context, b *smt.Builder, solver *smt.Solver, src, tgt Finalized, errs *Errors) error {
	trueDomain := b.BoolVal(true)
	q := quantVars(src, tgt)

	var goals []smt.Goal
	kindByName := map[string]Kind{}

	for name, ref := range allNames(src.Fn) {
		tgtRef, ok := tgt.Fn.Lookup(name)
		if !ok {
			continue
		}
		srcSV, ok := src.State.Get(ref)
		if !ok {
			continue
		}
		tgtSV, ok := tgt.State.Get(tgtRef)
		if !ok {
			continue
		}
		if srcSV.Size() != tgtSV.Size() {
			continue
		}

		poisonGoal, err := b.NotImplies(srcSV.NonPoison, tgtSV.NonPoison)
		if err != nil {
			return err
		}
		valueEq, err := b.Eq(srcSV.Value, tgtSV.Value)
		if err != nil {
			return err
		}
		valueBase, err := b.BoolAnd(trueDomain, srcSV.NonPoison)
		if err != nil {
			return err
		}
		valueGoal, err := b.NotImplies(valueBase, valueEq)
		if err != nil {
			return err
		}

		poisonName := "poison:" + name
		valueName := "value:" + name
		kindByName[poisonName] = KindTargetMorePoisonous
		kindByName[valueName] = KindValueMismatch
		goals = append(goals,
			smt.Goal{Name: poisonName, Assert: b.ForAll(q, poisonGoal)},
			smt.Goal{Name: valueName, Assert: b.ForAll(q, valueGoal)},
		)
	}

	if len(goals) == 0 {
		return nil
	}
	results := solver.CheckBatch(ctx, goals)
	for _, r := range results {
		switch r.Result {
		case smt.ResultSat:
			errs.Add(kindByName[r.Name], r.Name)
		case smt.ResultUnknown:
			errs.Add(KindUndecided, r.Name)
		case smt.ResultError:
			tvlog.Error.Printf("per-value refinement query %q: solver error", r.Name)
		}
	}
	return nil
}

// allNames returns every named instruction ref in fn, source-order is
// not significant since each is checked independently.
func allNames(fn *ir.Function) map[string]ir.ValueRef {
	res := map[string]ir.ValueRef{}
	for _, bb := range fn.Blocks {
		for _, ref := range bb.Instr {
			name := fn.Value(ref).Name()
			if name != "" {
				res[name] = ref
			}
		}
	}
	return res
}

package refine

import (
	"context"
	"testing"

	"github.com/borzacchiello/alivetv/ir"
	"github.com/borzacchiello/alivetv/smt"
)

func newFinalized(b *smt.Builder, domain smt.Bool, value smt.BV, nonPoison smt.Bool) Finalized {
	fn := ir.NewFunction(b, "f")
	s, err := ir.Exec(b, fn)
	if err != nil {
		panic(err)
	}
	return Finalized{Fn: fn, State: s, Domain: domain, Value: ir.StateValue{Value: value, NonPoison: nonPoison}}
}

func TestCheckPassesOnIdenticalFunctions(t *testing.T) {
	b := smt.NewBuilder()
	solver := smt.NewSolver(b)
	defer solver.Close()

	v := b.BVV(5, 8)
	src := newFinalized(b, b.BoolVal(true), v, b.BoolVal(true))
	tgt := newFinalized(b, b.BoolVal(true), v, b.BoolVal(true))

	errs := &Errors{}
	if err := Check(context.Background(), b, solver, src, tgt, errs); err != nil {
		t.Fatal(err)
	}
	if errs.HasFailures() {
		t.Fatalf("identical src/tgt should refine cleanly, got %s", errs)
	}
}

func TestCheckDetectsValueMismatch(t *testing.T) {
	b := smt.NewBuilder()
	solver := smt.NewSolver(b)
	defer solver.Close()

	src := newFinalized(b, b.BoolVal(true), b.BVV(5, 8), b.BoolVal(true))
	tgt := newFinalized(b, b.BoolVal(true), b.BVV(6, 8), b.BoolVal(true))

	errs := &Errors{}
	if err := Check(context.Background(), b, solver, src, tgt, errs); err != nil {
		t.Fatal(err)
	}
	if !errs.HasFailures() {
		t.Fatalf("differing constant values should be reported as a value mismatch")
	}
}

func TestCheckDetectsTargetMorePoisonous(t *testing.T) {
	b := smt.NewBuilder()
	solver := smt.NewSolver(b)
	defer solver.Close()

	v := b.BVV(5, 8)
	src := newFinalized(b, b.BoolVal(true), v, b.BoolVal(true))
	tgt := newFinalized(b, b.BoolVal(true), v, b.BoolVal(false))

	errs := &Errors{}
	if err := Check(context.Background(), b, solver, src, tgt, errs); err != nil {
		t.Fatal(err)
	}
	if !errs.HasFailures() {
		t.Fatalf("an always-poisonous target should fail the poison refinement check")
	}
}

func TestCheckDetectsSourceMoreDefined(t *testing.T) {
	b := smt.NewBuilder()
	solver := smt.NewSolver(b)
	defer solver.Close()

	v := b.BVV(5, 8)
	src := newFinalized(b, b.BoolVal(true), v, b.BoolVal(true))
	tgt := newFinalized(b, b.BoolVal(false), v, b.BoolVal(true))

	errs := &Errors{}
	if err := Check(context.Background(), b, solver, src, tgt, errs); err != nil {
		t.Fatal(err)
	}
	if !errs.HasFailures() {
		t.Fatalf("a target domain narrower than source's should fail the domain refinement check")
	}
}

func TestCheckEachVarSkipsUnmatchedNames(t *testing.T) {
	b := smt.NewBuilder()
	solver := smt.NewSolver(b)
	defer solver.Close()

	srcFn := ir.NewFunction(b, "src")
	a := srcFn.AddInput("a", ir.NewIntType(8))
	srcFn.AddInstruction("", "r1", ir.NewBinOp("r1", ir.NewIntType(8), ir.OpAdd, 0, a, a))
	srcState, err := ir.Exec(b, srcFn)
	if err != nil {
		t.Fatal(err)
	}
	srcFin, err := Finalize(srcFn, srcState)
	if err != nil {
		t.Fatal(err)
	}

	tgtFn := ir.NewFunction(b, "tgt")
	tgtState, err := ir.Exec(b, tgtFn)
	if err != nil {
		t.Fatal(err)
	}
	tgtFin, err := Finalize(tgtFn, tgtState)
	if err != nil {
		t.Fatal(err)
	}

	errs := &Errors{}
	if err := CheckEachVar(context.Background(), b, solver, srcFin, tgtFin, errs); err != nil {
		t.Fatal(err)
	}
	if !errs.IsEmpty() {
		t.Fatalf("with no matching names CheckEachVar should produce no goals, got %s", errs)
	}
}

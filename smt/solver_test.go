package smt

import (
	"context"
	"testing"
)

func TestCheckSatisfiableGoal(t *testing.T) {
	b := NewBuilder()
	s := NewSolver(b)
	defer s.Close()

	x := b.BVS("x", 8)
	goal, err := b.Eq(x, b.BVV(5, 8))
	if err != nil {
		t.Fatal(err)
	}
	res, model := s.Check(goal)
	if res != ResultSat {
		t.Fatalf("expected sat, got %s", res)
	}
	c, ok := model.Eval(x)
	if !ok || c.AsLong() != 5 {
		t.Fatalf("expected the model to assign x=5")
	}
}

func TestCheckUnsatisfiableGoal(t *testing.T) {
	b := NewBuilder()
	s := NewSolver(b)
	defer s.Close()

	x := b.BVS("x", 8)
	eq, err := b.Eq(x, b.BVV(5, 8))
	if err != nil {
		t.Fatal(err)
	}
	neq, err := b.Eq(x, b.BVV(6, 8))
	if err != nil {
		t.Fatal(err)
	}
	both, err := b.BoolAnd(eq, neq)
	if err != nil {
		t.Fatal(err)
	}
	res, _ := s.Check(both)
	if res != ResultUnsat {
		t.Fatalf("expected unsat, got %s", res)
	}
}

func TestCheckDiscardsItsScope(t *testing.T) {
	b := NewBuilder()
	s := NewSolver(b)
	defer s.Close()

	x := b.BVS("x", 8)
	narrow, err := b.Eq(x, b.BVV(1, 8))
	if err != nil {
		t.Fatal(err)
	}
	s.Check(narrow)

	wide, err := b.Eq(x, b.BVV(2, 8))
	if err != nil {
		t.Fatal(err)
	}
	res, _ := s.Check(wide)
	if res != ResultSat {
		t.Fatalf("Check's own scope should not leak into a later Check, got %s", res)
	}
}

func TestPushPopBalancesAssertions(t *testing.T) {
	b := NewBuilder()
	s := NewSolver(b)
	defer s.Close()

	x := b.BVS("x", 8)
	eqOne, err := b.Eq(x, b.BVV(1, 8))
	if err != nil {
		t.Fatal(err)
	}
	s.Push()
	s.Assert(eqOne)
	res, _ := s.CheckSat()
	if res != ResultSat {
		t.Fatalf("expected sat inside the pushed scope")
	}
	s.Pop()

	eqTwo, err := b.Eq(x, b.BVV(2, 8))
	if err != nil {
		t.Fatal(err)
	}
	res, _ = s.Check(eqTwo)
	if res != ResultSat {
		t.Fatalf("x==1 should not still be asserted after Pop")
	}
}

func TestPopWithoutPushPanics(t *testing.T) {
	b := NewBuilder()
	s := NewSolver(b)
	defer s.Close()
	defer func() {
		if recover() == nil {
			t.Fatalf("expected Pop without a matching Push to panic")
		}
	}()
	s.Pop()
}

func TestBlockExcludesPreviousModel(t *testing.T) {
	b := NewBuilder()
	s := NewSolver(b)
	defer s.Close()

	x := b.BVS("x", 2)
	s.Push()
	defer s.Pop()
	// The model only covers symbols that occur in an assertion, so
	// mention x in one that every 2-bit value satisfies.
	inRange, err := b.ULe(x, b.BVV(3, 2))
	if err != nil {
		t.Fatal(err)
	}
	s.Assert(inRange)

	res, model := s.CheckSat()
	if res != ResultSat {
		t.Fatalf("an unconstrained 2-bit symbol should be trivially sat")
	}
	s.Block([]BV{x}, model)
	first, _ := model.Eval(x)

	for i := 0; i < 3; i++ {
		res, model = s.CheckSat()
		if res != ResultSat {
			break
		}
		c, _ := model.Eval(x)
		if c.AsLong() == first.AsLong() {
			t.Fatalf("Block should have excluded the previously returned assignment")
		}
		s.Block([]BV{x}, model)
	}
}

func TestCheckBatchRunsGoalsIndependently(t *testing.T) {
	b := NewBuilder()
	s := NewSolver(b)
	defer s.Close()

	x := b.BVS("x", 8)
	eqOne, err := b.Eq(x, b.BVV(1, 8))
	if err != nil {
		t.Fatal(err)
	}
	eqTwo, err := b.Eq(x, b.BVV(2, 8))
	if err != nil {
		t.Fatal(err)
	}
	goals := []Goal{
		{Name: "one", Assert: eqOne},
		{Name: "two", Assert: eqTwo},
	}
	results := s.CheckBatch(context.Background(), goals)
	if len(results) != 2 {
		t.Fatalf("expected one result per goal")
	}
	for _, r := range results {
		if r.Result != ResultSat {
			t.Fatalf("goal %q: expected sat, got %s", r.Name, r.Result)
		}
	}
}

func TestCheckBatchStopsOnCancelledContext(t *testing.T) {
	b := NewBuilder()
	s := NewSolver(b)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	goals := make([]Goal, 4)
	for i := range goals {
		goals[i] = Goal{Name: "g", Assert: b.BoolVal(true)}
	}
	results := s.CheckBatch(ctx, goals)
	if len(results) != 4 {
		t.Fatalf("a cancelled context should still report one result per goal, got %d", len(results))
	}
	for _, r := range results {
		if r.Result != ResultError {
			t.Fatalf("expected every goal to be skipped as ResultError once the context is cancelled, got %s", r.Result)
		}
	}
}

func TestCheckBatchGoalsRunSequentiallyAgainstOneSolver(t *testing.T) {
	b := NewBuilder()
	s := NewSolver(b)
	defer s.Close()

	var order []string
	goals := []Goal{
		{Name: "first", Assert: b.BoolVal(true), OnCountermodel: func(Model) { order = append(order, "first") }},
		{Name: "second", Assert: b.BoolVal(true), OnCountermodel: func(Model) { order = append(order, "second") }},
	}
	s.CheckBatch(context.Background(), goals)
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("goals should run in order against the single solver, got %v", order)
	}
}

func TestModelEvalOnNonSymbolReturnsFalse(t *testing.T) {
	b := NewBuilder()
	var m Model
	if _, ok := m.Eval(b.BVV(1, 8)); ok {
		t.Fatalf("Eval on a constant (not a bare symbol) should report ok=false")
	}
}

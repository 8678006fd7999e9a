package ir

import "testing"

func TestBinOpAddNoUB(t *testing.T) {
	b := testBuilder()
	f := NewFunction(b, "f")
	a := f.AddInput("a", NewIntType(8))
	c := f.AddInput("c", NewIntType(8))
	add := NewBinOp("r", NewIntType(8), OpAdd, 0, a, c)
	f.AddInstruction("", "r", add)

	s, err := Exec(b, f)
	if err != nil {
		t.Fatal(err)
	}
	if s.UB.String() != b.BoolVal(true).String() {
		t.Fatalf("plain add should not add any UB, got %s", s.UB)
	}
}

func TestBinOpSDivAddsNonZeroUB(t *testing.T) {
	b := testBuilder()
	f := NewFunction(b, "f")
	a := f.AddInput("a", NewIntType(8))
	c := f.AddInput("c", NewIntType(8))
	div := NewBinOp("r", NewIntType(8), OpSDiv, 0, a, c)
	f.AddInstruction("", "r", div)

	s, err := Exec(b, f)
	if err != nil {
		t.Fatal(err)
	}
	if s.UB.String() == b.BoolVal(true).String() {
		t.Fatalf("sdiv should constrain UB on the divisor, got trivially true")
	}
}

func TestBinOpNSWAddsPoisonCondition(t *testing.T) {
	b := testBuilder()
	f := NewFunction(b, "f")
	a := f.AddInput("a", NewIntType(8))
	c := f.AddInput("c", NewIntType(8))
	add := NewBinOp("r", NewIntType(8), OpAdd, FlagNSW, a, c)
	f.AddInstruction("", "r", add)

	s, err := Exec(b, f)
	if err != nil {
		t.Fatal(err)
	}
	sv, ok := s.Get(ValueRef(2))
	if !ok {
		t.Fatalf("expected the add's result to be memoized")
	}
	if sv.NonPoison.String() == b.BoolVal(true).String() {
		t.Fatalf("nsw add should constrain non-poison, got trivially true")
	}
}

func TestFlagStringOrdersNswNuwExact(t *testing.T) {
	f := FlagNSW | FlagExact
	if f.String() != "nsw exact" {
		t.Fatalf("got %q", f.String())
	}
}

func TestReturnIsTerminator(t *testing.T) {
	r := NewReturn(ValueRef(0))
	if !r.IsTerminator() {
		t.Fatalf("Return must be a terminator")
	}
	if r.Type() != (VoidType{}) {
		t.Fatalf("Return's own Type() should be void")
	}
}

func TestCmpPredExecReturnsNotImplementedError(t *testing.T) {
	b := testBuilder()
	f := NewFunction(b, "f")
	a := f.AddInput("a", NewIntType(8))
	c := f.AddInput("c", NewIntType(8))
	f.AddInstruction("", "p", NewCmpPred("eq", []ValueRef{a, c}))

	if _, err := Exec(b, f); err == nil {
		t.Fatalf("CmpPred has no implemented semantics, Exec should error")
	}
}

func TestBoolPredExecReturnsNotImplementedError(t *testing.T) {
	b := testBuilder()
	f := NewFunction(b, "f")
	a := f.AddInput("a", NewIntType(8))
	f.AddInstruction("", "p", NewBoolPred("isPower2", []ValueRef{a}))

	if _, err := Exec(b, f); err == nil {
		t.Fatalf("BoolPred has no implemented semantics, Exec should error")
	}
	if _, ok := f.Value(ValueRef(1)).(*BoolPred); !ok {
		t.Fatalf("expected the predicate instruction to be registered in the arena")
	}
}

func TestUnreachableSetsDomainFalse(t *testing.T) {
	b := testBuilder()
	f := NewFunction(b, "f")
	f.AddInstruction("", "u", NewUnreachable())

	s, err := Exec(b, f)
	if err != nil {
		t.Fatal(err)
	}
	if s.Domain.String() != b.BoolVal(false).String() {
		t.Fatalf("unreachable should falsify the path domain")
	}
}

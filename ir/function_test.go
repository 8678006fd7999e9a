package ir

import "testing"

func TestNewFunctionHasImplicitBlock(t *testing.T) {
	b := testBuilder()
	f := NewFunction(b, "f")
	if len(f.Blocks) != 1 || f.Blocks[0].Label != "" {
		t.Fatalf("expected one implicit empty-labelled block")
	}
}

func TestAddInstructionCreatesNamedBlock(t *testing.T) {
	b := testBuilder()
	f := NewFunction(b, "f")
	f.AddInstruction("entry", "u", NewUnreachable())
	if len(f.Blocks) != 2 {
		t.Fatalf("expected a new block to be created, got %d blocks", len(f.Blocks))
	}
	if f.Blocks[1].Label != "entry" {
		t.Fatalf("got label %q", f.Blocks[1].Label)
	}
}

func TestLookupFindsNamedValue(t *testing.T) {
	b := testBuilder()
	f := NewFunction(b, "f")
	ref := f.AddInput("x", NewIntType(8))
	got, ok := f.Lookup("x")
	if !ok || got != ref {
		t.Fatalf("Lookup should find the input by name")
	}
	if _, ok := f.Lookup("nope"); ok {
		t.Fatalf("Lookup should report false for an unknown name")
	}
}

func TestReturnTypeFollowsFirstReturn(t *testing.T) {
	b := testBuilder()
	f := NewFunction(b, "f")
	x := f.AddInput("x", NewIntType(16))
	f.AddInstruction("", "ret", NewReturn(x))
	if rt := f.ReturnType(); rt.(*IntType).Width != 16 {
		t.Fatalf("expected ReturnType to follow the returned value's type")
	}
}

func TestReturnTypeVoidWithNoReturn(t *testing.T) {
	b := testBuilder()
	f := NewFunction(b, "f")
	if _, ok := f.ReturnType().(VoidType); !ok {
		t.Fatalf("expected VoidType when no Return instruction is present")
	}
}

func TestTypeVarsCollectsSymbolicTypes(t *testing.T) {
	b := testBuilder()
	f := NewFunction(b, "f")
	st := NewSymbolicType(b, "x", uint8(maskInt))
	f.AddInput("x", st)
	vars := f.TypeVars()
	if len(vars) != 2 {
		t.Fatalf("expected the category and width vars, got %d", len(vars))
	}
}

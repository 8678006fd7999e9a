package parser

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/borzacchiello/alivetv/ir"
	"github.com/borzacchiello/alivetv/smt"
)

func TestParseIdentityTransform(t *testing.T) {
	src := `%r = add i8 %a, %b
=>
%r = add i8 %a, %b
`
	b := smt.NewBuilder()
	transforms, err := Parse(src, b)
	require.NoError(t, err)
	require.Len(t, transforms, 1)

	tr := transforms[0]
	require.Len(t, tr.Src.Blocks[0].Instr, 1)
	require.Len(t, tr.Tgt.Blocks[0].Instr, 1)
}

func TestParseNameAndPreHeaders(t *testing.T) {
	src := `Name: my transform
Pre: C1(%a)
%r = add i8 %a, %b
=>
%r = add i8 %b, %a
`
	b := smt.NewBuilder()
	transforms, err := Parse(src, b)
	require.NoError(t, err)

	tr := transforms[0]
	require.Equal(t, "my transform", tr.Name)
	require.Equal(t, "C1(%a)", tr.Pre)
}

func TestParseMultipleTransformsInOneFile(t *testing.T) {
	src := `%r = add i8 %a, %b
=>
%r = add i8 %a, %b

Name: second
%r = mul i8 %a, %b
=>
%r = mul i8 %a, %b
`
	b := smt.NewBuilder()
	transforms, err := Parse(src, b)
	require.NoError(t, err)
	require.Len(t, transforms, 2)
	require.Equal(t, "second", transforms[1].Name)
}

func TestParseRetAndUnreachable(t *testing.T) {
	src := `%r = add i8 %a, %b
ret i8 %r
=>
unreachable
`
	b := smt.NewBuilder()
	transforms, err := Parse(src, b)
	if err != nil {
		t.Fatal(err)
	}
	tr := transforms[0]
	if len(tr.Src.Blocks[0].Instr) != 2 {
		t.Fatalf("expected add+ret in src, got %d instrs", len(tr.Src.Blocks[0].Instr))
	}
	if _, ok := tr.Tgt.Value(tr.Tgt.Blocks[0].Instr[0]).(*ir.Unreachable); !ok {
		t.Fatalf("expected tgt's single instruction to be unreachable")
	}
}

func TestParseImplicitInputOnFirstOccurrence(t *testing.T) {
	src := `%r = add i8 %a, %b
=>
%r = add i8 %a, %b
`
	b := smt.NewBuilder()
	transforms, err := Parse(src, b)
	if err != nil {
		t.Fatal(err)
	}
	fn := transforms[0].Src
	ref, ok := fn.Lookup("a")
	if !ok {
		t.Fatalf("expected %%a to be registered as an implicit input")
	}
	if _, ok := fn.Value(ref).(*ir.Input); !ok {
		t.Fatalf("expected %%a to be an Input value")
	}
}

func TestParseLabeledBlocks(t *testing.T) {
	src := `entry:
%r = add i8 %a, %b
=>
entry:
%r = add i8 %a, %b
`
	b := smt.NewBuilder()
	transforms, err := Parse(src, b)
	if err != nil {
		t.Fatal(err)
	}
	fn := transforms[0].Src
	if len(fn.Blocks) != 2 {
		t.Fatalf("expected implicit block plus entry, got %d", len(fn.Blocks))
	}
	if fn.Blocks[1].Label != "entry" {
		t.Fatalf("got label %q", fn.Blocks[1].Label)
	}
}

func TestParseRejectsDisallowedFlag(t *testing.T) {
	src := `%r = sdiv nsw i8 %a, %b
=>
%r = sdiv i8 %a, %b
`
	b := smt.NewBuilder()
	_, err := Parse(src, b)
	if err == nil {
		t.Fatalf("expected a parse error: sdiv does not admit nsw")
	}
	if _, ok := err.(*ParseError); !ok {
		t.Fatalf("expected a *ParseError, got %T", err)
	}
}

func TestParseAllowsExactOnLshr(t *testing.T) {
	src := `%r = lshr exact i8 %a, %b
=>
%r = lshr exact i8 %a, %b
`
	b := smt.NewBuilder()
	if _, err := Parse(src, b); err != nil {
		t.Fatal(err)
	}
}

func TestParseUntypedOperandGetsDefaultLiteralWidth(t *testing.T) {
	src := `%r = add %a, 1
=>
%r = add %a, 1
`
	b := smt.NewBuilder()
	transforms, err := Parse(src, b)
	if err != nil {
		t.Fatal(err)
	}
	fn := transforms[0].Src
	binOp := fn.Value(fn.Blocks[0].Instr[0]).(*ir.BinOp)
	lit := fn.Value(binOp.B).(*ir.Constant)
	sv, _, err := lit.ToSMT(b)
	if err != nil {
		t.Fatal(err)
	}
	if sv.Value.Size() != defaultLiteralWidth {
		t.Fatalf("expected an untyped literal to default to %d bits, got %d", defaultLiteralWidth, sv.Value.Size())
	}
}

func TestParseReusesIdentAcrossOperands(t *testing.T) {
	src := `%r = add i8 %a, %a
=>
%r = add i8 %a, %a
`
	b := smt.NewBuilder()
	transforms, err := Parse(src, b)
	if err != nil {
		t.Fatal(err)
	}
	fn := transforms[0].Src
	binOp := fn.Value(fn.Blocks[0].Instr[0]).(*ir.BinOp)
	if binOp.A != binOp.B {
		t.Fatalf("both operands named %%a should resolve to the same ValueRef")
	}
}

func TestParseConflictingReannotationMakesConstraintsUnsat(t *testing.T) {
	src := `%r = add i8 %a, %a
ret i16 %r
=>
%r = add i8 %a, %a
ret i16 %r
`
	b := smt.NewBuilder()
	transforms, err := Parse(src, b)
	require.NoError(t, err)

	fn := transforms[0].Src
	constraints := fn.TypeConstraints()
	solver := smt.NewSolver(b)
	defer solver.Close()
	res, _ := solver.Check(constraints)
	if res != smt.ResultUnsat {
		t.Fatalf("ret i16 on an i8 value should make the type constraints unsatisfiable, got %s", res)
	}
}

func TestParseAgreeingReannotationStaysSat(t *testing.T) {
	src := `%r = add i8 %a, %a
ret i8 %r
=>
%r = add i8 %a, %a
ret i8 %r
`
	b := smt.NewBuilder()
	transforms, err := Parse(src, b)
	require.NoError(t, err)

	fn := transforms[0].Src
	constraints := fn.TypeConstraints()
	solver := smt.NewSolver(b)
	defer solver.Close()
	res, _ := solver.Check(constraints)
	if res != smt.ResultSat {
		t.Fatalf("ret i8 repeating %%a's own type should leave the type constraints satisfiable, got %s", res)
	}
}

func TestParseCommentsAreIgnored(t *testing.T) {
	src := `; this is a comment
%r = add i8 %a, %b ; trailing comment
=>
%r = add i8 %a, %b
`
	b := smt.NewBuilder()
	if _, err := Parse(src, b); err != nil {
		t.Fatal(err)
	}
}

func TestParseErrorReportsLineNumber(t *testing.T) {
	src := `%r = add i8 %a, %b
=>
%r = frobnicate i8 %a, %b
`
	b := smt.NewBuilder()
	_, err := Parse(src, b)
	if err == nil {
		t.Fatalf("expected a parse error on the unknown opcode")
	}
	pe, ok := err.(*ParseError)
	if !ok {
		t.Fatalf("expected a *ParseError, got %T", err)
	}
	if pe.Line != 3 {
		t.Fatalf("expected the error on line 3, got %d", pe.Line)
	}
}

package tv_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/borzacchiello/alivetv/ir"
	"github.com/borzacchiello/alivetv/parser"
	"github.com/borzacchiello/alivetv/refine"
	"github.com/borzacchiello/alivetv/smt"
	"github.com/borzacchiello/alivetv/tv"
)

func verifyOne(t *testing.T, src string) *refine.Errors {
	t.Helper()
	b := smt.NewBuilder()
	transforms, err := parser.Parse(src, b)
	require.NoError(t, err)
	require.Len(t, transforms, 1)

	solver := smt.NewSolver(b)
	defer solver.Close()

	errs, err := tv.Verify(context.Background(), b, solver, transforms[0], tv.Options{})
	require.NoError(t, err)
	return errs
}

func TestScenario1IdentityHasNoErrors(t *testing.T) {
	errs := verifyOne(t, `%r = add i8 %x, %y
ret i8 %r
=>
%r = add i8 %x, %y
ret i8 %r
`)
	require.Empty(t, errs.Entries(), "identity transform should have no errors")
}

func TestScenario2CommutativityHasNoErrors(t *testing.T) {
	errs := verifyOne(t, `%r = add i8 %x, %y
ret i8 %r
=>
%r = add i8 %y, %x
ret i8 %r
`)
	require.Empty(t, errs.Entries(), "commutative add should have no errors")
}

func TestScenario3NSWDropIsSound(t *testing.T) {
	errs := verifyOne(t, `%r = add nsw i8 %x, 1
ret i8 %r
=>
%r = add i8 %x, 1
ret i8 %r
`)
	require.False(t, errs.HasFailures(), "dropping nsw (target less poisonous) should refine cleanly, got %s", errs)
}

func TestScenario3NSWAddIsUnsound(t *testing.T) {
	errs := verifyOne(t, `%r = add i8 %x, 1
ret i8 %r
=>
%r = add nsw i8 %x, 1
ret i8 %r
`)
	require.True(t, errs.HasFailures(), "adding nsw (target more poisonous) should fail refinement")
	require.Contains(t, errs.String(), refine.KindTargetMorePoisonous.String())
}

func TestScenario4SDivToUDivIsValueMismatch(t *testing.T) {
	errs := verifyOne(t, `%r = sdiv i8 %x, %y
ret i8 %r
=>
%r = udiv i8 %x, %y
ret i8 %r
`)
	require.True(t, errs.HasFailures(), "sdiv vs udiv should disagree on negative operands")
	require.Contains(t, errs.String(), refine.KindValueMismatch.String())
}

func TestScenario5MulByTwoEqualsShiftByOne(t *testing.T) {
	errs := verifyOne(t, `%r = mul i8 %x, 2
ret i8 %r
=>
%r = shl i8 %x, 1
ret i8 %r
`)
	require.Empty(t, errs.Entries(), "mul by 2 and shl by 1 should be equivalent")
}

func TestScenario6ReturnToUnreachableIsSourceMoreDefined(t *testing.T) {
	errs := verifyOne(t, `ret i8 0
=>
unreachable
`)
	require.True(t, errs.HasFailures(), "replacing a return with unreachable should fail the domain refinement check")
	require.Contains(t, errs.String(), refine.KindSourceMoreDefined.String())
}

func TestUntypedLiteralOperandResolvesToSharedWidth(t *testing.T) {
	errs := verifyOne(t, `%r = add %x, 1
ret %r
=>
%r = add %x, 1
ret %r
`)
	require.Empty(t, errs.Entries(), "an omitted-type literal operand must not crash symbolic execution")
}

// TestJointlyUntypeablePairIsDecidedFailure covers §7/C7: a pair that
// cannot be jointly typed at all (here, a function whose only value
// carries the stubbed FloatType, whose Constraints() is always false)
// is a decided verification failure, not an undecided/timeout one, and
// must count toward HasFailures.
func TestJointlyUntypeablePairIsDecidedFailure(t *testing.T) {
	b := smt.NewBuilder()

	src := ir.NewFunction(b, "src")
	x := src.AddInput("x", ir.FloatType{})
	src.AddInstruction("", "ret", ir.NewReturn(x))

	tgt := ir.NewFunction(b, "tgt")
	y := tgt.AddInput("x", ir.NewIntType(8))
	tgt.AddInstruction("", "ret", ir.NewReturn(y))

	transform := &tv.Transform{Src: src, Tgt: tgt}

	solver := smt.NewSolver(b)
	defer solver.Close()

	errs, err := tv.Verify(context.Background(), b, solver, transform, tv.Options{})
	require.NoError(t, err)
	require.True(t, errs.HasFailures(), "a jointly-untypeable pair must be a decided failure, got %s", errs)
	require.Contains(t, errs.String(), refine.KindTypeUnsat.String())
}

func TestReflexivityOfRefinement(t *testing.T) {
	errs := verifyOne(t, `%r = sdiv exact i8 %x, %y
ret i8 %r
=>
%r = sdiv exact i8 %x, %y
ret i8 %r
`)
	require.Empty(t, errs.Entries(), "verifying f => f should always produce no errors")
}

package smt

import "testing"

func TestBVSizeAndKind(t *testing.T) {
	b := NewBuilder()
	x := b.BVS("x", 16)
	if x.Size() != 16 {
		t.Fatalf("got size %d, want 16", x.Size())
	}
	if x.IsConst() {
		t.Fatalf("a free symbol should not report IsConst")
	}
}

func TestBVConstIsConst(t *testing.T) {
	b := NewBuilder()
	v := b.BVV(3, 8)
	if !v.IsConst() {
		t.Fatalf("a literal BVV should report IsConst")
	}
	c, ok := v.ConstValue()
	if !ok || c.AsLong() != 3 {
		t.Fatalf("ConstValue should return the literal's value")
	}
}

func TestBoolNilStringSafety(t *testing.T) {
	var bv BV
	if bv.String() != "<nil>" {
		t.Fatalf("zero-value BV should stringify safely, got %q", bv.String())
	}
}

func TestExtractAndConcatRoundTrip(t *testing.T) {
	b := NewBuilder()
	x := b.BVS("x", 16)
	lo, err := b.Extract(x, 7, 0)
	if err != nil {
		t.Fatal(err)
	}
	hi, err := b.Extract(x, 15, 8)
	if err != nil {
		t.Fatal(err)
	}
	cat, err := b.Concat(hi, lo)
	if err != nil {
		t.Fatal(err)
	}
	if cat.id() != x.id() {
		t.Fatalf("concat(extract(hi), extract(lo)) should reconstruct x, got %s", cat)
	}
}

func TestZExtThenTruncIsIdentity(t *testing.T) {
	b := NewBuilder()
	x := b.BVS("x", 8)
	wide, err := b.ZExt(x, 8)
	if err != nil {
		t.Fatal(err)
	}
	if wide.Size() != 16 {
		t.Fatalf("expected a 16-bit result, got %d", wide.Size())
	}
	narrow, err := b.Extract(wide, 7, 0)
	if err != nil {
		t.Fatal(err)
	}
	if narrow.id() != x.id() {
		t.Fatalf("zext then trunc to the original width should be the identity")
	}
}

func TestZExtOrTruncNarrows(t *testing.T) {
	b := NewBuilder()
	x := b.BVS("x", 16)
	narrow, err := b.ZExtOrTrunc(x, 8)
	if err != nil {
		t.Fatal(err)
	}
	if narrow.Size() != 8 {
		t.Fatalf("got size %d, want 8", narrow.Size())
	}
}

func TestITEConstantFoldsByCondition(t *testing.T) {
	b := NewBuilder()
	x := b.BVS("x", 8)
	y := b.BVS("y", 8)
	got, err := b.ITE(b.BoolVal(true), x, y)
	if err != nil {
		t.Fatal(err)
	}
	if got.id() != x.id() {
		t.Fatalf("ITE(true, x, y) should fold to x")
	}
}

func TestShlConstantFolding(t *testing.T) {
	b := NewBuilder()
	got, err := b.Shl(b.BVV(1, 8), b.BVV(3, 8))
	if err != nil {
		t.Fatal(err)
	}
	c, ok := got.ConstValue()
	if !ok || c.AsLong() != 8 {
		t.Fatalf("1 << 3 should fold to 8, got %v", got)
	}
}

package smt

import "testing"

func TestHashConsingDedupes(t *testing.T) {
	b := NewBuilder()
	x := b.BVS("x", 8)
	y := b.BVS("x", 8)
	if x.id() != y.id() {
		t.Fatalf("two BVS calls with the same name/size should intern to the same node")
	}

	a1, err := b.Add(x, b.BVV(1, 8))
	if err != nil {
		t.Fatal(err)
	}
	a2, err := b.Add(x, b.BVV(1, 8))
	if err != nil {
		t.Fatal(err)
	}
	if a1.id() != a2.id() {
		t.Fatalf("structurally identical Add terms should share one node")
	}
}

func TestConstantFolding(t *testing.T) {
	b := NewBuilder()
	sum, err := b.Add(b.BVV(2, 8), b.BVV(3, 8))
	if err != nil {
		t.Fatal(err)
	}
	c, ok := sum.ConstValue()
	if !ok {
		t.Fatalf("Add of two constants should fold to a constant")
	}
	if c.AsLong() != 5 {
		t.Fatalf("got %d, want 5", c.AsLong())
	}
}

func TestBoolAndAbsorbsFalse(t *testing.T) {
	b := NewBuilder()
	x := b.BVS("x", 1)
	cond, err := b.Eq(x, b.BVV(1, 1))
	if err != nil {
		t.Fatal(err)
	}
	r, err := b.BoolAnd(cond, b.BoolVal(false))
	if err != nil {
		t.Fatal(err)
	}
	v, ok := r.ConstValue()
	if !ok || v != false {
		t.Fatalf("AND with false should fold to false")
	}
}

func TestEqIdentityShortcut(t *testing.T) {
	b := NewBuilder()
	x := b.BVS("x", 8)
	eq, err := b.Eq(x, x)
	if err != nil {
		t.Fatal(err)
	}
	v, ok := eq.ConstValue()
	if !ok || !v {
		t.Fatalf("Eq(x, x) should fold to true regardless of x's value")
	}
}

func TestForAllOverEmptyBoundIsIdentity(t *testing.T) {
	b := NewBuilder()
	body := b.BoolVal(true)
	if got := b.ForAll(nil, body); got.id() != body.id() {
		t.Fatalf("ForAll with no bound variables should return body unchanged")
	}
}

func TestForAllPanicsOnNonSymbol(t *testing.T) {
	b := NewBuilder()
	defer func() {
		if recover() == nil {
			t.Fatalf("expected ForAll to panic on a non-symbol bound variable")
		}
	}()
	b.ForAll([]BV{b.BVV(1, 8)}, b.BoolVal(true))
}

func TestSubstBVReplacesFreeSymbol(t *testing.T) {
	b := NewBuilder()
	x := b.BVS("x", 8)
	y := b.BVS("y", 8)
	expr, err := b.Add(x, b.BVV(1, 8))
	if err != nil {
		t.Fatal(err)
	}
	substituted, err := b.SubstBV(expr, []BV{x}, []BV{y})
	if err != nil {
		t.Fatal(err)
	}
	want, err := b.Add(y, b.BVV(1, 8))
	if err != nil {
		t.Fatal(err)
	}
	if substituted.id() != want.id() {
		t.Fatalf("SubstBV(x+1, x->y) should equal y+1, got %s", substituted)
	}
}

func TestSubstBVNoFromIsIdentity(t *testing.T) {
	b := NewBuilder()
	x := b.BVS("x", 8)
	got, err := b.SubstBV(x, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got.id() != x.id() {
		t.Fatalf("SubstBV with an empty from/to should return e unchanged")
	}
}

func TestNotImpliesShape(t *testing.T) {
	b := NewBuilder()
	a := b.BoolVal(true)
	c := b.BoolVal(false)
	got, err := b.NotImplies(a, c)
	if err != nil {
		t.Fatal(err)
	}
	want, err := b.BoolAnd(a, func() Bool { n, _ := b.BoolNot(c); return n }())
	if err != nil {
		t.Fatal(err)
	}
	if got.id() != want.id() {
		t.Fatalf("NotImplies(a, c) should equal a && !c")
	}
}

func TestBoolITEConstantCondition(t *testing.T) {
	b := NewBuilder()
	t1 := b.BoolVal(true)
	f1 := b.BoolVal(false)
	got, err := b.BoolITE(b.BoolVal(true), t1, f1)
	if err != nil {
		t.Fatal(err)
	}
	if got.id() != t1.id() {
		t.Fatalf("BoolITE(true, t, f) should return t")
	}
}

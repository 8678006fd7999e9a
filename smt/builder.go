package smt

import (
	"fmt"
	"sort"
)

// Builder hash-conses every term it creates: structurally identical
// terms are represented by the same node, which lets equality checks
// and substitution caches use pointer identity.
type Builder struct {
	bvcache   map[uint64][]bvNode
	boolcache map[uint64][]boolNode
}

func NewBuilder() *Builder {
	return &Builder{
		bvcache:   map[uint64][]bvNode{},
		boolcache: map[uint64][]boolNode{},
	}
}

func (b *Builder) internBV(n bvNode) BV {
	h := n.hash()
	bucket := b.bvcache[h]
	for _, cand := range bucket {
		if cand.shallowEq(n) {
			return BV{cand}
		}
	}
	b.bvcache[h] = append(bucket, n)
	return BV{n}
}

func (b *Builder) internBool(n boolNode) Bool {
	h := n.hash()
	bucket := b.boolcache[h]
	for _, cand := range bucket {
		if cand.shallowEq(n) {
			return Bool{cand}
		}
	}
	b.boolcache[h] = append(bucket, n)
	return Bool{n}
}

/* ---- leaf constructors ---- */

func (b *Builder) BVV(val int64, size uint) BV {
	return b.internBV(&bvConstNode{val: *MakeBVConst(val, size)})
}

func (b *Builder) BVVFromConst(c *BVConst) BV {
	return b.internBV(&bvConstNode{val: *c})
}

func (b *Builder) BVS(name string, size uint) BV {
	return b.internBV(&bvSymNode{name: name, sz: size})
}

func (b *Builder) BoolVal(v bool) Bool {
	return b.internBool(&boolConstNode{val: v})
}

/* ---- unary ---- */

func (b *Builder) Neg(e BV) BV {
	if c, ok := e.ConstValue(); ok {
		c.Neg()
		return b.BVVFromConst(c)
	}
	return b.internBV(&bvUnNode{knd: tyNeg, sym: "-", child: e})
}

func (b *Builder) Not(e BV) BV {
	if c, ok := e.ConstValue(); ok {
		c.Not()
		return b.BVVFromConst(c)
	}
	return b.internBV(&bvUnNode{knd: tyNot, sym: "~", child: e})
}

func (b *Builder) BoolNot(e Bool) (Bool, error) {
	if v, ok := e.ConstValue(); ok {
		return b.BoolVal(!v), nil
	}
	if e.kind() == tyBoolNot {
		return e.n.(*boolUnNode).child, nil
	}
	return b.internBool(&boolUnNode{child: e}), nil
}

/* ---- n-ary bv arithmetic / bitwise ---- */

func foldConstsBin(children []BV, f func(acc, c *BVConst) error) (*BVConst, []BV, error) {
	var acc *BVConst
	rest := make([]BV, 0, len(children))
	for _, c := range children {
		if cv, ok := c.ConstValue(); ok {
			if acc == nil {
				acc = cv
			} else if err := f(acc, cv); err != nil {
				return nil, nil, err
			}
			continue
		}
		rest = append(rest, c)
	}
	return acc, rest, nil
}

func (b *Builder) mkArith(children []BV, knd int, sym string, fold func(acc, c *BVConst) error) (BV, error) {
	if len(children) < 2 {
		return BV{}, fmt.Errorf("mkArith: need at least 2 children")
	}
	for _, c := range children[1:] {
		if c.Size() != children[0].Size() {
			return BV{}, fmt.Errorf("mkArith: mismatched sizes %d and %d", children[0].Size(), c.Size())
		}
	}
	acc, rest, err := foldConstsBin(children, fold)
	if err != nil {
		return BV{}, err
	}
	if len(rest) == 0 {
		return b.BVVFromConst(acc), nil
	}
	if acc != nil {
		rest = append(rest, b.BVVFromConst(acc))
	}
	if len(rest) == 1 {
		return rest[0], nil
	}
	sortBVByID(rest)
	return b.internBV(&bvNaryNode{knd: knd, sym: sym, children: rest}), nil
}

func sortBVByID(bs []BV) {
	sort.Slice(bs, func(i, j int) bool { return bs[i].id() < bs[j].id() })
}

func (b *Builder) Add(lhs, rhs BV) (BV, error) {
	return b.mkArith([]BV{lhs, rhs}, tyAdd, "+", func(acc, c *BVConst) error { return acc.Add(c) })
}

func (b *Builder) Sub(lhs, rhs BV) (BV, error) {
	if lhs.Size() != rhs.Size() {
		return BV{}, fmt.Errorf("Sub: mismatched sizes")
	}
	if c, ok := lhs.ConstValue(); ok {
		if c2, ok2 := rhs.ConstValue(); ok2 {
			c.Sub(c2)
			return b.BVVFromConst(c), nil
		}
	}
	return b.internBV(&bvNaryNode{knd: tySub, sym: "-", children: []BV{lhs, rhs}}), nil
}

func (b *Builder) Mul(lhs, rhs BV) (BV, error) {
	return b.mkArith([]BV{lhs, rhs}, tyMul, "*", func(acc, c *BVConst) error { return acc.Mul(c) })
}

func (b *Builder) And(lhs, rhs BV) (BV, error) {
	return b.mkArith([]BV{lhs, rhs}, tyAnd, "&", func(acc, c *BVConst) error { return acc.And(c) })
}

func (b *Builder) Or(lhs, rhs BV) (BV, error) {
	return b.mkArith([]BV{lhs, rhs}, tyOr, "|", func(acc, c *BVConst) error { return acc.Or(c) })
}

func (b *Builder) Xor(lhs, rhs BV) (BV, error) {
	return b.mkArith([]BV{lhs, rhs}, tyXor, "^", func(acc, c *BVConst) error { return acc.Xor(c) })
}

func (b *Builder) mkDivRem(lhs, rhs BV, knd int, sym string, constOp func(a, r *BVConst) error) (BV, error) {
	if lhs.Size() != rhs.Size() {
		return BV{}, fmt.Errorf("mismatched sizes")
	}
	if c1, ok := lhs.ConstValue(); ok {
		if c2, ok2 := rhs.ConstValue(); ok2 && !c2.IsZero() {
			if err := constOp(c1, c2); err != nil {
				return BV{}, err
			}
			return b.BVVFromConst(c1), nil
		}
	}
	return b.internBV(&bvNaryNode{knd: knd, sym: sym, children: []BV{lhs, rhs}}), nil
}

func (b *Builder) SDiv(lhs, rhs BV) (BV, error) {
	return b.mkDivRem(lhs, rhs, tySDiv, "s/", func(a, r *BVConst) error { return a.SDiv(r) })
}

func (b *Builder) UDiv(lhs, rhs BV) (BV, error) {
	return b.mkDivRem(lhs, rhs, tyUDiv, "u/", func(a, r *BVConst) error { return a.UDiv(r) })
}

func (b *Builder) SRem(lhs, rhs BV) (BV, error) {
	return b.mkDivRem(lhs, rhs, tySRem, "s%", func(a, r *BVConst) error { return a.SRem(r) })
}

func (b *Builder) URem(lhs, rhs BV) (BV, error) {
	return b.mkDivRem(lhs, rhs, tyURem, "u%", func(a, r *BVConst) error { return a.URem(r) })
}

func (b *Builder) mkShift(lhs, rhs BV, knd int, sym string, constOp func(a *BVConst, n uint)) (BV, error) {
	if lhs.Size() != rhs.Size() {
		return BV{}, fmt.Errorf("mismatched sizes")
	}
	if c1, ok := lhs.ConstValue(); ok {
		if c2, ok2 := rhs.ConstValue(); ok2 && c2.FitInLong() {
			constOp(c1, uint(c2.AsULong()))
			return b.BVVFromConst(c1), nil
		}
	}
	return b.internBV(&bvNaryNode{knd: knd, sym: sym, children: []BV{lhs, rhs}}), nil
}

func (b *Builder) Shl(lhs, rhs BV) (BV, error) {
	return b.mkShift(lhs, rhs, tyShl, "<<", func(a *BVConst, n uint) { a.Shl(n) })
}

func (b *Builder) LShr(lhs, rhs BV) (BV, error) {
	return b.mkShift(lhs, rhs, tyLShr, "l>>", func(a *BVConst, n uint) { a.LShr(n) })
}

func (b *Builder) AShr(lhs, rhs BV) (BV, error) {
	return b.mkShift(lhs, rhs, tyAShr, "a>>", func(a *BVConst, n uint) { a.AShr(n) })
}

/* ---- structural ---- */

func (b *Builder) Extract(e BV, high, low uint) (BV, error) {
	if high < low {
		return BV{}, fmt.Errorf("Extract: high < low")
	}
	if e.Size() < high-low+1 {
		return BV{}, fmt.Errorf("Extract: out of range")
	}
	if high-low+1 == e.Size() {
		return e, nil
	}
	if c, ok := e.ConstValue(); ok {
		return b.BVVFromConst(c.Slice(high, low)), nil
	}
	return b.internBV(&extractNode{child: e, high: high, low: low}), nil
}

func (b *Builder) Concat(lhs, rhs BV) (BV, error) {
	if c1, ok := lhs.ConstValue(); ok {
		if c2, ok2 := rhs.ConstValue(); ok2 {
			cpy := c1.Copy()
			cpy.Concat(c2)
			return b.BVVFromConst(cpy), nil
		}
	}
	return b.internBV(&concatNode{children: []BV{lhs, rhs}}), nil
}

func (b *Builder) ZExt(e BV, n uint) (BV, error) {
	if n == 0 {
		return e, nil
	}
	if c, ok := e.ConstValue(); ok {
		cpy := c.Copy()
		cpy.ZExt(n)
		return b.BVVFromConst(cpy), nil
	}
	return b.internBV(&extendNode{child: e, n: n, signed: false}), nil
}

func (b *Builder) SExt(e BV, n uint) (BV, error) {
	if n == 0 {
		return e, nil
	}
	if c, ok := e.ConstValue(); ok {
		cpy := c.Copy()
		cpy.SExt(n)
		return b.BVVFromConst(cpy), nil
	}
	return b.internBV(&extendNode{child: e, n: n, signed: true}), nil
}

// ZExtOrTrunc pads or narrows e to exactly w bits.
func (b *Builder) ZExtOrTrunc(e BV, w uint) (BV, error) {
	switch {
	case e.Size() == w:
		return e, nil
	case e.Size() < w:
		return b.ZExt(e, w-e.Size())
	default:
		return b.Extract(e, w-1, 0)
	}
}

func (b *Builder) ITE(cond Bool, ifTrue, ifFalse BV) (BV, error) {
	if ifTrue.Size() != ifFalse.Size() {
		return BV{}, fmt.Errorf("ITE: mismatched sizes")
	}
	if v, ok := cond.ConstValue(); ok {
		if v {
			return ifTrue, nil
		}
		return ifFalse, nil
	}
	if ifTrue.id() == ifFalse.id() {
		return ifTrue, nil
	}
	return b.internBV(&iteNode{cond: cond, iftrue: ifTrue, iffalse: ifFalse}), nil
}

/* ---- comparisons ---- */

func (b *Builder) mkCmp(lhs, rhs BV, knd int, sym string, constOp func(a, c *BVConst) (bool, error)) (Bool, error) {
	if lhs.Size() != rhs.Size() {
		return Bool{}, fmt.Errorf("mismatched sizes")
	}
	if c1, ok := lhs.ConstValue(); ok {
		if c2, ok2 := rhs.ConstValue(); ok2 {
			v, err := constOp(c1, c2)
			if err != nil {
				return Bool{}, err
			}
			return b.BoolVal(v), nil
		}
	}
	return b.internBool(&cmpNode{knd: knd, sym: sym, lhs: lhs, rhs: rhs}), nil
}

func (b *Builder) Eq(lhs, rhs BV) (Bool, error) {
	if lhs.id() == rhs.id() {
		return b.BoolVal(true), nil
	}
	return b.mkCmp(lhs, rhs, tyEq, "==", func(a, c *BVConst) (bool, error) { return a.Eq(c) })
}

func (b *Builder) NEq(lhs, rhs BV) (Bool, error) {
	eq, err := b.Eq(lhs, rhs)
	if err != nil {
		return Bool{}, err
	}
	return b.BoolNot(eq)
}

func (b *Builder) ULt(lhs, rhs BV) (Bool, error) {
	return b.mkCmp(lhs, rhs, tyULt, "u<", func(a, c *BVConst) (bool, error) { return a.ULt(c) })
}
func (b *Builder) ULe(lhs, rhs BV) (Bool, error) {
	return b.mkCmp(lhs, rhs, tyULe, "u<=", func(a, c *BVConst) (bool, error) { return a.ULe(c) })
}
func (b *Builder) UGt(lhs, rhs BV) (Bool, error) {
	return b.mkCmp(lhs, rhs, tyUGt, "u>", func(a, c *BVConst) (bool, error) { return a.UGt(c) })
}
func (b *Builder) UGe(lhs, rhs BV) (Bool, error) {
	return b.mkCmp(lhs, rhs, tyUGe, "u>=", func(a, c *BVConst) (bool, error) { return a.UGe(c) })
}
func (b *Builder) SLt(lhs, rhs BV) (Bool, error) {
	return b.mkCmp(lhs, rhs, tySLt, "s<", func(a, c *BVConst) (bool, error) { return a.SLt(c) })
}
func (b *Builder) SLe(lhs, rhs BV) (Bool, error) {
	return b.mkCmp(lhs, rhs, tySLe, "s<=", func(a, c *BVConst) (bool, error) { return a.SLe(c) })
}
func (b *Builder) SGt(lhs, rhs BV) (Bool, error) {
	return b.mkCmp(lhs, rhs, tySGt, "s>", func(a, c *BVConst) (bool, error) { return a.SGt(c) })
}
func (b *Builder) SGe(lhs, rhs BV) (Bool, error) {
	return b.mkCmp(lhs, rhs, tySGe, "s>=", func(a, c *BVConst) (bool, error) { return a.SGe(c) })
}

/* ---- boolean connectives ---- */

func sortBoolByID(bs []Bool) {
	sort.Slice(bs, func(i, j int) bool { return bs[i].id() < bs[j].id() })
}

func (b *Builder) mkBoolNary(children []Bool, knd int, sym string, identity bool, absorbing bool) (Bool, error) {
	flat := make([]Bool, 0, len(children))
	for _, c := range children {
		if v, ok := c.ConstValue(); ok {
			if v == absorbing {
				return b.BoolVal(absorbing), nil
			}
			continue
		}
		if c.kind() == knd {
			flat = append(flat, c.n.(*boolNaryNode).children...)
		} else {
			flat = append(flat, c)
		}
	}
	if len(flat) == 0 {
		return b.BoolVal(identity), nil
	}
	if len(flat) == 1 {
		return flat[0], nil
	}
	sortBoolByID(flat)
	dedup := flat[:1]
	for _, f := range flat[1:] {
		if dedup[len(dedup)-1].id() != f.id() {
			dedup = append(dedup, f)
		}
	}
	if len(dedup) == 1 {
		return dedup[0], nil
	}
	return b.internBool(&boolNaryNode{knd: knd, sym: sym, children: dedup}), nil
}

func (b *Builder) BoolAnd(lhs, rhs Bool) (Bool, error) {
	return b.mkBoolNary([]Bool{lhs, rhs}, tyBoolAnd, "&&", true, false)
}

func (b *Builder) BoolOr(lhs, rhs Bool) (Bool, error) {
	return b.mkBoolNary([]Bool{lhs, rhs}, tyBoolOr, "||", false, true)
}

func (b *Builder) AndAll(terms ...Bool) (Bool, error) {
	acc := b.BoolVal(true)
	for _, t := range terms {
		var err error
		acc, err = b.BoolAnd(acc, t)
		if err != nil {
			return Bool{}, err
		}
	}
	return acc, nil
}

func (b *Builder) OrAll(terms ...Bool) (Bool, error) {
	acc := b.BoolVal(false)
	for _, t := range terms {
		var err error
		acc, err = b.BoolOr(acc, t)
		if err != nil {
			return Bool{}, err
		}
	}
	return acc, nil
}

// Implies returns a -> b, i.e. !a || b.
func (b *Builder) Implies(a, c Bool) (Bool, error) {
	na, err := b.BoolNot(a)
	if err != nil {
		return Bool{}, err
	}
	return b.BoolOr(na, c)
}

// NotImplies returns a && !b; every refinement query in this system has
// exactly this shape (spec.md calls it out as a named shortcut).
func (b *Builder) NotImplies(a, c Bool) (Bool, error) {
	nc, err := b.BoolNot(c)
	if err != nil {
		return Bool{}, err
	}
	return b.BoolAnd(a, nc)
}

// ForAll universally quantifies body over bound, which must all be
// symbol terms (BVS). Quantifying over a non-symbol is a programmer
// error, not a runtime condition, so it panics.
func (b *Builder) ForAll(bound []BV, body Bool) Bool {
	if len(bound) == 0 {
		return body
	}
	for _, bv := range bound {
		if bv.kind() != tySym {
			panic("smt: ForAll bound variable is not a free symbol")
		}
	}
	cpy := append([]BV(nil), bound...)
	sortBVByID(cpy)
	return b.internBool(&forAllNode{bound: cpy, body: body})
}

/* ---- free-symbol discovery ---- */

// InvolvedSymbols returns every free bit-vector symbol reachable from
// e, deduplicated.
func (b *Builder) InvolvedSymbols(roots ...interface{ termNode() node }) []BV {
	visited := map[uintptr]bool{}
	var syms []BV
	var walk func(node)
	walk = func(n node) {
		if n == nil || visited[n.rawPtr()] {
			return
		}
		visited[n.rawPtr()] = true
		if n.kind() == tySym {
			syms = append(syms, BV{n.(bvNode)})
			return
		}
		for _, c := range n.subexprs() {
			walk(c)
		}
	}
	for _, r := range roots {
		walk(r.termNode())
	}
	sortBVByID(syms)
	return syms
}

func (bv BV) termNode() node   { return bv.n }
func (bo Bool) termNode() node { return bo.n }

// BoolITE is if-then-else over booleans: (cond && t) || (!cond && f).
func (b *Builder) BoolITE(cond, t, f Bool) (Bool, error) {
	if v, ok := cond.ConstValue(); ok {
		if v {
			return t, nil
		}
		return f, nil
	}
	if t.id() == f.id() {
		return t, nil
	}
	ct, err := b.BoolAnd(cond, t)
	if err != nil {
		return Bool{}, err
	}
	ncond, err := b.BoolNot(cond)
	if err != nil {
		return Bool{}, err
	}
	cf, err := b.BoolAnd(ncond, f)
	if err != nil {
		return Bool{}, err
	}
	return b.BoolOr(ct, cf)
}

/* ---- substitution ---- */

// substCtx carries the replacement map and a memo cache through one
// substitution pass so shared subterms are rebuilt only once.
type substCtx struct {
	b       *Builder
	from    map[uintptr]BV // symbol id -> replacement
	memoBV  map[uintptr]BV
	memoB   map[uintptr]Bool
}

func newSubstCtx(b *Builder, from, to []BV) (*substCtx, error) {
	if len(from) != len(to) {
		return nil, fmt.Errorf("Subst: mismatched from/to lengths")
	}
	m := make(map[uintptr]BV, len(from))
	for i, f := range from {
		if f.kind() != tySym {
			return nil, fmt.Errorf("Subst: substitution target is not a free symbol")
		}
		m[f.id()] = to[i]
	}
	return &substCtx{b: b, from: m, memoBV: map[uintptr]BV{}, memoB: map[uintptr]Bool{}}, nil
}

func (c *substCtx) substBV(e BV) (BV, error) {
	if v, ok := c.memoBV[e.id()]; ok {
		return v, nil
	}
	var result BV
	var err error
	switch n := e.n.(type) {
	case *bvSymNode:
		if r, ok := c.from[e.id()]; ok {
			result = r
		} else {
			result = e
		}
	case *bvConstNode:
		result = e
	case *bvUnNode:
		child, e2 := c.substBV(n.child)
		if e2 != nil {
			return BV{}, e2
		}
		switch n.knd {
		case tyNot:
			result = c.b.Not(child)
		case tyNeg:
			result = c.b.Neg(child)
		default:
			return BV{}, fmt.Errorf("Subst: unknown unary op")
		}
	case *bvNaryNode:
		children := make([]BV, len(n.children))
		for i, ch := range n.children {
			children[i], err = c.substBV(ch)
			if err != nil {
				return BV{}, err
			}
		}
		result, err = rebuildNary(c.b, n.knd, children)
		if err != nil {
			return BV{}, err
		}
	case *extractNode:
		child, e2 := c.substBV(n.child)
		if e2 != nil {
			return BV{}, e2
		}
		result, err = c.b.Extract(child, n.high, n.low)
		if err != nil {
			return BV{}, err
		}
	case *concatNode:
		children := make([]BV, len(n.children))
		for i, ch := range n.children {
			children[i], err = c.substBV(ch)
			if err != nil {
				return BV{}, err
			}
		}
		result = children[0]
		for _, ch := range children[1:] {
			result, err = c.b.Concat(result, ch)
			if err != nil {
				return BV{}, err
			}
		}
	case *extendNode:
		child, e2 := c.substBV(n.child)
		if e2 != nil {
			return BV{}, e2
		}
		if n.signed {
			result, err = c.b.SExt(child, n.n)
		} else {
			result, err = c.b.ZExt(child, n.n)
		}
		if err != nil {
			return BV{}, err
		}
	case *iteNode:
		cond, e2 := c.substBool(n.cond)
		if e2 != nil {
			return BV{}, e2
		}
		ift, e2 := c.substBV(n.iftrue)
		if e2 != nil {
			return BV{}, e2
		}
		iff, e2 := c.substBV(n.iffalse)
		if e2 != nil {
			return BV{}, e2
		}
		result, err = c.b.ITE(cond, ift, iff)
		if err != nil {
			return BV{}, err
		}
	default:
		return BV{}, fmt.Errorf("Subst: unknown bv node kind")
	}
	c.memoBV[e.id()] = result
	return result, nil
}

func rebuildNary(b *Builder, knd int, children []BV) (BV, error) {
	switch knd {
	case tyAdd:
		return b.Add(children[0], children[1])
	case tySub:
		return b.Sub(children[0], children[1])
	case tyMul:
		return b.Mul(children[0], children[1])
	case tyAnd:
		return b.And(children[0], children[1])
	case tyOr:
		return b.Or(children[0], children[1])
	case tyXor:
		return b.Xor(children[0], children[1])
	case tySDiv:
		return b.SDiv(children[0], children[1])
	case tyUDiv:
		return b.UDiv(children[0], children[1])
	case tySRem:
		return b.SRem(children[0], children[1])
	case tyURem:
		return b.URem(children[0], children[1])
	case tyShl:
		return b.Shl(children[0], children[1])
	case tyLShr:
		return b.LShr(children[0], children[1])
	case tyAShr:
		return b.AShr(children[0], children[1])
	default:
		return BV{}, fmt.Errorf("Subst: unknown n-ary op")
	}
}

func rebuildCmp(b *Builder, knd int, lhs, rhs BV) (Bool, error) {
	switch knd {
	case tyEq:
		return b.Eq(lhs, rhs)
	case tyULt:
		return b.ULt(lhs, rhs)
	case tyULe:
		return b.ULe(lhs, rhs)
	case tyUGt:
		return b.UGt(lhs, rhs)
	case tyUGe:
		return b.UGe(lhs, rhs)
	case tySLt:
		return b.SLt(lhs, rhs)
	case tySLe:
		return b.SLe(lhs, rhs)
	case tySGt:
		return b.SGt(lhs, rhs)
	case tySGe:
		return b.SGe(lhs, rhs)
	default:
		return Bool{}, fmt.Errorf("Subst: unknown comparison op")
	}
}

func (c *substCtx) substBool(e Bool) (Bool, error) {
	if v, ok := c.memoB[e.id()]; ok {
		return v, nil
	}
	var result Bool
	var err error
	switch n := e.n.(type) {
	case *boolConstNode:
		result = e
	case *cmpNode:
		lhs, e2 := c.substBV(n.lhs)
		if e2 != nil {
			return Bool{}, e2
		}
		rhs, e2 := c.substBV(n.rhs)
		if e2 != nil {
			return Bool{}, e2
		}
		result, err = rebuildCmp(c.b, n.knd, lhs, rhs)
		if err != nil {
			return Bool{}, err
		}
	case *boolUnNode:
		child, e2 := c.substBool(n.child)
		if e2 != nil {
			return Bool{}, e2
		}
		result, err = c.b.BoolNot(child)
		if err != nil {
			return Bool{}, err
		}
	case *boolNaryNode:
		children := make([]Bool, len(n.children))
		for i, ch := range n.children {
			children[i], err = c.substBool(ch)
			if err != nil {
				return Bool{}, err
			}
		}
		result = children[0]
		for _, ch := range children[1:] {
			if n.knd == tyBoolAnd {
				result, err = c.b.BoolAnd(result, ch)
			} else {
				result, err = c.b.BoolOr(result, ch)
			}
			if err != nil {
				return Bool{}, err
			}
		}
	case *forAllNode:
		// Bound variables shadow any substitution target with the
		// same identity; in practice quant_vars and substitution
		// targets are drawn from disjoint symbol sets, so this does
		// not arise in this system's refinement queries.
		body, e2 := c.substBool(n.body)
		if e2 != nil {
			return Bool{}, e2
		}
		result = c.b.ForAll(n.bound, body)
	default:
		return Bool{}, fmt.Errorf("Subst: unknown bool node kind")
	}
	c.memoB[e.id()] = result
	return result, nil
}

// SubstBV replaces every free occurrence of a symbol in from with the
// corresponding term in to throughout e.
func (b *Builder) SubstBV(e BV, from, to []BV) (BV, error) {
	if len(from) == 0 {
		return e, nil
	}
	ctx, err := newSubstCtx(b, from, to)
	if err != nil {
		return BV{}, err
	}
	return ctx.substBV(e)
}

// SubstBool is SubstBV's boolean counterpart.
func (b *Builder) SubstBool(e Bool, from, to []BV) (Bool, error) {
	if len(from) == 0 {
		return e, nil
	}
	ctx, err := newSubstCtx(b, from, to)
	if err != nil {
		return Bool{}, err
	}
	return ctx.substBool(e)
}

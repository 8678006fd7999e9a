package smt

import (
	"strings"

	"github.com/aclements/go-z3/z3"
)

// z3backend converts the node tree into go-z3 terms and drives an
// incremental z3.Solver. Conversion results are cached per term
// identity (the hash-consed pointer) for the lifetime of the backend,
// since the same subterm commonly appears under many assertions.
type z3backend struct {
	b      *Builder
	ctx    *z3.Context
	solver *z3.Solver

	cache   map[uintptr]z3.Value
	symbols map[uintptr]z3.BV
}

func newZ3Backend(b *Builder) *z3backend {
	cfg := z3.NewContextConfig()
	ctx := z3.NewContext(cfg)
	return &z3backend{
		b:       b,
		ctx:     ctx,
		solver:  z3.NewSolver(ctx),
		cache:   make(map[uintptr]z3.Value),
		symbols: make(map[uintptr]z3.BV),
	}
}

func (z *z3backend) push() { z.solver.Push() }
func (z *z3backend) pop()  { z.solver.Pop() }
func (z *z3backend) close() {}

func (z *z3backend) assert(goal Bool) {
	z.solver.Assert(z.convertBool(goal.n))
}

func (z *z3backend) checkSat() Result {
	sat, err := z.solver.Check()
	if err != nil {
		return ResultUnknown
	}
	if sat {
		return ResultSat
	}
	return ResultUnsat
}

// modelConst parses a model value printed as "#x..." (widths that are
// a multiple of 4) or "#b..." (other widths).
func modelConst(v z3.BV) *BVConst {
	s := v.String()
	base := 16
	if strings.HasPrefix(s, "#b") {
		base = 2
	}
	c := MakeBVConstFromString(s[2:], base, uint(v.Sort().BVSize()))
	if c == nil {
		panic("smt: z3 returned a non-constant model value")
	}
	return c
}

func (z *z3backend) model() Model {
	m := z.solver.Model()
	if m == nil {
		return nil
	}
	res := make(Model, len(z.symbols))
	for _, sym := range z.symbols {
		v, ok := m.Eval(sym, true).(z3.BV)
		if !ok {
			continue
		}
		res[sym.String()] = modelConst(v)
	}
	return res
}

func (z *z3backend) convertBool(n node) z3.Bool {
	v := z.convert(n)
	b, ok := v.(z3.Bool)
	if !ok {
		panic("smt: expected boolean term")
	}
	return b
}

func (z *z3backend) convertBV(n node) z3.BV {
	v := z.convert(n)
	b, ok := v.(z3.BV)
	if !ok {
		panic("smt: expected bit-vector term")
	}
	return b
}

func (z *z3backend) convert(n node) z3.Value {
	if v, ok := z.cache[n.rawPtr()]; ok {
		return v
	}

	var result z3.Value
	switch e := n.(type) {
	case *bvSymNode:
		bv := z.ctx.BVConst(e.name, int(e.sz))
		z.symbols[n.rawPtr()] = bv
		result = bv
	case *bvConstNode:
		result = z.ctx.FromBigInt(e.val.value, z.ctx.BVSort(int(e.val.Size)))
	case *extractNode:
		child := z.convertBV(e.child.n)
		result = child.Extract(int(e.high), int(e.low))
	case *concatNode:
		res := z.convertBV(e.children[0].n)
		for _, c := range e.children[1:] {
			res = res.Concat(z.convertBV(c.n))
		}
		result = res
	case *extendNode:
		child := z.convertBV(e.child.n)
		if e.signed {
			result = child.SignExtend(int(e.n))
		} else {
			result = child.ZeroExtend(int(e.n))
		}
	case *iteNode:
		guard := z.convertBool(e.cond.n)
		result = guard.IfThenElse(z.convertBV(e.iftrue.n), z.convertBV(e.iffalse.n))
	case *bvUnNode:
		child := z.convertBV(e.child.n)
		switch e.knd {
		case tyNot:
			result = child.Not()
		case tyNeg:
			result = child.Neg()
		default:
			panic("smt: unknown unary bv op")
		}
	case *bvNaryNode:
		res := z.convertBV(e.children[0].n)
		for _, c := range e.children[1:] {
			rhs := z.convertBV(c.n)
			switch e.knd {
			case tyAdd:
				res = res.Add(rhs)
			case tySub:
				res = res.Sub(rhs)
			case tyMul:
				res = res.Mul(rhs)
			case tyAnd:
				res = res.And(rhs)
			case tyOr:
				res = res.Or(rhs)
			case tyXor:
				res = res.Xor(rhs)
			case tyShl:
				res = res.Lsh(rhs)
			case tyLShr:
				res = res.URsh(rhs)
			case tyAShr:
				res = res.SRsh(rhs)
			case tySDiv:
				res = res.SDiv(rhs)
			case tyUDiv:
				res = res.UDiv(rhs)
			case tySRem:
				res = res.SRem(rhs)
			case tyURem:
				res = res.URem(rhs)
			default:
				panic("smt: unknown n-ary bv op")
			}
		}
		result = res
	case *cmpNode:
		lhs := z.convertBV(e.lhs.n)
		rhs := z.convertBV(e.rhs.n)
		switch e.knd {
		case tyULt:
			result = lhs.ULT(rhs)
		case tyULe:
			result = lhs.ULE(rhs)
		case tyUGt:
			result = lhs.UGT(rhs)
		case tyUGe:
			result = lhs.UGE(rhs)
		case tySLt:
			result = lhs.SLT(rhs)
		case tySLe:
			result = lhs.SLE(rhs)
		case tySGt:
			result = lhs.SGT(rhs)
		case tySGe:
			result = lhs.SGE(rhs)
		case tyEq:
			result = lhs.Eq(rhs)
		default:
			panic("smt: unknown comparison op")
		}
	case *boolConstNode:
		result = z.ctx.FromBool(e.val)
	case *boolUnNode:
		result = z.convertBool(e.child.n).Not()
	case *boolNaryNode:
		res := z.convertBool(e.children[0].n)
		for _, c := range e.children[1:] {
			rhs := z.convertBool(c.n)
			if e.knd == tyBoolAnd {
				res = res.And(rhs)
			} else {
				res = res.Or(rhs)
			}
		}
		result = res
	case *forAllNode:
		bound := make([]z3.Value, len(e.bound))
		for i, s := range e.bound {
			bound[i] = z.convertBV(s.n)
		}
		result = z.ctx.ForallConst(bound, z.convertBool(e.body.n))
	default:
		panic("smt: unknown node kind in z3 conversion")
	}

	z.cache[n.rawPtr()] = result
	return result
}

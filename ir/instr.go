package ir

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/borzacchiello/alivetv/smt"
)

// BinOpKind is one of the eight arithmetic/shift operators the core
// covers (§3).
type BinOpKind int

const (
	OpAdd BinOpKind = iota
	OpSub
	OpMul
	OpSDiv
	OpUDiv
	OpShl
	OpLShr
	OpAShr
)

func (k BinOpKind) String() string {
	return [...]string{"add", "sub", "mul", "sdiv", "udiv", "shl", "lshr", "ashr"}[k]
}

// Flag is one of the instruction-level overflow/exactness modifiers.
type Flag int

const (
	FlagNSW Flag = 1 << iota
	FlagNUW
	FlagExact
)

func (f Flag) Has(flag Flag) bool { return f&flag != 0 }

func (f Flag) String() string {
	var parts []string
	if f.Has(FlagNSW) {
		parts = append(parts, "nsw")
	}
	if f.Has(FlagNUW) {
		parts = append(parts, "nuw")
	}
	if f.Has(FlagExact) {
		parts = append(parts, "exact")
	}
	return strings.Join(parts, " ")
}

// Instruction is implemented by every instruction kind. Exec produces
// this instruction's StateValue from already-evaluated operands and
// merges UB/domain effects directly into state.
type Instruction interface {
	Value
	IsTerminator() bool
	Exec(b *smt.Builder, s *State, operand func(ValueRef) StateValue) (StateValue, error)
}

// BinOp is `%name = op [flags] a, b` (§4.4).
type BinOp struct {
	name  string
	typ   Type
	Op    BinOpKind
	Flags Flag
	A, B  ValueRef
}

func NewBinOp(name string, typ Type, op BinOpKind, flags Flag, a, b ValueRef) *BinOp {
	return &BinOp{name: name, typ: typ, Op: op, Flags: flags, A: a, B: b}
}

func (i *BinOp) String() string {
	flags := i.Flags.String()
	if flags != "" {
		flags = " " + flags
	}
	return fmt.Sprintf("%%%s = %s%s %s, %s", i.name, i.Op, flags, refStr(i.A), refStr(i.B))
}

func refStr(r ValueRef) string { return fmt.Sprintf("%%%d", int(r)) }

func (i *BinOp) Name() string                            { return i.name }
func (i *BinOp) Type() Type                              { return i.typ }
func (i *BinOp) TypeConstraints(b *smt.Builder) smt.Bool { return i.typ.Constraints(b) }
func (i *BinOp) FixupTypes(m smt.Model)                  { i.typ.Fixup(m) }
func (i *BinOp) IsTerminator() bool                      { return false }

// noSignedOverflow and noUnsignedOverflow return the non-poison
// condition for NSW/NUW on add/sub/mul, expressed by comparing the wide
// (w+1 bits for add/sub, 2w bits for mul) signed/unsigned result
// against its narrow truncation — this avoids needing a dedicated
// overflow predicate per operator.
func noSignedOverflow(b *smt.Builder, op BinOpKind, a, c smt.BV) (smt.Bool, error) {
	w := a.Size()
	ext := uint(1)
	if op == OpMul {
		ext = w
	}
	wa, err := b.SExt(a, ext)
	if err != nil {
		return smt.Bool{}, err
	}
	wc, err := b.SExt(c, ext)
	if err != nil {
		return smt.Bool{}, err
	}
	var wide smt.BV
	switch op {
	case OpAdd:
		wide, err = b.Add(wa, wc)
	case OpSub:
		wide, err = b.Sub(wa, wc)
	case OpMul:
		wide, err = b.Mul(wa, wc)
	default:
		return smt.Bool{}, fmt.Errorf("ir: noSignedOverflow on non-arith op")
	}
	if err != nil {
		return smt.Bool{}, err
	}
	narrow, err := b.Extract(wide, w-1, 0)
	if err != nil {
		return smt.Bool{}, err
	}
	resext, err := b.SExt(narrow, ext)
	if err != nil {
		return smt.Bool{}, err
	}
	return b.Eq(wide, resext)
}

func noUnsignedOverflow(b *smt.Builder, op BinOpKind, a, c smt.BV) (smt.Bool, error) {
	w := a.Size()
	ext := uint(1)
	if op == OpMul {
		ext = w
	}
	wa, err := b.ZExt(a, ext)
	if err != nil {
		return smt.Bool{}, err
	}
	wc, err := b.ZExt(c, ext)
	if err != nil {
		return smt.Bool{}, err
	}
	var wide smt.BV
	switch op {
	case OpAdd:
		wide, err = b.Add(wa, wc)
	case OpSub:
		wide, err = b.Sub(wa, wc)
	case OpMul:
		wide, err = b.Mul(wa, wc)
	default:
		return smt.Bool{}, fmt.Errorf("ir: noUnsignedOverflow on non-arith op")
	}
	if err != nil {
		return smt.Bool{}, err
	}
	narrow, err := b.Extract(wide, w-1, 0)
	if err != nil {
		return smt.Bool{}, err
	}
	resext, err := b.ZExt(narrow, ext)
	if err != nil {
		return smt.Bool{}, err
	}
	return b.Eq(wide, resext)
}

// Exec implements the BinOp semantics table from spec.md §4.4.
func (i *BinOp) Exec(b *smt.Builder, s *State, operand func(ValueRef) StateValue) (StateValue, error) {
	av := operand(i.A)
	bv := operand(i.B)
	a, c := av.Value, bv.Value
	w := a.Size()

	np, err := b.BoolAnd(av.NonPoison, bv.NonPoison)
	if err != nil {
		return StateValue{}, err
	}

	var value smt.BV
	ub := b.BoolVal(true)

	switch i.Op {
	case OpAdd, OpSub, OpMul:
		switch i.Op {
		case OpAdd:
			value, err = b.Add(a, c)
		case OpSub:
			value, err = b.Sub(a, c)
		case OpMul:
			value, err = b.Mul(a, c)
		}
		if err != nil {
			return StateValue{}, err
		}
		if i.Flags.Has(FlagNSW) {
			cond, err := noSignedOverflow(b, i.Op, a, c)
			if err != nil {
				return StateValue{}, err
			}
			np, err = b.BoolAnd(np, cond)
			if err != nil {
				return StateValue{}, err
			}
		}
		if i.Flags.Has(FlagNUW) {
			cond, err := noUnsignedOverflow(b, i.Op, a, c)
			if err != nil {
				return StateValue{}, err
			}
			np, err = b.BoolAnd(np, cond)
			if err != nil {
				return StateValue{}, err
			}
		}

	case OpSDiv, OpUDiv:
		zero := b.BVV(0, w)
		nz, err := b.NEq(c, zero)
		if err != nil {
			return StateValue{}, err
		}
		ub, err = b.BoolAnd(ub, nz)
		if err != nil {
			return StateValue{}, err
		}
		if i.Op == OpSDiv {
			intMin := b.BVVFromConst(smt.IntMin(w))
			minusOne := b.BVV(-1, w)
			aIsMin, err := b.Eq(a, intMin)
			if err != nil {
				return StateValue{}, err
			}
			bIsMinusOne, err := b.Eq(c, minusOne)
			if err != nil {
				return StateValue{}, err
			}
			overflow, err := b.BoolAnd(aIsMin, bIsMinusOne)
			if err != nil {
				return StateValue{}, err
			}
			notOverflow, err := b.BoolNot(overflow)
			if err != nil {
				return StateValue{}, err
			}
			ub, err = b.BoolAnd(ub, notOverflow)
			if err != nil {
				return StateValue{}, err
			}
			value, err = b.SDiv(a, c)
			if err != nil {
				return StateValue{}, err
			}
		} else {
			value, err = b.UDiv(a, c)
			if err != nil {
				return StateValue{}, err
			}
		}
		if i.Flags.Has(FlagExact) {
			reconstructed, err := b.Mul(value, c)
			if err != nil {
				return StateValue{}, err
			}
			exact, err := b.Eq(a, reconstructed)
			if err != nil {
				return StateValue{}, err
			}
			np, err = b.BoolAnd(np, exact)
			if err != nil {
				return StateValue{}, err
			}
		}

	case OpShl, OpLShr, OpAShr:
		inRange, err := b.ULt(c, b.BVV(int64(w), w))
		if err != nil {
			return StateValue{}, err
		}
		ub, err = b.BoolAnd(ub, inRange)
		if err != nil {
			return StateValue{}, err
		}
		switch i.Op {
		case OpShl:
			value, err = b.Shl(a, c)
		case OpLShr:
			value, err = b.LShr(a, c)
		case OpAShr:
			value, err = b.AShr(a, c)
		}
		if err != nil {
			return StateValue{}, err
		}
		if i.Op == OpShl {
			if i.Flags.Has(FlagNSW) {
				cond, err := shiftNoSignedOverflow(b, a, value, c)
				if err != nil {
					return StateValue{}, err
				}
				np, err = b.BoolAnd(np, cond)
				if err != nil {
					return StateValue{}, err
				}
			}
			if i.Flags.Has(FlagNUW) {
				back, err := b.LShr(value, c)
				if err != nil {
					return StateValue{}, err
				}
				cond, err := b.Eq(back, a)
				if err != nil {
					return StateValue{}, err
				}
				np, err = b.BoolAnd(np, cond)
				if err != nil {
					return StateValue{}, err
				}
			}
		} else if i.Flags.Has(FlagExact) {
			back, err := b.Shl(value, c)
			if err != nil {
				return StateValue{}, err
			}
			cond, err := b.Eq(back, a)
			if err != nil {
				return StateValue{}, err
			}
			np, err = b.BoolAnd(np, cond)
			if err != nil {
				return StateValue{}, err
			}
		}
	}

	s.AddUB(ub)
	return StateValue{Value: value, NonPoison: np}, nil
}

// shiftNoSignedOverflow checks that shifting a left by c and back
// right (arithmetically) recovers a, i.e. no sign-changing bits were
// shifted out.
func shiftNoSignedOverflow(b *smt.Builder, a, shifted, c smt.BV) (smt.Bool, error) {
	back, err := b.AShr(shifted, c)
	if err != nil {
		return smt.Bool{}, err
	}
	return b.Eq(back, a)
}

// Return is `ret [type] v` (§4.4).
type Return struct {
	name string
	V    ValueRef
}

func NewReturn(v ValueRef) *Return { return &Return{name: "ret", V: v} }

func (i *Return) String() string                             { return "ret " + refStr(i.V) }
func (i *Return) Name() string                                { return i.name }
func (i *Return) Type() Type                                  { return VoidType{} }
func (i *Return) TypeConstraints(b *smt.Builder) smt.Bool     { return b.BoolVal(true) }
func (i *Return) FixupTypes(smt.Model)                        {}
func (i *Return) IsTerminator() bool                          { return true }

func (i *Return) Exec(b *smt.Builder, s *State, operand func(ValueRef) StateValue) (StateValue, error) {
	s.RecordReturn(operand(i.V))
	return StateValue{}, nil
}

// Unreachable is the `unreachable` terminator (§4.4).
type Unreachable struct{ name string }

func NewUnreachable() *Unreachable { return &Unreachable{name: "unreachable"} }

func (i *Unreachable) String() string                         { return "unreachable" }
func (i *Unreachable) Name() string                           { return i.name }
func (i *Unreachable) Type() Type                             { return VoidType{} }
func (i *Unreachable) TypeConstraints(b *smt.Builder) smt.Bool { return b.BoolVal(true) }
func (i *Unreachable) FixupTypes(smt.Model)                    {}
func (i *Unreachable) IsTerminator() bool                      { return true }

func (i *Unreachable) Exec(b *smt.Builder, s *State, operand func(ValueRef) StateValue) (StateValue, error) {
	s.Unreachable()
	return StateValue{}, nil
}

// ErrPredicateNotImplemented is returned by CmpPred/BoolPred's Exec:
// the core declares these as black-box predicate stubs (§3) without
// specifying a body, so evaluating one is a decided "not implemented"
// failure rather than a fabricated formula.
var ErrPredicateNotImplemented = errors.New("predicate has no implemented semantics")

// CmpPred and BoolPred are black-box SMT predicates of declared shape,
// used by preconditions (§3: "stubs ... treated as black-box SMT
// predicates"). Neither carries a body, so executing one errors out
// instead of inventing semantics the core never specified.
type CmpPred struct {
	name string
	args []ValueRef
}

func NewCmpPred(name string, args []ValueRef) *CmpPred { return &CmpPred{name: name, args: args} }

func (i *CmpPred) String() string                             { return i.name + "(...)" }
func (i *CmpPred) Name() string                                { return i.name }
func (i *CmpPred) Type() Type                                  { return NewIntType(1) }
func (i *CmpPred) TypeConstraints(b *smt.Builder) smt.Bool     { return b.BoolVal(true) }
func (i *CmpPred) FixupTypes(smt.Model)                        {}
func (i *CmpPred) IsTerminator() bool                          { return false }

func (i *CmpPred) Exec(b *smt.Builder, s *State, operand func(ValueRef) StateValue) (StateValue, error) {
	return StateValue{}, errors.Wrapf(ErrPredicateNotImplemented, "cmp predicate %q", i.name)
}

type BoolPred struct {
	name string
	args []ValueRef
}

func NewBoolPred(name string, args []ValueRef) *BoolPred { return &BoolPred{name: name, args: args} }

func (i *BoolPred) String() string                             { return i.name + "(...)" }
func (i *BoolPred) Name() string                                { return i.name }
func (i *BoolPred) Type() Type                                  { return NewIntType(1) }
func (i *BoolPred) TypeConstraints(b *smt.Builder) smt.Bool     { return b.BoolVal(true) }
func (i *BoolPred) FixupTypes(smt.Model)                        {}
func (i *BoolPred) IsTerminator() bool                          { return false }

func (i *BoolPred) Exec(b *smt.Builder, s *State, operand func(ValueRef) StateValue) (StateValue, error) {
	return StateValue{}, errors.Wrapf(ErrPredicateNotImplemented, "bool predicate %q", i.name)
}

package ir

import (
	"fmt"

	"github.com/borzacchiello/alivetv/smt"
)

// Value is implemented by every node a Function can own: Input,
// Constant and every Instruction. Values are referenced across a
// function by their ValueRef index, never by pointer, per the
// arena-owned-by-function convention.
type Value interface {
	fmt.Stringer
	Name() string
	Type() Type
	// TypeConstraints contributes this value's own admissibility
	// predicate (not its operands'; Function conjoins the whole
	// arena).
	TypeConstraints(b *smt.Builder) smt.Bool
	FixupTypes(m smt.Model)
}

// ValueRef is a non-owning index into a Function's value arena.
type ValueRef int

const invalidRef ValueRef = -1

// Input is a free symbolic bit-vector named after a function
// parameter or an implicit (undeclared-on-the-right-hand-side)
// identifier.
type Input struct {
	name string
	typ  Type
}

func NewInput(name string, typ Type) *Input { return &Input{name: name, typ: typ} }

func (v *Input) String() string { return "%" + v.name }
func (v *Input) Name() string   { return v.name }
func (v *Input) Type() Type     { return v.typ }
func (v *Input) TypeConstraints(b *smt.Builder) smt.Bool { return v.typ.Constraints(b) }
func (v *Input) FixupTypes(m smt.Model)                  { v.typ.Fixup(m) }

// ConstKind distinguishes Constant's four surface forms (§3).
type ConstKind int

const (
	ConstLiteral ConstKind = iota
	ConstFreeVar
	ConstBinOp
	ConstFn
)

// ConstBinOpKind is the binary operator over two constants.
type ConstBinOpKind int

const (
	ConstAdd ConstBinOpKind = iota
	ConstSub
	ConstSDiv
	ConstUDiv
)

func (k ConstBinOpKind) String() string {
	switch k {
	case ConstAdd:
		return "add"
	case ConstSub:
		return "sub"
	case ConstSDiv:
		return "sdiv"
	case ConstUDiv:
		return "udiv"
	default:
		return "?"
	}
}

// ConstFnKind is a named constant function (§9: both are stubbed in
// the reference constant-folder).
type ConstFnKind int

const (
	ConstFnLog2 ConstFnKind = iota
	ConstFnWidth
)

func (k ConstFnKind) String() string {
	if k == ConstFnWidth {
		return "width"
	}
	return "log2"
}

// Constant is a value interned by its surface form: a literal, a
// named free variable, a binary op over two other constants, or a
// named function applied to one constant.
type Constant struct {
	name string
	typ  Type
	kind ConstKind

	literal *smt.BVConst // ConstLiteral

	binOp       ConstBinOpKind // ConstBinOp
	lhs, rhs    *Constant

	fn  ConstFnKind // ConstFn
	arg *Constant
}

func NewLiteralConstant(name string, typ Type, v *smt.BVConst) *Constant {
	return &Constant{name: name, typ: typ, kind: ConstLiteral, literal: v}
}

func NewFreeVarConstant(name string, typ Type) *Constant {
	return &Constant{name: name, typ: typ, kind: ConstFreeVar}
}

func NewBinOpConstant(name string, typ Type, op ConstBinOpKind, lhs, rhs *Constant) *Constant {
	return &Constant{name: name, typ: typ, kind: ConstBinOp, binOp: op, lhs: lhs, rhs: rhs}
}

func NewFnConstant(name string, typ Type, fn ConstFnKind, arg *Constant) *Constant {
	return &Constant{name: name, typ: typ, kind: ConstFn, fn: fn, arg: arg}
}

func (v *Constant) String() string {
	switch v.kind {
	case ConstLiteral:
		return v.literal.String()
	case ConstFreeVar:
		return "%" + v.name
	case ConstBinOp:
		return fmt.Sprintf("%s(%s, %s)", v.binOp, v.lhs, v.rhs)
	case ConstFn:
		return fmt.Sprintf("%s(%s)", v.fn, v.arg)
	default:
		return "?"
	}
}

func (v *Constant) Name() string { return v.name }
func (v *Constant) Type() Type   { return v.typ }

func (v *Constant) TypeConstraints(b *smt.Builder) smt.Bool { return v.typ.Constraints(b) }

func (v *Constant) FixupTypes(m smt.Model) {
	v.typ.Fixup(m)
	switch v.kind {
	case ConstLiteral:
		// A literal parsed under an omitted type annotation is built
		// against a placeholder width (the type is a SymbolicType
		// shared with its operand's/instruction's own operands); once
		// the joint typing model fixes that shared type's real width,
		// rebuild the term so it carries the width every other user
		// of the same type now agrees on, instead of the frozen one.
		if w, ok := v.typ.Bits(); ok && v.literal != nil && w != v.literal.Size {
			v.literal = smt.MakeBVConst(v.literal.AsLong(), w)
		}
	case ConstBinOp:
		v.lhs.FixupTypes(m)
		v.rhs.FixupTypes(m)
	case ConstFn:
		v.arg.FixupTypes(m)
	}
}

// ToSMT folds the constant to a StateValue. A constant's non_poison
// is always true (§3 invariants); ub accumulates operand UB plus any
// operator-specific condition.
func (v *Constant) ToSMT(b *smt.Builder) (StateValue, smt.Bool, error) {
	switch v.kind {
	case ConstLiteral:
		return StateValue{Value: b.BVVFromConst(v.literal), NonPoison: b.BoolVal(true)}, b.BoolVal(true), nil
	case ConstFreeVar:
		w, ok := v.typ.Bits()
		if !ok {
			return StateValue{}, smt.Bool{}, fmt.Errorf("ir: free var %q has unresolved width", v.name)
		}
		return StateValue{Value: b.BVS(v.name, w), NonPoison: b.BoolVal(true)}, b.BoolVal(true), nil
	case ConstBinOp:
		lsv, lub, err := v.lhs.ToSMT(b)
		if err != nil {
			return StateValue{}, smt.Bool{}, err
		}
		rsv, rub, err := v.rhs.ToSMT(b)
		if err != nil {
			return StateValue{}, smt.Bool{}, err
		}
		ub, err := b.BoolAnd(lub, rub)
		if err != nil {
			return StateValue{}, smt.Bool{}, err
		}
		var val smt.BV
		switch v.binOp {
		case ConstAdd:
			val, err = b.Add(lsv.Value, rsv.Value)
		case ConstSub:
			val, err = b.Sub(lsv.Value, rsv.Value)
		case ConstSDiv:
			val, err = b.SDiv(lsv.Value, rsv.Value)
			nz, e2 := b.NEq(rsv.Value, b.BVV(0, rsv.Value.Size()))
			if e2 != nil {
				return StateValue{}, smt.Bool{}, e2
			}
			ub, err = b.BoolAnd(ub, nz)
		case ConstUDiv:
			val, err = b.UDiv(lsv.Value, rsv.Value)
			nz, e2 := b.NEq(rsv.Value, b.BVV(0, rsv.Value.Size()))
			if e2 != nil {
				return StateValue{}, smt.Bool{}, e2
			}
			ub, err = b.BoolAnd(ub, nz)
		default:
			return StateValue{}, smt.Bool{}, fmt.Errorf("ir: unknown constant binop %v", v.binOp)
		}
		if err != nil {
			return StateValue{}, smt.Bool{}, err
		}
		return StateValue{Value: val, NonPoison: b.BoolVal(true)}, ub, nil
	case ConstFn:
		argSV, _, err := v.arg.ToSMT(b)
		if err != nil {
			return StateValue{}, smt.Bool{}, err
		}
		// The reference constant folder's log2/width implementation
		// is itself incomplete (a placeholder); any use is treated
		// as undefined behavior if reached, regardless of the
		// argument's own UB.
		return StateValue{Value: argSV.Value, NonPoison: b.BoolVal(true)}, b.BoolVal(false), nil
	default:
		return StateValue{}, smt.Bool{}, fmt.Errorf("ir: unknown constant kind %v", v.kind)
	}
}

// UndefValue introduces a fresh free bit-vector symbol each time it is
// symbolically executed (§4.5); the symbol must be added to the
// enclosing State's quant_vars by the caller.
type UndefValue struct {
	name string
	typ  Type
}

func NewUndefValue(name string, typ Type) *UndefValue { return &UndefValue{name: name, typ: typ} }

func (v *UndefValue) String() string                             { return "undef" }
func (v *UndefValue) Name() string                                { return v.name }
func (v *UndefValue) Type() Type                                  { return v.typ }
func (v *UndefValue) TypeConstraints(b *smt.Builder) smt.Bool     { return v.typ.Constraints(b) }
func (v *UndefValue) FixupTypes(m smt.Model)                      { v.typ.Fixup(m) }

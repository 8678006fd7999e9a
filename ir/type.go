// Package ir is the typed intermediate representation: types, values,
// instructions, basic blocks and functions, plus constant folding into
// the smt term layer.
package ir

import (
	"fmt"

	"github.com/borzacchiello/alivetv/smt"
)

// Kind distinguishes a type's concrete category. It doubles as the
// 3-bit category variable's encoding (Void is never symbolic, so it is
// not part of the admissible-category bitmask).
type Kind uint8

const (
	KindInt Kind = iota
	KindFloat
	KindPtr
	KindArray
	KindVector
	KindVoid
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindPtr:
		return "ptr"
	case KindArray:
		return "array"
	case KindVector:
		return "vector"
	case KindVoid:
		return "void"
	default:
		return "?"
	}
}

// categoryBits/widthBits are the variable widths spec.md §4.3 fixes
// for the category and width type variables.
const categoryBits = 3
const widthBits = 10

// Type is implemented by every concrete type and by SymbolicType.
type Type interface {
	fmt.Stringer
	// Bits reports the type's bit width; ok is false before a
	// symbolic type has been fixed up.
	Bits() (w uint, ok bool)
	// Constraints returns the admissibility predicate for this type
	// (§4.3): `true` for VoidType, the width bound for IntType, and
	// `false` for the Float/Ptr/Array/Vector stubs.
	Constraints(b *smt.Builder) smt.Bool
	// Equal returns the SMT predicate for "this type equals other".
	Equal(b *smt.Builder, other Type) (smt.Bool, error)
	// Fixup reads this type's variables from a satisfying model.
	// No-op on an already-concrete type.
	Fixup(m smt.Model)
	// EnforceInt restricts a symbolic type's admissible categories
	// to {Int}; a no-op on an already-Int concrete type, a fatal
	// internal error on any other concrete type.
	EnforceInt()
	// EnforceIntOrPtrOrVectorType restricts a symbolic type's
	// admissible categories; no-op on a matching concrete type.
	EnforceIntOrPtrOrVectorType()
}

// VoidType is the type of a function with no return value and of
// Unreachable's unreachable "value".
type VoidType struct{}

func (VoidType) String() string                             { return "void" }
func (VoidType) Bits() (uint, bool)                          { return 0, true }
func (VoidType) Constraints(b *smt.Builder) smt.Bool         { return b.BoolVal(true) }
func (VoidType) Fixup(smt.Model)                             {}
func (VoidType) EnforceInt()                                 { panic("ir: EnforceInt on VoidType") }
func (VoidType) EnforceIntOrPtrOrVectorType()                { panic("ir: EnforceIntOrPtrOrVectorType on VoidType") }
func (t VoidType) Equal(b *smt.Builder, other Type) (smt.Bool, error) {
	if _, ok := other.(VoidType); ok {
		return b.BoolVal(true), nil
	}
	if s, ok := other.(*SymbolicType); ok {
		return s.Equal(b, t)
	}
	return b.BoolVal(false), nil
}

// IntType is an integer type of width 1..64. Width 0 means the width
// is not known yet; a solver-chosen width lives in SymbolicType.
type IntType struct{ Width uint }

func NewIntType(w uint) *IntType { return &IntType{Width: w} }

func (t *IntType) String() string {
	if t.Width == 0 {
		return "i?"
	}
	return fmt.Sprintf("i%d", t.Width)
}
func (t *IntType) Bits() (uint, bool) { return t.Width, t.Width != 0 }

// Constraints is the constant `0 < w <= 64`. NewIntType does not check
// the width, so an out-of-range width makes this false here.
// SymbolicType bounds its own width variable separately.
func (t *IntType) Constraints(b *smt.Builder) smt.Bool { return b.BoolVal(t.Width > 0 && t.Width <= 64) }

func (t *IntType) Fixup(smt.Model) {}

func (t *IntType) EnforceInt() {}
func (t *IntType) EnforceIntOrPtrOrVectorType() {}

func (t *IntType) Equal(b *smt.Builder, other Type) (smt.Bool, error) {
	switch o := other.(type) {
	case *IntType:
		return b.BoolVal(t.Width == o.Width), nil
	case *SymbolicType:
		return o.Equal(b, t)
	default:
		return b.BoolVal(false), nil
	}
}

// FloatType, PtrType, ArrayType, VectorType are stubbed per spec.md
// §9 Open Questions: their constraint predicate is `false`, so any
// typing assignment that would choose them is unsatisfiable and the
// verifier rejects the program rather than miscompiling it.
type FloatType struct{}

func (FloatType) String() string                     { return "float" }
func (FloatType) Bits() (uint, bool)                  { return 0, false }
func (FloatType) Constraints(b *smt.Builder) smt.Bool { return b.BoolVal(false) }
func (FloatType) Fixup(smt.Model)                     {}
func (FloatType) EnforceInt()                         { panic("ir: EnforceInt on FloatType") }
func (FloatType) EnforceIntOrPtrOrVectorType()        {}
func (t FloatType) Equal(b *smt.Builder, other Type) (smt.Bool, error) {
	if _, ok := other.(FloatType); ok {
		return b.BoolVal(true), nil
	}
	if s, ok := other.(*SymbolicType); ok {
		return s.Equal(b, t)
	}
	return b.BoolVal(false), nil
}

type PtrType struct{}

func (PtrType) String() string                     { return "ptr" }
func (PtrType) Bits() (uint, bool)                  { return 0, false }
func (PtrType) Constraints(b *smt.Builder) smt.Bool { return b.BoolVal(false) }
func (PtrType) Fixup(smt.Model)                     {}
func (PtrType) EnforceInt()                         { panic("ir: EnforceInt on PtrType") }
func (PtrType) EnforceIntOrPtrOrVectorType()        {}
func (t PtrType) Equal(b *smt.Builder, other Type) (smt.Bool, error) {
	if _, ok := other.(PtrType); ok {
		return b.BoolVal(true), nil
	}
	if s, ok := other.(*SymbolicType); ok {
		return s.Equal(b, t)
	}
	return b.BoolVal(false), nil
}

type ArrayType struct{}

func (ArrayType) String() string                     { return "array" }
func (ArrayType) Bits() (uint, bool)                  { return 0, false }
func (ArrayType) Constraints(b *smt.Builder) smt.Bool { return b.BoolVal(false) }
func (ArrayType) Fixup(smt.Model)                     {}
func (ArrayType) EnforceInt()                         { panic("ir: EnforceInt on ArrayType") }
func (ArrayType) EnforceIntOrPtrOrVectorType()        {}
func (t ArrayType) Equal(b *smt.Builder, other Type) (smt.Bool, error) {
	if _, ok := other.(ArrayType); ok {
		return b.BoolVal(true), nil
	}
	if s, ok := other.(*SymbolicType); ok {
		return s.Equal(b, t)
	}
	return b.BoolVal(false), nil
}

type VectorType struct{}

func (VectorType) String() string                     { return "vector" }
func (VectorType) Bits() (uint, bool)                 { return 0, false }
func (VectorType) Constraints(b *smt.Builder) smt.Bool { return b.BoolVal(false) }
func (VectorType) Fixup(smt.Model)                     {}
func (VectorType) EnforceInt()                         { panic("ir: EnforceInt on VectorType") }
func (VectorType) EnforceIntOrPtrOrVectorType()        {}
func (t VectorType) Equal(b *smt.Builder, other Type) (smt.Bool, error) {
	if _, ok := other.(VectorType); ok {
		return b.BoolVal(true), nil
	}
	if s, ok := other.(*SymbolicType); ok {
		return s.Equal(b, t)
	}
	return b.BoolVal(false), nil
}

// categoryMask bits, indexed by Kind.
const (
	maskInt Kind = 1 << iota
	maskFloat
	maskPtr
	maskArray
	maskVector
)

func kindMask(k Kind) Kind {
	switch k {
	case KindInt:
		return maskInt
	case KindFloat:
		return maskFloat
	case KindPtr:
		return maskPtr
	case KindArray:
		return maskArray
	case KindVector:
		return maskVector
	default:
		return 0
	}
}

// SymbolicType holds one instance of each concrete variant sharing the
// same operation name, plus the category/width SMT variables that pin
// down which variant a typing assignment chose. Before Fixup, Bits and
// the concrete accessors are unusable; callers must fix up the joint
// type-constraint model first.
type SymbolicType struct {
	opName  string
	enabled uint8 // bitmask over maskInt|maskFloat|maskPtr|maskArray|maskVector

	variants map[Kind]Type

	typeVar smt.BV // categoryBits-wide
	bwVar   smt.BV // widthBits-wide

	chosen   Kind
	fixedUp  bool
}

// NewSymbolicType builds a symbolic type admissible as any category in
// enabled, named after opName for deterministic variable naming
// ("<opname>_type", "<opname>_bw").
func NewSymbolicType(b *smt.Builder, opName string, enabled uint8) *SymbolicType {
	return &SymbolicType{
		opName:  opName,
		enabled: enabled,
		variants: map[Kind]Type{
			KindInt:    &IntType{Width: 0},
			KindFloat:  FloatType{},
			KindPtr:    PtrType{},
			KindArray:  ArrayType{},
			KindVector: VectorType{},
		},
		typeVar: b.BVS(opName+"_type", categoryBits),
		bwVar:   b.BVS(opName+"_bw", widthBits),
	}
}

func (t *SymbolicType) String() string {
	if t.fixedUp {
		return t.variants[t.chosen].String()
	}
	return t.opName + "?"
}

func (t *SymbolicType) Bits() (uint, bool) {
	if !t.fixedUp {
		return 0, false
	}
	return t.variants[t.chosen].Bits()
}

func (t *SymbolicType) hasCategory(k Kind) bool { return t.enabled&uint8(kindMask(k)) != 0 }

// categoryLit returns the 3-bit literal encoding k, consistent with
// the iota order Kind declares its concrete categories in.
func categoryLit(b *smt.Builder, k Kind) smt.BV { return b.BVV(int64(k), categoryBits) }

// Constraints is the disjunction over enabled categories of
// `(typeVar == category_i) && variant_i.constraints()`, with the
// width variable substituted for integers so the disjunct also
// bounds the chosen width.
func (t *SymbolicType) Constraints(b *smt.Builder) smt.Bool {
	disjuncts := make([]smt.Bool, 0, 5)
	for _, k := range []Kind{KindInt, KindFloat, KindPtr, KindArray, KindVector} {
		if !t.hasCategory(k) {
			continue
		}
		catEq, err := b.Eq(t.typeVar, categoryLit(b, k))
		if err != nil {
			panic(err)
		}
		var variantConstraint smt.Bool
		if k == KindInt {
			lo, err := b.UGt(t.bwVar, b.BVV(0, widthBits))
			if err != nil {
				panic(err)
			}
			hi, err := b.ULe(t.bwVar, b.BVV(64, widthBits))
			if err != nil {
				panic(err)
			}
			variantConstraint, err = b.BoolAnd(lo, hi)
			if err != nil {
				panic(err)
			}
		} else {
			variantConstraint = t.variants[k].Constraints(b)
		}
		d, err := b.BoolAnd(catEq, variantConstraint)
		if err != nil {
			panic(err)
		}
		disjuncts = append(disjuncts, d)
	}
	res, err := b.OrAll(disjuncts...)
	if err != nil {
		panic(err)
	}
	return res
}

// Fixup reads this type's category and width from m and memoizes
// them. It is idempotent under a fixed model (re-running with the
// same m yields the same concrete type) but, unlike a cache, always
// re-reads m — the typing-enumeration loop (§4.8) calls Fixup once
// per candidate model and expects each call to reflect that model,
// not the first one ever seen.
func (t *SymbolicType) Fixup(m smt.Model) {
	catC, ok := m.Eval(t.typeVar)
	if !ok {
		t.chosen = KindInt
	} else {
		t.chosen = Kind(catC.AsULong())
	}
	if t.chosen == KindInt {
		bwC, ok := m.Eval(t.bwVar)
		w := uint(1)
		if ok {
			w = uint(bwC.AsULong())
		}
		if w == 0 || w > 64 {
			w = 1
		}
		t.variants[KindInt] = &IntType{Width: w}
	}
	t.fixedUp = true
}

func (t *SymbolicType) EnforceInt() { t.enabled = uint8(maskInt) }

func (t *SymbolicType) EnforceIntOrPtrOrVectorType() {
	t.enabled &= uint8(maskInt | maskPtr | maskVector)
}

// Equal builds the equality predicate for a symbolic type against
// either another symbolic type (disjunction over shared categories)
// or a concrete type (category match and concrete-variant equality).
func (t *SymbolicType) Equal(b *smt.Builder, other Type) (smt.Bool, error) {
	if o, ok := other.(*SymbolicType); ok {
		disjuncts := make([]smt.Bool, 0, 5)
		for _, k := range []Kind{KindInt, KindFloat, KindPtr, KindArray, KindVector} {
			if !t.hasCategory(k) || !o.hasCategory(k) {
				continue
			}
			c1, err := b.Eq(t.typeVar, categoryLit(b, k))
			if err != nil {
				return smt.Bool{}, err
			}
			c2, err := b.Eq(o.typeVar, categoryLit(b, k))
			if err != nil {
				return smt.Bool{}, err
			}
			var widthEq smt.Bool = b.BoolVal(true)
			if k == KindInt {
				widthEq, err = b.Eq(t.bwVar, o.bwVar)
				if err != nil {
					return smt.Bool{}, err
				}
			}
			d, err := b.AndAll(c1, c2, widthEq)
			if err != nil {
				return smt.Bool{}, err
			}
			disjuncts = append(disjuncts, d)
		}
		return b.OrAll(disjuncts...)
	}

	k := kindOf(other)
	if !t.hasCategory(k) {
		return b.BoolVal(false), nil
	}
	catEq, err := b.Eq(t.typeVar, categoryLit(b, k))
	if err != nil {
		return smt.Bool{}, err
	}
	if k != KindInt {
		return catEq, nil
	}
	ot, ok := other.(*IntType)
	if !ok {
		return b.BoolVal(false), nil
	}
	widthEq, err := b.Eq(t.bwVar, b.BVV(int64(ot.Width), widthBits))
	if err != nil {
		return smt.Bool{}, err
	}
	return b.BoolAnd(catEq, widthEq)
}

// typeVars is implemented only by SymbolicType; Function.TypeVars uses
// it to discover which SMT variables the typing-enumeration loop must
// block on between iterations.
type typeVars interface {
	typeVars() []smt.BV
}

func (t *SymbolicType) typeVars() []smt.BV { return []smt.BV{t.typeVar, t.bwVar} }

func kindOf(t Type) Kind {
	switch t.(type) {
	case *IntType:
		return KindInt
	case FloatType:
		return KindFloat
	case PtrType:
		return KindPtr
	case ArrayType:
		return KindArray
	case VectorType:
		return KindVector
	case VoidType:
		return KindVoid
	default:
		panic("ir: kindOf on unknown type")
	}
}

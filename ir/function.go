package ir

import (
	"fmt"
	"strings"

	"github.com/borzacchiello/alivetv/smt"
)

// BasicBlock is an ordered sequence of instruction refs, identified by
// label within its owning Function. At most one of those refs may be
// a terminator, and if present it must be last.
type BasicBlock struct {
	Label string
	Instr []ValueRef
}

// Function owns every value it reaches: inputs, constants and
// instructions live in one arena (values), referenced elsewhere only
// by ValueRef index, never by pointer (§9 Design Notes: "represent
// values in an arena owned by the function; use indices").
type Function struct {
	Name string

	b *smt.Builder

	values []Value
	names  map[string]ValueRef

	Blocks []*BasicBlock

	nextID int

	// extra holds admissibility predicates that do not belong to any
	// single value, such as the "this re-used identifier's explicit
	// annotation agrees with its first occurrence" check added by the
	// parser (§4.4's value constraints cover one value in isolation;
	// this covers agreement between two references to the same one).
	extra []smt.Bool
}

// NewFunction creates an empty function with one implicit block
// labelled "" (§3: "the implicit initial block has the empty label").
func NewFunction(b *smt.Builder, name string) *Function {
	return &Function{
		Name:   name,
		b:      b,
		names:  make(map[string]ValueRef),
		Blocks: []*BasicBlock{{Label: ""}},
	}
}

// FreshID returns the next globally-unique value id, used to
// disambiguate anonymous values (§4.4).
func (f *Function) FreshID() int {
	id := f.nextID
	f.nextID++
	return id
}

// addValue interns v under name (overwriting any same-named) and
// returns its ref.
func (f *Function) addValue(name string, v Value) ValueRef {
	ref := ValueRef(len(f.values))
	f.values = append(f.values, v)
	if name != "" {
		f.names[name] = ref
	}
	return ref
}

func (f *Function) AddInput(name string, typ Type) ValueRef {
	return f.addValue(name, NewInput(name, typ))
}

func (f *Function) AddConstant(c *Constant) ValueRef {
	return f.addValue(c.Name(), c)
}

func (f *Function) AddUndef(typ Type) ValueRef {
	name := fmt.Sprintf("undef%d", f.FreshID())
	return f.addValue(name, NewUndefValue(name, typ))
}

// AddInstruction appends instr to the named block (creating it if it
// does not yet exist) and returns its ref.
func (f *Function) AddInstruction(block string, name string, instr Instruction) ValueRef {
	ref := f.addValue(name, instr)
	bb := f.block(block)
	bb.Instr = append(bb.Instr, ref)
	return ref
}

func (f *Function) block(label string) *BasicBlock {
	for _, bb := range f.Blocks {
		if bb.Label == label {
			return bb
		}
	}
	bb := &BasicBlock{Label: label}
	f.Blocks = append(f.Blocks, bb)
	return bb
}

func (f *Function) Value(ref ValueRef) Value { return f.values[ref] }

// AddTypeConstraint conjoins an extra admissibility predicate into
// TypeConstraints, for agreement checks that span more than one
// value.
func (f *Function) AddTypeConstraint(c smt.Bool) { f.extra = append(f.extra, c) }

func (f *Function) Lookup(name string) (ValueRef, bool) {
	ref, ok := f.names[name]
	return ref, ok
}

// ReturnType is the type of the value reached by the function's first
// Return instruction, or VoidType if none is present.
func (f *Function) ReturnType() Type {
	for _, bb := range f.Blocks {
		for _, ref := range bb.Instr {
			if r, ok := f.values[ref].(*Return); ok {
				return f.values[r.V].Type()
			}
		}
	}
	return VoidType{}
}

// TypeConstraints conjoins every contained value's admissibility
// predicate (§4.4).
func (f *Function) TypeConstraints() smt.Bool {
	res := f.b.BoolVal(true)
	for _, v := range f.values {
		c := v.TypeConstraints(f.b)
		var err error
		res, err = f.b.BoolAnd(res, c)
		if err != nil {
			panic(err)
		}
	}
	for _, c := range f.extra {
		var err error
		res, err = f.b.BoolAnd(res, c)
		if err != nil {
			panic(err)
		}
	}
	return res
}

// FixupTypes descends into every contained value (§4.4).
func (f *Function) FixupTypes(m smt.Model) {
	for _, v := range f.values {
		v.FixupTypes(m)
	}
}

// TypeVars collects every symbolic type's category/width SMT
// variables, for the typing-assignment enumeration loop to block on
// between iterations.
func (f *Function) TypeVars() []smt.BV {
	var res []smt.BV
	for _, v := range f.values {
		if tv, ok := v.Type().(typeVars); ok {
			res = append(res, tv.typeVars()...)
		}
	}
	return res
}

func (f *Function) String() string {
	var b strings.Builder
	for _, bb := range f.Blocks {
		if bb.Label != "" {
			fmt.Fprintf(&b, "%s:\n", bb.Label)
		}
		for _, ref := range bb.Instr {
			fmt.Fprintf(&b, "  %s\n", f.values[ref])
		}
	}
	return b.String()
}

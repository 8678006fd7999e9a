package ir

import (
	"fmt"

	"github.com/borzacchiello/alivetv/smt"
)

// StateValue is the fundamental runtime datum carried through
// symbolic execution: a bit-vector value paired with a non-poison
// predicate (§3). Its bit-width is Value's width.
type StateValue struct {
	Value     smt.BV
	NonPoison smt.Bool
}

func (sv StateValue) Size() uint { return sv.Value.Size() }

// ZExt zero-extends Value by n bits; NonPoison is unchanged.
func (sv StateValue) ZExt(b *smt.Builder, n uint) (StateValue, error) {
	v, err := b.ZExt(sv.Value, n)
	if err != nil {
		return StateValue{}, err
	}
	return StateValue{Value: v, NonPoison: sv.NonPoison}, nil
}

// Trunc narrows Value to its low w bits; NonPoison is unchanged.
func (sv StateValue) Trunc(b *smt.Builder, w uint) (StateValue, error) {
	v, err := b.Extract(sv.Value, w-1, 0)
	if err != nil {
		return StateValue{}, err
	}
	return StateValue{Value: v, NonPoison: sv.NonPoison}, nil
}

// ZExtOrTrunc pads or narrows Value to exactly w bits.
func (sv StateValue) ZExtOrTrunc(b *smt.Builder, w uint) (StateValue, error) {
	v, err := b.ZExtOrTrunc(sv.Value, w)
	if err != nil {
		return StateValue{}, err
	}
	return StateValue{Value: v, NonPoison: sv.NonPoison}, nil
}

// Concat appends other's bits below sv's; NonPoison conjoins both.
func (sv StateValue) Concat(b *smt.Builder, other StateValue) (StateValue, error) {
	v, err := b.Concat(sv.Value, other.Value)
	if err != nil {
		return StateValue{}, err
	}
	np, err := b.BoolAnd(sv.NonPoison, other.NonPoison)
	if err != nil {
		return StateValue{}, err
	}
	return StateValue{Value: v, NonPoison: np}, nil
}

// MkIf is the pointwise ITE on both components of t and e under cond.
func MkIf(b *smt.Builder, cond smt.Bool, t, e StateValue) (StateValue, error) {
	v, err := b.ITE(cond, t.Value, e.Value)
	if err != nil {
		return StateValue{}, err
	}
	np, err := b.BoolITE(cond, t.NonPoison, e.NonPoison)
	if err != nil {
		return StateValue{}, err
	}
	return StateValue{Value: v, NonPoison: np}, nil
}

// Both flattens a 1-bit StateValue to a single boolean: value AND
// non_poison. The 1-bit value is treated as boolean by comparing it
// against the literal 1.
func (sv StateValue) Both(b *smt.Builder) (smt.Bool, error) {
	if sv.Size() != 1 {
		return smt.Bool{}, fmt.Errorf("ir: Both on a %d-bit value", sv.Size())
	}
	asBool, err := b.Eq(sv.Value, b.BVV(1, 1))
	if err != nil {
		return smt.Bool{}, err
	}
	return b.BoolAnd(asBool, sv.NonPoison)
}

// Subst substitutes every (from, to) pair throughout both components.
func (sv StateValue) Subst(b *smt.Builder, from []smt.BV, to []smt.BV) (StateValue, error) {
	v, err := b.SubstBV(sv.Value, from, to)
	if err != nil {
		return StateValue{}, err
	}
	np, err := b.SubstBool(sv.NonPoison, from, to)
	if err != nil {
		return StateValue{}, err
	}
	return StateValue{Value: v, NonPoison: np}, nil
}

// returnPoint is one (domain, value) pair recorded by a Return.
type returnPoint struct {
	domain smt.Bool
	value  StateValue
}

// State is the symbolic-execution state of a single function (§3,
// §4.5): the path domain, the UB accumulator, the value environment,
// the quantifier-variable set, and the aggregated return points.
type State struct {
	b *smt.Builder

	Domain smt.Bool
	UB     smt.Bool

	env map[ValueRef]StateValue

	QuantVars []smt.BV

	returns []returnPoint
}

// NewState builds the initial state: domain and ub both true, an
// empty environment, no quantifier variables, no returns yet.
func NewState(b *smt.Builder) *State {
	return &State{
		b:      b,
		Domain: b.BoolVal(true),
		UB:     b.BoolVal(true),
		env:    make(map[ValueRef]StateValue),
	}
}

func (s *State) Get(ref ValueRef) (StateValue, bool) {
	sv, ok := s.env[ref]
	return sv, ok
}

func (s *State) Set(ref ValueRef, sv StateValue) {
	if _, exists := s.env[ref]; exists {
		panic("ir: State.Set on an already-valued ref")
	}
	s.env[ref] = sv
}

// AddUB conjoins cond into the UB accumulator.
func (s *State) AddUB(cond smt.Bool) {
	ub, err := s.b.BoolAnd(s.UB, cond)
	if err != nil {
		panic(err)
	}
	s.UB = ub
}

// AddQuantVar registers a fresh existential (e.g. from UndefValue)
// that must be universally quantified in any refinement query built
// from this state.
func (s *State) AddQuantVar(v smt.BV) { s.QuantVars = append(s.QuantVars, v) }

// RecordReturn appends a (domain, value) pair and falsifies the
// current domain, so instructions following a Return in the same
// block become unreachable (§4.4).
func (s *State) RecordReturn(value StateValue) {
	s.returns = append(s.returns, returnPoint{domain: s.Domain, value: value})
	s.Domain = s.b.BoolVal(false)
}

// Unreachable asserts ub &= false at the current path and falsifies
// the domain (§4.4).
func (s *State) Unreachable() {
	s.AddUB(s.b.BoolVal(false))
	s.Domain = s.b.BoolVal(false)
}

// Finalize folds every recorded return into a single (domain, value)
// pair: return_domain is the disjunction of every return's domain
// (false if none), and return_value/return_non_poison pick the
// valuation of the first reached return via an ITE chain (§4.5).
func (s *State) Finalize() (domain smt.Bool, value StateValue, err error) {
	if len(s.returns) == 0 {
		return s.b.BoolVal(false), StateValue{}, nil
	}
	domain = s.b.BoolVal(false)
	for _, r := range s.returns {
		domain, err = s.b.BoolOr(domain, r.domain)
		if err != nil {
			return smt.Bool{}, StateValue{}, err
		}
	}
	// Fold right-to-left so the first return in program order wins
	// the outermost (highest-priority) ITE branch.
	value = s.returns[len(s.returns)-1].value
	for i := len(s.returns) - 2; i >= 0; i-- {
		value, err = MkIf(s.b, s.returns[i].domain, s.returns[i].value, value)
		if err != nil {
			return smt.Bool{}, StateValue{}, err
		}
	}
	return domain, value, nil
}

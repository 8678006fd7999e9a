package ir

import (
	"fmt"

	"github.com/borzacchiello/alivetv/smt"
)

// Exec symbolically executes f's start block (§4.5): a straight walk
// of the implicit "" block, the only control-flow shape the core
// specifies. Each value is computed once, the first time it is
// reached as an instruction or demanded as an operand, and memoized
// in the returned state's environment. An error met while computing
// an operand is returned as Exec's error.
func Exec(b *smt.Builder, f *Function) (_ *State, err error) {
	s := NewState(b)

	type operandError struct{ err error }
	defer func() {
		if r := recover(); r != nil {
			oe, ok := r.(operandError)
			if !ok {
				panic(r)
			}
			err = oe.err
		}
	}()

	var ensure func(ValueRef) (StateValue, error)
	ensure = func(ref ValueRef) (StateValue, error) {
		if sv, ok := s.Get(ref); ok {
			return sv, nil
		}
		v := f.Value(ref)
		switch vv := v.(type) {
		case *Input:
			w, ok := vv.Type().Bits()
			if !ok {
				return StateValue{}, fmt.Errorf("ir: input %q has unresolved width", vv.Name())
			}
			sv := StateValue{Value: b.BVS(vv.Name(), w), NonPoison: b.BoolVal(true)}
			s.Set(ref, sv)
			return sv, nil
		case *Constant:
			sv, ub, err := vv.ToSMT(b)
			if err != nil {
				return StateValue{}, err
			}
			s.AddUB(ub)
			s.Set(ref, sv)
			return sv, nil
		case *UndefValue:
			w, ok := vv.Type().Bits()
			if !ok {
				return StateValue{}, fmt.Errorf("ir: undef %q has unresolved width", vv.Name())
			}
			sym := b.BVS(vv.Name(), w)
			s.AddQuantVar(sym)
			sv := StateValue{Value: sym, NonPoison: b.BoolVal(true)}
			s.Set(ref, sv)
			return sv, nil
		case Instruction:
			operand := func(opRef ValueRef) StateValue {
				sv, err := ensure(opRef)
				if err != nil {
					panic(operandError{err})
				}
				return sv
			}
			sv, err := vv.Exec(b, s, operand)
			if err != nil {
				return StateValue{}, err
			}
			if !vv.IsTerminator() {
				s.Set(ref, sv)
			}
			return sv, nil
		default:
			return StateValue{}, fmt.Errorf("ir: unknown value kind for ref %d", int(ref))
		}
	}

	start := f.block("")
	for _, ref := range start.Instr {
		if _, err := ensure(ref); err != nil {
			return nil, err
		}
	}
	return s, nil
}

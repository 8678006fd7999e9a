package ir

import "testing"

func TestStateSetPanicsOnDoubleSet(t *testing.T) {
	b := testBuilder()
	s := NewState(b)
	ref := ValueRef(0)
	s.Set(ref, StateValue{Value: b.BVV(1, 8), NonPoison: b.BoolVal(true)})
	defer func() {
		if recover() == nil {
			t.Fatalf("expected Set to panic when the ref already has a value")
		}
	}()
	s.Set(ref, StateValue{Value: b.BVV(2, 8), NonPoison: b.BoolVal(true)})
}

func TestRecordReturnFalsifiesDomain(t *testing.T) {
	b := testBuilder()
	s := NewState(b)
	s.RecordReturn(StateValue{Value: b.BVV(1, 8), NonPoison: b.BoolVal(true)})
	if s.Domain.String() != b.BoolVal(false).String() {
		t.Fatalf("RecordReturn should falsify the domain so later instructions are unreachable")
	}
}

func TestFinalizeNoReturnsYieldsFalseDomain(t *testing.T) {
	b := testBuilder()
	s := NewState(b)
	domain, _, err := s.Finalize()
	if err != nil {
		t.Fatal(err)
	}
	if domain.String() != b.BoolVal(false).String() {
		t.Fatalf("a function with no returns should never reach a value")
	}
}

func TestFinalizeSingleReturn(t *testing.T) {
	b := testBuilder()
	s := NewState(b)
	want := StateValue{Value: b.BVV(7, 8), NonPoison: b.BoolVal(true)}
	s.RecordReturn(want)
	_, value, err := s.Finalize()
	if err != nil {
		t.Fatal(err)
	}
	if value.Value.String() != want.Value.String() {
		t.Fatalf("expected the single return's value to be returned unchanged")
	}
}

func TestStateValueBothRejectsWideValue(t *testing.T) {
	b := testBuilder()
	sv := StateValue{Value: b.BVV(1, 8), NonPoison: b.BoolVal(true)}
	if _, err := sv.Both(b); err == nil {
		t.Fatalf("Both should reject a non-1-bit value")
	}
}

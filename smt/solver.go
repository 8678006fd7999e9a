package smt

import (
	"context"
)

// Result is the outcome of a satisfiability query.
type Result int

const (
	ResultError Result = iota
	ResultSat
	ResultUnsat
	ResultUnknown
)

func (r Result) String() string {
	switch r {
	case ResultSat:
		return "sat"
	case ResultUnsat:
		return "unsat"
	case ResultUnknown:
		return "unknown"
	default:
		return "error"
	}
}

// Model maps free symbol names to the constant the solver assigned
// them in a satisfying assignment.
type Model map[string]*BVConst

// Eval looks up the value the model gives e, walking through the
// symbol table by name; ok is false if e is not a bare symbol with an
// entry in the model.
func (m Model) Eval(e BV) (*BVConst, bool) {
	if m == nil || e.kind() != tySym {
		return nil, false
	}
	v, ok := m[e.n.(*bvSymNode).name]
	return v, ok
}

type solverBackend interface {
	push()
	pop()
	assert(goal Bool)
	checkSat() Result
	model() Model
	close()
}

// Solver is a facade over a concrete SMT backend maintaining a stack
// of boolean assertions. Every mutating call affects only the topmost
// scope; Push/Pop move the stack. Queries this package issues always
// wrap their own assertions in a scope via WithScope, so a forgotten
// Pop in calling code cannot leak constraints into later checks.
type Solver struct {
	b       *Builder
	backend solverBackend
	depth   int
}

// NewSolver builds a solver backed by Z3.
func NewSolver(b *Builder) *Solver {
	return &Solver{b: b, backend: newZ3Backend(b)}
}

// Close calls the backend's close hook. The Z3 backend's hook does
// nothing: it frees no native resources.
func (s *Solver) Close() { s.backend.close() }

// Push opens a new assertion scope.
func (s *Solver) Push() {
	s.backend.push()
	s.depth++
}

// Pop discards the most recently opened scope and its assertions.
func (s *Solver) Pop() {
	if s.depth == 0 {
		panic("smt: Pop without matching Push")
	}
	s.backend.pop()
	s.depth--
}

// WithScope runs fn inside a fresh Push/Pop pair, popping even if fn
// panics or returns an error, so callers never need to balance Push
// and Pop by hand.
func (s *Solver) WithScope(fn func() error) error {
	s.Push()
	defer s.Pop()
	return fn()
}

// Check asserts goal in a fresh scope and reports satisfiability. When
// the result is sat, it returns the model; the scope (and the
// assertion) is discarded before Check returns, so the model must be
// copied by the caller if it is needed afterward — it already is,
// since Model is a plain map.
func (s *Solver) Check(goal Bool) (Result, Model) {
	var r Result
	var m Model
	s.WithScope(func() error {
		s.backend.assert(goal)
		r = s.backend.checkSat()
		if r == ResultSat {
			m = s.backend.model()
		}
		return nil
	})
	return r, m
}

// Assert adds term to the current scope permanently — it survives
// until the enclosing Push is Popped, unlike Check's assert-then-
// discard. Used by the typing-assignment enumeration loop, which
// needs each iteration's Block to compound on the last.
func (s *Solver) Assert(term Bool) { s.backend.assert(term) }

// CheckSat checks satisfiability of everything asserted in the
// current scope, without adding anything.
func (s *Solver) CheckSat() (Result, Model) {
	r := s.backend.checkSat()
	var m Model
	if r == ResultSat {
		m = s.backend.model()
	}
	return r, m
}

// Block asserts the negation of m's assignment to vars, so that the
// next CheckSat in the same scope cannot return the same assignment
// again (§4.2, §4.8: enumeration excludes the previous model between
// iterations).
func (s *Solver) Block(vars []BV, m Model) {
	eqs := make([]Bool, 0, len(vars))
	for _, v := range vars {
		c, ok := m.Eval(v)
		if !ok {
			continue
		}
		eq, err := s.b.Eq(v, s.b.BVVFromConst(c))
		if err != nil {
			panic(err)
		}
		eqs = append(eqs, eq)
	}
	if len(eqs) == 0 {
		return
	}
	same, err := s.b.AndAll(eqs...)
	if err != nil {
		panic(err)
	}
	notSame, err := s.b.BoolNot(same)
	if err != nil {
		panic(err)
	}
	s.Assert(notSame)
}

// Goal is one independent query in a CheckBatch call: Assert is
// checked for satisfiability in its own scope, and OnCountermodel (if
// non-nil) is invoked with the resulting model whenever the query is
// sat.
type Goal struct {
	Name           string
	Assert         Bool
	OnCountermodel func(Model)
}

// BatchResult is the per-goal outcome of a CheckBatch call.
type BatchResult struct {
	Name   string
	Result Result
}

// CheckBatch runs every goal independently, each in its own scope, one
// at a time: goals do not see each other's assertions, but a single
// verification's own queries never run concurrently with each other
// (§5: "single-threaded"; no goroutines are spawned here). Whether
// independent verifications run in parallel, each with its own
// Builder and Solver, is a decision for the caller, not for one
// CheckBatch call; cmd/tv runs a file's transforms one at a time.
func (s *Solver) CheckBatch(ctx context.Context, goals []Goal) []BatchResult {
	results := make([]BatchResult, len(goals))
	for i, goal := range goals {
		if ctx.Err() != nil {
			results[i] = BatchResult{Name: goal.Name, Result: ResultError}
			continue
		}
		r, m := s.Check(goal.Assert)
		results[i] = BatchResult{Name: goal.Name, Result: r}
		if r == ResultSat && goal.OnCountermodel != nil {
			goal.OnCountermodel(m)
		}
	}
	return results
}

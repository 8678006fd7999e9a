// Package smt is an opaque handle to an external solver's term algebra:
// it builds bit-vector and boolean terms, quantifies over free symbols,
// substitutes subterms, and evaluates terms under a model. The layer is
// purely functional — every operation returns a new term; no node is
// mutated after construction. Sharing of identical subterms (hash
// consing) is this package's concern, not the solver backend's.
package smt

import (
	"encoding/binary"
	"fmt"
	"strings"
	"unsafe"

	"github.com/cespare/xxhash/v2"
)

const (
	tySym = iota + 1
	tyConst
	tyExtract
	tyConcat
	tyZExt
	tySExt
	tyIte

	tyNot
	tyNeg
	tyShl
	tyLShr
	tyAShr
	tyAnd
	tyOr
	tyXor
	tyAdd
	tySub
	tyMul
	tySDiv
	tyUDiv
	tySRem
	tyURem

	tyULt
	tyULe
	tyUGt
	tyUGe
	tySLt
	tySLe
	tySGt
	tySGe
	tyEq

	tyBoolConst
	tyBoolNot
	tyBoolAnd
	tyBoolOr
	tyForAll
)

// BV is an opaque bit-vector term.
type BV struct{ n bvNode }

// Bool is an opaque boolean term.
type Bool struct{ n boolNode }

func (bv BV) Size() uint { return bv.n.size() }
func (bv BV) String() string {
	if bv.n == nil {
		return "<nil>"
	}
	return bv.n.String()
}
func (bv BV) id() uintptr { return bv.n.rawPtr() }
func (bv BV) kind() int   { return bv.n.kind() }

func (bv BV) IsConst() bool { return bv.kind() == tyConst }

// ConstValue returns the constant this term folds to, if it is one.
func (bv BV) ConstValue() (*BVConst, bool) {
	if bv.kind() != tyConst {
		return nil, false
	}
	return bv.n.(*bvConstNode).val.Copy(), true
}

func (b Bool) String() string {
	if b.n == nil {
		return "<nil>"
	}
	return b.n.String()
}
func (b Bool) id() uintptr  { return b.n.rawPtr() }
func (b Bool) kind() int    { return b.n.kind() }
func (b Bool) IsConst() bool { return b.kind() == tyBoolConst }

func (b Bool) ConstValue() (bool, bool) {
	if b.kind() != tyBoolConst {
		return false, false
	}
	return b.n.(*boolConstNode).val, true
}

// node is the common shape of every term, boolean or bit-vector.
type node interface {
	String() string
	kind() int
	hash() uint64
	isLeaf() bool
	rawPtr() uintptr
	subexprs() []node
}

type bvNode interface {
	node
	size() uint
	shallowEq(bvNode) bool
}

type boolNode interface {
	node
	shallowEq(boolNode) bool
}

/* ---- leaves ---- */

type bvSymNode struct {
	name string
	sz   uint
}

func (n *bvSymNode) String() string       { return n.name }
func (n *bvSymNode) kind() int            { return tySym }
func (n *bvSymNode) size() uint           { return n.sz }
func (n *bvSymNode) isLeaf() bool         { return true }
func (n *bvSymNode) subexprs() []node     { return nil }
func (n *bvSymNode) rawPtr() uintptr      { return uintptr(unsafe.Pointer(n)) }
func (n *bvSymNode) hash() uint64 {
	h := xxhash.New()
	h.Write([]byte("sym"))
	h.Write([]byte(n.name))
	return h.Sum64()
}
func (n *bvSymNode) shallowEq(o bvNode) bool {
	on, ok := o.(*bvSymNode)
	return ok && on.name == n.name && on.sz == n.sz
}

type bvConstNode struct {
	val BVConst
}

func (n *bvConstNode) String() string   { return n.val.String() }
func (n *bvConstNode) kind() int        { return tyConst }
func (n *bvConstNode) size() uint       { return n.val.Size }
func (n *bvConstNode) isLeaf() bool     { return true }
func (n *bvConstNode) subexprs() []node { return nil }
func (n *bvConstNode) rawPtr() uintptr  { return uintptr(unsafe.Pointer(n)) }
func (n *bvConstNode) hash() uint64 {
	cpy := n.val.Copy()
	if cpy.Size > 63 {
		cpy.Truncate(63, 0)
	}
	h := xxhash.New()
	h.Write([]byte("const"))
	var raw [8]byte
	binary.BigEndian.PutUint64(raw[:], cpy.AsULong())
	h.Write(raw[:])
	return h.Sum64()
}
func (n *bvConstNode) shallowEq(o bvNode) bool {
	on, ok := o.(*bvConstNode)
	if !ok {
		return false
	}
	eq, err := n.val.Eq(&on.val)
	return err == nil && eq
}

type boolConstNode struct{ val bool }

func (n *boolConstNode) String() string {
	if n.val {
		return "true"
	}
	return "false"
}
func (n *boolConstNode) kind() int        { return tyBoolConst }
func (n *boolConstNode) isLeaf() bool     { return true }
func (n *boolConstNode) subexprs() []node { return nil }
func (n *boolConstNode) rawPtr() uintptr  { return uintptr(unsafe.Pointer(n)) }
func (n *boolConstNode) hash() uint64 {
	if n.val {
		return 1
	}
	return 0
}
func (n *boolConstNode) shallowEq(o boolNode) bool {
	on, ok := o.(*boolConstNode)
	return ok && on.val == n.val
}

/* ---- n-ary bit-vector arithmetic/bitwise ---- */

type bvNaryNode struct {
	knd      int
	sym      string
	children []BV
}

func (n *bvNaryNode) String() string {
	var b strings.Builder
	writeChild(&b, n.children[0].n)
	for _, c := range n.children[1:] {
		b.WriteString(" " + n.sym + " ")
		writeChild(&b, c.n)
	}
	return b.String()
}
func (n *bvNaryNode) kind() int  { return n.knd }
func (n *bvNaryNode) size() uint { return n.children[0].Size() }
func (n *bvNaryNode) isLeaf() bool { return false }
func (n *bvNaryNode) rawPtr() uintptr { return uintptr(unsafe.Pointer(n)) }
func (n *bvNaryNode) subexprs() []node {
	res := make([]node, len(n.children))
	for i, c := range n.children {
		res[i] = c.n
	}
	return res
}
func (n *bvNaryNode) hash() uint64 {
	h := xxhash.New()
	h.Write([]byte(n.sym))
	for _, c := range n.children {
		writeID(h, c.id())
	}
	return h.Sum64()
}
func (n *bvNaryNode) shallowEq(o bvNode) bool {
	on, ok := o.(*bvNaryNode)
	if !ok || on.knd != n.knd || len(on.children) != len(n.children) {
		return false
	}
	for i := range n.children {
		if n.children[i].id() != on.children[i].id() {
			return false
		}
	}
	return true
}

type bvUnNode struct {
	knd   int
	sym   string
	child BV
}

func (n *bvUnNode) String() string   { return n.sym + paren(n.child.n) }
func (n *bvUnNode) kind() int        { return n.knd }
func (n *bvUnNode) size() uint       { return n.child.Size() }
func (n *bvUnNode) isLeaf() bool     { return false }
func (n *bvUnNode) rawPtr() uintptr  { return uintptr(unsafe.Pointer(n)) }
func (n *bvUnNode) subexprs() []node { return []node{n.child.n} }
func (n *bvUnNode) hash() uint64 {
	h := xxhash.New()
	h.Write([]byte(n.sym))
	writeID(h, n.child.id())
	return h.Sum64()
}
func (n *bvUnNode) shallowEq(o bvNode) bool {
	on, ok := o.(*bvUnNode)
	return ok && on.knd == n.knd && on.child.id() == n.child.id()
}

type cmpNode struct {
	knd      int
	sym      string
	lhs, rhs BV
}

func (n *cmpNode) String() string   { return paren(n.lhs.n) + " " + n.sym + " " + paren(n.rhs.n) }
func (n *cmpNode) kind() int        { return n.knd }
func (n *cmpNode) isLeaf() bool     { return false }
func (n *cmpNode) rawPtr() uintptr  { return uintptr(unsafe.Pointer(n)) }
func (n *cmpNode) subexprs() []node { return []node{n.lhs.n, n.rhs.n} }
func (n *cmpNode) hash() uint64 {
	h := xxhash.New()
	h.Write([]byte(n.sym))
	writeID(h, n.lhs.id())
	writeID(h, n.rhs.id())
	return h.Sum64()
}
func (n *cmpNode) shallowEq(o boolNode) bool {
	on, ok := o.(*cmpNode)
	return ok && on.knd == n.knd && on.lhs.id() == n.lhs.id() && on.rhs.id() == n.rhs.id()
}

type extractNode struct {
	child     BV
	high, low uint
}

func (n *extractNode) String() string { return fmt.Sprintf("%s[%d:%d]", paren(n.child.n), n.high, n.low) }
func (n *extractNode) kind() int        { return tyExtract }
func (n *extractNode) size() uint       { return n.high - n.low + 1 }
func (n *extractNode) isLeaf() bool     { return false }
func (n *extractNode) rawPtr() uintptr  { return uintptr(unsafe.Pointer(n)) }
func (n *extractNode) subexprs() []node { return []node{n.child.n} }
func (n *extractNode) hash() uint64 {
	h := xxhash.New()
	h.Write([]byte("extract"))
	writeID(h, n.child.id())
	writeUint(h, n.high)
	writeUint(h, n.low)
	return h.Sum64()
}
func (n *extractNode) shallowEq(o bvNode) bool {
	on, ok := o.(*extractNode)
	return ok && on.child.id() == n.child.id() && on.high == n.high && on.low == n.low
}

type concatNode struct{ children []BV }

func (n *concatNode) String() string {
	var b strings.Builder
	writeChild(&b, n.children[0].n)
	for _, c := range n.children[1:] {
		b.WriteString(" .. ")
		writeChild(&b, c.n)
	}
	return b.String()
}
func (n *concatNode) kind() int { return tyConcat }
func (n *concatNode) size() uint {
	var sz uint
	for _, c := range n.children {
		sz += c.Size()
	}
	return sz
}
func (n *concatNode) isLeaf() bool { return false }
func (n *concatNode) rawPtr() uintptr { return uintptr(unsafe.Pointer(n)) }
func (n *concatNode) subexprs() []node {
	res := make([]node, len(n.children))
	for i, c := range n.children {
		res[i] = c.n
	}
	return res
}
func (n *concatNode) hash() uint64 {
	h := xxhash.New()
	h.Write([]byte("concat"))
	for _, c := range n.children {
		writeID(h, c.id())
	}
	return h.Sum64()
}
func (n *concatNode) shallowEq(o bvNode) bool {
	on, ok := o.(*concatNode)
	if !ok || len(on.children) != len(n.children) {
		return false
	}
	for i := range n.children {
		if n.children[i].id() != on.children[i].id() {
			return false
		}
	}
	return true
}

type extendNode struct {
	signed bool
	n      uint
	child  BV
}

func (e *extendNode) String() string {
	name := "zext"
	if e.signed {
		name = "sext"
	}
	return fmt.Sprintf("%s(%s, %d)", name, e.child.String(), e.n)
}
func (e *extendNode) kind() int {
	if e.signed {
		return tySExt
	}
	return tyZExt
}
func (e *extendNode) size() uint       { return e.child.Size() + e.n }
func (e *extendNode) isLeaf() bool     { return false }
func (e *extendNode) rawPtr() uintptr  { return uintptr(unsafe.Pointer(e)) }
func (e *extendNode) subexprs() []node { return []node{e.child.n} }
func (e *extendNode) hash() uint64 {
	h := xxhash.New()
	h.Write([]byte(fmt.Sprintf("ext%v", e.signed)))
	writeID(h, e.child.id())
	writeUint(h, e.n)
	return h.Sum64()
}
func (e *extendNode) shallowEq(o bvNode) bool {
	on, ok := o.(*extendNode)
	return ok && on.signed == e.signed && on.n == e.n && on.child.id() == e.child.id()
}

type iteNode struct {
	cond           Bool
	iftrue, iffalse BV
}

func (n *iteNode) String() string {
	return fmt.Sprintf("ite(%s, %s, %s)", n.cond, n.iftrue, n.iffalse)
}
func (n *iteNode) kind() int        { return tyIte }
func (n *iteNode) size() uint       { return n.iftrue.Size() }
func (n *iteNode) isLeaf() bool     { return false }
func (n *iteNode) rawPtr() uintptr  { return uintptr(unsafe.Pointer(n)) }
func (n *iteNode) subexprs() []node { return []node{n.cond.n, n.iftrue.n, n.iffalse.n} }
func (n *iteNode) hash() uint64 {
	h := xxhash.New()
	h.Write([]byte("ite"))
	writeID(h, n.cond.id())
	writeID(h, n.iftrue.id())
	writeID(h, n.iffalse.id())
	return h.Sum64()
}
func (n *iteNode) shallowEq(o bvNode) bool {
	on, ok := o.(*iteNode)
	return ok && on.cond.id() == n.cond.id() && on.iftrue.id() == n.iftrue.id() && on.iffalse.id() == n.iffalse.id()
}

/* ---- boolean connectives ---- */

type boolUnNode struct {
	child Bool
}

func (n *boolUnNode) String() string   { return "!" + paren(n.child.n) }
func (n *boolUnNode) kind() int        { return tyBoolNot }
func (n *boolUnNode) isLeaf() bool     { return false }
func (n *boolUnNode) rawPtr() uintptr  { return uintptr(unsafe.Pointer(n)) }
func (n *boolUnNode) subexprs() []node { return []node{n.child.n} }
func (n *boolUnNode) hash() uint64 {
	h := xxhash.New()
	h.Write([]byte("boolnot"))
	writeID(h, n.child.id())
	return h.Sum64()
}
func (n *boolUnNode) shallowEq(o boolNode) bool {
	on, ok := o.(*boolUnNode)
	return ok && on.child.id() == n.child.id()
}

type boolNaryNode struct {
	knd      int
	sym      string
	children []Bool
}

func (n *boolNaryNode) String() string {
	var b strings.Builder
	writeChild(&b, n.children[0].n)
	for _, c := range n.children[1:] {
		b.WriteString(" " + n.sym + " ")
		writeChild(&b, c.n)
	}
	return b.String()
}
func (n *boolNaryNode) kind() int        { return n.knd }
func (n *boolNaryNode) isLeaf() bool     { return false }
func (n *boolNaryNode) rawPtr() uintptr  { return uintptr(unsafe.Pointer(n)) }
func (n *boolNaryNode) subexprs() []node {
	res := make([]node, len(n.children))
	for i, c := range n.children {
		res[i] = c.n
	}
	return res
}
func (n *boolNaryNode) hash() uint64 {
	h := xxhash.New()
	h.Write([]byte(n.sym))
	for _, c := range n.children {
		writeID(h, c.id())
	}
	return h.Sum64()
}
func (n *boolNaryNode) shallowEq(o boolNode) bool {
	on, ok := o.(*boolNaryNode)
	if !ok || on.knd != n.knd || len(on.children) != len(n.children) {
		return false
	}
	for i := range n.children {
		if n.children[i].id() != on.children[i].id() {
			return false
		}
	}
	return true
}

// forAllNode universally quantifies body over bound (free symbols that
// must not escape as inputs of the enclosing refinement query).
type forAllNode struct {
	bound []BV
	body  Bool
}

func (n *forAllNode) String() string {
	names := make([]string, len(n.bound))
	for i, b := range n.bound {
		names[i] = b.String()
	}
	return fmt.Sprintf("forall %s . %s", strings.Join(names, ", "), n.body)
}
func (n *forAllNode) kind() int       { return tyForAll }
func (n *forAllNode) isLeaf() bool    { return false }
func (n *forAllNode) rawPtr() uintptr { return uintptr(unsafe.Pointer(n)) }
func (n *forAllNode) subexprs() []node {
	res := make([]node, 0, len(n.bound)+1)
	for _, b := range n.bound {
		res = append(res, b.n)
	}
	return append(res, n.body.n)
}
func (n *forAllNode) hash() uint64 {
	h := xxhash.New()
	h.Write([]byte("forall"))
	for _, b := range n.bound {
		writeID(h, b.id())
	}
	writeID(h, n.body.id())
	return h.Sum64()
}
func (n *forAllNode) shallowEq(o boolNode) bool {
	on, ok := o.(*forAllNode)
	if !ok || len(on.bound) != len(n.bound) || on.body.id() != n.body.id() {
		return false
	}
	for i := range n.bound {
		if n.bound[i].id() != on.bound[i].id() {
			return false
		}
	}
	return true
}

/* ---- helpers ---- */

func paren(n node) string {
	if n.isLeaf() {
		return n.String()
	}
	return "(" + n.String() + ")"
}

func writeChild(b *strings.Builder, n node) { b.WriteString(paren(n)) }

func writeID(h *xxhash.Digest, id uintptr) {
	var raw [8]byte
	binary.BigEndian.PutUint64(raw[:], uint64(id))
	h.Write(raw[:])
}

func writeUint(h *xxhash.Digest, v uint) {
	var raw [8]byte
	binary.BigEndian.PutUint64(raw[:], uint64(v))
	h.Write(raw[:])
}

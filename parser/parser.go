package parser

import (
	"fmt"

	"github.com/borzacchiello/alivetv/ir"
	"github.com/borzacchiello/alivetv/smt"
	"github.com/borzacchiello/alivetv/tv"
)

// ParseError reports a line-tagged syntax error (§6: "the parser
// contract returns an explicit error value carrying a line number, it
// does not throw").
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string { return fmt.Sprintf("line %d: %s", e.Line, e.Msg) }

// defaultLiteralWidth is used for an integer literal operand that
// carries no explicit type annotation: its Type stays symbolic (fixed
// up like any other value), but the SMT constant itself needs a
// concrete width to exist as a term. 64 is the widest width the type
// system admits, so it never truncates a literal's value.
const defaultLiteralWidth = 64

// parser holds per-parse state: the lexer, one token of lookahead, the
// smt.Builder instructions build their terms against, and (reset per
// function) the name table mapping surface identifiers to ValueRefs
// in the function currently being parsed. Everything lives on this
// struct rather than as package-level globals (§9 Design Notes).
type parser struct {
	lex     *lexer
	tok     token
	primed  bool
	b       *smt.Builder
	fn      *ir.Function
	idents  map[string]ir.ValueRef
	nameSeq int
}

// Parse reads src (one or more `Name:/Pre:/src/=>/tgt` records) and
// returns the transforms it describes.
func Parse(src string, b *smt.Builder) ([]*tv.Transform, error) {
	p := &parser{lex: newLexer(src), b: b}
	if err := p.advance(); err != nil {
		return nil, err
	}

	var out []*tv.Transform
	for p.tok.kind != tokEOF {
		t, err := p.parseTransform()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (p *parser) advance() error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *parser) errf(format string, args ...interface{}) error {
	return &ParseError{Line: p.tok.line, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) expect(k tokenKind) error {
	if p.tok.kind != k {
		return p.errf("expected %s, got %s", k, p.tok.kind)
	}
	return p.advance()
}

func (p *parser) parseTransform() (*tv.Transform, error) {
	t := &tv.Transform{}

	if p.tok.kind == tokName {
		t.Name = p.lex.restOfLine()
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if p.tok.kind == tokPre {
		t.Pre = p.lex.restOfLine()
		if err := p.advance(); err != nil {
			return nil, err
		}
	}

	src, err := p.parseFunction("src")
	if err != nil {
		return nil, err
	}
	t.Src = src

	if err := p.expect(tokArrow); err != nil {
		return nil, err
	}

	tgt, err := p.parseFunction("tgt")
	if err != nil {
		return nil, err
	}
	t.Tgt = tgt

	return t, nil
}

// parseFunction parses a sequence of labels and statements up to the
// next "=>" or end of input, starting in the implicit "" block.
func (p *parser) parseFunction(name string) (*ir.Function, error) {
	p.fn = ir.NewFunction(p.b, name)
	p.idents = make(map[string]ir.ValueRef)
	p.nameSeq = 0

	block := ""
	for {
		switch p.tok.kind {
		case tokLabel:
			block = p.tok.text
			if err := p.advance(); err != nil {
				return nil, err
			}
		case tokIdent:
			instrName := p.tok.text
			if len(instrName) > 0 && instrName[0] == '%' {
				instrName = instrName[1:]
			}
			if err := p.advance(); err != nil {
				return nil, err
			}
			if err := p.expect(tokEquals); err != nil {
				return nil, err
			}
			instr, err := p.parseInstr(instrName)
			if err != nil {
				return nil, err
			}
			ref := p.fn.AddInstruction(block, instrName, instr)
			p.idents[instrName] = ref
		case tokRet:
			if err := p.advance(); err != nil {
				return nil, err
			}
			instr, err := p.parseReturn()
			if err != nil {
				return nil, err
			}
			p.fn.AddInstruction(block, "ret", instr)
		case tokUnreach:
			if err := p.advance(); err != nil {
				return nil, err
			}
			p.fn.AddInstruction(block, "unreachable", ir.NewUnreachable())
		default:
			return p.fn, nil
		}
	}
}

func (p *parser) parseInstr(name string) (ir.Instruction, error) {
	if p.tok.kind != tokOp {
		return nil, p.errf("expected an instruction, got %s", p.tok.kind)
	}
	opWord := p.tok.text
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p.parseBinOp(name, opWord)
}

func binOpKindOf(word string) ir.BinOpKind {
	switch word {
	case "add":
		return ir.OpAdd
	case "sub":
		return ir.OpSub
	case "mul":
		return ir.OpMul
	case "sdiv":
		return ir.OpSDiv
	case "udiv":
		return ir.OpUDiv
	case "shl":
		return ir.OpShl
	case "lshr":
		return ir.OpLShr
	default:
		return ir.OpAShr
	}
}

// flagsAllowed restricts which flag tokens are grammatical after a given
// operator, matching parse_binop_flags in the original grammar: add/
// sub/mul/shl admit nsw/nuw, sdiv/udiv/lshr/ashr admit exact.
func flagsAllowed(word string) (nswNuw, exact bool) {
	switch word {
	case "add", "sub", "mul", "shl":
		return true, false
	case "sdiv", "udiv", "lshr", "ashr":
		return false, true
	default:
		return false, false
	}
}

func (p *parser) parseFlags(opWord string) (ir.Flag, error) {
	nswNuw, exact := flagsAllowed(opWord)
	var flags ir.Flag
	for {
		switch p.tok.kind {
		case tokNSW:
			if !nswNuw {
				return 0, p.errf("%s does not admit nsw", opWord)
			}
			flags |= ir.FlagNSW
		case tokNUW:
			if !nswNuw {
				return 0, p.errf("%s does not admit nuw", opWord)
			}
			flags |= ir.FlagNUW
		case tokExact:
			if !exact {
				return 0, p.errf("%s does not admit exact", opWord)
			}
			flags |= ir.FlagExact
		default:
			return flags, nil
		}
		if err := p.advance(); err != nil {
			return 0, err
		}
	}
}

// parseType parses an optional "i<n>" annotation. When absent it
// builds one fresh symbolic type shared by both operands and the
// instruction's own result type, named after the instruction so its
// SMT variables ("<name>_type"/"<name>_bw") are deterministic.
func (p *parser) parseType(instrName string) (ir.Type, error) {
	if p.tok.kind == tokIntType {
		w := uint(p.tok.num)
		if err := p.advance(); err != nil {
			return nil, err
		}
		return ir.NewIntType(w), nil
	}
	return ir.NewSymbolicType(p.b, instrName, allCategories), nil
}

const allCategories = 1 | 2 | 4 | 8 | 16 // maskInt|maskFloat|maskPtr|maskArray|maskVector

func (p *parser) parseOperand(typ ir.Type) (ir.ValueRef, error) {
	switch p.tok.kind {
	case tokNum:
		n := p.tok.num
		if err := p.advance(); err != nil {
			return 0, err
		}
		w, ok := typ.Bits()
		if !ok {
			w = defaultLiteralWidth
		}
		name := fmt.Sprintf("const%d", p.freshSeq())
		lit := smt.MakeBVConst(n, w)
		c := ir.NewLiteralConstant(name, typ, lit)
		return p.fn.AddConstant(c), nil
	case tokIdent:
		text := p.tok.text
		if len(text) == 0 || text[0] != '%' {
			return 0, p.errf("expected an operand, got %s", p.tok.kind)
		}
		id := text[1:]
		if err := p.advance(); err != nil {
			return 0, err
		}
		if ref, ok := p.idents[id]; ok {
			// %r already has an identity from an earlier statement;
			// typ here is this occurrence's own annotation (e.g. the
			// "i8" in a later "ret i8 %r") and need not be the same
			// Type value, only an equal one. Fold that agreement into
			// the function's type constraints rather than silently
			// dropping typ: a genuinely conflicting annotation then
			// makes the typing-assignment search unsatisfiable and is
			// reported as KindTypeUnsat, instead of being ignored.
			eq, err := typ.Equal(p.b, p.fn.Value(ref).Type())
			if err != nil {
				return 0, err
			}
			p.fn.AddTypeConstraint(eq)
			return ref, nil
		}
		ref := p.fn.AddInput(id, typ)
		p.idents[id] = ref
		return ref, nil
	default:
		return 0, p.errf("expected an operand, got %s", p.tok.kind)
	}
}

func (p *parser) freshSeq() int {
	n := p.nameSeq
	p.nameSeq++
	return n
}

func (p *parser) parseBinOp(name, opWord string) (ir.Instruction, error) {
	flags, err := p.parseFlags(opWord)
	if err != nil {
		return nil, err
	}
	typ, err := p.parseType(name)
	if err != nil {
		return nil, err
	}
	a, err := p.parseOperand(typ)
	if err != nil {
		return nil, err
	}
	if err := p.expect(tokComma); err != nil {
		return nil, err
	}
	c, err := p.parseOperand(typ)
	if err != nil {
		return nil, err
	}
	return ir.NewBinOp(name, typ, binOpKindOf(opWord), flags, a, c), nil
}

func (p *parser) parseReturn() (ir.Instruction, error) {
	typ, err := p.parseType("ret" + fmt.Sprint(p.freshSeq()))
	if err != nil {
		return nil, err
	}
	v, err := p.parseOperand(typ)
	if err != nil {
		return nil, err
	}
	return ir.NewReturn(v), nil
}

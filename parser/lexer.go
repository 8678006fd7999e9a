// Package parser reads the line-oriented transform syntax (§6) into
// tv.Transform values: `Name: ... / Pre: ... / src-function / => /
// tgt-function`, grounded on the token/grammar shape of
// tools/alive_parser.cpp but built as an explicit-state recursive
// descent parser instead of a global-tokenizer/yylex pair.
package parser

import (
	"fmt"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNum
	tokLabel  // "name:"
	tokArrow  // "=>"
	tokEquals // "="
	tokComma
	tokIntType // "i32"
	tokName    // keyword "Name"
	tokPre     // keyword "Pre"
	tokRet     // keyword "ret"
	tokUnreach // keyword "unreachable"
	tokNSW
	tokNUW
	tokExact
	tokOp // add/sub/mul/sdiv/udiv/shl/lshr/ashr
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "EOF"
	case tokIdent:
		return "identifier"
	case tokNum:
		return "number"
	case tokLabel:
		return "label"
	case tokArrow:
		return "=>"
	case tokEquals:
		return "="
	case tokComma:
		return ","
	case tokIntType:
		return "integer type"
	case tokName:
		return "Name"
	case tokPre:
		return "Pre"
	case tokRet:
		return "ret"
	case tokUnreach:
		return "unreachable"
	case tokNSW:
		return "nsw"
	case tokNUW:
		return "nuw"
	case tokExact:
		return "exact"
	case tokOp:
		return "binop"
	default:
		return "?"
	}
}

type token struct {
	kind tokenKind
	text string // identifier/op text; empty for Name/Pre, whose remainder the parser reads itself
	num  int64
	line int
}

var binOpWords = map[string]bool{
	"add": true, "sub": true, "mul": true, "sdiv": true, "udiv": true,
	"shl": true, "lshr": true, "ashr": true,
}

var flagWords = map[string]tokenKind{
	"nsw": tokNSW, "nuw": tokNUW, "exact": tokExact,
}

// lexer scans the input into tokens on demand, tracking line numbers
// for diagnostics. "Name:" and "Pre:" lines are lexed specially since
// their payload is a freeform rest-of-line string, not further tokens.
type lexer struct {
	src  []rune
	pos  int
	line int
}

func newLexer(src string) *lexer {
	return &lexer{src: []rune(src), line: 1}
}

func (l *lexer) peekRune() (rune, bool) {
	if l.pos >= len(l.src) {
		return 0, false
	}
	return l.src[l.pos], true
}

func (l *lexer) advance() rune {
	r := l.src[l.pos]
	l.pos++
	if r == '\n' {
		l.line++
	}
	return r
}

func (l *lexer) skipSpaceAndComments() {
	for {
		r, ok := l.peekRune()
		if !ok {
			return
		}
		if unicode.IsSpace(r) {
			l.advance()
			continue
		}
		if r == ';' { // line comment
			for {
				r, ok := l.peekRune()
				if !ok || r == '\n' {
					break
				}
				l.advance()
			}
			continue
		}
		return
	}
}

// restOfLine consumes and returns everything up to (not including) the
// next newline, with leading/trailing space trimmed.
func (l *lexer) restOfLine() string {
	start := l.pos
	for {
		r, ok := l.peekRune()
		if !ok || r == '\n' {
			break
		}
		l.advance()
	}
	return strings.TrimSpace(string(l.src[start:l.pos]))
}

func isIdentRune(r rune, first bool) bool {
	if unicode.IsLetter(r) || r == '_' || r == '.' {
		return true
	}
	if !first && unicode.IsDigit(r) {
		return true
	}
	return false
}

// next returns the next token. Callers that need "Name:"/"Pre:"
// lines handled specially should peek for tokName/tokPre and then call
// lexer.restOfLine directly, since the payload is not itself tokenized.
func (l *lexer) next() (token, error) {
	l.skipSpaceAndComments()
	line := l.line

	r, ok := l.peekRune()
	if !ok {
		return token{kind: tokEOF, line: line}, nil
	}

	switch r {
	case '=':
		l.advance()
		if r2, ok := l.peekRune(); ok && r2 == '>' {
			l.advance()
			return token{kind: tokArrow, line: line}, nil
		}
		return token{kind: tokEquals, line: line}, nil
	case ',':
		l.advance()
		return token{kind: tokComma, line: line}, nil
	case '%':
		l.advance()
		start := l.pos
		for {
			r, ok := l.peekRune()
			if !ok || !isIdentRune(r, false) {
				break
			}
			l.advance()
		}
		if l.pos == start {
			return token{}, &ParseError{Line: line, Msg: "expected an identifier after '%'"}
		}
		return token{kind: tokIdent, text: "%" + string(l.src[start:l.pos]), line: line}, nil
	}

	if unicode.IsDigit(r) || (r == '-' && l.peekAhead(1) != 0 && unicode.IsDigit(l.peekAhead(1))) {
		start := l.pos
		if r == '-' {
			l.advance()
		}
		for {
			r, ok := l.peekRune()
			if !ok || !unicode.IsDigit(r) {
				break
			}
			l.advance()
		}
		var n int64
		_, err := fmt.Sscanf(string(l.src[start:l.pos]), "%d", &n)
		if err != nil {
			return token{}, &ParseError{Line: line, Msg: fmt.Sprintf("malformed integer literal %q", string(l.src[start:l.pos]))}
		}
		return token{kind: tokNum, num: n, line: line}, nil
	}

	if unicode.IsLetter(r) || r == '_' {
		start := l.pos
		for {
			r, ok := l.peekRune()
			if !ok || !isIdentRune(r, false) {
				break
			}
			l.advance()
		}
		word := string(l.src[start:l.pos])

		// "Name" and "Pre" are keywords even though the grammar always
		// follows them with ':' like a label; check them before the
		// generic label rule so their payload is read via restOfLine
		// rather than tokenized as a block label.
		switch word {
		case "Name":
			l.skipLabelColon()
			return token{kind: tokName, line: line}, nil
		case "Pre":
			l.skipLabelColon()
			return token{kind: tokPre, line: line}, nil
		case "ret":
			return token{kind: tokRet, line: line}, nil
		case "unreachable":
			return token{kind: tokUnreach, line: line}, nil
		}

		// a label is "<word>:" with no intervening space
		if r2, ok := l.peekRune(); ok && r2 == ':' {
			l.advance()
			return token{kind: tokLabel, text: word, line: line}, nil
		}

		if fk, ok := flagWords[word]; ok {
			return token{kind: fk, line: line}, nil
		}
		if binOpWords[word] {
			return token{kind: tokOp, text: word, line: line}, nil
		}
		if len(word) >= 2 && word[0] == 'i' && isAllDigits(word[1:]) {
			var w int64
			fmt.Sscanf(word[1:], "%d", &w)
			return token{kind: tokIntType, num: w, line: line}, nil
		}
		return token{kind: tokIdent, text: word, line: line}, nil
	}

	return token{}, &ParseError{Line: line, Msg: fmt.Sprintf("unexpected character %q", r)}
}

// skipLabelColon consumes the ':' immediately following "Name"/"Pre",
// if present, before the caller reads the rest of the line as payload.
func (l *lexer) skipLabelColon() {
	if r, ok := l.peekRune(); ok && r == ':' {
		l.advance()
	}
}

func (l *lexer) peekAhead(n int) rune {
	if l.pos+n >= len(l.src) {
		return 0
	}
	return l.src[l.pos+n]
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

package graph

import (
	"fmt"
	"strings"
)

type tokenType int

const (
	tEOF tokenType = iota
	tName
	tVar // $name
	tInt
	tFloat
	tString
	tPunct // one of { } ( ) [ ] : ! = @ ...
	tBoolTrue
	tBoolFalse
	tNull
)

type token struct {
	typ tokenType
	val string
}

// lexer tokenizes a GraphQL document. It is string-literal aware and
// backslash-escape aware, mirroring the scan the security query validator
// performs independently for depth counting.
type lexer struct {
	src []rune
	pos int
}

func newLexer(src string) *lexer {
	return &lexer{src: []rune(src)}
}

func (l *lexer) peekRune() (rune, bool) {
	if l.pos >= len(l.src) {
		return 0, false
	}
	return l.src[l.pos], true
}

func isNameStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isNameCont(r rune) bool {
	return isNameStart(r) || (r >= '0' && r <= '9')
}

func (l *lexer) skipIgnored() {
	for l.pos < len(l.src) {
		r := l.src[l.pos]
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == ',' || r == 0xFEFF:
			l.pos++
		case r == '#':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
		default:
			return
		}
	}
}

func (l *lexer) next() (token, error) {
	l.skipIgnored()
	r, ok := l.peekRune()
	if !ok {
		return token{typ: tEOF}, nil
	}

	switch {
	case r == '$':
		l.pos++
		start := l.pos
		for l.pos < len(l.src) && isNameCont(l.src[l.pos]) {
			l.pos++
		}
		if l.pos == start {
			return token{}, fmt.Errorf("graph: expected variable name after $")
		}
		return token{typ: tVar, val: string(l.src[start:l.pos])}, nil

	case isNameStart(r):
		start := l.pos
		for l.pos < len(l.src) && isNameCont(l.src[l.pos]) {
			l.pos++
		}
		name := string(l.src[start:l.pos])
		switch name {
		case "true":
			return token{typ: tBoolTrue, val: name}, nil
		case "false":
			return token{typ: tBoolFalse, val: name}, nil
		case "null":
			return token{typ: tNull, val: name}, nil
		}
		return token{typ: tName, val: name}, nil

	case r == '"':
		return l.lexString()

	case r == '-' || (r >= '0' && r <= '9'):
		return l.lexNumber()

	case r == '.':
		if l.pos+2 < len(l.src) && l.src[l.pos+1] == '.' && l.src[l.pos+2] == '.' {
			l.pos += 3
			return token{typ: tPunct, val: "..."}, nil
		}
		return token{}, fmt.Errorf("graph: unexpected character '.'")

	case strings.ContainsRune("{}()[]:!=@", r):
		l.pos++
		return token{typ: tPunct, val: string(r)}, nil

	default:
		return token{}, fmt.Errorf("graph: unexpected character %q", r)
	}
}

func (l *lexer) lexString() (token, error) {
	// block string """..."""
	if l.pos+2 < len(l.src) && l.src[l.pos+1] == '"' && l.src[l.pos+2] == '"' {
		l.pos += 3
		start := l.pos
		for l.pos+2 < len(l.src) && !(l.src[l.pos] == '"' && l.src[l.pos+1] == '"' && l.src[l.pos+2] == '"') {
			l.pos++
		}
		val := string(l.src[start:l.pos])
		l.pos += 3
		return token{typ: tString, val: val}, nil
	}

	l.pos++ // consume opening quote
	var b strings.Builder
	for l.pos < len(l.src) {
		r := l.src[l.pos]
		if r == '\\' {
			l.pos++
			if l.pos >= len(l.src) {
				return token{}, fmt.Errorf("graph: unterminated escape in string")
			}
			esc := l.src[l.pos]
			switch esc {
			case '"', '\\', '/':
				b.WriteRune(esc)
			case 'n':
				b.WriteRune('\n')
			case 't':
				b.WriteRune('\t')
			case 'r':
				b.WriteRune('\r')
			default:
				b.WriteRune(esc)
			}
			l.pos++
			continue
		}
		if r == '"' {
			l.pos++
			return token{typ: tString, val: b.String()}, nil
		}
		b.WriteRune(r)
		l.pos++
	}
	return token{}, fmt.Errorf("graph: unterminated string literal")
}

func (l *lexer) lexNumber() (token, error) {
	start := l.pos
	if l.src[l.pos] == '-' {
		l.pos++
	}
	for l.pos < len(l.src) && l.src[l.pos] >= '0' && l.src[l.pos] <= '9' {
		l.pos++
	}
	isFloat := false
	if l.pos < len(l.src) && l.src[l.pos] == '.' {
		isFloat = true
		l.pos++
		for l.pos < len(l.src) && l.src[l.pos] >= '0' && l.src[l.pos] <= '9' {
			l.pos++
		}
	}
	if l.pos < len(l.src) && (l.src[l.pos] == 'e' || l.src[l.pos] == 'E') {
		isFloat = true
		l.pos++
		if l.pos < len(l.src) && (l.src[l.pos] == '+' || l.src[l.pos] == '-') {
			l.pos++
		}
		for l.pos < len(l.src) && l.src[l.pos] >= '0' && l.src[l.pos] <= '9' {
			l.pos++
		}
	}
	val := string(l.src[start:l.pos])
	if isFloat {
		return token{typ: tFloat, val: val}, nil
	}
	return token{typ: tInt, val: val}, nil
}

// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package lexer implements a single-pass, no-backtracking lexer for the CBot
// language.
//
// Design principles:
//   - Single-pass, no backtracking; operators are matched longest-first
//   - // line comments and /* */ block comments are discarded
//   - Numeric, character and string literals are decoded while lexing
//   - The lexer never fails: malformed input becomes an ILLEGAL token that
//     carries a diagnostic code and the exact source span
package lexer

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/colobot/colobot-sub025/cbot/diag"
	"github.com/colobot/colobot-sub025/cbot/token"
)

// Lexer holds the state for a single-pass tokenization run.
type Lexer struct {
	input []byte

	// pos is the index into input of the next byte to be loaded into ch.
	// After advance(), ch == input[pos-1] and pos points one past it.
	pos  int
	line int // 1-based current line number
	col  int // 1-based current column number

	ch byte // current character; 0 when past end
}

// New creates a new Lexer for the given input string.
func New(input string) *Lexer {
	l := &Lexer{
		input: []byte(input),
		line:  1,
		col:   0,
	}
	l.advance() // prime l.ch with the first byte
	return l
}

// Tokenize is a convenience wrapper returning every token of source,
// including the final EOF.
func Tokenize(source string) []token.Token {
	return New(source).Tokenize()
}

// advance moves to the next byte in the input, updating line/column tracking.
// When the end of input is reached, ch is set to 0.
func (l *Lexer) advance() {
	if l.ch == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	if l.pos >= len(l.input) {
		l.ch = 0
		l.pos = len(l.input) + 1
		return
	}
	l.ch = l.input[l.pos]
	l.pos++
}

// peek returns the byte after the current character without consuming it.
// Returns 0 if at or past end.
func (l *Lexer) peek() byte {
	if l.pos >= len(l.input) {
		return 0
	}
	return l.input[l.pos]
}

// currentPos returns a token.Position capturing the lexer's state right now.
func (l *Lexer) currentPos() token.Position {
	return token.Position{
		Line:   l.line,
		Column: l.col,
		Offset: l.pos - 1,
	}
}

// finish stamps the end position and source text on a token whose first
// byte was at start.
func (l *Lexer) finish(tok token.Token) token.Token {
	tok.End = l.currentPos()
	if tok.Literal == "" && tok.End.Offset > tok.Pos.Offset {
		tok.Literal = string(l.input[tok.Pos.Offset:tok.End.Offset])
	}
	return tok
}

// illegal builds an ILLEGAL token carrying the diagnostic code.
func (l *Lexer) illegal(code diag.Code, pos token.Position) token.Token {
	return l.finish(token.Token{Type: token.ILLEGAL, Pos: pos, Err: int(code)})
}

// skipSpaceAndComments consumes whitespace and comments. It reports false
// and the start position when a block comment is unterminated.
func (l *Lexer) skipSpaceAndComments() (token.Position, bool) {
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\n':
			l.advance()
		case l.ch == '/' && l.peek() == '/':
			for l.ch != '\n' && l.ch != 0 {
				l.advance()
			}
		case l.ch == '/' && l.peek() == '*':
			start := l.currentPos()
			l.advance() // '/'
			l.advance() // '*'
			for {
				if l.ch == 0 {
					return start, false
				}
				if l.ch == '*' && l.peek() == '/' {
					l.advance()
					l.advance()
					break
				}
				l.advance()
			}
		default:
			return token.Position{}, true
		}
	}
}

// NextToken scans and returns the next token from the input.
// After EOF is reached, subsequent calls continue returning EOF tokens.
func (l *Lexer) NextToken() token.Token {
	if start, ok := l.skipSpaceAndComments(); !ok {
		return l.illegal(diag.ErrUnterminatedComment, start)
	}
	pos := l.currentPos()
	ch := l.ch

	if ch == 0 {
		return token.Token{Type: token.EOF, Pos: pos, End: pos}
	}
	switch {
	case isIdentStart(ch):
		return l.readIdent(pos)
	case isDigit(ch):
		return l.readNumber(pos)
	case ch == '"':
		return l.readString(pos)
	case ch == '\'':
		return l.readChar(pos)
	}
	l.advance() // consume ch; from here on, l.ch is the character AFTER ch

	typ, ok := l.readOperator(ch)
	if !ok {
		return l.illegal(diag.ErrUnexpected, pos)
	}
	return l.finish(token.Token{Type: typ, Literal: typ.String(), Pos: pos})
}

// Tokenize returns all tokens (including the final EOF) produced by repeated
// calls to NextToken.
func (l *Lexer) Tokenize() []token.Token {
	var toks []token.Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			break
		}
	}
	return toks
}

// readOperator matches the longest operator starting with the already
// consumed byte ch.
func (l *Lexer) readOperator(ch byte) (token.Type, bool) {
	// accept consumes l.ch when it equals c.
	accept := func(c byte) bool {
		if l.ch == c {
			l.advance()
			return true
		}
		return false
	}
	switch ch {
	case '+':
		switch {
		case accept('+'):
			return token.INC, true
		case accept('='):
			return token.PLUSEQ, true
		}
		return token.PLUS, true
	case '-':
		switch {
		case accept('-'):
			return token.DEC, true
		case accept('='):
			return token.MINUSEQ, true
		}
		return token.MINUS, true
	case '*':
		if accept('=') {
			return token.STAREQ, true
		}
		return token.STAR, true
	case '/':
		if accept('=') {
			return token.SLASHEQ, true
		}
		return token.SLASH, true
	case '%':
		if accept('=') {
			return token.PERCENTEQ, true
		}
		return token.PERCENT, true
	case '&':
		switch {
		case accept('&'):
			return token.AND, true
		case accept('='):
			return token.AMPEQ, true
		}
		return token.AMP, true
	case '|':
		switch {
		case accept('|'):
			return token.OR, true
		case accept('='):
			return token.PIPEEQ, true
		}
		return token.PIPE, true
	case '^':
		if accept('=') {
			return token.CARETEQ, true
		}
		return token.CARET, true
	case '!':
		if accept('=') {
			return token.NEQ, true
		}
		return token.BANG, true
	case '=':
		if accept('=') {
			return token.EQ, true
		}
		return token.ASSIGN, true
	case '<':
		switch {
		case accept('<'):
			if accept('=') {
				return token.LSHIFTEQ, true
			}
			return token.LSHIFT, true
		case accept('='):
			return token.LTE, true
		}
		return token.LT, true
	case '>':
		switch {
		case accept('>'):
			if accept('>') {
				if accept('=') {
					return token.URSHIFTEQ, true
				}
				return token.URSHIFT, true
			}
			if accept('=') {
				return token.RSHIFTEQ, true
			}
			return token.RSHIFT, true
		case accept('='):
			return token.GTE, true
		}
		return token.GT, true
	case ':':
		if accept(':') {
			return token.COLONCOLON, true
		}
		return token.COLON, true
	case '~':
		return token.TILDE, true
	case '?':
		return token.QUESTION, true
	case '.':
		return token.DOT, true
	case '(':
		return token.LPAREN, true
	case ')':
		return token.RPAREN, true
	case '[':
		return token.LBRACKET, true
	case ']':
		return token.RBRACKET, true
	case '{':
		return token.LBRACE, true
	case '}':
		return token.RBRACE, true
	case ',':
		return token.COMMA, true
	case ';':
		return token.SEMICOLON, true
	}
	return token.ILLEGAL, false
}

// ---------------------------------------------------------------------------
// Literal readers. Each starts with l.ch on the first byte of the literal.
// ---------------------------------------------------------------------------

func (l *Lexer) readIdent(pos token.Position) token.Token {
	for isIdentContinue(l.ch) {
		l.advance()
	}
	tok := l.finish(token.Token{Pos: pos})
	tok.Type = token.LookupIdent(tok.Literal)
	return tok
}

// readNumber parses an integer or float literal.
//
//   - "0x..." / "0X..."  →  INT (hexadecimal)
//   - "0b..." / "0B..."  →  INT (binary)
//   - digits "." digits  →  FLOAT (with optional exponent)
//   - digits "e" digits  →  FLOAT
//   - digits             →  INT
func (l *Lexer) readNumber(pos token.Position) token.Token {
	base := 10
	if l.ch == '0' && (l.peek() == 'x' || l.peek() == 'X' || l.peek() == 'b' || l.peek() == 'B') {
		l.advance()
		if l.ch == 'x' || l.ch == 'X' {
			base = 16
		} else {
			base = 2
		}
		l.advance()
		digits := 0
		for isHexDigit(l.ch) {
			l.advance()
			digits++
		}
		return l.finishInt(pos, base, digits)
	}

	isFloat := false
	for isDigit(l.ch) {
		l.advance()
	}
	if l.ch == '.' && isDigit(l.peek()) {
		isFloat = true
		l.advance()
		for isDigit(l.ch) {
			l.advance()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		isFloat = true
		l.advance()
		if l.ch == '+' || l.ch == '-' {
			l.advance()
		}
		if !isDigit(l.ch) {
			return l.badNumber(pos)
		}
		for isDigit(l.ch) {
			l.advance()
		}
	}
	if isIdentContinue(l.ch) {
		return l.badNumber(pos)
	}
	if !isFloat {
		return l.finishInt(pos, 10, 1)
	}
	tok := l.finish(token.Token{Type: token.FLOAT, Pos: pos})
	f, err := strconv.ParseFloat(tok.Literal, 64)
	if err != nil && !math.IsInf(f, 0) {
		return l.illegal(diag.ErrBadNumber, pos)
	}
	tok.Float = f
	return tok
}

func (l *Lexer) finishInt(pos token.Position, base, digits int) token.Token {
	if digits == 0 || isIdentContinue(l.ch) {
		return l.badNumber(pos)
	}
	tok := l.finish(token.Token{Type: token.INT, Pos: pos})
	text := tok.Literal
	if base != 10 {
		text = text[2:]
	}
	n, err := strconv.ParseUint(text, base, 64)
	if err != nil || (base == 10 && n > math.MaxInt64) {
		return l.illegal(diag.ErrBadNumber, pos)
	}
	tok.Int = int64(n)
	return tok
}

// badNumber swallows the rest of a malformed literal so lexing resumes at a
// sensible boundary.
func (l *Lexer) badNumber(pos token.Position) token.Token {
	for isIdentContinue(l.ch) || l.ch == '.' {
		l.advance()
	}
	return l.illegal(diag.ErrBadNumber, pos)
}

// readString reads a double-quoted string literal and decodes its escapes.
func (l *Lexer) readString(pos token.Position) token.Token {
	l.advance() // opening quote
	var sb strings.Builder
	for {
		switch l.ch {
		case 0, '\n':
			return l.illegal(diag.ErrBadString, pos)
		case '"':
			l.advance()
			tok := l.finish(token.Token{Type: token.STRING, Pos: pos})
			tok.Str = sb.String()
			return tok
		case '\\':
			r, ok := l.readEscape()
			if !ok {
				l.skipTo('"')
				return l.illegal(diag.ErrBadString, pos)
			}
			sb.WriteRune(r)
		default:
			r, ok := l.readRune()
			if !ok {
				return l.illegal(diag.ErrBadString, pos)
			}
			sb.WriteRune(r)
		}
	}
}

// readChar reads a single-quoted character literal holding exactly one code
// point.
func (l *Lexer) readChar(pos token.Position) token.Token {
	l.advance() // opening quote
	var (
		r  rune
		ok bool
	)
	switch l.ch {
	case 0, '\n', '\'':
		ok = false
	case '\\':
		r, ok = l.readEscape()
	default:
		r, ok = l.readRune()
	}
	if !ok || l.ch != '\'' {
		l.skipTo('\'')
		return l.illegal(diag.ErrBadChar, pos)
	}
	l.advance() // closing quote
	tok := l.finish(token.Token{Type: token.CHAR, Pos: pos})
	tok.Int = int64(r)
	tok.Str = string(r)
	return tok
}

// readRune consumes one UTF-8 encoded code point.
func (l *Lexer) readRune() (rune, bool) {
	r, size := utf8.DecodeRune(l.input[l.pos-1:])
	if r == utf8.RuneError && size <= 1 {
		l.advance()
		return 0, false
	}
	for i := 0; i < size; i++ {
		l.advance()
	}
	return r, true
}

// readEscape decodes a backslash escape; l.ch is the backslash.
func (l *Lexer) readEscape() (rune, bool) {
	l.advance() // '\'
	c := l.ch
	l.advance()
	switch c {
	case 'n':
		return '\n', true
	case 't':
		return '\t', true
	case 'r':
		return '\r', true
	case '0':
		return 0, true
	case '\\', '"', '\'':
		return rune(c), true
	case 'x':
		return l.readHexRune(2)
	case 'u':
		return l.readHexRune(4)
	}
	return 0, false
}

func (l *Lexer) readHexRune(n int) (rune, bool) {
	var r rune
	for i := 0; i < n; i++ {
		if !isHexDigit(l.ch) {
			return 0, false
		}
		r = r*16 + rune(hexValue(l.ch))
		l.advance()
	}
	return r, true
}

// skipTo advances past the next occurrence of c on the current line.
func (l *Lexer) skipTo(c byte) {
	for l.ch != 0 && l.ch != '\n' {
		if l.ch == c {
			l.advance()
			return
		}
		l.advance()
	}
}

// ---------------------------------------------------------------------------
// Character classification helpers
// ---------------------------------------------------------------------------

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isHexDigit(ch byte) bool {
	return (ch >= '0' && ch <= '9') ||
		(ch >= 'a' && ch <= 'f') ||
		(ch >= 'A' && ch <= 'F')
}

func hexValue(ch byte) int {
	switch {
	case ch >= '0' && ch <= '9':
		return int(ch - '0')
	case ch >= 'a' && ch <= 'f':
		return int(ch-'a') + 10
	default:
		return int(ch-'A') + 10
	}
}

func isIdentStart(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isIdentContinue(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}

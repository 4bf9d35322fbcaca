// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package lexer

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/colobot/colobot-sub025/cbot/diag"
	"github.com/colobot/colobot-sub025/cbot/token"
)

// lexemes returns the literal text of every token before EOF.
func lexemes(src string) []string {
	var out []string
	for _, tok := range Tokenize(src) {
		if tok.Type == token.EOF {
			break
		}
		out = append(out, tok.Literal)
	}
	return out
}

func types(src string) []token.Type {
	var out []token.Type
	for _, tok := range Tokenize(src) {
		out = append(out, tok.Type)
	}
	return out
}

func TestDeclarationStatement(t *testing.T) {
	src := "int var = 3 * ( pos.y + x );"
	toks := Tokenize(src)

	want := []struct {
		lit string
		cat token.Category
	}{
		{"int", token.CatKeyword},
		{"var", token.CatIdentifier},
		{"=", token.CatOperator},
		{"3", token.CatNumber},
		{"*", token.CatOperator},
		{"(", token.CatOperator},
		{"pos", token.CatIdentifier},
		{".", token.CatOperator},
		{"y", token.CatIdentifier},
		{"+", token.CatOperator},
		{"x", token.CatIdentifier},
		{")", token.CatOperator},
		{";", token.CatOperator},
	}
	if len(toks) != len(want)+1 {
		t.Fatalf("got %d tokens, want %d + EOF", len(toks), len(want))
	}
	for i, w := range want {
		if toks[i].Literal != w.lit {
			t.Errorf("token %d: literal %q, want %q", i, toks[i].Literal, w.lit)
		}
		if got := toks[i].Type.Category(); got != w.cat {
			t.Errorf("token %d (%q): category %v, want %v", i, w.lit, got, w.cat)
		}
	}
	if toks[len(want)].Type != token.EOF {
		t.Errorf("last token = %v, want EOF", toks[len(want)].Type)
	}
	if toks[3].Int != 3 {
		t.Errorf("literal 3 decoded as %d", toks[3].Int)
	}
}

func TestCommentsDiscarded(t *testing.T) {
	got := lexemes("/*comment*/ int /*comment*/x = 5; //comment")
	want := []string{"int", "x", "=", "5", ";"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("tokens mismatch (-want +got):\n%s", diff)
	}
}

func TestLongestMatchOperators(t *testing.T) {
	got := types(">>>= >>= >> > >= << <<= <= :: : ++ += + -- -= - && &= & || |= | == = != !")
	want := []token.Type{
		token.URSHIFTEQ, token.RSHIFTEQ, token.RSHIFT, token.GT, token.GTE,
		token.LSHIFT, token.LSHIFTEQ, token.LTE, token.COLONCOLON, token.COLON,
		token.INC, token.PLUSEQ, token.PLUS, token.DEC, token.MINUSEQ, token.MINUS,
		token.AND, token.AMPEQ, token.AMP, token.OR, token.PIPEEQ, token.PIPE,
		token.EQ, token.ASSIGN, token.NEQ, token.BANG, token.EOF,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("operator types mismatch (-want +got):\n%s", diff)
	}
}

func TestNoSpaceOperators(t *testing.T) {
	got := lexemes("a+++b;c>>>=2")
	want := []string{"a", "++", "+", "b", ";", "c", ">>>=", "2"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("tokens mismatch (-want +got):\n%s", diff)
	}
}

func TestKeywords(t *testing.T) {
	cases := []struct {
		src  string
		want token.Type
	}{
		{"if", token.IF},
		{"extern", token.EXTERN},
		{"class", token.CLASS},
		{"extends", token.EXTENDS},
		{"public", token.PUBLIC},
		{"string", token.STRINGTYPE},
		{"float", token.FLOATTYPE},
		{"repeat", token.REPEAT},
		{"nan", token.NAN},
		{"null", token.NULL},
		{"object", token.IDENT},
		{"var", token.IDENT},
		{"If", token.IDENT},
	}
	for _, tc := range cases {
		toks := Tokenize(tc.src)
		if toks[0].Type != tc.want {
			t.Errorf("%q: type %v, want %v", tc.src, toks[0].Type, tc.want)
		}
	}
}

func TestNumbers(t *testing.T) {
	cases := []struct {
		src   string
		typ   token.Type
		ival  int64
		fval  float64
		isErr bool
	}{
		{"42", token.INT, 42, 0, false},
		{"0x2A", token.INT, 42, 0, false},
		{"0b101", token.INT, 5, 0, false},
		{"3.5", token.FLOAT, 0, 3.5, false},
		{"1e3", token.FLOAT, 0, 1000, false},
		{"2.5e-1", token.FLOAT, 0, 0.25, false},
		{"0x", token.ILLEGAL, 0, 0, true},
		{"12abc", token.ILLEGAL, 0, 0, true},
		{"1e", token.ILLEGAL, 0, 0, true},
		{"0b102", token.ILLEGAL, 0, 0, true},
		{"99999999999999999999", token.ILLEGAL, 0, 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.src, func(t *testing.T) {
			tok := Tokenize(tc.src)[0]
			if tok.Type != tc.typ {
				t.Fatalf("type %v, want %v", tok.Type, tc.typ)
			}
			if tc.isErr {
				if diag.Code(tok.Err) != diag.ErrBadNumber {
					t.Errorf("err %d, want ErrBadNumber", tok.Err)
				}
				if tok.Literal != tc.src {
					t.Errorf("illegal literal %q, want whole input %q", tok.Literal, tc.src)
				}
				return
			}
			if tok.Int != tc.ival || tok.Float != tc.fval {
				t.Errorf("decoded (%d, %g), want (%d, %g)", tok.Int, tok.Float, tc.ival, tc.fval)
			}
		})
	}
}

func TestStringsAndChars(t *testing.T) {
	toks := Tokenize(`"a\tb\n\"q\"" 'x' '\n' 'é' "héllo"`)
	if toks[0].Type != token.STRING || toks[0].Str != "a\tb\n\"q\"" {
		t.Errorf("string decoded as %q (%v)", toks[0].Str, toks[0].Type)
	}
	if toks[1].Type != token.CHAR || toks[1].Int != 'x' {
		t.Errorf("char 'x' decoded as %d (%v)", toks[1].Int, toks[1].Type)
	}
	if toks[2].Int != '\n' {
		t.Errorf("char '\\n' decoded as %d", toks[2].Int)
	}
	if toks[3].Int != 0xe9 {
		t.Errorf("char '\\u00e9' decoded as %d", toks[3].Int)
	}
	if toks[4].Str != "héllo" {
		t.Errorf("utf-8 string decoded as %q", toks[4].Str)
	}
}

func TestMalformedLiterals(t *testing.T) {
	cases := []struct {
		src  string
		code diag.Code
	}{
		{`"open`, diag.ErrBadString},
		{`"bad \q escape"`, diag.ErrBadString},
		{`''`, diag.ErrBadChar},
		{`'ab'`, diag.ErrBadChar},
		{`/* never closed`, diag.ErrUnterminatedComment},
		{`#`, diag.ErrUnexpected},
	}
	for _, tc := range cases {
		tok := Tokenize(tc.src)[0]
		if tok.Type != token.ILLEGAL {
			t.Errorf("%q: type %v, want ILLEGAL", tc.src, tok.Type)
			continue
		}
		if diag.Code(tok.Err) != tc.code {
			t.Errorf("%q: code %d, want %d", tc.src, tok.Err, tc.code)
		}
	}
}

func TestIllegalDoesNotStopLexing(t *testing.T) {
	got := types("a # b")
	want := []token.Type{token.IDENT, token.ILLEGAL, token.IDENT, token.EOF}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("types mismatch (-want +got):\n%s", diff)
	}
}

func TestPositions(t *testing.T) {
	toks := Tokenize("int a;\n  a = 10;")
	cases := []struct {
		idx                 int
		line, col, off, end int
	}{
		{0, 1, 1, 0, 3},
		{1, 1, 5, 4, 5},
		{3, 2, 3, 9, 10},
		{5, 2, 7, 13, 15},
	}
	for _, tc := range cases {
		tok := toks[tc.idx]
		if tok.Pos.Line != tc.line || tok.Pos.Column != tc.col || tok.Pos.Offset != tc.off || tok.End.Offset != tc.end {
			t.Errorf("token %d (%q): pos %d:%d [%d,%d), want %d:%d [%d,%d)",
				tc.idx, tok.Literal, tok.Pos.Line, tok.Pos.Column, tok.Pos.Offset, tok.End.Offset,
				tc.line, tc.col, tc.off, tc.end)
		}
	}
	eof := toks[len(toks)-1]
	if eof.Type != token.EOF || eof.Pos.Offset != len("int a;\n  a = 10;") {
		t.Errorf("EOF at offset %d", eof.Pos.Offset)
	}
}

func TestEOFRepeats(t *testing.T) {
	l := New("x")
	l.NextToken()
	for i := 0; i < 3; i++ {
		if tok := l.NextToken(); tok.Type != token.EOF {
			t.Fatalf("call %d after end returned %v", i, tok.Type)
		}
	}
}

// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package token defines the lexical token types for the CBot language.
//
// Design principles:
//   - C-like surface: braces, semicolons, class/extends, typed declarations
//   - Operators are matched longest-first (">>>=" before ">>=" before ">>" before ">")
//   - Every token carries its exact source span so diagnostics can highlight it
//   - Malformed input never aborts lexing; it becomes an ILLEGAL token
package token

import "fmt"

// Token represents a lexical token.
type Token struct {
	Type    Type
	Literal string   // exact source text of the token
	Pos     Position // first byte of the token
	End     Position // one past the last byte of the token

	// Decoded literal payloads, filled for INT, FLOAT, CHAR and STRING.
	Int   int64
	Float float64
	Str   string

	// Err is the diagnostic code of an ILLEGAL token, zero otherwise.
	Err int
}

// Position tracks source location.
type Position struct {
	Line   int
	Column int
	Offset int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Type is the set of lexical token types.
type Type int

const (
	// Special tokens
	ILLEGAL Type = iota
	EOF

	// Literals
	IDENT  // main, x, pos
	INT    // 42, 0x2a, 0b101010
	FLOAT  // 3.14, 1e5
	CHAR   // 'a'
	STRING // "hello"

	// Operators
	operatorStart
	PLUS      // +
	MINUS     // -
	STAR      // *
	SLASH     // /
	PERCENT   // %
	TILDE     // ~
	AMP       // &
	PIPE      // |
	CARET     // ^
	BANG      // !
	DOT       // .
	LSHIFT    // <<
	RSHIFT    // >>
	URSHIFT   // >>>
	INC       // ++
	DEC       // --
	QUESTION  // ?
	EQ        // ==
	NEQ       // !=
	LT        // <
	GT        // >
	LTE       // <=
	GTE       // >=
	ASSIGN    // =
	PLUSEQ    // +=
	MINUSEQ   // -=
	STAREQ    // *=
	SLASHEQ   // /=
	PERCENTEQ // %=
	AMPEQ     // &=
	PIPEEQ    // |=
	CARETEQ   // ^=
	LSHIFTEQ  // <<=
	RSHIFTEQ  // >>=
	URSHIFTEQ // >>>=
	AND       // &&
	OR        // ||

	// Delimiters
	LPAREN     // (
	RPAREN     // )
	LBRACKET   // [
	RBRACKET   // ]
	LBRACE     // {
	RBRACE     // }
	COMMA      // ,
	SEMICOLON  // ;
	COLON      // :
	COLONCOLON // ::
	operatorEnd

	// Keywords
	keywordStart
	IF
	ELSE
	WHILE
	DO
	FOR
	BREAK
	CONTINUE
	SWITCH
	CASE
	DEFAULT
	TRY
	CATCH
	THROW
	FINALLY
	RETURN
	REPEAT
	CLASS
	EXTENDS
	PUBLIC
	PRIVATE
	PROTECTED
	STATIC
	FINAL
	EXTERN
	SYNCHRONIZED
	NEW
	THIS
	SUPER
	SIZEOF
	INSTANCEOF

	// Type names
	VOID
	BOOL
	BOOLEAN
	BYTE
	SHORT
	CHARTYPE
	INTTYPE
	LONG
	FLOATTYPE
	DOUBLE
	STRINGTYPE

	// Constant keywords
	TRUE
	FALSE
	NULL
	NAN
	keywordEnd
)

var tokenNames = [...]string{
	ILLEGAL: "ILLEGAL",
	EOF:     "EOF",

	IDENT:  "IDENT",
	INT:    "INT",
	FLOAT:  "FLOAT",
	CHAR:   "CHAR",
	STRING: "STRING",

	PLUS:      "+",
	MINUS:     "-",
	STAR:      "*",
	SLASH:     "/",
	PERCENT:   "%",
	TILDE:     "~",
	AMP:       "&",
	PIPE:      "|",
	CARET:     "^",
	BANG:      "!",
	DOT:       ".",
	LSHIFT:    "<<",
	RSHIFT:    ">>",
	URSHIFT:   ">>>",
	INC:       "++",
	DEC:       "--",
	QUESTION:  "?",
	EQ:        "==",
	NEQ:       "!=",
	LT:        "<",
	GT:        ">",
	LTE:       "<=",
	GTE:       ">=",
	ASSIGN:    "=",
	PLUSEQ:    "+=",
	MINUSEQ:   "-=",
	STAREQ:    "*=",
	SLASHEQ:   "/=",
	PERCENTEQ: "%=",
	AMPEQ:     "&=",
	PIPEEQ:    "|=",
	CARETEQ:   "^=",
	LSHIFTEQ:  "<<=",
	RSHIFTEQ:  ">>=",
	URSHIFTEQ: ">>>=",
	AND:       "&&",
	OR:        "||",

	LPAREN:     "(",
	RPAREN:     ")",
	LBRACKET:   "[",
	RBRACKET:   "]",
	LBRACE:     "{",
	RBRACE:     "}",
	COMMA:      ",",
	SEMICOLON:  ";",
	COLON:      ":",
	COLONCOLON: "::",

	IF:           "if",
	ELSE:         "else",
	WHILE:        "while",
	DO:           "do",
	FOR:          "for",
	BREAK:        "break",
	CONTINUE:     "continue",
	SWITCH:       "switch",
	CASE:         "case",
	DEFAULT:      "default",
	TRY:          "try",
	CATCH:        "catch",
	THROW:        "throw",
	FINALLY:      "finally",
	RETURN:       "return",
	REPEAT:       "repeat",
	CLASS:        "class",
	EXTENDS:      "extends",
	PUBLIC:       "public",
	PRIVATE:      "private",
	PROTECTED:    "protected",
	STATIC:       "static",
	FINAL:        "final",
	EXTERN:       "extern",
	SYNCHRONIZED: "synchronized",
	NEW:          "new",
	THIS:         "this",
	SUPER:        "super",
	SIZEOF:       "sizeof",
	INSTANCEOF:   "instanceof",

	VOID:       "void",
	BOOL:       "bool",
	BOOLEAN:    "boolean",
	BYTE:       "byte",
	SHORT:      "short",
	CHARTYPE:   "char",
	INTTYPE:    "int",
	LONG:       "long",
	FLOATTYPE:  "float",
	DOUBLE:     "double",
	STRINGTYPE: "string",

	TRUE:  "true",
	FALSE: "false",
	NULL:  "null",
	NAN:   "nan",
}

// String returns the string form of a token type.
func (t Type) String() string {
	if int(t) < len(tokenNames) && tokenNames[t] != "" {
		return tokenNames[t]
	}
	return fmt.Sprintf("token(%d)", t)
}

// IsKeyword returns true if the token is a keyword.
func (t Type) IsKeyword() bool {
	return t > keywordStart && t < keywordEnd
}

// IsOperator returns true if the token is an operator or delimiter.
func (t Type) IsOperator() bool {
	return t > operatorStart && t < operatorEnd
}

// IsLiteral returns true if the token is a literal value.
func (t Type) IsLiteral() bool {
	return t >= INT && t <= STRING
}

// IsTypeName returns true for the keywords naming a built-in type.
func (t Type) IsTypeName() bool {
	return t >= VOID && t <= STRINGTYPE
}

// IsAssign returns true for "=" and every compound assignment operator.
func (t Type) IsAssign() bool {
	return t >= ASSIGN && t <= URSHIFTEQ
}

// Category is the coarse classification reported to hosts (syntax
// highlighting, diagnostics).
type Category int

const (
	CatEnd Category = iota
	CatKeyword
	CatOperator
	CatIdentifier
	CatNumber
	CatString
	CatError
)

var categoryNames = [...]string{
	CatEnd:        "end",
	CatKeyword:    "keyword",
	CatOperator:   "operator",
	CatIdentifier: "identifier",
	CatNumber:     "number",
	CatString:     "string",
	CatError:      "error",
}

func (c Category) String() string {
	if int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return fmt.Sprintf("category(%d)", c)
}

// Category returns the coarse category of the token type.
func (t Type) Category() Category {
	switch {
	case t == EOF:
		return CatEnd
	case t == ILLEGAL:
		return CatError
	case t == IDENT:
		return CatIdentifier
	case t == INT || t == FLOAT:
		return CatNumber
	case t == CHAR || t == STRING:
		return CatString
	case t.IsOperator():
		return CatOperator
	default:
		return CatKeyword
	}
}

// keywords maps keyword strings to token types.
var keywords map[string]Type

func init() {
	keywords = make(map[string]Type)
	for i := keywordStart + 1; i < keywordEnd; i++ {
		keywords[tokenNames[i]] = i
	}
}

// LookupIdent checks if an identifier is a keyword.
func LookupIdent(ident string) Type {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package diag defines the coded diagnostics shared by the CBot compiler and
// interpreter.
//
// A diagnostic is a (code, start, end) triple: the code identifies the error,
// start and end are byte offsets into the source the host highlights. Codes
// are grouped by class:
//
//	5000-5999  compile-time errors (lexical, syntax, semantic)
//	6000-6999  runtime errors raised while executing a program
//	7000-7999  saved-state errors raised while restoring a program
//
// Codes at or above UserBase are free for scripts ("throw 10000;") and
// native functions.
package diag

import (
	"fmt"
	"sort"
	"strings"
)

// Code identifies a diagnostic.
type Code int

const (
	// Lexical and syntax errors.
	ErrOpenPar Code = 5000 + iota
	ErrClosePar
	ErrNotBoolean
	ErrUndefVar
	ErrBadLeft
	ErrNoTerminator
	ErrCaseOutside
	ErrNoEnd
	ErrCloseBlock
	ErrElseWithoutIf
	ErrOpenBlock
	ErrBadType
	ErrBadOperands
	ErrBadParam
	ErrUndefFunc
	ErrUndefClass
	ErrUndefMember
	ErrAmbiguousCall
	ErrRedefVar
	ErrRedefFunc
	ErrRedefClass
	ErrNoType
	ErrNoVar
	ErrNoFunc
	ErrBadNumber
	ErrBadString
	ErrBadChar
	ErrUnterminatedComment
	ErrUnexpected
	ErrBreakOutside
	ErrContinueOutside
	ErrNoReturn
	ErrBadReturn
	ErrBadLabel
	ErrPrivate
	ErrBadIndex
	ErrNoExpression
	ErrCyclicClass
	ErrThisOutside
	ErrDuplicateCase
	ErrNotClass
	ErrNoMain
	ErrBadNew
	ErrNotStatic
)

const (
	// Runtime errors.
	ErrZeroDiv Code = 6000 + iota
	ErrNotInit
	ErrBadThrow
	ErrNoRetVal
	ErrNoRun
	ErrUndefRuntime
	ErrNull
	ErrNan
	ErrOutOfBounds
	ErrStackOverflow
	ErrNative
	ErrArrayLimit
	ErrBadCast
)

const (
	// Saved-state errors.
	ErrStateCorrupt Code = 7000 + iota
	ErrStateMismatch
	ErrStateVersion
)

// UserBase is the first code available to scripts and host functions.
const UserBase Code = 10000

var messages = map[Code]string{
	ErrOpenPar:             "missing opening parenthesis",
	ErrClosePar:            "missing closing parenthesis",
	ErrNotBoolean:          "the expression must return a boolean value",
	ErrUndefVar:            "undefined variable",
	ErrBadLeft:             "assignment impossible",
	ErrNoTerminator:        "semicolon terminator missing",
	ErrCaseOutside:         "instruction \"case\" outside a block \"switch\"",
	ErrNoEnd:               "instructions after the final closing brace",
	ErrCloseBlock:          "end of block missing",
	ErrElseWithoutIf:       "instruction \"else\" without corresponding \"if\"",
	ErrOpenBlock:           "opening brace missing",
	ErrBadType:             "wrong type for the assignment",
	ErrBadOperands:         "incompatible operand types",
	ErrBadParam:            "wrong type or number of parameters",
	ErrUndefFunc:           "unknown function",
	ErrUndefClass:          "unknown class",
	ErrUndefMember:         "unknown field or method",
	ErrAmbiguousCall:       "ambiguous call to overloaded function",
	ErrRedefVar:            "variable redeclared",
	ErrRedefFunc:           "function already exists",
	ErrRedefClass:          "class already exists",
	ErrNoType:              "type declaration missing",
	ErrNoVar:               "variable name missing",
	ErrNoFunc:              "function name missing",
	ErrBadNumber:           "malformed number",
	ErrBadString:           "malformed string literal",
	ErrBadChar:             "malformed character",
	ErrUnterminatedComment: "unterminated comment",
	ErrUnexpected:          "unexpected token",
	ErrBreakOutside:        "\"break\" outside a loop",
	ErrContinueOutside:     "\"continue\" outside a loop",
	ErrNoReturn:            "missing \"return\" in a function returning a value",
	ErrBadReturn:           "wrong return value type",
	ErrBadLabel:            "unknown label",
	ErrPrivate:             "private member",
	ErrBadIndex:            "wrong index or indexed value is not an array",
	ErrNoExpression:        "expression expected",
	ErrCyclicClass:         "class inherits from itself",
	ErrThisOutside:         "\"this\" used outside of a method",
	ErrDuplicateCase:       "duplicate case value",
	ErrNotClass:            "not a class",
	ErrNoMain:              "no function to start",
	ErrBadNew:              "\"new\" needs a class name",
	ErrNotStatic:           "non-static member used without an instance",

	ErrZeroDiv:       "dividing by zero",
	ErrNotInit:       "variable not initialized",
	ErrBadThrow:      "negative value rejected by \"throw\"",
	ErrNoRetVal:      "the function returned no value",
	ErrNoRun:         "no function running",
	ErrUndefRuntime:  "calling an unknown function",
	ErrNull:          "null pointer dereference",
	ErrNan:           "calculation with a NAN",
	ErrOutOfBounds:   "access beyond array limit",
	ErrStackOverflow: "stack overflow",
	ErrNative:        "host function failed",
	ErrArrayLimit:    "array grown beyond its declared size",
	ErrBadCast:       "value has the wrong class",

	ErrStateCorrupt:  "saved state is corrupt",
	ErrStateMismatch: "saved state does not match the compiled program",
	ErrStateVersion:  "saved state has an unsupported version",
}

// String returns the human-readable message of the code.
func (c Code) String() string {
	if msg, ok := messages[c]; ok {
		return msg
	}
	if c >= UserBase {
		return fmt.Sprintf("exception %d", int(c))
	}
	return fmt.Sprintf("error %d", int(c))
}

// IsCompile reports whether the code is a compile-time error.
func (c Code) IsCompile() bool { return c >= 5000 && c < 6000 }

// IsRuntime reports whether the code is raised while a program runs,
// including script-thrown and host-defined codes.
func (c Code) IsRuntime() bool {
	return (c >= 6000 && c < 7000) || c >= UserBase || (c > 0 && c < 5000)
}

// IsState reports whether the code describes a saved-state failure.
func (c Code) IsState() bool { return c >= 7000 && c < 8000 }

// Error is a coded diagnostic tied to a source range.
type Error struct {
	Code   Code
	Start  int // byte offset of the first highlighted byte
	End    int // byte offset one past the last highlighted byte
	Line   int
	Column int
	Detail string
}

// New creates an Error without position information.
func New(code Code) *Error {
	return &Error{Code: code, Start: -1, End: -1}
}

// At creates an Error covering [start, end).
func At(code Code, start, end, line, column int) *Error {
	return &Error{Code: code, Start: start, End: end, Line: line, Column: column}
}

// Withf returns a copy of e carrying an extra detail message.
func (e *Error) Withf(format string, args ...interface{}) *Error {
	cpy := *e
	cpy.Detail = fmt.Sprintf(format, args...)
	return &cpy
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Line > 0 {
		fmt.Fprintf(&b, "%d:%d: ", e.Line, e.Column)
	}
	b.WriteString(e.Code.String())
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	fmt.Fprintf(&b, " (%d)", int(e.Code))
	return b.String()
}

// Is makes errors.Is match two diagnostics with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// List is an ordered set of diagnostics.
type List []*Error

func (l List) Error() string {
	switch len(l) {
	case 0:
		return "no errors"
	case 1:
		return l[0].Error()
	}
	return fmt.Sprintf("%s (and %d more errors)", l[0], len(l)-1)
}

// Sort orders the list by source position.
func (l List) Sort() {
	sort.SliceStable(l, func(i, j int) bool { return l[i].Start < l[j].Start })
}

// First returns the earliest diagnostic, or nil.
func (l List) First() *Error {
	if len(l) == 0 {
		return nil
	}
	return l[0]
}

// Err returns nil for an empty list and the list otherwise.
func (l List) Err() error {
	if len(l) == 0 {
		return nil
	}
	return l
}

// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package types defines the CBot language type system.
//
// Design principles:
//   - Scalars (bool, integers, floats, char, string) are value types
//   - Arrays and class instances are reference types with an explicit null
//   - Numeric types form a single promotion lattice:
//     bool < byte < short < char < int < long < float < double
//   - Classes use single inheritance; compatibility walks the ancestor chain
package types

import (
	"fmt"
	"strings"
)

// Kind categorizes the fundamental shape of a type.
type Kind int

const (
	KindVoid Kind = iota
	KindBool
	KindByte
	KindShort
	KindChar
	KindInt
	KindLong
	KindFloat
	KindDouble
	KindString
	KindNull    // type of the "null" literal
	KindArray   // T[] or T[N]
	KindClass   // a class instance itself
	KindPointer // a nullable reference to a class instance
)

var kindNames = [...]string{
	KindVoid:    "void",
	KindBool:    "bool",
	KindByte:    "byte",
	KindShort:   "short",
	KindChar:    "char",
	KindInt:     "int",
	KindLong:    "long",
	KindFloat:   "float",
	KindDouble:  "double",
	KindString:  "string",
	KindNull:    "null",
	KindArray:   "array",
	KindClass:   "class",
	KindPointer: "pointer",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// IsNumeric reports whether the kind belongs to the promotion lattice.
func (k Kind) IsNumeric() bool { return k >= KindBool && k <= KindDouble }

// IsIntegral reports whether the kind holds whole numbers.
func (k Kind) IsIntegral() bool { return k >= KindByte && k <= KindLong }

// IsFloating reports whether the kind is float or double.
func (k Kind) IsFloating() bool { return k == KindFloat || k == KindDouble }

// IsReference reports whether values of the kind share storage on
// assignment.
func (k Kind) IsReference() bool {
	return k == KindArray || k == KindClass || k == KindPointer || k == KindNull
}

// Type is the interface that all CBot types implement.
type Type interface {
	// Kind returns the fundamental category of this type.
	Kind() Kind

	// String returns the human-readable representation.
	String() string

	// Equals reports whether two types are structurally identical.
	Equals(other Type) bool
}

// ---- Primitive types -------------------------------------------------------

// primitiveType is the concrete implementation for all built-in scalar types.
type primitiveType struct {
	kind Kind
}

func (p *primitiveType) Kind() Kind     { return p.kind }
func (p *primitiveType) String() string { return p.kind.String() }

func (p *primitiveType) Equals(other Type) bool {
	if other == nil {
		return false
	}
	return p.kind == other.Kind()
}

// Pre-allocated singletons for all primitive types.
var (
	Void   Type = &primitiveType{kind: KindVoid}
	Bool   Type = &primitiveType{kind: KindBool}
	Byte   Type = &primitiveType{kind: KindByte}
	Short  Type = &primitiveType{kind: KindShort}
	Char   Type = &primitiveType{kind: KindChar}
	Int    Type = &primitiveType{kind: KindInt}
	Long   Type = &primitiveType{kind: KindLong}
	Float  Type = &primitiveType{kind: KindFloat}
	Double Type = &primitiveType{kind: KindDouble}
	String Type = &primitiveType{kind: KindString}
	Null   Type = &primitiveType{kind: KindNull}
)

// Primitive returns the singleton for a scalar kind, or nil.
func Primitive(k Kind) Type {
	switch k {
	case KindVoid:
		return Void
	case KindBool:
		return Bool
	case KindByte:
		return Byte
	case KindShort:
		return Short
	case KindChar:
		return Char
	case KindInt:
		return Int
	case KindLong:
		return Long
	case KindFloat:
		return Float
	case KindDouble:
		return Double
	case KindString:
		return String
	case KindNull:
		return Null
	}
	return nil
}

// ---- Composite types -------------------------------------------------------

// ArrayType is Elem[] (Len < 0) or Elem[Len].
type ArrayType struct {
	Elem Type
	Len  int
}

// ArrayOf returns the array type with the given element type and size
// limit; n < 0 means unsized.
func ArrayOf(elem Type, n int) *ArrayType {
	if n < 0 {
		n = -1
	}
	return &ArrayType{Elem: elem, Len: n}
}

func (a *ArrayType) Kind() Kind { return KindArray }
func (a *ArrayType) String() string {
	if a.Len >= 0 {
		return fmt.Sprintf("%s[%d]", a.Elem, a.Len)
	}
	return fmt.Sprintf("%s[]", a.Elem)
}
func (a *ArrayType) Equals(other Type) bool {
	o, ok := other.(*ArrayType)
	if !ok {
		return false
	}
	return a.Len == o.Len && a.Elem.Equals(o.Elem)
}

// Sized reports whether the array has a fixed size limit.
func (a *ArrayType) Sized() bool { return a.Len >= 0 }

// ClassType is the type of a class instance itself.
type ClassType struct {
	Class *Class
}

func (c *ClassType) Kind() Kind     { return KindClass }
func (c *ClassType) String() string { return c.Class.Name }
func (c *ClassType) Equals(other Type) bool {
	o, ok := other.(*ClassType)
	return ok && o.Class == c.Class
}

// PointerType is a nullable reference to an instance of Class.
type PointerType struct {
	Class *Class
}

func (p *PointerType) Kind() Kind     { return KindPointer }
func (p *PointerType) String() string { return p.Class.Name }
func (p *PointerType) Equals(other Type) bool {
	o, ok := other.(*PointerType)
	return ok && o.Class == p.Class
}

// PointerTo returns the reference type for class c.
func PointerTo(c *Class) *PointerType { return &PointerType{Class: c} }

// InstanceOf returns the instance type for class c.
func InstanceOf(c *Class) *ClassType { return &ClassType{Class: c} }

// ClassOf returns the class named by a class or pointer type, or nil.
func ClassOf(t Type) *Class {
	switch t := t.(type) {
	case *ClassType:
		return t.Class
	case *PointerType:
		return t.Class
	}
	return nil
}

// ---- Signatures ------------------------------------------------------------

// Key returns the overload key of a parameter type: array sizes and the
// class/pointer distinction do not take part in overloading.
func Key(t Type) string {
	switch t := t.(type) {
	case *ArrayType:
		return Key(t.Elem) + "[]"
	case *ClassType:
		return t.Class.Name
	case *PointerType:
		return t.Class.Name
	case nil:
		return "void"
	}
	if t.Kind() == KindBool {
		return "bool"
	}
	return t.String()
}

// SignatureKey returns the lookup key of a function or method signature,
// e.g. "goto(float,float)".
func SignatureKey(name string, params []Type) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = Key(p)
	}
	return name + "(" + strings.Join(parts, ",") + ")"
}

// FormatSignature renders a readable signature for diagnostics.
func FormatSignature(name string, params []Type, ret Type) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = p.String()
	}
	if ret == nil {
		ret = Void
	}
	return fmt.Sprintf("%s %s(%s)", ret, name, strings.Join(parts, ", "))
}

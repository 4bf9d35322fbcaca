// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package types

// narrowingPenalty is added to the cost of a conversion that loses range so
// that any widening candidate is preferred by overload resolution.
const narrowingPenalty = 16

// Rank returns the position of a numeric type in the promotion lattice, or
// -1 for non-numeric types.
func Rank(t Type) int {
	if t == nil || !t.Kind().IsNumeric() {
		return -1
	}
	return int(t.Kind() - KindBool)
}

// Promote returns the type of a binary arithmetic result: the higher ranked
// operand type, and never narrower than int.
func Promote(a, b Type) Type {
	k := a.Kind()
	if b.Kind() > k {
		k = b.Kind()
	}
	if k < KindInt {
		k = KindInt
	}
	return Primitive(k)
}

// Compatible reports whether a value of type src may be stored in a
// variable of type dst:
//
//   - identical types are compatible;
//   - any two numeric types are compatible (the value is converted);
//   - null is compatible with every array and class reference;
//   - class references are compatible when dst's class is src's class or
//     one of its ancestors;
//   - arrays are compatible when their elements are and their sizes agree
//     (an unsized array matches any size).
func Compatible(dst, src Type) bool {
	return Distance(dst, src) >= 0
}

// Distance returns the conversion cost of storing a src value in a dst
// variable, or -1 when the types are incompatible. Exact matches cost 0.
func Distance(dst, src Type) int {
	if dst == nil || src == nil {
		return -1
	}
	dk, sk := dst.Kind(), src.Kind()
	if dk == KindVoid || sk == KindVoid {
		return -1
	}
	switch {
	case dk.IsNumeric() && sk.IsNumeric():
		d := Rank(dst) - Rank(src)
		if d >= 0 {
			return d
		}
		return narrowingPenalty - d
	case dk == KindString:
		if sk == KindString {
			return 0
		}
		return -1
	case sk == KindNull:
		if dk == KindArray || dk == KindPointer || dk == KindClass {
			return 1
		}
		return -1
	case dk == KindPointer || dk == KindClass:
		if sk != KindPointer && sk != KindClass {
			return -1
		}
		return ClassOf(src).Distance(ClassOf(dst))
	case dk == KindArray:
		da, ok1 := dst.(*ArrayType)
		sa, ok2 := src.(*ArrayType)
		if !ok1 || !ok2 {
			return -1
		}
		if da.Sized() && sa.Sized() && da.Len != sa.Len {
			return -1
		}
		if !elemCompatible(da.Elem, sa.Elem) {
			return -1
		}
		if da.Len != sa.Len {
			return 1
		}
		return 0
	}
	return -1
}

// Assignable is Compatible restricted to what the language accepts in an
// assignment or argument: bool neither converts to nor from the other
// numeric types.
func Assignable(dst, src Type) bool {
	return Cost(dst, src) >= 0
}

// Cost is Distance under the Assignable rules; overload resolution ranks
// candidates by it.
func Cost(dst, src Type) int {
	if dst == nil || src == nil {
		return -1
	}
	if (dst.Kind() == KindBool) != (src.Kind() == KindBool) && dst.Kind().IsNumeric() && src.Kind().IsNumeric() {
		return -1
	}
	return Distance(dst, src)
}

// elemCompatible decides whether arrays may share storage. Elements must
// have the same representation, so numeric conversion is not allowed here.
func elemCompatible(dst, src Type) bool {
	switch dst.Kind() {
	case KindPointer, KindClass:
		return (src.Kind() == KindPointer || src.Kind() == KindClass) &&
			ClassOf(src).IsA(ClassOf(dst))
	case KindArray:
		return Distance(dst, src) >= 0
	}
	return dst.Equals(src)
}

// IsComparable reports whether == and != apply between the two types.
func IsComparable(a, b Type) bool {
	ak, bk := a.Kind(), b.Kind()
	switch {
	case ak.IsNumeric() && bk.IsNumeric():
		return true
	case ak == KindString && bk == KindString:
		return true
	case ak.IsReference() && bk.IsReference():
		return ak == KindNull || bk == KindNull || Compatible(a, b) || Compatible(b, a)
	}
	return false
}

// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package value implements CBot runtime values.
//
// Design:
//   - A Var is a typed storage cell tagged by its types.Type; the set of
//     variants is closed (the scalar kinds, string, array, instance, pointer).
//   - Scalars are copied on assignment. Arrays and instances live in shared
//     objects: assigning them copies the reference, so mutation through one
//     holder is visible through every other. DeepCopy breaks the sharing.
//   - Every Var is Undefined (declared, never written), Null (reference with
//     no target) or Defined.
//   - Vars can be linked into a singly-linked chain through Next; argument
//     lists handed to native functions use this chain.
package value

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/colobot/colobot-sub025/cbot/types"
)

// State is the definedness of a Var.
type State uint8

const (
	Undefined State = iota
	Null
	Defined
)

func (s State) String() string {
	switch s {
	case Undefined:
		return "undefined"
	case Null:
		return "null"
	}
	return "defined"
}

// Var is a typed, possibly named, storage cell.
type Var struct {
	Name string
	ID   int // declaration id assigned by the compiler; 0 for temporaries

	typ   types.Type
	state State

	num int64   // bool, byte, short, char, int, long
	flt float64 // float, double
	str string
	arr *Array
	obj *Instance

	next *Var
}

// MakeVar returns an Undefined variable of type t. Reference types start
// Null, except a class instance type which allocates a fresh instance.
func MakeVar(t types.Type) *Var {
	v := &Var{typ: t}
	switch t.Kind() {
	case types.KindArray, types.KindPointer, types.KindNull:
		v.state = Null
	case types.KindClass:
		v.state = Defined
		v.obj = NewInstance(types.ClassOf(t))
	}
	return v
}

// Named returns an Undefined variable of type t carrying a name.
func Named(name string, t types.Type) *Var {
	v := MakeVar(t)
	v.Name = name
	return v
}

// Type returns the declared type of the variable.
func (v *Var) Type() types.Type { return v.typ }

// Kind returns the kind of the declared type.
func (v *Var) Kind() types.Kind { return v.typ.Kind() }

// State returns the definedness of the variable.
func (v *Var) State() State { return v.state }

// IsDefined reports whether the variable holds a value (null counts for
// references).
func (v *Var) IsDefined() bool { return v.state != Undefined }

// IsNull reports whether a reference variable has no target.
func (v *Var) IsNull() bool { return v.state == Null }

// Next returns the following variable of an argument chain.
func (v *Var) Next() *Var { return v.next }

// SetNext links w after v.
func (v *Var) SetNext(w *Var) { v.next = w }

// ---- Scalar getters --------------------------------------------------------

// Int returns the value converted to a 64-bit integer. Floats truncate
// toward zero; NaN converts to 0.
func (v *Var) Int() int64 {
	switch v.Kind() {
	case types.KindFloat, types.KindDouble:
		if math.IsNaN(v.flt) {
			return 0
		}
		return int64(v.flt)
	case types.KindString:
		n, _ := strconv.ParseInt(strings.TrimSpace(v.str), 10, 64)
		return n
	}
	return v.num
}

// Float returns the value converted to float64.
func (v *Var) Float() float64 {
	switch v.Kind() {
	case types.KindFloat, types.KindDouble:
		return v.flt
	case types.KindString:
		f, _ := strconv.ParseFloat(strings.TrimSpace(v.str), 64)
		return f
	}
	return float64(v.num)
}

// Bool returns the value as a boolean: non-zero numbers are true.
func (v *Var) Bool() bool {
	switch v.Kind() {
	case types.KindFloat, types.KindDouble:
		return v.flt != 0
	case types.KindString:
		return v.str != ""
	}
	return v.num != 0
}

// Text returns the value converted to string, the rule used by string
// concatenation.
func (v *Var) Text() string {
	if v.state == Undefined {
		return "undefined"
	}
	switch v.Kind() {
	case types.KindBool:
		return strconv.FormatBool(v.num != 0)
	case types.KindChar:
		return string(rune(v.num))
	case types.KindByte, types.KindShort, types.KindInt, types.KindLong:
		return strconv.FormatInt(v.num, 10)
	case types.KindFloat:
		return formatFloat(v.flt, 32)
	case types.KindDouble:
		return formatFloat(v.flt, 64)
	case types.KindString:
		return v.str
	case types.KindArray:
		if v.arr == nil {
			return "null"
		}
		return v.arr.String()
	case types.KindClass, types.KindPointer:
		if v.obj == nil {
			return "null"
		}
		return v.obj.String()
	}
	return "null"
}

func formatFloat(f float64, bits int) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	return strconv.FormatFloat(f, 'g', -1, bits)
}

// String implements fmt.Stringer for debugging.
func (v *Var) String() string {
	if v.Name != "" {
		return fmt.Sprintf("%s %s=%s", v.typ, v.Name, v.Text())
	}
	return v.Text()
}

// Array returns the shared array, or nil.
func (v *Var) Array() *Array { return v.arr }

// Instance returns the referenced class instance, or nil.
func (v *Var) Instance() *Instance { return v.obj }

// ---- Setters ---------------------------------------------------------------

// SetInt stores n converted to the variable's type.
func (v *Var) SetInt(n int64) {
	switch v.Kind() {
	case types.KindFloat:
		v.flt = float64(float32(n))
	case types.KindDouble:
		v.flt = float64(n)
	case types.KindString:
		v.str = strconv.FormatInt(n, 10)
	default:
		v.num = narrow(v.Kind(), n)
	}
	v.state = Defined
}

// SetFloat stores f converted to the variable's type.
func (v *Var) SetFloat(f float64) {
	switch v.Kind() {
	case types.KindFloat:
		v.flt = float64(float32(f))
	case types.KindDouble:
		v.flt = f
	case types.KindString:
		v.str = formatFloat(f, 64)
	case types.KindBool:
		if f != 0 {
			v.num = 1
		} else {
			v.num = 0
		}
	default:
		if math.IsNaN(f) {
			v.num = 0
		} else {
			v.num = narrow(v.Kind(), int64(f))
		}
	}
	v.state = Defined
}

// SetBool stores b converted to the variable's type.
func (v *Var) SetBool(b bool) {
	n := int64(0)
	if b {
		n = 1
	}
	if v.Kind() == types.KindString {
		v.str = strconv.FormatBool(b)
		v.state = Defined
		return
	}
	v.SetInt(n)
}

// SetString stores s. Numeric variables parse it.
func (v *Var) SetString(s string) {
	switch v.Kind() {
	case types.KindString:
		v.str = s
		v.state = Defined
	case types.KindFloat, types.KindDouble:
		f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
		v.SetFloat(f)
	default:
		n, _ := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		v.SetInt(n)
	}
}

// SetNull clears a reference.
func (v *Var) SetNull() {
	v.arr = nil
	v.obj = nil
	v.state = Null
}

// SetArray makes the variable refer to a (shared) array.
func (v *Var) SetArray(a *Array) {
	if a == nil {
		v.SetNull()
		return
	}
	v.arr = a
	v.state = Defined
}

// SetInstance makes the variable refer to a (shared) instance.
func (v *Var) SetInstance(o *Instance) {
	if o == nil {
		v.SetNull()
		return
	}
	v.obj = o
	v.state = Defined
}

// SetUndefined resets the variable to its declared, unwritten state.
func (v *Var) SetUndefined() {
	v.num, v.flt, v.str = 0, 0, ""
	v.arr, v.obj = nil, nil
	v.state = Undefined
}

// Set assigns src to v, converting scalars to v's type and sharing arrays
// and instances.
func (v *Var) Set(src *Var) {
	if src.state == Undefined {
		v.SetUndefined()
		return
	}
	if src.state == Null {
		if v.Kind().IsReference() {
			v.SetNull()
		} else {
			v.SetUndefined()
		}
		return
	}
	switch v.Kind() {
	case types.KindArray:
		v.SetArray(src.arr)
	case types.KindClass, types.KindPointer:
		v.SetInstance(src.obj)
	case types.KindNull:
		v.SetNull()
	case types.KindString:
		v.str = src.Text()
		v.state = Defined
	case types.KindFloat, types.KindDouble:
		v.SetFloat(src.Float())
	default:
		switch src.Kind() {
		case types.KindFloat, types.KindDouble:
			v.SetFloat(src.flt)
		default:
			v.SetInt(src.Int())
		}
	}
}

// Copy returns a new variable of the same type holding the same value.
// Arrays and instances stay shared.
func (v *Var) Copy() *Var {
	c := *v
	c.next = nil
	return &c
}

// As returns a fresh temporary of type t holding v converted to t.
func (v *Var) As(t types.Type) *Var {
	out := MakeVar(t)
	out.Set(v)
	return out
}

// DeepCopy returns a copy that shares no storage with v.
func (v *Var) DeepCopy() *Var {
	return v.deepCopy(make(map[interface{}]interface{}))
}

func (v *Var) deepCopy(seen map[interface{}]interface{}) *Var {
	c := v.Copy()
	if v.arr != nil {
		c.arr = v.arr.deepCopy(seen)
	}
	if v.obj != nil {
		c.obj = v.obj.deepCopy(seen)
	}
	return c
}

// narrow wraps n into the range of an integral kind.
func narrow(k types.Kind, n int64) int64 {
	switch k {
	case types.KindBool:
		if n != 0 {
			return 1
		}
		return 0
	case types.KindByte:
		return int64(int8(n))
	case types.KindShort:
		return int64(int16(n))
	case types.KindChar, types.KindInt:
		return int64(int32(n))
	}
	return n
}

// ---- Constructors for temporaries ------------------------------------------

// NewInt returns a Defined int.
func NewInt(n int64) *Var { v := MakeVar(types.Int); v.SetInt(n); return v }

// NewLong returns a Defined long.
func NewLong(n int64) *Var { v := MakeVar(types.Long); v.SetInt(n); return v }

// NewFloat returns a Defined float.
func NewFloat(f float64) *Var { v := MakeVar(types.Float); v.SetFloat(f); return v }

// NewDouble returns a Defined double.
func NewDouble(f float64) *Var { v := MakeVar(types.Double); v.SetFloat(f); return v }

// NewBool returns a Defined bool.
func NewBool(b bool) *Var { v := MakeVar(types.Bool); v.SetBool(b); return v }

// NewChar returns a Defined char.
func NewChar(r rune) *Var { v := MakeVar(types.Char); v.SetInt(int64(r)); return v }

// NewString returns a Defined string.
func NewString(s string) *Var { v := MakeVar(types.String); v.SetString(s); return v }

// NewNull returns the null literal.
func NewNull() *Var { return MakeVar(types.Null) }

// ---- Argument chains -------------------------------------------------------

// Chain links vars through Next and returns the head (nil when empty).
func Chain(vars ...*Var) *Var {
	for i := 0; i+1 < len(vars); i++ {
		vars[i].next = vars[i+1]
	}
	if len(vars) == 0 {
		return nil
	}
	vars[len(vars)-1].next = nil
	return vars[0]
}

// Unchain collects a chain into a slice.
func Unchain(head *Var) []*Var {
	var out []*Var
	for v := head; v != nil; v = v.next {
		out = append(out, v)
	}
	return out
}

// ---- Comparison ------------------------------------------------------------

// Equal implements the == operator: numbers compare by value after
// promotion, strings by content, references by identity.
func Equal(a, b *Var) bool {
	ak, bk := a.Kind(), b.Kind()
	switch {
	case ak.IsReference() || bk.IsReference():
		if a.state == Null || b.state == Null {
			return a.state == b.state || (a.arr == nil && a.obj == nil && b.arr == nil && b.obj == nil)
		}
		if a.arr != nil || b.arr != nil {
			return a.arr == b.arr
		}
		return a.obj == b.obj
	case ak == types.KindString || bk == types.KindString:
		return a.Text() == b.Text()
	case ak.IsFloating() || bk.IsFloating():
		return a.Float() == b.Float()
	}
	return a.Int() == b.Int()
}

// Compare orders two numeric or string values: -1, 0 or +1.
func Compare(a, b *Var) int {
	if a.Kind() == types.KindString && b.Kind() == types.KindString {
		return strings.Compare(a.str, b.str)
	}
	if a.Kind().IsFloating() || b.Kind().IsFloating() {
		x, y := a.Float(), b.Float()
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	}
	x, y := a.Int(), b.Int()
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

// IsInstanceOf reports whether v refers to an instance of class c or of a
// class derived from c.
func IsInstanceOf(v *Var, c *types.Class) bool {
	if v.obj == nil {
		return false
	}
	return v.obj.Class.IsA(c)
}

// ---- Generic accessors -----------------------------------------------------

// Scalar is the set of Go types a Var converts to and from.
type Scalar interface {
	~bool | ~int8 | ~int16 | ~int32 | ~int64 | ~int | ~float32 | ~float64 | ~string
}

// Get returns the value of v converted to T.
func Get[T Scalar](v *Var) T {
	var zero T
	switch p := any(&zero).(type) {
	case *bool:
		*p = v.Bool()
	case *int8:
		*p = int8(v.Int())
	case *int16:
		*p = int16(v.Int())
	case *int32:
		*p = int32(v.Int())
	case *int64:
		*p = v.Int()
	case *int:
		*p = int(v.Int())
	case *float32:
		*p = float32(v.Float())
	case *float64:
		*p = v.Float()
	case *string:
		*p = v.Text()
	}
	return zero
}

// Put stores x into v, converting it to v's type.
func Put[T Scalar](v *Var, x T) {
	switch x := any(x).(type) {
	case bool:
		v.SetBool(x)
	case int8:
		v.SetInt(int64(x))
	case int16:
		v.SetInt(int64(x))
	case int32:
		v.SetInt(int64(x))
	case int64:
		v.SetInt(x)
	case int:
		v.SetInt(int64(x))
	case float32:
		v.SetFloat(float64(x))
	case float64:
		v.SetFloat(x)
	case string:
		v.SetString(x)
	}
}

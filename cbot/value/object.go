// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package value

import (
	"strings"

	"github.com/colobot/colobot-sub025/cbot/diag"
	"github.com/colobot/colobot-sub025/cbot/types"
)

// Zero returns the initial value of a declaration without initializer:
// arrays start empty rather than null, everything else as MakeVar.
func Zero(t types.Type) *Var {
	v := MakeVar(t)
	if at, ok := t.(*types.ArrayType); ok {
		v.SetArray(NewArray(at))
	}
	return v
}

// ---- Arrays ----------------------------------------------------------------

// Array is shared array storage. Items grow on write up to the size limit
// of the array type.
type Array struct {
	Type  *types.ArrayType
	Items []*Var
}

// NewArray returns an empty array of type t.
func NewArray(t *types.ArrayType) *Array {
	return &Array{Type: t}
}

// Len returns the number of allocated elements.
func (a *Array) Len() int { return len(a.Items) }

// Index returns element i for reading.
func (a *Array) Index(i int64) (*Var, error) {
	if i < 0 || i >= int64(len(a.Items)) {
		return nil, diag.New(diag.ErrOutOfBounds).Withf("index %d, length %d", i, len(a.Items))
	}
	return a.Items[i], nil
}

// Slot returns element i for writing, growing the array when needed.
func (a *Array) Slot(i int64) (*Var, error) {
	if i < 0 {
		return nil, diag.New(diag.ErrOutOfBounds).Withf("index %d", i)
	}
	if a.Type.Sized() && i >= int64(a.Type.Len) {
		return nil, diag.New(diag.ErrOutOfBounds).Withf("index %d, limit %d", i, a.Type.Len)
	}
	for int64(len(a.Items)) <= i {
		a.Items = append(a.Items, Zero(a.Type.Elem))
	}
	return a.Items[i], nil
}

// Append adds v (converted to the element type) at the end.
func (a *Array) Append(v *Var) error {
	if a.Type.Sized() && len(a.Items) >= a.Type.Len {
		return diag.New(diag.ErrArrayLimit).Withf("limit %d", a.Type.Len)
	}
	slot := Zero(a.Type.Elem)
	slot.Set(v)
	a.Items = append(a.Items, slot)
	return nil
}

func (a *Array) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, it := range a.Items {
		if i > 0 {
			b.WriteString(", ")
		}
		if it.Kind().IsReference() && it.IsDefined() && !it.IsNull() {
			b.WriteString(it.Type().String())
			continue
		}
		b.WriteString(it.Text())
	}
	b.WriteByte('}')
	return b.String()
}

func (a *Array) deepCopy(seen map[interface{}]interface{}) *Array {
	if c, ok := seen[a]; ok {
		return c.(*Array)
	}
	c := &Array{Type: a.Type, Items: make([]*Var, len(a.Items))}
	seen[a] = c
	for i, it := range a.Items {
		c.Items[i] = it.deepCopy(seen)
	}
	return c
}

// ---- Instances -------------------------------------------------------------

// Instance is an object of a class. Fields follow Class.Layout order.
type Instance struct {
	Class  *types.Class
	Fields []*Var

	// User is host data attached by native methods of intrinsic classes.
	// It is not part of the saved state.
	User interface{}
}

// NewInstance allocates an instance with every field at its initial value.
// Class-typed fields start null.
func NewInstance(c *types.Class) *Instance {
	layout := c.Layout()
	o := &Instance{Class: c, Fields: make([]*Var, len(layout))}
	for i, f := range layout {
		t := f.Type
		if ct, ok := t.(*types.ClassType); ok {
			t = types.PointerTo(ct.Class)
		}
		o.Fields[i] = Zero(t)
		o.Fields[i].Name = f.Name
	}
	return o
}

// Field returns the named field, or nil.
func (o *Instance) Field(name string) *Var {
	for _, f := range o.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func (o *Instance) String() string {
	var b strings.Builder
	b.WriteString(o.Class.Name)
	b.WriteByte('{')
	for i, f := range o.Fields {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(f.Name)
		b.WriteByte('=')
		if f.Kind().IsReference() && !f.IsNull() && f.IsDefined() {
			b.WriteString(f.Type().String())
			continue
		}
		b.WriteString(f.Text())
	}
	b.WriteByte('}')
	return b.String()
}

func (o *Instance) deepCopy(seen map[interface{}]interface{}) *Instance {
	if c, ok := seen[o]; ok {
		return c.(*Instance)
	}
	c := &Instance{Class: o.Class, Fields: make([]*Var, len(o.Fields)), User: o.User}
	seen[o] = c
	for i, f := range o.Fields {
		c.Fields[i] = f.deepCopy(seen)
	}
	return c
}

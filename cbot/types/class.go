// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package types

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrDuplicateClass is returned when a class name is already registered.
	ErrDuplicateClass = errors.New("types: class already defined")

	// ErrDuplicateMember is returned when a field or method is declared twice.
	ErrDuplicateMember = errors.New("types: member already defined")

	// ErrCyclicClass is returned when a parent would make the chain circular.
	ErrCyclicClass = errors.New("types: class inherits from itself")
)

// Access is the visibility of a class member.
type Access int

const (
	Public Access = iota
	Protected
	Private
)

// Field is a named data member of a class.
type Field struct {
	Name   string
	Type   Type
	Static bool
	Access Access
}

func (f Field) String() string {
	return fmt.Sprintf("%s %s", f.Type, f.Name)
}

// Method is a callable member of a class. The override table of a class
// maps signature keys to the nearest Method; dispatch on an instance walks
// from its dynamic class to the root.
type Method struct {
	Name   string
	Params []Type
	Return Type
	Class  *Class // declaring class
	Static bool
	Access Access

	// Impl is the executable body bound by the compiler. The type system
	// never inspects it.
	Impl interface{}
}

// Key returns the overload key of the method.
func (m *Method) Key() string { return SignatureKey(m.Name, m.Params) }

func (m *Method) String() string {
	return m.Class.Name + "::" + FormatSignature(m.Name, m.Params, m.Return)
}

// Class describes a script-defined or host-defined class.
type Class struct {
	Name   string
	Parent *Class

	// Public classes are visible to every program of the group.
	Public bool

	// Intrinsic classes are defined by the host rather than by a script.
	Intrinsic bool

	// Impl is compiler data attached to script classes (field initializers,
	// owning program). The type system never inspects it.
	Impl interface{}

	fields  []Field
	methods map[string]*Method // own methods keyed by signature key
	order   []*Method
}

// NewClass creates an empty class.
func NewClass(name string, parent *Class) *Class {
	return &Class{
		Name:    name,
		Parent:  parent,
		methods: make(map[string]*Method),
	}
}

// SetParent links the class below parent, refusing cycles.
func (c *Class) SetParent(parent *Class) error {
	for p := parent; p != nil; p = p.Parent {
		if p == c {
			return ErrCyclicClass
		}
	}
	c.Parent = parent
	return nil
}

// AddField appends a field; names must be unique along the ancestor chain.
func (c *Class) AddField(f Field) error {
	if _, _, ok := c.FindField(f.Name); ok {
		return fmt.Errorf("%w: %s.%s", ErrDuplicateMember, c.Name, f.Name)
	}
	c.fields = append(c.fields, f)
	return nil
}

// AddMethod registers an own method. A method with the key of an ancestor
// method overrides it and must keep its return type.
func (c *Class) AddMethod(m *Method) error {
	key := m.Key()
	if _, ok := c.methods[key]; ok {
		return fmt.Errorf("%w: %s::%s", ErrDuplicateMember, c.Name, key)
	}
	if c.Parent != nil {
		if base := c.Parent.Resolve(key); base != nil && !sameType(base.Return, m.Return) {
			return fmt.Errorf("%w: %s::%s changes the return type", ErrDuplicateMember, c.Name, key)
		}
	}
	m.Class = c
	c.methods[key] = m
	c.order = append(c.order, m)
	return nil
}

func sameType(a, b Type) bool {
	if a == nil {
		a = Void
	}
	if b == nil {
		b = Void
	}
	return a.Equals(b)
}

// Fields returns the fields declared by this class itself.
func (c *Class) Fields() []Field { return c.fields }

// Methods returns the methods declared by this class itself in
// declaration order.
func (c *Class) Methods() []*Method { return c.order }

// Layout returns the instance fields of the class, ancestors first, in
// declaration order. Field indexes of an instance follow this order.
func (c *Class) Layout() []Field {
	var chain []*Class
	for k := c; k != nil; k = k.Parent {
		chain = append(chain, k)
	}
	var out []Field
	for i := len(chain) - 1; i >= 0; i-- {
		for _, f := range chain[i].fields {
			if !f.Static {
				out = append(out, f)
			}
		}
	}
	return out
}

// FieldIndex returns the position of an instance field in Layout, or -1.
func (c *Class) FieldIndex(name string) int {
	for i, f := range c.Layout() {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// FindField looks a field up along the ancestor chain and returns it with
// its declaring class.
func (c *Class) FindField(name string) (Field, *Class, bool) {
	for k := c; k != nil; k = k.Parent {
		for _, f := range k.fields {
			if f.Name == name {
				return f, k, true
			}
		}
	}
	return Field{}, nil, false
}

// Candidates returns the visible methods named name: for every signature
// the nearest declaration wins, so overridden base methods are hidden.
func (c *Class) Candidates(name string) []*Method {
	seen := make(map[string]bool)
	var out []*Method
	for k := c; k != nil; k = k.Parent {
		for _, m := range k.order {
			if m.Name != name {
				continue
			}
			key := m.Key()
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, m)
		}
	}
	return out
}

// Resolve performs virtual dispatch: it returns the method with the given
// key declared nearest to c on the ancestor chain.
func (c *Class) Resolve(key string) *Method {
	for k := c; k != nil; k = k.Parent {
		if m, ok := k.methods[key]; ok {
			return m
		}
	}
	return nil
}

// Own returns the method with the given key declared by c itself.
func (c *Class) Own(key string) *Method { return c.methods[key] }

// IsA reports whether c is other or derives from it.
func (c *Class) IsA(other *Class) bool {
	for k := c; k != nil; k = k.Parent {
		if k == other {
			return true
		}
	}
	return false
}

// Distance returns the number of inheritance steps from c up to ancestor,
// or -1 when ancestor is not on the chain.
func (c *Class) Distance(ancestor *Class) int {
	d := 0
	for k := c; k != nil; k = k.Parent {
		if k == ancestor {
			return d
		}
		d++
	}
	return -1
}

// ---- Registry --------------------------------------------------------------

// Registry maps class names to descriptors. Registries nest: a program's
// private registry falls back to its group's shared one.
type Registry struct {
	parent  *Registry
	classes map[string]*Class
}

// NewRegistry creates a registry layered over parent (which may be nil).
func NewRegistry(parent *Registry) *Registry {
	return &Registry{parent: parent, classes: make(map[string]*Class)}
}

// Define registers a class. Names are unique across the whole chain.
func (r *Registry) Define(c *Class) error {
	if r.Lookup(c.Name) != nil {
		return fmt.Errorf("%w: %s", ErrDuplicateClass, c.Name)
	}
	r.classes[c.Name] = c
	return nil
}

// Remove unregisters a class from this level only.
func (r *Registry) Remove(name string) {
	delete(r.classes, name)
}

// Lookup finds a class by name, consulting parent registries.
func (r *Registry) Lookup(name string) *Class {
	for reg := r; reg != nil; reg = reg.parent {
		if c, ok := reg.classes[name]; ok {
			return c
		}
	}
	return nil
}

// Parent returns the registry this one falls back to.
func (r *Registry) Parent() *Registry { return r.parent }

// Classes returns the classes defined at this level, sorted by name.
func (r *Registry) Classes() []*Class {
	out := make([]*Class, 0, len(r.classes))
	for _, c := range r.classes {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

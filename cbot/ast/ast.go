// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package ast defines the executable syntax tree of a compiled CBot unit.
//
// Design principles:
//   - Nodes are built and type-checked by the compiler and never change
//     afterwards. Each node owns its children; statement sequencing is a
//     slice in the enclosing block.
//   - Every node has an id that is unique within its Unit. Frames refer to
//     nodes by id only, which is what makes a paused program serializable.
//   - Exec is a small state machine over Frame.State. It may be called any
//     number of times on the same frame; work already finished is never
//     repeated.
package ast

import (
	"fmt"

	"github.com/colobot/colobot-sub025/cbot/diag"
	"github.com/colobot/colobot-sub025/cbot/stack"
	"github.com/colobot/colobot-sub025/cbot/types"
	"github.com/colobot/colobot-sub025/cbot/value"
)

// Span is the source range of a node.
type Span struct {
	Start, End   int // byte offsets, End exclusive
	Line, Column int
}

// To returns the span covering s through o.
func (s Span) To(o Span) Span {
	return Span{Start: s.Start, End: o.End, Line: s.Line, Column: s.Column}
}

// Err returns a diagnostic located at s.
func (s Span) Err(code diag.Code) *diag.Error {
	return diag.At(code, s.Start, s.End, s.Line, s.Column)
}

// Node is an executable syntax tree node.
type Node interface {
	ID() int
	Span() Span
	Exec(f *stack.Frame, r *stack.Runner) stack.Status
	Children() []Node
	node() *base
}

// Expr is a node producing a value.
type Expr interface {
	Node
	Type() types.Type
}

type base struct {
	id   int
	span Span
}

func (b *base) ID() int     { return b.id }
func (b *base) Span() Span  { return b.span }
func (b *base) node() *base { return b }

// fail raises a runtime error located at n.
func fail(r *stack.Runner, n Node, code diag.Code) stack.Status {
	return r.Fail(n.Span().Err(code))
}

// failErr raises err, giving it the position of n when it has none.
func failErr(r *stack.Runner, n Node, err error) stack.Status {
	d, ok := err.(*diag.Error)
	if !ok {
		d = diag.New(diag.ErrNative).Withf("%v", err)
	}
	if d.Start < 0 {
		cpy := *d
		sp := n.Span()
		cpy.Start, cpy.End, cpy.Line, cpy.Column = sp.Start, sp.End, sp.Line, sp.Column
		d = &cpy
	}
	return r.Fail(d)
}

// eval runs n on the child frame of f. The child is kept while n is
// suspended and dropped otherwise.
func eval(n Node, f *stack.Frame, r *stack.Runner) (*value.Var, stack.Status) {
	c := f.Enter(n.ID())
	st := n.Exec(c, r)
	if st == stack.Suspended {
		return nil, st
	}
	f.Pop()
	if st != stack.Done {
		return nil, st
	}
	return c.Result, st
}

// run executes a statement on the child frame of f.
func run(n Node, f *stack.Frame, r *stack.Runner) stack.Status {
	_, st := eval(n, f, r)
	return st
}

// enter consumes the step of a node entering state 0.
func enter(f *stack.Frame, r *stack.Runner) bool {
	if f.State != 0 {
		return true
	}
	if !r.Step() {
		return false
	}
	f.State = 1
	return true
}

// ---- Units -----------------------------------------------------------------

// Unit is the compiled form of one program: its nodes, functions and
// classes.
type Unit struct {
	Name string

	// Functions lists every function and method in declaration order.
	Functions []*Function

	// Classes lists the classes declared by the unit.
	Classes []*types.Class

	nodes  []Node
	parent []int
}

// NewUnit creates an empty unit.
func NewUnit(name string) *Unit { return &Unit{Name: name} }

// Register assigns n the next node id and its source span.
func (u *Unit) Register(n Node, sp Span) {
	b := n.node()
	u.nodes = append(u.nodes, n)
	b.id = len(u.nodes)
	b.span = sp
}

// SetSpan changes the span of a registered node.
func (u *Unit) SetSpan(n Node, sp Span) { n.node().span = sp }

// Node returns the node with the given id, or nil.
func (u *Unit) Node(id int) Node {
	if id < 1 || id > len(u.nodes) {
		return nil
	}
	return u.nodes[id-1]
}

// Len returns the number of nodes.
func (u *Unit) Len() int { return len(u.nodes) }

// Finish builds the structural parent index. It must run once every
// function body is attached.
func (u *Unit) Finish() {
	u.parent = make([]int, len(u.nodes)+1)
	var walk func(n Node)
	walk = func(n Node) {
		for _, c := range n.Children() {
			if c == nil {
				continue
			}
			u.parent[c.ID()] = n.ID()
			walk(c)
		}
	}
	for _, fn := range u.Functions {
		walk(fn)
	}
	for _, c := range u.Classes {
		if info, ok := c.Impl.(*ClassInfo); ok && info.Unit == u {
			for _, fi := range info.Inits {
				walk(fi)
			}
		}
	}
}

// Parent returns the id of the structural parent of node id, or 0.
func (u *Unit) Parent(id int) int {
	if id < 1 || id >= len(u.parent) {
		return 0
	}
	return u.parent[id]
}

// Lookup returns the functions declared outside classes with the given
// name.
func (u *Unit) Lookup(name string) []*Function {
	var out []*Function
	for _, fn := range u.Functions {
		if fn.Name == name && fn.Class == nil {
			out = append(out, fn)
		}
	}
	return out
}

// Function returns the function or method with the given signature key,
// e.g. "main()" or "Bot::go(int)".
func (u *Unit) Function(key string) *Function {
	for _, fn := range u.Functions {
		if fn.FullKey() == key {
			return fn
		}
	}
	return nil
}

// ---- Functions and classes -------------------------------------------------

// Param is a function parameter bound to a local slot.
type Param struct {
	Name string
	Type types.Type
	Slot int
}

// Function is a compiled function or method. It is the root node of every
// function frame.
type Function struct {
	base
	Name   string
	Params []Param
	Return types.Type
	Body   *Block
	Locals int          // number of local slots
	Slots  []types.Type // declared type of each slot

	Public bool
	Extern bool

	Class  *types.Class // owning class for methods
	Method *types.Method
	Ctor   bool

	Unit *Unit
}

// Key returns the signature key, e.g. "move(float)".
func (fn *Function) Key() string { return types.SignatureKey(fn.Name, fn.ParamTypes()) }

// FullKey qualifies Key with the owning class.
func (fn *Function) FullKey() string {
	if fn.Class != nil {
		return fn.Class.Name + "::" + fn.Key()
	}
	return fn.Key()
}

// ParamTypes returns the parameter types in order.
func (fn *Function) ParamTypes() []types.Type {
	out := make([]types.Type, len(fn.Params))
	for i, p := range fn.Params {
		out[i] = p.Type
	}
	return out
}

func (fn *Function) String() string {
	name := fn.Name
	if fn.Class != nil {
		name = fn.Class.Name + "::" + name
	}
	return types.FormatSignature(name, fn.ParamTypes(), fn.Return)
}

func (fn *Function) Children() []Node {
	if fn.Body == nil {
		return nil
	}
	return []Node{fn.Body}
}

// Exec runs the body on a function frame prepared by NewFrame.
func (fn *Function) Exec(f *stack.Frame, r *stack.Runner) stack.Status {
	if !enter(f, r) {
		return stack.Suspended
	}
	if fn.Body == nil {
		return fail(r, fn, diag.ErrUndefRuntime)
	}
	switch st := run(fn.Body, f, r); st {
	case stack.Done:
		if fn.Return != nil && fn.Return.Kind() != types.KindVoid {
			return fail(r, fn, diag.ErrNoRetVal)
		}
		return stack.Done
	case stack.Return:
		ret := r.Ret
		r.Ret = nil
		if fn.Return != nil && fn.Return.Kind() != types.KindVoid {
			if ret == nil {
				return fail(r, fn, diag.ErrNoRetVal)
			}
			f.Result = ret.As(fn.Return)
		}
		return stack.Done
	case stack.Break, stack.Continue:
		r.Label = ""
		return fail(r, fn, diag.ErrUndefRuntime)
	default:
		return st
	}
}

// NewFrame prepares the function frame for a call below parent (or a root
// frame when parent is nil), binding arguments to parameter slots.
func (fn *Function) NewFrame(parent *stack.Frame, args []*value.Var, this *value.Var) *stack.Frame {
	var f *stack.Frame
	if parent == nil {
		f = stack.NewCall(fn.ID(), fn.Unit.Name, fn.Locals)
	} else {
		f = parent.PushCall(fn.ID(), fn.Unit.Name, fn.Locals)
	}
	for i, p := range fn.Params {
		if i >= len(args) {
			break
		}
		v := args[i].As(p.Type)
		v.Name = p.Name
		f.Locals[p.Slot] = v
	}
	if this != nil {
		f.This = this.Copy()
	}
	return f
}

// ClassInfo is the compiler data of a script class.
type ClassInfo struct {
	Class *types.Class
	Unit  *Unit
	Inits []*FieldInit // instance field initializers in declaration order
	Ctors []*Function

	// Statics holds the class static fields. They live as long as the class
	// and are not part of a saved program state.
	Statics map[string]*value.Var
}

// FieldInit initializes one instance field of a freshly allocated object.
type FieldInit struct {
	base
	Index int // position in Class.Layout
	Value Expr
}

func (n *FieldInit) Children() []Node { return []Node{n.Value} }

func (n *FieldInit) Exec(f *stack.Frame, r *stack.Runner) stack.Status {
	if !enter(f, r) {
		return stack.Suspended
	}
	v, st := eval(n.Value, f, r)
	if st != stack.Done {
		return st
	}
	f.Result = v
	return stack.Done
}

// classChain returns the ClassInfo of c and its script ancestors, root
// first.
func classChain(c *types.Class) []*ClassInfo {
	var out []*ClassInfo
	for k := c; k != nil; k = k.Parent {
		if info, ok := k.Impl.(*ClassInfo); ok {
			out = append([]*ClassInfo{info}, out...)
		}
	}
	return out
}

// initsOf flattens the field initializers of c, ancestors first.
func initsOf(c *types.Class) []*FieldInit {
	var out []*FieldInit
	for _, info := range classChain(c) {
		out = append(out, info.Inits...)
	}
	return out
}

// unitOf returns the unit declaring the initializer list containing fi.
func unitOf(c *types.Class, fi *FieldInit) *Unit {
	for _, info := range classChain(c) {
		for _, x := range info.Inits {
			if x == fi {
				return info.Unit
			}
		}
	}
	return nil
}

// Describe renders a node for debugging output.
func Describe(n Node) string {
	return fmt.Sprintf("%T#%d@%d:%d", n, n.ID(), n.Span().Line, n.Span().Column)
}

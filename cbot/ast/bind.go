// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package ast

import (
	"github.com/colobot/colobot-sub025/cbot/diag"
	"github.com/colobot/colobot-sub025/cbot/stack"
)

// caller is implemented by nodes that push function frames.
type caller interface {
	callee(f *stack.Frame) *Function
}

// checker is implemented by nodes whose frame counters index into their
// own children.
type checker interface {
	valid(f *stack.Frame) bool
}

func mismatch(format string, args ...interface{}) error {
	return diag.New(diag.ErrStateMismatch).Withf(format, args...)
}

// Bind checks that a restored frame tree can be resumed by the nodes of
// entry. Every frame must belong to a node its parent frame may run, and
// function frames must match the shape of their function. Bind never
// modifies the frames.
func Bind(entry *Function, root *stack.Frame) error {
	if root == nil {
		return mismatch("empty frame tree")
	}
	if !root.Boundary || root.Node != entry.ID() {
		return mismatch("root frame is not %s", entry)
	}
	var (
		n Node  = entry
		u *Unit = entry.Unit
	)
	for f := root; f != nil; f = f.Child {
		if err := check(n, f); err != nil {
			return err
		}
		c := f.Child
		if c == nil {
			break
		}
		next, nu, err := childOf(n, u, f, c)
		if err != nil {
			return err
		}
		n, u = next, nu
	}
	return nil
}

func check(n Node, f *stack.Frame) error {
	if f.State < 0 {
		return mismatch("%s: negative state", Describe(n))
	}
	for _, t := range f.Temps {
		if t == nil {
			return mismatch("%s: missing operand", Describe(n))
		}
	}
	if f.Boundary {
		fn, ok := n.(*Function)
		if !ok {
			return mismatch("%s: function frame on a statement", Describe(n))
		}
		if f.Unit != fn.Unit.Name {
			return mismatch("%s: frame of program %q", fn, f.Unit)
		}
		if len(f.Locals) != fn.Locals {
			return mismatch("%s: %d locals, want %d", fn, len(f.Locals), fn.Locals)
		}
		for i, v := range f.Locals {
			if v == nil || i >= len(fn.Slots) || fn.Slots[i] == nil {
				continue
			}
			if v.Kind() != fn.Slots[i].Kind() {
				return mismatch("%s: local %q is %s, want %s", fn, v.Name, v.Type(), fn.Slots[i])
			}
		}
		if fn.Class != nil {
			if f.This == nil || f.This.Instance() == nil || !f.This.Instance().Class.IsA(fn.Class) {
				return mismatch("%s: receiver is not a %s", fn, fn.Class.Name)
			}
		}
	} else if _, ok := n.(*Function); ok {
		return mismatch("%s: function without frame", Describe(n))
	}
	if v, ok := n.(checker); ok && !v.valid(f) {
		return mismatch("%s: bad resume point %d/%d", Describe(n), f.State, f.Count)
	}
	return nil
}

// childOf returns the node running on child frame c of f.
func childOf(n Node, u *Unit, f, c *stack.Frame) (Node, *Unit, error) {
	if c.Boundary {
		cl, ok := n.(caller)
		var fn *Function
		if ok {
			fn = cl.callee(f)
		}
		if fn == nil || c.Node != fn.ID() {
			return nil, nil, mismatch("%s: unexpected call frame", Describe(n))
		}
		return fn, fn.Unit, nil
	}
	if nw, ok := n.(*New); ok && f.State == 2 {
		inits := initsOf(nw.Class)
		if f.Count < 0 || f.Count >= int64(len(inits)) || inits[f.Count].ID() != c.Node {
			return nil, nil, mismatch("%s: unexpected initializer frame", Describe(n))
		}
		fi := inits[f.Count]
		return fi, unitOf(nw.Class, fi), nil
	}
	if u.Parent(c.Node) != n.ID() {
		return nil, nil, mismatch("%s: frame for foreign node %d", Describe(n), c.Node)
	}
	return u.Node(c.Node), u, nil
}

func inRange(i int64, n int) bool { return i >= 0 && i <= int64(n) }

func (n *Block) valid(f *stack.Frame) bool { return inRange(f.Count, len(n.Stmts)) }

func (n *For) valid(f *stack.Frame) bool {
	switch f.State {
	case 1:
		return inRange(f.Count, len(n.Init))
	case 4:
		return inRange(f.Count, len(n.Post))
	}
	return f.Count == 0
}

func (n *Switch) valid(f *stack.Frame) bool { return inRange(f.Count, len(n.Stmts)) }

func (n *Cond) valid(f *stack.Frame) bool { return f.Count == 0 || f.Count == 1 }

func (n *Try) valid(f *stack.Frame) bool {
	switch f.State {
	case 2:
		return f.Pending != nil && f.Pending.Err != nil && inRange(f.Count, len(n.Catches))
	case 3:
		return f.Count >= 0 && f.Count < int64(len(n.Catches))
	}
	return true
}

func (n *New) valid(f *stack.Frame) bool {
	if f.State < 2 {
		return true
	}
	if f.Result == nil || f.Result.Instance() == nil || f.Result.Instance().Class != n.Class {
		return false
	}
	return f.State > 2 || inRange(f.Count, len(initsOf(n.Class)))
}

func (n *MethodCall) valid(f *stack.Frame) bool {
	return len(f.Temps) == 0 || f.Temps[0].Instance() != nil
}

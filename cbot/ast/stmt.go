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
	"github.com/colobot/colobot-sub025/cbot/types"
	"github.com/colobot/colobot-sub025/cbot/value"
)

// Block runs statements in order. Frame.Count is the index of the current
// statement.
type Block struct {
	base
	Stmts []Node
}

func (n *Block) Children() []Node { return n.Stmts }

func (n *Block) Exec(f *stack.Frame, r *stack.Runner) stack.Status {
	if !enter(f, r) {
		return stack.Suspended
	}
	for f.Count < int64(len(n.Stmts)) {
		if st := run(n.Stmts[f.Count], f, r); st != stack.Done {
			return st
		}
		f.Count++
	}
	return stack.Done
}

// Decl declares one local variable. Init is nil for a plain declaration.
type Decl struct {
	base
	Name string
	Slot int
	Typ  types.Type
	Init Expr
}

func (n *Decl) Children() []Node {
	if n.Init == nil {
		return nil
	}
	return []Node{n.Init}
}

func (n *Decl) Exec(f *stack.Frame, r *stack.Runner) stack.Status {
	if !enter(f, r) {
		return stack.Suspended
	}
	v := value.Zero(n.Typ)
	v.Name = n.Name
	if n.Init != nil {
		init, st := eval(n.Init, f, r)
		if st != stack.Done {
			return st
		}
		if code := store(v, init); code != 0 {
			return fail(r, n, code)
		}
	}
	f.SetLocal(n.Slot, v)
	return stack.Done
}

// If is if (Cond) Then [else Else].
type If struct {
	base
	Cond Expr
	Then Node
	Else Node
}

func (n *If) Children() []Node { return []Node{n.Cond, n.Then, n.Else} }

func (n *If) Exec(f *stack.Frame, r *stack.Runner) stack.Status {
	if !enter(f, r) {
		return stack.Suspended
	}
	if f.State == 1 {
		c, st := eval(n.Cond, f, r)
		if st != stack.Done {
			return st
		}
		f.State = 2
		if !c.Bool() {
			f.State = 3
		}
	}
	branch := n.Then
	if f.State == 3 {
		branch = n.Else
	}
	if branch == nil {
		return stack.Done
	}
	return run(branch, f, r)
}

// ownJump reports whether st is a break or continue aimed at the loop
// labelled label and consumes its label if so. Unlabelled jumps belong to
// the innermost loop.
func ownJump(st stack.Status, label string, r *stack.Runner) bool {
	if st != stack.Break && st != stack.Continue {
		return false
	}
	if r.Label != "" && r.Label != label {
		return false
	}
	r.Label = ""
	return true
}

// While is [label:] while (Cond) Body.
type While struct {
	base
	Label string
	Cond  Expr
	Body  Node
}

func (n *While) Children() []Node { return []Node{n.Cond, n.Body} }

func (n *While) Exec(f *stack.Frame, r *stack.Runner) stack.Status {
	if !enter(f, r) {
		return stack.Suspended
	}
	for {
		if f.State == 1 {
			c, st := eval(n.Cond, f, r)
			if st != stack.Done {
				return st
			}
			if !c.Bool() {
				return stack.Done
			}
			f.State = 2
		}
		st := run(n.Body, f, r)
		switch {
		case ownJump(st, n.Label, r):
			if st == stack.Break {
				return stack.Done
			}
		case st != stack.Done:
			return st
		}
		f.State = 1
	}
}

// DoWhile is [label:] do Body while (Cond);
type DoWhile struct {
	base
	Label string
	Body  Node
	Cond  Expr
}

func (n *DoWhile) Children() []Node { return []Node{n.Body, n.Cond} }

func (n *DoWhile) Exec(f *stack.Frame, r *stack.Runner) stack.Status {
	if !enter(f, r) {
		return stack.Suspended
	}
	for {
		if f.State == 1 {
			st := run(n.Body, f, r)
			switch {
			case ownJump(st, n.Label, r):
				if st == stack.Break {
					return stack.Done
				}
			case st != stack.Done:
				return st
			}
			f.State = 2
		}
		c, st := eval(n.Cond, f, r)
		if st != stack.Done {
			return st
		}
		if !c.Bool() {
			return stack.Done
		}
		f.State = 1
	}
}

// For is [label:] for (Init; Cond; Post) Body. Any part may be empty.
type For struct {
	base
	Label string
	Init  []Node
	Cond  Expr
	Post  []Node
	Body  Node
}

func (n *For) Children() []Node {
	out := append([]Node(nil), n.Init...)
	if n.Cond != nil {
		out = append(out, n.Cond)
	}
	out = append(out, n.Post...)
	return append(out, n.Body)
}

// For states: 1 init (Count indexes Init), 2 condition, 3 body,
// 4 post (Count indexes Post).
func (n *For) Exec(f *stack.Frame, r *stack.Runner) stack.Status {
	if !enter(f, r) {
		return stack.Suspended
	}
	if f.State == 1 {
		for f.Count < int64(len(n.Init)) {
			if st := run(n.Init[f.Count], f, r); st != stack.Done {
				return st
			}
			f.Count++
		}
		f.State, f.Count = 2, 0
	}
	for {
		if f.State == 2 {
			if n.Cond != nil {
				c, st := eval(n.Cond, f, r)
				if st != stack.Done {
					return st
				}
				if !c.Bool() {
					return stack.Done
				}
			} else if !r.Step() {
				return stack.Suspended
			}
			f.State = 3
		}
		if f.State == 3 {
			st := run(n.Body, f, r)
			switch {
			case ownJump(st, n.Label, r):
				if st == stack.Break {
					return stack.Done
				}
			case st != stack.Done:
				return st
			}
			f.State, f.Count = 4, 0
		}
		for f.Count < int64(len(n.Post)) {
			if st := run(n.Post[f.Count], f, r); st != stack.Done {
				return st
			}
			f.Count++
		}
		f.State, f.Count = 2, 0
	}
}

// Repeat is [label:] repeat (N) Body. Frame.Count holds the iterations
// left.
type Repeat struct {
	base
	Label string
	N     Expr
	Body  Node
}

func (n *Repeat) Children() []Node { return []Node{n.N, n.Body} }

func (n *Repeat) Exec(f *stack.Frame, r *stack.Runner) stack.Status {
	if !enter(f, r) {
		return stack.Suspended
	}
	if f.State == 1 {
		c, st := eval(n.N, f, r)
		if st != stack.Done {
			return st
		}
		f.Count = c.Int()
		f.State = 2
	}
	for f.Count > 0 {
		st := run(n.Body, f, r)
		switch {
		case ownJump(st, n.Label, r):
			if st == stack.Break {
				return stack.Done
			}
		case st != stack.Done:
			return st
		}
		f.Count--
	}
	return stack.Done
}

// Switch is switch (X) { case v: ... default: ... }. Cases map constant
// values to statement indexes; execution falls through.
type Switch struct {
	base
	Label   string
	X       Expr
	Values  []int64
	Targets []int
	Default int // statement index, -1 when absent
	Stmts   []Node
}

func (n *Switch) Children() []Node { return append([]Node{n.X}, n.Stmts...) }

func (n *Switch) Exec(f *stack.Frame, r *stack.Runner) stack.Status {
	if !enter(f, r) {
		return stack.Suspended
	}
	if f.State == 1 {
		x, st := eval(n.X, f, r)
		if st != stack.Done {
			return st
		}
		start := n.Default
		for i, v := range n.Values {
			if v == x.Int() {
				start = n.Targets[i]
				break
			}
		}
		if start < 0 {
			return stack.Done
		}
		f.Count = int64(start)
		f.State = 2
	}
	for f.Count < int64(len(n.Stmts)) {
		st := run(n.Stmts[f.Count], f, r)
		if st == stack.Break && (r.Label == "" || r.Label == n.Label) {
			r.Label = ""
			return stack.Done
		}
		if st != stack.Done {
			return st
		}
		f.Count++
	}
	return stack.Done
}

// Jump is break or continue with an optional label.
type Jump struct {
	base
	Continue bool
	Label    string
}

func (n *Jump) Children() []Node { return nil }

func (n *Jump) Exec(f *stack.Frame, r *stack.Runner) stack.Status {
	if !enter(f, r) {
		return stack.Suspended
	}
	r.Label = n.Label
	if n.Continue {
		return stack.Continue
	}
	return stack.Break
}

// Return leaves the function, with a value unless X is nil.
type Return struct {
	base
	X Expr
}

func (n *Return) Children() []Node {
	if n.X == nil {
		return nil
	}
	return []Node{n.X}
}

func (n *Return) Exec(f *stack.Frame, r *stack.Runner) stack.Status {
	if !enter(f, r) {
		return stack.Suspended
	}
	r.Ret = nil
	if n.X != nil {
		v, st := eval(n.X, f, r)
		if st != stack.Done {
			return st
		}
		r.Ret = v.Copy()
	}
	return stack.Return
}

// Throw raises a runtime error whose code is the value of X.
type Throw struct {
	base
	X Expr
}

func (n *Throw) Children() []Node { return []Node{n.X} }

func (n *Throw) Exec(f *stack.Frame, r *stack.Runner) stack.Status {
	if !enter(f, r) {
		return stack.Suspended
	}
	v, st := eval(n.X, f, r)
	if st != stack.Done {
		return st
	}
	code := v.Int()
	if code <= 0 {
		return fail(r, n, diag.ErrBadThrow)
	}
	return fail(r, n, diag.Code(code))
}

// Catch is one catch (Cond) Body clause. A clause matches when an int
// condition equals the error code or a bool condition is true.
type Catch struct {
	Cond Expr
	Body *Block
}

// Try is try Body catch... [finally Finally].
type Try struct {
	base
	Body    *Block
	Catches []Catch
	Finally *Block
}

func (n *Try) Children() []Node {
	out := []Node{n.Body}
	for _, c := range n.Catches {
		out = append(out, c.Cond, c.Body)
	}
	if n.Finally != nil {
		out = append(out, n.Finally)
	}
	return out
}

// Try states: 1 body, 2 matching catch clause Count, 3 running catch Count,
// 4 finally. Frame.Pending holds the control flow to resume after finally.
func (n *Try) Exec(f *stack.Frame, r *stack.Runner) stack.Status {
	if !enter(f, r) {
		return stack.Suspended
	}
	if f.State == 1 {
		switch st := run(n.Body, f, r); st {
		case stack.Suspended:
			return st
		case stack.Done:
			f.State = 4
		case stack.Error:
			f.Pending = r.Capture(st)
			f.State, f.Count = 2, 0
		default:
			f.Pending = r.Capture(st)
			f.State = 4
		}
	}
	if f.State == 2 {
		for f.Count < int64(len(n.Catches)) {
			cl := n.Catches[f.Count]
			c, st := eval(cl.Cond, f, r)
			if st != stack.Done {
				return st
			}
			if matches(c, f.Pending.Err) {
				f.Pending = nil
				f.State = 3
				break
			}
			f.Count++
		}
		if f.State == 2 {
			f.State = 4
		}
	}
	if f.State == 3 {
		switch st := run(n.Catches[f.Count].Body, f, r); st {
		case stack.Suspended:
			return st
		case stack.Done:
		default:
			f.Pending = r.Capture(st)
		}
		f.State = 4
	}
	if n.Finally != nil {
		if st := run(n.Finally, f, r); st != stack.Done {
			if st != stack.Suspended {
				f.Pending = nil
			}
			return st
		}
	}
	if u := f.Pending; u != nil {
		f.Pending = nil
		return r.Release(u)
	}
	return stack.Done
}

func matches(c *value.Var, err *diag.Error) bool {
	if err == nil {
		return false
	}
	if c.Kind() == types.KindBool {
		return c.Bool()
	}
	return c.Int() == int64(err.Code)
}

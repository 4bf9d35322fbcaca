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
	"github.com/colobot/colobot-sub025/cbot/native"
	"github.com/colobot/colobot-sub025/cbot/stack"
	"github.com/colobot/colobot-sub025/cbot/types"
	"github.com/colobot/colobot-sub025/cbot/value"
)

// invoke runs fn on a function frame below f, creating the frame on first
// entry. The call depth limit is checked only when a frame is created.
func invoke(n Node, fn *Function, f *stack.Frame, r *stack.Runner, args []*value.Var, this *value.Var) (*value.Var, stack.Status) {
	c := f.Child
	if c == nil || !c.Boundary || c.Node != fn.ID() {
		if r.MaxDepth > 0 && f.Depth() >= r.MaxDepth {
			return nil, fail(r, n, diag.ErrStackOverflow)
		}
		c = fn.NewFrame(f, args, this)
	}
	st := fn.Exec(c, r)
	if st == stack.Suspended {
		return nil, st
	}
	f.Pop()
	if st != stack.Done {
		return nil, st
	}
	return c.Result, st
}

func exprNodes(xs []Expr) []Node {
	out := make([]Node, len(xs))
	for i, x := range xs {
		out[i] = x
	}
	return out
}

// Call calls a script function bound at compile time, possibly one made
// public by another program of the group.
type Call struct {
	base
	Fn   *Function
	Args []Expr
}

func (n *Call) Type() types.Type { return n.Fn.Return }
func (n *Call) Children() []Node { return exprNodes(n.Args) }

func (n *Call) Exec(f *stack.Frame, r *stack.Runner) stack.Status {
	if !enter(f, r) {
		return stack.Suspended
	}
	if ok, st := temps(n.Args, f, r); !ok {
		return st
	}
	res, st := invoke(n, n.Fn, f, r, f.Temps, nil)
	if st != stack.Done {
		return st
	}
	f.Temps = nil
	f.Result = res
	return stack.Done
}

func (n *Call) callee(*stack.Frame) *Function { return n.Fn }

// MethodCall calls a method on Recv (nil means this). Virtual calls
// resolve Key on the dynamic class of the receiver; others call Method.
type MethodCall struct {
	base
	Recv    Expr
	Key     string
	Method  *types.Method
	Virtual bool
	Args    []Expr
}

func (n *MethodCall) Type() types.Type { return n.Method.Return }

func (n *MethodCall) Children() []Node {
	out := exprNodes(n.Args)
	if n.Recv != nil {
		out = append([]Node{n.Recv}, out...)
	}
	return out
}

func (n *MethodCall) Exec(f *stack.Frame, r *stack.Runner) stack.Status {
	if !enter(f, r) {
		return stack.Suspended
	}
	if len(f.Temps) == 0 {
		recv := f.Func().This
		if n.Recv != nil {
			v, st := eval(n.Recv, f, r)
			if st != stack.Done {
				return st
			}
			recv = v
		}
		if recv == nil || recv.Instance() == nil {
			return fail(r, n, diag.ErrNull)
		}
		f.Temps = append(f.Temps, recv.Copy())
	}
	for len(f.Temps) < len(n.Args)+1 {
		v, st := eval(n.Args[len(f.Temps)-1], f, r)
		if st != stack.Done {
			return st
		}
		f.Temps = append(f.Temps, v.Copy())
	}
	fn := n.callee(f)
	if fn == nil {
		return fail(r, n, diag.ErrUndefRuntime)
	}
	res, st := invoke(n, fn, f, r, f.Temps[1:], f.Temps[0])
	if st != stack.Done {
		return st
	}
	f.Temps = nil
	f.Result = res
	return stack.Done
}

// callee returns the implementation selected for the receiver in Temps.
func (n *MethodCall) callee(f *stack.Frame) *Function {
	m := n.Method
	if n.Virtual {
		if len(f.Temps) == 0 || f.Temps[0].Instance() == nil {
			return nil
		}
		m = f.Temps[0].Instance().Class.Resolve(n.Key)
	}
	if m == nil {
		return nil
	}
	fn, _ := m.Impl.(*Function)
	return fn
}

// NativeCall calls a host function. The call stays suspended while the
// host reports it unfinished; its arguments are kept in the frame between
// polls.
type NativeCall struct {
	base
	Func *native.Func
	Args []Expr
	Typ  types.Type
}

func (n *NativeCall) Type() types.Type { return n.Typ }
func (n *NativeCall) Children() []Node { return exprNodes(n.Args) }

func (n *NativeCall) Exec(f *stack.Frame, r *stack.Runner) stack.Status {
	if !enter(f, r) {
		return stack.Suspended
	}
	if ok, st := temps(n.Args, f, r); !ok {
		return st
	}
	if f.Result == nil {
		f.Result = value.MakeVar(n.Typ)
	}
	done, err := n.Func.Call(f.Temps, f.Result, r.User)
	if err != nil {
		return failErr(r, n, err)
	}
	if !done {
		return stack.Suspended
	}
	f.Temps = nil
	return stack.Done
}

// New allocates an instance, runs the field initializers of its class
// chain and then the constructor, if any. Frame.Count is the index of the
// next initializer; Frame.Result holds the object under construction.
type New struct {
	base
	Class *types.Class
	Ctor  *Function
	Args  []Expr
}

func (n *New) Type() types.Type { return types.PointerTo(n.Class) }
func (n *New) Children() []Node { return exprNodes(n.Args) }

// New states: 1 arguments, 2 initializers, 3 constructor.
func (n *New) Exec(f *stack.Frame, r *stack.Runner) stack.Status {
	if !enter(f, r) {
		return stack.Suspended
	}
	if f.State == 1 {
		if ok, st := temps(n.Args, f, r); !ok {
			return st
		}
		obj := value.MakeVar(types.PointerTo(n.Class))
		obj.SetInstance(value.NewInstance(n.Class))
		f.Result = obj
		f.State, f.Count = 2, 0
	}
	obj := f.Result.Instance()
	if f.State == 2 {
		inits := initsOf(n.Class)
		for f.Count < int64(len(inits)) {
			fi := inits[f.Count]
			v, st := eval(fi, f, r)
			if st != stack.Done {
				return st
			}
			if code := store(obj.Fields[fi.Index], v); code != 0 {
				return fail(r, fi, code)
			}
			f.Count++
		}
		f.State = 3
	}
	if n.Ctor != nil {
		if _, st := invoke(n, n.Ctor, f, r, f.Temps, f.Result); st != stack.Done {
			return st
		}
	}
	f.Temps = nil
	return stack.Done
}

func (n *New) callee(f *stack.Frame) *Function {
	if f.State == 3 {
		return n.Ctor
	}
	return nil
}

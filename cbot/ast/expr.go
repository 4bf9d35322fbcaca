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
	"github.com/colobot/colobot-sub025/cbot/token"
	"github.com/colobot/colobot-sub025/cbot/types"
	"github.com/colobot/colobot-sub025/cbot/value"
)

// Expression results of variable references are the storage variables
// themselves; nodes that keep an operand across a suspension point store a
// copy in Frame.Temps.

// temps evaluates the next operand of a node whose operands are gathered in
// f.Temps. It reports true once every operand is present.
func temps(ops []Expr, f *stack.Frame, r *stack.Runner) (bool, stack.Status) {
	for len(f.Temps) < len(ops) {
		v, st := eval(ops[len(f.Temps)], f, r)
		if st != stack.Done {
			return false, st
		}
		f.Temps = append(f.Temps, v.Copy())
	}
	return true, stack.Done
}

// ---- Leaves ----------------------------------------------------------------

// Literal is a constant.
type Literal struct {
	base
	Value *value.Var
}

func (n *Literal) Type() types.Type { return n.Value.Type() }
func (n *Literal) Children() []Node { return nil }

func (n *Literal) Exec(f *stack.Frame, r *stack.Runner) stack.Status {
	if !enter(f, r) {
		return stack.Suspended
	}
	f.Result = n.Value.Copy()
	return stack.Done
}

// Local reads or designates a local variable or parameter.
type Local struct {
	base
	Name  string
	Slot  int
	Typ   types.Type
	Write bool // assignment target: may be undefined
}

func (n *Local) Type() types.Type { return n.Typ }
func (n *Local) Children() []Node { return nil }

func (n *Local) Exec(f *stack.Frame, r *stack.Runner) stack.Status {
	if !enter(f, r) {
		return stack.Suspended
	}
	v := f.Local(n.Slot)
	if v == nil || (!n.Write && !v.IsDefined()) {
		return fail(r, n, diag.ErrNotInit)
	}
	f.Result = v
	return stack.Done
}

// Static designates a class static field.
type Static struct {
	base
	Name string
	Var  *value.Var
}

func (n *Static) Type() types.Type { return n.Var.Type() }
func (n *Static) Children() []Node { return nil }

func (n *Static) Exec(f *stack.Frame, r *stack.Runner) stack.Status {
	if !enter(f, r) {
		return stack.Suspended
	}
	f.Result = n.Var
	return stack.Done
}

// This is the receiver of the running method.
type This struct {
	base
	Typ types.Type
}

func (n *This) Type() types.Type { return n.Typ }
func (n *This) Children() []Node { return nil }

func (n *This) Exec(f *stack.Frame, r *stack.Runner) stack.Status {
	if !enter(f, r) {
		return stack.Suspended
	}
	this := f.Func().This
	if this == nil || this.Instance() == nil {
		return fail(r, n, diag.ErrNull)
	}
	f.Result = this
	return stack.Done
}

// Field designates an instance field. X nil means this.
type Field struct {
	base
	X     Expr
	Index int
	Name  string
	Typ   types.Type
	Write bool
}

func (n *Field) Type() types.Type { return n.Typ }

func (n *Field) Children() []Node {
	if n.X == nil {
		return nil
	}
	return []Node{n.X}
}

func (n *Field) Exec(f *stack.Frame, r *stack.Runner) stack.Status {
	if !enter(f, r) {
		return stack.Suspended
	}
	recv := f.Func().This
	if n.X != nil {
		v, st := eval(n.X, f, r)
		if st != stack.Done {
			return st
		}
		recv = v
	}
	if recv == nil || recv.Instance() == nil {
		return fail(r, n, diag.ErrNull)
	}
	obj := recv.Instance()
	if n.Index >= len(obj.Fields) {
		return fail(r, n, diag.ErrStateMismatch)
	}
	fv := obj.Fields[n.Index]
	if !n.Write && !fv.IsDefined() {
		return fail(r, n, diag.ErrNotInit)
	}
	f.Result = fv
	return stack.Done
}

// Index designates an array element. Writes grow the array up to its
// limit; reads past the end fail.
type Index struct {
	base
	X, I  Expr
	Typ   types.Type
	Write bool
}

func (n *Index) Type() types.Type { return n.Typ }
func (n *Index) Children() []Node { return []Node{n.X, n.I} }

func (n *Index) Exec(f *stack.Frame, r *stack.Runner) stack.Status {
	if !enter(f, r) {
		return stack.Suspended
	}
	if ok, st := temps([]Expr{n.X}, f, r); !ok {
		return st
	}
	i, st := eval(n.I, f, r)
	if st != stack.Done {
		return st
	}
	arr := f.Temps[0].Array()
	if arr == nil {
		return fail(r, n, diag.ErrNull)
	}
	var (
		v   *value.Var
		err error
	)
	if n.Write {
		v, err = arr.Slot(i.Int())
	} else {
		v, err = arr.Index(i.Int())
	}
	if err != nil {
		return failErr(r, n, err)
	}
	if !n.Write && !v.IsDefined() {
		return fail(r, n, diag.ErrNotInit)
	}
	f.Result = v
	return stack.Done
}

// Sizeof returns the number of elements of an array.
type Sizeof struct {
	base
	X Expr
}

func (n *Sizeof) Type() types.Type { return types.Int }
func (n *Sizeof) Children() []Node { return []Node{n.X} }

func (n *Sizeof) Exec(f *stack.Frame, r *stack.Runner) stack.Status {
	if !enter(f, r) {
		return stack.Suspended
	}
	v, st := eval(n.X, f, r)
	if st != stack.Done {
		return st
	}
	size := 0
	if a := v.Array(); a != nil {
		size = a.Len()
	}
	f.Result = value.NewInt(int64(size))
	return stack.Done
}

// ---- Operators -------------------------------------------------------------

// Unary is -x, !x or ~x.
type Unary struct {
	base
	Op  token.Type
	X   Expr
	Typ types.Type
}

func (n *Unary) Type() types.Type { return n.Typ }
func (n *Unary) Children() []Node { return []Node{n.X} }

func (n *Unary) Exec(f *stack.Frame, r *stack.Runner) stack.Status {
	if !enter(f, r) {
		return stack.Suspended
	}
	v, st := eval(n.X, f, r)
	if st != stack.Done {
		return st
	}
	f.Result = negate(n.Op, n.Typ, v)
	return stack.Done
}

// Binary is an arithmetic, bitwise, shift, comparison or concatenation
// operator. OpType is the type operands are computed in.
type Binary struct {
	base
	Op     token.Type
	X, Y   Expr
	OpType types.Type
	Typ    types.Type
}

func (n *Binary) Type() types.Type { return n.Typ }
func (n *Binary) Children() []Node { return []Node{n.X, n.Y} }

func (n *Binary) Exec(f *stack.Frame, r *stack.Runner) stack.Status {
	if !enter(f, r) {
		return stack.Suspended
	}
	if ok, st := temps([]Expr{n.X}, f, r); !ok {
		return st
	}
	y, st := eval(n.Y, f, r)
	if st != stack.Done {
		return st
	}
	res, code := compute(n.Op, n.OpType, f.Temps[0], y)
	if code != 0 {
		return fail(r, n, code)
	}
	f.Temps = nil
	f.Result = res
	return stack.Done
}

// Logical is && or || with short circuit.
type Logical struct {
	base
	Op   token.Type
	X, Y Expr
}

func (n *Logical) Type() types.Type { return types.Bool }
func (n *Logical) Children() []Node { return []Node{n.X, n.Y} }

func (n *Logical) Exec(f *stack.Frame, r *stack.Runner) stack.Status {
	if !enter(f, r) {
		return stack.Suspended
	}
	if f.State == 1 {
		x, st := eval(n.X, f, r)
		if st != stack.Done {
			return st
		}
		b := x.Bool()
		if (n.Op == token.AND && !b) || (n.Op == token.OR && b) {
			f.Result = value.NewBool(b)
			return stack.Done
		}
		f.State = 2
	}
	y, st := eval(n.Y, f, r)
	if st != stack.Done {
		return st
	}
	f.Result = value.NewBool(y.Bool())
	return stack.Done
}

// Cond is c ? a : b.
type Cond struct {
	base
	C, A, B Expr
	Typ     types.Type
}

func (n *Cond) Type() types.Type { return n.Typ }
func (n *Cond) Children() []Node { return []Node{n.C, n.A, n.B} }

func (n *Cond) Exec(f *stack.Frame, r *stack.Runner) stack.Status {
	if !enter(f, r) {
		return stack.Suspended
	}
	if f.State == 1 {
		c, st := eval(n.C, f, r)
		if st != stack.Done {
			return st
		}
		f.Count = 0
		if !c.Bool() {
			f.Count = 1
		}
		f.State = 2
	}
	branch := n.A
	if f.Count == 1 {
		branch = n.B
	}
	v, st := eval(branch, f, r)
	if st != stack.Done {
		return st
	}
	f.Result = v.As(n.Typ)
	return stack.Done
}

// Assign is target = value or a compound assignment. The value is
// evaluated before the target so that the designated variable is used in
// the same step it is obtained.
type Assign struct {
	base
	Op     token.Type
	Target Expr
	Value  Expr
	OpType types.Type // compound assignments compute in this type
}

func (n *Assign) Type() types.Type { return n.Target.Type() }
func (n *Assign) Children() []Node { return []Node{n.Target, n.Value} }

func (n *Assign) Exec(f *stack.Frame, r *stack.Runner) stack.Status {
	if !enter(f, r) {
		return stack.Suspended
	}
	if ok, st := temps([]Expr{n.Value}, f, r); !ok {
		return st
	}
	dst, st := eval(n.Target, f, r)
	if st != stack.Done {
		return st
	}
	src := f.Temps[0]
	if n.Op != token.ASSIGN {
		if !dst.IsDefined() {
			return fail(r, n, diag.ErrNotInit)
		}
		res, code := compute(BaseOp(n.Op), n.OpType, dst, src)
		if code != 0 {
			return fail(r, n, code)
		}
		src = res
	}
	if code := store(dst, src); code != 0 {
		return fail(r, n, code)
	}
	f.Temps = nil
	f.Result = dst.Copy()
	return stack.Done
}

// IncDec is ++x, --x, x++ or x--.
type IncDec struct {
	base
	Op     token.Type
	Prefix bool
	Target Expr
}

func (n *IncDec) Type() types.Type { return n.Target.Type() }
func (n *IncDec) Children() []Node { return []Node{n.Target} }

func (n *IncDec) Exec(f *stack.Frame, r *stack.Runner) stack.Status {
	if !enter(f, r) {
		return stack.Suspended
	}
	v, st := eval(n.Target, f, r)
	if st != stack.Done {
		return st
	}
	if !v.IsDefined() {
		return fail(r, n, diag.ErrNotInit)
	}
	old := v.Copy()
	delta := int64(1)
	if n.Op == token.DEC {
		delta = -1
	}
	if v.Kind().IsFloating() {
		v.SetFloat(v.Float() + float64(delta))
	} else {
		v.SetInt(v.Int() + delta)
	}
	if n.Prefix {
		f.Result = v.Copy()
	} else {
		f.Result = old
	}
	return stack.Done
}

// InstanceOf tests the dynamic class of a reference.
type InstanceOf struct {
	base
	X     Expr
	Class *types.Class
}

func (n *InstanceOf) Type() types.Type { return types.Bool }
func (n *InstanceOf) Children() []Node { return []Node{n.X} }

func (n *InstanceOf) Exec(f *stack.Frame, r *stack.Runner) stack.Status {
	if !enter(f, r) {
		return stack.Suspended
	}
	v, st := eval(n.X, f, r)
	if st != stack.Done {
		return st
	}
	f.Result = value.NewBool(value.IsInstanceOf(v, n.Class))
	return stack.Done
}

// InitList builds an array from {a, b, ...}.
type InitList struct {
	base
	Typ   *types.ArrayType
	Elems []Expr
}

func (n *InitList) Type() types.Type { return n.Typ }

func (n *InitList) Children() []Node { return exprNodes(n.Elems) }

func (n *InitList) Exec(f *stack.Frame, r *stack.Runner) stack.Status {
	if !enter(f, r) {
		return stack.Suspended
	}
	if ok, st := temps(n.Elems, f, r); !ok {
		return st
	}
	arr := value.NewArray(n.Typ)
	for _, v := range f.Temps {
		if err := arr.Append(v); err != nil {
			return failErr(r, n, err)
		}
	}
	out := value.MakeVar(n.Typ)
	out.SetArray(arr)
	f.Temps = nil
	f.Result = out
	return stack.Done
}

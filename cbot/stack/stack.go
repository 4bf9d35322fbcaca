// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package stack implements the resumable execution stack of the CBot
// interpreter.
//
// Design principles:
//   - A Frame is plain data: the id of the node running on it, an integer
//     resume point, the values it has produced so far and at most one child
//     frame. No frame points into the AST, so a frame tree can be written
//     out and read back without the program that produced it.
//   - Every executable node takes one unit of the Runner's budget before it
//     has any effect. When the budget is exhausted the node returns
//     Suspended untouched and the whole chain unwinds to the host; the next
//     resume re-enters the same frames at the same resume points.
//   - Non-local control flow (break, continue, return, runtime errors) is a
//     Status returned up the chain, with its payload parked on the Runner.
package stack

import (
	"errors"
	"fmt"

	"github.com/colobot/colobot-sub025/cbot/diag"
	"github.com/colobot/colobot-sub025/cbot/value"
)

// ErrNoRoot is returned when a frame tree is requested before one exists.
var ErrNoRoot = errors.New("stack: no frame tree")

// Status is the outcome of executing a node on a frame.
type Status uint8

const (
	Done      Status = iota // finished; the value, if any, is in Frame.Result
	Suspended               // not finished; re-enter the same frame later
	Break                   // a break statement is unwinding (label on Runner)
	Continue                // a continue statement is unwinding (label on Runner)
	Return                  // a return statement is unwinding (value on Runner)
	Error                   // a runtime error is unwinding (error on Runner)
)

var statusNames = [...]string{"done", "suspended", "break", "continue", "return", "error"}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("status(%d)", s)
}

// Unwind holds control flow interrupted by a finally block: the status that
// was unwinding and its payload.
type Unwind struct {
	Status Status
	Label  string
	Ret    *value.Var
	Err    *diag.Error
}

// Frame is the resumable execution record of one node.
type Frame struct {
	Node  int // id of the node executing on this frame
	State int // resume point owned by the node

	// Count is a general purpose counter: statement index of a block, loop
	// iteration, selected catch clause.
	Count int64

	Temps  []*value.Var // operands and arguments evaluated so far
	Result *value.Var
	Child  *Frame

	// Function frames only.
	Boundary bool
	Unit     string       // name of the program owning the function
	Locals   []*value.Var // indexed by slot; nil until the declaration runs
	This     *value.Var

	// Pending is control flow held while a finally block runs.
	Pending *Unwind

	parent *Frame
	fn     *Frame
	depth  int
}

// NewCall creates the root frame of a function invocation with room for
// locals variable slots.
func NewCall(node int, unit string, locals int) *Frame {
	f := &Frame{Node: node, Boundary: true, Unit: unit, Locals: make([]*value.Var, locals)}
	f.fn = f
	f.depth = 1
	return f
}

// Push replaces the child of f with a fresh frame for node.
func (f *Frame) Push(node int) *Frame {
	c := &Frame{Node: node, parent: f, fn: f.fn, depth: f.depth}
	f.Child = c
	return c
}

// PushCall replaces the child of f with a function frame.
func (f *Frame) PushCall(node int, unit string, locals int) *Frame {
	c := NewCall(node, unit, locals)
	c.parent = f
	c.depth = f.depth + 1
	f.Child = c
	return c
}

// Enter returns the child frame for node, creating it unless the existing
// child already belongs to node.
func (f *Frame) Enter(node int) *Frame {
	if f.Child != nil && f.Child.Node == node && !f.Child.Boundary {
		return f.Child
	}
	return f.Push(node)
}

// Pop discards the child frame.
func (f *Frame) Pop() { f.Child = nil }

// Parent returns the enclosing frame, nil for a root.
func (f *Frame) Parent() *Frame { return f.parent }

// Func returns the function frame the node runs in.
func (f *Frame) Func() *Frame { return f.fn }

// Depth returns the number of function frames from the root to f.
func (f *Frame) Depth() int { return f.depth }

// Local returns the variable in slot i of the enclosing function.
func (f *Frame) Local(i int) *value.Var {
	if f.fn == nil || i < 0 || i >= len(f.fn.Locals) {
		return nil
	}
	return f.fn.Locals[i]
}

// SetLocal binds slot i of the enclosing function.
func (f *Frame) SetLocal(i int, v *value.Var) {
	f.fn.Locals[i] = v
}

// Reset clears the per-run state of f so that its node can start over,
// as loops do with their body frames.
func (f *Frame) Reset() {
	f.State, f.Count = 0, 0
	f.Temps, f.Result, f.Child, f.Pending = nil, nil, nil, nil
}

// Leaf returns the innermost frame of the tree rooted at f.
func (f *Frame) Leaf() *Frame {
	for f.Child != nil {
		f = f.Child
	}
	return f
}

// Relink rebuilds the parent, function and depth links of a tree that was
// assembled by hand or read from a saved state.
func (f *Frame) Relink() {
	if f.Boundary {
		f.fn, f.depth = f, 1
	}
	for p, c := f, f.Child; c != nil; p, c = c, c.Child {
		c.parent = p
		if c.Boundary {
			c.fn, c.depth = c, p.depth+1
		} else {
			c.fn, c.depth = p.fn, p.depth
		}
	}
}

// ---- Runner ----------------------------------------------------------------

// Unlimited disables budget accounting.
const Unlimited = -1

// Runner carries the per-run state threaded through every Exec call.
type Runner struct {
	budget int
	steps  uint64

	err *diag.Error

	// Label names the loop targeted by a break or continue in flight.
	Label string

	// Ret is the value of a return statement in flight.
	Ret *value.Var

	// MaxDepth bounds the number of nested function frames.
	MaxDepth int

	// User is handed to native functions.
	User interface{}
}

// NewRunner returns a runner with an unlimited budget.
func NewRunner(maxDepth int) *Runner {
	return &Runner{budget: Unlimited, MaxDepth: maxDepth}
}

// SetBudget sets the number of steps allowed before execution suspends.
func (r *Runner) SetBudget(n int) { r.budget = n }

// Budget returns the steps left, or Unlimited.
func (r *Runner) Budget() int { return r.budget }

// Steps returns the total number of steps taken.
func (r *Runner) Steps() uint64 { return r.steps }

// Step consumes one unit of budget. It reports false when the budget is
// exhausted; the caller must then return Suspended without side effects.
func (r *Runner) Step() bool {
	if r.budget == 0 {
		return false
	}
	if r.budget > 0 {
		r.budget--
	}
	r.steps++
	return true
}

// Fail records a runtime error and returns the Error status.
func (r *Runner) Fail(err *diag.Error) Status {
	r.err = err
	return Error
}

// Err returns the runtime error in flight.
func (r *Runner) Err() *diag.Error { return r.err }

// Recover clears and returns the error in flight.
func (r *Runner) Recover() *diag.Error {
	err := r.err
	r.err = nil
	return err
}

// Capture moves the unwinding payload of st off the runner.
func (r *Runner) Capture(st Status) *Unwind {
	u := &Unwind{Status: st}
	switch st {
	case Break, Continue:
		u.Label, r.Label = r.Label, ""
	case Return:
		u.Ret, r.Ret = r.Ret, nil
	case Error:
		u.Err = r.Recover()
	}
	return u
}

// Release puts a captured payload back and returns its status.
func (r *Runner) Release(u *Unwind) Status {
	switch u.Status {
	case Break, Continue:
		r.Label = u.Label
	case Return:
		r.Ret = u.Ret
	case Error:
		r.err = u.Err
	}
	return u.Status
}

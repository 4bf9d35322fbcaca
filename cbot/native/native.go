// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package native is the bridge between scripts and host functions.
//
// A host function is registered by name with two callbacks. The check
// callback runs at compile time for every call site and receives the
// argument types as a chain of empty variables; it returns the result type
// or rejects the call. The exec callback runs when the call executes and
// receives the argument values as a chain; it fills result and reports
// whether the call finished. A call that is not finished is polled again on
// the next resume of the program.
package native

import (
	"errors"
	"fmt"
	"sort"

	"github.com/colobot/colobot-sub025/cbot/diag"
	"github.com/colobot/colobot-sub025/cbot/types"
	"github.com/colobot/colobot-sub025/cbot/value"
)

var (
	// ErrDuplicate is returned when a name is registered twice.
	ErrDuplicate = errors.New("native: function already registered")

	// ErrMissingCallback is returned when a callback is nil.
	ErrMissingCallback = errors.New("native: missing callback")
)

// CheckFunc validates a call site. args is the head of the argument chain
// (nil for no arguments); each element carries only a type.
type CheckFunc func(args *value.Var, user interface{}) (types.Type, error)

// ExecFunc executes a call. It returns false to be polled again later.
type ExecFunc func(args *value.Var, result *value.Var, user interface{}) (bool, error)

// Func is a registered host function.
type Func struct {
	Name  string
	Check CheckFunc
	Exec  ExecFunc
}

// Registry maps names to host functions. Registries nest like class
// registries.
type Registry struct {
	parent *Registry
	funcs  map[string]*Func
}

// NewRegistry creates a registry layered over parent (which may be nil).
func NewRegistry(parent *Registry) *Registry {
	return &Registry{parent: parent, funcs: make(map[string]*Func)}
}

// Register adds a host function.
func (r *Registry) Register(name string, check CheckFunc, exec ExecFunc) error {
	if check == nil || exec == nil {
		return fmt.Errorf("%w: %s", ErrMissingCallback, name)
	}
	if r.Lookup(name) != nil {
		return fmt.Errorf("%w: %s", ErrDuplicate, name)
	}
	r.funcs[name] = &Func{Name: name, Check: check, Exec: exec}
	return nil
}

// Lookup returns the named function, or nil.
func (r *Registry) Lookup(name string) *Func {
	for reg := r; reg != nil; reg = reg.parent {
		if f, ok := reg.funcs[name]; ok {
			return f
		}
	}
	return nil
}

// Names lists every visible function name, sorted.
func (r *Registry) Names() []string {
	seen := make(map[string]bool)
	var out []string
	for reg := r; reg != nil; reg = reg.parent {
		for name := range reg.funcs {
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	sort.Strings(out)
	return out
}

// Compile runs the check callback against the argument types of a call
// site. Rejections become compile diagnostics; the default code is
// ErrBadParam.
func (f *Func) Compile(params []types.Type, user interface{}) (types.Type, *diag.Error) {
	args := make([]*value.Var, len(params))
	for i, t := range params {
		args[i] = value.MakeVar(t)
	}
	ret, err := f.Check(value.Chain(args...), user)
	if err != nil {
		return nil, toDiag(err, diag.ErrBadParam)
	}
	if ret == nil {
		ret = types.Void
	}
	return ret, nil
}

// Call runs the exec callback. Errors become runtime diagnostics; the
// default code is ErrNative.
func (f *Func) Call(args []*value.Var, result *value.Var, user interface{}) (bool, *diag.Error) {
	done, err := f.Exec(value.Chain(args...), result, user)
	if err != nil {
		return true, toDiag(err, diag.ErrNative)
	}
	return done, nil
}

func toDiag(err error, fallback diag.Code) *diag.Error {
	var d *diag.Error
	if errors.As(err, &d) {
		return d
	}
	return diag.New(fallback).Withf("%v", err)
}

// Fail returns an error carrying code, for use by callbacks.
func Fail(code diag.Code) error { return diag.New(code) }

// Failf returns an error carrying code and a detail message.
func Failf(code diag.Code, format string, args ...interface{}) error {
	return diag.New(code).Withf(format, args...)
}

// ---- Check helpers ---------------------------------------------------------

// Signature returns a check callback accepting exactly the given parameter
// types (numeric arguments convert) and returning ret.
func Signature(ret types.Type, params ...types.Type) CheckFunc {
	return func(args *value.Var, _ interface{}) (types.Type, error) {
		i := 0
		for a := args; a != nil; a = a.Next() {
			if i >= len(params) {
				return nil, Failf(diag.ErrBadParam, "too many arguments")
			}
			if !types.Assignable(params[i], a.Type()) {
				return nil, Failf(diag.ErrBadParam, "argument %d: %s is not %s", i+1, a.Type(), params[i])
			}
			i++
		}
		if i < len(params) {
			return nil, Failf(diag.ErrBadParam, "too few arguments")
		}
		return ret, nil
	}
}

// Variadic returns a check callback accepting at least min arguments of
// any type and returning ret.
func Variadic(ret types.Type, min int) CheckFunc {
	return func(args *value.Var, _ interface{}) (types.Type, error) {
		n := len(value.Unchain(args))
		if n < min {
			return nil, Failf(diag.ErrBadParam, "want at least %d arguments, got %d", min, n)
		}
		for a := args; a != nil; a = a.Next() {
			if a.Kind() == types.KindVoid {
				return nil, Failf(diag.ErrBadParam, "void argument")
			}
		}
		return ret, nil
	}
}

// Args returns the argument chain as a slice.
func Args(head *value.Var) []*value.Var { return value.Unchain(head) }

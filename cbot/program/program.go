// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package program

import (
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/google/uuid"

	"github.com/colobot/colobot-sub025/cbot/ast"
	"github.com/colobot/colobot-sub025/cbot/compiler"
	"github.com/colobot/colobot-sub025/cbot/diag"
	"github.com/colobot/colobot-sub025/cbot/native"
	"github.com/colobot/colobot-sub025/cbot/stack"
	"github.com/colobot/colobot-sub025/cbot/types"
	"github.com/colobot/colobot-sub025/cbot/value"
	"github.com/colobot/colobot-sub025/log"
)

var (
	// ErrNotCompiled is returned when a program without code is started.
	ErrNotCompiled = errors.New("program: not compiled")

	// ErrNotRunning is returned when a stopped program is resumed or saved.
	ErrNotRunning = errors.New("program: not running")
)

// Program is one compiled script and its execution state. A program is
// driven by a single goroutine at a time.
type Program struct {
	id    uuid.UUID
	name  string
	group *Group

	classes *types.Registry  // private classes, over the group registry
	natives *native.Registry // private host functions, over the group's

	source string
	sum    [32]byte
	unit   *ast.Unit

	this *value.Var
	user interface{}

	entry  *ast.Function
	root   *stack.Frame
	runner *stack.Runner
	result *value.Var
	err    *diag.Error

	log log.Logger
}

func newProgram(g *Group, name string) *Program {
	id := uuid.New()
	return &Program{
		id:      id,
		name:    name,
		group:   g,
		classes: types.NewRegistry(g.classes),
		natives: native.NewRegistry(g.natives),
		log:     log.New("program", name, "id", id.String()[:8]),
	}
}

// ID returns the unique identifier of the program instance.
func (p *Program) ID() uuid.UUID { return p.id }

// Name returns the program name.
func (p *Program) Name() string { return p.name }

// Group returns the owning group.
func (p *Program) Group() *Group { return p.group }

// Source returns the text of the last compilation.
func (p *Program) Source() string { return p.source }

// Unit returns the compiled code, nil before a successful Compile.
func (p *Program) Unit() *ast.Unit { return p.unit }

// Register adds a host function visible to this program only.
func (p *Program) Register(name string, check native.CheckFunc, exec native.ExecFunc) error {
	return p.natives.Register(name, check, exec)
}

// SetThis sets the object bound to functions declared as Class::name.
func (p *Program) SetThis(v *value.Var) { p.this = v }

// This returns the bound object.
func (p *Program) This() *value.Var { return p.this }

// SetUser sets the value handed to host function callbacks.
func (p *Program) SetUser(user interface{}) {
	p.user = user
	if p.runner != nil {
		p.runner.User = user
	}
}

// Compile replaces the code of the program. Running code is stopped and
// the classes and public functions of the previous compilation are
// withdrawn from the group. On failure the program has no code and the
// returned error is a *diag.Error.
func (p *Program) Compile(source string) error {
	p.Stop()
	p.withdraw()
	p.err = nil

	sum := fingerprint(source)
	toks := p.group.tokenize(sum, source)
	unit, err := compiler.Compile(toks, compiler.Options{
		Name:    p.name,
		Classes: p.classes,
		Shared:  p.group.classes,
		Natives: p.natives,
		Publics: p.group,
		User:    p.user,
	})
	if err != nil {
		p.err, _ = err.(*diag.Error)
		p.log.Debug("Compilation failed", "err", err)
		return err
	}
	p.source, p.sum, p.unit = source, sum, unit
	p.log.Debug("Compiled program", "functions", len(unit.Functions), "classes", len(unit.Classes), "nodes", unit.Len())
	return nil
}

// withdraw removes the classes of the current unit from the registries.
func (p *Program) withdraw() {
	if p.unit == nil {
		return
	}
	for _, c := range p.unit.Classes {
		if c.Public {
			p.group.classes.Remove(c.Name)
		} else {
			p.classes.Remove(c.Name)
		}
	}
	p.unit = nil
}

// Functions lists the signatures of every function and method.
func (p *Program) Functions() []string {
	if p.unit == nil {
		return nil
	}
	out := make([]string, 0, len(p.unit.Functions))
	for _, fn := range p.unit.Functions {
		out = append(out, fn.FullKey())
	}
	return out
}

// Externs lists the names of the functions marked extern, which hosts
// offer as entry points.
func (p *Program) Externs() []string {
	if p.unit == nil {
		return nil
	}
	var out []string
	for _, fn := range p.unit.Functions {
		if fn.Extern {
			out = append(out, fn.Name)
		}
	}
	return out
}

// entryPoint finds a startable function by signature key ("main()",
// "Bot::go()") or by name. Entry points take no parameters.
func (p *Program) entryPoint(name string) *ast.Function {
	if fn := p.unit.Function(name); fn != nil && len(fn.Params) == 0 && fn.Method == nil && !fn.Ctor {
		return fn
	}
	for _, fn := range p.unit.Functions {
		if fn.Name == name && len(fn.Params) == 0 && fn.Method == nil && !fn.Ctor {
			return fn
		}
	}
	return nil
}

// Start prepares the execution of the named function. Nothing runs until
// Run, Continue or Step is called.
func (p *Program) Start(name string) error {
	p.Stop()
	if p.unit == nil {
		return ErrNotCompiled
	}
	fn := p.entryPoint(name)
	if fn == nil {
		p.err = diag.New(diag.ErrNoRun).Withf("%s", name)
		return p.err
	}
	var this *value.Var
	if fn.Class != nil {
		this = p.boundThis(fn.Class)
	}
	p.entry = fn
	p.root = fn.NewFrame(nil, nil, this)
	p.newRunner()
	p.result, p.err = nil, nil
	p.log.Debug("Started program", "entry", fn.FullKey())
	return nil
}

// boundThis returns the object a Class::name function runs on: the bound
// object when it is of that class, a fresh instance otherwise.
func (p *Program) boundThis(c *types.Class) *value.Var {
	if p.this != nil && value.IsInstanceOf(p.this, c) {
		return p.this
	}
	v := value.MakeVar(types.PointerTo(c))
	v.SetInstance(value.NewInstance(c))
	return v
}

func (p *Program) newRunner() {
	p.runner = stack.NewRunner(p.group.config.MaxCallDepth)
	p.runner.User = p.user
}

// IsRunning reports whether the program has a frame tree to resume.
func (p *Program) IsRunning() bool { return p.root != nil }

// Entry returns the function being run, nil when stopped.
func (p *Program) Entry() *ast.Function { return p.entry }

// Frames returns the live frame tree, nil when stopped.
func (p *Program) Frames() *stack.Frame { return p.root }

// Steps returns the number of steps taken since Start.
func (p *Program) Steps() uint64 {
	if p.runner == nil {
		return 0
	}
	return p.runner.Steps()
}

// Run executes at most budget steps; a negative budget runs to the end.
// It reports whether execution finished. A runtime error stops the program
// and is returned as a *diag.Error.
func (p *Program) Run(budget int) (done bool, err error) {
	if p.root == nil {
		return true, ErrNotRunning
	}
	if budget < 0 {
		budget = stack.Unlimited
	}
	p.runner.SetBudget(budget)

	st, derr := p.exec()
	switch st {
	case stack.Suspended:
		return false, nil
	case stack.Done:
		p.result = p.root.Result
		p.log.Debug("Program finished", "steps", p.runner.Steps())
		p.halt()
		return true, nil
	case stack.Error:
	default:
		derr = p.entry.Span().Err(diag.ErrUndefRuntime).Withf("unexpected %s at function level", st)
	}
	p.err = derr
	p.log.Debug("Program failed", "err", derr)
	p.halt()
	return true, derr
}

// exec runs the root frame, converting a panic raised below it into a
// runtime error.
func (p *Program) exec() (st stack.Status, err *diag.Error) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("Interpreter panic", "err", r, "stack", string(debug.Stack()))
			st, err = stack.Error, diag.New(diag.ErrNative).Withf("panic: %v", r)
		}
	}()
	st = p.entry.Exec(p.root, p.runner)
	if st == stack.Error {
		err = p.runner.Recover()
		if err == nil {
			err = diag.New(diag.ErrUndefRuntime)
		}
	}
	return st, err
}

// Continue runs the program for the group's step budget.
func (p *Program) Continue() (bool, error) {
	return p.Run(p.group.config.Budget)
}

// Step runs exactly one step.
func (p *Program) Step() (bool, error) {
	return p.Run(1)
}

// Stop discards the frame tree. Effects already performed stay.
func (p *Program) Stop() {
	if p.root != nil {
		p.log.Debug("Stopped program", "steps", p.runner.Steps())
	}
	p.halt()
}

func (p *Program) halt() {
	p.root, p.entry = nil, nil
}

// Result returns the value returned by the last completed run, nil for a
// void function.
func (p *Program) Result() *value.Var { return p.result }

// Error returns the last compile or runtime error, nil if none.
func (p *Program) Error() *diag.Error { return p.err }

// Err returns the code and source range of the last compile or runtime
// error. The code is zero when there is none.
func (p *Program) Err() (code diag.Code, start, end int) {
	if p.err == nil {
		return 0, 0, 0
	}
	return p.err.Code, p.err.Start, p.err.End
}

func (p *Program) String() string {
	return fmt.Sprintf("%s[%s]", p.name, p.id)
}

// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package program manages compiled CBot programs and their execution.
//
// A Group is the shared context of a set of programs: the public classes,
// the host functions and the public functions every program may call.
// Programs in a group are compiled one after the other; the shared tables
// are read-only once any program of the group has started running.
package program

import (
	"errors"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/crypto/sha3"

	"github.com/colobot/colobot-sub025/cbot/ast"
	"github.com/colobot/colobot-sub025/cbot/lexer"
	"github.com/colobot/colobot-sub025/cbot/native"
	"github.com/colobot/colobot-sub025/cbot/token"
	"github.com/colobot/colobot-sub025/cbot/types"
	"github.com/colobot/colobot-sub025/log"
)

var (
	// ErrDuplicateProgram is returned when a program name is already in use.
	ErrDuplicateProgram = errors.New("program: name already in use")

	// ErrUnknownProgram is returned when a named program does not exist.
	ErrUnknownProgram = errors.New("program: unknown program")
)

// Group holds the programs sharing one class and function namespace.
type Group struct {
	config  Config
	classes *types.Registry
	natives *native.Registry
	tokens  *lru.Cache // source fingerprint -> []token.Token

	mu       sync.RWMutex
	programs []*Program
	byName   map[string]*Program

	log log.Logger
}

// NewGroup creates an empty group. Zero fields of config take their
// default values.
func NewGroup(config Config) *Group {
	config = config.sanitize()
	cache, err := lru.New(config.CacheSize)
	if err != nil {
		panic(err) // size is positive after sanitize
	}
	return &Group{
		config:  config,
		classes: types.NewRegistry(nil),
		natives: native.NewRegistry(nil),
		tokens:  cache,
		byName:  make(map[string]*Program),
		log:     log.New(),
	}
}

// Config returns the settings of the group.
func (g *Group) Config() Config { return g.config }

// Classes returns the registry of public and host classes.
func (g *Group) Classes() *types.Registry { return g.classes }

// Natives returns the host function registry shared by every program.
func (g *Group) Natives() *native.Registry { return g.natives }

// Register adds a host function visible to every program of the group.
func (g *Group) Register(name string, check native.CheckFunc, exec native.ExecFunc) error {
	return g.natives.Register(name, check, exec)
}

// DefineClass adds a host class to the shared registry.
func (g *Group) DefineClass(c *types.Class) error {
	return g.classes.Define(c)
}

// NewProgram creates an empty program with a name unique in the group.
func (g *Group) NewProgram(name string) (*Program, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.byName[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateProgram, name)
	}
	p := newProgram(g, name)
	g.programs = append(g.programs, p)
	g.byName[name] = p
	return p, nil
}

// Program returns the named program, or nil.
func (g *Group) Program(name string) *Program {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.byName[name]
}

// Programs returns the programs in creation order.
func (g *Group) Programs() []*Program {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]*Program(nil), g.programs...)
}

// Delete stops a program and withdraws its classes and public functions.
func (g *Group) Delete(name string) error {
	g.mu.Lock()
	p, ok := g.byName[name]
	if !ok {
		g.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownProgram, name)
	}
	delete(g.byName, name)
	for i, q := range g.programs {
		if q == p {
			g.programs = append(g.programs[:i], g.programs[i+1:]...)
			break
		}
	}
	g.mu.Unlock()

	p.Stop()
	p.withdraw()
	return nil
}

// Public returns the public functions named name of every compiled
// program in the group.
func (g *Group) Public(name string) []*ast.Function {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []*ast.Function
	for _, p := range g.programs {
		if p.unit == nil {
			continue
		}
		for _, fn := range p.unit.Lookup(name) {
			if fn.Public {
				out = append(out, fn)
			}
		}
	}
	return out
}

// Running returns the number of programs with a live frame tree.
func (g *Group) Running() int {
	n := 0
	for _, p := range g.Programs() {
		if p.IsRunning() {
			n++
		}
	}
	return n
}

// fingerprint identifies a source text.
func fingerprint(source string) [32]byte {
	return sha3.Sum256([]byte(source))
}

// tokenize returns the token stream of source, reusing the stream of an
// identical source compiled earlier.
func (g *Group) tokenize(sum [32]byte, source string) []token.Token {
	if toks, ok := g.tokens.Get(sum); ok {
		return toks.([]token.Token)
	}
	toks := lexer.Tokenize(source)
	g.tokens.Add(sum, toks)
	return toks
}

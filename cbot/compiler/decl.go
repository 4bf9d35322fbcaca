// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package compiler

import (
	mapset "github.com/deckarep/golang-set"

	"github.com/colobot/colobot-sub025/cbot/ast"
	"github.com/colobot/colobot-sub025/cbot/diag"
	"github.com/colobot/colobot-sub025/cbot/token"
	"github.com/colobot/colobot-sub025/cbot/types"
	"github.com/colobot/colobot-sub025/cbot/value"
)

// classDecl is a class declared by the unit being compiled.
type classDecl struct {
	class      *types.Class
	info       *ast.ClassInfo
	public     bool
	registered bool
	name       token.Token
	parent     token.Token // class named after extends; IDENT only when present

	fields []*fieldDecl
}

type fieldDecl struct {
	name   token.Token
	typ    types.Type
	static bool
	access types.Access
	init   int // token index of the initializer, -1 when absent
}

// funcDecl remembers where the body of a declared function starts.
type funcDecl struct {
	fn   *ast.Function
	body int
}

// ---------------------------------------------------------------------------
// Pass 1: declarations
// ---------------------------------------------------------------------------

func (c *Compiler) declare() {
	c.declareClasses()
	c.pos = 0
	for !c.is(token.EOF) {
		c.topLevel()
	}
	c.linkClasses()
	for _, cd := range c.ordered() {
		c.addMembers(cd)
	}
}

// declareClasses registers every top-level class name, so that types may
// name classes declared later in the unit.
func (c *Compiler) declareClasses() {
	depth := 0
	for i, t := range c.toks {
		switch t.Type {
		case token.LBRACE:
			depth++
		case token.RBRACE:
			depth--
		case token.CLASS:
			if depth != 0 {
				continue
			}
			name := c.at(i + 1)
			if name.Type != token.IDENT {
				c.failTok(name, diag.ErrNoType)
			}
			if c.byName[name.Literal] != nil || c.opts.Classes.Lookup(name.Literal) != nil {
				c.failTok(name, diag.ErrRedefClass)
			}
			cd := &classDecl{
				class:  types.NewClass(name.Literal, nil),
				public: i > 0 && c.at(i-1).Type == token.PUBLIC,
				name:   name,
			}
			cd.class.Public = cd.public
			cd.info = &ast.ClassInfo{Class: cd.class, Unit: c.unit, Statics: make(map[string]*value.Var)}
			cd.class.Impl = cd.info

			reg := c.opts.Classes
			if cd.public {
				reg = c.opts.Shared
			}
			if err := reg.Define(cd.class); err != nil {
				c.failTok(name, diag.ErrRedefClass)
			}
			cd.registered = true
			c.classes = append(c.classes, cd)
			c.byName[name.Literal] = cd
			c.unit.Classes = append(c.unit.Classes, cd.class)
		}
	}
}

func (c *Compiler) lookupClass(name string) *types.Class {
	if cd := c.byName[name]; cd != nil {
		return cd.class
	}
	return c.opts.Classes.Lookup(name)
}

func (c *Compiler) topLevel() {
	var public, extern bool
	for {
		if c.accept(token.PUBLIC) {
			public = true
		} else if c.accept(token.EXTERN) {
			extern = true
		} else {
			break
		}
	}
	if c.is(token.CLASS) {
		c.classBody()
		return
	}
	ret := c.parseType()
	name := c.expect(token.IDENT, diag.ErrNoFunc)
	var bound *types.Class
	if c.accept(token.COLONCOLON) {
		if bound = c.lookupClass(name.Literal); bound == nil {
			c.failTok(name, diag.ErrUndefClass)
		}
		name = c.expect(token.IDENT, diag.ErrNoFunc)
	}
	fn := &ast.Function{
		Name:   name.Literal,
		Return: ret,
		Public: public,
		Extern: extern,
		Class:  bound,
		Unit:   c.unit,
	}
	c.params(fn)
	key := fn.FullKey()
	if c.keys[key] {
		c.failTok(name, diag.ErrRedefFunc)
	}
	if public && c.opts.Publics != nil {
		for _, other := range c.opts.Publics.Public(fn.Name) {
			if other.Key() == fn.Key() {
				c.failf(tokSpan(name), diag.ErrRedefFunc, "%s is already public in %s", fn.Key(), other.Unit.Name)
			}
		}
	}
	c.keys[key] = true
	c.function(fn, name)
}

// function records fn with the unit and skips its body.
func (c *Compiler) function(fn *ast.Function, name token.Token) {
	if !c.is(token.LBRACE) {
		c.failTok(c.cur(), diag.ErrOpenBlock)
	}
	fd := &funcDecl{fn: fn, body: c.pos}
	c.skipBalanced()
	reg(c, fn, tokSpan(name))
	c.unit.Functions = append(c.unit.Functions, fn)
	c.funcs = append(c.funcs, fd)
}

// params parses a parameter list into fn.Params.
func (c *Compiler) params(fn *ast.Function) {
	c.expect(token.LPAREN, diag.ErrOpenPar)
	if c.accept(token.RPAREN) {
		return
	}
	seen := mapset.NewSet()
	for {
		start := c.cur()
		t := c.parseType()
		name := c.ident()
		t = c.dims(t)
		if t.Kind() == types.KindVoid {
			c.failTok(start, diag.ErrBadType)
		}
		if !seen.Add(name.Literal) {
			c.failTok(name, diag.ErrRedefVar)
		}
		fn.Params = append(fn.Params, ast.Param{Name: name.Literal, Type: t, Slot: len(fn.Params)})
		if c.accept(token.RPAREN) {
			return
		}
		c.expect(token.COMMA, diag.ErrClosePar)
	}
}

// classBody parses a class declaration, recording members for later.
func (c *Compiler) classBody() {
	c.next()
	cd := c.byName[c.ident().Literal]
	if c.accept(token.EXTENDS) {
		cd.parent = c.expect(token.IDENT, diag.ErrUndefClass)
	}
	open := c.expect(token.LBRACE, diag.ErrOpenBlock)
	for !c.accept(token.RBRACE) {
		if c.is(token.EOF) {
			c.failTok(open, diag.ErrCloseBlock)
		}
		c.classMember(cd)
	}
	c.accept(token.SEMICOLON)
}

func (c *Compiler) classMember(cd *classDecl) {
	access := types.Public
	static := false
	start := c.cur()
mods:
	for {
		switch c.cur().Type {
		case token.PUBLIC:
			access = types.Public
		case token.PRIVATE:
			access = types.Private
		case token.PROTECTED:
			access = types.Protected
		case token.STATIC:
			static = true
		case token.FINAL, token.SYNCHRONIZED:
		default:
			break mods
		}
		c.next()
	}
	if c.is(token.IDENT) && c.cur().Literal == cd.class.Name && c.peek(1).Type == token.LPAREN {
		name := c.next()
		if static {
			c.failTok(start, diag.ErrUnexpected)
		}
		fn := &ast.Function{Name: name.Literal, Return: types.Void, Class: cd.class, Ctor: true, Unit: c.unit}
		c.params(fn)
		for _, other := range cd.info.Ctors {
			if other.Key() == fn.Key() {
				c.failTok(name, diag.ErrRedefFunc)
			}
		}
		cd.info.Ctors = append(cd.info.Ctors, fn)
		c.function(fn, name)
		return
	}
	t := c.parseType()
	name := c.ident()
	if c.is(token.LPAREN) {
		if static {
			c.failTok(start, diag.ErrUnexpected)
		}
		fn := &ast.Function{Name: name.Literal, Return: t, Class: cd.class, Unit: c.unit}
		c.params(fn)
		fn.Method = &types.Method{Name: fn.Name, Params: fn.ParamTypes(), Return: t, Access: access, Impl: fn}
		if err := cd.class.AddMethod(fn.Method); err != nil {
			c.failf(tokSpan(name), diag.ErrRedefFunc, "%v", err)
		}
		c.function(fn, name)
		return
	}
	if t.Kind() == types.KindVoid {
		c.failTok(start, diag.ErrBadType)
	}
	for {
		fd := &fieldDecl{name: name, typ: c.dims(t), static: static, access: access, init: -1}
		if c.accept(token.ASSIGN) {
			fd.init = c.pos
			c.skipExpr()
		}
		cd.fields = append(cd.fields, fd)
		if !c.accept(token.COMMA) {
			break
		}
		name = c.ident()
	}
	c.expect(token.SEMICOLON, diag.ErrNoTerminator)
}

// linkClasses resolves extends clauses and rejects inheritance cycles.
func (c *Compiler) linkClasses() {
	parentOf := func(k *types.Class) (*types.Class, token.Token) {
		if cd := c.byName[k.Name]; cd != nil && cd.class == k {
			if cd.parent.Type != token.IDENT {
				return nil, cd.parent
			}
			p := c.lookupClass(cd.parent.Literal)
			if p == nil {
				c.failTok(cd.parent, diag.ErrUndefClass)
			}
			return p, cd.parent
		}
		return k.Parent, token.Token{}
	}
	for _, cd := range c.classes {
		p, at := parentOf(cd.class)
		if p == nil {
			continue
		}
		seen := mapset.NewSet(cd.class.Name)
		for k := p; k != nil; k, _ = parentOf(k) {
			if !seen.Add(k.Name) {
				c.failTok(at, diag.ErrCyclicClass)
			}
		}
		if err := cd.class.SetParent(p); err != nil {
			c.failTok(at, diag.ErrCyclicClass)
		}
	}
}

// ordered returns the unit's classes with every parent ahead of its
// subclasses.
func (c *Compiler) ordered() []*classDecl {
	done := mapset.NewSet()
	var out []*classDecl
	var visit func(cd *classDecl)
	visit = func(cd *classDecl) {
		if done.Contains(cd.class.Name) {
			return
		}
		if p := cd.class.Parent; p != nil {
			if pd := c.byName[p.Name]; pd != nil && pd.class == p {
				visit(pd)
			}
		}
		done.Add(cd.class.Name)
		out = append(out, cd)
	}
	for _, cd := range c.classes {
		visit(cd)
	}
	return out
}

// addMembers enters the fields of cd into its class and creates the
// storage of its static fields. Methods were added while parsing.
func (c *Compiler) addMembers(cd *classDecl) {
	for _, fd := range cd.fields {
		f := types.Field{Name: fd.name.Literal, Type: fd.typ, Static: fd.static, Access: fd.access}
		if err := cd.class.AddField(f); err != nil {
			c.failf(tokSpan(fd.name), diag.ErrRedefVar, "%v", err)
		}
		if fd.static {
			v := value.Zero(fd.typ)
			v.Name = f.Name
			cd.info.Statics[f.Name] = v
		}
	}
	// Overrides must keep the return type of the method they replace.
	if p := cd.class.Parent; p != nil {
		for _, m := range cd.class.Methods() {
			if base := p.Resolve(m.Key()); base != nil && !base.Return.Equals(m.Return) {
				fn := m.Impl.(*ast.Function)
				c.failf(fn.Span(), diag.ErrRedefFunc, "%s changes the return type of %s", m, base)
			}
		}
	}
}

// ---------------------------------------------------------------------------
// Pass 2: bodies
// ---------------------------------------------------------------------------

func (c *Compiler) define() {
	for _, cd := range c.ordered() {
		c.fieldInits(cd)
	}
	for _, fd := range c.funcs {
		c.body(fd)
	}
}

// fieldInits compiles the initializers of cd's fields. Instance
// initializers become FieldInit nodes run by every new; static ones must be
// constants and are stored right away.
func (c *Compiler) fieldInits(cd *classDecl) {
	for _, fd := range cd.fields {
		if fd.init < 0 {
			continue
		}
		c.pos = fd.init
		c.fs = newFuncState(nil, cd.class)
		e := c.initializer(fd.typ)
		c.fs = nil
		if fd.static {
			lit, ok := e.(*ast.Literal)
			if !ok {
				c.fail(e.Span(), diag.ErrNotStatic)
			}
			cd.info.Statics[fd.name.Literal].Set(lit.Value)
			continue
		}
		fi := reg(c, &ast.FieldInit{Index: cd.class.FieldIndex(fd.name.Literal), Value: e}, e.Span())
		cd.info.Inits = append(cd.info.Inits, fi)
	}
}

func (c *Compiler) body(fd *funcDecl) {
	fn := fd.fn
	c.fs = newFuncState(fn, fn.Class)
	for _, p := range fn.Params {
		c.fs.bind(p.Name, p.Type)
	}
	c.pos = fd.body
	fn.Body = c.block()
	fn.Locals = len(c.fs.slots)
	fn.Slots = c.fs.slots
	c.fs = nil
}

// ---------------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------------

var builtinTypes = map[token.Type]types.Type{
	token.VOID:       types.Void,
	token.BOOL:       types.Bool,
	token.BOOLEAN:    types.Bool,
	token.BYTE:       types.Byte,
	token.SHORT:      types.Short,
	token.CHARTYPE:   types.Char,
	token.INTTYPE:    types.Int,
	token.LONG:       types.Long,
	token.FLOATTYPE:  types.Float,
	token.DOUBLE:     types.Double,
	token.STRINGTYPE: types.String,
}

// parseType parses a type name followed by any number of [] pairs. Class
// names denote references.
func (c *Compiler) parseType() types.Type {
	t := c.cur()
	typ, ok := builtinTypes[t.Type]
	switch {
	case ok:
	case t.Type == token.IDENT:
		cls := c.lookupClass(t.Literal)
		if cls == nil {
			c.failTok(t, diag.ErrUndefClass)
		}
		typ = types.PointerTo(cls)
	default:
		c.failTok(t, diag.ErrNoType)
	}
	c.next()
	for c.is(token.LBRACKET) && c.peek(1).Type == token.RBRACKET {
		if typ.Kind() == types.KindVoid {
			c.failTok(t, diag.ErrBadType)
		}
		c.next()
		c.next()
		typ = types.ArrayOf(typ, -1)
	}
	return typ
}

// isTypeStart reports whether a declaration starts at the current token.
func (c *Compiler) isTypeStart() bool {
	t := c.cur()
	if t.Type.IsTypeName() {
		return true
	}
	if t.Type != token.IDENT || c.lookupClass(t.Literal) == nil {
		return false
	}
	switch c.peek(1).Type {
	case token.IDENT:
		return true
	case token.LBRACKET:
		return c.peek(2).Type == token.RBRACKET
	}
	return false
}

// dims applies array declarators following a name: a[], a[4], a[2][3].
func (c *Compiler) dims(t types.Type) types.Type {
	var sizes []int
	for c.is(token.LBRACKET) {
		c.next()
		n := -1
		if c.is(token.INT) {
			n = int(c.next().Int)
		}
		c.expect(token.RBRACKET, diag.ErrBadIndex)
		sizes = append(sizes, n)
	}
	for i := len(sizes) - 1; i >= 0; i-- {
		t = types.ArrayOf(t, sizes[i])
	}
	return t
}

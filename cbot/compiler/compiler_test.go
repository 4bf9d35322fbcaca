// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package compiler

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colobot/colobot-sub025/cbot/ast"
	"github.com/colobot/colobot-sub025/cbot/diag"
	"github.com/colobot/colobot-sub025/cbot/lexer"
	"github.com/colobot/colobot-sub025/cbot/native"
	"github.com/colobot/colobot-sub025/cbot/types"
	"github.com/colobot/colobot-sub025/cbot/value"
)

func compile(src string, opts Options) (*ast.Unit, *diag.Error) {
	if opts.Name == "" {
		opts.Name = "test"
	}
	unit, err := Compile(lexer.Tokenize(src), opts)
	if err == nil {
		return unit, nil
	}
	var d *diag.Error
	if !errors.As(err, &d) {
		panic(err)
	}
	return nil, d
}

func testNatives() *native.Registry {
	reg := native.NewRegistry(nil)
	noop := func(*value.Var, *value.Var, interface{}) (bool, error) { return true, nil }
	reg.Register("pair", native.Signature(types.Int, types.Int, types.Int), noop)
	reg.Register("log", native.Variadic(types.Void, 1), noop)
	return reg
}

func TestCompileValid(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"empty", ``},
		{"arith", `extern void main() { int a = 3 * (2 + 1); float f = a / 2.0; long l = 1 << 40; a += 2; }`},
		{"strings", `extern void main() { string s = "n=" + 4 + 'c' + 1.5; s += "!"; }`},
		{"arrays", `extern void main() { int[] a = {1, 2, 3}; int[][] m; m[1][2] = a[0]; int n = sizeof(a); }`},
		{"loops", `extern void main() {
			outer: for (int i = 0; i < 3; i++) { int j = 0; while (j < i) { j++; if (j == 2) continue outer; } }
			do { } while (false);
			repeat (3) { break; }
		}`},
		{"switch", `extern void main() { int x = 2; switch (x) { case 1: case 2: x++; break; default: x = 0; } }`},
		{"try", `extern void main() { try { throw 10001; } catch (10001) { } catch (true) { } finally { } }`},
		{"forward call", `extern void main() { helper(1); } void helper(int x) { }`},
		{"overload", `void f(int a) {} void f(string s) {} extern void main() { f(1); f("x"); }`},
		{"natives", `extern void main() { int r = pair(1, 2); log(r, "x", 1.0); }`},
		{"classes", `
			class Shape { protected float size = 1; float area() { return 0; } }
			class Square extends Shape {
				Square(float s) { size = s; }
				float area() { return size * size; }
				float base() { return super.area(); }
			}
			extern void main() {
				Shape s = new Square(2);
				Square q(3);
				float a = s.area();
				bool b = s instanceof Square;
				Shape none = null;
			}`},
		{"statics", `class Counter { static int n = -1; void bump() { n++; } } extern void main() { Counter c; c.bump(); }`},
		{"bound", `class Bot { int e; } extern void Bot::main() { e = 1; this.e++; }`},
		{"ternary", `extern void main() { int a = 1; float b = a > 0 ? 1.5 : a; }`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unit, err := compile(tt.src, Options{Natives: testNatives()})
			require.Nil(t, err, "%v", err)
			require.NotNil(t, unit)
		})
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code diag.Code
		span string // source text the error must cover, if set
	}{
		{"type mismatch", `extern void main() { int x = "abc" + 1; }`, diag.ErrBadType, `"abc" + 1`},
		{"bad operands", `extern void main() { bool b = true; int x = 1 - b; }`, diag.ErrBadOperands, `1 - b`},
		{"not boolean", `extern void main() { if (1) {} }`, diag.ErrNotBoolean, `1`},
		{"undefined var", `extern void main() { y = 2; }`, diag.ErrUndefVar, `y`},
		{"undefined func", `extern void main() { nothing(); }`, diag.ErrUndefFunc, `nothing`},
		{"native arity", `extern void main() { int r = pair(1, 2, 3); }`, diag.ErrBadParam, `pair(1, 2, 3)`},
		{"native types", `extern void main() { pair("a", 2); }`, diag.ErrBadParam, `pair("a", 2)`},
		{"ambiguous", `void f(int a, float b) {} void f(float a, int b) {} extern void main() { f(1, 1); }`, diag.ErrAmbiguousCall, `f(1, 1)`},
		{"no overload", `void f(int a) {} extern void main() { f("s"); }`, diag.ErrBadParam, `f("s")`},
		{"redefined var", `extern void main() { int a; { int a; } }`, diag.ErrRedefVar, `a`},
		{"redefined func", `void f() {} void f() {}`, diag.ErrRedefFunc, `f`},
		{"duplicate param", `void f(int a, int a) {}`, diag.ErrRedefVar, `a`},
		{"break outside", `extern void main() { break; }`, diag.ErrBreakOutside, `break`},
		{"continue in switch", `extern void main() { switch (1) { case 1: continue; } }`, diag.ErrContinueOutside, `continue`},
		{"bad label", `extern void main() { while (true) { break nowhere; } }`, diag.ErrBadLabel, `nowhere`},
		{"missing return value", `int f() { return; }`, diag.ErrNoReturn, `return`},
		{"void return value", `void f() { return 1; }`, diag.ErrBadReturn, `1`},
		{"duplicate case", `extern void main() { switch (1) { case 1: case 1: } }`, diag.ErrDuplicateCase, `1`},
		{"case outside", `extern void main() { case 1: }`, diag.ErrCaseOutside, `case`},
		{"else without if", `extern void main() { else {} }`, diag.ErrElseWithoutIf, `else`},
		{"missing semicolon", `extern void main() { int a = 1 }`, diag.ErrNoTerminator, `}`},
		{"unclosed block", `extern void main() { int a = 1;`, diag.ErrCloseBlock, ``},
		{"bad string", `extern void main() { string s = "abc`, diag.ErrBadString, ``},
		{"cyclic classes", `class A extends B {} class B extends A {}`, diag.ErrCyclicClass, ``},
		{"unknown class", `extern void main() { Ghost g; }`, diag.ErrUndefVar, ``},
		{"unknown parent", `class A extends Ghost {}`, diag.ErrUndefClass, `Ghost`},
		{"private field", `class A { private int x; } extern void main() { A a; a.x = 1; }`, diag.ErrPrivate, `x`},
		{"this outside", `extern void main() { this.x = 1; }`, diag.ErrThisOutside, `this`},
		{"non literal static", `extern void main() {} class A { static int n = f(); } int f() { return 1; }`, diag.ErrNotStatic, ``},
		{"bad override", `class A { int m() { return 1; } } class B extends A { float m() { return 1; } }`, diag.ErrRedefFunc, ``},
		{"init list overflow", `extern void main() { int a[2] = {1, 2, 3}; }`, diag.ErrBadIndex, `{1, 2, 3}`},
		{"bad left", `extern void main() { 1 = 2; }`, diag.ErrBadLeft, `1`},
		{"ctor args without ctor", `class A {} extern void main() { A a = new A(1); }`, diag.ErrBadParam, ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compile(tt.src, Options{Natives: testNatives()})
			require.NotNil(t, err, "compiled without error")
			assert.Equal(t, tt.code, err.Code, "got %v", err)
			if tt.span != "" {
				require.True(t, err.Start >= 0 && err.End <= len(tt.src) && err.Start <= err.End, "span %d..%d", err.Start, err.End)
				assert.Equal(t, tt.span, tt.src[err.Start:err.End])
			}
		})
	}
}

func TestRollbackWithdrawsClasses(t *testing.T) {
	shared := types.NewRegistry(nil)
	private := types.NewRegistry(shared)
	src := `public class Pub {} class Priv {} extern void main() { missing(); }`

	_, err := compile(src, Options{Classes: private, Shared: shared})
	require.NotNil(t, err)
	assert.Equal(t, diag.ErrUndefFunc, err.Code)
	assert.Nil(t, shared.Lookup("Pub"))
	assert.Nil(t, private.Lookup("Priv"))

	_, err = compile(`public class Pub {} class Priv {}`, Options{Classes: private, Shared: shared})
	require.Nil(t, err)
	assert.NotNil(t, shared.Lookup("Pub"))
	assert.Nil(t, shared.Lookup("Priv"))
	assert.NotNil(t, private.Lookup("Priv"))
}

type publics map[string][]*ast.Function

func (p publics) Public(name string) []*ast.Function { return p[name] }

func TestPublicResolution(t *testing.T) {
	lib, err := compile(`public int twice(int x) { return 2 * x; } int hidden() { return 0; }`, Options{Name: "lib"})
	require.Nil(t, err)
	pubs := publics{}
	for _, fn := range lib.Functions {
		if fn.Public {
			pubs[fn.Name] = append(pubs[fn.Name], fn)
		}
	}

	unit, err := compile(`extern void main() { int y = twice(4); }`, Options{Name: "user", Publics: pubs})
	require.Nil(t, err)
	require.NotNil(t, unit.Function("main()"))

	_, err = compile(`extern void main() { twice("4"); }`, Options{Name: "user", Publics: pubs})
	require.NotNil(t, err)
	assert.Equal(t, diag.ErrBadParam, err.Code)

	_, err = compile(`public int twice(int y) { return y; }`, Options{Name: "other", Publics: pubs})
	require.NotNil(t, err)
	assert.Equal(t, diag.ErrRedefFunc, err.Code)
}

func TestNativeCheckReceivesUser(t *testing.T) {
	reg := native.NewRegistry(nil)
	var got interface{}
	reg.Register("probe", func(args *value.Var, user interface{}) (types.Type, error) {
		got = user
		if args == nil || args.Kind() != types.KindString {
			return nil, native.Failf(diag.UserBase+7, "want a string")
		}
		return types.Float, nil
	}, func(*value.Var, *value.Var, interface{}) (bool, error) { return true, nil })

	_, err := compile(`extern void main() { float f = probe("x"); }`, Options{Natives: reg, User: "host"})
	require.Nil(t, err)
	assert.Equal(t, "host", got)

	src := `extern void main() { probe(1); }`
	_, err = compile(src, Options{Natives: reg})
	require.NotNil(t, err)
	assert.Equal(t, diag.UserBase+7, err.Code)
	assert.Equal(t, "probe(1)", src[err.Start:err.End])
}

func TestUnitLayout(t *testing.T) {
	unit, err := compile(`
class P { int x = 1; P(int v) { x = v; } int get() { return x; } }
int add(int a, int b) { int c = a + b; return c; }
extern void main() { P p(3); int v = add(p.get(), 2); }
`, Options{})
	require.Nil(t, err)

	add := unit.Function("add(int,int)")
	require.NotNil(t, add)
	assert.Equal(t, 3, add.Locals)
	assert.Equal(t, []types.Type{types.Int, types.Int, types.Int}, add.Slots)

	p := unit.Classes[0]
	info := p.Impl.(*ast.ClassInfo)
	assert.Len(t, info.Inits, 1)
	assert.Len(t, info.Ctors, 1)
	assert.NotNil(t, p.Resolve("get()"))

	// Every node except function roots and field initializers has a parent.
	for id := 1; id <= unit.Len(); id++ {
		n := unit.Node(id)
		switch n.(type) {
		case *ast.Function, *ast.FieldInit:
			continue
		}
		assert.NotZero(t, unit.Parent(id), "orphan %s", ast.Describe(n))
	}
}

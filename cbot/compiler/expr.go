// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package compiler

import (
	"math"
	"strings"

	"github.com/colobot/colobot-sub025/cbot/ast"
	"github.com/colobot/colobot-sub025/cbot/diag"
	"github.com/colobot/colobot-sub025/cbot/token"
	"github.com/colobot/colobot-sub025/cbot/types"
	"github.com/colobot/colobot-sub025/cbot/value"
)

// ---------------------------------------------------------------------------
// Precedence levels (Pratt)
// ---------------------------------------------------------------------------

type precedence int

const (
	precLowest precedence = iota
	precAssign            // = += -= ...
	precCond              // ?:
	precOr                // ||
	precAnd               // &&
	precBitOr             // |
	precBitXor            // ^
	precBitAnd            // &
	precEq                // == !=
	precCmp               // < <= > >= instanceof
	precShift             // << >> >>>
	precAdd               // + -
	precMul               // * / %
)

// infixPrecedence maps a token type to its infix binding power.
var infixPrecedence = map[token.Type]precedence{
	token.ASSIGN:     precAssign,
	token.PLUSEQ:     precAssign,
	token.MINUSEQ:    precAssign,
	token.STAREQ:     precAssign,
	token.SLASHEQ:    precAssign,
	token.PERCENTEQ:  precAssign,
	token.AMPEQ:      precAssign,
	token.PIPEEQ:     precAssign,
	token.CARETEQ:    precAssign,
	token.LSHIFTEQ:   precAssign,
	token.RSHIFTEQ:   precAssign,
	token.URSHIFTEQ:  precAssign,
	token.QUESTION:   precCond,
	token.OR:         precOr,
	token.AND:        precAnd,
	token.PIPE:       precBitOr,
	token.CARET:      precBitXor,
	token.AMP:        precBitAnd,
	token.EQ:         precEq,
	token.NEQ:        precEq,
	token.LT:         precCmp,
	token.LTE:        precCmp,
	token.GT:         precCmp,
	token.GTE:        precCmp,
	token.INSTANCEOF: precCmp,
	token.LSHIFT:     precShift,
	token.RSHIFT:     precShift,
	token.URSHIFT:    precShift,
	token.PLUS:       precAdd,
	token.MINUS:      precAdd,
	token.STAR:       precMul,
	token.SLASH:      precMul,
	token.PERCENT:    precMul,
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (c *Compiler) expression() ast.Expr { return c.binaryExpr(precLowest) }

// binaryExpr parses operators binding tighter than min. Assignment and ?:
// associate to the right, everything else to the left.
func (c *Compiler) binaryExpr(min precedence) ast.Expr {
	left := c.unary()
	for {
		op := c.cur()
		prec, ok := infixPrecedence[op.Type]
		if !ok || prec <= min {
			return left
		}
		switch {
		case op.Type.IsAssign():
			left = c.assign(left)
		case op.Type == token.QUESTION:
			left = c.conditional(left)
		case op.Type == token.INSTANCEOF:
			left = c.instanceOf(left)
		case op.Type == token.AND || op.Type == token.OR:
			c.next()
			right := c.binaryExpr(prec)
			c.wantBool(left)
			c.wantBool(right)
			left = reg(c, &ast.Logical{Op: op.Type, X: left, Y: right}, left.Span().To(right.Span()))
		default:
			c.next()
			right := c.binaryExpr(prec)
			left = c.binary(op, left, right)
		}
	}
}

func isArith(t types.Type) bool { return t.Kind().IsNumeric() && t.Kind() != types.KindBool }

// operands types a binary operator. It returns the type the operation is
// computed in and the type of its result.
func (c *Compiler) operands(op token.Type, a, b types.Type) (types.Type, types.Type, bool) {
	ak, bk := a.Kind(), b.Kind()
	switch op {
	case token.PLUS:
		if ak == types.KindString || bk == types.KindString {
			if ak == types.KindVoid || bk == types.KindVoid {
				return nil, nil, false
			}
			return types.String, types.String, true
		}
		fallthrough
	case token.MINUS, token.STAR, token.SLASH, token.PERCENT:
		if !isArith(a) || !isArith(b) {
			return nil, nil, false
		}
		t := types.Promote(a, b)
		return t, t, true
	case token.AMP, token.PIPE, token.CARET:
		if ak == types.KindBool && bk == types.KindBool {
			return types.Bool, types.Bool, true
		}
		if !ak.IsIntegral() || !bk.IsIntegral() {
			return nil, nil, false
		}
		t := types.Promote(a, b)
		return t, t, true
	case token.LSHIFT, token.RSHIFT, token.URSHIFT:
		if !ak.IsIntegral() || !bk.IsIntegral() {
			return nil, nil, false
		}
		t := types.Promote(a, types.Int)
		return t, t, true
	case token.EQ, token.NEQ:
		if (ak == types.KindBool) != (bk == types.KindBool) || !types.IsComparable(a, b) {
			return nil, nil, false
		}
		return a, types.Bool, true
	case token.LT, token.LTE, token.GT, token.GTE:
		if (isArith(a) && isArith(b)) || (ak == types.KindString && bk == types.KindString) {
			return a, types.Bool, true
		}
	}
	return nil, nil, false
}

func (c *Compiler) binary(op token.Token, x, y ast.Expr) ast.Expr {
	sp := x.Span().To(y.Span())
	opType, typ, ok := c.operands(op.Type, x.Type(), y.Type())
	if !ok {
		c.failf(sp, diag.ErrBadOperands, "%s %s %s", x.Type(), op.Type, y.Type())
	}
	return reg(c, &ast.Binary{Op: op.Type, X: x, Y: y, OpType: opType, Typ: typ}, sp)
}

// lvalue checks that e designates storage and marks it as a write target.
func (c *Compiler) lvalue(e ast.Expr) ast.Expr {
	switch x := e.(type) {
	case *ast.Local:
		x.Write = true
	case *ast.Field:
		x.Write = true
	case *ast.Index:
		x.Write = true
	case *ast.Static:
	default:
		c.fail(e.Span(), diag.ErrBadLeft)
	}
	return e
}

func (c *Compiler) assign(target ast.Expr) ast.Expr {
	op := c.next()
	c.lvalue(target)
	var v ast.Expr
	if op.Type == token.ASSIGN && c.is(token.LBRACE) {
		v = c.initList(target.Type())
	} else {
		v = c.binaryExpr(precLowest)
	}
	n := &ast.Assign{Op: op.Type, Target: target, Value: v}
	sp := target.Span().To(v.Span())
	if op.Type == token.ASSIGN {
		c.wantAssignable(v, target.Type())
	} else {
		opType, typ, ok := c.operands(ast.BaseOp(op.Type), target.Type(), v.Type())
		if !ok || !types.Assignable(target.Type(), typ) {
			c.failf(sp, diag.ErrBadOperands, "%s %s %s", target.Type(), op.Type, v.Type())
		}
		n.OpType = opType
	}
	return reg(c, n, sp)
}

func (c *Compiler) conditional(cond ast.Expr) ast.Expr {
	c.next()
	c.wantBool(cond)
	a := c.expression()
	c.expect(token.COLON, diag.ErrNoTerminator)
	b := c.binaryExpr(precAssign)
	sp := cond.Span().To(b.Span())
	var t types.Type
	switch at, bt := a.Type(), b.Type(); {
	case isArith(at) && isArith(bt):
		t = at
		if types.Rank(bt) > types.Rank(at) {
			t = bt
		}
	case types.Assignable(at, bt):
		t = at
	case types.Assignable(bt, at):
		t = bt
	default:
		c.failf(sp, diag.ErrBadType, "%s and %s", at, bt)
	}
	return reg(c, &ast.Cond{C: cond, A: a, B: b, Typ: t}, sp)
}

func (c *Compiler) instanceOf(x ast.Expr) ast.Expr {
	c.next()
	name := c.expect(token.IDENT, diag.ErrUndefClass)
	cls := c.lookupClass(name.Literal)
	if cls == nil {
		c.failTok(name, diag.ErrUndefClass)
	}
	if k := x.Type().Kind(); k != types.KindPointer && k != types.KindNull {
		c.fail(x.Span(), diag.ErrBadType)
	}
	return reg(c, &ast.InstanceOf{X: x, Class: cls}, x.Span().To(tokSpan(name)))
}

// ---------------------------------------------------------------------------
// Unary and postfix
// ---------------------------------------------------------------------------

func (c *Compiler) unary() ast.Expr {
	op := c.cur()
	switch op.Type {
	case token.PLUS, token.MINUS, token.BANG, token.TILDE:
		c.next()
		return c.prefix(op, c.unary())
	case token.INC, token.DEC:
		c.next()
		x := c.lvalue(c.unary())
		if !isArith(x.Type()) {
			c.fail(x.Span(), diag.ErrBadOperands)
		}
		return reg(c, &ast.IncDec{Op: op.Type, Prefix: true, Target: x}, tokSpan(op).To(x.Span()))
	}
	return c.postfix(c.primary())
}

func (c *Compiler) prefix(op token.Token, x ast.Expr) ast.Expr {
	sp := tokSpan(op).To(x.Span())
	t := x.Type()
	switch op.Type {
	case token.PLUS:
		if !isArith(t) {
			c.fail(sp, diag.ErrBadOperands)
		}
		return x
	case token.MINUS:
		if !isArith(t) {
			c.fail(sp, diag.ErrBadOperands)
		}
		t = types.Promote(t, t)
		if lit, ok := x.(*ast.Literal); ok {
			v := value.MakeVar(t)
			if t.Kind().IsFloating() {
				v.SetFloat(-lit.Value.Float())
			} else {
				v.SetInt(-lit.Value.Int())
			}
			return reg(c, &ast.Literal{Value: v}, sp)
		}
	case token.BANG:
		if t.Kind() != types.KindBool {
			c.fail(sp, diag.ErrNotBoolean)
		}
	case token.TILDE:
		if !t.Kind().IsIntegral() {
			c.fail(sp, diag.ErrBadOperands)
		}
		t = types.Promote(t, t)
	}
	return reg(c, &ast.Unary{Op: op.Type, X: x, Typ: t}, sp)
}

func (c *Compiler) postfix(x ast.Expr) ast.Expr {
	for {
		switch c.cur().Type {
		case token.DOT:
			c.next()
			name := c.expect(token.IDENT, diag.ErrUndefMember)
			if c.is(token.LPAREN) {
				x = c.methodCall(x, name, false)
			} else {
				x = c.member(x, name)
			}
		case token.LBRACKET:
			c.next()
			i := c.expression()
			c.expect(token.RBRACKET, diag.ErrBadIndex)
			at, ok := x.Type().(*types.ArrayType)
			if !ok {
				c.fail(x.Span(), diag.ErrBadIndex)
			}
			if !i.Type().Kind().IsIntegral() {
				c.fail(i.Span(), diag.ErrBadIndex)
			}
			x = reg(c, &ast.Index{X: x, I: i, Typ: at.Elem}, x.Span().To(tokSpan(c.prev())))
		case token.INC, token.DEC:
			op := c.next()
			c.lvalue(x)
			if !isArith(x.Type()) {
				c.fail(x.Span(), diag.ErrBadOperands)
			}
			x = reg(c, &ast.IncDec{Op: op.Type, Target: x}, x.Span().To(tokSpan(op)))
		default:
			return x
		}
	}
}

// ---------------------------------------------------------------------------
// Primary expressions
// ---------------------------------------------------------------------------

func (c *Compiler) primary() ast.Expr {
	t := c.cur()
	switch t.Type {
	case token.INT, token.FLOAT, token.CHAR, token.STRING,
		token.TRUE, token.FALSE, token.NULL, token.NAN:
		c.next()
		return reg(c, &ast.Literal{Value: literal(t)}, tokSpan(t))
	case token.LPAREN:
		c.next()
		e := c.expression()
		c.expect(token.RPAREN, diag.ErrClosePar)
		return e
	case token.IDENT:
		c.next()
		if c.is(token.LPAREN) {
			return c.call(t)
		}
		return c.variable(t)
	case token.THIS:
		c.next()
		if c.fs.class == nil || c.fs.fn == nil {
			c.failTok(t, diag.ErrThisOutside)
		}
		return reg(c, &ast.This{Typ: types.PointerTo(c.fs.class)}, tokSpan(t))
	case token.SUPER:
		c.next()
		c.expect(token.DOT, diag.ErrUndefMember)
		name := c.expect(token.IDENT, diag.ErrUndefMember)
		if !c.is(token.LPAREN) {
			c.failTok(name, diag.ErrUndefMember)
		}
		return c.methodCall(nil, name, true)
	case token.NEW:
		c.next()
		name := c.expect(token.IDENT, diag.ErrUndefClass)
		cls := c.lookupClass(name.Literal)
		if cls == nil {
			c.failTok(name, diag.ErrUndefClass)
		}
		var args []ast.Expr
		if c.is(token.LPAREN) {
			args = c.arguments()
		}
		return c.newObject(c.spanFrom(t), cls, args)
	case token.SIZEOF:
		c.next()
		c.expect(token.LPAREN, diag.ErrOpenPar)
		x := c.expression()
		c.expect(token.RPAREN, diag.ErrClosePar)
		if x.Type().Kind() != types.KindArray {
			c.fail(x.Span(), diag.ErrBadType)
		}
		return reg(c, &ast.Sizeof{X: x}, c.spanFrom(t))
	}
	c.failTok(t, diag.ErrNoExpression)
	return nil
}

// literal returns the constant denoted by a literal token. Integers that
// do not fit an int are long; hexadecimal and binary literals up to 32 bits
// wrap into int.
func literal(t token.Token) *value.Var {
	switch t.Type {
	case token.INT:
		n := t.Int
		if n >= math.MinInt32 && n <= math.MaxInt32 {
			return value.NewInt(n)
		}
		lit := strings.ToLower(t.Literal)
		if (strings.HasPrefix(lit, "0x") || strings.HasPrefix(lit, "0b")) && n <= math.MaxUint32 {
			return value.NewInt(int64(int32(uint32(n))))
		}
		return value.NewLong(n)
	case token.FLOAT:
		return value.NewFloat(t.Float)
	case token.CHAR:
		return value.NewChar(rune(t.Int))
	case token.STRING:
		return value.NewString(t.Str)
	case token.TRUE:
		return value.NewBool(true)
	case token.FALSE:
		return value.NewBool(false)
	case token.NAN:
		return value.NewFloat(math.NaN())
	}
	return value.NewNull()
}

// variable resolves a bare name: a local, then a field of this.
func (c *Compiler) variable(name token.Token) ast.Expr {
	sp := tokSpan(name)
	if l, ok := c.fs.lookup(name.Literal); ok {
		return reg(c, &ast.Local{Name: name.Literal, Slot: l.slot, Typ: l.typ}, sp)
	}
	if cls := c.fs.class; cls != nil {
		if f, decl, ok := cls.FindField(name.Literal); ok {
			if f.Static {
				return c.static(name, decl, f)
			}
			if c.fs.fn == nil {
				c.failTok(name, diag.ErrThisOutside)
			}
			return reg(c, &ast.Field{Index: cls.FieldIndex(name.Literal), Name: name.Literal, Typ: f.Type}, sp)
		}
	}
	c.failTok(name, diag.ErrUndefVar)
	return nil
}

func (c *Compiler) static(name token.Token, decl *types.Class, f types.Field) ast.Expr {
	info, _ := decl.Impl.(*ast.ClassInfo)
	if info == nil || info.Statics[f.Name] == nil {
		c.failTok(name, diag.ErrUndefVar)
	}
	return reg(c, &ast.Static{Name: f.Name, Var: info.Statics[f.Name]}, tokSpan(name))
}

// member compiles x.name.
func (c *Compiler) member(x ast.Expr, name token.Token) ast.Expr {
	cls := types.ClassOf(x.Type())
	if cls == nil {
		c.fail(x.Span(), diag.ErrNotClass)
	}
	f, decl, ok := cls.FindField(name.Literal)
	if !ok {
		c.failf(tokSpan(name), diag.ErrUndefMember, "%s has no field %s", cls.Name, name.Literal)
	}
	c.access(name, decl, f.Access)
	if f.Static {
		return c.static(name, decl, f)
	}
	n := &ast.Field{X: x, Index: cls.FieldIndex(name.Literal), Name: name.Literal, Typ: f.Type}
	return reg(c, n, x.Span().To(tokSpan(name)))
}

// access enforces member visibility from the class being compiled.
func (c *Compiler) access(name token.Token, decl *types.Class, acc types.Access) {
	from := c.fs.class
	switch acc {
	case types.Private:
		if from != decl {
			c.failTok(name, diag.ErrPrivate)
		}
	case types.Protected:
		if from == nil || !from.IsA(decl) {
			c.failTok(name, diag.ErrPrivate)
		}
	}
}

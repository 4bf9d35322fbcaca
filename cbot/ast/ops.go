// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package ast

import (
	"math"

	"github.com/colobot/colobot-sub025/cbot/diag"
	"github.com/colobot/colobot-sub025/cbot/token"
	"github.com/colobot/colobot-sub025/cbot/types"
	"github.com/colobot/colobot-sub025/cbot/value"
)

// BaseOp maps a compound assignment operator to its arithmetic operator.
func BaseOp(op token.Type) token.Type {
	switch op {
	case token.PLUSEQ:
		return token.PLUS
	case token.MINUSEQ:
		return token.MINUS
	case token.STAREQ:
		return token.STAR
	case token.SLASHEQ:
		return token.SLASH
	case token.PERCENTEQ:
		return token.PERCENT
	case token.AMPEQ:
		return token.AMP
	case token.PIPEEQ:
		return token.PIPE
	case token.CARETEQ:
		return token.CARET
	case token.LSHIFTEQ:
		return token.LSHIFT
	case token.RSHIFTEQ:
		return token.RSHIFT
	case token.URSHIFTEQ:
		return token.URSHIFT
	}
	return op
}

// IsComparison reports whether op yields a bool from two operands.
func IsComparison(op token.Type) bool {
	switch op {
	case token.EQ, token.NEQ, token.LT, token.LTE, token.GT, token.GTE:
		return true
	}
	return false
}

// compute applies a binary operator. t is the operand type chosen by the
// compiler (the promoted type, string for concatenation, bool for logical
// bit operators).
func compute(op token.Type, t types.Type, a, b *value.Var) (*value.Var, diag.Code) {
	if IsComparison(op) {
		return value.NewBool(compare(op, a, b)), 0
	}
	switch {
	case t.Kind() == types.KindString:
		if op != token.PLUS {
			return nil, diag.ErrBadOperands
		}
		return value.NewString(a.Text() + b.Text()), 0
	case t.Kind() == types.KindBool:
		x, y := a.Bool(), b.Bool()
		switch op {
		case token.AMP:
			return value.NewBool(x && y), 0
		case token.PIPE:
			return value.NewBool(x || y), 0
		case token.CARET:
			return value.NewBool(x != y), 0
		}
		return nil, diag.ErrBadOperands
	case t.Kind().IsFloating():
		return floatOp(op, t, a.Float(), b.Float())
	}
	return intOp(op, t, a.Int(), b.Int())
}

func compare(op token.Type, a, b *value.Var) bool {
	switch op {
	case token.EQ:
		return value.Equal(a, b)
	case token.NEQ:
		return !value.Equal(a, b)
	}
	c := value.Compare(a, b)
	if a.Kind().IsFloating() || b.Kind().IsFloating() {
		if math.IsNaN(a.Float()) || math.IsNaN(b.Float()) {
			return false
		}
	}
	switch op {
	case token.LT:
		return c < 0
	case token.LTE:
		return c <= 0
	case token.GT:
		return c > 0
	}
	return c >= 0
}

func floatOp(op token.Type, t types.Type, x, y float64) (*value.Var, diag.Code) {
	var z float64
	switch op {
	case token.PLUS:
		z = x + y
	case token.MINUS:
		z = x - y
	case token.STAR:
		z = x * y
	case token.SLASH:
		if y == 0 {
			return nil, diag.ErrZeroDiv
		}
		z = x / y
	case token.PERCENT:
		if y == 0 {
			return nil, diag.ErrZeroDiv
		}
		z = math.Mod(x, y)
	default:
		return nil, diag.ErrBadOperands
	}
	v := value.MakeVar(t)
	v.SetFloat(z)
	return v, 0
}

func intOp(op token.Type, t types.Type, x, y int64) (*value.Var, diag.Code) {
	long := t.Kind() == types.KindLong
	var z int64
	switch op {
	case token.PLUS:
		z = x + y
	case token.MINUS:
		z = x - y
	case token.STAR:
		z = x * y
	case token.SLASH:
		if y == 0 {
			return nil, diag.ErrZeroDiv
		}
		z = x / y
	case token.PERCENT:
		if y == 0 {
			return nil, diag.ErrZeroDiv
		}
		z = x % y
	case token.AMP:
		z = x & y
	case token.PIPE:
		z = x | y
	case token.CARET:
		z = x ^ y
	case token.LSHIFT:
		z = x << uint64(y&63)
	case token.RSHIFT:
		if long {
			z = x >> uint64(y&63)
		} else {
			z = int64(int32(x) >> uint64(y&31))
		}
	case token.URSHIFT:
		if long {
			z = int64(uint64(x) >> uint64(y&63))
		} else {
			z = int64(uint32(x) >> uint64(y&31))
		}
	default:
		return nil, diag.ErrBadOperands
	}
	v := value.MakeVar(t)
	v.SetInt(z)
	return v, 0
}

// negate implements unary minus and bitwise not.
func negate(op token.Type, t types.Type, x *value.Var) *value.Var {
	v := value.MakeVar(t)
	switch {
	case op == token.BANG:
		v.SetBool(!x.Bool())
	case op == token.TILDE:
		v.SetInt(^x.Int())
	case t.Kind().IsFloating():
		v.SetFloat(-x.Float())
	default:
		v.SetInt(-x.Int())
	}
	return v
}

// store assigns src to dst with the run-time checks of an assignment.
func store(dst, src *value.Var) diag.Code {
	if src.Kind().IsFloating() && dst.Kind().IsIntegral() && math.IsNaN(src.Float()) {
		return diag.ErrNan
	}
	if !src.IsDefined() && !dst.Kind().IsReference() {
		return diag.ErrNotInit
	}
	dst.Set(src)
	return 0
}

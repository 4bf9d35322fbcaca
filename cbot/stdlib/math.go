// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package stdlib

import (
	"math"
	"math/rand"

	"github.com/colobot/colobot-sub025/cbot/native"
	"github.com/colobot/colobot-sub025/cbot/types"
	"github.com/colobot/colobot-sub025/cbot/value"
)

const degree = math.Pi / 180

// unary wraps a float function of one argument.
func unary(name string, f func(float64) float64) entry {
	return entry{name, native.Signature(types.Float, types.Float),
		func(args, result *value.Var, _ interface{}) (bool, error) {
			result.SetFloat(f(args.Float()))
			return true, nil
		}}
}

func binary(name string, f func(a, b float64) float64) entry {
	return entry{name, native.Signature(types.Float, types.Float, types.Float),
		func(args, result *value.Var, _ interface{}) (bool, error) {
			result.SetFloat(f(args.Float(), args.Next().Float()))
			return true, nil
		}}
}

// Angles are in degrees.
func mathFuncs(rnd *rand.Rand) []entry {
	return []entry{
		unary("sin", func(x float64) float64 { return math.Sin(x * degree) }),
		unary("cos", func(x float64) float64 { return math.Cos(x * degree) }),
		unary("tan", func(x float64) float64 { return math.Tan(x * degree) }),
		unary("asin", func(x float64) float64 { return math.Asin(x) / degree }),
		unary("acos", func(x float64) float64 { return math.Acos(x) / degree }),
		unary("atan", func(x float64) float64 { return math.Atan(x) / degree }),
		binary("atan2", func(y, x float64) float64 { return math.Atan2(y, x) / degree }),
		unary("sqrt", math.Sqrt),
		binary("pow", math.Pow),
		unary("abs", math.Abs),
		unary("floor", math.Floor),
		unary("ceil", math.Ceil),
		unary("round", math.Round),
		unary("trunc", math.Trunc),
		{"rand", native.Signature(types.Float),
			func(_, result *value.Var, _ interface{}) (bool, error) {
				result.SetFloat(rnd.Float64())
				return true, nil
			}},
	}
}

// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package stdlib

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/colobot/colobot-sub025/cbot/diag"
	"github.com/colobot/colobot-sub025/cbot/native"
	"github.com/colobot/colobot-sub025/cbot/types"
	"github.com/colobot/colobot-sub025/cbot/value"
)

// Positions and lengths count runes.

func clamp(n, lo, hi int64) int64 {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

// checkMid accepts strmid(s, start) and strmid(s, start, len).
func checkMid(args *value.Var, user interface{}) (types.Type, error) {
	if len(native.Args(args)) == 2 {
		return native.Signature(types.String, types.String, types.Int)(args, user)
	}
	return native.Signature(types.String, types.String, types.Int, types.Int)(args, user)
}

func stringFuncs() []entry {
	return []entry{
		{"strlen", native.Signature(types.Int, types.String),
			func(args, result *value.Var, _ interface{}) (bool, error) {
				result.SetInt(int64(len([]rune(args.Text()))))
				return true, nil
			}},
		{"strleft", native.Signature(types.String, types.String, types.Int),
			func(args, result *value.Var, _ interface{}) (bool, error) {
				s := []rune(args.Text())
				result.SetString(string(s[:clamp(args.Next().Int(), 0, int64(len(s)))]))
				return true, nil
			}},
		{"strright", native.Signature(types.String, types.String, types.Int),
			func(args, result *value.Var, _ interface{}) (bool, error) {
				s := []rune(args.Text())
				n := clamp(args.Next().Int(), 0, int64(len(s)))
				result.SetString(string(s[int64(len(s))-n:]))
				return true, nil
			}},
		{"strmid", checkMid,
			func(args, result *value.Var, _ interface{}) (bool, error) {
				a := native.Args(args)
				s := []rune(a[0].Text())
				start := clamp(a[1].Int(), 0, int64(len(s)))
				end := int64(len(s))
				if len(a) > 2 {
					end = clamp(start+a[2].Int(), start, end)
				}
				result.SetString(string(s[start:end]))
				return true, nil
			}},
		{"strfind", native.Signature(types.Int, types.String, types.String),
			func(args, result *value.Var, _ interface{}) (bool, error) {
				s, sub := args.Text(), args.Next().Text()
				i := strings.Index(s, sub)
				if i > 0 {
					i = len([]rune(s[:i]))
				}
				result.SetInt(int64(i))
				return true, nil
			}},
		{"strval", native.Signature(types.Float, types.String),
			func(args, result *value.Var, _ interface{}) (bool, error) {
				f, err := strconv.ParseFloat(strings.TrimSpace(args.Text()), 64)
				if err != nil {
					return true, native.Failf(diag.ErrBadParam, "strval: %q is not a number", args.Text())
				}
				result.SetFloat(f)
				return true, nil
			}},
		{"strupper", native.Signature(types.String, types.String),
			func(args, result *value.Var, _ interface{}) (bool, error) {
				result.SetString(cases.Upper(language.Und).String(args.Text()))
				return true, nil
			}},
		{"strlower", native.Signature(types.String, types.String),
			func(args, result *value.Var, _ interface{}) (bool, error) {
				result.SetString(cases.Lower(language.Und).String(args.Text()))
				return true, nil
			}},
	}
}

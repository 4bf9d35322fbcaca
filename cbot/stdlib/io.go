// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package stdlib

import (
	"fmt"
	"io"
	"strings"

	"github.com/colobot/colobot-sub025/cbot/native"
	"github.com/colobot/colobot-sub025/cbot/types"
	"github.com/colobot/colobot-sub025/cbot/value"
)

func ioFuncs(out io.Writer) []entry {
	return []entry{
		// print writes its arguments separated by spaces and a newline.
		{"print", native.Variadic(types.Void, 0),
			func(args, _ *value.Var, _ interface{}) (bool, error) {
				parts := make([]string, 0, 4)
				for a := args; a != nil; a = a.Next() {
					parts = append(parts, a.Text())
				}
				_, err := fmt.Fprintln(out, strings.Join(parts, " "))
				return true, err
			}},
		// wait suspends the caller for n polls, one per resumption. The
		// remaining count lives in the argument so it survives a save.
		{"wait", native.Signature(types.Void, types.Int),
			func(args, _ *value.Var, _ interface{}) (bool, error) {
				n := args.Int()
				if n <= 0 {
					return true, nil
				}
				args.SetInt(n - 1)
				return false, nil
			}},
	}
}

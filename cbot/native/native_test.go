// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package native

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colobot/colobot-sub025/cbot/diag"
	"github.com/colobot/colobot-sub025/cbot/types"
	"github.com/colobot/colobot-sub025/cbot/value"
)

func TestRegister(t *testing.T) {
	shared := NewRegistry(nil)
	local := NewRegistry(shared)
	noop := func(*value.Var, *value.Var, interface{}) (bool, error) { return true, nil }

	require.NoError(t, shared.Register("move", Signature(types.Void, types.Float), noop))
	assert.NotNil(t, local.Lookup("move"))
	assert.True(t, errors.Is(local.Register("move", Signature(types.Void), noop), ErrDuplicate))
	assert.True(t, errors.Is(local.Register("turn", nil, noop), ErrMissingCallback))
	require.NoError(t, local.Register("turn", Signature(types.Void, types.Float), noop))
	assert.Equal(t, []string{"move", "turn"}, local.Names())
	assert.Nil(t, shared.Lookup("turn"))
}

func TestCheckRejectsArity(t *testing.T) {
	reg := NewRegistry(nil)
	require.NoError(t, reg.Register("pair",
		Signature(types.Int, types.Int, types.Int),
		func(args, res *value.Var, _ interface{}) (bool, error) {
			res.SetInt(args.Int() + args.Next().Int())
			return true, nil
		}))
	f := reg.Lookup("pair")

	ret, err := f.Compile([]types.Type{types.Int, types.Float}, nil)
	require.Nil(t, err)
	assert.Equal(t, types.Int, ret)

	_, err = f.Compile([]types.Type{types.Int, types.Int, types.Int}, nil)
	require.NotNil(t, err)
	assert.Equal(t, diag.ErrBadParam, err.Code)

	_, err = f.Compile([]types.Type{types.String, types.Int}, nil)
	require.NotNil(t, err)

	res := value.MakeVar(types.Int)
	done, derr := f.Call([]*value.Var{value.NewInt(2), value.NewInt(3)}, res, nil)
	require.Nil(t, derr)
	assert.True(t, done)
	assert.Equal(t, int64(5), res.Int())
}

func TestCheckSeesUserAndCustomCode(t *testing.T) {
	reg := NewRegistry(nil)
	const errTooFar diag.Code = diag.UserBase + 1
	require.NoError(t, reg.Register("reach",
		func(args *value.Var, user interface{}) (types.Type, error) {
			if user != "robot" {
				return nil, Fail(errTooFar)
			}
			return types.Bool, nil
		},
		func(args, res *value.Var, user interface{}) (bool, error) {
			return true, fmt.Errorf("motor jammed")
		}))
	f := reg.Lookup("reach")

	_, err := f.Compile(nil, "tower")
	require.NotNil(t, err)
	assert.Equal(t, errTooFar, err.Code)

	ret, err := f.Compile(nil, "robot")
	require.Nil(t, err)
	assert.Equal(t, types.Bool, ret)

	done, derr := f.Call(nil, value.MakeVar(types.Bool), "robot")
	assert.True(t, done)
	require.NotNil(t, derr)
	assert.Equal(t, diag.ErrNative, derr.Code)
	assert.Contains(t, derr.Detail, "motor jammed")
}

func TestPollingExec(t *testing.T) {
	reg := NewRegistry(nil)
	require.NoError(t, reg.Register("wait", Signature(types.Void, types.Float),
		func(args, _ *value.Var, _ interface{}) (bool, error) {
			left := args.Float() - 1
			args.SetFloat(left)
			return left <= 0, nil
		}))
	f := reg.Lookup("wait")
	arg := value.NewFloat(3)
	polls := 0
	for {
		polls++
		done, err := f.Call([]*value.Var{arg}, value.MakeVar(types.Void), nil)
		require.Nil(t, err)
		if done {
			break
		}
	}
	assert.Equal(t, 3, polls)
}

func TestVariadic(t *testing.T) {
	check := Variadic(types.Void, 1)
	_, err := check(nil, nil)
	assert.Error(t, err)
	_, err = check(value.Chain(value.MakeVar(types.String), value.MakeVar(types.Int)), nil)
	assert.NoError(t, err)
}

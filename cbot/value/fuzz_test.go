// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package value

import (
	"bytes"
	"testing"

	fuzz "github.com/google/gofuzz"
	"github.com/stretchr/testify/require"

	"github.com/colobot/colobot-sub025/cbot/types"
)

// sampleGraph saves a small object graph holding every payload kind.
func sampleGraph(t *testing.T) (*types.Registry, []byte) {
	reg := types.NewRegistry(nil)
	node := types.NewClass("Node", nil)
	require.NoError(t, reg.Define(node))
	require.NoError(t, node.AddField(types.Field{Name: "name", Type: types.String}))
	require.NoError(t, node.AddField(types.Field{Name: "weight", Type: types.Double}))
	require.NoError(t, node.AddField(types.Field{Name: "next", Type: types.PointerTo(node)}))

	a := NewInstance(node)
	a.Field("name").SetString("head")
	a.Field("weight").SetFloat(0.5)
	a.Field("next").SetInstance(a)

	list := Zero(types.ArrayOf(types.PointerTo(node), 4))
	for i := 0; i < 3; i++ {
		s, err := list.Array().Slot(int64(i))
		require.NoError(t, err)
		s.SetInstance(a)
	}
	var buf bytes.Buffer
	require.NoError(t, list.Save(&buf))
	return reg, buf.Bytes()
}

// Decoding damaged input must fail with an error, never panic.
func TestRestoreMutatedInput(t *testing.T) {
	reg, data := sampleGraph(t)
	f := fuzz.NewWithSeed(7)

	for i := 0; i < 2000; i++ {
		bad := append([]byte(nil), data...)
		var edits [3]struct {
			Pos uint16
			Val byte
		}
		f.Fuzz(&edits)
		for _, e := range edits {
			bad[int(e.Pos)%len(bad)] = e.Val
		}
		var cut uint16
		f.Fuzz(&cut)
		if int(cut) < len(bad) && i%4 == 0 {
			bad = bad[:cut]
		}
		require.NotPanics(t, func() { Restore(bytes.NewReader(bad), reg) }, "input %x", bad)
	}
}

func TestRestoreRandomInput(t *testing.T) {
	reg, _ := sampleGraph(t)
	f := fuzz.NewWithSeed(11).NilChance(0).NumElements(0, 96)

	for i := 0; i < 2000; i++ {
		var junk []byte
		f.Fuzz(&junk)
		require.NotPanics(t, func() { Restore(bytes.NewReader(junk), reg) }, "input %x", junk)
	}
}

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
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colobot/colobot-sub025/cbot/diag"
	"github.com/colobot/colobot-sub025/cbot/types"
)

func TestMakeVarStates(t *testing.T) {
	assert.Equal(t, Undefined, MakeVar(types.Int).State())
	assert.Equal(t, Null, MakeVar(types.ArrayOf(types.Int, -1)).State())
	assert.Equal(t, Null, MakeVar(types.PointerTo(types.NewClass("P", nil))).State())

	c := types.NewClass("C", nil)
	inst := MakeVar(types.InstanceOf(c))
	assert.Equal(t, Defined, inst.State())
	assert.NotNil(t, inst.Instance())

	z := Zero(types.ArrayOf(types.Int, -1))
	require.NotNil(t, z.Array())
	assert.Equal(t, 0, z.Array().Len())
}

func TestScalarConversions(t *testing.T) {
	cases := []struct {
		name string
		typ  types.Type
		set  func(v *Var)
		want string
	}{
		{"byte wraps", types.Byte, func(v *Var) { v.SetInt(200) }, "-56"},
		{"short wraps", types.Short, func(v *Var) { v.SetInt(40000) }, "-25536"},
		{"int wraps", types.Int, func(v *Var) { v.SetInt(1 << 32) }, "0"},
		{"float truncates to int", types.Int, func(v *Var) { v.SetFloat(-3.9) }, "-3"},
		{"nan to int", types.Int, func(v *Var) { v.SetFloat(math.NaN()) }, "0"},
		{"float precision", types.Float, func(v *Var) { v.SetFloat(0.1) }, "0.1"},
		{"double", types.Double, func(v *Var) { v.SetFloat(2.5) }, "2.5"},
		{"bool from int", types.Bool, func(v *Var) { v.SetInt(7) }, "true"},
		{"char", types.Char, func(v *Var) { v.SetInt('é') }, "é"},
		{"string from int", types.String, func(v *Var) { v.SetInt(42) }, "42"},
		{"int from string", types.Int, func(v *Var) { v.SetString(" 12 ") }, "12"},
		{"nan text", types.Float, func(v *Var) { v.SetFloat(math.NaN()) }, "nan"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := MakeVar(tc.typ)
			tc.set(v)
			assert.True(t, v.IsDefined())
			assert.Equal(t, tc.want, v.Text())
		})
	}
}

func TestConcatFormatting(t *testing.T) {
	assert.Equal(t, "1.5", NewFloat(1.5).Text())
	assert.Equal(t, "3", NewFloat(3).Text())
	assert.Equal(t, "1e+20", NewDouble(1e20).Text())
	assert.Equal(t, "true", NewBool(true).Text())
	assert.Equal(t, "null", NewNull().Text())
	assert.Equal(t, "undefined", MakeVar(types.Int).Text())
}

func TestScalarCopySemantics(t *testing.T) {
	a := NewInt(5)
	b := MakeVar(types.Int)
	b.Set(a)
	a.SetInt(9)
	assert.Equal(t, int64(5), b.Int())
}

func TestArraySharing(t *testing.T) {
	at := types.ArrayOf(types.Int, -1)
	a := Zero(at)
	b := MakeVar(at)
	b.Set(a)

	slot, err := a.Array().Slot(3)
	require.NoError(t, err)
	slot.SetInt(7)

	assert.Same(t, a.Array(), b.Array())
	assert.Equal(t, 4, b.Array().Len())
	got, err := b.Array().Index(3)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.Int())

	deep := a.DeepCopy()
	s, _ := deep.Array().Slot(3)
	s.SetInt(1)
	orig, _ := a.Array().Index(3)
	assert.Equal(t, int64(7), orig.Int(), "deep copy must not share storage")
}

func TestArrayBounds(t *testing.T) {
	a := NewArray(types.ArrayOf(types.Int, 2))
	_, err := a.Index(0)
	assert.True(t, errors.Is(err, diag.New(diag.ErrOutOfBounds)))
	_, err = a.Slot(1)
	assert.NoError(t, err)
	_, err = a.Slot(2)
	assert.True(t, errors.Is(err, diag.New(diag.ErrOutOfBounds)))
	assert.True(t, errors.Is(a.Append(NewInt(1)), diag.New(diag.ErrArrayLimit)))

	b := NewArray(types.ArrayOf(types.Int, -1))
	assert.NoError(t, b.Append(NewFloat(2.7)))
	assert.Equal(t, "{2}", b.String())
}

func TestInstanceSharingAndInstanceOf(t *testing.T) {
	base := types.NewClass("Base", nil)
	require.NoError(t, base.AddField(types.Field{Name: "x", Type: types.Int}))
	leaf := types.NewClass("Leaf", base)
	require.NoError(t, leaf.AddField(types.Field{Name: "y", Type: types.Float}))

	p := MakeVar(types.PointerTo(base))
	q := MakeVar(types.PointerTo(base))
	p.SetInstance(NewInstance(leaf))
	q.Set(p)
	p.Instance().Field("x").SetInt(3)

	assert.Equal(t, int64(3), q.Instance().Field("x").Int())
	assert.True(t, IsInstanceOf(q, base))
	assert.True(t, IsInstanceOf(q, leaf))
	assert.False(t, IsInstanceOf(MakeVar(types.PointerTo(base)), base))
	assert.True(t, Equal(p, q))

	q.SetNull()
	assert.True(t, Equal(q, NewNull()))
	assert.False(t, Equal(p, q))
}

func TestGenericAccessors(t *testing.T) {
	v := MakeVar(types.Double)
	Put(v, float32(1.25))
	assert.Equal(t, 1.25, Get[float64](v))
	assert.Equal(t, int32(1), Get[int32](v))
	assert.Equal(t, "1.25", Get[string](v))

	s := MakeVar(types.String)
	Put(s, true)
	assert.Equal(t, "true", Get[string](s))
}

func TestChain(t *testing.T) {
	head := Chain(NewInt(1), NewString("a"), NewBool(true))
	args := Unchain(head)
	require.Len(t, args, 3)
	assert.Equal(t, "a", args[1].Text())
	assert.Nil(t, args[2].Next())
	assert.Nil(t, Chain())
}

// ---- Save / Restore --------------------------------------------------------

func TestScalarRoundTrip(t *testing.T) {
	vars := []*Var{
		NewBool(true), NewInt(-123456), NewLong(math.MinInt64), NewFloat(1.5),
		NewDouble(math.Pi), NewString("héllo\x00"), NewChar('Ω'),
		MakeVar(types.Short), NewNull(),
	}
	b := MakeVar(types.Byte)
	b.SetInt(-7)
	vars = append(vars, b)

	for _, v := range vars {
		var buf bytes.Buffer
		require.NoError(t, v.Save(&buf))
		got, err := Restore(&buf, nil)
		require.NoError(t, err)
		assert.True(t, got.Type().Equals(v.Type()), "type %s", v.Type())
		assert.Equal(t, v.State(), got.State())
		assert.Equal(t, v.Text(), got.Text())
	}
}

func TestObjectGraphRoundTrip(t *testing.T) {
	reg := types.NewRegistry(nil)
	node := types.NewClass("Node", nil)
	require.NoError(t, reg.Define(node))
	require.NoError(t, node.AddField(types.Field{Name: "val", Type: types.Int}))
	require.NoError(t, node.AddField(types.Field{Name: "next", Type: types.PointerTo(node)}))

	// a -> b -> a, and an array holding a twice.
	a, b := NewInstance(node), NewInstance(node)
	a.Field("val").SetInt(1)
	b.Field("val").SetInt(2)
	a.Field("next").SetInstance(b)
	b.Field("next").SetInstance(a)

	list := Zero(types.ArrayOf(types.PointerTo(node), -1))
	list.Name = "list"
	for i := 0; i < 2; i++ {
		s, err := list.Array().Slot(int64(i))
		require.NoError(t, err)
		s.SetInstance(a)
	}

	var buf bytes.Buffer
	require.NoError(t, list.Save(&buf))
	got, err := Restore(&buf, reg)
	require.NoError(t, err)

	assert.Equal(t, "list", got.Name)
	arr := got.Array()
	require.Equal(t, 2, arr.Len())
	assert.Same(t, arr.Items[0].Instance(), arr.Items[1].Instance())
	ra := arr.Items[0].Instance()
	rb := ra.Field("next").Instance()
	assert.Equal(t, int64(2), rb.Field("val").Int())
	assert.Same(t, ra, rb.Field("next").Instance(), "cycle must be restored")
}

func TestRestoreRejectsCorruptInput(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewString("abc").Save(&buf))
	data := buf.Bytes()

	_, err := Restore(bytes.NewReader(data[:len(data)-1]), nil)
	assert.True(t, errors.Is(err, diag.New(diag.ErrStateCorrupt)), "truncated: %v", err)

	bad := append([]byte(nil), data...)
	bad[8] = 0xEE // type tag after empty name and id
	_, err = Restore(bytes.NewReader(bad), nil)
	assert.True(t, errors.Is(err, diag.New(diag.ErrStateCorrupt)), "bad tag: %v", err)
}

func TestRestoreUnknownClassIsMismatch(t *testing.T) {
	c := types.NewClass("Gone", nil)
	v := MakeVar(types.PointerTo(c))
	v.SetInstance(NewInstance(c))

	var buf bytes.Buffer
	require.NoError(t, v.Save(&buf))
	_, err := Restore(&buf, types.NewRegistry(nil))
	assert.True(t, errors.Is(err, diag.New(diag.ErrStateMismatch)), "err = %v", err)
}

func TestExternInstanceKeepsHostIdentity(t *testing.T) {
	reg := types.NewRegistry(nil)
	bot := types.NewClass("Bot", nil)
	require.NoError(t, reg.Define(bot))
	require.NoError(t, bot.AddField(types.Field{Name: "energy", Type: types.Int}))

	saved := NewInstance(bot)
	saved.Field("energy").SetInt(100)
	v := MakeVar(types.PointerTo(bot))
	v.SetInstance(saved)

	var buf bytes.Buffer
	e := NewEncoder(&buf)
	e.Extern(saved)
	e.PutVar(v)
	e.PutVar(v)
	require.NoError(t, e.Err())
	data := buf.Bytes()

	host := NewInstance(bot)
	host.Field("energy").SetInt(7)
	d := NewDecoder(bytes.NewReader(data), reg)
	d.Extern(host)
	a, b := d.GetVar(), d.GetVar()
	require.NoError(t, d.Err())
	assert.Same(t, host, a.Instance())
	assert.Same(t, host, b.Instance())
	assert.Equal(t, int64(7), host.Field("energy").Int(), "host fields are not overwritten")

	d = NewDecoder(bytes.NewReader(data), reg)
	d.GetVar()
	assert.True(t, errors.Is(d.Err(), diag.New(diag.ErrStateMismatch)), "err = %v", d.Err())
}

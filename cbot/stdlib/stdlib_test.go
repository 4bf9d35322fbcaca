// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package stdlib

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colobot/colobot-sub025/cbot/diag"
	"github.com/colobot/colobot-sub025/cbot/program"
)

func run(t *testing.T, src string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	g := program.NewGroup(program.Config{})
	require.NoError(t, Install(g, Config{Out: &out, Seed: 1}))
	p, err := g.NewProgram("test")
	require.NoError(t, err)
	require.NoError(t, p.Compile(src))
	require.NoError(t, p.Start("main"))

	s := program.NewScheduler(g)
	var runErr error
	s.OnExit = func(_ *program.Program, err error) { runErr = err }
	ticks := s.RunAll(10000)
	require.Less(t, ticks, 10000)
	return out.String(), runErr
}

func TestFunctions(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"sqrt(16)", "4"},
		{"pow(2, 10)", "1024"},
		{"abs(-3.5)", "3.5"},
		{"floor(2.7)", "2"},
		{"ceil(2.2)", "3"},
		{"round(2.5)", "3"},
		{"trunc(-2.7)", "-2"},
		{"sin(90)", "1"},
		{"cos(0)", "1"},
		{"atan2(1, 1)", "45"},
		{"strlen(\"hello\")", "5"},
		{"strleft(\"hello\", 2)", "he"},
		{"strright(\"hello\", 3)", "llo"},
		{"strmid(\"hello\", 1, 3)", "ell"},
		{"strmid(\"hello\", 3)", "lo"},
		{"strleft(\"hi\", 10)", "hi"},
		{"strfind(\"hello\", \"ll\")", "2"},
		{"strfind(\"hello\", \"z\")", "-1"},
		{"strupper(\"Bot\")", "BOT"},
		{"strlower(\"Bot\")", "bot"},
		{"strupper(\"straße\")", "STRASSE"},
		{"strval(\"2.5\") * 2", "5"},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			out, err := run(t, "extern void main() { print("+tt.expr+"); }")
			require.NoError(t, err)
			assert.Equal(t, tt.want+"\n", out)
		})
	}
}

func TestRandIsSeeded(t *testing.T) {
	a, err := run(t, `extern void main() { float r = rand(); print(r >= 0 && r < 1, r); }`)
	require.NoError(t, err)
	b, err := run(t, `extern void main() { float r = rand(); print(r >= 0 && r < 1, r); }`)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(a, "true "))
	assert.Equal(t, a, b)
}

func TestPointPrelude(t *testing.T) {
	out, err := run(t, `
extern void main() {
	point a;
	point b(3, 4);
	point c = new point(1, 2, 2);
	print(distance(a, b), distance2d(a, c), distance(a, c));
	print(b.x, b.y, b.z);
}`)
	require.NoError(t, err)
	assert.Equal(t, "5 2.236068 3\n3 4 0\n", out)
}

func TestWaitPolls(t *testing.T) {
	var out bytes.Buffer
	g := program.NewGroup(program.Config{})
	require.NoError(t, Install(g, Config{Out: &out}))
	slow, err := g.NewProgram("slow")
	require.NoError(t, err)
	require.NoError(t, slow.Compile(`extern void main() { print("slow start"); wait(3); print("slow end"); }`))
	fast, err := g.NewProgram("fast")
	require.NoError(t, err)
	require.NoError(t, fast.Compile(`extern void main() { print("fast"); }`))
	require.NoError(t, slow.Start("main"))
	require.NoError(t, fast.Start("main"))

	s := program.NewScheduler(g)
	assert.Equal(t, 1, s.Tick())
	assert.Equal(t, "slow start\nfast\n", out.String())
	s.RunAll(0)
	assert.Equal(t, "slow start\nfast\nslow end\n", out.String())
	assert.Equal(t, uint64(4), s.Ticks())
}

func TestStrvalError(t *testing.T) {
	_, err := run(t, `extern void main() { float f = strval("abc"); }`)
	var d *diag.Error
	require.ErrorAs(t, err, &d)
	assert.Equal(t, diag.ErrBadParam, d.Code)
}

func TestDuplicateInstall(t *testing.T) {
	g := program.NewGroup(program.Config{})
	require.NoError(t, Install(g, Config{}))
	assert.Error(t, Install(g, Config{}))
}

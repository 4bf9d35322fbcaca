// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colobot/colobot-sub025/cbot/diag"
	"github.com/colobot/colobot-sub025/cbot/program"
)

func init() {
	color.NoColor = true
}

func TestBalanced(t *testing.T) {
	tests := []struct {
		src  string
		want bool
	}{
		{"int x = 1;", true},
		{"void f() {", false},
		{"void f() {\n}", true},
		{`print("{");`, true},
		{"print(1,", false},
		{"/* open", false},
		{"}", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, balanced(tt.src), "%q", tt.src)
	}
}

func TestProgramName(t *testing.T) {
	assert.Equal(t, "bot", programName("scripts/bot.cbot"))
	assert.Equal(t, "plain", programName("plain"))
}

func TestReportHighlightsSpan(t *testing.T) {
	src := "int f() {\n\treturn x;\n}\n"
	start := strings.Index(src, "x")
	err := diag.At(diag.ErrUndefVar, start, start+1, 2, 9)

	var buf bytes.Buffer
	report(&buf, "a.cbot", src, err)
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "a.cbot:2:9: "))
	assert.Equal(t, "   2 | \treturn x;", lines[1])
	assert.Equal(t, "     | \t       ^", lines[2])
}

func TestShift(t *testing.T) {
	src := "int g;\nextern void replMain() {\nbad\n}\n"
	offset := strings.Index(src, "bad")
	err := diag.At(diag.ErrUnexpected, offset, offset+3, 3, 1)

	moved := shift(err, offset, src).(*diag.Error)
	assert.Equal(t, 0, moved.Start)
	assert.Equal(t, 3, moved.End)
	assert.Equal(t, 1, moved.Line)
	assert.Equal(t, offset, err.Start, "original error modified")
}

func TestLoadConfig(t *testing.T) {
	file := filepath.Join(t.TempDir(), "cbot.toml")
	data := `
[Engine]
Budget = 50
MaxCallDepth = 64

[Stdlib]
Seed = 7

[Run]
TPS = 20.0
`
	require.NoError(t, os.WriteFile(file, []byte(data), 0644))

	cfg := defaultConfig()
	require.NoError(t, loadConfig(file, &cfg))
	assert.Equal(t, 50, cfg.Engine.Budget)
	assert.Equal(t, 64, cfg.Engine.MaxCallDepth)
	assert.Equal(t, program.Defaults.CacheSize, cfg.Engine.CacheSize)
	assert.Equal(t, int64(7), cfg.Stdlib.Seed)
	assert.Equal(t, 20.0, cfg.Run.TPS)
	assert.Equal(t, "cbot.db", cfg.Store.Path)
}

func TestLoadConfigUnknownField(t *testing.T) {
	file := filepath.Join(t.TempDir(), "cbot.toml")
	require.NoError(t, os.WriteFile(file, []byte("[Engine]\nSpeed = 3\n"), 0644))

	cfg := defaultConfig()
	err := loadConfig(file, &cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Speed")
}

func TestSessionEval(t *testing.T) {
	var out bytes.Buffer
	cfg := defaultConfig()
	cfg.Stdlib.Out = &out
	g, err := newGroup(cfg)
	require.NoError(t, err)
	p, err := g.NewProgram("repl")
	require.NoError(t, err)
	s := &session{group: g, prog: p}

	s.eval(&out, "int sq(int n) { return n * n; }", cfg.Engine.Budget)
	assert.Equal(t, "ok\n", out.String())

	out.Reset()
	s.eval(&out, "sq(7)", cfg.Engine.Budget)
	assert.Equal(t, "49\n", out.String())

	out.Reset()
	s.eval(&out, "int a = sq(2); print(a + 1);", cfg.Engine.Budget)
	assert.Equal(t, "5\n", out.String())

	out.Reset()
	s.eval(&out, "nosuch(1);", cfg.Engine.Budget)
	assert.Contains(t, out.String(), "repl:1:1: ")
	assert.Len(t, s.decls, 1)
}

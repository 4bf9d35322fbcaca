// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package log

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogfmtContext(t *testing.T) {
	var buf bytes.Buffer
	l := New("unit", "bot")
	l.SetHandler(StreamHandler(&buf, LogfmtFormat()))

	l.Info("compiled", "functions", 3, "name", "has space")
	out := buf.String()
	assert.Contains(t, out, "lvl=info")
	assert.Contains(t, out, "msg=compiled")
	assert.Contains(t, out, "unit=bot functions=3")
	assert.Contains(t, out, `name="has space"`)
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestLvlFilter(t *testing.T) {
	var n int
	h := LvlFilterHandler(LvlWarn, FuncHandler(func(r *Record) error {
		n++
		return nil
	}))
	l := New()
	l.SetHandler(h)
	l.Debug("dropped")
	l.Info("dropped")
	l.Warn("kept")
	l.Error("kept")
	assert.Equal(t, 2, n)
}

func TestOddContext(t *testing.T) {
	var rec *Record
	l := New()
	l.SetHandler(FuncHandler(func(r *Record) error { rec = r; return nil }))
	l.Info("odd", "lonely")
	require.NotNil(t, rec)
	assert.Len(t, rec.Ctx, 4)
	assert.Equal(t, errKey, rec.Ctx[2])
}

func TestLvlFromString(t *testing.T) {
	for _, s := range []string{"trace", "dbug", "info", "warn", "eror", "crit"} {
		_, err := LvlFromString(s)
		assert.NoError(t, err, s)
	}
	_, err := LvlFromString("loud")
	assert.Error(t, err)
}

func TestTerminalFormatNoColor(t *testing.T) {
	var buf bytes.Buffer
	l := New()
	l.SetHandler(StreamHandler(&buf, TerminalFormat(false)))
	l.Warn("tick", "steps", int64(12))
	assert.True(t, strings.HasPrefix(buf.String(), "WARN ["))
	assert.Contains(t, buf.String(), "steps=12")
}

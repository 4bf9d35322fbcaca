// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package stdlib provides the standard CBot host functions and the point
// class.
//
// Everything here goes through the same registration surface a game host
// uses: each function is a check callback run at every call site and an
// exec callback run when the call executes.
package stdlib

import (
	"fmt"
	"io"
	"math/rand"
	"os"

	"github.com/colobot/colobot-sub025/cbot/native"
	"github.com/colobot/colobot-sub025/cbot/program"
)

// PreludeName is the name of the program holding the script part of the
// library.
const PreludeName = "stdlib"

// Config configures Install.
type Config struct {
	// Out receives the output of print. Defaults to os.Stdout.
	Out io.Writer `toml:"-"`

	// Seed seeds rand(). The generator is shared by every program of the
	// group and its position is not kept in saved program state.
	Seed int64
}

// entry is one host function.
type entry struct {
	name  string
	check native.CheckFunc
	exec  native.ExecFunc
}

// Install registers the library with g and compiles the prelude.
func Install(g *program.Group, cfg Config) error {
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	var all []entry
	all = append(all, mathFuncs(rand.New(rand.NewSource(cfg.Seed)))...)
	all = append(all, stringFuncs()...)
	all = append(all, ioFuncs(cfg.Out)...)
	for _, e := range all {
		if err := g.Register(e.name, e.check, e.exec); err != nil {
			return err
		}
	}
	p, err := g.NewProgram(PreludeName)
	if err != nil {
		return err
	}
	if err := p.Compile(prelude); err != nil {
		return fmt.Errorf("stdlib: prelude: %w", err)
	}
	return nil
}

// prelude is the script part of the library.
const prelude = `
public class point {
	float x = 0, y = 0, z = 0;

	point() {}
	point(float px, float py) { x = px; y = py; }
	point(float px, float py, float pz) { x = px; y = py; z = pz; }
}

public float distance(point a, point b) {
	float dx = a.x - b.x, dy = a.y - b.y, dz = a.z - b.z;
	return sqrt(dx * dx + dy * dy + dz * dz);
}

public float distance2d(point a, point b) {
	float dx = a.x - b.x, dy = a.y - b.y;
	return sqrt(dx * dx + dy * dy);
}
`

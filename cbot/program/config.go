// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package program

// Config holds the execution limits of a group.
type Config struct {
	// Budget is the number of steps a program may take per Continue call
	// and per scheduler tick.
	Budget int

	// MaxCallDepth bounds nested function calls. Exceeding it raises a
	// stack overflow runtime error.
	MaxCallDepth int

	// CacheSize is the number of token streams kept by the group for
	// sources compiled more than once.
	CacheSize int
}

// Defaults contains the default settings.
var Defaults = Config{
	Budget:       1000,
	MaxCallDepth: 256,
	CacheSize:    64,
}

// sanitize fills unset fields from Defaults.
func (c Config) sanitize() Config {
	if c.Budget <= 0 {
		c.Budget = Defaults.Budget
	}
	if c.MaxCallDepth <= 0 {
		c.MaxCallDepth = Defaults.MaxCallDepth
	}
	if c.CacheSize <= 0 {
		c.CacheSize = Defaults.CacheSize
	}
	return c
}

// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package program

// Scheduler interleaves the running programs of a group. Each tick gives
// every running program one budget of steps, in creation order.
type Scheduler struct {
	group  *Group
	budget int
	ticks  uint64

	// OnExit is called when a program finishes or fails during a tick.
	OnExit func(p *Program, err error)
}

// NewScheduler creates a scheduler for g using the group's step budget.
func NewScheduler(g *Group) *Scheduler {
	return &Scheduler{group: g, budget: g.config.Budget}
}

// SetBudget changes the steps each program gets per tick.
func (s *Scheduler) SetBudget(n int) { s.budget = n }

// Ticks returns the number of ticks run.
func (s *Scheduler) Ticks() uint64 { return s.ticks }

// Tick runs every running program once and returns how many are still
// running. A failing program is stopped; the others are unaffected.
func (s *Scheduler) Tick() int {
	s.ticks++
	running := 0
	for _, p := range s.group.Programs() {
		if !p.IsRunning() {
			continue
		}
		done, err := p.Run(s.budget)
		if !done {
			running++
			continue
		}
		if err != nil {
			s.group.log.Warn("Program stopped by runtime error", "program", p.Name(), "tick", s.ticks, "err", err)
		} else {
			s.group.log.Debug("Program completed", "program", p.Name(), "tick", s.ticks, "steps", p.Steps())
		}
		if s.OnExit != nil {
			s.OnExit(p, err)
		}
	}
	return running
}

// RunAll ticks until no program is running or maxTicks ticks have run
// (maxTicks <= 0 means no limit). It returns the number of ticks taken.
func (s *Scheduler) RunAll(maxTicks int) int {
	n := 0
	for s.group.Running() > 0 {
		if maxTicks > 0 && n >= maxTicks {
			break
		}
		s.Tick()
		n++
	}
	return n
}

// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package program

import (
	"bytes"
	"io"

	"github.com/colobot/colobot-sub025/cbot/ast"
	"github.com/colobot/colobot-sub025/cbot/diag"
	"github.com/colobot/colobot-sub025/cbot/stack"
	"github.com/colobot/colobot-sub025/cbot/value"
)

// Saved state layout:
//
//	state := "CBST" version:u16 name:string source:string(32 bytes)
//	         entry:string bound:u8 frames
//
// When the entry runs on the object set with SetThis, bound is 1 and that
// object is written by reference only: a restored state runs on the object
// bound to the restoring program, so the host keeps ownership of it.
//
// The source fingerprint is the SHA3-256 hash of the compiled text; a
// state only restores into a program compiled from the same source.
// Static class fields are not part of the state.
const stateVersion uint16 = 2

var stateMagic = []byte("CBST")

// SaveState writes the paused execution of the program to w.
func (p *Program) SaveState(w io.Writer) error {
	if p.root == nil {
		return ErrNotRunning
	}
	if _, err := w.Write(stateMagic); err != nil {
		return err
	}
	e := value.NewEncoder(w)
	e.PutU16(stateVersion)
	e.PutString(p.name)
	e.PutString(string(p.sum[:]))
	e.PutString(p.entry.FullKey())
	bound := p.boundRoot()
	e.PutBool(bound)
	if bound {
		e.Extern(p.this.Instance())
	}
	p.root.Save(e)
	if err := e.Err(); err != nil {
		return err
	}
	p.log.Debug("Saved program state", "entry", p.entry.FullKey(), "steps", p.runner.Steps())
	return nil
}

// RestoreState replaces the execution of the program with a state written
// by SaveState. The state is checked completely before it is installed;
// on any error the program is left stopped and the error is a *diag.Error
// with a state code.
func (p *Program) RestoreState(r io.Reader) error {
	p.Stop()
	if p.unit == nil {
		return ErrNotCompiled
	}
	entry, root, err := p.decodeState(r)
	if err != nil {
		p.err, _ = err.(*diag.Error)
		p.log.Warn("Rejected saved state", "err", err)
		return err
	}
	p.entry, p.root = entry, root
	p.newRunner()
	p.result, p.err = nil, nil
	p.log.Debug("Restored program state", "entry", entry.FullKey())
	return nil
}

func (p *Program) decodeState(r io.Reader) (*ast.Function, *stack.Frame, error) {
	magic := make([]byte, len(stateMagic))
	if _, err := io.ReadFull(r, magic); err != nil || !bytes.Equal(magic, stateMagic) {
		return nil, nil, diag.New(diag.ErrStateCorrupt).Withf("bad magic")
	}
	d := value.NewDecoder(r, p.classes)
	version := d.GetU16()
	name := d.GetString()
	sum := d.GetString()
	key := d.GetString()
	if err := d.Err(); err != nil {
		return nil, nil, err
	}
	switch {
	case version != stateVersion:
		return nil, nil, diag.New(diag.ErrStateVersion).Withf("version %d, want %d", version, stateVersion)
	case name != p.name:
		return nil, nil, diag.New(diag.ErrStateMismatch).Withf("state of program %q", name)
	case sum != string(p.sum[:]):
		return nil, nil, diag.New(diag.ErrStateMismatch).Withf("source changed since the state was saved")
	}
	entry := p.unit.Function(key)
	if entry == nil {
		return nil, nil, diag.New(diag.ErrStateMismatch).Withf("no function %s", key)
	}
	if d.GetBool() {
		if entry.Class == nil {
			return nil, nil, diag.New(diag.ErrStateCorrupt).Withf("bound object for %s", key)
		}
		d.Extern(p.boundThis(entry.Class).Instance())
	}
	root := stack.RestoreFrames(d)
	if err := d.Err(); err != nil {
		return nil, nil, err
	}
	if err := ast.Bind(entry, root); err != nil {
		return nil, nil, err
	}
	return entry, root, nil
}

// boundRoot reports whether the running entry uses the object set with
// SetThis.
func (p *Program) boundRoot() bool {
	if p.this == nil || p.this.Instance() == nil || p.root.This == nil {
		return false
	}
	return p.root.This.Instance() == p.this.Instance()
}

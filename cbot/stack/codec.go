// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package stack

import (
	"github.com/colobot/colobot-sub025/cbot/diag"
	"github.com/colobot/colobot-sub025/cbot/value"
)

// maxFrames bounds the length of a decoded frame chain.
const maxFrames = 1 << 20

// Frame layout, depth first from the root:
//
//	frame := node:i32 state:i32 count:i64 flags:u8 [unit:string]
//	         temps:vars result:opt [locals:vars this:opt] pending:opt child:opt
//	vars  := count:u32 opt*
//	opt   := present:u8 [var]
const (
	flagBoundary uint8 = 1 << iota
)

// Save writes the frame tree rooted at f. Values shared between frames
// keep their sharing as long as the same Encoder is used.
func (f *Frame) Save(e *value.Encoder) {
	for fr := f; fr != nil; fr = fr.Child {
		e.PutI32(int32(fr.Node))
		e.PutI32(int32(fr.State))
		e.PutI64(fr.Count)
		var flags uint8
		if fr.Boundary {
			flags |= flagBoundary
		}
		e.PutU8(flags)
		if fr.Boundary {
			e.PutString(fr.Unit)
		}
		putVars(e, fr.Temps)
		putOpt(e, fr.Result)
		if fr.Boundary {
			putVars(e, fr.Locals)
			putOpt(e, fr.This)
		}
		if u := fr.Pending; u != nil {
			e.PutBool(true)
			e.PutU8(uint8(u.Status))
			e.PutString(u.Label)
			putOpt(e, u.Ret)
			putErr(e, u.Err)
		} else {
			e.PutBool(false)
		}
		e.PutBool(fr.Child != nil)
	}
}

func putOpt(e *value.Encoder, v *value.Var) {
	e.PutBool(v != nil)
	if v != nil {
		e.PutVar(v)
	}
}

func putVars(e *value.Encoder, vs []*value.Var) {
	e.PutU32(uint32(len(vs)))
	for _, v := range vs {
		putOpt(e, v)
	}
}

func putErr(e *value.Encoder, err *diag.Error) {
	e.PutBool(err != nil)
	if err == nil {
		return
	}
	e.PutI32(int32(err.Code))
	e.PutI32(int32(err.Start))
	e.PutI32(int32(err.End))
	e.PutI32(int32(err.Line))
	e.PutI32(int32(err.Column))
	e.PutString(err.Detail)
}

// RestoreFrames reads a frame tree written by Save and relinks it. Node
// ids are not checked here; the owner of the AST validates them.
func RestoreFrames(d *value.Decoder) *Frame {
	var root, prev *Frame
	for n := 0; ; n++ {
		if n >= maxFrames {
			d.Fail(diag.New(diag.ErrStateCorrupt).Withf("frame chain too long"))
			return nil
		}
		fr := &Frame{
			Node:  int(d.GetI32()),
			State: int(d.GetI32()),
			Count: d.GetI64(),
		}
		flags := d.GetU8()
		if flags&^flagBoundary != 0 {
			d.Fail(diag.New(diag.ErrStateCorrupt).Withf("bad frame flags %#x", flags))
			return nil
		}
		fr.Boundary = flags&flagBoundary != 0
		if fr.Boundary {
			fr.Unit = d.GetString()
		}
		fr.Temps = getVars(d)
		fr.Result = getOpt(d)
		if fr.Boundary {
			fr.Locals = getVars(d)
			fr.This = getOpt(d)
		}
		if d.GetBool() {
			u := &Unwind{Status: Status(d.GetU8())}
			if u.Status > Error {
				d.Fail(diag.New(diag.ErrStateCorrupt).Withf("bad pending status %d", u.Status))
				return nil
			}
			u.Label = d.GetString()
			u.Ret = getOpt(d)
			u.Err = getErr(d)
			fr.Pending = u
		}
		if d.Err() != nil {
			return nil
		}
		if root == nil {
			if !fr.Boundary {
				d.Fail(diag.New(diag.ErrStateCorrupt).Withf("root frame is not a function"))
				return nil
			}
			root = fr
		} else {
			prev.Child = fr
		}
		prev = fr
		if !d.GetBool() {
			break
		}
	}
	if d.Err() != nil {
		return nil
	}
	root.Relink()
	return root
}

func getOpt(d *value.Decoder) *value.Var {
	if !d.GetBool() {
		return nil
	}
	return d.GetVar()
}

func getVars(d *value.Decoder) []*value.Var {
	n := d.Count()
	if n == 0 {
		return nil
	}
	vs := make([]*value.Var, n)
	for i := range vs {
		if d.Err() != nil {
			return nil
		}
		vs[i] = getOpt(d)
	}
	return vs
}

func getErr(d *value.Decoder) *diag.Error {
	if !d.GetBool() {
		return nil
	}
	err := &diag.Error{Code: diag.Code(d.GetI32())}
	err.Start = int(d.GetI32())
	err.End = int(d.GetI32())
	err.Line = int(d.GetI32())
	err.Column = int(d.GetI32())
	err.Detail = d.GetString()
	return err
}

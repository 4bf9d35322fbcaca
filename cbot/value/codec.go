// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package value

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/colobot/colobot-sub025/cbot/diag"
	"github.com/colobot/colobot-sub025/cbot/types"
)

// Encoding layout. All integers are little-endian and fixed width.
//
//	type    := kind:u8 [ elem:type len:i32 | class:string ]
//	var     := name:string id:i32 type state:u8 payload?
//	payload := bool:u8 | byte:u8 | short:u16 | char:u32 | int:u32 | long:i64
//	         | float:f32 | double:f64 | string | object
//	object  := tag:u8 id:u32 [ body ]      (body only when tag == refNew)
//	array   := type count:u32 var*
//	instance:= class:string count:u32 var*
//	string  := len:u32 bytes
//
// An object registered with Extern on both sides is written as a refExtern
// tag and its extern index; the decoder substitutes the object the host
// supplies for that index.
const (
	refSeen   uint8 = 1
	refNew    uint8 = 2
	refExtern uint8 = 3
)

// Upper bounds accepted while decoding, so a corrupt length cannot trigger
// a huge allocation.
const (
	maxString = 1 << 24
	maxItems  = 1 << 22
	maxDepth  = 1 << 14
)

// ClassResolver finds class descriptors by name while decoding.
type ClassResolver interface {
	Lookup(name string) *types.Class
}

// ---- Encoder ---------------------------------------------------------------

// Encoder writes values in the saved-state format. The first write error is
// sticky; check Err once at the end.
type Encoder struct {
	w    io.Writer
	err  error
	buf  [8]byte
	objs map[interface{}]uint32

	externs map[interface{}]uint32
}

// NewEncoder returns an encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w, objs: make(map[interface{}]uint32), externs: make(map[interface{}]uint32)}
}

// Extern marks o as owned by the host. References to it are written by
// identity only, never with its fields.
func (e *Encoder) Extern(o *Instance) {
	if _, ok := e.externs[o]; !ok {
		e.externs[o] = uint32(len(e.externs))
	}
}

// Err returns the first error encountered.
func (e *Encoder) Err() error { return e.err }

func (e *Encoder) write(b []byte) {
	if e.err != nil {
		return
	}
	_, e.err = e.w.Write(b)
}

func (e *Encoder) PutU8(v uint8) { e.buf[0] = v; e.write(e.buf[:1]) }

func (e *Encoder) PutU16(v uint16) {
	binary.LittleEndian.PutUint16(e.buf[:2], v)
	e.write(e.buf[:2])
}

func (e *Encoder) PutU32(v uint32) {
	binary.LittleEndian.PutUint32(e.buf[:4], v)
	e.write(e.buf[:4])
}

func (e *Encoder) PutI32(v int32) { e.PutU32(uint32(v)) }

func (e *Encoder) PutI64(v int64) {
	binary.LittleEndian.PutUint64(e.buf[:8], uint64(v))
	e.write(e.buf[:8])
}

func (e *Encoder) PutF32(v float32) { e.PutU32(math.Float32bits(v)) }
func (e *Encoder) PutF64(v float64) { e.PutI64(int64(math.Float64bits(v))) }

func (e *Encoder) PutBool(b bool) {
	if b {
		e.PutU8(1)
	} else {
		e.PutU8(0)
	}
}

func (e *Encoder) PutString(s string) {
	e.PutU32(uint32(len(s)))
	e.write([]byte(s))
}

// PutType writes a type descriptor.
func (e *Encoder) PutType(t types.Type) {
	if t == nil {
		t = types.Void
	}
	e.PutU8(uint8(t.Kind()))
	switch t := t.(type) {
	case *types.ArrayType:
		e.PutType(t.Elem)
		e.PutI32(int32(t.Len))
	case *types.ClassType:
		e.PutString(t.Class.Name)
	case *types.PointerType:
		e.PutString(t.Class.Name)
	}
}

// PutVar writes a variable with its name, type tag, state and payload.
func (e *Encoder) PutVar(v *Var) {
	e.PutString(v.Name)
	e.PutI32(int32(v.ID))
	e.PutType(v.typ)
	e.PutU8(uint8(v.state))
	if v.state != Defined {
		return
	}
	switch v.Kind() {
	case types.KindBool, types.KindByte:
		e.PutU8(uint8(v.num))
	case types.KindShort:
		e.PutU16(uint16(v.num))
	case types.KindChar, types.KindInt:
		e.PutU32(uint32(v.num))
	case types.KindLong:
		e.PutI64(v.num)
	case types.KindFloat:
		e.PutF32(float32(v.flt))
	case types.KindDouble:
		e.PutF64(v.flt)
	case types.KindString:
		e.PutString(v.str)
	case types.KindArray:
		e.putArray(v.arr)
	case types.KindClass, types.KindPointer:
		e.putInstance(v.obj)
	}
}

// putRef writes the identity tag of an object and reports whether its body
// must follow.
func (e *Encoder) putRef(obj interface{}) bool {
	if id, ok := e.externs[obj]; ok {
		e.PutU8(refExtern)
		e.PutU32(id)
		return false
	}
	if id, ok := e.objs[obj]; ok {
		e.PutU8(refSeen)
		e.PutU32(id)
		return false
	}
	id := uint32(len(e.objs))
	e.objs[obj] = id
	e.PutU8(refNew)
	e.PutU32(id)
	return true
}

func (e *Encoder) putArray(a *Array) {
	if !e.putRef(a) {
		return
	}
	e.PutType(a.Type)
	e.PutU32(uint32(len(a.Items)))
	for _, it := range a.Items {
		e.PutVar(it)
	}
}

func (e *Encoder) putInstance(o *Instance) {
	if !e.putRef(o) {
		return
	}
	e.PutString(o.Class.Name)
	e.PutU32(uint32(len(o.Fields)))
	for _, f := range o.Fields {
		e.PutVar(f)
	}
}

// ---- Decoder ---------------------------------------------------------------

// Decoder reads the saved-state format. Errors are sticky and always
// *diag.Error values with a state code.
type Decoder struct {
	r       io.Reader
	err     error
	buf     [8]byte
	classes ClassResolver
	objs    []interface{}
	externs []interface{}
	depth   int
}

// NewDecoder returns a decoder reading from r that resolves class names
// through classes.
func NewDecoder(r io.Reader, classes ClassResolver) *Decoder {
	return &Decoder{r: r, classes: classes}
}

// Extern supplies the host object standing for the next extern index, in
// the order the encoder registered them.
func (d *Decoder) Extern(o *Instance) {
	d.externs = append(d.externs, o)
}

// Err returns the first error encountered.
func (d *Decoder) Err() error { return d.err }

// Fail records err unless an earlier error is already pending.
func (d *Decoder) Fail(err error) {
	if d.err == nil {
		d.err = err
	}
}

func (d *Decoder) corrupt(format string, args ...interface{}) {
	d.Fail(diag.New(diag.ErrStateCorrupt).Withf(format, args...))
}

func (d *Decoder) mismatch(format string, args ...interface{}) {
	d.Fail(diag.New(diag.ErrStateMismatch).Withf(format, args...))
}

func (d *Decoder) read(b []byte) bool {
	if d.err != nil {
		return false
	}
	if _, err := io.ReadFull(d.r, b); err != nil {
		d.corrupt("truncated input: %v", err)
		return false
	}
	return true
}

func (d *Decoder) GetU8() uint8 {
	if !d.read(d.buf[:1]) {
		return 0
	}
	return d.buf[0]
}

func (d *Decoder) GetU16() uint16 {
	if !d.read(d.buf[:2]) {
		return 0
	}
	return binary.LittleEndian.Uint16(d.buf[:2])
}

func (d *Decoder) GetU32() uint32 {
	if !d.read(d.buf[:4]) {
		return 0
	}
	return binary.LittleEndian.Uint32(d.buf[:4])
}

func (d *Decoder) GetI32() int32 { return int32(d.GetU32()) }

func (d *Decoder) GetI64() int64 {
	if !d.read(d.buf[:8]) {
		return 0
	}
	return int64(binary.LittleEndian.Uint64(d.buf[:8]))
}

func (d *Decoder) GetF32() float32 { return math.Float32frombits(d.GetU32()) }
func (d *Decoder) GetF64() float64 { return math.Float64frombits(uint64(d.GetI64())) }

func (d *Decoder) GetBool() bool {
	switch d.GetU8() {
	case 0:
		return false
	case 1:
		return true
	}
	d.corrupt("bad boolean")
	return false
}

func (d *Decoder) GetString() string {
	n := d.GetU32()
	if n > maxString {
		d.corrupt("string length %d", n)
		return ""
	}
	b := make([]byte, n)
	if !d.read(b) {
		return ""
	}
	return string(b)
}

// Count reads an element count and checks it against the decoding limit.
func (d *Decoder) Count() int {
	n := d.GetU32()
	if n > maxItems {
		d.corrupt("count %d", n)
		return 0
	}
	return int(n)
}

// GetType reads a type descriptor. Unknown classes are a mismatch with the
// running program rather than corruption.
func (d *Decoder) GetType() types.Type {
	if d.depth++; d.depth > maxDepth {
		d.corrupt("type nesting too deep")
	}
	defer func() { d.depth-- }()

	k := types.Kind(d.GetU8())
	if d.err != nil {
		return types.Void
	}
	switch k {
	case types.KindArray:
		elem := d.GetType()
		n := d.GetI32()
		return types.ArrayOf(elem, int(n))
	case types.KindClass, types.KindPointer:
		name := d.GetString()
		c := d.lookup(name)
		if c == nil {
			return types.Void
		}
		if k == types.KindClass {
			return types.InstanceOf(c)
		}
		return types.PointerTo(c)
	}
	if t := types.Primitive(k); t != nil {
		return t
	}
	d.corrupt("bad type tag %d", k)
	return types.Void
}

func (d *Decoder) lookup(name string) *types.Class {
	if d.err != nil {
		return nil
	}
	var c *types.Class
	if d.classes != nil {
		c = d.classes.Lookup(name)
	}
	if c == nil {
		d.mismatch("unknown class %q", name)
	}
	return c
}

// GetVar reads a variable written by PutVar.
func (d *Decoder) GetVar() *Var {
	if d.depth++; d.depth > maxDepth {
		d.corrupt("value nesting too deep")
	}
	defer func() { d.depth-- }()

	name := d.GetString()
	id := d.GetI32()
	t := d.GetType()
	state := State(d.GetU8())
	v := &Var{Name: name, ID: int(id), typ: t, state: state}
	if d.err != nil {
		return v
	}
	switch state {
	case Undefined, Null:
		return v
	case Defined:
	default:
		d.corrupt("bad state %d", state)
		return v
	}
	switch t.Kind() {
	case types.KindBool:
		v.num = int64(d.GetU8() & 1)
	case types.KindByte:
		v.num = int64(int8(d.GetU8()))
	case types.KindShort:
		v.num = int64(int16(d.GetU16()))
	case types.KindChar, types.KindInt:
		v.num = int64(int32(d.GetU32()))
	case types.KindLong:
		v.num = d.GetI64()
	case types.KindFloat:
		v.flt = float64(d.GetF32())
	case types.KindDouble:
		v.flt = d.GetF64()
	case types.KindString:
		v.str = d.GetString()
	case types.KindArray:
		v.arr = d.getArray()
	case types.KindClass, types.KindPointer:
		v.obj = d.getInstance()
		if v.obj != nil && !v.obj.Class.IsA(types.ClassOf(t)) {
			d.mismatch("%s holds a %s", t, v.obj.Class.Name)
		}
	case types.KindNull:
		v.state = Null
	default:
		d.corrupt("defined %s variable", t)
	}
	return v
}

// getRef reads an identity tag; it returns the already decoded object for a
// back reference, or the new id when a body follows.
func (d *Decoder) getRef() (interface{}, bool) {
	tag := d.GetU8()
	id := d.GetU32()
	if d.err != nil {
		return nil, false
	}
	switch tag {
	case refSeen:
		if int(id) >= len(d.objs) {
			d.corrupt("dangling reference %d", id)
			return nil, false
		}
		return d.objs[id], false
	case refExtern:
		if int(id) >= len(d.externs) {
			d.mismatch("host object %d not supplied", id)
			return nil, false
		}
		return d.externs[id], false
	case refNew:
		if int(id) != len(d.objs) {
			d.corrupt("object id %d out of sequence", id)
			return nil, false
		}
		return nil, true
	}
	d.corrupt("bad reference tag %d", tag)
	return nil, false
}

func (d *Decoder) getArray() *Array {
	obj, fresh := d.getRef()
	if !fresh {
		a, ok := obj.(*Array)
		if !ok && d.err == nil {
			d.corrupt("reference is not an array")
		}
		return a
	}
	a := &Array{}
	d.objs = append(d.objs, a)
	at, ok := d.GetType().(*types.ArrayType)
	if !ok {
		d.corrupt("array without array type")
		return nil
	}
	a.Type = at
	n := d.Count()
	if at.Sized() && n > at.Len {
		d.corrupt("array of %d items exceeds limit %d", n, at.Len)
	}
	for i := 0; i < n && d.err == nil; i++ {
		it := d.GetVar()
		if d.err == nil && it.Kind() != at.Elem.Kind() {
			d.mismatch("%s element %d is %s", at, i, it.Type())
		}
		a.Items = append(a.Items, it)
	}
	return a
}

func (d *Decoder) getInstance() *Instance {
	obj, fresh := d.getRef()
	if !fresh {
		o, ok := obj.(*Instance)
		if !ok && d.err == nil {
			d.corrupt("reference is not an instance")
		}
		return o
	}
	o := &Instance{}
	d.objs = append(d.objs, o)
	c := d.lookup(d.GetString())
	if c == nil {
		return nil
	}
	o.Class = c
	layout := c.Layout()
	n := d.Count()
	if d.err == nil && n != len(layout) {
		d.mismatch("class %s has %d fields, saved %d", c.Name, len(layout), n)
		return nil
	}
	o.Fields = make([]*Var, n)
	for i := 0; i < n && d.err == nil; i++ {
		f := d.GetVar()
		if d.err == nil && f.Name != layout[i].Name {
			d.mismatch("class %s field %d is %s, saved %s", c.Name, i, layout[i].Name, f.Name)
		}
		if d.err == nil && f.Kind() != fieldKind(layout[i].Type) {
			d.mismatch("class %s field %s is %s, saved %s", c.Name, f.Name, layout[i].Type, f.Type())
		}
		o.Fields[i] = f
	}
	return o
}

// fieldKind is the kind of the variable NewInstance allocates for a field
// of type t.
func fieldKind(t types.Type) types.Kind {
	if t.Kind() == types.KindClass {
		return types.KindPointer
	}
	return t.Kind()
}

// ---- Convenience -----------------------------------------------------------

// Save writes v to w.
func (v *Var) Save(w io.Writer) error {
	e := NewEncoder(w)
	e.PutVar(v)
	return e.Err()
}

// Restore reads a variable written by Save.
func Restore(r io.Reader, classes ClassResolver) (*Var, error) {
	d := NewDecoder(r, classes)
	v := d.GetVar()
	if err := d.Err(); err != nil {
		return nil, err
	}
	return v, nil
}

// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package store

import (
	"errors"
	"testing"

	"github.com/golang/snappy"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"

	"github.com/colobot/colobot-sub025/cbot/native"
	"github.com/colobot/colobot-sub025/cbot/program"
	"github.com/colobot/colobot-sub025/cbot/types"
	"github.com/colobot/colobot-sub025/cbot/value"
)

const (
	libSource = `
public int twice(int x) { return x * 2; }
`
	mainSource = `
extern int main() {
	int s = 0;
	for (int i = 0; i < 4; i++) {
		pause(1);
		s += twice(i);
	}
	return s;
}
`
)

func pause(args, _ *value.Var, _ interface{}) (bool, error) {
	if args.Int() <= 0 {
		return true, nil
	}
	args.SetInt(args.Int() - 1)
	return false, nil
}

func newStore(t *testing.T) *Store {
	t.Helper()
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	require.NoError(t, err)
	s := New(db)
	t.Cleanup(func() { s.Close() })
	return s
}

func newGroup(t *testing.T) *program.Group {
	t.Helper()
	g := program.NewGroup(program.Config{})
	require.NoError(t, g.Register("pause", native.Signature(types.Void, types.Int), pause))
	return g
}

// runningGroup returns a group whose main program is suspended mid-loop.
func runningGroup(t *testing.T) *program.Group {
	t.Helper()
	g := newGroup(t)
	lib, err := g.NewProgram("lib")
	require.NoError(t, err)
	require.NoError(t, lib.Compile(libSource))

	p, err := g.NewProgram("main")
	require.NoError(t, err)
	require.NoError(t, p.Compile(mainSource))
	require.NoError(t, p.Start("main"))
	for i := 0; i < 3; i++ {
		done, err := p.Run(4)
		require.NoError(t, err)
		require.False(t, done)
	}
	return g
}

// finish runs p to the end. Each pause suspends the program even with an
// unlimited budget, so Run is repeated until it reports completion.
func finish(t *testing.T, p *program.Program) int64 {
	t.Helper()
	for i := 0; i < 1000; i++ {
		done, err := p.Run(-1)
		require.NoError(t, err)
		if done {
			require.NotNil(t, p.Result())
			return p.Result().Int()
		}
	}
	t.Fatal("program did not finish")
	return 0
}

func TestSaveLoad(t *testing.T) {
	s := newStore(t)
	g := runningGroup(t)

	id, err := s.Save(g)
	require.NoError(t, err)
	names, err := s.Programs(id)
	require.NoError(t, err)
	assert.Equal(t, []string{"lib", "main"}, names)

	assert.Equal(t, int64(12), finish(t, g.Program("main")))

	// Load into an empty group: programs are created and compiled in order.
	fresh := newGroup(t)
	require.NoError(t, s.Load(id, fresh))
	require.NotNil(t, fresh.Program("lib"))
	assert.False(t, fresh.Program("lib").IsRunning())
	p := fresh.Program("main")
	require.NotNil(t, p)
	require.True(t, p.IsRunning())
	assert.Equal(t, int64(12), finish(t, p))

	// Load back into the original group, which has since finished.
	require.NoError(t, s.Load(id, g))
	assert.True(t, g.Program("main").IsRunning())
	assert.Equal(t, int64(12), finish(t, g.Program("main")))
}

func TestSnapshotsAndDelete(t *testing.T) {
	s := newStore(t)
	g := runningGroup(t)

	a, err := s.Save(g)
	require.NoError(t, err)
	b, err := s.Save(g)
	require.NoError(t, err)

	ids, err := s.Snapshots()
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{a, b}, ids)

	require.NoError(t, s.Delete(a))
	ids, err = s.Snapshots()
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{b}, ids)

	assert.True(t, errors.Is(s.Delete(a), ErrNoSnapshot))
	assert.True(t, errors.Is(s.Load(a, newGroup(t)), ErrNoSnapshot))
}

func TestCorruptStateIsIsolated(t *testing.T) {
	s := newStore(t)
	g := runningGroup(t)

	other, err := g.NewProgram("other")
	require.NoError(t, err)
	require.NoError(t, other.Compile(mainSource))
	require.NoError(t, other.Start("main"))

	id, err := s.Save(g)
	require.NoError(t, err)
	require.NoError(t, s.db.Put(snapKey(id, "state", "main"), snappy.Encode(nil, []byte("CBST garbage")), nil))

	fresh := newGroup(t)
	err = s.Load(id, fresh)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "main:")

	assert.False(t, fresh.Program("main").IsRunning())
	q := fresh.Program("other")
	require.True(t, q.IsRunning())
	assert.Equal(t, int64(12), finish(t, q))
}

func TestCorruptIndex(t *testing.T) {
	s := newStore(t)
	id := uuid.New()
	require.NoError(t, s.db.Put(snapKey(id, "index"), []byte{0, 0}, nil))
	assert.True(t, errors.Is(s.Load(id, newGroup(t)), ErrBadIndex))
}

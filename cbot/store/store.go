// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package store persists snapshots of program groups in a LevelDB
// database.
//
// A snapshot records, for every compiled program of a group, its source
// and, when it is running, its saved execution state. Loading a snapshot
// recompiles the sources in their original order and restores each state.
// Blobs are snappy compressed.
//
// Key layout:
//
//	s/<id>/index        program names in creation order
//	s/<id>/src/<name>   source text
//	s/<id>/state/<name> saved state
package store

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/golang/snappy"
	"github.com/google/uuid"
	"github.com/syndtr/goleveldb/leveldb"
	lerrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/colobot/colobot-sub025/cbot/program"
	"github.com/colobot/colobot-sub025/cbot/value"
	"github.com/colobot/colobot-sub025/log"
)

var (
	// ErrNoSnapshot is returned when a snapshot id is unknown.
	ErrNoSnapshot = errors.New("store: snapshot not found")

	// ErrBadIndex is returned when a snapshot index cannot be decoded.
	ErrBadIndex = errors.New("store: corrupt snapshot index")
)

const (
	minCache   = 16 // MiB
	minHandles = 16
)

// Store is a snapshot database.
type Store struct {
	db  *leveldb.DB
	log log.Logger
}

// Open opens or creates the database at path. A corrupted database is
// recovered.
func Open(path string, cache int, handles int) (*Store, error) {
	if cache < minCache {
		cache = minCache
	}
	if handles < minHandles {
		handles = minHandles
	}
	logger := log.New("database", path)
	logger.Info("Allocated cache and file handles", "cache", cache, "handles", handles)

	options := &opt.Options{
		OpenFilesCacheCapacity: handles,
		BlockCacheCapacity:     cache / 2 * opt.MiB,
		WriteBuffer:            cache / 4 * opt.MiB,
		Filter:                 filter.NewBloomFilter(10),
	}
	db, err := leveldb.OpenFile(path, options)
	if _, corrupted := err.(*lerrors.ErrCorrupted); corrupted {
		db, err = leveldb.RecoverFile(path, nil)
	}
	if err != nil {
		return nil, err
	}
	return &Store{db: db, log: logger}, nil
}

// New wraps an open database.
func New(db *leveldb.DB) *Store {
	return &Store{db: db, log: log.New("database", "custom")}
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func snapKey(id uuid.UUID, parts ...string) []byte {
	var b bytes.Buffer
	b.WriteString("s/")
	b.WriteString(id.String())
	for _, p := range parts {
		b.WriteByte('/')
		b.WriteString(p)
	}
	return b.Bytes()
}

// Save writes a snapshot of g and returns its id. The snapshot is written
// in one batch: either all of it is stored or none.
func (s *Store) Save(g *program.Group) (uuid.UUID, error) {
	id := uuid.New()
	batch := new(leveldb.Batch)

	var (
		index bytes.Buffer
		names []string
		saved int
	)
	for _, p := range g.Programs() {
		if p.Unit() == nil {
			continue
		}
		names = append(names, p.Name())
		batch.Put(snapKey(id, "src", p.Name()), snappy.Encode(nil, []byte(p.Source())))
		if !p.IsRunning() {
			continue
		}
		var state bytes.Buffer
		if err := p.SaveState(&state); err != nil {
			return uuid.Nil, fmt.Errorf("store: saving %s: %w", p.Name(), err)
		}
		batch.Put(snapKey(id, "state", p.Name()), snappy.Encode(nil, state.Bytes()))
		saved++
	}
	e := value.NewEncoder(&index)
	e.PutU32(uint32(len(names)))
	for _, name := range names {
		e.PutString(name)
	}
	if err := e.Err(); err != nil {
		return uuid.Nil, err
	}
	batch.Put(snapKey(id, "index"), index.Bytes())

	if err := s.db.Write(batch, nil); err != nil {
		return uuid.Nil, err
	}
	s.log.Debug("Saved snapshot", "id", id, "programs", len(names), "running", saved)
	return id, nil
}

func (s *Store) index(id uuid.UUID) ([]string, error) {
	blob, err := s.db.Get(snapKey(id, "index"), nil)
	if err == leveldb.ErrNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNoSnapshot, id)
	}
	if err != nil {
		return nil, err
	}
	d := value.NewDecoder(bytes.NewReader(blob), nil)
	n := d.Count()
	names := make([]string, 0, n)
	for i := 0; i < n; i++ {
		names = append(names, d.GetString())
	}
	if d.Err() != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadIndex, d.Err())
	}
	return names, nil
}

func (s *Store) blob(key []byte) ([]byte, error) {
	enc, err := s.db.Get(key, nil)
	if err != nil {
		return nil, err
	}
	return snappy.Decode(nil, enc)
}

// Programs lists the program names recorded in a snapshot.
func (s *Store) Programs(id uuid.UUID) ([]string, error) {
	return s.index(id)
}

// Load restores snapshot id into g. Programs missing from g are created;
// programs whose source differs are recompiled. A program that fails to
// compile or restore is left stopped and its error is collected; the
// other programs are restored regardless.
func (s *Store) Load(id uuid.UUID, g *program.Group) error {
	names, err := s.index(id)
	if err != nil {
		return err
	}
	var errs []error
	for _, name := range names {
		if err := s.loadProgram(id, g, name); err != nil {
			s.log.Warn("Failed to restore program", "id", id, "program", name, "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Store) loadProgram(id uuid.UUID, g *program.Group, name string) error {
	src, err := s.blob(snapKey(id, "src", name))
	if err != nil {
		return err
	}
	p := g.Program(name)
	if p == nil {
		if p, err = g.NewProgram(name); err != nil {
			return err
		}
	}
	if p.Unit() == nil || p.Source() != string(src) {
		if err := p.Compile(string(src)); err != nil {
			return err
		}
	}
	state, err := s.blob(snapKey(id, "state", name))
	switch {
	case err == leveldb.ErrNotFound:
		p.Stop()
		return nil
	case err != nil:
		return err
	}
	return p.RestoreState(bytes.NewReader(state))
}

// Snapshots lists the ids of the stored snapshots.
func (s *Store) Snapshots() ([]uuid.UUID, error) {
	it := s.db.NewIterator(util.BytesPrefix([]byte("s/")), nil)
	defer it.Release()

	var ids []uuid.UUID
	for it.Next() {
		key := it.Key()
		if !bytes.HasSuffix(key, []byte("/index")) {
			continue
		}
		id, err := uuid.ParseBytes(key[2 : len(key)-len("/index")])
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, it.Error()
}

// Delete removes a snapshot.
func (s *Store) Delete(id uuid.UUID) error {
	prefix := snapKey(id, "")
	it := s.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer it.Release()

	batch := new(leveldb.Batch)
	for it.Next() {
		batch.Delete(append([]byte(nil), it.Key()...))
	}
	if err := it.Error(); err != nil {
		return err
	}
	if batch.Len() == 0 {
		return fmt.Errorf("%w: %s", ErrNoSnapshot, id)
	}
	return s.db.Write(batch, nil)
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package perturbcache persists perturbation sets in a local BadgerDB so a
// re-run with the same passages and hyperparameters skips the expensive
// mask+infill work. Perturbing a corpus costs one infill call per variant
// per passage; the cache turns a repeated experiment (new criterion, new
// scoring backend) into pure scoring.
//
// Keys are content-addressed: sha256 over the passage text and the
// perturbation hyperparameters, so a changed span length or mask fraction
// never serves stale sets.
package perturbcache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/AleutianAI/Curvatext/services/detector/datatypes"
	"github.com/dgraph-io/badger/v4"
)

// Config holds configuration for the cache store.
type Config struct {
	// Path is the directory for BadgerDB files. Ignored when InMemory.
	Path string

	// InMemory enables in-memory mode (no disk persistence). For tests.
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool

	// Logger receives BadgerDB's internal logging. Nil disables it.
	Logger *slog.Logger
}

// DefaultConfig returns durable on-disk defaults.
func DefaultConfig(path string) Config {
	return Config{Path: path, SyncWrites: true}
}

// InMemoryConfig returns configuration for tests: no disk I/O, no sync.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Store is a BadgerDB-backed perturbation cache.
//
// Thread Safety: safe for concurrent use; BadgerDB transactions provide
// isolation.
type Store struct {
	db *badger.DB
}

// Open creates and opens a cache store with the given configuration.
func Open(cfg Config) (*Store, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, fmt.Errorf("cache path required for persistent store")
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open perturbation cache: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Key derives the content-addressed cache key for a passage under the
// given hyperparameters.
func Key(passage string, hp datatypes.Hyperparameters) []byte {
	h := sha256.New()
	h.Write([]byte(passage))
	fmt.Fprintf(h, "|n=%d|s=%d|p=%g|r=%d",
		hp.NPerturbations, hp.SpanLength, hp.PerturbPct, hp.NPerturbationRounds)
	return []byte("perturb:" + hex.EncodeToString(h.Sum(nil)))
}

// Get returns the cached perturbation set for the passage, or ok=false on
// a miss. Corrupt entries count as misses.
func (s *Store) Get(passage string, hp datatypes.Hyperparameters) (datatypes.PerturbationSet, bool, error) {
	var set datatypes.PerturbationSet
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(Key(passage, hp))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &set)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		var decodeErr *json.SyntaxError
		if errors.As(err, &decodeErr) {
			slog.Warn("corrupt perturbation cache entry, treating as miss")
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cache read failed: %w", err)
	}
	return set, true, nil
}

// Put stores the perturbation set for the passage.
func (s *Store) Put(passage string, hp datatypes.Hyperparameters, set datatypes.PerturbationSet) error {
	val, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("cache encode failed: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(Key(passage, hp), val)
	})
	if err != nil {
		return fmt.Errorf("cache write failed: %w", err)
	}
	return nil
}

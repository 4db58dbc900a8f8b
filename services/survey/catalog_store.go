// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package survey

// =============================================================================
// CatalogStore — Library Snapshot Persistence
// =============================================================================
//
// The full answer library is expensive to fetch (one paged walk over
// thousands of records) but changes rarely. This store persists the last
// loaded catalog in BadgerDB so a restarted process can serve text
// resolution immediately, before its first remote load completes.
//
// Design choices:
//
//	1. BadgerDB: the snapshot is service infrastructure, not user data.
//	   Embedded, no network call, no availability dependency.
//
//	2. Single versioned key: the catalog is replaced wholesale, so one
//	   gob-encoded record is enough. Versioned (v1) to allow future format
//	   changes without collision.
//
//	3. BadgerDB native TTL: a stale snapshot expires via Badger's GC and
//	   reads back as a cache miss, forcing a fresh remote load. No metadata
//	   record or application-side expiry logic is needed.
//
// Storage layout:
//
//	survey/catalog/v1  →  gob-encoded []LibraryAnswer
//	                       TTL: 24 hours

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"log/slog"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

// catalogSnapshotKey is the BadgerDB key holding the persisted catalog.
const catalogSnapshotKey = "survey/catalog/v1"

// catalogSnapshotTTL bounds snapshot staleness. A day is long enough to
// cover restarts and short outages without serving an ancient library.
const catalogSnapshotTTL = 24 * time.Hour

// errSnapshotMiss distinguishes "no snapshot" from a storage error.
var errSnapshotMiss = errors.New("catalog snapshot miss")

// CatalogStore persists catalog snapshots in BadgerDB.
type CatalogStore struct {
	db     *badger.DB
	ttl    time.Duration
	logger *slog.Logger
}

// OpenCatalogStore opens (or creates) the snapshot database at dir.
//
// Callers should treat a failed open as a degradation, not a fatal error:
// the cache works without persistence, it just starts cold.
func OpenCatalogStore(dir string, logger *slog.Logger) (*CatalogStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // badger's own logger is too chatty for a cache
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("survey: opening catalog store at %s: %w", dir, err)
	}
	return &CatalogStore{db: db, ttl: catalogSnapshotTTL, logger: logger}, nil
}

// SaveSnapshot replaces the persisted catalog with answers.
func (s *CatalogStore) SaveSnapshot(answers []LibraryAnswer) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(answers); err != nil {
		return fmt.Errorf("survey: encoding catalog snapshot: %w", err)
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(catalogSnapshotKey), buf.Bytes()).WithTTL(s.ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("survey: writing catalog snapshot: %w", err)
	}

	s.logger.Debug("Catalog snapshot persisted",
		slog.Int("answers", len(answers)),
		slog.Int("bytes", buf.Len()))
	return nil
}

// LoadSnapshot returns the persisted catalog, or an error on miss or decode
// failure. Expired keys read back as misses via Badger's TTL handling.
func (s *CatalogStore) LoadSnapshot() ([]LibraryAnswer, error) {
	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(catalogSnapshotKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return errSnapshotMiss
		}
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	var answers []LibraryAnswer
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&answers); err != nil {
		return nil, fmt.Errorf("survey: decoding catalog snapshot: %w", err)
	}
	return answers, nil
}

// DropSnapshot deletes the persisted catalog. Used on explicit invalidation
// so a restart cannot resurrect the pre-invalidation library. Deleting an
// absent key is a no-op.
func (s *CatalogStore) DropSnapshot() error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(catalogSnapshotKey))
	})
	if err != nil {
		return fmt.Errorf("survey: dropping catalog snapshot: %w", err)
	}
	return nil
}

// Close releases the underlying BadgerDB.
func (s *CatalogStore) Close() error {
	return s.db.Close()
}

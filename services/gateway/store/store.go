// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package store is the single owner of the gateway's persistent state.
//
// State lives in BadgerDB, an embedded transactional KV store with
// serializable snapshot isolation. Every mutation runs inside one
// read-write transaction; when two concurrent transactions touch the same
// key the loser commits with badger.ErrConflict and is retried, which gives
// each operation linearizable semantics per key. That property is what the
// rate limiter and the single-use verification tokens lean on.
//
// Key families:
//
//	user/<id>          -> User (JSON)
//	uemail/<email>     -> user id
//	sess/<token>       -> Session (JSON)
//	vtok/<token>       -> VerificationToken (JSON)
//	vemail/<email>     -> latest verification token for that email
//	rate/<action>/<subject> -> RateCounter (JSON)
//	chat/<userid>/<chatid>  -> SavedChat (JSON)
//	chatseq            -> last issued chat id (decimal)
//	event/<id>         -> AnalyticsEvent (JSON)
//
// Failure semantics: storage-level failures surface as ErrUnavailable
// (handlers answer 503); domain outcomes (unknown token, expired session)
// surface as their own sentinel errors and are never panics.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/AleutianWidget/pkg/clock"
	"github.com/AleutianAI/AleutianWidget/pkg/logging"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrNotFound reports an unknown key (session, token, user, ...).
	ErrNotFound = errors.New("not found")

	// ErrExpired reports a known but expired session or verification token.
	ErrExpired = errors.New("expired")

	// ErrAlreadyExists reports a unique-constraint collision (user email).
	ErrAlreadyExists = errors.New("already exists")

	// ErrConsentRequired reports a signup without data-storage consent.
	ErrConsentRequired = errors.New("consent required")

	// ErrUnavailable reports a transient storage failure. Handlers translate
	// it into a retryable 503.
	ErrUnavailable = errors.New("storage unavailable")
)

// maxTxnRetries bounds transaction retries on SSI conflicts before the
// operation is reported as unavailable.
const maxTxnRetries = 5

// =============================================================================
// Store
// =============================================================================

// Config holds construction parameters for the store.
type Config struct {
	// URL is the DATABASE_URL. Recognized forms: "badger:///var/data",
	// "file:/var/data", a bare directory path, or "memory://" for tests.
	URL string

	Clock  clock.Clock
	IDs    clock.IDSource
	Logger *logging.Logger
}

// Store owns the BadgerDB instance. All methods are safe for concurrent use.
type Store struct {
	db     *badger.DB
	clock  clock.Clock
	ids    clock.IDSource
	logger *logging.Logger
}

// Open parses the database URL and opens the underlying BadgerDB.
// The caller must Close the returned store.
func Open(cfg Config) (*Store, error) {
	if cfg.Clock == nil {
		cfg.Clock = clock.SystemClock{}
	}
	if cfg.IDs == nil {
		cfg.IDs = clock.SystemIDSource{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}

	opts, err := badgerOptions(cfg.URL)
	if err != nil {
		return nil, err
	}
	opts = opts.WithLogger(nil) // badger's own chatter bypasses redaction

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open store at %s: %w", cfg.URL, err)
	}
	return &Store{db: db, clock: cfg.Clock, ids: cfg.IDs, logger: cfg.Logger}, nil
}

// badgerOptions maps a DATABASE_URL onto badger options.
func badgerOptions(url string) (badger.Options, error) {
	url = strings.TrimSpace(url)
	switch {
	case url == "":
		return badger.Options{}, fmt.Errorf("database url is required")
	case url == "memory://" || url == "memory":
		return badger.DefaultOptions("").WithInMemory(true), nil
	case strings.HasPrefix(url, "badger://"):
		url = strings.TrimPrefix(url, "badger://")
	case strings.HasPrefix(url, "file:"):
		url = strings.TrimPrefix(url, "file:")
	}
	if url == "" {
		return badger.Options{}, fmt.Errorf("database url has no path")
	}
	if err := os.MkdirAll(url, 0o750); err != nil {
		return badger.Options{}, fmt.Errorf("create database directory %s: %w", url, err)
	}
	return badger.DefaultOptions(url).WithSyncWrites(true), nil
}

// OpenInMemory opens a throwaway in-memory store for tests.
func OpenInMemory(clk clock.Clock, ids clock.IDSource) (*Store, error) {
	return Open(Config{URL: "memory://", Clock: clk, IDs: ids})
}

// Close flushes and closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable. Used by the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.View(func(txn *badger.Txn) error { return nil })
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// =============================================================================
// Transaction Helpers
// =============================================================================

// update runs fn inside a read-write transaction, retrying on SSI conflicts.
// The retry is what makes conditional updates (rate counters, token burns)
// behave linearizably per key.
func (s *Store) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	for attempt := 0; attempt < maxTxnRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.db.Update(fn)
		if err == nil {
			return nil
		}
		if errors.Is(err, badger.ErrConflict) {
			continue
		}
		return err
	}
	return fmt.Errorf("%w: transaction conflicts exhausted", ErrUnavailable)
}

// view runs fn inside a read-only transaction.
func (s *Store) view(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(fn)
}

// wrapUnavailable tags a storage-level failure as transient.
func wrapUnavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// getJSON loads and decodes a JSON value. Returns ErrNotFound for a missing key.
func getJSON(txn *badger.Txn, key []byte, out any) error {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return item.Value(func(val []byte) error {
		if err := json.Unmarshal(val, out); err != nil {
			return fmt.Errorf("%w: decode %s: %v", ErrUnavailable, key, err)
		}
		return nil
	})
}

// setJSON encodes and stores a JSON value.
func setJSON(txn *badger.Txn, key []byte, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", ErrUnavailable, key, err)
	}
	if err := txn.Set(key, raw); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// =============================================================================
// Keys
// =============================================================================

func keyUser(id string) []byte           { return []byte("user/" + id) }
func keyUserEmail(email string) []byte   { return []byte("uemail/" + email) }
func keySession(token string) []byte     { return []byte("sess/" + token) }
func keyVTok(token string) []byte        { return []byte("vtok/" + token) }
func keyVTokEmail(email string) []byte   { return []byte("vemail/" + email) }
func keyRate(action, subject string) []byte {
	return []byte("rate/" + action + "/" + subject)
}
func keyChat(userID, chatID string) []byte {
	return []byte("chat/" + userID + "/" + chatID)
}
func keyEvent(id string) []byte { return []byte("event/" + id) }

// chatSeqKey holds the last issued saved-chat id.
var chatSeqKey = []byte("chatseq")

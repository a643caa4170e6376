// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package store

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/AleutianWidget/services/gateway/datatypes"
)

// CreateSession issues a fresh bearer session for a user.
// The token carries 256 bits of entropy from the injected IDSource.
func (s *Store) CreateSession(ctx context.Context, userID string, ttl time.Duration) (datatypes.Session, error) {
	token, err := s.ids.NewToken()
	if err != nil {
		return datatypes.Session{}, wrapUnavailable(err)
	}
	now := s.clock.Now()
	sess := datatypes.Session{
		Token:     token,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	err = s.update(ctx, func(txn *badger.Txn) error {
		return setJSON(txn, keySession(token), sess)
	})
	if err != nil {
		return datatypes.Session{}, err
	}
	return sess, nil
}

// LookupSession resolves a bearer token to its session and user.
//
// Unknown tokens return ErrNotFound; expired tokens return ErrExpired and
// are garbage-collected lazily. An expired or unknown token never
// authenticates.
func (s *Store) LookupSession(ctx context.Context, token string) (datatypes.Session, datatypes.User, error) {
	var (
		sess datatypes.Session
		user datatypes.User
	)
	err := s.view(ctx, func(txn *badger.Txn) error {
		if err := getJSON(txn, keySession(token), &sess); err != nil {
			return err
		}
		if sess.Expired(s.clock.Now()) {
			return ErrExpired
		}
		return getJSON(txn, keyUser(sess.UserID), &user)
	})
	if errors.Is(err, ErrExpired) {
		// Lazy GC; failure here is harmless, prune will catch it later.
		_ = s.update(ctx, func(txn *badger.Txn) error {
			if derr := txn.Delete(keySession(token)); derr != nil {
				return wrapUnavailable(derr)
			}
			return nil
		})
		return datatypes.Session{}, datatypes.User{}, ErrExpired
	}
	if err != nil {
		return datatypes.Session{}, datatypes.User{}, err
	}
	return sess, user, nil
}

// ExtendOrRotateSession rotates a bearer token. The presented token stays
// valid until now + grace so in-flight requests on the old token do not
// race the rotation; the new token gets a full ttl.
//
// Linearizable per token: two concurrent refreshes of the same token both
// succeed but each sees a consistent old-session state (badger conflicts
// retry the loser).
func (s *Store) ExtendOrRotateSession(ctx context.Context, oldToken string, ttl, grace time.Duration) (datatypes.Session, error) {
	token, err := s.ids.NewToken()
	if err != nil {
		return datatypes.Session{}, wrapUnavailable(err)
	}

	var fresh datatypes.Session
	err = s.update(ctx, func(txn *badger.Txn) error {
		var old datatypes.Session
		if err := getJSON(txn, keySession(oldToken), &old); err != nil {
			return err
		}
		now := s.clock.Now()
		if old.Expired(now) {
			return ErrExpired
		}

		old.ExpiresAt = now.Add(grace)
		if err := setJSON(txn, keySession(oldToken), old); err != nil {
			return err
		}

		fresh = datatypes.Session{
			Token:     token,
			UserID:    old.UserID,
			CreatedAt: now,
			ExpiresAt: now.Add(ttl),
		}
		return setJSON(txn, keySession(token), fresh)
	})
	if err != nil {
		return datatypes.Session{}, err
	}
	return fresh, nil
}

// DeleteSession removes the presented session. Idempotent: deleting an
// unknown token succeeds, and deleting token A never affects token B.
func (s *Store) DeleteSession(ctx context.Context, token string) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		if err := txn.Delete(keySession(token)); err != nil {
			return wrapUnavailable(err)
		}
		return nil
	})
}

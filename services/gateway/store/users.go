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
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianWidget/services/gateway/datatypes"
)

// CreateUser creates an account for email. Emails are unique
// case-insensitively; the stored form is always lowercase.
//
// Returns ErrConsentRequired when consent is false, ErrAlreadyExists when
// the email is taken. New users start unverified at the lightweight tier.
func (s *Store) CreateUser(ctx context.Context, email string, consent bool) (datatypes.User, error) {
	if !consent {
		return datatypes.User{}, ErrConsentRequired
	}
	email = strings.ToLower(strings.TrimSpace(email))

	user := datatypes.User{
		ID:        uuid.NewString(),
		Email:     email,
		Verified:  false,
		Tier:      datatypes.TierLightweight,
		CreatedAt: s.clock.Now(),
	}

	err := s.update(ctx, func(txn *badger.Txn) error {
		var existing string
		switch err := getString(txn, keyUserEmail(email), &existing); {
		case err == nil:
			return ErrAlreadyExists
		case !errors.Is(err, ErrNotFound):
			return err
		}
		if err := setJSON(txn, keyUser(user.ID), user); err != nil {
			return err
		}
		return setString(txn, keyUserEmail(email), user.ID)
	})
	if err != nil {
		return datatypes.User{}, err
	}
	return user, nil
}

// GetUser loads a user by id.
func (s *Store) GetUser(ctx context.Context, id string) (datatypes.User, error) {
	var user datatypes.User
	err := s.view(ctx, func(txn *badger.Txn) error {
		return getJSON(txn, keyUser(id), &user)
	})
	return user, err
}

// GetUserByEmail loads a user by (case-insensitive) email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (datatypes.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var user datatypes.User
	err := s.view(ctx, func(txn *badger.Txn) error {
		var id string
		if err := getString(txn, keyUserEmail(email), &id); err != nil {
			return err
		}
		return getJSON(txn, keyUser(id), &user)
	})
	return user, err
}

// MarkVerified sets the verification flag on a user.
func (s *Store) MarkVerified(ctx context.Context, userID string) (datatypes.User, error) {
	var user datatypes.User
	err := s.update(ctx, func(txn *badger.Txn) error {
		if err := getJSON(txn, keyUser(userID), &user); err != nil {
			return err
		}
		if user.Verified {
			return nil
		}
		user.Verified = true
		return setJSON(txn, keyUser(userID), user)
	})
	return user, err
}

// getString loads a raw string value.
func getString(txn *badger.Txn, key []byte, out *string) error {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return wrapUnavailable(err)
	}
	return item.Value(func(val []byte) error {
		*out = string(val)
		return nil
	})
}

// setString stores a raw string value.
func setString(txn *badger.Txn, key []byte, val string) error {
	if err := txn.Set(key, []byte(val)); err != nil {
		return wrapUnavailable(err)
	}
	return nil
}

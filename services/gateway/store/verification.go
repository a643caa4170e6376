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
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/AleutianWidget/services/gateway/datatypes"
)

// PutVerificationToken stores a verification token for an email, replacing
// and invalidating any earlier token for the same address. Idempotent.
func (s *Store) PutVerificationToken(ctx context.Context, email, token string, expiresAt time.Time) error {
	email = strings.ToLower(strings.TrimSpace(email))
	vt := datatypes.VerificationToken{Token: token, Email: email, ExpiresAt: expiresAt}

	return s.update(ctx, func(txn *badger.Txn) error {
		var prior string
		switch err := getString(txn, keyVTokEmail(email), &prior); {
		case err == nil:
			if derr := txn.Delete(keyVTok(prior)); derr != nil {
				return wrapUnavailable(derr)
			}
		case !errors.Is(err, ErrNotFound):
			return err
		}
		if err := setJSON(txn, keyVTok(token), vt); err != nil {
			return err
		}
		return setString(txn, keyVTokEmail(email), token)
	})
}

// ConsumeVerificationToken burns a token and returns its bound email.
//
// Consumption is atomic: under concurrent verify attempts exactly one
// caller gets the email; the rest see ErrExpired. The record is kept with
// Used set until its TTL prunes it, so replaying a consumed token reports
// ErrExpired rather than ErrNotFound. Tokens that never existed return
// ErrNotFound.
func (s *Store) ConsumeVerificationToken(ctx context.Context, token string) (string, error) {
	var email string
	err := s.update(ctx, func(txn *badger.Txn) error {
		var vt datatypes.VerificationToken
		if err := getJSON(txn, keyVTok(token), &vt); err != nil {
			return err
		}
		if vt.Used || vt.Expired(s.clock.Now()) {
			return ErrExpired
		}

		vt.Used = true
		if err := setJSON(txn, keyVTok(token), vt); err != nil {
			return err
		}
		var latest string
		if err := getString(txn, keyVTokEmail(vt.Email), &latest); err == nil && latest == token {
			if derr := txn.Delete(keyVTokEmail(vt.Email)); derr != nil {
				return wrapUnavailable(derr)
			}
		}

		email = vt.Email
		return nil
	})
	if err != nil {
		return "", err
	}
	return email, nil
}

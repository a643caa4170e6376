// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package auth implements the account lifecycle: signup with email
// verification, token-to-session exchange, session refresh, and logout.
//
// Session tokens are opaque bearer secrets; nothing about the user is
// recoverable from the token itself. Verification codes are single use and
// short lived, and re-signup for an address invalidates any earlier
// outstanding code for it.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/AleutianAI/AleutianWidget/pkg/clock"
	"github.com/AleutianAI/AleutianWidget/pkg/logging"
	"github.com/AleutianAI/AleutianWidget/services/gateway/config"
	"github.com/AleutianAI/AleutianWidget/services/gateway/datatypes"
	"github.com/AleutianAI/AleutianWidget/services/gateway/store"
)

// Service coordinates the store and the mail sender for auth operations.
type Service struct {
	store  *store.Store
	cfg    *config.Config
	mailer MailSender
	clock  clock.Clock
	ids    clock.IDSource
	logger *logging.Logger
}

// NewService wires an auth Service. mailer may be a NopSender when outbound
// email is disabled.
func NewService(st *store.Store, cfg *config.Config, mailer MailSender, clk clock.Clock, ids clock.IDSource, logger *logging.Logger) *Service {
	return &Service{store: st, cfg: cfg, mailer: mailer, clock: clk, ids: ids, logger: logger}
}

// Signup registers an email (or re-registers an existing one) and issues a
// fresh verification code. The response is deliberately identical whether the
// address was new or already known, so signup cannot be used to probe which
// emails have accounts.
func (s *Service) Signup(ctx context.Context, email string, consent bool) error {
	_, err := s.store.CreateUser(ctx, email, consent)
	switch {
	case errors.Is(err, store.ErrAlreadyExists):
		// Existing address: fall through and rotate the verification code.
	case err != nil:
		return err
	}

	code, err := s.ids.NewToken()
	if err != nil {
		return fmt.Errorf("generate verification code: %w", err)
	}
	expires := s.clock.Now().Add(s.cfg.VerificationTTL)
	if err := s.store.PutVerificationToken(ctx, email, code, expires); err != nil {
		return err
	}

	if err := s.mailer.SendVerification(email, code); err != nil {
		// The code is already stored; a mail failure is logged but does not
		// fail the signup, the user can retry and get a new code.
		logging.FromContext(ctx).Error("verification_email_failed", "error", err.Error())
	}
	logging.FromContext(ctx).Info("signup_accepted")
	return nil
}

// Verify burns a verification code and exchanges it for a full session.
//
// Exactly one concurrent Verify of the same code succeeds. A second attempt,
// or an expired code, returns store.ErrNotFound / store.ErrExpired for the
// handler to map onto the wire taxonomy.
func (s *Service) Verify(ctx context.Context, code string) (datatypes.Session, datatypes.User, error) {
	email, err := s.store.ConsumeVerificationToken(ctx, code)
	if err != nil {
		return datatypes.Session{}, datatypes.User{}, err
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return datatypes.Session{}, datatypes.User{}, err
	}
	user, err = s.store.MarkVerified(ctx, user.ID)
	if err != nil {
		return datatypes.Session{}, datatypes.User{}, err
	}

	sess, err := s.store.CreateSession(ctx, user.ID, s.cfg.SessionTTL)
	if err != nil {
		return datatypes.Session{}, datatypes.User{}, err
	}
	logging.FromContext(ctx).Info("user_verified", "user_id", user.ID, "tier", user.Tier)
	return sess, user, nil
}

// SessionCheck resolves a bearer token without side effects.
func (s *Service) SessionCheck(ctx context.Context, token string) (datatypes.Session, datatypes.User, error) {
	return s.store.LookupSession(ctx, token)
}

// Refresh rotates the presented token. The old token remains accepted for
// the configured grace window so requests already in flight do not fail
// mid-rotation.
func (s *Service) Refresh(ctx context.Context, token string) (datatypes.Session, error) {
	sess, err := s.store.ExtendOrRotateSession(ctx, token, s.cfg.SessionTTL, s.cfg.SessionRefreshGrace)
	if err != nil {
		return datatypes.Session{}, err
	}
	logging.FromContext(ctx).Info("session_refreshed", "user_id", sess.UserID)
	return sess, nil
}

// Logout revokes the presented token only. Other sessions for the same user
// stay valid, and logging out an already-dead token still succeeds.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.store.DeleteSession(ctx, token)
}

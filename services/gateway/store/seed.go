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
)

// Integration-test fixtures. Only seeded when INTEGRATION_TEST_MODE is on.
const (
	SeedUserEmail        = "test@integration.local"
	SeedVerificationCode = "integration-test-verification-token-67890"
)

// SeedIntegrationFixtures creates the well-known test account and its
// verification token. Idempotent: re-running against an existing store
// refreshes the token without duplicating the user.
func (s *Store) SeedIntegrationFixtures(ctx context.Context, verificationTTL time.Duration) error {
	_, err := s.CreateUser(ctx, SeedUserEmail, true)
	if err != nil && !errors.Is(err, ErrAlreadyExists) {
		return err
	}
	return s.PutVerificationToken(ctx, SeedUserEmail, SeedVerificationCode, s.clock.Now().Add(verificationTTL))
}

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
	"math"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/AleutianWidget/services/gateway/datatypes"
)

// RateDecision is the outcome of a fixed-window check.
type RateDecision struct {
	Allowed bool

	// RetryAfter is the whole seconds a denied caller must wait.
	// Zero when Allowed.
	RetryAfter int

	// Remaining is the allowance left in the current window.
	Remaining int
}

// CheckAndBumpRate performs one fixed-window rate decision for
// (subject, action). The read, the decision, and the count update happen in
// a single transaction, so two concurrent Allowed decisions can never
// observe the same last slot: badger's conflict detection forces the loser
// to retry against the updated counter.
//
// Window semantics: a counter whose window_start is at least one window in
// the past is treated as fresh (count := 1). A denial never increments and
// never outlasts ceil(window - elapsed) seconds.
func (s *Store) CheckAndBumpRate(ctx context.Context, subject, action string, max int, window time.Duration) (RateDecision, error) {
	if max < 1 || window <= 0 {
		return RateDecision{}, errors.New("rate policy must have positive max and window")
	}

	var decision RateDecision
	key := keyRate(action, subject)

	err := s.update(ctx, func(txn *badger.Txn) error {
		now := s.clock.Now()

		var counter datatypes.RateCounter
		switch err := getJSON(txn, key, &counter); {
		case errors.Is(err, ErrNotFound):
			counter = datatypes.RateCounter{}
		case err != nil:
			return err
		}

		elapsed := now.Sub(counter.WindowStart)
		switch {
		case counter.WindowStart.IsZero() || elapsed >= window:
			counter = datatypes.RateCounter{Count: 1, WindowStart: now}
			decision = RateDecision{Allowed: true, Remaining: max - 1}
			return setJSON(txn, key, counter)

		case counter.Count < max:
			counter.Count++
			decision = RateDecision{Allowed: true, Remaining: max - counter.Count}
			return setJSON(txn, key, counter)

		default:
			retry := int(math.Ceil((window - elapsed).Seconds()))
			if retry < 1 {
				retry = 1
			}
			decision = RateDecision{Allowed: false, RetryAfter: retry}
			return nil
		}
	})
	if err != nil {
		return RateDecision{}, err
	}
	return decision, nil
}

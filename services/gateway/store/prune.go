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
	"encoding/json"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/AleutianWidget/services/gateway/datatypes"
)

// staleRateCounterAge is how long after its window start a rate counter is
// considered garbage. Counters reset on read anyway, so pruning is purely
// about bounding key growth.
const staleRateCounterAge = time.Hour

// PruneStats reports what a maintenance pass removed.
type PruneStats struct {
	Sessions           int
	VerificationTokens int
	RateCounters       int
}

// PruneExpired removes expired sessions, expired verification tokens, and
// stale rate counters. Best effort: an error aborts the pass but the store
// stays consistent because expiry is always re-checked on read.
func (s *Store) PruneExpired(ctx context.Context) (PruneStats, error) {
	var stats PruneStats
	now := s.clock.Now()

	collect := func(prefix []byte, expired func(val []byte) bool) ([][]byte, error) {
		var doomed [][]byte
		err := s.view(ctx, func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = prefix
			it := txn.NewIterator(opts)
			defer it.Close()
			for it.Rewind(); it.Valid(); it.Next() {
				item := it.Item()
				var dead bool
				if err := item.Value(func(val []byte) error {
					dead = expired(val)
					return nil
				}); err != nil {
					return wrapUnavailable(err)
				}
				if dead {
					doomed = append(doomed, item.KeyCopy(nil))
				}
			}
			return nil
		})
		return doomed, err
	}

	deleteAll := func(keys [][]byte) error {
		for _, key := range keys {
			key := key
			if err := s.update(ctx, func(txn *badger.Txn) error {
				if err := txn.Delete(key); err != nil {
					return wrapUnavailable(err)
				}
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	}

	sessions, err := collect([]byte("sess/"), func(val []byte) bool {
		var sess datatypes.Session
		return json.Unmarshal(val, &sess) == nil && sess.Expired(now)
	})
	if err != nil {
		return stats, err
	}
	if err := deleteAll(sessions); err != nil {
		return stats, err
	}
	stats.Sessions = len(sessions)

	tokens, err := collect([]byte("vtok/"), func(val []byte) bool {
		// Used tokens keep their original expiry, so they age out here too.
		var vt datatypes.VerificationToken
		return json.Unmarshal(val, &vt) == nil && vt.Expired(now)
	})
	if err != nil {
		return stats, err
	}
	if err := deleteAll(tokens); err != nil {
		return stats, err
	}
	stats.VerificationTokens = len(tokens)

	counters, err := collect([]byte("rate/"), func(val []byte) bool {
		var rc datatypes.RateCounter
		return json.Unmarshal(val, &rc) == nil && now.Sub(rc.WindowStart) >= staleRateCounterAge
	})
	if err != nil {
		return stats, err
	}
	if err := deleteAll(counters); err != nil {
		return stats, err
	}
	stats.RateCounters = len(counters)

	return stats, nil
}

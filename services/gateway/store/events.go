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

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianWidget/services/gateway/datatypes"
)

// AppendEvent durably appends one analytics event. The event id and
// timestamp are assigned here if the caller left them empty; the stream is
// append-only — nothing ever updates or deletes an event.
func (s *Store) AppendEvent(ctx context.Context, ev datatypes.AnalyticsEvent) (datatypes.AnalyticsEvent, error) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = s.clock.Now()
	}
	err := s.update(ctx, func(txn *badger.Txn) error {
		return setJSON(txn, keyEvent(ev.ID), ev)
	})
	if err != nil {
		return datatypes.AnalyticsEvent{}, err
	}
	return ev, nil
}

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
	"strconv"

	"github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/AleutianWidget/services/gateway/datatypes"
)

// SaveChat stores a serialized message list for a user. Chat ids are
// sequential decimal strings issued from a store-wide counter, so they stay
// stable across restarts.
func (s *Store) SaveChat(ctx context.Context, userID, title string, messages []datatypes.Message) (datatypes.SavedChat, error) {
	var saved datatypes.SavedChat
	err := s.update(ctx, func(txn *badger.Txn) error {
		var lastRaw string
		last := 0
		switch err := getString(txn, chatSeqKey, &lastRaw); {
		case err == nil:
			n, perr := strconv.Atoi(lastRaw)
			if perr != nil {
				return wrapUnavailable(perr)
			}
			last = n
		case !errors.Is(err, ErrNotFound):
			return err
		}

		next := last + 1
		if err := setString(txn, chatSeqKey, strconv.Itoa(next)); err != nil {
			return err
		}

		saved = datatypes.SavedChat{
			ChatID:   strconv.Itoa(next),
			UserID:   userID,
			Title:    title,
			Messages: messages,
			SavedAt:  s.clock.Now(),
		}
		return setJSON(txn, keyChat(userID, saved.ChatID), saved)
	})
	if err != nil {
		return datatypes.SavedChat{}, err
	}
	return saved, nil
}

// GetChat loads one saved chat for a user.
func (s *Store) GetChat(ctx context.Context, userID, chatID string) (datatypes.SavedChat, error) {
	var saved datatypes.SavedChat
	err := s.view(ctx, func(txn *badger.Txn) error {
		return getJSON(txn, keyChat(userID, chatID), &saved)
	})
	return saved, err
}

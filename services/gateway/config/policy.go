// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// This file loads the optional rate-limit policy YAML and watches it for
// changes so operators can retune limits without a restart.
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/AleutianWidget/pkg/logging"
)

// policyFile mirrors the YAML layout:
//
//	rate_limits:
//	  chat:
//	    max_requests: 10
//	    window_seconds: 60
type policyFile struct {
	RateLimits map[string]RatePolicy `yaml:"rate_limits"`
}

// LoadRatePolicyFile parses a policy YAML. Unknown actions are rejected so a
// typo in the file cannot silently leave an action ungated.
func LoadRatePolicyFile(path string) (map[string]RatePolicy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rate limit policy %s: %w", path, err)
	}
	var pf policyFile
	if err := yaml.Unmarshal(raw, &pf); err != nil {
		return nil, fmt.Errorf("parse rate limit policy %s: %w", path, err)
	}
	known := map[string]struct{}{}
	for _, a := range rateActions {
		known[a] = struct{}{}
	}
	for action, p := range pf.RateLimits {
		if _, ok := known[action]; !ok {
			return nil, fmt.Errorf("rate limit policy %s: unknown action %q", path, action)
		}
		if p.MaxRequests < 1 || p.WindowSeconds < 1 {
			return nil, fmt.Errorf("rate limit policy %s: action %q needs positive max_requests and window_seconds", path, action)
		}
	}
	return pf.RateLimits, nil
}

// WatchRatePolicyFile watches path and invokes apply with the re-parsed
// policies on every change. Malformed updates are logged and skipped; the
// previous policies stay in force. Returns when ctx is done.
//
// Editors typically replace files via rename, so the parent directory is
// watched rather than the file itself.
func WatchRatePolicyFile(ctx context.Context, path string, logger *logging.Logger, apply func(map[string]RatePolicy)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create policy watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	target := filepath.Clean(path)

	// Debounce rapid write/rename bursts from editors.
	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			pending = time.After(200 * time.Millisecond)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("rate_policy_watch_error", "error", err.Error())
		case <-pending:
			pending = nil
			policies, err := LoadRatePolicyFile(path)
			if err != nil {
				logger.Warn("rate_policy_reload_failed", "error", err.Error())
				continue
			}
			apply(policies)
			logger.Info("rate_policy_reloaded", "path", path, "actions", len(policies))
		}
	}
}

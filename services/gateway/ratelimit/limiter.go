// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ratelimit decides whether an action is allowed for a subject.
//
// Two layers cooperate here. The Limiter enforces the durable per-subject
// fixed-window quotas backed by the store, keyed by the caller's session
// token (authenticated routes) or the session id carried in the request
// body (anonymous chat). The EdgeLimiter is an in-process token bucket per
// client IP that sheds abusive bursts before they reach the store at all.
package ratelimit

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/AleutianAI/AleutianWidget/services/gateway/config"
	"github.com/AleutianAI/AleutianWidget/services/gateway/store"
)

// Decision is what the caller gets back from a quota check.
type Decision struct {
	Allowed    bool
	RetryAfter int
	Remaining  int
}

// Limiter applies per-action fixed-window policies. Policies are swapped
// atomically so a hot reload never tears a read.
type Limiter struct {
	store    *store.Store
	policies atomic.Pointer[map[string]config.RatePolicy]
}

// NewLimiter builds a Limiter over the given store with an initial policy
// set. The policy map is copied; later mutation by the caller has no effect.
func NewLimiter(st *store.Store, policies map[string]config.RatePolicy) *Limiter {
	l := &Limiter{store: st}
	l.SetPolicies(policies)
	return l
}

// SetPolicies replaces the active policy set. Safe to call concurrently with
// Check; in-flight checks finish against the old set.
func (l *Limiter) SetPolicies(policies map[string]config.RatePolicy) {
	copied := make(map[string]config.RatePolicy, len(policies))
	for action, p := range policies {
		copied[action] = p
	}
	l.policies.Store(&copied)
}

// Policy returns the active policy for an action.
func (l *Limiter) Policy(action string) (config.RatePolicy, bool) {
	p, ok := (*l.policies.Load())[action]
	return p, ok
}

// Check runs one fixed-window decision for (subject, action). Unknown
// actions are an error, not a silent allow.
func (l *Limiter) Check(ctx context.Context, subject, action string) (Decision, error) {
	policy, ok := l.Policy(action)
	if !ok {
		return Decision{}, fmt.Errorf("no rate policy for action %q", action)
	}
	d, err := l.store.CheckAndBumpRate(ctx, subject, action, policy.MaxRequests, policy.Window())
	if err != nil {
		return Decision{}, err
	}
	return Decision{Allowed: d.Allowed, RetryAfter: d.RetryAfter, Remaining: d.Remaining}, nil
}

// Peek reports the window a denied caller of this action would see. Used for
// Retry-After headers on paths that report limits without consuming them.
func (l *Limiter) Peek(action string) time.Duration {
	if p, ok := l.Policy(action); ok {
		return p.Window()
	}
	return 0
}

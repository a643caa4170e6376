// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package clock provides injectable time and identifier sources.
//
// All time-sensitive components (session expiry, verification token TTL,
// rate-limit windows) take a Clock rather than calling time.Now directly,
// and all identifier generation goes through an IDSource. Tests inject the
// fake implementations to get deterministic behavior.
package clock

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Clock
// =============================================================================

// Clock is the source of wall time for the gateway.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
type Clock interface {
	// Now returns the current time in UTC.
	Now() time.Time
}

// SystemClock reads the system wall clock.
type SystemClock struct{}

// Now returns time.Now in UTC.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// FakeClock is a manually advanced clock for tests.
//
// The zero value is not usable; construct with NewFakeClock.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFakeClock creates a fake clock frozen at start.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start.UTC()}
}

// Now returns the frozen time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set moves the clock to t.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t.UTC()
}

// =============================================================================
// ID Source
// =============================================================================

// IDSource generates request ids, anonymous session ids, and opaque tokens.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
type IDSource interface {
	// NewRequestID returns a UUID v4 for request correlation.
	NewRequestID() string

	// NewSessionID returns a UUID v4 for anonymous session grouping.
	NewSessionID() string

	// NewToken returns an opaque token with at least 128 bits of entropy.
	// Used for session bearer tokens and verification tokens.
	NewToken() (string, error)
}

// SystemIDSource generates ids from crypto/rand via the uuid package.
type SystemIDSource struct{}

// NewRequestID returns a random UUID v4 string.
func (SystemIDSource) NewRequestID() string {
	return uuid.NewString()
}

// NewSessionID returns a random UUID v4 string.
func (SystemIDSource) NewSessionID() string {
	return uuid.NewString()
}

// NewToken returns 32 random bytes hex encoded (256 bits of entropy).
func (SystemIDSource) NewToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// FakeIDSource returns queued values, falling back to deterministic
// sequence numbers when the queue is empty. Test use only.
type FakeIDSource struct {
	mu     sync.Mutex
	Tokens []string
	seq    int
}

// NewRequestID returns a UUID v4; request ids do not need determinism in tests.
func (f *FakeIDSource) NewRequestID() string {
	return uuid.NewString()
}

// NewSessionID returns a UUID v4.
func (f *FakeIDSource) NewSessionID() string {
	return uuid.NewString()
}

// NewToken pops the next queued token, or fabricates a sequence-numbered one.
func (f *FakeIDSource) NewToken() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Tokens) > 0 {
		tok := f.Tokens[0]
		f.Tokens = f.Tokens[1:]
		return tok, nil
	}
	f.seq++
	return fmt.Sprintf("fake-token-%08d", f.seq), nil
}

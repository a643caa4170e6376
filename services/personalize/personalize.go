// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package personalize produces per-user content recommendations.
//
// The default strategy is a pure function of the user's tier and declared
// interests; it keeps no state and reads nothing, so results are
// reproducible and safe to recompute on every call.
package personalize

import (
	"context"
	"fmt"

	"github.com/AleutianAI/AleutianWidget/services/gateway/datatypes"
)

// Request carries the inputs for one personalization pass.
type Request struct {
	User      datatypes.User
	Interests []string
}

// Result is the recommendation set for a user.
type Result struct {
	Recommendations     []string
	PersonalizedContent map[string]any
}

// Strategy computes recommendations for a user.
type Strategy interface {
	Personalize(ctx context.Context, req Request) (Result, error)
}

// TierStrategy is the default: a deterministic recommendation set keyed by
// tier, decorated with the declared interests.
type TierStrategy struct{}

// tierTracks maps each tier to its content track.
var tierTracks = map[datatypes.Tier][]string{
	datatypes.TierAnonymous:   {"getting-started", "course-overview"},
	datatypes.TierLightweight: {"getting-started", "course-overview", "practice-basics"},
	datatypes.TierFull:        {"practice-basics", "guided-projects", "topic-deep-dives"},
	datatypes.TierPremium:     {"guided-projects", "topic-deep-dives", "mentor-sessions", "capstone-track"},
}

// Personalize computes the recommendation set. Pure: same inputs, same
// outputs, no store access.
func (TierStrategy) Personalize(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	tier := req.User.Tier
	if !datatypes.ValidTier(string(tier)) {
		tier = datatypes.TierLightweight
	}

	recs := make([]string, 0, len(tierTracks[tier])+len(req.Interests))
	recs = append(recs, tierTracks[tier]...)
	for _, interest := range req.Interests {
		recs = append(recs, fmt.Sprintf("topic:%s", interest))
	}

	return Result{
		Recommendations: recs,
		PersonalizedContent: map[string]any{
			"tier":      string(tier),
			"verified":  req.User.Verified,
			"interests": req.Interests,
		},
	}, nil
}

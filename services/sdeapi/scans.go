// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package sdeapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// Team onboarding: repository connections and scan runs. A scan analyzes a
// repository and proposes survey answers for the owning project.

func (c *Client) ListOnboardingConnections(ctx context.Context, params url.Values) (json.RawMessage, error) {
	return c.Get(ctx, "team-onboarding/connections/", params)
}

func (c *Client) CreateOnboardingConnection(ctx context.Context, data map[string]any) (json.RawMessage, error) {
	return c.Post(ctx, "team-onboarding/connections/", data)
}

func (c *Client) ListOnboardingScans(ctx context.Context, params url.Values) (json.RawMessage, error) {
	return c.Get(ctx, "team-onboarding/scans/", params)
}

// CreateOnboardingScan triggers a repository scan. data must carry
// "project", "connection" and "repository_url".
func (c *Client) CreateOnboardingScan(ctx context.Context, data map[string]any) (json.RawMessage, error) {
	return c.Post(ctx, "team-onboarding/scans/", data)
}

func (c *Client) GetOnboardingScan(ctx context.Context, scanID int, params url.Values) (json.RawMessage, error) {
	return c.Get(ctx, fmt.Sprintf("team-onboarding/scans/%d/", scanID), params)
}

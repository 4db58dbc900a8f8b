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

// Project passthroughs. These forward caller-supplied payloads to the
// platform without interpreting them; schema enforcement is the remote's
// job.

func (c *Client) ListProjects(ctx context.Context, params url.Values) (json.RawMessage, error) {
	return c.Get(ctx, "projects/", params)
}

func (c *Client) GetProject(ctx context.Context, projectID int, params url.Values) (json.RawMessage, error) {
	return c.Get(ctx, fmt.Sprintf("projects/%d/", projectID), params)
}

// CreateProject creates a project. The platform expects "application" and
// "profile" keys; the historical "application_id"/"profile_id" aliases are
// rewritten for callers still using them.
func (c *Client) CreateProject(ctx context.Context, data map[string]any) (json.RawMessage, error) {
	if v, ok := data["application_id"]; ok {
		data["application"] = v
		delete(data, "application_id")
	}
	if v, ok := data["profile_id"]; ok {
		data["profile"] = v
		delete(data, "profile_id")
	}
	return c.Post(ctx, "projects/", data)
}

func (c *Client) UpdateProject(ctx context.Context, projectID int, data map[string]any) (json.RawMessage, error) {
	return c.Patch(ctx, fmt.Sprintf("projects/%d/", projectID), data)
}

func (c *Client) DeleteProject(ctx context.Context, projectID int) error {
	_, err := c.Delete(ctx, fmt.Sprintf("projects/%d/", projectID))
	return err
}

// Profiles.

func (c *Client) ListProfiles(ctx context.Context, params url.Values) (json.RawMessage, error) {
	return c.Get(ctx, "profiles/", params)
}

func (c *Client) GetProfile(ctx context.Context, profileID int, params url.Values) (json.RawMessage, error) {
	return c.Get(ctx, fmt.Sprintf("profiles/%d/", profileID), params)
}

// Business units and groups.

func (c *Client) ListBusinessUnits(ctx context.Context, params url.Values) (json.RawMessage, error) {
	return c.Get(ctx, "business-units/", params)
}

func (c *Client) GetBusinessUnit(ctx context.Context, buID int, params url.Values) (json.RawMessage, error) {
	return c.Get(ctx, fmt.Sprintf("business-units/%d/", buID), params)
}

func (c *Client) ListGroups(ctx context.Context, params url.Values) (json.RawMessage, error) {
	return c.Get(ctx, "groups/", params)
}

func (c *Client) GetGroup(ctx context.Context, groupID int, params url.Values) (json.RawMessage, error) {
	return c.Get(ctx, fmt.Sprintf("groups/%d/", groupID), params)
}

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

// Application passthroughs.

func (c *Client) ListApplications(ctx context.Context, params url.Values) (json.RawMessage, error) {
	return c.Get(ctx, "applications/", params)
}

func (c *Client) GetApplication(ctx context.Context, appID int, params url.Values) (json.RawMessage, error) {
	return c.Get(ctx, fmt.Sprintf("applications/%d/", appID), params)
}

func (c *Client) CreateApplication(ctx context.Context, data map[string]any) (json.RawMessage, error) {
	return c.Post(ctx, "applications/", data)
}

func (c *Client) UpdateApplication(ctx context.Context, appID int, data map[string]any) (json.RawMessage, error) {
	return c.Patch(ctx, fmt.Sprintf("applications/%d/", appID), data)
}

// Project diagrams.

func (c *Client) ListProjectDiagrams(ctx context.Context, projectID int, params url.Values) (json.RawMessage, error) {
	if params == nil {
		params = url.Values{}
	}
	params.Set("project", fmt.Sprint(projectID))
	return c.Get(ctx, "project-diagrams/", params)
}

func (c *Client) GetProjectDiagram(ctx context.Context, diagramID int, params url.Values) (json.RawMessage, error) {
	return c.Get(ctx, fmt.Sprintf("project-diagrams/%d/", diagramID), params)
}

func (c *Client) CreateProjectDiagram(ctx context.Context, data map[string]any) (json.RawMessage, error) {
	return c.Post(ctx, "project-diagrams/", data)
}

func (c *Client) UpdateProjectDiagram(ctx context.Context, diagramID int, data map[string]any) (json.RawMessage, error) {
	return c.Patch(ctx, fmt.Sprintf("project-diagrams/%d/", diagramID), data)
}

func (c *Client) DeleteProjectDiagram(ctx context.Context, diagramID int) error {
	_, err := c.Delete(ctx, fmt.Sprintf("project-diagrams/%d/", diagramID))
	return err
}

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
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// jwtLifetime is how long a Cube JWT is reused before refreshing. The
// platform issues tokens valid for about a minute; the 10 second buffer
// avoids racing the expiry.
const jwtLifetime = 50 * time.Second

// jwtCache holds the short-lived JWT for the Cube analytics API.
type jwtCache struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// Advanced reports are stored queries executed by the Cube analytics API.

func (c *Client) ListAdvancedReports(ctx context.Context, params url.Values) (json.RawMessage, error) {
	return c.Get(ctx, "queries/", params)
}

func (c *Client) GetAdvancedReport(ctx context.Context, reportID int, params url.Values) (json.RawMessage, error) {
	return c.Get(ctx, fmt.Sprintf("queries/%d/", reportID), params)
}

func (c *Client) CreateAdvancedReport(ctx context.Context, data map[string]any) (json.RawMessage, error) {
	return c.Post(ctx, "queries/", data)
}

func (c *Client) UpdateAdvancedReport(ctx context.Context, reportID int, data map[string]any) (json.RawMessage, error) {
	return c.Patch(ctx, fmt.Sprintf("queries/%d/", reportID), data)
}

func (c *Client) DeleteAdvancedReport(ctx context.Context, reportID int) error {
	_, err := c.Delete(ctx, fmt.Sprintf("queries/%d/", reportID))
	return err
}

// RunAdvancedReport fetches a stored query definition and executes it via
// the Cube API. When execution fails the definition is still returned, with
// a nil data payload and the execution error.
func (c *Client) RunAdvancedReport(ctx context.Context, reportID int) (definition, data json.RawMessage, err error) {
	definition, err = c.GetAdvancedReport(ctx, reportID, nil)
	if err != nil {
		return nil, nil, err
	}

	var stored struct {
		Query json.RawMessage `json:"query"`
	}
	if err := json.Unmarshal(definition, &stored); err != nil || len(stored.Query) == 0 {
		return definition, nil, nil
	}

	data, execErr := c.ExecuteCubeQuery(ctx, stored.Query)
	if execErr != nil {
		return definition, nil, fmt.Errorf("sdeapi: executing cube query: %w", execErr)
	}
	return definition, data, nil
}

// cubeJWT returns a valid JWT for the Cube API, refreshing the cached one
// when expired.
func (c *Client) cubeJWT(ctx context.Context) (string, error) {
	c.jwt.mu.Lock()
	defer c.jwt.mu.Unlock()

	if c.jwt.token != "" && time.Now().Before(c.jwt.expiresAt) {
		return c.jwt.token, nil
	}

	raw, err := c.Get(ctx, "users/me/auth-token/", nil)
	if err != nil {
		return "", err
	}
	var payload struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Token == "" {
		return "", &AuthError{Message: "failed to obtain Cube JWT"}
	}

	c.jwt.token = payload.Token
	c.jwt.expiresAt = time.Now().Add(jwtLifetime)
	return c.jwt.token, nil
}

// ExecuteCubeQuery runs one Cube analytics query and returns its result.
//
// The Cube endpoint sits outside the REST prefix, authenticates with a
// Bearer JWT instead of the API token, and expects the query JSON as a URL
// parameter rather than a request body.
func (c *Client) ExecuteCubeQuery(ctx context.Context, query json.RawMessage) (json.RawMessage, error) {
	token, err := c.cubeJWT(ctx)
	if err != nil {
		return nil, err
	}

	cubeURL := c.host + "/cubejs-api/v1/load?query=" + url.QueryEscape(string(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cubeURL, nil)
	if err != nil {
		return nil, fmt.Errorf("sdeapi: creating cube request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &APIError{Message: fmt.Sprintf("cube request failed: %v", err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{Message: fmt.Sprintf("reading cube response: %v", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: errorMessage(raw)}
	}
	if !json.Valid(raw) {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: "cube response is not valid JSON"}
	}
	return json.RawMessage(raw), nil
}

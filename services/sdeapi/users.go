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

// User passthroughs.

func (c *Client) ListUsers(ctx context.Context, params url.Values) (json.RawMessage, error) {
	return c.Get(ctx, "users/", params)
}

func (c *Client) GetUser(ctx context.Context, userID int, params url.Values) (json.RawMessage, error) {
	return c.Get(ctx, fmt.Sprintf("users/%d/", userID), params)
}

// GetCurrentUser returns the authenticated user. Also doubles as the
// connectivity probe: a successful call proves both reachability and a
// valid API key.
func (c *Client) GetCurrentUser(ctx context.Context) (json.RawMessage, error) {
	return c.Get(ctx, "users/me/", nil)
}

// TestConnection reports whether the instance is reachable and the API key
// is accepted.
func (c *Client) TestConnection(ctx context.Context) bool {
	_, err := c.GetCurrentUser(ctx)
	return err == nil
}

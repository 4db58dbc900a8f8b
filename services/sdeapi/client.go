// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package sdeapi is a client for the SD Elements API v2.
//
// The client is a thin typed layer over the remote REST surface: token
// authentication, the platform's error taxonomy, pagination, and per-resource
// helpers. The reconciliation engine in services/survey consumes it through
// narrow interfaces; everything else is simple proxying.
package sdeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

const (
	// apiBasePath is the versioned REST prefix on every SD Elements host.
	apiBasePath = "/api/v2/"

	// defaultTimeout bounds every remote call. The platform can be slow on
	// large surveys but anything past this is treated as a failure.
	defaultTimeout = 30 * time.Second
)

// Client talks to one SD Elements instance. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	host       string
	baseURL    string
	apiKey     string
	logger     *slog.Logger

	jwt jwtCache
}

// NewClientWithConfig creates a Client without reading environment
// variables. Useful for testing against httptest servers or when
// configuration comes from another source.
func NewClientWithConfig(host, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	host = strings.TrimRight(host, "/")
	return &Client{
		httpClient: httpClient,
		host:       host,
		baseURL:    host + apiBasePath,
		apiKey:     apiKey,
		logger:     slog.Default(),
	}
}

// NewClient creates a Client for the given host and API key.
func NewClient(host, apiKey string) (*Client, error) {
	if host == "" {
		return nil, fmt.Errorf("sdeapi: host is required")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("sdeapi: API key is required")
	}
	return NewClientWithConfig(host, apiKey, nil), nil
}

// NewClientFromEnv creates a Client from SDE_HOST and SDE_API_KEY.
func NewClientFromEnv() (*Client, error) {
	host := os.Getenv("SDE_HOST")
	apiKey := os.Getenv("SDE_API_KEY")

	if apiKey == "" {
		// Container deployments mount the key as a secret file instead.
		secretPath := "/run/secrets/sde_api_key"
		if content, err := os.ReadFile(secretPath); err == nil {
			apiKey = strings.TrimSpace(string(content))
			slog.Info("Read SD Elements API key from secrets mount")
		}
	}

	if host == "" {
		return nil, fmt.Errorf("sdeapi: SDE_HOST environment variable is required")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("sdeapi: SDE_API_KEY environment variable is required")
	}
	return NewClient(host, apiKey)
}

// Host returns the configured instance URL, without a trailing slash.
func (c *Client) Host() string { return c.host }

// Get performs a GET against an API-relative endpoint (e.g. "projects/").
func (c *Client) Get(ctx context.Context, endpoint string, params url.Values) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, endpoint, params, nil)
}

// Post performs a POST with a JSON body.
func (c *Client) Post(ctx context.Context, endpoint string, body any) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, endpoint, nil, body)
}

// Patch performs a PATCH with a JSON body.
func (c *Client) Patch(ctx context.Context, endpoint string, body any) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPatch, endpoint, nil, body)
}

// Put performs a PUT with a JSON body.
func (c *Client) Put(ctx context.Context, endpoint string, body any) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPut, endpoint, nil, body)
}

// Delete performs a DELETE.
func (c *Client) Delete(ctx context.Context, endpoint string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodDelete, endpoint, nil, nil)
}

// do executes one request against the API and maps the platform's error
// conventions onto the package error types.
func (c *Client) do(ctx context.Context, method, endpoint string, params url.Values, body any) (json.RawMessage, error) {
	reqURL := c.baseURL + strings.TrimLeft(endpoint, "/")
	return c.doURL(ctx, method, reqURL, params, body)
}

// doURL is do for an absolute URL. Pagination follows absolute "next"
// links, which is why this exists separately.
func (c *Client) doURL(ctx context.Context, method, reqURL string, params url.Values, body any) (json.RawMessage, error) {
	if len(params) > 0 {
		sep := "?"
		if strings.Contains(reqURL, "?") {
			sep = "&"
		}
		reqURL += sep + params.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("sdeapi: marshaling request body: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("sdeapi: creating request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("SD Elements API request",
		slog.String("method", method),
		slog.String("url", reqURL))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &APIError{Message: "request timeout"}
		}
		return nil, &APIError{Message: fmt.Sprintf("unable to connect to %s: %v", c.host, err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{Message: fmt.Sprintf("reading response: %v", err)}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, &AuthError{StatusCode: resp.StatusCode, Message: "authentication failed, check your API key"}
	case resp.StatusCode == http.StatusForbidden:
		return nil, &AuthError{StatusCode: resp.StatusCode, Message: "access forbidden, check your permissions"}
	case resp.StatusCode == http.StatusNotFound:
		return nil, &NotFoundError{URL: reqURL}
	case resp.StatusCode >= 400:
		return nil, &APIError{StatusCode: resp.StatusCode, Message: errorMessage(raw)}
	case resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(raw)) == 0:
		return json.RawMessage(`{}`), nil
	}

	if !json.Valid(raw) {
		if strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
			return nil, &AuthError{
				StatusCode: resp.StatusCode,
				Message:    fmt.Sprintf("received HTML instead of JSON from %s (bad key or wrong endpoint)", reqURL),
			}
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: "response is not valid JSON"}
	}
	return json.RawMessage(raw), nil
}

// errorMessage extracts the most specific message from an error payload.
// The platform is inconsistent: the detail lives in "detail", "error" or
// "message" depending on the endpoint.
func errorMessage(raw []byte) string {
	var payload struct {
		Detail  string `json:"detail"`
		Err     string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil {
		for _, msg := range []string{payload.Detail, payload.Err, payload.Message} {
			if msg != "" {
				return msg
			}
		}
	}
	if len(raw) > 512 {
		raw = raw[:512]
	}
	return string(raw)
}

// listPage is the envelope of every paginated list endpoint.
type listPage struct {
	Next    string            `json:"next"`
	Results []json.RawMessage `json:"results"`
}

// getAllPages walks a paginated endpoint, following "next" links, and
// returns the concatenated results.
func (c *Client) getAllPages(ctx context.Context, endpoint string, params url.Values) ([]json.RawMessage, error) {
	var results []json.RawMessage

	raw, err := c.Get(ctx, endpoint, params)
	for {
		if err != nil {
			return nil, err
		}
		var page listPage
		if err := json.Unmarshal(raw, &page); err != nil {
			return nil, fmt.Errorf("sdeapi: decoding page of %s: %w", endpoint, err)
		}
		results = append(results, page.Results...)
		if page.Next == "" {
			return results, nil
		}
		raw, err = c.doURL(ctx, http.MethodGet, page.Next, nil, nil)
	}
}

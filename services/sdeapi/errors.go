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

import "fmt"

// APIError is the base error for SD Elements API failures. StatusCode is 0
// for transport-level failures (connection refused, timeout).
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("sdeapi: %s", e.Message)
	}
	return fmt.Sprintf("sdeapi: API error %d: %s", e.StatusCode, e.Message)
}

// AuthError reports a 401/403 response or an HTML response where JSON was
// expected (a common symptom of a bad API key or a redirect to a login
// page).
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("sdeapi: authentication error: %s", e.Message)
}

// NotFoundError reports a 404 for the requested resource.
type NotFoundError struct {
	URL string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("sdeapi: resource not found: %s", e.URL)
}

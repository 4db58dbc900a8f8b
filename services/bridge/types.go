// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package bridge exposes the survey reconciliation engine and the SD Elements
// API client over HTTP. It is a thin Gin layer: request decoding, error
// mapping, and response shaping live here; all survey semantics live in
// services/survey.
package bridge

import (
	"github.com/AleutianAI/sdebridge/services/survey"
)

// ErrorResponse is the uniform error body returned by every endpoint.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// ResolveRequest asks for free-text queries to be resolved against the
// library answer catalog.
type ResolveRequest struct {
	// Queries is the list of free-text answer strings to resolve.
	Queries []string `json:"queries" binding:"required,min=1"`

	// Threshold overrides the default fuzzy-match threshold when set.
	// Must be in (0, 1].
	Threshold *float64 `json:"threshold,omitempty" binding:"omitempty,gt=0,lte=1"`
}

// ResolveResponse reports per-query match results plus the catalog size the
// resolution ran against, so callers can detect a cold or partial catalog.
type ResolveResponse struct {
	Matches     map[string]survey.MatchResult `json:"matches"`
	CatalogSize int                           `json:"catalog_size"`
}

// ApplyAnswersRequest drives the full text-to-draft pipeline: resolve free
// text to answer ids, then reconcile the project draft toward them.
type ApplyAnswersRequest struct {
	// Answers is free text to resolve and select, in order.
	Answers []string `json:"answers" binding:"required,min=1"`

	// DeselectIDs lists answer ids to deselect before selecting.
	DeselectIDs []string `json:"deselect_ids,omitempty"`

	// Commit publishes the draft after reconciliation.
	Commit bool `json:"commit"`

	// Threshold overrides the default fuzzy-match threshold when set.
	Threshold *float64 `json:"threshold,omitempty" binding:"omitempty,gt=0,lte=1"`
}

// ApplyAnswersResponse pairs the text resolution with the reconciliation
// outcome. Unmatched lists input strings that resolved to nothing; they are
// reported, never guessed at.
type ApplyAnswersResponse struct {
	Matches   map[string]survey.MatchResult `json:"matches"`
	Unmatched []string                      `json:"unmatched,omitempty"`
	Result    survey.ReconciliationResult   `json:"result"`
}

// CatalogRefreshResponse reports the catalog size after a forced reload.
type CatalogRefreshResponse struct {
	CatalogSize int `json:"catalog_size"`
}

// HealthResponse is the /healthz body.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

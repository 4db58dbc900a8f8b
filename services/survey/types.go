// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package survey implements the draft reconciliation and answer resolution
// engine for SD Elements project questionnaires.
//
// The engine drives a remote, order-sensitive draft toward a caller-supplied
// target selection set: free text is resolved to canonical answer IDs against
// a cached library catalog, unmet same-question prerequisites are activated
// greedily, and convergence is verified from a final re-fetch of the draft
// rather than from in-memory bookkeeping.
package survey

// LibraryAnswer is one immutable entry of the SD Elements answer library.
// The library is read-only reference data, refreshed wholesale by the
// CatalogCache; there are no partial updates.
type LibraryAnswer struct {
	// ID is the canonical answer identifier (e.g. "A21").
	ID string `json:"id"`

	// Text is the selectable answer text (e.g. "PostgreSQL").
	Text string `json:"text"`

	// DisplayQuestion is the human-readable question the answer belongs to.
	DisplayQuestion string `json:"display_question"`

	// Section is the survey section containing the question.
	Section string `json:"section"`
}

// DraftAnswer is one row of a project's mutable survey draft.
//
// Valid may flip as *other* answers are selected or deselected server-side;
// that cross-answer side effect is why the reconciler re-fetches the draft
// before every risk-bearing mutation instead of trusting a stale copy.
type DraftAnswer struct {
	// ID is the answer identifier, stable across refetches within a project.
	ID string `json:"id"`

	// QuestionID identifies the question this answer belongs to.
	QuestionID string `json:"question_id"`

	// Selected reports whether the answer is currently selected in the draft.
	Selected bool `json:"selected"`

	// Valid reports whether the answer is currently legal to select.
	Valid bool `json:"valid"`
}

// SurveyDraft is the ordered draft state for one project. It is never cached:
// each risk-bearing mutation is preceded by a fresh fetch.
type SurveyDraft struct {
	Answers []DraftAnswer `json:"answers"`
}

// Find returns the draft answer with the given id, or nil if absent.
func (d SurveyDraft) Find(answerID string) *DraftAnswer {
	for i := range d.Answers {
		if d.Answers[i].ID == answerID {
			return &d.Answers[i]
		}
	}
	return nil
}

// SelectedIDs returns the set of currently selected answer IDs.
func (d SurveyDraft) SelectedIDs() map[string]bool {
	selected := make(map[string]bool)
	for _, a := range d.Answers {
		if a.Selected {
			selected[a.ID] = true
		}
	}
	return selected
}

// MatchType classifies how a free-text query matched a library answer.
// Exact strictly dominates substring, which strictly dominates fuzzy,
// regardless of numeric similarity.
type MatchType string

const (
	MatchExact     MatchType = "exact"
	MatchSubstring MatchType = "substring"
	MatchFuzzy     MatchType = "fuzzy"
	MatchNone      MatchType = "none"
)

// MatchResult is the outcome of resolving one free-text query against the
// answer catalog. MatchedAnswer is nil when nothing cleared the threshold.
type MatchResult struct {
	Query         string         `json:"query"`
	MatchedAnswer *LibraryAnswer `json:"matched_answer,omitempty"`
	MatchType     MatchType      `json:"match_type"`
	Similarity    float64        `json:"similarity"`
}

// ReconciliationRequest describes the target selection state for one
// project's draft. SelectIDs is applied in the caller-supplied order; the
// order is part of the contract because selecting one answer can change the
// validity of the next.
type ReconciliationRequest struct {
	SelectIDs   []string `json:"select_ids"`
	DeselectIDs []string `json:"deselect_ids"`
	Commit      bool     `json:"commit"`
}

// ItemError records one per-answer failure during reconciliation. Per-item
// failures never abort the batch.
type ItemError struct {
	AnswerID string        `json:"answer_id"`
	Reason   FailureReason `json:"reason"`
	Detail   string        `json:"detail"`
}

// ReconciliationResult reports the outcome of one Reconcile call.
//
// MissingIDs is computed strictly from the final post-loop fetch of the
// draft, never from in-memory assumptions: if a mutation silently no-ops
// server-side, the id still appears here. Callers are expected to inspect
// MissingIDs and PerItemErrors even when Reconcile returns a nil error.
type ReconciliationResult struct {
	SelectedCount   int         `json:"selected_count"`
	DeselectedCount int         `json:"deselected_count"`
	TargetIDs       []string    `json:"target_ids"`
	DeselectedIDs   []string    `json:"deselected_ids"`
	MissingIDs      []string    `json:"missing_ids"`
	PerItemErrors   []ItemError `json:"per_item_errors,omitempty"`
	Committed       bool        `json:"committed"`
	CommitError     string      `json:"commit_error,omitempty"`

	// DependenciesAdded lists prerequisite answers activated by the
	// dependency resolver while selecting the targets.
	DependenciesAdded []string `json:"dependencies_added,omitempty"`
}

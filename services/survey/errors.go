// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package survey

import (
	"errors"
	"fmt"
)

// FailureReason classifies an engine failure.
//
// NotFound, DependenciesUnresolved and MutationFailed are per-item: they are
// collected into ReconciliationResult.PerItemErrors and never abort a batch.
// FetchFailed is fatal to the enclosing call, since nothing further can be
// verified without a successful draft read. CommitFailed is reported
// independently of the selection phase.
type FailureReason string

const (
	ReasonNotFound               FailureReason = "not_found"
	ReasonDependenciesUnresolved FailureReason = "dependencies_unresolved"
	ReasonMutationFailed         FailureReason = "mutation_failed"
	ReasonFetchFailed            FailureReason = "fetch_failed"
	ReasonCommitFailed           FailureReason = "commit_failed"
)

// NotFoundError reports an answer id absent from the project's draft.
type NotFoundError struct {
	AnswerID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("survey: answer %s not found in draft", e.AnswerID)
}

// MutationError reports a select/deselect call rejected by the remote.
type MutationError struct {
	AnswerID string
	Selected bool
	Err      error
}

func (e *MutationError) Error() string {
	verb := "deselect"
	if e.Selected {
		verb = "select"
	}
	return fmt.Sprintf("survey: failed to %s answer %s: %v", verb, e.AnswerID, e.Err)
}

func (e *MutationError) Unwrap() error { return e.Err }

// DependencyError reports that no single-sibling activation made the target
// answer valid. Attempted lists the sibling ids that were activated along
// the way; they remain selected in the draft.
type DependencyError struct {
	AnswerID  string
	Attempted []string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("survey: could not resolve dependencies for answer %s (%d siblings attempted)",
		e.AnswerID, len(e.Attempted))
}

// FetchError reports a failed draft or catalog read. It is fatal to the
// enclosing reconciliation: partial progress already applied is not rolled
// back, but no further mutation is attempted.
type FetchError struct {
	ProjectID int
	Resource  string // "draft" or "catalog"
	Err       error
}

func (e *FetchError) Error() string {
	if e.ProjectID == 0 {
		return fmt.Sprintf("survey: failed to fetch %s: %v", e.Resource, e.Err)
	}
	return fmt.Sprintf("survey: failed to fetch %s for project %d: %v", e.Resource, e.ProjectID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// CommitError reports a failed draft publish. It does not retroactively undo
// prior selections.
type CommitError struct {
	ProjectID int
	Err       error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("survey: failed to commit draft for project %d: %v", e.ProjectID, e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }

// reasonForError maps a resolver/accessor error to its per-item reason.
func reasonForError(err error) FailureReason {
	var (
		notFound *NotFoundError
		deps     *DependencyError
		mutation *MutationError
		fetch    *FetchError
		commit   *CommitError
	)
	switch {
	case errors.As(err, &notFound):
		return ReasonNotFound
	case errors.As(err, &deps):
		return ReasonDependenciesUnresolved
	case errors.As(err, &mutation):
		return ReasonMutationFailed
	case errors.As(err, &fetch):
		return ReasonFetchFailed
	case errors.As(err, &commit):
		return ReasonCommitFailed
	default:
		return ReasonMutationFailed
	}
}

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
	"context"

	"github.com/AleutianAI/sdebridge/services/sdeapi"
)

// DraftAccessor reads and mutates the remote draft survey for a project.
//
// Each FetchDraft returns the current remote truth: prior mutations can
// change other answers' validity server-side, so callers must not reuse a
// stale draft across mutations. SetSelection is a single remote mutation
// with no batching; a failure surfaces as a *MutationError carrying the
// answer id and the underlying cause, and the caller decides whether to
// continue.
type DraftAccessor interface {
	FetchDraft(ctx context.Context, projectID int) (SurveyDraft, error)
	SetSelection(ctx context.Context, projectID int, answerID string, selected bool) error
}

// Committer publishes a project's draft, making its selections permanent.
type Committer interface {
	CommitDraft(ctx context.Context, projectID int) error
}

// RemoteAccessor is the production DraftAccessor and Committer, backed by
// the SD Elements API client.
type RemoteAccessor struct {
	client *sdeapi.Client
}

// NewRemoteAccessor wraps an SD Elements API client as a DraftAccessor.
func NewRemoteAccessor(client *sdeapi.Client) *RemoteAccessor {
	return &RemoteAccessor{client: client}
}

// FetchDraft returns the project's current draft state, preserving the
// remote answer order.
func (r *RemoteAccessor) FetchDraft(ctx context.Context, projectID int) (SurveyDraft, error) {
	answers, err := r.client.GetSurveyDraft(ctx, projectID)
	if err != nil {
		return SurveyDraft{}, &FetchError{ProjectID: projectID, Resource: "draft", Err: err}
	}

	draft := SurveyDraft{Answers: make([]DraftAnswer, 0, len(answers))}
	for _, a := range answers {
		draft.Answers = append(draft.Answers, DraftAnswer{
			ID:         a.ID,
			QuestionID: a.Question,
			Selected:   a.Selected,
			Valid:      a.Valid,
		})
	}
	return draft, nil
}

// SetSelection applies one select/deselect mutation to the draft.
func (r *RemoteAccessor) SetSelection(ctx context.Context, projectID int, answerID string, selected bool) error {
	if err := r.client.SetDraftAnswer(ctx, projectID, answerID, selected); err != nil {
		return &MutationError{AnswerID: answerID, Selected: selected, Err: err}
	}
	return nil
}

// CommitDraft publishes the project's draft.
func (r *RemoteAccessor) CommitDraft(ctx context.Context, projectID int) error {
	if _, err := r.client.CommitSurveyDraft(ctx, projectID); err != nil {
		return &CommitError{ProjectID: projectID, Err: err}
	}
	return nil
}

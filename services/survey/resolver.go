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
	"log/slog"
)

// ensureSelectable drives the target answer into the selected state,
// activating same-question prerequisites when needed.
//
// If the target is already selected this is a no-op: zero mutation calls.
// If the target is not valid, siblings on the same question that are
// currently valid and unselected are activated one at a time, in draft
// order; after each activation the draft is re-fetched and the target's
// validity re-checked. The first sibling that unblocks the target wins and
// the target is then selected. The search is deliberately greedy and
// non-backtracking: it never explores combinations of two or more
// co-required siblings, so a questionnaire requiring multiple simultaneous
// prerequisites fails with a *DependencyError.
//
// Returns the ids of any siblings activated along the way. Siblings that
// were activated but did not unblock the target stay selected in the draft.
func (r *Reconciler) ensureSelectable(ctx context.Context, projectID int, answerID string, draft SurveyDraft) ([]string, error) {
	target := draft.Find(answerID)
	if target == nil {
		return nil, &NotFoundError{AnswerID: answerID}
	}

	if target.Selected {
		return nil, nil
	}

	if target.Valid {
		if err := r.setSelection(ctx, projectID, answerID, true); err != nil {
			return nil, err
		}
		return nil, nil
	}

	r.logger.Debug("Answer invalid, activating same-question prerequisites",
		slog.String("answer_id", answerID),
		slog.String("question_id", target.QuestionID))

	questionID := target.QuestionID
	var activated []string
	for _, sibling := range draft.Answers {
		if sibling.ID == answerID || sibling.QuestionID != questionID {
			continue
		}
		if !sibling.Valid || sibling.Selected {
			continue
		}

		if err := r.setSelection(ctx, projectID, sibling.ID, true); err != nil {
			// A rejected sibling is not fatal to the search; the next
			// sibling may still unblock the target.
			r.logger.Debug("Prerequisite activation rejected",
				slog.String("sibling_id", sibling.ID),
				slog.String("error", err.Error()))
			continue
		}
		activated = append(activated, sibling.ID)
		dependencyActivations.Inc()

		fresh, err := r.accessor.FetchDraft(ctx, projectID)
		if err != nil {
			return activated, err
		}

		refreshed := fresh.Find(answerID)
		if refreshed != nil && refreshed.Valid {
			if err := r.setSelection(ctx, projectID, answerID, true); err != nil {
				return activated, err
			}
			r.logger.Debug("Dependency resolution succeeded",
				slog.String("answer_id", answerID),
				slog.Int("dependencies_added", len(activated)))
			return activated, nil
		}
	}

	return activated, &DependencyError{AnswerID: answerID, Attempted: activated}
}

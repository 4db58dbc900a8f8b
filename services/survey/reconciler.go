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
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Reconciler sequences deselection, selection with dependency resolution,
// convergence verification, and the optional commit for one project draft.
//
// All operations within one Reconcile call are strictly sequential: the
// validity of answer B may depend on answer A's just-applied selection, so
// mutations are never parallelized within a call. Independent Reconcile
// calls for different projects share no mutable state and may run
// concurrently.
type Reconciler struct {
	accessor  DraftAccessor
	committer Committer
	logger    *slog.Logger
}

// NewReconciler builds a Reconciler. committer may be nil when the caller
// never requests a commit; a commit request without a committer is reported
// as a commit failure, not a panic. logger may be nil for slog.Default().
func NewReconciler(accessor DraftAccessor, committer Committer, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		accessor:  accessor,
		committer: committer,
		logger:    logger,
	}
}

// Reconcile drives the project's draft toward the requested selection set.
//
// Description:
//
//	The sequence is part of the contract, not an implementation detail:
//
//	 1. Fetch the draft once and deselect every id in DeselectIDs that is
//	    currently selected. Ids that are not selected cause no mutation.
//	    Failures are recorded per-id; the loop never aborts.
//	 2. For each id in SelectIDs, in caller-supplied order: re-fetch the
//	    draft immediately before acting, because a previously selected
//	    answer may have changed this one's validity server-side. Already
//	    selected ids are skipped with no mutation and no count increment;
//	    otherwise the dependency resolver runs. Per-item failures are
//	    collected and the batch continues.
//	 3. Fetch the draft once more and compute MissingIDs from that final
//	    truth, never from in-memory assumptions.
//	 4. If Commit is set, publish the draft. The commit outcome is recorded
//	    independently of the selection phase: a partially failed
//	    reconciliation still attempts the commit, and a failed commit does
//	    not invalidate applied selections.
//
//	A failed draft fetch at any of the three fetch points is fatal: the
//	remaining steps are skipped and the error is returned alongside the
//	partial result (progress already applied is not rolled back).
//
//	Cancellation is cooperative at per-item boundaries: a cancelled context
//	stops before the next id's mutation, never mid-mutation.
//
// Thread Safety: Reconcile must not be called concurrently for the same
// project. Calls for different projects are safe.
func (r *Reconciler) Reconcile(ctx context.Context, projectID int, req ReconciliationRequest) (ReconciliationResult, error) {
	ctx, span := otel.Tracer("aleutian.sdebridge").Start(ctx, "survey.reconcile")
	span.SetAttributes(
		attribute.Int("project_id", projectID),
		attribute.Int("select_count", len(req.SelectIDs)),
		attribute.Int("deselect_count", len(req.DeselectIDs)),
		attribute.Bool("commit", req.Commit),
	)
	defer span.End()

	start := time.Now()
	result := ReconciliationResult{TargetIDs: req.SelectIDs}

	// Step 1: deselection pass against a single fetch.
	draft, err := r.accessor.FetchDraft(ctx, projectID)
	if err != nil {
		span.SetStatus(codes.Error, "initial draft fetch failed")
		reconcileTotal.WithLabelValues("fetch_failed").Inc()
		return result, err
	}

	selected := draft.SelectedIDs()
	for _, id := range req.DeselectIDs {
		if err := ctx.Err(); err != nil {
			span.SetStatus(codes.Error, "cancelled")
			return result, err
		}
		if !selected[id] {
			continue
		}
		if err := r.setSelection(ctx, projectID, id, false); err != nil {
			result.PerItemErrors = append(result.PerItemErrors, itemError(id, err))
			continue
		}
		// DeselectIDs is a set; a duplicate of a just-deselected id must
		// not mutate or count again.
		selected[id] = false
		result.DeselectedCount++
		result.DeselectedIDs = append(result.DeselectedIDs, id)
	}

	// Step 2: selection pass. The draft is re-fetched before every id
	// because selecting one answer can unlock or invalidate another purely
	// as a server-side side effect; acting on a stale draft risks silent
	// no-ops or avoidable errors.
	for _, id := range req.SelectIDs {
		if err := ctx.Err(); err != nil {
			span.SetStatus(codes.Error, "cancelled")
			return result, err
		}

		draft, err = r.accessor.FetchDraft(ctx, projectID)
		if err != nil {
			span.SetStatus(codes.Error, "draft fetch failed mid-batch")
			reconcileTotal.WithLabelValues("fetch_failed").Inc()
			return result, err
		}

		if answer := draft.Find(id); answer != nil && answer.Selected {
			continue
		}

		deps, err := r.ensureSelectable(ctx, projectID, id, draft)
		result.DependenciesAdded = append(result.DependenciesAdded, deps...)
		if err != nil {
			var fetchErr *FetchError
			if errors.As(err, &fetchErr) {
				span.SetStatus(codes.Error, "draft fetch failed during dependency resolution")
				reconcileTotal.WithLabelValues("fetch_failed").Inc()
				return result, err
			}
			result.PerItemErrors = append(result.PerItemErrors, itemError(id, err))
			continue
		}
		result.SelectedCount++
	}

	// Step 3: convergence verification from the final remote truth.
	final, err := r.accessor.FetchDraft(ctx, projectID)
	if err != nil {
		span.SetStatus(codes.Error, "final draft fetch failed")
		reconcileTotal.WithLabelValues("fetch_failed").Inc()
		return result, err
	}
	result.MissingIDs = missingFrom(req.SelectIDs, final)

	// Step 4: commit gate, independent of selection outcomes.
	if req.Commit {
		if err := r.Commit(ctx, projectID); err != nil {
			result.CommitError = err.Error()
		} else {
			result.Committed = true
		}
	}

	outcome := "converged"
	if len(result.MissingIDs) > 0 || len(result.PerItemErrors) > 0 {
		outcome = "partial"
	}
	reconcileTotal.WithLabelValues(outcome).Inc()
	reconcileDuration.Observe(time.Since(start).Seconds())

	r.logger.Info("Reconciliation finished",
		slog.Int("project_id", projectID),
		slog.Int("selected", result.SelectedCount),
		slog.Int("deselected", result.DeselectedCount),
		slog.Int("missing", len(result.MissingIDs)),
		slog.Int("item_errors", len(result.PerItemErrors)),
		slog.Bool("committed", result.Committed))

	return result, nil
}

// Commit publishes the project's draft. It purely forwards to the remote
// publish operation; a failure never undoes prior selections.
func (r *Reconciler) Commit(ctx context.Context, projectID int) error {
	if r.committer == nil {
		return &CommitError{ProjectID: projectID, Err: errors.New("no committer configured")}
	}
	if err := r.committer.CommitDraft(ctx, projectID); err != nil {
		commitTotal.WithLabelValues("error").Inc()
		r.logger.Warn("Draft commit failed",
			slog.Int("project_id", projectID),
			slog.String("error", err.Error()))
		return err
	}
	commitTotal.WithLabelValues("ok").Inc()
	return nil
}

// setSelection wraps one mutation with latency and failure accounting.
func (r *Reconciler) setSelection(ctx context.Context, projectID int, answerID string, selected bool) error {
	start := time.Now()
	err := r.accessor.SetSelection(ctx, projectID, answerID, selected)
	mutationDuration.Observe(time.Since(start).Seconds())
	return err
}

// missingFrom returns the ids in targets that are not selected in the final
// draft, preserving target order and skipping duplicates.
func missingFrom(targets []string, final SurveyDraft) []string {
	selected := final.SelectedIDs()
	seen := make(map[string]bool, len(targets))
	missing := make([]string, 0)
	for _, id := range targets {
		if seen[id] {
			continue
		}
		seen[id] = true
		if !selected[id] {
			missing = append(missing, id)
		}
	}
	return missing
}

// itemError converts an engine error into its per-item record.
func itemError(answerID string, err error) ItemError {
	reason := reasonForError(err)
	itemErrorTotal.WithLabelValues(string(reason)).Inc()
	return ItemError{
		AnswerID: answerID,
		Reason:   reason,
		Detail:   err.Error(),
	}
}

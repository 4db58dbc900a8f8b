// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/sdebridge/services/sdeapi"
	"github.com/AleutianAI/sdebridge/services/survey"
)

// Handlers holds the dependencies shared by all bridge endpoints.
type Handlers struct {
	api     *sdeapi.Client
	engine  *survey.Reconciler
	catalog *survey.CatalogCache
	logger  *slog.Logger
}

// NewHandlers wires the bridge endpoints to an SD Elements client, the
// reconciliation engine, and the catalog cache. A nil logger falls back to
// slog.Default().
func NewHandlers(api *sdeapi.Client, engine *survey.Reconciler, catalog *survey.CatalogCache, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{api: api, engine: engine, catalog: catalog, logger: logger}
}

// =============================================================================
// Survey Endpoints
// =============================================================================

// HandleReconcile handles POST /v1/projects/:id/survey/reconcile.
//
// The request body is a ReconciliationRequest; the response is the full
// ReconciliationResult including missing ids and per-item errors. Partial
// convergence is still a 200: callers inspect missing_ids and
// per_item_errors, not the status code.
func (h *Handlers) HandleReconcile(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.logger.With("request_id", requestID, "handler", "HandleReconcile")

	projectID, ok := projectIDParam(c)
	if !ok {
		return
	}

	var req survey.ReconciliationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "invalid request body: " + err.Error(),
			Code:  "INVALID_REQUEST",
		})
		return
	}
	if len(req.SelectIDs) == 0 && len(req.DeselectIDs) == 0 && !req.Commit {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "request must name answers to select or deselect, or ask for a commit",
			Code:  "EMPTY_REQUEST",
		})
		return
	}

	result, err := h.engine.Reconcile(c.Request.Context(), projectID, req)
	if err != nil {
		logger.Error("reconciliation failed", "project_id", projectID, "error", err)
		h.writeUpstreamError(c, err)
		return
	}

	logger.Info("reconciliation finished",
		"project_id", projectID,
		"selected", result.SelectedCount,
		"missing", len(result.MissingIDs),
		"item_errors", len(result.PerItemErrors))
	c.JSON(http.StatusOK, result)
}

// HandleResolve handles POST /v1/answers/resolve.
//
// Resolves free-text answers against the cached library catalog without
// touching any project draft.
func (h *Handlers) HandleResolve(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.logger.With("request_id", requestID, "handler", "HandleResolve")

	var req ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "invalid request body: " + err.Error(),
			Code:  "INVALID_REQUEST",
		})
		return
	}

	catalog, err := h.catalog.Get(c.Request.Context())
	if err != nil {
		logger.Error("catalog load failed", "error", err)
		h.writeUpstreamError(c, err)
		return
	}

	threshold := survey.DefaultMatchThreshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}

	matches := survey.Resolve(req.Queries, catalog, threshold)
	recordMatches(matches)

	c.JSON(http.StatusOK, ResolveResponse{
		Matches:     matches,
		CatalogSize: len(catalog),
	})
}

// HandleApplyAnswers handles POST /v1/projects/:id/survey/answers.
//
// The full text-to-draft pipeline: resolve free text against the catalog,
// then reconcile the project draft toward the matched ids. Unmatched text is
// reported back, never guessed at.
func (h *Handlers) HandleApplyAnswers(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.logger.With("request_id", requestID, "handler", "HandleApplyAnswers")

	projectID, ok := projectIDParam(c)
	if !ok {
		return
	}

	var req ApplyAnswersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "invalid request body: " + err.Error(),
			Code:  "INVALID_REQUEST",
		})
		return
	}

	catalog, err := h.catalog.Get(c.Request.Context())
	if err != nil {
		logger.Error("catalog load failed", "error", err)
		h.writeUpstreamError(c, err)
		return
	}

	threshold := survey.DefaultMatchThreshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}

	matches := survey.Resolve(req.Answers, catalog, threshold)
	recordMatches(matches)

	// Matched ids in input order, deduplicated. Order matters downstream:
	// selecting one answer can change the validity of the next.
	seen := make(map[string]bool)
	selectIDs := make([]string, 0, len(req.Answers))
	var unmatched []string
	for _, query := range req.Answers {
		m := matches[query]
		if m.MatchedAnswer == nil {
			unmatched = append(unmatched, query)
			continue
		}
		if !seen[m.MatchedAnswer.ID] {
			seen[m.MatchedAnswer.ID] = true
			selectIDs = append(selectIDs, m.MatchedAnswer.ID)
		}
	}

	if len(selectIDs) == 0 && len(req.DeselectIDs) == 0 {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error: "none of the supplied answers matched the library catalog",
			Code:  "UNRESOLVED_ANSWERS",
		})
		return
	}

	result, err := h.engine.Reconcile(c.Request.Context(), projectID, survey.ReconciliationRequest{
		SelectIDs:   selectIDs,
		DeselectIDs: req.DeselectIDs,
		Commit:      req.Commit,
	})
	if err != nil {
		logger.Error("reconciliation failed", "project_id", projectID, "error", err)
		h.writeUpstreamError(c, err)
		return
	}

	logger.Info("answers applied",
		"project_id", projectID,
		"resolved", len(selectIDs),
		"unmatched", len(unmatched),
		"missing", len(result.MissingIDs))
	c.JSON(http.StatusOK, ApplyAnswersResponse{
		Matches:   matches,
		Unmatched: unmatched,
		Result:    result,
	})
}

// HandleCatalogRefresh handles POST /v1/catalog/refresh. The catalog is
// invalidated and reloaded synchronously; the caller sees the new size.
func (h *Handlers) HandleCatalogRefresh(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.logger.With("request_id", requestID, "handler", "HandleCatalogRefresh")

	h.catalog.Invalidate()
	catalog, err := h.catalog.Get(c.Request.Context())
	if err != nil {
		logger.Error("catalog refresh failed", "error", err)
		h.writeUpstreamError(c, err)
		return
	}

	logger.Info("catalog refreshed", "size", len(catalog))
	c.JSON(http.StatusOK, CatalogRefreshResponse{CatalogSize: len(catalog)})
}

// HandleRules handles GET /v1/projects/:id/rules.
//
// Renders the project's countermeasures as a markdown security-rules
// document. An optional ?category= query filters to one keyword category
// (authentication, cryptography, authorization, container, cicd,
// input-validation).
func (h *Handlers) HandleRules(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.logger.With("request_id", requestID, "handler", "HandleRules")

	projectID, ok := projectIDParam(c)
	if !ok {
		return
	}

	category := c.Query("category")
	var keywords []string
	if category != "" {
		cat, ok := ruleCategories[category]
		if !ok {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error: "unknown rules category: " + category,
				Code:  "UNKNOWN_CATEGORY",
			})
			return
		}
		keywords = cat.Keywords
	}

	params := url.Values{"risk_relevant": []string{"true"}}
	tasks, err := h.api.ListTasksTyped(c.Request.Context(), projectID, params)
	if err != nil {
		logger.Error("listing countermeasures failed", "project_id", projectID, "error", err)
		h.writeUpstreamError(c, err)
		return
	}
	if keywords != nil {
		tasks = filterTasksByKeywords(tasks, keywords)
	}

	c.Data(http.StatusOK, "text/markdown; charset=utf-8",
		[]byte(renderRulesMarkdown(projectID, category, tasks)))
}

// =============================================================================
// Platform Passthrough Endpoints
// =============================================================================

func (h *Handlers) HandleListProjects(c *gin.Context) {
	raw, err := h.api.ListProjects(c.Request.Context(), c.Request.URL.Query())
	h.respondRaw(c, raw, err)
}

func (h *Handlers) HandleGetProject(c *gin.Context) {
	projectID, ok := projectIDParam(c)
	if !ok {
		return
	}
	raw, err := h.api.GetProject(c.Request.Context(), projectID, c.Request.URL.Query())
	h.respondRaw(c, raw, err)
}

func (h *Handlers) HandleCreateProject(c *gin.Context) {
	var data map[string]any
	if err := c.ShouldBindJSON(&data); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "invalid request body: " + err.Error(),
			Code:  "INVALID_REQUEST",
		})
		return
	}
	raw, err := h.api.CreateProject(c.Request.Context(), data)
	h.respondRaw(c, raw, err)
}

func (h *Handlers) HandleGetProjectSurvey(c *gin.Context) {
	projectID, ok := projectIDParam(c)
	if !ok {
		return
	}
	raw, err := h.api.GetProjectSurvey(c.Request.Context(), projectID, c.Request.URL.Query())
	h.respondRaw(c, raw, err)
}

func (h *Handlers) HandleListApplications(c *gin.Context) {
	raw, err := h.api.ListApplications(c.Request.Context(), c.Request.URL.Query())
	h.respondRaw(c, raw, err)
}

func (h *Handlers) HandleListUsers(c *gin.Context) {
	raw, err := h.api.ListUsers(c.Request.Context(), c.Request.URL.Query())
	h.respondRaw(c, raw, err)
}

func (h *Handlers) HandleListProfiles(c *gin.Context) {
	raw, err := h.api.ListProfiles(c.Request.Context(), c.Request.URL.Query())
	h.respondRaw(c, raw, err)
}

func (h *Handlers) HandleListTasks(c *gin.Context) {
	projectID, ok := projectIDParam(c)
	if !ok {
		return
	}
	raw, err := h.api.ListTasks(c.Request.Context(), projectID, c.Request.URL.Query())
	h.respondRaw(c, raw, err)
}

func (h *Handlers) HandleGetTask(c *gin.Context) {
	projectID, ok := projectIDParam(c)
	if !ok {
		return
	}
	raw, err := h.api.GetTask(c.Request.Context(), projectID, c.Param("task_id"), c.Request.URL.Query())
	h.respondRaw(c, raw, err)
}

// =============================================================================
// Health
// =============================================================================

// HandleHealth handles GET /healthz. Liveness only: no upstream calls.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Service: "sdebridge"})
}

// =============================================================================
// Helpers
// =============================================================================

// projectIDParam parses the :id route parameter, writing a 400 on failure.
func projectIDParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "project id must be a positive integer",
			Code:  "INVALID_PROJECT_ID",
		})
		return 0, false
	}
	return id, true
}

// respondRaw relays an upstream JSON payload or maps the upstream error.
func (h *Handlers) respondRaw(c *gin.Context, raw json.RawMessage, err error) {
	if err != nil {
		h.writeUpstreamError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", raw)
}

// writeUpstreamError maps SD Elements client and engine errors to HTTP
// responses. Upstream auth failures are the bridge's misconfiguration, not
// the caller's, so they surface as 502 rather than 401.
func (h *Handlers) writeUpstreamError(c *gin.Context, err error) {
	var authErr *sdeapi.AuthError
	var notFoundErr *sdeapi.NotFoundError
	var apiErr *sdeapi.APIError
	var fetchErr *survey.FetchError

	switch {
	case errors.As(err, &authErr):
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Error: err.Error(),
			Code:  "UPSTREAM_AUTH_FAILED",
		})
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: err.Error(),
			Code:  "NOT_FOUND",
		})
	case errors.As(err, &fetchErr):
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Error: err.Error(),
			Code:  "FETCH_FAILED",
		})
	case errors.As(err, &apiErr):
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Error: err.Error(),
			Code:  "UPSTREAM_ERROR",
		})
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, ErrorResponse{
			Error: "request cancelled or timed out",
			Code:  "TIMEOUT",
		})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: err.Error(),
			Code:  "INTERNAL_ERROR",
		})
	}
}

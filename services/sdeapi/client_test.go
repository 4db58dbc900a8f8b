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
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_Get_SendsTokenAuth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Token test-key" {
			t.Errorf("Authorization = %q, want %q", got, "Token test-key")
		}
		if got := r.URL.Path; got != "/api/v2/projects/" {
			t.Errorf("path = %q, want /api/v2/projects/", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"results": []}`)
	}))
	defer server.Close()

	client := NewClientWithConfig(server.URL, "test-key", nil)
	if _, err := client.Get(context.Background(), "projects/", nil); err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
}

func TestClient_Get_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClientWithConfig(server.URL, "bad-key", nil)
	_, err := client.Get(context.Background(), "projects/", nil)

	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("error = %v, want *AuthError", err)
	}
}

func TestClient_Get_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClientWithConfig(server.URL, "test-key", nil)
	_, err := client.Get(context.Background(), "projects/999999/", nil)

	var nfErr *NotFoundError
	if !errors.As(err, &nfErr) {
		t.Fatalf("error = %v, want *NotFoundError", err)
	}
}

func TestClient_Get_ErrorDetailExtracted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"detail": "survey is locked"}`)
	}))
	defer server.Close()

	client := NewClientWithConfig(server.URL, "test-key", nil)
	_, err := client.Get(context.Background(), "projects/1/survey/", nil)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", apiErr.StatusCode)
	}
	if apiErr.Message != "survey is locked" {
		t.Errorf("message = %q, want the detail field", apiErr.Message)
	}
}

func TestClient_Get_HTMLResponseIsAuthError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body>Sign in</body></html>")
	}))
	defer server.Close()

	client := NewClientWithConfig(server.URL, "test-key", nil)
	_, err := client.Get(context.Background(), "projects/", nil)

	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("error = %v, want *AuthError for HTML response", err)
	}
}

func TestClient_GetSurveyDraft_DecodesAnswers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Path; got != "/api/v2/projects/42/survey/draft/" {
			t.Errorf("path = %q, want the draft endpoint", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"answers": [
			{"id": "A1", "question": "Q1", "text": "Python", "selected": true, "valid": true},
			{"id": "A2", "question": "Q1", "text": "Java", "selected": false, "valid": false}
		]}`)
	}))
	defer server.Close()

	client := NewClientWithConfig(server.URL, "test-key", nil)
	answers, err := client.GetSurveyDraft(context.Background(), 42)
	if err != nil {
		t.Fatalf("GetSurveyDraft returned error: %v", err)
	}
	if len(answers) != 2 {
		t.Fatalf("got %d answers, want 2", len(answers))
	}
	if answers[0].ID != "A1" || !answers[0].Selected || !answers[0].Valid {
		t.Errorf("answers[0] = %+v", answers[0])
	}
	if answers[1].Question != "Q1" || answers[1].Valid {
		t.Errorf("answers[1] = %+v", answers[1])
	}
}

func TestClient_SetDraftAnswer_PatchesSelected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("method = %q, want PATCH", r.Method)
		}
		if got := r.URL.Path; got != "/api/v2/projects/42/survey/draft/A21/" {
			t.Errorf("path = %q, want the per-answer draft endpoint", got)
		}
		var body map[string]bool
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("failed to decode body: %v", err)
		}
		if !body["selected"] {
			t.Errorf("body = %v, want selected=true", body)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id": "A21", "selected": true}`)
	}))
	defer server.Close()

	client := NewClientWithConfig(server.URL, "test-key", nil)
	if err := client.SetDraftAnswer(context.Background(), 42, "A21", true); err != nil {
		t.Fatalf("SetDraftAnswer returned error: %v", err)
	}
}

func TestClient_CommitSurveyDraft_PostsToDraft(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %q, want POST", r.Method)
		}
		if got := r.URL.Path; got != "/api/v2/projects/42/survey/draft/" {
			t.Errorf("path = %q, want the draft endpoint", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"survey_complete": true}`)
	}))
	defer server.Close()

	client := NewClientWithConfig(server.URL, "test-key", nil)
	if _, err := client.CommitSurveyDraft(context.Background(), 42); err != nil {
		t.Fatalf("CommitSurveyDraft returned error: %v", err)
	}
}

func TestClient_ListLibraryAnswers_FollowsPagination(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `{"next": "", "results": [{"id": "A3", "text": "Go"}]}`)
			return
		}
		if got := r.URL.Query().Get("page_size"); got != "1000" {
			t.Errorf("page_size = %q, want 1000", got)
		}
		fmt.Fprintf(w, `{"next": %q, "results": [
			{"id": "A1", "text": "Python", "display_text": "Languages"},
			{"id": "A2", "text": "Java", "display_text": "Languages"}
		]}`, server.URL+"/api/v2/library/answers/?page=2")
	}))
	defer server.Close()

	client := NewClientWithConfig(server.URL, "test-key", nil)
	answers, err := client.ListLibraryAnswers(context.Background())
	if err != nil {
		t.Fatalf("ListLibraryAnswers returned error: %v", err)
	}
	if len(answers) != 3 {
		t.Fatalf("got %d answers, want 3 across pages", len(answers))
	}
	if answers[2].ID != "A3" {
		t.Errorf("answers[2] = %+v, want A3 from page 2", answers[2])
	}
	if answers[0].DisplayText != "Languages" {
		t.Errorf("answers[0].DisplayText = %q", answers[0].DisplayText)
	}
}

func TestClient_GetTask_ExpandsShortID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Path; got != "/api/v2/projects/31244/tasks/31244-T536/" {
			t.Errorf("path = %q, want the full task id form", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id": "31244-T536"}`)
	}))
	defer server.Close()

	client := NewClientWithConfig(server.URL, "test-key", nil)
	if _, err := client.GetTask(context.Background(), 31244, "T536", nil); err != nil {
		t.Fatalf("GetTask returned error: %v", err)
	}
}

func TestClient_ExecuteCubeQuery_CachesJWT(t *testing.T) {
	tokenCalls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/v2/users/me/auth-token/":
			tokenCalls++
			fmt.Fprint(w, `{"token": "jwt-abc"}`)
		case "/cubejs-api/v1/load":
			if got := r.Header.Get("Authorization"); got != "Bearer jwt-abc" {
				t.Errorf("Authorization = %q, want Bearer jwt-abc", got)
			}
			if r.URL.Query().Get("query") == "" {
				t.Error("query parameter missing")
			}
			fmt.Fprint(w, `{"data": []}`)
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewClientWithConfig(server.URL, "test-key", nil)
	query := json.RawMessage(`{"schema": "application"}`)

	for i := 0; i < 3; i++ {
		if _, err := client.ExecuteCubeQuery(context.Background(), query); err != nil {
			t.Fatalf("ExecuteCubeQuery returned error: %v", err)
		}
	}
	if tokenCalls != 1 {
		t.Errorf("token fetches = %d, want 1 (JWT cached)", tokenCalls)
	}
}

func TestClient_CreateProject_RewritesIDAliases(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("failed to decode body: %v", err)
		}
		if _, ok := body["application_id"]; ok {
			t.Error("application_id alias not rewritten")
		}
		if body["application"] != float64(12) {
			t.Errorf("application = %v, want 12", body["application"])
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id": 99}`)
	}))
	defer server.Close()

	client := NewClientWithConfig(server.URL, "test-key", nil)
	_, err := client.CreateProject(context.Background(), map[string]any{
		"name":           "payments",
		"application_id": 12,
	})
	if err != nil {
		t.Fatalf("CreateProject returned error: %v", err)
	}
}

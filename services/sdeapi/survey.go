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
	"fmt"
	"net/url"
	"strconv"
)

// libraryPageSize is the page size used when walking the answer library.
// The library holds a few thousand records; large pages keep the walk to a
// handful of requests.
const libraryPageSize = 1000

// DraftAnswer is one answer row of a project's survey draft, as returned by
// the draft endpoint. Valid reflects whether the answer is currently legal
// to select and can change as other answers are (de)selected.
type DraftAnswer struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Text     string `json:"text"`
	Selected bool   `json:"selected"`
	Valid    bool   `json:"valid"`
}

// LibraryAnswer is one record of the global answer library.
type LibraryAnswer struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	DisplayText string `json:"display_text"`
	Section     string `json:"section"`
	IsActive    bool   `json:"is_active"`
}

// GetProjectSurvey returns the published survey state for a project.
func (c *Client) GetProjectSurvey(ctx context.Context, projectID int, params url.Values) (json.RawMessage, error) {
	return c.Get(ctx, fmt.Sprintf("projects/%d/survey/", projectID), params)
}

// GetSurveyDraft returns the ordered answers of the project's survey draft.
//
// The draft endpoint works for both unpublished and published surveys: for
// a published survey the draft reflects the published state and can be
// modified and committed again.
func (c *Client) GetSurveyDraft(ctx context.Context, projectID int) ([]DraftAnswer, error) {
	raw, err := c.Get(ctx, fmt.Sprintf("projects/%d/survey/draft/", projectID), nil)
	if err != nil {
		return nil, err
	}
	var draft struct {
		Answers []DraftAnswer `json:"answers"`
	}
	if err := json.Unmarshal(raw, &draft); err != nil {
		return nil, fmt.Errorf("sdeapi: decoding survey draft: %w", err)
	}
	return draft.Answers, nil
}

// SetDraftAnswer selects or deselects one answer in the project's draft.
// One call, one mutation; there is no batch endpoint.
func (c *Client) SetDraftAnswer(ctx context.Context, projectID int, answerID string, selected bool) error {
	endpoint := fmt.Sprintf("projects/%d/survey/draft/%s/", projectID, answerID)
	_, err := c.Patch(ctx, endpoint, map[string]bool{"selected": selected})
	return err
}

// CommitSurveyDraft publishes the project's draft, applying all staged
// selections.
func (c *Client) CommitSurveyDraft(ctx context.Context, projectID int) (json.RawMessage, error) {
	return c.Post(ctx, fmt.Sprintf("projects/%d/survey/draft/", projectID), map[string]any{})
}

// ListLibraryAnswers fetches the complete global answer library, walking
// every page and assembling one in-memory list.
func (c *Client) ListLibraryAnswers(ctx context.Context) ([]LibraryAnswer, error) {
	params := url.Values{"page_size": []string{strconv.Itoa(libraryPageSize)}}
	pages, err := c.getAllPages(ctx, "library/answers/", params)
	if err != nil {
		return nil, err
	}

	answers := make([]LibraryAnswer, 0, len(pages))
	for _, raw := range pages {
		var a LibraryAnswer
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, fmt.Errorf("sdeapi: decoding library answer: %w", err)
		}
		answers = append(answers, a)
	}
	return answers, nil
}

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
	"strings"
)

// Task is the subset of a countermeasure record needed for security-rules
// rendering. The full payload is much larger; everything else stays opaque.
type Task struct {
	ID       string `json:"id"`
	Slug     string `json:"slug"`
	Title    string `json:"title"`
	Text     string `json:"text"`
	Problem  string `json:"problem"`
	Status   string `json:"status"`
	Priority int    `json:"priority"`
}

// fullTaskID prefixes the project id when the caller passed the short form.
// Task ids on the wire are "31244-T536"; callers usually supply "T536".
func fullTaskID(projectID int, taskID string) string {
	prefix := fmt.Sprintf("%d-", projectID)
	if strings.HasPrefix(taskID, prefix) {
		return taskID
	}
	return prefix + taskID
}

// ListTasks lists a project's countermeasures (tasks).
func (c *Client) ListTasks(ctx context.Context, projectID int, params url.Values) (json.RawMessage, error) {
	return c.Get(ctx, fmt.Sprintf("projects/%d/tasks/", projectID), params)
}

// ListTasksTyped lists a project's tasks decoded into Task records,
// following pagination.
func (c *Client) ListTasksTyped(ctx context.Context, projectID int, params url.Values) ([]Task, error) {
	pages, err := c.getAllPages(ctx, fmt.Sprintf("projects/%d/tasks/", projectID), params)
	if err != nil {
		return nil, err
	}
	tasks := make([]Task, 0, len(pages))
	for _, raw := range pages {
		var t Task
		if err := json.Unmarshal(raw, &t); err != nil {
			return nil, fmt.Errorf("sdeapi: decoding task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// GetTask returns one task, accepting either the short ("T536") or full
// ("31244-T536") id form.
func (c *Client) GetTask(ctx context.Context, projectID int, taskID string, params url.Values) (json.RawMessage, error) {
	return c.Get(ctx, fmt.Sprintf("projects/%d/tasks/%s/", projectID, fullTaskID(projectID, taskID)), params)
}

// UpdateTask updates a task. The historical "notes" key is rewritten to the
// platform's "status_note".
func (c *Client) UpdateTask(ctx context.Context, projectID int, taskID string, data map[string]any) (json.RawMessage, error) {
	if v, ok := data["notes"]; ok {
		data["status_note"] = v
		delete(data, "notes")
	}
	return c.Patch(ctx, fmt.Sprintf("projects/%d/tasks/%s/", projectID, fullTaskID(projectID, taskID)), data)
}

// AddTaskNote appends a note to a task.
func (c *Client) AddTaskNote(ctx context.Context, projectID int, taskID, note string) (json.RawMessage, error) {
	endpoint := fmt.Sprintf("projects/%d/tasks/%s/notes/", projectID, fullTaskID(projectID, taskID))
	return c.Post(ctx, endpoint, map[string]string{"text": note})
}

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
	"fmt"
	"strings"

	"github.com/AleutianAI/sdebridge/services/sdeapi"
)

// ruleCategories maps a rules category slug to the keywords that select
// countermeasures for it. A countermeasure belongs to a category when any
// keyword appears in its title or body text.
var ruleCategories = map[string]struct {
	Title    string
	Keywords []string
}{
	"authentication": {
		Title:    "Authentication & Session Management",
		Keywords: []string{"password", "authentication", "session", "login", "account", "mfa", "credential"},
	},
	"cryptography": {
		Title:    "Cryptography",
		Keywords: []string{"encrypt", "decrypt", "tls", "ssl", "crypto", "random", "certificate", "key"},
	},
	"authorization": {
		Title:    "Authorization & Access Control",
		Keywords: []string{"authorization", "access", "permission", "rbac", "idor", "api"},
	},
	"container": {
		Title:    "Container Security",
		Keywords: []string{"docker", "container", "kubernetes", "image", "registry"},
	},
	"cicd": {
		Title:    "CI/CD & Supply Chain",
		Keywords: []string{"pipeline", "cicd", "github", "gitlab", "dependency", "artifact", "supply"},
	},
	"input-validation": {
		Title:    "Input Validation & Injection Prevention",
		Keywords: []string{"input", "validation", "ssrf", "injection", "sanitize", "xss", "sql"},
	},
}

// filterTasksByKeywords keeps tasks whose title or body contains any of the
// keywords, case-insensitively.
func filterTasksByKeywords(tasks []sdeapi.Task, keywords []string) []sdeapi.Task {
	filtered := make([]sdeapi.Task, 0, len(tasks))
	for _, t := range tasks {
		title := strings.ToLower(t.Title)
		text := strings.ToLower(t.Text)
		for _, kw := range keywords {
			if strings.Contains(title, kw) || strings.Contains(text, kw) {
				filtered = append(filtered, t)
				break
			}
		}
	}
	return filtered
}

// renderRulesMarkdown renders a project's countermeasures as a security-rules
// markdown document suitable for feeding into coding assistants.
func renderRulesMarkdown(projectID int, category string, tasks []sdeapi.Task) string {
	var b strings.Builder

	if category == "" {
		fmt.Fprintf(&b, "# SD Elements Security Rules - All\n\n")
		fmt.Fprintf(&b, "**Project ID**: %d\n\n", projectID)
		b.WriteString("This document contains all security rules and guidelines from SD Elements.\n")
		b.WriteString("When implementing security features, always reference the SD Elements task ID.\n\n---\n")
	} else {
		title := ruleCategories[category].Title
		fmt.Fprintf(&b, "# SD Elements Security Rules - %s\n\n", title)
		fmt.Fprintf(&b, "**Project ID**: %d\n", projectID)
		fmt.Fprintf(&b, "**Category**: %s\n", title)
		fmt.Fprintf(&b, "**Rules Found**: %d\n\n", len(tasks))
		fmt.Fprintf(&b, "This document contains security rules related to %s.\n\n---\n", strings.ToLower(title))
	}

	for _, t := range tasks {
		slug := t.Slug
		if slug == "" {
			slug = t.ID
		}
		fmt.Fprintf(&b, "\n## %s: %s\n\n", slug, t.Title)
		fmt.Fprintf(&b, "**SD Elements Task**: %s\n", slug)
		fmt.Fprintf(&b, "**Problem**: %s\n\n", t.Problem)
		fmt.Fprintf(&b, "### Description\n%s\n\n", t.Text)
		fmt.Fprintf(&b, "### Implementation Note\nWhen implementing this control, reference SD Elements Task %s in your code comments and documentation.\n\n---\n", slug)
	}

	if len(tasks) == 0 {
		b.WriteString("\n*No rules found for this category in the current project.*\n")
	}
	return b.String()
}

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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/AleutianAI/sdebridge/services/survey"
)

// =============================================================================
// Prometheus Metrics for the HTTP Bridge
// =============================================================================

var (
	// matchTotal counts text resolutions by match type.
	// Labels: match_type (exact, substring, fuzzy, none)
	matchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sdebridge",
		Subsystem: "bridge",
		Name:      "resolve_matches_total",
		Help:      "Free-text resolutions by match type",
	}, []string{"match_type"})

	// requestDuration measures handler latency by route and status.
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sdebridge",
		Subsystem: "bridge",
		Name:      "request_duration_seconds",
		Help:      "HTTP handler latency by route and status",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
	}, []string{"route", "status"})
)

// recordMatches feeds the match-type counter from one resolution pass.
func recordMatches(matches map[string]survey.MatchResult) {
	for _, m := range matches {
		matchTotal.WithLabelValues(string(m.MatchType)).Inc()
	}
}

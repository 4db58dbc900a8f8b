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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Prometheus Metrics for the Reconciliation Engine
// =============================================================================

var (
	// reconcileTotal counts Reconcile calls by outcome.
	// Labels: outcome (converged, partial, fetch_failed)
	reconcileTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sdebridge",
		Subsystem: "survey",
		Name:      "reconcile_total",
		Help:      "Total reconciliation calls by outcome",
	}, []string{"outcome"})

	// reconcileDuration measures end-to-end reconciliation latency.
	reconcileDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "sdebridge",
		Subsystem: "survey",
		Name:      "reconcile_duration_seconds",
		Help:      "End-to-end reconciliation latency",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
	})

	// itemErrorTotal counts per-item reconciliation failures by reason.
	// Labels: reason (not_found, dependencies_unresolved, mutation_failed, ...)
	itemErrorTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sdebridge",
		Subsystem: "survey",
		Name:      "item_errors_total",
		Help:      "Per-item reconciliation failures by reason",
	}, []string{"reason"})

	// mutationDuration measures single select/deselect mutation latency.
	mutationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "sdebridge",
		Subsystem: "survey",
		Name:      "mutation_duration_seconds",
		Help:      "Single draft answer mutation latency",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	})

	// dependencyActivations counts sibling answers activated by the
	// dependency resolver while unblocking targets.
	dependencyActivations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sdebridge",
		Subsystem: "survey",
		Name:      "dependency_activations_total",
		Help:      "Prerequisite sibling answers activated during dependency resolution",
	})

	// commitTotal counts draft publish attempts by status.
	// Labels: status (ok, error)
	commitTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sdebridge",
		Subsystem: "survey",
		Name:      "commit_total",
		Help:      "Draft publish attempts by status",
	}, []string{"status"})

	// catalogSize tracks the number of library answers currently cached.
	catalogSize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "sdebridge",
		Subsystem: "survey",
		Name:      "catalog_size",
		Help:      "Library answers currently held by the catalog cache",
	})

	// catalogLoadDuration measures full catalog load latency.
	catalogLoadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "sdebridge",
		Subsystem: "survey",
		Name:      "catalog_load_duration_seconds",
		Help:      "Full library catalog load latency",
		Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
	})
)

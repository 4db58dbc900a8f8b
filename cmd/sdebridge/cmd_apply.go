// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/sdebridge/services/sdeapi"
	"github.com/AleutianAI/sdebridge/services/survey"
)

var (
	applyProject  int
	applySelect   []string
	applyDeselect []string
	applyCommit   bool
	applyFile     string
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Reconcile a project survey draft toward a target selection set",
	Long: `Drives the remote survey draft of one project toward the given
selection set. Deselections run first, then selections in the given order
with same-question prerequisites activated automatically. The result JSON
reports missing ids and per-item errors; check those even on exit code 0.

The request can also be read from a JSON file:

  sdebridge apply --project 42 --file request.json`,
	Run: runApplyCommand,
}

func init() {
	applyCmd.Flags().IntVar(&applyProject, "project", 0, "Project id (required)")
	applyCmd.Flags().StringSliceVar(&applySelect, "select", nil, "Answer ids to select, in order")
	applyCmd.Flags().StringSliceVar(&applyDeselect, "deselect", nil, "Answer ids to deselect")
	applyCmd.Flags().BoolVar(&applyCommit, "commit", false, "Publish the draft after reconciling")
	applyCmd.Flags().StringVar(&applyFile, "file", "", "Read a reconciliation request from a JSON file")
	applyCmd.MarkFlagRequired("project")
}

func runApplyCommand(_ *cobra.Command, _ []string) {
	req := survey.ReconciliationRequest{
		SelectIDs:   applySelect,
		DeselectIDs: applyDeselect,
		Commit:      applyCommit,
	}
	if applyFile != "" {
		data, err := os.ReadFile(applyFile)
		if err != nil {
			slog.Error("Reading request file failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		if err := json.Unmarshal(data, &req); err != nil {
			slog.Error("Request file is not a valid reconciliation request",
				slog.String("file", applyFile),
				slog.String("error", err.Error()))
			os.Exit(1)
		}
	}
	if len(req.SelectIDs) == 0 && len(req.DeselectIDs) == 0 && !req.Commit {
		slog.Error("Nothing to do: no selections, deselections, or commit requested")
		os.Exit(1)
	}

	client, err := sdeapi.NewClientFromEnv()
	if err != nil {
		slog.Error("SD Elements client unavailable", slog.String("error", err.Error()))
		os.Exit(1)
	}

	accessor := survey.NewRemoteAccessor(client)
	engine := survey.NewReconciler(accessor, accessor, slog.Default())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	result, err := engine.Reconcile(ctx, applyProject, req)
	if err != nil {
		slog.Error("Reconciliation failed",
			slog.Int("project_id", applyProject),
			slog.String("error", err.Error()))
		os.Exit(1)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		slog.Error("Encoding result failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	fmt.Println(string(out))

	if len(result.MissingIDs) > 0 || len(result.PerItemErrors) > 0 {
		os.Exit(2)
	}
}

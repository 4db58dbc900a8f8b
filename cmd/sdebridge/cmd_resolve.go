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
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/sdebridge/services/sdeapi"
	"github.com/AleutianAI/sdebridge/services/survey"
)

var resolveThreshold float64

var resolveCmd = &cobra.Command{
	Use:   "resolve <text> [text...]",
	Short: "Resolve free-text answers to library answer ids",
	Long: `Resolves free-text answer strings against the SD Elements answer
library and prints the matched ids. Matching is tiered: exact, substring,
then fuzzy at the given threshold.`,
	Args: cobra.MinimumNArgs(1),
	Run:  runResolveCommand,
}

func init() {
	resolveCmd.Flags().Float64Var(&resolveThreshold, "threshold", survey.DefaultMatchThreshold,
		"Minimum fuzzy-match similarity (0,1]")
}

func runResolveCommand(_ *cobra.Command, args []string) {
	client, err := sdeapi.NewClientFromEnv()
	if err != nil {
		slog.Error("SD Elements client unavailable", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	remote, err := client.ListLibraryAnswers(ctx)
	if err != nil {
		slog.Error("Loading answer library failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	catalog := make([]survey.LibraryAnswer, 0, len(remote))
	for _, a := range remote {
		catalog = append(catalog, survey.LibraryAnswer{
			ID:              a.ID,
			Text:            a.Text,
			DisplayQuestion: a.DisplayText,
			Section:         a.Section,
		})
	}

	matches := survey.Resolve(args, catalog, resolveThreshold)

	for _, query := range args {
		m := matches[query]
		if m.MatchedAnswer == nil {
			fmt.Printf("%-30q  no match\n", query)
			continue
		}
		fmt.Printf("%-30q  %s  (%s, similarity %.2f)  %s\n",
			query, m.MatchedAnswer.ID, m.MatchType, m.Similarity, m.MatchedAnswer.Text)
	}
}

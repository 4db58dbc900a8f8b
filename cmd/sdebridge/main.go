// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command sdebridge bridges SD Elements project surveys to automation.
//
// It exposes the survey reconciliation engine over HTTP and as one-shot CLI
// commands:
//   - serve: start the HTTP bridge service
//   - resolve: resolve free-text answers to library answer ids
//   - apply: reconcile a project draft toward a target selection set
//
// Usage:
//
//	SDE_HOST=https://sde.example.com SDE_API_KEY=... sdebridge serve
//	sdebridge resolve "python" "postgre sql"
//	sdebridge apply --project 42 --select A21,A35 --commit
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "sdebridge",
	Short: "SD Elements survey reconciliation bridge",
	Long: `sdebridge drives SD Elements project survey drafts toward a target
selection set: free text is resolved to canonical answer ids against the
answer library, unmet same-question prerequisites are activated, and
convergence is verified from the remote draft itself.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging(verbose)
	},
}

// setupLogging installs the process-wide slog handler: human-readable text
// on a terminal, JSON when the output is piped or redirected.
func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func main() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(applyCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

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
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/AleutianAI/sdebridge/services/bridge"
	"github.com/AleutianAI/sdebridge/services/sdeapi"
	"github.com/AleutianAI/sdebridge/services/survey"
)

var serveDebug bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP bridge service",
	Long: `Starts the sdebridge HTTP service.

Configuration comes from the environment:

  SDE_HOST                  SD Elements base URL (required)
  SDE_API_KEY               API key (or /run/secrets/sde_api_key)
  SDEBRIDGE_PORT            Listen port (default 8085)
  SDE_TIMEOUT_SECONDS       Outbound request timeout (default 30)
  CATALOG_CACHE_DIR         BadgerDB dir for the catalog snapshot (optional)
  CATALOG_REFRESH_INTERVAL  Background catalog refresh period (default 1h)`,
	Run: runServeCommand,
}

func init() {
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable Gin debug mode")
}

func runServeCommand(_ *cobra.Command, _ []string) {
	cfg, err := bridge.LoadConfigFromEnv()
	if err != nil {
		slog.Error("Configuration invalid", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if serveDebug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// W3C TraceContext propagation so upstream callers can correlate their
	// traces with bridge spans.
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	client := sdeapi.NewClientWithConfig(cfg.SDEHost, cfg.SDEAPIKey, &http.Client{Timeout: cfg.Timeout})

	// Catalog snapshot store. Graceful degradation: if BadgerDB can't be
	// opened the cache just cold-starts from the remote library.
	var store *survey.CatalogStore
	if cfg.CatalogCacheDir != "" {
		store, err = survey.OpenCatalogStore(cfg.CatalogCacheDir, slog.Default())
		if err != nil {
			slog.Warn("Catalog snapshot store unavailable, persistence disabled",
				slog.String("path", cfg.CatalogCacheDir),
				slog.String("error", err.Error()))
			store = nil
		} else {
			slog.Info("Catalog snapshot store opened", slog.String("path", cfg.CatalogCacheDir))
		}
	}

	catalog := survey.NewCatalogCache(catalogLoader(client), store, slog.Default())
	accessor := survey.NewRemoteAccessor(client)
	engine := survey.NewReconciler(accessor, accessor, slog.Default())
	handlers := bridge.NewHandlers(client, engine, catalog, slog.Default())

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("sdebridge"))
	router.Use(bridge.RequestIDMiddleware())
	router.Use(bridge.MetricsMiddleware())
	if serveDebug {
		router.Use(gin.Logger())
	}

	router.GET("/healthz", handlers.HandleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	bridge.RegisterRoutes(v1, handlers)

	refreshCtx, cancelRefresh := context.WithCancel(context.Background())
	defer cancelRefresh()
	if cfg.CatalogRefreshInterval > 0 {
		catalog.StartRefresh(refreshCtx, cfg.CatalogRefreshInterval)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		slog.Info("Shutting down sdebridge server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("Server shutdown not clean", slog.String("error", err.Error()))
		}
	}()

	slog.Info("Starting sdebridge server",
		slog.String("address", srv.Addr),
		slog.String("sde_host", cfg.SDEHost))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Failed to start server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Cleanup runs on the main goroutine after the listener has drained, so
	// the process cannot exit mid-close.
	cancelRefresh()
	if store != nil {
		if err := store.Close(); err != nil {
			slog.Warn("Failed to close catalog snapshot store", slog.String("error", err.Error()))
		}
	}
}

// catalogLoader adapts the SD Elements library listing to the engine's
// catalog record type.
func catalogLoader(client *sdeapi.Client) survey.CatalogLoader {
	return func(ctx context.Context) ([]survey.LibraryAnswer, error) {
		remote, err := client.ListLibraryAnswers(ctx)
		if err != nil {
			return nil, err
		}
		answers := make([]survey.LibraryAnswer, 0, len(remote))
		for _, a := range remote {
			answers = append(answers, survey.LibraryAnswer{
				ID:              a.ID,
				Text:            a.Text,
				DisplayQuestion: a.DisplayText,
				Section:         a.Section,
			})
		}
		return answers, nil
	}
}

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
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all bridge routes with the router.
//
// Description:
//
//	Registers every /v1/* endpoint with the given Gin router group. The
//	router group should already have any required middleware applied.
//
// Inputs:
//
//	rg - Gin router group (typically /v1)
//	handlers - The handlers instance
//
// Survey Endpoints:
//
//	POST /v1/projects/:id/survey/reconcile - Drive the draft toward a target selection set
//	POST /v1/projects/:id/survey/answers - Resolve free text and reconcile in one call
//	POST /v1/answers/resolve - Resolve free text against the answer catalog
//	POST /v1/catalog/refresh - Invalidate and reload the catalog cache
//	GET  /v1/projects/:id/survey - Published survey state (passthrough)
//
// Rules Endpoints:
//
//	GET  /v1/projects/:id/rules - Countermeasures as a markdown rules document
//
// Platform Passthrough Endpoints:
//
//	GET  /v1/projects - List projects
//	POST /v1/projects - Create a project
//	GET  /v1/projects/:id - Get a project
//	GET  /v1/projects/:id/tasks - List countermeasures
//	GET  /v1/projects/:id/tasks/:task_id - Get a countermeasure
//	GET  /v1/applications - List applications
//	GET  /v1/users - List users
//	GET  /v1/profiles - List project profiles
//
// Example:
//
//	handlers := bridge.NewHandlers(client, engine, catalog, logger)
//
//	v1 := router.Group("/v1")
//	bridge.RegisterRoutes(v1, handlers)
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	projects := rg.Group("/projects")
	{
		projects.GET("", handlers.HandleListProjects)
		projects.POST("", handlers.HandleCreateProject)
		projects.GET("/:id", handlers.HandleGetProject)

		projects.GET("/:id/survey", handlers.HandleGetProjectSurvey)
		projects.POST("/:id/survey/reconcile", handlers.HandleReconcile)
		projects.POST("/:id/survey/answers", handlers.HandleApplyAnswers)

		projects.GET("/:id/rules", handlers.HandleRules)

		projects.GET("/:id/tasks", handlers.HandleListTasks)
		projects.GET("/:id/tasks/:task_id", handlers.HandleGetTask)
	}

	rg.POST("/answers/resolve", handlers.HandleResolve)
	rg.POST("/catalog/refresh", handlers.HandleCatalogRefresh)

	rg.GET("/applications", handlers.HandleListApplications)
	rg.GET("/users", handlers.HandleListUsers)
	rg.GET("/profiles", handlers.HandleListProfiles)
}

package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/noah-isme/sma-admissions-api/internal/handler"
)

// handlers groups everything the router mounts.
type handlers struct {
	stages      *handler.StageHandler
	slots       *handler.SlotHandler
	schoolPools *handler.SchoolPoolHandler
	tests       *handler.CompetencyTestHandler
	visits      *handler.SchoolVisitHandler
	tasks       *handler.TaskHandler
	metrics     *handler.MetricsHandler
}

func registerRoutes(r *gin.Engine, prefix string, h handlers, docs bool) {
	r.GET("/health", h.metrics.Health)
	r.GET("/ready", h.metrics.Ready)
	r.GET("/metrics", h.metrics.Prometheus)
	r.GET("/metrics/summary", h.metrics.Summary)
	if docs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(prefix)

	enquiries := api.Group("/enquiries/:id")
	enquiries.POST("/stages/move", h.stages.Move)
	enquiries.PATCH("/stages", h.stages.SetStatus)

	test := enquiries.Group("/competency-test")
	test.POST("", h.tests.Schedule)
	test.GET("", h.tests.Get)
	test.POST("/cancel", h.tests.Cancel)
	test.POST("/reschedule", h.tests.Reschedule)
	test.POST("/result", h.tests.Result)

	visit := enquiries.Group("/school-visit")
	visit.POST("", h.visits.Schedule)
	visit.GET("", h.visits.Get)
	visit.POST("/cancel", h.visits.Cancel)
	visit.POST("/reschedule", h.visits.Reschedule)
	visit.POST("/complete", h.visits.Complete)

	slots := api.Group("/slots")
	slots.GET("/available", h.slots.Available)
	slots.GET("/markable", h.slots.Markable)
	slots.POST("/unavailable", h.slots.AddUnavailable)

	api.GET("/schools/:schoolId/equivalent-schools", h.schoolPools.Get)
	api.DELETE("/schools/:schoolId/equivalent-schools", h.schoolPools.Invalidate)

	api.GET("/tasks", h.tasks.List)
	api.POST("/tasks/:id/close", h.tasks.Close)
}

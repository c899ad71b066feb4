package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/course-enrollment-api/internal/handler"
	"github.com/noah-isme/course-enrollment-api/internal/middleware"
	"github.com/noah-isme/course-enrollment-api/internal/service"
	"github.com/noah-isme/course-enrollment-api/pkg/config"
	"github.com/noah-isme/course-enrollment-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/course-enrollment-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/course-enrollment-api/pkg/middleware/requestid"
)

type routeDeps struct {
	tokens      middleware.TokenValidator
	metrics     *service.MetricsService
	enrollments *handler.EnrollmentHandler
	projects    *handler.ProjectHandler
	health      *handler.HealthHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, deps routeDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.metrics))

	r.GET("/health", deps.health.Health)
	r.GET("/ready", deps.health.Ready)
	r.GET("/metrics", gin.WrapH(deps.metrics.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(deps.tokens))
	manage := middleware.RequireManager()

	enrollments := api.Group("/enrollments")
	enrollments.GET("", deps.enrollments.List)
	enrollments.POST("", manage, deps.enrollments.Create)
	enrollments.GET("/lookup", deps.enrollments.Lookup)
	enrollments.GET("/projects/:projectId/history", manage, deps.enrollments.History)
	enrollments.GET("/:id", deps.enrollments.Get)
	enrollments.PUT("/:id", manage, deps.enrollments.UpdateAssignment)
	enrollments.DELETE("/:id", manage, deps.enrollments.Delete)
	enrollments.PUT("/:id/project", manage, deps.enrollments.AssignProject)
	enrollments.POST("/:id/restore", manage, deps.enrollments.Restore)
	enrollments.POST("/:id/remove-from-project", manage, deps.enrollments.RemoveFromProject)
	enrollments.POST("/:id/restore-to-project", manage, deps.enrollments.RestoreToProject)

	api.GET("/courses/:id/projects", deps.projects.ListByCourse)

	projects := api.Group("/projects")
	projects.GET("/:id", deps.projects.Get)
	projects.GET("/:id/members/count", deps.projects.Members)
	projects.PUT("/:id/course", manage, deps.projects.ChangeCourse)
	projects.DELETE("/:id", manage, deps.projects.Delete)
	projects.POST("/:id/restore", manage, deps.projects.Restore)

	return r
}

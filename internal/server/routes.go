package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/OFFIS-RIT/parversion/internal/server/middleware"
	"github.com/OFFIS-RIT/parversion/internal/server/routes"
)

func RegisterRoutes(e *echo.Echo, registry *prometheus.Registry) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	apiRoutes := e.Group("/api", middleware.AuthMiddleware)

	apiRoutes.POST("/analyze", routes.AnalyzeHandler, middleware.RequirePermission("document.analyze"))

	// Job routes
	apiRoutes.POST("/jobs", routes.CreateJobHandler, middleware.RequirePermission("job.create"))
	apiRoutes.GET("/jobs/:id/result", routes.GetJobResultHandler, middleware.RequirePermission("job.view"))
	apiRoutes.DELETE("/jobs/:id", routes.DeleteJobHandler, middleware.RequirePermission("job.delete"))
}

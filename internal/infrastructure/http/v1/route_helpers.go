package v1

import (
	"github.com/gin-gonic/gin"
)

// ReportRouteHandler defines the endpoints a report handler serves.
type ReportRouteHandler interface {
	List(c *gin.Context)
	Run(c *gin.Context)
}

// RegisterReportRoutes registers the catalog listing and the run endpoint.
//
// Usage:
//
//	handler := handlers.NewReportsHandler(baseHandler, service)
//	RegisterReportRoutes(v1.Group("/reports"), handler)
func RegisterReportRoutes(group *gin.RouterGroup, handler ReportRouteHandler) {
	group.GET("", handler.List)
	group.GET("/:name", handler.Run)
}

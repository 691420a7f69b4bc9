package api

import (
	"github.com/gin-gonic/gin"

	"github.com/taskhive/taskhive/internal/handlers"
	"github.com/taskhive/taskhive/internal/middleware"
)

func registerAuditRoutes(api *gin.RouterGroup, handler *handlers.AuditHandler) {
	audit := api.Group("/audit")
	{
		audit.GET("", middleware.RequireAdmin(), handler.List)
		audit.GET("/task/:taskId", handler.FindByTask)
		audit.POST("/viewed", middleware.RequireAdmin(), handler.MarkViewed)
	}
}

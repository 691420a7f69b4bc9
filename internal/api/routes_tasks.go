package api

import (
	"github.com/gin-gonic/gin"

	"github.com/taskhive/taskhive/internal/handlers"
)

func registerTaskRoutes(api *gin.RouterGroup, handler *handlers.TaskHandler) {
	tasks := api.Group("/tasks")
	{
		tasks.POST("", handler.Create)
		tasks.GET("", handler.List)
		tasks.GET("/:id", handler.Get)
		tasks.PATCH("/:id", handler.Update)
		tasks.PATCH("/:id/toggle", handler.Toggle)
		tasks.DELETE("/:id", handler.Delete)
	}
}

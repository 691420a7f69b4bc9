package api

import (
	"github.com/gin-gonic/gin"

	"github.com/taskhive/taskhive/internal/handlers"
	"github.com/taskhive/taskhive/internal/middleware"
)

func registerUserRoutes(api *gin.RouterGroup, handler *handlers.UserHandler) {
	users := api.Group("/users")
	{
		users.GET("", middleware.RequireAdmin(), handler.List)
		users.POST("", middleware.RequireAdmin(), handler.Create)
		users.GET("/:id", handler.Get)
		users.PATCH("/:id", handler.Update)
		users.DELETE("/:id", middleware.RequireAdmin(), handler.Delete)
	}
}

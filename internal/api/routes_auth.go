package api

import (
	"github.com/gin-gonic/gin"

	iauth "github.com/taskhive/taskhive/internal/auth"
	"github.com/taskhive/taskhive/internal/handlers"
	"github.com/taskhive/taskhive/internal/middleware"
)

func registerAuthRoutes(r *gin.Engine, handler *handlers.AuthHandler, jwt *iauth.JWTService) {
	auth := r.Group("/api/auth")
	{
		auth.POST("/register", handler.Register)
		auth.POST("/login", handler.Login)
		auth.GET("/me", middleware.Auth(jwt), handler.Me)
	}
}

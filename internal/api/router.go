package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	iauth "github.com/taskhive/taskhive/internal/auth"
	"github.com/taskhive/taskhive/internal/handlers"
	"github.com/taskhive/taskhive/internal/middleware"
	"github.com/taskhive/taskhive/internal/services"
)

// Deps bundles the constructed services the router mounts handlers over.
type Deps struct {
	DB    *gorm.DB
	JWT   *iauth.JWTService
	Tasks *services.TaskService
	Audit *services.AuditService
	Users *services.UserService
}

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(deps Deps) (*gin.Engine, error) {
	if deps.DB == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if deps.JWT == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if deps.Tasks == nil || deps.Audit == nil || deps.Users == nil {
		return nil, fmt.Errorf("services must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())

	// Public endpoints
	r.GET("/health", handlers.Health(deps.DB))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authHandler := handlers.NewAuthHandler(deps.Users, deps.JWT)
	registerAuthRoutes(r, authHandler, deps.JWT)

	// Protected routes
	api := r.Group("/api")
	api.Use(middleware.Auth(deps.JWT))

	registerTaskRoutes(api, handlers.NewTaskHandler(deps.Tasks))
	registerAuditRoutes(api, handlers.NewAuditHandler(deps.Audit, deps.Tasks))
	registerUserRoutes(api, handlers.NewUserHandler(deps.Users))

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}

package router

import (
	"github.com/Payphone-Digital/accounts/config"
	"github.com/Payphone-Digital/accounts/internal/handler"
	"github.com/Payphone-Digital/accounts/internal/middleware"
	"github.com/Payphone-Digital/accounts/pkg/metrics"
	"github.com/gin-gonic/gin"
)

type Router struct {
	userHandler   *handler.UserHandler
	authHandler   *handler.AuthHandler
	healthHandler *handler.HealthHandler

	jwtMw   *middleware.JWTMiddleware
	metrics *metrics.Metrics
	Config  *config.Config
}

func NewRouter(
	user *handler.UserHandler,
	auth *handler.AuthHandler,
	health *handler.HealthHandler,

	jwtMw *middleware.JWTMiddleware,
	m *metrics.Metrics,
	config *config.Config,
) *Router {
	return &Router{
		userHandler:   user,
		authHandler:   auth,
		healthHandler: health,

		jwtMw:   jwtMw,
		metrics: m,
		Config:  config,
	}
}

func (r *Router) SetupRoutes() *gin.Engine {
	router := gin.New()
	if r.Config.Upload.MaxFileSize > 0 {
		router.MaxMultipartMemory = r.Config.Upload.MaxFileSize
	}

	router.Use(middleware.RecoveryMiddleware())
	router.Use(middleware.ContextMiddleware("http", r.Config.App.Timeout))
	router.Use(middleware.LoggingMiddleware(r.metrics))
	router.Use(middleware.CORS(r.Config.App.CORSOrigin))

	router.GET("/metrics", gin.WrapH(r.metrics.Handler()))

	api := router.Group("/api")
	{
		api.GET("/health", r.healthHandler.HealthCheck)

		v1 := api.Group("/v1")
		{
			users := v1.Group("/users")
			r.authRoutes(users)
			r.userRoutes(users)
		}
	}

	return router
}

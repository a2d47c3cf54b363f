package router

import "github.com/gin-gonic/gin"

func (r *Router) authRoutes(users *gin.RouterGroup) {
	// Public routes
	users.POST("/register", r.authHandler.Register)
	users.POST("/login", r.authHandler.Login)
	users.POST("/refresh-token", r.authHandler.RefreshToken)

	protected := users.Group("")
	protected.Use(r.jwtMw.RequireAuth())
	{
		protected.POST("/logout", r.authHandler.Logout)
	}
}

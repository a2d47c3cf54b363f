package router

import "github.com/gin-gonic/gin"

func (r *Router) userRoutes(users *gin.RouterGroup) {
	protected := users.Group("")
	protected.Use(r.jwtMw.RequireAuth())
	{
		protected.GET("/current-user", r.userHandler.CurrentUser)
		protected.PATCH("/update-account", r.userHandler.UpdateAccount)
		protected.POST("/change-password", r.userHandler.ChangePassword)

		// multipart, field "avatar" / "coverImage"
		protected.PATCH("/avatar", r.userHandler.UpdateAvatar)
		protected.PATCH("/cover-image", r.userHandler.UpdateCoverImage)
	}
}

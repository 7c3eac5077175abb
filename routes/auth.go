package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/koulibalyamadou10/braprime-backend/auth"
)

// SetupAuthRoutes registers all "/auth/*" endpoints. Customer sign-in
// lives with the external identity provider; only guest identities are
// minted here.
func SetupAuthRoutes(r *gin.Engine) {
	authGroup := r.Group("/auth")
	{
		authGroup.POST("/guest", auth.CreateGuestUser())
	}
}

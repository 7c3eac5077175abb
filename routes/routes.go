package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/koulibalyamadou10/braprime-backend/lifecycle"
	"github.com/koulibalyamadou10/braprime-backend/notifier"
	"gorm.io/gorm"
)

// SetupRoutes is the single entry-point that wires up Auth, User,
// Guest, Order and Admin route groups.
func SetupRoutes(r *gin.Engine, db *gorm.DB, bus notifier.Bus, co *lifecycle.Coordinator) {
	// Public auth routes (no middleware)
	SetupAuthRoutes(r)

	// User routes (JWT-protected)
	SetupUserRoutes(r, db, bus, co)

	// Guest buffer routes (guest-token protected)
	SetupGuestRoutes(r, db)

	// Admin routes (API-key protected)
	SetupAdminRoutes(r, db, bus)
}

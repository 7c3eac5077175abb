package routes

import (
	"github.com/gin-gonic/gin"
	cartControllers "github.com/koulibalyamadou10/braprime-backend/controllers/cart"
	orderControllers "github.com/koulibalyamadou10/braprime-backend/controllers/order"
	"github.com/koulibalyamadou10/braprime-backend/middleware"
	"github.com/koulibalyamadou10/braprime-backend/notifier"
	"gorm.io/gorm"
)

// SetupAdminRoutes registers the "/admin/*" back-office endpoints.
func SetupAdminRoutes(r *gin.Engine, db *gorm.DB, bus notifier.Bus) {
	adminGroup := r.Group("/admin")
	adminGroup.Use(middleware.ValidateAPIKey)
	{
		// Order management
		adminGroup.GET("/orders", orderControllers.GetAllOrdersHandler(db))                             // GET /admin/orders
		adminGroup.GET("/orders/export", orderControllers.ExportOrdersToExcel(db))                      // GET /admin/orders/export
		adminGroup.GET("/orders/ws", orderControllers.OrderWebSocketHandler(db, bus))                   // GET /admin/orders/ws
		adminGroup.PUT("/orders/:orderID/status", orderControllers.UpdateOrderStatusHandler(db, bus))   // PUT /admin/orders/:orderID/status
		adminGroup.PUT("/orders/:orderID/payment-status", orderControllers.UpdatePaymentStatusHandler(db, bus)) // PUT /admin/orders/:orderID/payment-status
		adminGroup.PUT("/orders/:orderID/driver", orderControllers.UpdateDriverHandler(db, bus))        // PUT /admin/orders/:orderID/driver

		// Support: inspect a customer's cart
		adminGroup.GET("/carts/:owner_id", cartControllers.GetAdminUserCart(db)) // GET /admin/carts/:owner_id
	}
}

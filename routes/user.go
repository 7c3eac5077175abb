package routes

import (
	"github.com/gin-gonic/gin"
	cartControllers "github.com/koulibalyamadou10/braprime-backend/controllers/cart"
	orderControllers "github.com/koulibalyamadou10/braprime-backend/controllers/order"
	"github.com/koulibalyamadou10/braprime-backend/lifecycle"
	"github.com/koulibalyamadou10/braprime-backend/middleware"
	"github.com/koulibalyamadou10/braprime-backend/notifier"
	"gorm.io/gorm"
)

// SetupUserRoutes registers all "/user/*" endpoints. Requires JWT middleware.
func SetupUserRoutes(r *gin.Engine, db *gorm.DB, bus notifier.Bus, co *lifecycle.Coordinator) {
	userGroup := r.Group("/user")
	userGroup.Use(middleware.ValidateToken)
	{
		// ──────────────── Shopping Cart ────────────────
		cartGroup := userGroup.Group("/cart")
		{
			cartGroup.GET("/", cartControllers.GetUserCart(db))                                  // GET /user/cart
			cartGroup.POST("/", cartControllers.CreateCartHandler(db, bus))                      // POST /user/cart
			cartGroup.POST("/items", cartControllers.AddItemHandler(db, bus))                    // POST /user/cart/items
			cartGroup.PATCH("/items/:item_id", cartControllers.UpdateItemQuantityHandler(db, bus)) // PATCH /user/cart/items/:item_id
			cartGroup.DELETE("/items/:item_id", cartControllers.RemoveItemHandler(db, bus))      // DELETE /user/cart/items/:item_id
			cartGroup.DELETE("/", cartControllers.ClearUserCart(db, bus))                        // DELETE /user/cart
			cartGroup.PUT("/delivery", cartControllers.UpdateDeliveryInfoHandler(db, bus))       // PUT /user/cart/delivery
			cartGroup.POST("/sync", cartControllers.SyncGuestCartHandler(db, bus))               // POST /user/cart/sync
		}

		// ──────────────── Orders ────────────────
		orderGroup := userGroup.Group("/orders")
		{
			orderGroup.POST("/", middleware.RequireRole(middleware.RoleCustomer),
				orderControllers.PlaceOrderHandler(db, bus)) // POST /user/orders
			orderGroup.GET("/", orderControllers.GetUserOrdersHandler(db))                // GET /user/orders
			orderGroup.GET("/:orderID", orderControllers.GetOrderByIDHandler(db))         // GET /user/orders/:orderID
			orderGroup.POST("/:orderID/cancel", orderControllers.CancelOrderHandler(db, bus)) // POST /user/orders/:orderID/cancel
		}

		// ──────────────── Live Feed ────────────────
		userGroup.GET("/feed/ws", cartControllers.CartFeedHandler(co)) // GET /user/feed/ws
	}
}

// SetupGuestRoutes registers the "/guest/*" buffer endpoints; guests
// authenticate with the short-lived token from /auth/guest.
func SetupGuestRoutes(r *gin.Engine, db *gorm.DB) {
	guestGroup := r.Group("/guest")
	guestGroup.Use(middleware.ValidateToken)
	{
		guestGroup.GET("/cart", cartControllers.GetGuestCart(db))             // GET /guest/cart
		guestGroup.POST("/cart/items", cartControllers.AddGuestItemHandler(db)) // POST /guest/cart/items
		guestGroup.DELETE("/cart", cartControllers.ClearGuestCart(db))        // DELETE /guest/cart
	}
}

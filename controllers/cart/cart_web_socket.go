package cartControllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/koulibalyamadou10/braprime-backend/lifecycle"
	"github.com/koulibalyamadou10/braprime-backend/middleware"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// GET /user/feed/ws
// Streams the owner's cart/order snapshot: once on connect, then again
// after every change event. The client never interprets events; it
// just renders whole snapshots.
func CartFeedHandler(co *lifecycle.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := middleware.Caller(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(c.Request.Context())
		defer cancel()

		snapshots, err := co.Watch(ctx, caller.OwnerID)
		if err != nil {
			return
		}

		// Drain the client side so closes are noticed
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					conn.Close()
					return
				}
			}
		}()

		for snap := range snapshots {
			if err := conn.WriteJSON(snap); err != nil {
				return
			}
		}
	}
}

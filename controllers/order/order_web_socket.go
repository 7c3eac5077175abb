package orderControllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/koulibalyamadou10/braprime-backend/models"
	"github.com/koulibalyamadou10/braprime-backend/notifier"
	"gorm.io/gorm"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// GET /admin/orders/ws
// Pushes the full order list to admin dashboards whenever any order
// changes. Events carry no payload; each one triggers a re-read.
func OrderWebSocketHandler(db *gorm.DB, bus notifier.Bus) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		events, cancel := bus.Subscribe(notifier.AdminOwner)
		defer cancel()

		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		if err := writeOrders(conn, db); err != nil {
			return
		}
		for {
			select {
			case <-done:
				return
			case _, ok := <-events:
				if !ok {
					return
				}
				if err := writeOrders(conn, db); err != nil {
					return
				}
			}
		}
	}
}

func writeOrders(conn *websocket.Conn, db *gorm.DB) error {
	var orders []models.Order
	if err := db.Order("created_at DESC").Limit(100).Find(&orders).Error; err != nil {
		return err
	}
	return conn.WriteJSON(orders)
}

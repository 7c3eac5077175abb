package orderControllers

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/koulibalyamadou10/braprime-backend/middleware"
	"github.com/koulibalyamadou10/braprime-backend/models"
	"github.com/koulibalyamadou10/braprime-backend/notifier"
	"gorm.io/gorm"
)

// TaxRate applies to every order subtotal.
const TaxRate = 0.18

const defaultDeliveryFee = 15000

var (
	ErrCartNotFound      = errors.New("cart not found")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrNoVendor          = errors.New("cart has no vendor")
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// EstimatedDeliveryIn yields the offset added to now for the estimated
// delivery time, uniform in [30, 45] minutes. Package variable so tests
// can pin it.
var EstimatedDeliveryIn = func() time.Duration {
	return time.Duration(30+rand.Intn(16)) * time.Minute
}

// -------- Request Structs --------

type PlaceOrderRequest struct {
	DeliveryAddress string `json:"delivery_address"`
	PaymentMethod   string `json:"payment_method"` // defaults to "cash"
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type UpdatePaymentStatusRequest struct {
	PaymentStatus string `json:"payment_status" binding:"required"`
}

type UpdateDriverRequest struct {
	DriverName     string `json:"driver_name" binding:"required"`
	DriverPhone    string `json:"driver_phone" binding:"required"`
	DriverLocation string `json:"driver_location"`
}

// -------- Helpers --------

// Map string to OrderStatus
func mapOrderStatus(status string) (models.OrderStatus, error) {
	switch strings.ToLower(status) {
	case string(models.OrderStatusPending):
		return models.OrderStatusPending, nil
	case string(models.OrderStatusConfirmed):
		return models.OrderStatusConfirmed, nil
	case string(models.OrderStatusPreparing):
		return models.OrderStatusPreparing, nil
	case string(models.OrderStatusReady):
		return models.OrderStatusReady, nil
	case string(models.OrderStatusPickedUp):
		return models.OrderStatusPickedUp, nil
	case string(models.OrderStatusDelivered):
		return models.OrderStatusDelivered, nil
	case string(models.OrderStatusCancelled):
		return models.OrderStatusCancelled, nil
	default:
		return "", errors.New("invalid order status")
	}
}

// Map string to PaymentStatus
func mapPaymentStatus(status string) (models.PaymentStatus, error) {
	switch strings.ToLower(status) {
	case string(models.PaymentStatusPending):
		return models.PaymentStatusPending, nil
	case string(models.PaymentStatusPaid):
		return models.PaymentStatusPaid, nil
	case string(models.PaymentStatusFailed):
		return models.PaymentStatusFailed, nil
	case string(models.PaymentStatusRefunded):
		return models.PaymentStatusRefunded, nil
	default:
		return "", errors.New("invalid payment status")
	}
}

// Generate unique order reference
func generateOrderRef() string {
	// Example: 20250908130500-<uuid4>
	return time.Now().Format("20060102150405") + "-" + uuid.NewString()
}

func deliveryFee() float64 {
	if raw := os.Getenv("DELIVERY_FEE"); raw != "" {
		if fee, err := strconv.ParseFloat(raw, 64); err == nil && fee >= 0 {
			return fee
		}
	}
	return defaultDeliveryFee
}

// -------- Core Logic --------

// PlaceOrder commits the owner's cart into an immutable order. The
// order row and the cart clear commit together; no caller can observe
// an order without its cart consumed, or the reverse.
func PlaceOrder(db *gorm.DB, bus notifier.Bus, ownerID string, req PlaceOrderRequest) (*models.Order, error) {
	var cart models.Cart
	if err := db.Preload("Items").Where("owner_id = ?", ownerID).First(&cart).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCartNotFound
		}
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, ErrEmptyCart
	}
	if cart.VendorID == "" || cart.VendorName == "" {
		return nil, ErrNoVendor
	}

	subtotal := cart.Subtotal()
	tax := subtotal * TaxRate
	fee := 0.0
	if cart.DeliveryMethod == models.DeliveryMethodDelivery {
		fee = deliveryFee()
	}

	address := req.DeliveryAddress
	if address == "" {
		address = cart.DeliveryAddress
	}
	paymentMethod := req.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = "cash"
	}

	// Value snapshot: the order never reads from the cart again.
	items := make([]models.OrderItem, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, models.OrderItem{
			ProductRef: item.ProductRef,
			Name:       item.Name,
			Price:      item.Price,
			Quantity:   item.Quantity,
			Image:      item.Image,
		})
	}

	order := models.Order{
		OrderRef:          generateOrderRef(),
		OwnerID:           ownerID,
		VendorID:          cart.VendorID,
		VendorName:        cart.VendorName,
		Items:             items,
		Status:            models.OrderStatusPending,
		Total:             subtotal,
		Tax:               tax,
		DeliveryFee:       fee,
		GrandTotal:        subtotal + tax + fee,
		DeliveryAddress:   address,
		DeliveryMethod:    cart.DeliveryMethod,
		EstimatedDelivery: time.Now().Add(EstimatedDeliveryIn()),
		PaymentMethod:     paymentMethod,
		PaymentStatus:     models.PaymentStatusPending,
		CreatedAt:         time.Now(),
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&order).Error; err != nil {
			return err
		}
		// Consume the cart
		if err := tx.Where("cart_id = ?", cart.CartID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		return tx.Where("cart_id = ?", cart.CartID).Delete(&models.Cart{}).Error
	})
	if err != nil {
		return nil, err
	}

	publishOrderChange(bus, ownerID)
	bus.Publish(context.Background(), notifier.Event{OwnerID: ownerID, Kind: notifier.KindCart})
	return &order, nil
}

// transition moves an order to next after validating the state machine.
// Terminal states admit no transitions, cancellation included.
func transition(db *gorm.DB, bus notifier.Bus, order *models.Order, next models.OrderStatus) error {
	if !order.Status.CanTransitionTo(next) {
		return ErrInvalidTransition
	}
	if err := db.Model(&models.Order{}).Where("id = ? AND status = ?", order.ID, order.Status).
		Update("status", next).Error; err != nil {
		return err
	}
	order.Status = next
	publishOrderChange(bus, order.OwnerID)
	return nil
}

// CancelOrder cancels an owner's order unless it already reached a
// terminal state.
func CancelOrder(db *gorm.DB, bus notifier.Bus, ownerID, ref string) error {
	order, err := ownedOrder(db, ownerID, ref)
	if err != nil {
		return err
	}
	return transition(db, bus, order, models.OrderStatusCancelled)
}

// GetUserOrders lists the owner's orders, newest first.
func GetUserOrders(db *gorm.DB, ownerID string) ([]models.Order, error) {
	var orders []models.Order
	err := db.Where("owner_id = ?", ownerID).Order("created_at DESC").Find(&orders).Error
	return orders, err
}

// GetOrderByRef returns one of the owner's orders by id or order_ref.
func GetOrderByRef(db *gorm.DB, ownerID, ref string) (*models.Order, error) {
	return ownedOrder(db, ownerID, ref)
}

// byRef matches either the numeric id or the order_ref, depending on
// what the caller passed.
func byRef(db *gorm.DB, ref string) *gorm.DB {
	if id, err := strconv.ParseUint(ref, 10, 64); err == nil {
		return db.Where("id = ?", id)
	}
	return db.Where("order_ref = ?", ref)
}

func ownedOrder(db *gorm.DB, ownerID, ref string) (*models.Order, error) {
	var order models.Order
	err := byRef(db, ref).Where("owner_id = ?", ownerID).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func anyOrder(db *gorm.DB, ref string) (*models.Order, error) {
	var order models.Order
	err := byRef(db, ref).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func publishOrderChange(bus notifier.Bus, ownerID string) {
	ctx := context.Background()
	bus.Publish(ctx, notifier.Event{OwnerID: ownerID, Kind: notifier.KindOrder})
	bus.Publish(ctx, notifier.Event{OwnerID: notifier.AdminOwner, Kind: notifier.KindOrder})
}

// -------- Handlers --------

// POST /user/orders
func PlaceOrderHandler(db *gorm.DB, bus notifier.Bus) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := middleware.Caller(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		var req PlaceOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		order, err := PlaceOrder(db, bus, caller.OwnerID, req)
		if err != nil {
			c.JSON(orderErrorStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"order": order})
	}
}

// GET /user/orders
func GetUserOrdersHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := middleware.Caller(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		orders, err := GetUserOrders(db, caller.OwnerID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"orders": orders})
	}
}

// GET /user/orders/:orderID
func GetOrderByIDHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := middleware.Caller(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		order, err := GetOrderByRef(db, caller.OwnerID, c.Param("orderID"))
		if err != nil {
			c.JSON(orderErrorStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"order": order})
	}
}

// POST /user/orders/:orderID/cancel
func CancelOrderHandler(db *gorm.DB, bus notifier.Bus) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := middleware.Caller(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		if err := CancelOrder(db, bus, caller.OwnerID, c.Param("orderID")); err != nil {
			c.JSON(orderErrorStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Order cancelled"})
	}
}

// GET /admin/orders
func GetAllOrdersHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var orders []models.Order
		if err := db.Order("created_at DESC").Find(&orders).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"orders": orders})
	}
}

// PUT /admin/orders/:orderID/status
func UpdateOrderStatusHandler(db *gorm.DB, bus notifier.Bus) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpdateOrderStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		newStatus, err := mapOrderStatus(req.Status)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		order, err := anyOrder(db, c.Param("orderID"))
		if err != nil {
			c.JSON(orderErrorStatus(err), gin.H{"error": err.Error()})
			return
		}
		if err := transition(db, bus, order, newStatus); err != nil {
			c.JSON(orderErrorStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Order status updated successfully"})
	}
}

// PUT /admin/orders/:orderID/payment-status
func UpdatePaymentStatusHandler(db *gorm.DB, bus notifier.Bus) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpdatePaymentStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		newStatus, err := mapPaymentStatus(req.PaymentStatus)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		order, err := anyOrder(db, c.Param("orderID"))
		if err != nil {
			c.JSON(orderErrorStatus(err), gin.H{"error": err.Error()})
			return
		}
		if err := db.Model(&models.Order{}).Where("id = ?", order.ID).
			Update("payment_status", newStatus).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update payment status"})
			return
		}
		publishOrderChange(bus, order.OwnerID)
		c.JSON(http.StatusOK, gin.H{"message": "Payment status updated successfully"})
	}
}

// PUT /admin/orders/:orderID/driver
// Driver assignment comes from the dispatch collaborator; only the
// snapshot fields on the order are writable here.
func UpdateDriverHandler(db *gorm.DB, bus notifier.Bus) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpdateDriverRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		order, err := anyOrder(db, c.Param("orderID"))
		if err != nil {
			c.JSON(orderErrorStatus(err), gin.H{"error": err.Error()})
			return
		}
		if err := db.Model(&models.Order{}).Where("id = ?", order.ID).Updates(map[string]interface{}{
			"driver_name":     req.DriverName,
			"driver_phone":    req.DriverPhone,
			"driver_location": req.DriverLocation,
		}).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update driver info"})
			return
		}
		publishOrderChange(bus, order.OwnerID)
		c.JSON(http.StatusOK, gin.H{"message": "Driver info updated successfully"})
	}
}

func orderErrorStatus(err error) int {
	switch {
	case errors.Is(err, ErrCartNotFound), errors.Is(err, ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrEmptyCart), errors.Is(err, ErrNoVendor):
		return http.StatusBadRequest
	case errors.Is(err, ErrInvalidTransition):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

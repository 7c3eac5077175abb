package models

import "time"

type OrderStatus string
type PaymentStatus string

const (
	// Order statuses (delivery flow)
	OrderStatusPending   OrderStatus = "pending"   // Order placed, awaiting vendor confirmation
	OrderStatusConfirmed OrderStatus = "confirmed" // Confirmed by vendor
	OrderStatusPreparing OrderStatus = "preparing" // Being prepared
	OrderStatusReady     OrderStatus = "ready"     // Ready for pickup by driver or customer
	OrderStatusPickedUp  OrderStatus = "picked_up" // With the driver
	OrderStatusDelivered OrderStatus = "delivered" // Customer received the order
	OrderStatusCancelled OrderStatus = "cancelled" // Cancelled before delivery

	// Payment statuses
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// orderFlow maps each status to its canonical successor.
var orderFlow = map[OrderStatus]OrderStatus{
	OrderStatusPending:   OrderStatusConfirmed,
	OrderStatusConfirmed: OrderStatusPreparing,
	OrderStatusPreparing: OrderStatusReady,
	OrderStatusReady:     OrderStatusPickedUp,
	OrderStatusPickedUp:  OrderStatusDelivered,
}

// Terminal reports whether no further transitions are allowed out of s.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanTransitionTo reports whether moving from s to next is legal:
// the canonical forward step, or cancellation from any non-terminal state.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s.Terminal() {
		return false
	}
	if next == OrderStatusCancelled {
		return true
	}
	return orderFlow[s] == next
}

type Order struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	OrderRef          string         `gorm:"uniqueIndex" json:"order_ref"`
	OwnerID           string         `gorm:"index;not null" json:"owner_id"`
	VendorID          string         `json:"vendor_id"`
	VendorName        string         `json:"vendor_name"`
	Items             []OrderItem    `gorm:"serializer:json" json:"items"` // Value snapshot taken at placement, never re-derived
	Status            OrderStatus    `gorm:"type:VARCHAR(20);default:'pending'" json:"status"`
	Total             float64        `json:"total"`
	Tax               float64        `json:"tax"`
	DeliveryFee       float64        `json:"delivery_fee"`
	GrandTotal        float64        `json:"grand_total"`
	DeliveryAddress   string         `json:"delivery_address"`
	DeliveryMethod    DeliveryMethod `gorm:"type:VARCHAR(10)" json:"delivery_method"`
	EstimatedDelivery time.Time      `json:"estimated_delivery"`
	PaymentMethod     string         `json:"payment_method"` // e.g. "cash", "card"
	PaymentStatus     PaymentStatus  `gorm:"type:VARCHAR(20);default:'pending'" json:"payment_status"`
	DriverName        string         `json:"driver_name"`
	DriverPhone       string         `json:"driver_phone"`
	DriverLocation    string         `json:"driver_location"`
	CreatedAt         time.Time      `json:"created_at"`
}

// OrderItem is a value copy of a cart line at placement time.
type OrderItem struct {
	ProductRef string  `json:"product_ref"`
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	Quantity   int     `json:"quantity"`
	Image      string  `json:"image"`
}

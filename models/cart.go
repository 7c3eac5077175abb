package models

import "time"

type DeliveryMethod string

const (
	DeliveryMethodDelivery DeliveryMethod = "delivery"
	DeliveryMethodPickup   DeliveryMethod = "pickup"
)

// Valid reports whether m is one of the two supported fulfilment modes.
func (m DeliveryMethod) Valid() bool {
	return m == DeliveryMethodDelivery || m == DeliveryMethodPickup
}

type Cart struct {
	CartID               uint           `gorm:"primaryKey" json:"cart_id"`
	OwnerID              string         `gorm:"uniqueIndex" json:"owner_id"` // Enforces ONE cart per owner
	VendorID             string         `json:"vendor_id"`
	VendorName           string         `json:"vendor_name"`
	DeliveryMethod       DeliveryMethod `gorm:"type:VARCHAR(10);default:'delivery'" json:"delivery_method"`
	DeliveryAddress      string         `json:"delivery_address"`
	DeliveryInstructions string         `json:"delivery_instructions"`
	Items                []CartItem     `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items"` // Cascade delete items if cart is deleted
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
}

type CartItem struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	CartID              uint      `gorm:"index" json:"cart_id"` // Faster queries
	ProductRef          string    `json:"product_ref"`          // External product identifier
	Name                string    `json:"name"`
	Price               float64   `json:"price"`
	Quantity            int       `json:"quantity"`
	Image               string    `json:"image"`
	SpecialInstructions string    `json:"special_instructions"`
	AddedAt             time.Time `json:"added_at"`
}

// Subtotal is the sum of price x quantity over all lines.
func (c *Cart) Subtotal() float64 {
	var total float64
	for _, item := range c.Items {
		total += item.Price * float64(item.Quantity)
	}
	return total
}

// ItemCount is the sum of line quantities.
func (c *Cart) ItemCount() int {
	var count int
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

// CartView is the read shape served to clients: the cart plus its
// derived totals, computed at read time.
type CartView struct {
	Cart
	Total     float64 `json:"total"`
	ItemCount int     `json:"item_count"`
}

func NewCartView(cart Cart) *CartView {
	return &CartView{
		Cart:      cart,
		Total:     cart.Subtotal(),
		ItemCount: cart.ItemCount(),
	}
}

package models

import "time"

// GuestCart holds items a visitor accumulates before authenticating.
// It is migrated into the owner's Cart on login and deleted afterwards.
type GuestCart struct {
	CartID     uint            `gorm:"primaryKey" json:"cart_id"`
	GuestID    string          `gorm:"uniqueIndex" json:"guest_id"` // Enforces ONE cart per guest
	VendorID   string          `json:"vendor_id"`
	VendorName string          `json:"vendor_name"`
	Items      []GuestCartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// GuestCartItem mirrors CartItem for the pre-auth buffer.
type GuestCartItem struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	CartID              uint      `gorm:"index" json:"cart_id"`
	ProductRef          string    `json:"product_ref"`
	Name                string    `json:"name"`
	Price               float64   `json:"price"`
	Quantity            int       `json:"quantity"`
	Image               string    `json:"image"`
	SpecialInstructions string    `json:"special_instructions"`
	AddedAt             time.Time `json:"added_at"`
}

package cartControllers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/koulibalyamadou10/braprime-backend/middleware"
	"github.com/koulibalyamadou10/braprime-backend/models"
	"github.com/koulibalyamadou10/braprime-backend/notifier"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrCartNotFound          = errors.New("cart not found")
	ErrItemNotFound          = errors.New("cart item not found")
	ErrInvalidDeliveryMethod = errors.New("invalid delivery method")
)

// ItemInput is one line the client wants in the cart. Product data is
// passed by value; products live in an external catalog.
type ItemInput struct {
	ProductRef          string  `json:"product_ref" binding:"required"`
	Name                string  `json:"name" binding:"required"`
	Price               float64 `json:"price" binding:"min=0"`
	Quantity            int     `json:"quantity" binding:"required,min=1"`
	Image               string  `json:"image"`
	SpecialInstructions string  `json:"special_instructions"`
}

type AddItemRequest struct {
	VendorID   string    `json:"vendor_id" binding:"required"`
	VendorName string    `json:"vendor_name" binding:"required"`
	Item       ItemInput `json:"item" binding:"required"`
}

type UpdateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type DeliveryInfoRequest struct {
	DeliveryMethod       models.DeliveryMethod `json:"delivery_method" binding:"required"`
	DeliveryAddress      string                `json:"delivery_address"`
	DeliveryInstructions string                `json:"delivery_instructions"`
}

// -------- Core Logic --------

// GetCart reads the owner's cart with derived totals. A missing cart
// is not an error: the view is nil.
func GetCart(db *gorm.DB, ownerID string) (*models.CartView, error) {
	var cart models.Cart
	err := db.Preload("Items").Where("owner_id = ?", ownerID).First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return models.NewCartView(cart), nil
}

// CreateCart makes an empty cart for the vendor and returns its id.
// An existing cart for the same owner is reused (one cart per owner).
func CreateCart(db *gorm.DB, bus notifier.Bus, ownerID, vendorID, vendorName string) (uint, error) {
	var cartID uint
	err := db.Transaction(func(tx *gorm.DB) error {
		cart, err := ensureVendorCart(tx, ownerID, vendorID, vendorName)
		if err != nil {
			return err
		}
		cartID = cart.CartID
		return nil
	})
	if err != nil {
		return 0, err
	}

	publishCartChange(bus, ownerID)
	return cartID, nil
}

// insertOrGetCart creates the owner's cart if absent and returns the
// surviving row. The unique index on owner_id plus ON CONFLICT DO
// NOTHING makes concurrent first-adds converge on a single cart.
func insertOrGetCart(tx *gorm.DB, ownerID, vendorID, vendorName string) (*models.Cart, error) {
	cart := models.Cart{
		OwnerID:        ownerID,
		VendorID:       vendorID,
		VendorName:     vendorName,
		DeliveryMethod: models.DeliveryMethodDelivery,
	}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner_id"}},
		DoNothing: true,
	}).Create(&cart).Error; err != nil {
		return nil, err
	}

	// Re-read: either the row just written or the concurrent winner.
	var current models.Cart
	if err := tx.Where("owner_id = ?", ownerID).First(&current).Error; err != nil {
		return nil, err
	}
	return &current, nil
}

// ensureVendorCart returns a cart belonging to the requested vendor,
// creating one if absent. A cart held for another vendor is dropped
// wholesale first: last writer wins on vendor switch, no cross-vendor
// merge is attempted.
func ensureVendorCart(tx *gorm.DB, ownerID, vendorID, vendorName string) (*models.Cart, error) {
	cart, err := insertOrGetCart(tx, ownerID, vendorID, vendorName)
	if err != nil {
		return nil, err
	}
	if cart.VendorID == vendorID {
		return cart, nil
	}

	if err := dropCart(tx, cart.CartID); err != nil {
		return nil, err
	}
	fresh := models.Cart{
		OwnerID:        ownerID,
		VendorID:       vendorID,
		VendorName:     vendorName,
		DeliveryMethod: models.DeliveryMethodDelivery,
	}
	if err := tx.Create(&fresh).Error; err != nil {
		return nil, err
	}
	return &fresh, nil
}

func dropCart(tx *gorm.DB, cartID uint) error {
	if err := tx.Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error; err != nil {
		return err
	}
	return tx.Where("cart_id = ?", cartID).Delete(&models.Cart{}).Error
}

// mergeItem applies the match-and-merge rule: a line with the same
// product_ref and name absorbs the quantity, otherwise a new line is
// inserted.
func mergeItem(tx *gorm.DB, cartID uint, in ItemInput) error {
	var item models.CartItem
	err := tx.Where("cart_id = ? AND product_ref = ? AND name = ?",
		cartID, in.ProductRef, in.Name).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return tx.Create(&models.CartItem{
			CartID:              cartID,
			ProductRef:          in.ProductRef,
			Name:                in.Name,
			Price:               in.Price,
			Quantity:            in.Quantity,
			Image:               in.Image,
			SpecialInstructions: in.SpecialInstructions,
			AddedAt:             time.Now(),
		}).Error
	}
	if err != nil {
		return err
	}

	item.Quantity += in.Quantity
	item.AddedAt = time.Now()
	return tx.Save(&item).Error
}

func touchCart(tx *gorm.DB, cartID uint) error {
	return tx.Model(&models.Cart{}).Where("cart_id = ?", cartID).
		Update("updated_at", time.Now()).Error
}

// AddItem puts one line into the owner's cart, creating the cart or
// switching vendors as needed. The whole sequence runs in one
// transaction so a vendor switch is never observed half done.
func AddItem(db *gorm.DB, bus notifier.Bus, ownerID string, req AddItemRequest) (*models.CartView, error) {
	err := db.Transaction(func(tx *gorm.DB) error {
		cart, err := ensureVendorCart(tx, ownerID, req.VendorID, req.VendorName)
		if err != nil {
			return err
		}
		if err := mergeItem(tx, cart.CartID, req.Item); err != nil {
			return err
		}
		return touchCart(tx, cart.CartID)
	})
	if err != nil {
		return nil, err
	}

	publishCartChange(bus, ownerID)
	return GetCart(db, ownerID)
}

// UpdateItemQuantity sets a line's quantity. Anything at or below zero
// is a removal.
func UpdateItemQuantity(db *gorm.DB, bus notifier.Bus, ownerID string, itemID uint, quantity int) (*models.CartView, error) {
	if quantity <= 0 {
		return RemoveItem(db, bus, ownerID, itemID)
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		cart, err := ownedCart(tx, ownerID)
		if err != nil {
			return err
		}
		result := tx.Model(&models.CartItem{}).
			Where("id = ? AND cart_id = ?", itemID, cart.CartID).
			Update("quantity", quantity)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrItemNotFound
		}
		return touchCart(tx, cart.CartID)
	})
	if err != nil {
		return nil, err
	}

	publishCartChange(bus, ownerID)
	return GetCart(db, ownerID)
}

// RemoveItem deletes a line. An emptied cart persists until it is
// cleared, superseded, or consumed by an order.
func RemoveItem(db *gorm.DB, bus notifier.Bus, ownerID string, itemID uint) (*models.CartView, error) {
	err := db.Transaction(func(tx *gorm.DB) error {
		cart, err := ownedCart(tx, ownerID)
		if err != nil {
			return err
		}
		result := tx.Where("id = ? AND cart_id = ?", itemID, cart.CartID).
			Delete(&models.CartItem{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrItemNotFound
		}
		return touchCart(tx, cart.CartID)
	})
	if err != nil {
		return nil, err
	}

	publishCartChange(bus, ownerID)
	return GetCart(db, ownerID)
}

// ClearCart deletes the owner's cart and its lines. Clearing a missing
// cart is a no-op, not an error.
func ClearCart(db *gorm.DB, bus notifier.Bus, ownerID string) error {
	existed := false
	err := db.Transaction(func(tx *gorm.DB) error {
		var cart models.Cart
		err := tx.Where("owner_id = ?", ownerID).First(&cart).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		existed = true
		return dropCart(tx, cart.CartID)
	})
	if err != nil {
		return err
	}

	if existed {
		publishCartChange(bus, ownerID)
	}
	return nil
}

// UpdateDeliveryInfo sets the fulfilment mode and address on an
// existing cart.
func UpdateDeliveryInfo(db *gorm.DB, bus notifier.Bus, ownerID string, req DeliveryInfoRequest) (*models.CartView, error) {
	if !req.DeliveryMethod.Valid() {
		return nil, ErrInvalidDeliveryMethod
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		cart, err := ownedCart(tx, ownerID)
		if err != nil {
			return err
		}
		cart.DeliveryMethod = req.DeliveryMethod
		cart.DeliveryAddress = req.DeliveryAddress
		cart.DeliveryInstructions = req.DeliveryInstructions
		return tx.Save(cart).Error
	})
	if err != nil {
		return nil, err
	}

	publishCartChange(bus, ownerID)
	return GetCart(db, ownerID)
}

// SyncFromLocal merges a pre-auth buffer into the owner's cart with
// the same rule AddItem uses, one transaction for the whole buffer.
// Replaying an uncleared buffer doubles quantities; the caller clears
// the buffer after a successful sync.
func SyncFromLocal(db *gorm.DB, bus notifier.Bus, ownerID string, items []ItemInput, vendorID, vendorName string) error {
	if len(items) == 0 {
		return nil
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		cart, err := ensureVendorCart(tx, ownerID, vendorID, vendorName)
		if err != nil {
			return err
		}
		for _, in := range items {
			if err := mergeItem(tx, cart.CartID, in); err != nil {
				return err
			}
		}
		return touchCart(tx, cart.CartID)
	})
	if err != nil {
		return err
	}

	publishCartChange(bus, ownerID)
	return nil
}

func ownedCart(tx *gorm.DB, ownerID string) (*models.Cart, error) {
	var cart models.Cart
	err := tx.Where("owner_id = ?", ownerID).First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func publishCartChange(bus notifier.Bus, ownerID string) {
	bus.Publish(context.Background(), notifier.Event{OwnerID: ownerID, Kind: notifier.KindCart})
}

// -------- Handlers --------

// GET /user/cart
func GetUserCart(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := middleware.Caller(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		view, err := GetCart(db, caller.OwnerID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch cart"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"cart": view})
	}
}

// POST /user/cart
func CreateCartHandler(db *gorm.DB, bus notifier.Bus) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := middleware.Caller(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		var req struct {
			VendorID   string `json:"vendor_id" binding:"required"`
			VendorName string `json:"vendor_name" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		cartID, err := CreateCart(db, bus, caller.OwnerID, req.VendorID, req.VendorName)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create cart"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"cart_id": cartID})
	}
}

// POST /user/cart/items
func AddItemHandler(db *gorm.DB, bus notifier.Bus) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := middleware.Caller(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		var req AddItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		view, err := AddItem(db, bus, caller.OwnerID, req)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add item to cart"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"cart": view})
	}
}

// PATCH /user/cart/items/:item_id
func UpdateItemQuantityHandler(db *gorm.DB, bus notifier.Bus) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := middleware.Caller(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		itemID, err := parseItemID(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid item_id"})
			return
		}

		var req UpdateQuantityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		view, err := UpdateItemQuantity(db, bus, caller.OwnerID, itemID, req.Quantity)
		if err != nil {
			c.JSON(cartErrorStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"cart": view})
	}
}

// DELETE /user/cart/items/:item_id
func RemoveItemHandler(db *gorm.DB, bus notifier.Bus) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := middleware.Caller(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		itemID, err := parseItemID(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid item_id"})
			return
		}

		view, err := RemoveItem(db, bus, caller.OwnerID, itemID)
		if err != nil {
			c.JSON(cartErrorStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"cart": view})
	}
}

// DELETE /user/cart
func ClearUserCart(db *gorm.DB, bus notifier.Bus) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := middleware.Caller(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		if err := ClearCart(db, bus, caller.OwnerID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear cart"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
	}
}

// PUT /user/cart/delivery
func UpdateDeliveryInfoHandler(db *gorm.DB, bus notifier.Bus) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := middleware.Caller(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		var req DeliveryInfoRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		view, err := UpdateDeliveryInfo(db, bus, caller.OwnerID, req)
		if err != nil {
			c.JSON(cartErrorStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"cart": view})
	}
}

// GET /admin/carts/:owner_id
func GetAdminUserCart(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ownerID := c.Param("owner_id")
		if ownerID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "owner_id is required"})
			return
		}

		view, err := GetCart(db, ownerID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch cart"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"cart": view})
	}
}

func parseItemID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("item_id"), 10, 64)
	return uint(id), err
}

func cartErrorStatus(err error) int {
	switch {
	case errors.Is(err, ErrCartNotFound), errors.Is(err, ErrItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidDeliveryMethod):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

package cartControllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/koulibalyamadou10/braprime-backend/middleware"
	"github.com/koulibalyamadou10/braprime-backend/models"
	"github.com/koulibalyamadou10/braprime-backend/notifier"
	"gorm.io/gorm"
)

// The guest cart is the durable form of the pre-auth local buffer. It
// follows the same single-vendor and merge rules as the user cart and
// is drained into it by SyncGuestCart once the owner signs in.

type GuestAddItemRequest struct {
	VendorID   string    `json:"vendor_id" binding:"required"`
	VendorName string    `json:"vendor_name" binding:"required"`
	Item       ItemInput `json:"item" binding:"required"`
}

type SyncCartRequest struct {
	// Either a guest id whose buffer should be drained...
	GuestID string `json:"guest_id"`
	// ...or the buffer itself, passed by value.
	VendorID   string      `json:"vendor_id"`
	VendorName string      `json:"vendor_name"`
	Items      []ItemInput `json:"items"`
}

// -------- Core Logic --------

// AddGuestItem merges one line into the guest buffer, creating it or
// switching vendors exactly like AddItem does for the user cart.
func AddGuestItem(db *gorm.DB, guestID string, req GuestAddItemRequest) (*models.GuestCart, error) {
	err := db.Transaction(func(tx *gorm.DB) error {
		cart, err := ensureGuestVendorCart(tx, guestID, req.VendorID, req.VendorName)
		if err != nil {
			return err
		}
		return mergeGuestItem(tx, cart.CartID, req.Item)
	})
	if err != nil {
		return nil, err
	}
	return GetGuestCartByID(db, guestID)
}

func ensureGuestVendorCart(tx *gorm.DB, guestID, vendorID, vendorName string) (*models.GuestCart, error) {
	var cart models.GuestCart
	err := tx.Where("guest_id = ?", guestID).First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		cart = models.GuestCart{GuestID: guestID, VendorID: vendorID, VendorName: vendorName}
		if err := tx.Create(&cart).Error; err != nil {
			return nil, err
		}
		return &cart, nil
	}
	if err != nil {
		return nil, err
	}
	if cart.VendorID == vendorID {
		return &cart, nil
	}

	// Vendor switch: drop the old buffer wholesale
	if err := dropGuestCart(tx, cart.CartID); err != nil {
		return nil, err
	}
	fresh := models.GuestCart{GuestID: guestID, VendorID: vendorID, VendorName: vendorName}
	if err := tx.Create(&fresh).Error; err != nil {
		return nil, err
	}
	return &fresh, nil
}

func mergeGuestItem(tx *gorm.DB, cartID uint, in ItemInput) error {
	var item models.GuestCartItem
	err := tx.Where("cart_id = ? AND product_ref = ? AND name = ?",
		cartID, in.ProductRef, in.Name).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return tx.Create(&models.GuestCartItem{
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

func dropGuestCart(tx *gorm.DB, cartID uint) error {
	if err := tx.Where("cart_id = ?", cartID).Delete(&models.GuestCartItem{}).Error; err != nil {
		return err
	}
	return tx.Where("cart_id = ?", cartID).Delete(&models.GuestCart{}).Error
}

func GetGuestCartByID(db *gorm.DB, guestID string) (*models.GuestCart, error) {
	var cart models.GuestCart
	err := db.Preload("Items").Where("guest_id = ?", guestID).First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// ClearGuestCartByID deletes the buffer; missing buffers are a no-op.
func ClearGuestCartByID(db *gorm.DB, guestID string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var cart models.GuestCart
		err := tx.Where("guest_id = ?", guestID).First(&cart).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return dropGuestCart(tx, cart.CartID)
	})
}

// -------- Handlers --------

// POST /guest/cart/items
func AddGuestItemHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := middleware.Caller(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		var req GuestAddItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		cart, err := AddGuestItem(db, caller.OwnerID, req)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add item to guest cart"})
			return
		}
		c.JSON(http.StatusOK, cart)
	}
}

// GET /guest/cart
func GetGuestCart(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := middleware.Caller(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		cart, err := GetGuestCartByID(db, caller.OwnerID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch guest cart"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"cart": cart})
	}
}

// DELETE /guest/cart
func ClearGuestCart(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := middleware.Caller(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		if err := ClearGuestCartByID(db, caller.OwnerID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear guest cart"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Guest cart cleared"})
	}
}

// POST /user/cart/sync
// Migrates a pre-auth buffer into the authenticated owner's cart. When
// a guest_id is given the server-side buffer is drained and deleted
// after a successful merge; otherwise the request body carries the
// buffer itself and the client is responsible for clearing its copy.
func SyncGuestCartHandler(db *gorm.DB, bus notifier.Bus) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := middleware.Caller(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		var req SyncCartRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		items := req.Items
		vendorID, vendorName := req.VendorID, req.VendorName

		if req.GuestID != "" {
			guest, err := GetGuestCartByID(db, req.GuestID)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch guest cart"})
				return
			}
			if guest == nil {
				c.JSON(http.StatusOK, gin.H{"message": "Nothing to sync"})
				return
			}
			vendorID, vendorName = guest.VendorID, guest.VendorName
			items = items[:0]
			for _, it := range guest.Items {
				items = append(items, ItemInput{
					ProductRef:          it.ProductRef,
					Name:                it.Name,
					Price:               it.Price,
					Quantity:            it.Quantity,
					Image:               it.Image,
					SpecialInstructions: it.SpecialInstructions,
				})
			}
		}

		if len(items) == 0 {
			c.JSON(http.StatusOK, gin.H{"message": "Nothing to sync"})
			return
		}
		if vendorID == "" || vendorName == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "vendor_id and vendor_name are required"})
			return
		}

		if err := SyncFromLocal(db, bus, caller.OwnerID, items, vendorID, vendorName); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to sync cart"})
			return
		}

		// Buffer is cleared only after the merge committed, so a failed
		// sync can be retried with the buffer intact.
		if req.GuestID != "" {
			if err := ClearGuestCartByID(db, req.GuestID); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Synced but failed to clear guest cart"})
				return
			}
		}

		view, err := GetCart(db, caller.OwnerID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch cart"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"cart": view})
	}
}

package cartControllers

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/koulibalyamadou10/braprime-backend/models"
	"github.com/koulibalyamadou10/braprime-backend/notifier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Cart{},
		&models.CartItem{},
		&models.GuestCart{},
		&models.GuestCartItem{},
		&models.Order{},
	))
	return db
}

func sandwichReq(qty int) AddItemRequest {
	return AddItemRequest{
		VendorID:   "vendor-a",
		VendorName: "Chez Fatou",
		Item: ItemInput{
			ProductRef: "prod-1",
			Name:       "Chicken Sandwich",
			Price:      25000,
			Quantity:   qty,
		},
	}
}

func TestGetCartAbsentIsNotAnError(t *testing.T) {
	db := setupTestDB(t)

	view, err := GetCart(db, "user-1")
	require.NoError(t, err)
	assert.Nil(t, view)
}

func TestCreateCartReusesExistingRow(t *testing.T) {
	db := setupTestDB(t)
	bus := notifier.NewHub()

	id, err := CreateCart(db, bus, "user-1", "vendor-a", "Chez Fatou")
	require.NoError(t, err)
	require.NotZero(t, id)

	again, err := CreateCart(db, bus, "user-1", "vendor-a", "Chez Fatou")
	require.NoError(t, err)
	assert.Equal(t, id, again)

	view, err := GetCart(db, "user-1")
	require.NoError(t, err)
	require.NotNil(t, view)
	assert.Empty(t, view.Items)
}

func TestAddItemCreatesCartLazily(t *testing.T) {
	db := setupTestDB(t)
	bus := notifier.NewHub()

	view, err := AddItem(db, bus, "user-1", sandwichReq(2))
	require.NoError(t, err)
	require.NotNil(t, view)

	assert.Equal(t, "vendor-a", view.VendorID)
	assert.Equal(t, "Chez Fatou", view.VendorName)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 2, view.Items[0].Quantity)
	assert.Equal(t, float64(50000), view.Total)
	assert.Equal(t, 2, view.ItemCount)
}

func TestAddItemMergesMatchingLines(t *testing.T) {
	db := setupTestDB(t)
	bus := notifier.NewHub()

	_, err := AddItem(db, bus, "user-1", sandwichReq(1))
	require.NoError(t, err)
	view, err := AddItem(db, bus, "user-1", sandwichReq(3))
	require.NoError(t, err)

	require.Len(t, view.Items, 1)
	assert.Equal(t, 4, view.Items[0].Quantity)
}

func TestAddItemDistinctNamesStayOnSeparateLines(t *testing.T) {
	db := setupTestDB(t)
	bus := notifier.NewHub()

	_, err := AddItem(db, bus, "user-1", sandwichReq(1))
	require.NoError(t, err)

	other := sandwichReq(1)
	other.Item.Name = "Chicken Sandwich (spicy)"
	view, err := AddItem(db, bus, "user-1", other)
	require.NoError(t, err)

	assert.Len(t, view.Items, 2)
}

func TestVendorSwitchDropsOldCart(t *testing.T) {
	db := setupTestDB(t)
	bus := notifier.NewHub()

	_, err := AddItem(db, bus, "user-1", sandwichReq(2))
	require.NoError(t, err)

	req := AddItemRequest{
		VendorID:   "vendor-b",
		VendorName: "Mama Grill",
		Item: ItemInput{
			ProductRef: "prod-9",
			Name:       "Grilled Fish",
			Price:      40000,
			Quantity:   1,
		},
	}
	view, err := AddItem(db, bus, "user-1", req)
	require.NoError(t, err)

	assert.Equal(t, "vendor-b", view.VendorID)
	require.Len(t, view.Items, 1)
	assert.Equal(t, "Grilled Fish", view.Items[0].Name)

	// Exactly one cart row survives, and no orphan items
	var carts, items int64
	require.NoError(t, db.Model(&models.Cart{}).Count(&carts).Error)
	require.NoError(t, db.Model(&models.CartItem{}).Count(&items).Error)
	assert.Equal(t, int64(1), carts)
	assert.Equal(t, int64(1), items)
}

func TestAllItemsShareTheCartVendor(t *testing.T) {
	db := setupTestDB(t)
	bus := notifier.NewHub()

	for _, name := range []string{"Fries", "Cola", "Burger"} {
		req := sandwichReq(1)
		req.Item.ProductRef = "prod-" + name
		req.Item.Name = name
		_, err := AddItem(db, bus, "user-1", req)
		require.NoError(t, err)
	}

	view, err := GetCart(db, "user-1")
	require.NoError(t, err)
	require.NotNil(t, view)
	assert.Len(t, view.Items, 3)
	for _, item := range view.Items {
		assert.Equal(t, view.CartID, item.CartID)
	}
	assert.Equal(t, "vendor-a", view.VendorID)
}

func TestUpdateQuantityZeroEqualsRemoval(t *testing.T) {
	db := setupTestDB(t)
	bus := notifier.NewHub()

	first, err := AddItem(db, bus, "user-1", sandwichReq(2))
	require.NoError(t, err)
	itemID := first.Items[0].ID

	view, err := UpdateItemQuantity(db, bus, "user-1", itemID, 0)
	require.NoError(t, err)
	assert.Empty(t, view.Items)

	// The emptied cart persists
	assert.Equal(t, "vendor-a", view.VendorID)
}

func TestUpdateQuantityInPlace(t *testing.T) {
	db := setupTestDB(t)
	bus := notifier.NewHub()

	first, err := AddItem(db, bus, "user-1", sandwichReq(2))
	require.NoError(t, err)

	view, err := UpdateItemQuantity(db, bus, "user-1", first.Items[0].ID, 5)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 5, view.Items[0].Quantity)
	assert.Equal(t, float64(125000), view.Total)
}

func TestUpdateQuantityUnknownItem(t *testing.T) {
	db := setupTestDB(t)
	bus := notifier.NewHub()

	_, err := AddItem(db, bus, "user-1", sandwichReq(1))
	require.NoError(t, err)

	_, err = UpdateItemQuantity(db, bus, "user-1", 9999, 3)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestRemoveItemLeavesCartRow(t *testing.T) {
	db := setupTestDB(t)
	bus := notifier.NewHub()

	first, err := AddItem(db, bus, "user-1", sandwichReq(1))
	require.NoError(t, err)

	view, err := RemoveItem(db, bus, "user-1", first.Items[0].ID)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.Equal(t, 0, view.ItemCount)
}

func TestClearCartIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	bus := notifier.NewHub()

	// Clearing a cart that never existed succeeds
	require.NoError(t, ClearCart(db, bus, "user-1"))

	_, err := AddItem(db, bus, "user-1", sandwichReq(2))
	require.NoError(t, err)
	require.NoError(t, ClearCart(db, bus, "user-1"))

	view, err := GetCart(db, "user-1")
	require.NoError(t, err)
	assert.Nil(t, view)

	// And again, after it is gone
	require.NoError(t, ClearCart(db, bus, "user-1"))
}

func TestUpdateDeliveryInfo(t *testing.T) {
	db := setupTestDB(t)
	bus := notifier.NewHub()

	_, err := UpdateDeliveryInfo(db, bus, "user-1", DeliveryInfoRequest{
		DeliveryMethod: models.DeliveryMethodPickup,
	})
	assert.ErrorIs(t, err, ErrCartNotFound)

	_, err = AddItem(db, bus, "user-1", sandwichReq(1))
	require.NoError(t, err)

	view, err := UpdateDeliveryInfo(db, bus, "user-1", DeliveryInfoRequest{
		DeliveryMethod:       models.DeliveryMethodDelivery,
		DeliveryAddress:      "Kipe, Conakry",
		DeliveryInstructions: "Call on arrival",
	})
	require.NoError(t, err)
	assert.Equal(t, models.DeliveryMethodDelivery, view.DeliveryMethod)
	assert.Equal(t, "Kipe, Conakry", view.DeliveryAddress)
	assert.Equal(t, "Call on arrival", view.DeliveryInstructions)

	_, err = UpdateDeliveryInfo(db, bus, "user-1", DeliveryInfoRequest{
		DeliveryMethod: "drone",
	})
	assert.ErrorIs(t, err, ErrInvalidDeliveryMethod)
}

func TestSyncFromLocalMergesBuffer(t *testing.T) {
	db := setupTestDB(t)
	bus := notifier.NewHub()

	buffer := []ItemInput{
		{ProductRef: "prod-1", Name: "Chicken Sandwich", Price: 25000, Quantity: 1},
		{ProductRef: "prod-2", Name: "Fries", Price: 10000, Quantity: 2},
	}

	require.NoError(t, SyncFromLocal(db, bus, "user-1", buffer, "vendor-a", "Chez Fatou"))

	view, err := GetCart(db, "user-1")
	require.NoError(t, err)
	require.NotNil(t, view)
	require.Len(t, view.Items, 2)
	assert.Equal(t, 3, view.ItemCount)

	// Replaying an uncleared buffer doubles quantities; clearing the
	// buffer after a successful sync is the caller's job.
	require.NoError(t, SyncFromLocal(db, bus, "user-1", buffer, "vendor-a", "Chez Fatou"))

	view, err = GetCart(db, "user-1")
	require.NoError(t, err)
	require.Len(t, view.Items, 2)
	assert.Equal(t, 6, view.ItemCount)
}

func TestSyncFromLocalEmptyBufferIsNoop(t *testing.T) {
	db := setupTestDB(t)
	bus := notifier.NewHub()

	require.NoError(t, SyncFromLocal(db, bus, "user-1", nil, "vendor-a", "Chez Fatou"))

	view, err := GetCart(db, "user-1")
	require.NoError(t, err)
	assert.Nil(t, view)
}

func TestMutationsPublishCartEvents(t *testing.T) {
	db := setupTestDB(t)
	bus := notifier.NewHub()

	events, cancel := bus.Subscribe("user-1")
	defer cancel()

	_, err := AddItem(db, bus, "user-1", sandwichReq(1))
	require.NoError(t, err)

	select {
	case ev := <-events:
		assert.Equal(t, notifier.KindCart, ev.Kind)
		assert.Equal(t, "user-1", ev.OwnerID)
	default:
		t.Fatal("expected a cart change event")
	}
}

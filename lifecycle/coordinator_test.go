package lifecycle

import (
	"context"
	"testing"
	"time"

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
		&models.Order{},
	))
	return db
}

func seedCart(t *testing.T, db *gorm.DB, ownerID string, qty int) models.Cart {
	t.Helper()
	cart := models.Cart{
		OwnerID:        ownerID,
		VendorID:       "vendor-a",
		VendorName:     "Chez Fatou",
		DeliveryMethod: models.DeliveryMethodDelivery,
		Items: []models.CartItem{
			{ProductRef: "prod-1", Name: "Poulet Yassa", Price: 15000, Quantity: qty, AddedAt: time.Now()},
		},
	}
	require.NoError(t, db.Create(&cart).Error)
	return cart
}

func TestCurrentWithoutState(t *testing.T) {
	db := setupTestDB(t)
	co := New(db, notifier.NewHub())

	snap, err := co.Current("user-1")
	require.NoError(t, err)
	assert.Nil(t, snap.Cart)
	assert.Empty(t, snap.Orders)
}

func TestCurrentComputesDerivedTotals(t *testing.T) {
	db := setupTestDB(t)
	co := New(db, notifier.NewHub())
	seedCart(t, db, "user-1", 2)

	snap, err := co.Current("user-1")
	require.NoError(t, err)
	require.NotNil(t, snap.Cart)
	assert.Equal(t, float64(30000), snap.Cart.Total)
	assert.Equal(t, 2, snap.Cart.ItemCount)
}

func TestWatchEmitsInitialSnapshot(t *testing.T) {
	db := setupTestDB(t)
	hub := notifier.NewHub()
	co := New(db, hub)
	seedCart(t, db, "user-1", 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snapshots, err := co.Watch(ctx, "user-1")
	require.NoError(t, err)

	select {
	case snap := <-snapshots:
		require.NotNil(t, snap.Cart)
		assert.Equal(t, 1, snap.Cart.ItemCount)
	case <-time.After(time.Second):
		t.Fatal("no initial snapshot")
	}
}

func TestWatchRefreshesOnEvent(t *testing.T) {
	db := setupTestDB(t)
	hub := notifier.NewHub()
	co := New(db, hub)
	cart := seedCart(t, db, "user-1", 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snapshots, err := co.Watch(ctx, "user-1")
	require.NoError(t, err)
	<-snapshots // initial

	// Mutate the store, then signal; the watcher re-reads on its own
	require.NoError(t, db.Model(&models.CartItem{}).
		Where("cart_id = ?", cart.CartID).
		Update("quantity", 4).Error)
	hub.Publish(ctx, notifier.Event{OwnerID: "user-1", Kind: notifier.KindCart})

	select {
	case snap := <-snapshots:
		require.NotNil(t, snap.Cart)
		assert.Equal(t, 4, snap.Cart.ItemCount)
	case <-time.After(time.Second):
		t.Fatal("no refreshed snapshot after event")
	}
}

func TestWatchStopsOnContextCancel(t *testing.T) {
	db := setupTestDB(t)
	hub := notifier.NewHub()
	co := New(db, hub)

	ctx, cancel := context.WithCancel(context.Background())
	snapshots, err := co.Watch(ctx, "user-1")
	require.NoError(t, err)
	<-snapshots // initial

	cancel()

	select {
	case _, ok := <-snapshots:
		assert.False(t, ok, "channel should close after cancel")
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

package cartControllers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func guestReq(ref, name string, qty int) GuestAddItemRequest {
	return GuestAddItemRequest{
		VendorID:   "vendor-a",
		VendorName: "Chez Fatou",
		Item: ItemInput{
			ProductRef: ref,
			Name:       name,
			Price:      12000,
			Quantity:   qty,
		},
	}
}

func TestGuestCartMergesLikeUserCart(t *testing.T) {
	db := setupTestDB(t)

	_, err := AddGuestItem(db, "guest-1", guestReq("prod-1", "Mango Juice", 1))
	require.NoError(t, err)
	cart, err := AddGuestItem(db, "guest-1", guestReq("prod-1", "Mango Juice", 2))
	require.NoError(t, err)

	require.Len(t, cart.Items, 1)
	assert.Equal(t, 3, cart.Items[0].Quantity)
}

func TestGuestCartVendorSwitch(t *testing.T) {
	db := setupTestDB(t)

	_, err := AddGuestItem(db, "guest-1", guestReq("prod-1", "Mango Juice", 1))
	require.NoError(t, err)

	other := guestReq("prod-7", "Kebab", 1)
	other.VendorID = "vendor-b"
	other.VendorName = "Mama Grill"
	cart, err := AddGuestItem(db, "guest-1", other)
	require.NoError(t, err)

	assert.Equal(t, "vendor-b", cart.VendorID)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "Kebab", cart.Items[0].Name)
}

func TestClearGuestCartIdempotent(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, ClearGuestCartByID(db, "guest-1"))

	_, err := AddGuestItem(db, "guest-1", guestReq("prod-1", "Mango Juice", 1))
	require.NoError(t, err)
	require.NoError(t, ClearGuestCartByID(db, "guest-1"))

	cart, err := GetGuestCartByID(db, "guest-1")
	require.NoError(t, err)
	assert.Nil(t, cart)
}

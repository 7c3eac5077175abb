package lifecycle

import (
	"context"
	"errors"

	"github.com/koulibalyamadou10/braprime-backend/models"
	"github.com/koulibalyamadou10/braprime-backend/notifier"
	"gorm.io/gorm"
)

// Snapshot is the last-known view a client renders from: the current
// cart (nil when none) and the owner's orders, newest first.
type Snapshot struct {
	Cart   *models.CartView `json:"cart"`
	Orders []models.Order   `json:"orders"`
}

// Coordinator re-reads the durable state whenever the notifier signals
// a change. Events carry no payload, so every signal triggers a full
// re-fetch (push-then-pull).
type Coordinator struct {
	db  *gorm.DB
	bus notifier.Bus
}

func New(db *gorm.DB, bus notifier.Bus) *Coordinator {
	return &Coordinator{db: db, bus: bus}
}

// Current fetches the owner's cart and orders in one pass.
func (co *Coordinator) Current(ownerID string) (Snapshot, error) {
	var snap Snapshot

	var cart models.Cart
	err := co.db.Preload("Items").Where("owner_id = ?", ownerID).First(&cart).Error
	switch {
	case err == nil:
		snap.Cart = models.NewCartView(cart)
	case errors.Is(err, gorm.ErrRecordNotFound):
		// No active cart; the snapshot carries a nil cart.
	default:
		return Snapshot{}, err
	}

	if err := co.db.
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&snap.Orders).Error; err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// Watch emits the current snapshot, then a refreshed one for every
// change event, until ctx is cancelled. Failed refreshes are skipped;
// the next event retriggers the read.
func (co *Coordinator) Watch(ctx context.Context, ownerID string) (<-chan Snapshot, error) {
	first, err := co.Current(ownerID)
	if err != nil {
		return nil, err
	}

	events, cancel := co.bus.Subscribe(ownerID)
	out := make(chan Snapshot, 1)
	out <- first

	go func() {
		defer cancel()
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-events:
				if !ok {
					return
				}
				snap, err := co.Current(ownerID)
				if err != nil {
					continue
				}
				select {
				case out <- snap:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

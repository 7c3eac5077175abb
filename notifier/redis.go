package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/go-redis/redis/v8"
)

const channelPrefix = "cart-events:"

// RedisBus routes events through Redis pub/sub so that every server
// instance sees every change. Local delivery still goes through an
// embedded Hub fed by the subscription goroutine.
type RedisBus struct {
	rdb   *redis.Client
	local *Hub
}

// NewRedisBus connects to redisURL and starts the background
// subscription feeding the local hub.
func NewRedisBus(redisURL string) (*RedisBus, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	rdb := redis.NewClient(opt)

	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	b := &RedisBus{rdb: rdb, local: NewHub()}
	go b.receive(ctx)
	return b, nil
}

func (b *RedisBus) Publish(ctx context.Context, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if err := b.rdb.Publish(ctx, channelPrefix+ev.OwnerID, data).Err(); err != nil {
		log.Printf("notifier: redis publish failed: %v", err)
		// Deliver locally anyway so this instance's subscribers still refresh
		b.local.Publish(ctx, ev)
	}
}

func (b *RedisBus) Subscribe(ownerID string) (<-chan Event, func()) {
	return b.local.Subscribe(ownerID)
}

func (b *RedisBus) receive(ctx context.Context) {
	sub := b.rdb.PSubscribe(ctx, channelPrefix+"*")
	defer sub.Close()

	for msg := range sub.Channel() {
		var ev Event
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			continue
		}
		b.local.Publish(ctx, ev)
	}
}

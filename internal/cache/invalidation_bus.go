package cache

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/intoglo/shipment-pipeline/internal/pkg/logger"
)

// Invalidator is satisfied by any TTLCache[T] instantiation; it lets the
// bus hold a heterogeneous set of caches keyed by name.
type Invalidator interface {
	Invalidate()
}

// InvalidationBus lets writers (admin invalidations) notify every process
// sharing a Redis instance that a named configuration table changed,
// without waiting out the TTL. Absent a Redis client, Listen is a no-op
// and Publish invalidates only the caches registered on this bus.
type InvalidationBus struct {
	client *redis.Client
	channel string
	local  map[string]Invalidator
}

// NewInvalidationBus creates a bus publishing/subscribing on channel. A nil
// client is valid: Listen returns immediately and Publish invalidates the
// locally registered cache directly.
func NewInvalidationBus(client *redis.Client, channel string) *InvalidationBus {
	return &InvalidationBus{client: client, channel: channel, local: make(map[string]Invalidator)}
}

// Register associates a cache name with its Invalidator so incoming bus
// messages can route to the right TTLCache.
func (b *InvalidationBus) Register(name string, c Invalidator) {
	b.local[name] = c
}

// Publish announces that the named configuration table changed.
func (b *InvalidationBus) Publish(ctx context.Context, name string) error {
	if b.client == nil {
		if c, ok := b.local[name]; ok {
			c.Invalidate()
		}
		return nil
	}
	return b.client.Publish(ctx, b.channel, name).Err()
}

// Listen blocks, invalidating the named local cache whenever a message
// arrives, until ctx is cancelled. Intended to run in its own goroutine for
// the lifetime of the process.
func (b *InvalidationBus) Listen(ctx context.Context) {
	if b.client == nil {
		return
	}
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if c, found := b.local[msg.Payload]; found {
				c.Invalidate()
				logger.Debug("cache invalidated", "name", msg.Payload)
			}
		}
	}
}

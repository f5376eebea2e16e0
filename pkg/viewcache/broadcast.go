package viewcache

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const invalidationChannel = "viewcache:invalidations"

// Broadcaster fans view-key invalidations out to sibling processes over
// Redis pub/sub. Receivers only mark views stale; values never cross the
// wire. With a nil client it degrades to the local store alone.
type Broadcaster struct {
	store  Store
	client *redis.Client
	log    *logrus.Logger
	cancel context.CancelFunc
}

func NewBroadcaster(store Store, client *redis.Client, log *logrus.Logger) *Broadcaster {
	return &Broadcaster{store: store, client: client, log: log}
}

// Invalidate marks the keys stale locally and announces them to siblings.
// Publish failures are logged, never propagated: local invalidation already
// happened and the caller's mutation must not fail because of it.
func (b *Broadcaster) Invalidate(ctx context.Context, keys ...Key) {
	b.store.MarkStale(keys...)
	b.Publish(ctx, keys...)
}

// Publish announces the keys to siblings without touching the local store.
// Used after an optimistic commit: the local views already hold the patched
// values, only the other processes need to refetch.
func (b *Broadcaster) Publish(ctx context.Context, keys ...Key) {
	if b.client == nil || len(keys) == 0 {
		return
	}
	parts := make([]string, len(keys))
	for i, key := range keys {
		parts[i] = string(key)
	}
	if err := b.client.Publish(ctx, invalidationChannel, strings.Join(parts, ",")).Err(); err != nil && b.log != nil {
		b.log.WithError(err).Warn("viewcache: failed to broadcast invalidation")
	}
}

// Listen subscribes to sibling invalidations until Stop or context cancel.
func (b *Broadcaster) Listen(ctx context.Context) {
	if b.client == nil {
		return
	}
	ctx, b.cancel = context.WithCancel(ctx)
	sub := b.client.Subscribe(ctx, invalidationChannel)
	go func() {
		defer func() { _ = sub.Close() }()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				for _, part := range strings.Split(msg.Payload, ",") {
					if part != "" {
						b.store.MarkStale(Key(part))
					}
				}
			}
		}
	}()
}

func (b *Broadcaster) Stop() {
	if b.cancel != nil {
		b.cancel()
	}
}

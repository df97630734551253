package realtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/itsJ0ker/midnight/internal/database"
	"github.com/redis/go-redis/v9"
)

const redisChannelPrefix = "midnight:changes:"

var _ Broker = (*RedisBroker)(nil)

// RedisBroker shares change signals between server instances over redis pub/sub.
// Local subscribers are served by an embedded MemoryBroker.
type RedisBroker struct {
	client *redis.Client
	pubsub *redis.PubSub
	local  *MemoryBroker
	done   chan struct{}
}

func NewRedisBroker(ctx context.Context, addr string) (*RedisBroker, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	channels := make([]string, 0, len(database.Collections))
	for _, c := range database.Collections {
		channels = append(channels, redisChannelPrefix+string(c))
	}

	pubsub := client.Subscribe(ctx, channels...)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		_ = client.Close()
		return nil, fmt.Errorf("failed to subscribe to change channels: %w", err)
	}

	b := &RedisBroker{
		client: client,
		pubsub: pubsub,
		local:  NewMemoryBroker(),
		done:   make(chan struct{}),
	}
	go b.forward()
	return b, nil
}

func (b *RedisBroker) forward() {
	defer close(b.done)
	for msg := range b.pubsub.Channel() {
		collection := database.Collection(strings.TrimPrefix(msg.Channel, redisChannelPrefix))
		if err := b.local.Publish(context.Background(), collection); err != nil {
			log.Debug("dropping change signal", "collection", collection, "error", err)
		}
	}
}

func (b *RedisBroker) Publish(ctx context.Context, collection database.Collection) error {
	if err := b.client.Publish(ctx, redisChannelPrefix+string(collection), "changed").Err(); err != nil {
		return fmt.Errorf("failed to publish change for %s: %w", collection, err)
	}
	return nil
}

func (b *RedisBroker) Subscribe(collection database.Collection, onChange func()) Subscription {
	return b.local.Subscribe(collection, onChange)
}

func (b *RedisBroker) Close() error {
	err := b.pubsub.Close()
	<-b.done
	_ = b.local.Close()
	if cerr := b.client.Close(); err == nil {
		err = cerr
	}
	return err
}

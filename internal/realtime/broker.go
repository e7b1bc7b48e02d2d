package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Broker fans events out to every instance's hub.
type Broker interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// LocalBroker delivers straight into a single in-process hub.
type LocalBroker struct {
	hub *Hub
}

func NewLocalBroker(hub *Hub) *LocalBroker {
	return &LocalBroker{hub: hub}
}

func (b *LocalBroker) Publish(_ context.Context, ev Event) error {
	b.hub.Deliver(ev)
	return nil
}

func (b *LocalBroker) Close() error { return nil }

// RedisBroker publishes events on a Redis channel that every instance
// subscribes to and delivers to its own hub.
type RedisBroker struct {
	rdb     *redis.Client
	channel string
	hub     *Hub
	log     *zap.Logger

	pubsub *redis.PubSub
	wg     sync.WaitGroup
	once   sync.Once
}

func NewRedisBroker(ctx context.Context, rdb *redis.Client, channel string, hub *Hub, log *zap.Logger) (*RedisBroker, error) {
	pubsub := rdb.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}

	b := &RedisBroker{
		rdb:     rdb,
		channel: channel,
		hub:     hub,
		log:     log.With(zap.String("channel", channel)),
		pubsub:  pubsub,
	}
	b.wg.Add(1)
	go b.run()
	return b, nil
}

func (b *RedisBroker) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, payload).Err()
}

func (b *RedisBroker) run() {
	defer b.wg.Done()
	for msg := range b.pubsub.Channel() {
		var ev Event
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			b.log.Warn("discarding malformed realtime event", zap.Error(err))
			continue
		}
		b.hub.Deliver(ev)
	}
	b.log.Info("realtime subscriber stopped")
}

// Close ends the subscription and waits for the delivery loop to exit.
func (b *RedisBroker) Close() error {
	var err error
	b.once.Do(func() {
		err = b.pubsub.Close()
		b.wg.Wait()
	})
	return err
}

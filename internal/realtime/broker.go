package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Broker routes an event to every live session of a user, wherever that
// session is connected.
type Broker interface {
	Publish(ctx context.Context, userID uuid.UUID, ev Event) error
}

// LocalBroker delivers straight into this process's registry.
type LocalBroker struct {
	registry *Registry
}

func NewLocalBroker(registry *Registry) *LocalBroker {
	return &LocalBroker{registry: registry}
}

func (b *LocalBroker) Publish(_ context.Context, userID uuid.UUID, ev Event) error {
	b.registry.Broadcast(userID, ev)
	return nil
}

const userChannelPrefix = "guardpost:user:"

func userChannel(userID uuid.UUID) string {
	return userChannelPrefix + userID.String()
}

// RedisBroker fans events out through Redis pub/sub so that every instance
// behind the load balancer delivers to the sessions it holds. Run must be
// running for this instance to receive anything, its own publishes
// included.
type RedisBroker struct {
	client   *redis.Client
	registry *Registry
	logger   *zap.Logger
	sub      *redis.PubSub
}

func NewRedisBroker(client *redis.Client, registry *Registry, logger *zap.Logger) *RedisBroker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisBroker{client: client, registry: registry, logger: logger}
}

func (b *RedisBroker) Publish(ctx context.Context, userID uuid.UUID, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := b.client.Publish(ctx, userChannel(userID), payload).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// wireEvent keeps Data as raw JSON so it is re-sent byte for byte.
type wireEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const userPattern = userChannelPrefix + "*"

// Subscribe registers the pattern subscription and waits for Redis to
// confirm it, so a broken Redis fails startup instead of every later
// publish quietly reaching nobody.
func (b *RedisBroker) Subscribe(ctx context.Context) error {
	sub := b.client.PSubscribe(ctx, userPattern)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe: %w", err)
	}
	b.sub = sub
	b.logger.Info("redis broker subscribed", zap.String("pattern", userPattern))
	return nil
}

// Run delivers received events into the registry until ctx is cancelled.
// It subscribes first when Subscribe has not been called. A subscription
// that ends while ctx is still live is returned as an error.
func (b *RedisBroker) Run(ctx context.Context) error {
	if b.sub == nil {
		if err := b.Subscribe(ctx); err != nil {
			return err
		}
	}
	defer b.sub.Close()
	return b.consume(ctx, b.sub.Channel())
}

var errSubscriptionClosed = errors.New("redis subscription closed")

func (b *RedisBroker) consume(ctx context.Context, ch <-chan *redis.Message) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return errSubscriptionClosed
			}
			b.deliver(msg)
		}
	}
}

func (b *RedisBroker) deliver(msg *redis.Message) {
	userID, err := uuid.Parse(strings.TrimPrefix(msg.Channel, userChannelPrefix))
	if err != nil {
		b.logger.Warn("ignoring event on malformed channel", zap.String("channel", msg.Channel))
		return
	}

	var ev wireEvent
	if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
		b.logger.Warn("ignoring malformed event", zap.String("channel", msg.Channel), zap.Error(err))
		return
	}
	b.registry.Broadcast(userID, Event{Type: ev.Type, Data: ev.Data})
}

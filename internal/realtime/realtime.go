// Package realtime pushes events to connected clients over Redis pub/sub.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const channelPrefix = "helpdesk"

// Broadcast channel names.
const (
	ChannelAdmins = "admins"
)

// Pusher emits events. Delivery is at most once.
type Pusher interface {
	EmitToUser(ctx context.Context, userID, event string, payload any) error
	EmitToChannel(ctx context.Context, channel, event string, payload any) error
}

// Envelope is the wire form of a pushed event.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	SentAt  time.Time       `json:"sent_at"`
}

// UserChannel is the per-user channel name.
func UserChannel(userID string) string {
	return fmt.Sprintf("%s:user:%s", channelPrefix, userID)
}

// BroadcastChannel is the channel name for a named group.
func BroadcastChannel(name string) string {
	return fmt.Sprintf("%s:channel:%s", channelPrefix, name)
}

// Encode builds the published message for event.
func Encode(event string, payload any, now time.Time) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", event, err)
	}
	return json.Marshal(Envelope{Event: event, Payload: body, SentAt: now.UTC()})
}

// RedisPusher publishes envelopes with PUBLISH.
type RedisPusher struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisPusher(client *redis.Client, logger *zap.Logger) *RedisPusher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisPusher{client: client, logger: logger}
}

func (p *RedisPusher) EmitToUser(ctx context.Context, userID, event string, payload any) error {
	return p.publish(ctx, UserChannel(userID), event, payload)
}

func (p *RedisPusher) EmitToChannel(ctx context.Context, channel, event string, payload any) error {
	return p.publish(ctx, BroadcastChannel(channel), event, payload)
}

func (p *RedisPusher) publish(ctx context.Context, channel, event string, payload any) error {
	msg, err := Encode(event, payload, time.Now())
	if err != nil {
		return err
	}
	receivers, err := p.client.Publish(ctx, channel, msg).Result()
	if err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	p.logger.Debug("realtime event published",
		zap.String("channel", channel),
		zap.String("event", event),
		zap.Int64("receivers", receivers))
	return nil
}

// Subscription streams envelopes from one or more channels.
type Subscription struct {
	pubsub *redis.PubSub
	out    chan Envelope
}

// Subscribe listens on the given user and broadcast channels until ctx is
// done or Close is called. Undecodable messages are dropped.
func (p *RedisPusher) Subscribe(ctx context.Context, userID string, broadcasts ...string) (*Subscription, error) {
	channels := []string{UserChannel(userID)}
	for _, name := range broadcasts {
		channels = append(channels, BroadcastChannel(name))
	}
	pubsub := p.client.Subscribe(ctx, channels...)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	sub := &Subscription{pubsub: pubsub, out: make(chan Envelope, 16)}
	go func() {
		defer close(sub.out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-pubsub.Channel():
				if !ok {
					return
				}
				var env Envelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					p.logger.Warn("dropping malformed realtime message", zap.String("channel", msg.Channel), zap.Error(err))
					continue
				}
				select {
				case sub.out <- env:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return sub, nil
}

// Events returns the envelope stream. It is closed when the subscription ends.
func (s *Subscription) Events() <-chan Envelope {
	return s.out
}

// Close stops the subscription.
func (s *Subscription) Close() error {
	return s.pubsub.Close()
}

// Package messaging delivers domain events and notifications to systems outside the process:
// redis pub/sub rooms for live notifications and a kafka topic for downstream consumers.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/orderdesk/backend/internal/application/notification"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultChannelPrefix prefixes every notification channel when none is configured
const DefaultChannelPrefix = "orderdesk:notify"

// RedisPublisher is the part of the redis client the notifier needs
type RedisPublisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// roomMessage is the payload published to a room channel
type roomMessage struct {
	Room string `json:"room"`
	notification.Notification
}

// RedisNotifier publishes one message per recipient to "<prefix>:user:<id>" or
// "<prefix>:role:<ROLE>". Subscribers (websocket gateways, mail workers) listen on the
// channels of the rooms they serve.
type RedisNotifier struct {
	client RedisPublisher
	prefix string
	logger *zap.Logger
}

// NewRedisNotifier creates a notifier on an existing client. The caller keeps ownership of the client.
func NewRedisNotifier(client RedisPublisher, prefix string, logger *zap.Logger) *RedisNotifier {
	if prefix == "" {
		prefix = DefaultChannelPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisNotifier{
		client: client,
		prefix: prefix,
		logger: logger,
	}
}

// Channel returns the pub/sub channel of a recipient
func (n *RedisNotifier) Channel(r notification.Recipient) string {
	return n.prefix + ":" + r.Room()
}

// Notify publishes the notification to every recipient channel. A failed channel does not
// stop delivery to the others; all failures are returned together.
func (n *RedisNotifier) Notify(ctx context.Context, msg notification.Notification) error {
	var errs []error
	for _, r := range msg.Recipients {
		data, err := json.Marshal(roomMessage{Room: r.Room(), Notification: msg})
		if err != nil {
			return fmt.Errorf("marshal notification %s: %w", msg.EventID, err)
		}

		channel := n.Channel(r)
		receivers, err := n.client.Publish(ctx, channel, data).Result()
		if err != nil {
			errs = append(errs, fmt.Errorf("publish to %s: %w", channel, err))
			continue
		}
		n.logger.Debug("notification published",
			zap.String("channel", channel),
			zap.String("kind", string(msg.Kind)),
			zap.Int64("receivers", receivers),
		)
	}
	return errors.Join(errs...)
}

var _ notification.Notifier = (*RedisNotifier)(nil)

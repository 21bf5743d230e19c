package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"casino-engine/models"

	"github.com/redis/go-redis/v9"
)

// DefaultChannelPrefix namespaces every channel this service publishes to.
const DefaultChannelPrefix = "casino:"

// Publisher sends engine events to Redis pub/sub so processes other than the
// engine can follow the tables.
type Publisher struct {
	client redis.UniversalClient
	prefix string
}

func NewPublisher(client redis.UniversalClient, prefix string) *Publisher {
	return &Publisher{client: client, prefix: prefix}
}

// ChannelName maps an engine channel ("table-<id>", "global") to its Redis name.
func (p *Publisher) ChannelName(channel string) string {
	return p.prefix + channel
}

func (p *Publisher) Publish(ctx context.Context, channel string, event models.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event.Event, err)
	}
	if err := p.client.Publish(ctx, p.ChannelName(channel), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", channel, err)
	}
	return nil
}

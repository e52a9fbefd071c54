package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/internal/correlator"
	"github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/pkg/resilience"
)

// CountingPublisher is satisfied by *redis.Client.
type CountingPublisher interface {
	PublishCounted(ctx context.Context, channel string, payload []byte, counters, field string) (int64, error)
}

// Redis publishes matches on a pub/sub channel and keeps a per-query match
// count in the hash "<channel>:counts".
type Redis struct {
	client  CountingPublisher
	channel string
}

func NewRedis(client CountingPublisher, channel string) *Redis {
	return &Redis{client: client, channel: channel}
}

// CountsKey is the hash holding match counts by query id.
func (r *Redis) CountsKey() string {
	return r.channel + ":counts"
}

func (r *Redis) OnMatch(ctx context.Context, m correlator.Match) error {
	ev := NewEvent(m)
	payload, err := json.Marshal(ev)
	if err != nil {
		return resilience.Permanent(fmt.Errorf("encoding match: %w", err))
	}
	_, err = r.client.PublishCounted(ctx, r.channel, payload, r.CountsKey(), ev.Key())
	return err
}

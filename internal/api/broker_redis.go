package api

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"geowatch/internal/metrics"
)

const redisChannelPrefix = "geowatch:records:"

// RedisBroker fans events across instances through Redis pub/sub, so a map
// session on one replica sees changes written through another.
type RedisBroker struct {
	rdb *redis.Client
	log *slog.Logger
}

func NewRedisBroker(url string, log *slog.Logger) (*RedisBroker, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &RedisBroker{rdb: redis.NewClient(opt), log: log}, nil
}

func (b *RedisBroker) Publish(ctx context.Context, channel string, evt Event) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return
	}
	if err := b.rdb.Publish(ctx, redisChannelPrefix+channel, payload).Err(); err != nil {
		metrics.BrokerEvents.WithLabelValues(channel, "publish_error").Inc()
		b.log.Warn("redis publish failed", "channel", channel, "err", err)
		return
	}
	metrics.BrokerEvents.WithLabelValues(channel, "delivered").Inc()
}

func (b *RedisBroker) Subscribe(ctx context.Context, channel string) (<-chan Event, func()) {
	sub := b.rdb.Subscribe(ctx, redisChannelPrefix+channel)
	out := make(chan Event, 16)

	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			var evt Event
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				b.log.Warn("redis event decode failed", "channel", channel, "err", err)
				continue
			}
			select {
			case out <- evt:
			default:
				metrics.BrokerEvents.WithLabelValues(channel, "dropped").Inc()
			}
		}
	}()

	cancel := func() { _ = sub.Close() }
	return out, cancel
}

func (b *RedisBroker) Close() error { return b.rdb.Close() }

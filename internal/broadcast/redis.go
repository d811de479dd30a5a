package broadcast

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"water_monitor/internal/logger"
)

// RedisPublisher is the part of *redis.Client the sink uses.
type RedisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisSink mirrors events onto a Redis pub/sub channel so other processes can
// follow the live feed.
type RedisSink struct {
	client  RedisPublisher
	channel string
	timeout time.Duration
	now     func() time.Time
	log     *logger.Logger
}

var _ Publisher = (*RedisSink)(nil)

const defaultRedisTimeout = 250 * time.Millisecond

// NewRedisSink bounds every publish by timeout so an unreachable Redis only
// delays the caller that long per event.
func NewRedisSink(client RedisPublisher, channel string, timeout time.Duration, log *logger.Logger) *RedisSink {
	if channel == "" {
		channel = "water-monitor.events"
	}
	if timeout <= 0 {
		timeout = defaultRedisTimeout
	}
	return &RedisSink{
		client:  client,
		channel: channel,
		timeout: timeout,
		now:     time.Now,
		log:     logger.OrNop(log),
	}
}

// NewRedisClient builds a client from connection settings.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// Publish reports whether any Redis subscriber received the event.
func (s *RedisSink) Publish(ctx context.Context, eventType string, payload any) bool {
	msg, err := encode(eventType, payload, s.now())
	if err != nil {
		s.log.Errorw("redis_encode_failed", "event", eventType, "err", err)
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	n, err := s.client.Publish(ctx, s.channel, msg).Result()
	if err != nil {
		s.log.Warnw("redis_publish_failed", "event", eventType, "channel", s.channel, "err", err)
		return false
	}
	return n > 0
}

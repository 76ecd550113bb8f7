package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisConfig configures the Redis client.
type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int
}

// NewRedisClient returns a connected client or nil when no address is provided.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (redis.UniversalClient, error) {
	if cfg.Addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// Redis publishes events as JSON on a Redis pub/sub channel. Publish only
// enqueues; a background goroutine performs the network call, and events
// are dropped when the buffer is full.
type Redis struct {
	client  redis.UniversalClient
	channel string
	log     zerolog.Logger

	buf       chan Event
	done      chan struct{}
	closeOnce sync.Once
}

// NewRedis starts a publisher on channel. Close must be called to stop it.
func NewRedis(client redis.UniversalClient, channel string, log zerolog.Logger) *Redis {
	if channel == "" {
		channel = "predictd-events"
	}
	r := &Redis{
		client:  client,
		channel: channel,
		log:     log,
		buf:     make(chan Event, 256),
		done:    make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *Redis) Publish(e Event) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	select {
	case r.buf <- e:
	case <-r.done:
	default:
		r.log.Warn().Str("event", e.Name).Msg("event buffer full, dropping")
	}
}

func (r *Redis) run() {
	for {
		select {
		case e := <-r.buf:
			r.send(e)
		case <-r.done:
			return
		}
	}
}

func (r *Redis) send(e Event) {
	if r.client == nil {
		return
	}
	payload, err := json.Marshal(e)
	if err != nil {
		r.log.Error().Err(err).Str("event", e.Name).Msg("marshal event")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		r.log.Error().Err(err).Str("event", e.Name).Msg("redis publish")
	}
}

// Close stops the background sender. Buffered events are discarded.
func (r *Redis) Close() error {
	r.closeOnce.Do(func() { close(r.done) })
	return nil
}

package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// envelope carries one encoded frame between instances
type envelope struct {
	Origin string          `json:"origin"`
	Room   string          `json:"room"`
	Frame  json.RawMessage `json:"frame"`
}

// outboxSize bounds the events waiting to be published
const outboxSize = 256

// RedisRelay broadcasts room events to viewers connected to any instance.
// Local delivery never waits on Redis. Publishing happens on the Run
// goroutine; a failure or a full outbox only affects remote viewers.
type RedisRelay struct {
	client  redis.UniversalClient
	channel string
	origin  string
	hub     *Hub
	outbox  chan []byte
	log     zerolog.Logger

	publishTimeout time.Duration
	retryDelay     time.Duration
}

// NewRedisRelay creates a relay for hub publishing on channel
func NewRedisRelay(client redis.UniversalClient, channel string, hub *Hub, log zerolog.Logger) *RedisRelay {
	return &RedisRelay{
		client:         client,
		channel:        channel,
		origin:         uuid.New().String(),
		hub:            hub,
		outbox:         make(chan []byte, outboxSize),
		log:            log.With().Str("component", "redis_relay").Str("channel", channel).Logger(),
		publishTimeout: 2 * time.Second,
		retryDelay:     2 * time.Second,
	}
}

// Emit delivers to local viewers and publishes for the other instances
func (r *RedisRelay) Emit(room, event string, payload interface{}) {
	if r == nil {
		return
	}
	data, err := encodeFrame(event, payload)
	if err != nil {
		r.log.Warn().Err(err).Str("room", room).Str("event", event).Msg("Failed to encode event")
		return
	}
	r.hub.Deliver(room, data)

	msg, err := json.Marshal(envelope{Origin: r.origin, Room: room, Frame: data})
	if err != nil {
		r.log.Warn().Err(err).Str("room", room).Msg("Failed to encode relay envelope")
		return
	}

	select {
	case r.outbox <- msg:
	default:
		r.log.Warn().Str("room", room).Str("event", event).Msg("Relay outbox full, dropping event")
	}
}

// Run publishes queued events and consumes events published by other
// instances until ctx is done, resubscribing after failures.
func (r *RedisRelay) Run(ctx context.Context) error {
	published := make(chan struct{})
	go func() {
		defer close(published)
		r.publish(ctx)
	}()
	defer func() { <-published }()

	for {
		err := r.consume(ctx)
		if ctx.Err() != nil {
			return nil
		}
		r.log.Warn().Err(err).Dur("retry_in", r.retryDelay).Msg("Relay subscription lost")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(r.retryDelay):
		}
	}
}

func (r *RedisRelay) publish(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-r.outbox:
			pubCtx, cancel := context.WithTimeout(ctx, r.publishTimeout)
			if err := r.client.Publish(pubCtx, r.channel, msg).Err(); err != nil {
				r.log.Warn().Err(err).Msg("Failed to publish event")
			}
			cancel()
		}
	}
}

func (r *RedisRelay) consume(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	// Wait for the subscription to be confirmed
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	r.log.Info().Str("origin", r.origin).Msg("Relay subscribed")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return errors.New("relay subscription closed")
			}
			r.handle(msg.Payload)
		}
	}
}

func (r *RedisRelay) handle(payload string) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		r.log.Warn().Err(err).Msg("Ignoring malformed relay message")
		return
	}
	if env.Origin == r.origin || env.Room == "" || len(env.Frame) == 0 {
		return
	}
	r.hub.Deliver(env.Room, env.Frame)
}

// Ping checks connectivity to Redis
func (r *RedisRelay) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the Redis client
func (r *RedisRelay) Close() error {
	return r.client.Close()
}

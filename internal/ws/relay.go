package ws

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"medqueue/internal/models"
	"medqueue/internal/queue"
)

const (
	channelPrefix = "medqueue:doctor:"
	outboxSize    = 1024
	publishWait   = 2 * time.Second

	minResubscribe = 500 * time.Millisecond
	maxResubscribe = 30 * time.Second
)

// ChannelFor names the redis channel carrying a doctor's queue events.
func ChannelFor(doctorID uint) string {
	return channelPrefix + strconv.FormatUint(uint64(doctorID), 10)
}

func doctorFromChannel(channel string) (uint, bool) {
	raw, ok := strings.CutPrefix(channel, channelPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

type outboxMessage struct {
	doctorID uint
	payload  []byte
}

// RedisRelay fans queue events out to every server instance: changes are
// published to redis and each instance delivers what it receives to its own
// hub. It implements queue.Notifier.
type RedisRelay struct {
	rdb    *redis.Client
	hub    *Hub
	outbox chan outboxMessage
	log    zerolog.Logger
}

func NewRedisRelay(rdb *redis.Client, hub *Hub, logger zerolog.Logger) *RedisRelay {
	return &RedisRelay{
		rdb:    rdb,
		hub:    hub,
		outbox: make(chan outboxMessage, outboxSize),
		log:    logger.With().Str("component", "ws_relay").Logger(),
	}
}

// QueueUpdated implements queue.Notifier.
func (r *RedisRelay) QueueUpdated(doctorID uint, snap queue.Snapshot) {
	payload, err := encode(EventQueueUpdated, "", QueueData{Queue: snap})
	if err != nil {
		r.log.Error().Err(err).Msg("encode queueUpdated")
		return
	}
	r.enqueue(doctorID, payload)
}

// PatientCalled implements queue.Notifier.
func (r *RedisRelay) PatientCalled(doctorID uint, entry models.QueueEntry) {
	payload, err := encode(EventPatientCalled, "", EntryData{Entry: &entry})
	if err != nil {
		r.log.Error().Err(err).Msg("encode patientCalled")
		return
	}
	r.enqueue(doctorID, payload)
}

func (r *RedisRelay) enqueue(doctorID uint, payload []byte) {
	select {
	case r.outbox <- outboxMessage{doctorID: doctorID, payload: payload}:
	default:
		droppedTotal.Inc()
		r.log.Warn().Uint("doctor_id", doctorID).Msg("relay outbox full, delivering locally")
		r.hub.Broadcast(doctorID, payload)
	}
}

// Run publishes the outbox and relays every doctor channel to the local hub
// until ctx is cancelled. A failed or lost subscription is retried with
// backoff; meanwhile failed publishes are delivered to the local hub.
func (r *RedisRelay) Run(ctx context.Context) {
	go r.publishLoop(ctx)

	backoff := minResubscribe
	for {
		subscribed, err := r.subscribe(ctx)
		if ctx.Err() != nil {
			return
		}
		if subscribed {
			backoff = minResubscribe
		}
		r.log.Warn().Err(err).Dur("retry_in", backoff).Msg("redis relay subscription failed")
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxResubscribe)
	}
}

// subscribe forwards pattern messages to the hub until the subscription ends.
// subscribed reports whether redis confirmed the subscription.
func (r *RedisRelay) subscribe(ctx context.Context) (subscribed bool, err error) {
	sub := r.rdb.PSubscribe(ctx, channelPrefix+"*")
	defer sub.Close()
	// wait for the confirmation so no publish is missed
	if _, err := sub.Receive(ctx); err != nil {
		return false, fmt.Errorf("psubscribe: %w", err)
	}
	r.log.Info().Msg("redis relay subscribed")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return true, ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return true, errors.New("subscription channel closed")
			}
			doctorID, ok := doctorFromChannel(msg.Channel)
			if !ok {
				r.log.Warn().Str("channel", msg.Channel).Msg("ignoring message on unexpected channel")
				continue
			}
			r.hub.Broadcast(doctorID, []byte(msg.Payload))
		}
	}
}

// publishLoop sends outbox messages in order. When redis is unreachable the
// message is delivered to the local hub so this instance's watchers still
// see it.
func (r *RedisRelay) publishLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-r.outbox:
			pubCtx, cancel := context.WithTimeout(ctx, publishWait)
			err := r.rdb.Publish(pubCtx, ChannelFor(m.doctorID), m.payload).Err()
			cancel()
			if err != nil {
				r.log.Warn().Err(err).Uint("doctor_id", m.doctorID).Msg("redis publish failed, delivering locally")
				r.hub.Broadcast(m.doctorID, m.payload)
			}
		}
	}
}

// Flush publishes whatever is waiting in the outbox and returns the first
// publish error. Short lived processes that never call Run use it before
// exiting.
func (r *RedisRelay) Flush(ctx context.Context) error {
	for {
		select {
		case m := <-r.outbox:
			if err := r.rdb.Publish(ctx, ChannelFor(m.doctorID), m.payload).Err(); err != nil {
				return fmt.Errorf("publish %s: %w", ChannelFor(m.doctorID), err)
			}
		default:
			return nil
		}
	}
}

package ws

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medqueue/internal/models"
	"medqueue/internal/queue"
)

func TestRedisRelay_FansOutAcrossHubs(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, rdb.Ping(context.Background()).Err())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	// two instances sharing one redis
	hubA, hubB := NewHub(zerolog.Nop()), NewHub(zerolog.Nop())
	go hubA.Run(ctx)
	go hubB.Run(ctx)
	relayA := NewRedisRelay(rdb, hubA, zerolog.Nop())
	relayB := NewRedisRelay(rdb, hubB, zerolog.Nop())
	go relayA.Run(ctx)
	go relayB.Run(ctx)

	watcher := fakeClient("b", 8)
	hubB.Register(watcher)
	hubB.Watch(watcher, 77)

	// the subscription may not be confirmed yet; keep publishing until it lands
	var got []byte
	require.Eventually(t, func() bool {
		relayA.PatientCalled(77, models.QueueEntry{ID: 5, Status: models.StatusCalled})
		select {
		case got = <-watcher.send:
			return true
		case <-time.After(100 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)
	assert.Contains(t, string(got), `"event":"patientCalled"`)
}

func TestRedisRelay_FallsBackToLocalHub(t *testing.T) {
	// nothing listens on this port, so publishing fails
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })

	hub, _ := runHub(t)
	c := fakeClient("a", 8)
	hub.Register(c)
	hub.Watch(c, 3)

	relay := NewRedisRelay(rdb, hub, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go relay.publishLoop(ctx)

	relay.PatientCalled(3, models.QueueEntry{ID: 1, Status: models.StatusCalled})
	assert.Contains(t, string(receive(t, c)), `"event":"patientCalled"`)
}

func TestRedisRelay_RunDeliversLocallyWhenSubscribeFails(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })

	hub, _ := runHub(t)
	c := fakeClient("a", 8)
	hub.Register(c)
	hub.Watch(c, 3)

	relay := NewRedisRelay(rdb, hub, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		relay.Run(ctx)
		close(done)
	}()

	relay.PatientCalled(3, models.QueueEntry{ID: 1, Status: models.StatusCalled})
	assert.Contains(t, string(receive(t, c)), `"event":"patientCalled"`)
	relay.QueueUpdated(3, queue.Snapshot{DoctorID: 3})
	assert.Contains(t, string(receive(t, c)), `"event":"queueUpdated"`)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRedisRelay_FlushReportsPublishErrors(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })

	relay := NewRedisRelay(rdb, NewHub(zerolog.Nop()), zerolog.Nop())
	require.NoError(t, relay.Flush(context.Background()), "empty outbox")

	relay.PatientCalled(9, models.QueueEntry{ID: 2, Status: models.StatusCalled})
	err := relay.Flush(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), ChannelFor(9))
}

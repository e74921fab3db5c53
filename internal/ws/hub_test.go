package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medqueue/internal/models"
	"medqueue/internal/queue"
)

func runHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub, cancel
}

func fakeClient(id string, buffer int) *Client {
	return &Client{
		ID:      id,
		send:    make(chan []byte, buffer),
		doctors: make(map[uint]struct{}),
		log:     zerolog.Nop(),
	}
}

func receive(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case msg, ok := <-c.send:
		require.True(t, ok, "send channel closed")
		return msg
	case <-time.After(2 * time.Second):
		t.Fatalf("client %s received nothing", c.ID)
		return nil
	}
}

func assertNothing(t *testing.T, c *Client) {
	t.Helper()
	select {
	case msg := <-c.send:
		t.Fatalf("client %s got unexpected %s", c.ID, msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_BroadcastReachesWatchersOnly(t *testing.T) {
	hub, _ := runHub(t)
	a, b := fakeClient("a", 8), fakeClient("b", 8)
	hub.Register(a)
	hub.Register(b)
	hub.Watch(a, 1)
	hub.Watch(b, 2)

	hub.Broadcast(1, []byte("for-1"))
	assert.Equal(t, "for-1", string(receive(t, a)))
	assertNothing(t, b)

	assert.Equal(t, []uint{1, 2}, hub.WatchedDoctors())
	assert.Equal(t, 1, hub.WatcherCount(1))
	assert.Equal(t, 2, hub.ClientCount())
}

func TestHub_UnwatchAndUnregister(t *testing.T) {
	hub, _ := runHub(t)
	a := fakeClient("a", 8)
	hub.Register(a)
	hub.Watch(a, 1)
	hub.Watch(a, 2)

	hub.Unwatch(a, 1)
	hub.Broadcast(1, []byte("x"))
	assertNothing(t, a)
	assert.Equal(t, []uint{2}, hub.WatchedDoctors())

	hub.Unregister(a)
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Empty(t, hub.WatchedDoctors())
	_, ok := <-a.send
	assert.False(t, ok, "send channel should be closed")

	// a second unregister is harmless
	hub.Unregister(a)
}

func TestHub_SlowClientIsDropped(t *testing.T) {
	hub, _ := runHub(t)
	slow := fakeClient("slow", 1)
	hub.Register(slow)
	hub.Watch(slow, 1)

	hub.Broadcast(1, []byte("one"))
	hub.Broadcast(1, []byte("two"))

	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, hub.WatcherCount(1))

	// buffered message is still readable, then the channel is closed
	assert.Equal(t, "one", string(<-slow.send))
	_, ok := <-slow.send
	assert.False(t, ok)

	// replies to a dropped client are discarded, not panicking on a closed channel
	hub.Send(slow, []byte("late"))
}

func TestHub_SendRepliesToOneClient(t *testing.T) {
	hub, _ := runHub(t)
	a, b := fakeClient("a", 8), fakeClient("b", 8)
	hub.Register(a)
	hub.Register(b)

	hub.Send(a, []byte("hi"))
	assert.Equal(t, "hi", string(receive(t, a)))
	assertNothing(t, b)
}

func TestHub_NotifierEnvelopes(t *testing.T) {
	hub, _ := runHub(t)
	a := fakeClient("a", 8)
	hub.Register(a)
	hub.Watch(a, 4)

	hub.QueueUpdated(4, queue.Snapshot{DoctorID: 4, Date: "2026-10-15", Entries: []models.QueueEntry{}, EstimatedWaitTime: 15})
	hub.PatientCalled(4, models.QueueEntry{ID: 9, Status: models.StatusCalled})

	var env Envelope
	require.NoError(t, json.Unmarshal(receive(t, a), &env))
	assert.Equal(t, EventQueueUpdated, env.Event)
	var qd QueueData
	require.NoError(t, json.Unmarshal(env.Data, &qd))
	assert.Equal(t, uint(4), qd.Queue.DoctorID)
	assert.Equal(t, 15, qd.Queue.EstimatedWaitTime)

	require.NoError(t, json.Unmarshal(receive(t, a), &env))
	assert.Equal(t, EventPatientCalled, env.Event)
	var ed struct {
		Entry struct {
			ID     uint   `json:"id"`
			Status string `json:"status"`
		} `json:"entry"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &ed))
	assert.Equal(t, uint(9), ed.Entry.ID)
	assert.Equal(t, "CALLED", ed.Entry.Status)
}

func TestHub_StopDisconnectsClients(t *testing.T) {
	hub, cancel := runHub(t)
	a := fakeClient("a", 8)
	hub.Register(a)

	cancel()
	select {
	case _, ok := <-a.send:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("client not disconnected on shutdown")
	}

	// calls after shutdown return instead of blocking
	hub.Register(fakeClient("b", 1))
	hub.Watch(a, 1)
	hub.Broadcast(1, []byte("x"))
}

func TestChannelFor(t *testing.T) {
	assert.Equal(t, "medqueue:doctor:12", ChannelFor(12))
	id, ok := doctorFromChannel("medqueue:doctor:12")
	assert.True(t, ok)
	assert.Equal(t, uint(12), id)
	_, ok = doctorFromChannel("medqueue:doctor:abc")
	assert.False(t, ok)
	_, ok = doctorFromChannel("other:12")
	assert.False(t, ok)
}

func TestHub_WatchNewReportsAddedSubscription(t *testing.T) {
	hub, cancel := runHub(t)
	c := fakeClient("a", 8)
	hub.Register(c)

	assert.True(t, hub.WatchNew(c, 4))
	assert.False(t, hub.WatchNew(c, 4), "already watching")
	assert.Equal(t, 1, hub.WatcherCount(4))

	hub.Unwatch(c, 4)
	assert.True(t, hub.WatchNew(c, 4))

	assert.False(t, hub.WatchNew(fakeClient("unregistered", 1), 4))

	cancel()
	<-hub.done
	assert.False(t, hub.WatchNew(c, 5))
}

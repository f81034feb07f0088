package mqtt

import (
	"testing"
	"time"
)

func TestTick_ConnectsSubscribesAndFiresOnConnect(t *testing.T) {
	tr := NewFakeTransport()
	c := NewClient(tr, ConnectOptions{ClientID: "ESP_1"}, NewRouter(), NewQueue(DefaultPublishQueueConfig()))

	var connectFired bool
	c.OnConnect = func(time.Time) { connectFired = true }
	c.Subscribe("kaiser/god/esp/E1/config", 2, func(string, []byte) {})

	now := time.Unix(1000, 0)
	c.Tick(now) // dial
	c.Tick(now.Add(time.Second)) // observe connected

	if !c.Connected() {
		t.Fatalf("expected client connected")
	}
	if !connectFired {
		t.Fatalf("expected OnConnect to fire")
	}
	if len(tr.Subs) != 1 {
		t.Fatalf("expected subscription reinstated, got %v", tr.Subs)
	}
}

func TestPublish_WhileDisconnectedEnqueues(t *testing.T) {
	tr := NewFakeTransport()
	c := NewClient(tr, ConnectOptions{}, NewRouter(), NewQueue(DefaultPublishQueueConfig()))

	c.Publish("kaiser/god/esp/E1/system/heartbeat", []byte("{}"), 0, false, time.Unix(1000, 0))
	if c.QueueDepth() != 1 {
		t.Fatalf("expected publish to enqueue while disconnected, depth=%d", c.QueueDepth())
	}
}

func TestPublish_WhileConnectedGoesDirect(t *testing.T) {
	tr := NewFakeTransport()
	c := NewClient(tr, ConnectOptions{}, NewRouter(), NewQueue(DefaultPublishQueueConfig()))
	now := time.Unix(1000, 0)
	c.Tick(now)
	c.Tick(now.Add(time.Second))

	c.Publish("x/y", []byte("z"), 1, false, now)
	if c.QueueDepth() != 0 {
		t.Fatalf("expected direct publish, nothing queued")
	}
	if len(tr.Published) != 1 {
		t.Fatalf("expected transport to receive publish")
	}
}

func TestTick_DrainsQueueOneMessagePerTickOnReconnect(t *testing.T) {
	tr := NewFakeTransport()
	q := NewQueue(DefaultPublishQueueConfig())
	c := NewClient(tr, ConnectOptions{}, NewRouter(), q)
	now := time.Unix(1000, 0)

	q.Enqueue("a", []byte("1"), 1, false, now)
	q.Enqueue("b", []byte("2"), 1, false, now)

	c.Tick(now)
	c.Tick(now.Add(time.Second)) // connects, drains 1
	if q.Len() != 1 {
		t.Fatalf("expected one message drained per tick, remaining=%d", q.Len())
	}
	c.Tick(now.Add(2 * time.Second))
	if q.Len() != 0 {
		t.Fatalf("expected queue empty after second drain tick")
	}
}

func TestTick_DispatchesInboundThroughRouter(t *testing.T) {
	tr := NewFakeTransport()
	r := NewRouter()
	var got string
	c := NewClient(tr, ConnectOptions{}, r, NewQueue(DefaultPublishQueueConfig()))
	c.Subscribe("kaiser/broadcast/emergency", 1, func(topic string, _ []byte) { got = topic })

	now := time.Unix(1000, 0)
	c.Tick(now)
	c.Tick(now.Add(time.Second))

	tr.Deliver("kaiser/broadcast/emergency", []byte(`{"reason":"test"}`))
	c.Tick(now.Add(2 * time.Second))

	if got != "kaiser/broadcast/emergency" {
		t.Fatalf("expected inbound dispatch, got %q", got)
	}
}

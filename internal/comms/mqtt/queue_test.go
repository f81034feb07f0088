package mqtt

import (
	"testing"
	"time"
)

func TestEnqueue_PerTopicCapDropsOldest(t *testing.T) {
	q := NewQueue(PublishQueueConfig{Capacity: 64, PerTopicCap: 2, SensorFreshness: time.Minute})
	now := time.Unix(1000, 0)
	q.Enqueue("t/a", []byte("1"), 1, false, now)
	q.Enqueue("t/a", []byte("2"), 1, false, now)
	q.Enqueue("t/a", []byte("3"), 1, false, now)

	if q.Len() != 2 {
		t.Fatalf("expected topic cap of 2, got %d", q.Len())
	}
	m, _ := q.Peek()
	if string(m.Payload) != "2" {
		t.Fatalf("expected oldest (payload 1) dropped, got %s", m.Payload)
	}
}

func TestEnqueue_GlobalCapEvictsNonProtectedFirst(t *testing.T) {
	q := NewQueue(PublishQueueConfig{Capacity: 2, PerTopicCap: 10, SensorFreshness: time.Minute})
	now := time.Unix(1000, 0)
	q.Enqueue("kaiser/god/esp/E1/config_response", []byte("cfg"), 2, false, now)
	q.Enqueue("kaiser/god/esp/E1/sensor/5/data", []byte("s1"), 1, false, now)
	q.Enqueue("kaiser/god/esp/E1/sensor/6/data", []byte("s2"), 1, false, now)

	if q.Len() != 2 {
		t.Fatalf("expected capacity bound of 2, got %d", q.Len())
	}
	m, _ := q.Peek()
	if string(m.Payload) != "cfg" {
		t.Fatalf("expected protected config_response to survive eviction, got %s", m.Payload)
	}
}

func TestPurgeExpired_DropsStaleSensorSamplesOnly(t *testing.T) {
	q := NewQueue(PublishQueueConfig{Capacity: 64, PerTopicCap: 64, SensorFreshness: 60 * time.Second})
	start := time.Unix(1000, 0)
	q.Enqueue("kaiser/god/esp/E1/sensor/5/data", []byte("stale"), 1, false, start)
	q.Enqueue("kaiser/god/esp/E1/config_response", []byte("cfg"), 2, false, start)

	dropped := q.PurgeExpired(start.Add(90 * time.Second))
	if dropped != 1 {
		t.Fatalf("expected 1 dropped, got %d", dropped)
	}
	if q.Len() != 1 {
		t.Fatalf("expected config_response to remain, got len=%d", q.Len())
	}
}

func TestPop_FIFOOrder(t *testing.T) {
	q := NewQueue(DefaultPublishQueueConfig())
	now := time.Unix(1000, 0)
	q.Enqueue("t/a", []byte("1"), 1, false, now)
	q.Enqueue("t/b", []byte("2"), 1, false, now)

	m, ok := q.Pop()
	if !ok || string(m.Payload) != "1" {
		t.Fatalf("expected FIFO pop of first enqueued, got %+v", m)
	}
}

// Package mqtt implements the connection-managed MQTT client of spec
// §4.6: connect/reconnect with backoff, last will, topic routing, and
// the offline publish queue.
package mqtt

import (
	"strings"
	"time"
)

// QueuedMessage is one buffered publish awaiting a live connection (§3
// model, §4.6 offline buffer).
type QueuedMessage struct {
	Seq        uint64
	Topic      string
	Payload    []byte
	QoS        byte
	Retain     bool
	EnqueuedAt time.Time
}

// PublishQueueConfig bounds the offline buffer (§4.6, §9 open question:
// the sensor freshness horizon is a policy choice, exposed here rather
// than hardcoded).
type PublishQueueConfig struct {
	Capacity        int
	PerTopicCap     int
	SensorFreshness time.Duration
}

func DefaultPublishQueueConfig() PublishQueueConfig {
	return PublishQueueConfig{Capacity: 64, PerTopicCap: 16, SensorFreshness: 60 * time.Second}
}

// protectedSuffixes names topics that must survive eviction ahead of
// ordinary traffic: config acks and zone/subzone acks (§4.6).
var protectedSuffixes = []string{"config_response", "zone/ack", "subzone/ack"}

func isProtected(topic string) bool {
	for _, s := range protectedSuffixes {
		if strings.HasSuffix(topic, s) {
			return true
		}
	}
	return false
}

func isSensorData(topic string) bool {
	return strings.Contains(topic, "/sensor/")
}

// Queue is the bounded, FIFO-per-topic offline publish buffer.
type Queue struct {
	cfg     PublishQueueConfig
	msgs    []QueuedMessage
	nextSeq uint64
}

func NewQueue(cfg PublishQueueConfig) *Queue { return &Queue{cfg: cfg} }

func (q *Queue) Len() int { return len(q.msgs) }

// Enqueue appends msg, applying the per-topic and global eviction policy
// of §4.6 before inserting.
func (q *Queue) Enqueue(topic string, payload []byte, qos byte, retain bool, now time.Time) {
	q.evictForTopic(topic)
	if len(q.msgs) >= q.cfg.Capacity && !q.evictForCapacity(topic, qos) {
		return
	}
	q.nextSeq++
	q.msgs = append(q.msgs, QueuedMessage{
		Seq: q.nextSeq, Topic: topic, Payload: payload, QoS: qos, Retain: retain, EnqueuedAt: now,
	})
}

// evictForTopic drops the oldest entry under the same topic once that
// topic is at its own cap.
func (q *Queue) evictForTopic(topic string) {
	if q.cfg.PerTopicCap <= 0 {
		return
	}
	count := 0
	oldestIdx := -1
	for i, m := range q.msgs {
		if m.Topic == topic {
			count++
			if oldestIdx < 0 {
				oldestIdx = i
			}
		}
	}
	if count >= q.cfg.PerTopicCap && oldestIdx >= 0 {
		q.msgs = append(q.msgs[:oldestIdx], q.msgs[oldestIdx+1:]...)
	}
}

// evictForCapacity makes room for an incoming publish when the queue is
// globally full: non-protected entries are dropped oldest-first, and
// only once none remain does a protected incoming message (QoS2,
// protected topic) evict the oldest protected entry. A non-protected
// incoming message never evicts a protected one. It reports whether room
// was made; when it was not, the incoming message is dropped.
func (q *Queue) evictForCapacity(incomingTopic string, incomingQoS byte) bool {
	for idx, m := range q.msgs {
		if !isProtected(m.Topic) {
			q.msgs = append(q.msgs[:idx], q.msgs[idx+1:]...)
			return true
		}
	}
	incomingProtected := incomingQoS == 2 && isProtected(incomingTopic)
	if len(q.msgs) > 0 && incomingProtected {
		q.msgs = q.msgs[1:]
		return true
	}
	return false
}

// PurgeExpired drops queued sensor-data messages older than the
// configured freshness horizon; other topics (commands, acks, config
// responses) never expire this way. Returns the number dropped.
func (q *Queue) PurgeExpired(now time.Time) int {
	if q.cfg.SensorFreshness <= 0 {
		return 0
	}
	dropped := 0
	kept := q.msgs[:0]
	for _, m := range q.msgs {
		if isSensorData(m.Topic) && now.Sub(m.EnqueuedAt) > q.cfg.SensorFreshness {
			dropped++
			continue
		}
		kept = append(kept, m)
	}
	q.msgs = kept
	return dropped
}

// Peek returns the oldest message without removing it.
func (q *Queue) Peek() (QueuedMessage, bool) {
	if len(q.msgs) == 0 {
		return QueuedMessage{}, false
	}
	return q.msgs[0], true
}

// Pop removes and returns the oldest message, the drain order required
// on reconnect (§4.6: FIFO per topic).
func (q *Queue) Pop() (QueuedMessage, bool) {
	if len(q.msgs) == 0 {
		return QueuedMessage{}, false
	}
	m := q.msgs[0]
	q.msgs = q.msgs[1:]
	return m, true
}

package mqtt

import "time"

// InboundMessage is one message handed off by the driver's callback to
// the cooperative loop (§5: no application code runs on the callback
// thread).
type InboundMessage struct {
	Topic   string
	Payload []byte
}

// WillMessage is the LWT the broker publishes on our behalf on an
// ungraceful disconnect (`.../system/will`, retained, QoS1, §6).
type WillMessage struct {
	Topic   string
	Payload []byte
	QoS     byte
	Retain  bool
}

// ConnectOptions configures one connection attempt.
type ConnectOptions struct {
	ClientID   string
	BrokerHost string
	BrokerPort uint16
	UseTLS     bool
	Will       WillMessage
}

// Transport is the board-level MQTT network surface. A tinygo build
// wires it to tinygo.org/x/drivers/net/mqtt; a host build wires it to a
// fake for tests. Transport is responsible only for the wire protocol —
// reconnect policy, offline buffering, and topic routing all live in
// Client.
type Transport interface {
	Connect(opts ConnectOptions) error
	Connected() bool
	Disconnect()
	Publish(topic string, payload []byte, qos byte, retain bool) error
	Subscribe(topic string, qos byte) error
	// Drain returns inbound messages parked by the driver since the last
	// call, without blocking.
	Drain() []InboundMessage
}

type connState int

const (
	connDisconnected connState = iota
	connConnecting
	connConnected
)

const (
	minBackoff      = 1 * time.Second
	maxBackoff      = 60 * time.Second
	connectDeadline = 10 * time.Second
)

// subscription is a topic/QoS pair registered before the first connect;
// it is (re)subscribed every time the transport comes up.
type subscription struct {
	topic string
	qos   byte
}

// Client owns the network session and the publish queue end to end
// (§4.2: "the MQTT client exclusively owns the network session and
// publish queue").
type Client struct {
	transport Transport
	opts      ConnectOptions
	router    *Router
	queue     *Queue

	state   connState
	backoff func() time.Duration
	nextAt  time.Time
	started time.Time

	subs []subscription

	// OnConnect fires once per successful connect, after subscriptions
	// are reinstated, so the caller can publish a fresh heartbeat (§4.6:
	// "on connect: publish a system/heartbeat once, then subscribe").
	OnConnect func(now time.Time)
}

func NewClient(transport Transport, opts ConnectOptions, router *Router, queue *Queue) *Client {
	return &Client{
		transport: transport,
		opts:      opts,
		router:    router,
		queue:     queue,
		backoff:   backoffSeq(minBackoff, maxBackoff),
	}
}

func (c *Client) Connected() bool { return c.state == connConnected }

// Subscribe registers a route and, once connected, subscribes it on the
// wire. It is idempotent across reconnects: every stored subscription is
// reinstated after each successful connect.
func (c *Client) Subscribe(topic string, qos byte, h Handler) {
	c.router.Register(topic, h)
	c.subs = append(c.subs, subscription{topic: topic, qos: qos})
	if c.state == connConnected {
		_ = c.transport.Subscribe(topic, qos)
	}
}

// Publish sends topic/payload immediately if connected, otherwise
// enqueues it for delivery on reconnect (§4.6).
func (c *Client) Publish(topic string, payload []byte, qos byte, retain bool, now time.Time) {
	if c.state == connConnected {
		if err := c.transport.Publish(topic, payload, qos, retain); err == nil {
			return
		}
	}
	c.queue.Enqueue(topic, payload, qos, retain, now)
}

// QueueDepth reports the offline buffer's current size.
func (c *Client) QueueDepth() int { return c.queue.Len() }

// Tick advances the connection state machine, drains one inbound batch
// through the router, and flushes at most one queued publish — the
// cooperative-loop shape of §5 (no blocking wait on network state).
func (c *Client) Tick(now time.Time) {
	switch c.state {
	case connDisconnected:
		if now.Before(c.nextAt) {
			return
		}
		if err := c.transport.Connect(c.opts); err != nil {
			c.nextAt = now.Add(c.backoff())
			return
		}
		c.state = connConnecting
		c.started = now
		return

	case connConnecting:
		if !c.transport.Connected() {
			if now.Sub(c.started) > connectDeadline {
				c.transport.Disconnect()
				c.state = connDisconnected
				c.nextAt = now.Add(c.backoff())
			}
			return
		}
		c.state = connConnected
		c.backoff = backoffSeq(minBackoff, maxBackoff)
		for _, s := range c.subs {
			_ = c.transport.Subscribe(s.topic, s.qos)
		}
		if c.OnConnect != nil {
			c.OnConnect(now)
		}
		fallthrough

	case connConnected:
		if !c.transport.Connected() {
			c.state = connDisconnected
			c.nextAt = now
			return
		}
		for _, m := range c.transport.Drain() {
			c.router.Dispatch(m.Topic, m.Payload)
		}
		c.queue.PurgeExpired(now)
		if m, ok := c.queue.Peek(); ok {
			if err := c.transport.Publish(m.Topic, m.Payload, m.QoS, m.Retain); err == nil {
				c.queue.Pop()
			}
		}
	}
}

func backoffSeq(min, max time.Duration) func() time.Duration {
	if min <= 0 {
		min = 100 * time.Millisecond
	}
	if max < min {
		max = min
	}
	cur := min
	return func() time.Duration {
		d := cur
		cur *= 2
		if cur > max {
			cur = max
		}
		return d
	}
}

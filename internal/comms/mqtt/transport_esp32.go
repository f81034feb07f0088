//go:build tinygo

package mqtt

import (
	"crypto/tls"
	"fmt"
	"sync"

	pahotiny "tinygo.org/x/drivers/net/mqtt"
)

// driverTransport wires Client to the real on-device MQTT driver. The
// driver's message callback runs on its own goroutine/ISR context; it
// only ever appends to inbox, never touches application state, matching
// the handoff rule of §5.
type driverTransport struct {
	mu        sync.Mutex
	client    pahotiny.Client
	connected bool
	inbox     []InboundMessage
}

func NewDriverTransport() Transport { return &driverTransport{} }

func (t *driverTransport) Connect(opts ConnectOptions) error {
	scheme := "tcp"
	if opts.UseTLS {
		scheme = "ssl"
	}
	broker := fmt.Sprintf("%s://%s:%d", scheme, opts.BrokerHost, opts.BrokerPort)

	co := pahotiny.NewClientOptions()
	co.AddBroker(broker)
	co.SetClientID(opts.ClientID)
	co.SetAutoReconnect(false) // Client.Tick owns reconnect/backoff
	if opts.UseTLS {
		co.SetTLSConfig(&tls.Config{})
	}
	if opts.Will.Topic != "" {
		co.SetBinaryWill(opts.Will.Topic, opts.Will.Payload, opts.Will.QoS, opts.Will.Retain)
	}
	co.SetOnConnectHandler(func(pahotiny.Client) {
		t.mu.Lock()
		t.connected = true
		t.mu.Unlock()
	})
	co.SetConnectionLostHandler(func(pahotiny.Client, error) {
		t.mu.Lock()
		t.connected = false
		t.mu.Unlock()
	})

	t.client = pahotiny.NewClient(co)
	token := t.client.Connect()
	token.Wait()
	return token.Error()
}

func (t *driverTransport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

func (t *driverTransport) Disconnect() {
	if t.client != nil {
		t.client.Disconnect(250)
	}
	t.mu.Lock()
	t.connected = false
	t.mu.Unlock()
}

func (t *driverTransport) Publish(topic string, payload []byte, qos byte, retain bool) error {
	token := t.client.Publish(topic, qos, retain, payload)
	token.Wait()
	return token.Error()
}

func (t *driverTransport) Subscribe(topic string, qos byte) error {
	token := t.client.Subscribe(topic, qos, func(_ pahotiny.Client, msg pahotiny.Message) {
		t.mu.Lock()
		t.inbox = append(t.inbox, InboundMessage{Topic: msg.Topic(), Payload: msg.Payload()})
		t.mu.Unlock()
	})
	token.Wait()
	return token.Error()
}

func (t *driverTransport) Drain() []InboundMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.inbox) == 0 {
		return nil
	}
	out := t.inbox
	t.inbox = nil
	return out
}

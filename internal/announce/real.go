package announce

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/sweeney/rokoko-bridge/internal/bridge"
)

// bufferCapacity bounds how many messages are parked during a broker outage.
// Older messages are dropped first.
const bufferCapacity = 256

// RealAnnouncer publishes to an actual MQTT broker. While the broker is
// away, messages are parked in a ring buffer and replayed in order when the
// connection comes back.
type RealAnnouncer struct {
	client paho.Client
	topics Topics
	log    zerolog.Logger

	mu      sync.Mutex
	pending *ringBuffer
}

// NewRealAnnouncer connects to the given broker. The paho client keeps
// reconnecting on its own after the initial connect succeeds.
func NewRealAnnouncer(broker, clientID string, topics Topics, log zerolog.Logger) (*RealAnnouncer, error) {
	a := &RealAnnouncer{
		topics:  topics,
		log:     log,
		pending: newRingBuffer(bufferCapacity),
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(func(paho.Client) { a.replay() })

	a.client = paho.NewClient(opts)
	token := a.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return a, nil
}

// Announce routes an update to the matching topic. Status changes are
// retained so late subscribers see the current state.
func (a *RealAnnouncer) Announce(u bridge.Update) error {
	if u.Kind == bridge.UpdateStatus {
		payload, err := FormatStatusPayload(u)
		if err != nil {
			return fmt.Errorf("format status payload: %w", err)
		}
		a.publish(a.topics.Status, 0, true, payload)
		return nil
	}
	payload, err := FormatEventPayload(u)
	if err != nil {
		return fmt.Errorf("format event payload: %w", err)
	}
	a.publish(a.topics.Events, 0, false, payload)
	return nil
}

// AnnounceSystem sends a lifecycle event to the broker.
func (a *RealAnnouncer) AnnounceSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	// QoS 1 (at-least-once) for lifecycle events - we want to ensure delivery
	a.publish(a.topics.System, 1, false, payload)
	return nil
}

// publish sends one message, parking it for replay when the broker is away
// or the send does not complete in time.
func (a *RealAnnouncer) publish(topic string, qos byte, retained bool, payload []byte) {
	if !a.client.IsConnected() {
		a.park(bufferedMsg{topic: topic, payload: payload, qos: qos, retained: retained})
		return
	}
	token := a.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(5 * time.Second) || token.Error() != nil {
		a.park(bufferedMsg{topic: topic, payload: payload, qos: qos, retained: retained})
	}
}

func (a *RealAnnouncer) park(msg bufferedMsg) {
	a.mu.Lock()
	dropped := a.pending.push(msg)
	a.mu.Unlock()
	if dropped {
		a.log.Warn().Int("capacity", bufferCapacity).Msg("announce buffer full, dropping oldest")
	}
}

// replay flushes parked messages after a reconnect.
func (a *RealAnnouncer) replay() {
	a.mu.Lock()
	msgs := a.pending.drainAll()
	a.mu.Unlock()
	if len(msgs) == 0 {
		return
	}
	a.log.Info().Int("count", len(msgs)).Msg("replaying parked announcements")
	for _, m := range msgs {
		token := a.client.Publish(m.topic, m.qos, m.retained, m.payload)
		if !token.WaitTimeout(5*time.Second) || token.Error() != nil {
			a.log.Warn().Str("topic", m.topic).Msg("replay publish failed, message lost")
		}
	}
}

// Close disconnects from the broker.
func (a *RealAnnouncer) Close() error {
	a.client.Disconnect(1000) // 1 second timeout
	return nil
}

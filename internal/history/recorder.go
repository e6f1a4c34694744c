// Package history wires the message bus to the hub's external
// collaborators: numeric status readings flow to InfluxDB, every bus
// event is mirrored to MQTT, and inbound MQTT messages are injected back
// onto the bus.
//
// All wiring uses push subscriptions, so it rides on the publisher's
// goroutine. Influx writes are batched and do not block; each MQTT mirror
// publish waits for the broker's acknowledgement (up to the MQTT client's
// publish timeout) before the publisher continues.
package history

import (
	"encoding/json"

	"github.com/noriffik/wirehome-core/internal/bus"
	"github.com/noriffik/wirehome-core/internal/component"
	"github.com/noriffik/wirehome-core/internal/infrastructure/mqtt"
)

// EventMQTTMessageReceived is published on the bus for every inbound
// MQTT message.
const EventMQTTMessageReceived = "mqtt.message_received"

// StatusWriter receives numeric component status readings.
// *influxdb.Client satisfies it.
type StatusWriter interface {
	WriteStatusMetric(componentUID, statusUID string, value float64)
}

// EventPublisher mirrors bus events to an external broker.
// *mqtt.Client satisfies it.
type EventPublisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Logger defines the logging interface used by the recorder.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Recorder owns the bus↔external wiring. Both sinks are optional; a nil
// writer or publisher disables that leg.
type Recorder struct {
	bus       *bus.MessageBus
	writer    StatusWriter
	publisher EventPublisher
	qos       byte
	logger    Logger

	subscriptionUIDs []string
}

// Options configures a Recorder.
type Options struct {
	// StatusWriter receives numeric status_changed values; nil disables
	// telemetry export.
	StatusWriter StatusWriter

	// EventPublisher mirrors bus events to MQTT; nil disables the bridge.
	EventPublisher EventPublisher

	// QoS for mirrored events.
	QoS byte

	// Logger is optional.
	Logger Logger
}

// New creates a recorder over the given bus.
func New(messageBus *bus.MessageBus, opts Options) *Recorder {
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Recorder{
		bus:       messageBus,
		writer:    opts.StatusWriter,
		publisher: opts.EventPublisher,
		qos:       opts.QoS,
		logger:    logger,
	}
}

// Start registers the push subscriptions and the inbound MQTT handler.
func (r *Recorder) Start() error {
	if r.writer != nil {
		uid := r.bus.SubscribePush(
			[]bus.Filter{{bus.KeyType: component.EventStatusChanged}},
			r.recordStatus,
		)
		r.subscriptionUIDs = append(r.subscriptionUIDs, uid)
	}

	if r.publisher != nil {
		uid := r.bus.SubscribePush(nil, r.mirrorEvent)
		r.subscriptionUIDs = append(r.subscriptionUIDs, uid)

		if err := r.publisher.Subscribe(mqtt.Topics{}.AllInbound(), r.qos, r.ingest); err != nil {
			return err
		}
	}

	return nil
}

// Stop removes the bus subscriptions.
func (r *Recorder) Stop() {
	for _, uid := range r.subscriptionUIDs {
		r.bus.Unsubscribe(uid)
	}
	r.subscriptionUIDs = nil
}

// recordStatus writes numeric status readings to the telemetry sink.
// Booleans map to 0/1; other value shapes are skipped.
func (r *Recorder) recordStatus(msg bus.Message) {
	componentUID, _ := msg["component_uid"].(string) //nolint:errcheck // Empty uid skipped below
	statusUID, _ := msg["status_uid"].(string)       //nolint:errcheck // Empty uid skipped below
	if componentUID == "" || statusUID == "" {
		return
	}

	switch v := msg["new_value"].(type) {
	case float64:
		r.writer.WriteStatusMetric(componentUID, statusUID, v)
	case int:
		r.writer.WriteStatusMetric(componentUID, statusUID, float64(v))
	case int64:
		r.writer.WriteStatusMetric(componentUID, statusUID, float64(v))
	case bool:
		value := 0.0
		if v {
			value = 1.0
		}
		r.writer.WriteStatusMetric(componentUID, statusUID, value)
	}
}

// mirrorEvent republishes a bus event under wirehome/events/<type>.
func (r *Recorder) mirrorEvent(msg bus.Message) {
	eventType := msg.Type()
	if eventType == "" || eventType == EventMQTTMessageReceived {
		// Inbound MQTT traffic is not echoed back to the broker.
		return
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		r.logger.Warn("failed to encode bus event for MQTT", "type", eventType, "error", err)
		return
	}

	if err := r.publisher.Publish(mqtt.Topics{}.Event(eventType), payload, r.qos, false); err != nil {
		r.logger.Debug("event mirror publish failed", "type", eventType, "error", err)
	}
}

// ingest publishes an inbound MQTT message onto the bus.
func (r *Recorder) ingest(topic string, payload []byte) error {
	msg := bus.Message{
		bus.KeyType: EventMQTTMessageReceived,
		"topic":     topic,
	}

	var decoded any
	if err := json.Unmarshal(payload, &decoded); err == nil {
		msg["payload"] = decoded
	} else {
		msg["payload"] = string(payload)
	}

	r.bus.Publish(msg)
	return nil
}

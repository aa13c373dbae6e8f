// Package mqtt provides telemetry publishing with abstraction for testing.
// It is a consumer of the event bus, never a control path into the device.
package mqtt

import (
	"encoding/json"
	"time"
)

// Topic is the MQTT topic for device telemetry events.
const Topic = "airsense/sensor/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "airsense/sensor/system"

// Telemetry event types.
const (
	EventModeChanged  = "MODE_CHANGED"
	EventAlarmRaised  = "ALARM_RAISED"
	EventAlarmCleared = "ALARM_CLEARED"
	EventAirQuality   = "AIR_QUALITY"
)

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a telemetry event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// Event is one telemetry event. Every event carries a full state
// snapshot so consumers never need to join messages.
type Event struct {
	Timestamp   time.Time
	Type        string // e.g., "MODE_CHANGED", "ALARM_RAISED", "AIR_QUALITY"
	Mode        string
	Alarm       bool
	Score       uint16
	Description string
	Threshold   uint16
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	Config     *SystemConfig
	Heartbeat  *HeartbeatInfo
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// SystemConfig is the configuration summary attached to startup events.
type SystemConfig struct {
	PollMs     int    `json:"poll_ms"`
	DebounceMs int    `json:"debounce_ms"`
	Broker     string `json:"broker"`
}

// HeartbeatInfo carries periodic liveness data.
type HeartbeatInfo struct {
	UptimeSeconds int64           `json:"uptime_seconds"`
	PressCounts   HeartbeatCounts `json:"press_counts"`
}

// HeartbeatCounts holds button press counts since startup.
type HeartbeatCounts struct {
	A int `json:"a"`
	B int `json:"b"`
	X int `json:"x"`
	Y int `json:"y"`
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Sensor SensorPayload `json:"sensor"`
}

// SensorPayload contains the telemetry event details.
type SensorPayload struct {
	Timestamp   string `json:"timestamp"`
	Event       string `json:"event"`
	Mode        string `json:"mode"`
	Alarm       bool   `json:"alarm"`
	Score       uint16 `json:"score"`
	Description string `json:"description"`
	Threshold   uint16 `json:"threshold"`
}

// FormatPayload creates the JSON payload for a telemetry event.
func FormatPayload(event Event) ([]byte, error) {
	payload := Payload{
		Sensor: SensorPayload{
			Timestamp:   event.Timestamp.UTC().Format(time.RFC3339),
			Event:       event.Type,
			Mode:        event.Mode,
			Alarm:       event.Alarm,
			Score:       event.Score,
			Description: event.Description,
			Threshold:   event.Threshold,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string         `json:"timestamp"`
	Event     string         `json:"event"`
	Reason    string         `json:"reason,omitempty"`
	Config    *SystemConfig  `json:"config,omitempty"`
	Heartbeat *HeartbeatInfo `json:"heartbeat,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
			Config:    event.Config,
			Heartbeat: event.Heartbeat,
		},
	}
	return json.Marshal(payload)
}

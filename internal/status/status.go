// Package status provides a thread-safe status tracker for the airsense
// daemon. It is read by HTTP handlers and the MQTT system events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/airsense/internal/buttons"
)

// Config contains daemon configuration for display.
type Config struct {
	PollMs     int64
	DebounceMs int64
	Broker     string
	HTTPPort   string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type — safe to use after the lock is released.
type Snapshot struct {
	Mode          string
	Alarm         bool
	Threshold     uint16
	Score         uint16
	Description   string
	Baselined     bool
	Counts        buttons.Counts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// SetDevice sets the controller-owned state. Called from a bus
// subscriber after every event.
func (t *Tracker) SetDevice(mode string, alarm bool, threshold, score uint16, description string) {
	t.mu.Lock()
	t.snap.Mode = mode
	t.snap.Alarm = alarm
	t.snap.Threshold = threshold
	t.snap.Score = score
	t.snap.Description = description
	t.mu.Unlock()
}

// SetButtons sets the poll-loop-owned state. Called on every tick.
func (t *Tracker) SetButtons(baselined bool, counts buttons.Counts) {
	t.mu.Lock()
	t.snap.Baselined = baselined
	t.snap.Counts = counts
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}

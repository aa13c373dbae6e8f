package airsensor

import (
	"time"

	"github.com/sweeney/airsense/internal/pubsub"
)

// smoothDecayFactor controls how quickly the running average chases new
// samples: each sample moves the average a quarter of the way.
const smoothDecayFactor = 4

// alarmHysteresis keeps a just-cleared alarm from flapping: the smoothed
// score must climb this far above the threshold before the alarm clears.
const alarmHysteresis = 16

// ThresholdSource supplies the current alarm threshold. The mode
// controller satisfies it. Read only from bus handlers.
type ThresholdSource interface {
	Threshold() uint16
}

// Monitor smooths incoming air quality scores, republishes them as
// air-quality led-value events, and raises the alarm when the smoothed
// score drops below the threshold. It is a bus producer like the
// hardware sensors; the mode controller decides whether the color
// reaches the indicator.
type Monitor struct {
	bus       *pubsub.Bus
	threshold ThresholdSource
	now       func() time.Time

	smoothed      int
	seeded        bool
	alarmed       bool
	silencedUntil time.Time
}

// NewMonitor creates a monitor and subscribes it to the bus. A nil
// threshold source disables alarm detection.
func NewMonitor(bus *pubsub.Bus, threshold ThresholdSource) *Monitor {
	m := &Monitor{bus: bus, threshold: threshold, now: time.Now}
	bus.Subscribe(m.handle)
	return m
}

func (m *Monitor) handle(ev pubsub.Event) {
	switch ev.Kind {
	case pubsub.KindAirQualityScore:
		if !m.seeded {
			m.smoothed = int(ev.Sample)
			m.seeded = true
		} else {
			m.smoothed += (int(ev.Sample) - m.smoothed) / smoothDecayFactor
		}
		m.bus.Publish(pubsub.LedValueAirQuality(ColorForScore(uint16(m.smoothed))))
		m.checkAlarm()
	case pubsub.KindAlarmSilenceRequest:
		m.silencedUntil = m.now().Add(time.Duration(ev.Seconds) * time.Second)
		if m.alarmed {
			m.alarmed = false
			m.bus.Publish(pubsub.AlarmStateChanged(false))
		}
	}
}

// checkAlarm compares the smoothed score against the threshold and
// publishes alarm transitions. A threshold of zero never alarms.
func (m *Monitor) checkAlarm() {
	if m.threshold == nil {
		return
	}
	limit := int(m.threshold.Threshold())
	if limit == 0 {
		return
	}
	if m.now().Before(m.silencedUntil) {
		return
	}

	if !m.alarmed && m.smoothed < limit {
		m.alarmed = true
		m.bus.Publish(pubsub.AlarmStateChanged(true))
	} else if m.alarmed && m.smoothed >= limit+alarmHysteresis {
		m.alarmed = false
		m.bus.Publish(pubsub.AlarmStateChanged(false))
	}
}

// Smoothed returns the current smoothed score, or 0 before any sample.
func (m *Monitor) Smoothed() uint16 {
	return uint16(m.smoothed)
}

// Alarming reports whether the monitor currently considers the air bad
// enough to alarm.
func (m *Monitor) Alarming() bool {
	return m.alarmed
}

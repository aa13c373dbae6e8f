// Package controller owns what the device is currently doing. It holds
// the single active mode, routes every bus event to the active mode's
// handling, and performs mode transitions. All mode mutation happens
// through Update; the countdown timer feeds back into the same path by
// publishing its expiry as an event.
package controller

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/airsense/internal/airsensor"
	"github.com/sweeney/airsense/internal/led"
	"github.com/sweeney/airsense/internal/pubsub"
	"github.com/sweeney/airsense/internal/timer"
)

// DefaultBrightness is restored on every mode transition.
const DefaultBrightness uint8 = 220

// demoPhrase is blinked by the morse code demo.
const demoPhrase = "HELLO"

// alarmSilenceSeconds is requested when button Y is pressed during an
// alarm.
const alarmSilenceSeconds = 60

// Controller is the mode state machine. It is driven entirely by bus
// events; the bus guarantees handlers never run concurrently, so the
// controller needs no locking of its own.
type Controller struct {
	bus       *pubsub.Bus
	out       *led.Output
	countdown *timer.Countdown
	log       *zap.SugaredLogger

	mode Mode

	// Persistent fields that outlive every mode transition.
	alarmed   bool
	threshold Threshold
	lastScore uint16
}

// New creates a controller in AirQualityMode and subscribes it to the bus.
func New(bus *pubsub.Bus, out *led.Output, countdown *timer.Countdown, log *zap.SugaredLogger) *Controller {
	c := &Controller{
		bus:       bus,
		out:       out,
		countdown: countdown,
		log:       log,
		mode:      ModeAirQuality,
		threshold: NewThreshold(),
		lastScore: airsensor.ScoreCyan,
	}
	out.SetBrightness(DefaultBrightness)
	bus.Subscribe(c.Update)
	return c
}

// Update routes one event. Dispatch is two-phase: globally prioritized
// handling first (alarm transitions, score bookkeeping), then the
// per-mode handling for the remaining kinds. Kinds a mode does not care
// about are no-ops.
func (c *Controller) Update(ev pubsub.Event) {
	switch ev.Kind {
	case pubsub.KindAlarmStateChanged:
		// Takes priority over any mode-local handling.
		c.alarmStateChanged(ev.On)
	case pubsub.KindAirQualityScore:
		c.lastScore = ev.Sample
	case pubsub.KindButtonA:
		if !ev.On {
			c.buttonAReleased()
		}
	case pubsub.KindButtonB:
		if !ev.On {
			c.buttonBReleased()
		}
	case pubsub.KindButtonX:
		if !ev.On {
			c.buttonXReleased()
		}
	case pubsub.KindButtonY:
		if !ev.On {
			c.buttonYReleased()
		}
	case pubsub.KindLedValueAirQuality:
		if c.mode == ModeAirQuality || c.mode == ModeAirQualityAlarm {
			c.out.SetColor(ev.Led)
		}
	case pubsub.KindLedValueProximity:
		if c.mode == ModeProximityDemo {
			c.out.SetColor(ev.Led)
		}
	case pubsub.KindLedValueColorRotation:
		if c.mode == ModeColorRotationDemo {
			c.out.SetColor(ev.Led)
		}
	case pubsub.KindLedValueMorseCode:
		c.morseEdge(ev)
	case pubsub.KindDemoTimerExpired:
		c.timerExpired()
	case pubsub.KindProximityStateChanged,
		pubsub.KindProximitySample,
		pubsub.KindAlarmSilenceRequest,
		pubsub.KindMorseEncodeRequest:
		// Not for the controller.
	}
}

func (c *Controller) alarmStateChanged(alarm bool) {
	if c.alarmed == alarm {
		return
	}
	c.alarmed = alarm
	if alarm {
		c.setState(ModeAirQualityAlarm)
	} else {
		c.setState(ModeAirQuality)
	}
}

func (c *Controller) buttonAReleased() {
	if c.mode == ModeAirQualityThreshold {
		c.incrementThreshold(thresholdModeTimeout)
		return
	}
	c.setState(ModeAirQualityThreshold)
}

func (c *Controller) buttonBReleased() {
	if c.mode == ModeAirQualityThreshold {
		c.decrementThreshold(thresholdModeTimeout)
		return
	}
	c.setState(ModeAirQualityThreshold)
}

func (c *Controller) buttonXReleased() {
	switch c.mode {
	case ModeAirQuality, ModeMorseReadout, ModeColorRotationDemo:
		c.setState(ModeProximityDemo)
	case ModeProximityDemo:
		c.setState(ModeMorseCodeDemo)
	case ModeMorseCodeDemo:
		c.setState(ModeColorRotationDemo)
	case ModeAirQualityThreshold, ModeAirQualityAlarm:
		// No-op.
	}
}

func (c *Controller) buttonYReleased() {
	switch c.mode {
	case ModeAirQualityAlarm:
		c.bus.Publish(pubsub.AlarmSilenceRequest(alarmSilenceSeconds))
	case ModeMorseReadout:
		c.setState(ModeAirQuality)
	default:
		c.setState(ModeMorseReadout)
	}
}

func (c *Controller) morseEdge(ev pubsub.Event) {
	switch c.mode {
	case ModeAirQualityAlarm, ModeMorseCodeDemo:
		c.applyMorseBrightness(ev.Led)
	case ModeMorseReadout:
		c.applyMorseBrightness(ev.Led)
		if ev.PatternFinished {
			c.setState(ModeAirQuality)
		}
	default:
		// Other modes ignore morse edges.
	}
}

func (c *Controller) applyMorseBrightness(v pubsub.LedValue) {
	if v.IsOff() {
		c.out.SetBrightness(0)
	} else {
		c.out.SetBrightness(DefaultBrightness)
	}
}

func (c *Controller) timerExpired() {
	switch c.mode {
	case ModeAirQualityThreshold, ModeProximityDemo, ModeMorseCodeDemo, ModeColorRotationDemo:
		c.setState(ModeAirQuality)
	default:
		// Not in a timeout-bearing mode; stale expiry is ignored.
	}
}

// setState is the only way to change modes: cancel the countdown, swap
// the mode value, run the entry action, restore default brightness, and
// arm the countdown for timeout-bearing modes. From the bus's point of
// view the whole transition is a single step.
func (c *Controller) setState(next Mode) {
	c.countdown.Cancel()
	old := c.mode
	c.mode = next
	c.out.SetBrightness(DefaultBrightness)

	switch next {
	case ModeAirQualityThreshold:
		c.log.Infof("threshold: %s", c.threshold.Text())
	case ModeAirQualityAlarm:
		c.startMorseReadout(0) // repeat until the alarm clears
	case ModeMorseReadout:
		c.startMorseReadout(1)
	case ModeMorseCodeDemo:
		c.out.SetColor(pubsub.LedValue{G: 255, B: 255})
		c.bus.Publish(pubsub.MorseEncodeRequest(demoPhrase, 0))
	case ModeAirQuality, ModeProximityDemo, ModeColorRotationDemo:
		// No entry action.
	}

	if d, ok := next.timeout(); ok {
		c.countdown.Arm(d)
	}

	c.log.Infof("mode changed: %s -> %s", old, next)
}

func (c *Controller) startMorseReadout(repeat uint32) {
	msg := fmt.Sprintf("AQ %s %d", airsensor.Describe(c.lastScore), c.lastScore)
	c.bus.Publish(pubsub.MorseEncodeRequest(msg, repeat))
}

func (c *Controller) incrementThreshold(rearm time.Duration) {
	c.threshold.Increment()
	c.countdown.Arm(rearm)
	c.log.Infof("threshold: %s", c.threshold.Text())
}

func (c *Controller) decrementThreshold(rearm time.Duration) {
	c.threshold.Decrement()
	c.countdown.Arm(rearm)
	c.log.Infof("threshold: %s", c.threshold.Text())
}

// Mode returns the active mode.
func (c *Controller) Mode() Mode {
	return c.mode
}

// Alarmed reports whether the alarm condition is currently raised.
func (c *Controller) Alarmed() bool {
	return c.alarmed
}

// Threshold returns the current alarm threshold.
func (c *Controller) Threshold() uint16 {
	return c.threshold.Value()
}

// ThresholdText returns the rendered threshold for display.
func (c *Controller) ThresholdText() string {
	return c.threshold.Text()
}

// LastScore returns the most recent air quality score.
func (c *Controller) LastScore() uint16 {
	return c.lastScore
}

// Package rotation produces the color wheel for the rotation demo. The
// rotator runs continuously and publishes color-rotation led-value
// events; the mode controller decides whether they reach the indicator.
package rotation

import (
	"sync"
	"time"

	"github.com/sweeney/airsense/internal/pubsub"
)

// DefaultInterval is the time between hue steps.
const DefaultInterval = 100 * time.Millisecond

// hueStep is how many degrees the wheel advances per interval.
const hueStep = 4

// Rotator cycles through fully saturated hues.
type Rotator struct {
	bus      *pubsub.Bus
	interval time.Duration
	done     chan struct{}
	once     sync.Once
	hue      int
}

// New starts a rotator publishing at the given interval. A non-positive
// interval selects DefaultInterval.
func New(bus *pubsub.Bus, interval time.Duration) *Rotator {
	if interval <= 0 {
		interval = DefaultInterval
	}
	r := &Rotator{
		bus:      bus,
		interval: interval,
		done:     make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *Rotator) run() {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			r.bus.Publish(pubsub.LedValueColorRotation(colorForHue(r.hue)))
			r.hue = (r.hue + hueStep) % 360
		}
	}
}

// Stop halts the rotator.
func (r *Rotator) Stop() {
	r.once.Do(func() { close(r.done) })
}

// colorForHue converts a hue in degrees to a fully saturated RGB value.
func colorForHue(h int) pubsub.LedValue {
	sextant := h / 60
	ramp := uint8(uint32(h%60) * 255 / 60)

	switch sextant {
	case 0:
		return pubsub.LedValue{R: 255, G: ramp}
	case 1:
		return pubsub.LedValue{R: 255 - ramp, G: 255}
	case 2:
		return pubsub.LedValue{G: 255, B: ramp}
	case 3:
		return pubsub.LedValue{G: 255 - ramp, B: 255}
	case 4:
		return pubsub.LedValue{R: ramp, B: 255}
	default:
		return pubsub.LedValue{R: 255, B: 255 - ramp}
	}
}

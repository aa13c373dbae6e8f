// Package buttons turns raw button samples into debounced state-change
// events. It has no hardware or OS dependencies; time is always passed in
// with the sample, so tests drive it deterministically.
package buttons

import (
	"time"

	"github.com/sweeney/airsense/internal/pubsub"
)

// Sample is one polled reading of all four buttons, already in logical
// form (true = pressed).
type Sample struct {
	A, B, X, Y bool
	Time       time.Time
}

// Counts tracks presses per button since startup.
type Counts struct {
	A, B, X, Y int
}

// channel tracks debounce state for a single button.
type channel struct {
	stable       bool
	pending      bool
	hasPending   bool
	pendingSince time.Time
	baselined    bool
}

// eventFor maps channel index to the matching event constructor.
var eventFor = [4]func(bool) pubsub.Event{
	pubsub.ButtonA, pubsub.ButtonB, pubsub.ButtonX, pubsub.ButtonY,
}

// Detector debounces the four buttons and emits events on stable
// transitions. No events are emitted until every button has held a
// stable state for the debounce duration once (the baseline), so a
// half-pressed button at boot does not fire a phantom event.
type Detector struct {
	debounce  time.Duration
	channels  [4]channel
	baselined bool
	counts    Counts
}

// NewDetector creates a detector with the given debounce duration.
func NewDetector(debounce time.Duration) *Detector {
	return &Detector{debounce: debounce}
}

// Process takes a new sample and returns the events to publish, in
// button order A, B, X, Y. Returns nil while establishing the baseline
// and for samples with no stable transition.
func (d *Detector) Process(s Sample) []pubsub.Event {
	states := [4]bool{s.A, s.B, s.X, s.Y}
	var changed [4]bool
	for i := range d.channels {
		changed[i] = d.processChannel(&d.channels[i], states[i], s.Time)
	}

	if !d.baselined {
		for i := range d.channels {
			if !d.channels[i].baselined {
				return nil
			}
		}
		d.baselined = true
		return nil
	}

	var events []pubsub.Event
	for i := range d.channels {
		if !changed[i] {
			continue
		}
		pressed := d.channels[i].stable
		events = append(events, eventFor[i](pressed))
		if pressed {
			switch i {
			case 0:
				d.counts.A++
			case 1:
				d.counts.B++
			case 2:
				d.counts.X++
			case 3:
				d.counts.Y++
			}
		}
	}
	return events
}

// processChannel handles debounce for one button. Returns whether a
// stable transition occurred.
func (d *Detector) processChannel(ch *channel, newState bool, now time.Time) bool {
	if !ch.baselined {
		if !ch.hasPending || ch.pending != newState {
			ch.pending = newState
			ch.hasPending = true
			ch.pendingSince = now
			return false
		}
		if now.Sub(ch.pendingSince) >= d.debounce {
			ch.stable = newState
			ch.baselined = true
			ch.hasPending = false
		}
		return false
	}

	if newState == ch.stable {
		ch.hasPending = false
		return false
	}

	if !ch.hasPending || ch.pending != newState {
		ch.pending = newState
		ch.hasPending = true
		ch.pendingSince = now
		return false
	}

	if now.Sub(ch.pendingSince) >= d.debounce {
		ch.stable = newState
		ch.hasPending = false
		return true
	}

	return false
}

// IsBaselined reports whether the detector has established a baseline.
func (d *Detector) IsBaselined() bool {
	return d.baselined
}

// State returns the current stable button states.
func (d *Detector) State() (a, b, x, y bool) {
	return d.channels[0].stable, d.channels[1].stable, d.channels[2].stable, d.channels[3].stable
}

// CountsSnapshot returns press counts since startup.
func (d *Detector) CountsSnapshot() Counts {
	return d.counts
}

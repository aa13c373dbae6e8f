package internal

import (
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/airsense/internal/airsensor"
	"github.com/sweeney/airsense/internal/buttons"
	"github.com/sweeney/airsense/internal/controller"
	"github.com/sweeney/airsense/internal/gpio"
	"github.com/sweeney/airsense/internal/led"
	"github.com/sweeney/airsense/internal/mqtt"
	"github.com/sweeney/airsense/internal/pubsub"
	"github.com/sweeney/airsense/internal/status"
	"github.com/sweeney/airsense/internal/timer"
)

// pipeline wires the event bus, led output, mode controller, sensor
// monitor, and status tracker together the way the daemon does, with a
// fake led driver for assertions.
type pipeline struct {
	bus       *pubsub.Bus
	driver    *led.FakeDriver
	out       *led.Output
	countdown *timer.Countdown
	ctrl      *controller.Controller
	monitor   *airsensor.Monitor
	tracker   *status.Tracker
}

func newPipeline(t *testing.T) *pipeline {
	t.Helper()
	p := &pipeline{
		bus:    pubsub.NewBus(),
		driver: led.NewFakeDriver(),
	}
	p.out = led.NewOutput(p.driver, controller.DefaultBrightness)
	p.countdown = timer.New(p.bus)
	p.ctrl = controller.New(p.bus, p.out, p.countdown, zap.NewNop().Sugar())
	p.monitor = airsensor.NewMonitor(p.bus, p.ctrl)
	p.tracker = status.NewTracker(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), status.Config{PollMs: 20, DebounceMs: 40})

	// Same registration order as the daemon: the tracker subscriber comes
	// after the controller so it sees post-transition state.
	p.bus.Subscribe(func(pubsub.Event) {
		score := p.ctrl.LastScore()
		p.tracker.SetDevice(p.ctrl.Mode().String(), p.ctrl.Alarmed(), p.ctrl.Threshold(), score, airsensor.Describe(score))
	})

	t.Cleanup(p.countdown.Cancel)
	return p
}

// clickButton publishes a press followed by a release.
func (p *pipeline) clickButton(build func(bool) pubsub.Event) {
	p.bus.Publish(build(true))
	p.bus.Publish(build(false))
}

// TestIntegrationScoreToIndicator verifies a sensor score flows through
// the monitor to the led driver while in air quality mode.
func TestIntegrationScoreToIndicator(t *testing.T) {
	p := newPipeline(t)

	p.bus.Publish(pubsub.AirQualityScore(800))

	want := airsensor.ColorForScore(800)
	if p.driver.R != want.R || p.driver.G != want.G || p.driver.B != want.B {
		t.Errorf("driver color: got (%d,%d,%d), want (%d,%d,%d)",
			p.driver.R, p.driver.G, p.driver.B, want.R, want.G, want.B)
	}
	if p.ctrl.LastScore() != 800 {
		t.Errorf("LastScore: got %d, want 800", p.ctrl.LastScore())
	}

	snap := p.tracker.Snapshot()
	if snap.Mode != "AirQualityMode" {
		t.Errorf("tracker Mode: got %q, want AirQualityMode", snap.Mode)
	}
	if snap.Description != "EXCELLENT" {
		t.Errorf("tracker Description: got %q, want EXCELLENT", snap.Description)
	}
}

// TestIntegrationAlarmRoundTrip drives the smoothed score below the
// threshold and back above it, checking the mode transitions.
func TestIntegrationAlarmRoundTrip(t *testing.T) {
	p := newPipeline(t)

	p.bus.Publish(pubsub.AirQualityScore(100))

	if !p.ctrl.Alarmed() {
		t.Fatal("expected alarm raised after low score")
	}
	if p.ctrl.Mode() != controller.ModeAirQualityAlarm {
		t.Fatalf("Mode: got %s, want AirQualityAlarmMode", p.ctrl.Mode())
	}
	snap := p.tracker.Snapshot()
	if !snap.Alarm {
		t.Error("tracker should report the alarm")
	}

	// Recovery: the smoothed score chases the good readings until it
	// crosses threshold plus hysteresis.
	for i := 0; i < 10 && p.ctrl.Alarmed(); i++ {
		p.bus.Publish(pubsub.AirQualityScore(1000))
	}

	if p.ctrl.Alarmed() {
		t.Fatal("expected alarm cleared after sustained good readings")
	}
	if p.ctrl.Mode() != controller.ModeAirQuality {
		t.Errorf("Mode: got %s, want AirQualityMode", p.ctrl.Mode())
	}
}

// TestIntegrationSilenceAlarm verifies a Y press during an alarm silences
// it through the monitor.
func TestIntegrationSilenceAlarm(t *testing.T) {
	p := newPipeline(t)

	p.bus.Publish(pubsub.AirQualityScore(100))
	if p.ctrl.Mode() != controller.ModeAirQualityAlarm {
		t.Fatalf("Mode: got %s, want AirQualityAlarmMode", p.ctrl.Mode())
	}

	p.clickButton(pubsub.ButtonY)

	if p.ctrl.Alarmed() {
		t.Error("expected alarm silenced")
	}
	if p.ctrl.Mode() != controller.ModeAirQuality {
		t.Errorf("Mode: got %s, want AirQualityMode", p.ctrl.Mode())
	}
	if p.monitor.Alarming() {
		t.Error("monitor should not be alarming while silenced")
	}

	// Low scores during the silence window must not re-raise.
	p.bus.Publish(pubsub.AirQualityScore(50))
	if p.ctrl.Alarmed() {
		t.Error("alarm re-raised during silence window")
	}
}

// TestIntegrationThresholdAdjustment runs the threshold mode flow:
// enter, adjust, then return on timer expiry.
func TestIntegrationThresholdAdjustment(t *testing.T) {
	p := newPipeline(t)

	p.clickButton(pubsub.ButtonA)
	if p.ctrl.Mode() != controller.ModeAirQualityThreshold {
		t.Fatalf("Mode: got %s, want AirQualityThresholdMode", p.ctrl.Mode())
	}

	p.clickButton(pubsub.ButtonA)
	if p.ctrl.Threshold() != controller.ThresholdDefault+controller.ThresholdStep {
		t.Errorf("Threshold: got %d, want %d", p.ctrl.Threshold(), controller.ThresholdDefault+controller.ThresholdStep)
	}

	p.clickButton(pubsub.ButtonB)
	p.clickButton(pubsub.ButtonB)
	if p.ctrl.Threshold() != controller.ThresholdDefault-controller.ThresholdStep {
		t.Errorf("Threshold: got %d, want %d", p.ctrl.Threshold(), controller.ThresholdDefault-controller.ThresholdStep)
	}

	// Inactivity timeout returns to monitoring.
	p.bus.Publish(pubsub.DemoTimerExpired())
	if p.ctrl.Mode() != controller.ModeAirQuality {
		t.Errorf("Mode after expiry: got %s, want AirQualityMode", p.ctrl.Mode())
	}

	snap := p.tracker.Snapshot()
	if snap.Threshold != controller.ThresholdDefault-controller.ThresholdStep {
		t.Errorf("tracker Threshold: got %d", snap.Threshold)
	}
}

// TestIntegrationButtonSamplesToMode drives debounced GPIO samples all
// the way to a mode change.
func TestIntegrationButtonSamplesToMode(t *testing.T) {
	p := newPipeline(t)

	samples := []gpio.Sample{
		// Baseline: all released for longer than the debounce window.
		{}, {}, {}, {},
		// X pressed.
		{X: true}, {X: true}, {X: true}, {X: true},
		// X released.
		{}, {}, {}, {},
	}

	reader := gpio.NewFakeReader(samples)
	detector := buttons.NewDetector(250 * time.Millisecond)
	startTime := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	for i := range samples {
		s, err := reader.Read()
		if err != nil {
			t.Fatalf("sample %d: gpio read error: %v", i, err)
		}
		now := startTime.Add(time.Duration(i) * 100 * time.Millisecond)
		for _, ev := range detector.Process(buttons.Sample{A: s.A, B: s.B, X: s.X, Y: s.Y, Time: now}) {
			p.bus.Publish(ev)
		}
	}

	// X released in air quality mode starts the proximity demo.
	if p.ctrl.Mode() != controller.ModeProximityDemo {
		t.Errorf("Mode: got %s, want ProximityDemo", p.ctrl.Mode())
	}
	if detector.CountsSnapshot().X != 1 {
		t.Errorf("Counts.X: got %d, want 1", detector.CountsSnapshot().X)
	}
}

// TestIntegrationTelemetry checks the full path from bus events to the
// publisher: mode change and alarm events with state snapshots attached.
func TestIntegrationTelemetry(t *testing.T) {
	p := newPipeline(t)
	pub := mqtt.NewFakePublisher()
	bridge := mqtt.NewBridge(p.bus, pub, p.ctrl, time.Hour, zap.NewNop().Sugar())
	t.Cleanup(bridge.Close)

	p.bus.Publish(pubsub.AirQualityScore(100)) // raises the alarm

	events := waitForEvents(t, pub, 3)

	var raised, modeChanged bool
	for _, ev := range events {
		switch ev.Type {
		case mqtt.EventAlarmRaised:
			raised = true
			if ev.Mode != "AirQualityAlarmMode" {
				t.Errorf("alarm event mode: got %q, want AirQualityAlarmMode", ev.Mode)
			}
			if !ev.Alarm {
				t.Error("alarm event should carry Alarm=true")
			}
		case mqtt.EventModeChanged:
			modeChanged = true
		}
	}
	if !raised {
		t.Error("expected an ALARM_RAISED event")
	}
	if !modeChanged {
		t.Error("expected a MODE_CHANGED event")
	}
}

// waitForEvents polls the fake publisher until n telemetry events arrive.
// The bridge publishes on its own goroutine, so arrival is asynchronous.
func waitForEvents(t *testing.T, pub *mqtt.FakePublisher, n int) []mqtt.Event {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		events := pub.EventsSnapshot()
		if len(events) >= n {
			return events
		}
		time.Sleep(time.Millisecond)
	}
	events := pub.EventsSnapshot()
	t.Fatalf("timed out waiting for %d telemetry events, got %d", n, len(events))
	return events
}

// TestIntegrationStatusEventPayload verifies the startup status payload
// reflects pipeline state.
func TestIntegrationStatusEventPayload(t *testing.T) {
	p := newPipeline(t)

	p.bus.Publish(pubsub.AirQualityScore(800))
	p.tracker.SetButtons(true, buttons.Counts{A: 2})

	payload := status.FormatStatusEvent(p.tracker.Snapshot(), "STARTUP", "")

	s := string(payload)
	for _, want := range []string{`"event":"STARTUP"`, `"mode":"AirQualityMode"`, `"description":"EXCELLENT"`} {
		if !strings.Contains(s, want) {
			t.Errorf("payload missing %s:\n%s", want, s)
		}
	}
}

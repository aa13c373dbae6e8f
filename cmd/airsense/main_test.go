package main

import (
	"errors"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/airsense/internal/config"
	"github.com/sweeney/airsense/internal/gpio"
	"github.com/sweeney/airsense/internal/mqtt"
	"github.com/sweeney/airsense/internal/pubsub"
	"github.com/sweeney/airsense/internal/status"
)

// fakeClock returns a function that yields start, start+step, start+2*step, ...
// on successive calls. Not safe for concurrent use (only called from runLoop's goroutine).
func fakeClock(start time.Time, step time.Duration) func() time.Time {
	n := 0
	return func() time.Time {
		t := start.Add(time.Duration(n) * step)
		n++
		return t
	}
}

// repeat returns n copies of sample.
func repeat(sample gpio.Sample, n int) []gpio.Sample {
	out := make([]gpio.Sample, n)
	for i := range out {
		out[i] = sample
	}
	return out
}

// faultReader wraps a FakeReader and returns errors for a range of Read() calls.
// No shared mutable state — the fault range is fixed at construction.
type faultReader struct {
	inner      *gpio.FakeReader
	call       int
	faultStart int // first call index that returns error (inclusive)
	faultEnd   int // last call index that returns error (exclusive)
}

func (r *faultReader) Read() (gpio.Sample, error) {
	i := r.call
	r.call++
	if i >= r.faultStart && i < r.faultEnd {
		return gpio.Sample{}, errors.New("gpio fault")
	}
	return r.inner.Read()
}

func (r *faultReader) Close() error { return r.inner.Close() }

// loopHarness bundles what runLoop needs plus a recorder for bus events.
type loopHarness struct {
	bus     *pubsub.Bus
	tracker *status.Tracker
	events  []pubsub.Event
}

func newLoopHarness(start time.Time) *loopHarness {
	h := &loopHarness{
		bus:     pubsub.NewBus(),
		tracker: status.NewTracker(start, status.Config{PollMs: 20, DebounceMs: 40, Broker: "tcp://localhost:1883"}),
	}
	h.bus.Subscribe(func(ev pubsub.Event) {
		h.events = append(h.events, ev)
	})
	return h
}

// runRunLoop drives runLoop with nTicks ticks followed by the signal.
func runRunLoop(t *testing.T, h *loopHarness, reader gpio.Reader, pub mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, debounce, heartbeat time.Duration, clock func() time.Time, nTicks int, signal os.Signal) error {
	t.Helper()
	tick := make(chan time.Time)
	sig := make(chan os.Signal, 1)

	errCh := make(chan error, 1)
	go func() {
		errCh <- runLoop(reader, h.bus, pub, mqttStatus, h.tracker, debounce, heartbeat, zap.NewNop().Sugar(), clock, tick, sig)
	}()

	for i := 0; i < nTicks; i++ {
		tick <- time.Time{}
	}
	sig <- signal

	return <-errCh
}

func TestRunLoopNoEventsAtBaseline(t *testing.T) {
	// 4 ticks of stable (all released) establishes the baseline without
	// emitting button events.
	samples := repeat(gpio.Sample{}, 4)
	h := newLoopHarness(time.Now())
	reader := gpio.NewFakeReader(samples)
	pub := mqtt.NewFakePublisher()
	clock := fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 100*time.Millisecond)

	err := runRunLoop(t, h, reader, pub, pub, 250*time.Millisecond, 0, clock, len(samples), syscall.SIGTERM)
	if err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if len(h.events) != 0 {
		t.Errorf("expected 0 bus events, got %d", len(h.events))
	}

	// Should have exactly one system event: SHUTDOWN
	if len(pub.SystemEvents) != 1 {
		t.Fatalf("expected 1 system event, got %d", len(pub.SystemEvents))
	}
	if pub.SystemEvents[0].Event != "SHUTDOWN" {
		t.Errorf("expected SHUTDOWN event, got %q", pub.SystemEvents[0].Event)
	}
}

func TestRunLoopPublishesButtonPress(t *testing.T) {
	// 4× baseline (all released) + 4× button A held → one press event
	samples := append(
		repeat(gpio.Sample{}, 4),
		repeat(gpio.Sample{A: true}, 4)...,
	)
	h := newLoopHarness(time.Now())
	reader := gpio.NewFakeReader(samples)
	pub := mqtt.NewFakePublisher()
	clock := fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 100*time.Millisecond)

	err := runRunLoop(t, h, reader, pub, pub, 250*time.Millisecond, 0, clock, len(samples), syscall.SIGTERM)
	if err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if len(h.events) != 1 {
		t.Fatalf("expected 1 bus event, got %d", len(h.events))
	}
	if h.events[0].Kind != pubsub.KindButtonA {
		t.Errorf("expected button A event, got %s", h.events[0].Kind)
	}
	if !h.events[0].On {
		t.Error("expected press (On=true)")
	}

	snap := h.tracker.Snapshot()
	if snap.Counts.A != 1 {
		t.Errorf("tracker Counts.A: got %d, want 1", snap.Counts.A)
	}
	if !snap.Baselined {
		t.Error("expected tracker Baselined=true")
	}
}

func TestRunLoopMultipleTransitions(t *testing.T) {
	// baseline → A press → A release → B press
	samples := append(
		repeat(gpio.Sample{}, 4), // baseline
		append(
			repeat(gpio.Sample{A: true}, 4), // A pressed
			append(
				repeat(gpio.Sample{}, 4), // A released
				repeat(gpio.Sample{B: true}, 4)..., // B pressed
			)...,
		)...,
	)
	h := newLoopHarness(time.Now())
	reader := gpio.NewFakeReader(samples)
	pub := mqtt.NewFakePublisher()
	clock := fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 100*time.Millisecond)

	err := runRunLoop(t, h, reader, pub, pub, 250*time.Millisecond, 0, clock, len(samples), syscall.SIGTERM)
	if err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if len(h.events) != 3 {
		t.Fatalf("expected 3 bus events, got %d", len(h.events))
	}

	want := []struct {
		kind pubsub.Kind
		on   bool
	}{
		{pubsub.KindButtonA, true},
		{pubsub.KindButtonA, false},
		{pubsub.KindButtonB, true},
	}
	for i, w := range want {
		if h.events[i].Kind != w.kind || h.events[i].On != w.on {
			t.Errorf("event %d: got %s on=%v, want %s on=%v",
				i, h.events[i].Kind, h.events[i].On, w.kind, w.on)
		}
	}
}

func TestRunLoopBounceRejection(t *testing.T) {
	// A single pressed sample shorter than the debounce window must not
	// produce an event.
	samples := append(
		repeat(gpio.Sample{}, 4), // baseline
		append(
			[]gpio.Sample{{A: true}}, // 1× bounce
			repeat(gpio.Sample{}, 4)..., // return to stable
		)...,
	)
	h := newLoopHarness(time.Now())
	reader := gpio.NewFakeReader(samples)
	pub := mqtt.NewFakePublisher()
	clock := fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 100*time.Millisecond)

	err := runRunLoop(t, h, reader, pub, pub, 250*time.Millisecond, 0, clock, len(samples), syscall.SIGTERM)
	if err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if len(h.events) != 0 {
		t.Errorf("expected 0 bus events (bounce rejected), got %d", len(h.events))
	}
}

func TestRunLoopGPIOReadError(t *testing.T) {
	// 2 valid reads then 2 faults. Loop should continue past errors
	// and still publish SHUTDOWN.
	inner := gpio.NewFakeReader(repeat(gpio.Sample{}, 2))
	reader := &faultReader{
		inner:      inner,
		faultStart: 2, // calls 2,3 return error
		faultEnd:   4,
	}

	h := newLoopHarness(time.Now())
	pub := mqtt.NewFakePublisher()
	clock := fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 100*time.Millisecond)

	err := runRunLoop(t, h, reader, pub, pub, 250*time.Millisecond, 0, clock, 4, syscall.SIGTERM)
	if err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	found := false
	for _, se := range pub.SystemEvents {
		if se.Event == "SHUTDOWN" {
			found = true
		}
	}
	if !found {
		t.Error("expected SHUTDOWN system event after GPIO errors")
	}
}

func TestRunLoopGPIOErrorRecovery(t *testing.T) {
	// Establish baseline (4 ticks), inject GPIO errors (3 ticks), then a
	// real press (4 ticks). Verifies the loop recovers normally.
	inner := gpio.NewFakeReader(append(
		repeat(gpio.Sample{}, 4), // baseline
		repeat(gpio.Sample{X: true}, 4)..., // press after recovery
	))
	reader := &faultReader{
		inner:      inner,
		faultStart: 4, // calls 4,5,6 return error (after baseline)
		faultEnd:   7,
	}

	h := newLoopHarness(time.Now())
	pub := mqtt.NewFakePublisher()
	clock := fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 100*time.Millisecond)

	// 4 baseline + 3 errors + 4 recovery = 11 ticks
	err := runRunLoop(t, h, reader, pub, pub, 250*time.Millisecond, 0, clock, 11, syscall.SIGTERM)
	if err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if len(h.events) != 1 {
		t.Fatalf("expected 1 bus event after recovery, got %d", len(h.events))
	}
	if h.events[0].Kind != pubsub.KindButtonX {
		t.Errorf("expected button X event, got %s", h.events[0].Kind)
	}
}

func TestRunLoopHeartbeat(t *testing.T) {
	// 5-minute clock step, 10-minute debounce, 15-minute heartbeat.
	// Clock calls: t0 = startTime, then t1(+5m)..t4(+20m) for ticks.
	// Baseline lands at t3 (10m since first sample); the heartbeat check
	// at t3 sees 15m elapsed and fires once.
	step := 5 * time.Minute
	debounce := 10 * time.Minute
	heartbeatInterval := 15 * time.Minute

	samples := repeat(gpio.Sample{}, 4)
	h := newLoopHarness(time.Now())
	reader := gpio.NewFakeReader(samples)
	pub := mqtt.NewFakePublisher()
	clock := fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), step)

	err := runRunLoop(t, h, reader, pub, pub, debounce, heartbeatInterval, clock, len(samples), syscall.SIGTERM)
	if err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	var heartbeats, shutdowns int
	for _, se := range pub.SystemEvents {
		switch se.Event {
		case "HEARTBEAT":
			heartbeats++
			if se.Heartbeat == nil {
				t.Fatal("HEARTBEAT event missing heartbeat info")
			}
			if se.Heartbeat.UptimeSeconds <= 0 {
				t.Errorf("expected positive uptime, got %d", se.Heartbeat.UptimeSeconds)
			}
			if len(se.RawPayload) == 0 {
				t.Error("expected HEARTBEAT RawPayload to carry the status snapshot")
			}
		case "SHUTDOWN":
			shutdowns++
		}
	}
	if heartbeats != 1 {
		t.Errorf("expected 1 HEARTBEAT event, got %d", heartbeats)
	}
	if shutdowns != 1 {
		t.Errorf("expected 1 SHUTDOWN event, got %d", shutdowns)
	}
}

func TestRunLoopHeartbeatDisabled(t *testing.T) {
	step := 5 * time.Minute
	samples := repeat(gpio.Sample{}, 6)
	h := newLoopHarness(time.Now())
	reader := gpio.NewFakeReader(samples)
	pub := mqtt.NewFakePublisher()
	clock := fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), step)

	err := runRunLoop(t, h, reader, pub, pub, 10*time.Minute, 0, clock, len(samples), syscall.SIGTERM)
	if err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	for _, se := range pub.SystemEvents {
		if se.Event == "HEARTBEAT" {
			t.Error("expected no HEARTBEAT events when interval is 0")
		}
	}
}

func TestRunLoopShutdownSIGINT(t *testing.T) {
	samples := repeat(gpio.Sample{}, 4)
	h := newLoopHarness(time.Now())
	reader := gpio.NewFakeReader(samples)
	pub := mqtt.NewFakePublisher()
	clock := fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 100*time.Millisecond)

	err := runRunLoop(t, h, reader, pub, pub, 250*time.Millisecond, 0, clock, len(samples), syscall.SIGINT)
	if err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if len(pub.SystemEvents) != 1 {
		t.Fatalf("expected 1 system event, got %d", len(pub.SystemEvents))
	}
	se := pub.SystemEvents[0]
	if se.Event != "SHUTDOWN" {
		t.Errorf("expected SHUTDOWN, got %q", se.Event)
	}
	if se.Reason != "SIGINT" {
		t.Errorf("expected reason SIGINT, got %q", se.Reason)
	}
	if se.Retained != true {
		t.Error("expected Retained=true for SHUTDOWN")
	}
	if !strings.Contains(string(se.RawPayload), "SHUTDOWN") {
		t.Error("expected RawPayload to carry the SHUTDOWN status event")
	}
}

func TestRunLoopShutdownSIGTERM(t *testing.T) {
	samples := repeat(gpio.Sample{}, 4)
	h := newLoopHarness(time.Now())
	reader := gpio.NewFakeReader(samples)
	pub := mqtt.NewFakePublisher()
	clock := fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 100*time.Millisecond)

	err := runRunLoop(t, h, reader, pub, pub, 250*time.Millisecond, 0, clock, len(samples), syscall.SIGTERM)
	if err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if len(pub.SystemEvents) != 1 {
		t.Fatalf("expected 1 system event, got %d", len(pub.SystemEvents))
	}
	se := pub.SystemEvents[0]
	if se.Reason != "SIGTERM" {
		t.Errorf("expected reason SIGTERM, got %q", se.Reason)
	}
}

func TestRunLoopPublishSystemError(t *testing.T) {
	// PublishSystem failing must not turn into a runLoop error.
	samples := repeat(gpio.Sample{}, 4)
	h := newLoopHarness(time.Now())
	reader := gpio.NewFakeReader(samples)
	pub := mqtt.NewFakePublisher()
	pub.PublishSystemError = errors.New("broker unavailable")
	clock := fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 100*time.Millisecond)

	err := runRunLoop(t, h, reader, pub, pub, 250*time.Millisecond, 0, clock, len(samples), syscall.SIGTERM)
	if err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}
}

func TestRunLoopNilPublisher(t *testing.T) {
	// Telemetry disabled: button events still flow, nothing panics.
	samples := append(
		repeat(gpio.Sample{}, 4),
		repeat(gpio.Sample{Y: true}, 4)...,
	)
	h := newLoopHarness(time.Now())
	reader := gpio.NewFakeReader(samples)
	clock := fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 100*time.Millisecond)

	err := runRunLoop(t, h, reader, nil, nil, 250*time.Millisecond, time.Minute, clock, len(samples), syscall.SIGTERM)
	if err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if len(h.events) != 1 {
		t.Fatalf("expected 1 bus event, got %d", len(h.events))
	}
	if h.events[0].Kind != pubsub.KindButtonY {
		t.Errorf("expected button Y event, got %s", h.events[0].Kind)
	}
}

func TestRunLoopUpdatesMQTTStatus(t *testing.T) {
	samples := repeat(gpio.Sample{}, 2)
	h := newLoopHarness(time.Now())
	reader := gpio.NewFakeReader(samples)
	pub := mqtt.NewFakePublisher()
	pub.Connected = true
	clock := fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 100*time.Millisecond)

	err := runRunLoop(t, h, reader, pub, pub, 250*time.Millisecond, 0, clock, len(samples), syscall.SIGTERM)
	if err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if !h.tracker.Snapshot().MQTTConnected {
		t.Error("expected tracker to report MQTT connected")
	}
}

func TestApplyOverrides(t *testing.T) {
	cfg := config.Default()
	applyOverrides(cfg, "tcp://10.0.0.1:1883", 10*time.Millisecond, 30*time.Millisecond, ":9999", "debug")

	if cfg.Broker != "tcp://10.0.0.1:1883" {
		t.Errorf("Broker: got %q", cfg.Broker)
	}
	if cfg.PollInterval != 10*time.Millisecond {
		t.Errorf("PollInterval: got %v", cfg.PollInterval)
	}
	if cfg.Debounce != 30*time.Millisecond {
		t.Errorf("Debounce: got %v", cfg.Debounce)
	}
	if cfg.HTTPAddr != ":9999" {
		t.Errorf("HTTPAddr: got %q", cfg.HTTPAddr)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel: got %q", cfg.LogLevel)
	}
}

func TestApplyOverridesZeroValuesKeepConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Broker = "tcp://configured:1883"

	applyOverrides(cfg, "", 0, 0, "", "")

	if cfg.Broker != "tcp://configured:1883" {
		t.Errorf("Broker: got %q, want configured value", cfg.Broker)
	}
	if cfg.PollInterval != config.DefaultPollInterval {
		t.Errorf("PollInterval: got %v", cfg.PollInterval)
	}
}

func TestStateString(t *testing.T) {
	if stateString(true) != "DOWN" {
		t.Errorf("stateString(true): got %q, want DOWN", stateString(true))
	}
	if stateString(false) != "UP" {
		t.Errorf("stateString(false): got %q, want UP", stateString(false))
	}
}

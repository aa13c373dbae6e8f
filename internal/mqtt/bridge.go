package mqtt

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/airsense/internal/airsensor"
	"github.com/sweeney/airsense/internal/controller"
	"github.com/sweeney/airsense/internal/pubsub"
)

// DefaultScoreInterval limits how often air-quality snapshots are
// published. Scores arrive at sensor rate; the broker does not need them
// that fast.
const DefaultScoreInterval = 30 * time.Second

// queueSize bounds the outbound queue. When the broker is slow or down,
// newer events are dropped rather than stalling the bus.
const queueSize = 64

// StateSource supplies the device state attached to every telemetry
// event. The mode controller satisfies it.
type StateSource interface {
	Mode() controller.Mode
	Alarmed() bool
	Threshold() uint16
	LastScore() uint16
}

// Bridge subscribes to the bus and forwards mode changes, alarm
// transitions, and air-quality snapshots to a Publisher. Publishing
// happens on a separate goroutine so broker latency never blocks event
// dispatch.
//
// Create the bridge after the controller: its handler reads the state
// source, and handlers run in registration order, so a later
// registration observes post-transition state.
type Bridge struct {
	pub        Publisher
	src        StateSource
	log        *zap.SugaredLogger
	now        func() time.Time
	scoreEvery time.Duration

	queue chan Event
	done  chan struct{}
	once  sync.Once

	// touched only from bus handlers
	lastMode     controller.Mode
	lastScorePub time.Time
}

// NewBridge creates a bridge and subscribes it to the bus. A
// non-positive scoreEvery selects DefaultScoreInterval.
func NewBridge(bus *pubsub.Bus, pub Publisher, src StateSource, scoreEvery time.Duration, log *zap.SugaredLogger) *Bridge {
	if scoreEvery <= 0 {
		scoreEvery = DefaultScoreInterval
	}
	b := &Bridge{
		pub:        pub,
		src:        src,
		log:        log,
		now:        time.Now,
		scoreEvery: scoreEvery,
		queue:      make(chan Event, queueSize),
		done:       make(chan struct{}),
		lastMode:   src.Mode(),
	}
	go b.run()
	bus.Subscribe(b.handle)
	return b
}

func (b *Bridge) handle(ev pubsub.Event) {
	switch ev.Kind {
	case pubsub.KindAlarmStateChanged:
		typ := EventAlarmCleared
		if ev.On {
			typ = EventAlarmRaised
		}
		b.enqueue(typ, b.src.Mode())
	case pubsub.KindAirQualityScore:
		now := b.now()
		if now.Sub(b.lastScorePub) >= b.scoreEvery {
			b.lastScorePub = now
			b.enqueue(EventAirQuality, b.src.Mode())
		}
	}

	if m := b.src.Mode(); m != b.lastMode {
		b.lastMode = m
		b.enqueue(EventModeChanged, m)
	}
}

// enqueue builds a snapshot event and queues it for publishing. Drops
// the event if the queue is full.
func (b *Bridge) enqueue(typ string, mode controller.Mode) {
	score := b.src.LastScore()
	ev := Event{
		Timestamp:   b.now(),
		Type:        typ,
		Mode:        mode.String(),
		Alarm:       b.src.Alarmed(),
		Score:       score,
		Description: airsensor.Describe(score),
		Threshold:   b.src.Threshold(),
	}

	select {
	case b.queue <- ev:
	default:
		b.log.Warnf("mqtt: queue full, dropping %s event", typ)
	}
}

func (b *Bridge) run() {
	for {
		select {
		case <-b.done:
			return
		case ev := <-b.queue:
			if err := b.pub.Publish(ev); err != nil {
				b.log.Warnf("mqtt: publish %s: %v", ev.Type, err)
			}
		}
	}
}

// Close stops the publishing goroutine. Queued events are discarded.
// The underlying publisher is not closed.
func (b *Bridge) Close() {
	b.once.Do(func() { close(b.done) })
}

package airsensor

import (
	"math/rand"
	"sync"
	"time"

	"github.com/sweeney/airsense/internal/pubsub"
)

// DefaultSimInterval is how often the simulator emits a score.
const DefaultSimInterval = time.Second

// simStep bounds how far the simulated score moves per sample.
const simStep = 64

// Simulator publishes a random-walk air quality score, standing in for
// sensor hardware on machines without one.
type Simulator struct {
	bus      *pubsub.Bus
	interval time.Duration
	done     chan struct{}
	once     sync.Once
	rng      *rand.Rand
	score    int
}

// NewSimulator starts a simulator emitting scores at the given interval.
// A non-positive interval selects DefaultSimInterval.
func NewSimulator(bus *pubsub.Bus, interval time.Duration) *Simulator {
	if interval <= 0 {
		interval = DefaultSimInterval
	}
	s := &Simulator{
		bus:      bus,
		interval: interval,
		done:     make(chan struct{}),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		score:    int(ScoreCyan),
	}
	go s.run()
	return s
}

func (s *Simulator) run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.score += s.rng.Intn(2*simStep+1) - simStep
			if s.score < 0 {
				s.score = 0
			}
			if s.score > int(MaxScore) {
				s.score = int(MaxScore)
			}
			s.bus.Publish(pubsub.AirQualityScore(uint16(s.score)))
		}
	}
}

// Stop halts the simulator.
func (s *Simulator) Stop() {
	s.once.Do(func() { close(s.done) })
}

// Package morse plays messages as morse code by publishing led-value edge
// events on the bus. It consumes morse-encode-request events; the mode
// controller decides whether the edges reach the indicator.
package morse

import (
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/airsense/internal/pubsub"
)

// DefaultUnit is the duration of a dit. A dah is three units; gaps are
// one unit between symbols, three between letters, seven between words.
const DefaultUnit = 60 * time.Millisecond

var table = map[rune]string{
	'A': ".-", 'B': "-...", 'C': "-.-.", 'D': "-..", 'E': ".",
	'F': "..-.", 'G': "--.", 'H': "....", 'I': "..", 'J': ".---",
	'K': "-.-", 'L': ".-..", 'M': "--", 'N': "-.", 'O': "---",
	'P': ".--.", 'Q': "--.-", 'R': ".-.", 'S': "...", 'T': "-",
	'U': "..-", 'V': "...-", 'W': ".--", 'X': "-..-", 'Y': "-.--",
	'Z': "--..",
	'0': "-----", '1': ".----", '2': "..---", '3': "...--", '4': "....-",
	'5': ".....", '6': "-....", '7': "--...", '8': "---..", '9': "----.",
	'?': "..--..", '@': ".--.-.",
}

// edge is one run of the indicator being on or off, measured in dit units.
type edge struct {
	on    bool
	units int
}

// sequence converts a message into a run-length edge list. Characters
// without an encoding are dropped. The list always ends with an off edge
// covering the trailing letter gap.
func sequence(msg string) []edge {
	var edges []edge
	pendingOff := 0
	flush := func() {
		if pendingOff > 0 {
			edges = append(edges, edge{on: false, units: pendingOff})
			pendingOff = 0
		}
	}

	for _, r := range strings.ToUpper(msg) {
		if r == ' ' {
			// Letter gap already pending (3); extend to a word gap (7).
			if pendingOff > 0 {
				pendingOff += 4
			}
			continue
		}
		code, ok := table[r]
		if !ok {
			continue
		}
		for _, sym := range code {
			flush()
			units := 1
			if sym == '-' {
				units = 3
			}
			edges = append(edges, edge{on: true, units: units})
			pendingOff = 1
		}
		// One blank is already pending after the last symbol; letters are
		// separated by three.
		pendingOff += 2
	}
	flush()
	return edges
}

// Encoder subscribes to encode requests and plays them back. A new
// request replaces the current playback; repeat 0 plays forever.
type Encoder struct {
	bus  *pubsub.Bus
	log  *zap.SugaredLogger
	unit time.Duration

	mu        sync.Mutex
	gen       uint64
	timer     *time.Timer
	edges     []edge
	idx       int
	remaining uint32
	infinite  bool
	playing   bool
}

// New creates an encoder and subscribes it to the bus. A non-positive
// unit selects DefaultUnit.
func New(bus *pubsub.Bus, unit time.Duration, log *zap.SugaredLogger) *Encoder {
	if unit <= 0 {
		unit = DefaultUnit
	}
	e := &Encoder{bus: bus, log: log, unit: unit}
	bus.Subscribe(e.handle)
	return e
}

func (e *Encoder) handle(ev pubsub.Event) {
	if ev.Kind != pubsub.KindMorseEncodeRequest {
		return
	}
	e.Play(ev.Message, ev.Repeat)
}

// Play starts (or restarts) playback of message. repeat 0 plays forever.
func (e *Encoder) Play(message string, repeat uint32) {
	edges := sequence(message)

	e.mu.Lock()
	e.gen++
	gen := e.gen
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	if len(edges) == 0 {
		e.playing = false
		e.mu.Unlock()
		e.log.Warnf("morse: nothing to encode in %q", message)
		return
	}
	e.edges = edges
	e.idx = 0
	e.remaining = repeat
	e.infinite = repeat == 0
	e.playing = true
	e.mu.Unlock()

	e.log.Infof("morse: playing %q (repeat=%d)", message, repeat)
	e.step(gen)
}

// Stop halts playback. Stopping an idle encoder is a no-op.
func (e *Encoder) Stop() {
	e.mu.Lock()
	e.gen++
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.playing = false
	e.mu.Unlock()
}

// IsIdle reports whether nothing is playing.
func (e *Encoder) IsIdle() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.playing
}

// step publishes the current edge and schedules the next one.
func (e *Encoder) step(gen uint64) {
	e.mu.Lock()
	if gen != e.gen {
		e.mu.Unlock()
		return
	}

	cur := e.edges[e.idx]
	last := e.idx == len(e.edges)-1
	finished := false

	if last {
		if e.infinite {
			e.idx = 0
		} else if e.remaining > 1 {
			e.remaining--
			e.idx = 0
		} else {
			finished = true
			e.playing = false
		}
	} else {
		e.idx++
	}

	if !finished {
		e.timer = time.AfterFunc(time.Duration(cur.units)*e.unit, func() { e.step(gen) })
	} else {
		e.timer = nil
	}
	e.mu.Unlock()

	var v pubsub.LedValue
	if cur.on {
		v = pubsub.LedValue{R: 255, G: 255, B: 255}
	}
	e.bus.Publish(pubsub.LedValueMorseCode(v, finished))
}

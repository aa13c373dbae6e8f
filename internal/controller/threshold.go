package controller

import "strconv"

// Threshold adjustment constants. The threshold moves in fixed steps and
// clamps at the ends; adjustment at a boundary is a no-op, not an error.
const (
	ThresholdStep    uint16 = 128
	ThresholdMax     uint16 = 768
	ThresholdDefault uint16 = 384
)

// Threshold is the alarm threshold with a cached textual rendering for
// display, so readouts never format in the event path.
type Threshold struct {
	value uint16
	text  string
}

// NewThreshold returns a threshold at the default mid-range value.
func NewThreshold() Threshold {
	t := Threshold{value: ThresholdDefault}
	t.render()
	return t
}

// Increment raises the threshold one step, clamping at ThresholdMax.
func (t *Threshold) Increment() {
	if t.value < ThresholdMax {
		t.value += ThresholdStep
		t.render()
	}
}

// Decrement lowers the threshold one step, clamping at zero.
func (t *Threshold) Decrement() {
	if t.value > 0 {
		t.value -= ThresholdStep
		t.render()
	}
}

// Value returns the current threshold.
func (t *Threshold) Value() uint16 {
	return t.value
}

// Text returns the cached rendering of the current threshold.
func (t *Threshold) Text() string {
	return t.text
}

func (t *Threshold) render() {
	t.text = strconv.Itoa(int(t.value))
}

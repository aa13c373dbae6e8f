//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealReader reads the buttons from actual hardware using the Linux GPIO
// character device.
type RealReader struct {
	chip  *gpiocdev.Chip
	lines [4]*gpiocdev.Line
}

// NewRealReader creates a GPIO reader for actual hardware. Pins are given
// in button order A, B, X, Y (BCM numbering).
func NewRealReader(pinA, pinB, pinX, pinY int) (*RealReader, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	r := &RealReader{chip: chip}
	pins := [4]int{pinA, pinB, pinX, pinY}
	names := [4]string{"A", "B", "X", "Y"}

	// Buttons are wired active-low, so request lines as input with
	// pull-up: released reads 1, pressed reads 0.
	for i, pin := range pins {
		line, err := chip.RequestLine(pin, gpiocdev.AsInput, gpiocdev.WithPullUp)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("request button %s pin %d: %w", names[i], pin, err)
		}
		r.lines[i] = line
	}

	return r, nil
}

// Read returns the logical states of the four buttons.
// Inverts raw GPIO: raw low (0) = pressed, raw high (1) = released.
func (r *RealReader) Read() (Sample, error) {
	var states [4]bool
	names := [4]string{"A", "B", "X", "Y"}

	for i, line := range r.lines {
		raw, err := line.Value()
		if err != nil {
			return Sample{}, fmt.Errorf("read button %s: %w", names[i], err)
		}
		states[i] = raw == 0
	}

	return Sample{A: states[0], B: states[1], X: states[2], Y: states[3]}, nil
}

// Close releases GPIO resources. Lines are reconfigured back to plain
// inputs before closing so the pins are left in a clean state.
func (r *RealReader) Close() error {
	var errs []error

	for i, line := range r.lines {
		if line == nil {
			continue
		}
		if err := line.Reconfigure(gpiocdev.AsInput); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure line %d: %w", i, err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close line %d: %w", i, err))
		}
		r.lines[i] = nil
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		r.chip = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

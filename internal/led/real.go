//go:build linux

package led

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealDriver drives an RGB LED wired to three GPIO output lines.
//
// Plain GPIO lines are binary, so each channel is lit when its value
// crosses half scale and the overall brightness is nonzero. A PWM-capable
// board would map the 8-bit values directly instead.
type RealDriver struct {
	chip       *gpiocdev.Chip
	red        *gpiocdev.Line
	green      *gpiocdev.Line
	blue       *gpiocdev.Line
	r, g, b    uint8
	brightness uint8
}

// channelThreshold is the 8-bit level at which a binary channel turns on.
const channelThreshold = 128

// NewRealDriver creates an LED driver for actual hardware.
func NewRealDriver(pinRed, pinGreen, pinBlue int) (*RealDriver, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	d := &RealDriver{chip: chip}
	pins := []struct {
		pin  int
		line **gpiocdev.Line
		name string
	}{
		{pinRed, &d.red, "red"},
		{pinGreen, &d.green, "green"},
		{pinBlue, &d.blue, "blue"},
	}
	for _, p := range pins {
		line, err := chip.RequestLine(p.pin, gpiocdev.AsOutput(0))
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("request %s pin %d: %w", p.name, p.pin, err)
		}
		*p.line = line
	}

	return d, nil
}

// SetColor sets the RGB channels and reapplies the output.
func (d *RealDriver) SetColor(r, g, b uint8) {
	d.r, d.g, d.b = r, g, b
	d.apply()
}

// SetBrightness sets the brightness and reapplies the output.
func (d *RealDriver) SetBrightness(level uint8) {
	d.brightness = level
	d.apply()
}

func (d *RealDriver) apply() {
	lit := d.brightness > 0
	d.setLine(d.red, lit && d.r >= channelThreshold)
	d.setLine(d.green, lit && d.g >= channelThreshold)
	d.setLine(d.blue, lit && d.b >= channelThreshold)
}

func (d *RealDriver) setLine(line *gpiocdev.Line, on bool) {
	if line == nil {
		return
	}
	v := 0
	if on {
		v = 1
	}
	// Output write failures are not actionable mid-update; Close surfaces
	// persistent line problems.
	_ = line.SetValue(v)
}

// Close turns the indicator off and releases GPIO resources.
func (d *RealDriver) Close() error {
	var errs []error

	for _, line := range []*gpiocdev.Line{d.red, d.green, d.blue} {
		if line == nil {
			continue
		}
		if err := line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("clear line: %w", err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close line: %w", err))
		}
	}
	if d.chip != nil {
		if err := d.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

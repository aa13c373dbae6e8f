//go:build !linux

package led

import "errors"

// RealDriver is not available on non-Linux platforms.
type RealDriver struct{}

// NewRealDriver returns an error on non-Linux platforms.
func NewRealDriver(pinRed, pinGreen, pinBlue int) (*RealDriver, error) {
	return nil, errors.New("led: not supported on this platform (requires Linux)")
}

// SetColor is not implemented on non-Linux platforms.
func (d *RealDriver) SetColor(r, g, b uint8) {}

// SetBrightness is not implemented on non-Linux platforms.
func (d *RealDriver) SetBrightness(level uint8) {}

// Close is not implemented on non-Linux platforms.
func (d *RealDriver) Close() error {
	return nil
}

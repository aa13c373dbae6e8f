// Package led drives the RGB indicator with hardware abstraction.
// The real implementation uses Linux GPIO character device output lines.
// The fake implementation allows testing without hardware.
package led

// Driver applies color and brightness to the physical indicator.
type Driver interface {
	// SetColor sets the RGB channels.
	SetColor(r, g, b uint8)

	// SetBrightness sets the overall brightness, 0 (off) to 255.
	SetBrightness(level uint8)

	// Close releases indicator resources.
	Close() error
}

// Pin definitions (BCM numbering)
const (
	DefaultPinRed   = 17
	DefaultPinGreen = 27
	DefaultPinBlue  = 22
)

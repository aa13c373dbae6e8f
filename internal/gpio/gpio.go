// Package gpio provides button input reading with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Sample represents a single reading of all four buttons (already in
// logical form, true = pressed).
type Sample struct {
	A, B, X, Y bool
}

// Reader reads button input states.
type Reader interface {
	// Read returns the logical states of the four buttons.
	// The raw GPIO values are inverted: buttons are wired active-low.
	Read() (Sample, error)

	// Close releases GPIO resources.
	Close() error
}

// Pin definitions (BCM numbering)
const (
	DefaultPinA = 5
	DefaultPinB = 6
	DefaultPinX = 12
	DefaultPinY = 13
)

package led

import "github.com/sweeney/airsense/internal/pubsub"

// Output layers passthrough/override semantics over a Driver.
//
// In passthrough state the indicator shows the stored color and
// brightness, updated as new values come in. In override state it is
// frozen at an externally supplied color until EndOverride; passthrough
// writes made in the meantime are remembered and take effect exactly once
// the override ends.
type Output struct {
	driver     Driver
	override   bool
	color      pubsub.LedValue
	brightness uint8
}

// NewOutput creates an Output in passthrough state and applies the
// initial values to the driver.
func NewOutput(driver Driver, brightness uint8) *Output {
	o := &Output{driver: driver, brightness: brightness}
	o.apply()
	return o
}

// SetColor stores the passthrough color and, if not overridden, applies it.
func (o *Output) SetColor(v pubsub.LedValue) {
	o.color = v
	o.apply()
}

// SetBrightness stores the passthrough brightness and, if not overridden,
// applies it.
func (o *Output) SetBrightness(level uint8) {
	o.brightness = level
	o.apply()
}

// Override freezes the indicator at the given color and brightness until
// EndOverride. Stored passthrough values are untouched.
func (o *Output) Override(v pubsub.LedValue, brightness uint8) {
	o.override = true
	o.driver.SetColor(v.R, v.G, v.B)
	o.driver.SetBrightness(brightness)
}

// EndOverride returns to passthrough state and re-applies the stored
// values. Calling it while already in passthrough is a no-op.
func (o *Output) EndOverride() {
	if !o.override {
		return
	}
	o.override = false
	o.apply()
}

// Overridden reports whether an override is active.
func (o *Output) Overridden() bool {
	return o.override
}

// Color returns the stored passthrough color.
func (o *Output) Color() pubsub.LedValue {
	return o.color
}

// Brightness returns the stored passthrough brightness.
func (o *Output) Brightness() uint8 {
	return o.brightness
}

func (o *Output) apply() {
	if o.override {
		return
	}
	o.driver.SetColor(o.color.R, o.color.G, o.color.B)
	o.driver.SetBrightness(o.brightness)
}

package led

// FakeDriver is a test double that records applied values.
type FakeDriver struct {
	// R, G, B hold the last applied color.
	R, G, B uint8

	// Brightness holds the last applied brightness.
	Brightness uint8

	// ColorWrites counts SetColor calls.
	ColorWrites int

	// BrightnessWrites counts SetBrightness calls.
	BrightnessWrites int

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeDriver creates a FakeDriver with everything off.
func NewFakeDriver() *FakeDriver {
	return &FakeDriver{}
}

// SetColor records the applied color.
func (f *FakeDriver) SetColor(r, g, b uint8) {
	f.R, f.G, f.B = r, g, b
	f.ColorWrites++
}

// SetBrightness records the applied brightness.
func (f *FakeDriver) SetBrightness(level uint8) {
	f.Brightness = level
	f.BrightnessWrites++
}

// Close marks the driver as closed.
func (f *FakeDriver) Close() error {
	f.Closed = true
	return nil
}

// IsLit reports whether the indicator would be visibly on.
func (f *FakeDriver) IsLit() bool {
	return f.Brightness > 0 && (f.R > 0 || f.G > 0 || f.B > 0)
}

package controller

import "time"

// Mode is one exclusive behavioral state of the device. Exactly one mode
// is active at any time; the controller holds it as a plain tagged value,
// so entering a mode never allocates.
type Mode uint8

const (
	// ModeAirQuality is the default mode: the indicator shows the live
	// air quality color.
	ModeAirQuality Mode = iota

	// ModeAirQualityThreshold adjusts the alarm threshold with buttons A
	// and B. Returns to ModeAirQuality after 3 seconds of inactivity.
	ModeAirQualityThreshold

	// ModeAirQualityAlarm repeats a morse readout of the air quality
	// until the alarm clears or is silenced.
	ModeAirQualityAlarm

	// ModeMorseReadout plays the air quality readout once.
	ModeMorseReadout

	// ModeProximityDemo shows the proximity color. Demo mode.
	ModeProximityDemo

	// ModeMorseCodeDemo blinks a fixed phrase in morse code. Demo mode.
	ModeMorseCodeDemo

	// ModeColorRotationDemo shows the rotating color. Demo mode.
	ModeColorRotationDemo
)

var modeNames = [...]string{
	ModeAirQuality:          "AirQualityMode",
	ModeAirQualityThreshold: "AirQualityThresholdMode",
	ModeAirQualityAlarm:     "AirQualityAlarmMode",
	ModeMorseReadout:        "MorseReadout",
	ModeProximityDemo:       "ProximityDemo",
	ModeMorseCodeDemo:       "MorseCodeDemo",
	ModeColorRotationDemo:   "ColorRotationDemo",
}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "unknown"
}

const (
	// thresholdModeTimeout keeps the threshold mode alive between button
	// presses.
	thresholdModeTimeout = 3 * time.Second

	// demoModeTimeout returns demo modes to air quality monitoring.
	demoModeTimeout = 30 * time.Second
)

// timeout returns the mode's auto-return countdown duration, if it has one.
func (m Mode) timeout() (time.Duration, bool) {
	switch m {
	case ModeAirQualityThreshold:
		return thresholdModeTimeout, true
	case ModeProximityDemo, ModeMorseCodeDemo, ModeColorRotationDemo:
		return demoModeTimeout, true
	default:
		return 0, false
	}
}

// Package pubsub carries the device's closed event set between components.
// Events are immutable values; the bus delivers them synchronously, in
// registration order, one at a time.
package pubsub

// Kind identifies one of the enumerated event kinds. The set is closed:
// no other kinds are ever constructed.
type Kind uint8

const (
	KindAlarmStateChanged Kind = iota
	KindButtonA
	KindButtonB
	KindButtonX
	KindButtonY
	KindLedValueColorRotation
	KindLedValueMorseCode
	KindLedValueProximity
	KindLedValueAirQuality
	KindProximityStateChanged
	KindProximitySample
	KindAirQualityScore
	KindDemoTimerExpired
	KindAlarmSilenceRequest
	KindMorseEncodeRequest
)

var kindNames = [...]string{
	KindAlarmStateChanged:     "alarm-state-changed",
	KindButtonA:               "button-a-state-changed",
	KindButtonB:               "button-b-state-changed",
	KindButtonX:               "button-x-state-changed",
	KindButtonY:               "button-y-state-changed",
	KindLedValueColorRotation: "led-value-color-rotation",
	KindLedValueMorseCode:     "led-value-morse-code",
	KindLedValueProximity:     "led-value-proximity",
	KindLedValueAirQuality:    "led-value-air-quality",
	KindProximityStateChanged: "proximity-state-changed",
	KindProximitySample:       "proximity-sample",
	KindAirQualityScore:       "air-quality-score",
	KindDemoTimerExpired:      "demo-timer-expired",
	KindAlarmSilenceRequest:   "alarm-silence-request",
	KindMorseEncodeRequest:    "morse-encode-request",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// LedValue is an RGB color, 8 bits per channel.
type LedValue struct {
	R, G, B uint8
}

// IsOff reports whether all channels are zero.
func (v LedValue) IsOff() bool {
	return v == LedValue{}
}

// Event is a flat tagged value. Only the fields relevant to Kind are set;
// use the constructors below rather than building Events by hand. Keeping
// the payload inline (no interface, no pointer) means publishing never
// allocates.
type Event struct {
	Kind Kind

	// On carries the boolean payload: alarm raised, button pressed, or
	// proximity detected, depending on Kind.
	On bool

	// Led carries the color for the four led-value kinds.
	Led LedValue

	// PatternFinished is set on the final morse led-value of a message.
	PatternFinished bool

	// Sample carries proximity-sample and air-quality-score payloads.
	Sample uint16

	// Seconds is the alarm-silence-request duration.
	Seconds uint32

	// Message and Repeat form a morse-encode-request. Repeat 0 means
	// repeat forever.
	Message string
	Repeat  uint32
}

// AlarmStateChanged reports that the alarm condition was raised or cleared.
func AlarmStateChanged(alarm bool) Event {
	return Event{Kind: KindAlarmStateChanged, On: alarm}
}

// ButtonA reports a state change of button A.
func ButtonA(pressed bool) Event { return Event{Kind: KindButtonA, On: pressed} }

// ButtonB reports a state change of button B.
func ButtonB(pressed bool) Event { return Event{Kind: KindButtonB, On: pressed} }

// ButtonX reports a state change of button X.
func ButtonX(pressed bool) Event { return Event{Kind: KindButtonX, On: pressed} }

// ButtonY reports a state change of button Y.
func ButtonY(pressed bool) Event { return Event{Kind: KindButtonY, On: pressed} }

// LedValueColorRotation is a color reported by the color rotation producer.
func LedValueColorRotation(v LedValue) Event {
	return Event{Kind: KindLedValueColorRotation, Led: v}
}

// LedValueMorseCode is a morse edge: a lit color for "on" edges, the zero
// color for "off" edges. finished marks the last edge of the message.
func LedValueMorseCode(v LedValue, finished bool) Event {
	return Event{Kind: KindLedValueMorseCode, Led: v, PatternFinished: finished}
}

// LedValueProximity is a color reported by the proximity producer.
func LedValueProximity(v LedValue) Event {
	return Event{Kind: KindLedValueProximity, Led: v}
}

// LedValueAirQuality is a color reported by the air quality producer.
func LedValueAirQuality(v LedValue) Event {
	return Event{Kind: KindLedValueAirQuality, Led: v}
}

// ProximityStateChanged reports that something came into or left range.
func ProximityStateChanged(near bool) Event {
	return Event{Kind: KindProximityStateChanged, On: near}
}

// ProximitySample is a raw proximity reading. 0 is farthest, 65535 nearest.
func ProximitySample(sample uint16) Event {
	return Event{Kind: KindProximitySample, Sample: sample}
}

// AirQualityScore is a 10-bit score from 0 (very poor) to 1023 (excellent).
func AirQualityScore(score uint16) Event {
	return Event{Kind: KindAirQualityScore, Sample: score}
}

// DemoTimerExpired is published by the countdown timer on expiry.
func DemoTimerExpired() Event { return Event{Kind: KindDemoTimerExpired} }

// AlarmSilenceRequest asks the alarm producer to hold off for the given
// number of seconds.
func AlarmSilenceRequest(seconds uint32) Event {
	return Event{Kind: KindAlarmSilenceRequest, Seconds: seconds}
}

// MorseEncodeRequest asks the morse service to play message. Repeat 0
// plays forever.
func MorseEncodeRequest(message string, repeat uint32) Event {
	return Event{Kind: KindMorseEncodeRequest, Message: message, Repeat: repeat}
}

// Package airsensor maps 10-bit air quality scores to indicator colors
// and human-readable descriptions, and republishes scores as led-value
// events for the mode controller.
package airsensor

import "github.com/sweeney/airsense/internal/pubsub"

// Score landmarks on the 0..1023 scale. The names describe the color the
// indicator shows at that score, from very bad (red) to very good (blue).
const (
	ScoreRed        uint16 = 0
	ScoreOrange     uint16 = 128
	ScoreYellow     uint16 = 256
	ScoreLightGreen uint16 = 384
	ScoreGreen      uint16 = 512
	ScoreBlueGreen  uint16 = 640
	ScoreCyan       uint16 = 768
	ScoreLightBlue  uint16 = 896
	ScoreBlue       uint16 = 1023
)

// MaxScore is the best possible air quality score.
const MaxScore = ScoreBlue

// colorStops anchor the score-to-color ramp; scores between stops are
// interpolated linearly.
var colorStops = []struct {
	score uint16
	color pubsub.LedValue
}{
	{ScoreRed, pubsub.LedValue{R: 255}},
	{ScoreOrange, pubsub.LedValue{R: 255, G: 128}},
	{ScoreYellow, pubsub.LedValue{R: 255, G: 255}},
	{ScoreLightGreen, pubsub.LedValue{R: 128, G: 255}},
	{ScoreGreen, pubsub.LedValue{G: 255}},
	{ScoreBlueGreen, pubsub.LedValue{G: 255, B: 128}},
	{ScoreCyan, pubsub.LedValue{G: 255, B: 255}},
	{ScoreLightBlue, pubsub.LedValue{G: 128, B: 255}},
	{ScoreBlue, pubsub.LedValue{B: 255}},
}

// ColorForScore returns the indicator color for a score. Scores above
// MaxScore clamp to the blue end.
func ColorForScore(score uint16) pubsub.LedValue {
	if score >= MaxScore {
		return colorStops[len(colorStops)-1].color
	}
	for i := 1; i < len(colorStops); i++ {
		if score >= colorStops[i].score {
			continue
		}
		lo, hi := colorStops[i-1], colorStops[i]
		span := int(hi.score) - int(lo.score)
		frac := int(score) - int(lo.score)
		return pubsub.LedValue{
			R: lerp(lo.color.R, hi.color.R, frac, span),
			G: lerp(lo.color.G, hi.color.G, frac, span),
			B: lerp(lo.color.B, hi.color.B, frac, span),
		}
	}
	return colorStops[len(colorStops)-1].color
}

func lerp(a, b uint8, num, den int) uint8 {
	return uint8(int(a) + (int(b)-int(a))*num/den)
}

// Describe returns a short description of a score, suitable for morse
// readout.
func Describe(score uint16) string {
	switch {
	case score > MaxScore:
		return "INVALID"
	case score < ScoreOrange:
		return "TERRIBLE"
	case score < ScoreYellow:
		return "BAD"
	case score < ScoreLightGreen:
		return "MEDIOCRE"
	case score < ScoreGreen:
		return "OKAY"
	case score < ScoreBlueGreen:
		return "GOOD"
	case score < ScoreCyan:
		return "VERY GOOD"
	case score < ScoreLightBlue:
		return "EXCELLENT"
	default:
		return "SUPERB"
	}
}

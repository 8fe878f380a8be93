package search

import "github.com/inkhaven/inkdex/internal/models"

// Distance thresholds for the relevance bands. Cosine distance below
// highThreshold reads as a strong match; at or above lowThreshold the hit is
// only loosely related. The bands are fixed, not configurable: downstream
// display code keys on the three labels.
const (
	highThreshold = 0.3
	lowThreshold  = 0.7
)

// Score maps a cosine distance to a 0-100 display score: (1 - distance) * 100,
// clamped. Lower distance always yields a higher or equal score.
func Score(distance float64) float64 {
	score := (1 - distance) * 100
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// BandFor classifies a cosine distance into a relevance band.
func BandFor(distance float64) models.Relevance {
	switch {
	case distance < highThreshold:
		return models.RelevanceHigh
	case distance < lowThreshold:
		return models.RelevanceMedium
	default:
		return models.RelevanceLow
	}
}

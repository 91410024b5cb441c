package model

import "fmt"

// Band is the discrete confidence bucket derived from a probability.
type Band string

const (
	BandLow    Band = "low"
	BandMedium Band = "medium"
	BandHigh   Band = "high"

	BandLowDefault  = 0.4
	BandHighDefault = 0.7
)

// Bands holds the probability cut points. Probabilities below Low are low,
// above High are high, anything in between (inclusive) is medium.
type Bands struct {
	Low  float64 `json:"low" yaml:"low"`
	High float64 `json:"high" yaml:"high"`
}

// DefaultBands returns the documented default thresholds.
func DefaultBands() Bands {
	return Bands{Low: BandLowDefault, High: BandHighDefault}
}

func (b Bands) Validate() error {
	if b.Low < 0 || b.High > 1 || b.Low > b.High {
		return fmt.Errorf("invalid confidence bands: require 0 <= low (%v) <= high (%v) <= 1", b.Low, b.High)
	}
	return nil
}

// Classify returns the band for probability p.
func (b Bands) Classify(p float64) Band {
	switch {
	case p < b.Low:
		return BandLow
	case p > b.High:
		return BandHigh
	default:
		return BandMedium
	}
}

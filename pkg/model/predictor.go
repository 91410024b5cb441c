package model

import (
	"errors"
	"fmt"
	"math"

	"github.com/mchmarny/admitguide/pkg/encoder"
)

// Prediction is the outcome of one admission prediction.
type Prediction struct {
	Probability float64 `json:"probability" yaml:"probability"`
	Band        Band    `json:"band" yaml:"band"`
}

// Predictor turns feature vectors into banded probabilities.
// It holds no mutable state and is safe for concurrent use.
type Predictor struct {
	clf   Classifier
	bands Bands
}

func NewPredictor(clf Classifier, bands Bands) (*Predictor, error) {
	if clf == nil {
		return nil, errors.New("classifier is required")
	}
	if err := bands.Validate(); err != nil {
		return nil, err
	}
	return &Predictor{clf: clf, bands: bands}, nil
}

func (p *Predictor) Bands() Bands {
	return p.bands
}

func (p *Predictor) InputWidth() int {
	return p.clf.InputWidth()
}

// Predict returns the positive-class probability and its band.
func (p *Predictor) Predict(v encoder.Vector) (Prediction, error) {
	prob, err := p.clf.PositiveProbability(v)
	if err != nil {
		return Prediction{}, fmt.Errorf("error predicting: %w", err)
	}
	prob = clamp01(prob)
	return Prediction{
		Probability: prob,
		Band:        p.bands.Classify(prob),
	}, nil
}

func clamp01(x float64) float64 {
	if math.IsNaN(x) || x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

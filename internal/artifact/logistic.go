package artifact

import (
	"errors"
	"fmt"
	"math"
)

// Logistic is a binary logistic-regression artifact. It reports class
// probabilities, so classification models backed by it take the
// threshold path through the inference engine.
type Logistic struct {
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
}

// Predict returns the positive class (1) when the positive probability
// exceeds one half, otherwise the negative class (0).
func (l *Logistic) Predict(features []float64) (float64, error) {
	probs, err := l.PredictProba(features)
	if err != nil {
		return 0, err
	}
	if probs[1] > 0.5 {
		return 1, nil
	}
	return 0, nil
}

// PredictProba returns [P(negative), P(positive)].
func (l *Logistic) PredictProba(features []float64) ([]float64, error) {
	if len(l.Weights) == 0 {
		return nil, errors.New("logistic artifact has no weights")
	}
	if len(features) != len(l.Weights) {
		return nil, fmt.Errorf("expected %d features, got %d", len(l.Weights), len(features))
	}

	z := l.Bias
	for i, w := range l.Weights {
		z += w * features[i]
	}
	p := 1.0 / (1.0 + math.Exp(-z))
	return []float64{1 - p, p}, nil
}

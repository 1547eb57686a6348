package artifact

import (
	"errors"
	"fmt"
)

// Linear is a linear-regression artifact producing a numeric prediction.
type Linear struct {
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
}

func (l *Linear) Predict(features []float64) (float64, error) {
	if len(l.Weights) == 0 {
		return 0, errors.New("linear artifact has no weights")
	}
	if len(features) != len(l.Weights) {
		return 0, fmt.Errorf("expected %d features, got %d", len(l.Weights), len(features))
	}

	y := l.Bias
	for i, w := range l.Weights {
		y += w * features[i]
	}
	return y, nil
}

// LinearExplainer attributes a prediction to its inputs with one
// coefficient row per output label: contribution[i] = coef[i] * (x[i] - baseline[i]).
type LinearExplainer struct {
	Baselines    []float64   `json:"baselines"`
	Coefficients [][]float64 `json:"coefficients"`
}

// Explain returns one attribution row per coefficient row.
func (e *LinearExplainer) Explain(features []float64) ([][]float64, error) {
	if len(e.Coefficients) == 0 {
		return nil, errors.New("explainer has no coefficients")
	}

	rows := make([][]float64, len(e.Coefficients))
	for r, coefs := range e.Coefficients {
		if len(coefs) != len(features) {
			return nil, fmt.Errorf("coefficient row %d has %d entries, input has %d features", r, len(coefs), len(features))
		}
		row := make([]float64, len(coefs))
		for i, c := range coefs {
			baseline := 0.0
			if i < len(e.Baselines) {
				baseline = e.Baselines[i]
			}
			row[i] = c * (features[i] - baseline)
		}
		rows[r] = row
	}
	return rows, nil
}

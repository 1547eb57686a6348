// Package enrich implements the best-effort annotation stages that run
// after a successful inference: per-label explanation attributions and a
// low-dimensional embedding of the input vector. Both stages report
// failures to the caller for logging and telemetry but leave the
// prediction untouched when they fail; nothing here is ever allowed to
// sink a valid prediction.
package enrich

import (
	"errors"

	"modelserve/internal/model"
)

// Explain computes per-label attribution records from the model's
// explainer artifact and attaches them to the prediction. Row and column
// counts from the explainer are treated defensively: labels beyond the
// returned rows are skipped and rows are truncated or zero-padded to the
// declared feature count. A returned error means the prediction was left
// unmodified.
func Explain(m *model.Model, p *model.Prediction) error {
	if m.Explainer == nil {
		return errors.New("no explainer artifact configured")
	}

	rows, err := m.Explainer.Explain(m.Vectorize(p.Inputs))
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return errors.New("explainer returned no attribution rows")
	}

	names := m.FeatureNames(p.Inputs)

	var shaps []model.Shap
	if len(m.Labels) > 0 {
		count := len(m.Labels)
		if len(rows) < count {
			count = len(rows)
		}
		for i := 0; i < count; i++ {
			label := m.Labels[i]
			shaps = append(shaps, model.Shap{
				Label:  &label,
				Values: attribution(names, rows[i]),
			})
		}
	} else {
		shaps = append(shaps, model.Shap{
			Label:  nil,
			Values: attribution(names, rows[0]),
		})
	}

	p.ShapValues = shaps
	return nil
}

// attribution maps a raw row onto feature names, truncating to the
// shorter length and zero-filling features the row did not cover.
func attribution(names []string, row []float64) map[string]float64 {
	values := make(map[string]float64, len(names))
	for i, name := range names {
		if i < len(row) {
			values[name] = row[i]
		} else {
			values[name] = 0
		}
	}
	return values
}

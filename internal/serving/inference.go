package serving

import (
	"fmt"

	"modelserve/internal/model"
)

// Infer runs the model's artifact against the prediction's inputs and
// fills in value, probability, and the threshold snapshot. It mutates
// the prediction in place and returns a plain error on failure; the
// orchestrator wraps it into the taxonomy.
//
// The dispatch is exhaustive over the model-type tag:
//   - classification with a probability-capable artifact applies the
//     three-way threshold comparison to the positive-class probability
//   - classification without one takes the artifact's class directly,
//     with neither probability nor threshold recorded
//   - regression records the numeric result and never a probability
func Infer(m *model.Model, p *model.Prediction) error {
	vec := m.Vectorize(p.Inputs)

	switch m.Type {
	case model.Classification:
		if pp, ok := m.Artifact.(model.ProbabilityPredictor); ok && m.Threshold != nil {
			return inferWithProbability(m, p, pp, vec)
		}
		return inferDirect(m, p, vec)

	case model.Regression:
		out, err := m.Artifact.Predict(vec)
		if err != nil {
			return err
		}
		p.Value = model.NumberValue(out)
		p.Probability = nil
		return nil

	default:
		return fmt.Errorf("unsupported model type %q", m.Type)
	}
}

func inferWithProbability(m *model.Model, p *model.Prediction, pp model.ProbabilityPredictor, vec []float64) error {
	probs, err := pp.PredictProba(vec)
	if err != nil {
		return err
	}
	if len(probs) < 2 {
		return fmt.Errorf("expected at least 2 class probabilities, got %d", len(probs))
	}

	positive := probs[1]
	label := m.Threshold.Apply(positive)

	p.Value = model.LabelValue(label)
	p.Probability = &positive
	threshold := m.Threshold.Value
	p.Threshold = &threshold
	return nil
}

func inferDirect(m *model.Model, p *model.Prediction, vec []float64) error {
	out, err := m.Artifact.Predict(vec)
	if err != nil {
		return err
	}

	idx := int(out)
	if idx < 0 || idx >= len(m.Labels) {
		return fmt.Errorf("predicted class %d outside declared label set of %d", idx, len(m.Labels))
	}

	p.Value = model.LabelValue(m.Labels[idx])
	p.Probability = nil
	p.Threshold = nil
	return nil
}

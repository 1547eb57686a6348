package serving

import (
	"encoding/json"
	"fmt"
)

// ValidateInputs checks a feature mapping structurally before inference.
// An empty mapping is always an error; every value must be numeric.
// Feature names are deliberately not checked against the model's declared
// schema, so an input with wrong names but numeric values passes.
// An empty result means the input is valid.
func ValidateInputs(features map[string]any) map[string]string {
	errors := make(map[string]string)

	if len(features) == 0 {
		errors["features"] = "input features cannot be empty"
		return errors
	}

	for name, value := range features {
		if _, ok := asNumber(value); !ok {
			errors[name] = fmt.Sprintf("feature %s must be numeric", name)
		}
	}

	return errors
}

// NumericInputs converts a validated feature mapping to float64 values.
func NumericInputs(features map[string]any) map[string]float64 {
	inputs := make(map[string]float64, len(features))
	for name, value := range features {
		if n, ok := asNumber(value); ok {
			inputs[name] = n
		}
	}
	return inputs
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

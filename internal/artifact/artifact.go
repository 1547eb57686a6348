// Package artifact loads invokable predictive artifacts from URI-like
// locators. The flavor set is fixed and closed: each flavor names a
// decoding strategy for a serialized artifact, not a plugin point.
package artifact

import (
	"encoding/json"
	"fmt"

	"modelserve/internal/model"
)

const (
	FlavorLogistic = "logistic"
	FlavorTree     = "tree"
	FlavorLinear   = "linear"
)

// Load fetches the artifact behind uri and decodes it according to
// flavor. An unknown flavor or an undecodable payload is an error; the
// caller (registry startup) is expected to fail fast on it.
func Load(uri, flavor string) (model.Predictor, error) {
	data, err := fetch(uri)
	if err != nil {
		return nil, fmt.Errorf("fetch artifact %s: %w", uri, err)
	}

	switch flavor {
	case FlavorLogistic:
		var lr Logistic
		if err := decode(data, &lr); err != nil {
			return nil, fmt.Errorf("decode logistic artifact %s: %w", uri, err)
		}
		return &lr, nil
	case FlavorTree:
		tree, err := DecodeTree(data)
		if err != nil {
			return nil, fmt.Errorf("decode tree artifact %s: %w", uri, err)
		}
		return tree, nil
	case FlavorLinear:
		var lin Linear
		if err := decode(data, &lin); err != nil {
			return nil, fmt.Errorf("decode linear artifact %s: %w", uri, err)
		}
		return &lin, nil
	default:
		return nil, fmt.Errorf("unsupported artifact flavor: %s", flavor)
	}
}

// LoadExplainer fetches and decodes the explainer companion artifact.
func LoadExplainer(uri string) (model.Explainer, error) {
	data, err := fetch(uri)
	if err != nil {
		return nil, fmt.Errorf("fetch explainer %s: %w", uri, err)
	}

	var ex LinearExplainer
	if err := decode(data, &ex); err != nil {
		return nil, fmt.Errorf("decode explainer %s: %w", uri, err)
	}
	return &ex, nil
}

func decode(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

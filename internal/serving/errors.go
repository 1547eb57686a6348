package serving

import "fmt"

// The orchestrator is the single point of translation from component
// failures into this taxonomy. Components below it return plain errors
// and never decide HTTP-level semantics; enrichment failures are logged
// and never appear here.

// ModelNotFoundError reports a (name, version) pair absent from the registry.
type ModelNotFoundError struct {
	Name    string
	Version string
}

func (e *ModelNotFoundError) Error() string {
	return fmt.Sprintf("model %s version %s not found", e.Name, e.Version)
}

// InvalidInputError carries the field-level validation errors.
type InvalidInputError struct {
	Fields map[string]string
}

func (e *InvalidInputError) Error() string {
	return "invalid input data"
}

// InferenceError wraps a failure raised by the inference engine.
type InferenceError struct {
	Cause error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference failed: %v", e.Cause)
}

func (e *InferenceError) Unwrap() error { return e.Cause }

// PredictionNotFoundError reports a prediction id with no stored row.
type PredictionNotFoundError struct {
	ID string
}

func (e *PredictionNotFoundError) Error() string {
	return fmt.Sprintf("prediction %s not found", e.ID)
}

// PersistenceError wraps a storage failure. It is only returned after
// the in-flight transaction has been rolled back.
type PersistenceError struct {
	Cause error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failed: %v", e.Cause)
}

func (e *PersistenceError) Unwrap() error { return e.Cause }

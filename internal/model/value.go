package model

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Value is the tagged union over the two result shapes a prediction can
// carry: a classification label or a regression number. The tag mirrors
// the owning model's declared type and is resolved once at
// (de)serialization time.
type Value struct {
	kind   Type
	label  string
	number float64
}

// LabelValue wraps a classification label.
func LabelValue(label string) Value {
	return Value{kind: Classification, label: label}
}

// NumberValue wraps a regression result.
func NumberValue(n float64) Value {
	return Value{kind: Regression, number: n}
}

func (v Value) Kind() Type      { return v.kind }
func (v Value) Label() string   { return v.label }
func (v Value) Number() float64 { return v.number }

// IsZero reports whether the value has not been set by inference yet.
func (v Value) IsZero() bool { return v.kind == "" }

// String renders the value for storage. Numbers use the shortest exact
// representation so the round trip through a text column is lossless.
func (v Value) String() string {
	if v.kind == Regression {
		return strconv.FormatFloat(v.number, 'g', -1, 64)
	}
	return v.label
}

// ParseValue interprets a stored value through the owning model's type tag.
func ParseValue(s string, t Type) (Value, error) {
	switch t {
	case Classification:
		return LabelValue(s), nil
	case Regression:
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Value{}, fmt.Errorf("parse regression value %q: %w", s, err)
		}
		return NumberValue(n), nil
	default:
		return Value{}, fmt.Errorf("unknown model type %q", t)
	}
}

// MarshalJSON emits the label as a JSON string and the number as a JSON
// number, so API clients see the natural shape for the model type.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == Regression {
		return json.Marshal(v.number)
	}
	return json.Marshal(v.label)
}

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"modelserve/internal/model"
	"modelserve/internal/serving"
	"modelserve/internal/storage"
)

type handlers struct {
	svc   *serving.Service
	store *storage.Store
}

type predictRequest struct {
	Features map[string]any `json:"features"`
}

type shapResponse struct {
	Label *string            `json:"label"`
	Shap  map[string]float64 `json:"shap"`
}

type modelResponse struct {
	Name    string `json:"model_name"`
	Version string `json:"model_version"`
	Type    string `json:"model_type"`
}

type predictionResponse struct {
	ID          string             `json:"id"`
	Inputs      map[string]float64 `json:"inputs"`
	Value       model.Value        `json:"value"`
	Probability *float64           `json:"probability"`
	Threshold   *float64           `json:"threshold"`
	Actual      *string            `json:"actual"`
	ShapValues  []shapResponse     `json:"shap_values,omitempty"`
	Metadata    map[string]any     `json:"metadata,omitempty"`
	Model       modelResponse      `json:"model"`
	Created     time.Time          `json:"created"`
}

func (h *handlers) createPrediction(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("model")
	version := r.PathValue("version")

	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid request body"})
		return
	}

	p, err := h.svc.CreatePrediction(r.Context(), name, version, req.Features)
	if err != nil {
		writeServingError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toPredictionResponse(p))
}

func (h *handlers) getPrediction(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.GetPrediction(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServingError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toPredictionResponse(p))
}

type actualRequest struct {
	Actual string `json:"actual"`
}

func (h *handlers) recordActual(w http.ResponseWriter, r *http.Request) {
	var req actualRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Actual == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "actual value is required"})
		return
	}

	id := r.PathValue("id")
	if err := h.svc.RecordActual(r.Context(), id, req.Actual); err != nil {
		writeServingError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"id": id, "actual": req.Actual})
}

// writeServingError translates the serving taxonomy into HTTP responses.
// Inference and persistence causes stay in the logs, not in the body.
func writeServingError(w http.ResponseWriter, err error) {
	var (
		notFound     *serving.ModelNotFoundError
		predNotFound *serving.PredictionNotFoundError
		invalid      *serving.InvalidInputError
		inference    *serving.InferenceError
		persistence  *serving.PersistenceError
	)

	switch {
	case errors.As(err, &notFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"message": notFound.Error()})
	case errors.As(err, &predNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"message": predNotFound.Error()})
	case errors.As(err, &invalid):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"message":           "invalid input data",
			"validation_errors": invalid.Fields,
		})
	case errors.As(err, &inference):
		log.Error().Err(inference.Cause).Msg("inference failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "prediction failed"})
	case errors.As(err, &persistence):
		log.Error().Err(persistence.Cause).Msg("persistence failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "prediction could not be stored"})
	default:
		log.Error().Err(err).Msg("unexpected error")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "internal server error"})
	}
}

func toPredictionResponse(p *model.Prediction) predictionResponse {
	resp := predictionResponse{
		ID:          p.ID,
		Inputs:      p.Inputs,
		Value:       p.Value,
		Probability: p.Probability,
		Threshold:   p.Threshold,
		Actual:      p.Actual,
		Metadata:    p.Metadata,
		Created:     p.Created,
	}
	if p.Model != nil {
		resp.Model = modelResponse{
			Name:    p.Model.Name,
			Version: p.Model.Version,
			Type:    string(p.Model.Type),
		}
	}
	for _, s := range p.ShapValues {
		resp.ShapValues = append(resp.ShapValues, shapResponse{Label: s.Label, Shap: s.Values})
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

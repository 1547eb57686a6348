package serving

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modelserve/internal/cfg"
	"modelserve/internal/enrich"
	"modelserve/internal/model"
	"modelserve/internal/registry"
	"modelserve/internal/storage"
)

func writeArtifact(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// newService wires a real registry, SQLite store, and projector cache
// around the given model configs. Telemetry is left nil.
func newService(t *testing.T, configs ...cfg.ModelConfig) (*Service, *storage.Store) {
	t.Helper()

	reg, err := registry.New(configs)
	require.NoError(t, err)

	store, err := storage.Open(filepath.Join(t.TempDir(), "predictions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	shaps, err := storage.OpenShapStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { shaps.Close() })

	projectors, err := enrich.NewProjectorCache(8)
	require.NoError(t, err)

	return New(reg, store, shaps, projectors, nil), store
}

// classifierConfig builds a logistic classifier whose positive-class
// probability for a zero input vector is sigmoid(bias).
func classifierConfig(t *testing.T, bias float64, withExplainer bool) cfg.ModelConfig {
	t.Helper()
	mc := cfg.ModelConfig{
		Name:        "breast_cancer_rf",
		Version:     "1",
		Type:        "classification",
		Flavor:      "logistic",
		ArtifactURI: writeArtifact(t, "model.json", fmt.Sprintf(`{"weights": [0, 0], "bias": %g}`, bias)),
		Labels:      []string{"BENIGN", "MALIGNANT"},
		Features:    []string{"mean_radius", "mean_texture"},
		Threshold:   &model.Threshold{Value: 0.5, Above: "MALIGNANT", Equal: "BENIGN", Below: "BENIGN"},
	}
	if withExplainer {
		mc.ExplainerURI = writeArtifact(t, "explainer.json",
			`{"baselines": [0, 0], "coefficients": [[0.1, -0.2], [0.3, 0.4]]}`)
	}
	return mc
}

func TestCreatePrediction(t *testing.T) {
	// sigmoid(ln 4) = 0.8, comfortably above the 0.5 threshold.
	svc, _ := newService(t, classifierConfig(t, 1.3862943611198906, true))

	p, err := svc.CreatePrediction(context.Background(), "breast_cancer_rf", "1",
		map[string]any{"mean_radius": 0.0, "mean_texture": 0.0})
	require.NoError(t, err)

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "MALIGNANT", p.Value.String())
	require.NotNil(t, p.Probability)
	assert.InDelta(t, 0.8, *p.Probability, 1e-9)
	require.NotNil(t, p.Threshold)
	assert.Equal(t, 0.5, *p.Threshold)
	assert.Equal(t, "breast_cancer_rf", p.Model.Name)
	assert.Nil(t, p.Actual)
	assert.False(t, p.Created.IsZero())

	// Enrichment ran: one attribution record per label, an embedding in
	// the metadata.
	require.Len(t, p.ShapValues, 2)
	assert.Equal(t, "BENIGN", *p.ShapValues[0].Label)
	assert.Equal(t, "MALIGNANT", *p.ShapValues[1].Label)
	assert.Contains(t, p.Metadata, "embedding")
}

func TestCreatePredictionExactlyAtThreshold(t *testing.T) {
	// sigmoid(0) is exactly 0.5, hitting the equality branch.
	svc, _ := newService(t, classifierConfig(t, 0, false))

	p, err := svc.CreatePrediction(context.Background(), "breast_cancer_rf", "1",
		map[string]any{"mean_radius": 0.0, "mean_texture": 0.0})
	require.NoError(t, err)
	assert.Equal(t, "BENIGN", p.Value.String())
	assert.Equal(t, 0.5, *p.Probability)
}

func TestCreatePredictionModelNotFound(t *testing.T) {
	svc, store := newService(t, classifierConfig(t, 0, false))

	_, err := svc.CreatePrediction(context.Background(), "breast_cancer_rf", "99",
		map[string]any{"mean_radius": 1.0})

	var notFound *ModelNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "breast_cancer_rf", notFound.Name)
	assert.Equal(t, "99", notFound.Version)

	n, err := store.CountModels(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCreatePredictionInvalidInput(t *testing.T) {
	svc, store := newService(t, classifierConfig(t, 0, false))

	_, err := svc.CreatePrediction(context.Background(), "breast_cancer_rf", "1",
		map[string]any{})

	var invalid *InvalidInputError
	require.ErrorAs(t, err, &invalid)
	assert.Contains(t, invalid.Fields, "features")

	_, err = svc.CreatePrediction(context.Background(), "breast_cancer_rf", "1",
		map[string]any{"mean_radius": "huge"})
	require.ErrorAs(t, err, &invalid)
	assert.Contains(t, invalid.Fields, "mean_radius")

	// Validation failures never reach persistence.
	n, err := store.CountModels(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCreatePredictionSurvivesEnrichmentFailure(t *testing.T) {
	// The explainer expects 3 features but the model declares 2, so
	// explanation fails on every request. The prediction must still be
	// produced and persisted.
	mc := classifierConfig(t, 1.3862943611198906, false)
	mc.ExplainerURI = writeArtifact(t, "bad_explainer.json",
		`{"baselines": [0, 0, 0], "coefficients": [[1, 1, 1], [2, 2, 2]]}`)

	svc, _ := newService(t, mc)

	p, err := svc.CreatePrediction(context.Background(), "breast_cancer_rf", "1",
		map[string]any{"mean_radius": 0.0, "mean_texture": 0.0})
	require.NoError(t, err)
	assert.Equal(t, "MALIGNANT", p.Value.String())
	assert.Empty(t, p.ShapValues)

	stored, err := svc.GetPrediction(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, stored.ID)
}

func TestCreatePredictionDeduplicatesModelRows(t *testing.T) {
	svc, store := newService(t, classifierConfig(t, 0, false))

	for i := 0; i < 3; i++ {
		_, err := svc.CreatePrediction(context.Background(), "breast_cancer_rf", "1",
			map[string]any{"mean_radius": float64(i), "mean_texture": 1.0})
		require.NoError(t, err)
	}

	n, err := store.CountModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestGetPredictionRoundTrip(t *testing.T) {
	svc, _ := newService(t, classifierConfig(t, 1.3862943611198906, true))

	created, err := svc.CreatePrediction(context.Background(), "breast_cancer_rf", "1",
		map[string]any{"mean_radius": 14.2, "mean_texture": 20.1})
	require.NoError(t, err)

	got, err := svc.GetPrediction(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, created.Value, got.Value)
	assert.Equal(t, map[string]float64{"mean_radius": 14.2, "mean_texture": 20.1}, got.Inputs)
	assert.Equal(t, created.Model.ID, got.Model.ID)
	// Explanation records come back from the side store.
	assert.Len(t, got.ShapValues, 2)
}

func TestGetPredictionNotFound(t *testing.T) {
	svc, _ := newService(t, classifierConfig(t, 0, false))

	_, err := svc.GetPrediction(context.Background(), "no-such-id")
	var notFound *PredictionNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "no-such-id", notFound.ID)
}

func TestRecordActual(t *testing.T) {
	svc, _ := newService(t, classifierConfig(t, 0, false))

	created, err := svc.CreatePrediction(context.Background(), "breast_cancer_rf", "1",
		map[string]any{"mean_radius": 1.0, "mean_texture": 2.0})
	require.NoError(t, err)

	require.NoError(t, svc.RecordActual(context.Background(), created.ID, "MALIGNANT"))

	got, err := svc.GetPrediction(context.Background(), created.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Actual)
	assert.Equal(t, "MALIGNANT", *got.Actual)

	var notFound *PredictionNotFoundError
	assert.ErrorAs(t, svc.RecordActual(context.Background(), "missing", "x"), &notFound)
}

func TestCreatePredictionRegression(t *testing.T) {
	mc := cfg.ModelConfig{
		Name:        "house_price",
		Version:     "2",
		Type:        "regression",
		Flavor:      "linear",
		ArtifactURI: writeArtifact(t, "linear.json", `{"weights": [100, 0.5], "bias": 50000}`),
		Features:    []string{"bedrooms", "sqft"},
	}

	svc, _ := newService(t, mc)

	p, err := svc.CreatePrediction(context.Background(), "house_price", "2",
		map[string]any{"bedrooms": 3.0, "sqft": 1500.0})
	require.NoError(t, err)
	assert.Equal(t, "51050", p.Value.String())
	assert.Nil(t, p.Probability)
	assert.Nil(t, p.Threshold)
}

package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modelserve/internal/model"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func classifierModel() *model.Model {
	return &model.Model{
		ID:      model.NewID("breast_cancer_rf", "1"),
		Name:    "breast_cancer_rf",
		Version: "1",
		Type:    model.Classification,
	}
}

func newStoredPrediction(m *model.Model) *model.Prediction {
	p := model.NewPrediction(map[string]float64{"mean_radius": 14.2, "mean_texture": 20.1})
	p.Model = m
	p.Value = model.LabelValue("MALIGNANT")
	prob := 0.8
	p.Probability = &prob
	threshold := 0.5
	p.Threshold = &threshold
	return p
}

func TestSaveAndGetPrediction(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	p := newStoredPrediction(classifierModel())
	require.NoError(t, store.SavePrediction(ctx, p))

	got, err := store.GetPrediction(ctx, p.ID)
	require.NoError(t, err)

	// The re-read carries exactly what was written.
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, p.Inputs, got.Inputs)
	assert.Equal(t, "MALIGNANT", got.Value.String())
	require.NotNil(t, got.Probability)
	assert.Equal(t, 0.8, *got.Probability)
	require.NotNil(t, got.Threshold)
	assert.Equal(t, 0.5, *got.Threshold)
	assert.Nil(t, got.Actual)
	assert.Equal(t, p.Model.ID, got.Model.ID)
	assert.Equal(t, "breast_cancer_rf", got.Model.Name)
	assert.Equal(t, "1", got.Model.Version)
	assert.Equal(t, model.Classification, got.Model.Type)
	assert.False(t, got.Created.IsZero())
}

func TestSaveRegressionPrediction(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	m := &model.Model{
		ID:      model.NewID("house_price", "2"),
		Name:    "house_price",
		Version: "2",
		Type:    model.Regression,
	}
	p := model.NewPrediction(map[string]float64{"sqft": 1500})
	p.Model = m
	p.Value = model.NumberValue(412500.75)

	require.NoError(t, store.SavePrediction(ctx, p))

	got, err := store.GetPrediction(ctx, p.ID)
	require.NoError(t, err)
	// A regression value parses back through the model's type tag as a
	// number, not a label.
	assert.Equal(t, model.NumberValue(412500.75), got.Value)
	assert.Nil(t, got.Probability)
	assert.Nil(t, got.Threshold)
}

func TestGetPredictionNotFound(t *testing.T) {
	store := openStore(t)

	_, err := store.GetPrediction(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestModelUpsertIsDeduplicated(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	m := classifierModel()

	require.NoError(t, store.SavePrediction(ctx, newStoredPrediction(m)))
	require.NoError(t, store.SavePrediction(ctx, newStoredPrediction(m)))

	n, err := store.CountModels(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// A different version makes a second row.
	m2 := &model.Model{
		ID:      model.NewID("breast_cancer_rf", "2"),
		Name:    "breast_cancer_rf",
		Version: "2",
		Type:    model.Classification,
	}
	require.NoError(t, store.SavePrediction(ctx, newStoredPrediction(m2)))

	n, err = store.CountModels(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestDuplicatePredictionIDRollsBack(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	p := newStoredPrediction(classifierModel())
	require.NoError(t, store.SavePrediction(ctx, p))
	assert.Error(t, store.SavePrediction(ctx, p))

	// The failed transaction left the model table unchanged.
	n, err := store.CountModels(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSetActual(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	p := newStoredPrediction(classifierModel())
	require.NoError(t, store.SavePrediction(ctx, p))

	require.NoError(t, store.SetActual(ctx, p.ID, "BENIGN"))

	got, err := store.GetPrediction(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Actual)
	assert.Equal(t, "BENIGN", *got.Actual)

	assert.ErrorIs(t, store.SetActual(ctx, "missing", "BENIGN"), ErrNotFound)
}

func TestUserCRUD(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	u := User{ID: "u1", Username: "ada", Email: "ada@example.com"}
	require.NoError(t, store.CreateUser(ctx, u))

	got, err := store.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, &u, got)

	// Unique constraints on username and email.
	assert.Error(t, store.CreateUser(ctx, User{ID: "u2", Username: "ada", Email: "other@example.com"}))
	assert.Error(t, store.CreateUser(ctx, User{ID: "u2", Username: "grace", Email: "ada@example.com"}))

	u.Email = "ada@new.example.com"
	require.NoError(t, store.UpdateUser(ctx, u))
	got, err = store.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "ada@new.example.com", got.Email)

	assert.ErrorIs(t, store.UpdateUser(ctx, User{ID: "missing"}), ErrNotFound)

	require.NoError(t, store.CreateUser(ctx, User{ID: "u2", Username: "grace", Email: "grace@example.com"}))
	users, err := store.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "ada", users[0].Username)
	assert.Equal(t, "grace", users[1].Username)

	require.NoError(t, store.DeleteUser(ctx, "u1"))
	_, err = store.GetUser(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting an absent user is not an error.
	assert.NoError(t, store.DeleteUser(ctx, "u1"))
}

func TestShapStoreRoundTrip(t *testing.T) {
	shaps, err := OpenShapStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { shaps.Close() })

	benign := "BENIGN"
	records := []model.Shap{
		{Label: &benign, Values: map[string]float64{"mean_radius": 0.12, "mean_texture": -0.03}},
		{Label: nil, Values: map[string]float64{"mean_radius": 0.5}},
	}
	require.NoError(t, shaps.SaveShaps("p1", records))

	got, err := shaps.GetShaps("p1")
	require.NoError(t, err)
	assert.Equal(t, records, got)

	// Absent key reads back as no records.
	got, err = shaps.GetShaps("p2")
	require.NoError(t, err)
	assert.Nil(t, got)
}

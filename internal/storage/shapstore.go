package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"modelserve/internal/model"
)

const shapsBucket = "shaps"

// ShapStore persists explanation records separately from the primary
// store, keyed by prediction id. Writes are best-effort from the
// pipeline's point of view: a missing record simply means no explanation
// was available for that prediction.
type ShapStore struct {
	db *bbolt.DB
}

// OpenShapStore opens (or creates) the explanation database under dataPath.
func OpenShapStore(dataPath string) (*ShapStore, error) {
	dbPath := filepath.Join(dataPath, "explanations.db")

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open explanation store: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(shapsBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create shaps bucket: %w", err)
	}

	return &ShapStore{db: db}, nil
}

func (s *ShapStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveShaps stores the explanation records for a prediction.
func (s *ShapStore) SaveShaps(predictionID string, shaps []model.Shap) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(shapsBucket))

		data, err := json.Marshal(shaps)
		if err != nil {
			return fmt.Errorf("marshal shap records: %w", err)
		}
		return b.Put([]byte(predictionID), data)
	})
}

// GetShaps returns the stored explanation records for a prediction, or
// nil when none were persisted.
func (s *ShapStore) GetShaps(predictionID string) ([]model.Shap, error) {
	var shaps []model.Shap

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(shapsBucket))
		data := b.Get([]byte(predictionID))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &shaps)
	})
	return shaps, err
}

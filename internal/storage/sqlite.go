// Package storage persists predictions and their provenance. The primary
// store is SQLite: a models table deduplicated on (name, version) and a
// predictions table referencing it. Explanation records are persisted
// separately in a BoltDB side store keyed by prediction id.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"modelserve/internal/model"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

const schema = `
    CREATE TABLE IF NOT EXISTS models (
        id VARCHAR(120) PRIMARY KEY,
        model_name VARCHAR(240) NOT NULL,
        model_version VARCHAR(120) NOT NULL,
        model_type VARCHAR(250) NOT NULL,
        created DATETIME NOT NULL,
        updated DATETIME NOT NULL,
        UNIQUE(model_name, model_version)
    );
    CREATE TABLE IF NOT EXISTS predictions (
        id VARCHAR(120) PRIMARY KEY,
        inputs TEXT NOT NULL,
        value VARCHAR(120) NOT NULL,
        probability REAL,
        threshold REAL,
        actual VARCHAR(120),
        created DATETIME NOT NULL,
        updated DATETIME NOT NULL,
        model_id VARCHAR(120) NOT NULL REFERENCES models(id)
    );
    CREATE TABLE IF NOT EXISTS users (
        id VARCHAR(120) PRIMARY KEY,
        username VARCHAR(80) NOT NULL UNIQUE,
        email VARCHAR(120) NOT NULL UNIQUE
    );
    `

// Store wraps the SQLite database holding models and predictions.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SavePrediction writes the prediction and its owning model in one
// transaction. The model write is a deduplicated upsert: an existing
// (name, version) row is reused, so two predictions against the same
// pair never produce two model rows. Any failure rolls the whole
// transaction back.
func (s *Store) SavePrediction(ctx context.Context, p *model.Prediction) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	modelID, err := upsertModel(ctx, tx, p.Model)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("upsert model: %w", err)
	}

	inputs, err := json.Marshal(p.Inputs)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("marshal inputs: %w", err)
	}

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx, `
        INSERT INTO predictions (id, inputs, value, probability, threshold, actual, created, updated, model_id)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, string(inputs), p.Value.String(),
		nullFloat(p.Probability), nullFloat(p.Threshold), nullString(p.Actual),
		now, now, modelID)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("insert prediction: %w", err)
	}

	return tx.Commit()
}

// upsertModel looks the model up by (name, version) first and only
// inserts when no row exists, returning the stored row's id either way.
func upsertModel(ctx context.Context, tx *sql.Tx, m *model.Model) (string, error) {
	var id string
	err := tx.QueryRowContext(ctx, `
        SELECT id FROM models WHERE model_name = ? AND model_version = ?`,
		m.Name, m.Version).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx, `
        INSERT INTO models (id, model_name, model_version, model_type, created, updated)
        VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, m.Name, m.Version, string(m.Type), now, now)
	if err != nil {
		return "", err
	}
	return m.ID, nil
}

// GetPrediction reads a stored prediction back, joined with its owning
// model so the stored value can be parsed through the model's type tag.
func (s *Store) GetPrediction(ctx context.Context, id string) (*model.Prediction, error) {
	var (
		inputsJSON             string
		valueText              string
		probability, threshold sql.NullFloat64
		actual                 sql.NullString
		created, updated       time.Time
		m                      model.Model
	)

	err := s.db.QueryRowContext(ctx, `
        SELECT p.inputs, p.value, p.probability, p.threshold, p.actual, p.created, p.updated,
               m.id, m.model_name, m.model_version, m.model_type
        FROM predictions p
        JOIN models m ON m.id = p.model_id
        WHERE p.id = ?`, id).Scan(
		&inputsJSON, &valueText, &probability, &threshold, &actual, &created, &updated,
		&m.ID, &m.Name, &m.Version, &m.Type)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query prediction: %w", err)
	}

	var inputs map[string]float64
	if err := json.Unmarshal([]byte(inputsJSON), &inputs); err != nil {
		return nil, fmt.Errorf("unmarshal inputs: %w", err)
	}

	value, err := model.ParseValue(valueText, m.Type)
	if err != nil {
		return nil, err
	}

	p := &model.Prediction{
		ID:      id,
		Inputs:  inputs,
		Value:   value,
		Model:   &m,
		Created: created,
		Updated: updated,
	}
	if probability.Valid {
		p.Probability = &probability.Float64
	}
	if threshold.Valid {
		p.Threshold = &threshold.Float64
	}
	if actual.Valid {
		p.Actual = &actual.String
	}
	return p, nil
}

// SetActual records the observed ground-truth outcome for a prediction.
func (s *Store) SetActual(ctx context.Context, id, actual string) error {
	res, err := s.db.ExecContext(ctx, `
        UPDATE predictions SET actual = ?, updated = ? WHERE id = ?`,
		actual, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update actual: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountModels reports the number of stored model rows.
func (s *Store) CountModels(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM models`).Scan(&n)
	return n, err
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

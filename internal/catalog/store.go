/*
Copyright 2025 The llm-d Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	ctrl "sigs.k8s.io/controller-runtime"

	_ "modernc.org/sqlite"

	"github.com/llm-d/llm-d-model-api-planner/internal/resolver"
)

// Store is a catalog persisted in SQLite.
type Store struct {
	db *sql.DB
}

// OpenStore opens, creating if needed, the SQLite catalog at path.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog store %s: %w", path, err)
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate catalog store %s: %w", path, err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS catalog_models (
  model_id TEXT PRIMARY KEY,
  image TEXT NOT NULL,
  gpu_image TEXT NOT NULL DEFAULT '',
  artifact TEXT NOT NULL,
  instance_families TEXT NOT NULL DEFAULT '',
  regions TEXT NOT NULL DEFAULT '',
  updated_at DATETIME NOT NULL
);
`)
	return err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsert(ctx context.Context, db execer, e Entry) error {
	_, err := db.ExecContext(ctx, `
INSERT INTO catalog_models(model_id, image, gpu_image, artifact, instance_families, regions, updated_at)
VALUES(?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(model_id) DO UPDATE SET
  image=excluded.image,
  gpu_image=excluded.gpu_image,
  artifact=excluded.artifact,
  instance_families=excluded.instance_families,
  regions=excluded.regions,
  updated_at=excluded.updated_at;
`, e.ModelID, e.Image, e.GPUImage, e.Artifact, joinList(e.InstanceFamilies), joinList(e.Regions), time.Now().UTC())
	return err
}

// Upsert inserts or replaces one entry.
func (s *Store) Upsert(ctx context.Context, e Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if err := upsert(ctx, s.db, e); err != nil {
		return fmt.Errorf("failed to upsert model %q: %w", e.ModelID, err)
	}
	return nil
}

// Import upserts every entry of f in one transaction and returns the number
// of entries written.
func (s *Store) Import(ctx context.Context, f *File) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin import: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, e := range f.Models {
		if err := upsert(ctx, tx, e); err != nil {
			return 0, fmt.Errorf("failed to import model %q: %w", e.ModelID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit import: %w", err)
	}

	ctrl.LoggerFrom(ctx).Info("Imported model catalog", "modelCount", len(f.Models))
	return len(f.Models), nil
}

// Delete removes the entry for modelID.
func (s *Store) Delete(ctx context.Context, modelID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM catalog_models WHERE model_id=?;", modelID)
	return err
}

// Get returns the entry for modelID.
func (s *Store) Get(ctx context.Context, modelID string) (Entry, bool, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT model_id, image, gpu_image, artifact, instance_families, regions
FROM catalog_models WHERE model_id=?;
`, modelID)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	return e, true, nil
}

// List returns every entry ordered by model id.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT model_id, image, gpu_image, artifact, instance_families, regions
FROM catalog_models ORDER BY model_id;
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Lookup implements resolver.Lookup.
func (s *Store) Lookup(ctx context.Context, modelID, instanceType, region string) (resolver.ModelArtifacts, error) {
	e, ok, err := s.Get(ctx, modelID)
	if err != nil {
		return resolver.ModelArtifacts{}, fmt.Errorf("failed to query model %q: %w", modelID, err)
	}
	if !ok {
		return resolver.ModelArtifacts{}, fmt.Errorf("model %q: %w", modelID, resolver.ErrNotFound)
	}
	if !e.Supports(instanceType, region) {
		return resolver.ModelArtifacts{}, fmt.Errorf("model %q does not support instance %q in region %q: %w",
			modelID, instanceType, region, resolver.ErrNotFound)
	}
	return e.Artifacts(instanceType, region), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var (
		e                 Entry
		families, regions string
	)
	if err := row.Scan(&e.ModelID, &e.Image, &e.GPUImage, &e.Artifact, &families, &regions); err != nil {
		return Entry{}, err
	}
	e.InstanceFamilies = splitList(families)
	e.Regions = splitList(regions)
	return e, nil
}

func joinList(list []string) string {
	return strings.Join(list, ",")
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

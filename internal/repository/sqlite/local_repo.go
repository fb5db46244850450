// Package sqlite implements the device-local store on an embedded SQLite
// database (modernc.org/sqlite, pure Go, no cgo).
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"sharebite/internal/convert"
	"sharebite/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv (
	key   TEXT PRIMARY KEY,
	value BLOB NOT NULL
);`

// Blob keys, kept compatible with the legacy web client's storage prefix.
const (
	keyProfile   = "sharebite_profile"
	keyRecipes   = "sharebite_recipes"
	keyPlan      = "sharebite_plan"
	keyHousehold = "sharebite_household"
)

// Store persists the four keyed blobs of the local layout.
type Store struct {
	db *sql.DB
}

// Open opens the local database at path, creating it and its directory as
// needed, and applies the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create local store dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply local schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) get(ctx context.Context, key string) ([]byte, error) {
	var b []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key=?`, key).Scan(&b)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return b, err
}

func (s *Store) put(ctx context.Context, key string, val []byte) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO kv (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value=excluded.value`, key, val)
	return err
}

func (s *Store) del(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key=?`, key)
	return err
}

// Profile returns the saved profile, or nil when none was ever saved.
func (s *Store) Profile(ctx context.Context) (*model.UserProfile, error) {
	b, err := s.get(ctx, keyProfile)
	if err != nil || b == nil {
		return nil, err
	}
	var p model.UserProfile
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &p, nil
}

// SaveProfile replaces the stored profile.
func (s *Store) SaveProfile(ctx context.Context, p model.UserProfile) error {
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	return s.put(ctx, keyProfile, b)
}

// Recipes returns the saved collection, upgraded to the current schema.
func (s *Store) Recipes(ctx context.Context) ([]model.Recipe, error) {
	b, err := s.get(ctx, keyRecipes)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return []model.Recipe{}, nil
	}
	return convert.DecodeRecipes(b)
}

// SaveRecipes replaces the stored collection.
func (s *Store) SaveRecipes(ctx context.Context, rs []model.Recipe) error {
	b, err := convert.EncodeRecipes(rs)
	if err != nil {
		return err
	}
	return s.put(ctx, keyRecipes, b)
}

// Plan returns the saved plan, empty when absent.
func (s *Store) Plan(ctx context.Context) ([]model.MealPlanItem, error) {
	b, err := s.get(ctx, keyPlan)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return []model.MealPlanItem{}, nil
	}
	var items []model.MealPlanItem
	if err := json.Unmarshal(b, &items); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}
	return items, nil
}

// SavePlan replaces the stored plan.
func (s *Store) SavePlan(ctx context.Context, items []model.MealPlanItem) error {
	b, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	return s.put(ctx, keyPlan, b)
}

// Household returns the cached membership pointer, or nil when not joined.
func (s *Store) Household(ctx context.Context) (*model.Household, error) {
	b, err := s.get(ctx, keyHousehold)
	if err != nil || b == nil {
		return nil, err
	}
	var h model.Household
	if err := json.Unmarshal(b, &h); err != nil {
		return nil, fmt.Errorf("decode household pointer: %w", err)
	}
	return &h, nil
}

// SaveHousehold replaces the membership pointer.
func (s *Store) SaveHousehold(ctx context.Context, h model.Household) error {
	b, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("encode household pointer: %w", err)
	}
	return s.put(ctx, keyHousehold, b)
}

// DeleteHousehold discards the membership pointer. Leaving a household is
// exactly this: no remote row is touched.
func (s *Store) DeleteHousehold(ctx context.Context) error {
	return s.del(ctx, keyHousehold)
}

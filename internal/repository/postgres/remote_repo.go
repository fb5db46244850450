package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"sharebite/internal/convert"
	"sharebite/internal/errs"
	"sharebite/internal/model"
)

// Repo implements repository.RemoteStore on PostgreSQL. Recipes are stored as
// a serialized payload in the data column; plans are fully relational.
type Repo struct{ db *DB }

// NewRepo constructs the household store repository.
func NewRepo(db *DB) *Repo { return &Repo{db: db} }

// Recipes returns every recipe row tagged with the household, upgraded to the
// current schema.
func (r *Repo) Recipes(ctx context.Context, householdID string) ([]model.Recipe, error) {
	const q = `SELECT data FROM recipes WHERE household_id=$1`
	rows, err := r.db.Pool.Query(ctx, q, householdID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Recipe{}
	for rows.Next() {
		var b []byte
		if err := rows.Scan(&b); err != nil {
			return nil, err
		}
		rec, err := convert.DecodeRecipe(b)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// RecipeIDs returns the identities currently present for the household.
func (r *Repo) RecipeIDs(ctx context.Context, householdID string) ([]string, error) {
	return r.ids(ctx, `SELECT id FROM recipes WHERE household_id=$1`, householdID)
}

// UpsertRecipes inserts or replaces rows; each row is a full-value replace,
// never a field-level merge.
func (r *Repo) UpsertRecipes(ctx context.Context, householdID string, rs []model.Recipe) (err error) {
	if len(rs) == 0 {
		return nil
	}
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()

	const q = `
INSERT INTO recipes (id, household_id, title, data) VALUES ($1,$2,$3,$4)
ON CONFLICT (id) DO UPDATE SET household_id=EXCLUDED.household_id, title=EXCLUDED.title, data=EXCLUDED.data`
	for i, rec := range rs {
		b, encErr := convert.EncodeRecipe(rec)
		if encErr != nil {
			return fmt.Errorf("recipe[%d]: %w", i, encErr)
		}
		if _, err = tx.Exec(ctx, q, rec.ID, householdID, rec.Title, b); err != nil {
			return err
		}
	}
	return nil
}

// DeleteRecipes removes the rows with the given identities.
func (r *Repo) DeleteRecipes(ctx context.Context, householdID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	const q = `DELETE FROM recipes WHERE household_id=$1 AND id = ANY($2)`
	_, err := r.db.Pool.Exec(ctx, q, householdID, ids)
	return err
}

// Plan returns every plan row tagged with the household.
func (r *Repo) Plan(ctx context.Context, householdID string) ([]model.MealPlanItem, error) {
	const q = `SELECT id, date, type, recipe_id FROM plans WHERE household_id=$1`
	rows, err := r.db.Pool.Query(ctx, q, householdID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.MealPlanItem{}
	for rows.Next() {
		var it model.MealPlanItem
		if err := rows.Scan(&it.ID, &it.Date, &it.Type, &it.RecipeID); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// PlanIDs returns the identities currently present for the household.
func (r *Repo) PlanIDs(ctx context.Context, householdID string) ([]string, error) {
	return r.ids(ctx, `SELECT id FROM plans WHERE household_id=$1`, householdID)
}

// UpsertPlan inserts or replaces plan rows.
func (r *Repo) UpsertPlan(ctx context.Context, householdID string, items []model.MealPlanItem) (err error) {
	if len(items) == 0 {
		return nil
	}
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()

	const q = `
INSERT INTO plans (id, household_id, date, type, recipe_id) VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (id) DO UPDATE SET household_id=EXCLUDED.household_id, date=EXCLUDED.date, type=EXCLUDED.type, recipe_id=EXCLUDED.recipe_id`
	for _, it := range items {
		if _, err = tx.Exec(ctx, q, it.ID, householdID, it.Date, string(it.Type), it.RecipeID); err != nil {
			return err
		}
	}
	return nil
}

// DeletePlanItems removes the rows with the given identities.
func (r *Repo) DeletePlanItems(ctx context.Context, householdID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	const q = `DELETE FROM plans WHERE household_id=$1 AND id = ANY($2)`
	_, err := r.db.Pool.Exec(ctx, q, householdID, ids)
	return err
}

// CreateHousehold inserts a new household row. A join-code collision maps to
// errs.ErrCodeTaken so the caller can regenerate and retry.
func (r *Repo) CreateHousehold(ctx context.Context, h model.Household) error {
	const q = `INSERT INTO households (id, name, code) VALUES ($1,$2,$3)`
	if _, err := r.db.Pool.Exec(ctx, q, h.ID, h.Name, h.Code); err != nil {
		if isUniqueViolation(err) {
			return errs.ErrCodeTaken
		}
		return err
	}
	return nil
}

// HouseholdByCode resolves a join code. An unknown code is a valid outcome,
// reported as (nil, nil).
func (r *Repo) HouseholdByCode(ctx context.Context, code string) (*model.Household, error) {
	const q = `SELECT id, name, code FROM households WHERE code=$1`
	var h model.Household
	err := r.db.Pool.QueryRow(ctx, q, code).Scan(&h.ID, &h.Name, &h.Code)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// HouseholdName returns the current display name of a household.
func (r *Repo) HouseholdName(ctx context.Context, id string) (string, error) {
	const q = `SELECT name FROM households WHERE id=$1`
	var name string
	if err := r.db.Pool.QueryRow(ctx, q, id).Scan(&name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", errs.ErrNotFound
		}
		return "", err
	}
	return name, nil
}

// RenameHousehold updates the display name.
func (r *Repo) RenameHousehold(ctx context.Context, id, name string) error {
	const q = `UPDATE households SET name=$2 WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, id, name)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *Repo) ids(ctx context.Context, q, householdID string) ([]string, error) {
	rows, err := r.db.Pool.Query(ctx, q, householdID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

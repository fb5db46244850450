package repository

import (
	"context"

	"sharebite/internal/model"
)

// RemoteStore is the shared household store. Rows are keyed by client
// generated identities; every upsert is a full-value replace per row.
// Row updates are atomic individually but nothing serializes a delete pass
// against another device's concurrent upsert.
type RemoteStore interface {
	// Recipes returns every recipe row tagged with the household.
	Recipes(ctx context.Context, householdID string) ([]model.Recipe, error)
	// RecipeIDs returns the identities currently present for the household.
	RecipeIDs(ctx context.Context, householdID string) ([]string, error)
	// UpsertRecipes inserts or replaces the given rows.
	UpsertRecipes(ctx context.Context, householdID string, rs []model.Recipe) error
	// DeleteRecipes removes the rows with the given identities.
	DeleteRecipes(ctx context.Context, householdID string, ids []string) error

	// Plan returns every plan row tagged with the household.
	Plan(ctx context.Context, householdID string) ([]model.MealPlanItem, error)
	// PlanIDs returns the identities currently present for the household.
	PlanIDs(ctx context.Context, householdID string) ([]string, error)
	// UpsertPlan inserts or replaces the given rows.
	UpsertPlan(ctx context.Context, householdID string, items []model.MealPlanItem) error
	// DeletePlanItems removes the rows with the given identities.
	DeletePlanItems(ctx context.Context, householdID string, ids []string) error

	// CreateHousehold inserts a new household row. A join-code collision is
	// reported as errs.ErrCodeTaken.
	CreateHousehold(ctx context.Context, h model.Household) error
	// HouseholdByCode resolves a join code; an unknown code returns (nil, nil).
	HouseholdByCode(ctx context.Context, code string) (*model.Household, error)
	// HouseholdName returns the current display name of a household.
	HouseholdName(ctx context.Context, id string) (string, error)
	// RenameHousehold updates the display name.
	RenameHousehold(ctx context.Context, id, name string) error
}

// Package repository defines persistence interfaces implemented by the
// sqlite (device-local) and postgres (household) backends.
package repository

import (
	"context"

	"sharebite/internal/model"
)

// LocalStore is the device-local blob store. It is always present and is the
// source of truth whenever no household is joined. Writes replace the whole
// stored value; there is no merging at this layer.
type LocalStore interface {
	// Profile returns the saved profile, or nil when none was ever saved.
	Profile(ctx context.Context) (*model.UserProfile, error)
	// SaveProfile replaces the stored profile.
	SaveProfile(ctx context.Context, p model.UserProfile) error

	// Recipes returns the saved collection, empty when absent.
	Recipes(ctx context.Context) ([]model.Recipe, error)
	// SaveRecipes replaces the stored collection.
	SaveRecipes(ctx context.Context, rs []model.Recipe) error

	// Plan returns the saved plan, empty when absent.
	Plan(ctx context.Context) ([]model.MealPlanItem, error)
	// SavePlan replaces the stored plan.
	SavePlan(ctx context.Context, items []model.MealPlanItem) error

	// Household returns the cached membership pointer, or nil when not joined.
	Household(ctx context.Context) (*model.Household, error)
	// SaveHousehold replaces the membership pointer.
	SaveHousehold(ctx context.Context, h model.Household) error
	// DeleteHousehold discards the membership pointer.
	DeleteHousehold(ctx context.Context) error

	// Close releases the underlying database handle.
	Close() error
}

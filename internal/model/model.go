// Package model defines domain entities shared by the engine and repositories.
package model

import (
	"github.com/gofrs/uuid/v5"
)

// Category classifies a recipe record. Two reserved values repurpose the
// Recipe shape as a generic record: Message backs the kitchen message board
// and ShoppingListData persists the shopping list.
type Category string

const (
	CategoryBreakfast Category = "早餐"
	CategoryMainMeal  Category = "正餐" // merged lunch and dinner
	CategorySnack     Category = "小食/甜点"
	CategoryDrink     Category = "饮品"
	CategoryOther     Category = "其他"

	CategoryMessage          Category = "留言"
	CategoryShoppingListData Category = "清单数据"
)

// Ingredient is one entry of a recipe's ingredient list. Checked carries
// shopping-list state and is unused for ordinary recipes.
type Ingredient struct {
	Name    string `json:"name"`
	Amount  string `json:"amount"`
	Checked bool   `json:"checked,omitempty"`
}

// RecipeStep is a single preparation step, optionally illustrated.
type RecipeStep struct {
	Description string `json:"description"`
	Image       string `json:"image,omitempty"` // URL or inline-encoded bitmap
}

// Recipe is a single stored record. The ID is client-generated and globally
// unique; CreatedAt is a unix-millisecond timestamp used for display ordering.
type Recipe struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Image       string       `json:"image"` // URL or inline-encoded bitmap
	Category    Category     `json:"category"`
	Tags        []string     `json:"tags"`
	Ingredients []Ingredient `json:"ingredients"`
	Steps       []RecipeStep `json:"steps"`
	CreatedAt   int64        `json:"createdAt"`
	IsFavorite  bool         `json:"isFavorite,omitempty"`
	Rating      int          `json:"rating,omitempty"` // 0..5
}

// MealType is the plan slot a meal occupies.
type MealType string

const (
	MealBreakfast MealType = "breakfast"
	MealLunch     MealType = "lunch"
	MealDinner    MealType = "dinner"
	MealSnack     MealType = "snack"
)

// MealPlanItem schedules a recipe on a calendar day. RecipeID may dangle if
// the recipe was deleted while still planned; callers must tolerate that.
type MealPlanItem struct {
	ID       string   `json:"id"`
	Date     string   `json:"date"` // YYYY-MM-DD, no timezone
	Type     MealType `json:"type"`
	RecipeID string   `json:"recipeId"`
}

// Titles holds the four customizable UI-label slots.
type Titles struct {
	Home            string `json:"home,omitempty"`
	Planner         string `json:"planner,omitempty"`
	PlannerSubtitle string `json:"plannerSubtitle,omitempty"`
	Shopping        string `json:"shopping,omitempty"`
}

// UserProfile is device-local personalization. It is never replicated to the
// household store, even when every other collection is shared.
type UserProfile struct {
	Name    string  `json:"name"`
	Avatar  string  `json:"avatar"` // emoji glyph or inline-encoded bitmap
	Tagline string  `json:"tagline,omitempty"`
	Titles  *Titles `json:"titles,omitempty"`
}

// Household is the sharing scope. A device belongs to at most one household;
// the membership is a locally cached pointer, not a remote row.
type Household struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"` // short uppercase join token
}

// Snapshot is the renderable state produced by the load path.
type Snapshot struct {
	Recipes []Recipe       `json:"recipes"`
	Plan    []MealPlanItem `json:"plan"`
	Profile UserProfile    `json:"profile"`
}

// NewID returns a fresh client-generated record identity.
func NewID() string {
	return uuid.Must(uuid.NewV4()).String()
}

// Fixed defaults used when no profile was ever saved on the device.
const (
	DefaultProfileName = "我的食堂"
	DefaultAvatar      = "🐧"
	DefaultTagline     = "今天也要好好吃饭"
)

// DefaultTitles returns the stock UI labels.
func DefaultTitles() Titles {
	return Titles{
		Home:            "企鹅食堂",
		Planner:         "饮食计划",
		PlannerSubtitle: "Meal Planner",
		Shopping:        "购物清单",
	}
}

// DefaultProfile constructs the profile used before the user personalizes one.
func DefaultProfile() UserProfile {
	t := DefaultTitles()
	return UserProfile{
		Name:    DefaultProfileName,
		Avatar:  DefaultAvatar,
		Tagline: DefaultTagline,
		Titles:  &t,
	}
}

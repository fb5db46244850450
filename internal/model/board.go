package model

import (
	"fmt"
	"sort"
	"time"
)

// NewMessage builds a kitchen-board post as a Message-category record.
// Title carries the text, Description the author name and Image the avatar;
// CreatedAt is the sort key for the board.
func NewMessage(profile UserProfile, text string, now time.Time) Recipe {
	return Recipe{
		ID:          fmt.Sprintf("msg-%d", now.UnixMilli()),
		Title:       text,
		Description: profile.Name,
		Image:       profile.Avatar,
		Category:    CategoryMessage,
		Tags:        []string{},
		Ingredients: []Ingredient{},
		Steps:       []RecipeStep{},
		CreatedAt:   now.UnixMilli(),
	}
}

// Messages returns the kitchen-board posts, newest first.
func Messages(recipes []Recipe) []Recipe {
	var out []Recipe
	for _, r := range recipes {
		if r.Category == CategoryMessage {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out
}

// VisibleRecipes filters out the two reserved categories so that board posts
// and shopping-list state never surface as cookable recipes.
func VisibleRecipes(recipes []Recipe) []Recipe {
	out := make([]Recipe, 0, len(recipes))
	for _, r := range recipes {
		if r.Category == CategoryMessage || r.Category == CategoryShoppingListData {
			continue
		}
		out = append(out, r)
	}
	return out
}

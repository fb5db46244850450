package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// ManualItem is a shopping-list entry added by hand rather than derived from
// a planned recipe's ingredients.
type ManualItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ShoppingListData is the payload persisted inside the Description of the
// single ShoppingListData-category record.
type ShoppingListData struct {
	ManualItems  []ManualItem `json:"manualItems"`
	CheckedItems []string     `json:"checkedItems"`
}

// ShoppingList extracts the shopping-list payload from the collection.
// A missing or malformed record yields an empty list.
func ShoppingList(recipes []Recipe) ShoppingListData {
	for _, r := range recipes {
		if r.Category != CategoryShoppingListData {
			continue
		}
		var data ShoppingListData
		if err := json.Unmarshal([]byte(r.Description), &data); err != nil {
			break
		}
		if data.ManualItems == nil {
			data.ManualItems = []ManualItem{}
		}
		if data.CheckedItems == nil {
			data.CheckedItems = []string{}
		}
		return data
	}
	return ShoppingListData{ManualItems: []ManualItem{}, CheckedItems: []string{}}
}

// UpdateShoppingList writes data into the list record, creating the record on
// first use. The returned collection is the caller's new full truth.
func UpdateShoppingList(recipes []Recipe, data ShoppingListData, now time.Time) ([]Recipe, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode shopping list: %w", err)
	}
	out := make([]Recipe, len(recipes))
	copy(out, recipes)
	for i, r := range out {
		if r.Category == CategoryShoppingListData {
			out[i].Description = string(payload)
			return out, nil
		}
	}
	return append(out, Recipe{
		ID:          fmt.Sprintf("sl-%d", now.UnixMilli()),
		Title:       "Shopping List Data",
		Description: string(payload),
		Category:    CategoryShoppingListData,
		Tags:        []string{},
		Ingredients: []Ingredient{},
		Steps:       []RecipeStep{},
		CreatedAt:   now.UnixMilli(),
	}), nil
}

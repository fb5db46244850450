package model

// PlacePlanItem appends item to the plan while enforcing the slot invariant:
// breakfast, lunch and dinner hold at most one item per date, snacks are
// unbounded. Placing a non-snack item removes every other item already
// occupying the same (date, type) slot.
func PlacePlanItem(plan []MealPlanItem, item MealPlanItem) []MealPlanItem {
	out := make([]MealPlanItem, 0, len(plan)+1)
	for _, p := range plan {
		if item.Type != MealSnack && p.Date == item.Date && p.Type == item.Type {
			continue
		}
		out = append(out, p)
	}
	return append(out, item)
}

// RemovePlanItem drops the item with the given identity, if present.
func RemovePlanItem(plan []MealPlanItem, id string) []MealPlanItem {
	out := make([]MealPlanItem, 0, len(plan))
	for _, p := range plan {
		if p.ID == id {
			continue
		}
		out = append(out, p)
	}
	return out
}

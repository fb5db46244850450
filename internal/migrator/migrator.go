// Package migrator upgrades recipe records written by older versions of the
// application to the current schema.
package migrator

import "sharebite/internal/model"

// SchemaVersion is the version stamped on newly written recipe payloads.
const SchemaVersion = 2

// Categories retired when the two separate main-meal slots were merged.
const (
	legacyLunch  model.Category = "午餐"
	legacyDinner model.Category = "晚餐"
)

// steps[i] upgrades a record from version i+1 to version i+2.
var steps = []func(model.Recipe) model.Recipe{
	mergeMealSlots,
}

// Upgrade runs the chain from the stored version to the current schema.
// Payloads written before versioning existed decode as version 0 and are
// treated as version 1. Upgrade is idempotent: re-running it on an already
// current record changes nothing.
func Upgrade(r model.Recipe, from int) model.Recipe {
	if from < 1 {
		from = 1
	}
	for v := from; v < SchemaVersion && v <= len(steps); v++ {
		r = steps[v-1](r)
	}
	if r.Tags == nil {
		r.Tags = []string{}
	}
	return r
}

// UpgradeAll applies Upgrade to every record of a collection.
func UpgradeAll(rs []model.Recipe, from int) []model.Recipe {
	out := make([]model.Recipe, len(rs))
	for i, r := range rs {
		out[i] = Upgrade(r, from)
	}
	return out
}

func mergeMealSlots(r model.Recipe) model.Recipe {
	if r.Category == legacyLunch || r.Category == legacyDinner {
		r.Category = model.CategoryMainMeal
	}
	return r
}

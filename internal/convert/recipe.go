// Package convert maps domain entities to their serialized storage
// representations.
package convert

import (
	"encoding/json"
	"fmt"

	"sharebite/internal/migrator"
	"sharebite/internal/model"
)

// recipeEnvelope is the JSON shape stored in the remote data column and in
// the local recipes blob. The schema version gates the migrator's upgrade
// chain; payloads written by the legacy web client carry no version field.
type recipeEnvelope struct {
	SchemaVersion int `json:"schemaVersion,omitempty"`
	model.Recipe
}

// EncodeRecipe serializes a recipe stamped with the current schema version.
func EncodeRecipe(r model.Recipe) ([]byte, error) {
	b, err := json.Marshal(recipeEnvelope{SchemaVersion: migrator.SchemaVersion, Recipe: r})
	if err != nil {
		return nil, fmt.Errorf("encode recipe %s: %w", r.ID, err)
	}
	return b, nil
}

// DecodeRecipe deserializes a stored payload and upgrades it to the current
// schema. Every load path funnels through here, so legacy records are
// normalized before any caller sees them.
func DecodeRecipe(b []byte) (model.Recipe, error) {
	var env recipeEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return model.Recipe{}, fmt.Errorf("decode recipe: %w", err)
	}
	return migrator.Upgrade(env.Recipe, env.SchemaVersion), nil
}

// EncodeRecipes serializes a full collection as one blob (local store layout).
func EncodeRecipes(rs []model.Recipe) ([]byte, error) {
	envs := make([]recipeEnvelope, len(rs))
	for i, r := range rs {
		envs[i] = recipeEnvelope{SchemaVersion: migrator.SchemaVersion, Recipe: r}
	}
	b, err := json.Marshal(envs)
	if err != nil {
		return nil, fmt.Errorf("encode recipes: %w", err)
	}
	return b, nil
}

// DecodeRecipes deserializes and upgrades a full collection blob.
func DecodeRecipes(b []byte) ([]model.Recipe, error) {
	var envs []recipeEnvelope
	if err := json.Unmarshal(b, &envs); err != nil {
		return nil, fmt.Errorf("decode recipes: %w", err)
	}
	out := make([]model.Recipe, len(envs))
	for i, env := range envs {
		out[i] = migrator.Upgrade(env.Recipe, env.SchemaVersion)
	}
	return out, nil
}

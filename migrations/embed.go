// Package migrations embeds the household-store schema applied by
// internal/migrate.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS

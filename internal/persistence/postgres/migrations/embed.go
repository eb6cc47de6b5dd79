package migrations

import "embed"

// FS contains embedded Postgres migrations for the ranking store.
//
//go:embed *.sql
var FS embed.FS

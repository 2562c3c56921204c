package migrations

import "embed"

// FS contains embedded SQLite migrations for card and stats storage.
//
//go:embed *.sql
var FS embed.FS

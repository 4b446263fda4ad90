// Package migrations embeds the SQL schema for the postgres directory.
package migrations

import "embed"

// FS holds the numbered *.sql migration files at its root.
//
//go:embed *.sql
var FS embed.FS

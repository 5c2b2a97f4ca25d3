// Package migrations embeds the worker cache schema migrations.
package migrations

import "embed"

// FS holds the SQL migration files applied at store open.
//
//go:embed *.sql
var FS embed.FS

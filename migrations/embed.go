// Package migrations embeds the SQL schema migrations applied on server start.
package migrations

import "embed"

// FS holds the goose migration files.
//
//go:embed *.sql
var FS embed.FS

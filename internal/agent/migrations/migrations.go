// Package migrations embeds the agent's SQLite schema migrations for goose.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS

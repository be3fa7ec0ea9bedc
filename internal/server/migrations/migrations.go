// Package migrations embeds the backend's PostgreSQL schema migrations so
// the server binary can migrate on startup.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS

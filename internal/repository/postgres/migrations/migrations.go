// Package migrations embeds the Postgres schema migrations.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS

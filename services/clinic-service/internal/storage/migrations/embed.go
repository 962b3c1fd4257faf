// Package migrations embeds the Postgres schema of the clinic service.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS

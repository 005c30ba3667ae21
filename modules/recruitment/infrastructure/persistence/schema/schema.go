// Package schema embeds the recruitment module's goose migrations.
package schema

import "embed"

//go:embed *.sql
var Migrations embed.FS

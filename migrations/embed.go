// Package migrations embeds the ordered schema migrations.
package migrations

import "embed"

// FS holds the up and down scripts in golang-migrate naming.
//
//go:embed *.sql
var FS embed.FS

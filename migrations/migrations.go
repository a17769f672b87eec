// Package migrations embeds the SQL schema migrations applied at startup.
package migrations

import "embed"

// FS holds the versioned *.up.sql / *.down.sql files.
//
//go:embed *.sql
var FS embed.FS

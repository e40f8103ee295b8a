// Package migrations holds the SQL schema migrations applied by goose.
// Table names are written as ${TABLE_PREFIX}name and substituted at run time.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS

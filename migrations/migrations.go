// Package migrations embeds the SQL schema migrations so the migrate
// command and tests can run them without a checkout.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS

// Package schema embeds the goose migrations for the credential store
package schema

import "embed"

//go:embed *.sql
var Migrations embed.FS

//go:build tools

// tools pins the code generators and linters used by this repo:
// goose (migrations), sqlc (internal/database), swag (API docs from the handler annotations), gosec and staticcheck.
package tools

import (
	_ "github.com/pressly/goose/v3/cmd/goose"
	_ "github.com/securego/gosec/v2/cmd/gosec"
	_ "github.com/sqlc-dev/sqlc/cmd/sqlc"
	_ "github.com/swaggo/swag/cmd/swag"
	_ "honnef.co/go/tools/cmd/staticcheck"
)

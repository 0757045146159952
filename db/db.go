// Package db carries the SQL schema for both services.
package db

import _ "embed"

// Schema holds the full DDL. Statements are idempotent so applying it to an
// already-initialized database is safe.
//
//go:embed schema.sql
var Schema string

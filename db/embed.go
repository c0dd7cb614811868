// Package db embeds the database schema applied at startup.
package db

import _ "embed"

// Schema is the DDL for all engine tables. Statements are idempotent so the
// schema can run on every boot.
//
//go:embed schema.sql
var Schema string

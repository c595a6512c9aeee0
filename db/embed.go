// Package db embeds the SQL schema for the shop database: products, dated
// stock batches, customers, suppliers, staff, and the sales journal.
package db

import _ "embed"

// Schema holds the DDL applied at server startup and by the seeding and
// ingest CLIs. Idempotent: every statement guards with IF NOT EXISTS.
//
//go:embed migrations/001_schema.sql
var Schema string

// Package migrations embeds the goose SQL migrations for every SQL-backed
// storage engine, one directory per dialect.
package migrations

import "embed"

//go:embed postgres/*.sql
var Postgres embed.FS

//go:embed sqlite/*.sql
var SQLite embed.FS

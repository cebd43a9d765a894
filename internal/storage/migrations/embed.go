// Package migrations embeds and applies the schema for both storage
// backends: PostgreSQL for replay inputs and outputs, ClickHouse for
// the analytics tables.
package migrations

import "embed"

// PostgresFS embeds all PostgreSQL migration files.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// ClickhouseFS embeds all ClickHouse migration files.
//
//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS

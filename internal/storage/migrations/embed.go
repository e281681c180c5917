// Package migrations holds the embedded DDL for the PID tables and the
// runners that apply it on startup.
package migrations

import "embed"

//go:embed postgres/*.sql
var PostgresFS embed.FS

//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS

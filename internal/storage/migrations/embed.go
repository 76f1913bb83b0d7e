// Package migrations ships the backend schemas inside the binary so
// the daemon can migrate on start without an on-disk assets directory.
package migrations

import "embed"

var (
	//go:embed postgres/*.sql
	PostgresFS embed.FS

	//go:embed clickhouse/*.sql
	ClickhouseFS embed.FS
)

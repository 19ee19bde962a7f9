// Package migrations embeds the goose schema migrations into the binary.
//
// The same files are applied to SQLite and PostgreSQL, so they stick to
// column types and statements both engines accept.
package migrations

import (
	"embed"

	"github.com/nerrad567/gray-logic-auth/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}

// Package migrations embeds SQL migration files into the binary, so the
// core can migrate its schema without the files present on disk.
package migrations

import (
	"embed"

	"github.com/greenrack/greenrack-core/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "." // Files sit at the root of the embedded FS
}

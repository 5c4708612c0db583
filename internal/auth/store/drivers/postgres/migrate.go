package postgres

import (
	"context"

	"github.com/pulsefeed/pulse/internal/auth/store/drivers/postgres/migrations"

	"github.com/pressly/goose/v3"
)

// ApplyMigrations runs the embedded goose migrations against the Store's
// database.
func (s *Store) ApplyMigrations() error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return goose.UpContext(context.Background(), s.db, ".")
}

package postgres

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrationStatus versión aplicada del esquema.
type MigrationStatus struct {
	Version uint
	Dirty   bool
	Changed bool // false si no había migraciones pendientes
}

// Migrate aplica las migraciones embebidas pendientes sobre el pool.
func Migrate(pool *pgxpool.Pool, log zerolog.Logger) (MigrationStatus, error) {
	var status MigrationStatus

	m, err := newMigrator(pool)
	if err != nil {
		return status, err
	}

	upErr := m.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		_, _ = m.Close()
		return status, fmt.Errorf("apply migrations: %w", upErr)
	}
	status.Changed = upErr == nil

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		_, _ = m.Close()
		return status, fmt.Errorf("read migration version: %w", err)
	}
	status.Version, status.Dirty = version, dirty

	sourceErr, dbErr := m.Close()
	if sourceErr != nil {
		return status, fmt.Errorf("close migration source: %w", sourceErr)
	}
	if dbErr != nil {
		return status, fmt.Errorf("close migration database: %w", dbErr)
	}

	if status.Changed {
		log.Info().Uint("version", status.Version).Msg("migraciones aplicadas")
	} else {
		log.Info().Uint("version", status.Version).Msg("sin migraciones pendientes")
	}
	return status, nil
}

func newMigrator(pool *pgxpool.Pool) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}
	// database/sql sobre el mismo pool; el driver de migrate lo cierra en m.Close()
	db := stdlib.OpenDBFromPool(pool)
	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, nil
}

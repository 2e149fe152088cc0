package repo

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/shaiso/Hookflow/internal/repo/migrations"
)

// migrateScheme — схема URL драйвера pgx/v5 в golang-migrate.
const migrateScheme = "pgx5://"

// MigrateURL переводит DSN Postgres в URL для golang-migrate.
func MigrateURL(dbURL string) string {
	for _, prefix := range []string{"postgresql://", "postgres://"} {
		if strings.HasPrefix(dbURL, prefix) {
			return migrateScheme + strings.TrimPrefix(dbURL, prefix)
		}
	}
	return dbURL
}

func newMigrationSource() (source.Driver, error) {
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("open migrations: %w", err)
	}
	return src, nil
}

func newMigrator(dbURL string) (*migrate.Migrate, error) {
	src, err := newMigrationSource()
	if err != nil {
		return nil, err
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, MigrateURL(dbURL))
	if err != nil {
		return nil, fmt.Errorf("init migrate: %w", err)
	}
	return m, nil
}

// MigrateUp применяет все новые миграции.
// Возвращает текущую версию схемы.
func MigrateUp(dbURL string) (uint, error) {
	m, err := newMigrator(dbURL)
	if err != nil {
		return 0, err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("migrate up: %w", err)
	}
	return currentVersion(m)
}

// MigrateDown откатывает steps миграций; steps <= 0 — все.
func MigrateDown(dbURL string, steps int) (uint, error) {
	m, err := newMigrator(dbURL)
	if err != nil {
		return 0, err
	}
	defer m.Close()

	if steps > 0 {
		err = m.Steps(-steps)
	} else {
		err = m.Down()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("migrate down: %w", err)
	}
	return currentVersion(m)
}

func currentVersion(m *migrate.Migrate) (uint, error) {
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("%w: schema version %d is dirty", ErrInvalidState, version)
	}
	return version, nil
}

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// newMigrator borrows a single connection from db. Callers must run the
// returned release func so the connection goes back to the pool; db itself
// stays open.
func newMigrator(ctx context.Context, db *sql.DB, migrations fs.FS) (*migrate.Migrate, func() error, error) {
	source, err := iofs.New(migrations, ".")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open migrations: %w", err)
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		source.Close()
		return nil, nil, fmt.Errorf("failed to acquire migration connection: %w", err)
	}

	driver, err := migratepg.WithConnection(ctx, conn, &migratepg.Config{})
	if err != nil {
		source.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("failed to create migrate driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		source.Close()
		driver.Close()
		return nil, nil, fmt.Errorf("failed to create migrator: %w", err)
	}

	release := func() error {
		srcErr, dbErr := m.Close()
		return errors.Join(srcErr, dbErr)
	}
	return m, release, nil
}

// MigrateUp applies every pending migration.
func MigrateUp(ctx context.Context, db *sql.DB, migrations fs.FS) (err error) {
	m, release, err := newMigrator(ctx, db, migrations)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, release()) }()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// MigrateDown rolls back the given number of migrations.
func MigrateDown(ctx context.Context, db *sql.DB, migrations fs.FS, steps int) (err error) {
	m, release, err := newMigrator(ctx, db, migrations)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, release()) }()

	if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to roll back migrations: %w", err)
	}
	return nil
}

// MigrationVersion returns the current schema version.
func MigrationVersion(ctx context.Context, db *sql.DB, migrations fs.FS) (_ uint, _ bool, err error) {
	m, release, err := newMigrator(ctx, db, migrations)
	if err != nil {
		return 0, false, err
	}
	defer func() { err = errors.Join(err, release()) }()

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

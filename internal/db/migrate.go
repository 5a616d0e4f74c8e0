package db

import (
	"database/sql"
	"embed"
	"errors"

	"github.com/golang-migrate/migrate/v4"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// RunMigrations brings the schema up to date. Migrations ship inside the
// binary so the API can be deployed as a single artifact.
func RunMigrations(dbURL string) error {
	src, err := iofs.New(migrationsFS, "migrations")

	if err != nil {
		return err
	}

	conn, err := sql.Open("pgx", dbURL)

	if err != nil {
		return err
	}

	driver, err := pgxmigrate.WithInstance(conn, &pgxmigrate.Config{})

	if err != nil {
		conn.Close()
		return err
	}

	m, err := migrate.NewWithInstance("iofs", src, "pgx", driver)

	if err != nil {
		conn.Close()
		return err
	}

	err = m.Up()

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	srcErr, dbErr := m.Close()

	if srcErr != nil {
		return srcErr
	}

	return dbErr
}

package data

import (
	"database/sql"
	"embed"
	"path"

	"careplatform/outbox-relay/config"
	"careplatform/outbox-relay/log"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/johejo/golang-migrate-extra/source/iofs"
	"github.com/pkg/errors"
)

const (
	migrationsTable      = "outbox_relay_schema_migrations"
	migratedOutbox       = "outbox"
	migratedNotification = "notification"
)

//go:embed migrations
var migrationFiles embed.FS

// MigrateDatabase creates the outbox and notification tables. The migrations
// only know the default table names, so services that keep their queues
// under other names manage the schema themselves and run with
// --skip-migrations.
func MigrateDatabase(db *sql.DB, cfg *config.Config) error {
	if cfg.SkipMigrations {
		log.Logger.Info("skipping database migrations because they are disabled")
		return nil
	}

	if cfg.DBOutboxTable != migratedOutbox || cfg.DBNotificationTable != migratedNotification {
		return errors.Errorf(
			"migrations create the %q and %q tables, but %q and %q are configured: apply the schema yourself and set --skip-migrations",
			migratedOutbox, migratedNotification, cfg.DBOutboxTable, cfg.DBNotificationTable,
		)
	}

	target, err := newMigrationTarget(db, cfg.DBDriver)
	if err != nil {
		return errors.Wrap(err, "unable to create migration instance from database")
	}

	src, err := createMigrateSourceDriver(cfg.DBDriver)
	if err != nil {
		return errors.Wrap(err, "unable to load migration files from embedded filesystem")
	}

	m, err := migrate.NewWithInstance("iofs", src, cfg.DBSchema, target)
	if err != nil {
		return errors.Wrap(err, "failed to load migration files from source driver")
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return errors.Wrap(err, "failed to migrate database")
	}

	v, dirty, _ := m.Version()
	log.Logger.WithField("version", v).WithField("dirty", dirty).Info("database schema is up-to-date")

	return nil
}

func newMigrationTarget(db *sql.DB, driver config.DbDriver) (database.Driver, error) {
	if driver.MySQL() {
		return mysql.WithInstance(db, &mysql.Config{MigrationsTable: migrationsTable})
	}
	return postgres.WithInstance(db, &postgres.Config{MigrationsTable: migrationsTable})
}

func createMigrateSourceDriver(driver config.DbDriver) (source.Driver, error) {
	dir := "postgres"
	if driver.MySQL() {
		dir = "mysql"
	}
	return iofs.New(migrationFiles, path.Join("migrations", dir))
}

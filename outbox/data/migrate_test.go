package data

import (
	"strings"
	"testing"

	"careplatform/outbox-relay/config"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestCreateMigrateSourceDriver(t *testing.T) {
	for _, driver := range []config.DbDriver{config.MySQL, config.Postgres} {
		t.Run(string(driver), func(t *testing.T) {
			d, err := createMigrateSourceDriver(driver)
			if err != nil {
				t.Fatalf("unexpected error: %s", err)
			}
			defer d.Close()

			first, err := d.First()
			if err != nil {
				t.Fatalf("unexpected error reading the first migration: %s", err)
			}
			if first != 1 {
				t.Errorf("expected the first migration to be version 1, got %d", first)
			}

			next, err := d.Next(first)
			if err != nil || next != 2 {
				t.Errorf("expected a second migration, got %d (%v)", next, err)
			}
		})
	}
}

func TestMigrateDatabaseWhenSkipped(t *testing.T) {
	db, mock, _ := sqlmock.New()
	cfg := &config.Config{SkipMigrations: true, DBOutboxTable: "events", DBNotificationTable: "notices"}

	if err := MigrateDatabase(db, cfg); err != nil {
		t.Errorf("unexpected error: %s", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expected no queries to be run: %s", err)
	}
}

func TestMigrateDatabaseWithCustomTableNames(t *testing.T) {
	db, mock, _ := sqlmock.New()
	cfg := &config.Config{DBDriver: config.Postgres, DBOutboxTable: "events", DBNotificationTable: "notification"}

	err := MigrateDatabase(db, cfg)
	if err == nil || !strings.Contains(err.Error(), "--skip-migrations") {
		t.Errorf("expected an error pointing at --skip-migrations, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expected no queries to be run: %s", err)
	}
}

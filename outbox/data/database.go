package data

import (
	"database/sql"
	"time"

	"careplatform/outbox-relay/config"
	"careplatform/outbox-relay/log"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v4/stdlib"
)

const (
	connectionAttempts    = 30
	maxIdleConnections    = 5
	maxConnectionLifetime = time.Minute * 1
)

func init() {
	setupLoggers()
}

func setupLoggers() {
	err := mysql.SetLogger(log.Logger)
	if err != nil {
		log.Logger.WithError(err).Fatalf("unable to set up JSON logger for MySQL driver")
	}
}

// NewDB opens the connection pool, waits for the database to accept
// connections and applies the migrations unless they are disabled. The
// returned func closes the pool.
func NewDB(cfg *config.Config) (*sql.DB, func()) {
	log.Logger.Debug("connecting to the database")

	db, err := sql.Open(driverName(cfg.DBDriver), cfg.GetDSN())
	if err != nil {
		log.Logger.Fatalf("unable to connect to the database: %s", err)
	}

	db.SetMaxOpenConns(maxOpenConnections(cfg))
	db.SetMaxIdleConns(maxIdleConnections)
	db.SetConnMaxLifetime(maxConnectionLifetime)

	waitForDatabase(db, connectionAttempts, time.Second)
	if err := MigrateDatabase(db, cfg); err != nil {
		log.Logger.WithError(err).Fatal("unable to bring the database schema up-to-date")
	}

	cleanup := func() {
		if err := db.Close(); err != nil {
			log.Logger.WithError(err).Error("error closing database during shutdown process")
		}
	}

	return db, cleanup
}

// maxOpenConnections leaves one connection per claim loop, as each holds its
// claiming transaction open for the whole batch, plus headroom for the
// gauges, the health check and the notification dispatchers.
func maxOpenConnections(cfg *config.Config) int {
	return cfg.WriteConcurrency + len(cfg.NotificationChannels) + 5
}

func driverName(d config.DbDriver) string {
	if d.Postgres() {
		return "pgx"
	}
	return string(d)
}

func waitForDatabase(db *sql.DB, attempts int, interval time.Duration) {
	tries := attempts
	for {
		err := db.Ping()
		if err == nil {
			return
		}

		time.Sleep(interval)
		tries--
		log.Logger.Infof("database is not available (err: %s), retrying %d more time(s)", err, tries)

		if tries == 0 {
			log.Logger.Fatalf("database did not become available within %d connection attempts", attempts)
		}
	}
}

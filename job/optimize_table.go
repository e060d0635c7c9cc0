package job

import (
	"context"
	"database/sql"

	nr "github.com/newrelic/go-agent/v3/newrelic"

	"careplatform/outbox-relay/config"
	"careplatform/outbox-relay/log"
	"careplatform/outbox-relay/newrelic"
)

type tableOptimizer interface {
	Optimize(ctx context.Context) error
}

type optimize struct {
	tables []tableOptimizer
	SidecarQuitter
}

// RunOptimize reclaims the space left behind by deleted rows in the outbox
// and notification tables.
func RunOptimize(ctx context.Context, nrApp *nr.Application, db *sql.DB, cfg *config.Config) int {
	ctx, txn := newrelic.ContextWithTxn(ctx, "job: optimize", nrApp)
	defer txn.End()

	j := newOptimize(db, cfg, defaultSidecarQuitter(cfg))
	if j == nil {
		log.Logger.WithField("driver", cfg.DBDriver).Error("unable to determine the database driver")
		return 1
	}

	err := j.Execute(ctx)
	if err != nil {
		txn.NoticeError(err)
	}
	return exitCode(err)
}

func newOptimize(db *sql.DB, cfg *config.Config, sq SidecarQuitter) *optimize {
	j := &optimize{SidecarQuitter: sq}
	for _, table := range []string{cfg.DBOutboxTable, cfg.DBNotificationTable} {
		o := newTableOptimizer(db, table, cfg.DBDriver)
		if o == nil {
			return nil
		}
		j.tables = append(j.tables, o)
	}
	return j
}

func newTableOptimizer(db *sql.DB, tableName string, dr config.DbDriver) tableOptimizer {
	switch true {
	case dr.MySQL():
		return &mysqlOptimizeTable{
			Db:        db,
			TableName: tableName,
		}
	case dr.Postgres():
		return &postgresOptimizeTable{
			Db:        db,
			TableName: tableName,
		}
	}
	return nil
}

// Execute optimizes every table, stopping at the first failure.
func (o *optimize) Execute(ctx context.Context) error {
	var err error
	for _, t := range o.tables {
		if err = t.Optimize(ctx); err != nil {
			break
		}
	}

	return o.quitIfEnabled(err)
}

package job

import (
	"context"
	"database/sql"
	"fmt"

	"careplatform/outbox-relay/config"
	"careplatform/outbox-relay/log"
	"careplatform/outbox-relay/newrelic"
)

type postgresOptimizeTable struct {
	Db        *sql.DB
	TableName string
}

func (o *postgresOptimizeTable) Optimize(ctx context.Context) error {
	defer newrelic.StartDatastoreSegment(ctx, config.Postgres, o.TableName, "VACUUM").End()

	_, err := o.Db.ExecContext(ctx, fmt.Sprintf(`VACUUM "%s";`, o.TableName))

	logger := log.Logger.WithField("table", o.TableName)
	if err == nil {
		logger.Info("optimized Postgres table successfully")
	} else {
		logger.WithError(err).Error("an error occurred optimizing the Postgres table")
	}

	return err
}

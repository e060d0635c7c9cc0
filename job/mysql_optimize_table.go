package job

import (
	"context"
	"database/sql"
	"fmt"

	"careplatform/outbox-relay/config"
	"careplatform/outbox-relay/log"
	"careplatform/outbox-relay/newrelic"
)

type mysqlOptimizeTable struct {
	Db        *sql.DB
	TableName string
}

func (o *mysqlOptimizeTable) Optimize(ctx context.Context) error {
	defer newrelic.StartDatastoreSegment(ctx, config.MySQL, o.TableName, "OPTIMIZE TABLE").End()

	_, err := o.Db.ExecContext(ctx, fmt.Sprintf("OPTIMIZE TABLE `%s`;", o.TableName))

	logger := log.Logger.WithField("table", o.TableName)
	if err == nil {
		logger.Info("optimized MySQL table successfully")
	} else {
		logger.WithError(err).Error("an error occurred optimizing the MySQL table")
	}

	return err
}

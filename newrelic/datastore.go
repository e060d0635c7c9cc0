package newrelic

import (
	"context"

	"github.com/newrelic/go-agent/v3/newrelic"

	"careplatform/outbox-relay/config"
)

// StartDatastoreSegment times a statement against table as part of the
// transaction carried by ctx. End the returned segment once the statement
// has completed.
func StartDatastoreSegment(ctx context.Context, driver config.DbDriver, table, operation string) *newrelic.DatastoreSegment {
	return &newrelic.DatastoreSegment{
		Product:    datastoreProduct(driver),
		Collection: table,
		Operation:  operation,
		StartTime:  newrelic.FromContext(ctx).StartSegmentNow(),
	}
}

func datastoreProduct(driver config.DbDriver) newrelic.DatastoreProduct {
	switch {
	case driver.MySQL():
		return newrelic.DatastoreMySQL
	case driver.Postgres():
		return newrelic.DatastorePostgres
	}
	return newrelic.DatastoreProduct(driver.String())
}

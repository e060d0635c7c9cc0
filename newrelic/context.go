package newrelic

import (
	"context"

	"github.com/newrelic/go-agent/v3/newrelic"
)

// ContextWithTxn starts a transaction called name and returns it along with
// a child of parent carrying it. Without an application the transaction is a
// no-op, which keeps tests and disabled agents free of nil checks.
func ContextWithTxn(parent context.Context, name string, app *newrelic.Application) (context.Context, *newrelic.Transaction) {
	txn := &newrelic.Transaction{}
	if app != nil {
		txn = app.StartTransaction(name)
	}

	return newrelic.NewContext(parent, txn), txn
}

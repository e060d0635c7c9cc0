package job

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"testing"

	"careplatform/outbox-relay/config"
	"careplatform/outbox-relay/job/test"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestNewTableOptimizerForPostgres(t *testing.T) {
	db, _, _ := sqlmock.New()

	exp := &postgresOptimizeTable{
		Db:        db,
		TableName: "outbox",
	}

	act := newTableOptimizer(db, "outbox", config.Postgres)
	if !reflect.DeepEqual(exp, act) {
		t.Error("expected postgresOptimizeTable does not match actual")
	}
}

func TestNewTableOptimizerForMySQL(t *testing.T) {
	db, _, _ := sqlmock.New()

	exp := &mysqlOptimizeTable{
		Db:        db,
		TableName: "outbox",
	}

	act := newTableOptimizer(db, "outbox", config.MySQL)
	if !reflect.DeepEqual(exp, act) {
		t.Error("expected mysqlOptimizeTable does not match actual")
	}
}

func TestNewTableOptimizerForUnknownDriver(t *testing.T) {
	db, _, _ := sqlmock.New()

	if act := newTableOptimizer(db, "outbox", config.DbDriver("sqlite")); act != nil {
		t.Errorf("expected nil, got %#v", act)
	}
}

func TestNewOptimize(t *testing.T) {
	db, _, _ := sqlmock.New()
	cfg := &config.Config{DBDriver: config.MySQL, DBOutboxTable: "outbox", DBNotificationTable: "notification"}
	sq := SidecarQuitter{Client: http.DefaultClient}

	exp := &optimize{
		tables: []tableOptimizer{
			&mysqlOptimizeTable{Db: db, TableName: "outbox"},
			&mysqlOptimizeTable{Db: db, TableName: "notification"},
		},
		SidecarQuitter: sq,
	}

	act := newOptimize(db, cfg, sq)
	if !reflect.DeepEqual(exp, act) {
		t.Error("expected optimize job does not match actual")
	}
}

func TestOptimize_ExecuteStopsAtFirstFailure(t *testing.T) {
	db, mock, _ := sqlmock.New()
	mock.ExpectExec("OPTIMIZE TABLE `outbox`;").WillReturnError(errors.New("oops"))

	cl := test.NewMockHttpClient()
	cfg := &config.Config{DBDriver: config.MySQL, DBOutboxTable: "outbox", DBNotificationTable: "notification"}
	j := newOptimize(db, cfg, SidecarQuitter{Client: cl})
	j.EnableSideCarProxyQuit(proxyUrl)

	if err := j.Execute(context.Background()); err == nil {
		t.Error("expected an error, but got nil")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("some SQL expectations were not met: %s", err)
	}

	if !cl.Quit(proxyUrl) {
		t.Error("expected the sidecar proxy to be told to quit")
	}
}

func TestOptimize_ExecuteOptimizesAllTables(t *testing.T) {
	db, mock, _ := sqlmock.New()
	mock.ExpectExec(`VACUUM "outbox";`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`VACUUM "notification";`).WillReturnResult(sqlmock.NewResult(0, 0))

	cfg := &config.Config{DBDriver: config.Postgres, DBOutboxTable: "outbox", DBNotificationTable: "notification"}
	j := newOptimize(db, cfg, SidecarQuitter{Client: test.NewMockHttpClient()})

	if err := j.Execute(context.Background()); err != nil {
		t.Errorf("unexpected error: %s", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("some SQL expectations were not met: %s", err)
	}
}

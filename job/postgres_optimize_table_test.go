package job

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPostgresOptimizeTable_Optimize(t *testing.T) {
	db, mock, _ := sqlmock.New()
	mock.ExpectExec(`VACUUM "notification";`).WillReturnResult(sqlmock.NewResult(0, 0))

	j := &postgresOptimizeTable{Db: db, TableName: "notification"}

	if err := j.Optimize(context.Background()); err != nil {
		t.Errorf("unexpected error: %s", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("some SQL expectations were not met: %s", err)
	}
}

func TestPostgresOptimizeTable_OptimizeWithError(t *testing.T) {
	db, mock, _ := sqlmock.New()
	mock.ExpectExec(`VACUUM "notification";`).WillReturnError(errors.New("oops"))

	j := &postgresOptimizeTable{Db: db, TableName: "notification"}

	if err := j.Optimize(context.Background()); err == nil {
		t.Error("expected an error, but got nil")
	}
}

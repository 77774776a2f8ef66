package mysql

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/instructure/canvas-data-loader/internal/backend"
)

func newMockDriver(t *testing.T) (*Driver, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &Driver{db: db}, mock
}

func TestCreateTableRewritesReservedColumnsAndSetsCharset(t *testing.T) {
	d, mock := newMockDriver(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS t (\n_default TEXT,\n_generated INT\n) CHARACTER SET utf8mb4").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := d.CreateTable("t", []backend.Column{
		{Name: "default", SQLType: "TEXT"},
		{Name: "generated", SQLType: "INT"},
	})
	if err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestInsertRowUsesCastSyntax(t *testing.T) {
	d, mock := newMockDriver(t)
	mock.ExpectExec(`INSERT INTO t (id) VALUES (CAST('42' AS SIGNED))`).WillReturnResult(sqlmock.NewResult(1, 1))

	id := "42"
	err := d.InsertRow("t", []backend.Column{{Name: "id", SQLType: "BIGINT", CastAs: "SIGNED"}}, []*string{&id})
	if err != nil {
		t.Fatalf("InsertRow: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestDeleteByColumnNoCast(t *testing.T) {
	d, mock := newMockDriver(t)
	mock.ExpectExec(`DELETE FROM t WHERE name = 'foo'`).WillReturnResult(sqlmock.NewResult(0, 1))

	if err := d.DeleteByColumn("t", "name", "foo", ""); err != nil {
		t.Fatalf("DeleteByColumn: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

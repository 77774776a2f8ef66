package postgres

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

func TestDropTable(t *testing.T) {
	d, mock := newMockDriver(t)
	mock.ExpectExec(`DROP TABLE IF EXISTS quiz_fact`).WillReturnResult(sqlmock.NewResult(0, 0))

	if err := d.DropTable("quiz_fact"); err != nil {
		t.Fatalf("DropTable: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCreateTableRewritesReservedColumn(t *testing.T) {
	d, mock := newMockDriver(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS t (\n_default TEXT\n)").WillReturnResult(sqlmock.NewResult(0, 0))

	err := d.CreateTable("t", []backend.Column{{Name: "default", SQLType: "TEXT"}})
	if err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestInsertRowNullAndCast(t *testing.T) {
	d, mock := newMockDriver(t)
	mock.ExpectExec(`INSERT INTO t (id,name,tag) VALUES ('42'::int8,NULL,'foo')`).WillReturnResult(sqlmock.NewResult(1, 1))

	name := "foo"
	err := d.InsertRow("t", []backend.Column{
		{Name: "id", SQLType: "BIGINT", CastAs: "int8"},
		{Name: "name", SQLType: "TEXT"},
		{Name: "tag", SQLType: "TEXT"},
	}, []*string{strPtr("42"), nil, &name})
	if err != nil {
		t.Fatalf("InsertRow: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestDeleteByColumnStripsQuotes(t *testing.T) {
	d, mock := newMockDriver(t)
	mock.ExpectExec(`DELETE FROM t WHERE id = 'abc'`).WillReturnResult(sqlmock.NewResult(0, 1))

	if err := d.DeleteByColumn("t", "id", `a"b'c`, ""); err != nil {
		t.Fatalf("DeleteByColumn: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func strPtr(s string) *string { return &s }

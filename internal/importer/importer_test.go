package importer

import (
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/instructure/canvas-data-loader/internal/backend"
	"github.com/instructure/canvas-data-loader/internal/canvasapi"
)

type fakeCache struct{ dir string }

func (f *fakeCache) DownloadDump(ctx context.Context, dumpID string) error { return nil }
func (f *fakeCache) DumpDir(dumpID string) string                         { return f.dir }

type fakeAPI struct {
	defs map[string]*canvasapi.TableDef
}

func (f *fakeAPI) FindTableDef(ctx context.Context, name string) (*canvasapi.TableDef, error) {
	return f.defs[name], nil
}

type recordedInsert struct {
	table  string
	values []*string
}

type fakeBackend struct {
	kind     string
	dropped  []string
	created  []string
	deletes  []string
	inserts  []recordedInsert
}

func (b *fakeBackend) PluginTypeID() string { return b.kind }
func (b *fakeBackend) Init(string) error    { return nil }
func (b *fakeBackend) Close() error         { return nil }
func (b *fakeBackend) DropTable(name string) error {
	b.dropped = append(b.dropped, name)
	return nil
}
func (b *fakeBackend) CreateTable(name string, columns []backend.Column) error {
	b.created = append(b.created, name)
	return nil
}
func (b *fakeBackend) DeleteByColumn(name, column, value, castAs string) error {
	b.deletes = append(b.deletes, name+"."+column+"="+value)
	return nil
}
func (b *fakeBackend) InsertRow(name string, columns []backend.Column, values []*string) error {
	b.inserts = append(b.inserts, recordedInsert{table: name, values: values})
	return nil
}

func writeGzippedTSV(t *testing.T, path, body string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	gz := gzip.NewWriter(f)
	if _, err := gz.Write([]byte(body)); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
}

func strPtr(s string) *string { return &s }

func TestProcessVolatileTableInsertsWithoutDelete(t *testing.T) {
	dir := t.TempDir()
	writeGzippedTSV(t, filepath.Join(dir, "quiz_fact-00001-aaaa.gz"), "1\tfoo\n2\t\\N\n")

	api := &fakeAPI{defs: map[string]*canvasapi.TableDef{
		"quiz_fact": {TableName: "quiz_fact", Columns: []canvasapi.ColumnDef{
			{Name: "id", Type: "bigint"},
			{Name: "name", Type: "text"},
		}},
	}}
	db := &fakeBackend{kind: "postgres"}
	imp := New(api, &fakeCache{dir: dir}, db)

	if err := imp.Process(context.Background(), "dump-1", false); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(db.dropped) != 1 || db.dropped[0] != "quiz_fact" {
		t.Errorf("expected quiz_fact to be dropped once, got %v", db.dropped)
	}
	if len(db.deletes) != 0 {
		t.Errorf("expected no deletes for a volatile table, got %v", db.deletes)
	}
	if len(db.inserts) != 2 {
		t.Fatalf("expected 2 inserts, got %d", len(db.inserts))
	}
	if db.inserts[1].values[1] != nil {
		t.Errorf("expected \\N to decode to a nil value")
	}
}

func TestProcessNonVolatileTableDeletesThenInserts(t *testing.T) {
	dir := t.TempDir()
	writeGzippedTSV(t, filepath.Join(dir, "assignment_dim-00001-aaaa.gz"), "1\thomework\n")

	api := &fakeAPI{defs: map[string]*canvasapi.TableDef{
		"assignment_dim": {TableName: "assignment_dim", Columns: []canvasapi.ColumnDef{
			{Name: "id", Type: "bigint"},
			{Name: "name", Type: "text"},
		}},
	}}
	db := &fakeBackend{kind: "postgres"}
	imp := New(api, &fakeCache{dir: dir}, db)

	if err := imp.Process(context.Background(), "dump-1", false); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(db.dropped) != 0 {
		t.Errorf("non-volatile table should not be dropped, got %v", db.dropped)
	}
	if len(db.deletes) != 1 || db.deletes[0] != "assignment_dim.id=1" {
		t.Errorf("expected one delete on id=1, got %v", db.deletes)
	}
	if len(db.inserts) != 1 {
		t.Errorf("expected one insert, got %d", len(db.inserts))
	}
}

func TestProcessFailsWhenNoIdLikeColumn(t *testing.T) {
	dir := t.TempDir()
	writeGzippedTSV(t, filepath.Join(dir, "foo_bar_baz_fact-00001-aaaa.gz"), "hello\n")

	api := &fakeAPI{defs: map[string]*canvasapi.TableDef{
		"foo_bar_baz_fact": {TableName: "foo_bar_baz_fact", Columns: []canvasapi.ColumnDef{
			{Name: "name", Type: "text"},
		}},
	}}
	db := &fakeBackend{kind: "postgres"}
	imp := New(api, &fakeCache{dir: dir}, db)

	err := imp.Process(context.Background(), "dump-1", false)
	if err != ErrImportFailed {
		t.Fatalf("expected ErrImportFailed, got %v", err)
	}
}

func TestProcessAllVolatileForcesDropEvenOffStaticList(t *testing.T) {
	dir := t.TempDir()
	writeGzippedTSV(t, filepath.Join(dir, "assignment_dim-00001-aaaa.gz"), "1\thomework\n")

	api := &fakeAPI{defs: map[string]*canvasapi.TableDef{
		"assignment_dim": {TableName: "assignment_dim", Columns: []canvasapi.ColumnDef{
			{Name: "id", Type: "bigint"},
			{Name: "name", Type: "text"},
		}},
	}}
	db := &fakeBackend{kind: "postgres"}
	imp := New(api, &fakeCache{dir: dir}, db)

	if err := imp.Process(context.Background(), "dump-1", true); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(db.dropped) != 1 {
		t.Errorf("expected all_volatile to force a drop, got %v", db.dropped)
	}
	if len(db.deletes) != 0 {
		t.Errorf("expected no delete when table is forced volatile, got %v", db.deletes)
	}
}

package importer

import "testing"

func TestParseFileName(t *testing.T) {
	parts, ok := parseFileName("quiz_fact-00001-deadbeef.gz")
	if !ok {
		t.Fatal("expected a match")
	}
	if parts.Table != "quiz_fact" || parts.Shard != "00001" || parts.Hash != "deadbeef" || parts.Ext != "gz" {
		t.Errorf("parseFileName() = %+v", parts)
	}
}

func TestParseFileNameRejectsWrongSegmentCount(t *testing.T) {
	for _, name := range []string{"onlyonepart.gz", "two-parts.gz", "a-b-c-d.gz"} {
		if _, ok := parseFileName(name); ok {
			t.Errorf("parseFileName(%q) should not match", name)
		}
	}
}

func TestParseFileNameRejectsMissingExtension(t *testing.T) {
	if _, ok := parseFileName("table-shard-hashwithoutdot"); ok {
		t.Error("expected no match for a third segment without a dot")
	}
}

func TestIdLikeColumn(t *testing.T) {
	s := func(v string) *string { return &v }

	id, ok := idLikeColumn("assignment_dim", map[string]*string{"id": s("1")})
	if !ok || id != "id" {
		t.Errorf("expected id column to win, got %q, %v", id, ok)
	}

	id, ok = idLikeColumn("quiz_fact", map[string]*string{"quiz_id": s("2"), "name": s("x")})
	if !ok || id != "quiz_id" {
		t.Errorf("expected quiz_id, got %q, %v", id, ok)
	}

	id, ok = idLikeColumn("module_progression_fact", map[string]*string{"module_progression_id": s("3")})
	if !ok || id != "module_progression_id" {
		t.Errorf("expected module_progression_id, got %q, %v", id, ok)
	}

	_, ok = idLikeColumn("foo_bar_baz_fact", map[string]*string{"name": s("x")})
	if ok {
		t.Error("expected no id-like column to be found")
	}
}

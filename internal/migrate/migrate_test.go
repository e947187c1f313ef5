package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSplitStatements(t *testing.T) {
	sql := `create table a (id int);
insert into a values (1);
insert into a values (2)`
	stmts := splitStatements(sql)
	if len(stmts) != 3 {
		t.Fatalf("len(stmts) = %d, want 3", len(stmts))
	}
}

func TestSplitStatementsIgnoresSemicolonInString(t *testing.T) {
	sql := `insert into roles (name, description) values ('admin', 'semi;colon');`
	stmts := splitStatements(sql)
	if len(stmts) != 1 {
		t.Fatalf("len(stmts) = %d, want 1: %q", len(stmts), stmts)
	}
	if !strings.Contains(stmts[0], "semi;colon") {
		t.Fatalf("string literal was split: %q", stmts[0])
	}
}

func TestCollectOrdersLexically(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"0002_second.up.sql", "0001_first.up.sql", "0001_first.down.sql", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("select 1;"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	files, err := collect(dir, ".up.sql")
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("len(files) = %d, want 2", len(files))
	}
	if files[0].base != "0001_first.up.sql" || files[1].base != "0002_second.up.sql" {
		t.Fatalf("unexpected order: %s, %s", files[0].base, files[1].base)
	}
}

func TestCollectMissingDir(t *testing.T) {
	files, err := collect(filepath.Join(t.TempDir(), "nope"), ".up.sql")
	if err != nil {
		t.Fatalf("collect on missing dir: %v", err)
	}
	if files != nil {
		t.Fatalf("files = %v, want nil", files)
	}
}

package db

import (
	"testing"
	"testing/fstest"
)

func TestMigrations_EmbeddedInOrder(t *testing.T) {
	migrations, err := Migrations()
	if err != nil {
		t.Fatalf("Migrations failed: %v", err)
	}
	if len(migrations) < 2 {
		t.Fatalf("got %d migrations, want at least 2", len(migrations))
	}
	if migrations[0].Version != "001_backlog_snapshots" {
		t.Errorf("first migration = %s", migrations[0].Version)
	}
	for i := 1; i < len(migrations); i++ {
		if migrations[i-1].Version >= migrations[i].Version {
			t.Errorf("migrations out of order: %s before %s", migrations[i-1].Version, migrations[i].Version)
		}
	}
}

func TestLoadMigrations_SkipsNonSQL(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/002_b.sql": {Data: []byte("SELECT 2;")},
		"migrations/001_a.sql": {Data: []byte("SELECT 1;")},
		"migrations/README.md": {Data: []byte("docs")},
		"migrations/sub/x.sql": {Data: []byte("SELECT 3;")},
	}
	migrations, err := loadMigrations(fsys)
	if err != nil {
		t.Fatalf("loadMigrations failed: %v", err)
	}
	if len(migrations) != 2 || migrations[0].Version != "001_a" || migrations[1].SQL != "SELECT 2;" {
		t.Errorf("migrations = %+v", migrations)
	}
}

package db

import (
	"os"
	"path/filepath"
	"testing"
)

const migrationsTestPrefix = "db:migrations_test"

func writeMigrations(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("%s - write %s: %v", migrationsTestPrefix, name, err)
		}
	}
	return dir
}

func TestParseMigrationFileName(t *testing.T) {
	tests := []struct {
		file      string
		version   int
		name      string
		direction string
		ok        bool
	}{
		{file: "001_intent_providers.up.sql", version: 1, name: "intent_providers", direction: "up", ok: true},
		{file: "012_add_index.down.sql", version: 12, name: "add_index", direction: "down", ok: true},
		{file: "001_intent_providers.sql"},
		{file: "intent_providers.up.sql"},
		{file: "001_bad-name.up.sql"},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			version, name, direction, ok := parseMigrationFileName(tt.file)
			if ok != tt.ok || version != tt.version || name != tt.name || direction != tt.direction {
				t.Errorf("%s - got (%d, %q, %q, %v), want (%d, %q, %q, %v)", migrationsTestPrefix,
					version, name, direction, ok, tt.version, tt.name, tt.direction, tt.ok)
			}
		})
	}
}

func TestLoadMigrations_PairsAndOrder(t *testing.T) {
	dir := writeMigrations(t, map[string]string{
		"010_third.up.sql":   "THIRD",
		"001_first.up.sql":   "FIRST",
		"001_first.down.sql": "UNDO FIRST",
		"002_second.up.sql":  "SECOND",
		"README.md":          "# Migrations",
	})

	got, err := LoadMigrations(dir)
	if err != nil {
		t.Fatalf("%s - unexpected error: %v", migrationsTestPrefix, err)
	}
	if len(got) != 3 {
		t.Fatalf("%s - expected 3 migrations, got %d", migrationsTestPrefix, len(got))
	}
	wantVersions := []int{1, 2, 10}
	for i, m := range got {
		if m.Version != wantVersions[i] {
			t.Errorf("%s - migration %d version = %d, want %d", migrationsTestPrefix, i, m.Version, wantVersions[i])
		}
	}
	if got[0].Up != "FIRST" || got[0].Down != "UNDO FIRST" {
		t.Errorf("%s - first migration = %+v", migrationsTestPrefix, got[0])
	}
	if got[1].Down != "" {
		t.Errorf("%s - second migration should have no down script", migrationsTestPrefix)
	}
}

func TestLoadMigrations_Errors(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
	}{
		{name: "misnamed sql", files: map[string]string{"001_create.sql": "CREATE TABLE t;"}},
		{name: "down without up", files: map[string]string{"001_create.down.sql": "DROP TABLE t;"}},
		{name: "version reused", files: map[string]string{"001_a.up.sql": "A", "001_b.up.sql": "B"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadMigrations(writeMigrations(t, tt.files)); err == nil {
				t.Errorf("%s - expected error", migrationsTestPrefix)
			}
		})
	}
}

func TestLoadMigrations_SkipsDirectories(t *testing.T) {
	dir := writeMigrations(t, map[string]string{"001_create.up.sql": "CREATE TABLE x;"})
	if err := os.Mkdir(filepath.Join(dir, "002_tricky.up.sql"), 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := LoadMigrations(dir)
	if err != nil {
		t.Fatalf("%s - unexpected error: %v", migrationsTestPrefix, err)
	}
	if len(got) != 1 {
		t.Errorf("%s - expected 1 migration (skipping dir), got %d", migrationsTestPrefix, len(got))
	}
}

func TestLoadMigrations_NonExistentDir(t *testing.T) {
	if _, err := LoadMigrations(filepath.Join(t.TempDir(), "nonexistent")); err == nil {
		t.Errorf("%s - expected error for non-existent directory", migrationsTestPrefix)
	}
}

func TestLoadMigrations_RepositoryMigrations(t *testing.T) {
	got, err := LoadMigrations(filepath.Join("..", "..", "migrations"))
	if err != nil {
		t.Fatalf("%s - unexpected error: %v", migrationsTestPrefix, err)
	}
	for _, m := range got {
		if m.Down == "" {
			t.Errorf("%s - migration %03d_%s has no down script", migrationsTestPrefix, m.Version, m.Name)
		}
	}
}

func TestPendingMigrations(t *testing.T) {
	all := []Migration{{Version: 1}, {Version: 2}, {Version: 3}}

	pending := pendingMigrations(all, map[int]bool{1: true, 3: true})
	if len(pending) != 1 || pending[0].Version != 2 {
		t.Errorf("%s - pending = %+v, want [2]", migrationsTestPrefix, pending)
	}
	if got := pendingMigrations(all, nil); len(got) != 3 {
		t.Errorf("%s - with nothing applied, pending = %d, want 3", migrationsTestPrefix, len(got))
	}
}

func TestFindMigration(t *testing.T) {
	all := []Migration{{Version: 1, Name: "a"}, {Version: 2, Name: "b"}}
	if m, ok := findMigration(all, 2); !ok || m.Name != "b" {
		t.Errorf("%s - findMigration(2) = %+v, %v", migrationsTestPrefix, m, ok)
	}
	if _, ok := findMigration(all, 9); ok {
		t.Errorf("%s - findMigration(9) should miss", migrationsTestPrefix)
	}
}

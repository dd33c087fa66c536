package main

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestMigrationFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"001_saved_searches.sql",
		"001_saved_searches.down.sql",
		"002_indexes.sql",
		"002_indexes.down.sql",
		"README.md",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("--"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	up, err := migrationFiles(dir, "up")
	if err != nil {
		t.Fatal(err)
	}
	wantUp := []string{filepath.Join(dir, "001_saved_searches.sql"), filepath.Join(dir, "002_indexes.sql")}
	if !reflect.DeepEqual(up, wantUp) {
		t.Errorf("up: got %v, want %v", up, wantUp)
	}

	down, err := migrationFiles(dir, "down")
	if err != nil {
		t.Fatal(err)
	}
	wantDown := []string{filepath.Join(dir, "002_indexes.down.sql"), filepath.Join(dir, "001_saved_searches.down.sql")}
	if !reflect.DeepEqual(down, wantDown) {
		t.Errorf("down: got %v, want %v", down, wantDown)
	}

	if _, err := migrationFiles(dir, "sideways"); err == nil {
		t.Error("expected error for unknown direction")
	}
}

package persist

import (
	"strings"
	"testing"
)

func TestMigrationsEmbedded(t *testing.T) {
	files, err := MigrationFiles()
	if err != nil {
		t.Fatalf("MigrationFiles: %v", err)
	}
	if len(files) == 0 || files[0] != "00001_chunks.sql" {
		t.Fatalf("files = %v", files)
	}
	body, err := migrations.ReadFile("migrations/00001_chunks.sql")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"-- +goose Up", "-- +goose Down", "CREATE TABLE IF NOT EXISTS chunks"} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("migration missing %q", want)
		}
	}
}

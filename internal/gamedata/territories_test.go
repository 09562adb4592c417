package gamedata

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLookup(t *testing.T) {
	table := New(map[uint32]string{
		128: "Limsa Lominsa Upper Decks",
		129: "Limsa Lominsa Lower Decks",
		999: "",
	})

	t.Run("known_territory", func(t *testing.T) {
		name, ok := table.Lookup(129)
		if !ok || name != "Limsa Lominsa Lower Decks" {
			t.Errorf("got %q, %v", name, ok)
		}
	})

	t.Run("unknown_territory", func(t *testing.T) {
		if _, ok := table.Lookup(42); ok {
			t.Error("unknown id must not resolve")
		}
	})

	t.Run("empty_name_is_unknown", func(t *testing.T) {
		if _, ok := table.Lookup(999); ok {
			t.Error("a blank name must not resolve")
		}
	})

	t.Run("nil_table", func(t *testing.T) {
		if _, ok := New(nil).Lookup(128); ok {
			t.Error("nil table must resolve nothing")
		}
	})
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "territories.yaml")
	content := "128: \"Limsa Lominsa Upper Decks\"\n1044: \"The Bowl of Embers\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	table, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if name, ok := table.Lookup(1044); !ok || name != "The Bowl of Embers" {
		t.Errorf("got %q, %v", name, ok)
	}
}

func TestLoad_errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("missing file should error")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("not: [a: map"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("malformed yaml should error")
	}
}

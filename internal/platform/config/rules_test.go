package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func writeRules(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "rules.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadRules_overrides_defaults(t *testing.T) {
	path := writeRules(t, t.TempDir(), `
stop_record_delay_seconds: 30
start_record_on_combat: false
record_directory: "D:/ffxiv"
cutscene_status_id: 15
`)

	rules, err := LoadRules(path)
	if err != nil {
		t.Fatalf("LoadRules: %v", err)
	}
	if rules.StopRecordDelaySeconds != 30 {
		t.Errorf("delay: %d", rules.StopRecordDelaySeconds)
	}
	if rules.StartRecordOnCombat {
		t.Error("start_record_on_combat should be overridden to false")
	}
	if !rules.StopRecordOnCombat {
		t.Error("unset keys keep their defaults")
	}
	if rules.RecordDirectory != "D:/ffxiv" {
		t.Errorf("record directory: %q", rules.RecordDirectory)
	}
	if rules.CutsceneStatusID != 15 {
		t.Errorf("cutscene status: %d", rules.CutsceneStatusID)
	}
}

func TestLoadRules_malformed_file(t *testing.T) {
	path := writeRules(t, t.TempDir(), "{not yaml")
	if _, err := LoadRules(path); err == nil {
		t.Error("expected a parse error")
	}
}

func TestNewRulesStore_missing_file_uses_defaults(t *testing.T) {
	s, err := NewRulesStore(filepath.Join(t.TempDir(), "absent.yaml"), testLogger())
	if err != nil {
		t.Fatalf("NewRulesStore: %v", err)
	}
	if s.Rules() != DefaultRules() {
		t.Errorf("expected defaults, got %+v", s.Rules())
	}
}

func TestRulesStore_reload(t *testing.T) {
	dir := t.TempDir()
	path := writeRules(t, dir, "stop_record_delay_seconds: 5\n")

	s, err := NewRulesStore(path, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if s.Rules().StopRecordDelaySeconds != 5 {
		t.Fatalf("initial delay: %d", s.Rules().StopRecordDelaySeconds)
	}

	writeRules(t, dir, "stop_record_delay_seconds: 20\n")
	s.reload()
	if s.Rules().StopRecordDelaySeconds != 20 {
		t.Errorf("delay after reload: %d", s.Rules().StopRecordDelaySeconds)
	}

	t.Run("keeps_previous_on_parse_error", func(t *testing.T) {
		writeRules(t, dir, "{broken")
		s.reload()
		if s.Rules().StopRecordDelaySeconds != 20 {
			t.Errorf("broken file must not clobber rules: %d", s.Rules().StopRecordDelaySeconds)
		}
	})
}

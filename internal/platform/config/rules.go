package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Rules holds every orchestration flag. The orchestrator reads them through
// a getter per event, so edits to the rules file take effect without a
// restart.
type Rules struct {
	StartRecordOnCombat      bool   `yaml:"start_record_on_combat"`
	StopRecordOnCombat       bool   `yaml:"stop_record_on_combat"`
	StopRecordDelaySeconds   int    `yaml:"stop_record_delay_seconds"`
	CancelStopOnResume       bool   `yaml:"cancel_stop_on_resume"`
	DontStopInCutscene       bool   `yaml:"dont_stop_in_cutscene"`
	CutsceneStatusID         uint32 `yaml:"cutscene_status_id"`
	StartRecordOnCountdown   bool   `yaml:"start_record_on_countdown"`
	StartReplayOnDutyStart   bool   `yaml:"start_replay_on_duty_start"`
	StopReplayOnDutyComplete bool   `yaml:"stop_replay_on_duty_complete"`
	StopReplayOnWipe         bool   `yaml:"stop_replay_on_wipe"`
	ZoneAsSuffix             bool   `yaml:"zone_as_suffix"`
	IncludeTerritory         bool   `yaml:"include_territory"`
	RecordDirectory          string `yaml:"record_directory"`
	FilenamePattern          string `yaml:"filename_pattern"`
}

// DefaultRules returns the rules used when no file is present.
func DefaultRules() Rules {
	return Rules{
		StartRecordOnCombat:      true,
		StopRecordOnCombat:       true,
		StopRecordDelaySeconds:   10,
		CancelStopOnResume:       true,
		StartRecordOnCountdown:   true,
		StartReplayOnDutyStart:   false,
		StopReplayOnDutyComplete: false,
		StopReplayOnWipe:         false,
	}
}

// LoadRules reads a YAML rules file over the defaults.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()
	data, err := os.ReadFile(path)
	if err != nil {
		return rules, err
	}
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return DefaultRules(), fmt.Errorf("parse rules %s: %w", path, err)
	}
	return rules, nil
}

// RulesStore holds the current rules and reloads them when the file
// changes.
type RulesStore struct {
	path string
	log  *slog.Logger

	mu    sync.RWMutex
	rules Rules
}

// NewRulesStore loads the rules file at path. A missing file is not an
// error: defaults apply and the watcher picks the file up once created.
func NewRulesStore(path string, log *slog.Logger) (*RulesStore, error) {
	s := &RulesStore{path: path, log: log, rules: DefaultRules()}

	rules, err := LoadRules(path)
	switch {
	case err == nil:
		s.rules = rules
	case os.IsNotExist(err):
		log.Warn("rules file not found, using defaults", slog.String("path", path))
	default:
		return nil, err
	}
	return s, nil
}

// Rules returns the current rules snapshot.
func (s *RulesStore) Rules() Rules {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rules
}

// reload re-reads the rules file, keeping the previous rules on error.
func (s *RulesStore) reload() {
	rules, err := LoadRules(s.path)
	if err != nil {
		s.log.Warn("rules reload failed, keeping previous rules",
			slog.String("path", s.path),
			slog.String("error", err.Error()),
		)
		return
	}

	s.mu.Lock()
	s.rules = rules
	s.mu.Unlock()
	s.log.Info("rules reloaded", slog.String("path", s.path))
}

// Watch reloads the rules whenever the file is written or recreated, until
// ctx is done. Editors replace files rather than write in place, so the
// watch is on the containing directory.
func (s *RulesStore) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	target := filepath.Clean(s.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				s.reload()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.log.Warn("rules watcher error", slog.String("error", err.Error()))
		}
	}
}

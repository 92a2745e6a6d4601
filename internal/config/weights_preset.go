package config

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// WeightsPreset is the YAML-encoded shape of a named FSRS weights preset
// file. The store loads and hot-reloads it; nothing reads Current() to seed
// SRPrefs, so a user with no FSRS weights of their own gets
// scheduler.DefaultFSRSConfig regardless of the preset.
type WeightsPreset struct {
	Name             string     `yaml:"name"`
	Weights          [17]float64 `yaml:"weights"`
	DesiredRetention float64    `yaml:"desired_retention"`
	MaximumInterval  int        `yaml:"maximum_interval"`
}

// WeightsPresetStore holds the current preset, hot-reloadable from disk.
type WeightsPresetStore struct {
	current atomic.Pointer[WeightsPreset]
	watcher *fsnotify.Watcher
}

// LoadWeightsPreset reads a YAML preset file from path. An empty path is
// not an error: it signals "no file-backed override, use the published
// FSRS defaults", which the caller resolves via scheduler.DefaultFSRSConfig.
func LoadWeightsPreset(path string) (*WeightsPresetStore, error) {
	s := &WeightsPresetStore{}
	if path == "" {
		return s, nil
	}

	preset, err := readWeightsPreset(path)
	if err != nil {
		return nil, err
	}
	s.current.Store(preset)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsrs weights watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watching %s: %w", path, err)
	}
	s.watcher = watcher

	go s.watch(path)
	return s, nil
}

func readWeightsPreset(path string) (*WeightsPreset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fsrs weights preset: %w", err)
	}
	var preset WeightsPreset
	if err := yaml.Unmarshal(data, &preset); err != nil {
		return nil, fmt.Errorf("parsing fsrs weights preset: %w", err)
	}
	return &preset, nil
}

// watch reloads the preset on every write event, swapping the atomic
// pointer so in-flight requests never observe a half-written file.
func (s *WeightsPresetStore) watch(path string) {
	for event := range s.watcher.Events {
		if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
			continue
		}
		if preset, err := readWeightsPreset(path); err == nil {
			s.current.Store(preset)
		}
	}
}

// Current returns the active preset, or nil if none was loaded.
func (s *WeightsPresetStore) Current() *WeightsPreset {
	return s.current.Load()
}

// Close stops the hot-reload watcher, if one was started.
func (s *WeightsPresetStore) Close() error {
	if s.watcher == nil {
		return nil
	}
	return s.watcher.Close()
}

package config

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
)

// SchedulingPolicy is the TOML-encoded default weekly_rules/exceptions
// shape for SchedulingPrefs, since those two fields are open-ended
// structured data the spec leaves opaque. The store loads and hot-reloads
// it; nothing reads Current() to seed SchedulingPrefs, so a fresh user's
// weekly_rules/exceptions come from WithDefaults' "{}"/"[]" fallback even
// when a policy file is configured.
type SchedulingPolicy struct {
	WeeklyRules map[string]int `toml:"weekly_rules"`
	Exceptions  []string       `toml:"exceptions"`
}

// SchedulingPolicyStore holds the current policy, hot-reloadable from disk.
type SchedulingPolicyStore struct {
	current atomic.Pointer[SchedulingPolicy]
	watcher *fsnotify.Watcher
}

// LoadSchedulingPolicy reads a TOML policy file from path. An empty path
// means "no file-backed default, fall back to models.SchedulingPrefs's
// own WithDefaults empty-collection fallback".
func LoadSchedulingPolicy(path string) (*SchedulingPolicyStore, error) {
	s := &SchedulingPolicyStore{}
	if path == "" {
		return s, nil
	}

	policy, err := readSchedulingPolicy(path)
	if err != nil {
		return nil, err
	}
	s.current.Store(policy)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("scheduling policy watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watching %s: %w", path, err)
	}
	s.watcher = watcher

	go s.watch(path)
	return s, nil
}

func readSchedulingPolicy(path string) (*SchedulingPolicy, error) {
	var policy SchedulingPolicy
	if _, err := toml.DecodeFile(path, &policy); err != nil {
		return nil, fmt.Errorf("parsing scheduling policy: %w", err)
	}
	return &policy, nil
}

func (s *SchedulingPolicyStore) watch(path string) {
	for event := range s.watcher.Events {
		if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
			continue
		}
		if policy, err := readSchedulingPolicy(path); err == nil {
			s.current.Store(policy)
		}
	}
}

// Current returns the active policy, or nil if none was loaded.
func (s *SchedulingPolicyStore) Current() *SchedulingPolicy {
	return s.current.Load()
}

// Close stops the hot-reload watcher, if one was started.
func (s *SchedulingPolicyStore) Close() error {
	if s.watcher == nil {
		return nil
	}
	return s.watcher.Close()
}

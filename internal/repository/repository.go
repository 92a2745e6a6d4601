// Package repository defines data access interfaces and implementations
// for the practice-scheduling core: the tune/history catalog join, the
// staged-feedback overlay, and the preferences store that the scheduler,
// queue generator, and feedback pipeline all read from.
package repository

import (
	"github.com/sboagy/tunetrees-go/internal/storage"
)

// Manager provides access to all repositories.
type Manager interface {
	Tunes() TuneRepository
	Staging() StagingRepository
	Prefs() PrefsRepository
}

type manager struct {
	tunes   TuneRepository
	staging StagingRepository
	prefs   PrefsRepository
}

// NewManager creates a new repository manager.
func NewManager(store *storage.SQLiteStore) Manager {
	return &manager{
		tunes:   NewTuneRepository(store),
		staging: NewStagingRepository(store),
		prefs:   NewPrefsRepository(store),
	}
}

func (m *manager) Tunes() TuneRepository {
	return m.tunes
}

func (m *manager) Staging() StagingRepository {
	return m.staging
}

func (m *manager) Prefs() PrefsRepository {
	return m.prefs
}

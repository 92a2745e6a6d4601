// Package models defines the domain entities for the practice scheduling
// engine: tunes, playlist membership, practice history, staged feedback,
// scheduling/spaced-repetition preferences, and daily queue snapshots.
package models

// This file serves as package documentation and re-exports key types.

/*
models package provides:

1. Catalog (tune.go)
   - Tune: read-only catalog entry (title, type, structure, mode, incipit, genre)
   - PlaylistTune: edge between a playlist and a tune, carries the
     authoritative `scheduled` override

2. Practice history (practice.go)
   - PracticeRecord: append-only review history row
   - StagedFeedback: ephemeral pending review, at most one per (user, playlist, tune)
   - Goal, Technique: practice-intent and algorithm-selection enums

3. Preferences (prefs.go)
   - SchedulingPrefs: per-user capacity/delinquency preferences
   - SRPrefs: per-user x algorithm scheduler configuration
   - AlgorithmType: SM2 or FSRS

4. Daily queue (queue.go)
   - DailyPracticeQueue: one persisted, ordered snapshot row
   - Bucket: due-today / recently-lapsed / older-backlog classification

JSON serialization:
All enums implement MarshalJSON/UnmarshalJSON so that wire values are the
lowercase string forms used throughout the original schema, not raw ints.
*/

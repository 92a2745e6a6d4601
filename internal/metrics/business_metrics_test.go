package metrics

import (
	"testing"
)

func TestNewBusinessMetricsRegistry(t *testing.T) {
	registry := NewBusinessMetricsRegistry()

	if registry == nil {
		t.Errorf("Expected non-nil BusinessMetricsRegistry, got nil")
	}

	if registry.GetPrometheusRegistry() == nil {
		t.Errorf("Expected non-nil Prometheus registry, got nil")
	}
}

func TestRecordQueueGeneration(t *testing.T) {
	registry := NewBusinessMetricsRegistry()

	modes := []string{"generate", "force_regen", "refill"}
	for _, mode := range modes {
		registry.RecordQueueGeneration(mode, map[int]int{1: 3, 2: 2, 3: 1})
	}
}

func TestSetActiveQueueSize(t *testing.T) {
	registry := NewBusinessMetricsRegistry()

	for _, playlistRef := range []int64{1, 2, 3} {
		registry.SetActiveQueueSize(playlistRef, 10)
	}
}

func TestRecordSchedulerInvocation(t *testing.T) {
	registry := NewBusinessMetricsRegistry()

	registry.RecordSchedulerInvocation("sm2", false)
	registry.RecordSchedulerInvocation("fsrs", false)
	registry.RecordSchedulerInvocation("fsrs", true)
}

func TestRecordFeedbackOutcome(t *testing.T) {
	registry := NewBusinessMetricsRegistry()

	registry.RecordFeedbackOutcome(3, 1, 0, nil)
	registry.RecordFeedbackOutcome(0, 0, 0, []string{"no PlaylistTune for this (playlist, tune)"})
}

func TestBusinessMetricsThreadSafety(t *testing.T) {
	registry := NewBusinessMetricsRegistry()

	done := make(chan bool)

	for i := 0; i < 10; i++ {
		go func(id int) {
			for j := 0; j < 100; j++ {
				registry.RecordQueueGeneration("generate", map[int]int{1: 1})
				registry.SetActiveQueueSize(int64(id), j)
				registry.RecordSchedulerInvocation("sm2", false)
				registry.RecordFeedbackOutcome(1, 0, 0, nil)
			}
			done <- true
		}(i)
	}

	for i := 0; i < 10; i++ {
		<-done
	}
}

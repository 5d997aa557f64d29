package observability_test

import (
	"testing"

	"github.com/elance/franquias-portal-go/internal/infra/observability"
)

func TestNewMetrics_Twice(t *testing.T) {
	// Private registries: creating twice must not panic.
	_ = observability.NewMetrics()
	_ = observability.NewMetrics()
}

func TestGetSnapshot(t *testing.T) {
	m := observability.NewMetrics()
	m.AddTasksCreated("multiple", 2)
	m.AddTasksCreated("franchise", 1)
	m.AddNotifications(5)
	m.IncrDocument()
	m.IncrDuplicateIgnored("training_completion")
	m.IncrCacheHit("profile")
	m.IncrCacheMiss("profile")

	s := m.GetSnapshot()
	if s.TasksCreated != 3 {
		t.Errorf("expected 3 tasks, got %v", s.TasksCreated)
	}
	if s.Notifications != 5 {
		t.Errorf("expected 5 notifications, got %v", s.Notifications)
	}
	if s.AwardDocuments != 1 || s.DuplicatesIgnored != 1 {
		t.Errorf("unexpected snapshot: %+v", s)
	}
	if s.ProfileCacheHitPct != 0.5 {
		t.Errorf("expected 0.5 hit rate, got %v", s.ProfileCacheHitPct)
	}
}

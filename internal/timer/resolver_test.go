package timer_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/latorreandrea/auravisual-collab-manager-frontend-sub001/internal/api"
	"github.com/latorreandrea/auravisual-collab-manager-frontend-sub001/internal/decode"
	"github.com/latorreandrea/auravisual-collab-manager-frontend-sub001/internal/domain"
	"github.com/latorreandrea/auravisual-collab-manager-frontend-sub001/internal/timer"
)

type fakeResolverBackend struct {
	timerSession *domain.TimerSession
	timerErr     error
	summary      decode.Value
	summaryErr   error
	clientTimers map[string]domain.ActiveTimer
	clientErr    error
}

func (f *fakeResolverBackend) MyActiveTimer(ctx context.Context) (*domain.TimerSession, error) {
	return f.timerSession, f.timerErr
}

func (f *fakeResolverBackend) MyTimeSummary(ctx context.Context) (decode.Value, error) {
	return f.summary, f.summaryErr
}

func (f *fakeResolverBackend) ClientActiveTimers(ctx context.Context) (map[string]domain.ActiveTimer, error) {
	return f.clientTimers, f.clientErr
}

func summaryFixture(t *testing.T, payload string) decode.Value {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		t.Fatalf("unmarshal fixture: %v", err)
	}
	return out
}

func newTestResolver(backend *fakeResolverBackend, store *memStore) *timer.Resolver {
	r := timer.NewResolver(backend, store, "staff-1", nil)
	r.SetNow(func() time.Time { return time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC) })
	return r
}

func TestResolvePrefersDedicatedEndpoint(t *testing.T) {
	store := newMemStore()
	backend := &fakeResolverBackend{
		timerSession: &domain.TimerSession{TaskID: "t1", State: domain.TimerRunning},
		// Summary disagrees; it must not even be consulted.
		summary: summaryFixture(t, `{"tasks": [{"task_id": "t9", "has_active_timer": true}]}`),
	}
	s := newTestResolver(backend, store).Resolve(context.Background())
	if s == nil || s.TaskID != "t1" {
		t.Fatalf("resolved: %+v", s)
	}
	if s.Inferred {
		t.Fatalf("endpoint answer must not be flagged inferred")
	}
	if saved := store.sessions["staff-1"]; saved.TaskID != "t1" {
		t.Fatalf("store not synced: %+v", saved)
	}
}

func TestResolveEndpointSaysNoTimer(t *testing.T) {
	store := newMemStore()
	store.sessions["staff-1"] = domain.TimerSession{OwnerID: "staff-1", TaskID: "stale", State: domain.TimerRunning}
	backend := &fakeResolverBackend{timerSession: nil, timerErr: nil}
	if s := newTestResolver(backend, store).Resolve(context.Background()); s != nil {
		t.Fatalf("expected nil, got %+v", s)
	}
	if _, ok := store.sessions["staff-1"]; ok {
		t.Fatalf("stale local session survived a definitive no-timer answer")
	}
}

func TestResolveInfersFromTimeSummary(t *testing.T) {
	store := newMemStore()
	backend := &fakeResolverBackend{
		timerErr: &api.StatusError{StatusCode: 503},
		summary: summaryFixture(t, `{"tasks": [
			{"task_id": "t1", "has_active_timer": false},
			{"task_id": "t2", "action": "Deploy site", "has_active_timer": true, "timer_started_at": "2025-06-01T08:00:00Z"}
		]}`),
	}
	s := newTestResolver(backend, store).Resolve(context.Background())
	if s == nil {
		t.Fatalf("expected inferred session")
	}
	if s.TaskID != "t2" || !s.Inferred || s.State != domain.TimerRunning {
		t.Fatalf("inferred session: %+v", s)
	}
	if s.StartedAt != "2025-06-01T08:00:00Z" {
		t.Fatalf("started at: %q", s.StartedAt)
	}
}

func TestResolveInferredStartFallsBackToNow(t *testing.T) {
	backend := &fakeResolverBackend{
		timerErr: &api.StatusError{StatusCode: 503},
		summary:  summaryFixture(t, `{"tasks": [{"task_id": "t1", "has_active_timer": true}]}`),
	}
	s := newTestResolver(backend, newMemStore()).Resolve(context.Background())
	if s == nil || s.StartedAt != "2025-06-01T09:00:00Z" {
		t.Fatalf("expected clock fallback, got %+v", s)
	}
}

func TestResolveEverythingFailsMeansUnknown(t *testing.T) {
	backend := &fakeResolverBackend{
		timerErr:   &api.StatusError{StatusCode: 503},
		summaryErr: &api.StatusError{StatusCode: 503},
	}
	if s := newTestResolver(backend, newMemStore()).Resolve(context.Background()); s != nil {
		t.Fatalf("expected nil, got %+v", s)
	}
}

func TestProjectTimersDegradeToEmpty(t *testing.T) {
	backend := &fakeResolverBackend{clientErr: &api.StatusError{StatusCode: 503}}
	timers := newTestResolver(backend, newMemStore()).ProjectTimers(context.Background())
	if timers == nil || len(timers) != 0 {
		t.Fatalf("expected empty map, got %#v", timers)
	}
}

func TestMarkWorkedOn(t *testing.T) {
	tasks := []domain.Task{{ID: "t1"}, {ID: "t2"}}
	timers := map[string]domain.ActiveTimer{"t2": {TaskID: "t2"}}
	out := timer.MarkWorkedOn(tasks, timers)
	if out[0].IsBeingWorkedOn || !out[1].IsBeingWorkedOn {
		t.Fatalf("flags: %+v", out)
	}
	// input untouched
	if tasks[1].IsBeingWorkedOn {
		t.Fatalf("input slice mutated")
	}
}

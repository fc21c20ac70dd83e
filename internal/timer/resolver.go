package timer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/latorreandrea/auravisual-collab-manager-frontend-sub001/internal/decode"
	"github.com/latorreandrea/auravisual-collab-manager-frontend-sub001/internal/domain"
)

// ResolverBackend is the slice of the API client the resolver needs.
type ResolverBackend interface {
	MyActiveTimer(ctx context.Context) (*domain.TimerSession, error)
	MyTimeSummary(ctx context.Context) (decode.Value, error)
	ClientActiveTimers(ctx context.Context) (map[string]domain.ActiveTimer, error)
}

// Resolver rebuilds the current timer state from server truth. No
// single endpoint is authoritative on every surface, so it walks a
// priority chain and degrades to "no known timer" rather than failing:
// timer state is advisory and must never block a dashboard render.
type Resolver struct {
	backend ResolverBackend
	store   SessionStore
	ownerID string
	log     *zap.Logger
	now     func() time.Time
}

func NewResolver(backend ResolverBackend, store SessionStore, ownerID string, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{
		backend: backend,
		store:   store,
		ownerID: ownerID,
		log:     log,
		now:     time.Now,
	}
}

// SetNow overrides the clock, for tests.
func (r *Resolver) SetNow(now func() time.Time) { r.now = now }

// Resolve answers "what is this user's current timer state". The
// dedicated endpoint wins when it answers definitively (found or
// explicit not-found); otherwise the time summary is scanned for an
// active-timer flag, yielding an Inferred session; if both fail the
// answer is nil. The local store is synchronized with whatever the
// server said, since the server is authoritative.
func (r *Resolver) Resolve(ctx context.Context) *domain.TimerSession {
	s, err := r.backend.MyActiveTimer(ctx)
	if err == nil {
		r.sync(ctx, s)
		return s
	}
	r.log.Debug("active-timer endpoint unavailable, falling back to time summary", zap.Error(err))

	summary, err := r.backend.MyTimeSummary(ctx)
	if err != nil {
		r.log.Debug("time summary unavailable, timer state unknown", zap.Error(err))
		return nil
	}
	for _, entry := range summary.List("tasks", "task_summaries") {
		if !entry.Bool("has_active_timer", "active_timer") {
			continue
		}
		started := entry.TimeOrEmpty("timer_started_at", "started_at")
		if started == "" {
			started = r.now().UTC().Format(time.RFC3339)
		}
		// The summary cannot distinguish paused from running; report
		// running but flag the imprecision instead of asserting it.
		s := &domain.TimerSession{
			TaskID:     entry.Str("task_id", "id"),
			TaskAction: entry.Str("action", "task_action", "title"),
			OwnerID:    r.ownerID,
			State:      domain.TimerRunning,
			StartedAt:  started,
			Inferred:   true,
		}
		if s.TaskID == "" {
			continue
		}
		r.sync(ctx, s)
		return s
	}
	r.sync(ctx, nil)
	return nil
}

// ProjectTimers is the client-role transparency view: which of the
// shared projects' tasks are being worked on right now. Failures
// degrade to an empty mapping, never an error.
func (r *Resolver) ProjectTimers(ctx context.Context) map[string]domain.ActiveTimer {
	timers, err := r.backend.ClientActiveTimers(ctx)
	if err != nil {
		r.log.Debug("client active-timers unavailable", zap.Error(err))
		return map[string]domain.ActiveTimer{}
	}
	return timers
}

// MarkWorkedOn derives IsBeingWorkedOn for each task from the
// transparency mapping; tasks absent from it are not being worked on.
func MarkWorkedOn(tasks []domain.Task, timers map[string]domain.ActiveTimer) []domain.Task {
	out := make([]domain.Task, len(tasks))
	for i, t := range tasks {
		_, working := timers[t.ID]
		t.IsBeingWorkedOn = working
		out[i] = t
	}
	return out
}

func (r *Resolver) sync(ctx context.Context, s *domain.TimerSession) {
	if r.store == nil {
		return
	}
	var err error
	if s == nil {
		err = r.store.ClearSession(ctx, r.ownerID)
	} else {
		if s.OwnerID == "" {
			s.OwnerID = r.ownerID
		}
		err = r.store.SaveSession(ctx, *s)
	}
	if err != nil {
		r.log.Warn("session store sync failed", zap.Error(err))
	}
}

// Package timer owns the work-timer lifecycle: the start/pause/resume/
// stop state machine and the reconciliation of local state against the
// backend's partial views of it.
package timer

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/latorreandrea/auravisual-collab-manager-frontend-sub001/internal/api"
	"github.com/latorreandrea/auravisual-collab-manager-frontend-sub001/internal/domain"
)

// ErrInvalidTransition is returned for state-machine violations caught
// locally, before any request is sent.
var ErrInvalidTransition = errors.New("invalid timer transition")

// Backend is the slice of the API client the controller needs.
type Backend interface {
	StartTimer(ctx context.Context, taskID string) error
	StopTimer(ctx context.Context, taskID string) error
	PauseTimer(ctx context.Context, taskID, note string) error
	ResumeTimer(ctx context.Context, taskID, note string) error
}

// SessionStore persists the single local timer session between
// invocations.
type SessionStore interface {
	LoadSession(ctx context.Context, ownerID string) (*domain.TimerSession, error)
	SaveSession(ctx context.Context, s domain.TimerSession) error
	ClearSession(ctx context.Context, ownerID string) error
}

// Controller drives timer transitions for one owner. A mutex
// serializes transitions so requests for the same owner are applied in
// the order they were issued.
type Controller struct {
	mu      sync.Mutex
	backend Backend
	store   SessionStore
	ownerID string
	log     *zap.Logger
	now     func() time.Time
}

func NewController(backend Backend, store SessionStore, ownerID string, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{
		backend: backend,
		store:   store,
		ownerID: ownerID,
		log:     log,
		now:     time.Now,
	}
}

// SetNow overrides the clock, for tests.
func (c *Controller) SetNow(now func() time.Time) { c.now = now }

// Current returns the locally-held session, nil when idle.
func (c *Controller) Current(ctx context.Context) (*domain.TimerSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.LoadSession(ctx, c.ownerID)
}

// Start requests idle→running for the task. Any other task's session
// held locally is invalidated before the request goes out, so the
// single-timer invariant holds even momentarily. A server-side 422
// surfaces as api.ErrAlreadyRunning for the caller to act on.
func (c *Controller) Start(ctx context.Context, taskID string) (domain.TimerSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	current, err := c.store.LoadSession(ctx, c.ownerID)
	if err != nil {
		return domain.TimerSession{}, err
	}
	if current != nil && current.TaskID == taskID && current.State == domain.TimerRunning {
		// Already timing this task; nothing to do.
		return *current, nil
	}
	if current != nil && current.TaskID != taskID && current.Active() {
		c.log.Info("invalidating local session before start",
			zap.String("old_task", current.TaskID), zap.String("new_task", taskID))
		if err := c.store.ClearSession(ctx, c.ownerID); err != nil {
			return domain.TimerSession{}, err
		}
	}
	if err := c.backend.StartTimer(ctx, taskID); err != nil {
		return domain.TimerSession{}, err
	}
	s := domain.TimerSession{
		TaskID:    taskID,
		OwnerID:   c.ownerID,
		State:     domain.TimerRunning,
		StartedAt: c.now().UTC().Format(time.RFC3339),
	}
	if err := c.store.SaveSession(ctx, s); err != nil {
		return s, err
	}
	c.log.Info("timer started", zap.String("task", taskID))
	return s, nil
}

// Stop requests running|paused→idle. It is idempotent from the
// caller's perspective: local state may be stale, so a server answer
// of "nothing to stop" (404 or 422) is a no-op success.
func (c *Controller) Stop(ctx context.Context, taskID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	err := c.backend.StopTimer(ctx, taskID)
	if err != nil && !stopIsNoop(err) {
		return err
	}
	current, loadErr := c.store.LoadSession(ctx, c.ownerID)
	if loadErr == nil && current != nil && current.TaskID == taskID {
		if err := c.store.ClearSession(ctx, c.ownerID); err != nil {
			return err
		}
	}
	c.log.Info("timer stopped", zap.String("task", taskID), zap.Bool("noop", err != nil))
	return nil
}

func stopIsNoop(err error) bool {
	if errors.Is(err, api.ErrNotFound) {
		return true
	}
	var se *api.StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusUnprocessableEntity
}

// Pause requests running→paused with an optional note. Pausing when
// the task is not locally running fails with ErrInvalidTransition
// before any network call.
func (c *Controller) Pause(ctx context.Context, taskID, note string) (domain.TimerSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	current, err := c.store.LoadSession(ctx, c.ownerID)
	if err != nil {
		return domain.TimerSession{}, err
	}
	if current == nil || current.TaskID != taskID || current.State != domain.TimerRunning {
		return domain.TimerSession{}, errors.Join(ErrInvalidTransition, errors.New("pause requires a running timer for this task"))
	}
	if err := c.backend.PauseTimer(ctx, taskID, note); err != nil {
		return domain.TimerSession{}, err
	}
	current.State = domain.TimerPaused
	current.Inferred = false
	if err := c.store.SaveSession(ctx, *current); err != nil {
		return *current, err
	}
	c.log.Info("timer paused", zap.String("task", taskID))
	return *current, nil
}

// Resume requests paused→running. StartedAt is recomputed at resume
// time. Resuming when the task is not locally paused fails with
// ErrInvalidTransition before any network call.
func (c *Controller) Resume(ctx context.Context, taskID, note string) (domain.TimerSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	current, err := c.store.LoadSession(ctx, c.ownerID)
	if err != nil {
		return domain.TimerSession{}, err
	}
	if current == nil || current.TaskID != taskID || current.State != domain.TimerPaused {
		return domain.TimerSession{}, errors.Join(ErrInvalidTransition, errors.New("resume requires a paused timer for this task"))
	}
	if err := c.backend.ResumeTimer(ctx, taskID, note); err != nil {
		return domain.TimerSession{}, err
	}
	current.State = domain.TimerRunning
	current.StartedAt = c.now().UTC().Format(time.RFC3339)
	current.Inferred = false
	if err := c.store.SaveSession(ctx, *current); err != nil {
		return *current, err
	}
	c.log.Info("timer resumed", zap.String("task", taskID))
	return *current, nil
}

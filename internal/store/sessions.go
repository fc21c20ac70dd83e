package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/latorreandrea/auravisual-collab-manager-frontend-sub001/internal/domain"
)

// Sessions persists the single local timer session per owner.
// Single-writer discipline: one session row per owner, replaced whole.
type Sessions struct {
	DB  *sql.DB
	Now func() time.Time
}

func (s Sessions) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// LoadSession returns the stored session for an owner, nil when idle.
func (s Sessions) LoadSession(ctx context.Context, ownerID string) (*domain.TimerSession, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT task_id, task_action, state, started_at, inferred FROM timer_sessions WHERE owner_id=?`, ownerID)
	var (
		sess     domain.TimerSession
		action   sql.NullString
		state    string
		started  sql.NullString
		inferred int
	)
	err := row.Scan(&sess.TaskID, &action, &state, &started, &inferred)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	sess.OwnerID = ownerID
	sess.TaskAction = action.String
	sess.State = domain.TimerState(state)
	sess.StartedAt = started.String
	sess.Inferred = inferred != 0
	return &sess, nil
}

// SaveSession replaces the owner's session, enforcing at most one row
// per owner.
func (s Sessions) SaveSession(ctx context.Context, sess domain.TimerSession) error {
	inferred := 0
	if sess.Inferred {
		inferred = 1
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO timer_sessions(owner_id, task_id, task_action, state, started_at, inferred, updated_at)
		 VALUES (?,?,?,?,?,?,?)
		 ON CONFLICT(owner_id) DO UPDATE SET
		   task_id=excluded.task_id,
		   task_action=excluded.task_action,
		   state=excluded.state,
		   started_at=excluded.started_at,
		   inferred=excluded.inferred,
		   updated_at=excluded.updated_at`,
		sess.OwnerID, sess.TaskID, nullable(sess.TaskAction), string(sess.State),
		nullable(sess.StartedAt), inferred, s.now().UTC().Format(time.RFC3339))
	return err
}

// ClearSession removes the owner's session; clearing an absent session
// is not an error.
func (s Sessions) ClearSession(ctx context.Context, ownerID string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM timer_sessions WHERE owner_id=?`, ownerID)
	return err
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

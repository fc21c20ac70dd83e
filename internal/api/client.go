// Package api is the HTTP client for the Auravisual collaboration
// backend. It owns transport and error classification only; payload
// interpretation lives in the decode package.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/latorreandrea/auravisual-collab-manager-frontend-sub001/internal/decode"
	"github.com/latorreandrea/auravisual-collab-manager-frontend-sub001/internal/domain"
)

// TokenSource supplies the bearer token for each request.
type TokenSource interface {
	Token() (string, error)
}

// StaticToken is a TokenSource for a fixed token string.
type StaticToken string

func (t StaticToken) Token() (string, error) {
	if t == "" {
		return "", ErrAuthRequired
	}
	return string(t), nil
}

// Client talks to the backend API.
type Client struct {
	BaseURL    string
	Tokens     TokenSource
	HTTPClient *http.Client
	Timeout    time.Duration
	Now        func() time.Time
}

// New creates a client with sane defaults.
func New(baseURL string, tokens TokenSource) *Client {
	return &Client{
		BaseURL: baseURL,
		Tokens:  tokens,
		Timeout: 10 * time.Second,
		Now:     time.Now,
	}
}

// MyTasks returns the caller's full task list.
func (c *Client) MyTasks(ctx context.Context) ([]domain.Task, error) {
	raw, err := c.getJSON(ctx, "tasks/my")
	if err != nil {
		return nil, err
	}
	return decode.Tasks(raw), nil
}

// MyActiveTasks returns only the caller's active tasks.
func (c *Client) MyActiveTasks(ctx context.Context) ([]domain.Task, error) {
	raw, err := c.getJSON(ctx, "tasks/my/active")
	if err != nil {
		return nil, err
	}
	return decode.Tasks(raw), nil
}

// MyActiveTimer queries the dedicated active-timer endpoint. A 404 is
// a definitive "no timer" answer, reported as (nil, nil).
func (c *Client) MyActiveTimer(ctx context.Context) (*domain.TimerSession, error) {
	raw, err := c.getJSON(ctx, "tasks/my/active-timer")
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s := decode.TimerSession(raw)
	if s.TaskID == "" {
		return nil, nil
	}
	return &s, nil
}

// MyTimeSummary returns the per-task time summary payload verbatim;
// its shape is not pinned down by the backend.
func (c *Client) MyTimeSummary(ctx context.Context) (decode.Value, error) {
	raw, err := c.getJSON(ctx, "tasks/my/time-summary")
	if err != nil {
		return nil, err
	}
	return decode.AsValue(raw), nil
}

// StartTimer requests the idle→running transition for a task. A 422
// means the server already holds an active session for this user.
func (c *Client) StartTimer(ctx context.Context, taskID string) error {
	return c.timerTransition(ctx, taskID, "start", "")
}

// StopTimer closes the task's session. The server answering 404 or
// 422 means there was nothing to stop; callers treat that as success.
func (c *Client) StopTimer(ctx context.Context, taskID string) error {
	return c.timerTransition(ctx, taskID, "stop", "")
}

func (c *Client) PauseTimer(ctx context.Context, taskID, note string) error {
	return c.timerTransition(ctx, taskID, "pause", note)
}

func (c *Client) ResumeTimer(ctx context.Context, taskID, note string) error {
	return c.timerTransition(ctx, taskID, "resume", note)
}

func (c *Client) timerTransition(ctx context.Context, taskID, action, note string) error {
	if taskID == "" {
		return errors.New("task id is required")
	}
	var body any
	if note != "" {
		body = map[string]any{"note": note}
	}
	endpoint := fmt.Sprintf("tasks/%s/timer/%s", url.PathEscape(taskID), action)
	err := c.do(ctx, http.MethodPost, endpoint, body, nil)
	var se *StatusError
	if action == "start" && errors.As(err, &se) && se.StatusCode == http.StatusUnprocessableEntity {
		if se.Detail != "" {
			return fmt.Errorf("%w: %s", ErrAlreadyRunning, se.Detail)
		}
		return ErrAlreadyRunning
	}
	return err
}

// TimeLogs returns historical log entries for a task.
func (c *Client) TimeLogs(ctx context.Context, taskID string) ([]domain.TimeLog, error) {
	raw, err := c.getJSON(ctx, fmt.Sprintf("tasks/%s/time-logs", url.PathEscape(taskID)))
	if err != nil {
		return nil, err
	}
	return decode.TimeLogs(raw), nil
}

// ClientActiveTimers returns the transparency view of timers running
// on the client's projects, keyed by task id. This lookup is advisory:
// a 404 degrades to an empty mapping.
func (c *Client) ClientActiveTimers(ctx context.Context) (map[string]domain.ActiveTimer, error) {
	raw, err := c.getJSON(ctx, "client/active-timers")
	if errors.Is(err, ErrNotFound) {
		return map[string]domain.ActiveTimer{}, nil
	}
	if err != nil {
		return nil, err
	}
	return decode.ActiveTimers(raw), nil
}

// AdminDashboard returns the raw admin dashboard payload for the
// composer.
func (c *Client) AdminDashboard(ctx context.Context) (decode.Value, error) {
	raw, err := c.getJSON(ctx, "admin/dashboard")
	if err != nil {
		return nil, err
	}
	return decode.AsValue(raw), nil
}

// ClientProjects returns the raw client projects payload for the
// composer.
func (c *Client) ClientProjects(ctx context.Context) (decode.Value, error) {
	raw, err := c.getJSON(ctx, "client/projects")
	if err != nil {
		return nil, err
	}
	return decode.AsValue(raw), nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string) (any, error) {
	var out any
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// bearer resolves the token and fails fast on a locally-expired JWT
// so no doomed request goes out. Opaque (non-JWT) tokens pass through.
func (c *Client) bearer() (string, error) {
	if c.Tokens == nil {
		return "", ErrAuthRequired
	}
	token, err := c.Tokens.Token()
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", ErrAuthRequired
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil && exp.Before(c.now()) {
			return "", fmt.Errorf("%w: token expired", ErrAuthRequired)
		}
	}
	return token, nil
}

func (c *Client) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	token, err := c.bearer()
	if err != nil {
		return err
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	target := strings.TrimRight(c.BaseURL, "/") + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, target, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Request-Id", uuid.NewString())
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		if resp.StatusCode == http.StatusUnauthorized {
			return fmt.Errorf("%w: backend rejected token", ErrAuthRequired)
		}
		return &StatusError{StatusCode: resp.StatusCode, Detail: detailText(data)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// detailText pulls the human-readable message out of an error body.
// FastAPI reports {"detail": ...}; detail may itself be structured.
func detailText(data []byte) string {
	var body map[string]any
	if err := json.Unmarshal(data, &body); err != nil {
		return strings.TrimSpace(string(data))
	}
	switch d := body["detail"].(type) {
	case string:
		return d
	case nil:
	default:
		if b, err := json.Marshal(d); err == nil {
			return string(b)
		}
	}
	if msg, ok := body["message"].(string); ok {
		return msg
	}
	return strings.TrimSpace(string(data))
}

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/latorreandrea/auravisual-collab-manager-frontend-sub001/internal/api"
	"github.com/latorreandrea/auravisual-collab-manager-frontend-sub001/internal/dashboard"
	"github.com/latorreandrea/auravisual-collab-manager-frontend-sub001/internal/store"
	"github.com/latorreandrea/auravisual-collab-manager-frontend-sub001/internal/timer"
)

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func (s *testServer) Close() { s.close() }

// newTestServer wires the handler against a scripted upstream backend.
func newTestServer(t *testing.T, upstream map[string]http.HandlerFunc) *testServer {
	t.Helper()
	mux := http.NewServeMux()
	for path, h := range upstream {
		mux.HandleFunc(path, h)
	}
	backend := httptest.NewServer(mux)

	workspace := t.TempDir()
	conn, err := store.Open(store.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := store.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	sessions := store.Sessions{DB: conn}
	client := api.New(backend.URL, api.StaticToken("test-token"))
	handler, err := New(Config{
		Dashboards: dashboard.NewService(client, nil),
		Resolver:   timer.NewResolver(client, sessions, "staff-1", nil),
		Controller: timer.NewController(client, sessions, "staff-1", nil),
		Tasks:      client,
		BasePath:   "/v0",
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	ts := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
			backend.Close()
		},
	}
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func upstreamJSON(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil)
	res, data := doJSON(t, ts.client, http.MethodGet, ts.URL+"/v0/health", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", res.StatusCode, data)
	}
}

func TestAdminDashboard(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/admin/dashboard": upstreamJSON(http.StatusOK, `{
			"projects": {"total": 4, "active": 3, "completed": 1},
			"clients": {"total": 2},
			"tasks": {"active": 9}
		}`),
	})
	res, data := doJSON(t, ts.client, http.MethodGet, ts.URL+"/v0/dashboard/admin", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", res.StatusCode, data)
	}
	var body struct {
		TotalProjects int `json:"total_projects"`
		ActiveTasks   int `json:"active_tasks"`
		TotalStaff    int `json:"total_staff"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		t.Fatalf("decode: %v (%s)", err, data)
	}
	if body.TotalProjects != 4 || body.ActiveTasks != 9 || body.TotalStaff != 0 {
		t.Fatalf("summary: %+v", body)
	}
}

func TestAdminDashboardUpstreamDenied(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/admin/dashboard": upstreamJSON(http.StatusForbidden, `{"detail": "admins only"}`),
	})
	res, data := doJSON(t, ts.client, http.MethodGet, ts.URL+"/v0/dashboard/admin", nil)
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("status %d: %s", res.StatusCode, data)
	}
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		t.Fatalf("decode: %v (%s)", err, data)
	}
	if body.Error.Code != "forbidden" {
		t.Fatalf("error code: %q", body.Error.Code)
	}
}

func TestTimerStateNoTimer(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/tasks/my/active-timer": upstreamJSON(http.StatusNotFound, `{"detail": "no active timer"}`),
		"/tasks/my/time-summary": upstreamJSON(http.StatusOK, `{"tasks": []}`),
	})
	res, data := doJSON(t, ts.client, http.MethodGet, ts.URL+"/v0/timer", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", res.StatusCode, data)
	}
	var body struct {
		Session *json.RawMessage `json:"session"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		t.Fatalf("decode: %v (%s)", err, data)
	}
	if body.Session != nil && string(*body.Session) != "null" {
		t.Fatalf("expected null session, got %s", *body.Session)
	}
}

func TestTimerStartConflictMapsTo409(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/tasks/t1/timer/start": upstreamJSON(http.StatusUnprocessableEntity, `{"detail": "timer already running"}`),
	})
	res, data := doJSON(t, ts.client, http.MethodPost, ts.URL+"/v0/tasks/t1/timer/start", map[string]string{})
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("status %d: %s", res.StatusCode, data)
	}
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		t.Fatalf("decode: %v (%s)", err, data)
	}
	if body.Error.Code != "timer_conflict" {
		t.Fatalf("error code: %q", body.Error.Code)
	}
}

func TestTimerPauseFromIdleMapsTo422(t *testing.T) {
	ts := newTestServer(t, nil)
	res, data := doJSON(t, ts.client, http.MethodPost, ts.URL+"/v0/tasks/t1/timer/pause", map[string]string{})
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status %d: %s", res.StatusCode, data)
	}
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		t.Fatalf("decode: %v (%s)", err, data)
	}
	if body.Error.Code != "invalid_transition" {
		t.Fatalf("error code: %q", body.Error.Code)
	}
}

func TestTimerStartThenState(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/tasks/t1/timer/start": upstreamJSON(http.StatusOK, `{"message": "started"}`),
		"/tasks/my/active-timer": upstreamJSON(http.StatusOK, `{
			"active_timer": {"task_id": "t1", "started_at": "2025-06-01T09:00:00Z"}
		}`),
	})
	res, data := doJSON(t, ts.client, http.MethodPost, ts.URL+"/v0/tasks/t1/timer/start", map[string]string{})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("start status %d: %s", res.StatusCode, data)
	}
	res, data = doJSON(t, ts.client, http.MethodGet, ts.URL+"/v0/timer", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("state status %d: %s", res.StatusCode, data)
	}
	var body struct {
		Session *struct {
			TaskID string `json:"task_id"`
			State  string `json:"state"`
		} `json:"session"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		t.Fatalf("decode: %v (%s)", err, data)
	}
	if body.Session == nil || body.Session.TaskID != "t1" || body.Session.State != "running" {
		t.Fatalf("session: %+v", body.Session)
	}
}

func TestTaskStats(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/tasks/my": upstreamJSON(http.StatusOK, `{"tasks": [
			{"id": "a", "project_id": "p1", "status": "completed"},
			{"id": "b", "project_id": "p1", "status": "in_progress"},
			{"id": "c", "status": "pending"}
		]}`),
	})
	res, data := doJSON(t, ts.client, http.MethodGet, ts.URL+"/v0/tasks/stats", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", res.StatusCode, data)
	}
	var body struct {
		Projects []struct {
			ProjectID  string `json:"project_id"`
			TotalTasks int    `json:"total_tasks"`
		} `json:"projects"`
		Unassigned int `json:"unassigned_tasks"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		t.Fatalf("decode: %v (%s)", err, data)
	}
	if len(body.Projects) != 1 || body.Projects[0].TotalTasks != 2 {
		t.Fatalf("projects: %+v", body.Projects)
	}
	if body.Unassigned != 1 {
		t.Fatalf("unassigned: %d", body.Unassigned)
	}
}

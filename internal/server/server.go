// Package server exposes the composed dashboards and timer state over
// a local HTTP API, so other tools on the workstation can
// consume what the CLI computes without talking to the backend
// themselves.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/latorreandrea/auravisual-collab-manager-frontend-sub001/internal/aggregate"
	"github.com/latorreandrea/auravisual-collab-manager-frontend-sub001/internal/api"
	"github.com/latorreandrea/auravisual-collab-manager-frontend-sub001/internal/dashboard"
	"github.com/latorreandrea/auravisual-collab-manager-frontend-sub001/internal/domain"
	"github.com/latorreandrea/auravisual-collab-manager-frontend-sub001/internal/timer"
)

// Config for the local API handler.
type Config struct {
	Dashboards *dashboard.Service
	Resolver   *timer.Resolver
	Controller *timer.Controller
	Tasks      TaskSource
	BasePath   string
	Logger     *zap.Logger
}

// TaskSource is the slice of the API client the stats endpoint needs.
type TaskSource interface {
	MyTasks(ctx context.Context) ([]domain.Task, error)
}

type apiErrorBody struct {
	Code    string `json:"code" example:"upstream_error"`
	Message string `json:"message" example:"request failed (503)"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

func newAPIError(status int, code, message string) huma.StatusError {
	return &apiError{status: status, Body: apiErrorBody{Code: code, Message: message}}
}

// New returns the local HTTP handler.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, defaultCodeForStatus(status), msg)
	}

	router := chi.NewRouter()
	router.Use(requestLogger(log))
	hcfg := huma.DefaultConfig("Collab Dashboard API", "0.1.0")
	hapi := humachi.New(router, hcfg)
	group := huma.NewGroup(hapi, basePath)

	registerHealth(group)
	registerDashboards(group, cfg.Dashboards)
	registerTimer(group, cfg.Resolver, cfg.Controller)
	registerTaskStats(group, cfg.Tasks)

	return router, nil
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Debug("request", zap.String("method", r.Method), zap.String("path", r.URL.Path))
			next.ServeHTTP(w, r)
		})
	}
}

// handleError maps the client error taxonomy onto local statuses.
func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, api.ErrAuthRequired):
		return newAPIError(http.StatusUnauthorized, "unauthorized", err.Error())
	case errors.Is(err, api.ErrAccessDenied):
		return newAPIError(http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, api.ErrNotFound):
		return newAPIError(http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, api.ErrAlreadyRunning):
		return newAPIError(http.StatusConflict, "timer_conflict", err.Error())
	case errors.Is(err, timer.ErrInvalidTransition):
		return newAPIError(http.StatusUnprocessableEntity, "invalid_transition", err.Error())
	default:
		return newAPIError(http.StatusBadGateway, "upstream_error", err.Error())
	}
}

func defaultCodeForStatus(status int) string {
	return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
}

func registerHealth(g huma.API) {
	huma.Register(g, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerDashboards(g huma.API, svc *dashboard.Service) {
	huma.Register(g, huma.Operation{
		OperationID: "admin-dashboard",
		Method:      http.MethodGet,
		Path:        "/dashboard/admin",
		Summary:     "Admin dashboard summary",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body domain.AdminSummary `json:"body"`
	}, error) {
		summary, err := svc.RefreshAdmin(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.AdminSummary `json:"body"`
		}{Body: summary}, nil
	})

	huma.Register(g, huma.Operation{
		OperationID: "staff-dashboard",
		Method:      http.MethodGet,
		Path:        "/dashboard/staff",
		Summary:     "Staff dashboard summary",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body domain.StaffSummary `json:"body"`
	}, error) {
		summary, err := svc.RefreshStaff(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.StaffSummary `json:"body"`
		}{Body: summary}, nil
	})

	huma.Register(g, huma.Operation{
		OperationID: "client-dashboard",
		Method:      http.MethodGet,
		Path:        "/dashboard/client",
		Summary:     "Client dashboard summary",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body domain.ClientSummary `json:"body"`
	}, error) {
		summary, err := svc.RefreshClient(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.ClientSummary `json:"body"`
		}{Body: summary}, nil
	})
}

// TimerStateResponse reports the resolved timer; Session is null when
// no timer is known.
type TimerStateResponse struct {
	Session *domain.TimerSession `json:"session"`
}

func registerTimer(g huma.API, resolver *timer.Resolver, controller *timer.Controller) {
	huma.Register(g, huma.Operation{
		OperationID: "timer-state",
		Method:      http.MethodGet,
		Path:        "/timer",
		Summary:     "Resolved timer state",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body TimerStateResponse `json:"body"`
	}, error) {
		return &struct {
			Body TimerStateResponse `json:"body"`
		}{Body: TimerStateResponse{Session: resolver.Resolve(ctx)}}, nil
	})

	huma.Register(g, huma.Operation{
		OperationID: "timer-transition",
		Method:      http.MethodPost,
		Path:        "/tasks/{task_id}/timer/{action}",
		Summary:     "Apply a timer transition",
	}, func(ctx context.Context, input *struct {
		TaskID string `path:"task_id"`
		Action string `path:"action" enum:"start,stop,pause,resume"`
		Body   struct {
			Note string `json:"note,omitempty"`
		} `json:"body,omitempty" required:"false"`
	}) (*struct {
		Body TimerStateResponse `json:"body"`
	}, error) {
		var (
			session domain.TimerSession
			err     error
		)
		switch input.Action {
		case "start":
			session, err = controller.Start(ctx, input.TaskID)
		case "stop":
			err = controller.Stop(ctx, input.TaskID)
		case "pause":
			session, err = controller.Pause(ctx, input.TaskID, input.Body.Note)
		case "resume":
			session, err = controller.Resume(ctx, input.TaskID, input.Body.Note)
		default:
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "unknown timer action")
		}
		if err != nil {
			return nil, handleError(err)
		}
		resp := TimerStateResponse{}
		if session.Active() {
			resp.Session = &session
		}
		return &struct {
			Body TimerStateResponse `json:"body"`
		}{Body: resp}, nil
	})
}

// TaskStatsResponse carries per-project statistics plus the count of
// tasks whose project could not be resolved.
type TaskStatsResponse struct {
	Projects   []domain.ProjectTaskStats `json:"projects"`
	Unassigned int                       `json:"unassigned_tasks"`
}

func registerTaskStats(g huma.API, tasks TaskSource) {
	huma.Register(g, huma.Operation{
		OperationID: "task-stats",
		Method:      http.MethodGet,
		Path:        "/tasks/stats",
		Summary:     "Per-project task statistics",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body TaskStatsResponse `json:"body"`
	}, error) {
		list, err := tasks.MyTasks(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		stats, unassigned := aggregate.ProjectStats(list, aggregate.Context{})
		return &struct {
			Body TaskStatsResponse `json:"body"`
		}{Body: TaskStatsResponse{Projects: stats, Unassigned: unassigned}}, nil
	})
}

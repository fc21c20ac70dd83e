package dashboard

import (
	"context"

	"go.uber.org/zap"

	"github.com/latorreandrea/auravisual-collab-manager-frontend-sub001/internal/decode"
	"github.com/latorreandrea/auravisual-collab-manager-frontend-sub001/internal/domain"
)

// Fetcher is the slice of the API client the service needs.
type Fetcher interface {
	AdminDashboard(ctx context.Context) (decode.Value, error)
	ClientProjects(ctx context.Context) (decode.Value, error)
	MyTasks(ctx context.Context) ([]domain.Task, error)
	MyActiveTasks(ctx context.Context) ([]domain.Task, error)
}

// Service fetches and composes role dashboards. Fetch failures on
// these primary sources always propagate: an empty dashboard must not
// be mistaken for cleanly zero. Superseded refreshes are discarded on
// arrival instead of overwriting fresher state.
type Service struct {
	backend Fetcher
	log     *zap.Logger

	admin  view[domain.AdminSummary]
	staff  view[domain.StaffSummary]
	client view[domain.ClientSummary]
}

func NewService(backend Fetcher, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{backend: backend, log: log}
}

// RefreshAdmin fetches and composes the admin summary.
func (s *Service) RefreshAdmin(ctx context.Context) (domain.AdminSummary, error) {
	seq := s.admin.begin()
	raw, err := s.backend.AdminDashboard(ctx)
	if err != nil {
		return domain.AdminSummary{}, err
	}
	summary := ComposeAdmin(map[string]any(raw))
	if !s.admin.commit(seq, summary) {
		s.log.Debug("admin refresh superseded, result discarded")
		current, _ := s.admin.value()
		return current, nil
	}
	return summary, nil
}

// RefreshStaff fetches both staff task payloads and composes them.
func (s *Service) RefreshStaff(ctx context.Context) (domain.StaffSummary, error) {
	seq := s.staff.begin()
	active, err := s.backend.MyActiveTasks(ctx)
	if err != nil {
		return domain.StaffSummary{}, err
	}
	all, err := s.backend.MyTasks(ctx)
	if err != nil {
		return domain.StaffSummary{}, err
	}
	summary := composeStaffFromTasks(active, all)
	if !s.staff.commit(seq, summary) {
		s.log.Debug("staff refresh superseded, result discarded")
		current, _ := s.staff.value()
		return current, nil
	}
	return summary, nil
}

// RefreshClient fetches the client's project payload and composes it.
func (s *Service) RefreshClient(ctx context.Context) (domain.ClientSummary, error) {
	seq := s.client.begin()
	raw, err := s.backend.ClientProjects(ctx)
	if err != nil {
		return domain.ClientSummary{}, err
	}
	summary := ComposeClient(map[string]any(raw))
	if !s.client.commit(seq, summary) {
		s.log.Debug("client refresh superseded, result discarded")
		current, _ := s.client.value()
		return current, nil
	}
	return summary, nil
}

// composeStaffFromTasks mirrors ComposeStaff for already-decoded task
// lists, as produced by the API client.
func composeStaffFromTasks(active, all []domain.Task) domain.StaffSummary {
	completed := 0
	projects := map[string]struct{}{}
	for _, t := range all {
		if t.Status == domain.StatusCompleted {
			completed++
		}
		if t.ProjectID != "" {
			projects[t.ProjectID] = struct{}{}
		}
	}
	return domain.StaffSummary{
		ActiveTasks:      len(active),
		CompletedTasks:   completed,
		DistinctProjects: len(projects),
	}
}

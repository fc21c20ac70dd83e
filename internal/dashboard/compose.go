// Package dashboard builds role-specific summaries from raw backend
// payloads. Composition is pure over pre-fetched data so it can be
// exercised without a backend.
package dashboard

import (
	"github.com/latorreandrea/auravisual-collab-manager-frontend-sub001/internal/decode"
	"github.com/latorreandrea/auravisual-collab-manager-frontend-sub001/internal/domain"
)

// ComposeAdmin flattens the nested category counters of the admin
// dashboard payload. Every absent counter reads as 0.
func ComposeAdmin(raw any) domain.AdminSummary {
	v := decode.AsValue(raw)
	projects := v.Child("projects")
	return domain.AdminSummary{
		TotalProjects:     projects.Int("total", "total_projects"),
		ActiveProjects:    projects.Int("active", "active_projects"),
		CompletedProjects: projects.Int("completed", "completed_projects"),
		TotalClients:      v.Child("clients").Int("total", "total_clients"),
		TotalStaff:        v.Child("staff").Int("total", "total_staff"),
		OpenTickets:       v.Child("tickets").Int("open", "open_tickets"),
		ActiveTasks:       v.Child("tasks").Int("active", "active_tasks"),
	}
}

// ComposeStaff merges the targeted active-task payload with the full
// task list. The active count is trusted as reported; completed tasks
// are counted from the full list; the project count is the cardinality
// of the set of non-empty project ids seen across it, so a project
// spanning many tasks is counted once.
func ComposeStaff(activeRaw, allRaw any) domain.StaffSummary {
	active := decode.Tasks(activeRaw)
	activeCount := decode.AsValue(activeRaw).Int("count", "total")
	if activeCount == 0 {
		activeCount = len(active)
	}
	all := decode.Tasks(allRaw)
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
		ActiveTasks:      activeCount,
		CompletedTasks:   completed,
		DistinctProjects: len(projects),
	}
}

// ComposeClient sums totals across the client's project list. The
// primary plan is the first project's plan, an acknowledged
// approximation; it is never absent, falling back to the "No Plan"
// sentinel.
func ComposeClient(raw any) domain.ClientSummary {
	projects := decode.Projects(raw)
	summary := domain.ClientSummary{
		TotalProjects: len(projects),
		ProjectNames:  []string{},
		PrimaryPlan:   domain.NoPlan,
	}
	for _, p := range projects {
		summary.OpenTickets += p.OpenTickets
		summary.ProjectNames = append(summary.ProjectNames, p.Name)
	}
	if len(projects) > 0 && projects[0].Plan != "" {
		summary.PrimaryPlan = projects[0].Plan
	}
	return summary
}

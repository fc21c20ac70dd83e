// Package aggregate turns flat or nested task collections into
// per-project statistics.
package aggregate

import (
	"sort"

	"github.com/latorreandrea/auravisual-collab-manager-frontend-sub001/internal/domain"
)

// Context supplies correlation the tasks themselves may lack: project
// ids inherited from a parent ticket, and display names for projects.
type Context struct {
	TicketProject map[string]string
	ProjectNames  map[string]string
}

// ContextFromProjects builds a Context from a project tree, so tasks
// embedded in tickets resolve to their owning project.
func ContextFromProjects(projects []domain.Project) Context {
	c := Context{
		TicketProject: map[string]string{},
		ProjectNames:  map[string]string{},
	}
	for _, p := range projects {
		if p.ID == "" {
			continue
		}
		c.ProjectNames[p.ID] = p.Name
		for _, t := range p.Tickets {
			if t.ID != "" {
				c.TicketProject[t.ID] = p.ID
			}
		}
	}
	return c
}

// Flatten collects every task reachable from a project tree, stamping
// inherited project and ticket ids onto tasks that lack them.
func Flatten(projects []domain.Project) []domain.Task {
	var out []domain.Task
	for _, p := range projects {
		for _, ticket := range p.Tickets {
			for _, task := range ticket.Tasks {
				if task.ProjectID == "" {
					task.ProjectID = p.ID
				}
				if task.ProjectName == "" {
					task.ProjectName = p.Name
				}
				if task.TicketID == "" {
					task.TicketID = ticket.ID
				}
				out = append(out, task)
			}
		}
	}
	return out
}

// ProjectStats iterates the tasks exactly once and produces one stats
// bucket per distinct project id, plus the count of tasks whose
// project could not be resolved (excluded from every bucket, but
// reported so the loss is visible). Accumulation is commutative: any
// permutation of the input yields the same result.
func ProjectStats(tasks []domain.Task, ctx Context) ([]domain.ProjectTaskStats, int) {
	buckets := map[string]*domain.ProjectTaskStats{}
	unassigned := 0
	for _, t := range tasks {
		projectID := resolveProject(t, ctx)
		if projectID == "" {
			unassigned++
			continue
		}
		b, ok := buckets[projectID]
		if !ok {
			b = &domain.ProjectTaskStats{
				ProjectID:   projectID,
				ProjectName: projectName(t, projectID, ctx),
			}
			buckets[projectID] = b
		}
		if b.ProjectName == "" {
			b.ProjectName = projectName(t, projectID, ctx)
		}
		b.TotalTasks++
		switch t.Status {
		case domain.StatusInProgress:
			b.ActiveTasks++
		case domain.StatusCompleted:
			b.CompletedTasks++
		}
	}
	out := make([]domain.ProjectTaskStats, 0, len(buckets))
	for _, b := range buckets {
		b.CompletionPercentage = completionPercentage(b.CompletedTasks, b.TotalTasks)
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProjectID < out[j].ProjectID })
	return out, unassigned
}

func resolveProject(t domain.Task, ctx Context) string {
	if t.ProjectID != "" {
		return t.ProjectID
	}
	if t.TicketID != "" {
		return ctx.TicketProject[t.TicketID]
	}
	return ""
}

func projectName(t domain.Task, projectID string, ctx Context) string {
	if t.ProjectName != "" {
		return t.ProjectName
	}
	return ctx.ProjectNames[projectID]
}

func completionPercentage(completed, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(completed) / float64(total) * 100
}

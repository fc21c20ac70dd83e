package aggregate_test

import (
	"math/rand"
	"reflect"
	"testing"

	"github.com/latorreandrea/auravisual-collab-manager-frontend-sub001/internal/aggregate"
	"github.com/latorreandrea/auravisual-collab-manager-frontend-sub001/internal/domain"
)

func sampleTasks() []domain.Task {
	return []domain.Task{
		{ID: "1", ProjectID: "p1", ProjectName: "Site", Status: domain.StatusCompleted},
		{ID: "2", ProjectID: "p1", Status: domain.StatusInProgress},
		{ID: "3", ProjectID: "p1", Status: domain.StatusPending},
		{ID: "4", ProjectID: "p2", ProjectName: "App", Status: domain.StatusCompleted},
		{ID: "5", Status: domain.StatusInProgress},
		{ID: "6", TicketID: "unknown-ticket", Status: domain.StatusPending},
	}
}

func TestProjectStats(t *testing.T) {
	stats, unassigned := aggregate.ProjectStats(sampleTasks(), aggregate.Context{})
	if unassigned != 2 {
		t.Fatalf("unassigned: got %d, want 2", unassigned)
	}
	if len(stats) != 2 {
		t.Fatalf("buckets: got %d, want 2", len(stats))
	}
	p1 := stats[0]
	if p1.ProjectID != "p1" || p1.TotalTasks != 3 || p1.ActiveTasks != 1 || p1.CompletedTasks != 1 {
		t.Fatalf("p1: %+v", p1)
	}
	if p1.ProjectName != "Site" {
		t.Fatalf("p1 name: %q", p1.ProjectName)
	}
	want := 100.0 / 3.0
	if diff := p1.CompletionPercentage - want; diff > 0.001 || diff < -0.001 {
		t.Fatalf("p1 completion: %f", p1.CompletionPercentage)
	}
	p2 := stats[1]
	if p2.CompletionPercentage != 100 {
		t.Fatalf("p2 completion: %f", p2.CompletionPercentage)
	}
}

func TestProjectStatsCommutative(t *testing.T) {
	base := sampleTasks()
	wantStats, wantUnassigned := aggregate.ProjectStats(base, aggregate.Context{})
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append([]domain.Task(nil), base...)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		stats, unassigned := aggregate.ProjectStats(shuffled, aggregate.Context{})
		if unassigned != wantUnassigned || !reflect.DeepEqual(stats, wantStats) {
			t.Fatalf("permutation %d changed the result:\n got %+v (unassigned %d)\nwant %+v (unassigned %d)",
				i, stats, unassigned, wantStats, wantUnassigned)
		}
	}
}

func TestProjectStatsEmptyInput(t *testing.T) {
	stats, unassigned := aggregate.ProjectStats(nil, aggregate.Context{})
	if len(stats) != 0 || unassigned != 0 {
		t.Fatalf("empty input: %+v, %d", stats, unassigned)
	}
}

func TestTicketContextResolvesProject(t *testing.T) {
	ctx := aggregate.Context{
		TicketProject: map[string]string{"tk1": "p1"},
		ProjectNames:  map[string]string{"p1": "Site"},
	}
	tasks := []domain.Task{{ID: "1", TicketID: "tk1", Status: domain.StatusCompleted}}
	stats, unassigned := aggregate.ProjectStats(tasks, ctx)
	if unassigned != 0 || len(stats) != 1 {
		t.Fatalf("stats: %+v unassigned %d", stats, unassigned)
	}
	if stats[0].ProjectID != "p1" || stats[0].ProjectName != "Site" {
		t.Fatalf("resolved: %+v", stats[0])
	}
}

func TestContextFromProjects(t *testing.T) {
	projects := []domain.Project{
		{
			ID: "p1", Name: "Site",
			Tickets: []domain.Ticket{{ID: "tk1"}, {ID: "tk2"}},
		},
		{ID: "", Name: "ignored"},
	}
	ctx := aggregate.ContextFromProjects(projects)
	if ctx.TicketProject["tk1"] != "p1" || ctx.TicketProject["tk2"] != "p1" {
		t.Fatalf("ticket mapping: %+v", ctx.TicketProject)
	}
	if ctx.ProjectNames["p1"] != "Site" {
		t.Fatalf("project names: %+v", ctx.ProjectNames)
	}
	if len(ctx.ProjectNames) != 1 {
		t.Fatalf("project without id leaked in: %+v", ctx.ProjectNames)
	}
}

func TestFlattenInheritsIDs(t *testing.T) {
	projects := []domain.Project{
		{
			ID: "p1", Name: "Site",
			Tickets: []domain.Ticket{
				{
					ID: "tk1",
					Tasks: []domain.Task{
						{ID: "t1"},
						{ID: "t2", ProjectID: "explicit", ProjectName: "Other"},
					},
				},
			},
		},
	}
	tasks := aggregate.Flatten(projects)
	if len(tasks) != 2 {
		t.Fatalf("flattened %d tasks", len(tasks))
	}
	if tasks[0].ProjectID != "p1" || tasks[0].ProjectName != "Site" || tasks[0].TicketID != "tk1" {
		t.Fatalf("inherited ids: %+v", tasks[0])
	}
	if tasks[1].ProjectID != "explicit" || tasks[1].ProjectName != "Other" {
		t.Fatalf("explicit ids overwritten: %+v", tasks[1])
	}
}

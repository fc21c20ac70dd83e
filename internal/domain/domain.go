package domain

// Task statuses as reported by the backend. The set is open: unknown
// values pass through verbatim so a backend rollout never breaks the
// client.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// Task priorities. PriorityMedium is the default when the backend
// omits the field.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

type Task struct {
	ID              string `json:"id"`
	Action          string `json:"action"`
	AssignedTo      string `json:"assigned_to,omitempty"`
	Status          string `json:"status"`
	Priority        string `json:"priority"`
	ProjectID       string `json:"project_id,omitempty"`
	ProjectName     string `json:"project_name,omitempty"`
	TicketID        string `json:"ticket_id,omitempty"`
	CreatedAt       string `json:"created_at,omitempty" format:"date-time"`
	TotalMinutes    int    `json:"total_minutes,omitempty"`
	IsBeingWorkedOn bool   `json:"is_being_worked_on"`
}

type Ticket struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Status    string `json:"status"`
	ProjectID string `json:"project_id,omitempty"`
	Tasks     []Task `json:"tasks,omitempty"`
}

type Client struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email,omitempty"`
	Company  string `json:"company,omitempty"`
}

type Project struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Status      string   `json:"status"`
	Plan        string   `json:"plan,omitempty"`
	Client      *Client  `json:"client,omitempty"`
	OpenTickets int      `json:"open_tickets_count"`
	Tickets     []Ticket `json:"tickets,omitempty"`
	Websites    []string `json:"websites,omitempty"`
	CreatedAt   string   `json:"created_at,omitempty" format:"date-time"`
}

// TimerState is the client-local view of the one authoritative timer.
type TimerState string

const (
	TimerIdle    TimerState = "idle"
	TimerRunning TimerState = "running"
	TimerPaused  TimerState = "paused"
)

// TimerSession is the local record of the single running or paused
// work timer for an owner. At most one per owner at any time; the
// server remains authoritative and may disagree until reconciled.
type TimerSession struct {
	TaskID     string     `json:"task_id"`
	TaskAction string     `json:"task_action,omitempty"`
	OwnerID    string     `json:"owner_id,omitempty"`
	State      TimerState `json:"state"`
	StartedAt  string     `json:"started_at,omitempty" format:"date-time"`
	// Inferred marks a session rebuilt from the time-summary fallback,
	// which cannot distinguish paused from running.
	Inferred bool `json:"inferred,omitempty"`
}

// Active reports whether the session occupies the owner's single slot.
func (s TimerSession) Active() bool {
	return s.State == TimerRunning || s.State == TimerPaused
}

// ActiveTimer is the server-side record of an in-progress timer,
// as exposed by the transparency endpoints.
type ActiveTimer struct {
	TaskID     string `json:"task_id"`
	TaskAction string `json:"task_action,omitempty"`
	StaffName  string `json:"staff_name,omitempty"`
	StartedAt  string `json:"started_at,omitempty" format:"date-time"`
	Paused     bool   `json:"paused,omitempty"`
}

type TimeLog struct {
	ID        string `json:"id"`
	TaskID    string `json:"task_id"`
	StartedAt string `json:"started_at,omitempty" format:"date-time"`
	EndedAt   string `json:"ended_at,omitempty" format:"date-time"`
	Minutes   int    `json:"minutes"`
	Note      string `json:"note,omitempty"`
}

// ProjectTaskStats aggregates one project's tasks. Recomputed fresh on
// every aggregation pass, never patched incrementally.
type ProjectTaskStats struct {
	ProjectID            string  `json:"project_id"`
	ProjectName          string  `json:"project_name,omitempty"`
	ActiveTasks          int     `json:"active_tasks"`
	CompletedTasks       int     `json:"completed_tasks"`
	TotalTasks           int     `json:"total_tasks"`
	CompletionPercentage float64 `json:"completion_percentage"`
}

type AdminSummary struct {
	TotalProjects     int `json:"total_projects"`
	ActiveProjects    int `json:"active_projects"`
	CompletedProjects int `json:"completed_projects"`
	TotalClients      int `json:"total_clients"`
	TotalStaff        int `json:"total_staff"`
	OpenTickets       int `json:"open_tickets"`
	ActiveTasks       int `json:"active_tasks"`
}

type StaffSummary struct {
	ActiveTasks      int `json:"active_tasks"`
	CompletedTasks   int `json:"completed_tasks"`
	DistinctProjects int `json:"distinct_projects"`
}

// NoPlan is the ClientSummary sentinel when the project list is empty.
const NoPlan = "No Plan"

type ClientSummary struct {
	TotalProjects int      `json:"total_projects"`
	OpenTickets   int      `json:"open_tickets"`
	ProjectNames  []string `json:"project_names"`
	PrimaryPlan   string   `json:"primary_plan"`
}

// Package decode maps untyped backend payloads onto domain entities.
// The backend evolves independently of this client, so decoding is
// best-effort by design: missing or wrong-typed fields degrade to
// documented defaults instead of failing the whole payload.
package decode

import (
	"strconv"
	"strings"
	"time"

	"github.com/latorreandrea/auravisual-collab-manager-frontend-sub001/internal/domain"
)

// Value is an untyped JSON object. All accessors are nil-safe.
type Value map[string]any

// AsValue converts an arbitrary decoded JSON value to a Value.
// Anything that is not an object yields an empty Value.
func AsValue(v any) Value {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return Value{}
}

// Str returns the first present key as a string. JSON numbers are
// formatted rather than dropped since identifiers arrive as either.
// Absent or otherwise wrong-typed keys yield "".
func (v Value) Str(keys ...string) string {
	for _, k := range keys {
		raw, ok := v[k]
		if !ok || raw == nil {
			continue
		}
		switch t := raw.(type) {
		case string:
			return t
		case float64:
			if t == float64(int64(t)) {
				return strconv.FormatInt(int64(t), 10)
			}
			return strconv.FormatFloat(t, 'f', -1, 64)
		case int:
			return strconv.Itoa(t)
		}
	}
	return ""
}

// Int returns the first present key as an int, accepting JSON numbers
// and numeric strings. Absent or unparsable keys yield 0.
func (v Value) Int(keys ...string) int {
	for _, k := range keys {
		raw, ok := v[k]
		if !ok || raw == nil {
			continue
		}
		switch t := raw.(type) {
		case float64:
			return int(t)
		case int:
			return t
		case string:
			if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
				return n
			}
		}
	}
	return 0
}

func (v Value) Bool(keys ...string) bool {
	for _, k := range keys {
		switch t := v[k].(type) {
		case bool:
			return t
		case string:
			if b, err := strconv.ParseBool(t); err == nil {
				return b
			}
		}
	}
	return false
}

// Child returns a nested object, trying the canonical key first and
// then any legacy keys. A missing or non-object child yields an empty
// Value rather than nil so chained access stays safe.
func (v Value) Child(key string, legacy ...string) Value {
	for _, k := range append([]string{key}, legacy...) {
		if m, ok := v[k].(map[string]any); ok {
			return m
		}
	}
	return Value{}
}

// Has reports whether any of the keys holds a non-nil object value.
func (v Value) Has(keys ...string) bool {
	for _, k := range keys {
		if raw, ok := v[k]; ok && raw != nil {
			return true
		}
	}
	return false
}

// List returns the first present key as a slice of objects; entries
// that are not objects are skipped.
func (v Value) List(keys ...string) []Value {
	for _, k := range keys {
		arr, ok := v[k].([]any)
		if !ok {
			continue
		}
		out := make([]Value, 0, len(arr))
		for _, item := range arr {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}

// stringListStrategy attempts one wire form of a string collection.
type stringListStrategy func(any) ([]string, bool)

// Ordered strategies for polymorphic string collections: array form
// first, then a comma-joined string, then empty. New schema variants
// slot in as new strategies.
var stringListStrategies = []stringListStrategy{
	stringsFromArray,
	stringsFromDelimited,
}

func stringsFromArray(raw any) ([]string, bool) {
	arr, ok := raw.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out, true
}

func stringsFromDelimited(raw any) ([]string, bool) {
	s, ok := raw.(string)
	if !ok {
		return nil, false
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out, true
}

// Strings decodes a polymorphic string collection from the first
// present key. Defaults to an empty collection.
func (v Value) Strings(keys ...string) []string {
	for _, k := range keys {
		raw, ok := v[k]
		if !ok || raw == nil {
			continue
		}
		for _, strategy := range stringListStrategies {
			if out, matched := strategy(raw); matched {
				return out
			}
		}
	}
	return []string{}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTime parses a timestamp leniently. Unparsable or empty input
// yields the zero time; callers that cannot tolerate "unknown" use
// this directly, everything else goes through Time.
func ParseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Time returns the first present key as an RFC3339 timestamp string.
// Unparsable or absent values default to now, so a timestamp is never
// a decode failure.
func (v Value) Time(keys ...string) string {
	if s := v.TimeOrEmpty(keys...); s != "" {
		return s
	}
	return time.Now().UTC().Format(time.RFC3339)
}

// TimeOrEmpty is the variant for callers that must distinguish a
// genuinely missing timestamp from "just happened".
func (v Value) TimeOrEmpty(keys ...string) string {
	for _, k := range keys {
		s, ok := v[k].(string)
		if !ok {
			continue
		}
		if t := ParseTime(s); !t.IsZero() {
			return t.UTC().Format(time.RFC3339)
		}
	}
	return ""
}

// Task decodes a single task object.
func Task(raw any) domain.Task {
	v := AsValue(raw)
	t := domain.Task{
		ID:           v.Str("id", "task_id"),
		Action:       v.Str("action", "title"),
		AssignedTo:   v.Str("assigned_to", "assigned_to_id", "staff_id"),
		Status:       v.Str("status"),
		Priority:     v.Str("priority"),
		ProjectID:    v.Str("project_id"),
		ProjectName:  v.Str("project_name"),
		TicketID:     v.Str("ticket_id"),
		CreatedAt:    v.TimeOrEmpty("created_at"),
		TotalMinutes: v.Int("total_minutes", "minutes"),
	}
	if t.Priority == "" {
		t.Priority = domain.PriorityMedium
	}
	if t.ProjectID == "" {
		t.ProjectID = v.Child("project").Str("id")
	}
	if t.ProjectName == "" {
		t.ProjectName = v.Child("project").Str("name")
	}
	if t.TicketID == "" {
		t.TicketID = v.Child("ticket").Str("id")
	}
	return t
}

// Tasks decodes a task list from either a bare array or the usual
// {"tasks": [...]} envelope.
func Tasks(raw any) []domain.Task {
	items := listPayload(raw, "tasks")
	out := make([]domain.Task, 0, len(items))
	for _, item := range items {
		out = append(out, Task(map[string]any(item)))
	}
	return out
}

func Ticket(raw any) domain.Ticket {
	v := AsValue(raw)
	t := domain.Ticket{
		ID:        v.Str("id", "ticket_id"),
		Title:     v.Str("title"),
		Status:    v.Str("status"),
		ProjectID: v.Str("project_id"),
	}
	for _, task := range v.List("tasks") {
		t.Tasks = append(t.Tasks, Task(map[string]any(task)))
	}
	return t
}

// Project decodes a project, tolerating the legacy "clients" key for
// the embedded client object.
func Project(raw any) domain.Project {
	v := AsValue(raw)
	p := domain.Project{
		ID:          v.Str("id", "project_id"),
		Name:        v.Str("name", "project_name"),
		Status:      v.Str("status"),
		Plan:        v.Str("plan", "subscription_plan"),
		OpenTickets: v.Int("open_tickets_count", "open_tickets"),
		Websites:    v.Strings("websites", "social_links"),
		CreatedAt:   v.TimeOrEmpty("created_at"),
	}
	if v.Has("client", "clients") {
		c := v.Child("client", "clients")
		p.Client = &domain.Client{
			ID:       c.Str("id"),
			FullName: c.Str("full_name", "name"),
			Email:    c.Str("email"),
			Company:  c.Str("company"),
		}
	}
	for _, ticket := range v.List("tickets") {
		p.Tickets = append(p.Tickets, Ticket(map[string]any(ticket)))
	}
	if p.OpenTickets == 0 {
		for _, t := range p.Tickets {
			if t.Status != "closed" && t.Status != domain.StatusCompleted {
				p.OpenTickets++
			}
		}
	}
	return p
}

// Projects decodes a project list from a bare array or a
// {"projects": [...]} envelope.
func Projects(raw any) []domain.Project {
	items := listPayload(raw, "projects")
	out := make([]domain.Project, 0, len(items))
	for _, item := range items {
		out = append(out, Project(map[string]any(item)))
	}
	return out
}

// TimerSession decodes the dedicated active-timer payload, unwrapping
// the {"active_timer": {...}} envelope when present.
func TimerSession(raw any) domain.TimerSession {
	v := AsValue(raw)
	if inner := v.Child("active_timer"); len(inner) > 0 {
		v = inner
	}
	state := domain.TimerRunning
	if v.Bool("is_paused", "paused") || v.Str("status") == string(domain.TimerPaused) {
		state = domain.TimerPaused
	}
	return domain.TimerSession{
		TaskID:     v.Str("task_id", "id"),
		TaskAction: v.Str("task_action", "task_title", "action"),
		OwnerID:    v.Str("staff_id", "owner_id"),
		State:      state,
		StartedAt:  v.Time("started_at", "start_time"),
	}
}

func ActiveTimer(raw any) domain.ActiveTimer {
	v := AsValue(raw)
	return domain.ActiveTimer{
		TaskID:     v.Str("task_id", "id"),
		TaskAction: v.Str("task_action", "task_title", "action"),
		StaffName:  v.Str("staff_name", "staff"),
		StartedAt:  v.TimeOrEmpty("started_at", "start_time"),
		Paused:     v.Bool("is_paused", "paused"),
	}
}

// ActiveTimers decodes the client transparency list into a map keyed
// by task id; entries without a task id are dropped.
func ActiveTimers(raw any) map[string]domain.ActiveTimer {
	out := map[string]domain.ActiveTimer{}
	for _, item := range listPayload(raw, "active_timers") {
		timer := ActiveTimer(map[string]any(item))
		if timer.TaskID != "" {
			out[timer.TaskID] = timer
		}
	}
	return out
}

func TimeLog(raw any) domain.TimeLog {
	v := AsValue(raw)
	return domain.TimeLog{
		ID:        v.Str("id"),
		TaskID:    v.Str("task_id"),
		StartedAt: v.TimeOrEmpty("started_at", "start_time"),
		EndedAt:   v.TimeOrEmpty("ended_at", "end_time"),
		Minutes:   v.Int("minutes", "duration_minutes"),
		Note:      v.Str("note", "notes"),
	}
}

func TimeLogs(raw any) []domain.TimeLog {
	items := listPayload(raw, "time_logs")
	out := make([]domain.TimeLog, 0, len(items))
	for _, item := range items {
		out = append(out, TimeLog(map[string]any(item)))
	}
	return out
}

func listPayload(raw any, envelopeKey string) []Value {
	if arr, ok := raw.([]any); ok {
		out := make([]Value, 0, len(arr))
		for _, item := range arr {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	}
	return AsValue(raw).List(envelopeKey)
}

package domain

import "time"

type Team struct {
	ID   string
	Key  string
	Name string
}

type Initiative struct {
	ID     string
	Name   string
	SlugID string
}

type Project struct {
	ID          string
	Name        string
	Initiatives []Initiative
}

type Cycle struct {
	ID       string
	Name     string
	Number   int
	StartsAt *time.Time
	EndsAt   *time.Time
}

type State struct {
	Name string
	Type string // backlog, triage, unstarted, started, completed, canceled
}

type Issue struct {
	ID          string
	Identifier  string
	Title       string
	Description string
	URL         string
	Estimate    *float64
	Assignee    string // display name, empty when unassigned
	State       State
	CompletedAt *time.Time
	UpdatedAt   *time.Time
	Cycle       *Cycle
	Project     *Project
}

// ChangeEntry is one immutable history record for an issue. Only timestamp
// order is meaningful; ties keep arrival order.
type ChangeEntry struct {
	At    *time.Time
	Actor string

	FromAssignee *string
	ToAssignee   *string
	FromState    *string
	ToState      *string
	FromTitle    *string
	ToTitle      *string
	FromPriority *float64
	ToPriority   *float64
	FromEstimate *float64
	ToEstimate   *float64
	FromDueDate  *string
	ToDueDate    *string
	FromCycle    *string
	ToCycle      *string
	FromProject  *string
	ToProject    *string
	FromParent   *string
	ToParent     *string
	FromTeam     *string
	ToTeam       *string

	AddedLabels   []string
	RemovedLabels []string

	DescriptionUpdated bool
	Trashed            bool
	AutoArchived       bool
	AutoClosed         bool
}

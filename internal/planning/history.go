package planning

import (
	"sort"
	"time"

	"github.com/ZaphyrRobin/linearToExcel/internal/domain"
)

// Unassigned is the display value for an issue with no assignee.
const Unassigned = "Unassigned"

// AssigneeAsOf replays an issue's change log to recover who was assigned at
// target. Entries with no usable timestamp are skipped; ties keep arrival
// order. An empty log falls back to the issue's present-day assignee.
// The input slice is never mutated.
func AssigneeAsOf(issue domain.Issue, entries []domain.ChangeEntry, target time.Time) string {
	if len(entries) == 0 {
		if issue.Assignee != "" { return issue.Assignee }
		return Unassigned
	}
	ordered := make([]domain.ChangeEntry, 0, len(entries))
	for _, e := range entries {
		if e.At == nil || e.At.IsZero() { continue }
		ordered = append(ordered, e)
	}
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].At.Before(*ordered[j].At) })

	current := Unassigned
	for _, e := range ordered {
		if e.At.After(target) { break }
		switch {
		case e.ToAssignee != nil && *e.ToAssignee != "":
			current = *e.ToAssignee
		case e.FromAssignee != nil && e.ToAssignee == nil:
			current = Unassigned
		}
	}
	return current
}

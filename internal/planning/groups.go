package planning

import (
	"sort"

	"github.com/ZaphyrRobin/linearToExcel/internal/domain"
)

const (
	NoInitiative = "No Initiative"
	NoProject    = "No Project"
)

// IssueGroup is one (initiative, project) bucket. Issues keep fetch order.
type IssueGroup struct {
	Initiative string
	Project    string
	Issues     []domain.Issue
}

// GroupIssues buckets issues by (initiative, project) and returns the groups
// sorted lexicographically by that key, which fixes the visual row order.
// Only the first listed initiative of a project counts.
func GroupIssues(issues []domain.Issue) []IssueGroup {
	type key struct{ initiative, project string }
	buckets := map[key][]domain.Issue{}
	for _, is := range issues {
		k := key{NoInitiative, NoProject}
		if is.Project != nil {
			if is.Project.Name != "" { k.project = is.Project.Name }
			if len(is.Project.Initiatives) > 0 && is.Project.Initiatives[0].Name != "" {
				k.initiative = is.Project.Initiatives[0].Name
			}
		}
		buckets[k] = append(buckets[k], is)
	}
	keys := make([]key, 0, len(buckets))
	for k := range buckets { keys = append(keys, k) }
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].initiative != keys[j].initiative { return keys[i].initiative < keys[j].initiative }
		return keys[i].project < keys[j].project
	})
	out := make([]IssueGroup, 0, len(keys))
	for _, k := range keys {
		out = append(out, IssueGroup{Initiative: k.initiative, Project: k.project, Issues: buckets[k]})
	}
	return out
}

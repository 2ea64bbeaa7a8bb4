package planning

import (
	"testing"

	"github.com/ZaphyrRobin/linearToExcel/internal/domain"
)

func proj(name string, initiatives ...string) *domain.Project {
	p := &domain.Project{Name: name}
	for _, in := range initiatives {
		p.Initiatives = append(p.Initiatives, domain.Initiative{Name: in})
	}
	return p
}

func TestGroupIssues_DefaultsAndOrder(t *testing.T) {
	issues := []domain.Issue{
		{ID: "1", Project: proj("Zeta", "Beta Init")},
		{ID: "2"},
		{ID: "3", Project: proj("Alpha", "Beta Init")},
		{ID: "4", Project: proj("Zeta", "Beta Init")},
		{ID: "5", Project: proj("Mu", "Alpha Init", "Ignored Second")},
	}
	groups := GroupIssues(issues)
	wantKeys := [][2]string{
		{"Alpha Init", "Mu"},
		{"Beta Init", "Alpha"},
		{"Beta Init", "Zeta"},
		{NoInitiative, NoProject},
	}
	if len(groups) != len(wantKeys) { t.Fatalf("got %d groups, want %d", len(groups), len(wantKeys)) }
	for i, g := range groups {
		if g.Initiative != wantKeys[i][0] || g.Project != wantKeys[i][1] {
			t.Fatalf("group %d = (%q, %q), want (%q, %q)", i, g.Initiative, g.Project, wantKeys[i][0], wantKeys[i][1])
		}
	}
	// Fetch order preserved within a group.
	zeta := groups[2]
	if len(zeta.Issues) != 2 || zeta.Issues[0].ID != "1" || zeta.Issues[1].ID != "4" {
		t.Fatalf("Zeta group out of order: %+v", zeta.Issues)
	}
}

func TestGroupIssues_ProjectWithoutInitiative(t *testing.T) {
	issues := []domain.Issue{{ID: "1", Project: proj("Solo")}}
	groups := GroupIssues(issues)
	if len(groups) != 1 { t.Fatalf("got %d groups", len(groups)) }
	if groups[0].Initiative != NoInitiative || groups[0].Project != "Solo" {
		t.Fatalf("got (%q, %q)", groups[0].Initiative, groups[0].Project)
	}
}

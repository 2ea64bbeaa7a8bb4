package planning

import (
	"sort"
	"strings"

	"github.com/ZaphyrRobin/linearToExcel/internal/domain"
)

// NormalizeName converts email-style identities to display names:
// "john.doe@company.com" -> "John Doe" (or "John" with firstOnly).
// Non-email input passes through, empty input is returned unchanged.
func NormalizeName(raw string, firstOnly bool) string {
	if raw == "" { return raw }
	name := raw
	if i := strings.Index(name, "@"); i >= 0 {
		tokens := strings.Split(name[:i], ".")
		for j, tok := range tokens {
			tokens[j] = capitalize(tok)
		}
		name = strings.Join(tokens, " ")
	}
	if firstOnly {
		fields := strings.Fields(name)
		if len(fields) > 0 { return fields[0] }
	}
	return name
}

func capitalize(s string) string {
	if s == "" { return s }
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

// UniqueAssignees returns the sorted set of first-name-normalized assignees.
func UniqueAssignees(issues []domain.Issue) []string {
	seen := map[string]struct{}{}
	for _, is := range issues {
		if is.Assignee == "" { continue }
		seen[NormalizeName(is.Assignee, true)] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for n := range seen { out = append(out, n) }
	sort.Strings(out)
	return out
}

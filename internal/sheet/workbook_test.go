package sheet

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ZaphyrRobin/linearToExcel/internal/domain"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

func fixedNow() time.Time { return date(2025, time.February, 14) }

func newTestWorkbook() *Workbook {
	w := NewWorkbook(zerolog.Nop())
	w.now = fixedNow
	return w
}

func openWorkbook(t *testing.T, path string) *excelize.File {
	t.Helper()
	f, err := excelize.OpenFile(path)
	if err != nil { t.Fatal(err) }
	t.Cleanup(func() { f.Close() })
	return f
}

func baseInput(start time.Time, issues ...domain.Issue) BuildInput {
	return BuildInput{TeamName: "Core", Quarter: "Q1 2025", Issues: issues, Start: start, Weeks: 4}
}

func TestWorkbook_Create(t *testing.T) {
	start := date(2025, time.January, 6)
	path := filepath.Join(t.TempDir(), "out.xlsx")
	if err := newTestWorkbook().Create(path, baseInput(start)); err != nil { t.Fatal(err) }

	f := openWorkbook(t, path)
	sheets := f.GetSheetList()
	if len(sheets) != 1 || sheets[0] != "14022025" {
		t.Fatalf("sheets = %v, want [14022025]", sheets)
	}
	v, err := f.GetCellValue("14022025", cellName(colInitiative, titleRow))
	if err != nil { t.Fatal(err) }
	if v != "Core - Q1 2025 Planning" {
		t.Fatalf("title = %q", v)
	}
}

func TestWorkbook_AppendAddsTab(t *testing.T) {
	start := date(2025, time.January, 6)
	path := filepath.Join(t.TempDir(), "out.xlsx")
	w := newTestWorkbook()
	if err := w.Create(path, baseInput(start)); err != nil { t.Fatal(err) }
	if err := w.Append(path, baseInput(start)); err != nil { t.Fatal(err) }

	f := openWorkbook(t, path)
	sheets := f.GetSheetList()
	if len(sheets) != 2 {
		t.Fatalf("sheets = %v, want two tabs", sheets)
	}
	if sheets[1] != "14022025 (2)" {
		t.Fatalf("appended tab = %q, want dedupe suffix", sheets[1])
	}
}

func TestWorkbook_OverwriteMergesManualEdits(t *testing.T) {
	start := date(2025, time.January, 6)
	path := filepath.Join(t.TempDir(), "out.xlsx")
	w := newTestWorkbook()

	issue := domain.Issue{
		ID: "a", Title: "Item A", URL: "https://linear.app/a",
		Estimate: floatp(5), State: domain.State{Type: "backlog"},
	}
	if err := w.Create(path, baseInput(start, issue)); err != nil { t.Fatal(err) }

	// Hand edits on the first tab: an assignee and a placement.
	f := openWorkbook(t, path)
	sheet := f.GetSheetName(0)
	headerRow := firstCapacityRow + headerSpacing
	row := headerRow + 1
	if err := f.SetCellValue(sheet, cellName(colAssignee, row), "Manual"); err != nil { t.Fatal(err) }
	if err := f.SetCellValue(sheet, cellName(colFirstWeek+1, row), 4.0); err != nil { t.Fatal(err) }
	if err := f.Save(); err != nil { t.Fatal(err) }

	if err := w.Overwrite(path, baseInput(start, issue)); err != nil { t.Fatal(err) }

	f2 := openWorkbook(t, path)
	sheets := f2.GetSheetList()
	if len(sheets) != 1 || sheets[0] != sheet {
		t.Fatalf("sheets after overwrite = %v, want [%s]", sheets, sheet)
	}
	// One carried assignee now drives one capacity row, shifting the grid down.
	newHeader := firstCapacityRow + 1 + headerSpacing
	newRow := newHeader + 1
	got, err := f2.GetCellValue(sheet, cellName(colAssignee, newRow))
	if err != nil { t.Fatal(err) }
	if got != "Manual" {
		t.Fatalf("carried assignee = %q, want Manual", got)
	}
	got, err = f2.GetCellValue(sheet, cellName(colFirstWeek+1, newRow))
	if err != nil { t.Fatal(err) }
	if got != "4" {
		t.Fatalf("carried placement = %q, want 4", got)
	}
}

func TestWorkbook_RefreshAddsMergedTab(t *testing.T) {
	start := date(2025, time.January, 6)
	path := filepath.Join(t.TempDir(), "out.xlsx")
	w := newTestWorkbook()
	issue := domain.Issue{
		ID: "a", Title: "Item A", URL: "https://linear.app/a",
		Estimate: floatp(2), Assignee: "alice@co.com",
		State: domain.State{Type: "started"},
		Cycle: &domain.Cycle{ID: "c", StartsAt: timep(start)},
	}
	if err := w.Create(path, baseInput(start, issue)); err != nil { t.Fatal(err) }
	if err := w.Refresh(path, baseInput(start, issue)); err != nil { t.Fatal(err) }

	f := openWorkbook(t, path)
	if n := len(f.GetSheetList()); n != 2 {
		t.Fatalf("sheet count = %d, want 2 (history kept)", n)
	}
}

func TestWorkbook_ByCyclesBoundaryFiltering(t *testing.T) {
	start := date(2025, time.January, 6)
	path := filepath.Join(t.TempDir(), "out.xlsx")
	c1 := domain.Cycle{ID: "c1", Name: "Cycle 1", Number: 1, StartsAt: timep(start)}
	c2 := domain.Cycle{ID: "c2", Name: "Cycle 2", Number: 2, StartsAt: timep(start.AddDate(0, 0, 14))}
	issues := []domain.Issue{
		{ID: "a", Title: "A", URL: "u-a", Estimate: floatp(1), Assignee: "Alice", Cycle: &c1},
		{ID: "b", Title: "B", URL: "u-b", Estimate: floatp(2), Assignee: "Bob", Cycle: &c2},
	}
	if err := newTestWorkbook().ByCycles(path, baseInput(start, issues...)); err != nil { t.Fatal(err) }

	f := openWorkbook(t, path)
	sheets := f.GetSheetList()
	if len(sheets) != 2 || sheets[0] != "Cycle 1" || sheets[1] != "Cycle 2" {
		t.Fatalf("sheets = %v, want [Cycle 1, Cycle 2]", sheets)
	}
	headerRow := firstCapacityRow + 2 + headerSpacing
	// Tab 1: only A's event is on or before cycle 1's start.
	v, err := f.GetCellValue("Cycle 1", cellName(colFirstWeek+2, headerRow+2))
	if err != nil { t.Fatal(err) }
	if v != "" {
		t.Fatalf("B placed on Cycle 1 tab: %q", v)
	}
	v, err = f.GetCellValue("Cycle 1", cellName(colFirstWeek, headerRow+1))
	if err != nil { t.Fatal(err) }
	if v != "1" {
		t.Fatalf("A not placed on Cycle 1 tab: %q", v)
	}
	// Tab 2: both are in.
	v, err = f.GetCellValue("Cycle 2", cellName(colFirstWeek+2, headerRow+2))
	if err != nil { t.Fatal(err) }
	if v != "2" {
		t.Fatalf("B not placed on Cycle 2 tab: %q", v)
	}
}

func TestWorkbook_ByCyclesStartlessCyclePlacesAll(t *testing.T) {
	start := date(2025, time.January, 6)
	path := filepath.Join(t.TempDir(), "out.xlsx")
	// No StartsAt on the cycle: the tab has no boundary and keeps every
	// placement instead of dropping them all.
	cy := domain.Cycle{ID: "c1", Name: "Unscheduled", Number: 1}
	issue := domain.Issue{
		ID: "a", Title: "A", URL: "u-a", Estimate: floatp(2), Assignee: "Alice",
		State: domain.State{Type: "started"}, UpdatedAt: timep(start.AddDate(0, 0, 7)),
		Cycle: &cy,
	}
	if err := newTestWorkbook().ByCycles(path, baseInput(start, issue)); err != nil { t.Fatal(err) }

	f := openWorkbook(t, path)
	headerRow := firstCapacityRow + 1 + headerSpacing
	v, err := f.GetCellValue("Unscheduled", cellName(colFirstWeek+1, headerRow+1))
	if err != nil { t.Fatal(err) }
	if v != "2" {
		t.Fatalf("placement on start-less cycle tab = %q, want 2", v)
	}
}

func TestWorkbook_ByCyclesFallsBackWithoutCycles(t *testing.T) {
	start := date(2025, time.January, 6)
	path := filepath.Join(t.TempDir(), "out.xlsx")
	issue := domain.Issue{ID: "a", Title: "A", URL: "u", State: domain.State{Type: "backlog"}}
	if err := newTestWorkbook().ByCycles(path, baseInput(start, issue)); err != nil { t.Fatal(err) }
	f := openWorkbook(t, path)
	if n := len(f.GetSheetList()); n != 1 {
		t.Fatalf("sheet count = %d, want single fallback tab", n)
	}
}

func TestWorkbook_ByWeeksHistoricalAssignees(t *testing.T) {
	start := date(2025, time.January, 6)
	path := filepath.Join(t.TempDir(), "out.xlsx")
	week2 := start.AddDate(0, 0, 7)
	bob := "bob@co.com"
	issue := domain.Issue{
		ID: "a", Title: "A", URL: "u", Estimate: floatp(3), Assignee: bob,
		State: domain.State{Type: "started"},
		Cycle: &domain.Cycle{ID: "c", StartsAt: timep(start)},
	}
	histories := map[string][]domain.ChangeEntry{
		"a": {{At: timep(week2), ToAssignee: &bob}},
	}
	in := baseInput(start, issue)
	in.Weeks = 2
	in.Histories = histories
	if err := newTestWorkbook().ByWeeks(path, in); err != nil { t.Fatal(err) }

	f := openWorkbook(t, path)
	sheets := f.GetSheetList()
	if len(sheets) != 2 || sheets[0] != "Week 1 01-06" || sheets[1] != "Week 2 01-13" {
		t.Fatalf("sheets = %v", sheets)
	}
	// Week 1 ends before the assignment: no effective assignee, no placement.
	headerRow := firstCapacityRow + headerSpacing
	v, err := f.GetCellValue(sheets[0], cellName(colAssignee, headerRow+1))
	if err != nil { t.Fatal(err) }
	if v != "" {
		t.Fatalf("week 1 assignee = %q, want empty before the assignment", v)
	}
	// Week 2 sees the assignment and keeps the week-1 placement.
	headerRow2 := firstCapacityRow + 1 + headerSpacing
	v, err = f.GetCellValue(sheets[1], cellName(colAssignee, headerRow2+1))
	if err != nil { t.Fatal(err) }
	if v != "Bob" {
		t.Fatalf("week 2 assignee = %q, want Bob", v)
	}
	v, err = f.GetCellValue(sheets[1], cellName(colFirstWeek, headerRow2+1))
	if err != nil { t.Fatal(err) }
	if v != "3" {
		t.Fatalf("week 2 placement = %q, want 3", v)
	}
}

func TestSanitizeSheetName(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Cycle [1]: A/B?", "Cycle 1 AB"},
		{"", "Sheet"},
		{"0123456789012345678901234567890123", "0123456789012345678901234567890"},
		// The cap counts characters; a byte cut would split the 16th rune.
		{strings.Repeat("é", 34), strings.Repeat("é", 31)},
	}
	for _, c := range cases {
		if got := sanitizeSheetName(c.in); got != c.want {
			t.Fatalf("sanitizeSheetName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestDedupeSheetName(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName(f.GetSheetName(0), "Plan"); err != nil { t.Fatal(err) }
	if got := dedupeSheetName(f, "Plan"); got != "Plan (2)" {
		t.Fatalf("dedupe = %q, want Plan (2)", got)
	}
	if got := dedupeSheetName(f, "Other"); got != "Other" {
		t.Fatalf("dedupe = %q, want Other", got)
	}

	// A multibyte name at the cap trims on a rune boundary to fit the suffix.
	long := strings.Repeat("é", 31)
	if _, err := f.NewSheet(long); err != nil { t.Fatal(err) }
	want := strings.Repeat("é", 27) + " (2)"
	if got := dedupeSheetName(f, long); got != want {
		t.Fatalf("dedupe = %q, want %q", got, want)
	}
}

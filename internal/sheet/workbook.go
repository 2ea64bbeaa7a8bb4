/* Copyright (c) 2025 ZaphyrRobin
 * SPDX-License-Identifier: BSD-3-Clause */
package sheet

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ZaphyrRobin/linearToExcel/internal/domain"
	"github.com/ZaphyrRobin/linearToExcel/internal/planning"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

// Workbook drives sheet creation across the output modes: a single tab, a
// reconciled rewrite, appended tabs, one tab per cycle, one tab per week.
type Workbook struct {
	log zerolog.Logger
	now func() time.Time
}

func NewWorkbook(log zerolog.Logger) *Workbook {
	return &Workbook{log: log, now: time.Now}
}

// BuildInput is the common input of every output mode.
type BuildInput struct {
	TeamName  string
	Quarter   string
	Issues    []domain.Issue
	Start     time.Time
	Weeks     int
	Histories map[string][]domain.ChangeEntry // issue ID -> change log, by-week mode
}

func (w *Workbook) defaultSheetName() string {
	return w.now().Format("02012006")
}

// Create writes a brand-new workbook with one planning tab.
func (w *Workbook) Create(path string, in BuildInput) error {
	f := excelize.NewFile()
	defer f.Close()
	name := sanitizeSheetName(w.defaultSheetName())
	if err := f.SetSheetName(f.GetSheetName(0), name); err != nil { return err }
	st, err := newStyles(f)
	if err != nil { return err }
	if err := populate(f, name, st, populateInput{
		TeamName: in.TeamName, Quarter: in.Quarter, Issues: in.Issues,
		Start: in.Start, Weeks: in.Weeks,
	}); err != nil {
		return err
	}
	if err := f.SaveAs(path); err != nil { return err }
	w.log.Info().Str("path", path).Str("sheet", name).Int("issues", len(in.Issues)).Msg("workbook created")
	return nil
}

// Append adds a fresh tab to an existing workbook, no reconciliation.
func (w *Workbook) Append(path string, in BuildInput) error {
	f, err := excelize.OpenFile(path)
	if err != nil { return fmt.Errorf("open %s: %w", path, err) }
	defer f.Close()
	name := dedupeSheetName(f, sanitizeSheetName(w.defaultSheetName()))
	idx, err := f.NewSheet(name)
	if err != nil { return err }
	st, err := newStyles(f)
	if err != nil { return err }
	if err := populate(f, name, st, populateInput{
		TeamName: in.TeamName, Quarter: in.Quarter, Issues: in.Issues,
		Start: in.Start, Weeks: in.Weeks,
	}); err != nil {
		return err
	}
	f.SetActiveSheet(idx)
	if err := f.Save(); err != nil { return err }
	w.log.Info().Str("path", path).Str("sheet", name).Msg("tab appended")
	return nil
}

// Overwrite rebuilds the first tab of an existing workbook in place, merging
// freshly fetched data with whatever manual edits the old grid held.
func (w *Workbook) Overwrite(path string, in BuildInput) error {
	f, err := excelize.OpenFile(path)
	if err != nil { return fmt.Errorf("open %s: %w", path, err) }
	defer f.Close()
	target := f.GetSheetName(0)
	rec := reconcile(f, target, in.Start, in.Weeks, w.log)

	// Rebuild on a scratch tab so stale cells cannot leak through.
	const scratch = "__rebuild"
	if _, err := f.NewSheet(scratch); err != nil { return err }
	if err := f.DeleteSheet(target); err != nil { return err }
	if err := f.SetSheetName(scratch, target); err != nil { return err }

	st, err := newStyles(f)
	if err != nil { return err }
	if err := populate(f, target, st, populateInput{
		TeamName: in.TeamName, Quarter: in.Quarter, Issues: in.Issues,
		Start: in.Start, Weeks: in.Weeks, Reconciled: rec,
	}); err != nil {
		return err
	}
	if err := f.Save(); err != nil { return err }
	w.log.Info().Str("path", path).Str("sheet", target).
		Int("carried_items", len(rec.Capacity)).Msg("workbook overwritten")
	return nil
}

// Refresh reconciles the most recent tab and writes the merged result to a
// new tab, leaving history in place.
func (w *Workbook) Refresh(path string, in BuildInput) error {
	f, err := excelize.OpenFile(path)
	if err != nil { return fmt.Errorf("open %s: %w", path, err) }
	defer f.Close()
	sheets := f.GetSheetList()
	source := sheets[len(sheets)-1]
	rec := reconcile(f, source, in.Start, in.Weeks, w.log)

	name := dedupeSheetName(f, sanitizeSheetName(w.defaultSheetName()))
	idx, err := f.NewSheet(name)
	if err != nil { return err }
	st, err := newStyles(f)
	if err != nil { return err }
	if err := populate(f, name, st, populateInput{
		TeamName: in.TeamName, Quarter: in.Quarter, Issues: in.Issues,
		Start: in.Start, Weeks: in.Weeks, Reconciled: rec,
	}); err != nil {
		return err
	}
	f.SetActiveSheet(idx)
	if err := f.Save(); err != nil { return err }
	w.log.Info().Str("path", path).Str("source", source).Str("sheet", name).Msg("refreshed into new tab")
	return nil
}

// ByCycles writes one tab per distinct delivery cycle. Every tab lists all
// issues but places capacity only for events on or before its cycle start.
func (w *Workbook) ByCycles(path string, in BuildInput) error {
	cycles := distinctCycles(in.Issues)
	if len(cycles) == 0 {
		w.log.Warn().Msg("no cycles found, falling back to a single tab")
		return w.Create(path, in)
	}
	f := excelize.NewFile()
	defer f.Close()
	st := styleSet{}
	for i, cy := range cycles {
		name := cy.Name
		if name == "" { name = fmt.Sprintf("Cycle %d", cy.Number) }
		name = dedupeSheetName(f, sanitizeSheetName(name))
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), name); err != nil { return err }
			var err error
			if st, err = newStyles(f); err != nil { return err }
		} else {
			if _, err := f.NewSheet(name); err != nil { return err }
		}
		// A cycle without a start date gives no boundary to filter on; its
		// tab places everything rather than nothing.
		policy := PlacementPolicy{Kind: PlaceAll}
		if cy.StartsAt != nil {
			policy = PlacementPolicy{Kind: PlaceCycleBoundary, Boundary: *cy.StartsAt}
		}
		if err := populate(f, name, st, populateInput{
			TeamName: in.TeamName, Quarter: in.Quarter, Issues: in.Issues,
			Start: in.Start, Weeks: in.Weeks,
			Policy: policy,
		}); err != nil {
			return err
		}
	}
	if err := f.SaveAs(path); err != nil { return err }
	w.log.Info().Str("path", path).Int("cycles", len(cycles)).Msg("workbook created by cycles")
	return nil
}

// ByWeeks writes one tab per calendar week with capacity accumulated up to
// that week; assignees resolve historically when change logs are supplied.
func (w *Workbook) ByWeeks(path string, in BuildInput) error {
	weekDates := planning.WeekStartDates(in.Start, in.Weeks)
	if len(weekDates) == 0 { return fmt.Errorf("by-weeks: empty window") }
	f := excelize.NewFile()
	defer f.Close()
	st := styleSet{}
	for i, d := range weekDates {
		name := dedupeSheetName(f, sanitizeSheetName(fmt.Sprintf("Week %d %s", i+1, d.Format("01-02"))))
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), name); err != nil { return err }
			var err error
			if st, err = newStyles(f); err != nil { return err }
		} else {
			if _, err := f.NewSheet(name); err != nil { return err }
		}
		// End of the half-open week interval [d, d+7).
		boundary := d.AddDate(0, 0, 7).Add(-time.Nanosecond)
		if err := populate(f, name, st, populateInput{
			TeamName: in.TeamName, Quarter: in.Quarter, Issues: in.Issues,
			Start: in.Start, Weeks: in.Weeks,
			Policy: PlacementPolicy{
				Kind:      PlaceWeekEndBoundary,
				Boundary:  boundary,
				Week:      i,
				Histories: in.Histories,
			},
		}); err != nil {
			return err
		}
	}
	if err := f.SaveAs(path); err != nil { return err }
	w.log.Info().Str("path", path).Int("weeks", in.Weeks).Msg("workbook created by weeks")
	return nil
}

func distinctCycles(issues []domain.Issue) []domain.Cycle {
	byID := map[string]domain.Cycle{}
	for _, is := range issues {
		if is.Cycle == nil { continue }
		byID[is.Cycle.ID] = *is.Cycle
	}
	out := make([]domain.Cycle, 0, len(byID))
	for _, c := range byID { out = append(out, c) }
	sort.Slice(out, func(i, j int) bool {
		if out[i].Number != out[j].Number { return out[i].Number < out[j].Number }
		ti, tj := out[i].StartsAt, out[j].StartsAt
		if ti != nil && tj != nil { return ti.Before(*tj) }
		return tj != nil
	})
	return out
}

// sanitizeSheetName strips characters xlsx rejects and caps the tab name at
// the 31-character limit. The limit counts characters, so the cut must land
// on a rune boundary (cycle names are arbitrary text).
func sanitizeSheetName(name string) string {
	repl := strings.NewReplacer("[", "", "]", "", ":", "", "*", "", "?", "", "/", "", "\\", "", "'", "")
	name = strings.TrimSpace(repl.Replace(name))
	if name == "" { name = "Sheet" }
	if r := []rune(name); len(r) > 31 { name = string(r[:31]) }
	return name
}

// dedupeSheetName appends a numeric suffix while the name collides with an
// existing tab.
func dedupeSheetName(f *excelize.File, name string) string {
	base := name
	for n := 2; ; n++ {
		idx, err := f.GetSheetIndex(name)
		if err != nil || idx < 0 { return name }
		suffix := fmt.Sprintf(" (%d)", n)
		trimmed := []rune(base)
		if len(trimmed)+len(suffix) > 31 { trimmed = trimmed[:31-len(suffix)] }
		name = string(trimmed) + suffix
	}
}

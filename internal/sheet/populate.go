/* Copyright (c) 2025 ZaphyrRobin
 * SPDX-License-Identifier: BSD-3-Clause */
package sheet

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ZaphyrRobin/linearToExcel/internal/domain"
	"github.com/ZaphyrRobin/linearToExcel/internal/planning"
	"github.com/xuri/excelize/v2"
)

// PlacementKind selects how weekly capacity placements are filtered.
type PlacementKind int

const (
	// PlaceAll places every resolvable event date.
	PlaceAll PlacementKind = iota
	// PlaceCycleBoundary drops placements whose event date falls after the
	// boundary (one sheet per cycle).
	PlaceCycleBoundary
	// PlaceWeekEndBoundary keeps placements accumulated up to a week index
	// and resolves assignees historically at the boundary.
	PlaceWeekEndBoundary
)

// PlacementPolicy is the single knob that replaced the per-mode generator
// variants: one populate routine, parameterized.
type PlacementPolicy struct {
	Kind      PlacementKind
	Boundary  time.Time
	Week      int // inclusive week-index cap, PlaceWeekEndBoundary only
	Histories map[string][]domain.ChangeEntry // issue ID -> change log
}

type populateInput struct {
	TeamName   string
	Quarter    string
	Issues     []domain.Issue
	Start      time.Time
	Weeks      int
	Policy     PlacementPolicy
	Reconciled *Reconciled // non-nil on refresh/overwrite
}

type fillKind int

const (
	fillNone fillKind = iota
	fillGreen
	fillNoCycle
	fillCarried
)

type placement struct {
	week  int
	value float64
	fill  fillKind
}

type rowPlan struct {
	issue      domain.Issue
	assignee   string
	placements []placement
}

// planRow resolves the effective assignee and weekly placements for one
// issue under the given policy and merge source.
func planRow(is domain.Issue, in populateInput) rowPlan {
	rp := rowPlan{issue: is, assignee: planning.NormalizeName(is.Assignee, true)}

	if in.Policy.Kind == PlaceWeekEndBoundary && in.Policy.Histories != nil {
		if entries, ok := in.Policy.Histories[is.ID]; ok {
			resolved := planning.AssigneeAsOf(is, entries, in.Policy.Boundary)
			if resolved == planning.Unassigned {
				rp.assignee = ""
			} else {
				rp.assignee = planning.NormalizeName(resolved, true)
			}
		}
	}

	carried := false
	if in.Reconciled != nil && is.Assignee == "" {
		// Source of truth has no assignee: whatever the previous grid says
		// survives, including hand-entered week placements.
		if prev := strings.TrimSpace(in.Reconciled.AssigneeByURL[is.URL]); prev != "" {
			rp.assignee = prev
			carried = true
		}
	}

	if carried {
		for week, v := range in.Reconciled.Capacity[is.URL] {
			if week >= 0 && week < in.Weeks {
				rp.placements = append(rp.placements, placement{week: week, value: v, fill: fillCarried})
			}
		}
		return rp
	}

	// The has-capacity check is estimate != nil, deliberately not != 0: a
	// zero-estimate completed item still shows up for bookkeeping.
	if is.Estimate == nil || rp.assignee == "" { return rp }

	var event *time.Time
	noCycle := false
	if is.Cycle != nil && is.Cycle.StartsAt != nil {
		event = is.Cycle.StartsAt
	} else {
		switch strings.ToLower(is.State.Type) {
		case "backlog", "triage", "canceled", "cancelled":
		default:
			if is.UpdatedAt != nil {
				event = is.UpdatedAt
				noCycle = true
			}
		}
	}
	if event == nil { return rp }
	if in.Policy.Kind == PlaceCycleBoundary && event.After(in.Policy.Boundary) { return rp }

	week, ok := planning.ClampWeekIndex(event, in.Start, in.Weeks)
	if !ok { return rp }
	if in.Policy.Kind == PlaceWeekEndBoundary && week > in.Policy.Week { return rp }

	f := fillNone
	switch {
	case in.Policy.Kind == PlaceWeekEndBoundary && is.CompletedAt != nil && !is.CompletedAt.After(in.Policy.Boundary):
		f = fillGreen
	case in.Reconciled != nil:
		// Fresh, authoritative placement on a refresh.
		f = fillGreen
	case noCycle:
		f = fillNoCycle
	}
	rp.placements = append(rp.placements, placement{week: week, value: *is.Estimate, fill: f})
	return rp
}

func (st styleSet) forFill(f fillKind) int {
	switch f {
	case fillGreen:
		return st.estimate
	case fillNoCycle:
		return st.noCycle
	case fillCarried:
		return st.carried
	}
	return 0
}

// populate writes one fully laid-out planning grid onto sheet.
func populate(f *excelize.File, sheet string, st styleSet, in populateInput) error {
	plans := make([]rowPlan, 0, len(in.Issues))
	planned := map[string]rowPlan{}
	for _, is := range in.Issues {
		rp := planRow(is, in)
		plans = append(plans, rp)
		planned[is.ID] = rp
	}

	// Capacity rows cover every distinct effective assignee.
	seen := map[string]struct{}{}
	assignees := []string{}
	for _, rp := range plans {
		if rp.assignee == "" { continue }
		if _, ok := seen[rp.assignee]; ok { continue }
		seen[rp.assignee] = struct{}{}
		assignees = append(assignees, rp.assignee)
	}
	sort.Strings(assignees)

	// Title
	if err := f.MergeCell(sheet, cellName(colInitiative, titleRow), cellName(colProjects, titleRow)); err != nil {
		return err
	}
	title := fmt.Sprintf("%s - %s Planning", in.TeamName, in.Quarter)
	if err := f.SetCellValue(sheet, cellName(colInitiative, titleRow), title); err != nil { return err }
	if err := f.SetCellStyle(sheet, cellName(colInitiative, titleRow), cellName(colInitiative, titleRow), st.title); err != nil {
		return err
	}

	// Capacity label row: filled lead-in cell, label, week dates, per-week column.
	if err := f.SetCellStyle(sheet, cellName(colTicket, capacityRow), cellName(colTicket, capacityRow), st.capLabel); err != nil {
		return err
	}
	if err := f.SetCellValue(sheet, cellName(colAssignee, capacityRow), capacityLabel); err != nil { return err }
	if err := f.SetCellStyle(sheet, cellName(colAssignee, capacityRow), cellName(colAssignee, capacityRow), st.capLabel); err != nil {
		return err
	}
	weekDates := planning.WeekStartDates(in.Start, in.Weeks)
	for i, d := range weekDates {
		cell := cellName(colFirstWeek+i, capacityRow)
		if err := f.SetCellValue(sheet, cell, d); err != nil { return err }
		if err := f.SetCellStyle(sheet, cell, cell, st.capDate); err != nil { return err }
	}
	perWeekCell := cellName(colFirstWeek+in.Weeks, capacityRow)
	if err := f.SetCellValue(sheet, perWeekCell, capacityWeekLabel); err != nil { return err }
	if err := f.SetCellStyle(sheet, perWeekCell, perWeekCell, st.capLabel); err != nil { return err }

	headerRow := firstCapacityRow + len(assignees) + headerSpacing
	dataStart := headerRow + 1
	estimatedLast := dataStart + len(in.Issues)

	writeSumifs := func(lastRow int) error {
		for idx := range assignees {
			row := firstCapacityRow + idx
			for i := 0; i < in.Weeks; i++ {
				col := colName(colFirstWeek + i)
				formula := fmt.Sprintf("SUMIF($H$%d:$H$%d,$H%d,%s$%d:%s$%d)",
					dataStart, lastRow, row, col, dataStart, col, lastRow)
				if err := f.SetCellFormula(sheet, cellName(colFirstWeek+i, row), formula); err != nil {
					return err
				}
			}
		}
		return nil
	}

	for idx, name := range assignees {
		if err := f.SetCellValue(sheet, cellName(colAssignee, firstCapacityRow+idx), name); err != nil {
			return err
		}
	}
	if err := writeSumifs(estimatedLast); err != nil { return err }

	// Header row: fixed labels plus week dates referencing the capacity row.
	for _, h := range fixedHeaders {
		cell := cellName(h.col, headerRow)
		if err := f.SetCellValue(sheet, cell, h.label); err != nil { return err }
		if err := f.SetCellStyle(sheet, cell, cell, st.header); err != nil { return err }
	}
	for i := 0; i < in.Weeks; i++ {
		cell := cellName(colFirstWeek+i, headerRow)
		if err := f.SetCellFormula(sheet, cell, fmt.Sprintf("%s%d", colName(colFirstWeek+i), capacityRow)); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cell, cell, st.headerDate); err != nil { return err }
	}

	// Data block, grouped with gray separators between initiatives.
	groups := planning.GroupIssues(in.Issues)
	lastCol := colAssignee + in.Weeks
	row := dataStart
	lastInitiative := ""
	first := true

	weekFresh := make([]bool, in.Weeks)
	weekCarried := make([]bool, in.Weeks)

	for _, g := range groups {
		if !first && g.Initiative != lastInitiative {
			if err := f.SetCellStyle(sheet, cellName(colInitiative, row), cellName(lastCol, row), st.separator); err != nil {
				return err
			}
			row++
		}
		first = false
		lastInitiative = g.Initiative

		for _, is := range g.Issues {
			rp := planned[is.ID]
			if err := f.SetCellValue(sheet, cellName(colInitiative, row), g.Initiative); err != nil { return err }
			if err := f.SetCellValue(sheet, cellName(colProjects, row), g.Project); err != nil { return err }
			if err := f.SetCellValue(sheet, cellName(colIssue, row), is.Title); err != nil { return err }

			if is.Estimate != nil {
				cell := cellName(colEstimate, row)
				if err := f.SetCellValue(sheet, cell, *is.Estimate); err != nil { return err }
				if err := f.SetCellStyle(sheet, cell, cell, st.estimate); err != nil { return err }
			}

			// Truncation counts characters, not bytes; a byte cut could
			// split a multibyte rune and write invalid UTF-8 into the cell.
			desc := is.Description
			if utf8.RuneCountInString(desc) > maxDescription {
				desc = string([]rune(desc)[:maxDescription])
			}
			if err := f.SetCellValue(sheet, cellName(colDescription, row), desc); err != nil { return err }

			urlCell := cellName(colTicket, row)
			if err := f.SetCellValue(sheet, urlCell, is.URL); err != nil { return err }
			if err := f.SetCellStyle(sheet, urlCell, urlCell, st.url); err != nil { return err }

			if err := f.SetCellValue(sheet, cellName(colAssignee, row), rp.assignee); err != nil { return err }

			for _, p := range rp.placements {
				cell := cellName(colFirstWeek+p.week, row)
				if err := f.SetCellValue(sheet, cell, p.value); err != nil { return err }
				if sid := st.forFill(p.fill); sid != 0 {
					if err := f.SetCellStyle(sheet, cell, cell, sid); err != nil { return err }
				}
				if p.fill == fillCarried {
					weekCarried[p.week] = true
				} else {
					weekFresh[p.week] = true
				}
			}
			row++
		}
	}

	// Separator rows shifted the true last row; recompute the aggregates.
	actualLast := row - 1
	if err := writeSumifs(actualLast); err != nil { return err }

	// Annotate weeks holding both fresh and carried-over placements.
	if in.Reconciled != nil {
		for i := 0; i < in.Weeks; i++ {
			if !weekFresh[i] || !weekCarried[i] { continue }
			err := f.AddComment(sheet, excelize.Comment{
				Cell:   cellName(colFirstWeek+i, capacityRow),
				Author: "linearToExcel",
				Paragraph: []excelize.RichTextRun{
					{Text: "Mixed column: fresh Linear data and carried-over manual entries."},
				},
			})
			if err != nil { return err }
		}
	}

	for col, width := range columnWidths {
		if err := f.SetColWidth(sheet, col, col, width); err != nil { return err }
	}
	for i := 0; i <= in.Weeks; i++ {
		c := colName(colFirstWeek + i)
		if err := f.SetColWidth(sheet, c, c, 8); err != nil { return err }
	}
	return nil
}

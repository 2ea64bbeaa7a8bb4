/* Copyright (c) 2025 ZaphyrRobin
 * SPDX-License-Identifier: BSD-3-Clause */
package sheet

import (
	"strconv"
	"strings"
	"time"

	"github.com/ZaphyrRobin/linearToExcel/internal/planning"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

// Reconciled is what survives from a previously generated grid: positive
// weekly placements and assignee text, keyed by ticket URL (the one stable
// identity already present as a column value).
type Reconciled struct {
	Capacity      map[string]map[int]float64
	AssigneeByURL map[string]string
	MaxWeek       int // highest week index seen, -1 when none
}

func emptyReconciled() *Reconciled {
	return &Reconciled{
		Capacity:      map[string]map[int]float64{},
		AssigneeByURL: map[string]string{},
		MaxWeek:       -1,
	}
}

// reconcile parses a previously written sheet back into prior placements.
// A sheet with no recognizable header degrades to "no prior data"; a single
// unparseable week-date cell only loses that one column.
func reconcile(f *excelize.File, sheet string, start time.Time, weeks int, log zerolog.Logger) *Reconciled {
	rec := emptyReconciled()
	rows, err := f.GetRows(sheet)
	if err != nil {
		log.Error().Err(err).Str("sheet", sheet).Msg("reconcile: cannot read sheet")
		return rec
	}

	at := func(row []string, col1 int) string {
		// col1 is a 1-based schema column; GetRows is 0-based.
		i := col1 - 1
		if i < 0 || i >= len(row) { return "" }
		return strings.TrimSpace(row[i])
	}

	// Header row: scan for the ticket-column label at either known offset.
	headerRow := -1
	ticketCol := 0
	limit := len(rows)
	if limit > maxHeaderScanRows { limit = maxHeaderScanRows }
	for r := 0; r < limit && headerRow < 0; r++ {
		for _, c := range []int{colTicket, legacyColTicket} {
			if at(rows[r], c) == ticketHeaderLabel {
				headerRow = r
				ticketCol = c
				break
			}
		}
	}
	if headerRow < 0 {
		log.Warn().Str("sheet", sheet).Msg("reconcile: header row not found, treating sheet as empty")
		return rec
	}
	assigneeCol := ticketCol + 1
	firstWeekCol := ticketCol + 2

	// The capacity label row carries the authoritative week-start dates; the
	// data header's week cells are formulas with no cached values.
	colToWeek := map[int]int{}
	capRow := -1
	for r := 0; r < limit && capRow < 0; r++ {
		for c := colTicket; c <= colAssignee+1; c++ {
			if at(rows[r], c) == capacityLabel {
				capRow = r
				break
			}
		}
	}
	if capRow >= 0 {
		row := rows[capRow]
		for c := firstWeekCol; c-1 < len(row); c++ {
			raw := at(row, c)
			if raw == capacityWeekLabel { break }
			// A blanked-out date cell loses only its own column.
			if raw == "" { continue }
			d, ok := parseWeekCell(raw, start)
			if !ok {
				log.Warn().Str("cell", raw).Msg("reconcile: skipping unparseable week column")
				continue
			}
			idx, status := planning.WeekIndex(&d, start, weeks)
			if status != planning.WeekOK { continue }
			colToWeek[c] = idx
		}
	} else {
		// No capacity block (or a hand-stripped file): assume the week
		// columns are contiguous from the window start.
		for i := 0; i < weeks; i++ {
			colToWeek[firstWeekCol+i] = i
		}
	}

	for r := headerRow + 1; r < len(rows); r++ {
		row := rows[r]
		url := at(row, ticketCol)
		if url == "" { continue }
		rec.AssigneeByURL[url] = at(row, assigneeCol)
		for c, week := range colToWeek {
			raw := at(row, c)
			if raw == "" { continue }
			v, err := strconv.ParseFloat(raw, 64)
			// Only strictly positive values survive; a recovered zero would
			// resurrect stale placements.
			if err != nil || v <= 0 { continue }
			m := rec.Capacity[url]
			if m == nil {
				m = map[int]float64{}
				rec.Capacity[url] = m
			}
			m[week] = v
			if week > rec.MaxWeek { rec.MaxWeek = week }
		}
	}
	return rec
}

// parseWeekCell parses a week header cell that may be a formatted date with
// or without a year. Yearless values use two passes: the window start's year
// first, then year+1 for columns that crossed a calendar-year boundary.
// Known limitation: windows spanning more than one year boundary stay
// ambiguous; fixing that would change how existing files reconcile.
func parseWeekCell(raw string, start time.Time) (time.Time, bool) {
	withYear := []string{"2006-01-02", "1/2/2006", "1/2/06", "01-02-06", "Jan 2, 2006", "Jan-2-2006", "2 Jan 2006"}
	for _, l := range withYear {
		if t, err := time.Parse(l, raw); err == nil { return t, true }
	}
	yearless := []string{"1/2", "1-2", "Jan 2", "2 Jan"}
	for _, l := range yearless {
		t, err := time.Parse(l, raw)
		if err != nil { continue }
		d := time.Date(start.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		if d.Before(start) {
			d = time.Date(start.Year()+1, t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		}
		return d, true
	}
	return time.Time{}, false
}

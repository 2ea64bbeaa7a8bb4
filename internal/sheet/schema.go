/* Copyright (c) 2025 ZaphyrRobin
 * SPDX-License-Identifier: BSD-3-Clause */

// Package sheet lays planning grids out into xlsx workbooks and reads them
// back for reconciliation.
package sheet

import (
	"github.com/xuri/excelize/v2"
)

// Grid geometry. The sheet stacks three blocks: capacity summary (one row per
// assignee from firstCapacityRow), a header row, and the data block. The
// header row position depends on the assignee count; everything else is fixed.
const (
	colInitiative  = 2
	colProjects    = 3
	colIssue       = 4
	colEstimate    = 5
	colDescription = 6
	colTicket      = 7
	colAssignee    = 8
	colFirstWeek   = 9

	titleRow         = 2
	capacityRow      = 4
	firstCapacityRow = 5
	headerSpacing    = 4

	maxDescription    = 500
	maxHeaderScanRows = 50
)

// An earlier layout carried a "Source" column, shifting the ticket column one
// to the left. The reconciler accepts both offsets.
const legacyColTicket = 6

const (
	ticketHeaderLabel = "Linear Ticket"
	capacityLabel     = "Capacity"
	capacityWeekLabel = "Capacity/week"
)

var fixedHeaders = []struct {
	col   int
	label string
}{
	{colInitiative, "Initiative"},
	{colProjects, "Projects"},
	{colIssue, "Issue"},
	{colEstimate, "Estimate (days)"},
	{colDescription, "Description"},
	{colTicket, ticketHeaderLabel},
	{colAssignee, "Assigned to"},
}

var columnWidths = map[string]float64{
	"B": 30, "C": 35, "D": 50, "E": 15, "F": 50, "G": 40, "H": 15,
}

// Fill colors carried over from the original spreadsheet.
const (
	yellowColor  = "FFF2CC"
	greenColor   = "B7E1CD"
	grayColor    = "D9D9D9"
	orangeColor  = "FCE5CD" // placement without a cycle
	blueColor    = "CFE2F3" // carried over from a previous grid
)

type styleSet struct {
	title      int
	capLabel   int
	capDate    int
	header     int
	headerDate int
	estimate   int // green, has-value marker and authoritative/completed placements
	noCycle    int
	carried    int
	separator  int
	url        int
}

func fill(color string) excelize.Fill {
	return excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1}
}

func thinBorder() []excelize.Border {
	sides := []string{"left", "right", "top", "bottom"}
	out := make([]excelize.Border, 0, len(sides))
	for _, s := range sides {
		out = append(out, excelize.Border{Type: s, Style: 1, Color: "000000"})
	}
	return out
}

func newStyles(f *excelize.File) (styleSet, error) {
	var st styleSet
	var err error
	monthDay := "m/d"

	if st.title, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}}); err != nil {
		return st, err
	}
	if st.capLabel, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}, Fill: fill(yellowColor)}); err != nil {
		return st, err
	}
	if st.capDate, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}, Fill: fill(yellowColor), CustomNumFmt: &monthDay}); err != nil {
		return st, err
	}
	if st.header, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}, Fill: fill(yellowColor), Border: thinBorder()}); err != nil {
		return st, err
	}
	if st.headerDate, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}, Fill: fill(yellowColor), Border: thinBorder(), CustomNumFmt: &monthDay}); err != nil {
		return st, err
	}
	if st.estimate, err = f.NewStyle(&excelize.Style{Fill: fill(greenColor)}); err != nil {
		return st, err
	}
	if st.noCycle, err = f.NewStyle(&excelize.Style{Fill: fill(orangeColor)}); err != nil {
		return st, err
	}
	if st.carried, err = f.NewStyle(&excelize.Style{Fill: fill(blueColor)}); err != nil {
		return st, err
	}
	if st.separator, err = f.NewStyle(&excelize.Style{Fill: fill(grayColor)}); err != nil {
		return st, err
	}
	if st.url, err = f.NewStyle(&excelize.Style{Alignment: &excelize.Alignment{WrapText: true}}); err != nil {
		return st, err
	}
	return st, nil
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

func colName(col int) string {
	name, _ := excelize.ColumnNumberToName(col)
	return name
}

/* Copyright (c) 2025 ZaphyrRobin
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ZaphyrRobin/linearToExcel/internal/adapters/linear"
	"github.com/ZaphyrRobin/linearToExcel/internal/config"
	"github.com/ZaphyrRobin/linearToExcel/internal/domain"
	"github.com/ZaphyrRobin/linearToExcel/internal/planning"
	"github.com/ZaphyrRobin/linearToExcel/internal/sheet"
	"github.com/rs/zerolog"
)

type LinearClient interface {
	Teams(ctx context.Context) ([]domain.Team, error)
	TeamByKey(ctx context.Context, key string) (*domain.Team, error)
	Initiatives(ctx context.Context, includeArchived bool) ([]domain.Initiative, error)
	IssuesForTeam(ctx context.Context, teamID string, initiativeSlugs []string) ([]domain.Issue, error)
	IssueHistory(ctx context.Context, issueID string) ([]domain.ChangeEntry, error)
	IssueByIdentifier(ctx context.Context, identifier string) (*domain.Issue, error)
}

type Service struct {
	cfg    config.Config
	log    zerolog.Logger
	linear LinearClient
	wb     *sheet.Workbook
}

func New(cfg config.Config, log zerolog.Logger, lc LinearClient) *Service {
	return &Service{cfg: cfg, log: log, linear: lc, wb: sheet.NewWorkbook(log)}
}

func (s *Service) ListTeams(ctx context.Context) ([]domain.Team, error) {
	return s.linear.Teams(ctx)
}

func (s *Service) ListInitiatives(ctx context.Context) ([]domain.Initiative, error) {
	return s.linear.Initiatives(ctx, false)
}

// GenerateOptions carries everything run-specific. At most one of InputFile,
// AppendFile, RefreshFile, ByCycles, ByWeeks selects a non-default mode.
type GenerateOptions struct {
	TeamKey         string
	Quarter         string
	Output          string
	StartDate       *time.Time
	Weeks           int
	InitiativeSlugs []string

	InputFile   string // overwrite this file in place
	AppendFile  string // append a fresh tab to this file
	RefreshFile string // add a reconciled tab to this file
	ByCycles    bool
	ByWeeks     bool
}

// Generate fetches a team's issues and writes the planning workbook in the
// selected mode.
func (s *Service) Generate(ctx context.Context, opts GenerateOptions) error {
	team, err := s.linear.TeamByKey(ctx, opts.TeamKey)
	if err != nil {
		if errors.Is(err, linear.ErrTeamNotFound) {
			return fmt.Errorf("team %q not found, use the teams command to list available teams", opts.TeamKey)
		}
		return err
	}

	now := time.Now().UTC()
	quarter := opts.Quarter
	if quarter == "" {
		quarter = fmt.Sprintf("Q%d %d", (int(now.Month())-1)/3+1, now.Year())
	}
	weeks := opts.Weeks
	if weeks <= 0 { weeks = 13 }
	var start time.Time
	if opts.StartDate != nil {
		start = *opts.StartDate
	} else {
		quarterStartMonth := time.Month((int(now.Month())-1)/3*3 + 1)
		start = planning.MondayOf(time.Date(now.Year(), quarterStartMonth, 1, 0, 0, 0, 0, time.UTC))
	}

	s.log.Info().Str("team", team.Name).Str("quarter", quarter).Time("start", start).Int("weeks", weeks).Msg("fetching issues")
	issues, err := s.linear.IssuesForTeam(ctx, team.ID, opts.InitiativeSlugs)
	if err != nil { return err }
	s.log.Info().Int("issues", len(issues)).Strs("assignees", planning.UniqueAssignees(issues)).Msg("issues fetched")

	in := sheet.BuildInput{
		TeamName: team.Name,
		Quarter:  quarter,
		Issues:   issues,
		Start:    start,
		Weeks:    weeks,
	}
	output := opts.Output
	if output == "" {
		output = fmt.Sprintf("%s - %s Planning.xlsx", team.Name, quarter)
	}

	switch {
	case opts.InputFile != "":
		return s.wb.Overwrite(opts.InputFile, in)
	case opts.AppendFile != "":
		return s.wb.Append(opts.AppendFile, in)
	case opts.RefreshFile != "":
		return s.wb.Refresh(opts.RefreshFile, in)
	case opts.ByCycles:
		return s.wb.ByCycles(output, in)
	case opts.ByWeeks:
		in.Histories = s.FetchHistories(ctx, issues)
		return s.wb.ByWeeks(output, in)
	default:
		return s.wb.Create(output, in)
	}
}

// FetchHistories pulls change logs for all issues with a bounded worker
// pool. One issue's failure never aborts the batch; issues with no log
// simply fall back to their present-day assignee downstream.
func (s *Service) FetchHistories(ctx context.Context, issues []domain.Issue) map[string][]domain.ChangeEntry {
	workerCount := s.cfg.WorkersHistory
	if workerCount <= 0 { workerCount = 6 }

	type result struct {
		id      string
		entries []domain.ChangeEntry
		err     error
	}
	jobs := make(chan domain.Issue)
	results := make(chan result)
	var wg sync.WaitGroup
	for w := 0; w < workerCount; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for is := range jobs {
				entries, err := s.linear.IssueHistory(ctx, is.ID)
				results <- result{id: is.ID, entries: entries, err: err}
			}
		}()
	}
	go func() {
		for _, is := range issues { jobs <- is }
		close(jobs)
	}()
	go func() { wg.Wait(); close(results) }()

	out := map[string][]domain.ChangeEntry{}
	for r := range results {
		if r.err != nil {
			s.log.Error().Err(r.err).Str("issue", r.id).Msg("history fetch failed, skipping")
			continue
		}
		out[r.id] = r.entries
	}
	return out
}

// History returns an issue and its chronologically ordered change log.
func (s *Service) History(ctx context.Context, identifier string) (*domain.Issue, []domain.ChangeEntry, error) {
	issue, err := s.linear.IssueByIdentifier(ctx, identifier)
	if err != nil { return nil, nil, err }
	entries, err := s.linear.IssueHistory(ctx, issue.ID)
	if err != nil { return nil, nil, err }
	sort.SliceStable(entries, func(i, j int) bool {
		ti, tj := entries[i].At, entries[j].At
		if ti == nil || tj == nil { return tj != nil }
		return ti.Before(*tj)
	})
	return issue, entries, nil
}

// DescribeChange renders one change-log entry as human-readable delta lines.
func DescribeChange(e domain.ChangeEntry) []string {
	var out []string
	str := func(v *string) string {
		if v == nil || *v == "" { return "(none)" }
		return *v
	}
	num := func(v *float64) string {
		if v == nil { return "(none)" }
		return strconv.FormatFloat(*v, 'f', -1, 64)
	}
	pair := func(label string, from, to string) {
		out = append(out, fmt.Sprintf("%s: %s -> %s", label, from, to))
	}
	if e.FromAssignee != nil || e.ToAssignee != nil {
		pair("assignee", str(e.FromAssignee), str(e.ToAssignee))
	}
	if e.FromState != nil || e.ToState != nil {
		pair("state", str(e.FromState), str(e.ToState))
	}
	if e.FromTitle != nil || e.ToTitle != nil {
		pair("title", str(e.FromTitle), str(e.ToTitle))
	}
	if e.FromPriority != nil || e.ToPriority != nil {
		pair("priority", num(e.FromPriority), num(e.ToPriority))
	}
	if e.FromEstimate != nil || e.ToEstimate != nil {
		pair("estimate", num(e.FromEstimate), num(e.ToEstimate))
	}
	if e.FromDueDate != nil || e.ToDueDate != nil {
		pair("due date", str(e.FromDueDate), str(e.ToDueDate))
	}
	if e.FromCycle != nil || e.ToCycle != nil {
		pair("cycle", str(e.FromCycle), str(e.ToCycle))
	}
	if e.FromProject != nil || e.ToProject != nil {
		pair("project", str(e.FromProject), str(e.ToProject))
	}
	if e.FromParent != nil || e.ToParent != nil {
		pair("parent", str(e.FromParent), str(e.ToParent))
	}
	if e.FromTeam != nil || e.ToTeam != nil {
		pair("team", str(e.FromTeam), str(e.ToTeam))
	}
	if len(e.AddedLabels) > 0 {
		out = append(out, "labels added: "+strings.Join(e.AddedLabels, ", "))
	}
	if len(e.RemovedLabels) > 0 {
		out = append(out, "labels removed: "+strings.Join(e.RemovedLabels, ", "))
	}
	if e.DescriptionUpdated { out = append(out, "description updated") }
	if e.Trashed { out = append(out, "trashed") }
	if e.AutoArchived { out = append(out, "auto-archived") }
	if e.AutoClosed { out = append(out, "auto-closed") }
	return out
}

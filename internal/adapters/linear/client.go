/* Copyright (c) 2025 ZaphyrRobin
 * SPDX-License-Identifier: BSD-3-Clause */
package linear

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ZaphyrRobin/linearToExcel/internal/config"
	"github.com/ZaphyrRobin/linearToExcel/internal/domain"
	"github.com/rs/zerolog"
)

// ErrTeamNotFound is returned when a team key resolves to nothing.
var ErrTeamNotFound = errors.New("linear: team not found")

type Client struct {
	apiURL string
	apiKey string
	http   *http.Client
	log    zerolog.Logger
}

func NewClient(cfg config.Config, log zerolog.Logger) *Client {
	return &Client{
		apiURL: cfg.LinearAPIURL,
		apiKey: cfg.LinearAPIKey,
		http:   &http.Client{Timeout: cfg.HTTPTimeout},
		log:    log,
	}
}

type gqlError struct {
	Message string `json:"message"`
}

type gqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []gqlError      `json:"errors"`
}

// do posts one GraphQL request and decodes the data envelope into out.
// Retries on 429/5xx only; API-reported errors are returned verbatim.
func (c *Client) do(ctx context.Context, query string, variables map[string]any, out any) error {
	if c.apiKey == "" { return errors.New("linear: LINEAR_API_KEY is not set") }
	payload := map[string]any{"query": query}
	if len(variables) > 0 { payload["variables"] = variables }
	body, err := json.Marshal(payload)
	if err != nil { return err }

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
		if err != nil { return err }
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", c.apiKey)
		resp, err := c.http.Do(req)
		if err != nil { lastErr = err } else {
			b, rerr := io.ReadAll(resp.Body)
			resp.Body.Close()
			if rerr != nil { return rerr }
			if resp.StatusCode >= 300 {
				// retry on 429/5xx
				if resp.StatusCode == 429 || resp.StatusCode >= 500 {
					lastErr = fmt.Errorf("linear api status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(b)))
				} else {
					return fmt.Errorf("linear api status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(b)))
				}
			} else {
				var env gqlResponse
				if err := json.Unmarshal(b, &env); err != nil { return err }
				if len(env.Errors) > 0 {
					msgs := make([]string, 0, len(env.Errors))
					for _, e := range env.Errors { msgs = append(msgs, e.Message) }
					return fmt.Errorf("linear graphql errors: %s", strings.Join(msgs, "; "))
				}
				if out != nil {
					if err := json.Unmarshal(env.Data, out); err != nil { return err }
				}
				return nil
			}
		}
		time.Sleep(time.Duration(300*(1<<attempt)) * time.Millisecond)
	}
	return lastErr
}

// ---- wire shapes ----

type nameNode struct {
	Name string `json:"name"`
}

type titleNode struct {
	Title string `json:"title"`
}

type teamNode struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Name string `json:"name"`
}

type initiativeNode struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	SlugID string `json:"slugId"`
}

type cycleNode struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Number   float64 `json:"number"`
	StartsAt *string `json:"startsAt"`
	EndsAt   *string `json:"endsAt"`
}

type projectNode struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Initiatives struct {
		Nodes []initiativeNode `json:"nodes"`
	} `json:"initiatives"`
}

type issueNode struct {
	ID          string    `json:"id"`
	Identifier  string    `json:"identifier"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	Estimate    *float64  `json:"estimate"`
	Assignee    *nameNode `json:"assignee"`
	State       *struct {
		Name string `json:"name"`
		Type string `json:"type"`
	} `json:"state"`
	CompletedAt *string      `json:"completedAt"`
	UpdatedAt   *string      `json:"updatedAt"`
	Cycle       *cycleNode   `json:"cycle"`
	Project     *projectNode `json:"project"`
}

type pageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}

const issueFields = `
	id
	identifier
	title
	description
	url
	estimate
	assignee { name }
	state { name type }
	completedAt
	updatedAt
	cycle { id name number startsAt endsAt }
	project { id name initiatives { nodes { id name slugId } } }`

func (n issueNode) toDomain() domain.Issue {
	is := domain.Issue{
		ID:          n.ID,
		Identifier:  n.Identifier,
		Title:       n.Title,
		Description: n.Description,
		URL:         n.URL,
		Estimate:    n.Estimate,
		CompletedAt: parseTime(n.CompletedAt),
		UpdatedAt:   parseTime(n.UpdatedAt),
	}
	if n.Assignee != nil { is.Assignee = n.Assignee.Name }
	if n.State != nil { is.State = domain.State{Name: n.State.Name, Type: n.State.Type} }
	if n.Cycle != nil {
		is.Cycle = &domain.Cycle{
			ID:       n.Cycle.ID,
			Name:     n.Cycle.Name,
			Number:   int(n.Cycle.Number),
			StartsAt: parseTime(n.Cycle.StartsAt),
			EndsAt:   parseTime(n.Cycle.EndsAt),
		}
	}
	if n.Project != nil {
		p := &domain.Project{ID: n.Project.ID, Name: n.Project.Name}
		for _, in := range n.Project.Initiatives.Nodes {
			p.Initiatives = append(p.Initiatives, domain.Initiative{ID: in.ID, Name: in.Name, SlugID: in.SlugID})
		}
		is.Project = p
	}
	return is
}

func parseTime(v *string) *time.Time {
	if v == nil || *v == "" { return nil }
	layouts := []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"}
	for _, l := range layouts {
		if t, err := time.Parse(l, *v); err == nil {
			tt := t.UTC()
			return &tt
		}
	}
	return nil
}

// ---- entity methods ----

func (c *Client) Teams(ctx context.Context) ([]domain.Team, error) {
	query := `query { teams { nodes { id key name } } }`
	var resp struct {
		Teams struct {
			Nodes []teamNode `json:"nodes"`
		} `json:"teams"`
	}
	if err := c.do(ctx, query, nil, &resp); err != nil { return nil, err }
	out := make([]domain.Team, 0, len(resp.Teams.Nodes))
	for _, t := range resp.Teams.Nodes {
		out = append(out, domain.Team{ID: t.ID, Key: t.Key, Name: t.Name})
	}
	return out, nil
}

// TeamByKey resolves a team by its key, case-insensitively.
func (c *Client) TeamByKey(ctx context.Context, key string) (*domain.Team, error) {
	teams, err := c.Teams(ctx)
	if err != nil { return nil, err }
	for _, t := range teams {
		if strings.EqualFold(t.Key, key) {
			tt := t
			return &tt, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrTeamNotFound, key)
}

// Initiatives lists initiatives. Archived ones carry an "[Archive]" marker in
// their name and are filtered out unless requested.
func (c *Client) Initiatives(ctx context.Context, includeArchived bool) ([]domain.Initiative, error) {
	query := `query { initiatives(first: 100) { nodes { id name slugId } } }`
	var resp struct {
		Initiatives struct {
			Nodes []initiativeNode `json:"nodes"`
		} `json:"initiatives"`
	}
	if err := c.do(ctx, query, nil, &resp); err != nil { return nil, err }
	out := make([]domain.Initiative, 0, len(resp.Initiatives.Nodes))
	for _, in := range resp.Initiatives.Nodes {
		if !includeArchived && strings.Contains(in.Name, "[Archive]") { continue }
		out = append(out, domain.Initiative{ID: in.ID, Name: in.Name, SlugID: in.SlugID})
	}
	return out, nil
}

// IssuesForTeam pages through a team's issues, dropping canceled states
// client-side and optionally keeping only issues whose project belongs to one
// of the given initiative slugs.
func (c *Client) IssuesForTeam(ctx context.Context, teamID string, initiativeSlugs []string) ([]domain.Issue, error) {
	var initiativeIDs map[string]struct{}
	if len(initiativeSlugs) > 0 {
		inits, err := c.Initiatives(ctx, false)
		if err != nil { return nil, err }
		wanted := map[string]struct{}{}
		for _, s := range initiativeSlugs {
			s = strings.TrimSpace(s)
			if s != "" { wanted[s] = struct{}{} }
		}
		initiativeIDs = map[string]struct{}{}
		for _, in := range inits {
			if _, ok := wanted[in.SlugID]; ok { initiativeIDs[in.ID] = struct{}{} }
		}
		if len(initiativeIDs) == 0 {
			c.log.Warn().Strs("slugs", initiativeSlugs).Msg("no matching initiatives found")
			return nil, nil
		}
	}

	query := `query($teamId: ID!, $after: String) {
		issues(filter: { team: { id: { eq: $teamId } } }, first: 100, after: $after) {
			nodes {` + issueFields + `
			}
			pageInfo { hasNextPage endCursor }
		}
	}`

	var all []domain.Issue
	cursor := ""
	for {
		vars := map[string]any{"teamId": teamID}
		if cursor != "" { vars["after"] = cursor }
		var resp struct {
			Issues struct {
				Nodes    []issueNode `json:"nodes"`
				PageInfo pageInfo    `json:"pageInfo"`
			} `json:"issues"`
		}
		if err := c.do(ctx, query, vars, &resp); err != nil { return nil, err }
		for _, n := range resp.Issues.Nodes {
			is := n.toDomain()
			switch strings.ToLower(is.State.Type) {
			case "canceled", "cancelled":
				continue
			}
			if initiativeIDs != nil && !issueInInitiatives(is, initiativeIDs) { continue }
			all = append(all, is)
		}
		if !resp.Issues.PageInfo.HasNextPage { break }
		cursor = resp.Issues.PageInfo.EndCursor
	}
	return all, nil
}

func issueInInitiatives(is domain.Issue, ids map[string]struct{}) bool {
	if is.Project == nil { return false }
	for _, in := range is.Project.Initiatives {
		if _, ok := ids[in.ID]; ok { return true }
	}
	return false
}

type historyNode struct {
	CreatedAt    string    `json:"createdAt"`
	Actor        *nameNode `json:"actor"`
	FromAssignee *nameNode `json:"fromAssignee"`
	ToAssignee   *nameNode `json:"toAssignee"`
	FromState    *nameNode `json:"fromState"`
	ToState      *nameNode `json:"toState"`
	FromTitle    *string   `json:"fromTitle"`
	ToTitle      *string   `json:"toTitle"`
	FromPriority *float64  `json:"fromPriority"`
	ToPriority   *float64  `json:"toPriority"`
	FromEstimate *float64  `json:"fromEstimate"`
	ToEstimate   *float64  `json:"toEstimate"`
	FromDueDate  *string   `json:"fromDueDate"`
	ToDueDate    *string   `json:"toDueDate"`
	FromCycle    *cycleNode `json:"fromCycle"`
	ToCycle      *cycleNode `json:"toCycle"`
	FromProject  *nameNode  `json:"fromProject"`
	ToProject    *nameNode  `json:"toProject"`
	FromParent   *titleNode `json:"fromParent"`
	ToParent     *titleNode `json:"toParent"`
	FromTeam     *nameNode  `json:"fromTeam"`
	ToTeam       *nameNode  `json:"toTeam"`

	AddedLabelIDs   []string `json:"addedLabelIds"`
	RemovedLabelIDs []string `json:"removedLabelIds"`

	UpdatedDescription bool `json:"updatedDescription"`
	Trashed            bool `json:"trashed"`
	AutoArchived       bool `json:"autoArchived"`
	AutoClosed         bool `json:"autoClosed"`
}

func (n historyNode) toDomain() domain.ChangeEntry {
	e := domain.ChangeEntry{
		At:                 parseTime(&n.CreatedAt),
		FromTitle:          n.FromTitle,
		ToTitle:            n.ToTitle,
		FromPriority:       n.FromPriority,
		ToPriority:         n.ToPriority,
		FromEstimate:       n.FromEstimate,
		ToEstimate:         n.ToEstimate,
		FromDueDate:        n.FromDueDate,
		ToDueDate:          n.ToDueDate,
		AddedLabels:        n.AddedLabelIDs,
		RemovedLabels:      n.RemovedLabelIDs,
		DescriptionUpdated: n.UpdatedDescription,
		Trashed:            n.Trashed,
		AutoArchived:       n.AutoArchived,
		AutoClosed:         n.AutoClosed,
	}
	if n.Actor != nil { e.Actor = n.Actor.Name }
	name := func(v *nameNode) *string {
		if v == nil { return nil }
		s := v.Name
		return &s
	}
	e.FromAssignee = name(n.FromAssignee)
	e.ToAssignee = name(n.ToAssignee)
	e.FromState = name(n.FromState)
	e.ToState = name(n.ToState)
	e.FromProject = name(n.FromProject)
	e.ToProject = name(n.ToProject)
	e.FromTeam = name(n.FromTeam)
	e.ToTeam = name(n.ToTeam)
	if n.FromParent != nil { s := n.FromParent.Title; e.FromParent = &s }
	if n.ToParent != nil { s := n.ToParent.Title; e.ToParent = &s }
	if n.FromCycle != nil { s := n.FromCycle.Name; e.FromCycle = &s }
	if n.ToCycle != nil { s := n.ToCycle.Name; e.ToCycle = &s }
	return e
}

// IssueHistory pages through an issue's audit log, oldest page first.
func (c *Client) IssueHistory(ctx context.Context, issueID string) ([]domain.ChangeEntry, error) {
	query := `query($issueId: String!, $after: String) {
		issue(id: $issueId) {
			history(first: 100, after: $after) {
				nodes {
					createdAt
					actor { name }
					fromAssignee { name }
					toAssignee { name }
					fromState { name }
					toState { name }
					fromTitle
					toTitle
					fromPriority
					toPriority
					fromEstimate
					toEstimate
					fromDueDate
					toDueDate
					fromCycle { id name number startsAt endsAt }
					toCycle { id name number startsAt endsAt }
					fromProject { name }
					toProject { name }
					fromParent { title }
					toParent { title }
					fromTeam { name }
					toTeam { name }
					addedLabelIds
					removedLabelIds
					updatedDescription
					trashed
					autoArchived
					autoClosed
				}
				pageInfo { hasNextPage endCursor }
			}
		}
	}`

	var all []domain.ChangeEntry
	cursor := ""
	for {
		vars := map[string]any{"issueId": issueID}
		if cursor != "" { vars["after"] = cursor }
		var resp struct {
			Issue *struct {
				History struct {
					Nodes    []historyNode `json:"nodes"`
					PageInfo pageInfo      `json:"pageInfo"`
				} `json:"history"`
			} `json:"issue"`
		}
		if err := c.do(ctx, query, vars, &resp); err != nil { return nil, err }
		if resp.Issue == nil { return all, nil }
		for _, n := range resp.Issue.History.Nodes {
			all = append(all, n.toDomain())
		}
		if !resp.Issue.History.PageInfo.HasNextPage { break }
		cursor = resp.Issue.History.PageInfo.EndCursor
	}
	return all, nil
}

// IssueByIdentifier looks up one issue by its human-readable identifier
// (e.g. "ENG-123").
func (c *Client) IssueByIdentifier(ctx context.Context, identifier string) (*domain.Issue, error) {
	query := `query($id: String!) {
		issue(id: $id) {` + issueFields + `
		}
	}`
	var resp struct {
		Issue *issueNode `json:"issue"`
	}
	if err := c.do(ctx, query, map[string]any{"id": identifier}, &resp); err != nil { return nil, err }
	if resp.Issue == nil { return nil, fmt.Errorf("linear: issue %s not found", identifier) }
	is := resp.Issue.toDomain()
	return &is, nil
}

// Package jira reads projects, epics and issues from a Jira Cloud site using
// e-mail + API token basic auth, and projects them onto flat dashboard shapes.
package jira

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	jira "github.com/andygrunwald/go-jira"

	"github.com/arrocitosenpai/PLM-OpenSource-m5-sub001/internal/domain"
)

const (
	pageSize = 100
	maxPages = 50
)

var projectKeyRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

type Credentials struct {
	BaseURL    string `json:"baseUrl"`
	Email      string `json:"email"`
	APIToken   string `json:"apiToken"`
	ProjectKey string `json:"projectKey"`
}

func (c Credentials) validate() error {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"baseUrl", c.BaseURL},
		{"email", c.Email},
		{"apiToken", c.APIToken},
		{"projectKey", c.ProjectKey},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return &domain.ValidationError{Message: "missing required fields: " + strings.Join(missing, ", ")}
	}
	if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return &domain.ValidationError{Field: "baseUrl", Message: "must be an absolute URL"}
	}
	if !projectKeyRe.MatchString(c.ProjectKey) {
		return &domain.ValidationError{Field: "projectKey", Message: "must be a Jira project key"}
	}
	return nil
}

type Project struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Name string `json:"name"`
}

type Epic struct {
	ID      string `json:"id"`
	Key     string `json:"key"`
	Summary string `json:"summary"`
	Status  string `json:"status"`
}

// Issue is the normalised issue shape returned to the dashboard.
type Issue struct {
	ID             string     `json:"id"`
	Key            string     `json:"key"`
	Summary        string     `json:"summary"`
	Status         string     `json:"status"`
	StatusCategory string     `json:"statusCategory"`
	Assignee       string     `json:"assignee,omitempty"`
	Progress       int        `json:"progress"`
	IssueType      string     `json:"issueType"`
	Created        *time.Time `json:"created,omitempty"`
	Updated        *time.Time `json:"updated,omitempty"`
	DueDate        *time.Time `json:"dueDate,omitempty"`
	ResolutionDate *time.Time `json:"resolutionDate,omitempty"`
}

type Client struct {
	timeout time.Duration
}

func NewClient(timeout time.Duration) *Client {
	return &Client{timeout: timeout}
}

func (c *Client) api(creds Credentials) (*jira.Client, error) {
	tp := jira.BasicAuthTransport{Username: creds.Email, Password: creds.APIToken}
	httpClient := tp.Client()
	httpClient.Timeout = c.timeout
	return jira.NewClient(httpClient, creds.BaseURL)
}

func (c *Client) prepare(ctx context.Context, creds Credentials) (*jira.Client, context.Context, context.CancelFunc, error) {
	if err := creds.validate(); err != nil {
		return nil, nil, nil, err
	}
	api, err := c.api(creds)
	if err != nil {
		return nil, nil, nil, &domain.ValidationError{Field: "baseUrl", Message: err.Error()}
	}
	if c.timeout > 0 {
		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		return api, ctx, cancel, nil
	}
	return api, ctx, func() {}, nil
}

// TestConnection looks the project up by key.
func (c *Client) TestConnection(ctx context.Context, creds Credentials) (*Project, error) {
	api, ctx, cancel, err := c.prepare(ctx, creds)
	if err != nil {
		return nil, err
	}
	defer cancel()

	p, resp, err := api.Project.GetWithContext(ctx, creds.ProjectKey)
	if err != nil {
		return nil, upstreamError(resp, err)
	}
	if p == nil || p.Key == "" {
		return nil, &domain.UpstreamError{Service: "jira", Status: 502, Body: "project payload without key"}
	}
	return &Project{ID: p.ID, Key: p.Key, Name: p.Name}, nil
}

func (c *Client) ListEpics(ctx context.Context, creds Credentials) ([]Epic, error) {
	api, ctx, cancel, err := c.prepare(ctx, creds)
	if err != nil {
		return nil, err
	}
	defer cancel()

	jql := fmt.Sprintf(`project = "%s" AND issuetype = Epic ORDER BY created DESC`, creds.ProjectKey)
	issues, err := search(ctx, api, jql, []string{"summary", "status"})
	if err != nil {
		return nil, err
	}

	epics := make([]Epic, 0, len(issues))
	for _, is := range issues {
		e := Epic{ID: is.ID, Key: is.Key}
		if is.Fields != nil {
			e.Summary = is.Fields.Summary
			if is.Fields.Status != nil {
				e.Status = is.Fields.Status.Name
			}
		}
		epics = append(epics, e)
	}
	return epics, nil
}

func (c *Client) ListIssues(ctx context.Context, creds Credentials) ([]Issue, error) {
	api, ctx, cancel, err := c.prepare(ctx, creds)
	if err != nil {
		return nil, err
	}
	defer cancel()

	jql := fmt.Sprintf(`project = "%s" ORDER BY updated DESC`, creds.ProjectKey)
	fields := []string{
		"summary", "status", "assignee", "progress", "issuetype",
		"created", "updated", "duedate", "resolutiondate",
	}
	raw, err := search(ctx, api, jql, fields)
	if err != nil {
		return nil, err
	}

	issues := make([]Issue, 0, len(raw))
	for _, is := range raw {
		issues = append(issues, normalize(is))
	}
	return issues, nil
}

// search walks every page of a JQL query.
func search(ctx context.Context, api *jira.Client, jql string, fields []string) ([]jira.Issue, error) {
	var all []jira.Issue
	startAt := 0
	for page := 0; page < maxPages; page++ {
		issues, resp, err := api.Issue.SearchWithContext(ctx, jql, &jira.SearchOptions{
			StartAt:    startAt,
			MaxResults: pageSize,
			Fields:     fields,
		})
		if err != nil {
			return nil, upstreamError(resp, err)
		}
		all = append(all, issues...)
		startAt += len(issues)

		total := 0
		if resp != nil {
			total = resp.Total
		}
		if len(issues) < pageSize || (total > 0 && startAt >= total) {
			break
		}
	}
	return all, nil
}

func normalize(is jira.Issue) Issue {
	out := Issue{ID: is.ID, Key: is.Key}
	f := is.Fields
	if f == nil {
		return out
	}

	out.Summary = f.Summary
	out.IssueType = f.Type.Name
	if f.Status != nil {
		out.Status = f.Status.Name
		out.StatusCategory = f.Status.StatusCategory.Name
	}
	if f.Assignee != nil {
		out.Assignee = f.Assignee.DisplayName
	}
	if f.Progress != nil && f.Progress.Total > 0 {
		out.Progress = f.Progress.Progress * 100 / f.Progress.Total
	}
	out.Created = timePtr(time.Time(f.Created))
	out.Updated = timePtr(time.Time(f.Updated))
	out.DueDate = timePtr(time.Time(f.Duedate))
	out.ResolutionDate = timePtr(time.Time(f.Resolutiondate))
	return out
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func upstreamError(resp *jira.Response, err error) error {
	uerr := &domain.UpstreamError{Service: "jira", Err: err, Body: err.Error()}
	if resp != nil && resp.Response != nil {
		uerr.Status = resp.StatusCode
	}
	var jerr *jira.Error
	if errors.As(err, &jerr) && len(jerr.ErrorMessages) > 0 {
		uerr.Body = strings.Join(jerr.ErrorMessages, "; ")
	}
	return uerr
}

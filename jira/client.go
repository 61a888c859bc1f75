/*
Package jira wraps the Jira REST API for timesheet extraction.

PURPOSE:
  A thin, per-user client over go-jira. Every bot user connects with their
  own email + API token (basic auth); nothing is shared between users.
  The only queries the bot needs: verify credentials, list projects, and
  pull worklogs for a project over an inclusive date range.

WORKLOG SHAPING:
  Raw Jira worklogs are shaped into report rows here, not in the report
  package, because the shaping rules are Jira-specific:
  - executor is the local part of the author's email
  - hours come from timeSpentSeconds, exact decimal, rounded to 0.1
  - description is "KEY - <summary>: <comment>" (comment optional)
  - the project-task column is "Сопровождение <Месяц>" for the worklog month

ERROR HANDLING:
  All methods return wrapped errors; no partial results. A worklog outside
  the requested period is skipped, not an error (JQL matches issues, not
  individual worklogs, so over-fetching is normal).

SEE ALSO:
  - period/date.go: the Period type bounding the query
  - report/excel.go: renders the rows produced here
*/
package jira

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	gojira "github.com/andygrunwald/go-jira"
	"github.com/shopspring/decimal"

	"github.com/relay/timesheet-bot/period"
)

// =============================================================================
// TYPES
// =============================================================================

// Project is a Jira project reference shown to the user.
type Project struct {
	Key  string
	Name string
}

// Row is one worklog entry of a timesheet report.
type Row struct {
	Date        time.Time       // worklog start timestamp
	Executor    string          // email local part of the worklog author
	Hours       decimal.Decimal // exact hours, rounded to one decimal place
	Description string          // "KEY - summary: comment"
	ProjectTask string          // "Сопровождение <Месяц>"
	TaskSummary string          // issue summary on its own
	Project     string          // project display name
}

// Client talks to one Jira instance with one user's credentials.
type Client struct {
	api *gojira.Client
}

var secondsPerHour = decimal.NewFromInt(3600)

// =============================================================================
// CONSTRUCTION
// =============================================================================

// NewClient creates a client for the given Jira base URL authenticating as
// email/apiToken. The credentials are not verified here; call Verify.
func NewClient(baseURL, email, apiToken string) (*Client, error) {
	tp := gojira.BasicAuthTransport{Username: email, Password: apiToken}
	api, err := gojira.NewClient(tp.Client(), baseURL)
	if err != nil {
		return nil, fmt.Errorf("jira client for %s: %w", baseURL, err)
	}
	return &Client{api: api}, nil
}

// Verify checks the credentials by fetching the current user. It returns
// the display name Jira reports for the authenticated user.
func (c *Client) Verify(ctx context.Context) (string, error) {
	user, _, err := c.api.User.GetSelfWithContext(ctx)
	if err != nil {
		return "", fmt.Errorf("verify jira credentials: %w", err)
	}
	if user.DisplayName != "" {
		return user.DisplayName, nil
	}
	return user.Name, nil
}

// =============================================================================
// QUERIES
// =============================================================================

// Projects returns all projects visible to the authenticated user.
func (c *Client) Projects(ctx context.Context) ([]Project, error) {
	list, _, err := c.api.Project.GetListWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list jira projects: %w", err)
	}
	projects := make([]Project, 0, len(*list))
	for _, p := range *list {
		projects = append(projects, Project{Key: p.Key, Name: p.Name})
	}
	return projects, nil
}

// WorklogsForProject returns the report rows for every worklog logged in
// the project within the inclusive period, in Jira's own order.
func (c *Client) WorklogsForProject(ctx context.Context, projectKey string, p period.Period) ([]Row, error) {
	jql := fmt.Sprintf(`project = %s AND worklogDate >= "%s" AND worklogDate <= "%s"`,
		projectKey, p.Start, p.End)

	issues, _, err := c.api.Issue.SearchWithContext(ctx, jql, &gojira.SearchOptions{
		MaxResults: 1000,
		Expand:     "worklog",
	})
	if err != nil {
		return nil, fmt.Errorf("search issues for %s: %w", projectKey, err)
	}

	var rows []Row
	for i := range issues {
		issue := &issues[i]
		worklog, _, err := c.api.Issue.GetWorklogsWithContext(ctx, issue.Key)
		if err != nil {
			return nil, fmt.Errorf("worklogs for %s: %w", issue.Key, err)
		}
		for _, record := range worklog.Worklogs {
			if record.Started == nil {
				continue
			}
			started := time.Time(*record.Started)
			// JQL matched the issue; individual worklogs may still fall
			// outside the period.
			if !p.Contains(period.FromTime(started)) {
				continue
			}
			rows = append(rows, buildRow(issue, record, started))
		}
	}

	log.Printf("jira: %d worklog rows for project %s over %s", len(rows), projectKey, p)
	return rows, nil
}

// =============================================================================
// ROW SHAPING
// =============================================================================

func buildRow(issue *gojira.Issue, record gojira.WorklogRecord, started time.Time) Row {
	summary := issue.Fields.Summary
	if summary == "" {
		summary = "Без темы"
	}

	description := fmt.Sprintf("%s - %s", issue.Key, summary)
	if record.Comment != "" {
		description += ": " + record.Comment
	}

	hours := decimal.NewFromInt(int64(record.TimeSpentSeconds)).
		Div(secondsPerHour).Round(1)

	return Row{
		Date:        started,
		Executor:    executorName(record.Author),
		Hours:       hours,
		Description: description,
		ProjectTask: "Сопровождение " + period.MonthName(started.Month()),
		TaskSummary: summary,
		Project:     issue.Fields.Project.Name,
	}
}

// executorName derives the report's executor column from the worklog
// author: the local part of the email when one is present.
func executorName(author *gojira.User) string {
	if author == nil {
		return ""
	}
	name := author.EmailAddress
	if name == "" {
		name = author.Name
	}
	if at := strings.Index(name, "@"); at > 0 {
		return name[:at]
	}
	return name
}

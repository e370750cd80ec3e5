package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"headsup/internal/config"
	"headsup/internal/model"
)

// openIssuesJQL selects issues assigned to the owner that are still open.
// The excluded statuses mirror the tracker's resolution workflow.
const openIssuesJQL = `assignee = %q AND status not in (Resolved, Closed, Done, "Won't Fix", Cancelled)`

// recentCommentCount is how many trailing comments travel with each issue.
const recentCommentCount = 3

// JiraAdapter fetches open issues over the tracker's REST v2 API.
type JiraAdapter struct {
	httpClient *http.Client
	server     string
	username   string
	apiToken   string
	maxIssues  int
	logger     *zap.Logger
}

func NewJiraAdapter(cfg config.JiraConfig, logger *zap.Logger) (*JiraAdapter, error) {
	if cfg.Server == "" {
		return nil, fmt.Errorf("jira server URL is required")
	}
	maxIssues := cfg.MaxIssues
	if maxIssues <= 0 {
		maxIssues = 10
	}
	return &JiraAdapter{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		server:     strings.TrimRight(cfg.Server, "/"),
		username:   cfg.Username,
		apiToken:   cfg.APIToken,
		maxIssues:  maxIssues,
		logger:     logger,
	}, nil
}

// jiraSearchResponse mirrors the subset of the search payload the adapter
// reads.
type jiraSearchResponse struct {
	Issues []jiraIssue `json:"issues"`
}

type jiraIssue struct {
	Key    string `json:"key"`
	Fields struct {
		Summary     string     `json:"summary"`
		Description string     `json:"description"`
		Status      namedField `json:"status"`
		Priority    namedField `json:"priority"`
		IssueType   namedField `json:"issuetype"`
		Assignee    struct {
			DisplayName string `json:"displayName"`
		} `json:"assignee"`
		Created string `json:"created"`
		Updated string `json:"updated"`
		Comment struct {
			Comments []struct {
				Author struct {
					DisplayName string `json:"displayName"`
				} `json:"author"`
				Created string `json:"created"`
				Body    string `json:"body"`
			} `json:"comments"`
		} `json:"comment"`
	} `json:"fields"`
}

type namedField struct {
	Name string `json:"name"`
}

// FetchIssues runs the open-issues JQL for the owner and maps each hit into
// an IssueRecord.
func (j *JiraAdapter) FetchIssues(ctx context.Context, owner string) ([]model.IssueRecord, error) {
	params := url.Values{}
	params.Set("jql", fmt.Sprintf(openIssuesJQL, owner))
	params.Set("maxResults", strconv.Itoa(j.maxIssues))
	params.Set("fields", "summary,description,status,priority,issuetype,assignee,created,updated,comment")

	endpoint := j.server + "/rest/api/2/search?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	req.SetBasicAuth(j.username, j.apiToken)
	req.Header.Set("Accept", "application/json")

	resp, err := j.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("%w: jira returned status %d", ErrAuth, resp.StatusCode)
	case http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: jira returned status %d", ErrRateLimited, resp.StatusCode)
	default:
		return nil, fmt.Errorf("%w: jira returned status %d", ErrNetwork, resp.StatusCode)
	}

	var search jiraSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&search); err != nil {
		return nil, fmt.Errorf("%w: failed to decode jira search response: %v", ErrNetwork, err)
	}

	records := make([]model.IssueRecord, 0, len(search.Issues))
	for _, issue := range search.Issues {
		if issue.Key == "" {
			j.logger.Warn("skipping jira issue without a key")
			continue
		}
		records = append(records, j.toRecord(issue))
	}
	return records, nil
}

func (j *JiraAdapter) toRecord(issue jiraIssue) model.IssueRecord {
	record := model.IssueRecord{
		Key:         issue.Key,
		URL:         j.server + "/browse/" + issue.Key,
		Summary:     issue.Fields.Summary,
		Description: issue.Fields.Description,
		Status:      issue.Fields.Status.Name,
		Priority:    issue.Fields.Priority.Name,
		IssueType:   issue.Fields.IssueType.Name,
		Assignee:    issue.Fields.Assignee.DisplayName,
		CreatedAt:   issue.Fields.Created,
		UpdatedAt:   issue.Fields.Updated,
	}

	comments := issue.Fields.Comment.Comments
	if len(comments) > recentCommentCount {
		comments = comments[len(comments)-recentCommentCount:]
	}
	for _, c := range comments {
		record.RecentComments = append(record.RecentComments, model.Comment{
			Author:    c.Author.DisplayName,
			CreatedAt: c.Created,
			Body:      c.Body,
		})
	}
	return record
}

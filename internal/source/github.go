package source

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/go-github/v58/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"headsup/internal/config"
	"headsup/internal/model"
)

// maxPRs bounds one fetch so a prolific owner cannot starve the deadline.
const maxPRs = 20

// GitHubAdapter fetches open pull requests involving the owner.
type GitHubAdapter struct {
	client *github.Client
	logger *zap.Logger
}

func NewGitHubAdapter(cfg config.GitHubConfig, logger *zap.Logger) (*GitHubAdapter, error) {
	var httpClient *http.Client
	if cfg.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		httpClient = oauth2.NewClient(context.Background(), ts)
	}

	client := github.NewClient(httpClient)
	if cfg.BaseURL != "" {
		var err error
		client, err = client.WithEnterpriseURLs(cfg.BaseURL, cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid github base URL %s: %w", cfg.BaseURL, err)
		}
	}

	return &GitHubAdapter{client: client, logger: logger}, nil
}

// FetchPRs searches for open PRs involving the owner and hydrates each with
// its comments and reviews. A record that fails to hydrate is skipped; only a
// failed search fails the source.
func (g *GitHubAdapter) FetchPRs(ctx context.Context, owner string) ([]model.PRRecord, error) {
	query := fmt.Sprintf("is:pr is:open involves:%s archived:false", owner)
	result, resp, err := g.client.Search.Issues(ctx, query, &github.SearchOptions{
		Sort:        "updated",
		Order:       "desc",
		ListOptions: github.ListOptions{PerPage: maxPRs},
	})
	if err != nil {
		return nil, classifyGitHubError(resp, err)
	}

	records := make([]model.PRRecord, 0, len(result.Issues))
	for _, issue := range result.Issues {
		repoOwner, repoName, ok := splitRepositoryURL(issue.GetRepositoryURL())
		if !ok {
			g.logger.Warn("skipping PR with unparsable repository URL",
				zap.String("url", issue.GetRepositoryURL()))
			continue
		}

		record, err := g.hydratePR(ctx, repoOwner, repoName, issue.GetNumber())
		if err != nil {
			g.logger.Warn("skipping PR that failed to hydrate",
				zap.String("repo", repoOwner+"/"+repoName),
				zap.Int("number", issue.GetNumber()),
				zap.Error(err))
			continue
		}
		records = append(records, *record)
		if len(records) >= maxPRs {
			break
		}
	}
	return records, nil
}

// hydratePR fetches the PR details plus its discussion comments, review
// summaries, and inline code comments.
func (g *GitHubAdapter) hydratePR(ctx context.Context, owner, repo string, number int) (*model.PRRecord, error) {
	pr, resp, err := g.client.PullRequests.Get(ctx, owner, repo, number)
	if err != nil {
		return nil, classifyGitHubError(resp, err)
	}

	record := &model.PRRecord{
		Number:       number,
		Title:        pr.GetTitle(),
		URL:          pr.GetHTMLURL(),
		Author:       pr.GetUser().GetLogin(),
		State:        prState(pr),
		Body:         pr.GetBody(),
		CreatedAt:    pr.GetCreatedAt().Format("2006-01-02T15:04:05Z"),
		UpdatedAt:    pr.GetUpdatedAt().Format("2006-01-02T15:04:05Z"),
		ChangedFiles: pr.GetChangedFiles(),
		Additions:    pr.GetAdditions(),
		Deletions:    pr.GetDeletions(),
	}
	for _, label := range pr.Labels {
		record.Labels = append(record.Labels, label.GetName())
	}
	for _, reviewer := range pr.RequestedReviewers {
		record.Reviewers = append(record.Reviewers, reviewer.GetLogin())
	}
	for _, assignee := range pr.Assignees {
		record.Assignees = append(record.Assignees, assignee.GetLogin())
	}

	// Discussion comments and review summary bodies form the global list.
	issueComments, resp, err := g.client.Issues.ListComments(ctx, owner, repo, number, &github.IssueListCommentsOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	})
	if err != nil {
		return nil, classifyGitHubError(resp, err)
	}
	for _, c := range issueComments {
		record.GlobalComments = append(record.GlobalComments, model.Comment{
			Author:    c.GetUser().GetLogin(),
			CreatedAt: c.GetCreatedAt().Format("2006-01-02T15:04:05Z"),
			Body:      c.GetBody(),
		})
	}

	reviews, resp, err := g.client.PullRequests.ListReviews(ctx, owner, repo, number, &github.ListOptions{PerPage: 100})
	if err != nil {
		return nil, classifyGitHubError(resp, err)
	}
	for _, r := range reviews {
		if r.GetBody() == "" {
			continue
		}
		record.GlobalComments = append(record.GlobalComments, model.Comment{
			Author:    r.GetUser().GetLogin(),
			CreatedAt: r.GetSubmittedAt().Format("2006-01-02T15:04:05Z"),
			Body:      r.GetBody(),
		})
	}

	reviewComments, resp, err := g.client.PullRequests.ListComments(ctx, owner, repo, number, &github.PullRequestListCommentsOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	})
	if err != nil {
		return nil, classifyGitHubError(resp, err)
	}
	for _, c := range reviewComments {
		record.InlineComments = append(record.InlineComments, model.Comment{
			Author:    c.GetUser().GetLogin(),
			CreatedAt: c.GetCreatedAt().Format("2006-01-02T15:04:05Z"),
			Body:      c.GetBody(),
		})
	}

	return record, nil
}

func prState(pr *github.PullRequest) string {
	switch {
	case pr.GetDraft():
		return model.PRStateDraft
	case pr.GetMerged():
		return model.PRStateMerged
	default:
		return pr.GetState()
	}
}

// splitRepositoryURL extracts owner and repo from an API repository URL like
// https://api.github.com/repos/owner/repo.
func splitRepositoryURL(url string) (string, string, bool) {
	const marker = "/repos/"
	i := strings.Index(url, marker)
	if i < 0 {
		return "", "", false
	}
	parts := strings.Split(url[i+len(marker):], "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func classifyGitHubError(resp *github.Response, err error) error {
	if resp != nil {
		switch resp.StatusCode {
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %v", ErrAuth, err)
		case http.StatusForbidden, http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", ErrRateLimited, err)
		}
	}
	return fmt.Errorf("%w: %v", ErrNetwork, err)
}

package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"headsup/internal/config"
	"headsup/internal/model"
)

// newGitHubTestAdapter points the adapter at a fake enterprise API rooted at
// /api/v3/.
func newGitHubTestAdapter(t *testing.T, mux *http.ServeMux) *GitHubAdapter {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	adapter, err := NewGitHubAdapter(config.GitHubConfig{
		Enabled: true,
		Token:   "ghp-test",
		BaseURL: srv.URL,
	}, zap.NewNop())
	require.NoError(t, err)
	return adapter
}

func TestGitHubFetchPRs(t *testing.T) {
	mux := http.NewServeMux()
	var searchQuery string

	mux.HandleFunc("/api/v3/search/issues", func(w http.ResponseWriter, r *http.Request) {
		searchQuery = r.URL.Query().Get("q")
		repoURL := "http://" + r.Host + "/api/v3/repos/acme/widget"
		fmt.Fprintf(w, `{
			"total_count": 2,
			"incomplete_results": false,
			"items": [
				{"number": 42, "repository_url": %q},
				{"number": 7, "repository_url": "no-marker-here"}
			]
		}`, repoURL)
	})
	mux.HandleFunc("/api/v3/repos/acme/widget/pulls/42", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"number": 42,
			"title": "Add retry logic",
			"html_url": "https://github.example.com/acme/widget/pull/42",
			"state": "open",
			"body": "Retries transient failures.",
			"user": {"login": "alice"},
			"created_at": "2024-01-10T09:00:00Z",
			"updated_at": "2024-01-15T10:30:45Z",
			"changed_files": 3,
			"additions": 120,
			"deletions": 15,
			"labels": [{"name": "backend"}],
			"requested_reviewers": [{"login": "bob"}, {"login": "carol"}],
			"assignees": [{"login": "alice"}]
		}`)
	})
	mux.HandleFunc("/api/v3/repos/acme/widget/issues/42/comments", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"user": {"login": "bob"}, "created_at": "2024-01-11T09:00:00Z", "body": "needs a test"}
		]`)
	})
	mux.HandleFunc("/api/v3/repos/acme/widget/pulls/42/reviews", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"user": {"login": "carol"}, "submitted_at": "2024-01-12T09:00:00Z", "body": "looks reasonable"},
			{"user": {"login": "carol"}, "submitted_at": "2024-01-12T10:00:00Z", "body": ""}
		]`)
	})
	mux.HandleFunc("/api/v3/repos/acme/widget/pulls/42/comments", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"user": {"login": "bob"}, "created_at": "2024-01-11T10:00:00Z", "body": "rename this variable"}
		]`)
	})

	adapter := newGitHubTestAdapter(t, mux)
	records, err := adapter.FetchPRs(context.Background(), "alice")
	require.NoError(t, err)

	assert.Contains(t, searchQuery, "is:pr is:open involves:alice")

	// The record with an unparsable repository URL is skipped.
	require.Len(t, records, 1)
	pr := records[0]
	assert.Equal(t, 42, pr.Number)
	assert.Equal(t, "Add retry logic", pr.Title)
	assert.Equal(t, "https://github.example.com/acme/widget/pull/42", pr.URL)
	assert.Equal(t, "alice", pr.Author)
	assert.Equal(t, model.PRStateOpen, pr.State)
	assert.Equal(t, []string{"backend"}, pr.Labels)
	assert.Equal(t, []string{"bob", "carol"}, pr.Reviewers)
	assert.Equal(t, []string{"alice"}, pr.Assignees)
	assert.Equal(t, 3, pr.ChangedFiles)
	assert.Equal(t, "2024-01-10T09:00:00Z", pr.CreatedAt)

	// Discussion comments plus non-empty review bodies form the global list.
	require.Len(t, pr.GlobalComments, 2)
	assert.Equal(t, "needs a test", pr.GlobalComments[0].Body)
	assert.Equal(t, "looks reasonable", pr.GlobalComments[1].Body)

	require.Len(t, pr.InlineComments, 1)
	assert.Equal(t, "rename this variable", pr.InlineComments[0].Body)
}

func TestGitHubFetchPRsSearchFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/search/issues", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"message": "Bad credentials"}`)
	})

	adapter := newGitHubTestAdapter(t, mux)
	_, err := adapter.FetchPRs(context.Background(), "alice")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAuth))
}

func TestGitHubFetchPRsSkipsUnhydratable(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/search/issues", func(w http.ResponseWriter, r *http.Request) {
		repoURL := "http://" + r.Host + "/api/v3/repos/acme/widget"
		fmt.Fprintf(w, `{
			"total_count": 1,
			"incomplete_results": false,
			"items": [{"number": 99, "repository_url": %q}]
		}`, repoURL)
	})
	mux.HandleFunc("/api/v3/repos/acme/widget/pulls/99", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	adapter := newGitHubTestAdapter(t, mux)
	records, err := adapter.FetchPRs(context.Background(), "alice")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestPRState(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/search/issues", func(w http.ResponseWriter, r *http.Request) {
		repoURL := "http://" + r.Host + "/api/v3/repos/acme/widget"
		fmt.Fprintf(w, `{
			"total_count": 1,
			"incomplete_results": false,
			"items": [{"number": 5, "repository_url": %q}]
		}`, repoURL)
	})
	mux.HandleFunc("/api/v3/repos/acme/widget/pulls/5", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"number": 5, "state": "open", "draft": true, "user": {"login": "alice"}}`)
	})
	for _, path := range []string{
		"/api/v3/repos/acme/widget/issues/5/comments",
		"/api/v3/repos/acme/widget/pulls/5/reviews",
		"/api/v3/repos/acme/widget/pulls/5/comments",
	} {
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `[]`)
		})
	}

	adapter := newGitHubTestAdapter(t, mux)
	records, err := adapter.FetchPRs(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, model.PRStateDraft, records[0].State)
}

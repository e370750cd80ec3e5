package normalize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"headsup/internal/llm"
	"headsup/internal/model"
)

var testPatterns = []string{"[bot]", "-bot", "jenkins"}

func TestPRFallbackTemplates(t *testing.T) {
	n := New(testPatterns)

	pr := &model.PRRecord{
		Number:       42,
		Title:        "Add retry logic",
		URL:          "https://github.com/acme/app/pull/42",
		Author:       "alice",
		State:        model.PRStateOpen,
		Body:         "# Overview\nRetries transient failures.",
		Reviewers:    []string{"bob"},
		CreatedAt:    "2024-01-15T10:30:45Z",
		ChangedFiles: 3,
		Additions:    120,
		Deletions:    15,
	}

	item := n.PR(pr, nil, 0.5)

	assert.Equal(t, model.SourceCodeReview, item.Source)
	assert.Equal(t, "https://github.com/acme/app/pull/42", item.Link)
	assert.Equal(t, "2024-01-15 10:30:45", item.Timestamp)
	assert.Equal(t, "PR #42: Add retry logic", item.Title)
	assert.Contains(t, item.LongSummary, "Retries transient failures.")
	assert.Contains(t, item.LongSummary, "Modified 3 files (+120/-15 lines)")
	assert.Contains(t, item.LongSummary, "Author: alice, State: open, Reviewers: 1")
	assert.NotContains(t, item.LongSummary, "# Overview")
	assert.Equal(t, []string{"Await reviewer approval"}, item.ActionItems)
	assert.Equal(t, 0.5, item.Score)
}

func TestPRActionItems(t *testing.T) {
	n := New(testPatterns)

	tests := []struct {
		name     string
		pr       model.PRRecord
		expected []string
	}{
		{
			name: "open without reviewers asks for review",
			pr:   model.PRRecord{State: model.PRStateOpen, Author: "alice"},
			expected: []string{
				"Request code review",
			},
		},
		{
			name: "pending comments produce respond items",
			pr: model.PRRecord{
				State:     model.PRStateOpen,
				Author:    "alice",
				Reviewers: []string{"bob"},
				GlobalComments: []model.Comment{
					{Author: "bob", CreatedAt: "2024-01-02T00:00:00Z", Body: "please add a test"},
				},
				InlineComments: []model.Comment{
					{Author: "bob", CreatedAt: "2024-01-02T00:00:00Z", Body: "rename this"},
					{Author: "carol", CreatedAt: "2024-01-03T00:00:00Z", Body: "typo"},
				},
			},
			expected: []string{
				"Respond to 1 pending discussion comment(s)",
				"Address 2 pending code review comment(s)",
				"Await reviewer approval",
			},
		},
		{
			name: "conflict mention adds resolve item",
			pr: model.PRRecord{
				State:  model.PRStateOpen,
				Author: "alice",
				GlobalComments: []model.Comment{
					{Author: "bob", CreatedAt: "2024-01-02T00:00:00Z", Body: "This has a merge CONFLICT with main"},
				},
			},
			expected: []string{
				"Respond to 1 pending discussion comment(s)",
				"Request code review",
				"Resolve merge conflicts",
			},
		},
		{
			name: "bot comments do not generate items",
			pr: model.PRRecord{
				State:     model.PRStateOpen,
				Author:    "alice",
				Reviewers: []string{"bob"},
				GlobalComments: []model.Comment{
					{Author: "ci-bot", CreatedAt: "2024-01-02T00:00:00Z", Body: "conflict detected"},
				},
			},
			expected: []string{"Await reviewer approval"},
		},
		{
			name:     "merged pr gets no default item",
			pr:       model.PRRecord{State: model.PRStateMerged, Author: "alice"},
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := n.PR(&tt.pr, nil, 0.5)
			assert.Equal(t, tt.expected, item.ActionItems)
		})
	}
}

func TestIssueFallbackTemplates(t *testing.T) {
	n := New(testPatterns)

	issue := &model.IssueRecord{
		Key:         "PROJ-123",
		URL:         "https://jira.example.com/browse/PROJ-123",
		Summary:     "Login breaks on Safari",
		Description: "Users report <b>session loss</b> after login.",
		Status:      "In Progress",
		Priority:    "High",
		IssueType:   "Bug",
		UpdatedAt:   "2024-01-15T10:30:45.000+0000",
	}

	item := n.Issue(issue, nil, 0.7)

	assert.Equal(t, model.SourceIssueTracker, item.Source)
	assert.Equal(t, "https://jira.example.com/browse/PROJ-123", item.Link)
	assert.Equal(t, "2024-01-15 10:30:45", item.Timestamp)
	assert.Equal(t, "PROJ-123: Login breaks on Safari", item.Title)
	assert.True(t, strings.HasPrefix(item.LongSummary, "[In Progress] "))
	assert.Contains(t, item.LongSummary, "session loss")
	assert.NotContains(t, item.LongSummary, "<b>")
	require.Len(t, item.ActionItems, 1)
	assert.Equal(t, "Review and address Bug: Login breaks on Safari", item.ActionItems[0])
	assert.Equal(t, 0.7, item.Score)
}

func TestIssueEmptyDescription(t *testing.T) {
	n := New(testPatterns)
	item := n.Issue(&model.IssueRecord{Key: "PROJ-1", Summary: "A task"}, nil, 0.5)
	assert.Equal(t, "[Unknown] No description provided.", item.LongSummary)
}

func TestConversationFallbackTemplates(t *testing.T) {
	n := New(testPatterns)

	conv := &model.ConversationRecord{
		Trigger: model.Message{
			Timestamp: "1705314645.000100",
			Author:    "bob",
			Text:      "can you review the rollout plan?",
			Channel:   "deployments",
			Permalink: "https://acme.slack.com/archives/C1/p1705314645000100",
		},
	}

	item := n.Conversation(conv, nil, 0.6)

	assert.Equal(t, model.SourceChat, item.Source)
	assert.Equal(t, "https://acme.slack.com/archives/C1/p1705314645000100", item.Link)
	assert.Equal(t, "2024-01-15 10:30:45", item.Timestamp)
	assert.Equal(t, "Slack message in #deployments", item.Title)
	assert.Contains(t, item.LongSummary, "Message from bob")
	assert.Contains(t, item.LongSummary, "rollout plan")
	assert.Equal(t, []string{"Review this conversation manually"}, item.ActionItems)
	assert.Equal(t, 0.6, item.Score)
}

func TestConversationWithoutPermalinkOrChannel(t *testing.T) {
	n := New(testPatterns)

	conv := &model.ConversationRecord{
		Trigger: model.Message{Timestamp: "1705314645.000100", Author: "bob", Text: "hi"},
	}

	item := n.Conversation(conv, nil, 0.4)
	assert.Equal(t, "Slack message in DM", item.Title)
	assert.Equal(t, "slack://channel//message/1705314645.000100", item.Link)
}

func TestBundleOverridesTemplates(t *testing.T) {
	n := New(testPatterns)

	bundle := &llm.Bundle{
		Title:       "  Login session bug  ",
		LongSummary: "Sessions drop after SSO redirect.",
		ActionItems: []string{" Reproduce on Safari ", "", "File upstream ticket"},
	}

	item := n.Issue(&model.IssueRecord{Key: "PROJ-123", Summary: "Login breaks"}, bundle, 0.9)

	assert.Equal(t, "Login session bug", item.Title)
	assert.Equal(t, "Sessions drop after SSO redirect.", item.LongSummary)
	assert.Equal(t, []string{"Reproduce on Safari", "File upstream ticket"}, item.ActionItems)
	assert.Equal(t, 0.9, item.Score)
}

func TestBundlePartialFieldsFallBack(t *testing.T) {
	n := New(testPatterns)

	bundle := &llm.Bundle{Title: "Only a title"}
	pr := &model.PRRecord{Number: 7, Title: "Fix thing", Author: "alice", State: model.PRStateOpen}

	item := n.PR(pr, bundle, 0.5)

	assert.Equal(t, "Only a title", item.Title)
	assert.Contains(t, item.LongSummary, "Author: alice")
	assert.NotEmpty(t, item.ActionItems)
}

func TestFinalizeEnforcesCaps(t *testing.T) {
	n := New(testPatterns)

	actions := make([]string, 15)
	for i := range actions {
		actions[i] = "do the thing"
	}
	bundle := &llm.Bundle{
		Title:       strings.Repeat("t", 500),
		LongSummary: strings.Repeat("s", 3000),
		ActionItems: actions,
	}

	item := n.Issue(&model.IssueRecord{Key: "PROJ-9", Summary: "x"}, bundle, 1.7)

	assert.Len(t, []rune(item.Title), model.MaxTitleLen)
	assert.True(t, strings.HasSuffix(item.Title, "..."))
	assert.Len(t, []rune(item.LongSummary), model.MaxSummaryLen)
	assert.Len(t, item.ActionItems, model.MaxActionItems)
	assert.Equal(t, 1.0, item.Score)
}

func TestUnparsableTimestampFallsBackToNow(t *testing.T) {
	n := New(testPatterns)

	item := n.Issue(&model.IssueRecord{Key: "PROJ-2", Summary: "x", UpdatedAt: "garbage"}, nil, 0.5)

	parsed, err := model.ParseTimestamp(item.Timestamp)
	require.NoError(t, err)
	assert.False(t, parsed.IsZero())
}

// Package model defines the canonical data shapes shared by every pipeline
// stage: the per-source raw records produced by the source adapters and the
// single ActivityItem that crosses the aggregation boundary.
package model

import (
	"strings"
	"time"
)

// Source identifies the backend system an item came from.
type Source string

const (
	SourceCodeReview   Source = "github"
	SourceIssueTracker Source = "jira"
	SourceChat         Source = "slack"
)

// Timestamp is the canonical wire format for every item timestamp (UTC).
const TimestampLayout = "2006-01-02 15:04:05"

// Caps applied to every ActivityItem regardless of where its fields came from.
const (
	MaxTitleLen      = 200
	MaxSummaryLen    = 1000
	MaxActionItems   = 10
	truncationSuffix = "..."
)

// ActivityItem is the canonical, source-agnostic record produced for one unit
// of attention-worthy activity. It is built once per raw record per request
// cycle and never persisted.
type ActivityItem struct {
	Source      Source   `json:"source"`
	Link        string   `json:"link"`
	Timestamp   string   `json:"timestamp"`
	Title       string   `json:"title"`
	LongSummary string   `json:"long_summary"`
	ActionItems []string `json:"action_items"`
	Score       float64  `json:"score"`
}

// Comment is a single human- or bot-authored comment on a PR or issue.
type Comment struct {
	Author    string `json:"author"`
	CreatedAt string `json:"created_at"`
	Body      string `json:"body"`
}

// PRState values mirror the code-review system's lifecycle.
const (
	PRStateOpen   = "open"
	PRStateDraft  = "draft"
	PRStateClosed = "closed"
	PRStateMerged = "merged"
)

// PRRecord is the raw code-review record as produced by the GitHub adapter.
// Comment lists are split the way the review system splits them:
// GlobalComments holds discussion and review-summary comments, InlineComments
// holds code-line comments.
type PRRecord struct {
	Number         int       `json:"number"`
	Title          string    `json:"title"`
	URL            string    `json:"url"`
	Author         string    `json:"author"`
	State          string    `json:"state"`
	Body           string    `json:"body"`
	Labels         []string  `json:"labels"`
	Reviewers      []string  `json:"reviewers"`
	Assignees      []string  `json:"assignees"`
	CreatedAt      string    `json:"created_at"`
	UpdatedAt      string    `json:"updated_at"`
	ChangedFiles   int       `json:"changed_files"`
	Additions      int       `json:"additions"`
	Deletions      int       `json:"deletions"`
	GlobalComments []Comment `json:"global_comments"`
	InlineComments []Comment `json:"inline_comments"`
}

// AllComments returns global and inline comments as one list, global first.
func (r *PRRecord) AllComments() []Comment {
	all := make([]Comment, 0, len(r.GlobalComments)+len(r.InlineComments))
	all = append(all, r.GlobalComments...)
	all = append(all, r.InlineComments...)
	return all
}

// IssueRecord is the raw issue-tracker record as produced by the Jira adapter.
type IssueRecord struct {
	Key            string    `json:"key"`
	URL            string    `json:"url"`
	Summary        string    `json:"summary"`
	Description    string    `json:"description"`
	Status         string    `json:"status"`
	Priority       string    `json:"priority"`
	IssueType      string    `json:"issue_type"`
	Assignee       string    `json:"assignee"`
	CreatedAt      string    `json:"created_at"`
	UpdatedAt      string    `json:"updated_at"`
	RecentComments []Comment `json:"recent_comments"`
}

// Message is one chat message with enough context to link back to it.
type Message struct {
	Timestamp string `json:"timestamp"` // epoch seconds, "1726000000.123456"
	Author    string `json:"author"`
	Text      string `json:"text"`
	Channel   string `json:"channel"`
	Permalink string `json:"permalink"`
	ThreadID  string `json:"thread_id"`
}

// ConversationRecord is the raw chat record: the message that triggered
// attention plus its surrounding context.
type ConversationRecord struct {
	Trigger          Message   `json:"trigger"`
	PreviousMessages []Message `json:"previous_messages"`
	NextMessages     []Message `json:"next_messages"`
	Replies          []Message `json:"replies"`
}

// Truncate shortens s to max characters, replacing the tail with "..." when
// truncation happens. max must be larger than the suffix length.
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-len(truncationSuffix)]) + truncationSuffix
}

// ClampScore bounds a score to the [0,1] contract.
func ClampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// FormatTimestamp renders t in the canonical UTC wire format.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// jiraLayout matches issue-tracker timestamps like 2024-01-15T10:30:45.000+0000.
const jiraLayout = "2006-01-02T15:04:05.000-0700"

// ParseTimestamp parses any source-native timestamp format the adapters emit:
// RFC3339 (with Z or offset), the issue tracker's millisecond offset form,
// chat epoch seconds, or the canonical format itself.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, &time.ParseError{Layout: TimestampLayout, Value: s, Message: ": empty timestamp"}
	}
	layouts := []string{
		time.RFC3339,
		jiraLayout,
		TimestampLayout,
	}
	var lastErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	if t, err := parseEpochSeconds(s); err == nil {
		return t, nil
	}
	return time.Time{}, lastErr
}

// parseEpochSeconds handles chat timestamps of the form "1726000000.123456".
func parseEpochSeconds(s string) (time.Time, error) {
	sec := s
	if i := strings.IndexByte(s, '.'); i >= 0 {
		sec = s[:i]
	}
	var unix int64
	for _, c := range sec {
		if c < '0' || c > '9' {
			return time.Time{}, &time.ParseError{Layout: "epoch", Value: s, Message: ": not numeric"}
		}
		unix = unix*10 + int64(c-'0')
	}
	if unix == 0 {
		return time.Time{}, &time.ParseError{Layout: "epoch", Value: s, Message: ": zero timestamp"}
	}
	return time.Unix(unix, 0).UTC(), nil
}

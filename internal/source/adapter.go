// Package source holds the adapters that fetch raw activity records from the
// backend systems. The aggregation core consumes them through narrow fetcher
// interfaces and treats every adapter error as "this source failed",
// continuing without it.
package source

import (
	"context"
	"errors"

	"headsup/internal/model"
)

// Error kinds the adapters signal. The engine only uses them for logging and
// isolation; it never retries.
var (
	ErrAuth        = errors.New("source authentication failed")
	ErrRateLimited = errors.New("source rate limit exceeded")
	ErrNetwork     = errors.New("source network error")
)

// PRFetcher returns the open code-review records involving the owner.
type PRFetcher interface {
	FetchPRs(ctx context.Context, owner string) ([]model.PRRecord, error)
}

// IssueFetcher returns the open issue-tracker records assigned to the owner.
type IssueFetcher interface {
	FetchIssues(ctx context.Context, owner string) ([]model.IssueRecord, error)
}

// ConversationFetcher returns chat conversations referencing the owner.
type ConversationFetcher interface {
	FetchConversations(ctx context.Context, owner string) ([]model.ConversationRecord, error)
}

// Classify maps an adapter error to its taxonomy label for logs.
func Classify(err error) string {
	switch {
	case errors.Is(err, ErrAuth):
		return "auth_failure"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "network_error"
	}
}

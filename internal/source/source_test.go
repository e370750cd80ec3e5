package source

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"auth", fmt.Errorf("github: %w", ErrAuth), "auth_failure"},
		{"rate limited", fmt.Errorf("jira: %w", ErrRateLimited), "rate_limited"},
		{"deadline", context.DeadlineExceeded, "timeout"},
		{"wrapped deadline", fmt.Errorf("fetch: %w", context.DeadlineExceeded), "timeout"},
		{"anything else", errors.New("connection reset"), "network_error"},
		{"network sentinel", ErrNetwork, "network_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.err))
		})
	}
}

func TestSplitRepositoryURL(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		wantOwner string
		wantRepo  string
		wantOK    bool
	}{
		{
			name:      "api repository url",
			url:       "https://api.github.com/repos/acme/widget",
			wantOwner: "acme",
			wantRepo:  "widget",
			wantOK:    true,
		},
		{
			name:      "enterprise url",
			url:       "https://github.example.com/api/v3/repos/platform/infra",
			wantOwner: "platform",
			wantRepo:  "infra",
			wantOK:    true,
		},
		{
			name:   "missing marker",
			url:    "https://api.github.com/acme/widget",
			wantOK: false,
		},
		{
			name:   "marker with no repo",
			url:    "https://api.github.com/repos/acme",
			wantOK: false,
		},
		{
			name:   "empty segments",
			url:    "https://api.github.com/repos//widget",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			owner, repo, ok := splitRepositoryURL(tt.url)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantOwner, owner)
				assert.Equal(t, tt.wantRepo, repo)
			}
		})
	}
}

func TestClassifySlackError(t *testing.T) {
	assert.True(t, errors.Is(classifySlackError("invalid_auth"), ErrAuth))
	assert.True(t, errors.Is(classifySlackError("token_revoked"), ErrAuth))
	assert.True(t, errors.Is(classifySlackError("ratelimited"), ErrRateLimited))
	assert.True(t, errors.Is(classifySlackError("channel_not_found"), ErrNetwork))
}

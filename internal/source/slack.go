package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"headsup/internal/config"
	"headsup/internal/model"
)

const (
	// maxConversations bounds one fetch.
	maxConversations = 20
	// contextWindow is how many surrounding channel messages travel with
	// each conversation.
	contextWindow = 5
)

// SlackAdapter fetches conversations mentioning the owner over the chat
// system's Web API.
type SlackAdapter struct {
	httpClient *http.Client
	baseURL    string
	token      string
	logger     *zap.Logger
}

func NewSlackAdapter(cfg config.SlackConfig, logger *zap.Logger) (*SlackAdapter, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("slack token is required")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://slack.com/api"
	}
	return &SlackAdapter{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		token:      cfg.Token,
		logger:     logger,
	}, nil
}

type slackSearchResponse struct {
	OK       bool   `json:"ok"`
	Error    string `json:"error"`
	Messages struct {
		Matches []slackMatch `json:"matches"`
	} `json:"messages"`
}

type slackMatch struct {
	TS        string `json:"ts"`
	User      string `json:"user"`
	Username  string `json:"username"`
	Text      string `json:"text"`
	Permalink string `json:"permalink"`
	Channel   struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"channel"`
}

type slackHistoryResponse struct {
	OK       bool `json:"ok"`
	Messages []struct {
		TS       string `json:"ts"`
		User     string `json:"user"`
		Text     string `json:"text"`
		ThreadTS string `json:"thread_ts"`
	} `json:"messages"`
}

// FetchConversations searches for messages mentioning the owner and builds a
// ConversationRecord per match: the triggering message, its thread replies,
// and the surrounding channel history. A match whose context fails to load is
// kept with whatever context was gathered.
func (s *SlackAdapter) FetchConversations(ctx context.Context, owner string) ([]model.ConversationRecord, error) {
	var search slackSearchResponse
	err := s.call(ctx, "search.messages", url.Values{
		"query": {"@" + owner},
		"count": {fmt.Sprintf("%d", maxConversations)},
		"sort":  {"timestamp"},
	}, &search)
	if err != nil {
		return nil, err
	}
	if !search.OK {
		return nil, classifySlackError(search.Error)
	}

	records := make([]model.ConversationRecord, 0, len(search.Messages.Matches))
	for _, match := range search.Messages.Matches {
		if match.TS == "" {
			s.logger.Warn("skipping chat match without a timestamp")
			continue
		}
		records = append(records, s.buildConversation(ctx, match))
	}
	return records, nil
}

func (s *SlackAdapter) buildConversation(ctx context.Context, match slackMatch) model.ConversationRecord {
	author := match.User
	if author == "" {
		author = match.Username
	}
	conv := model.ConversationRecord{
		Trigger: model.Message{
			Timestamp: match.TS,
			Author:    author,
			Text:      match.Text,
			Channel:   match.Channel.Name,
			Permalink: match.Permalink,
			ThreadID:  match.TS,
		},
	}

	// Thread replies. Best effort: a failed context call leaves the
	// conversation with what it has.
	var replies slackHistoryResponse
	err := s.call(ctx, "conversations.replies", url.Values{
		"channel": {match.Channel.ID},
		"ts":      {match.TS},
		"limit":   {"50"},
	}, &replies)
	if err == nil && replies.OK {
		for _, m := range replies.Messages {
			if m.TS == match.TS {
				continue
			}
			conv.Replies = append(conv.Replies, s.toMessage(m.TS, m.User, m.Text, match))
		}
	} else {
		s.logger.Debug("failed to load thread replies", zap.String("ts", match.TS), zap.Error(err))
	}

	// Surrounding channel history, split into before and after the trigger.
	var history slackHistoryResponse
	err = s.call(ctx, "conversations.history", url.Values{
		"channel":   {match.Channel.ID},
		"latest":    {match.TS},
		"inclusive": {"false"},
		"limit":     {fmt.Sprintf("%d", contextWindow)},
	}, &history)
	if err == nil && history.OK {
		for _, m := range history.Messages {
			conv.PreviousMessages = append(conv.PreviousMessages, s.toMessage(m.TS, m.User, m.Text, match))
		}
	}

	var after slackHistoryResponse
	err = s.call(ctx, "conversations.history", url.Values{
		"channel":   {match.Channel.ID},
		"oldest":    {match.TS},
		"inclusive": {"false"},
		"limit":     {fmt.Sprintf("%d", contextWindow)},
	}, &after)
	if err == nil && after.OK {
		for _, m := range after.Messages {
			conv.NextMessages = append(conv.NextMessages, s.toMessage(m.TS, m.User, m.Text, match))
		}
	}

	return conv
}

func (s *SlackAdapter) toMessage(ts, user, text string, match slackMatch) model.Message {
	return model.Message{
		Timestamp: ts,
		Author:    user,
		Text:      text,
		Channel:   match.Channel.Name,
		ThreadID:  match.TS,
	}
}

// call performs one Web API method call and decodes the envelope.
func (s *SlackAdapter) call(ctx context.Context, method string, params url.Values, out any) error {
	endpoint := s.baseURL + "/" + method + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: slack returned status %d", ErrRateLimited, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: slack returned status %d", ErrNetwork, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode slack response: %v", ErrNetwork, err)
	}
	return nil
}

func classifySlackError(apiError string) error {
	switch apiError {
	case "invalid_auth", "not_authed", "token_revoked", "token_expired", "account_inactive":
		return fmt.Errorf("%w: %s", ErrAuth, apiError)
	case "ratelimited", "rate_limited":
		return fmt.Errorf("%w: %s", ErrRateLimited, apiError)
	default:
		return fmt.Errorf("%w: %s", ErrNetwork, apiError)
	}
}

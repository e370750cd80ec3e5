// Package attention decides whether a thread or conversation still owes the
// owner a response. Everything here is a pure function over the supplied
// records: no network access, no shared state.
package attention

import (
	"sort"
	"strings"
	"time"

	"headsup/internal/config"
	"headsup/internal/model"
)

// nowFunc is a variable so tests can pin the current instant.
var nowFunc = time.Now

// Filter holds the owner identity and the tunable heuristics.
type Filter struct {
	Owner               string
	MaxMessageAge       time.Duration
	InactivityThreshold time.Duration
	BotPatterns         []string
	ResolutionKeywords  []string
}

// NewFilter builds a Filter for one owner from the attention configuration.
func NewFilter(owner string, cfg config.AttentionConfig) *Filter {
	return &Filter{
		Owner:               owner,
		MaxMessageAge:       time.Duration(cfg.MaxMessageAgeDays) * 24 * time.Hour,
		InactivityThreshold: time.Duration(cfg.InactivityThresholdDays) * 24 * time.Hour,
		BotPatterns:         cfg.BotPatterns,
		ResolutionKeywords:  cfg.ResolutionKeywords,
	}
}

// FilterBots drops comments whose author matches any automation pattern by
// substring. Filtering an already-filtered list returns the same list.
func FilterBots(comments []model.Comment, patterns []string) []model.Comment {
	filtered := make([]model.Comment, 0, len(comments))
	for _, c := range comments {
		if !IsBotAuthor(c.Author, patterns) {
			filtered = append(filtered, c)
		}
	}
	return filtered
}

// FilterBotMessages is FilterBots for chat messages.
func FilterBotMessages(msgs []model.Message, patterns []string) []model.Message {
	filtered := make([]model.Message, 0, len(msgs))
	for _, m := range msgs {
		if !IsBotAuthor(m.Author, patterns) {
			filtered = append(filtered, m)
		}
	}
	return filtered
}

// IsBotAuthor reports whether the author string contains any of the
// automation-account patterns.
func IsBotAuthor(author string, patterns []string) bool {
	for _, p := range patterns {
		if p != "" && strings.Contains(author, p) {
			return true
		}
	}
	return false
}

// SortChronologically orders comments by created_at ascending. Pending
// detection requires this order; ties keep their input order.
func SortChronologically(comments []model.Comment) []model.Comment {
	sorted := make([]model.Comment, len(comments))
	copy(sorted, comments)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt < sorted[j].CreatedAt
	})
	return sorted
}

// PendingResponses counts comments still waiting on the owner: each entry not
// authored by the owner with no later entry authored by the owner counts as
// pending. The list is sorted chronologically before scanning. Adding a
// non-owner comment with no later owner comment never decreases the count.
func PendingResponses(comments []model.Comment, owner string) int {
	sorted := SortChronologically(comments)

	pending := 0
	for i, c := range sorted {
		if c.Author == owner {
			continue
		}
		answered := false
		for j := i + 1; j < len(sorted); j++ {
			if sorted[j].Author == owner {
				answered = true
				break
			}
		}
		if !answered {
			pending++
		}
	}
	return pending
}

// NeedsAttention reports whether the conversation's triggering message still
// requires the owner's action. The exclusion checks run in a fixed order; the
// first one that fires wins. Records with unparsable trigger timestamps are
// kept rather than silently dropped.
func (f *Filter) NeedsAttention(conv *model.ConversationRecord) bool {
	now := nowFunc().UTC()

	if triggerTime, err := model.ParseTimestamp(conv.Trigger.Timestamp); err == nil {
		if now.Sub(triggerTime) > f.MaxMessageAge {
			return false
		}
	}

	if f.ownerAuthoredAny(conv.Replies) {
		return false
	}
	if f.ownerAuthoredAny(conv.NextMessages) {
		return false
	}
	if f.appearsResolved(conv) {
		return false
	}
	if f.conversationInactive(conv, now) {
		return false
	}
	return true
}

func (f *Filter) ownerAuthoredAny(msgs []model.Message) bool {
	for _, m := range msgs {
		if m.Author == f.Owner {
			return true
		}
	}
	return false
}

// appearsResolved scans replies and later channel messages for resolution
// keywords.
func (f *Filter) appearsResolved(conv *model.ConversationRecord) bool {
	for _, m := range conv.Replies {
		if f.containsResolutionKeyword(m.Text) {
			return true
		}
	}
	for _, m := range conv.NextMessages {
		if f.containsResolutionKeyword(m.Text) {
			return true
		}
	}
	return false
}

func (f *Filter) containsResolutionKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range f.ResolutionKeywords {
		if kw != "" && strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// conversationInactive reports whether the thread's most recent activity is
// older than the inactivity threshold. Unparsable timestamps never mark a
// conversation inactive.
func (f *Filter) conversationInactive(conv *model.ConversationRecord, now time.Time) bool {
	latest, err := model.ParseTimestamp(conv.Trigger.Timestamp)
	if err != nil {
		return false
	}
	for _, m := range conv.Replies {
		if t, err := model.ParseTimestamp(m.Timestamp); err == nil && t.After(latest) {
			latest = t
		}
	}
	for _, m := range conv.NextMessages {
		if t, err := model.ParseTimestamp(m.Timestamp); err == nil && t.After(latest) {
			latest = t
		}
	}
	return now.Sub(latest) > f.InactivityThreshold
}

// Keyword groups feeding the continuous attention score.
var (
	questionKeywords = []string{"?", "can you", "could you", "please", "need", "help"}
	followUpKeywords = []string{"update", "status", "progress", "any news"}
)

// AttentionScore computes a bounded urgency contribution from conversational
// signals: base weight for being referenced, a recency bonus decaying in
// three bands, bonuses for question/request and follow-up wording, penalties
// for active discussion and for replies the owner already posted. Clamped to
// [0,1]. An unparsable trigger timestamp yields the moderate default 0.5.
func (f *Filter) AttentionScore(conv *model.ConversationRecord) float64 {
	triggerTime, err := model.ParseTimestamp(conv.Trigger.Timestamp)
	if err != nil {
		return 0.5
	}

	score := 0.3

	age := nowFunc().UTC().Sub(triggerTime)
	switch {
	case age < 24*time.Hour:
		score += 0.3
	case age < 72*time.Hour:
		score += 0.2
	case age < 7*24*time.Hour:
		score += 0.1
	}

	lower := strings.ToLower(conv.Trigger.Text)
	if containsAny(lower, questionKeywords) {
		score += 0.2
	}
	if containsAny(lower, followUpKeywords) {
		score += 0.2
	}

	if len(conv.Replies) > 3 {
		score -= 0.1
	}
	for _, reply := range conv.Replies {
		if reply.Author == f.Owner {
			score -= 0.2
		}
	}

	return model.ClampScore(score)
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

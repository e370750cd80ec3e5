// Package normalize builds the canonical ActivityItem out of a raw per-source
// record plus either the LLM collaborator's bundle or the deterministic
// fallback. Whatever the upstream produced, every field leaving this package
// respects the ActivityItem caps and the canonical timestamp format.
package normalize

import (
	"fmt"
	"strings"
	"time"

	"headsup/internal/attention"
	"headsup/internal/llm"
	"headsup/internal/model"
)

// nowFunc is a variable so tests can pin the current instant.
var nowFunc = time.Now

// Normalizer converts raw records into ActivityItems.
type Normalizer struct {
	BotPatterns []string
}

func New(botPatterns []string) *Normalizer {
	return &Normalizer{BotPatterns: botPatterns}
}

// PR builds the item for a code-review record. The score is decided by the
// pipeline (LLM-provided or the UrgencyScorer result) and re-clamped here.
func (n *Normalizer) PR(pr *model.PRRecord, bundle *llm.Bundle, score float64) model.ActivityItem {
	item := model.ActivityItem{
		Source:    model.SourceCodeReview,
		Link:      pr.URL,
		Timestamp: canonicalTimestamp(pr.CreatedAt),
		Score:     score,
	}

	if bundle != nil {
		applyBundle(&item, bundle)
	}
	if item.Title == "" {
		item.Title = prTitle(pr)
	}
	if item.LongSummary == "" {
		item.LongSummary = n.prSummary(pr)
	}
	if len(item.ActionItems) == 0 {
		item.ActionItems = n.prActionItems(pr)
	}

	return finalize(item)
}

// Issue builds the item for an issue-tracker record.
func (n *Normalizer) Issue(issue *model.IssueRecord, bundle *llm.Bundle, score float64) model.ActivityItem {
	item := model.ActivityItem{
		Source:    model.SourceIssueTracker,
		Link:      issue.URL,
		Timestamp: canonicalTimestamp(issue.UpdatedAt),
		Score:     score,
	}

	if bundle != nil {
		applyBundle(&item, bundle)
	}
	if item.Title == "" {
		item.Title = fmt.Sprintf("%s: %s", issue.Key, issue.Summary)
	}
	if item.LongSummary == "" {
		item.LongSummary = issueSummary(issue)
	}
	if len(item.ActionItems) == 0 {
		item.ActionItems = []string{fmt.Sprintf("Review and address %s: %s",
			orDefault(issue.IssueType, "issue"), model.Truncate(issue.Summary, 100))}
	}

	return finalize(item)
}

// Conversation builds the item for a chat record. The score is decided by
// the pipeline (LLM-provided or the AttentionFilter's continuous score).
func (n *Normalizer) Conversation(conv *model.ConversationRecord, bundle *llm.Bundle, score float64) model.ActivityItem {
	item := model.ActivityItem{
		Source:    model.SourceChat,
		Link:      conversationLink(conv),
		Timestamp: canonicalTimestamp(conv.Trigger.Timestamp),
		Score:     score,
	}

	if bundle != nil {
		applyBundle(&item, bundle)
	}
	if item.Title == "" {
		item.Title = conversationTitle(conv)
	}
	if item.LongSummary == "" {
		item.LongSummary = fmt.Sprintf("Message from %s: %s",
			conv.Trigger.Author, model.Truncate(conv.Trigger.Text, 200))
	}
	if len(item.ActionItems) == 0 {
		item.ActionItems = []string{"Review this conversation manually"}
	}

	return finalize(item)
}

// applyBundle copies the collaborator's text fields in; validation happens
// in finalize so oversized text never escapes.
func applyBundle(item *model.ActivityItem, bundle *llm.Bundle) {
	item.Title = strings.TrimSpace(bundle.Title)
	item.LongSummary = strings.TrimSpace(bundle.LongSummary)
	for _, a := range bundle.ActionItems {
		if trimmed := strings.TrimSpace(a); trimmed != "" {
			item.ActionItems = append(item.ActionItems, trimmed)
		}
	}
}

// finalize enforces the ActivityItem contract regardless of field origin.
func finalize(item model.ActivityItem) model.ActivityItem {
	item.Title = model.Truncate(item.Title, model.MaxTitleLen)
	item.LongSummary = model.Truncate(item.LongSummary, model.MaxSummaryLen)
	if len(item.ActionItems) > model.MaxActionItems {
		item.ActionItems = item.ActionItems[:model.MaxActionItems]
	}
	item.Score = model.ClampScore(item.Score)
	return item
}

func prTitle(pr *model.PRRecord) string {
	if pr.Number > 0 {
		return fmt.Sprintf("PR #%d: %s", pr.Number, pr.Title)
	}
	return fmt.Sprintf("GitHub PR: %s", pr.Title)
}

// prSummary composes the deterministic template: cleaned description, a
// diff-stat sentence when file stats are present, and a metadata sentence.
func (n *Normalizer) prSummary(pr *model.PRRecord) string {
	var parts []string

	if body := CleanText(pr.Body); body != "" {
		parts = append(parts, model.Truncate(body, 400))
	}
	if pr.ChangedFiles > 0 {
		parts = append(parts, fmt.Sprintf("Modified %d files (+%d/-%d lines)",
			pr.ChangedFiles, pr.Additions, pr.Deletions))
	}

	meta := fmt.Sprintf("Author: %s, State: %s", orDefault(pr.Author, "Unknown"), orDefault(pr.State, "unknown"))
	if len(pr.Reviewers) > 0 {
		meta += fmt.Sprintf(", Reviewers: %d", len(pr.Reviewers))
	}
	if len(pr.Assignees) > 0 {
		meta += fmt.Sprintf(", Assignees: %d", len(pr.Assignees))
	}
	parts = append(parts, meta)

	return strings.Join(parts, ". ")
}

// prActionItems reproduces the deterministic action-item templates.
func (n *Normalizer) prActionItems(pr *model.PRRecord) []string {
	var items []string

	humanGlobal := attention.FilterBots(pr.GlobalComments, n.BotPatterns)
	humanInline := attention.FilterBots(pr.InlineComments, n.BotPatterns)

	if pending := attention.PendingResponses(humanGlobal, pr.Author); pending > 0 {
		items = append(items, fmt.Sprintf("Respond to %d pending discussion comment(s)", pending))
	}
	if pending := attention.PendingResponses(humanInline, pr.Author); pending > 0 {
		items = append(items, fmt.Sprintf("Address %d pending code review comment(s)", pending))
	}

	if pr.State == model.PRStateOpen {
		if len(pr.Reviewers) > 0 {
			items = append(items, "Await reviewer approval")
		} else {
			items = append(items, "Request code review")
		}
	}

	for _, c := range humanGlobal {
		if strings.Contains(strings.ToLower(c.Body), "conflict") {
			items = append(items, "Resolve merge conflicts")
			break
		}
	}

	if len(items) == 0 && pr.State == model.PRStateOpen {
		items = append(items, "Review and merge PR")
	}
	return items
}

func issueSummary(issue *model.IssueRecord) string {
	desc := CleanText(issue.Description)
	if desc == "" {
		desc = "No description provided."
	}
	return fmt.Sprintf("[%s] %s", orDefault(issue.Status, "Unknown"), model.Truncate(desc, 400))
}

func conversationTitle(conv *model.ConversationRecord) string {
	if conv.Trigger.Channel != "" {
		return fmt.Sprintf("Slack message in #%s", strings.TrimPrefix(conv.Trigger.Channel, "#"))
	}
	return "Slack message in DM"
}

func conversationLink(conv *model.ConversationRecord) string {
	if conv.Trigger.Permalink != "" {
		return conv.Trigger.Permalink
	}
	return fmt.Sprintf("slack://channel/%s/message/%s", conv.Trigger.Channel, conv.Trigger.Timestamp)
}

// canonicalTimestamp renders any source-native timestamp in the canonical
// UTC format, falling back to "now" for unparsable input.
func canonicalTimestamp(raw string) string {
	t, err := model.ParseTimestamp(raw)
	if err != nil {
		t = nowFunc().UTC()
	}
	return model.FormatTimestamp(t)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

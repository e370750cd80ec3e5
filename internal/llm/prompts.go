package llm

import (
	"fmt"
	"strings"

	"headsup/internal/model"
)

// System prompts instruct the collaborator to emit the bundle contract. The
// scoring guidance mirrors the urgency bands the rest of the system uses.
const analysisContract = `Respond with ONLY a JSON object:
{
    "title": "brief descriptive title",
    "long_summary": "detailed summary, max 1000 characters",
    "action_items": ["specific action 1", "specific action 2"],
    "score": 0.65
}`

const issueSystemPrompt = `You are an expert issue-tracker analyzer. Generate concise summaries, actionable items, and urgency scores.

URGENCY SCORING (0.0-1.0):
- P0/Critical bugs with customer impact: 0.8-1.0
- P1/High priority active issues: 0.6-0.8
- P2/Medium priority or routine tasks: 0.4-0.6
- P3/Low priority or completed items: 0.2-0.4
- Closed/resolved issues: 0.1-0.3

ACTION ITEMS RULES:
- Generate ONLY 2-4 essential action items maximum
- Focus on immediate next steps, not generic tasks
- Keep each item under 15 words
- If the issue is resolved or closed, generate at most 1 item

The long_summary must start with the current status in brackets, e.g. "[In Progress] ...".

` + analysisContract

const prSystemPrompt = `You are an expert code-review analyzer. Summarize what the pull request changes, what is blocking it, and what the author must do next.

Focus action items on unanswered review comments, requested changes, and merge blockers. Score higher when reviewers are waiting on the author.

` + analysisContract

const conversationSystemPrompt = `You are an expert chat-conversation analyzer. Decide whether the target user still owes this conversation a response, summarize it, and list what they should do.

Score 0.0-0.3 when the conversation is resolved or does not involve the target user, 0.3-0.6 for routine follow-ups, 0.6-1.0 for direct questions or requests still waiting on them.

` + analysisContract

// IssuePrompts builds the system and user prompts for one issue record.
func IssuePrompts(issue *model.IssueRecord) (string, string) {
	var b strings.Builder
	fmt.Fprintf(&b, "Please analyze this issue:\n\n")
	fmt.Fprintf(&b, "Issue Key: %s\n", issue.Key)
	fmt.Fprintf(&b, "Summary: %s\n", issue.Summary)
	fmt.Fprintf(&b, "Status: %s\n", issue.Status)
	fmt.Fprintf(&b, "Priority: %s\n", issue.Priority)
	fmt.Fprintf(&b, "Issue Type: %s\n", issue.IssueType)
	fmt.Fprintf(&b, "Assignee: %s\n", issue.Assignee)
	fmt.Fprintf(&b, "Created: %s\n", issue.CreatedAt)
	fmt.Fprintf(&b, "Updated: %s\n\n", issue.UpdatedAt)
	fmt.Fprintf(&b, "Description: %s\n", clip(issue.Description, 1500))

	if len(issue.RecentComments) > 0 {
		b.WriteString("\nRecent Comments:\n")
		for _, c := range issue.RecentComments {
			fmt.Fprintf(&b, "%s: %s\n", c.Author, clip(c.Body, 300))
		}
	}
	return issueSystemPrompt, b.String()
}

// PRPrompts builds the system and user prompts for one code-review record.
func PRPrompts(pr *model.PRRecord) (string, string) {
	var b strings.Builder
	fmt.Fprintf(&b, "Please analyze this pull request:\n\n")
	fmt.Fprintf(&b, "Title: %s\n", pr.Title)
	fmt.Fprintf(&b, "Author: %s\n", pr.Author)
	fmt.Fprintf(&b, "State: %s\n", pr.State)
	if len(pr.Labels) > 0 {
		fmt.Fprintf(&b, "Labels: %s\n", strings.Join(pr.Labels, ", "))
	}
	fmt.Fprintf(&b, "Reviewers: %s\n", strings.Join(pr.Reviewers, ", "))
	fmt.Fprintf(&b, "Changed: %d files (+%d/-%d lines)\n", pr.ChangedFiles, pr.Additions, pr.Deletions)
	fmt.Fprintf(&b, "Created: %s, Updated: %s\n\n", pr.CreatedAt, pr.UpdatedAt)
	fmt.Fprintf(&b, "Description: %s\n", clip(pr.Body, 1500))

	writeComments := func(header string, comments []model.Comment) {
		if len(comments) == 0 {
			return
		}
		fmt.Fprintf(&b, "\n%s:\n", header)
		for _, c := range comments {
			fmt.Fprintf(&b, "%s (%s): %s\n", c.Author, c.CreatedAt, clip(c.Body, 300))
		}
	}
	writeComments("Discussion Comments", pr.GlobalComments)
	writeComments("Code Review Comments", pr.InlineComments)

	return prSystemPrompt, b.String()
}

// ConversationPrompts builds the system and user prompts for a chat thread.
func ConversationPrompts(conv *model.ConversationRecord, targetUser string) (string, string) {
	var b strings.Builder
	fmt.Fprintf(&b, "Target user: %s\n", targetUser)
	fmt.Fprintf(&b, "Channel: %s\n\n", conv.Trigger.Channel)
	fmt.Fprintf(&b, "Triggering message from %s:\n%s\n", conv.Trigger.Author, clip(conv.Trigger.Text, 1000))

	writeMessages := func(header string, msgs []model.Message) {
		if len(msgs) == 0 {
			return
		}
		fmt.Fprintf(&b, "\n%s:\n", header)
		for _, m := range msgs {
			fmt.Fprintf(&b, "%s: %s\n", m.Author, clip(m.Text, 300))
		}
	}
	writeMessages("Earlier in channel", conv.PreviousMessages)
	writeMessages("Thread replies", conv.Replies)
	writeMessages("Later in channel", conv.NextMessages)

	return conversationSystemPrompt, b.String()
}

func clip(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

// Package scoring maps record metadata to a deterministic urgency score in
// [0,1]. The formula constants are part of the external contract: two runs
// over the same record at the same instant produce the same score, and no
// network or LLM call happens here.
package scoring

import (
	"math"
	"strings"
	"time"

	"headsup/internal/attention"
	"headsup/internal/model"
)

// nowFunc is a variable so tests can pin the current instant.
var nowFunc = time.Now

// Formula constants. Factor weights sum with the base to at most 1.0 before
// modifiers.
const (
	baseScore = 0.1

	ageHalfLifeDays  = 7.0
	stalenessCapDays = 14.0
	timeFactorWeight = 0.2 // applied to each of age and staleness

	reviewerLoadWeight = 0.15
	engagementWeight   = 0.15

	pendingWeight      = 0.2
	densityWeight      = 0.1
	densityCapComments = 20.0

	// Fallback for each time-derived factor pair when a timestamp is
	// missing or unparsable: a fixed moderate urgency, never an error.
	defaultTimeFactor = 0.2

	draftMultiplier       = 0.5
	urgentMultiplier      = 1.3
	lowPriorityMultiplier = 0.7
)

// Scorer computes urgency scores for code-review and issue-tracker records.
type Scorer struct {
	BotPatterns []string
}

func NewScorer(botPatterns []string) *Scorer {
	return &Scorer{BotPatterns: botPatterns}
}

// ScorePR computes the urgency score for a code-review record.
func (s *Scorer) ScorePR(pr *model.PRRecord) float64 {
	human := attention.FilterBots(pr.AllComments(), s.BotPatterns)

	raw := baseScore +
		timeFactor(pr.CreatedAt, pr.UpdatedAt) +
		reviewerFactor(pr, human) +
		commentFactor(human, pr.Author)

	return model.ClampScore(applyModifiers(raw, pr.State, pr.Labels))
}

// TimeFactor exposes the time component for the reporting surface; it is the
// 0.2-weighted sum of the saturating age score and the capped staleness score.
func TimeFactor(createdAt, updatedAt string) float64 {
	return timeFactor(createdAt, updatedAt)
}

func timeFactor(createdAt, updatedAt string) float64 {
	created, errCreated := model.ParseTimestamp(createdAt)
	updated, errUpdated := model.ParseTimestamp(updatedAt)
	if errCreated != nil || errUpdated != nil {
		return defaultTimeFactor
	}

	now := nowFunc().UTC()
	ageDays := now.Sub(created).Hours() / 24
	stalenessDays := now.Sub(updated).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	if stalenessDays < 0 {
		stalenessDays = 0
	}

	ageScore := 1 - math.Exp(-ageDays/ageHalfLifeDays)
	stalenessScore := math.Min(1, stalenessDays/stalenessCapDays)

	return timeFactorWeight*ageScore + timeFactorWeight*stalenessScore
}

// reviewerFactor combines reviewer load (urgency rises when few people share
// the review) with engagement (urgency rises when assigned reviewers have not
// commented yet).
func reviewerFactor(pr *model.PRRecord, humanComments []model.Comment) float64 {
	count := len(pr.Reviewers)
	if len(pr.Assignees) > count {
		count = len(pr.Assignees)
	}
	if count < 1 {
		count = 1
	}

	loadScore := math.Min(1, 1/math.Sqrt(float64(count)))

	assigned := make(map[string]bool, len(pr.Reviewers)+len(pr.Assignees))
	for _, r := range pr.Reviewers {
		assigned[r] = true
	}
	for _, a := range pr.Assignees {
		assigned[a] = true
	}
	commented := make(map[string]bool)
	for _, c := range humanComments {
		if assigned[c.Author] {
			commented[c.Author] = true
		}
	}
	engagementRate := float64(len(commented)) / float64(count)

	return reviewerLoadWeight*loadScore + engagementWeight*(1-engagementRate)
}

// commentFactor grows logarithmically with the pending-response count and
// linearly (capped) with overall human comment density.
func commentFactor(humanComments []model.Comment, owner string) float64 {
	pending := attention.PendingResponses(humanComments, owner)

	pendingScore := 0.0
	if pending > 0 {
		pendingScore = math.Min(1, math.Log(float64(pending)+1)/math.Log(10))
	}
	densityScore := math.Min(1, float64(len(humanComments))/densityCapComments)

	return pendingWeight*pendingScore + densityWeight*densityScore
}

func applyModifiers(raw float64, state string, labels []string) float64 {
	if state == model.PRStateDraft {
		raw *= draftMultiplier
	}

	for _, label := range labels {
		lower := strings.ToLower(label)
		if strings.Contains(lower, "urgent") {
			return math.Min(1, raw*urgentMultiplier)
		}
	}
	for _, label := range labels {
		lower := strings.ToLower(label)
		if strings.Contains(lower, "low") && strings.Contains(lower, "priority") {
			return raw * lowPriorityMultiplier
		}
	}
	return raw
}

// FallbackIssueScore estimates urgency for an issue-tracker record from its
// metadata alone, used when no LLM-provided score is available. Priority
// bands follow the tracker's P0..P4 convention, with small adjustments for
// active status and bug type.
func FallbackIssueScore(issue *model.IssueRecord) float64 {
	score := 0.5

	priority := strings.ToLower(issue.Priority)
	switch {
	case strings.Contains(priority, "p0") || strings.Contains(priority, "highest"):
		score = 0.9
	case strings.Contains(priority, "p1") || strings.Contains(priority, "high"):
		score = 0.7
	case strings.Contains(priority, "p2") || strings.Contains(priority, "medium"):
		score = 0.5
	case strings.Contains(priority, "p3") || strings.Contains(priority, "low"):
		score = 0.3
	case strings.Contains(priority, "p4") || strings.Contains(priority, "lowest"):
		score = 0.1
	}

	status := strings.ToLower(issue.Status)
	if strings.Contains(status, "open") || strings.Contains(status, "in progress") {
		score += 0.1
	} else if strings.Contains(status, "resolved") || strings.Contains(status, "closed") {
		score -= 0.2
	}

	if strings.Contains(strings.ToLower(issue.IssueType), "bug") {
		score += 0.1
	}

	return model.ClampScore(score)
}

package aggregate

import (
	"context"

	"go.uber.org/zap"

	"headsup/internal/attention"
	"headsup/internal/config"
	"headsup/internal/llm"
	"headsup/internal/model"
	"headsup/internal/normalize"
	"headsup/internal/scoring"
	"headsup/internal/source"
)

// PRPipeline turns code-review records into activity items. Scoring is
// always the deterministic metadata formula; the LLM bundle, when available,
// only enriches title, summary, and action items.
type PRPipeline struct {
	Fetcher    source.PRFetcher
	Scorer     *scoring.Scorer
	Normalizer *normalize.Normalizer
	LLM        llm.Client
	Patterns   []string
	Logger     *zap.Logger
}

func (p *PRPipeline) Source() model.Source { return model.SourceCodeReview }

func (p *PRPipeline) Run(ctx context.Context, owner string, trace func(State)) ([]model.ActivityItem, error) {
	trace(StateFetching)
	prs, err := p.Fetcher.FetchPRs(ctx, owner)
	if err != nil {
		return nil, err
	}

	trace(StateFiltering)
	for i := range prs {
		prs[i].GlobalComments = attention.FilterBots(prs[i].GlobalComments, p.Patterns)
		prs[i].InlineComments = attention.FilterBots(prs[i].InlineComments, p.Patterns)
	}

	trace(StateScoring)
	scores := make([]float64, len(prs))
	for i := range prs {
		scores[i] = p.Scorer.ScorePR(&prs[i])
	}

	trace(StateNormalizing)
	items := make([]model.ActivityItem, 0, len(prs))
	for i := range prs {
		var bundle *llm.Bundle
		if p.LLM != nil {
			system, user := llm.PRPrompts(&prs[i])
			b, err := p.LLM.Analyze(ctx, system, user)
			if err != nil {
				p.Logger.Debug("llm enrichment failed, using deterministic summary",
					zap.Int("pr", prs[i].Number), zap.Error(err))
			} else {
				bundle = b
			}
		}
		items = append(items, p.Normalizer.PR(&prs[i], bundle, scores[i]))
	}

	trace(StateDone)
	return items, nil
}

// IssuePipeline turns issue-tracker records into activity items. The LLM
// decides the score when its reply carries one; otherwise the metadata
// fallback does.
type IssuePipeline struct {
	Normalizer *normalize.Normalizer
	Fetcher    source.IssueFetcher
	LLM        llm.Client
	Logger     *zap.Logger
}

func (p *IssuePipeline) Source() model.Source { return model.SourceIssueTracker }

func (p *IssuePipeline) Run(ctx context.Context, owner string, trace func(State)) ([]model.ActivityItem, error) {
	trace(StateFetching)
	issues, err := p.Fetcher.FetchIssues(ctx, owner)
	if err != nil {
		return nil, err
	}

	trace(StateScoring)
	items := make([]model.ActivityItem, 0, len(issues))
	for i := range issues {
		issue := &issues[i]

		var bundle *llm.Bundle
		score := scoring.FallbackIssueScore(issue)
		if p.LLM != nil {
			system, user := llm.IssuePrompts(issue)
			b, err := p.LLM.Analyze(ctx, system, user)
			if err != nil {
				p.Logger.Debug("llm analysis failed, using metadata fallback",
					zap.String("issue", issue.Key), zap.Error(err))
			} else {
				bundle = b
				score = b.ScoreOrDefault(score)
			}
		}

		items = append(items, p.Normalizer.Issue(issue, bundle, score))
	}

	trace(StateNormalizing)
	trace(StateDone)
	return items, nil
}

// ConversationPipeline turns chat conversations into activity items. Bot
// messages are removed first, then the attention filter drops conversations
// the owner already handled; the rest are scored by the LLM or by the
// conversational heuristic.
type ConversationPipeline struct {
	Normalizer *normalize.Normalizer
	Fetcher    source.ConversationFetcher
	Attention  config.AttentionConfig
	LLM        llm.Client
	Logger     *zap.Logger
}

func (p *ConversationPipeline) Source() model.Source { return model.SourceChat }

func (p *ConversationPipeline) Run(ctx context.Context, owner string, trace func(State)) ([]model.ActivityItem, error) {
	trace(StateFetching)
	convs, err := p.Fetcher.FetchConversations(ctx, owner)
	if err != nil {
		return nil, err
	}

	trace(StateFiltering)
	filter := attention.NewFilter(owner, p.Attention)
	var needing []model.ConversationRecord
	for i := range convs {
		conv := convs[i]
		conv.Replies = attention.FilterBotMessages(conv.Replies, filter.BotPatterns)
		conv.NextMessages = attention.FilterBotMessages(conv.NextMessages, filter.BotPatterns)
		conv.PreviousMessages = attention.FilterBotMessages(conv.PreviousMessages, filter.BotPatterns)

		if filter.NeedsAttention(&conv) {
			needing = append(needing, conv)
		}
	}
	p.Logger.Debug("attention filter applied",
		zap.Int("fetched", len(convs)), zap.Int("needing_attention", len(needing)))

	trace(StateScoring)
	items := make([]model.ActivityItem, 0, len(needing))
	for i := range needing {
		conv := &needing[i]

		var bundle *llm.Bundle
		score := filter.AttentionScore(conv)
		if p.LLM != nil {
			system, user := llm.ConversationPrompts(conv, owner)
			b, err := p.LLM.Analyze(ctx, system, user)
			if err != nil {
				p.Logger.Debug("llm analysis failed, using attention heuristic",
					zap.String("ts", conv.Trigger.Timestamp), zap.Error(err))
			} else {
				bundle = b
				score = b.ScoreOrDefault(score)
			}
		}

		items = append(items, p.Normalizer.Conversation(conv, bundle, score))
	}

	trace(StateNormalizing)
	trace(StateDone)
	return items, nil
}

// Package aggregate runs one pipeline per configured source concurrently,
// isolates per-source failures, and merges the results into a single ranked
// list. A source that errors or misses its deadline contributes nothing; the
// engine always returns whatever the remaining sources produced.
package aggregate

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"headsup/internal/model"
	"headsup/internal/source"
)

// State tracks one source pipeline through a run.
type State string

const (
	StatePending     State = "PENDING"
	StateFetching    State = "FETCHING"
	StateFiltering   State = "FILTERING"
	StateScoring     State = "SCORING"
	StateNormalizing State = "NORMALIZING"
	StateDone        State = "DONE"
	StateFailed      State = "FAILED"
)

// Pipeline is one source's fetch → filter → score → normalize chain. Run
// reports its stage transitions through trace and returns the normalized
// items, or an error that fails this source only.
type Pipeline interface {
	Source() model.Source
	Run(ctx context.Context, owner string, trace func(State)) ([]model.ActivityItem, error)
}

// Engine owns the fan-out/fan-in. Pipelines are held in configured order and
// the merge always concatenates in that order, so ranking never depends on
// which pipeline finished first.
type Engine struct {
	pipelines     []Pipeline
	minScore      float64
	sourceTimeout time.Duration
	globalTimeout time.Duration
	logger        *zap.Logger
}

func NewEngine(pipelines []Pipeline, minScore float64, sourceTimeout, globalTimeout time.Duration, logger *zap.Logger) *Engine {
	return &Engine{
		pipelines:     pipelines,
		minScore:      minScore,
		sourceTimeout: sourceTimeout,
		globalTimeout: globalTimeout,
		logger:        logger,
	}
}

// Result carries the ranked list plus per-source accounting for the response
// wrappers.
type Result struct {
	Items      []model.ActivityItem
	TotalFound int
	Failed     map[model.Source]string
}

// Aggregate runs every pipeline concurrently and returns the ranked union of
// whatever completed within the global deadline. It never returns an error:
// the worst case is an empty list with one logged reason per source.
func (e *Engine) Aggregate(ctx context.Context, owner string) *Result {
	requestID := uuid.NewString()
	log := e.logger.With(zap.String("request_id", requestID), zap.String("owner", owner))
	log.Info("starting aggregation", zap.Int("sources", len(e.pipelines)))

	ctx, cancel := context.WithTimeout(ctx, e.globalTimeout)
	defer cancel()

	type outcome struct {
		index int
		items []model.ActivityItem
		err   error
	}
	results := make(chan outcome, len(e.pipelines))

	for i, p := range e.pipelines {
		go func(index int, p Pipeline) {
			srcLog := log.With(zap.String("source", string(p.Source())))
			srcLog.Debug("pipeline state", zap.String("state", string(StatePending)))

			srcCtx, srcCancel := context.WithTimeout(ctx, e.sourceTimeout)
			defer srcCancel()

			trace := func(s State) {
				srcLog.Debug("pipeline state", zap.String("state", string(s)))
			}
			items, err := p.Run(srcCtx, owner, trace)
			results <- outcome{index: index, items: items, err: err}
		}(i, p)
	}

	// Fan-in: collect until every pipeline reported or the global deadline
	// passed. Slots keep configured order regardless of completion order.
	slots := make([][]model.ActivityItem, len(e.pipelines))
	failed := make(map[model.Source]string)
	received := 0
collect:
	for received < len(e.pipelines) {
		select {
		case out := <-results:
			received++
			src := e.pipelines[out.index].Source()
			if out.err != nil {
				kind := source.Classify(out.err)
				failed[src] = kind
				log.Warn("source pipeline failed",
					zap.String("source", string(src)),
					zap.String("kind", kind),
					zap.Error(out.err))
				continue
			}
			if out.items == nil {
				out.items = []model.ActivityItem{}
			}
			slots[out.index] = out.items
			log.Info("source pipeline done",
				zap.String("source", string(src)),
				zap.Int("items", len(out.items)))
		case <-ctx.Done():
			break collect
		}
	}
	for i, p := range e.pipelines {
		if slots[i] == nil {
			if _, reported := failed[p.Source()]; !reported {
				failed[p.Source()] = "timeout"
				log.Warn("source pipeline missed the global deadline",
					zap.String("source", string(p.Source())))
			}
		}
	}

	result := e.merge(slots)
	result.Failed = failed
	log.Info("aggregation complete",
		zap.Int("total_found", result.TotalFound),
		zap.Int("surfaced", len(result.Items)),
		zap.Int("failed_sources", len(failed)))
	return result
}

// merge concatenates per-source outputs in configured order, drops items
// below the minimum score, and stable-sorts by score descending so equal
// scores keep their per-source production order.
func (e *Engine) merge(slots [][]model.ActivityItem) *Result {
	var combined []model.ActivityItem
	total := 0
	for _, items := range slots {
		total += len(items)
		for _, item := range items {
			if item.Score >= e.minScore {
				combined = append(combined, item)
			}
		}
	}

	sort.SliceStable(combined, func(i, j int) bool {
		return combined[i].Score > combined[j].Score
	})

	if combined == nil {
		combined = []model.ActivityItem{}
	}
	return &Result{Items: combined, TotalFound: total}
}

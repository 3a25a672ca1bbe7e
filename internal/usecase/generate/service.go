// Package generate drives keyword/category generation with a checkpoint after every success.
package generate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/querygen/internal/domain"
	"github.com/kailas-cloud/querygen/internal/logger"
	"github.com/kailas-cloud/querygen/internal/metrics"
	"github.com/kailas-cloud/querygen/internal/parser"
	"github.com/kailas-cloud/querygen/internal/prompt"
)

// Category outcomes, used as log values and metric labels.
const (
	OutcomeGenerated = "generated"
	OutcomeCached    = "cached"
	OutcomeSkipped   = "skipped"
	OutcomeFailed    = "failed"
)

// Summary reports what a run did.
type Summary struct {
	RunID     string
	Generated int
	Cached    int
	Skipped   int
	Failed    int
	Progress  domain.Progress
}

// Service is the sequential generation driver.
type Service struct {
	gen      domain.Generator
	store    AggregateStore
	cache    QueryCache
	progress ProgressPublisher
	model    string
	runID    string
	now      func() time.Time
	logger   *zap.Logger
}

// New creates a Service that generates with model. Every Service gets its own run ID.
func New(gen domain.Generator, store AggregateStore, model string, logger *zap.Logger) *Service {
	runID := uuid.NewString()
	return &Service{
		gen:    gen,
		store:  store,
		model:  model,
		runID:  runID,
		now:    time.Now,
		logger: logger.With(zap.String("run_id", runID)),
	}
}

// RunID identifies this service's run in logs.
func (s *Service) RunID() string { return s.runID }

// WithCache enables the query cache.
func (s *Service) WithCache(c QueryCache) *Service {
	s.cache = c
	return s
}

// WithProgress publishes a snapshot after load and after every save.
func (s *Service) WithProgress(p ProgressPublisher) *Service {
	s.progress = p
	return s
}

// WithClock overrides the time source for last_updated.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Run processes every keyword/category pair not yet done, in source order.
// Per-pair failures are logged and skipped. A save failure aborts with domain.ErrPersistence.
// Cancellation stops the run after the in-flight call and returns the context error.
func (s *Service) Run(ctx context.Context, keywords []string) (Summary, error) {
	sum := Summary{RunID: s.runID}

	agg, err := s.store.Load()
	if err != nil {
		return sum, fmt.Errorf("load aggregate: %w", err)
	}
	agg.Meta.Model = s.model
	agg.Meta.TotalKeywords = len(keywords)
	metrics.KeywordsTotal.Set(float64(len(keywords)))
	s.publish(agg.Progress())

	for i, keyword := range keywords {
		item := agg.EnsureItem(keyword)
		for _, category := range domain.Categories() {
			if err := ctx.Err(); err != nil {
				sum.Progress = agg.Progress()
				return sum, fmt.Errorf("run interrupted: %w", err)
			}

			log := s.logger.With(
				zap.Int("index", i+1),
				zap.Int("total", len(keywords)),
				zap.String("keyword", keyword),
				zap.String("category", string(category)),
			)

			if item.CategoryDone(category) {
				log.Info("Skip, already done")
				s.count(&sum, category, OutcomeSkipped)
				continue
			}

			p := prompt.Build(keyword, category)
			qs, outcome, err := s.produce(logger.ContextWithLogger(ctx, log), p, keyword, category)
			if err != nil {
				if ctx.Err() != nil {
					sum.Progress = agg.Progress()
					return sum, fmt.Errorf("run interrupted: %w", ctx.Err())
				}
				log.Warn("Category failed", zap.Error(err))
				s.count(&sum, category, OutcomeFailed)
				continue
			}

			item.Install(category, qs)
			agg.Touch(s.now())
			if err := s.store.Save(agg); err != nil {
				log.Error("Failed to save aggregate", zap.Error(err))
				sum.Progress = agg.Progress()
				return sum, err
			}
			s.count(&sum, category, outcome)

			s.publish(agg.Progress())
			if s.cache != nil && outcome == OutcomeGenerated {
				s.cache.Put(ctx, s.model, p, qs)
			}

			log.Info("Saved category",
				zap.String("source", outcome),
				zap.Int("completed_keywords", agg.Meta.CompletedKeywords),
				zap.Int("total_keywords", agg.Meta.TotalKeywords),
			)
		}
	}

	sum.Progress = agg.Progress()
	return sum, nil
}

// produce returns a validated query set for prompt p from the cache or the generator.
func (s *Service) produce(
	ctx context.Context, p, keyword string, category domain.Category,
) (domain.QuerySet, string, error) {
	if s.cache != nil {
		if qs, ok := s.cache.Get(ctx, s.model, p); ok {
			return qs, OutcomeCached, nil
		}
	}

	raw, err := s.gen.Generate(ctx, p, s.model)
	if err != nil {
		return nil, "", err
	}

	qs, err := parser.ParseCategory(ctx, raw, keyword, category)
	if err != nil {
		metrics.ParseFailuresTotal.WithLabelValues(parseFailureReason(err)).Inc()
		return nil, "", err
	}
	return qs, OutcomeGenerated, nil
}

func (s *Service) publish(p domain.Progress) {
	metrics.KeywordsCompleted.Set(float64(p.CompletedKeywords))
	if s.progress != nil {
		s.progress.Publish(p)
	}
}

func (s *Service) count(sum *Summary, category domain.Category, outcome string) {
	switch outcome {
	case OutcomeGenerated:
		sum.Generated++
	case OutcomeCached:
		sum.Cached++
	case OutcomeSkipped:
		sum.Skipped++
	case OutcomeFailed:
		sum.Failed++
	}
	metrics.CategoriesTotal.WithLabelValues(string(category), outcome).Inc()
}

func parseFailureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrMalformedJSON):
		return "malformed_json"
	case errors.Is(err, domain.ErrIncompleteResult):
		return "incomplete_result"
	default:
		return "other"
	}
}

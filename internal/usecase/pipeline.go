package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/naka-gawa/github-star-classifier/internal/domain"
	"github.com/naka-gawa/github-star-classifier/internal/gateway"
	"github.com/rs/zerolog"
)

// Filter selects which fetched repositories are handed to classification.
type Filter struct {
	MinStars        int
	ExcludeForks    bool
	IncludeArchived bool
	// MaxRepos caps the number of kept repositories; 0 means no limit.
	MaxRepos int
}

// DefaultFilter keeps everything except forks and archived repositories.
func DefaultFilter() Filter {
	return Filter{ExcludeForks: true}
}

// Apply returns the repositories of repos that pass the filter, in order.
func (f Filter) Apply(repos []domain.Repository) []domain.Repository {
	kept := make([]domain.Repository, 0, len(repos))
	for _, r := range repos {
		if r.StargazersCount < f.MinStars {
			continue
		}
		if f.ExcludeForks && r.Fork {
			continue
		}
		if !f.IncludeArchived && r.Archived {
			continue
		}
		if f.MaxRepos > 0 && len(kept) >= f.MaxRepos {
			break
		}
		kept = append(kept, r)
	}
	return kept
}

// Pipeline is the use case for a full classification run.
// It orchestrates fetching, filtering, classification and aggregation.
type Pipeline struct {
	fetcher    gateway.Fetcher
	classifier *Classifier
	aggregator *Aggregator
	filter     Filter
	strict     bool
	now        func() time.Time
	logger     zerolog.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithFilter sets the repository filter. The default is DefaultFilter.
func WithFilter(f Filter) PipelineOption {
	return func(p *Pipeline) { p.filter = f }
}

// WithStrictRecords makes a run fail when any record is invalid instead of skipping it.
func WithStrictRecords(strict bool) PipelineOption {
	return func(p *Pipeline) { p.strict = strict }
}

// WithClock overrides the time source used for CompletedAt.
func WithClock(now func() time.Time) PipelineOption {
	return func(p *Pipeline) { p.now = now }
}

// NewPipeline creates a new Pipeline instance.
func NewPipeline(fetcher gateway.Fetcher, classifier *Classifier, aggregator *Aggregator, logger zerolog.Logger, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		fetcher:    fetcher,
		classifier: classifier,
		aggregator: aggregator,
		filter:     DefaultFilter(),
		now:        time.Now,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run fetches the starred repositories of user, classifies them and computes their statistics.
func (p *Pipeline) Run(ctx context.Context, user string) (*domain.Result, error) {
	p.logger.Info().Str("user", user).Msg("Usecase: Starting classification run...")

	fetched, err := p.fetcher.FetchStarred(ctx, user)
	if err != nil {
		return nil, err
	}
	repos := p.filter.Apply(fetched)
	p.logger.Info().Int("fetched", len(fetched)).Int("kept", len(repos)).Msg("Usecase: Repositories filtered.")

	classified, skipped, err := p.classifier.ClassifyAll(ctx, repos)
	if err != nil {
		return nil, fmt.Errorf("classification interrupted: %w", err)
	}
	if p.strict && len(skipped) > 0 {
		return nil, fmt.Errorf("%d invalid records: %w", len(skipped), errors.Join(skipped...))
	}

	stats := p.aggregator.Aggregate(classified)
	p.logger.Info().Int("repos", stats.TotalRepos).Int("skipped", len(skipped)).Msg("Usecase: Classification run complete.")

	return &domain.Result{
		Repos:       classified,
		Stats:       stats,
		Skipped:     len(skipped),
		CompletedAt: p.now(),
	}, nil
}

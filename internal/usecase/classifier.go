package usecase

import (
	"context"
	"runtime"
	"strings"

	"github.com/naka-gawa/github-star-classifier/internal/domain"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	keywordWeight = 1
	topicWeight   = 2
)

// Classify returns the category of repo under tax.
// Keywords are matched as plain substrings of the repository text, topics are
// matched exactly (case-insensitive) against the repository topics and weigh
// double. The highest score wins; ties go to the category declared first.
// Repositories without any hit fall back to domain.OtherCategory.
func Classify(repo domain.Repository, tax domain.Taxonomy) string {
	best := domain.OtherCategory
	bestScore := 0
	for _, s := range Score(repo, tax) {
		if s.Score > bestScore {
			best, bestScore = s.Category, s.Score
		}
	}
	return best
}

// Score returns the positive category scores of repo, in taxonomy order.
func Score(repo domain.Repository, tax domain.Taxonomy) []domain.CategoryScore {
	text := searchText(repo)
	topics := make(map[string]struct{}, len(repo.Topics))
	for _, t := range repo.Topics {
		topics[strings.ToLower(t)] = struct{}{}
	}

	var scores []domain.CategoryScore
	for _, c := range tax {
		score := 0
		for _, kw := range c.Keywords {
			if strings.Contains(text, strings.ToLower(kw)) {
				score += keywordWeight
			}
		}
		for _, t := range c.Topics {
			if _, ok := topics[strings.ToLower(t)]; ok {
				score += topicWeight
			}
		}
		if score > 0 {
			scores = append(scores, domain.CategoryScore{Category: c.Name, Score: score})
		}
	}
	return scores
}

func searchText(repo domain.Repository) string {
	return strings.ToLower(strings.Join([]string{
		repo.Name,
		repo.Description,
		strings.Join(repo.Topics, " "),
		repo.Language,
	}, " "))
}

// Classifier applies Classify to whole batches.
type Classifier struct {
	taxonomy domain.Taxonomy
	workers  int
	logger   zerolog.Logger
}

// ClassifierOption configures a Classifier.
type ClassifierOption func(*Classifier)

// WithWorkers bounds the number of records classified concurrently.
func WithWorkers(n int) ClassifierOption {
	return func(c *Classifier) {
		if n > 0 {
			c.workers = n
		}
	}
}

// NewClassifier creates a new Classifier instance.
func NewClassifier(tax domain.Taxonomy, logger zerolog.Logger, opts ...ClassifierOption) *Classifier {
	c := &Classifier{
		taxonomy: tax,
		workers:  runtime.GOMAXPROCS(0),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Taxonomy returns the category table the classifier was built with.
func (c *Classifier) Taxonomy() domain.Taxonomy {
	return c.taxonomy
}

// ClassifyAll classifies every valid record of repos and returns copies with
// Category set, in input order. Invalid records are skipped and reported in
// skipped; the caller decides whether that fails the run. The input slice is
// not modified. err is only set when ctx is cancelled.
func (c *Classifier) ClassifyAll(ctx context.Context, repos []domain.Repository) (classified []domain.Repository, skipped []error, err error) {
	c.logger.Debug().Int("repos", len(repos)).Msg("classifying repositories")

	out := make([]domain.Repository, len(repos))
	valid := make([]bool, len(repos))
	errs := make([]error, len(repos))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(c.workers)
	for i := range repos {
		i := i
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			repo := repos[i]
			if err := repo.Validate(); err != nil {
				errs[i] = err
				return nil
			}
			repo.Topics = append([]string(nil), repo.Topics...)
			repo.Category = Classify(repo, c.taxonomy)
			out[i] = repo
			valid[i] = true
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}

	classified = make([]domain.Repository, 0, len(repos))
	for i := range repos {
		if errs[i] != nil {
			c.logger.Warn().Err(errs[i]).Int("index", i).Msg("skipping repository")
			skipped = append(skipped, errs[i])
			continue
		}
		if valid[i] {
			c.logger.Debug().Str("repo", out[i].Name).Str("category", out[i].Category).Msg("classified")
			classified = append(classified, out[i])
		}
	}
	return classified, skipped, nil
}

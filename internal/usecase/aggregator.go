// Package usecase contains the business logic of the application.
package usecase

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"github.com/naka-gawa/github-star-classifier/internal/domain"
	"github.com/rs/zerolog"
)

// DefaultTopTopics is the size of the topic frequency table when none is configured.
const DefaultTopTopics = 10

// Aggregator is the use case for summarizing a classified batch.
type Aggregator struct {
	topTopics int
	logger    zerolog.Logger
}

// NewAggregator creates a new Aggregator instance.
// topTopics <= 0 selects DefaultTopTopics.
func NewAggregator(topTopics int, logger zerolog.Logger) *Aggregator {
	return &Aggregator{
		topTopics: topTopics,
		logger:    logger,
	}
}

// Aggregate computes the statistics of repos.
func (a *Aggregator) Aggregate(repos []domain.Repository) *domain.Statistics {
	a.logger.Debug().Int("repos", len(repos)).Msg("Usecase: Starting statistics aggregation...")
	s := Aggregate(repos, a.topTopics)
	a.logger.Debug().
		Int("categories", len(s.Categories)).
		Int("languages", len(s.Languages)).
		Int("total_stars", s.TotalStars).
		Msg("Usecase: Aggregation complete.")
	return s
}

// Aggregate computes corpus-level statistics over a classified batch.
// An empty batch yields zero values, empty maps and nil records instead of an error.
// Ties for the most starred and most recently updated repository go to the
// record that comes first in repos.
func Aggregate(repos []domain.Repository, topN int) *domain.Statistics {
	if topN <= 0 {
		topN = DefaultTopTopics
	}

	s := &domain.Statistics{
		TotalRepos:               len(repos),
		Categories:               make(map[string]int),
		CategoriesWithPercentage: make(map[string]domain.CategoryShare),
		Languages:                make(map[string]int),
		TopTopics:                []domain.TopicCount{},
	}
	if len(repos) == 0 {
		return s
	}

	owners := make(map[string]struct{})
	stars := make([]float64, 0, len(repos))
	var mostStarred, recentlyUpdated int
	oldest, newest := repos[0].CreatedAt, repos[0].CreatedAt

	for i, r := range repos {
		s.Categories[r.Category]++
		s.Languages[r.LanguageOrUnknown()]++
		stars = append(stars, float64(r.StargazersCount))
		owners[r.Owner] = struct{}{}
		if r.Archived {
			s.ArchivedCount++
		}
		if r.Fork {
			s.ForkCount++
		}
		if r.StargazersCount > repos[mostStarred].StargazersCount {
			mostStarred = i
		}
		if r.UpdatedAt.After(repos[recentlyUpdated].UpdatedAt) {
			recentlyUpdated = i
		}
		if r.CreatedAt.Before(oldest) {
			oldest = r.CreatedAt
		}
		if r.CreatedAt.After(newest) {
			newest = r.CreatedAt
		}
	}

	for category, count := range s.Categories {
		s.CategoriesWithPercentage[category] = domain.CategoryShare{
			Count:      count,
			Percentage: percentage(count, len(repos)),
		}
	}

	data := stats.Float64Data(stars)
	s.AvgStars = orZero(data.Mean())
	s.MedianStars = orZero(data.Median())
	s.TotalStars = int(orZero(data.Sum()))
	s.MinStars = int(orZero(data.Min()))
	s.MaxStars = int(orZero(data.Max()))

	most, recent := repos[mostStarred], repos[recentlyUpdated]
	s.MostStarred = &most
	s.RecentlyUpdated = &recent
	s.OldestRepo = &oldest
	s.NewestRepo = &newest
	s.UniqueOwners = len(owners)
	s.TopTopics = topTopics(repos, topN)

	return s
}

// topTopics counts every topic of every repository and keeps the n most
// frequent. Equal counts keep the order in which the topics were first seen.
func topTopics(repos []domain.Repository, n int) []domain.TopicCount {
	index := make(map[string]int)
	counts := []domain.TopicCount{}
	for _, r := range repos {
		for _, t := range r.Topics {
			if i, ok := index[t]; ok {
				counts[i].Count++
				continue
			}
			index[t] = len(counts)
			counts = append(counts, domain.TopicCount{Topic: t, Count: 1})
		}
	}
	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})
	if len(counts) > n {
		counts = counts[:n]
	}
	return counts
}

func percentage(count, total int) float64 {
	return math.Round(float64(count)/float64(total)*100*100) / 100
}

// orZero drops the error of a stats call; inputs here are never empty.
func orZero(v float64, err error) float64 {
	if err != nil {
		return 0
	}
	return v
}

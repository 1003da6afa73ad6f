package usecase

import (
	"testing"
	"time"

	"github.com/naka-gawa/github-star-classifier/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2024, time.January, d, 0, 0, 0, 0, time.UTC)
}

// TestAggregate uses a table-driven approach to test the aggregation rules.
func TestAggregate(t *testing.T) {
	testCases := []struct {
		name   string
		repos  []domain.Repository
		assert func(t *testing.T, s *domain.Statistics)
	}{
		{
			name:  "empty batch - zero values instead of a failure",
			repos: nil,
			assert: func(t *testing.T, s *domain.Statistics) {
				assert.Equal(t, 0, s.TotalRepos)
				assert.Empty(t, s.Categories)
				assert.NotNil(t, s.Categories)
				assert.Empty(t, s.CategoriesWithPercentage)
				assert.Empty(t, s.Languages)
				assert.Empty(t, s.TopTopics)
				assert.Zero(t, s.AvgStars)
				assert.Zero(t, s.MedianStars)
				assert.Zero(t, s.TotalStars)
				assert.Zero(t, s.MinStars)
				assert.Zero(t, s.MaxStars)
				assert.Nil(t, s.MostStarred)
				assert.Nil(t, s.RecentlyUpdated)
				assert.Nil(t, s.OldestRepo)
				assert.Nil(t, s.NewestRepo)
			},
		},
		{
			name: "star statistics",
			repos: []domain.Repository{
				{Name: "a", StargazersCount: 5, Category: "X"},
				{Name: "b", StargazersCount: 100, Category: "X"},
				{Name: "c", StargazersCount: 20, Category: "Y"},
			},
			assert: func(t *testing.T, s *domain.Statistics) {
				assert.InDelta(t, 41.67, s.AvgStars, 0.01)
				assert.Equal(t, 20.0, s.MedianStars)
				assert.Equal(t, 125, s.TotalStars)
				assert.Equal(t, 5, s.MinStars)
				assert.Equal(t, 100, s.MaxStars)
				require.NotNil(t, s.MostStarred)
				assert.Equal(t, "b", s.MostStarred.Name)
				assert.Equal(t, 100, s.MostStarred.StargazersCount)
			},
		},
		{
			name: "two docker repositories share one category",
			repos: []domain.Repository{
				{Name: "a", Topics: []string{"docker"}, Category: "DevOps & Infrastructure"},
				{Name: "b", Topics: []string{"docker"}, Category: "DevOps & Infrastructure"},
			},
			assert: func(t *testing.T, s *domain.Statistics) {
				assert.Equal(t, 2, s.Categories["DevOps & Infrastructure"])
				assert.Equal(t, domain.CategoryShare{Count: 2, Percentage: 100.0}, s.CategoriesWithPercentage["DevOps & Infrastructure"])
				assert.Equal(t, []domain.TopicCount{{Topic: "docker", Count: 2}}, s.TopTopics)
			},
		},
		{
			name: "ties keep the first record",
			repos: []domain.Repository{
				{Name: "first", StargazersCount: 10, UpdatedAt: day(5), CreatedAt: day(3)},
				{Name: "second", StargazersCount: 10, UpdatedAt: day(5), CreatedAt: day(1)},
				{Name: "third", StargazersCount: 1, UpdatedAt: day(2), CreatedAt: day(9)},
			},
			assert: func(t *testing.T, s *domain.Statistics) {
				assert.Equal(t, "first", s.MostStarred.Name)
				assert.Equal(t, "first", s.RecentlyUpdated.Name)
				assert.Equal(t, day(1), *s.OldestRepo)
				assert.Equal(t, day(9), *s.NewestRepo)
			},
		},
		{
			name: "counts of languages, owners, archived and forks",
			repos: []domain.Repository{
				{Name: "a", Language: "Go", Owner: "x", Archived: true},
				{Name: "b", Language: "", Owner: "x", Fork: true},
				{Name: "c", Language: "Go", Owner: "y", Archived: true, Fork: true},
			},
			assert: func(t *testing.T, s *domain.Statistics) {
				assert.Equal(t, map[string]int{"Go": 2, domain.UnknownLanguage: 1}, s.Languages)
				assert.Equal(t, 2, s.UniqueOwners)
				assert.Equal(t, 2, s.ArchivedCount)
				assert.Equal(t, 2, s.ForkCount)
			},
		},
		{
			name: "top topics are ordered by count then first appearance",
			repos: []domain.Repository{
				{Name: "a", Topics: []string{"go", "cli"}},
				{Name: "b", Topics: []string{"rust", "cli"}},
				{Name: "c", Topics: []string{"go", "wasm"}},
			},
			assert: func(t *testing.T, s *domain.Statistics) {
				assert.Equal(t, []domain.TopicCount{
					{Topic: "go", Count: 2},
					{Topic: "cli", Count: 2},
					{Topic: "rust", Count: 1},
					{Topic: "wasm", Count: 1},
				}, s.TopTopics)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tc.assert(t, Aggregate(tc.repos, 0))
		})
	}
}

func TestAggregate_CountsAndPercentagesAddUp(t *testing.T) {
	categories := []string{"A", "B", "C", "A", "B", "A", "D"}
	repos := make([]domain.Repository, len(categories))
	for i, c := range categories {
		repos[i] = domain.Repository{Name: c, Category: c}
	}

	s := Aggregate(repos, 0)

	var count int
	var pct float64
	for name, n := range s.Categories {
		count += n
		pct += s.CategoriesWithPercentage[name].Percentage
	}
	assert.Equal(t, s.TotalRepos, count)
	assert.InDelta(t, 100.0, pct, 0.1)
	assert.Equal(t, 42.86, s.CategoriesWithPercentage["A"].Percentage)
}

func TestAggregate_TopTopicsTruncated(t *testing.T) {
	repos := []domain.Repository{{Name: "a", Topics: []string{"t1", "t2", "t3", "t4"}}}

	assert.Len(t, Aggregate(repos, 2).TopTopics, 2)
	assert.Len(t, Aggregate(repos, 0).TopTopics, 4)
}

func TestAggregator_Aggregate(t *testing.T) {
	topics := make([]string, 15)
	for i := range topics {
		topics[i] = string(rune('a' + i))
	}
	a := NewAggregator(0, zerolog.Nop())

	s := a.Aggregate([]domain.Repository{{Name: "a", Topics: topics, StargazersCount: 3}})

	assert.Equal(t, 1, s.TotalRepos)
	assert.Len(t, s.TopTopics, DefaultTopTopics)
	assert.Equal(t, 3.0, s.AvgStars)
}

package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/naka-gawa/github-star-classifier/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockFetcher is a mock implementation of the gateway.Fetcher interface.
// It allows us to simulate the behavior of the GitHub gateway without making real API calls.
type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) FetchStarred(ctx context.Context, user string) ([]domain.Repository, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Repository), args.Error(1)
}

func TestFilter_Apply(t *testing.T) {
	repos := []domain.Repository{
		{Name: "small", StargazersCount: 1},
		{Name: "fork", StargazersCount: 50, Fork: true},
		{Name: "archived", StargazersCount: 50, Archived: true},
		{Name: "big", StargazersCount: 50},
		{Name: "bigger", StargazersCount: 500},
	}

	names := func(rs []domain.Repository) []string {
		out := []string{}
		for _, r := range rs {
			out = append(out, r.Name)
		}
		return out
	}

	testCases := []struct {
		name     string
		filter   Filter
		expected []string
	}{
		{"default drops forks and archived", DefaultFilter(), []string{"small", "big", "bigger"}},
		{"min stars", Filter{MinStars: 10, ExcludeForks: true}, []string{"big", "bigger"}},
		{"keep everything", Filter{IncludeArchived: true}, []string{"small", "fork", "archived", "big", "bigger"}},
		{"max repos", Filter{IncludeArchived: true, MaxRepos: 2}, []string{"small", "fork"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, names(tc.filter.Apply(repos)))
		})
	}
}

func TestPipeline_Run(t *testing.T) {
	completedAt := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

	testCases := []struct {
		name          string
		fetched       []domain.Repository
		fetchErr      error
		strict        bool
		expectError   bool
		expectTotal   int
		expectSkipped int
	}{
		{
			name: "happy path - fetch, filter, classify and aggregate",
			fetched: []domain.Repository{
				{Name: "react-router", Topics: []string{"react"}, StargazersCount: 10},
				{Name: "a-fork", Fork: true},
				{Name: "", StargazersCount: 2},
			},
			expectTotal:   1,
			expectSkipped: 1,
		},
		{
			name:        "error case - fetch fails",
			fetchErr:    errors.New("github api error"),
			expectError: true,
		},
		{
			name:        "strict mode fails on invalid records",
			fetched:     []domain.Repository{{Name: ""}},
			strict:      true,
			expectError: true,
		},
		{
			name:        "empty case - nothing starred",
			fetched:     []domain.Repository{},
			expectTotal: 0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Arrange ---
			fetcher := new(mockFetcher)
			fetcher.On("FetchStarred", mock.Anything, "any-user").Return(tc.fetched, tc.fetchErr)

			p := NewPipeline(
				fetcher,
				NewClassifier(DefaultTaxonomy(), zerolog.Nop()),
				NewAggregator(0, zerolog.Nop()),
				zerolog.Nop(),
				WithStrictRecords(tc.strict),
				WithClock(func() time.Time { return completedAt }),
			)

			// --- Act ---
			result, err := p.Run(context.Background(), "any-user")

			// --- Assert ---
			if tc.expectError {
				assert.Error(t, err)
				assert.Nil(t, result)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.expectTotal, result.Stats.TotalRepos)
				assert.Len(t, result.Repos, tc.expectTotal)
				assert.Equal(t, tc.expectSkipped, result.Skipped)
				assert.Equal(t, completedAt, result.CompletedAt)
			}

			fetcher.AssertExpectations(t)
		})
	}
}

func TestPipeline_Run_StrictErrorWrapsInvalidRecord(t *testing.T) {
	fetcher := new(mockFetcher)
	fetcher.On("FetchStarred", mock.Anything, "").Return([]domain.Repository{{Name: "ok"}, {Name: "bad", ForksCount: -2}}, nil)

	p := NewPipeline(fetcher, NewClassifier(DefaultTaxonomy(), zerolog.Nop()), NewAggregator(0, zerolog.Nop()), zerolog.Nop(), WithStrictRecords(true))

	_, err := p.Run(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidRecord)
}

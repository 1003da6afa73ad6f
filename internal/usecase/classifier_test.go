package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/naka-gawa/github-star-classifier/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tax := DefaultTaxonomy()

	testCases := []struct {
		name     string
		repo     domain.Repository
		expected string
	}{
		{
			name: "topics dominate - react-router is web development",
			repo: domain.Repository{
				Name:     "react-router",
				Topics:   []string{"react", "javascript"},
				Language: "JavaScript",
			},
			expected: "Web Development",
		},
		{
			name:     "no hit falls back to Other",
			repo:     domain.Repository{Name: "foo-bar", Language: "Unknown"},
			expected: domain.OtherCategory,
		},
		{
			name:     "topic match is case-insensitive",
			repo:     domain.Repository{Name: "x", Topics: []string{"Docker"}},
			expected: "DevOps & Infrastructure",
		},
		{
			name:     "keywords are unanchored substrings",
			repo:     domain.Repository{Name: "main"},
			expected: "Machine Learning & AI",
		},
		{
			name:     "description participates in matching",
			repo:     domain.Repository{Name: "x", Description: "A PostgreSQL ORM"},
			expected: "Databases",
		},
		{
			name:     "missing optional fields default to empty",
			repo:     domain.Repository{Name: "q"},
			expected: domain.OtherCategory,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Classify(tc.repo, tax))
		})
	}
}

func TestScore_ReactRouter(t *testing.T) {
	repo := domain.Repository{
		Name:     "react-router",
		Topics:   []string{"react", "javascript"},
		Language: "JavaScript",
	}

	scores := Score(repo, DefaultTaxonomy())
	require.NotEmpty(t, scores)

	byName := map[string]int{}
	for _, s := range scores {
		byName[s.Category] = s.Score
	}
	// keywords react + javascript, topics react + javascript
	assert.Equal(t, 6, byName["Web Development"])
	// "script" inside "javascript"
	assert.Equal(t, 1, byName["Tools & Utilities"])
	for name, score := range byName {
		if name != "Web Development" {
			assert.Less(t, score, byName["Web Development"], name)
		}
	}
}

func TestScore_TopicNameProperty(t *testing.T) {
	for _, c := range DefaultTaxonomy() {
		for _, topic := range c.Topics {
			repo := domain.Repository{Name: strings.ToUpper(topic), Topics: []string{strings.ToUpper(topic)}}
			var got int
			for _, s := range Score(repo, domain.Taxonomy{{Name: c.Name, Topics: c.Topics}}) {
				got = s.Score
			}
			assert.GreaterOrEqual(t, got, 2, "%s / %s", c.Name, topic)
		}
	}
}

func TestClassify_TieGoesToFirstDeclared(t *testing.T) {
	tax := domain.Taxonomy{
		{Name: "First", Keywords: []string{"alpha"}},
		{Name: "Second", Keywords: []string{"beta"}},
	}
	repo := domain.Repository{Name: "alpha-beta"}

	assert.Equal(t, "First", Classify(repo, tax))

	swapped := domain.Taxonomy{tax[1], tax[0]}
	assert.Equal(t, "Second", Classify(repo, swapped))
}

func TestClassify_HigherScoreBeatsDeclarationOrder(t *testing.T) {
	tax := domain.Taxonomy{
		{Name: "First", Keywords: []string{"alpha"}},
		{Name: "Second", Keywords: []string{"beta"}, Topics: []string{"beta"}},
	}
	repo := domain.Repository{Name: "alpha-beta", Topics: []string{"beta"}}

	assert.Equal(t, "Second", Classify(repo, tax))
}

func TestClassify_EmptyTaxonomy(t *testing.T) {
	repo := domain.Repository{Name: "react", Topics: []string{"react"}}
	assert.Equal(t, domain.OtherCategory, Classify(repo, nil))
	assert.Empty(t, Score(repo, domain.Taxonomy{}))
}

func TestClassify_IsPure(t *testing.T) {
	tax := DefaultTaxonomy()
	repo := domain.Repository{
		Name:        "kube-prometheus",
		Description: "Monitoring stack for Kubernetes",
		Topics:      []string{"Kubernetes", "monitoring"},
		Language:    "Jsonnet",
	}
	before := repo
	before.Topics = append([]string(nil), repo.Topics...)

	first := Classify(repo, tax)
	second := Classify(repo, tax)

	assert.Equal(t, first, second)
	assert.Equal(t, before, repo)
	assert.Equal(t, "DevOps & Infrastructure", first)
}

func TestClassifier_ClassifyAll(t *testing.T) {
	input := []domain.Repository{
		{Name: "react-router", Topics: []string{"react", "javascript"}, Language: "JavaScript"},
		{Name: "", StargazersCount: 3},
		{Name: "docker-compose", Topics: []string{"docker"}},
		{Name: "broken", StargazersCount: -1},
		{Name: "foo-bar", Language: "Unknown"},
	}
	snapshot := make([]domain.Repository, len(input))
	copy(snapshot, input)

	c := NewClassifier(DefaultTaxonomy(), zerolog.Nop(), WithWorkers(2))
	classified, skipped, err := c.ClassifyAll(context.Background(), input)
	require.NoError(t, err)

	require.Len(t, classified, 3)
	assert.Equal(t, "react-router", classified[0].Name)
	assert.Equal(t, "Web Development", classified[0].Category)
	assert.Equal(t, "docker-compose", classified[1].Name)
	assert.Equal(t, "DevOps & Infrastructure", classified[1].Category)
	assert.Equal(t, "foo-bar", classified[2].Name)
	assert.Equal(t, domain.OtherCategory, classified[2].Category)

	require.Len(t, skipped, 2)
	for _, e := range skipped {
		assert.ErrorIs(t, e, domain.ErrInvalidRecord)
	}

	// The caller's records are untouched.
	assert.Equal(t, snapshot, input)
}

func TestClassifier_ClassifyAll_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClassifier(DefaultTaxonomy(), zerolog.Nop())
	_, _, err := c.ClassifyAll(ctx, []domain.Repository{{Name: "a"}, {Name: "b"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClassifier_ClassifyAll_Empty(t *testing.T) {
	c := NewClassifier(DefaultTaxonomy(), zerolog.Nop())
	classified, skipped, err := c.ClassifyAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, classified)
	assert.Empty(t, skipped)
}

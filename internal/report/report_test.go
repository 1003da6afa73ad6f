package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/naka-gawa/github-star-classifier/internal/domain"
	"github.com/naka-gawa/github-star-classifier/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)

func testResult() *domain.Result {
	mit := "MIT"
	repos := []domain.Repository{
		{
			ID: 1, Name: "gin", FullName: "gin-gonic/gin", HTMLURL: "https://github.com/gin-gonic/gin",
			Description: "Gin is a HTTP web framework, written in Go", Language: "Go",
			StargazersCount: 75000, ForksCount: 8000, Topics: []string{"web", "framework", "go"},
			UpdatedAt: time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC), Owner: "gin-gonic",
			License: &mit, Category: "Web Development",
		},
		{
			ID: 2, Name: "fzf", FullName: "junegunn/fzf", HTMLURL: "https://github.com/junegunn/fzf",
			Description: `A command-line "fuzzy" finder`, Language: "Go",
			StargazersCount: 60000, Topics: []string{"cli"},
			UpdatedAt: time.Date(2024, 5, 25, 0, 0, 0, 0, time.UTC), Owner: "junegunn",
			Category: "Tools & Utilities",
		},
		{
			ID: 3, Name: "echo", FullName: "labstack/echo", HTMLURL: "https://github.com/labstack/echo",
			StargazersCount: 28000, Topics: []string{},
			UpdatedAt: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), Owner: "labstack",
			Category: "Web Development",
		},
	}
	return &domain.Result{
		Repos: repos,
		Stats: &domain.Statistics{
			TotalRepos: 3,
			Categories: map[string]int{"Web Development": 2, "Tools & Utilities": 1},
			CategoriesWithPercentage: map[string]domain.CategoryShare{
				"Web Development":   {Count: 2, Percentage: 66.67},
				"Tools & Utilities": {Count: 1, Percentage: 33.33},
			},
			Languages:       map[string]int{"Go": 2, "Unknown": 1},
			AvgStars:        54333.33,
			MedianStars:     60000,
			TotalStars:      163000,
			MostStarred:     &repos[0],
			RecentlyUpdated: &repos[1],
			TopTopics:       []domain.TopicCount{{Topic: "web", Count: 1}},
		},
		Skipped:     1,
		CompletedAt: fixedNow,
	}
}

func TestWriter_WriteAll(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	w := &Writer{Dir: dir, Now: func() time.Time { return fixedNow }, Logger: logger.Discard()}

	files, err := w.WriteAll(context.Background(), testResult(), Formats)
	require.NoError(t, err)

	assert.Equal(t, []string{"csv", "html", "markdown", "repos_json", "stats_json"}, files.Kinds())
	assert.Equal(t, filepath.Join(dir, "starred_repos_20240601_093000.json"), files["repos_json"])
	assert.Equal(t, filepath.Join(dir, "statistics_20240601_093000.json"), files["stats_json"])
	assert.Equal(t, filepath.Join(dir, "starred_repos_20240601_093000.csv"), files["csv"])
	assert.Equal(t, filepath.Join(dir, MarkdownFile), files["markdown"])
	assert.Equal(t, filepath.Join(dir, HTMLFile), files["html"])

	for _, path := range files {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Positive(t, info.Size(), path)
	}

	raw, err := os.ReadFile(files["repos_json"])
	require.NoError(t, err)
	var repos []domain.Repository
	require.NoError(t, json.Unmarshal(raw, &repos))
	require.Len(t, repos, 3)
	assert.Equal(t, "Web Development", repos[0].Category)
}

func TestWriter_WriteAll_DataOnly(t *testing.T) {
	dir := t.TempDir()
	w := &Writer{Dir: dir, Now: func() time.Time { return fixedNow }, Logger: logger.Discard()}

	files, err := w.WriteAll(context.Background(), testResult(), []string{FormatJSON, FormatCSV, FormatCSV})
	require.NoError(t, err)
	assert.Equal(t, []string{"csv", "repos_json", "stats_json"}, files.Kinds())

	_, err = os.Stat(filepath.Join(dir, MarkdownFile))
	assert.True(t, os.IsNotExist(err))
}

func TestWriter_WriteAll_Errors(t *testing.T) {
	w := NewWriter(t.TempDir(), logger.Discard())

	_, err := w.WriteAll(context.Background(), testResult(), []string{"pdf"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported report format "pdf"`)

	_, err = w.WriteAll(context.Background(), nil, Formats)
	assert.Error(t, err)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, testResult().Repos))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, csvHeader, records[0])

	gin := records[1]
	assert.Equal(t, "gin-gonic/gin", gin[2])
	assert.Equal(t, "Gin is a HTTP web framework, written in Go", gin[3])
	assert.Equal(t, "web, framework, go", gin[8])
	assert.Equal(t, "MIT", gin[16])
	assert.Equal(t, "Web Development", gin[22])

	assert.Equal(t, `A command-line "fuzzy" finder`, records[2][3])
	assert.Equal(t, "Unknown", records[3][5])
}

func TestRenderMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderMarkdown(&buf, testResult(), fixedNow))
	md := buf.String()

	assert.True(t, strings.HasPrefix(md, "# GitHub Starred Repositories Report\n"))
	assert.Contains(t, md, "*Generated on 2024-06-01 09:30:00*")
	assert.Contains(t, md, "- **Total Stars**: 163,000")
	assert.Contains(t, md, "- **Average Stars per Repository**: 54333.3")
	assert.Contains(t, md, "- **Skipped Records**: 1")
	assert.Contains(t, md, "| Web Development | 2 | 66.7% |")
	assert.Contains(t, md, "| Tools & Utilities | 1 | 33.3% |")
	assert.Contains(t, md, "| Go | 2 |")
	assert.Contains(t, md, "### Web Development (2 repositories)")
	assert.Contains(t, md, "#### [gin-gonic/gin](https://github.com/gin-gonic/gin)")
	assert.Contains(t, md, "- **Topics**: `web`, `framework`, `go`")
	assert.Contains(t, md, "- **Updated**: 2024-05-20")
	assert.Contains(t, md, "- [Most Starred Repository](https://github.com/gin-gonic/gin): **gin-gonic/gin** (75,000 stars)")
	assert.Contains(t, md, "- [Recently Updated](https://github.com/junegunn/fzf): **junegunn/fzf** (updated 2024-05-25)")

	// Categories are listed largest first, repositories by stars.
	assert.Less(t, strings.Index(md, "### Web Development"), strings.Index(md, "### Tools & Utilities"))
	assert.Less(t, strings.Index(md, "[gin-gonic/gin]"), strings.Index(md, "[labstack/echo]"))
}

func TestRenderMarkdown_Empty(t *testing.T) {
	res := &domain.Result{Stats: &domain.Statistics{
		Categories:               map[string]int{},
		CategoriesWithPercentage: map[string]domain.CategoryShare{},
		Languages:                map[string]int{},
	}}

	var buf bytes.Buffer
	require.NoError(t, RenderMarkdown(&buf, res, fixedNow))
	assert.Contains(t, buf.String(), "- **Total Repositories**: 0")
	assert.NotContains(t, buf.String(), "Quick Links")
}

func TestRenderMarkdown_TruncatesPerCategory(t *testing.T) {
	res := testResult()
	res.Repos = nil
	for i := 0; i < 12; i++ {
		res.Repos = append(res.Repos, domain.Repository{Name: "r", FullName: "o/r", StargazersCount: i, Category: "Other"})
	}

	var buf bytes.Buffer
	require.NoError(t, RenderMarkdown(&buf, res, fixedNow))
	assert.Equal(t, 10, strings.Count(buf.String(), "#### [o/r]"))
	assert.Contains(t, buf.String(), "*... and 2 more repositories in this category*")
}

func TestRenderHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderHTML(&buf, testResult(), fixedNow))
	page := buf.String()

	assert.Contains(t, page, "<title>GitHub Starred Repositories Report</title>")
	assert.Contains(t, page, assetsHost+"echarts.min.js")
	assert.Contains(t, page, "Generated on 2024-06-01 09:30:00")
	assert.Contains(t, page, "163,000")
	assert.Contains(t, page, `id="category_distribution"`)
	assert.Contains(t, page, `id="language_distribution"`)
	assert.Contains(t, page, `id="stars_by_category"`)
	assert.Contains(t, page, "Web Development (2 repos)")
	assert.Contains(t, page, "Tools &amp; Utilities (1 repos)")
	assert.Contains(t, page, `href="https://github.com/gin-gonic/gin"`)
	assert.Equal(t, 1, strings.Count(page, "</body>"))
}

func TestRenderHTML_LimitsReposPerCategory(t *testing.T) {
	res := testResult()
	res.Repos = nil
	for i := 0; i < 8; i++ {
		res.Repos = append(res.Repos, domain.Repository{Name: "repo", HTMLURL: "https://example.com", Category: "Other"})
	}

	var buf bytes.Buffer
	require.NoError(t, RenderHTML(&buf, res, fixedNow))
	assert.Equal(t, 6, strings.Count(buf.String(), `href="https://example.com"`))
	assert.Contains(t, buf.String(), "And 2 more repositories...")
}

func TestAverageStars(t *testing.T) {
	testCases := []struct {
		name  string
		stars []int
		want  float64
	}{
		{name: "keeps the fraction", stars: []int{5, 100, 20}, want: 41.67},
		{name: "half star", stars: []int{1, 2}, want: 1.5},
		{name: "single repo", stars: []int{7}, want: 7},
		{name: "empty", stars: nil, want: 0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var repos []domain.Repository
			for _, s := range tc.stars {
				repos = append(repos, domain.Repository{StargazersCount: s})
			}
			assert.InDelta(t, tc.want, averageStars(repos), 1e-9)
		})
	}
}

func TestProcessingPage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ProcessingPage(&buf, "job-123"))
	assert.Contains(t, buf.String(), `http-equiv="refresh"`)
	assert.Contains(t, buf.String(), "Job job-123 is still running")
}

func TestGroupByCategory(t *testing.T) {
	groups := groupByCategory([]domain.Repository{
		{Name: "a", Category: "Databases"},
		{Name: "b", Category: "Security"},
		{Name: "c", Category: "Security"},
		{Name: "d", Category: "DevOps & Infrastructure"},
	})
	require.Len(t, groups, 3)
	assert.Equal(t, "Security", groups[0].Name)
	assert.Equal(t, "Databases", groups[1].Name)
	assert.Equal(t, "DevOps & Infrastructure", groups[2].Name)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abc...", truncate("abcdef", 3))
	assert.Equal(t, "日本...", truncate("日本語", 2))
}

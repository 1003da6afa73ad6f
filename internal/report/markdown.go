package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/naka-gawa/github-star-classifier/internal/domain"
)

const (
	topLanguages       = 10
	reposPerCategoryMD = 10
	descriptionLimit   = 200
	topicsLimit        = 5
	dateLayout         = "2006-01-02"
	generatedLayout    = "2006-01-02 15:04:05"
)

// RenderMarkdown writes the Markdown report for res.
func RenderMarkdown(w io.Writer, res *domain.Result, now time.Time) error {
	stats := res.Stats
	var b strings.Builder

	b.WriteString("# GitHub Starred Repositories Report\n\n")
	fmt.Fprintf(&b, "*Generated on %s*\n\n", now.Format(generatedLayout))

	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "- **Total Repositories**: %s\n", humanize.Comma(int64(stats.TotalRepos)))
	fmt.Fprintf(&b, "- **Categories**: %d\n", len(stats.Categories))
	fmt.Fprintf(&b, "- **Languages**: %d\n", len(stats.Languages))
	fmt.Fprintf(&b, "- **Total Stars**: %s\n", humanize.Comma(int64(stats.TotalStars)))
	fmt.Fprintf(&b, "- **Average Stars per Repository**: %.1f\n", stats.AvgStars)
	fmt.Fprintf(&b, "- **Median Stars**: %.1f\n", stats.MedianStars)
	if stats.ArchivedCount > 0 || stats.ForkCount > 0 {
		fmt.Fprintf(&b, "- **Archived / Forks**: %d / %d\n", stats.ArchivedCount, stats.ForkCount)
	}
	if res.Skipped > 0 {
		fmt.Fprintf(&b, "- **Skipped Records**: %d\n", res.Skipped)
	}

	b.WriteString("\n## Category Distribution\n\n")
	categories := table.NewWriter()
	categories.AppendHeader(table.Row{"Category", "Count", "Percentage"})
	for _, c := range ranked(stats.Categories) {
		share := stats.CategoriesWithPercentage[c.Name]
		categories.AppendRow(table.Row{c.Name, c.Count, fmt.Sprintf("%.1f%%", share.Percentage)})
	}
	categories.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
	})
	b.WriteString(categories.RenderMarkdown())

	b.WriteString("\n\n## Top Languages\n\n")
	languages := table.NewWriter()
	languages.AppendHeader(table.Row{"Language", "Count"})
	for i, l := range ranked(stats.Languages) {
		if i == topLanguages {
			break
		}
		languages.AppendRow(table.Row{l.Name, l.Count})
	}
	b.WriteString(languages.RenderMarkdown())

	if len(stats.TopTopics) > 0 {
		b.WriteString("\n\n## Top Topics\n\n")
		topics := table.NewWriter()
		topics.AppendHeader(table.Row{"Topic", "Count"})
		for _, t := range stats.TopTopics {
			topics.AppendRow(table.Row{t.Topic, t.Count})
		}
		b.WriteString(topics.RenderMarkdown())
	}

	b.WriteString("\n\n## Repository Details\n\n")
	for _, g := range groupByCategory(res.Repos) {
		fmt.Fprintf(&b, "### %s (%d repositories)\n\n", g.Name, len(g.Repos))

		repos := append([]domain.Repository(nil), g.Repos...)
		sort.SliceStable(repos, func(i, j int) bool {
			return repos[i].StargazersCount > repos[j].StargazersCount
		})
		for i, r := range repos {
			if i == reposPerCategoryMD {
				break
			}
			writeRepoMarkdown(&b, r)
		}
		if extra := len(repos) - reposPerCategoryMD; extra > 0 {
			fmt.Fprintf(&b, "*... and %d more repositories in this category*\n\n", extra)
		}
	}

	if stats.MostStarred != nil || stats.RecentlyUpdated != nil {
		b.WriteString("## Quick Links\n\n")
		if r := stats.MostStarred; r != nil {
			fmt.Fprintf(&b, "- [Most Starred Repository](%s): **%s** (%s stars)\n",
				r.HTMLURL, r.FullName, humanize.Comma(int64(r.StargazersCount)))
		}
		if r := stats.RecentlyUpdated; r != nil {
			fmt.Fprintf(&b, "- [Recently Updated](%s): **%s** (updated %s)\n",
				r.HTMLURL, r.FullName, r.UpdatedAt.Format(dateLayout))
		}
		b.WriteString("\n")
	}

	b.WriteString("---\n\n*This report was generated by github-star-classifier.*\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func writeRepoMarkdown(b *strings.Builder, r domain.Repository) {
	fmt.Fprintf(b, "#### [%s](%s)\n\n", r.FullName, r.HTMLURL)
	fmt.Fprintf(b, "- **%s** stars\n", humanize.Comma(int64(r.StargazersCount)))
	fmt.Fprintf(b, "- **%s** forks\n", humanize.Comma(int64(r.ForksCount)))
	fmt.Fprintf(b, "- **Language**: %s\n", r.LanguageOrUnknown())
	fmt.Fprintf(b, "- **Updated**: %s\n", r.UpdatedAt.Format(dateLayout))
	if r.Description != "" {
		fmt.Fprintf(b, "- **Description**: %s\n", truncate(r.Description, descriptionLimit))
	}
	if len(r.Topics) > 0 {
		topics := r.Topics
		if len(topics) > topicsLimit {
			topics = topics[:topicsLimit]
		}
		quoted := make([]string, len(topics))
		for i, t := range topics {
			quoted[i] = "`" + t + "`"
		}
		fmt.Fprintf(b, "- **Topics**: %s\n", strings.Join(quoted, ", "))
	}
	b.WriteString("\n")
}

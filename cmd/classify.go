package cmd

import (
	"fmt"
	"io"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/naka-gawa/github-star-classifier/internal/config"
	"github.com/naka-gawa/github-star-classifier/internal/domain"
	"github.com/naka-gawa/github-star-classifier/internal/gateway"
	"github.com/naka-gawa/github-star-classifier/internal/report"
	"github.com/naka-gawa/github-star-classifier/internal/usecase"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const summaryCategories = 5

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Fetch, classify and report the starred repositories of a user",
	Long: `Fetches the repositories starred by the authenticated user (or --user),
classifies them into categories, computes statistics and writes the
results to the output directory.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.RequireToken(); err != nil {
			return err
		}
		logger := newLogger(cmd, cfg, true)

		tax, err := loadTaxonomy(cfg)
		if err != nil {
			return err
		}

		// Inject dependencies and run the main business logic.
		githubGateway, err := gateway.NewGitHubGateway(cfg.Token, gateway.API(cfg.API), logger)
		if err != nil {
			return fmt.Errorf("failed to create GitHub gateway: %w", err)
		}
		pipeline := newPipeline(githubGateway, tax, cfg, filterFromConfig(cfg), logger)

		res, err := pipeline.Run(cmd.Context(), cfg.User)
		if err != nil {
			return fmt.Errorf("failed to classify starred repositories: %w", err)
		}

		formats := cfg.Formats
		if noReports, _ := cmd.Flags().GetBool("no-reports"); noReports {
			formats = []string{report.FormatJSON, report.FormatCSV}
		}
		files, err := report.NewWriter(cfg.Output, logger).WriteAll(cmd.Context(), res, formats)
		if err != nil {
			return fmt.Errorf("failed to write reports: %w", err)
		}

		printSummary(cmd.OutOrStdout(), res, files)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(classifyCmd)
	f := classifyCmd.Flags()
	f.String(config.KeyToken, "", "GitHub token (defaults to $GITHUB_TOKEN)")
	f.StringP(config.KeyUser, "u", "", "GitHub user whose stars are classified (default: the token owner)")
	f.StringP(config.KeyOutput, "o", "./output", "Output directory")
	f.Int(config.KeyMinStars, 0, "Drop repositories with fewer stars")
	f.Bool(config.KeyExcludeForks, true, "Drop forked repositories")
	f.Bool(config.KeyIncludeArchived, false, "Keep archived repositories")
	f.Int(config.KeyMaxRepos, 0, "Keep at most this many repositories (0 = all)")
	f.Int(config.KeyTopTopics, usecase.DefaultTopTopics, "Number of topics in the top topics table")
	f.String(config.KeyAPI, string(gateway.RESTAPI), "GitHub API to use: rest or graphql")
	f.Int(config.KeyWorkers, 0, "Concurrent classification workers (0 = GOMAXPROCS)")
	f.StringSlice(config.KeyFormats, report.Formats, "Report formats: json, csv, markdown, html")
	f.Bool(config.KeyStrict, false, "Fail the run on invalid repository records instead of skipping them")
	f.Bool("no-reports", false, "Only write the JSON and CSV data files")
}

func filterFromConfig(cfg config.Config) usecase.Filter {
	return usecase.Filter{
		MinStars:        cfg.MinStars,
		ExcludeForks:    cfg.ExcludeForks,
		IncludeArchived: cfg.IncludeArchived,
		MaxRepos:        cfg.MaxRepos,
	}
}

// newPipeline wires the use case components for one run.
func newPipeline(fetcher gateway.Fetcher, tax domain.Taxonomy, cfg config.Config, filter usecase.Filter, logger zerolog.Logger) *usecase.Pipeline {
	classifier := usecase.NewClassifier(tax, logger, usecase.WithWorkers(cfg.Workers))
	aggregator := usecase.NewAggregator(cfg.TopTopics, logger)
	return usecase.NewPipeline(fetcher, classifier, aggregator, logger,
		usecase.WithFilter(filter),
		usecase.WithStrictRecords(cfg.Strict),
	)
}

func printSummary(w io.Writer, res *domain.Result, files report.Files) {
	title := color.New(color.FgCyan, color.Bold)
	ok := color.New(color.FgGreen)
	stats := res.Stats

	fmt.Fprintln(w)
	title.Fprintln(w, "Classification complete")
	fmt.Fprintf(w, "  Repositories: %s\n", humanize.Comma(int64(stats.TotalRepos)))
	fmt.Fprintf(w, "  Total stars:  %s\n", humanize.Comma(int64(stats.TotalStars)))
	fmt.Fprintf(w, "  Avg stars:    %.1f\n", stats.AvgStars)
	if res.Skipped > 0 {
		color.New(color.FgYellow).Fprintf(w, "  Skipped:      %d invalid records\n", res.Skipped)
	}

	if len(stats.Categories) > 0 {
		fmt.Fprintln(w)
		title.Fprintln(w, "Top categories")
		tbl := table.NewWriter()
		tbl.SetOutputMirror(w)
		tbl.SetStyle(table.StyleLight)
		tbl.AppendHeader(table.Row{"Category", "Repos", "Share"})
		for i, c := range topCategories(stats) {
			if i == summaryCategories {
				break
			}
			tbl.AppendRow(table.Row{c.Category, c.Count, fmt.Sprintf("%.1f%%", c.Percentage)})
		}
		tbl.Render()
	}

	if len(files) > 0 {
		fmt.Fprintln(w)
		title.Fprintln(w, "Files")
		for _, kind := range files.Kinds() {
			ok.Fprintf(w, "  %-11s", kind)
			fmt.Fprintf(w, " %s\n", files[kind])
		}
	}
}

type categoryRow struct {
	Category   string
	Count      int
	Percentage float64
}

// topCategories orders categories by size, then name.
func topCategories(stats *domain.Statistics) []categoryRow {
	rows := make([]categoryRow, 0, len(stats.Categories))
	for name, n := range stats.Categories {
		rows = append(rows, categoryRow{Category: name, Count: n, Percentage: stats.CategoriesWithPercentage[name].Percentage})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Category < rows[j].Category
	})
	return rows
}

// Package report renders classification results as data files and
// human readable reports.
package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/naka-gawa/github-star-classifier/internal/domain"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Output formats accepted by WriteAll.
const (
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
)

// Names of the files written by WriteAll. Data files carry a timestamp.
const (
	MarkdownFile = "github_stars_report.md"
	HTMLFile     = "github_stars_report.html"

	timestampLayout = "20060102_150405"
)

// Formats lists every supported format.
var Formats = []string{FormatJSON, FormatCSV, FormatMarkdown, FormatHTML}

// Writer writes report files into Dir.
type Writer struct {
	Dir    string
	Now    func() time.Time
	Logger zerolog.Logger
}

// NewWriter creates a Writer for dir.
func NewWriter(dir string, logger zerolog.Logger) *Writer {
	return &Writer{Dir: dir, Now: time.Now, Logger: logger}
}

// Files maps a file kind (repos_json, stats_json, csv, markdown, html) to
// the written path.
type Files map[string]string

// Kinds returns the file kinds in a stable order.
func (f Files) Kinds() []string {
	kinds := make([]string, 0, len(f))
	for k := range f {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// WriteAll writes res in each of the requested formats concurrently.
func (w *Writer) WriteAll(ctx context.Context, res *domain.Result, formats []string) (Files, error) {
	if res == nil || res.Stats == nil {
		return nil, fmt.Errorf("nothing to report")
	}
	for _, f := range formats {
		if !isFormat(f) {
			return nil, fmt.Errorf("unsupported report format %q: must be one of %s", f, strings.Join(Formats, ", "))
		}
	}
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", w.Dir, err)
	}

	now := time.Now()
	if w.Now != nil {
		now = w.Now()
	}
	ts := now.Format(timestampLayout)

	var (
		mu    sync.Mutex
		files = Files{}
	)
	add := func(kind, path string) {
		mu.Lock()
		defer mu.Unlock()
		files[kind] = path
	}

	eg, ctx := errgroup.WithContext(ctx)
	for _, f := range dedupe(formats) {
		switch f {
		case FormatJSON:
			eg.Go(func() error {
				path := filepath.Join(w.Dir, "starred_repos_"+ts+".json")
				if err := w.create(ctx, path, func(out *os.File) error { return WriteJSON(out, res.Repos) }); err != nil {
					return err
				}
				add("repos_json", path)
				return nil
			})
			eg.Go(func() error {
				path := filepath.Join(w.Dir, "statistics_"+ts+".json")
				if err := w.create(ctx, path, func(out *os.File) error { return WriteJSON(out, res.Stats) }); err != nil {
					return err
				}
				add("stats_json", path)
				return nil
			})
		case FormatCSV:
			eg.Go(func() error {
				path := filepath.Join(w.Dir, "starred_repos_"+ts+".csv")
				if err := w.create(ctx, path, func(out *os.File) error { return WriteCSV(out, res.Repos) }); err != nil {
					return err
				}
				add("csv", path)
				return nil
			})
		case FormatMarkdown:
			eg.Go(func() error {
				path := filepath.Join(w.Dir, MarkdownFile)
				if err := w.create(ctx, path, func(out *os.File) error { return RenderMarkdown(out, res, now) }); err != nil {
					return err
				}
				add("markdown", path)
				return nil
			})
		case FormatHTML:
			eg.Go(func() error {
				path := filepath.Join(w.Dir, HTMLFile)
				if err := w.create(ctx, path, func(out *os.File) error { return RenderHTML(out, res, now) }); err != nil {
					return err
				}
				add("html", path)
				return nil
			})
		}
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

func (w *Writer) create(ctx context.Context, path string, write func(*os.File) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	w.Logger.Debug().Str("path", path).Msg("Report written")
	return nil
}

func isFormat(f string) bool {
	for _, known := range Formats {
		if f == known {
			return true
		}
	}
	return false
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// categoryGroup is the repositories of one category.
type categoryGroup struct {
	Name  string
	Repos []domain.Repository
}

// groupByCategory groups repos by category, largest group first.
// Groups of equal size keep the order in which their category first appears.
func groupByCategory(repos []domain.Repository) []categoryGroup {
	index := map[string]int{}
	var groups []categoryGroup
	for _, r := range repos {
		i, ok := index[r.Category]
		if !ok {
			i = len(groups)
			index[r.Category] = i
			groups = append(groups, categoryGroup{Name: r.Category})
		}
		groups[i].Repos = append(groups[i].Repos, r)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return len(groups[i].Repos) > len(groups[j].Repos)
	})
	return groups
}

// countEntry is a named count used for ranked tables and charts.
type countEntry struct {
	Name  string
	Count int
}

// ranked orders a count map by count descending, then name.
func ranked(counts map[string]int) []countEntry {
	out := make([]countEntry, 0, len(counts))
	for name, n := range counts {
		out = append(out, countEntry{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

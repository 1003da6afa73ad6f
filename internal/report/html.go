package report

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/montanaflynn/stats"
	"github.com/naka-gawa/github-star-classifier/internal/domain"
)

const (
	reposPerCategoryHTML = 6
	chartHeight          = "420px"

	// assetsHost serves echarts.min.js for the embedded charts.
	assetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"
)

// renderable is satisfied by every go-echarts chart.
type renderable interface {
	Render(w io.Writer) error
}

type htmlCategory struct {
	Name      string
	Total     int
	Repos     []domain.Repository
	Remaining int
}

type htmlPage struct {
	Generated  string
	Stats      *domain.Statistics
	Skipped    int
	Charts     []template.HTML
	Categories []htmlCategory
	EchartsJS  string
}

var funcs = template.FuncMap{
	"comma":    func(n int) string { return humanize.Comma(int64(n)) },
	"truncate": truncate,
	"date":     func(t time.Time) string { return t.Format(dateLayout) },
}

var reportTemplate = template.Must(template.New("report").Funcs(funcs).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>GitHub Starred Repositories Report</title>
<script src="{{ .EchartsJS }}"></script>
<style>
body { background: #f8f9fa; font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif; margin: 0; color: #212529; }
.hero { background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); color: #fff; padding: 2.5rem 2rem; }
.wrap { max-width: 1200px; margin: 0 auto; padding: 1.5rem; }
.cards { display: grid; grid-template-columns: repeat(4, 1fr); gap: 1rem; margin-bottom: 1.5rem; }
.card { background: #fff; border-radius: .5rem; box-shadow: 0 .125rem .25rem rgba(0,0,0,.075); padding: 1rem; }
.card h3 { margin: 0; font-size: 1.8rem; }
.chart { background: #fff; border-radius: .5rem; padding: 1rem; margin-bottom: 1rem; }
.repos { display: grid; grid-template-columns: repeat(3, 1fr); gap: 1rem; }
.repo a { font-weight: 600; text-decoration: none; color: #0d6efd; }
.muted { color: #6c757d; font-size: .85rem; }
.badge { background: #6c757d; color: #fff; border-radius: .25rem; padding: 0 .4rem; font-size: .75rem; }
.stars { color: #d4a106; float: right; }
footer { text-align: center; color: #6c757d; padding: 2rem; }
</style>
</head>
<body>
<div class="hero">
<h1>GitHub Starred Repositories Report</h1>
<p>Generated on {{ .Generated }}</p>
</div>
<div class="wrap">
<div class="cards">
<div class="card"><h3>{{ comma .Stats.TotalRepos }}</h3><p>Total Repositories</p></div>
<div class="card"><h3>{{ len .Stats.Categories }}</h3><p>Categories</p></div>
<div class="card"><h3>{{ len .Stats.Languages }}</h3><p>Languages</p></div>
<div class="card"><h3>{{ comma .Stats.TotalStars }}</h3><p>Total Stars</p></div>
</div>
{{ if .Skipped }}<p class="muted">{{ .Skipped }} invalid records were skipped.</p>{{ end }}
{{ range .Charts }}<div class="chart">{{ . }}</div>
{{ end }}
<h2>Repository Categories</h2>
{{ range .Categories }}
<section>
<h3>{{ .Name }} ({{ .Total }} repos)</h3>
<div class="repos">
{{ range .Repos }}<div class="card repo">
<a href="{{ .HTMLURL }}" target="_blank" rel="noopener">{{ .Name }}</a>
<p class="muted">{{ truncate .Description 100 }}</p>
<span class="badge">{{ .LanguageOrUnknown }}</span><span class="stars">&#9733; {{ comma .StargazersCount }}</span>
</div>
{{ end }}</div>
{{ if .Remaining }}<p class="muted">And {{ .Remaining }} more repositories...</p>{{ end }}
</section>
{{ end }}
</div>
<footer>Generated by github-star-classifier</footer>
</body>
</html>
`))

var processingTemplate = template.Must(template.New("processing").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta http-equiv="refresh" content="5">
<title>Processing...</title>
<style>body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif; text-align: center; padding-top: 4rem; color: #495057; }</style>
</head>
<body>
<h1>Processing your repositories...</h1>
<p>Job {{ . }} is still running. This page refreshes automatically.</p>
</body>
</html>
`))

// RenderHTML writes the HTML report for res.
func RenderHTML(w io.Writer, res *domain.Result, now time.Time) error {
	page := htmlPage{
		Generated: now.Format(generatedLayout),
		Stats:     res.Stats,
		Skipped:   res.Skipped,
		EchartsJS: assetsHost + "echarts.min.js",
	}

	groups := groupByCategory(res.Repos)
	for _, chart := range []renderable{
		categoryPie(res.Stats),
		languageBar(res.Stats),
		averageStarsBar(groups),
	} {
		fragment, err := renderChart(chart)
		if err != nil {
			return err
		}
		page.Charts = append(page.Charts, fragment)
	}

	for _, g := range groups {
		c := htmlCategory{Name: g.Name, Total: len(g.Repos), Repos: g.Repos}
		if len(c.Repos) > reposPerCategoryHTML {
			c.Remaining = len(c.Repos) - reposPerCategoryHTML
			c.Repos = c.Repos[:reposPerCategoryHTML]
		}
		page.Categories = append(page.Categories, c)
	}

	return reportTemplate.Execute(w, page)
}

// ProcessingPage writes a self-refreshing page shown while job id runs.
func ProcessingPage(w io.Writer, id string) error {
	return processingTemplate.Execute(w, id)
}

func initOpts(id string) opts.Initialization {
	return opts.Initialization{Width: "100%", Height: chartHeight, ChartID: id, AssetsHost: assetsHost}
}

func categoryPie(stats *domain.Statistics) *charts.Pie {
	data := make([]opts.PieData, 0, len(stats.Categories))
	for _, c := range ranked(stats.Categories) {
		data = append(data, opts.PieData{Name: c.Name, Value: c.Count})
	}

	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts("category_distribution")),
		charts.WithTitleOpts(opts.Title{Title: "Repository Distribution by Category"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
	)
	pie.AddSeries("Categories", data,
		charts.WithPieChartOpts(opts.PieChart{Radius: []string{"35%", "65%"}}),
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Formatter: "{b}: {d}%"}),
	)
	return pie
}

func languageBar(stats *domain.Statistics) *charts.Bar {
	var (
		names  []string
		values []opts.BarData
	)
	for i, l := range ranked(stats.Languages) {
		if i == topLanguages {
			break
		}
		names = append(names, l.Name)
		values = append(values, opts.BarData{Value: l.Count})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts("language_distribution")),
		charts.WithTitleOpts(opts.Title{Title: "Top 10 Programming Languages"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Rotate: 45}}),
	)
	bar.SetXAxis(names).AddSeries("Repositories", values,
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
	)
	return bar
}

func averageStarsBar(groups []categoryGroup) *charts.Bar {
	var (
		names  []string
		values []opts.BarData
	)
	for _, g := range groups {
		names = append(names, g.Name)
		values = append(values, opts.BarData{Value: averageStars(g.Repos)})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts("stars_by_category")),
		charts.WithTitleOpts(opts.Title{Title: "Average Stars by Category"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Rotate: 30}}),
	)
	bar.SetXAxis(names).AddSeries("Average stars", values)
	return bar
}

// averageStars is the mean star count of repos rounded to two decimals.
func averageStars(repos []domain.Repository) float64 {
	data := make(stats.Float64Data, 0, len(repos))
	for _, r := range repos {
		data = append(data, float64(r.StargazersCount))
	}
	mean, err := data.Mean()
	if err != nil {
		return 0
	}
	rounded, err := stats.Round(mean, 2)
	if err != nil {
		return mean
	}
	return rounded
}

// renderChart renders a chart page and keeps only the chart element and
// its script, so that several charts can share one document.
func renderChart(chart renderable) (template.HTML, error) {
	var buf bytes.Buffer
	if err := chart.Render(&buf); err != nil {
		return "", fmt.Errorf("rendering chart: %w", err)
	}
	page := buf.String()

	start := strings.Index(page, `<div class="container">`)
	end := strings.Index(page, `</body>`)
	if start == -1 || end == -1 || end < start {
		return template.HTML(page), nil
	}
	content := strings.ReplaceAll(page[start:end], `class="container"`, `class="echart-box"`)
	return template.HTML(removeStyleTags(content)), nil
}

func removeStyleTags(content string) string {
	for {
		i := strings.Index(content, "<style>")
		if i == -1 {
			return content
		}
		j := strings.Index(content[i:], "</style>")
		if j == -1 {
			return content
		}
		content = content[:i] + content[i+j+len("</style>"):]
	}
}

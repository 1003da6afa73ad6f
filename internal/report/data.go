package report

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/naka-gawa/github-star-classifier/internal/domain"
)

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

var csvHeader = []string{
	"id", "name", "full_name", "description", "html_url", "language",
	"stargazers_count", "forks_count", "topics", "created_at", "updated_at",
	"pushed_at", "archived", "fork", "owner", "size", "license", "homepage",
	"open_issues_count", "default_branch", "clone_url", "ssh_url", "category",
}

// WriteCSV writes one row per repository. Topics are joined with ", ".
func WriteCSV(w io.Writer, repos []domain.Repository) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range repos {
		var pushed, license string
		if r.PushedAt != nil {
			pushed = r.PushedAt.Format(time.RFC3339)
		}
		if r.License != nil {
			license = *r.License
		}
		row := []string{
			strconv.FormatInt(r.ID, 10),
			r.Name,
			r.FullName,
			r.Description,
			r.HTMLURL,
			r.LanguageOrUnknown(),
			strconv.Itoa(r.StargazersCount),
			strconv.Itoa(r.ForksCount),
			strings.Join(r.Topics, ", "),
			r.CreatedAt.Format(time.RFC3339),
			r.UpdatedAt.Format(time.RFC3339),
			pushed,
			strconv.FormatBool(r.Archived),
			strconv.FormatBool(r.Fork),
			r.Owner,
			strconv.Itoa(r.Size),
			license,
			r.Homepage,
			strconv.Itoa(r.OpenIssuesCount),
			r.DefaultBranch,
			r.CloneURL,
			r.SSHURL,
			r.Category,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

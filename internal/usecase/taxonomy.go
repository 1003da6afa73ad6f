package usecase

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/naka-gawa/github-star-classifier/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed taxonomy.yaml
var defaultTaxonomyYAML []byte

var errEmptyCategoryName = errors.New("category without a name")

var loadDefaultTaxonomy = sync.OnceValues(func() (domain.Taxonomy, error) {
	return ParseTaxonomy(defaultTaxonomyYAML)
})

// DefaultTaxonomy returns the built-in category table.
// Each call returns a fresh copy, so callers cannot alter the shared table.
func DefaultTaxonomy() domain.Taxonomy {
	tax, err := loadDefaultTaxonomy()
	if err != nil {
		// The embedded resource is covered by tests; a failure here is a build defect.
		panic(fmt.Sprintf("embedded taxonomy is invalid: %v", err))
	}
	return cloneTaxonomy(tax)
}

// LoadTaxonomy reads a taxonomy from a YAML file. An empty path yields the default taxonomy.
func LoadTaxonomy(path string) (domain.Taxonomy, error) {
	if path == "" {
		return DefaultTaxonomy(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read taxonomy file: %w", err)
	}
	tax, err := ParseTaxonomy(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load taxonomy %s: %w", path, err)
	}
	return tax, nil
}

// ParseTaxonomy decodes a YAML list of categories, lowercasing every term.
// Category names must be unique. Declaration order is preserved.
func ParseTaxonomy(data []byte) (domain.Taxonomy, error) {
	var raw []domain.Category
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode taxonomy: %w", err)
	}

	seen := make(map[string]struct{}, len(raw))
	tax := make(domain.Taxonomy, 0, len(raw))
	for i, c := range raw {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return nil, fmt.Errorf("entry %d: %w", i, errEmptyCategoryName)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("duplicate category %q", name)
		}
		seen[name] = struct{}{}
		tax = append(tax, domain.Category{
			Name:     name,
			Keywords: normalizeTerms(c.Keywords),
			Topics:   normalizeTerms(c.Topics),
		})
	}
	return tax, nil
}

func normalizeTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

func cloneTaxonomy(tax domain.Taxonomy) domain.Taxonomy {
	out := make(domain.Taxonomy, len(tax))
	for i, c := range tax {
		out[i] = domain.Category{
			Name:     c.Name,
			Keywords: append([]string(nil), c.Keywords...),
			Topics:   append([]string(nil), c.Topics...),
		}
	}
	return out
}

package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// OtherCategory is assigned to repositories that match no category of the taxonomy.
const OtherCategory = "Other"

// UnknownLanguage is used when the forge reports no primary language.
const UnknownLanguage = "Unknown"

// ErrInvalidRecord marks a repository record that cannot be classified.
var ErrInvalidRecord = errors.New("invalid repository record")

// Repository is a single starred repository as fetched from the forge.
// Classification only ever sets Category; every other field is left as fetched.
type Repository struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	FullName        string     `json:"full_name"`
	Description     string     `json:"description"`
	HTMLURL         string     `json:"html_url"`
	Language        string     `json:"language"`
	StargazersCount int        `json:"stargazers_count"`
	ForksCount      int        `json:"forks_count"`
	Topics          []string   `json:"topics"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	PushedAt        *time.Time `json:"pushed_at"`
	Archived        bool       `json:"archived"`
	Fork            bool       `json:"fork"`
	Owner           string     `json:"owner"`
	Size            int        `json:"size"`
	License         *string    `json:"license"`
	Homepage        string     `json:"homepage,omitempty"`
	OpenIssuesCount int        `json:"open_issues_count"`
	DefaultBranch   string     `json:"default_branch,omitempty"`
	CloneURL        string     `json:"clone_url,omitempty"`
	SSHURL          string     `json:"ssh_url,omitempty"`
	Category        string     `json:"category,omitempty"`
}

// Validate reports whether the record carries what classification needs.
func (r Repository) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: missing name (id=%d)", ErrInvalidRecord, r.ID)
	}
	if r.StargazersCount < 0 {
		return fmt.Errorf("%w: %s has negative star count %d", ErrInvalidRecord, r.Name, r.StargazersCount)
	}
	if r.ForksCount < 0 {
		return fmt.Errorf("%w: %s has negative fork count %d", ErrInvalidRecord, r.Name, r.ForksCount)
	}
	return nil
}

// LanguageOrUnknown returns the primary language, or UnknownLanguage when empty.
func (r Repository) LanguageOrUnknown() string {
	if r.Language == "" {
		return UnknownLanguage
	}
	return r.Language
}

// Package domain contains the core data structures and domain logic for the application.
package domain

import "time"

// CategoryShare is the size of one category relative to the whole batch.
type CategoryShare struct {
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// TopicCount is one row of the topic frequency table.
type TopicCount struct {
	Topic string `json:"topic"`
	Count int    `json:"count"`
}

// Statistics summarizes a classified batch of repositories.
// It is the core output entity of this application.
type Statistics struct {
	TotalRepos               int                      `json:"total_repos"`
	Categories               map[string]int           `json:"categories"`
	CategoriesWithPercentage map[string]CategoryShare `json:"categories_with_percentage"`
	Languages                map[string]int           `json:"languages"`
	AvgStars                 float64                  `json:"avg_stars"`
	MedianStars              float64                  `json:"median_stars"`
	TotalStars               int                      `json:"total_stars"`
	MinStars                 int                      `json:"min_stars"`
	MaxStars                 int                      `json:"max_stars"`
	OldestRepo               *time.Time               `json:"oldest_repo"`
	NewestRepo               *time.Time               `json:"newest_repo"`
	MostStarred              *Repository              `json:"most_starred"`
	RecentlyUpdated          *Repository              `json:"recently_updated"`
	ArchivedCount            int                      `json:"archived_count"`
	ForkCount                int                      `json:"fork_count"`
	UniqueOwners             int                      `json:"unique_owners"`
	TopTopics                []TopicCount             `json:"top_topics"`
}

// Result is a complete classification run: the classified repositories and their statistics.
type Result struct {
	Repos       []Repository `json:"repos"`
	Stats       *Statistics  `json:"stats"`
	Skipped     int          `json:"skipped"`
	CompletedAt time.Time    `json:"completed_at"`
}

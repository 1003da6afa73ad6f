// Package gateway provides a gateway to the GitHub API,
// abstracting away the underlying REST and GraphQL clients.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/naka-gawa/github-star-classifier/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
)

// API selects which GitHub API the gateway talks to.
type API string

const (
	RESTAPI    API = "rest"
	GraphQLAPI API = "graphql"
)

const restPageSize = 100

// Fetcher defines the behavior of a gateway for fetching information from GitHub.
type Fetcher interface {
	// FetchStarred returns every repository starred by user.
	// An empty user means the authenticated user.
	FetchStarred(ctx context.Context, user string) ([]domain.Repository, error)
}

// GitHubGateway is the concrete implementation of the Fetcher interface.
type GitHubGateway struct {
	api           API
	restClient    *github.Client
	graphqlClient *githubv4.Client
	logger        zerolog.Logger
}

// starredRepoNode is the GraphQL shape of a starred repository.
type starredRepoNode struct {
	DatabaseID      int64
	Name            string
	NameWithOwner   string
	Description     string
	URL             string `graphql:"url"`
	PrimaryLanguage *struct {
		Name string
	}
	StargazerCount   int
	ForkCount        int
	RepositoryTopics struct {
		Nodes []struct {
			Topic struct {
				Name string
			}
		}
	} `graphql:"repositoryTopics(first: 20)"`
	CreatedAt   githubv4.DateTime
	UpdatedAt   githubv4.DateTime
	PushedAt    *githubv4.DateTime
	IsArchived  bool
	IsFork      bool
	DiskUsage   int
	HomepageURL string `graphql:"homepageUrl"`
	SSHURL      string `graphql:"sshUrl"`
	Owner       struct {
		Login string
	}
	LicenseInfo *struct {
		Name string
	}
	DefaultBranchRef *struct {
		Name string
	}
	Issues struct {
		TotalCount int
	} `graphql:"issues(states: OPEN)"`
}

type starredConnection struct {
	PageInfo struct {
		HasNextPage bool
		EndCursor   githubv4.String
	}
	Nodes []starredRepoNode
}

// viewerStarredQuery lists the authenticated user's stars.
type viewerStarredQuery struct {
	Viewer struct {
		StarredRepositories starredConnection `graphql:"starredRepositories(first: 100, after: $cursor)"`
	}
}

// userStarredQuery lists the stars of an arbitrary user.
type userStarredQuery struct {
	User struct {
		StarredRepositories starredConnection `graphql:"starredRepositories(first: 100, after: $cursor)"`
	} `graphql:"user(login: $login)"`
}

// NewGitHubGateway is a constructor that creates a new instance of GitHubGateway.
func NewGitHubGateway(token string, api API, logger zerolog.Logger) (Fetcher, error) {
	switch api {
	case "", RESTAPI, GraphQLAPI:
	default:
		return nil, fmt.Errorf("unsupported GitHub API %q: must be rest or graphql", api)
	}
	if api == "" {
		api = RESTAPI
	}

	rateLimitWaiter, err := github_ratelimit.NewRateLimitWaiter(nil, github_ratelimit.WithSingleSleepLimit(1*time.Hour, nil))
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Base:   rateLimitWaiter,
			Source: ts,
		},
	}
	return &GitHubGateway{
		api:           api,
		restClient:    github.NewClient(httpClient),
		graphqlClient: githubv4.NewClient(httpClient),
		logger:        logger,
	}, nil
}

// FetchStarred fetches the starred repositories through the configured API.
func (g *GitHubGateway) FetchStarred(ctx context.Context, user string) ([]domain.Repository, error) {
	if g.api == GraphQLAPI {
		return g.fetchStarredGraphQL(ctx, user)
	}
	return g.fetchStarredREST(ctx, user)
}

func (g *GitHubGateway) fetchStarredREST(ctx context.Context, user string) ([]domain.Repository, error) {
	g.logger.Info().Str("user", user).Msg("Fetching starred repositories using REST API...")
	opts := &github.ActivityListStarredOptions{ListOptions: github.ListOptions{PerPage: restPageSize}}
	var repos []domain.Repository
	for {
		starred, resp, err := g.restClient.Activity.ListStarred(ctx, user, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list starred repositories with REST API: %w", err)
		}
		for _, s := range starred {
			if s.Repository == nil {
				g.logger.Debug().Msg("  Skipping starred entry without a repository payload.")
				continue
			}
			repos = append(repos, fromREST(s.Repository))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
		g.logger.Debug().Int("page", opts.Page).Msg("  Fetching next page of starred repositories...")
	}
	g.logger.Info().Int("repos", len(repos)).Msg("Completed fetching starred repositories.")
	return repos, nil
}

func (g *GitHubGateway) fetchStarredGraphQL(ctx context.Context, user string) ([]domain.Repository, error) {
	g.logger.Info().Str("user", user).Msg("Fetching starred repositories using GraphQL API...")
	variables := map[string]interface{}{"cursor": (*githubv4.String)(nil)}
	if user != "" {
		variables["login"] = githubv4.String(user)
	}

	var repos []domain.Repository
	for {
		var conn starredConnection
		if user == "" {
			var q viewerStarredQuery
			if err := g.graphqlClient.Query(ctx, &q, variables); err != nil {
				return nil, fmt.Errorf("failed to execute GraphQL query for starred repositories: %w", err)
			}
			conn = q.Viewer.StarredRepositories
		} else {
			var q userStarredQuery
			if err := g.graphqlClient.Query(ctx, &q, variables); err != nil {
				return nil, fmt.Errorf("failed to execute GraphQL query for starred repositories: %w", err)
			}
			conn = q.User.StarredRepositories
		}

		for _, node := range conn.Nodes {
			repos = append(repos, fromGraphQL(node))
		}
		if !conn.PageInfo.HasNextPage {
			break
		}
		variables["cursor"] = githubv4.NewString(conn.PageInfo.EndCursor)
		g.logger.Debug().Msg("  Fetching next page of starred repositories...")
	}
	g.logger.Info().Int("repos", len(repos)).Msg("Completed fetching starred repositories.")
	return repos, nil
}

// fromREST maps a REST repository onto the domain record, applying the
// defaults classification relies on.
func fromREST(r *github.Repository) domain.Repository {
	repo := domain.Repository{
		ID:              r.GetID(),
		Name:            r.GetName(),
		FullName:        r.GetFullName(),
		Description:     r.GetDescription(),
		HTMLURL:         r.GetHTMLURL(),
		Language:        r.GetLanguage(),
		StargazersCount: r.GetStargazersCount(),
		ForksCount:      r.GetForksCount(),
		Topics:          append([]string{}, r.Topics...),
		CreatedAt:       r.GetCreatedAt().Time,
		UpdatedAt:       r.GetUpdatedAt().Time,
		Archived:        r.GetArchived(),
		Fork:            r.GetFork(),
		Owner:           r.GetOwner().GetLogin(),
		Size:            r.GetSize(),
		Homepage:        r.GetHomepage(),
		OpenIssuesCount: r.GetOpenIssuesCount(),
		DefaultBranch:   r.GetDefaultBranch(),
		CloneURL:        r.GetCloneURL(),
		SSHURL:          r.GetSSHURL(),
	}
	if r.PushedAt != nil {
		pushed := r.GetPushedAt().Time
		repo.PushedAt = &pushed
	}
	if r.License != nil {
		name := r.GetLicense().GetName()
		repo.License = &name
	}
	if repo.Language == "" {
		repo.Language = domain.UnknownLanguage
	}
	return repo
}

func fromGraphQL(n starredRepoNode) domain.Repository {
	repo := domain.Repository{
		ID:              n.DatabaseID,
		Name:            n.Name,
		FullName:        n.NameWithOwner,
		Description:     n.Description,
		HTMLURL:         n.URL,
		Language:        domain.UnknownLanguage,
		StargazersCount: n.StargazerCount,
		ForksCount:      n.ForkCount,
		Topics:          make([]string, 0, len(n.RepositoryTopics.Nodes)),
		CreatedAt:       n.CreatedAt.Time,
		UpdatedAt:       n.UpdatedAt.Time,
		Archived:        n.IsArchived,
		Fork:            n.IsFork,
		Owner:           n.Owner.Login,
		Size:            n.DiskUsage,
		Homepage:        n.HomepageURL,
		OpenIssuesCount: n.Issues.TotalCount,
		SSHURL:          n.SSHURL,
	}
	if n.URL != "" {
		repo.CloneURL = n.URL + ".git"
	}
	if n.PrimaryLanguage != nil && n.PrimaryLanguage.Name != "" {
		repo.Language = n.PrimaryLanguage.Name
	}
	for _, t := range n.RepositoryTopics.Nodes {
		repo.Topics = append(repo.Topics, t.Topic.Name)
	}
	if n.PushedAt != nil {
		pushed := n.PushedAt.Time
		repo.PushedAt = &pushed
	}
	if n.LicenseInfo != nil {
		name := n.LicenseInfo.Name
		repo.License = &name
	}
	if n.DefaultBranchRef != nil {
		repo.DefaultBranch = n.DefaultBranchRef.Name
	}
	return repo
}

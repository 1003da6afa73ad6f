package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/naka-gawa/github-star-classifier/internal/config"
	"github.com/naka-gawa/github-star-classifier/internal/domain"
	"github.com/naka-gawa/github-star-classifier/internal/gateway"
	"github.com/naka-gawa/github-star-classifier/internal/jobs"
	"github.com/naka-gawa/github-star-classifier/internal/metrics"
	"github.com/naka-gawa/github-star-classifier/internal/server"
	"github.com/naka-gawa/github-star-classifier/internal/usecase"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the classification HTTP API",
	Long: `Starts an HTTP API that runs classification jobs in the background.
Clients submit a job with POST /classify and poll /jobs/{id} and
/results/{id}; /view/{id} renders the HTML report.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := newLogger(cmd, cfg, false)

		tax, err := loadTaxonomy(cfg)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		store, err := newJobStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() {
			if err := store.Close(); err != nil {
				logger.Error().Err(err).Msg("Failed to close job store")
			}
		}()

		m := metrics.New()
		manager := jobs.NewManager(store, newJobRunner(cfg, tax, logger), logger, jobs.WithMetrics(m))

		srv := server.New(server.Options{
			Addr:           cfg.Addr,
			AllowedOrigins: cfg.AllowedOrigins,
			DefaultToken:   cfg.Token,
			Manager:        manager,
			Taxonomy:       tax,
			Metrics:        m,
			Logger:         logger,
		})

		runErr := srv.Run(ctx)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := manager.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("Jobs did not finish before shutdown")
		}
		return runErr
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	f := serveCmd.Flags()
	f.String(config.KeyAddr, ":8000", "Listen address")
	f.StringSlice(config.KeyAllowedOrigins, []string{"http://localhost:3000", "http://localhost:5173"}, "Origins allowed by CORS")
	f.String(config.KeyJobStore, config.StoreMemory, "Job store backend: memory, sqlite or postgres")
	f.String(config.KeyJobStoreDSN, "", "Job store connection string (sqlite path or postgres URL)")
	f.String(config.KeyToken, "", "GitHub token used when a request carries none (defaults to $GITHUB_TOKEN)")
	f.String(config.KeyAPI, string(gateway.RESTAPI), "GitHub API to use: rest or graphql")
	f.Int(config.KeyWorkers, 0, "Concurrent classification workers per job (0 = GOMAXPROCS)")
	f.Int(config.KeyTopTopics, usecase.DefaultTopTopics, "Number of topics in the top topics table")
	f.Bool(config.KeyStrict, false, "Fail jobs on invalid repository records instead of skipping them")
}

func newJobStore(ctx context.Context, cfg config.Config) (jobs.Store, error) {
	switch cfg.JobStore {
	case config.StoreSQLite:
		return jobs.NewSQLStore(ctx, jobs.SQLiteBackend, cfg.JobStoreDSN)
	case config.StorePostgres:
		return jobs.NewSQLStore(ctx, jobs.PostgresBackend, cfg.JobStoreDSN)
	case config.StoreMemory:
		return jobs.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported job store %q", cfg.JobStore)
	}
}

// newJobRunner runs one request through its own gateway and pipeline.
func newJobRunner(cfg config.Config, tax domain.Taxonomy, logger zerolog.Logger) jobs.Runner {
	return func(ctx context.Context, req jobs.Request) (*domain.Result, error) {
		fetcher, err := gateway.NewGitHubGateway(req.Token, gateway.API(cfg.API), logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create GitHub gateway: %w", err)
		}
		filter := usecase.Filter{
			MinStars:        req.MinStars,
			ExcludeForks:    req.ExcludesForks(),
			IncludeArchived: req.IncludeArchived,
			MaxRepos:        req.MaxRepos,
		}
		return newPipeline(fetcher, tax, cfg, filter, logger).Run(ctx, req.User)
	}
}

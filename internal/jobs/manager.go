package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/naka-gawa/github-star-classifier/internal/domain"
	"github.com/naka-gawa/github-star-classifier/internal/metrics"
	"github.com/rs/zerolog"
)

// Request describes one classification job.
type Request struct {
	Token           string `json:"token"`
	User            string `json:"user" validate:"omitempty,max=39"`
	MinStars        int    `json:"min_stars" validate:"gte=0"`
	ExcludeForks    *bool  `json:"exclude_forks"`
	IncludeArchived bool   `json:"include_archived"`
	MaxRepos        int    `json:"max_repos" validate:"gte=0"`
}

// Runner executes a classification run for a request.
type Runner func(ctx context.Context, req Request) (*domain.Result, error)

// Manager runs jobs in the background and records their outcome in a Store.
type Manager struct {
	store   Store
	runner  Runner
	metrics *metrics.Metrics
	logger  zerolog.Logger
	now     func() time.Time
	newID   func() string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithMetrics feeds job outcomes into m.
func WithMetrics(m *metrics.Metrics) ManagerOption {
	return func(mgr *Manager) { mgr.metrics = m }
}

// WithManagerClock overrides the time source for job timestamps.
func WithManagerClock(now func() time.Time) ManagerOption {
	return func(mgr *Manager) { mgr.now = now }
}

// NewManager creates a Manager. Jobs started by it are cancelled by Shutdown.
func NewManager(store Store, runner Runner, logger zerolog.Logger, opts ...ManagerOption) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		store:  store,
		runner: runner,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Submit registers a new job and starts it in the background.
func (m *Manager) Submit(ctx context.Context, req Request) (domain.Job, error) {
	job := domain.Job{
		ID:        m.newID(),
		Status:    domain.JobProcessing,
		CreatedAt: m.now(),
	}
	if err := m.store.CreateJob(ctx, job); err != nil {
		return domain.Job{}, err
	}
	if m.metrics != nil {
		m.metrics.JobStarted()
	}
	m.logger.Info().Str("job_id", job.ID).Str("user", req.User).Msg("Job submitted")

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.run(job, req)
	}()
	return job, nil
}

func (m *Manager) run(job domain.Job, req Request) {
	started := m.now()
	res, err := m.runner(m.ctx, req)

	finished := m.now()
	job.CompletedAt = &finished
	// Results and job state must still be written when the manager is shutting down.
	ctx := context.WithoutCancel(m.ctx)

	if err == nil {
		total := len(res.Repos)
		job.TotalRepos = &total
		err = m.store.SaveResult(ctx, domain.JobResult{
			JobID:       job.ID,
			Repos:       res.Repos,
			Stats:       res.Stats,
			CompletedAt: res.CompletedAt,
		})
		if err != nil {
			job.TotalRepos = nil
			err = fmt.Errorf("failed to store results: %w", err)
		}
	}

	if err != nil {
		msg := err.Error()
		job.Status = domain.JobFailed
		job.Error = &msg
		m.logger.Error().Err(err).Str("job_id", job.ID).Msg("Job failed")
	} else {
		job.Status = domain.JobCompleted
		m.logger.Info().Str("job_id", job.ID).Int("repos", *job.TotalRepos).Msg("Job completed")
	}

	if m.metrics != nil {
		m.metrics.JobFinished(job.Status, finished.Sub(started))
		if job.Status == domain.JobCompleted {
			m.metrics.ObserveResult(res)
		}
	}

	if err := m.store.UpdateJob(ctx, job); err != nil {
		// The job may have been deleted while it was running.
		m.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to record job outcome")
		if job.Status == domain.JobCompleted && errors.Is(err, ErrNotFound) {
			_ = m.store.Delete(ctx, job.ID)
		}
	}
}

// Job returns the current state of a job.
func (m *Manager) Job(ctx context.Context, id string) (domain.Job, error) {
	return m.store.GetJob(ctx, id)
}

// Jobs lists all known jobs, oldest first.
func (m *Manager) Jobs(ctx context.Context) ([]domain.Job, error) {
	return m.store.ListJobs(ctx)
}

// Result returns the stored result of a completed job.
// It returns ErrNotReady while the job is processing and ErrNoResult when
// the job failed.
func (m *Manager) Result(ctx context.Context, id string) (domain.JobResult, error) {
	job, err := m.store.GetJob(ctx, id)
	if err != nil {
		return domain.JobResult{}, err
	}
	switch job.Status {
	case domain.JobProcessing:
		return domain.JobResult{}, ErrNotReady
	case domain.JobFailed:
		return domain.JobResult{}, ErrNoResult
	}
	res, err := m.store.GetResult(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return domain.JobResult{}, ErrNoResult
	}
	return res, err
}

// Delete removes a job and its result. It returns ErrNotFound for unknown ids.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if _, err := m.store.GetJob(ctx, id); err != nil {
		return err
	}
	if err := m.store.Delete(ctx, id); err != nil {
		return err
	}
	m.logger.Info().Str("job_id", id).Msg("Job deleted")
	return nil
}

// Wait blocks until every submitted job has finished.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Shutdown cancels running jobs and waits for them, or until ctx is done.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.cancel()
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ExcludesForks reports whether forks are dropped. Forks are excluded unless
// the request says otherwise.
func (r Request) ExcludesForks() bool {
	return r.ExcludeForks == nil || *r.ExcludeForks
}

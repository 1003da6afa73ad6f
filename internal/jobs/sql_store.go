package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/naka-gawa/github-star-classifier/internal/domain"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "modernc.org/sqlite"             // SQLite driver
)

// Backend names a SQL database flavour.
type Backend string

const (
	SQLiteBackend   Backend = "sqlite"
	PostgresBackend Backend = "postgres"
)

// DefaultSQLitePath is used when the sqlite backend is selected without a DSN.
const DefaultSQLitePath = "star-classifier.db"

// SQLStore keeps jobs and results in a SQL database, one JSON document per row.
type SQLStore struct {
	db      *sql.DB
	backend Backend
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore opens the database, verifies the connection and creates the tables.
func NewSQLStore(ctx context.Context, backend Backend, dsn string) (*SQLStore, error) {
	var (
		db  *sql.DB
		err error
	)
	switch backend {
	case SQLiteBackend:
		if dsn == "" {
			dsn = DefaultSQLitePath
		}
		db, err = sql.Open("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite job store at %q: %w", dsn, err)
		}
		// A single connection avoids "database is locked" errors.
		db.SetMaxOpenConns(1)
	case PostgresBackend:
		db, err = sql.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open PostgreSQL job store: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported job store backend: %s. Must be sqlite or postgres", backend)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s job store: %w", backend, err)
	}

	s := &SQLStore{db: db, backend: backend}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS classification_jobs (
			id TEXT PRIMARY KEY,
			created_at BIGINT NOT NULL,
			payload TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS classification_results (
			job_id TEXT PRIMARY KEY,
			payload TEXT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create job store tables: %w", err)
		}
	}
	return nil
}

// rebind rewrites '?' placeholders for backends that use numbered ones.
func (s *SQLStore) rebind(query string) string {
	if s.backend != PostgresBackend {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) CreateJob(ctx context.Context, job domain.Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode job: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		s.rebind(`INSERT INTO classification_jobs (id, created_at, payload) VALUES (?, ?, ?)`),
		job.ID, job.CreatedAt.UnixNano(), string(payload))
	if err != nil {
		return fmt.Errorf("failed to insert job %s: %w", job.ID, err)
	}
	return nil
}

func (s *SQLStore) UpdateJob(ctx context.Context, job domain.Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode job: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		s.rebind(`UPDATE classification_jobs SET payload = ? WHERE id = ?`),
		string(payload), job.ID)
	if err != nil {
		return fmt.Errorf("failed to update job %s: %w", job.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) GetJob(ctx context.Context, id string) (domain.Job, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT payload FROM classification_jobs WHERE id = ?`), id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Job{}, ErrNotFound
	}
	if err != nil {
		return domain.Job{}, fmt.Errorf("failed to read job %s: %w", id, err)
	}
	var job domain.Job
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		return domain.Job{}, fmt.Errorf("failed to decode job %s: %w", id, err)
	}
	return job, nil
}

func (s *SQLStore) ListJobs(ctx context.Context) ([]domain.Job, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM classification_jobs ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	jobs := []domain.Job{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		var job domain.Job
		if err := json.Unmarshal([]byte(payload), &job); err != nil {
			return nil, fmt.Errorf("failed to decode job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (s *SQLStore) SaveResult(ctx context.Context, res domain.JobResult) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		s.rebind(`INSERT INTO classification_results (job_id, payload) VALUES (?, ?)
			ON CONFLICT (job_id) DO UPDATE SET payload = excluded.payload`),
		res.JobID, string(payload))
	if err != nil {
		return fmt.Errorf("failed to store result of job %s: %w", res.JobID, err)
	}
	return nil
}

func (s *SQLStore) GetResult(ctx context.Context, id string) (domain.JobResult, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT payload FROM classification_results WHERE job_id = ?`), id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.JobResult{}, ErrNotFound
	}
	if err != nil {
		return domain.JobResult{}, fmt.Errorf("failed to read result of job %s: %w", id, err)
	}
	var res domain.JobResult
	if err := json.Unmarshal([]byte(payload), &res); err != nil {
		return domain.JobResult{}, fmt.Errorf("failed to decode result of job %s: %w", id, err)
	}
	return res, nil
}

func (s *SQLStore) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to delete job %s: %w", id, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM classification_results WHERE job_id = ?`), id); err != nil {
		return fmt.Errorf("failed to delete result of job %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM classification_jobs WHERE id = ?`), id); err != nil {
		return fmt.Errorf("failed to delete job %s: %w", id, err)
	}
	return tx.Commit()
}

// Close closes the underlying DB connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

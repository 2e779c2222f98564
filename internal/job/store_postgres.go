package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// PostgresStore is a PostgreSQL-backed Store implementation.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed job record store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Create(ctx context.Context, rec Record) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if rec.ID == "" {
		return fmt.Errorf("job id is required")
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now()
	}
	if rec.Status == "" {
		rec.Status = StatusStarted
	}

	request, err := json.Marshal(rec.Request)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	stages, err := json.Marshal(emptyStagesIfNil(rec.Stages))
	if err != nil {
		return fmt.Errorf("encode stages: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO job_records (id, job_type, status, request, stages, error, started_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, string(rec.Type), string(rec.Status), request, stages, rec.Error, rec.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("create job record: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Record, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	row := s.pool.QueryRow(ctx, selectJob+` WHERE id = $1`, id)
	rec, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("job not found: %s", id)
		}
		return nil, err
	}
	return rec, nil
}

func (s *PostgresStore) AppendStage(ctx context.Context, id string, stage Stage) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if stage.Timestamp.IsZero() {
		stage.Timestamp = time.Now()
	}
	encoded, err := json.Marshal(stage)
	if err != nil {
		return fmt.Errorf("encode stage: %w", err)
	}

	cmd, err := s.pool.Exec(ctx,
		`UPDATE job_records SET stages = stages || $2::jsonb WHERE id = $1`,
		id, encoded,
	)
	if err != nil {
		return fmt.Errorf("append stage: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("job not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) Complete(ctx context.Context, id string, status Status, summary map[string]any, errMsg string) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	encoded, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}

	cmd, err := s.pool.Exec(ctx,
		`UPDATE job_records
		 SET status = $2, summary = $3, error = $4, ended_at = NOW()
		 WHERE id = $1`,
		id, string(status), encoded, errMsg,
	)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("job not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) ListByType(ctx context.Context, t Type, limit int) ([]Record, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	query := selectJob + ` WHERE job_type = $1 ORDER BY started_at DESC`
	args := []any{string(t)}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query job records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate job records: %w", err)
	}
	return out, nil
}

const selectJob = `SELECT id, job_type, status, request, stages, summary, error, started_at, ended_at
	FROM job_records`

func scanJob(row pgx.Row) (*Record, error) {
	var rec Record
	var jobType, status string
	var request, stages, summary []byte

	err := row.Scan(
		&rec.ID,
		&jobType,
		&status,
		&request,
		&stages,
		&summary,
		&rec.Error,
		&rec.StartedAt,
		&rec.EndedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pgx.ErrNoRows
		}
		return nil, fmt.Errorf("scan job record: %w", err)
	}

	rec.Type = Type(jobType)
	rec.Status = Status(status)

	if err := json.Unmarshal(request, &rec.Request); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}
	if err := json.Unmarshal(stages, &rec.Stages); err != nil {
		return nil, fmt.Errorf("decode stages: %w", err)
	}
	if len(summary) > 0 {
		if err := json.Unmarshal(summary, &rec.Summary); err != nil {
			return nil, fmt.Errorf("decode summary: %w", err)
		}
	}
	return &rec, nil
}

func emptyStagesIfNil(v []Stage) []Stage {
	if v == nil {
		return []Stage{}
	}
	return v
}

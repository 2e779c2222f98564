package source

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

// NewPostgresStore creates a PostgreSQL-backed source record store.
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
		return fmt.Errorf("source record id is required")
	}
	if rec.DiscoveredAt.IsZero() {
		rec.DiscoveredAt = time.Now()
	}
	if rec.ExtractionState == "" {
		rec.ExtractionState = StatePending
	}

	topics, err := json.Marshal(emptyIfNil(rec.TopicIDs))
	if err != nil {
		return fmt.Errorf("encode topic ids: %w", err)
	}
	objectives, err := json.Marshal(emptyIfNil(rec.ObjectiveIDs))
	if err != nil {
		return fmt.Errorf("encode objective ids: %w", err)
	}
	scoring, err := json.Marshal(rec.Scoring)
	if err != nil {
		return fmt.Errorf("encode scoring: %w", err)
	}
	chunks, err := json.Marshal(emptyIfNil(rec.ChunkIDs))
	if err != nil {
		return fmt.Errorf("encode chunk ids: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO source_records
		   (id, curriculum_id, title, url, publisher, source_type, license_type,
		    content_format, description, topics, objectives, scoring, vetted,
		    extraction_state, chunk_ids, discovered_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, NOW())`,
		rec.ID,
		rec.CurriculumID,
		rec.Title,
		rec.URL,
		rec.Publisher,
		string(rec.SourceType),
		string(rec.License),
		string(rec.ContentFormat),
		rec.Description,
		topics,
		objectives,
		scoring,
		rec.Vetted,
		rec.ExtractionState,
		chunks,
		rec.DiscoveredAt,
	)
	if err != nil {
		return fmt.Errorf("create source record: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Record, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	row := s.pool.QueryRow(ctx, selectRecord+` WHERE id = $1`, id)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("source record not found: %s", id)
		}
		return nil, err
	}
	return rec, nil
}

func (s *PostgresStore) ListByCurriculum(ctx context.Context, curriculumID string) ([]Record, error) {
	return s.list(ctx, selectRecord+` WHERE curriculum_id = $1 ORDER BY discovered_at ASC`, curriculumID)
}

func (s *PostgresStore) ListVetted(ctx context.Context, curriculumID string) ([]Record, error) {
	return s.list(ctx, selectRecord+` WHERE curriculum_id = $1 AND vetted ORDER BY discovered_at ASC`, curriculumID)
}

func (s *PostgresStore) SetChunkRefs(ctx context.Context, id string, chunkIDs []string, state string) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	chunks, err := json.Marshal(emptyIfNil(chunkIDs))
	if err != nil {
		return fmt.Errorf("encode chunk ids: %w", err)
	}

	cmd, err := s.pool.Exec(ctx,
		`UPDATE source_records
		 SET chunk_ids = $2, extraction_state = $3, updated_at = NOW()
		 WHERE id = $1`,
		id, chunks, state,
	)
	if err != nil {
		return fmt.Errorf("set chunk refs: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("source record not found: %s", id)
	}
	return nil
}

const selectRecord = `SELECT id, curriculum_id, title, url, publisher, source_type,
	license_type, content_format, description, topics, objectives, scoring,
	vetted, extraction_state, chunk_ids, discovered_at, updated_at
	FROM source_records`

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]Record, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query source records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate source records: %w", err)
	}
	return out, nil
}

func scanRecord(row pgx.Row) (*Record, error) {
	var rec Record
	var srcType, license, format string
	var topics, objectives, scoring, chunks []byte

	err := row.Scan(
		&rec.ID,
		&rec.CurriculumID,
		&rec.Title,
		&rec.URL,
		&rec.Publisher,
		&srcType,
		&license,
		&format,
		&rec.Description,
		&topics,
		&objectives,
		&scoring,
		&rec.Vetted,
		&rec.ExtractionState,
		&chunks,
		&rec.DiscoveredAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pgx.ErrNoRows
		}
		return nil, fmt.Errorf("scan source record: %w", err)
	}

	rec.SourceType = Type(srcType)
	rec.License = License(license)
	rec.ContentFormat = Format(format)

	if err := json.Unmarshal(topics, &rec.TopicIDs); err != nil {
		return nil, fmt.Errorf("decode topic ids: %w", err)
	}
	if err := json.Unmarshal(objectives, &rec.ObjectiveIDs); err != nil {
		return nil, fmt.Errorf("decode objective ids: %w", err)
	}
	if err := json.Unmarshal(scoring, &rec.Scoring); err != nil {
		return nil, fmt.Errorf("decode scoring: %w", err)
	}
	if err := json.Unmarshal(chunks, &rec.ChunkIDs); err != nil {
		return nil, fmt.Errorf("decode chunk ids: %w", err)
	}

	return &rec, nil
}

func emptyIfNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

package knownsource

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

// NewPostgresStore creates a PostgreSQL-backed known-source store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Create(ctx context.Context, src KnownSource) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	return s.insert(ctx, src)
}

func (s *PostgresStore) BulkCreate(ctx context.Context, sources []KnownSource) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	for _, src := range sources {
		if err := s.insert(ctx, src); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) insert(ctx context.Context, src KnownSource) error {
	if src.Key == "" {
		return fmt.Errorf("source key is required")
	}

	subjects, err := json.Marshal(src.Subjects)
	if err != nil {
		return fmt.Errorf("encode subjects: %w", err)
	}
	grades, err := json.Marshal([]string{src.GradeRange})
	if err != nil {
		return fmt.Errorf("encode grade range: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO known_sources
		   (key, source_name, base_url, url_pattern, country, region, subjects,
		    grades, license, authority, content_format, is_active, last_verified)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 ON CONFLICT (key) DO NOTHING`,
		src.Key,
		src.SourceName,
		src.BaseURL,
		src.URLPattern,
		src.Country,
		src.Region,
		subjects,
		grades,
		src.LicenseType,
		src.AuthorityScore,
		src.ContentFormat,
		src.IsActive,
		src.LastVerified,
	)
	if err != nil {
		return fmt.Errorf("create known source: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByKey(ctx context.Context, key string) (*KnownSource, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	row := s.pool.QueryRow(ctx, selectKnown+` WHERE key = $1`, key)
	src, err := scanKnown(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("known source not found: %s", key)
		}
		return nil, err
	}
	return src, nil
}

func (s *PostgresStore) FindByLocation(ctx context.Context, country, region, subject string) ([]KnownSource, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	// region = '' matches everything; region IS NULL entries are national
	// scope and match every regional query.
	rows, err := s.pool.Query(ctx,
		selectKnown+`
		 WHERE country = $1
		   AND is_active
		   AND ($2 = '' OR region IS NULL OR region = $2)
		   AND ($3 = '' OR subjects @> to_jsonb(ARRAY[$3::text]))
		 ORDER BY created_at ASC`,
		country, region, subject,
	)
	if err != nil {
		return nil, fmt.Errorf("query known sources: %w", err)
	}
	defer rows.Close()

	var out []KnownSource
	for rows.Next() {
		src, err := scanKnown(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate known sources: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) RefreshVerification(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	cmd, err := s.pool.Exec(ctx,
		`UPDATE known_sources SET last_verified = NOW() WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("refresh verification: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("known source not found: %s", key)
	}
	return nil
}

func (s *PostgresStore) Deactivate(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	cmd, err := s.pool.Exec(ctx,
		`UPDATE known_sources SET is_active = FALSE WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("deactivate known source: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("known source not found: %s", key)
	}
	return nil
}

const selectKnown = `SELECT key, source_name, base_url, url_pattern, country, region,
	subjects, grades, license, authority, content_format, is_active,
	last_verified, created_at
	FROM known_sources`

func scanKnown(row pgx.Row) (*KnownSource, error) {
	var src KnownSource
	var subjects, grades []byte

	err := row.Scan(
		&src.Key,
		&src.SourceName,
		&src.BaseURL,
		&src.URLPattern,
		&src.Country,
		&src.Region,
		&subjects,
		&grades,
		&src.LicenseType,
		&src.AuthorityScore,
		&src.ContentFormat,
		&src.IsActive,
		&src.LastVerified,
		&src.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pgx.ErrNoRows
		}
		return nil, fmt.Errorf("scan known source: %w", err)
	}

	if err := json.Unmarshal(subjects, &src.Subjects); err != nil {
		return nil, fmt.Errorf("decode subjects: %w", err)
	}
	var gradeList []string
	if err := json.Unmarshal(grades, &gradeList); err != nil {
		return nil, fmt.Errorf("decode grades: %w", err)
	}
	if len(gradeList) > 0 {
		src.GradeRange = gradeList[0]
	}

	return &src, nil
}

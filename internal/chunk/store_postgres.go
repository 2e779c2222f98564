package chunk

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

// NewPostgresStore creates a PostgreSQL-backed knowledge chunk store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Create(ctx context.Context, kc KnowledgeChunk) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if kc.ID == "" {
		return fmt.Errorf("chunk id is required")
	}

	var embedding []byte
	if kc.Embedding != nil {
		var err error
		embedding, err = json.Marshal(kc.Embedding)
		if err != nil {
			return fmt.Errorf("encode embedding: %w", err)
		}
	}
	tags, err := json.Marshal(kc.Tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO knowledge_chunks
		   (id, source_id, curriculum_id, content, chunk_type, difficulty,
		    objective, topic, word_count, embedding, tags, deleted)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, FALSE)`,
		kc.ID,
		kc.SourceID,
		kc.CurriculumID,
		kc.Content,
		string(kc.Type),
		kc.Difficulty,
		kc.ObjectiveID,
		kc.TopicID,
		kc.WordCount,
		embedding,
		tags,
	)
	if err != nil {
		return fmt.Errorf("create chunk: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*KnowledgeChunk, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	row := s.pool.QueryRow(ctx, selectChunk+` WHERE id = $1 AND NOT deleted`, id)
	kc, err := scanChunk(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("chunk not found: %s", id)
		}
		return nil, err
	}
	return kc, nil
}

func (s *PostgresStore) ListBySource(ctx context.Context, sourceID string) ([]KnowledgeChunk, error) {
	return s.listQuery(ctx,
		selectChunk+` WHERE source_id = $1 AND NOT deleted ORDER BY created_at ASC, id ASC`,
		sourceID)
}

func (s *PostgresStore) ListByCurriculum(ctx context.Context, curriculumID string) ([]KnowledgeChunk, error) {
	return s.listQuery(ctx,
		selectChunk+` WHERE curriculum_id = $1 AND NOT deleted ORDER BY created_at ASC, id ASC`,
		curriculumID)
}

func (s *PostgresStore) SoftDelete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	cmd, err := s.pool.Exec(ctx,
		`UPDATE knowledge_chunks SET deleted = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("soft delete chunk: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("chunk not found: %s", id)
	}
	return nil
}

const selectChunk = `SELECT id, source_id, curriculum_id, content, chunk_type,
	difficulty, objective, topic, word_count, embedding, tags, deleted, created_at
	FROM knowledge_chunks`

func (s *PostgresStore) listQuery(ctx context.Context, query string, args ...any) ([]KnowledgeChunk, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	var out []KnowledgeChunk
	for rows.Next() {
		kc, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *kc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}
	return out, nil
}

func scanChunk(row pgx.Row) (*KnowledgeChunk, error) {
	var kc KnowledgeChunk
	var chunkType string
	var embedding, tags []byte

	err := row.Scan(
		&kc.ID,
		&kc.SourceID,
		&kc.CurriculumID,
		&kc.Content,
		&chunkType,
		&kc.Difficulty,
		&kc.ObjectiveID,
		&kc.TopicID,
		&kc.WordCount,
		&embedding,
		&tags,
		&kc.Deleted,
		&kc.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pgx.ErrNoRows
		}
		return nil, fmt.Errorf("scan chunk: %w", err)
	}

	kc.Type = Type(chunkType)
	if len(embedding) > 0 {
		if err := json.Unmarshal(embedding, &kc.Embedding); err != nil {
			return nil, fmt.Errorf("decode embedding: %w", err)
		}
	}
	if err := json.Unmarshal(tags, &kc.Tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}

	return &kc, nil
}

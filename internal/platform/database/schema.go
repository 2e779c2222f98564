package database

// schema holds the pipeline tables. Every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS source_records (
		id               TEXT PRIMARY KEY,
		curriculum_id    TEXT NOT NULL,
		title            TEXT NOT NULL,
		url              TEXT NOT NULL,
		publisher        TEXT NOT NULL DEFAULT '',
		source_type      TEXT NOT NULL,
		license_type     TEXT NOT NULL,
		content_format   TEXT NOT NULL,
		description      TEXT NOT NULL DEFAULT '',
		topics           JSONB NOT NULL DEFAULT '[]',
		objectives       JSONB NOT NULL DEFAULT '[]',
		scoring          JSONB NOT NULL,
		vetted           BOOLEAN NOT NULL DEFAULT FALSE,
		extraction_state TEXT NOT NULL DEFAULT 'pending',
		chunk_ids        JSONB NOT NULL DEFAULT '[]',
		discovered_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_source_records_curriculum
		ON source_records (curriculum_id)`,
	`CREATE INDEX IF NOT EXISTS idx_source_records_vetted
		ON source_records (curriculum_id, vetted)`,

	`CREATE TABLE IF NOT EXISTS knowledge_chunks (
		id            TEXT PRIMARY KEY,
		source_id     TEXT NOT NULL,
		curriculum_id TEXT NOT NULL,
		content       TEXT NOT NULL,
		chunk_type    TEXT NOT NULL,
		difficulty    TEXT NOT NULL,
		objective     TEXT,
		topic         TEXT NOT NULL DEFAULT '',
		word_count    INTEGER NOT NULL,
		embedding     JSONB,
		tags          JSONB NOT NULL DEFAULT '[]',
		deleted       BOOLEAN NOT NULL DEFAULT FALSE,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_knowledge_chunks_source
		ON knowledge_chunks (source_id) WHERE NOT deleted`,
	`CREATE INDEX IF NOT EXISTS idx_knowledge_chunks_curriculum
		ON knowledge_chunks (curriculum_id) WHERE NOT deleted`,

	`CREATE TABLE IF NOT EXISTS known_sources (
		key            TEXT PRIMARY KEY,
		source_name    TEXT NOT NULL,
		base_url       TEXT NOT NULL,
		url_pattern    TEXT NOT NULL,
		country        TEXT NOT NULL,
		region         TEXT,
		subjects       JSONB NOT NULL DEFAULT '[]',
		grades         JSONB NOT NULL DEFAULT '[]',
		license        TEXT NOT NULL,
		authority      INTEGER NOT NULL,
		content_format TEXT NOT NULL,
		is_active      BOOLEAN NOT NULL DEFAULT TRUE,
		last_verified  TIMESTAMPTZ,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_known_sources_location
		ON known_sources (country, region) WHERE is_active`,

	`CREATE TABLE IF NOT EXISTS job_records (
		id         TEXT PRIMARY KEY,
		job_type   TEXT NOT NULL,
		status     TEXT NOT NULL,
		request    JSONB NOT NULL,
		stages     JSONB NOT NULL DEFAULT '[]',
		summary    JSONB,
		error      TEXT NOT NULL DEFAULT '',
		started_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		ended_at   TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_job_records_type
		ON job_records (job_type, started_at DESC)`,
}

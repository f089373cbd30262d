package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migration is a single versioned schema change.
type Migration struct {
	Version string
	Name    string
	SQL     string
}

// MigrationResult holds the result of a migration run.
type MigrationResult struct {
	Applied []string
	Skipped []string
}

// migrations holds the full schema in version order. Statements must be
// idempotent-safe to re-run only through the tracking table, not by
// themselves.
var migrations = []Migration{
	{
		Version: "001",
		Name:    "meetings_core",
		SQL: `
CREATE TABLE meetings (
    meeting_id  BIGINT PRIMARY KEY,
    name        TEXT NOT NULL DEFAULT '',
    date        TEXT NOT NULL DEFAULT '',
    time        TEXT NOT NULL DEFAULT '',
    location    TEXT NOT NULL DEFAULT '',
    type_id     INTEGER NOT NULL DEFAULT 0,
    video_url   TEXT NOT NULL DEFAULT ''
);

CREATE TABLE agenda_items (
    id             BIGSERIAL PRIMARY KEY,
    meeting_id     BIGINT NOT NULL REFERENCES meetings(meeting_id),
    item_key       TEXT NOT NULL,
    section        TEXT NOT NULL DEFAULT '',
    title          TEXT NOT NULL DEFAULT '',
    topics         TEXT[] NOT NULL DEFAULT '{}',
    zoning_signals JSONB,
    CONSTRAINT uq_meeting_item_key UNIQUE (meeting_id, item_key)
);
CREATE INDEX idx_agenda_items_meeting ON agenda_items(meeting_id);

CREATE TABLE documents (
    id             BIGSERIAL PRIMARY KEY,
    meeting_id     BIGINT NOT NULL REFERENCES meetings(meeting_id),
    agenda_item_id BIGINT REFERENCES agenda_items(id),
    document_id    BIGINT NOT NULL,
    title          TEXT NOT NULL DEFAULT '',
    url            TEXT NOT NULL DEFAULT '',
    handle         TEXT NOT NULL DEFAULT '',
    CONSTRAINT uq_meeting_document_id UNIQUE (meeting_id, document_id)
);
CREATE INDEX idx_documents_meeting ON documents(meeting_id);
`,
	},
	{
		Version: "002",
		Name:    "raw_payloads_and_extractions",
		SQL: `
CREATE TABLE meeting_raw_payloads (
    id                     BIGSERIAL PRIMARY KEY,
    meeting_id             BIGINT NOT NULL REFERENCES meetings(meeting_id),
    meeting_data_json      TEXT NOT NULL DEFAULT '',
    meeting_documents_json TEXT NOT NULL DEFAULT '',
    fetched_at             TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT uq_raw_payload_meeting UNIQUE (meeting_id)
);

CREATE TABLE meeting_minutes_metadata (
    id            BIGSERIAL PRIMARY KEY,
    meeting_id    BIGINT NOT NULL REFERENCES meetings(meeting_id),
    document_id   BIGINT NOT NULL,
    title         TEXT NOT NULL DEFAULT '',
    url           TEXT NOT NULL DEFAULT '',
    detected_date TEXT NOT NULL DEFAULT '',
    page_count    INTEGER,
    text_excerpt  TEXT NOT NULL DEFAULT '',
    status        TEXT NOT NULL DEFAULT 'unknown',
    CONSTRAINT uq_minutes_meeting_document UNIQUE (meeting_id, document_id)
);

CREATE TABLE document_text_extractions (
    id           BIGSERIAL PRIMARY KEY,
    meeting_id   BIGINT NOT NULL REFERENCES meetings(meeting_id),
    document_id  BIGINT NOT NULL,
    title        TEXT NOT NULL DEFAULT '',
    url          TEXT NOT NULL DEFAULT '',
    content_type TEXT NOT NULL DEFAULT '',
    text_excerpt TEXT NOT NULL DEFAULT '',
    text_length  INTEGER NOT NULL DEFAULT 0,
    status       TEXT NOT NULL DEFAULT 'unknown',
    CONSTRAINT uq_doctext_meeting_document UNIQUE (meeting_id, document_id)
);
`,
	},
	{
		Version: "003",
		Name:    "entity_graph",
		SQL: `
CREATE TABLE entities (
    id               BIGSERIAL PRIMARY KEY,
    entity_type      TEXT NOT NULL,
    display_value    TEXT NOT NULL DEFAULT '',
    normalized_value TEXT NOT NULL,
    CONSTRAINT uq_entity_type_value UNIQUE (entity_type, normalized_value)
);

CREATE TABLE entity_aliases (
    id               BIGSERIAL PRIMARY KEY,
    entity_id        BIGINT NOT NULL REFERENCES entities(id),
    alias_text       TEXT NOT NULL,
    normalized_alias TEXT NOT NULL,
    source           TEXT NOT NULL DEFAULT '',
    confidence       DOUBLE PRECISION NOT NULL DEFAULT 1.0,
    CONSTRAINT uq_entity_alias UNIQUE (entity_id, normalized_alias)
);

CREATE TABLE entity_mentions (
    id             BIGSERIAL PRIMARY KEY,
    entity_id      BIGINT NOT NULL REFERENCES entities(id),
    meeting_id     BIGINT NOT NULL,
    agenda_item_id BIGINT,
    document_id    BIGINT,
    source_type    TEXT NOT NULL,
    source_id      BIGINT NOT NULL,
    mention_text   TEXT NOT NULL DEFAULT '',
    context_text   TEXT NOT NULL DEFAULT '',
    confidence     DOUBLE PRECISION NOT NULL DEFAULT 1.0
);
CREATE INDEX idx_mentions_meeting ON entity_mentions(meeting_id);
CREATE INDEX idx_mentions_source ON entity_mentions(source_type, source_id);

CREATE TABLE entity_bindings (
    id           BIGSERIAL PRIMARY KEY,
    entity_id    BIGINT NOT NULL REFERENCES entities(id),
    source_table TEXT NOT NULL,
    source_id    BIGINT NOT NULL,
    CONSTRAINT uq_binding_source UNIQUE (source_table, source_id)
);

CREATE TABLE entity_connections (
    id                   BIGSERIAL PRIMARY KEY,
    from_entity_id       BIGINT NOT NULL REFERENCES entities(id),
    to_entity_id         BIGINT NOT NULL REFERENCES entities(id),
    relation_type        TEXT NOT NULL,
    meeting_id           BIGINT,
    document_id          BIGINT,
    evidence_source_type TEXT NOT NULL,
    evidence_source_id   BIGINT NOT NULL,
    strength             DOUBLE PRECISION NOT NULL DEFAULT 1.0,
    evidence_count       INTEGER NOT NULL DEFAULT 1,
    last_seen_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT uq_connection_evidence UNIQUE
        (from_entity_id, to_entity_id, relation_type, evidence_source_type, evidence_source_id)
);
CREATE INDEX idx_connections_from ON entity_connections(from_entity_id);
CREATE INDEX idx_connections_to ON entity_connections(to_entity_id);
CREATE INDEX idx_connections_meeting ON entity_connections(meeting_id);
`,
	},
}

// Migrations returns the embedded migration set in version order.
func Migrations() []Migration {
	out := make([]Migration, len(migrations))
	copy(out, migrations)
	return out
}

// RunMigrations applies all pending embedded migrations. A tracking table
// prevents re-running applied versions.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) (*MigrationResult, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}

	result := &MigrationResult{}

	if err := ensureMigrationsTable(ctx, pool); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := getAppliedMigrations(ctx, pool)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}

	for _, m := range migrations {
		if applied[m.Version] {
			result.Skipped = append(result.Skipped, m.Version)
			continue
		}
		if err := applyMigration(ctx, pool, m); err != nil {
			return result, fmt.Errorf("migration %s (%s) failed: %w", m.Version, m.Name, err)
		}
		result.Applied = append(result.Applied, m.Version)
	}

	return result, nil
}

func ensureMigrationsTable(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	return err
}

func getAppliedMigrations(ctx context.Context, pool *pgxpool.Pool) (map[string]bool, error) {
	rows, err := pool.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func applyMigration(ctx context.Context, pool *pgxpool.Pool, m Migration) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, m.SQL); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`,
		m.Version, m.Name,
	); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

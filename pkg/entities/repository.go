package entities

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/civicwatch/civicwatch/pkg/logging"
	"github.com/civicwatch/civicwatch/pkg/textutil"
)

// Mention is one evidentiary occurrence of an entity in a source text.
// Mentions are append-only: re-ingest adds new rows but never duplicates
// an identical (entity, source_type, source_id, mention_text) tuple.
type Mention struct {
	ID           int64
	EntityID     int64
	MeetingID    int64
	AgendaItemID *int64
	DocumentID   *int64
	SourceType   string
	SourceID     int64
	MentionText  string
	ContextText  string
	Confidence   float64
}

// Repository provides database operations for entities, aliases, and
// mentions.
type Repository struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewRepository creates a new entity repository.
func NewRepository(pool *pgxpool.Pool, logger logging.Logger) *Repository {
	return &Repository{
		pool:   pool,
		logger: logger.With(logging.F("component", "entity_repository")),
	}
}

// UpsertEntity finds an entity by (entity_type, normalized_value) or
// creates it. An existing row with an empty display value is backfilled
// from the new mention. Returns the entity id.
func (r *Repository) UpsertEntity(ctx context.Context, entityType, displayValue, normalizedValue string) (int64, error) {
	var (
		id      int64
		display string
	)
	err := r.pool.QueryRow(ctx,
		`SELECT id, display_value FROM entities WHERE entity_type = $1 AND normalized_value = $2`,
		entityType, normalizedValue,
	).Scan(&id, &display)
	if err == nil {
		if display == "" && displayValue != "" {
			_, err = r.pool.Exec(ctx,
				`UPDATE entities SET display_value = $1 WHERE id = $2`, displayValue, id)
			if err != nil {
				return 0, fmt.Errorf("failed to backfill entity display value: %w", err)
			}
		}
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("failed to look up entity: %w", err)
	}

	err = r.pool.QueryRow(ctx,
		`INSERT INTO entities (entity_type, display_value, normalized_value)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (entity_type, normalized_value) DO NOTHING
		 RETURNING id`,
		entityType, displayValue, normalizedValue,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		// Lost a race to a concurrent insert; the row exists now.
		err = r.pool.QueryRow(ctx,
			`SELECT id FROM entities WHERE entity_type = $1 AND normalized_value = $2`,
			entityType, normalizedValue,
		).Scan(&id)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to insert entity: %w", err)
	}
	return id, nil
}

// UpsertAlias records an alternate string form for an entity. Existing
// (entity_id, normalized_alias) rows are left untouched.
func (r *Repository) UpsertAlias(ctx context.Context, entityID int64, aliasText, source string, confidence float64) error {
	aliasText = textutil.Normalize(aliasText)
	if aliasText == "" {
		return nil
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO entity_aliases (entity_id, alias_text, normalized_alias, source, confidence)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (entity_id, normalized_alias) DO NOTHING`,
		entityID, aliasText, strings.ToLower(aliasText), source, confidence)
	if err != nil {
		return fmt.Errorf("failed to upsert alias: %w", err)
	}
	return nil
}

// InsertMention appends a mention unless an identical one already exists
// for the same source. Returns true when a row was inserted.
func (r *Repository) InsertMention(ctx context.Context, m *Mention) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
		    SELECT 1 FROM entity_mentions
		    WHERE entity_id = $1 AND source_type = $2 AND source_id = $3
		      AND LOWER(mention_text) = LOWER($4)
		 )`,
		m.EntityID, m.SourceType, m.SourceID, m.MentionText,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check for existing mention: %w", err)
	}
	if exists {
		return false, nil
	}

	err = r.pool.QueryRow(ctx,
		`INSERT INTO entity_mentions (
		    entity_id, meeting_id, agenda_item_id, document_id,
		    source_type, source_id, mention_text, context_text, confidence
		 ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		m.EntityID, m.MeetingID, m.AgendaItemID, m.DocumentID,
		m.SourceType, m.SourceID, m.MentionText, textutil.Snippet(m.ContextText, 2000), m.Confidence,
	).Scan(&m.ID)
	if err != nil {
		return false, fmt.Errorf("failed to insert mention: %w", err)
	}
	return true, nil
}

// ListMentionsForMeeting returns all mentions recorded against a meeting,
// joined entity ids included, in insertion order. Used by the graph
// builder when rebuilding a meeting's edges.
func (r *Repository) ListMentionsForMeeting(ctx context.Context, meetingID int64) ([]Mention, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, entity_id, meeting_id, agenda_item_id, document_id,
		        source_type, source_id, mention_text, context_text, confidence
		 FROM entity_mentions
		 WHERE meeting_id = $1
		 ORDER BY id`,
		meetingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list mentions: %w", err)
	}
	defer rows.Close()

	var out []Mention
	for rows.Next() {
		var m Mention
		if err := rows.Scan(
			&m.ID, &m.EntityID, &m.MeetingID, &m.AgendaItemID, &m.DocumentID,
			&m.SourceType, &m.SourceID, &m.MentionText, &m.ContextText, &m.Confidence,
		); err != nil {
			return nil, fmt.Errorf("failed to scan mention: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read mentions: %w", err)
	}
	return out, nil
}

// EntityType returns the entity_type for an entity id.
func (r *Repository) EntityType(ctx context.Context, entityID int64) (string, error) {
	var entityType string
	err := r.pool.QueryRow(ctx,
		`SELECT entity_type FROM entities WHERE id = $1`, entityID).Scan(&entityType)
	if err != nil {
		return "", fmt.Errorf("failed to look up entity type: %w", err)
	}
	return entityType, nil
}

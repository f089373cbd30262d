package graph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/civicwatch/civicwatch/pkg/entities"
	cwerrors "github.com/civicwatch/civicwatch/pkg/errors"
)

// PgxStore implements Store over the relational schema.
type PgxStore struct {
	pool *pgxpool.Pool
}

// NewPgxStore creates a graph store over a connection pool.
func NewPgxStore(pool *pgxpool.Pool) *PgxStore {
	return &PgxStore{pool: pool}
}

func (s *PgxStore) Meeting(ctx context.Context, meetingID int64) (*MeetingInfo, error) {
	var m MeetingInfo
	err := s.pool.QueryRow(ctx,
		`SELECT meeting_id, name FROM meetings WHERE meeting_id = $1`, meetingID,
	).Scan(&m.ID, &m.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("meeting %d: %w", meetingID, cwerrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load meeting: %w", err)
	}
	return &m, nil
}

func (s *PgxStore) Documents(ctx context.Context, meetingID int64) ([]DocumentInfo, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, document_id, title FROM documents WHERE meeting_id = $1 ORDER BY id`,
		meetingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var out []DocumentInfo
	for rows.Next() {
		var d DocumentInfo
		if err := rows.Scan(&d.RowID, &d.DocumentID, &d.Title); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read documents: %w", err)
	}
	return out, nil
}

func (s *PgxStore) Mentions(ctx context.Context, meetingID int64) ([]entities.Mention, error) {
	rows, err := s.pool.Query(ctx,
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

	var out []entities.Mention
	for rows.Next() {
		var m entities.Mention
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

func (s *PgxStore) EntityType(ctx context.Context, entityID int64) (string, error) {
	var entityType string
	err := s.pool.QueryRow(ctx,
		`SELECT entity_type FROM entities WHERE id = $1`, entityID).Scan(&entityType)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("entity %d: %w", entityID, cwerrors.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to load entity: %w", err)
	}
	return entityType, nil
}

func (s *PgxStore) UpsertEntity(ctx context.Context, entityType, displayValue, normalizedValue string) (int64, error) {
	var (
		id      int64
		display string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, display_value FROM entities WHERE entity_type = $1 AND normalized_value = $2`,
		entityType, normalizedValue,
	).Scan(&id, &display)
	if err == nil {
		if displayValue != "" && display != displayValue {
			if _, err := s.pool.Exec(ctx,
				`UPDATE entities SET display_value = $1 WHERE id = $2`, displayValue, id); err != nil {
				return 0, fmt.Errorf("failed to refresh entity display value: %w", err)
			}
		}
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("failed to look up entity: %w", err)
	}

	err = s.pool.QueryRow(ctx,
		`INSERT INTO entities (entity_type, display_value, normalized_value)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (entity_type, normalized_value) DO NOTHING
		 RETURNING id`,
		entityType, displayValue, normalizedValue,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		err = s.pool.QueryRow(ctx,
			`SELECT id FROM entities WHERE entity_type = $1 AND normalized_value = $2`,
			entityType, normalizedValue,
		).Scan(&id)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to insert entity: %w", err)
	}
	return id, nil
}

func (s *PgxStore) UpsertBinding(ctx context.Context, entityID int64, sourceTable string, sourceID int64) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO entity_bindings (entity_id, source_table, source_id)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (source_table, source_id) DO UPDATE SET entity_id = EXCLUDED.entity_id`,
		entityID, sourceTable, sourceID)
	if err != nil {
		return fmt.Errorf("failed to upsert binding: %w", err)
	}
	return nil
}

func (s *PgxStore) UpsertConnection(ctx context.Context, c *Connection) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO entity_connections (
		    from_entity_id, to_entity_id, relation_type,
		    meeting_id, document_id,
		    evidence_source_type, evidence_source_id,
		    strength, evidence_count, last_seen_at
		 ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1, $9)
		 ON CONFLICT (from_entity_id, to_entity_id, relation_type, evidence_source_type, evidence_source_id)
		 DO UPDATE SET
		    meeting_id   = COALESCE(EXCLUDED.meeting_id, entity_connections.meeting_id),
		    document_id  = COALESCE(EXCLUDED.document_id, entity_connections.document_id),
		    strength     = EXCLUDED.strength,
		    last_seen_at = EXCLUDED.last_seen_at`,
		c.FromEntityID, c.ToEntityID, c.RelationType,
		c.MeetingID, c.DocumentID,
		c.EvidenceSourceType, c.EvidenceSourceID,
		c.Strength, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert connection: %w", err)
	}
	return nil
}

// AggregatedConnection is the read-side view of all evidence rows between
// two nodes under one relation.
type AggregatedConnection struct {
	FromEntityID  int64     `json:"from_entity_id"`
	ToEntityID    int64     `json:"to_entity_id"`
	RelationType  string    `json:"relation_type"`
	EvidenceCount int       `json:"evidence_count"`
	MaxStrength   float64   `json:"max_strength"`
	LastSeenAt    time.Time `json:"last_seen_at"`
}

// AggregateConnections folds the per-evidence edge rows touching an
// entity into one row per (from, to, relation). Evidence counts are
// computed here, at read time, so the write path never collapses
// provenance.
func (s *PgxStore) AggregateConnections(ctx context.Context, entityID int64) ([]AggregatedConnection, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT from_entity_id, to_entity_id, relation_type,
		        COUNT(*) AS evidence_count,
		        MAX(strength) AS max_strength,
		        MAX(last_seen_at) AS last_seen_at
		 FROM entity_connections
		 WHERE from_entity_id = $1 OR to_entity_id = $1
		 GROUP BY from_entity_id, to_entity_id, relation_type
		 ORDER BY evidence_count DESC, relation_type, to_entity_id`,
		entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate connections: %w", err)
	}
	defer rows.Close()

	var out []AggregatedConnection
	for rows.Next() {
		var a AggregatedConnection
		if err := rows.Scan(
			&a.FromEntityID, &a.ToEntityID, &a.RelationType,
			&a.EvidenceCount, &a.MaxStrength, &a.LastSeenAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan aggregated connection: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read aggregated connections: %w", err)
	}
	return out, nil
}

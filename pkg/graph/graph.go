// Package graph converts a meeting's structural facts and entity
// mentions into durable graph state: entity nodes, source bindings, and
// evidence-anchored connections. Rebuilds are idempotent; running one
// twice converges to the same state.
package graph

import (
	"context"
	"fmt"

	"github.com/civicwatch/civicwatch/pkg/entities"
	"github.com/civicwatch/civicwatch/pkg/logging"
)

// Relation types.
const (
	RelationContainsDocument = "contains_document"
	RelationMentions         = "mentions"
	RelationOccursOn         = "occurs_on"
	RelationOccursAt         = "occurs_at"
)

// Source tables for structural bindings.
const (
	TableMeetings  = "meetings"
	TableDocuments = "documents"
)

// MeetingInfo is the slice of a meeting row the builder needs.
type MeetingInfo struct {
	ID   int64
	Name string
}

// DocumentInfo is the slice of a document row the builder needs. RowID is
// the local primary key; DocumentID is the upstream identifier.
type DocumentInfo struct {
	RowID      int64
	DocumentID int64
	Title      string
}

// Connection is one graph edge anchored to a specific piece of evidence.
// Uniqueness is on (from, to, relation, evidence_source_type,
// evidence_source_id); evidence counts are aggregated by readers, never
// collapsed at write time.
type Connection struct {
	FromEntityID       int64
	ToEntityID         int64
	RelationType       string
	MeetingID          *int64
	DocumentID         *int64
	EvidenceSourceType string
	EvidenceSourceID   int64
	Strength           float64
}

// Store is the persistence port the builder drives. All upserts are
// lookup-by-natural-key-then-insert, never blind inserts.
type Store interface {
	Meeting(ctx context.Context, meetingID int64) (*MeetingInfo, error)
	Documents(ctx context.Context, meetingID int64) ([]DocumentInfo, error)
	Mentions(ctx context.Context, meetingID int64) ([]entities.Mention, error)
	EntityType(ctx context.Context, entityID int64) (string, error)
	UpsertEntity(ctx context.Context, entityType, displayValue, normalizedValue string) (int64, error)
	UpsertBinding(ctx context.Context, entityID int64, sourceTable string, sourceID int64) error
	UpsertConnection(ctx context.Context, c *Connection) error
}

// Stats summarizes one rebuild. Skipped counts entities or edges dropped
// over malformed input; a non-zero Skipped is degraded, not failed.
type Stats struct {
	MeetingEntities  int `json:"meeting_entities"`
	DocumentEntities int `json:"document_entities"`
	Connections      int `json:"connections"`
	Skipped          int `json:"skipped"`
}

// Builder rebuilds graph state per meeting.
type Builder struct {
	store  Store
	logger logging.Logger
}

// NewBuilder creates a graph builder over a store.
func NewBuilder(store Store, logger logging.Logger) *Builder {
	return &Builder{
		store:  store,
		logger: logger.With(logging.F("component", "graph_builder")),
	}
}

// MeetingKey derives the normalized node key for a meeting.
func MeetingKey(meetingID int64) string {
	return fmt.Sprintf("meeting:%d", meetingID)
}

// DocumentKey derives the normalized node key for a document within its
// meeting.
func DocumentKey(meetingID, documentID int64) string {
	return fmt.Sprintf("document:%d:%d", meetingID, documentID)
}

func meetingLabel(m *MeetingInfo) string {
	label := fmt.Sprintf("Meeting %d", m.ID)
	if m.Name != "" {
		label += " • " + m.Name
	}
	return label
}

func documentLabel(d DocumentInfo) string {
	if d.Title != "" {
		return d.Title
	}
	return fmt.Sprintf("Document %d", d.DocumentID)
}

// RebuildForMeeting re-derives a meeting's graph state from stored rows.
// A failure on one entity or edge is logged, counted in Skipped, and does
// not abort the rest of the rebuild. An unknown meeting id is an error.
func (b *Builder) RebuildForMeeting(ctx context.Context, meetingID int64) (Stats, error) {
	var stats Stats

	meeting, err := b.store.Meeting(ctx, meetingID)
	if err != nil {
		return stats, fmt.Errorf("failed to load meeting %d: %w", meetingID, err)
	}

	meetingEntityID, err := b.store.UpsertEntity(ctx,
		entities.TypeMeeting, meetingLabel(meeting), MeetingKey(meetingID))
	if err != nil {
		return stats, fmt.Errorf("failed to upsert meeting node: %w", err)
	}
	if err := b.store.UpsertBinding(ctx, meetingEntityID, TableMeetings, meetingID); err != nil {
		return stats, fmt.Errorf("failed to bind meeting node: %w", err)
	}
	stats.MeetingEntities = 1

	docs, err := b.store.Documents(ctx, meetingID)
	if err != nil {
		return stats, fmt.Errorf("failed to load documents: %w", err)
	}

	docEntityByDocumentID := make(map[int64]int64, len(docs))
	for _, doc := range docs {
		docEntityID, err := b.store.UpsertEntity(ctx,
			entities.TypeDocument, documentLabel(doc), DocumentKey(meetingID, doc.DocumentID))
		if err != nil {
			b.skip(&stats, "document node", err, logging.F("document_id", doc.DocumentID))
			continue
		}
		// Bind to the local row PK, not the upstream document id, so
		// bindings stay aligned to source table primary keys.
		if err := b.store.UpsertBinding(ctx, docEntityID, TableDocuments, doc.RowID); err != nil {
			b.skip(&stats, "document binding", err, logging.F("document_id", doc.DocumentID))
			continue
		}
		docEntityByDocumentID[doc.DocumentID] = docEntityID

		err = b.store.UpsertConnection(ctx, &Connection{
			FromEntityID:       meetingEntityID,
			ToEntityID:         docEntityID,
			RelationType:       RelationContainsDocument,
			MeetingID:          &meeting.ID,
			DocumentID:         &doc.DocumentID,
			EvidenceSourceType: TableDocuments,
			EvidenceSourceID:   doc.RowID,
			Strength:           1.0,
		})
		if err != nil {
			b.skip(&stats, "contains_document edge", err, logging.F("document_id", doc.DocumentID))
			continue
		}
		stats.DocumentEntities++
		stats.Connections++
	}

	mentions, err := b.store.Mentions(ctx, meetingID)
	if err != nil {
		return stats, fmt.Errorf("failed to load mentions: %w", err)
	}

	for _, mention := range mentions {
		entityType, err := b.store.EntityType(ctx, mention.EntityID)
		if err != nil {
			b.skip(&stats, "mentioned entity", err, logging.F("entity_id", mention.EntityID))
			continue
		}

		strength := mention.Confidence
		if strength == 0 {
			strength = 1.0
		}

		err = b.store.UpsertConnection(ctx, &Connection{
			FromEntityID:       meetingEntityID,
			ToEntityID:         mention.EntityID,
			RelationType:       relationForMention(mention, entityType),
			MeetingID:          &meeting.ID,
			DocumentID:         mention.DocumentID,
			EvidenceSourceType: mention.SourceType,
			EvidenceSourceID:   mention.SourceID,
			Strength:           strength,
		})
		if err != nil {
			b.skip(&stats, "mention edge", err, logging.F("entity_id", mention.EntityID))
			continue
		}
		stats.Connections++

		// Document-level edge when the evidence is document-scoped.
		if mention.DocumentID == nil {
			continue
		}
		docEntityID, ok := docEntityByDocumentID[*mention.DocumentID]
		if !ok {
			continue
		}
		err = b.store.UpsertConnection(ctx, &Connection{
			FromEntityID:       docEntityID,
			ToEntityID:         mention.EntityID,
			RelationType:       RelationMentions,
			MeetingID:          &meeting.ID,
			DocumentID:         mention.DocumentID,
			EvidenceSourceType: mention.SourceType,
			EvidenceSourceID:   mention.SourceID,
			Strength:           strength,
		})
		if err != nil {
			b.skip(&stats, "document mention edge", err, logging.F("entity_id", mention.EntityID))
			continue
		}
		stats.Connections++
	}

	return stats, nil
}

func (b *Builder) skip(stats *Stats, what string, err error, fields ...logging.Field) {
	stats.Skipped++
	fields = append(fields, logging.Err(err))
	b.logger.Warn("skipping "+what+" during graph rebuild", fields...)
}

// relationForMention picks the meeting-level relation for a mention.
// Meeting-metadata date and address mentions become occurs_on/occurs_at;
// everything else is a plain mentions edge.
func relationForMention(m entities.Mention, entityType string) string {
	if m.SourceType == entities.SourceMeetingMetadata {
		switch entityType {
		case entities.TypeDate:
			return RelationOccursOn
		case entities.TypeAddress:
			return RelationOccursAt
		}
	}
	return RelationMentions
}

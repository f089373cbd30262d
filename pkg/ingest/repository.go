package ingest

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/civicwatch/civicwatch/pkg/logging"
	"github.com/civicwatch/civicwatch/pkg/zoning"
)

// Meeting is the stored meeting row.
type Meeting struct {
	MeetingID int64
	Name      string
	Date      string
	Time      string
	Location  string
	TypeID    int
	VideoURL  string
}

// AgendaItemRecord is one stored agenda item with its computed topic set
// and, for zoning items, the extracted signals.
type AgendaItemRecord struct {
	ID            int64
	MeetingID     int64
	ItemKey       string
	Section       string
	Title         string
	Topics        []string
	ZoningSignals *zoning.Signals
}

// DocumentRecord is one stored document row. DocumentID is the upstream
// identifier; ID is the local primary key.
type DocumentRecord struct {
	ID           int64
	MeetingID    int64
	AgendaItemID *int64
	DocumentID   int64
	Title        string
	URL          string
	Handle       string
}

// Repository persists meetings, agenda items, documents, and raw
// payloads.
type Repository struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewRepository creates a new ingest repository.
func NewRepository(pool *pgxpool.Pool, logger logging.Logger) *Repository {
	return &Repository{
		pool:   pool,
		logger: logger.With(logging.F("component", "ingest_repository")),
	}
}

// UpsertMeeting writes the meeting row, overwriting mutable fields.
func (r *Repository) UpsertMeeting(ctx context.Context, m *Meeting) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO meetings (meeting_id, name, date, time, location, type_id, video_url)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (meeting_id) DO UPDATE SET
		    name      = EXCLUDED.name,
		    date      = EXCLUDED.date,
		    time      = EXCLUDED.time,
		    location  = EXCLUDED.location,
		    type_id   = EXCLUDED.type_id,
		    video_url = EXCLUDED.video_url`,
		m.MeetingID, m.Name, m.Date, m.Time, m.Location, m.TypeID, m.VideoURL)
	if err != nil {
		return fmt.Errorf("failed to upsert meeting: %w", err)
	}
	return nil
}

// StoreRawPayload stores the verbatim upstream responses for a meeting,
// overwriting any prior capture. Kept so the agenda can be re-parsed
// without re-fetching.
func (r *Repository) StoreRawPayload(ctx context.Context, meetingID int64, meetingData, meetingDocuments []byte) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO meeting_raw_payloads (meeting_id, meeting_data_json, meeting_documents_json, fetched_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (meeting_id) DO UPDATE SET
		    meeting_data_json      = EXCLUDED.meeting_data_json,
		    meeting_documents_json = EXCLUDED.meeting_documents_json,
		    fetched_at             = NOW()`,
		meetingID, string(meetingData), string(meetingDocuments))
	if err != nil {
		return fmt.Errorf("failed to store raw payload: %w", err)
	}
	return nil
}

// RawPayload returns the stored upstream responses for a meeting, or nils
// when none were captured.
func (r *Repository) RawPayload(ctx context.Context, meetingID int64) (meetingData, meetingDocuments []byte, err error) {
	var dataJSON, docsJSON string
	err = r.pool.QueryRow(ctx,
		`SELECT meeting_data_json, meeting_documents_json
		 FROM meeting_raw_payloads WHERE meeting_id = $1`,
		meetingID).Scan(&dataJSON, &docsJSON)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load raw payload: %w", err)
	}
	return []byte(dataJSON), []byte(docsJSON), nil
}

// ReplaceAgendaItems makes the meeting's agenda item set match the new
// one inside a transaction. Surviving items are upserted by item_key so
// their row ids stay stable across re-ingests (mention provenance hangs
// off those ids); items no longer present are deleted. Returns the items
// with their row ids.
func (r *Repository) ReplaceAgendaItems(ctx context.Context, meetingID int64, items []AgendaItemRecord) ([]AgendaItemRecord, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	keys := make([]string, 0, len(items))
	for _, item := range items {
		keys = append(keys, item.ItemKey)
	}

	// Unlink documents from items about to disappear, then drop the
	// stale items. Documents are relinked by the caller's upserts.
	if _, err := tx.Exec(ctx,
		`UPDATE documents SET agenda_item_id = NULL
		 WHERE meeting_id = $1 AND agenda_item_id IN (
		     SELECT id FROM agenda_items
		     WHERE meeting_id = $1 AND NOT (item_key = ANY($2))
		 )`, meetingID, keys); err != nil {
		return nil, fmt.Errorf("failed to unlink documents: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`DELETE FROM agenda_items WHERE meeting_id = $1 AND NOT (item_key = ANY($2))`,
		meetingID, keys); err != nil {
		return nil, fmt.Errorf("failed to delete stale agenda items: %w", err)
	}

	out := make([]AgendaItemRecord, 0, len(items))
	for _, item := range items {
		var signalsJSON interface{}
		if !item.ZoningSignals.Empty() {
			raw, err := json.Marshal(item.ZoningSignals)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal zoning signals: %w", err)
			}
			signalsJSON = raw
		}

		topics := item.Topics
		if topics == nil {
			topics = []string{}
		}

		err := tx.QueryRow(ctx,
			`INSERT INTO agenda_items (meeting_id, item_key, section, title, topics, zoning_signals)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (meeting_id, item_key) DO UPDATE SET
			    section        = EXCLUDED.section,
			    title          = EXCLUDED.title,
			    topics         = EXCLUDED.topics,
			    zoning_signals = EXCLUDED.zoning_signals
			 RETURNING id`,
			meetingID, item.ItemKey, item.Section, item.Title, topics, signalsJSON,
		).Scan(&item.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to upsert agenda item %q: %w", item.ItemKey, err)
		}
		item.MeetingID = meetingID
		out = append(out, item)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit agenda items: %w", err)
	}
	return out, nil
}

// UpsertDocument writes a document row keyed by (meeting_id,
// document_id) and returns the local row id.
func (r *Repository) UpsertDocument(ctx context.Context, d *DocumentRecord) (int64, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO documents (meeting_id, agenda_item_id, document_id, title, url, handle)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (meeting_id, document_id) DO UPDATE SET
		    agenda_item_id = EXCLUDED.agenda_item_id,
		    title          = EXCLUDED.title,
		    url            = EXCLUDED.url,
		    handle         = EXCLUDED.handle
		 RETURNING id`,
		d.MeetingID, d.AgendaItemID, d.DocumentID, d.Title, d.URL, d.Handle,
	).Scan(&d.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert document: %w", err)
	}
	return d.ID, nil
}

// AgendaItems returns a meeting's stored agenda items in insertion
// order, optionally filtered to items whose topic set contains topic.
func (r *Repository) AgendaItems(ctx context.Context, meetingID int64, topic string) ([]AgendaItemRecord, error) {
	query := `SELECT id, meeting_id, item_key, section, title, topics, zoning_signals
	          FROM agenda_items WHERE meeting_id = $1`
	args := []interface{}{meetingID}
	if topic != "" {
		query += ` AND $2 = ANY(topics)`
		args = append(args, topic)
	}
	query += ` ORDER BY id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list agenda items: %w", err)
	}
	defer rows.Close()

	var out []AgendaItemRecord
	for rows.Next() {
		var (
			item        AgendaItemRecord
			signalsJSON []byte
		)
		if err := rows.Scan(
			&item.ID, &item.MeetingID, &item.ItemKey, &item.Section, &item.Title,
			&item.Topics, &signalsJSON,
		); err != nil {
			return nil, fmt.Errorf("failed to scan agenda item: %w", err)
		}
		if len(signalsJSON) > 0 {
			var signals zoning.Signals
			if err := json.Unmarshal(signalsJSON, &signals); err != nil {
				return nil, fmt.Errorf("failed to decode zoning signals: %w", err)
			}
			item.ZoningSignals = &signals
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read agenda items: %w", err)
	}
	return out, nil
}

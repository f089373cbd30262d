package minutes

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/civicwatch/civicwatch/pkg/logging"
)

// Repository persists minutes metadata, one row per (meeting, document).
type Repository struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewRepository creates a new minutes metadata repository.
func NewRepository(pool *pgxpool.Pool, logger logging.Logger) *Repository {
	return &Repository{
		pool:   pool,
		logger: logger.With(logging.F("component", "minutes_repository")),
	}
}

// Upsert writes a metadata row, replacing any prior extraction for the
// same (meeting, document). Returns the row id.
func (r *Repository) Upsert(ctx context.Context, m *Metadata) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO meeting_minutes_metadata (
		    meeting_id, document_id, title, url,
		    detected_date, page_count, text_excerpt, status
		 ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (meeting_id, document_id) DO UPDATE SET
		    title         = EXCLUDED.title,
		    url           = EXCLUDED.url,
		    detected_date = EXCLUDED.detected_date,
		    page_count    = EXCLUDED.page_count,
		    text_excerpt  = EXCLUDED.text_excerpt,
		    status        = EXCLUDED.status
		 RETURNING id`,
		m.MeetingID, m.DocumentID, m.Title, m.URL,
		m.DetectedDate, m.PageCount, m.TextExcerpt, m.Status,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert minutes metadata: %w", err)
	}
	return id, nil
}

// ListForMeeting returns stored minutes metadata rows for a meeting in
// document order.
func (r *Repository) ListForMeeting(ctx context.Context, meetingID int64) ([]Metadata, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT meeting_id, document_id, title, url,
		        detected_date, page_count, text_excerpt, status
		 FROM meeting_minutes_metadata
		 WHERE meeting_id = $1
		 ORDER BY document_id`,
		meetingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list minutes metadata: %w", err)
	}
	defer rows.Close()

	var out []Metadata
	for rows.Next() {
		var m Metadata
		if err := rows.Scan(
			&m.MeetingID, &m.DocumentID, &m.Title, &m.URL,
			&m.DetectedDate, &m.PageCount, &m.TextExcerpt, &m.Status,
		); err != nil {
			return nil, fmt.Errorf("failed to scan minutes metadata: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read minutes metadata: %w", err)
	}
	return out, nil
}

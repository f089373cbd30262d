package doctext

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/civicwatch/civicwatch/pkg/logging"
)

// Repository persists document text extractions, one row per
// (meeting, document).
type Repository struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewRepository creates a new document text repository.
func NewRepository(pool *pgxpool.Pool, logger logging.Logger) *Repository {
	return &Repository{
		pool:   pool,
		logger: logger.With(logging.F("component", "doctext_repository")),
	}
}

// Upsert writes an extraction row, replacing any prior one for the same
// (meeting, document). Returns the row id.
func (r *Repository) Upsert(ctx context.Context, x *Extraction) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO document_text_extractions (
		    meeting_id, document_id, title, url,
		    content_type, text_excerpt, text_length, status
		 ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (meeting_id, document_id) DO UPDATE SET
		    title        = EXCLUDED.title,
		    url          = EXCLUDED.url,
		    content_type = EXCLUDED.content_type,
		    text_excerpt = EXCLUDED.text_excerpt,
		    text_length  = EXCLUDED.text_length,
		    status       = EXCLUDED.status
		 RETURNING id`,
		x.MeetingID, x.DocumentID, x.Title, x.URL,
		x.ContentType, x.TextExcerpt, x.TextLength, x.Status,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert document text extraction: %w", err)
	}
	return id, nil
}

// ListForMeeting returns stored extractions for a meeting in document
// order.
func (r *Repository) ListForMeeting(ctx context.Context, meetingID int64) ([]Extraction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT meeting_id, document_id, title, url,
		        content_type, text_excerpt, text_length, status
		 FROM document_text_extractions
		 WHERE meeting_id = $1
		 ORDER BY document_id`,
		meetingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list document text extractions: %w", err)
	}
	defer rows.Close()

	var out []Extraction
	for rows.Next() {
		var x Extraction
		if err := rows.Scan(
			&x.MeetingID, &x.DocumentID, &x.Title, &x.URL,
			&x.ContentType, &x.TextExcerpt, &x.TextLength, &x.Status,
		); err != nil {
			return nil, fmt.Errorf("failed to scan document text extraction: %w", err)
		}
		out = append(out, x)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read document text extractions: %w", err)
	}
	return out, nil
}

package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/civicwatch/civicwatch/pkg/logging"
)

// Redis channels for ingest lifecycle events.
const (
	ChannelMeetingIngested   = "events.meeting.ingested"
	ChannelCrawlJobProgress  = "events.crawl_job.progress"
	ChannelCrawlJobCompleted = "events.crawl_job.completed"
)

// BaseEvent contains common fields for all events.
type BaseEvent struct {
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Version   string    `json:"version"`
}

// NewBaseEvent creates a BaseEvent with sensible defaults.
func NewBaseEvent(eventType string) BaseEvent {
	return BaseEvent{
		EventType: eventType,
		Timestamp: time.Now().UTC(),
		Source:    "civicwatch",
		Version:   "1.0",
	}
}

// MeetingIngestedEvent is published after each meeting ingest.
type MeetingIngestedEvent struct {
	BaseEvent

	MeetingID    int64    `json:"meeting_id"`
	Status       string   `json:"status"`
	AgendaItems  int      `json:"agenda_items"`
	Documents    int      `json:"documents"`
	MentionCount int      `json:"mention_count"`
	ErrorCount   int      `json:"error_count"`
	Errors       []string `json:"errors,omitempty"`
}

// CrawlJobProgressEvent is published as a crawl job advances.
type CrawlJobProgressEvent struct {
	BaseEvent

	JobID            string `json:"job_id"`
	Status           string `json:"status"`
	Discovered       int    `json:"discovered"`
	Processed        int    `json:"processed"`
	CurrentMeetingID int64  `json:"current_meeting_id,omitempty"`
}

// CrawlJobCompletedEvent is published when a crawl job leaves the running
// state.
type CrawlJobCompletedEvent struct {
	BaseEvent

	JobID      string  `json:"job_id"`
	Status     string  `json:"status"`
	FromDate   string  `json:"from_date"`
	ToDate     string  `json:"to_date"`
	Discovered int     `json:"discovered"`
	Processed  int     `json:"processed"`
	ErrorCount int     `json:"error_count"`
	Duration   float64 `json:"duration_seconds"`
}

// EventPublisher publishes pipeline events to Redis. A nil publisher is
// valid and publishes nothing, so eventing stays optional.
type EventPublisher struct {
	client *redis.Client
	logger logging.Logger
}

// NewEventPublisher creates a publisher over an existing Redis client.
func NewEventPublisher(client *redis.Client, logger logging.Logger) *EventPublisher {
	return &EventPublisher{
		client: client,
		logger: logger.With(logging.F("component", "event_publisher")),
	}
}

// NewEventPublisherFromAddr creates a publisher with its own Redis
// connection and verifies it.
func NewEventPublisherFromAddr(addr, password string, db int, logger logging.Logger) (*EventPublisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewEventPublisher(client, logger), nil
}

// MeetingIngested publishes a meeting ingest summary.
func (p *EventPublisher) MeetingIngested(ctx context.Context, result *Result) {
	if p == nil || result == nil {
		return
	}
	p.publish(ctx, ChannelMeetingIngested, MeetingIngestedEvent{
		BaseEvent:    NewBaseEvent("meeting.ingested"),
		MeetingID:    result.MeetingID,
		Status:       result.Status,
		AgendaItems:  result.AgendaItems,
		Documents:    result.Documents,
		MentionCount: result.MentionCount,
		ErrorCount:   len(result.Errors),
		Errors:       result.Errors,
	})
}

// CrawlJobProgress publishes a crawl job progress update.
func (p *EventPublisher) CrawlJobProgress(ctx context.Context, event CrawlJobProgressEvent) {
	if p == nil {
		return
	}
	event.BaseEvent = NewBaseEvent("crawl_job.progress")
	p.publish(ctx, ChannelCrawlJobProgress, event)
}

// CrawlJobCompleted publishes a crawl job terminal-state event.
func (p *EventPublisher) CrawlJobCompleted(ctx context.Context, event CrawlJobCompletedEvent) {
	if p == nil {
		return
	}
	event.BaseEvent = NewBaseEvent("crawl_job.completed")
	p.publish(ctx, ChannelCrawlJobCompleted, event)
}

// Close releases the underlying Redis connection.
func (p *EventPublisher) Close() error {
	if p == nil || p.client == nil {
		return nil
	}
	return p.client.Close()
}

// publish serializes and publishes an event. Publish failures are logged,
// never propagated; eventing is best effort.
func (p *EventPublisher) publish(ctx context.Context, channel string, event interface{}) {
	if p.client == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("failed to marshal event",
			logging.Err(err), logging.F("channel", channel))
		return
	}
	if err := p.client.Publish(ctx, channel, data).Err(); err != nil {
		p.logger.Error("failed to publish event",
			logging.Err(err), logging.F("channel", channel))
	}
}

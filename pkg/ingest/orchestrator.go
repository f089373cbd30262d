// Package ingest orchestrates the full pipeline for one meeting: fetch,
// raw payload capture, agenda parsing and classification, minutes and
// document text extraction, entity extraction, and the graph rebuild.
// Re-running an ingest for the same meeting converges: raw payload is
// overwritten, agenda items are replaced, mentions are de-duplicated,
// and graph upserts are idempotent.
package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/civicwatch/civicwatch/pkg/agenda"
	"github.com/civicwatch/civicwatch/pkg/civicweb"
	"github.com/civicwatch/civicwatch/pkg/doctext"
	"github.com/civicwatch/civicwatch/pkg/entities"
	"github.com/civicwatch/civicwatch/pkg/graph"
	"github.com/civicwatch/civicwatch/pkg/logging"
	"github.com/civicwatch/civicwatch/pkg/minutes"
	"github.com/civicwatch/civicwatch/pkg/textutil"
	"github.com/civicwatch/civicwatch/pkg/topics"
	"github.com/civicwatch/civicwatch/pkg/zoning"
)

// Ingest statuses.
const (
	StatusOK           = "ok"
	StatusNoAgendaHTML = "no_agenda_html"
)

// Alias sources recorded on persisted entity aliases.
const (
	aliasSourceSeed     = "person_seed"
	aliasSourceSnowball = "surname_snowball"
)

// Fetcher is the upstream meeting-data collaborator.
type Fetcher interface {
	GetMeetingData(ctx context.Context, meetingID int64) (*civicweb.MeetingData, []byte, error)
	GetMeetingDocuments(ctx context.Context, meetingID int64) ([]civicweb.MeetingDocument, []byte, error)
}

// Store persists the structural rows of an ingest.
type Store interface {
	UpsertMeeting(ctx context.Context, m *Meeting) error
	StoreRawPayload(ctx context.Context, meetingID int64, meetingData, meetingDocuments []byte) error
	ReplaceAgendaItems(ctx context.Context, meetingID int64, items []AgendaItemRecord) ([]AgendaItemRecord, error)
	UpsertDocument(ctx context.Context, d *DocumentRecord) (int64, error)
}

// EntityStore persists entities, aliases, and mentions.
type EntityStore interface {
	UpsertEntity(ctx context.Context, entityType, displayValue, normalizedValue string) (int64, error)
	UpsertAlias(ctx context.Context, entityID int64, aliasText, source string, confidence float64) error
	InsertMention(ctx context.Context, m *entities.Mention) (bool, error)
}

// MinutesExtractor extracts metadata from a minutes-like document.
type MinutesExtractor interface {
	Extract(ctx context.Context, title, url string) (minutes.Metadata, error)
}

// MinutesStore persists minutes metadata.
type MinutesStore interface {
	Upsert(ctx context.Context, m *minutes.Metadata) (int64, error)
}

// DocTextExtractor extracts searchable text from a document.
type DocTextExtractor interface {
	Extract(ctx context.Context, title, url string) (doctext.Extraction, error)
}

// DocTextStore persists document text extractions.
type DocTextStore interface {
	Upsert(ctx context.Context, x *doctext.Extraction) (int64, error)
}

// GraphRebuilder rebuilds graph state for one meeting.
type GraphRebuilder interface {
	RebuildForMeeting(ctx context.Context, meetingID int64) (graph.Stats, error)
}

// Publisher emits ingest lifecycle events. Implementations must be
// nil-receiver safe so eventing stays optional.
type Publisher interface {
	MeetingIngested(ctx context.Context, result *Result)
}

// Result summarizes one ingest call. Errors carries the degraded,
// non-fatal failures; a non-empty Errors with StatusOK means a partial
// but usable ingest.
type Result struct {
	MeetingID    int64              `json:"meeting_id"`
	Status       string             `json:"status"`
	AgendaItems  int                `json:"agenda_items"`
	Documents    int                `json:"documents"`
	Minutes      []minutes.Metadata `json:"minutes,omitempty"`
	MentionCount int                `json:"mention_count"`
	GraphStats   graph.Stats        `json:"graph_stats"`
	Errors       []string           `json:"errors,omitempty"`
}

// Orchestrator wires the pipeline together.
type Orchestrator struct {
	fetcher  Fetcher
	store    Store
	entity   EntityStore
	minutes  MinutesExtractor
	minrepo  MinutesStore
	dtext    DocTextExtractor
	dtrepo   DocTextStore
	graph    GraphRebuilder
	events   Publisher
	metrics  *Metrics
	parser   *agenda.Parser
	storeRaw bool
	logger   logging.Logger
}

// Options tunes orchestrator behavior.
type Options struct {
	// StoreRaw controls whether upstream payloads are captured. On by
	// default outside tests.
	StoreRaw bool
}

// NewOrchestrator assembles an ingest pipeline. events and metrics may be
// nil; minutes/doctext extractors must be non-nil (use extractors with a
// nil PDF capability to degrade instead).
func NewOrchestrator(
	fetcher Fetcher,
	store Store,
	entity EntityStore,
	minutesExtractor MinutesExtractor,
	minutesStore MinutesStore,
	doctextExtractor DocTextExtractor,
	doctextStore DocTextStore,
	graphBuilder GraphRebuilder,
	parser *agenda.Parser,
	events Publisher,
	metrics *Metrics,
	opts Options,
	logger logging.Logger,
) *Orchestrator {
	return &Orchestrator{
		fetcher:  fetcher,
		store:    store,
		entity:   entity,
		minutes:  minutesExtractor,
		minrepo:  minutesStore,
		dtext:    doctextExtractor,
		dtrepo:   doctextStore,
		graph:    graphBuilder,
		events:   events,
		metrics:  metrics,
		parser:   parser,
		storeRaw: opts.StoreRaw,
		logger:   logger.With(logging.F("component", "ingest_orchestrator")),
	}
}

// IngestMeeting runs the full pipeline for one meeting. A fetch failure
// is fatal and persists nothing; every downstream failure degrades into
// Result.Errors instead of aborting.
func (o *Orchestrator) IngestMeeting(ctx context.Context, meetingID int64) (*Result, error) {
	started := time.Now()
	result := &Result{MeetingID: meetingID, Status: StatusOK}

	meetingData, rawData, err := o.fetcher.GetMeetingData(ctx, meetingID)
	if err != nil {
		o.countError()
		return nil, fmt.Errorf("failed to fetch meeting %d: %w", meetingID, err)
	}
	docs, rawDocs, err := o.fetcher.GetMeetingDocuments(ctx, meetingID)
	if err != nil {
		o.countError()
		return nil, fmt.Errorf("failed to fetch documents for meeting %d: %w", meetingID, err)
	}

	meeting := &Meeting{
		MeetingID: meetingID,
		Name:      textutil.Normalize(meetingData.Name),
		Date:      textutil.FindLongDate(meetingData.Name),
		Time:      textutil.Normalize(meetingData.Time),
		Location:  textutil.Normalize(meetingData.Location),
		TypeID:    meetingData.TypeID,
		VideoURL:  textutil.Normalize(meetingData.MeetingExternalLinkURL),
	}
	if err := o.store.UpsertMeeting(ctx, meeting); err != nil {
		o.countError()
		return nil, fmt.Errorf("failed to persist meeting %d: %w", meetingID, err)
	}

	if o.storeRaw {
		if err := o.store.StoreRawPayload(ctx, meetingID, rawData, rawDocs); err != nil {
			o.degrade(result, "raw payload", err)
		}
	}

	var parsed *agenda.Agenda
	agendaHTML := civicweb.AgendaHTML(docs)
	if agendaHTML == "" {
		result.Status = StatusNoAgendaHTML
	} else {
		parsed, err = o.parser.Parse(agendaHTML)
		if err != nil {
			o.degrade(result, "agenda parse", err)
			parsed = nil
		}
	}

	var items []AgendaItemRecord
	if parsed != nil {
		items = make([]AgendaItemRecord, 0, len(parsed.Items))
		for _, it := range parsed.Items {
			rec := AgendaItemRecord{
				ItemKey: it.ItemKey,
				Section: it.Section,
				Title:   it.Title,
			}
			set := topics.Classify(rec.Title, "")
			rec.Topics = topics.Strings(set)
			if topics.Contains(set, topics.TopicZoning) {
				rec.ZoningSignals = zoning.Extract(rec.Title, "")
			}
			items = append(items, rec)
		}
	}

	stored, err := o.store.ReplaceAgendaItems(ctx, meetingID, items)
	if err != nil {
		o.countError()
		return nil, fmt.Errorf("failed to persist agenda items for meeting %d: %w", meetingID, err)
	}
	result.AgendaItems = len(stored)

	var storedDocs []DocumentRecord
	if parsed != nil {
		seenDocs := make(map[int64]bool)
		for i, it := range parsed.Items {
			if i >= len(stored) {
				break
			}
			itemID := stored[i].ID
			for _, att := range it.Attachments {
				doc := DocumentRecord{
					MeetingID:    meetingID,
					AgendaItemID: &itemID,
					DocumentID:   att.DocumentID,
					Title:        att.Title,
					URL:          att.URL,
					Handle:       att.Handle,
				}
				rowID, err := o.store.UpsertDocument(ctx, &doc)
				if err != nil {
					o.degrade(result, fmt.Sprintf("document %d", doc.DocumentID), err)
					continue
				}
				doc.ID = rowID
				if !seenDocs[doc.DocumentID] {
					seenDocs[doc.DocumentID] = true
					storedDocs = append(storedDocs, doc)
				}
			}
		}
	}
	result.Documents = len(storedDocs)

	minutesRows := o.extractMinutes(ctx, meetingID, storedDocs, result)
	doctextRows := o.extractDocumentText(ctx, meetingID, storedDocs, result)

	result.MentionCount = o.extractEntities(ctx, meeting, stored, storedDocs, minutesRows, doctextRows, result)

	stats, err := o.graph.RebuildForMeeting(ctx, meetingID)
	if err != nil {
		o.degrade(result, "graph rebuild", err)
	}
	result.GraphStats = stats

	if o.metrics != nil {
		o.metrics.MeetingsIngested.Inc()
		o.metrics.MentionsRecorded.Add(float64(result.MentionCount))
		o.metrics.GraphConnections.Add(float64(result.GraphStats.Connections))
		o.metrics.IngestDuration.Observe(time.Since(started).Seconds())
	}
	if o.events != nil {
		o.events.MeetingIngested(ctx, result)
	}

	o.logger.Info("meeting ingested",
		logging.F("meeting_id", meetingID),
		logging.F("status", result.Status),
		logging.F("agenda_items", result.AgendaItems),
		logging.F("documents", result.Documents),
		logging.F("mentions", result.MentionCount),
		logging.F("errors", len(result.Errors)))
	return result, nil
}

func (o *Orchestrator) extractMinutes(ctx context.Context, meetingID int64, docs []DocumentRecord, result *Result) []minutes.Metadata {
	var out []minutes.Metadata
	for _, doc := range docs {
		if !minutes.IsMinutesDocument(doc.Title) {
			continue
		}
		meta, err := o.minutes.Extract(ctx, doc.Title, doc.URL)
		if err != nil {
			o.degrade(result, fmt.Sprintf("minutes extraction for document %d", doc.DocumentID), err)
			continue
		}
		meta.MeetingID = meetingID
		meta.DocumentID = doc.DocumentID
		if _, err := o.minrepo.Upsert(ctx, &meta); err != nil {
			o.degrade(result, fmt.Sprintf("minutes metadata for document %d", doc.DocumentID), err)
			continue
		}
		out = append(out, meta)
	}
	result.Minutes = out
	return out
}

func (o *Orchestrator) extractDocumentText(ctx context.Context, meetingID int64, docs []DocumentRecord, result *Result) []doctext.Extraction {
	var out []doctext.Extraction
	for _, doc := range docs {
		x, err := o.dtext.Extract(ctx, doc.Title, doc.URL)
		if err != nil {
			o.degrade(result, fmt.Sprintf("text extraction for document %d", doc.DocumentID), err)
			continue
		}
		x.MeetingID = meetingID
		x.DocumentID = doc.DocumentID
		if _, err := o.dtrepo.Upsert(ctx, &x); err != nil {
			o.degrade(result, fmt.Sprintf("text extraction row for document %d", doc.DocumentID), err)
			continue
		}
		out = append(out, x)
	}
	return out
}

// textSource is one designated extraction input with its provenance.
type textSource struct {
	sourceType   string
	sourceID     int64
	text         string
	agendaItemID *int64
	documentID   *int64
}

func (o *Orchestrator) extractEntities(
	ctx context.Context,
	meeting *Meeting,
	items []AgendaItemRecord,
	docs []DocumentRecord,
	minutesRows []minutes.Metadata,
	doctextRows []doctext.Extraction,
	result *Result,
) int {
	sources := make([]textSource, 0, 1+len(items)+2*len(docs))

	sources = append(sources, textSource{
		sourceType: entities.SourceMeetingMetadata,
		sourceID:   meeting.MeetingID,
		text:       joinNonEmpty(meeting.Name, meeting.Location, meeting.Time),
	})
	for _, item := range items {
		itemID := item.ID
		sources = append(sources, textSource{
			sourceType:   entities.SourceAgendaItemTitle,
			sourceID:     item.ID,
			text:         item.Title,
			agendaItemID: &itemID,
		})
	}
	for _, doc := range docs {
		docID := doc.DocumentID
		sources = append(sources, textSource{
			sourceType: entities.SourceDocumentTitle,
			sourceID:   doc.ID,
			text:       doc.Title,
			documentID: &docID,
		})
	}
	for _, x := range doctextRows {
		if x.Status != doctext.StatusOK || x.TextExcerpt == "" {
			continue
		}
		docID := x.DocumentID
		sources = append(sources, textSource{
			sourceType: entities.SourceDocumentContent,
			sourceID:   x.DocumentID,
			text:       x.TextExcerpt,
			documentID: &docID,
		})
	}
	for _, meta := range minutesRows {
		if meta.TextExcerpt == "" {
			continue
		}
		docID := meta.DocumentID
		sources = append(sources, textSource{
			sourceType: entities.SourceMinutesExcerpt,
			sourceID:   meta.DocumentID,
			text:       meta.TextExcerpt,
			documentID: &docID,
		})
	}

	aliases := entities.NewAliasSet()
	count := 0
	for _, src := range sources {
		n, err := o.extractSource(ctx, meeting.MeetingID, src, aliases)
		count += n
		if err != nil {
			o.degrade(result, fmt.Sprintf("entity extraction for %s %d", src.sourceType, src.sourceID), err)
		}
	}
	return count
}

// extractSource runs the scanner plus snowball pass over one text
// source. Returns how many mentions were recorded; the error reports the
// first persistence failure, after which remaining candidates for this
// source are abandoned.
func (o *Orchestrator) extractSource(ctx context.Context, meetingID int64, src textSource, aliases *entities.AliasSet) (int, error) {
	cands := entities.Scan(src.text)
	contextText := textutil.Snippet(textutil.Normalize(src.text), 2000)
	count := 0

	for _, cand := range cands {
		entityID, err := o.entity.UpsertEntity(ctx, cand.Type, cand.DisplayValue, cand.NormalizedValue)
		if err != nil {
			return count, err
		}

		if cand.Type == entities.TypePerson {
			aliases.Seed(cand.DisplayValue, cand.NormalizedValue)
			if err := o.entity.UpsertAlias(ctx, entityID, cand.DisplayValue, aliasSourceSeed, 1.0); err != nil {
				return count, err
			}
			for _, alias := range aliases.Aliases(cand.NormalizedValue) {
				if alias == strings.ToLower(cand.DisplayValue) {
					continue
				}
				if err := o.entity.UpsertAlias(ctx, entityID, alias, aliasSourceSnowball, entities.AliasConfidence); err != nil {
					return count, err
				}
			}
		}

		inserted, err := o.entity.InsertMention(ctx, &entities.Mention{
			EntityID:     entityID,
			MeetingID:    meetingID,
			AgendaItemID: src.agendaItemID,
			DocumentID:   src.documentID,
			SourceType:   src.sourceType,
			SourceID:     src.sourceID,
			MentionText:  cand.MentionText,
			ContextText:  contextText,
			Confidence:   cand.Confidence,
		})
		if err != nil {
			return count, err
		}
		if inserted {
			count++
		}
	}

	// Snowball pass: bare references matching an alias derived earlier in
	// this run bind to the same canonical person at reduced confidence.
	for _, match := range aliases.Resolve(src.text) {
		entityID, err := o.entity.UpsertEntity(ctx,
			entities.TypePerson, match.Person.DisplayValue, match.Person.NormalizedValue)
		if err != nil {
			return count, err
		}
		inserted, err := o.entity.InsertMention(ctx, &entities.Mention{
			EntityID:     entityID,
			MeetingID:    meetingID,
			AgendaItemID: src.agendaItemID,
			DocumentID:   src.documentID,
			SourceType:   src.sourceType,
			SourceID:     src.sourceID,
			MentionText:  match.Alias,
			ContextText:  contextText,
			Confidence:   match.Confidence,
		})
		if err != nil {
			return count, err
		}
		if inserted {
			count++
		}
	}
	return count, nil
}

func (o *Orchestrator) degrade(result *Result, what string, err error) {
	result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", what, err))
	o.logger.Warn("ingest stage degraded",
		logging.F("meeting_id", result.MeetingID),
		logging.F("stage", what),
		logging.Err(err))
	o.countError()
}

func (o *Orchestrator) countError() {
	if o.metrics != nil {
		o.metrics.IngestErrors.Inc()
	}
}

func joinNonEmpty(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}


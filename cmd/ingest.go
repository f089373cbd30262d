package cmd

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/civicwatch/civicwatch/config"
	"github.com/civicwatch/civicwatch/pkg/agenda"
	"github.com/civicwatch/civicwatch/pkg/civicweb"
	"github.com/civicwatch/civicwatch/pkg/doctext"
	"github.com/civicwatch/civicwatch/pkg/entities"
	"github.com/civicwatch/civicwatch/pkg/graph"
	"github.com/civicwatch/civicwatch/pkg/ingest"
	"github.com/civicwatch/civicwatch/pkg/logging"
	"github.com/civicwatch/civicwatch/pkg/minutes"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest meeting data from the configured CivicWeb portal",
}

var ingestMeetingCmd = &cobra.Command{
	Use:   "meeting <meeting-id>",
	Short: "Ingest a single meeting end to end",
	Long: `Fetch one meeting from the CivicWeb portal and run the full pipeline:
agenda parsing, topic classification, zoning extraction, minutes and
document text extraction, entity mention scanning, and graph rebuild.

Re-running the command for the same meeting is safe; already-recorded
entities, mentions, and connections are not duplicated.

Examples:
  civicwatch ingest meeting 1406
  civicwatch ingest meeting 1406 --output json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		meetingID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid meeting id %q", args[0])
		}

		ctx := cmd.Context()
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := newLogger(cfg)

		pool, err := connectPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		pipeline, _, cleanup := buildPipeline(cfg, pool, logger)
		defer cleanup()

		result, err := pipeline.IngestMeeting(ctx, meetingID)
		if err != nil {
			return err
		}
		return printOutput(result, func() string { return formatIngestResult(result) })
	},
}

// buildPipeline wires the full ingest orchestrator from config. The
// returned publisher is nil when redis is not configured; the cleanup
// closes it otherwise.
func buildPipeline(cfg *config.Config, pool *pgxpool.Pool, logger logging.Logger) (*ingest.Orchestrator, *ingest.EventPublisher, func()) {
	httpClient := &http.Client{Timeout: cfg.CivicWeb.Timeout()}
	fetcher := civicweb.NewClient(cfg.CivicWeb.BaseURL, cfg.CivicWeb.Timeout())
	parser := agenda.NewParser(cfg.CivicWeb.BaseURL)

	store := ingest.NewRepository(pool, logger)
	entityStore := entities.NewRepository(pool, logger)
	minutesStore := minutes.NewRepository(pool, logger)
	doctextStore := doctext.NewRepository(pool, logger)

	// No PDF text capability is wired yet; extraction degrades to the
	// parser_unavailable status for PDF payloads.
	minutesExtractor := minutes.NewExtractor(httpClient, nil, logger)
	doctextExtractor := doctext.NewExtractor(httpClient, nil, logger)

	graphBuilder := graph.NewBuilder(graph.NewPgxStore(pool), logger)

	var (
		events    ingest.Publisher
		publisher *ingest.EventPublisher
	)
	cleanup := func() {}
	if cfg.Redis.Addr != "" {
		p, err := ingest.NewEventPublisherFromAddr(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			logger.Warn("event publishing disabled", logging.Err(err))
		} else {
			events = p
			publisher = p
			cleanup = func() { _ = p.Close() }
		}
	}

	orchestrator := ingest.NewOrchestrator(
		fetcher, store, entityStore,
		minutesExtractor, minutesStore,
		doctextExtractor, doctextStore,
		graphBuilder, parser,
		events, ingest.NewMetrics(prometheus.DefaultRegisterer),
		ingest.Options{StoreRaw: true},
		logger,
	)
	return orchestrator, publisher, cleanup
}

func formatIngestResult(result *ingest.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Meeting %d: %s\n", result.MeetingID, result.Status)
	fmt.Fprintf(&b, "  agenda items: %d\n", result.AgendaItems)
	fmt.Fprintf(&b, "  documents:    %d\n", result.Documents)
	fmt.Fprintf(&b, "  minutes docs: %d\n", len(result.Minutes))
	fmt.Fprintf(&b, "  new mentions: %d\n", result.MentionCount)
	fmt.Fprintf(&b, "  graph: %d meeting nodes, %d document nodes, %d connections, %d skipped",
		result.GraphStats.MeetingEntities, result.GraphStats.DocumentEntities,
		result.GraphStats.Connections, result.GraphStats.Skipped)
	for _, msg := range result.Errors {
		fmt.Fprintf(&b, "\n  warning: %s", msg)
	}
	return b.String()
}

func init() {
	ingestCmd.AddCommand(ingestMeetingCmd)
	rootCmd.AddCommand(ingestCmd)
}

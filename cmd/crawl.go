package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/civicwatch/civicwatch/pkg/civicweb"
	"github.com/civicwatch/civicwatch/pkg/crawl"
)

var (
	crawlChunkDays int
	crawlLimit     int
)

var crawlCmd = &cobra.Command{
	Use:   "crawl <from-date> <to-date>",
	Short: "Crawl a date range of meetings",
	Long: `Discover and ingest every meeting the portal lists between two dates
(inclusive, YYYY-MM-DD). Discovery is chunked into windows no wider than
--chunk-days; the job processes at most --limit meetings.

The job runs inside this process. The command submits it, polls progress,
and exits when the job reaches a terminal state. Ctrl-C requests
cancellation; the meeting currently in flight finishes first.

Examples:
  civicwatch crawl 2026-01-01 2026-02-28
  civicwatch crawl 2026-01-01 2026-01-31 --limit 10 --output json`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
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

		pipeline, publisher, cleanup := buildPipeline(cfg, pool, logger)
		defer cleanup()

		crawlCfg := crawl.Config{
			MaxRangeDays: cfg.Crawl.MaxRangeDays,
			Cooldown:     time.Duration(cfg.Crawl.CooldownSeconds) * time.Second,
			ChunkDays:    cfg.Crawl.ChunkDays,
			Limit:        cfg.Crawl.Limit,
		}
		if crawlChunkDays > 0 {
			crawlCfg.ChunkDays = crawlChunkDays
		}
		if crawlLimit > 0 {
			crawlCfg.Limit = crawlLimit
		}

		discoverer := civicweb.NewClient(cfg.CivicWeb.BaseURL, cfg.CivicWeb.Timeout())
		var events crawl.Publisher
		if publisher != nil {
			events = publisher
		}
		coordinator := crawl.NewCoordinator(pipeline, discoverer, crawlCfg, events, logger)

		jobID, err := coordinator.Submit(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("Submitted crawl job %s (%s .. %s)\n", jobID, args[0], args[1])

		job, err := followJob(cmd, coordinator, jobID)
		if err != nil {
			return err
		}
		return printOutput(job, func() string { return formatJob(job) })
	},
}

// followJob polls until the job is terminal, requesting cancellation if
// the command context is done first.
func followJob(cmd *cobra.Command, coordinator *crawl.Coordinator, jobID string) (crawl.Job, error) {
	ctx := cmd.Context()
	cancelRequested := false
	lastProcessed := -1
	for {
		job, err := coordinator.Status(jobID)
		if err != nil {
			return crawl.Job{}, err
		}
		switch job.Status {
		case crawl.StatusCompleted, crawl.StatusFailed, crawl.StatusCancelled:
			return job, nil
		}
		if job.Processed != lastProcessed && job.Discovered > 0 && outputFormat == "text" {
			fmt.Printf("  %d/%d meetings processed\n", job.Processed, job.Discovered)
			lastProcessed = job.Processed
		}
		select {
		case <-ctx.Done():
			if !cancelRequested {
				fmt.Println("Cancellation requested, finishing current meeting...")
				_ = coordinator.Cancel(jobID)
				cancelRequested = true
			}
			time.Sleep(200 * time.Millisecond)
		case <-time.After(200 * time.Millisecond):
		}
	}
}

func formatJob(job crawl.Job) string {
	out := fmt.Sprintf("Job %s: %s\n  range:      %s .. %s\n  discovered: %d\n  processed:  %d",
		job.ID, job.Status, job.FromDate, job.ToDate, job.Discovered, job.Processed)
	for _, msg := range job.Errors {
		out += "\n  error: " + msg
	}
	return out
}

func init() {
	crawlCmd.Flags().IntVar(&crawlChunkDays, "chunk-days", 0, "override discovery window width in days")
	crawlCmd.Flags().IntVar(&crawlLimit, "limit", 0, "override the per-job meeting cap")
	rootCmd.AddCommand(crawlCmd)
}

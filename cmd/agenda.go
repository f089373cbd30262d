package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/civicwatch/civicwatch/pkg/ingest"
)

var agendaTopic string

var agendaCmd = &cobra.Command{
	Use:   "agenda <meeting-id>",
	Short: "List stored agenda items for a meeting",
	Long: `List the parsed agenda items stored for an already-ingested meeting,
optionally filtered to items classified under one topic.

Examples:
  civicwatch agenda 1406
  civicwatch agenda 1406 --topic zoning
  civicwatch agenda 1406 --topic budget_finance --output json`,
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

		repo := ingest.NewRepository(pool, logger)
		items, err := repo.AgendaItems(ctx, meetingID, agendaTopic)
		if err != nil {
			return err
		}
		return printOutput(items, func() string { return formatAgendaItems(meetingID, items) })
	},
}

func formatAgendaItems(meetingID int64, items []ingest.AgendaItemRecord) string {
	if len(items) == 0 {
		return fmt.Sprintf("No agenda items stored for meeting %d.", meetingID)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Meeting %d: %d agenda item(s)", meetingID, len(items))
	for _, item := range items {
		key := item.ItemKey
		if key == "" {
			key = "-"
		}
		fmt.Fprintf(&b, "\n  [%s] %s", key, item.Title)
		if item.Section != "" {
			fmt.Fprintf(&b, "\n      section: %s", item.Section)
		}
		if len(item.Topics) > 0 {
			fmt.Fprintf(&b, "\n      topics: %s", strings.Join(item.Topics, ", "))
		}
		if z := item.ZoningSignals; z != nil {
			var parts []string
			if z.Address != "" {
				parts = append(parts, "address="+z.Address)
			}
			if z.FromZone != "" || z.ToZone != "" {
				parts = append(parts, fmt.Sprintf("zones=%s->%s", z.FromZone, z.ToZone))
			}
			if z.OrdinanceNumber != "" {
				parts = append(parts, "ordinance="+z.OrdinanceNumber)
			}
			if z.ReadingStage != "" {
				parts = append(parts, "reading="+string(z.ReadingStage))
			}
			if len(parts) > 0 {
				fmt.Fprintf(&b, "\n      zoning: %s", strings.Join(parts, " "))
			}
		}
	}
	return b.String()
}

func init() {
	agendaCmd.Flags().StringVar(&agendaTopic, "topic", "", "only show items classified under this topic")
	rootCmd.AddCommand(agendaCmd)
}

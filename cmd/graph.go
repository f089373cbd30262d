package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/civicwatch/civicwatch/pkg/graph"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Inspect and rebuild the entity connection graph",
}

var graphRebuildCmd = &cobra.Command{
	Use:   "rebuild <meeting-id>",
	Short: "Rebuild graph nodes and connections for a stored meeting",
	Long: `Rebuild the meeting node, document nodes, and typed connections for
one already-ingested meeting from its stored mentions. The rebuild is
idempotent; re-running it does not duplicate nodes or edges.`,
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

		builder := graph.NewBuilder(graph.NewPgxStore(pool), logger)
		stats, err := builder.RebuildForMeeting(ctx, meetingID)
		if err != nil {
			return err
		}
		return printOutput(stats, func() string {
			return fmt.Sprintf("Meeting %d: %d meeting nodes, %d document nodes, %d connections, %d skipped",
				meetingID, stats.MeetingEntities, stats.DocumentEntities, stats.Connections, stats.Skipped)
		})
	},
}

var graphConnectionsCmd = &cobra.Command{
	Use:   "connections <entity-id>",
	Short: "List aggregated connections for an entity",
	Long: `List an entity's connections grouped by counterpart and relation type,
with evidence counts and recency aggregated across all meetings.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entityID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid entity id %q", args[0])
		}

		ctx := cmd.Context()
		pool, err := connectPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		store := graph.NewPgxStore(pool)
		connections, err := store.AggregateConnections(ctx, entityID)
		if err != nil {
			return err
		}
		return printOutput(connections, func() string {
			if len(connections) == 0 {
				return "No connections."
			}
			var b strings.Builder
			fmt.Fprintf(&b, "%d connection(s) for entity %d:", len(connections), entityID)
			for _, c := range connections {
				fmt.Fprintf(&b, "\n  %d -[%s]-> %d  evidence=%d strength=%.2f last_seen=%s",
					c.FromEntityID, c.RelationType, c.ToEntityID,
					c.EvidenceCount, c.MaxStrength, c.LastSeenAt.Format("2006-01-02"))
			}
			return b.String()
		})
	},
}

func init() {
	graphCmd.AddCommand(graphRebuildCmd)
	graphCmd.AddCommand(graphConnectionsCmd)
	rootCmd.AddCommand(graphCmd)
}

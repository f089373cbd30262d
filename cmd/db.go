package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/civicwatch/civicwatch/pkg/db"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Database utilities",
}

// healthReadout is the serializable view of a db.HealthStatus.
type healthReadout struct {
	Healthy       bool   `json:"healthy" yaml:"healthy"`
	LatencyMs     int64  `json:"latency_ms" yaml:"latency_ms"`
	TotalConns    int32  `json:"total_conns" yaml:"total_conns"`
	IdleConns     int32  `json:"idle_conns" yaml:"idle_conns"`
	AcquiredConns int32  `json:"acquired_conns" yaml:"acquired_conns"`
	Error         string `json:"error,omitempty" yaml:"error,omitempty"`
}

var dbHealthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check database connectivity and pool state",
	Long: `Ping the configured database and report latency and connection pool
counts. Exits non-zero when the database is unreachable.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		pool, err := connectPool(ctx)
		if err != nil {
			return err
		}
		defer db.Close(pool)

		status := db.Check(ctx, pool)
		readout := healthReadout{
			Healthy:       status.Healthy,
			LatencyMs:     status.Latency.Milliseconds(),
			TotalConns:    status.TotalConns,
			IdleConns:     status.IdleConns,
			AcquiredConns: status.AcquiredConns,
		}
		if status.Error != nil {
			readout.Error = status.Error.Error()
		}
		if err := printOutput(readout, func() string {
			if !readout.Healthy {
				return fmt.Sprintf("Database unhealthy: %s", readout.Error)
			}
			return fmt.Sprintf("Database healthy (latency %dms, conns total=%d idle=%d acquired=%d)",
				readout.LatencyMs, readout.TotalConns, readout.IdleConns, readout.AcquiredConns)
		}); err != nil {
			return err
		}
		if !readout.Healthy {
			return fmt.Errorf("database health check failed")
		}
		return nil
	},
}

func init() {
	dbCmd.AddCommand(dbHealthCmd)
	rootCmd.AddCommand(dbCmd)
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/banshee-data/mapsort/cmd/mapsort/commands"
)

var rootCmd = &cobra.Command{
	Use:   "mapsort",
	Short: "Map-space multi-object tracker",
	Long: `mapsort tracks detected objects across video frames and reports their
positions on a reference map.

Detections are associated to Kalman-filtered tracks each frame, new tracks
are only started inside configured entry regions, and every reported track
is projected onto the map through a homography fitted from calibration
points.

Examples:
  mapsort track --calibration cal.csv --regions entry.csv --detections det.txt -o tracks.csv
  mapsort track --calibration cal.csv --detections det.txt --db runs.db -v
  mapsort project --calibration cal.csv 320,470 100,400
  mapsort version`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		commands.ConfigureLogging(cmd.ErrOrStderr(), verbosity)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase log detail (-v diagnostics, -vv per-frame trace)")

	rootCmd.AddCommand(commands.TrackCmd)
	rootCmd.AddCommand(commands.ProjectCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

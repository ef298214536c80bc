package commands

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/paulmach/orb"
	"github.com/spf13/cobra"

	"github.com/banshee-data/mapsort/internal/config"
	"github.com/banshee-data/mapsort/internal/fsutil"
	"github.com/banshee-data/mapsort/internal/storage/sqlite"
	"github.com/banshee-data/mapsort/internal/timeutil"
	"github.com/banshee-data/mapsort/internal/trackio"
	"github.com/banshee-data/mapsort/internal/tracking"
)

// rowFlushSize is the number of rows buffered before a database insert.
const rowFlushSize = 1000

// TrackOptions configures one tracking run.
type TrackOptions struct {
	CalibrationPath string
	RegionsPath     string
	DetectionsPath  string
	ConfigPath      string
	OutputPath      string // "-" writes to stdout
	DBPath          string // Empty disables persistence
	Class           int
	Frames          int // 0 runs to the last frame with detections
	Header          bool
}

// TrackSummary reports what a run did.
type TrackSummary struct {
	RunID   string
	Frames  int
	Rows    int
	Lost    int
	Metrics tracking.Metrics
}

var trackOpts TrackOptions

// TrackCmd runs the tracker over a detection file.
var TrackCmd = &cobra.Command{
	Use:   "track",
	Short: "Track detections and report map positions",
	Long: `Run the tracker over a MOT-format detection file and write one row per
reported track per frame:

  frame,track_id,x,y,w,h,map_x,map_y

The calibration file holds pixel_x,pixel_y,map_x,map_y rows (at least four).
The optional regions file holds one map-space polygon per row as x,y pairs;
after warm-up new tracks only start inside these regions when limit_entry is
enabled in the tuning config.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		summary, err := RunTrack(cmd.Context(), trackOpts, fsutil.OSFileSystem{}, timeutil.RealClock{}, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		log.Printf("[track] %d frames, %d rows, %d tracks created, %d confirmed, %d lost",
			summary.Frames, summary.Rows, summary.Metrics.TracksCreated, summary.Metrics.TracksConfirmed, summary.Lost)
		if summary.RunID != "" {
			log.Printf("[track] stored run %s", summary.RunID)
		}
		return nil
	},
}

func init() {
	f := TrackCmd.Flags()
	f.StringVarP(&trackOpts.CalibrationPath, "calibration", "c", "", "Calibration CSV (pixel_x,pixel_y,map_x,map_y)")
	f.StringVarP(&trackOpts.RegionsPath, "regions", "r", "", "Entry-region polygons CSV")
	f.StringVarP(&trackOpts.DetectionsPath, "detections", "d", "", "MOT-format detections")
	f.StringVar(&trackOpts.ConfigPath, "config", "", "Tuning config (.json or .yaml)")
	f.StringVarP(&trackOpts.OutputPath, "output", "o", "-", "Output CSV path, - for stdout")
	f.StringVar(&trackOpts.DBPath, "db", "", "SQLite database to record the run in")
	f.IntVar(&trackOpts.Class, "class", 1, "Detection class to track, -1 for all")
	f.IntVar(&trackOpts.Frames, "frames", 0, "Number of frames to process (default: last frame with detections)")
	f.BoolVar(&trackOpts.Header, "header", false, "Write a column header line")
	_ = TrackCmd.MarkFlagRequired("calibration")
	_ = TrackCmd.MarkFlagRequired("detections")
}

// RunTrack executes a tracking run. Output and input paths are resolved
// through fsys; stdout receives rows when OutputPath is "-". The context
// is checked between frames.
func RunTrack(ctx context.Context, opts TrackOptions, fsys fsutil.FileSystem, clock timeutil.Clock, stdout io.Writer) (*TrackSummary, error) {
	tuning := config.EmptyTuningConfig()
	if opts.ConfigPath != "" {
		var err error
		if tuning, err = config.LoadTuningConfig(opts.ConfigPath); err != nil {
			return nil, err
		}
	}
	cfg := tracking.ConfigFromTuning(tuning)

	loader := trackio.NewLoader(fsys)

	m, err := loadMapper(fsys, opts.CalibrationPath)
	if err != nil {
		return nil, err
	}

	var regions []orb.Polygon
	if opts.RegionsPath != "" {
		if regions, err = loader.LoadEntryRegions(opts.RegionsPath); err != nil {
			return nil, err
		}
	}

	dets, err := loader.LoadDetections(opts.DetectionsPath, opts.Class)
	if err != nil {
		return nil, err
	}
	tracking.Diagf("loaded %d detections over %d frames (%d filtered by class)", dets.Len(), dets.MaxFrame(), dets.Skipped())

	engine, err := tracking.NewEngine(m, regions, cfg)
	if err != nil {
		return nil, err
	}

	out := stdout
	var closer io.Closer
	if opts.OutputPath != "" && opts.OutputPath != "-" {
		w, err := loader.CreateOutput(opts.OutputPath)
		if err != nil {
			return nil, err
		}
		out, closer = w, w
	}
	rw, err := trackio.NewRowWriter(out, opts.Header)
	if err != nil {
		return nil, err
	}

	var store *sqlite.Store
	summary := &TrackSummary{}
	if opts.DBPath != "" {
		if store, err = sqlite.Open(opts.DBPath, clock); err != nil {
			return nil, err
		}
		defer store.Close()
		run, err := store.StartRun(opts.DetectionsPath, tuning)
		if err != nil {
			return nil, err
		}
		summary.RunID = run.RunID
	}

	frames := opts.Frames
	if frames <= 0 {
		frames = dets.MaxFrame()
	}

	runErr := trackFrames(ctx, engine, dets, frames, rw, store, summary.RunID)
	if err := rw.Flush(); err != nil && runErr == nil {
		runErr = fmt.Errorf("writing output: %w", err)
	}
	if closer != nil {
		if err := closer.Close(); err != nil && runErr == nil {
			runErr = fmt.Errorf("closing output: %w", err)
		}
	}

	lost := engine.Lost()
	summary.Frames = engine.Frame()
	summary.Rows = rw.Count()
	summary.Lost = len(lost)
	summary.Metrics = engine.Metrics()

	if store != nil {
		if runErr == nil {
			runErr = storeLost(store, summary.RunID, lost)
		}
		if runErr != nil {
			if err := store.FailRun(summary.RunID, runErr, summary.Frames, summary.Metrics); err != nil {
				log.Printf("[track] failed to mark run %s failed: %v", summary.RunID, err)
			}
			return summary, runErr
		}
		if err := store.CompleteRun(summary.RunID, summary.Frames, summary.Metrics); err != nil {
			return summary, err
		}
	}
	return summary, runErr
}

func trackFrames(ctx context.Context, engine *tracking.Engine, dets *trackio.DetectionSet, frames int, rw *trackio.RowWriter, store *sqlite.Store, runID string) error {
	var pending []trackio.Row
	flush := func() error {
		if store == nil || len(pending) == 0 {
			return nil
		}
		if err := store.InsertRows(runID, pending); err != nil {
			return err
		}
		pending = pending[:0]
		return nil
	}

	for frame := 1; frame <= frames; frame++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("stopped at frame %d: %w", frame, err)
		}
		rows := trackio.RowsFromOutputs(frame, engine.Step(dets.Frame(frame)))
		if err := rw.Write(rows); err != nil {
			return err
		}
		if store != nil {
			pending = append(pending, rows...)
			if len(pending) >= rowFlushSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}
	}
	return flush()
}

func storeLost(store *sqlite.Store, runID string, lost []*tracking.Tracklet) error {
	summaries := make([]sqlite.LostTrack, 0, len(lost))
	for _, t := range lost {
		summaries = append(summaries, sqlite.LostTrackFromTracklet(t))
	}
	return store.InsertLostTracks(runID, summaries)
}

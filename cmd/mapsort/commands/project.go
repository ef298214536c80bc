package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/spf13/cobra"

	"github.com/banshee-data/mapsort/internal/fsutil"
	"github.com/banshee-data/mapsort/internal/mapper"
	"github.com/banshee-data/mapsort/internal/trackio"
)

// ProjectCmd maps points through a calibration without tracking.
var ProjectCmd = &cobra.Command{
	Use:   "project [x,y ...]",
	Short: "Project points between pixel and map space",
	Long: `Fit the homography from a calibration file and map each x,y argument from
pixel space to map space, or back with --inverse. With --matrix the fitted
3x3 transform is printed instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		calibration, _ := cmd.Flags().GetString("calibration")
		inverse, _ := cmd.Flags().GetBool("inverse")
		showMatrix, _ := cmd.Flags().GetBool("matrix")

		m, err := loadMapper(fsutil.OSFileSystem{}, calibration)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if showMatrix {
			h := m.Matrix()
			for r := 0; r < 3; r++ {
				fmt.Fprintf(out, "%.9g %.9g %.9g\n", h[3*r], h[3*r+1], h[3*r+2])
			}
			return nil
		}

		if len(args) == 0 {
			return fmt.Errorf("no points given")
		}
		for _, arg := range args {
			p, err := parsePoint(arg)
			if err != nil {
				return err
			}
			var q orb.Point
			if inverse {
				q = m.Unproject(p)
			} else {
				q = m.Project(p)
			}
			fmt.Fprintf(out, "%g,%g -> %.3f,%.3f\n", p[0], p[1], q[0], q[1])
		}
		return nil
	},
}

func init() {
	ProjectCmd.Flags().StringP("calibration", "c", "", "Calibration CSV (pixel_x,pixel_y,map_x,map_y)")
	ProjectCmd.Flags().Bool("inverse", false, "Map from map space back to pixels")
	ProjectCmd.Flags().Bool("matrix", false, "Print the fitted transform")
	_ = ProjectCmd.MarkFlagRequired("calibration")
}

func loadMapper(fsys fsutil.FileSystem, path string) (*mapper.Mapper, error) {
	pixel, mapPts, err := trackio.NewLoader(fsys).LoadCalibration(path)
	if err != nil {
		return nil, err
	}
	m, err := mapper.New(pixel, mapPts)
	if err != nil {
		return nil, fmt.Errorf("calibration %s: %w", path, err)
	}
	return m, nil
}

func parsePoint(s string) (orb.Point, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return orb.Point{}, fmt.Errorf("point %q: want x,y", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return orb.Point{}, fmt.Errorf("point %q: %w", s, err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return orb.Point{}, fmt.Errorf("point %q: %w", s, err)
	}
	return orb.Point{x, y}, nil
}

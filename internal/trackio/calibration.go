package trackio

import (
	"fmt"
	"io"

	"github.com/paulmach/orb"
)

// ReadCalibration parses pixel_x,pixel_y,map_x,map_y rows into matching
// pixel and map point slices. Row count is left to the mapper to judge.
func ReadCalibration(r io.Reader) (pixel, mapPts []orb.Point, err error) {
	err = eachRecord(r, 4, func(_ int, v []float64) error {
		pixel = append(pixel, orb.Point{v[0], v[1]})
		mapPts = append(mapPts, orb.Point{v[2], v[3]})
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("calibration: %w", err)
	}
	return pixel, mapPts, nil
}

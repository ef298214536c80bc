package trackio

import (
	"fmt"
	"io"

	"github.com/paulmach/orb"
)

// minPolygonVertices is the smallest vertex count that encloses an area.
const minPolygonVertices = 3

// ReadEntryRegions parses one map-space polygon per row from x,y vertex
// pairs. Rings are closed if the last vertex does not repeat the first.
func ReadEntryRegions(r io.Reader) ([]orb.Polygon, error) {
	var regions []orb.Polygon
	err := eachRecord(r, -1, func(_ int, v []float64) error {
		if len(v)%2 != 0 {
			return fmt.Errorf("odd number of coordinates (%d)", len(v))
		}
		if len(v)/2 < minPolygonVertices {
			return fmt.Errorf("polygon needs at least %d vertices, got %d", minPolygonVertices, len(v)/2)
		}
		ring := make(orb.Ring, 0, len(v)/2+1)
		for i := 0; i < len(v); i += 2 {
			ring = append(ring, orb.Point{v[i], v[i+1]})
		}
		if !ring.Closed() {
			ring = append(ring, ring[0])
		}
		regions = append(regions, orb.Polygon{ring})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("entry regions: %w", err)
	}
	return regions, nil
}

package tracking

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trackWithAge(id int, b Box, timeSinceUpdate int) *Tracklet {
	t := newTestTracklet(1, id, b)
	t.TimeSinceUpdate = timeSinceUpdate
	return t
}

func TestMinCostMatching_Basic(t *testing.T) {
	t.Parallel()
	tracks := []*Tracklet{
		trackWithAge(1, Box{0, 0, 10, 10}, 1),
		trackWithAge(2, Box{100, 100, 10, 10}, 1),
	}
	dets := []Detection{
		NewDetection(101, 100, 10, 10, 1),
		NewDetection(1, 0, 10, 10, 1),
	}

	matches, unmatchedTracks, unmatchedDets := MinCostMatching(IOUCostFunc, 0.7, tracks, dets, []int{0, 1}, []int{0, 1})

	assert.ElementsMatch(t, []Match{{Track: 0, Detection: 1}, {Track: 1, Detection: 0}}, matches)
	assert.Empty(t, unmatchedTracks)
	assert.Empty(t, unmatchedDets)
}

func TestMinCostMatching_CostLimit(t *testing.T) {
	t.Parallel()
	tracks := []*Tracklet{trackWithAge(1, Box{0, 0, 10, 10}, 1)}
	// IOU 20/180, cost ~0.89
	dets := []Detection{NewDetection(8, 0, 10, 10, 1)}

	matches, unmatchedTracks, unmatchedDets := MinCostMatching(IOUCostFunc, 0.7, tracks, dets, []int{0}, []int{0})

	assert.Empty(t, matches)
	assert.Equal(t, []int{0}, unmatchedTracks)
	assert.Equal(t, []int{0}, unmatchedDets)
}

func TestMinCostMatching_EmptyInputs(t *testing.T) {
	t.Parallel()
	tracks := []*Tracklet{trackWithAge(1, Box{0, 0, 10, 10}, 1)}

	matches, unmatchedTracks, unmatchedDets := MinCostMatching(IOUCostFunc, 0.7, tracks, nil, []int{0}, []int{})
	assert.Empty(t, matches)
	assert.Equal(t, []int{0}, unmatchedTracks)
	assert.Empty(t, unmatchedDets)

	dets := []Detection{NewDetection(0, 0, 10, 10, 1)}
	matches, unmatchedTracks, unmatchedDets = MinCostMatching(IOUCostFunc, 0.7, tracks, dets, []int{}, []int{0})
	assert.Empty(t, matches)
	assert.Empty(t, unmatchedTracks)
	assert.Equal(t, []int{0}, unmatchedDets)
}

func TestMinCostMatching_IndicesReferToInputSlices(t *testing.T) {
	t.Parallel()
	tracks := []*Tracklet{
		trackWithAge(1, Box{0, 0, 10, 10}, 1),
		trackWithAge(2, Box{50, 50, 10, 10}, 1),
		trackWithAge(3, Box{100, 100, 10, 10}, 1),
	}
	dets := []Detection{
		NewDetection(0, 0, 10, 10, 1),
		NewDetection(100, 100, 10, 10, 1),
	}

	matches, unmatchedTracks, unmatchedDets := MinCostMatching(IOUCostFunc, 0.7, tracks, dets, []int{2}, []int{1})

	assert.Equal(t, []Match{{Track: 2, Detection: 1}}, matches)
	assert.Empty(t, unmatchedTracks)
	assert.Empty(t, unmatchedDets)
}

func TestMatchingCascade_RecentTrackWins(t *testing.T) {
	t.Parallel()
	// Track 1 (stale) fits the detection exactly; track 0 (fresh) fits it
	// less well but is offered the detection first.
	tracks := []*Tracklet{
		trackWithAge(1, Box{1, 0, 10, 10}, 1),
		trackWithAge(2, Box{0, 0, 10, 10}, 2),
	}
	dets := []Detection{NewDetection(0, 0, 10, 10, 1)}

	matches, unmatchedTracks, unmatchedDets := MatchingCascade(IOUCostFunc, 0.7, 30, tracks, dets, []int{0, 1}, []int{0})

	assert.Equal(t, []Match{{Track: 0, Detection: 0}}, matches)
	assert.Equal(t, []int{1}, unmatchedTracks)
	assert.Empty(t, unmatchedDets)
}

func TestMatchingCascade_StaleBucketGetsLeftovers(t *testing.T) {
	t.Parallel()
	tracks := []*Tracklet{
		trackWithAge(1, Box{0, 0, 10, 10}, 1),
		trackWithAge(2, Box{100, 100, 10, 10}, 4),
	}
	dets := []Detection{
		NewDetection(100, 100, 10, 10, 1),
		NewDetection(0, 0, 10, 10, 1),
	}

	matches, unmatchedTracks, unmatchedDets := MatchingCascade(IOUCostFunc, 0.7, 30, tracks, dets, []int{0, 1}, []int{0, 1})

	assert.Equal(t, []Match{{Track: 0, Detection: 1}, {Track: 1, Detection: 0}}, matches)
	assert.Empty(t, unmatchedTracks)
	assert.Empty(t, unmatchedDets)
}

func TestMatchingCascade_BeyondMaxAge(t *testing.T) {
	t.Parallel()
	tracks := []*Tracklet{
		trackWithAge(1, Box{0, 0, 10, 10}, 5),
		trackWithAge(2, Box{50, 50, 10, 10}, 0),
	}
	dets := []Detection{NewDetection(0, 0, 10, 10, 1), NewDetection(50, 50, 10, 10, 1)}

	matches, unmatchedTracks, unmatchedDets := MatchingCascade(IOUCostFunc, 0.7, 3, tracks, dets, []int{0, 1}, []int{0, 1})

	assert.Empty(t, matches)
	assert.Equal(t, []int{0, 1}, unmatchedTracks)
	assert.Equal(t, []int{0, 1}, unmatchedDets)
}

func TestMatcher_ParallelMatchesSerial(t *testing.T) {
	t.Parallel()
	var tracks []*Tracklet
	var dets []Detection
	for i := 0; i < 12; i++ {
		x := float64(i * 30)
		tracks = append(tracks, trackWithAge(i+1, Box{x, 0, 20, 40}, 1+i%3))
		dets = append(dets, NewDetection(x+2, 1, 20, 40, 1))
	}
	idx := allIndices(len(tracks))
	detIdx := allIndices(len(dets))

	serial := Matcher{}
	parallel := Matcher{ParallelThreshold: 1}

	sm, su, sd := serial.MatchingCascade(IOUCostFunc, 0.7, 30, tracks, dets, idx, detIdx)
	pm, pu, pd := parallel.MatchingCascade(IOUCostFunc, 0.7, 30, tracks, dets, idx, detIdx)

	require.Len(t, sm, 12)
	if diff := cmp.Diff(sm, pm); diff != "" {
		t.Errorf("matches differ (-serial +parallel):\n%s", diff)
	}
	if diff := cmp.Diff(su, pu); diff != "" {
		t.Errorf("unmatched tracks differ (-serial +parallel):\n%s", diff)
	}
	if diff := cmp.Diff(sd, pd); diff != "" {
		t.Errorf("unmatched detections differ (-serial +parallel):\n%s", diff)
	}
}

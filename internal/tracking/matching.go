package tracking

import (
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"
)

// gatedCostEpsilon lifts over-limit cells just above the limit before
// solving, so every gated pair looks equally bad to the solver.
const gatedCostEpsilon = 1e-5

// Match pairs a tracklet index with a detection index.
type Match struct {
	Track     int
	Detection int
}

// Matcher solves the per-frame association problems. The zero value
// builds every cost matrix on the calling goroutine.
type Matcher struct {
	// ParallelThreshold is the cost-matrix cell count above which rows are
	// evaluated concurrently. Zero or negative disables parallel evaluation.
	ParallelThreshold int
}

// MinCostMatching runs Matcher{}.MinCostMatching.
func MinCostMatching(costFn CostFunc, costLimit float64, tracks []*Tracklet, dets []Detection, trackIndices, detectionIndices []int) ([]Match, []int, []int) {
	return Matcher{}.MinCostMatching(costFn, costLimit, tracks, dets, trackIndices, detectionIndices)
}

// MatchingCascade runs Matcher{}.MatchingCascade.
func MatchingCascade(costFn CostFunc, costLimit float64, maxAge int, tracks []*Tracklet, dets []Detection, trackIndices, detectionIndices []int) ([]Match, []int, []int) {
	return Matcher{}.MatchingCascade(costFn, costLimit, maxAge, tracks, dets, trackIndices, detectionIndices)
}

// MinCostMatching assigns the tracklets named by trackIndices to the
// detections named by detectionIndices with minimum total cost. Pairs whose
// cost exceeds costLimit are dropped after solving and reported unmatched.
// All returned indices refer to the tracks and dets slices.
func (m Matcher) MinCostMatching(costFn CostFunc, costLimit float64, tracks []*Tracklet, dets []Detection, trackIndices, detectionIndices []int) ([]Match, []int, []int) {
	if len(trackIndices) == 0 || len(detectionIndices) == 0 {
		return nil, slices.Clone(trackIndices), slices.Clone(detectionIndices)
	}

	cost := m.costMatrix(costFn, tracks, dets, trackIndices, detectionIndices)
	for _, row := range cost {
		for j, c := range row {
			if c > costLimit {
				row[j] = costLimit + gatedCostEpsilon
			}
		}
	}

	assign := hungarianAssign(cost)

	var matches []Match
	var unmatchedTracks, unmatchedDets []int
	detAssigned := make([]bool, len(detectionIndices))

	for row, col := range assign {
		trackIdx := trackIndices[row]
		if col < 0 {
			unmatchedTracks = append(unmatchedTracks, trackIdx)
			continue
		}
		if cost[row][col] > costLimit {
			unmatchedTracks = append(unmatchedTracks, trackIdx)
			continue
		}
		detAssigned[col] = true
		matches = append(matches, Match{Track: trackIdx, Detection: detectionIndices[col]})
	}
	for col, detIdx := range detectionIndices {
		if !detAssigned[col] {
			unmatchedDets = append(unmatchedDets, detIdx)
		}
	}

	return matches, unmatchedTracks, unmatchedDets
}

// MatchingCascade offers detections to tracklets in increasing order of
// TimeSinceUpdate, from 1 up to maxAge. Each age bucket is solved with
// MinCostMatching against the detections still unmatched after the
// fresher buckets, so recently updated tracks win contested detections.
// Tracklets outside [1, maxAge] are never matched and come back unmatched.
func (m Matcher) MatchingCascade(costFn CostFunc, costLimit float64, maxAge int, tracks []*Tracklet, dets []Detection, trackIndices, detectionIndices []int) ([]Match, []int, []int) {
	buckets := make(map[int][]int)
	var ages []int
	for _, idx := range trackIndices {
		age := tracks[idx].TimeSinceUpdate
		if age < 1 || age > maxAge {
			continue
		}
		if _, ok := buckets[age]; !ok {
			ages = append(ages, age)
		}
		buckets[age] = append(buckets[age], idx)
	}
	slices.Sort(ages)

	unmatchedDets := slices.Clone(detectionIndices)
	var matches []Match
	matched := make(map[int]bool)

	for _, age := range ages {
		if len(unmatchedDets) == 0 {
			break
		}
		var levelMatches []Match
		levelMatches, _, unmatchedDets = m.MinCostMatching(costFn, costLimit, tracks, dets, buckets[age], unmatchedDets)
		for _, mt := range levelMatches {
			matched[mt.Track] = true
		}
		matches = append(matches, levelMatches...)
	}

	var unmatchedTracks []int
	for _, idx := range trackIndices {
		if !matched[idx] {
			unmatchedTracks = append(unmatchedTracks, idx)
		}
	}

	return matches, unmatchedTracks, unmatchedDets
}

// costMatrix evaluates costFn for every (track, detection) pair. Rows are
// computed concurrently once the matrix exceeds ParallelThreshold cells;
// each goroutine owns one row, so the result does not depend on scheduling.
func (m Matcher) costMatrix(costFn CostFunc, tracks []*Tracklet, dets []Detection, trackIndices, detectionIndices []int) [][]float64 {
	cost := make([][]float64, len(trackIndices))
	fillRow := func(row int) {
		track := tracks[trackIndices[row]]
		cost[row] = make([]float64, len(detectionIndices))
		for col, detIdx := range detectionIndices {
			cost[row][col] = costFn(track, dets[detIdx])
		}
	}

	cells := len(trackIndices) * len(detectionIndices)
	if m.ParallelThreshold <= 0 || cells <= m.ParallelThreshold {
		for row := range trackIndices {
			fillRow(row)
		}
		return cost
	}

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for row := range trackIndices {
		g.Go(func() error {
			fillRow(row)
			return nil
		})
	}
	_ = g.Wait()
	return cost
}

// allIndices returns 0..n-1.
func allIndices(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

package tracking

import "math"

// forbiddenCost marks a cost-matrix cell that must never be selected.
const forbiddenCost = 1e18

// hungarianAssign solves the rectangular minimum-cost assignment problem
// for an n×m matrix using the Kuhn–Munkres algorithm with potentials
// (Jonker–Volgenant shortest augmenting path form), O(d³) with d=max(n,m).
//
// Returns rowAssign[i] = assigned column for row i, or -1 when row i is
// unassigned or only reachable through a forbidden cell. Ties resolve in
// row/column index order, so identical matrices always produce identical
// assignments.
func hungarianAssign(cost [][]float64) []int {
	n := len(cost)
	if n == 0 {
		return nil
	}
	m := len(cost[0])
	if m == 0 {
		result := make([]int, n)
		for i := range result {
			result[i] = -1
		}
		return result
	}

	dim := max(n, m)

	// Square the matrix with zero-cost dummy rows or columns; whatever a
	// dummy absorbs is reported unassigned.
	c := make([][]float64, dim)
	for i := 0; i < dim; i++ {
		c[i] = make([]float64, dim)
		for j := 0; j < dim; j++ {
			if i < n && j < m {
				c[i][j] = cost[i][j]
			}
		}
	}

	const inf = math.MaxFloat64 / 2

	// 1-indexed; index 0 is the virtual column.
	u := make([]float64, dim+1)
	v := make([]float64, dim+1)
	p := make([]int, dim+1)
	way := make([]int, dim+1)
	minv := make([]float64, dim+1)
	used := make([]bool, dim+1)

	for i := 1; i <= dim; i++ {
		p[0] = i
		j0 := 0

		for j := 1; j <= dim; j++ {
			minv[j] = inf
			used[j] = false
		}

		for {
			used[j0] = true
			i0 := p[j0]
			delta := inf
			j1 := -1

			for j := 1; j <= dim; j++ {
				if used[j] {
					continue
				}
				cur := c[i0-1][j-1] - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}

			if j1 < 0 {
				break
			}

			for j := 0; j <= dim; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}

			j0 = j1
			if p[j0] == 0 {
				break
			}
		}

		for j0 != 0 {
			p[j0] = p[way[j0]]
			j0 = way[j0]
		}
	}

	colOf := make([]int, dim)
	for i := range colOf {
		colOf[i] = -1
	}
	for j := 1; j <= dim; j++ {
		if p[j] > 0 {
			colOf[p[j]-1] = j - 1
		}
	}

	result := make([]int, n)
	for i := 0; i < n; i++ {
		col := colOf[i]
		if col < 0 || col >= m || cost[i][col] >= forbiddenCost {
			result[i] = -1
		} else {
			result[i] = col
		}
	}
	return result
}

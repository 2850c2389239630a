// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package profile

import (
	"math/rand"

	"github.com/pdiddy/paper-radar/internal/embed"
)

const maxKMeansIterations = 30

// cluster partitions unit vectors into k groups by cosine similarity.
// Deterministic for a fixed seed: the first center is a seeded pick and
// the rest come from farthest-point seeding, so initial centers spread
// across the data instead of landing inside one dense group. Every
// vector lands in exactly one cluster; an emptied cluster steals the
// vector least similar to its current center so no cluster vanishes
// mid-run.
func cluster(vectors [][]float32, k int, seed int64) (centers [][]float32, assignment []int) {
	if len(vectors) == 0 {
		return nil, nil
	}
	if k < 1 {
		k = 1
	}
	if k > len(vectors) {
		k = len(vectors)
	}

	rng := rand.New(rand.NewSource(seed))
	centers = initialCenters(vectors, k, rng)

	assignment = make([]int, len(vectors))
	for iter := 0; iter < maxKMeansIterations; iter++ {
		changed := false
		for i, v := range vectors {
			best := 0
			bestSim := embed.Cosine(v, centers[0])
			for c := 1; c < k; c++ {
				if sim := embed.Cosine(v, centers[c]); sim > bestSim {
					best, bestSim = c, sim
				}
			}
			if assignment[i] != best {
				assignment[i] = best
				changed = true
			}
		}

		rescueEmptyClusters(vectors, centers, assignment, k)
		recomputeCenters(vectors, centers, assignment, k)

		if !changed && iter > 0 {
			break
		}
	}
	return centers, assignment
}

// initialCenters picks the first center with the seeded rng and every
// following one by farthest-point selection: the vector whose best
// similarity to the centers chosen so far is lowest. Ties go to the
// lowest index, keeping the result deterministic.
func initialCenters(vectors [][]float32, k int, rng *rand.Rand) [][]float32 {
	centers := make([][]float32, 0, k)
	centers = append(centers, append([]float32(nil), vectors[rng.Intn(len(vectors))]...))
	for len(centers) < k {
		next := 0
		nextSim := 2.0
		for i, v := range vectors {
			best := -1.0
			for _, c := range centers {
				if sim := embed.Cosine(v, c); sim > best {
					best = sim
				}
			}
			if best < nextSim {
				next, nextSim = i, best
			}
		}
		centers = append(centers, append([]float32(nil), vectors[next]...))
	}
	return centers
}

// rescueEmptyClusters reassigns, for each empty cluster, the vector with
// the lowest similarity to its own center.
func rescueEmptyClusters(vectors, centers [][]float32, assignment []int, k int) {
	counts := make([]int, k)
	for _, a := range assignment {
		counts[a]++
	}
	for c := 0; c < k; c++ {
		if counts[c] > 0 {
			continue
		}
		worst := -1
		worstSim := 2.0
		for i, v := range vectors {
			if counts[assignment[i]] <= 1 {
				continue
			}
			if sim := embed.Cosine(v, centers[assignment[i]]); sim < worstSim {
				worst, worstSim = i, sim
			}
		}
		if worst >= 0 {
			counts[assignment[worst]]--
			assignment[worst] = c
			counts[c]++
		}
	}
}

// recomputeCenters sets each center to the unit-normalized mean of its
// members. A center with no members keeps its previous position.
func recomputeCenters(vectors, centers [][]float32, assignment []int, k int) {
	dim := len(vectors[0])
	sums := make([][]float64, k)
	counts := make([]int, k)
	for c := range sums {
		sums[c] = make([]float64, dim)
	}
	for i, v := range vectors {
		c := assignment[i]
		counts[c]++
		for j, x := range v {
			sums[c][j] += float64(x)
		}
	}
	for c := 0; c < k; c++ {
		if counts[c] == 0 {
			continue
		}
		mean := make([]float32, dim)
		for j := range mean {
			mean[j] = float32(sums[c][j] / float64(counts[c]))
		}
		centers[c] = embed.Normalize(mean)
	}
}

// meanVector returns the unit-normalized mean of all vectors, or a zero
// vector of length dim when the input is empty or sums to zero.
func meanVector(vectors [][]float32, dim int) []float32 {
	if len(vectors) == 0 {
		return make([]float32, dim)
	}
	sum := make([]float64, len(vectors[0]))
	for _, v := range vectors {
		for j, x := range v {
			sum[j] += float64(x)
		}
	}
	mean := make([]float32, len(sum))
	for j := range mean {
		mean[j] = float32(sum[j] / float64(len(vectors)))
	}
	return embed.Normalize(mean)
}

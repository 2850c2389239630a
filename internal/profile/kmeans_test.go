// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-radar/internal/embed"
)

func TestClusterSeparatesGroups(t *testing.T) {
	vectors := [][]float32{
		embed.Normalize([]float32{1, 0, 0}),
		embed.Normalize([]float32{0.95, 0.05, 0}),
		embed.Normalize([]float32{0, 0, 1}),
		embed.Normalize([]float32{0, 0.05, 0.95}),
	}

	centers, assignment := cluster(vectors, 2, 1)
	require.Len(t, centers, 2)
	require.Len(t, assignment, 4)

	assert.Equal(t, assignment[0], assignment[1])
	assert.Equal(t, assignment[2], assignment[3])
	assert.NotEqual(t, assignment[0], assignment[2])
}

// Farthest-point seeding must separate two obvious groups no matter
// which vector the seed picks first; a shuffle init can start both
// centers inside one group and converge to a mixed local optimum.
func TestClusterSeparatesGroupsForEverySeed(t *testing.T) {
	vectors := [][]float32{
		embed.Normalize([]float32{1, 0, 0}),
		embed.Normalize([]float32{0.95, 0.05, 0}),
		embed.Normalize([]float32{0, 0, 1}),
		embed.Normalize([]float32{0, 0.05, 0.95}),
	}

	for seed := int64(0); seed < 10; seed++ {
		_, assignment := cluster(vectors, 2, seed)
		require.Len(t, assignment, 4)
		assert.Equal(t, assignment[0], assignment[1], "seed %d", seed)
		assert.Equal(t, assignment[2], assignment[3], "seed %d", seed)
		assert.NotEqual(t, assignment[0], assignment[2], "seed %d", seed)
	}
}

func TestClusterDeterministicForSeed(t *testing.T) {
	vectors := [][]float32{
		{1, 0, 0}, {0, 1, 0}, {0, 0, 1},
		embed.Normalize([]float32{1, 1, 0}),
		embed.Normalize([]float32{0, 1, 1}),
	}

	c1, a1 := cluster(vectors, 2, 99)
	c2, a2 := cluster(vectors, 2, 99)
	assert.Equal(t, c1, c2)
	assert.Equal(t, a1, a2)
}

func TestClusterSingleVector(t *testing.T) {
	centers, assignment := cluster([][]float32{{0, 1, 0}}, 5, 7)
	require.Len(t, centers, 1)
	assert.Equal(t, []int{0}, assignment)
	assert.Equal(t, []float32{0, 1, 0}, centers[0])
}

func TestClusterEmptyInput(t *testing.T) {
	centers, assignment := cluster(nil, 3, 0)
	assert.Nil(t, centers)
	assert.Nil(t, assignment)
}

func TestMeanVector(t *testing.T) {
	mean := meanVector([][]float32{{1, 0}, {0, 1}}, 2)
	assert.InDelta(t, 0.7071, float64(mean[0]), 1e-3)
	assert.InDelta(t, 0.7071, float64(mean[1]), 1e-3)

	assert.Equal(t, []float32{0, 0, 0}, meanVector(nil, 3))
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-radar/pkg/types"
)

func openTestCache(t *testing.T, ttl time.Duration) *Cache {
	t.Helper()
	c, err := OpenCache(t.TempDir(), ttl)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCacheSourceRoundTrip(t *testing.T) {
	c := openTestCache(t, time.Hour)

	_, _, found, err := c.Source("arxiv")
	require.NoError(t, err)
	assert.False(t, found)

	fetchedAt := time.Now().UTC().Truncate(time.Second)
	stored := []types.Candidate{
		{Source: "arxiv", NativeID: "2401.00001", Title: "Graph Spectra", Citations: -1, Altmetric: -1},
		{Source: "arxiv", NativeID: "2401.00002", Title: "Sparse Attention", Citations: -1, Altmetric: -1},
	}
	require.NoError(t, c.PutSource("arxiv", fetchedAt, stored))

	got, at, found, err := c.Source("arxiv")
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, at.Equal(fetchedAt))
	assert.ElementsMatch(t, stored, got)

	// Other sources stay independent.
	_, _, found, err = c.Source("crossref")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCachePutSourceReplaces(t *testing.T) {
	c := openTestCache(t, time.Hour)

	require.NoError(t, c.PutSource("arxiv", time.Now().UTC(), []types.Candidate{
		{Source: "arxiv", NativeID: "old", Title: "Old"},
	}))
	require.NoError(t, c.PutSource("arxiv", time.Now().UTC(), []types.Candidate{
		{Source: "arxiv", NativeID: "new", Title: "New"},
	}))

	got, _, found, err := c.Source("arxiv")
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, got, 1)
	assert.Equal(t, "new", got[0].NativeID)
}

func TestCacheExpiry(t *testing.T) {
	c := openTestCache(t, time.Hour)

	require.NoError(t, c.PutSource("arxiv", time.Now().Add(-2*time.Hour), []types.Candidate{
		{Source: "arxiv", NativeID: "1", Title: "Old"},
	}))

	_, _, found, err := c.Source("arxiv")
	require.NoError(t, err)
	assert.False(t, found)
}

// A source that failed must not be cached: serving its gap for a whole
// TTL would silently drop its candidates from every cached run.
func TestCacheStoreFetchedSkipsFailedSources(t *testing.T) {
	c := openTestCache(t, time.Hour)

	out := Output{
		FetchedAt: time.Now().UTC(),
		Candidates: []types.Candidate{
			{Source: "arxiv", NativeID: "2401.00001", Title: "Graph Spectra"},
		},
		SourceErrors: []string{"crossref: connection refused"},
	}
	require.NoError(t, c.StoreFetched([]string{"arxiv", "crossref"}, out))

	_, _, found, err := c.Source("arxiv")
	require.NoError(t, err)
	assert.True(t, found)

	_, _, found, err = c.Source("crossref")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestOutputFailed(t *testing.T) {
	out := Output{SourceErrors: []string{"crossref: connection refused"}}
	assert.True(t, out.Failed("crossref"))
	assert.False(t, out.Failed("arxiv"))
}

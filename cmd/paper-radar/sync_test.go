// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-radar/internal/embed"
	"github.com/pdiddy/paper-radar/internal/fingerprint"
	"github.com/pdiddy/paper-radar/internal/profile"
	"github.com/pdiddy/paper-radar/internal/store"
	"github.com/pdiddy/paper-radar/pkg/types"
)

func seedStore(t *testing.T, st *store.Store, vectors [][]float32, version int) {
	t.Helper()
	tx, err := st.BeginSync(context.Background())
	require.NoError(t, err)
	for i, vec := range vectors {
		item := types.LibraryItem{
			Key:     fmt.Sprintf("ITEM%03d", i),
			Version: version,
			Title:   fmt.Sprintf("Paper number %d", i),
		}
		fp := fingerprint.New(item.Title, item.Abstract, item.Authors, item.Tags)
		require.NoError(t, tx.UpsertItem(item, fp))
		require.NoError(t, tx.PutEmbedding(fp, embed.Normalize(vec), embed.IsZero(vec)))
	}
	require.NoError(t, tx.SetCursor(version, nil))
	require.NoError(t, tx.Commit())
}

func TestRefreshProfileWithoutProfileHints(t *testing.T) {
	st, err := store.Open(types.StoreConfig{DataDir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	var buf strings.Builder
	cfg := types.RadarConfig{Embedding: types.EmbeddingConfig{Dimension: 2}}
	require.NoError(t, refreshProfile(context.Background(), st, cfg, &buf))
	assert.Contains(t, buf.String(), "No interest profile yet")

	_, ok, err := st.Profile(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRefreshProfileRecentersAfterSync(t *testing.T) {
	st, err := store.Open(types.StoreConfig{DataDir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	seedStore(t, st, [][]float32{{1, 0}, {0, 1}}, 3)
	cfg := types.RadarConfig{
		Embedding: types.EmbeddingConfig{Dimension: 2},
		Profile:   types.ProfileConfig{Clusters: 2, Seed: 7},
	}
	built, err := profile.NewBuilder(st, cfg.Profile, 2).Rebuild(context.Background(), &strings.Builder{})
	require.NoError(t, err)

	// A later sync adds an item on a new axis; the center must follow
	// without the clusters being recomputed.
	seedStore(t, st, [][]float32{{1, 0}, {0, 1}, {0, 0.1}}, 9)

	var buf strings.Builder
	require.NoError(t, refreshProfile(context.Background(), st, cfg, &buf))
	assert.Contains(t, buf.String(), "recentered at library version 9")

	updated, ok, err := st.Profile(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 9, updated.LibraryVersion)
	assert.Equal(t, built.Clusters, updated.Clusters)
	assert.NotEqual(t, built.Center, updated.Center)
}

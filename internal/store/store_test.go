// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-radar/internal/fingerprint"
	"github.com/pdiddy/paper-radar/pkg/types"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(types.StoreConfig{DataDir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testItem(key string) (types.LibraryItem, fingerprint.Fingerprint) {
	item := types.LibraryItem{
		Key:      key,
		Version:  3,
		Title:    "Spectral Methods for Graphs",
		Abstract: "We study spectra.",
		Authors:  []string{"Ada Lovelace", "Kurt Godel"},
		Venue:    "JMLR",
		Year:     2025,
		Tags:     []string{"graphs", "spectral"},
		DOI:      "10.1000/xyz",
	}
	fp := fingerprint.New(item.Title, item.Abstract, item.Authors, item.Tags)
	return item, fp
}

func TestCursorDefaultsToZero(t *testing.T) {
	s := testStore(t)
	version, tombstones, err := s.Cursor(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, version)
	assert.Empty(t, tombstones)
}

func TestItemRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	item, fp := testItem("KEY1")

	tx, err := s.BeginSync(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.UpsertItem(item, fp))
	require.NoError(t, tx.Commit())

	got, gotFP, ok, err := s.Item(ctx, "KEY1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, item, got)
	assert.Equal(t, fp, gotFP)

	_, _, ok, err = s.Item(ctx, "MISSING")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSyncRollbackLeavesStateUntouched(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	item, fp := testItem("KEY1")

	tx, err := s.BeginSync(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.UpsertItem(item, fp))
	require.NoError(t, tx.SetCursor(42, nil))
	require.NoError(t, tx.Rollback())

	n, err := s.ItemCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	version, _, err := s.Cursor(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, version)
}

func TestEmbeddingImmutableOncePut(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	fp := fingerprint.Fingerprint("abc123")

	tx, err := s.BeginSync(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.PutEmbedding(fp, []float32{1, 0, 0}, false))
	// Second write for the same fingerprint must not replace the vector.
	require.NoError(t, tx.PutEmbedding(fp, []float32{0, 1, 0}, false))
	require.NoError(t, tx.Commit())

	vec, ok, err := s.Embedding(ctx, fp)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []float32{1, 0, 0}, vec)
}

func TestFreqBumpAndPrune(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	tx, err := s.BeginSync(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.BumpFreq(FreqAuthor, "Ada Lovelace", 2))
	require.NoError(t, tx.BumpFreq(FreqAuthor, "Kurt Godel", 1))
	require.NoError(t, tx.BumpFreq(FreqAuthor, "Kurt Godel", -1))
	require.NoError(t, tx.Commit())

	entries, err := s.FrequencyTable(ctx, FreqAuthor, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, types.FrequencyEntry{Value: "Ada Lovelace", Count: 2}, entries[0])
}

func TestFrequencyTableStableOrder(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	tx, err := s.BeginSync(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.BumpFreq(FreqVenue, "NeurIPS", 3))
	require.NoError(t, tx.BumpFreq(FreqVenue, "ICML", 3))
	require.NoError(t, tx.BumpFreq(FreqVenue, "JMLR", 5))
	require.NoError(t, tx.Commit())

	entries, err := s.FrequencyTable(ctx, FreqVenue, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "JMLR", entries[0].Value)
	// Equal counts break ties alphabetically.
	assert.Equal(t, "ICML", entries[1].Value)
}

func TestGCEmbeddings(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	item, fp := testItem("KEY1")

	tx, err := s.BeginSync(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.UpsertItem(item, fp))
	require.NoError(t, tx.PutEmbedding(fp, []float32{1, 0}, false))
	require.NoError(t, tx.PutEmbedding("orphan", []float32{0, 1}, false))
	removed, err := tx.GCEmbeddings()
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	assert.Equal(t, 1, removed)
	_, ok, err := s.Embedding(ctx, "orphan")
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = s.Embedding(ctx, fp)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCursorRoundTripWithTombstones(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	tx, err := s.BeginSync(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.SetCursor(17, map[string]bool{"DEAD1": true, "DEAD2": true}))
	require.NoError(t, tx.Commit())

	version, tombstones, err := s.Cursor(ctx)
	require.NoError(t, err)
	assert.Equal(t, 17, version)
	assert.Equal(t, map[string]bool{"DEAD1": true, "DEAD2": true}, tombstones)
}

func TestProfileReplaceAndRead(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, ok, err := s.Profile(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	p := types.InterestProfile{
		LibraryVersion:  9,
		Center:          []float32{0.6, 0.8},
		Clusters:        []types.ClusterCenter{{Center: []float32{0.6, 0.8}, Members: 2}},
		AuthorWhitelist: []string{"Ada Lovelace"},
		ItemCount:       2,
		BuiltAt:         time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.ReplaceProfile(ctx, p))

	got, ok, err := s.Profile(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, p, got)

	// Replacing swaps the whole snapshot.
	p2 := p
	p2.LibraryVersion = 10
	require.NoError(t, s.ReplaceProfile(ctx, p2))
	got, _, err = s.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, got.LibraryVersion)
}

func TestVectorCodec(t *testing.T) {
	vec := []float32{0.1, -2.5, 0, 42}
	decoded, err := DecodeVector(EncodeVector(vec), len(vec))
	require.NoError(t, err)
	assert.Equal(t, vec, decoded)

	_, err = DecodeVector([]byte{1, 2, 3}, 1)
	assert.Error(t, err)
}

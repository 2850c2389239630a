// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package profile turns the synced library into an interest profile: an
// overall centroid, sub-topic cluster centers and ranked frequency tables.
// A profile is a snapshot; builds write a complete new snapshot and swap
// it in atomically.
package profile

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-radar/internal/embed"
	"github.com/pdiddy/paper-radar/internal/store"
	"github.com/pdiddy/paper-radar/pkg/types"
)

const exportFile = "profile.yaml"

// Builder constructs interest profiles from the store.
type Builder struct {
	store *store.Store
	cfg   types.ProfileConfig
	dim   int

	// now is the snapshot clock, overridable in tests.
	now func() time.Time
}

// NewBuilder returns a Builder. dim is the embedding dimension, used to
// shape the zero center of an empty-library profile.
func NewBuilder(st *store.Store, cfg types.ProfileConfig, dim int) *Builder {
	if cfg.Clusters <= 0 {
		cfg.Clusters = 8
	}
	if cfg.TopN <= 0 {
		cfg.TopN = 20
	}
	return &Builder{store: st, cfg: cfg, dim: dim, now: time.Now}
}

// Rebuild clusters the whole library from scratch and replaces the current
// profile. An empty library yields a degenerate profile with a zero center
// and a single empty cluster, which ranks every candidate at zero
// similarity until the library has content.
func (b *Builder) Rebuild(ctx context.Context, w io.Writer) (types.InterestProfile, error) {
	_, vectors, err := b.store.LiveEmbeddings(ctx)
	if err != nil {
		return types.InterestProfile{}, err
	}
	vectors = dropZero(vectors)

	p, err := b.baseProfile(ctx)
	if err != nil {
		return types.InterestProfile{}, err
	}

	if len(vectors) == 0 {
		fmt.Fprintln(w, "Library has no embedded items; writing empty profile.")
		p.Center = make([]float32, b.dim)
		p.Clusters = []types.ClusterCenter{{Center: make([]float32, b.dim)}}
		return p, b.store.ReplaceProfile(ctx, p)
	}

	k := b.cfg.Clusters
	if k > len(vectors) {
		k = len(vectors)
	}
	fmt.Fprintf(w, "Clustering %d embeddings into %d clusters...\n", len(vectors), k)

	centers, assignment := cluster(vectors, k, b.cfg.Seed)
	counts := make([]int, len(centers))
	for _, a := range assignment {
		counts[a]++
	}

	p.Center = meanVector(vectors, b.dim)
	p.Clusters = make([]types.ClusterCenter, 0, len(centers))
	for c, center := range centers {
		p.Clusters = append(p.Clusters, types.ClusterCenter{Center: center, Members: counts[c]})
	}
	return p, b.store.ReplaceProfile(ctx, p)
}

// Update refreshes the center and frequency tables without reclustering.
// Cluster centers are carried over from the last rebuild; if no profile
// exists yet this falls back to a full rebuild.
func (b *Builder) Update(ctx context.Context, w io.Writer) (types.InterestProfile, error) {
	prev, ok, err := b.store.Profile(ctx)
	if err != nil {
		return types.InterestProfile{}, err
	}
	if !ok {
		fmt.Fprintln(w, "No existing profile; running a full rebuild.")
		return b.Rebuild(ctx, w)
	}

	_, vectors, err := b.store.LiveEmbeddings(ctx)
	if err != nil {
		return types.InterestProfile{}, err
	}
	vectors = dropZero(vectors)

	p, err := b.baseProfile(ctx)
	if err != nil {
		return types.InterestProfile{}, err
	}
	p.Center = meanVector(vectors, b.dim)
	p.Clusters = prev.Clusters
	fmt.Fprintf(w, "Recentered profile over %d embeddings (%d clusters kept).\n",
		len(vectors), len(p.Clusters))
	return p, b.store.ReplaceProfile(ctx, p)
}

// baseProfile fills everything except the vector fields: frequency tables,
// whitelists, item count, library version and build time.
func (b *Builder) baseProfile(ctx context.Context) (types.InterestProfile, error) {
	var p types.InterestProfile

	version, _, err := b.store.Cursor(ctx)
	if err != nil {
		return p, err
	}
	count, err := b.store.ItemCount(ctx)
	if err != nil {
		return p, err
	}

	terms, err := b.store.FrequencyTable(ctx, store.FreqTerm, b.cfg.TopN)
	if err != nil {
		return p, err
	}
	authors, err := b.store.FrequencyTable(ctx, store.FreqAuthor, b.cfg.TopN)
	if err != nil {
		return p, err
	}
	venues, err := b.store.FrequencyTable(ctx, store.FreqVenue, b.cfg.TopN)
	if err != nil {
		return p, err
	}

	p.LibraryVersion = version
	p.ItemCount = count
	p.TopTerms = terms
	p.TopAuthors = authors
	p.TopVenues = venues
	p.AuthorWhitelist = entryValues(authors)
	p.VenueWhitelist = entryValues(venues)
	p.BuiltAt = b.now().UTC()
	return p, nil
}

// ExportYAML writes the profile snapshot to profile.yaml in the data
// directory, for inspection and manual whitelist tweaking.
func (b *Builder) ExportYAML(p types.InterestProfile) (string, error) {
	out, err := yaml.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encoding profile: %w", err)
	}
	path := filepath.Join(b.store.DataDir(), exportFile)
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", exportFile, err)
	}
	return path, nil
}

func entryValues(entries []types.FrequencyEntry) []string {
	values := make([]string, 0, len(entries))
	for _, e := range entries {
		values = append(values, e.Value)
	}
	return values
}

// dropZero removes flagged (all-zero) embeddings so they cannot pull the
// centroid toward the origin.
func dropZero(vectors [][]float32) [][]float32 {
	live := vectors[:0]
	for _, v := range vectors {
		if !embed.IsZero(v) {
			live = append(live, v)
		}
	}
	return live
}

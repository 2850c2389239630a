// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package librarysync tracks the source library through a version cursor
// and keeps the profile store's items, embeddings, and frequency tables in
// step with it. Cursor advance is the last write of a sync; a failed sync
// leaves the previously committed state untouched.
package librarysync

import (
	"context"
	"fmt"
	"io"

	"github.com/pdiddy/paper-radar/internal/embed"
	"github.com/pdiddy/paper-radar/internal/fingerprint"
	"github.com/pdiddy/paper-radar/internal/store"
	"github.com/pdiddy/paper-radar/pkg/types"
)

// Source is the library API collaborator. Implementations handle paging,
// rate limits, and transient retries; the engine only sees the final item
// sets.
type Source interface {
	// ListAllItems returns every library item plus the library version.
	ListAllItems(ctx context.Context) ([]types.LibraryItem, int, error)

	// ListChangedItems returns items changed since the given version plus
	// the new library version.
	ListChangedItems(ctx context.Context, since int) ([]types.LibraryItem, int, error)

	// ListDeletedKeys returns keys of items deleted since the given version.
	ListDeletedKeys(ctx context.Context, since int) ([]string, error)
}

// State tracks the engine's sync lifecycle.
type State int

const (
	StateUninitialized State = iota
	StateFullSyncInProgress
	StateIncrementalSyncInProgress
	StateSynced
)

func (s State) String() string {
	switch s {
	case StateFullSyncInProgress:
		return "full_sync_in_progress"
	case StateIncrementalSyncInProgress:
		return "incremental_sync_in_progress"
	case StateSynced:
		return "synced"
	default:
		return "uninitialized"
	}
}

// IntegrityError aborts a sync: the source reported something inconsistent
// with the committed cursor. The prior state stays untouched.
type IntegrityError struct {
	Reason string
}

func (e *IntegrityError) Error() string {
	return "sync integrity: " + e.Reason
}

// Summary holds counts from one sync run. Skipped records malformed items
// that were dropped; the run as a whole still succeeds.
type Summary struct {
	Added     int
	Updated   int
	Unchanged int
	Removed   int
	Skipped   int
	Embedded  int
	Flagged   int
	Version   int
}

// Engine applies library changes to the profile store. Exactly one sync
// runs at a time; the store's write transaction enforces that.
type Engine struct {
	store    *store.Store
	source   Source
	embedder embed.Embedder

	minTermLen int
	state      State

	// Progress, when set, is called as embedding batches complete.
	Progress func(done, total int)
}

// New builds a sync engine.
func New(st *store.Store, src Source, emb embed.Embedder, cfg types.ProfileConfig) *Engine {
	return &Engine{
		store:      st,
		source:     src,
		embedder:   emb,
		minTermLen: cfg.MinTermLength,
		state:      StateUninitialized,
	}
}

// State returns the engine's current lifecycle state.
func (e *Engine) State() State { return e.state }

// FullSync fetches the complete library, rebuilds item records, embeddings
// and frequency tables, and sets the cursor to the returned version.
func (e *Engine) FullSync(ctx context.Context, w io.Writer) (Summary, error) {
	e.state = StateFullSyncInProgress
	summary, err := e.fullSync(ctx, w)
	if err != nil {
		e.state = StateUninitialized
		return summary, err
	}
	e.state = StateSynced
	return summary, nil
}

func (e *Engine) fullSync(ctx context.Context, w io.Writer) (Summary, error) {
	var summary Summary

	items, version, err := e.source.ListAllItems(ctx)
	if err != nil {
		return summary, fmt.Errorf("listing library items: %w", err)
	}
	summary.Version = version

	tx, err := e.store.BeginSync(ctx)
	if err != nil {
		return summary, err
	}
	defer tx.Rollback()

	// Frequency tables are rebuilt from scratch on a full sync.
	for _, kind := range []string{store.FreqAuthor, store.FreqVenue, store.FreqTerm} {
		if err := tx.ClearFreq(kind); err != nil {
			return summary, err
		}
	}

	live := make(map[string]bool, len(items))
	var toEmbed []embedRequest
	for _, item := range items {
		if malformed(item) {
			fmt.Fprintf(w, "skipped %s: malformed record\n", describeItem(item))
			summary.Skipped++
			continue
		}
		live[item.Key] = true

		fp := itemFingerprint(item)
		if err := tx.UpsertItem(item, fp); err != nil {
			return summary, err
		}
		if err := e.bumpItemFreq(tx, item, +1); err != nil {
			return summary, err
		}

		has, err := tx.HasEmbedding(fp)
		if err != nil {
			return summary, err
		}
		if !has {
			toEmbed = append(toEmbed, embedRequest{fp: fp, text: item.EmbeddingText()})
		}
		summary.Added++
	}

	// Items no longer present in the source are purged.
	existing, _, err := e.store.Items(ctx)
	if err != nil {
		return summary, err
	}
	for _, item := range existing {
		if !live[item.Key] {
			if err := tx.DeleteItem(item.Key); err != nil {
				return summary, err
			}
			summary.Removed++
		}
	}

	embedded, flagged, err := e.embedMissing(ctx, tx, toEmbed)
	if err != nil {
		return summary, err
	}
	summary.Embedded = embedded
	summary.Flagged = flagged

	if _, err := tx.GCEmbeddings(); err != nil {
		return summary, err
	}
	if err := tx.SetCursor(version, nil); err != nil {
		return summary, err
	}
	if err := tx.Commit(); err != nil {
		return summary, fmt.Errorf("committing full sync: %w", err)
	}

	fmt.Fprintf(w, "full sync: %d items, %d embedded, %d flagged, %d skipped, version %d\n",
		summary.Added, summary.Embedded, summary.Flagged, summary.Skipped, version)
	return summary, nil
}

// IncrementalSync applies the diff since the committed cursor: changed
// items are re-fingerprinted and re-embedded only when content changed,
// tombstoned items are purged, and frequency counts move by deltas.
func (e *Engine) IncrementalSync(ctx context.Context, w io.Writer) (Summary, error) {
	e.state = StateIncrementalSyncInProgress
	summary, err := e.incrementalSync(ctx, w)
	if err != nil {
		e.state = StateSynced // prior committed state is still valid
		return summary, err
	}
	e.state = StateSynced
	return summary, nil
}

func (e *Engine) incrementalSync(ctx context.Context, w io.Writer) (Summary, error) {
	var summary Summary

	since, tombstones, err := e.store.Cursor(ctx)
	if err != nil {
		return summary, err
	}

	changed, newVersion, err := e.source.ListChangedItems(ctx, since)
	if err != nil {
		return summary, fmt.Errorf("listing changed items: %w", err)
	}
	deleted, err := e.source.ListDeletedKeys(ctx, since)
	if err != nil {
		return summary, fmt.Errorf("listing deleted keys: %w", err)
	}

	if newVersion < since {
		return summary, &IntegrityError{
			Reason: fmt.Sprintf("library version went backwards: %d < %d", newVersion, since),
		}
	}
	summary.Version = newVersion

	if len(changed) == 0 && len(deleted) == 0 && newVersion == since {
		fmt.Fprintf(w, "incremental sync: no changes since version %d\n", since)
		return summary, nil
	}

	tx, err := e.store.BeginSync(ctx)
	if err != nil {
		return summary, err
	}
	defer tx.Rollback()

	var toEmbed []embedRequest
	for _, item := range changed {
		if malformed(item) {
			fmt.Fprintf(w, "skipped %s: malformed record\n", describeItem(item))
			summary.Skipped++
			continue
		}

		fp := itemFingerprint(item)
		old, existed, err := tx.Item(item.Key)
		if err != nil {
			return summary, err
		}

		switch {
		case !existed:
			if err := e.bumpItemFreq(tx, item, +1); err != nil {
				return summary, err
			}
			summary.Added++
		case itemFingerprint(old) != fp:
			if err := e.bumpItemFreq(tx, old, -1); err != nil {
				return summary, err
			}
			if err := e.bumpItemFreq(tx, item, +1); err != nil {
				return summary, err
			}
			summary.Updated++
		default:
			// Metadata-only touch: fingerprint unchanged, embedding and
			// frequency counts stay as they are.
			summary.Unchanged++
		}

		if err := tx.UpsertItem(item, fp); err != nil {
			return summary, err
		}

		has, err := tx.HasEmbedding(fp)
		if err != nil {
			return summary, err
		}
		if !has {
			toEmbed = append(toEmbed, embedRequest{fp: fp, text: item.EmbeddingText()})
		}
	}

	for _, key := range deleted {
		old, existed, err := tx.Item(key)
		if err != nil {
			return summary, err
		}
		if !existed {
			if tombstones[key] {
				continue // already removed by an earlier sync
			}
			return summary, &IntegrityError{
				Reason: fmt.Sprintf("tombstone references unknown item %s", key),
			}
		}
		if err := e.bumpItemFreq(tx, old, -1); err != nil {
			return summary, err
		}
		if err := tx.DeleteItem(key); err != nil {
			return summary, err
		}
		tombstones[key] = true
		summary.Removed++
	}

	embedded, flagged, err := e.embedMissing(ctx, tx, toEmbed)
	if err != nil {
		return summary, err
	}
	summary.Embedded = embedded
	summary.Flagged = flagged

	if _, err := tx.GCEmbeddings(); err != nil {
		return summary, err
	}
	if err := tx.SetCursor(newVersion, tombstones); err != nil {
		return summary, err
	}
	if err := tx.Commit(); err != nil {
		return summary, fmt.Errorf("committing incremental sync: %w", err)
	}

	fmt.Fprintf(w, "incremental sync: %d added, %d updated, %d unchanged, %d removed, %d skipped, %d embedded, version %d\n",
		summary.Added, summary.Updated, summary.Unchanged, summary.Removed,
		summary.Skipped, summary.Embedded, newVersion)
	return summary, nil
}

type embedRequest struct {
	fp   fingerprint.Fingerprint
	text string
}

// embedMissing computes vectors for fingerprints with no stored embedding.
// Duplicate fingerprints in one batch are embedded once.
func (e *Engine) embedMissing(ctx context.Context, tx *store.SyncTx, reqs []embedRequest) (int, int, error) {
	seen := make(map[fingerprint.Fingerprint]bool, len(reqs))
	var unique []embedRequest
	for _, r := range reqs {
		if !seen[r.fp] {
			seen[r.fp] = true
			unique = append(unique, r)
		}
	}
	if len(unique) == 0 {
		return 0, 0, nil
	}

	texts := make([]string, len(unique))
	for i, r := range unique {
		texts[i] = r.text
	}

	res, err := e.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, 0, fmt.Errorf("embedding %d items: %w", len(unique), err)
	}

	flaggedSet := make(map[int]bool, len(res.Flagged))
	for _, idx := range res.Flagged {
		flaggedSet[idx] = true
	}

	for i, r := range unique {
		if err := tx.PutEmbedding(r.fp, res.Vectors[i], flaggedSet[i]); err != nil {
			return 0, 0, err
		}
		if e.Progress != nil {
			e.Progress(i+1, len(unique))
		}
	}
	return len(unique), len(res.Flagged), nil
}

// bumpItemFreq moves the author/venue/term counts contributed by one item.
func (e *Engine) bumpItemFreq(tx *store.SyncTx, item types.LibraryItem, delta int) error {
	for _, a := range item.Authors {
		if err := tx.BumpFreq(store.FreqAuthor, a, delta); err != nil {
			return err
		}
	}
	if err := tx.BumpFreq(store.FreqVenue, item.Venue, delta); err != nil {
		return err
	}
	for _, term := range fingerprint.Terms(item.Title, item.Abstract, item.Tags, e.minTermLen) {
		if err := tx.BumpFreq(store.FreqTerm, term, delta); err != nil {
			return err
		}
	}
	return nil
}

func itemFingerprint(item types.LibraryItem) fingerprint.Fingerprint {
	return fingerprint.New(item.Title, item.Abstract, item.Authors, item.Tags)
}

func malformed(item types.LibraryItem) bool {
	return item.Key == "" || item.Title == ""
}

func describeItem(item types.LibraryItem) string {
	if item.Key != "" {
		return item.Key
	}
	if item.Title != "" {
		return fmt.Sprintf("%q", item.Title)
	}
	return "(no key)"
}

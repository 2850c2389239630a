// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/pdiddy/paper-radar/pkg/types"
)

const cacheFile = "cache.db"

var (
	bucketMeta       = []byte("source_meta")
	bucketCandidates = []byte("candidates")
)

// Cache stores fetched candidates per source, keyed by source and native
// id, so repeated rank runs inside the TTL reuse a source's batch instead
// of hitting its API again. A source that failed is never stored and gets
// refetched on the next run.
type Cache struct {
	db  *bbolt.DB
	ttl time.Duration
}

// OpenCache opens (or creates) the candidate cache in dataDir.
func OpenCache(dataDir string, ttl time.Duration) (*Cache, error) {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	db, err := bbolt.Open(filepath.Join(dataDir, cacheFile), 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("opening candidate cache: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, bucket := range [][]byte{bucketMeta, bucketCandidates} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache buckets: %w", err)
	}
	return &Cache{db: db, ttl: ttl}, nil
}

// Close closes the underlying database.
func (c *Cache) Close() error { return c.db.Close() }

// Source returns the cached candidates for one source if its last fetch
// is younger than the TTL.
func (c *Cache) Source(name string) ([]types.Candidate, time.Time, bool, error) {
	var fetchedAt time.Time
	var candidates []types.Candidate
	var found bool

	err := c.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(bucketMeta).Get([]byte(name))
		if raw == nil {
			return nil
		}
		if err := fetchedAt.UnmarshalText(raw); err != nil {
			return fmt.Errorf("parsing cache timestamp for %s: %w", name, err)
		}
		if time.Since(fetchedAt) > c.ttl {
			return nil
		}

		cur := tx.Bucket(bucketCandidates).Cursor()
		prefix := candidateKey(name, "")
		for k, v := cur.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = cur.Next() {
			var cand types.Candidate
			if err := json.Unmarshal(v, &cand); err != nil {
				return fmt.Errorf("parsing cached candidate %q: %w", k, err)
			}
			candidates = append(candidates, cand)
		}
		found = true
		return nil
	})
	if err != nil || !found {
		return nil, time.Time{}, false, err
	}
	return candidates, fetchedAt, true, nil
}

// PutSource replaces the cached candidates for one source.
func (c *Cache) PutSource(name string, fetchedAt time.Time, candidates []types.Candidate) error {
	stamp, err := fetchedAt.UTC().MarshalText()
	if err != nil {
		return fmt.Errorf("encoding cache timestamp: %w", err)
	}
	err = c.db.Update(func(tx *bbolt.Tx) error {
		cands := tx.Bucket(bucketCandidates)
		cur := cands.Cursor()
		prefix := candidateKey(name, "")
		for k, _ := cur.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = cur.Next() {
			if err := cands.Delete(k); err != nil {
				return err
			}
		}
		for _, cand := range candidates {
			data, err := json.Marshal(cand)
			if err != nil {
				return fmt.Errorf("encoding candidate: %w", err)
			}
			id := cand.NativeID
			if id == "" {
				id = cand.Title
			}
			if err := cands.Put(candidateKey(name, id), data); err != nil {
				return err
			}
		}
		return tx.Bucket(bucketMeta).Put([]byte(name), stamp)
	})
	if err != nil {
		return fmt.Errorf("writing candidate cache for %s: %w", name, err)
	}
	return nil
}

// StoreFetched caches the candidates of every named source that
// succeeded in out. Failed sources are skipped so the next run fetches
// them again instead of serving a gap for the whole TTL.
func (c *Cache) StoreFetched(names []string, out Output) error {
	bySource := make(map[string][]types.Candidate, len(names))
	for _, cand := range out.Candidates {
		bySource[cand.Source] = append(bySource[cand.Source], cand)
	}
	for _, name := range names {
		if out.Failed(name) {
			continue
		}
		if err := c.PutSource(name, out.FetchedAt, bySource[name]); err != nil {
			return err
		}
	}
	return nil
}

func candidateKey(source, nativeID string) []byte {
	return []byte(source + "\x00" + nativeID)
}

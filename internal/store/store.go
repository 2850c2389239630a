// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists the profile state: library items, embeddings keyed
// by content fingerprint, frequency tables, the sync cursor, and the current
// interest profile snapshot.
package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/paper-radar/internal/fingerprint"
	"github.com/pdiddy/paper-radar/pkg/types"
)

const dbFile = "profile.db"

// Frequency table kinds.
const (
	FreqAuthor = "author"
	FreqVenue  = "venue"
	FreqTerm   = "term"
)

// Store manages the profile SQLite database. SQLite's write lock gives the
// single-writer discipline the sync engine requires: a second concurrent
// sync fails to begin its transaction instead of interleaving.
type Store struct {
	db      *sql.DB
	dataDir string
}

// Open opens or creates the profile database at dataDir/profile.db and
// creates the schema if it does not exist.
func Open(cfg types.StoreConfig) (*Store, error) {
	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(cfg.DataDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, dataDir: cfg.DataDir}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DataDir returns the base directory for persistent state.
func (s *Store) DataDir() string { return s.dataDir }

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS items (
			key TEXT PRIMARY KEY,
			version INTEGER NOT NULL,
			title TEXT NOT NULL,
			abstract TEXT,
			authors TEXT,
			venue TEXT,
			year INTEGER,
			tags TEXT,
			collections TEXT,
			doi TEXT,
			url TEXT,
			fingerprint TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_items_fingerprint ON items(fingerprint)`,
		`CREATE TABLE IF NOT EXISTS embeddings (
			fingerprint TEXT PRIMARY KEY,
			vector BLOB NOT NULL,
			dim INTEGER NOT NULL,
			zero INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS freq (
			kind TEXT NOT NULL,
			value TEXT NOT NULL,
			count INTEGER NOT NULL,
			PRIMARY KEY (kind, value)
		)`,
		`CREATE TABLE IF NOT EXISTS sync_cursor (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			version INTEGER NOT NULL,
			tombstones TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS profile (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			snapshot TEXT NOT NULL,
			library_version INTEGER NOT NULL,
			built_at TEXT NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Cursor returns the last committed sync cursor. A store that has never
// completed a sync reports version 0 and no tombstones.
func (s *Store) Cursor(ctx context.Context) (int, map[string]bool, error) {
	var version int
	var tombstonesJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT version, tombstones FROM sync_cursor WHERE id = 1`,
	).Scan(&version, &tombstonesJSON)
	if err == sql.ErrNoRows {
		return 0, map[string]bool{}, nil
	}
	if err != nil {
		return 0, nil, fmt.Errorf("reading sync cursor: %w", err)
	}

	var keys []string
	if err := json.Unmarshal([]byte(tombstonesJSON), &keys); err != nil {
		return 0, nil, fmt.Errorf("parsing tombstone set: %w", err)
	}
	tombstones := make(map[string]bool, len(keys))
	for _, k := range keys {
		tombstones[k] = true
	}
	return version, tombstones, nil
}

// Item returns one library item and its stored fingerprint.
func (s *Store) Item(ctx context.Context, key string) (types.LibraryItem, fingerprint.Fingerprint, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT key, version, title, abstract, authors, venue, year, tags, collections, doi, url, fingerprint
		 FROM items WHERE key = ?`, key)
	item, fp, err := scanItem(row)
	if err == sql.ErrNoRows {
		return types.LibraryItem{}, "", false, nil
	}
	if err != nil {
		return types.LibraryItem{}, "", false, fmt.Errorf("reading item %s: %w", key, err)
	}
	return item, fp, true, nil
}

// Items returns all live library items with their fingerprints, ordered by key.
func (s *Store) Items(ctx context.Context) ([]types.LibraryItem, []fingerprint.Fingerprint, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, version, title, abstract, authors, venue, year, tags, collections, doi, url, fingerprint
		 FROM items ORDER BY key`)
	if err != nil {
		return nil, nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []types.LibraryItem
	var fps []fingerprint.Fingerprint
	for rows.Next() {
		item, fp, err := scanItem(rows)
		if err != nil {
			return nil, nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, item)
		fps = append(fps, fp)
	}
	return items, fps, rows.Err()
}

// ItemCount returns the number of live library items.
func (s *Store) ItemCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM items`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting items: %w", err)
	}
	return n, nil
}

// Embedding returns the vector stored for a fingerprint.
func (s *Store) Embedding(ctx context.Context, fp fingerprint.Fingerprint) ([]float32, bool, error) {
	var blob []byte
	var dim int
	err := s.db.QueryRowContext(ctx,
		`SELECT vector, dim FROM embeddings WHERE fingerprint = ?`, string(fp),
	).Scan(&blob, &dim)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading embedding: %w", err)
	}
	vec, err := DecodeVector(blob, dim)
	if err != nil {
		return nil, false, err
	}
	return vec, true, nil
}

// LiveEmbeddings returns the embedding of every live item, keyed by item
// key, in item-key order. Items whose fingerprint has no stored vector are
// skipped; the caller treats that as missing coverage.
func (s *Store) LiveEmbeddings(ctx context.Context) ([]string, [][]float32, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT i.key, e.vector, e.dim
		 FROM items i JOIN embeddings e ON e.fingerprint = i.fingerprint
		 ORDER BY i.key`)
	if err != nil {
		return nil, nil, fmt.Errorf("listing live embeddings: %w", err)
	}
	defer rows.Close()

	var keys []string
	var vectors [][]float32
	for rows.Next() {
		var key string
		var blob []byte
		var dim int
		if err := rows.Scan(&key, &blob, &dim); err != nil {
			return nil, nil, fmt.Errorf("scanning embedding: %w", err)
		}
		vec, err := DecodeVector(blob, dim)
		if err != nil {
			return nil, nil, err
		}
		keys = append(keys, key)
		vectors = append(vectors, vec)
	}
	return keys, vectors, rows.Err()
}

// FrequencyTable returns the top-N entries of one frequency table, ranked
// by count descending with a stable value tie-break.
func (s *Store) FrequencyTable(ctx context.Context, kind string, topN int) ([]types.FrequencyEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT value, count FROM freq WHERE kind = ? ORDER BY count DESC, value ASC LIMIT ?`,
		kind, topN)
	if err != nil {
		return nil, fmt.Errorf("reading %s frequency table: %w", kind, err)
	}
	defer rows.Close()

	var entries []types.FrequencyEntry
	for rows.Next() {
		var e types.FrequencyEntry
		if err := rows.Scan(&e.Value, &e.Count); err != nil {
			return nil, fmt.Errorf("scanning frequency entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Profile returns the current interest profile snapshot, or ok=false when
// no profile has been built yet.
func (s *Store) Profile(ctx context.Context) (types.InterestProfile, bool, error) {
	var snapshot string
	err := s.db.QueryRowContext(ctx, `SELECT snapshot FROM profile WHERE id = 1`).Scan(&snapshot)
	if err == sql.ErrNoRows {
		return types.InterestProfile{}, false, nil
	}
	if err != nil {
		return types.InterestProfile{}, false, fmt.Errorf("reading profile: %w", err)
	}

	var p types.InterestProfile
	if err := json.Unmarshal([]byte(snapshot), &p); err != nil {
		return types.InterestProfile{}, false, fmt.Errorf("parsing profile snapshot: %w", err)
	}
	return p, true, nil
}

// ReplaceProfile atomically swaps in a new profile snapshot. The previous
// snapshot stays visible to readers until the single-row replace commits.
func (s *Store) ReplaceProfile(ctx context.Context, p types.InterestProfile) error {
	snapshot, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding profile snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO profile (id, snapshot, library_version, built_at) VALUES (1, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			snapshot=excluded.snapshot,
			library_version=excluded.library_version,
			built_at=excluded.built_at`,
		string(snapshot), p.LibraryVersion, p.BuiltAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("replacing profile: %w", err)
	}
	return nil
}

// BeginSync opens the single write transaction for one sync run. Commit is
// the final step of the sync; anything before a successful Commit leaves
// the previously committed state untouched.
func (s *Store) BeginSync(ctx context.Context) (*SyncTx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning sync transaction: %w", err)
	}
	return &SyncTx{tx: tx, ctx: ctx}, nil
}

// SyncTx is the write handle used by the sync engine.
type SyncTx struct {
	tx  *sql.Tx
	ctx context.Context
}

// Commit commits all buffered writes.
func (t *SyncTx) Commit() error { return t.tx.Commit() }

// Rollback discards the transaction; safe to call after Commit.
func (t *SyncTx) Rollback() error { return t.tx.Rollback() }

// ItemFingerprint returns the stored fingerprint for an item key as seen
// inside the transaction.
func (t *SyncTx) ItemFingerprint(key string) (fingerprint.Fingerprint, bool, error) {
	var fp string
	err := t.tx.QueryRowContext(t.ctx, `SELECT fingerprint FROM items WHERE key = ?`, key).Scan(&fp)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading fingerprint for %s: %w", key, err)
	}
	return fingerprint.Fingerprint(fp), true, nil
}

// Item returns the stored item as seen inside the transaction.
func (t *SyncTx) Item(key string) (types.LibraryItem, bool, error) {
	row := t.tx.QueryRowContext(t.ctx,
		`SELECT key, version, title, abstract, authors, venue, year, tags, collections, doi, url, fingerprint
		 FROM items WHERE key = ?`, key)
	item, _, err := scanItem(row)
	if err == sql.ErrNoRows {
		return types.LibraryItem{}, false, nil
	}
	if err != nil {
		return types.LibraryItem{}, false, fmt.Errorf("reading item %s: %w", key, err)
	}
	return item, true, nil
}

// UpsertItem writes one library item record with its fingerprint.
func (t *SyncTx) UpsertItem(item types.LibraryItem, fp fingerprint.Fingerprint) error {
	authorsJSON, _ := json.Marshal(item.Authors)
	tagsJSON, _ := json.Marshal(item.Tags)
	collectionsJSON, _ := json.Marshal(item.Collections)
	_, err := t.tx.ExecContext(t.ctx,
		`INSERT INTO items (key, version, title, abstract, authors, venue, year, tags, collections, doi, url, fingerprint)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
			version=excluded.version, title=excluded.title, abstract=excluded.abstract,
			authors=excluded.authors, venue=excluded.venue, year=excluded.year,
			tags=excluded.tags, collections=excluded.collections,
			doi=excluded.doi, url=excluded.url, fingerprint=excluded.fingerprint`,
		item.Key, item.Version, item.Title, item.Abstract, string(authorsJSON),
		item.Venue, item.Year, string(tagsJSON), string(collectionsJSON),
		item.DOI, item.URL, string(fp))
	if err != nil {
		return fmt.Errorf("upserting item %s: %w", item.Key, err)
	}
	return nil
}

// DeleteItem removes one item record.
func (t *SyncTx) DeleteItem(key string) error {
	if _, err := t.tx.ExecContext(t.ctx, `DELETE FROM items WHERE key = ?`, key); err != nil {
		return fmt.Errorf("deleting item %s: %w", key, err)
	}
	return nil
}

// HasEmbedding reports whether a vector is stored for the fingerprint.
func (t *SyncTx) HasEmbedding(fp fingerprint.Fingerprint) (bool, error) {
	var n int
	err := t.tx.QueryRowContext(t.ctx,
		`SELECT count(*) FROM embeddings WHERE fingerprint = ?`, string(fp)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking embedding: %w", err)
	}
	return n > 0, nil
}

// PutEmbedding stores a vector for a fingerprint. Vectors are immutable
// once computed; a second write for the same fingerprint is a no-op.
func (t *SyncTx) PutEmbedding(fp fingerprint.Fingerprint, vec []float32, zero bool) error {
	z := 0
	if zero {
		z = 1
	}
	_, err := t.tx.ExecContext(t.ctx,
		`INSERT OR IGNORE INTO embeddings (fingerprint, vector, dim, zero) VALUES (?, ?, ?, ?)`,
		string(fp), EncodeVector(vec), len(vec), z)
	if err != nil {
		return fmt.Errorf("storing embedding: %w", err)
	}
	return nil
}

// BumpFreq adjusts one frequency count by delta, deleting rows that reach
// zero so a no-op sync leaves the table byte-identical.
func (t *SyncTx) BumpFreq(kind, value string, delta int) error {
	if value == "" || delta == 0 {
		return nil
	}
	_, err := t.tx.ExecContext(t.ctx,
		`INSERT INTO freq (kind, value, count) VALUES (?, ?, ?)
		 ON CONFLICT(kind, value) DO UPDATE SET count = count + excluded.count`,
		kind, value, delta)
	if err != nil {
		return fmt.Errorf("updating %s frequency for %q: %w", kind, value, err)
	}
	_, err = t.tx.ExecContext(t.ctx,
		`DELETE FROM freq WHERE kind = ? AND value = ? AND count <= 0`, kind, value)
	if err != nil {
		return fmt.Errorf("pruning %s frequency for %q: %w", kind, value, err)
	}
	return nil
}

// ClearFreq drops every row of one frequency table. Used by full sync to
// rebuild counts from scratch.
func (t *SyncTx) ClearFreq(kind string) error {
	if _, err := t.tx.ExecContext(t.ctx, `DELETE FROM freq WHERE kind = ?`, kind); err != nil {
		return fmt.Errorf("clearing %s frequency table: %w", kind, err)
	}
	return nil
}

// GCEmbeddings removes embedding rows no live item fingerprint references,
// keeping the one-live-fingerprint-per-vector invariant.
func (t *SyncTx) GCEmbeddings() (int, error) {
	res, err := t.tx.ExecContext(t.ctx,
		`DELETE FROM embeddings WHERE fingerprint NOT IN (SELECT fingerprint FROM items)`)
	if err != nil {
		return 0, fmt.Errorf("collecting orphan embeddings: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// SetCursor writes the sync cursor. Called last inside the sync
// transaction so a failed sync never advances the committed version.
func (t *SyncTx) SetCursor(version int, tombstones map[string]bool) error {
	keys := make([]string, 0, len(tombstones))
	for k := range tombstones {
		keys = append(keys, k)
	}
	// Stable order keeps repeated syncs byte-identical.
	sort.Strings(keys)
	tombstonesJSON, _ := json.Marshal(keys)
	_, err := t.tx.ExecContext(t.ctx,
		`INSERT INTO sync_cursor (id, version, tombstones) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET version=excluded.version, tombstones=excluded.tombstones`,
		version, string(tombstonesJSON))
	if err != nil {
		return fmt.Errorf("writing sync cursor: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (types.LibraryItem, fingerprint.Fingerprint, error) {
	var item types.LibraryItem
	var abstract, authorsJSON, venue, tagsJSON, collectionsJSON, doi, url sql.NullString
	var year sql.NullInt64
	var fp string
	err := row.Scan(&item.Key, &item.Version, &item.Title, &abstract, &authorsJSON,
		&venue, &year, &tagsJSON, &collectionsJSON, &doi, &url, &fp)
	if err != nil {
		return types.LibraryItem{}, "", err
	}
	item.Abstract = abstract.String
	item.Venue = venue.String
	item.Year = int(year.Int64)
	item.DOI = doi.String
	item.URL = url.String
	if authorsJSON.String != "" {
		json.Unmarshal([]byte(authorsJSON.String), &item.Authors)
	}
	if tagsJSON.String != "" {
		json.Unmarshal([]byte(tagsJSON.String), &item.Tags)
	}
	if collectionsJSON.String != "" {
		json.Unmarshal([]byte(collectionsJSON.String), &item.Collections)
	}
	return item, fingerprint.Fingerprint(fp), nil
}

// EncodeVector serializes a vector as little-endian float32.
func EncodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, x := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return buf
}

// DecodeVector deserializes a little-endian float32 vector of length dim.
func DecodeVector(blob []byte, dim int) ([]float32, error) {
	if len(blob) != 4*dim {
		return nil, fmt.Errorf("embedding blob is %d bytes, want %d for dim %d", len(blob), 4*dim, dim)
	}
	vec := make([]float32, dim)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[4*i:]))
	}
	return vec, nil
}

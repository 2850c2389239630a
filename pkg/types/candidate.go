// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"strings"
	"time"
)

// Candidate is a normalized publication record from one external source.
// Candidates are ephemeral: they live for one run plus the bounded fetch
// cache, never in the profile store.
type Candidate struct {
	// Source names the fetch adapter that produced the record
	// (e.g. "arxiv", "openalex", "crossref", "biorxiv").
	Source string `json:"source" yaml:"source"`

	// NativeID is the source-native identifier: a DOI, an arXiv id, or a
	// bioRxiv DOI. Empty when the source reports none.
	NativeID string `json:"native_id,omitempty" yaml:"native_id,omitempty"`

	// Title is the work title.
	Title string `json:"title" yaml:"title"`

	// Abstract is the abstract or summary, possibly empty.
	Abstract string `json:"abstract,omitempty" yaml:"abstract,omitempty"`

	// Authors lists the authors in source order.
	Authors []string `json:"authors,omitempty" yaml:"authors,omitempty"`

	// Venue is the journal or venue title, possibly empty.
	Venue string `json:"venue,omitempty" yaml:"venue,omitempty"`

	// DOI is the document identifier when the source reports one.
	DOI string `json:"doi,omitempty" yaml:"doi,omitempty"`

	// Published is the publication date; zero when unknown.
	Published time.Time `json:"published,omitempty" yaml:"published,omitempty"`

	// Citations is the citation count reported by the source, or -1 when
	// the source carries no citation signal.
	Citations int `json:"citations" yaml:"citations"`

	// Altmetric is the Altmetric attention score; negative when absent.
	Altmetric float64 `json:"altmetric" yaml:"altmetric"`

	// URL is the landing page link.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`
}

// EmbeddingText returns the text fed to the embedding model.
func (c Candidate) EmbeddingText() string {
	return joinEmbeddingParts(c.Title, c.Abstract, c.Authors, nil)
}

// CanonicalCandidate is the merged representation of one work possibly
// reported by several sources. Candidate holds the per-field best metadata
// chosen during resolution.
type CanonicalCandidate struct {
	// IdentityKey is stable across runs for the same work:
	// DOI, else preprint id, else content fingerprint.
	IdentityKey string `json:"identity_key" yaml:"identity_key"`

	// Candidate carries the merged metadata.
	Candidate `yaml:",inline"`

	// Sources lists every source that reported the work, in configured
	// priority order.
	Sources []string `json:"sources" yaml:"sources"`
}

// Tier buckets a scored candidate.
type Tier string

const (
	TierMustRead Tier = "must_read"
	TierConsider Tier = "consider"
	TierIgnore   Tier = "ignore"
)

// ScoreBreakdown records every factor that contributed to a final score,
// with enough context to explain the ranking to a human reader.
type ScoreBreakdown struct {
	Similarity float64 `json:"similarity" yaml:"similarity"`
	Recency    float64 `json:"recency" yaml:"recency"`
	Citations  float64 `json:"citations" yaml:"citations"`
	Altmetric  float64 `json:"altmetric" yaml:"altmetric"`
	Bonus      float64 `json:"bonus" yaml:"bonus"`
	Final      float64 `json:"final" yaml:"final"`

	// MatchedAuthors and MatchedVenues are the whitelist entries that
	// produced the bonus.
	MatchedAuthors []string `json:"matched_authors,omitempty" yaml:"matched_authors,omitempty"`
	MatchedVenues  []string `json:"matched_venues,omitempty" yaml:"matched_venues,omitempty"`

	// MatchedTerms are profile top terms found in the candidate text.
	MatchedTerms []string `json:"matched_terms,omitempty" yaml:"matched_terms,omitempty"`
}

// RankedCandidate is a canonical candidate with its score and tier.
type RankedCandidate struct {
	CanonicalCandidate `yaml:",inline"`

	Breakdown ScoreBreakdown `json:"breakdown" yaml:"breakdown"`
	Tier      Tier           `json:"tier" yaml:"tier"`
}

// joinEmbeddingParts builds the embedding text shared by library items and
// candidates: non-empty parts joined by newlines, list parts joined by "; ".
func joinEmbeddingParts(title, abstract string, authors, tags []string) string {
	parts := make([]string, 0, 4)
	if title != "" {
		parts = append(parts, title)
	}
	if abstract != "" {
		parts = append(parts, abstract)
	}
	if len(authors) > 0 {
		parts = append(parts, strings.Join(authors, "; "))
	}
	if len(tags) > 0 {
		parts = append(parts, strings.Join(tags, "; "))
	}
	return strings.Join(parts, "\n")
}

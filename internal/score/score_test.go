// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package score

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-radar/pkg/types"
)

var testNow = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

// axisProfile has its center on the first axis and no whitelists.
func axisProfile() types.InterestProfile {
	return types.InterestProfile{
		Center:   []float32{1, 0},
		Clusters: []types.ClusterCenter{{Center: []float32{1, 0}, Members: 1}},
		BuiltAt:  testNow,
	}
}

func newTestScorer(t *testing.T, p types.InterestProfile, cfg types.ScoringConfig) *Scorer {
	t.Helper()
	s, err := New(p, cfg)
	require.NoError(t, err)
	return s
}

func TestNormalizeWeights(t *testing.T) {
	// All-zero weights fall back to the reference weights.
	assert.Equal(t, defaultWeights, normalizeWeights(types.ScoreWeights{}))

	w := normalizeWeights(types.ScoreWeights{Similarity: 2, Recency: 2})
	assert.InDelta(t, 0.5, w.Similarity, 1e-9)
	assert.InDelta(t, 0.5, w.Recency, 1e-9)
	assert.Zero(t, w.Citations)
}

func TestReferenceScenarioLandsInConsider(t *testing.T) {
	s := newTestScorer(t, axisProfile(), types.ScoringConfig{})

	c := types.CanonicalCandidate{
		IdentityKey: "doi:10.1000/ref",
		Candidate: types.Candidate{
			Title:     "Reference Scenario",
			Published: testNow,
			Citations: 31, // log1p(31)/log1p(1000) is almost exactly 0.5
			Altmetric: -1,
		},
	}
	// Unit vector at cosine 0.9 to the center.
	vec := []float32{0.9, 0.43589}

	rc := s.Score(c, vec, testNow)
	assert.InDelta(t, 0.9, rc.Breakdown.Similarity, 1e-3)
	assert.Equal(t, 1.0, rc.Breakdown.Recency)
	assert.InDelta(t, 0.5, rc.Breakdown.Citations, 0.005)
	assert.Zero(t, rc.Breakdown.Altmetric)
	assert.Zero(t, rc.Breakdown.Bonus)
	assert.InDelta(t, 0.72, rc.Breakdown.Final, 0.005)
	assert.Equal(t, types.TierConsider, rc.Tier)
}

func TestRecencyAnchorsAndMonotonicity(t *testing.T) {
	s := newTestScorer(t, axisProfile(), types.ScoringConfig{})

	at := func(days int) float64 {
		return s.recency(testNow.AddDate(0, 0, -days), testNow)
	}

	assert.Equal(t, 1.0, at(0))
	assert.Equal(t, 1.0, at(30))
	assert.InDelta(t, 0.75, at(45), 1e-9)
	assert.InDelta(t, 0.5, at(60), 1e-9)
	assert.InDelta(t, 0.35, at(120), 1e-9)
	assert.InDelta(t, 0.2, at(180), 1e-9)
	assert.InDelta(t, 0.2, at(400), 1e-9)

	prev := 2.0
	for days := 0; days <= 400; days += 5 {
		cur := at(days)
		assert.LessOrEqual(t, cur, prev, "recency must not grow with age (day %d)", days)
		prev = cur
	}

	// Unknown date scores the floor.
	assert.InDelta(t, 0.2, s.recency(time.Time{}, testNow), 1e-9)
}

func TestColdStartZeroSimilarity(t *testing.T) {
	empty := types.InterestProfile{
		Center:   []float32{0, 0},
		Clusters: []types.ClusterCenter{{Center: []float32{0, 0}}},
		BuiltAt:  testNow,
	}
	s := newTestScorer(t, empty, types.ScoringConfig{})

	rc := s.Score(types.CanonicalCandidate{
		Candidate: types.Candidate{Title: "Anything", Citations: -1, Altmetric: -1},
	}, []float32{1, 0}, testNow)
	assert.Zero(t, rc.Breakdown.Similarity)
}

func TestSimilarityUsesBestCluster(t *testing.T) {
	p := axisProfile()
	p.Clusters = append(p.Clusters, types.ClusterCenter{Center: []float32{0, 1}, Members: 1})
	s := newTestScorer(t, p, types.ScoringConfig{})

	// Orthogonal to the center but aligned with the second cluster.
	assert.InDelta(t, 1.0, s.similarity([]float32{0, 1}), 1e-6)
}

func TestAbsentSignalsContributeZero(t *testing.T) {
	s := newTestScorer(t, axisProfile(), types.ScoringConfig{})
	assert.Zero(t, s.citations(-1))
	assert.Zero(t, s.altmetric(-1))
	assert.Equal(t, 1.0, s.citations(1000))
	assert.Equal(t, 1.0, s.altmetric(500))
	assert.Equal(t, 1.0, s.altmetric(9000))
}

func TestWhitelistBonusCapped(t *testing.T) {
	p := axisProfile()
	p.AuthorWhitelist = []string{"Ada Lovelace", "Kurt Godel"}
	p.VenueWhitelist = []string{"Journal of Tests"}
	s := newTestScorer(t, p, types.ScoringConfig{
		AuthorBonus: 0.6,
		VenueBonus:  0.5,
		BonusCap:    1.0,
	})

	bonus, authors, venues := s.bonus(types.CanonicalCandidate{
		Candidate: types.Candidate{
			Authors: []string{"ada lovelace", "Kurt Godel", "Someone Else"},
			Venue:   "Journal of Tests",
		},
	})
	assert.Equal(t, 1.0, bonus)
	assert.Equal(t, []string{"Ada Lovelace", "Kurt Godel"}, authors)
	assert.Equal(t, []string{"Journal of Tests"}, venues)
}

func TestMatchedTerms(t *testing.T) {
	p := axisProfile()
	p.TopTerms = []types.FrequencyEntry{{Value: "transformer", Count: 9}, {Value: "spectra", Count: 4}}
	s := newTestScorer(t, p, types.ScoringConfig{})

	rc := s.Score(types.CanonicalCandidate{
		Candidate: types.Candidate{
			Title:     "A transformer approach",
			Abstract:  "We study graph spectra with a transformer.",
			Citations: -1,
			Altmetric: -1,
		},
	}, nil, testNow)
	assert.Equal(t, []string{"spectra", "transformer"}, rc.Breakdown.MatchedTerms)
}

func TestStaleProfileRefused(t *testing.T) {
	p := axisProfile()
	p.BuiltAt = time.Now().Add(-30 * 24 * time.Hour)

	_, err := New(p, types.ScoringConfig{MaxProfileAge: 14 * 24 * time.Hour})
	var stale *StaleProfileError
	require.ErrorAs(t, err, &stale)

	// Zero bound disables the check.
	_, err = New(p, types.ScoringConfig{})
	assert.NoError(t, err)
}

func TestRankOrdering(t *testing.T) {
	s := newTestScorer(t, axisProfile(), types.ScoringConfig{})

	near := types.CanonicalCandidate{
		IdentityKey: "doi:10.1/near",
		Candidate:   types.Candidate{Title: "Near", Published: testNow, Citations: -1, Altmetric: -1},
	}
	far := types.CanonicalCandidate{
		IdentityKey: "doi:10.1/far",
		Candidate:   types.Candidate{Title: "Far", Published: testNow, Citations: -1, Altmetric: -1},
	}
	twinA := types.CanonicalCandidate{
		IdentityKey: "doi:10.1/twin-a",
		Candidate:   types.Candidate{Title: "Twin A", Citations: -1, Altmetric: -1},
	}
	twinB := types.CanonicalCandidate{
		IdentityKey: "doi:10.1/twin-b",
		Candidate:   types.Candidate{Title: "Twin B", Citations: -1, Altmetric: -1},
	}

	ranked := s.Rank(
		[]types.CanonicalCandidate{twinB, far, near, twinA},
		[][]float32{nil, {0.5, 0.86603}, {1, 0}, nil},
		testNow,
	)
	require.Len(t, ranked, 4)
	assert.Equal(t, "Near", ranked[0].Title)
	assert.Equal(t, "Far", ranked[1].Title)
	// Equal scores fall back to identity-key order.
	assert.Equal(t, "Twin A", ranked[2].Title)
	assert.Equal(t, "Twin B", ranked[3].Title)
}

func TestFormatTable(t *testing.T) {
	s := newTestScorer(t, axisProfile(), types.ScoringConfig{})
	rc := s.Score(types.CanonicalCandidate{
		IdentityKey: "doi:10.1000/abc",
		Candidate: types.Candidate{
			Title:     "Graph Spectra",
			DOI:       "10.1000/abc",
			Published: testNow,
			Citations: 12,
			Altmetric: -1,
		},
		Sources: []string{"openalex", "crossref"},
	}, []float32{1, 0}, testNow)

	var buf strings.Builder
	require.NoError(t, FormatTable(&buf, []types.RankedCandidate{rc}))
	out := buf.String()
	assert.Contains(t, out, "Graph Spectra")
	assert.Contains(t, out, "doi: 10.1000/abc")
	assert.Contains(t, out, "== "+string(rc.Tier)+" ==")

	buf.Reset()
	require.NoError(t, FormatTable(&buf, nil))
	assert.Contains(t, buf.String(), "No candidates")
}

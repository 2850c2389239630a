// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package score ranks canonical candidates against an interest profile.
// The final score is a weighted sum of similarity, recency, citations,
// altmetric and whitelist-bonus factors, each clamped to [0, 1].
package score

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/pdiddy/paper-radar/internal/embed"
	"github.com/pdiddy/paper-radar/internal/fingerprint"
	"github.com/pdiddy/paper-radar/pkg/types"
)

// Factor defaults, used when the config leaves them zero.
const (
	defaultCitationCap  = 1000
	defaultAltmetricCap = 500.0
	defaultBonusCap     = 1.0

	defaultMustRead = 0.75
	defaultConsider = 0.55
)

var defaultWeights = types.ScoreWeights{
	Similarity: 0.55,
	Recency:    0.15,
	Citations:  0.15,
	Altmetric:  0.10,
	Bonus:      0.05,
}

var defaultRecency = types.RecencyConfig{
	FullDays: 30,
	HalfDays: 60,
	MinDays:  180,
	Floor:    0.2,
}

// StaleProfileError means the profile predates the configured staleness
// bound and must be rebuilt before ranking.
type StaleProfileError struct {
	BuiltAt time.Time
	MaxAge  time.Duration
}

func (e *StaleProfileError) Error() string {
	return fmt.Sprintf("profile built %s is older than the %s staleness bound; run `paper-radar profile` first",
		e.BuiltAt.Format(time.RFC3339), e.MaxAge)
}

// Scorer scores candidates against one profile snapshot.
type Scorer struct {
	profile types.InterestProfile
	cfg     types.ScoringConfig
	weights types.ScoreWeights

	authors map[string]string // normalized -> whitelist spelling
	venues  map[string]string
	terms   map[string]bool
}

// New builds a Scorer, applying factor defaults and renormalizing the
// weights to sum to 1. It fails with StaleProfileError when the profile
// is older than cfg.MaxProfileAge (0 disables the check).
func New(p types.InterestProfile, cfg types.ScoringConfig) (*Scorer, error) {
	if cfg.MaxProfileAge > 0 && time.Since(p.BuiltAt) > cfg.MaxProfileAge {
		return nil, &StaleProfileError{BuiltAt: p.BuiltAt, MaxAge: cfg.MaxProfileAge}
	}

	if cfg.CitationCap <= 0 {
		cfg.CitationCap = defaultCitationCap
	}
	if cfg.AltmetricCap <= 0 {
		cfg.AltmetricCap = defaultAltmetricCap
	}
	if cfg.BonusCap <= 0 {
		cfg.BonusCap = defaultBonusCap
	}
	if cfg.Thresholds.MustRead <= 0 {
		cfg.Thresholds.MustRead = defaultMustRead
	}
	if cfg.Thresholds.Consider <= 0 {
		cfg.Thresholds.Consider = defaultConsider
	}
	if cfg.Recency == (types.RecencyConfig{}) {
		cfg.Recency = defaultRecency
	}

	s := &Scorer{
		profile: p,
		cfg:     cfg,
		weights: normalizeWeights(cfg.Weights),
		authors: make(map[string]string, len(p.AuthorWhitelist)),
		venues:  make(map[string]string, len(p.VenueWhitelist)),
		terms:   make(map[string]bool, len(p.TopTerms)),
	}
	for _, a := range p.AuthorWhitelist {
		s.authors[normalizeName(a)] = a
	}
	for _, v := range p.VenueWhitelist {
		s.venues[normalizeName(v)] = v
	}
	for _, t := range p.TopTerms {
		s.terms[t.Value] = true
	}
	return s, nil
}

// normalizeWeights scales the weights so they sum to 1, falling back to
// the reference weights when all are zero.
func normalizeWeights(w types.ScoreWeights) types.ScoreWeights {
	sum := w.Similarity + w.Recency + w.Citations + w.Altmetric + w.Bonus
	if sum <= 0 {
		return defaultWeights
	}
	w.Similarity /= sum
	w.Recency /= sum
	w.Citations /= sum
	w.Altmetric /= sum
	w.Bonus /= sum
	return w
}

// Rank scores every candidate and returns them ordered by final score
// descending, ties broken by identity key so output is stable.
func (s *Scorer) Rank(candidates []types.CanonicalCandidate, vectors [][]float32, now time.Time) []types.RankedCandidate {
	ranked := make([]types.RankedCandidate, 0, len(candidates))
	for i, c := range candidates {
		var vec []float32
		if i < len(vectors) {
			vec = vectors[i]
		}
		ranked = append(ranked, s.Score(c, vec, now))
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Breakdown.Final != ranked[j].Breakdown.Final {
			return ranked[i].Breakdown.Final > ranked[j].Breakdown.Final
		}
		return ranked[i].IdentityKey < ranked[j].IdentityKey
	})
	return ranked
}

// Score computes the full breakdown for one candidate. vec is the
// candidate's embedding; nil or zero vectors yield zero similarity.
func (s *Scorer) Score(c types.CanonicalCandidate, vec []float32, now time.Time) types.RankedCandidate {
	var b types.ScoreBreakdown

	b.Similarity = s.similarity(vec)
	b.Recency = s.recency(c.Published, now)
	b.Citations = s.citations(c.Citations)
	b.Altmetric = s.altmetric(c.Altmetric)
	b.Bonus, b.MatchedAuthors, b.MatchedVenues = s.bonus(c)
	b.MatchedTerms = s.matchedTerms(c)

	b.Final = s.weights.Similarity*b.Similarity +
		s.weights.Recency*b.Recency +
		s.weights.Citations*b.Citations +
		s.weights.Altmetric*b.Altmetric +
		s.weights.Bonus*b.Bonus

	return types.RankedCandidate{
		CanonicalCandidate: c,
		Breakdown:          b,
		Tier:               s.tier(b.Final),
	}
}

// similarity is the maximum cosine against the interest center and every
// cluster center, clamped to [0, 1].
func (s *Scorer) similarity(vec []float32) float64 {
	if len(vec) == 0 || embed.IsZero(vec) {
		return 0
	}
	best := embed.Cosine(vec, s.profile.Center)
	for _, c := range s.profile.Clusters {
		if sim := embed.Cosine(vec, c.Center); sim > best {
			best = sim
		}
	}
	return clamp01(best)
}

// recency interpolates linearly between the configured anchors:
// 1.0 up to FullDays, 0.5 at HalfDays, Floor at MinDays and beyond.
// An unknown publication date scores the floor.
func (s *Scorer) recency(published, now time.Time) float64 {
	r := s.cfg.Recency
	if published.IsZero() {
		return r.Floor
	}
	days := now.Sub(published).Hours() / 24
	switch {
	case days <= float64(r.FullDays):
		return 1.0
	case days <= float64(r.HalfDays):
		span := float64(r.HalfDays - r.FullDays)
		return 1.0 - 0.5*(days-float64(r.FullDays))/span
	case days <= float64(r.MinDays):
		span := float64(r.MinDays - r.HalfDays)
		return 0.5 - (0.5-r.Floor)*(days-float64(r.HalfDays))/span
	default:
		return r.Floor
	}
}

// citations maps the count onto [0, 1] with log scaling so the first
// citations matter most; a source with no citation signal contributes 0.
func (s *Scorer) citations(count int) float64 {
	if count < 0 {
		return 0
	}
	return clamp01(math.Log1p(float64(count)) / math.Log1p(float64(s.cfg.CitationCap)))
}

// altmetric maps the attention score linearly onto [0, 1]; an absent
// score contributes 0 rather than redistributing its weight.
func (s *Scorer) altmetric(score float64) float64 {
	if score < 0 {
		return 0
	}
	return clamp01(score / s.cfg.AltmetricCap)
}

// bonus sums per-hit author and venue bonuses, clamped to the cap.
func (s *Scorer) bonus(c types.CanonicalCandidate) (float64, []string, []string) {
	var total float64
	var matchedAuthors, matchedVenues []string

	seen := make(map[string]bool)
	for _, a := range c.Authors {
		key := normalizeName(a)
		if hit, ok := s.authors[key]; ok && !seen[key] {
			seen[key] = true
			total += s.cfg.AuthorBonus
			matchedAuthors = append(matchedAuthors, hit)
		}
	}
	if hit, ok := s.venues[normalizeName(c.Venue)]; ok && c.Venue != "" {
		total += s.cfg.VenueBonus
		matchedVenues = append(matchedVenues, hit)
	}
	if total > s.cfg.BonusCap {
		total = s.cfg.BonusCap
	}
	return clamp01(total), matchedAuthors, matchedVenues
}

// matchedTerms lists profile top terms present in the candidate text, for
// the human-readable reasoning output only.
func (s *Scorer) matchedTerms(c types.CanonicalCandidate) []string {
	if len(s.terms) == 0 {
		return nil
	}
	var matched []string
	seen := make(map[string]bool)
	for _, tok := range fingerprint.Terms(c.Title, c.Abstract, nil, 0) {
		if s.terms[tok] && !seen[tok] {
			seen[tok] = true
			matched = append(matched, tok)
		}
	}
	sort.Strings(matched)
	return matched
}

func (s *Scorer) tier(final float64) types.Tier {
	switch {
	case final >= s.cfg.Thresholds.MustRead:
		return types.TierMustRead
	case final >= s.cfg.Thresholds.Consider:
		return types.TierConsider
	default:
		return types.TierIgnore
	}
}

func normalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

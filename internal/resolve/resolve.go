// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package resolve merges candidate records that describe the same work
// into canonical candidates. Resolution is order-independent: identity
// grouping keys off normalized identifiers, and the fuzzy fallback runs
// over a canonically sorted residual with transitive merging, so any
// permutation of the input batch yields the same output set.
package resolve

import (
	"sort"
	"strings"
	"time"

	"github.com/pdiddy/paper-radar/internal/fingerprint"
	"github.com/pdiddy/paper-radar/pkg/types"
)

const defaultTitleThreshold = 0.9

// preprintSources are the sources whose native ids identify a work on
// their own. DOI-less records from other sources fall through to fuzzy
// title matching.
var preprintSources = map[string]bool{
	"arxiv":   true,
	"biorxiv": true,
	"medrxiv": true,
}

// Resolver deduplicates a batch of candidates.
type Resolver struct {
	threshold float64
	priority  map[string]int
}

// New builds a Resolver from config.
func New(cfg types.ResolverConfig) *Resolver {
	threshold := cfg.TitleThreshold
	if threshold <= 0 {
		threshold = defaultTitleThreshold
	}
	priority := make(map[string]int, len(cfg.SourcePriority))
	for i, s := range cfg.SourcePriority {
		priority[s] = i
	}
	return &Resolver{threshold: threshold, priority: priority}
}

// Resolve merges the batch into canonical candidates, sorted by identity
// key.
func (r *Resolver) Resolve(candidates []types.Candidate) []types.CanonicalCandidate {
	groups := make(map[string][]types.Candidate)
	var residual []types.Candidate

	for _, c := range candidates {
		if c.Title == "" {
			continue
		}
		if key := strongKey(c); key != "" {
			groups[key] = append(groups[key], c)
			continue
		}
		residual = append(residual, c)
	}

	merged := make([]types.CanonicalCandidate, 0, len(groups))
	for _, members := range groups {
		merged = append(merged, r.merge(members))
	}
	for _, members := range r.fuzzyGroups(residual) {
		merged = append(merged, r.merge(members))
	}

	sort.Slice(merged, func(i, j int) bool {
		return merged[i].IdentityKey < merged[j].IdentityKey
	})
	return merged
}

// fuzzyGroups partitions DOI-less, id-less candidates by transitive fuzzy
// title equality. The residual is sorted canonically first so the
// partition does not depend on arrival order.
func (r *Resolver) fuzzyGroups(residual []types.Candidate) [][]types.Candidate {
	sort.Slice(residual, func(i, j int) bool {
		return candidateSortKey(residual[i]) < candidateSortKey(residual[j])
	})

	parent := make([]int, len(residual))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}

	tokens := make([][]string, len(residual))
	for i, c := range residual {
		tokens[i] = titleTokens(c.Title)
	}

	for i := 0; i < len(residual); i++ {
		for j := i + 1; j < len(residual); j++ {
			if tokenSetSimilarity(tokens[i], tokens[j]) < r.threshold {
				continue
			}
			if !authorsCompatible(residual[i].Authors, residual[j].Authors) {
				continue
			}
			ri, rj := find(i), find(j)
			if ri != rj {
				parent[rj] = ri
			}
		}
	}

	byRoot := make(map[int][]types.Candidate)
	var roots []int
	for i, c := range residual {
		root := find(i)
		if _, seen := byRoot[root]; !seen {
			roots = append(roots, root)
		}
		byRoot[root] = append(byRoot[root], c)
	}

	groups := make([][]types.Candidate, 0, len(roots))
	for _, root := range roots {
		groups = append(groups, byRoot[root])
	}
	return groups
}

// merge collapses one group into a canonical candidate. Members are
// ranked DOI-bearing first, then richer abstract, then source priority,
// and each display field takes its value from the best-ranked member
// that has one.
func (r *Resolver) merge(members []types.Candidate) types.CanonicalCandidate {
	sort.Slice(members, func(i, j int) bool {
		a, b := members[i], members[j]
		if (a.DOI != "") != (b.DOI != "") {
			return a.DOI != ""
		}
		if len(a.Abstract) != len(b.Abstract) {
			return len(a.Abstract) > len(b.Abstract)
		}
		if pa, pb := r.sourceRank(a.Source), r.sourceRank(b.Source); pa != pb {
			return pa < pb
		}
		return candidateSortKey(a) < candidateSortKey(b)
	})

	out := members[0]
	out.DOI = ""
	out.Citations = -1
	out.Altmetric = -1
	out.Published = firstPublished(members)

	seen := make(map[string]bool)
	var sources []string
	for _, m := range members {
		if out.DOI == "" {
			out.DOI = NormalizeDOI(m.DOI)
		}
		if out.Abstract == "" {
			out.Abstract = m.Abstract
		}
		if len(out.Authors) == 0 {
			out.Authors = m.Authors
		}
		if out.Venue == "" {
			out.Venue = m.Venue
		}
		if out.URL == "" {
			out.URL = m.URL
		}
		if m.Citations > out.Citations {
			out.Citations = m.Citations
		}
		if m.Altmetric > out.Altmetric {
			out.Altmetric = m.Altmetric
		}
		if !seen[m.Source] {
			seen[m.Source] = true
			sources = append(sources, m.Source)
		}
	}
	sort.Slice(sources, func(i, j int) bool {
		if pi, pj := r.sourceRank(sources[i]), r.sourceRank(sources[j]); pi != pj {
			return pi < pj
		}
		return sources[i] < sources[j]
	})

	return types.CanonicalCandidate{
		IdentityKey: identityKey(out, members),
		Candidate:   out,
		Sources:     sources,
	}
}

// identityKey is stable across runs for the same work: DOI, else preprint
// id, else content fingerprint.
func identityKey(merged types.Candidate, members []types.Candidate) string {
	if merged.DOI != "" {
		return "doi:" + merged.DOI
	}
	for _, m := range members {
		if id := preprintID(m); id != "" {
			return "preprint:" + id
		}
	}
	fp := fingerprint.New(merged.Title, merged.Abstract, merged.Authors, nil)
	return "fp:" + string(fp)
}

func (r *Resolver) sourceRank(source string) int {
	if p, ok := r.priority[source]; ok {
		return p
	}
	return len(r.priority)
}

// strongKey returns the identity-grouping key for a candidate, or "" when
// it carries neither a DOI nor a preprint id.
func strongKey(c types.Candidate) string {
	if doi := NormalizeDOI(c.DOI); doi != "" {
		return "doi:" + doi
	}
	if id := preprintID(c); id != "" {
		return "preprint:" + id
	}
	return ""
}

// preprintID returns the normalized source-native id for preprint
// sources, with any arXiv version suffix stripped.
func preprintID(c types.Candidate) string {
	if !preprintSources[c.Source] || c.NativeID == "" {
		return ""
	}
	id := strings.ToLower(strings.TrimSpace(c.NativeID))
	if i := strings.LastIndex(id, "v"); i > 0 && isDigits(id[i+1:]) {
		id = id[:i]
	}
	return id
}

// NormalizeDOI lowercases a DOI and strips resolver URL and "doi:"
// prefixes.
func NormalizeDOI(doi string) string {
	doi = strings.ToLower(strings.TrimSpace(doi))
	for _, prefix := range []string{
		"https://doi.org/", "http://doi.org/",
		"https://dx.doi.org/", "http://dx.doi.org/",
		"doi:",
	} {
		doi = strings.TrimPrefix(doi, prefix)
	}
	return doi
}

// tokenSetSimilarity is the Dice coefficient over unique title tokens.
func tokenSetSimilarity(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]bool, len(a))
	for _, t := range a {
		set[t] = true
	}
	common := 0
	for _, t := range b {
		if set[t] {
			common++
		}
	}
	return 2 * float64(common) / float64(len(a)+len(b))
}

// authorsCompatible reports whether two author lists could describe the
// same work: either list unavailable, or at least one shared last name.
func authorsCompatible(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return true
	}
	last := make(map[string]bool, len(a))
	for _, name := range a {
		last[lastName(name)] = true
	}
	for _, name := range b {
		if last[lastName(name)] {
			return true
		}
	}
	return false
}

func lastName(name string) string {
	fields := strings.Fields(strings.ToLower(name))
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

// titleTokens returns the unique lowercased alphanumeric tokens of a
// title, sorted.
func titleTokens(title string) []string {
	raw := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	seen := make(map[string]bool, len(raw))
	tokens := raw[:0]
	for _, t := range raw {
		if !seen[t] {
			seen[t] = true
			tokens = append(tokens, t)
		}
	}
	sort.Strings(tokens)
	return tokens
}

// candidateSortKey is a canonical ordering key independent of batch order.
func candidateSortKey(c types.Candidate) string {
	return strings.Join(titleTokens(c.Title), " ") + "\x00" + c.Source + "\x00" + c.NativeID
}

// firstPublished returns the earliest non-zero publication date.
func firstPublished(members []types.Candidate) time.Time {
	var earliest time.Time
	for _, m := range members {
		if m.Published.IsZero() {
			continue
		}
		if earliest.IsZero() || m.Published.Before(earliest) {
			earliest = m.Published
		}
	}
	return earliest
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

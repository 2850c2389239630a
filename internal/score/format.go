// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package score

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/pdiddy/paper-radar/pkg/types"
)

// FormatJSON writes the ranked list as indented JSON.
func FormatJSON(w io.Writer, ranked []types.RankedCandidate) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ranked)
}

// FormatTable writes a human-readable ranking grouped by tier, with the
// score breakdown and the whitelist hits that produced it.
func FormatTable(w io.Writer, ranked []types.RankedCandidate) error {
	if len(ranked) == 0 {
		_, err := fmt.Fprintln(w, "No candidates to rank.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	lastTier := types.Tier("")
	for i, rc := range ranked {
		if rc.Tier != lastTier {
			if lastTier != "" {
				fmt.Fprintln(tw)
			}
			fmt.Fprintf(tw, "== %s ==\n", rc.Tier)
			lastTier = rc.Tier
		}
		fmt.Fprintf(tw, "%3d.\t%.3f\t%s\n", i+1, rc.Breakdown.Final, rc.Title)
		fmt.Fprintf(tw, "\t\t%s\n", detailLine(rc))
		if reasons := reasonLine(rc.Breakdown); reasons != "" {
			fmt.Fprintf(tw, "\t\t%s\n", reasons)
		}
	}
	return tw.Flush()
}

func detailLine(rc types.RankedCandidate) string {
	parts := []string{fmt.Sprintf("sources: %s", strings.Join(rc.Sources, ", "))}
	if rc.DOI != "" {
		parts = append(parts, "doi: "+rc.DOI)
	}
	if !rc.Published.IsZero() {
		parts = append(parts, "published: "+rc.Published.Format("2006-01-02"))
	}
	b := rc.Breakdown
	parts = append(parts, fmt.Sprintf("sim %.2f rec %.2f cit %.2f alt %.2f bon %.2f",
		b.Similarity, b.Recency, b.Citations, b.Altmetric, b.Bonus))
	return strings.Join(parts, " | ")
}

func reasonLine(b types.ScoreBreakdown) string {
	var parts []string
	if len(b.MatchedAuthors) > 0 {
		parts = append(parts, "authors: "+strings.Join(b.MatchedAuthors, ", "))
	}
	if len(b.MatchedVenues) > 0 {
		parts = append(parts, "venue: "+strings.Join(b.MatchedVenues, ", "))
	}
	if len(b.MatchedTerms) > 0 {
		parts = append(parts, "terms: "+strings.Join(b.MatchedTerms, ", "))
	}
	if len(parts) == 0 {
		return ""
	}
	return "matched " + strings.Join(parts, "; ")
}

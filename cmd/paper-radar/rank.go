// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-radar/internal/embed"
	"github.com/pdiddy/paper-radar/internal/fetch"
	"github.com/pdiddy/paper-radar/internal/resolve"
	"github.com/pdiddy/paper-radar/internal/score"
	"github.com/pdiddy/paper-radar/pkg/types"
)

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Fetch recent publications and rank them against the profile",
	Long: `Rank fetches recent publications from the enabled sources, merges
records that describe the same work, scores each against the current
interest profile, and prints a tiered ranking with per-factor reasoning.

Fetched batches are cached for a few hours so repeated runs do not hit
every source again; --no-cache forces a fresh fetch.`,
	RunE: runRank,
}

func init() {
	rankCmd.Flags().Bool("json", false, "output the ranking as JSON")
	rankCmd.Flags().Bool("no-cache", false, "bypass the candidate batch cache")
	rankCmd.Flags().Bool("all", false, "include the ignore tier in the output")

	rootCmd.AddCommand(rankCmd)
}

func runRank(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()

	prof, ok, err := st.Profile(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no interest profile yet: run `paper-radar sync` and `paper-radar profile` first")
	}
	scorer, err := score.New(prof, cfg.Scoring)
	if err != nil {
		return err
	}

	out, err := fetchBatch(ctx, cfg, cmd)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Resolving %d candidates...\n", len(out.Candidates))
	canonical := resolve.New(cfg.Resolver).Resolve(out.Candidates)

	if cfg.Sources.Altmetric.Enabled {
		alt := &fetch.AltmetricClient{
			Client:    newHTTPClient(cfg.Sources.HTTPConfig),
			APIKey:    cfg.Sources.Altmetric.APIKey,
			UserAgent: cfg.Sources.UserAgent,
		}
		alt.Enrich(ctx, canonical, os.Stderr)
	}

	vectors, err := embedCandidates(ctx, cfg, canonical)
	if err != nil {
		return err
	}

	ranked := scorer.Rank(canonical, vectors, time.Now())
	if all, _ := cmd.Flags().GetBool("all"); !all {
		ranked = dropIgnored(ranked)
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return score.FormatJSON(os.Stdout, ranked)
	}
	return score.FormatTable(os.Stdout, ranked)
}

// fetchBatch serves each enabled source from the candidate cache while
// its last fetch is fresh, fans out to the stale or missing ones, and
// caches the sources that succeeded. Failed sources are not cached, so
// they are retried on the next run.
func fetchBatch(ctx context.Context, cfg types.RadarConfig, cmd *cobra.Command) (fetch.Output, error) {
	noCache, _ := cmd.Flags().GetBool("no-cache")

	sources := fetch.Sources(cfg.Sources)
	if len(sources) == 0 {
		return fetch.Output{}, fmt.Errorf("no candidate sources enabled")
	}

	cache, err := fetch.OpenCache(cfg.Store.DataDir, cfg.Sources.CacheTTL)
	if err != nil {
		return fetch.Output{}, err
	}
	defer cache.Close()

	out := fetch.Output{FetchedAt: time.Now().UTC()}
	pending := sources
	if !noCache {
		pending = nil
		for _, src := range sources {
			cached, fetchedAt, found, err := cache.Source(src.Name())
			if err != nil {
				return fetch.Output{}, err
			}
			if !found {
				pending = append(pending, src)
				continue
			}
			fmt.Fprintf(os.Stderr, "Using %d cached candidates from %s (fetched %s).\n",
				len(cached), src.Name(), fetchedAt.Format(time.RFC3339))
			out.Candidates = append(out.Candidates, cached...)
		}
	}
	if len(pending) == 0 {
		return out, nil
	}

	window := fetch.WindowEnding(time.Now().UTC(), cfg.Sources.WindowDays)
	fresh, err := fetch.FetchAll(ctx, pending, window, os.Stderr)
	if err != nil {
		return fetch.Output{}, err
	}
	out.Candidates = append(out.Candidates, fresh.Candidates...)
	out.SourceErrors = fresh.SourceErrors

	names := make([]string, len(pending))
	for i, src := range pending {
		names[i] = src.Name()
	}
	if err := cache.StoreFetched(names, fresh); err != nil {
		return fetch.Output{}, err
	}
	return out, nil
}

// embedCandidates embeds the canonical candidates' text, index-aligned
// with the input slice.
func embedCandidates(ctx context.Context, cfg types.RadarConfig, canonical []types.CanonicalCandidate) ([][]float32, error) {
	if len(canonical) == 0 {
		return nil, nil
	}
	texts := make([]string, len(canonical))
	for i, c := range canonical {
		texts[i] = c.EmbeddingText()
	}
	fmt.Fprintf(os.Stderr, "Embedding %d candidates...\n", len(texts))
	res, err := embed.NewClient(cfg.Embedding).Embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	return res.Vectors, nil
}

func dropIgnored(ranked []types.RankedCandidate) []types.RankedCandidate {
	kept := ranked[:0]
	for _, rc := range ranked {
		if rc.Tier != types.TierIgnore {
			kept = append(kept, rc)
		}
	}
	return kept
}

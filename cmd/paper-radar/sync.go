// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-radar/internal/embed"
	"github.com/pdiddy/paper-radar/internal/librarysync"
	"github.com/pdiddy/paper-radar/internal/profile"
	"github.com/pdiddy/paper-radar/internal/store"
	"github.com/pdiddy/paper-radar/pkg/types"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Mirror the Zotero library into the local profile store",
	Long: `Sync pulls the Zotero library through its versioned API and mirrors it
into the local store. The first run (or --full) walks the whole library;
later runs apply only the changes and deletions since the stored cursor.
Items whose bibliographic content changed are re-embedded, and an existing
interest profile is recentered over the updated library afterwards.`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().Bool("full", false, "resynchronize the whole library from scratch")

	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Library.UserID == "" {
		return fmt.Errorf("library.user_id is not configured")
	}
	if cfg.Library.APIKey == "" {
		return fmt.Errorf("no Zotero API key: set library.api_key or .secrets/zotero-api-key")
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	source := librarysync.NewZoteroSource(cfg.Library)
	embedder := embed.NewClient(cfg.Embedding)
	engine := librarysync.New(st, source, embedder, cfg.Profile)
	engine.Progress = embeddingProgress()

	ctx := cmd.Context()
	full, _ := cmd.Flags().GetBool("full")

	version, _, err := st.Cursor(ctx)
	if err != nil {
		return err
	}

	var summary librarysync.Summary
	if full || version == 0 {
		fmt.Fprintln(os.Stdout, "Running full library sync...")
		summary, err = engine.FullSync(ctx, os.Stdout)
	} else {
		summary, err = engine.IncrementalSync(ctx, os.Stdout)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout,
		"Sync complete at library version %d: %d added, %d updated, %d removed, %d unchanged, %d skipped, %d embedded (%d flagged).\n",
		summary.Version, summary.Added, summary.Updated, summary.Removed,
		summary.Unchanged, summary.Skipped, summary.Embedded, summary.Flagged)

	return refreshProfile(ctx, st, cfg, os.Stdout)
}

// refreshProfile recenters the interest profile over the freshly synced
// library. Clusters are left untouched; without an existing profile it
// only prints a hint, leaving the first build to `paper-radar profile`.
func refreshProfile(ctx context.Context, st *store.Store, cfg types.RadarConfig, w io.Writer) error {
	_, ok, err := st.Profile(ctx)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(w, "No interest profile yet: run `paper-radar profile` to build one.")
		return nil
	}

	dim := cfg.Embedding.Dimension
	if dim <= 0 {
		dim = 384
	}
	p, err := profile.NewBuilder(st, cfg.Profile, dim).Update(ctx, w)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Interest profile recentered at library version %d.\n", p.LibraryVersion)
	return nil
}

// embeddingProgress renders a progress bar over embedding batches. The
// total is only known once the sync engine has collected the batch, so
// the bar is created on first call.
func embeddingProgress() func(done, total int) {
	var bar *progressbar.ProgressBar
	return func(done, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetDescription("Embedding"),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionClearOnFinish(),
			)
		}
		_ = bar.Set(done)
	}
}

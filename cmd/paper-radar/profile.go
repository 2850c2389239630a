// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-radar/internal/profile"
	"github.com/pdiddy/paper-radar/pkg/types"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Build the interest profile from the synced library",
	Long: `Profile clusters the library embeddings into sub-topic centers and
derives the interest center, frequency tables, and author/venue whitelists.
By default it runs a full rebuild; --update recenters the profile without
reclustering, which is cheaper after small library changes.`,
	RunE: runProfile,
}

func init() {
	profileCmd.Flags().Bool("update", false, "recenter without reclustering")
	profileCmd.Flags().Bool("export", false, "also write profile.yaml to the data directory")

	rootCmd.AddCommand(profileCmd)
}

func runProfile(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	dim := cfg.Embedding.Dimension
	if dim <= 0 {
		dim = 384
	}
	builder := profile.NewBuilder(st, cfg.Profile, dim)

	ctx := cmd.Context()
	update, _ := cmd.Flags().GetBool("update")

	var p types.InterestProfile
	if update {
		p, err = builder.Update(ctx, os.Stdout)
	} else {
		p, err = builder.Rebuild(ctx, os.Stdout)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout,
		"Profile built from %d items at library version %d: %d clusters, %d whitelisted authors, %d whitelisted venues.\n",
		p.ItemCount, p.LibraryVersion, len(p.Clusters), len(p.AuthorWhitelist), len(p.VenueWhitelist))

	if export, _ := cmd.Flags().GetBool("export"); export {
		path, err := builder.ExportYAML(p)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Profile exported to %s.\n", path)
	}
	return nil
}

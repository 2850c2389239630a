//go:build mage

package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// run executes the built CLI with the given arguments.
func run(args ...string) error {
	bin := filepath.Join(binDir, binName)
	if _, err := os.Stat(bin); err != nil {
		return fmt.Errorf("%s not found, run `mage build` first", bin)
	}
	cmd := exec.Command(bin, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// Sync mirrors the Zotero library into the local profile store.
func Sync() error {
	return run("sync")
}

// Profile rebuilds the interest profile from the synced library.
func Profile() error {
	return run("profile")
}

// Rank fetches recent publications and ranks them against the profile.
func Rank() error {
	return run("rank")
}

// Radar runs the whole pipeline: sync, profile, rank.
func Radar() error {
	for _, step := range []func() error{Sync, Profile, Rank} {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

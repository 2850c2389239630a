// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch pulls recent publication candidates from external
// sources. Each source implements the Source interface per the Strategy
// pattern; FetchAll fans out to all of them concurrently and a failing
// source degrades to a warning instead of aborting the run.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pdiddy/paper-radar/pkg/types"
)

// Window is the publication window candidates must fall into.
type Window struct {
	From time.Time
	To   time.Time
}

// WindowEnding returns the window of the configured length ending at now.
func WindowEnding(now time.Time, days int) Window {
	if days <= 0 {
		days = 30
	}
	return Window{From: now.AddDate(0, 0, -days), To: now}
}

// Contains reports whether t falls inside the window. Zero times pass:
// a source that reports no date cannot be filtered here.
func (w Window) Contains(t time.Time) bool {
	if t.IsZero() {
		return true
	}
	return !t.Before(w.From) && !t.After(w.To)
}

// Source fetches candidates from one external API.
type Source interface {
	Name() string
	Fetch(ctx context.Context, window Window) ([]types.Candidate, error)
}

// Output holds the combined fetch results and per-source failures.
type Output struct {
	// FetchedAt is when the batch was fetched, used for cache expiry.
	FetchedAt time.Time `json:"fetched_at"`

	Candidates []types.Candidate `json:"candidates"`

	// SourceErrors records sources that failed this run, as "name: error".
	SourceErrors []string `json:"source_errors,omitempty"`
}

// Failed reports whether the named source failed in this output.
func (o Output) Failed(name string) bool {
	for _, e := range o.SourceErrors {
		if strings.HasPrefix(e, name+":") {
			return true
		}
	}
	return false
}

// Sources assembles the enabled source adapters from config.
func Sources(cfg types.SourcesConfig) []Source {
	client := newClient(cfg.HTTPConfig)

	var sources []Source
	if cfg.Arxiv.Enabled {
		sources = append(sources, &ArxivSource{Client: client, Categories: cfg.Arxiv.Categories, UserAgent: cfg.UserAgent})
	}
	if cfg.OpenAlex.Enabled {
		sources = append(sources, &OpenAlexSource{Client: client, Mailto: cfg.OpenAlex.Mailto, UserAgent: cfg.UserAgent})
	}
	if cfg.Crossref.Enabled {
		sources = append(sources, &CrossrefSource{Client: client, Mailto: cfg.Crossref.Mailto, UserAgent: cfg.UserAgent})
	}
	if cfg.Biorxiv.Enabled {
		sources = append(sources, &BiorxivSource{Client: client, Server: "biorxiv", UserAgent: cfg.UserAgent})
	}
	if cfg.Medrxiv.Enabled {
		sources = append(sources, &BiorxivSource{Client: client, Server: "medrxiv", UserAgent: cfg.UserAgent})
	}
	return sources
}

func newClient(cfg types.HTTPConfig) *http.Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// FetchAll queries every source concurrently. A source error is recorded
// and reported on w; the remaining sources still contribute.
func FetchAll(ctx context.Context, sources []Source, window Window, w io.Writer) (Output, error) {
	if len(sources) == 0 {
		return Output{}, fmt.Errorf("no candidate sources enabled")
	}

	type sourceResult struct {
		name       string
		candidates []types.Candidate
		err        error
	}

	ch := make(chan sourceResult, len(sources))
	var wg sync.WaitGroup
	for _, src := range sources {
		wg.Add(1)
		go func(src Source) {
			defer wg.Done()
			candidates, err := src.Fetch(ctx, window)
			ch <- sourceResult{name: src.Name(), candidates: candidates, err: err}
		}(src)
	}

	go func() {
		wg.Wait()
		close(ch)
	}()

	out := Output{FetchedAt: time.Now().UTC()}
	for sr := range ch {
		if sr.err != nil {
			out.SourceErrors = append(out.SourceErrors, fmt.Sprintf("%s: %v", sr.name, sr.err))
			fmt.Fprintf(w, "warning: source %s failed: %v\n", sr.name, sr.err)
			continue
		}
		for _, c := range sr.candidates {
			if c.Title == "" || !window.Contains(c.Published) {
				continue
			}
			out.Candidates = append(out.Candidates, c)
		}
		fmt.Fprintf(w, "Fetched %d candidates from %s.\n", len(sr.candidates), sr.name)
	}
	return out, nil
}

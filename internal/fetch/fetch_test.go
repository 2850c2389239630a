// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-radar/pkg/types"
)

var fetchTestNow = time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

type fakeFetchSource struct {
	name       string
	candidates []types.Candidate
	err        error
}

func (f *fakeFetchSource) Name() string { return f.name }

func (f *fakeFetchSource) Fetch(context.Context, Window) ([]types.Candidate, error) {
	return f.candidates, f.err
}

func TestFetchAllCombinesSources(t *testing.T) {
	window := WindowEnding(fetchTestNow, 30)
	sources := []Source{
		&fakeFetchSource{name: "one", candidates: []types.Candidate{
			{Source: "one", Title: "A", Published: fetchTestNow.AddDate(0, 0, -2)},
		}},
		&fakeFetchSource{name: "two", candidates: []types.Candidate{
			{Source: "two", Title: "B", Published: fetchTestNow.AddDate(0, 0, -5)},
		}},
	}

	var buf strings.Builder
	out, err := FetchAll(context.Background(), sources, window, &buf)
	require.NoError(t, err)
	assert.Len(t, out.Candidates, 2)
	assert.Empty(t, out.SourceErrors)
	assert.False(t, out.FetchedAt.IsZero())
}

func TestFetchAllRecordsSourceFailure(t *testing.T) {
	window := WindowEnding(fetchTestNow, 30)
	sources := []Source{
		&fakeFetchSource{name: "good", candidates: []types.Candidate{
			{Source: "good", Title: "A"},
		}},
		&fakeFetchSource{name: "bad", err: assert.AnError},
	}

	var buf strings.Builder
	out, err := FetchAll(context.Background(), sources, window, &buf)
	require.NoError(t, err)
	assert.Len(t, out.Candidates, 1)
	require.Len(t, out.SourceErrors, 1)
	assert.Contains(t, out.SourceErrors[0], "bad:")
	assert.Contains(t, buf.String(), "warning: source bad failed")
}

func TestFetchAllFiltersWindowAndUntitled(t *testing.T) {
	window := WindowEnding(fetchTestNow, 30)
	sources := []Source{
		&fakeFetchSource{name: "one", candidates: []types.Candidate{
			{Source: "one", Title: "Fresh", Published: fetchTestNow.AddDate(0, 0, -1)},
			{Source: "one", Title: "Ancient", Published: fetchTestNow.AddDate(-1, 0, 0)},
			{Source: "one", Title: "Undated"},
			{Source: "one", Title: ""},
		}},
	}

	out, err := FetchAll(context.Background(), sources, window, &strings.Builder{})
	require.NoError(t, err)
	require.Len(t, out.Candidates, 2)
	assert.Equal(t, "Fresh", out.Candidates[0].Title)
	assert.Equal(t, "Undated", out.Candidates[1].Title)
}

func TestFetchAllNoSources(t *testing.T) {
	_, err := FetchAll(context.Background(), nil, WindowEnding(fetchTestNow, 30), &strings.Builder{})
	assert.Error(t, err)
}

func TestSourcesAssembly(t *testing.T) {
	cfg := types.SourcesConfig{
		Arxiv:    types.ArxivSourceConfig{Enabled: true, Categories: []string{"cs.LG"}},
		OpenAlex: types.SourceToggle{Enabled: true, Mailto: "me@example.org"},
		Medrxiv:  types.SourceToggle{Enabled: true},
	}

	sources := Sources(cfg)
	require.Len(t, sources, 3)
	names := make([]string, 0, len(sources))
	for _, s := range sources {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{"arxiv", "openalex", "medrxiv"}, names)
}

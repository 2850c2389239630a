// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBiorxivFetchPages(t *testing.T) {
	pages := map[string]string{
		"0": `{"messages": [{"total": 3}], "collection": [
			{"doi": "10.1101/aaa", "title": "Folding A", "authors": "Doe, J.; Chen, W.", "date": "2026-07-10", "abstract": "A."},
			{"doi": "10.1101/bbb", "title": "Folding B", "date": "2026-07-11"}
		]}`,
		"2": `{"messages": [{"total": 3}], "collection": [
			{"doi": "10.1101/ccc", "title": "Folding C", "date": "2026-07-12"}
		]}`,
	}
	var paths []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		parts := strings.Split(r.URL.Path, "/")
		fmt.Fprint(w, pages[parts[len(parts)-1]])
	}))
	t.Cleanup(ts.Close)

	old := biorxivAPIBase
	biorxivAPIBase = ts.URL
	t.Cleanup(func() { biorxivAPIBase = old })

	src := &BiorxivSource{Client: ts.Client(), Server: "biorxiv"}
	window := Window{
		From: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}

	got, err := src.Fetch(context.Background(), window)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Len(t, paths, 2)
	assert.Equal(t, "/details/biorxiv/2026-07-01/2026-08-01/0", paths[0])
	assert.Equal(t, "/details/biorxiv/2026-07-01/2026-08-01/2", paths[1])

	c := got[0]
	assert.Equal(t, "biorxiv", c.Source)
	assert.Equal(t, "10.1101/aaa", c.DOI)
	assert.Equal(t, []string{"Doe, J.", "Chen, W."}, c.Authors)
	assert.Equal(t, "https://www.biorxiv.org/content/10.1101/aaa", c.URL)
	assert.Equal(t, time.Date(2026, 7, 10, 0, 0, 0, 0, time.UTC), c.Published)
}

func TestMedrxivURL(t *testing.T) {
	c := biorxivEntry{DOI: "10.1101/xyz", Title: "X"}.toCandidate("medrxiv")
	assert.Equal(t, "medrxiv", c.Source)
	assert.Equal(t, "https://www.medrxiv.org/content/10.1101/xyz", c.URL)
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const arxivFeedBody = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/2401.01234v2</id>
    <title>Graph Spectra
      at Scale</title>
    <summary>We study eigenvalues.</summary>
    <published>2026-07-20T12:00:00Z</published>
    <author><name>Ada Lovelace</name></author>
    <author><name>Kurt Godel</name></author>
  </entry>
  <entry>
    <id>http://example.org/not-an-arxiv-id</id>
    <title>Broken</title>
  </entry>
</feed>`

func TestArxivFetch(t *testing.T) {
	var gotQuery string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		fmt.Fprint(w, arxivFeedBody)
	}))
	t.Cleanup(ts.Close)

	old := arxivAPIBase
	arxivAPIBase = ts.URL
	t.Cleanup(func() { arxivAPIBase = old })

	src := &ArxivSource{Client: ts.Client(), Categories: []string{"cs.LG", "stat.ML"}}
	got, err := src.Fetch(context.Background(), Window{})
	require.NoError(t, err)

	assert.Contains(t, gotQuery, "cat:cs.LG+OR+cat:stat.ML")
	require.Len(t, got, 1)
	c := got[0]
	assert.Equal(t, "arxiv", c.Source)
	assert.Equal(t, "2401.01234v2", c.NativeID)
	assert.Equal(t, "Graph Spectra at Scale", c.Title)
	assert.Equal(t, []string{"Ada Lovelace", "Kurt Godel"}, c.Authors)
	assert.Equal(t, "https://arxiv.org/abs/2401.01234v2", c.URL)
	assert.Equal(t, time.Date(2026, 7, 20, 12, 0, 0, 0, time.UTC), c.Published)
	assert.Equal(t, -1, c.Citations)
}

func TestArxivNoCategories(t *testing.T) {
	src := &ArxivSource{Client: http.DefaultClient}
	_, err := src.Fetch(context.Background(), Window{})
	assert.Error(t, err)
}

func TestExtractArxivID(t *testing.T) {
	assert.Equal(t, "2301.07041v1", extractArxivID("http://arxiv.org/abs/2301.07041v1"))
	assert.Equal(t, "", extractArxivID("http://example.org/x"))
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pdiddy/paper-radar/pkg/types"
)

func TestAltmetricEnrich(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.URL.Query().Get("key"))
		if strings.Contains(r.URL.Path, "10.1000/known") {
			fmt.Fprint(w, `{"score": 42.5}`)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(ts.Close)

	old := altmetricAPIBase
	altmetricAPIBase = ts.URL
	t.Cleanup(func() { altmetricAPIBase = old })

	candidates := []types.CanonicalCandidate{
		{Candidate: types.Candidate{DOI: "10.1000/known", Altmetric: -1}},
		{Candidate: types.Candidate{DOI: "10.1000/unknown", Altmetric: -1}},
		{Candidate: types.Candidate{Altmetric: -1}},
	}

	a := &AltmetricClient{Client: ts.Client(), APIKey: "secret"}
	var buf strings.Builder
	a.Enrich(context.Background(), candidates, &buf)

	assert.Equal(t, 42.5, candidates[0].Altmetric)
	assert.Equal(t, -1.0, candidates[1].Altmetric)
	assert.Equal(t, -1.0, candidates[2].Altmetric)
	assert.Empty(t, buf.String())
}

func TestAltmetricLookupFailureIsNotFatal(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	t.Cleanup(ts.Close)

	old := altmetricAPIBase
	altmetricAPIBase = ts.URL
	t.Cleanup(func() { altmetricAPIBase = old })

	candidates := []types.CanonicalCandidate{
		{Candidate: types.Candidate{DOI: "10.1000/abc", Altmetric: -1}},
	}

	a := &AltmetricClient{Client: ts.Client()}
	var buf strings.Builder
	a.Enrich(context.Background(), candidates, &buf)

	assert.Equal(t, -1.0, candidates[0].Altmetric)
	assert.Contains(t, buf.String(), "1 Altmetric lookups failed")
}

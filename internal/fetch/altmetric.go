// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pdiddy/paper-radar/internal/httputil"
	"github.com/pdiddy/paper-radar/pkg/types"
)

// altmetricAPIBase is the Altmetric details API root. Declared as a var
// so tests can substitute an httptest server.
var altmetricAPIBase = "https://api.altmetric.com/v1"

// AltmetricClient looks up attention scores by DOI.
type AltmetricClient struct {
	Client    *http.Client
	APIKey    string
	UserAgent string
}

// Enrich fills in the Altmetric score for every candidate that carries a
// DOI. A work unknown to Altmetric keeps its absent (-1) score; a lookup
// failure is reported on w and skipped, never fatal.
func (a *AltmetricClient) Enrich(ctx context.Context, candidates []types.CanonicalCandidate, w io.Writer) {
	failed := 0
	for i := range candidates {
		if candidates[i].DOI == "" {
			continue
		}
		score, found, err := a.lookup(ctx, candidates[i].DOI)
		if err != nil {
			failed++
			continue
		}
		if found {
			candidates[i].Altmetric = score
		}
	}
	if failed > 0 {
		fmt.Fprintf(w, "warning: %d Altmetric lookups failed\n", failed)
	}
}

func (a *AltmetricClient) lookup(ctx context.Context, doi string) (float64, bool, error) {
	url := fmt.Sprintf("%s/doi/%s", altmetricAPIBase, doi)
	if a.APIKey != "" {
		url += "?key=" + a.APIKey
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, false, fmt.Errorf("creating request: %w", err)
	}
	if a.UserAgent != "" {
		req.Header.Set("User-Agent", a.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, a.Client, req, 0)
	if err != nil {
		return 0, false, fmt.Errorf("Altmetric API request: %w", err)
	}
	defer resp.Body.Close()

	// 404 means the DOI has no attention data, which is common.
	if resp.StatusCode == http.StatusNotFound {
		return 0, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return 0, false, fmt.Errorf("Altmetric API returned HTTP %d", resp.StatusCode)
	}

	var payload struct {
		Score float64 `json:"score"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, false, fmt.Errorf("parsing Altmetric response: %w", err)
	}
	return payload.Score, true, nil
}

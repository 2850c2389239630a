// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pdiddy/paper-radar/internal/httputil"
	"github.com/pdiddy/paper-radar/pkg/types"
)

// biorxivAPIBase is the bioRxiv/medRxiv details API root. Declared as a
// var so tests can substitute an httptest server.
var biorxivAPIBase = "https://api.biorxiv.org"

const biorxivMaxPages = 10

// BiorxivSource lists preprints from the bioRxiv details endpoint, which
// also serves medRxiv under a different server name.
type BiorxivSource struct {
	Client    *http.Client
	Server    string // "biorxiv" or "medrxiv"
	UserAgent string
}

// Name returns the source identifier.
func (s *BiorxivSource) Name() string { return s.Server }

// Fetch pages through preprints posted inside the window. The details
// endpoint pages by result offset and reports the total in its status
// message.
func (s *BiorxivSource) Fetch(ctx context.Context, window Window) ([]types.Candidate, error) {
	var candidates []types.Candidate
	offset := 0
	for page := 0; page < biorxivMaxPages; page++ {
		url := fmt.Sprintf("%s/details/%s/%s/%s/%d",
			biorxivAPIBase, s.Server,
			window.From.Format("2006-01-02"), window.To.Format("2006-01-02"), offset)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		if s.UserAgent != "" {
			req.Header.Set("User-Agent", s.UserAgent)
		}

		resp, err := httputil.DoWithRetry(ctx, s.Client, req, 0)
		if err != nil {
			return nil, fmt.Errorf("%s API request: %w", s.Server, err)
		}

		var payload biorxivResponse
		decodeErr := json.NewDecoder(resp.Body).Decode(&payload)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%s API returned HTTP %d", s.Server, resp.StatusCode)
		}
		if decodeErr != nil {
			return nil, fmt.Errorf("parsing %s response: %w", s.Server, decodeErr)
		}

		for _, entry := range payload.Collection {
			if entry.Title == "" {
				continue
			}
			candidates = append(candidates, entry.toCandidate(s.Server))
		}

		count := len(payload.Collection)
		offset += count
		if count == 0 || len(payload.Messages) == 0 || offset >= payload.Messages[0].Total {
			break
		}
	}
	return candidates, nil
}

// bioRxiv API JSON structures.
type biorxivResponse struct {
	Messages []struct {
		Total int `json:"total"`
	} `json:"messages"`
	Collection []biorxivEntry `json:"collection"`
}

type biorxivEntry struct {
	DOI      string `json:"doi"`
	Title    string `json:"title"`
	Authors  string `json:"authors"`
	Date     string `json:"date"`
	Abstract string `json:"abstract"`
	Version  string `json:"version"`
}

func (e biorxivEntry) toCandidate(server string) types.Candidate {
	c := types.Candidate{
		Source:    server,
		NativeID:  e.DOI,
		Title:     e.Title,
		Abstract:  e.Abstract,
		DOI:       e.DOI,
		URL:       "https://www.biorxiv.org/content/" + e.DOI,
		Citations: -1,
		Altmetric: -1,
	}
	if server == "medrxiv" {
		c.URL = "https://www.medrxiv.org/content/" + e.DOI
	}
	for _, name := range strings.Split(e.Authors, ";") {
		if name = strings.TrimSpace(name); name != "" {
			c.Authors = append(c.Authors, name)
		}
	}
	if t, err := time.Parse("2006-01-02", e.Date); err == nil {
		c.Published = t
	}
	return c
}

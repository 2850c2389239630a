// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/pdiddy/paper-radar/internal/httputil"
	"github.com/pdiddy/paper-radar/pkg/types"
)

// openAlexAPIBase is the OpenAlex API root. Declared as a var so tests
// can substitute an httptest server.
var openAlexAPIBase = "https://api.openalex.org"

const (
	openAlexPageSize = 200
	openAlexMaxPages = 5
)

// OpenAlexSource lists recent works from the OpenAlex works endpoint.
type OpenAlexSource struct {
	Client    *http.Client
	Mailto    string
	UserAgent string
}

// Name returns the source identifier.
func (s *OpenAlexSource) Name() string { return "openalex" }

// Fetch pages through works published inside the window using cursor
// paging, bounded to a few pages per run.
func (s *OpenAlexSource) Fetch(ctx context.Context, window Window) ([]types.Candidate, error) {
	filter := fmt.Sprintf("from_publication_date:%s,to_publication_date:%s",
		window.From.Format("2006-01-02"), window.To.Format("2006-01-02"))

	var candidates []types.Candidate
	cursor := "*"
	for page := 0; page < openAlexMaxPages && cursor != ""; page++ {
		q := url.Values{}
		q.Set("filter", filter)
		q.Set("per-page", fmt.Sprint(openAlexPageSize))
		q.Set("cursor", cursor)
		q.Set("sort", "publication_date:desc")
		if s.Mailto != "" {
			q.Set("mailto", s.Mailto)
		}

		var resp openAlexResponse
		if err := s.getJSON(ctx, openAlexAPIBase+"/works?"+q.Encode(), &resp); err != nil {
			return nil, err
		}

		for _, w := range resp.Results {
			if w.Title == "" {
				continue
			}
			candidates = append(candidates, w.toCandidate())
		}
		cursor = resp.Meta.NextCursor
		if len(resp.Results) < openAlexPageSize {
			break
		}
	}
	return candidates, nil
}

func (s *OpenAlexSource) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if s.UserAgent != "" {
		req.Header.Set("User-Agent", s.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, s.Client, req, 0)
	if err != nil {
		return fmt.Errorf("OpenAlex API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("OpenAlex API returned HTTP %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parsing OpenAlex response: %w", err)
	}
	return nil
}

// OpenAlex API JSON structures.
type openAlexResponse struct {
	Meta struct {
		NextCursor string `json:"next_cursor"`
	} `json:"meta"`
	Results []openAlexWork `json:"results"`
}

type openAlexWork struct {
	ID                      string           `json:"id"`
	DOI                     string           `json:"doi"`
	Title                   string           `json:"title"`
	PublicationDate         string           `json:"publication_date"`
	CitedByCount            int              `json:"cited_by_count"`
	AbstractInvertedIndex   map[string][]int `json:"abstract_inverted_index"`
	Authorships             []struct {
		Author struct {
			DisplayName string `json:"display_name"`
		} `json:"author"`
	} `json:"authorships"`
	PrimaryLocation struct {
		LandingPageURL string `json:"landing_page_url"`
		Source         struct {
			DisplayName string `json:"display_name"`
		} `json:"source"`
	} `json:"primary_location"`
}

func (w openAlexWork) toCandidate() types.Candidate {
	c := types.Candidate{
		Source:    "openalex",
		NativeID:  strings.TrimPrefix(w.ID, "https://openalex.org/"),
		Title:     w.Title,
		Abstract:  reconstructAbstract(w.AbstractInvertedIndex),
		Venue:     w.PrimaryLocation.Source.DisplayName,
		DOI:       w.DOI,
		URL:       w.PrimaryLocation.LandingPageURL,
		Citations: w.CitedByCount,
		Altmetric: -1,
	}
	for _, a := range w.Authorships {
		if a.Author.DisplayName != "" {
			c.Authors = append(c.Authors, a.Author.DisplayName)
		}
	}
	if t, err := time.Parse("2006-01-02", w.PublicationDate); err == nil {
		c.Published = t
	}
	return c
}

// reconstructAbstract rebuilds the abstract text from OpenAlex's inverted
// index (word -> positions).
func reconstructAbstract(index map[string][]int) string {
	if len(index) == 0 {
		return ""
	}
	type posWord struct {
		pos  int
		word string
	}
	var words []posWord
	for word, positions := range index {
		for _, p := range positions {
			words = append(words, posWord{pos: p, word: word})
		}
	}
	sort.Slice(words, func(i, j int) bool { return words[i].pos < words[j].pos })

	parts := make([]string, 0, len(words))
	for _, w := range words {
		parts = append(parts, w.word)
	}
	return strings.Join(parts, " ")
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/pdiddy/paper-radar/internal/httputil"
	"github.com/pdiddy/paper-radar/pkg/types"
)

// crossrefAPIBase is the Crossref API root. Declared as a var so tests
// can substitute an httptest server.
var crossrefAPIBase = "https://api.crossref.org"

const crossrefRows = 500

// CrossrefSource lists works recently indexed by Crossref.
type CrossrefSource struct {
	Client    *http.Client
	Mailto    string
	UserAgent string
}

// Name returns the source identifier.
func (s *CrossrefSource) Name() string { return "crossref" }

// Fetch lists journal articles indexed inside the window, newest first.
func (s *CrossrefSource) Fetch(ctx context.Context, window Window) ([]types.Candidate, error) {
	q := url.Values{}
	q.Set("filter", fmt.Sprintf("type:journal-article,from-index-date:%s,until-index-date:%s",
		window.From.Format("2006-01-02"), window.To.Format("2006-01-02")))
	q.Set("rows", fmt.Sprint(crossrefRows))
	q.Set("sort", "indexed")
	q.Set("order", "desc")
	if s.Mailto != "" {
		q.Set("mailto", s.Mailto)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		crossrefAPIBase+"/works?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if s.UserAgent != "" {
		req.Header.Set("User-Agent", s.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, s.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("Crossref API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Crossref API returned HTTP %d", resp.StatusCode)
	}

	var payload crossrefResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("parsing Crossref response: %w", err)
	}

	var candidates []types.Candidate
	for _, item := range payload.Message.Items {
		if len(item.Title) == 0 || item.Title[0] == "" {
			continue
		}
		candidates = append(candidates, item.toCandidate())
	}
	return candidates, nil
}

// Crossref API JSON structures.
type crossrefResponse struct {
	Message struct {
		Items []crossrefItem `json:"items"`
	} `json:"message"`
}

type crossrefItem struct {
	DOI            string   `json:"DOI"`
	Title          []string `json:"title"`
	Abstract       string   `json:"abstract"`
	ContainerTitle []string `json:"container-title"`
	URL            string   `json:"URL"`
	CitedByCount   int      `json:"is-referenced-by-count"`
	Author         []struct {
		Given  string `json:"given"`
		Family string `json:"family"`
		Name   string `json:"name"`
	} `json:"author"`
	Published struct {
		DateParts [][]int `json:"date-parts"`
	} `json:"published"`
}

func (item crossrefItem) toCandidate() types.Candidate {
	c := types.Candidate{
		Source:    "crossref",
		NativeID:  item.DOI,
		Title:     item.Title[0],
		Abstract:  stripJATS(item.Abstract),
		DOI:       item.DOI,
		URL:       item.URL,
		Citations: item.CitedByCount,
		Altmetric: -1,
	}
	if len(item.ContainerTitle) > 0 {
		c.Venue = item.ContainerTitle[0]
	}
	for _, a := range item.Author {
		name := strings.TrimSpace(strings.TrimSpace(a.Given) + " " + strings.TrimSpace(a.Family))
		if name == "" {
			name = strings.TrimSpace(a.Name)
		}
		if name != "" {
			c.Authors = append(c.Authors, name)
		}
	}
	c.Published = datePartsToTime(item.Published.DateParts)
	return c
}

// datePartsToTime converts Crossref's [[year, month, day]] form; missing
// month or day default to 1.
func datePartsToTime(parts [][]int) time.Time {
	if len(parts) == 0 || len(parts[0]) == 0 {
		return time.Time{}
	}
	p := parts[0]
	year, month, day := p[0], 1, 1
	if len(p) > 1 {
		month = p[1]
	}
	if len(p) > 2 {
		day = p[2]
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

var jatsTagPattern = regexp.MustCompile(`<[^>]+>`)

// stripJATS removes the JATS XML markup Crossref abstracts arrive in.
func stripJATS(abstract string) string {
	if abstract == "" {
		return ""
	}
	return strings.Join(strings.Fields(jatsTagPattern.ReplaceAllString(abstract, " ")), " ")
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package librarysync

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/paper-radar/internal/httputil"
	"github.com/pdiddy/paper-radar/pkg/types"
)

// zoteroAPIBase is the Zotero web API root. Declared as a var so tests can
// substitute an httptest server.
var zoteroAPIBase = "https://api.zotero.org"

// ZoteroSource implements Source against the Zotero web API v3.
type ZoteroSource struct {
	Client *http.Client
	Cfg    types.LibraryConfig
}

// NewZoteroSource builds a Zotero source from config.
func NewZoteroSource(cfg types.LibraryConfig) *ZoteroSource {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	return &ZoteroSource{
		Client: &http.Client{Timeout: timeout},
		Cfg:    cfg,
	}
}

// ListAllItems pages through the whole library.
func (z *ZoteroSource) ListAllItems(ctx context.Context) ([]types.LibraryItem, int, error) {
	return z.listItems(ctx, -1)
}

// ListChangedItems pages through items changed since the given version.
// A 304 response means nothing changed.
func (z *ZoteroSource) ListChangedItems(ctx context.Context, since int) ([]types.LibraryItem, int, error) {
	return z.listItems(ctx, since)
}

func (z *ZoteroSource) listItems(ctx context.Context, since int) ([]types.LibraryItem, int, error) {
	url := fmt.Sprintf("%s/users/%s/items?format=json&limit=%d&sort=dateAdded&direction=asc",
		zoteroAPIBase, z.Cfg.UserID, z.Cfg.PageSize)
	if since >= 0 {
		url += fmt.Sprintf("&since=%d", since)
	}

	var items []types.LibraryItem
	version := 0
	if since > 0 {
		version = since
	}

	for url != "" {
		page, pageVersion, next, err := z.fetchPage(ctx, url, since)
		if err != nil {
			return nil, 0, err
		}
		if pageVersion < 0 {
			// 304 Not Modified: the library is exactly at `since`.
			return nil, since, nil
		}
		if pageVersion > version {
			version = pageVersion
		}
		items = append(items, page...)
		url = next

		if url != "" && z.Cfg.PoliteDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			case <-time.After(z.Cfg.PoliteDelay):
			}
		}
	}
	return items, version, nil
}

func (z *ZoteroSource) fetchPage(ctx context.Context, url string, since int) ([]types.LibraryItem, int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, "", fmt.Errorf("creating request: %w", err)
	}
	z.setHeaders(req)
	if since >= 0 {
		req.Header.Set("If-Modified-Since-Version", strconv.Itoa(since))
	}

	resp, err := httputil.DoWithRetry(ctx, z.Client, req, 0)
	if err != nil {
		return nil, 0, "", fmt.Errorf("Zotero API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return nil, -1, "", nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, 0, "", fmt.Errorf("Zotero API returned HTTP %d", resp.StatusCode)
	}

	version, _ := strconv.Atoi(resp.Header.Get("Last-Modified-Version"))

	var raw []zoteroItem
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, 0, "", fmt.Errorf("parsing Zotero response: %w", err)
	}

	items := make([]types.LibraryItem, 0, len(raw))
	for _, r := range raw {
		items = append(items, r.toLibraryItem())
	}
	return items, version, parseNextLink(resp.Header.Get("Link")), nil
}

// ListDeletedKeys fetches item tombstones since the given version.
func (z *ZoteroSource) ListDeletedKeys(ctx context.Context, since int) ([]string, error) {
	if since <= 0 {
		return nil, nil
	}
	url := fmt.Sprintf("%s/users/%s/deleted?since=%d", zoteroAPIBase, z.Cfg.UserID, since)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	z.setHeaders(req)

	resp, err := httputil.DoWithRetry(ctx, z.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("Zotero deleted request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Zotero deleted endpoint returned HTTP %d", resp.StatusCode)
	}

	var payload struct {
		Items []string `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("parsing Zotero deleted response: %w", err)
	}
	return payload.Items, nil
}

func (z *ZoteroSource) setHeaders(req *http.Request) {
	req.Header.Set("Zotero-API-Version", "3")
	if z.Cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+z.Cfg.APIKey)
	}
	if z.Cfg.UserAgent != "" {
		req.Header.Set("User-Agent", z.Cfg.UserAgent)
	}
}

// parseNextLink extracts the rel="next" URL from a Link header.
func parseNextLink(header string) string {
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if !strings.Contains(part, `rel="next"`) {
			continue
		}
		urlPart := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		if strings.HasPrefix(urlPart, "<") && strings.HasSuffix(urlPart, ">") {
			return urlPart[1 : len(urlPart)-1]
		}
	}
	return ""
}

// Zotero API JSON structures.
type zoteroItem struct {
	Key     string     `json:"key"`
	Version int        `json:"version"`
	Data    zoteroData `json:"data"`
}

type zoteroData struct {
	Key              string       `json:"key"`
	Version          int          `json:"version"`
	Title            string       `json:"title"`
	AbstractNote     string       `json:"abstractNote"`
	Creators         []zoteroName `json:"creators"`
	PublicationTitle string       `json:"publicationTitle"`
	Date             string       `json:"date"`
	Tags             []zoteroTag  `json:"tags"`
	Collections      []string     `json:"collections"`
	DOI              string       `json:"DOI"`
	URL              string       `json:"url"`
}

type zoteroName struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Name      string `json:"name"`
}

type zoteroTag struct {
	Tag string `json:"tag"`
}

func (r zoteroItem) toLibraryItem() types.LibraryItem {
	d := r.Data
	key := d.Key
	if key == "" {
		key = r.Key
	}
	version := d.Version
	if version == 0 {
		version = r.Version
	}

	var authors []string
	for _, c := range d.Creators {
		name := strings.TrimSpace(strings.TrimSpace(c.FirstName) + " " + strings.TrimSpace(c.LastName))
		if name == "" {
			name = strings.TrimSpace(c.Name)
		}
		if name != "" {
			authors = append(authors, name)
		}
	}

	var tags []string
	for _, t := range d.Tags {
		if t.Tag != "" {
			tags = append(tags, t.Tag)
		}
	}

	return types.LibraryItem{
		Key:         key,
		Version:     version,
		Title:       d.Title,
		Abstract:    d.AbstractNote,
		Authors:     authors,
		Venue:       d.PublicationTitle,
		Year:        parseYear(d.Date),
		Tags:        tags,
		Collections: d.Collections,
		DOI:         d.DOI,
		URL:         d.URL,
	}
}

// parseYear pulls the first 4-digit run out of a free-form date string.
func parseYear(date string) int {
	run := 0
	for i, r := range date + " " {
		if r >= '0' && r <= '9' {
			run++
			continue
		}
		if run >= 4 {
			year, _ := strconv.Atoi(date[i-run : i-run+4])
			return year
		}
		run = 0
	}
	return 0
}

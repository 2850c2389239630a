// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package embed turns text into fixed-dimension unit vectors via an
// OpenAI-compatible embeddings API. Per-text failures degrade to a flagged
// zero vector so one bad record never aborts a batch.
package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/pdiddy/paper-radar/internal/httputil"
	"github.com/pdiddy/paper-radar/pkg/types"
)

// Embedder produces one vector per input text. Result vectors always have
// the configured dimension; texts that could not be embedded come back as
// zero vectors with the matching Flagged index set.
type Embedder interface {
	Embed(ctx context.Context, texts []string) (Result, error)
	Dimension() int
}

// Result holds a batch of vectors plus the indices that fell back to zero.
type Result struct {
	Vectors [][]float32
	Flagged []int
}

// Client calls an OpenAI-compatible /embeddings endpoint.
type Client struct {
	cfg    types.EmbeddingConfig
	client *http.Client
}

// NewClient builds an embedding client from config. Dimension and batch
// size fall back to 384 and 32.
func NewClient(cfg types.EmbeddingConfig) *Client {
	if cfg.Dimension <= 0 {
		cfg.Dimension = 384
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

// Dimension returns the configured vector length.
func (c *Client) Dimension() int { return c.cfg.Dimension }

type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Embed encodes texts in configured-size batches. Empty texts are flagged
// without an API call. A transport or API error fails the whole call;
// a short or missing vector for one text flags that text only.
func (c *Client) Embed(ctx context.Context, texts []string) (Result, error) {
	res := Result{Vectors: make([][]float32, len(texts))}

	// Indices of texts that actually need an API call.
	var pending []int
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			res.Vectors[i] = make([]float32, c.cfg.Dimension)
			res.Flagged = append(res.Flagged, i)
			continue
		}
		pending = append(pending, i)
	}

	for start := 0; start < len(pending); start += c.cfg.BatchSize {
		end := start + c.cfg.BatchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]

		input := make([]string, len(batch))
		for j, idx := range batch {
			input[j] = texts[idx]
		}

		vectors, err := c.embedBatch(ctx, input)
		if err != nil {
			return Result{}, err
		}

		for j, idx := range batch {
			if j >= len(vectors) || len(vectors[j]) != c.cfg.Dimension {
				res.Vectors[idx] = make([]float32, c.cfg.Dimension)
				res.Flagged = append(res.Flagged, idx)
				continue
			}
			res.Vectors[idx] = Normalize(vectors[j])
		}
	}
	return res, nil
}

func (c *Client) embedBatch(ctx context.Context, input []string) ([][]float32, error) {
	body, err := json.Marshal(embeddingRequest{Input: input, Model: c.cfg.Model})
	if err != nil {
		return nil, fmt.Errorf("encoding embedding request: %w", err)
	}

	url := strings.TrimSuffix(c.cfg.BaseURL, "/") + "/embeddings"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := httputil.DoWithRetry(ctx, c.client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("embedding API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding API returned HTTP %d", resp.StatusCode)
	}

	var er embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return nil, fmt.Errorf("parsing embedding response: %w", err)
	}
	if er.Error != nil {
		return nil, fmt.Errorf("embedding API error: %s", er.Error.Message)
	}

	// The API may reorder; restore input order via the Index field.
	vectors := make([][]float32, len(input))
	for _, d := range er.Data {
		if d.Index >= 0 && d.Index < len(vectors) {
			vectors[d.Index] = d.Embedding
		}
	}
	return vectors, nil
}

// Normalize scales v to unit length. A zero vector stays zero.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := float32(math.Sqrt(sum))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

// Cosine returns the cosine similarity of two unit vectors. Mismatched
// lengths yield 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

// IsZero reports whether every component of v is zero.
func IsZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "paper-radar/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// LibraryConfig holds settings for the source-library sync stage.
type LibraryConfig struct {
	HTTPConfig `yaml:",inline"`

	// UserID is the Zotero user id whose library is synchronized.
	UserID string `json:"user_id" yaml:"user_id"`

	// APIKey is the Zotero API key. Usually left empty in config and
	// supplied through .secrets/zotero-api-key.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// PageSize is the items-per-page for library paging (default 100).
	PageSize int `json:"page_size" yaml:"page_size"`

	// PoliteDelay is the pause between consecutive page fetches (default 200ms).
	PoliteDelay time.Duration `json:"polite_delay" yaml:"polite_delay"`
}

// EmbeddingConfig holds settings for the embedding service.
type EmbeddingConfig struct {
	HTTPConfig `yaml:",inline"`

	// BaseURL is an OpenAI-compatible API root (e.g. "http://localhost:11434/v1").
	BaseURL string `json:"base_url" yaml:"base_url"`

	// Model is the embedding model identifier.
	Model string `json:"model" yaml:"model"`

	// Dimension is the embedding vector length (default 384).
	Dimension int `json:"dimension" yaml:"dimension"`

	// APIKey authenticates against the embedding API. Usually supplied
	// through .secrets/embedding-api-key.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// BatchSize is the number of texts embedded per request (default 32).
	BatchSize int `json:"batch_size" yaml:"batch_size"`
}

// SourceToggle enables or disables one candidate source.
type SourceToggle struct {
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Mailto is included in requests to sources that ask for a contact
	// address in their polite pools (OpenAlex, Crossref).
	Mailto string `json:"mailto,omitempty" yaml:"mailto,omitempty"`

	// APIKey authenticates against sources that require one (Altmetric).
	// Usually supplied through .secrets/altmetric-api-key.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
}

// ArxivSourceConfig configures the arXiv listing source.
type ArxivSourceConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Categories are the arXiv categories to poll (e.g. "cs.LG").
	Categories []string `json:"categories" yaml:"categories"`
}

// SourcesConfig holds settings for candidate fetching.
type SourcesConfig struct {
	HTTPConfig `yaml:",inline"`

	// WindowDays is the publication window candidates must fall into
	// (default 30).
	WindowDays int `json:"window_days" yaml:"window_days"`

	OpenAlex SourceToggle      `json:"openalex" yaml:"openalex"`
	Crossref SourceToggle      `json:"crossref" yaml:"crossref"`
	Arxiv    ArxivSourceConfig `json:"arxiv" yaml:"arxiv"`
	Biorxiv  SourceToggle      `json:"biorxiv" yaml:"biorxiv"`
	Medrxiv  SourceToggle      `json:"medrxiv" yaml:"medrxiv"`

	// Altmetric enables per-DOI Altmetric enrichment after resolution.
	Altmetric SourceToggle `json:"altmetric" yaml:"altmetric"`

	// CacheTTL bounds reuse of a cached candidate batch (default 12h).
	CacheTTL time.Duration `json:"cache_ttl" yaml:"cache_ttl"`
}

// ScoreWeights are the factor weights for the final score. They are
// renormalized to sum to 1 at config load; a missing altmetric signal
// contributes 0 rather than triggering per-run renormalization.
type ScoreWeights struct {
	Similarity float64 `json:"similarity" yaml:"similarity"`
	Recency    float64 `json:"recency" yaml:"recency"`
	Citations  float64 `json:"citations" yaml:"citations"`
	Altmetric  float64 `json:"altmetric" yaml:"altmetric"`
	Bonus      float64 `json:"bonus" yaml:"bonus"`
}

// RecencyConfig anchors the piecewise-linear recency decay: 1.0 up to
// FullDays, 0.5 at HalfDays, Floor at MinDays and beyond.
type RecencyConfig struct {
	FullDays int     `json:"full_days" yaml:"full_days"`
	HalfDays int     `json:"half_days" yaml:"half_days"`
	MinDays  int     `json:"min_days" yaml:"min_days"`
	Floor    float64 `json:"floor" yaml:"floor"`
}

// TierThresholds are the inclusive lower bounds of the two upper tiers.
type TierThresholds struct {
	MustRead float64 `json:"must_read" yaml:"must_read"`
	Consider float64 `json:"consider" yaml:"consider"`
}

// ScoringConfig holds settings for candidate scoring and ranking.
type ScoringConfig struct {
	Weights    ScoreWeights   `json:"weights" yaml:"weights"`
	Thresholds TierThresholds `json:"thresholds" yaml:"thresholds"`
	Recency    RecencyConfig  `json:"recency" yaml:"recency"`

	// CitationCap is the citation count mapped to a citations factor of
	// 1.0 via log scaling (default 1000).
	CitationCap int `json:"citation_cap" yaml:"citation_cap"`

	// AltmetricCap is the Altmetric score mapped to a factor of 1.0
	// (default 500).
	AltmetricCap float64 `json:"altmetric_cap" yaml:"altmetric_cap"`

	// AuthorBonus and VenueBonus are added per whitelist hit; the sum is
	// clamped to BonusCap.
	AuthorBonus float64 `json:"author_bonus" yaml:"author_bonus"`
	VenueBonus  float64 `json:"venue_bonus" yaml:"venue_bonus"`
	BonusCap    float64 `json:"bonus_cap" yaml:"bonus_cap"`

	// MaxProfileAge is the staleness bound: ranking refuses to run against
	// a profile older than this (default 14 days; a negative value
	// disables the check).
	MaxProfileAge time.Duration `json:"max_profile_age" yaml:"max_profile_age"`
}

// ResolverConfig holds settings for candidate deduplication.
type ResolverConfig struct {
	// TitleThreshold is the minimum token-set similarity for a fuzzy title
	// merge (default 0.9).
	TitleThreshold float64 `json:"title_threshold" yaml:"title_threshold"`

	// SourcePriority orders sources for metadata tie-breaks and output
	// ordering. Sources not listed rank after listed ones.
	SourcePriority []string `json:"source_priority" yaml:"source_priority"`
}

// ProfileConfig holds settings for profile building.
type ProfileConfig struct {
	// Clusters is the k-means target cluster count, clamped to the number
	// of live items (default 8).
	Clusters int `json:"clusters" yaml:"clusters"`

	// Seed fixes the k-means random seed so rebuilds are deterministic.
	Seed int64 `json:"seed" yaml:"seed"`

	// TopN is the size of the frequency tables and whitelists (default 20).
	TopN int `json:"top_n" yaml:"top_n"`

	// MinTermLength drops shorter tokens from the term table (default 4).
	MinTermLength int `json:"min_term_length" yaml:"min_term_length"`
}

// StoreConfig holds settings for the profile store.
type StoreConfig struct {
	// DataDir is the base directory for persistent state (profile.db,
	// candidate cache, profile.yaml export).
	DataDir string `json:"data_dir" yaml:"data_dir"`
}

// RadarConfig groups all stage configurations.
type RadarConfig struct {
	Library   LibraryConfig   `json:"library" yaml:"library"`
	Embedding EmbeddingConfig `json:"embedding" yaml:"embedding"`
	Sources   SourcesConfig   `json:"sources" yaml:"sources"`
	Scoring   ScoringConfig   `json:"scoring" yaml:"scoring"`
	Resolver  ResolverConfig  `json:"resolver" yaml:"resolver"`
	Profile   ProfileConfig   `json:"profile" yaml:"profile"`
	Store     StoreConfig     `json:"store" yaml:"store"`
}

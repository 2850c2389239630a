// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// ClusterCenter is the centroid of one sub-topic grouping in the library.
type ClusterCenter struct {
	// Center is the unit-normalized centroid vector.
	Center []float32 `json:"center" yaml:"center"`

	// Members is the number of items assigned to the cluster.
	Members int `json:"members" yaml:"members"`
}

// FrequencyEntry is one row of a ranked frequency table.
type FrequencyEntry struct {
	Value string `json:"value" yaml:"value"`
	Count int    `json:"count" yaml:"count"`
}

// InterestProfile is a versioned snapshot of the user's interests. Exactly
// one profile is current at a time; a rebuild writes a complete new snapshot
// and swaps it in atomically, so readers never observe a partial profile.
type InterestProfile struct {
	// LibraryVersion is the sync cursor version the profile was built from.
	LibraryVersion int `json:"library_version" yaml:"library_version"`

	// Center is the interest-center vector: the overall centroid of the
	// library embeddings, unit-normalized. Zero vector for an empty library.
	Center []float32 `json:"center" yaml:"center"`

	// Clusters are the sub-topic centroids. Always at least one, even for
	// an empty library (degenerate zero-center cluster).
	Clusters []ClusterCenter `json:"clusters" yaml:"clusters"`

	// TopTerms, TopAuthors and TopVenues are ranked frequency tables over
	// the live library, truncated to the configured size.
	TopTerms   []FrequencyEntry `json:"top_terms,omitempty" yaml:"top_terms,omitempty"`
	TopAuthors []FrequencyEntry `json:"top_authors,omitempty" yaml:"top_authors,omitempty"`
	TopVenues  []FrequencyEntry `json:"top_venues,omitempty" yaml:"top_venues,omitempty"`

	// AuthorWhitelist and VenueWhitelist drive the scoring bonus. Derived
	// from the frequency tables at rebuild time.
	AuthorWhitelist []string `json:"author_whitelist,omitempty" yaml:"author_whitelist,omitempty"`
	VenueWhitelist  []string `json:"venue_whitelist,omitempty" yaml:"venue_whitelist,omitempty"`

	// ItemCount is the number of live items the profile was built over.
	ItemCount int `json:"item_count" yaml:"item_count"`

	// BuiltAt is the snapshot build time.
	BuiltAt time.Time `json:"built_at" yaml:"built_at"`
}

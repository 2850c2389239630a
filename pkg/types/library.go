// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// LibraryItem is one bibliographic record from the source library. It is
// owned by the sync engine; downstream stages treat it as read-only.
type LibraryItem struct {
	// Key is the stable item key assigned by the source library.
	Key string `json:"key" yaml:"key"`

	// Version is the library version at which the item last changed.
	Version int `json:"version" yaml:"version"`

	// Title is the work title.
	Title string `json:"title" yaml:"title"`

	// Abstract is the work abstract, possibly empty.
	Abstract string `json:"abstract,omitempty" yaml:"abstract,omitempty"`

	// Authors lists the authors in source order.
	Authors []string `json:"authors,omitempty" yaml:"authors,omitempty"`

	// Venue is the journal or proceedings title, possibly empty.
	Venue string `json:"venue,omitempty" yaml:"venue,omitempty"`

	// Year is the publication year, or 0 when unknown.
	Year int `json:"year,omitempty" yaml:"year,omitempty"`

	// Tags are the user-assigned tags.
	Tags []string `json:"tags,omitempty" yaml:"tags,omitempty"`

	// Collections lists the collection keys the item belongs to.
	Collections []string `json:"collections,omitempty" yaml:"collections,omitempty"`

	// DOI is the document identifier, possibly empty.
	DOI string `json:"doi,omitempty" yaml:"doi,omitempty"`

	// URL is the item link, possibly empty.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`
}

// EmbeddingText returns the text fed to the embedding model: title,
// abstract, authors, and tags, newline-separated with empty parts dropped.
func (it LibraryItem) EmbeddingText() string {
	return joinEmbeddingParts(it.Title, it.Abstract, it.Authors, it.Tags)
}

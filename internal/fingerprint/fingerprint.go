// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fingerprint derives deterministic content fingerprints from
// bibliographic text, used to detect content change without re-embedding
// unchanged items.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Fingerprint is a hex-encoded sha256 over normalized content fields.
type Fingerprint string

// New computes the fingerprint of one item's contributing fields. Identical
// content yields identical output regardless of field casing, surrounding
// whitespace, or author/tag order.
func New(title, abstract string, authors, tags []string) Fingerprint {
	h := sha256.New()
	h.Write([]byte(normalizeField(title)))
	h.Write([]byte{0})
	h.Write([]byte(normalizeField(abstract)))
	h.Write([]byte{0})
	h.Write([]byte(normalizeList(authors)))
	h.Write([]byte{0})
	h.Write([]byte(normalizeList(tags)))
	return Fingerprint(hex.EncodeToString(h.Sum(nil)))
}

// normalizeField lowercases and collapses runs of whitespace to one space.
func normalizeField(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// normalizeList normalizes each element, drops empties, and sorts so the
// fingerprint is independent of source ordering.
func normalizeList(values []string) string {
	normalized := make([]string, 0, len(values))
	for _, v := range values {
		if n := normalizeField(v); n != "" {
			normalized = append(normalized, n)
		}
	}
	sort.Strings(normalized)
	return strings.Join(normalized, "|")
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fingerprint

import (
	"strings"
	"unicode"
)

// stopwords are common English words excluded from the term table.
var stopwords = map[string]bool{
	"about": true, "after": true, "also": true, "analysis": true,
	"approach": true, "based": true, "been": true, "between": true,
	"both": true, "can": true, "data": true, "during": true, "each": true,
	"from": true, "have": true, "here": true, "however": true, "into": true,
	"method": true, "methods": true, "more": true, "most": true, "novel": true,
	"other": true, "over": true, "paper": true, "propose": true,
	"proposed": true, "results": true, "show": true, "study": true,
	"such": true, "than": true, "that": true, "their": true, "these": true,
	"this": true, "those": true, "through": true, "under": true,
	"using": true, "well": true, "were": true, "when": true,
	"where": true, "which": true, "while": true, "with": true, "within": true,
	"without": true, "work": true,
}

// Terms tokenizes title, abstract and tags into lowercased terms for the
// frequency table: letters/digits only, minimum length, stopwords dropped,
// deduplicated per item so one item counts each term once.
func Terms(title, abstract string, tags []string, minLen int) []string {
	if minLen <= 0 {
		minLen = 4
	}

	seen := make(map[string]bool)
	var terms []string
	add := func(tok string) {
		if len(tok) < minLen || stopwords[tok] || seen[tok] {
			return
		}
		seen[tok] = true
		terms = append(terms, tok)
	}

	for _, tok := range tokenize(title + " " + abstract) {
		add(tok)
	}
	for _, tag := range tags {
		add(normalizeField(tag))
	}
	return terms
}

// tokenize splits on any non-letter, non-digit rune and lowercases.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

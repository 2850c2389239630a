// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fingerprint

import "testing"

func TestNewDeterministic(t *testing.T) {
	a := New("Attention Is All You Need", "We propose...", []string{"Vaswani", "Shazeer"}, []string{"nlp"})
	b := New("Attention Is All You Need", "We propose...", []string{"Vaswani", "Shazeer"}, []string{"nlp"})
	if a != b {
		t.Errorf("identical inputs produced different fingerprints: %s vs %s", a, b)
	}
}

func TestNewNormalization(t *testing.T) {
	tests := []struct {
		name string
		a, b Fingerprint
		same bool
	}{
		{
			"case and whitespace folded",
			New("Deep   Learning", "abstract", nil, nil),
			New("deep learning", " Abstract ", nil, nil),
			true,
		},
		{
			"author order ignored",
			New("T", "", []string{"Alice", "Bob"}, nil),
			New("T", "", []string{"Bob", "Alice"}, nil),
			true,
		},
		{
			"tag order ignored",
			New("T", "", nil, []string{"ml", "biology"}),
			New("T", "", nil, []string{"biology", "ml"}),
			true,
		},
		{
			"different title differs",
			New("Paper A", "", nil, nil),
			New("Paper B", "", nil, nil),
			false,
		},
		{
			"field boundaries preserved",
			New("ab", "c", nil, nil),
			New("a", "bc", nil, nil),
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a == tt.b; got != tt.same {
				t.Errorf("fingerprints equal = %v, want %v", got, tt.same)
			}
		})
	}
}

func TestNewEmptyInput(t *testing.T) {
	// Empty content still fingerprints; the embedding layer flags it.
	if New("", "", nil, nil) == "" {
		t.Error("empty input produced empty fingerprint")
	}
}

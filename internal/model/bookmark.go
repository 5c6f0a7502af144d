// Package model defines the bookmark record and its status state machine.
package model

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
)

var folder = cases.Fold()

// Source is a single grounding citation attached by the enrichment call.
// Display-only; never required for correctness.
type Source struct {
	URI   string `json:"uri"`
	Title string `json:"title,omitempty"`
}

// Bookmark is one enriched bookmark record.
type Bookmark struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary"`
	Keywords  []string  `json:"keywords"`
	Sources   []Source  `json:"sources,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	Status    Status    `json:"status"`
	ErrorText string    `json:"errorText,omitempty"`
}

// FoldURL returns the case-folded form of a URL, the key used for
// bookmark identity. Normalization has already run, so this is a case fold
// only.
func FoldURL(u string) string {
	return folder.String(u)
}

// SameURL reports whether two URLs are the same bookmark identity.
func SameURL(a, b string) bool {
	return FoldURL(a) == FoldURL(b)
}

// NormalizeKeywords trims entries, drops empties, and removes
// case-insensitive duplicates, preserving first-seen casing and order.
func NormalizeKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	seen := make(map[string]struct{}, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		key := folder.String(kw)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, kw)
	}
	return out
}

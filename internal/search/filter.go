package search

import (
	"strings"

	"github.com/cinesync/cinesync/pkg/vectorstore"
)

// FilterByGenres keeps only results whose genre list intersects the selected
// genres, case-insensitively. An empty selection is a pass-through. The
// relative order of surviving results is preserved; filtering narrows the
// ranked list but never re-ranks it.
func FilterByGenres(results []vectorstore.SearchResult, selected []string) []vectorstore.SearchResult {
	if len(selected) == 0 {
		return results
	}

	want := make(map[string]struct{}, len(selected))
	for _, g := range selected {
		g = strings.ToLower(strings.TrimSpace(g))
		if g != "" {
			want[g] = struct{}{}
		}
	}
	if len(want) == 0 {
		return results
	}

	filtered := make([]vectorstore.SearchResult, 0, len(results))
	for _, r := range results {
		for _, g := range r.Genres {
			if _, ok := want[strings.ToLower(g)]; ok {
				filtered = append(filtered, r)
				break
			}
		}
	}

	return filtered
}

package search

import (
	"context"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/noesis-kb/noesis/pkg/types"
)

// FullTextSearcher returns pre-ranked units for a text query.
type FullTextSearcher interface {
	SearchText(ctx context.Context, query string, limit int) ([]*types.AtomicUnit, error)
}

// TagSearcher looks units up by exact tag.
type TagSearcher interface {
	SearchByTag(ctx context.Context, tag string) ([]*types.AtomicUnit, error)
}

// MemoryFTS is an in-memory inverted index over unit titles, content, tags,
// and keywords. Scoring is matched-term count with ties broken by insertion
// order; it stands in for a real FTS engine in tests and single-process
// deployments.
type MemoryFTS struct {
	mu    sync.RWMutex
	units map[string]*types.AtomicUnit
	order []string
	// postings maps a token to the set of unit ids containing it.
	postings map[string]map[string]struct{}
}

// NewMemoryFTS creates an empty index.
func NewMemoryFTS() *MemoryFTS {
	return &MemoryFTS{
		units:    make(map[string]*types.AtomicUnit),
		postings: make(map[string]map[string]struct{}),
	}
}

// Index registers units, replacing any with the same id.
func (f *MemoryFTS) Index(units ...*types.AtomicUnit) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range units {
		if u == nil || u.ID == "" {
			continue
		}
		if _, exists := f.units[u.ID]; exists {
			f.removeLocked(u.ID)
		} else {
			f.order = append(f.order, u.ID)
		}
		f.units[u.ID] = u
		for _, tok := range unitTokens(u) {
			set, ok := f.postings[tok]
			if !ok {
				set = make(map[string]struct{})
				f.postings[tok] = set
			}
			set[u.ID] = struct{}{}
		}
	}
}

func (f *MemoryFTS) removeLocked(id string) {
	for tok, set := range f.postings {
		delete(set, id)
		if len(set) == 0 {
			delete(f.postings, tok)
		}
	}
	delete(f.units, id)
}

// SearchText ranks units by the number of distinct query tokens they
// contain, descending, ties broken by insertion order.
func (f *MemoryFTS) SearchText(ctx context.Context, query string, limit int) ([]*types.AtomicUnit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tokens := tokenize(query)
	if len(tokens) == 0 || limit <= 0 {
		return nil, nil
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	matches := make(map[string]int)
	for _, tok := range tokens {
		for id := range f.postings[tok] {
			matches[id]++
		}
	}

	ranked := make([]string, 0, len(matches))
	for _, id := range f.order {
		if matches[id] > 0 {
			ranked = append(ranked, id)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return matches[ranked[i]] > matches[ranked[j]]
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	results := make([]*types.AtomicUnit, len(ranked))
	for i, id := range ranked {
		results[i] = f.units[id]
	}
	return results, nil
}

// SearchByTag returns every unit carrying the exact tag, in insertion order.
func (f *MemoryFTS) SearchByTag(ctx context.Context, tag string) ([]*types.AtomicUnit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()

	var results []*types.AtomicUnit
	for _, id := range f.order {
		u := f.units[id]
		for _, t := range u.Tags {
			if t == tag {
				results = append(results, u)
				break
			}
		}
	}
	return results, nil
}

func unitTokens(u *types.AtomicUnit) []string {
	var parts []string
	parts = append(parts, tokenize(u.Title)...)
	parts = append(parts, tokenize(u.Content)...)
	for _, t := range u.Tags {
		parts = append(parts, tokenize(t)...)
	}
	for _, k := range u.Keywords {
		parts = append(parts, tokenize(k)...)
	}
	return parts
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

var _ FullTextSearcher = (*MemoryFTS)(nil)
var _ TagSearcher = (*MemoryFTS)(nil)

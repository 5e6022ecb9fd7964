package search

import "sort"

// DefaultRankConstant is the standard RRF fusion constant.
const DefaultRankConstant = 60

// Weights biases the fusion toward one source list. Zero-value weights are
// replaced by DefaultWeights.
type Weights struct {
	FTS      float64 `json:"fts"`
	Semantic float64 `json:"semantic"`
}

// DefaultWeights treats both stages equally.
var DefaultWeights = Weights{FTS: 0.5, Semantic: 0.5}

func (w Weights) orDefault() Weights {
	if w.FTS == 0 && w.Semantic == 0 {
		return DefaultWeights
	}
	return w
}

// rankedList is one source ranking entering the fusion, identified by unit
// id in rank order.
type rankedList struct {
	ids    []string
	weight float64
}

// fuseRRF combines the source lists with weighted Reciprocal Rank Fusion:
// an id at 0-indexed rank r in a list with weight w contributes
// w/(k+r+1), and its final score is the sum over the lists it appears in.
// The returned ids are sorted by descending fused score; ties keep
// first-appearance order across the lists.
func fuseRRF(lists []rankedList, rankConstant int) ([]string, map[string]float64) {
	if rankConstant <= 0 {
		rankConstant = DefaultRankConstant
	}

	scores := make(map[string]float64)
	var order []string
	for _, list := range lists {
		for r, id := range list.ids {
			if _, seen := scores[id]; !seen {
				order = append(order, id)
			}
			scores[id] += list.weight / float64(rankConstant+r+1)
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return scores[order[i]] > scores[order[j]]
	})
	return order, scores
}

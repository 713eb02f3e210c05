package retrieval

import (
	"sort"

	"github.com/kailas-cloud/ragchat/internal/domain/search/result"
)

// Fusion defaults.
const (
	DefaultRRFConstant    = 60
	DefaultLexicalWeight  = 0.3
	DefaultSemanticWeight = 0.7
)

// Ranking is one retriever's ordered output and its fusion weight.
type Ranking struct {
	Results []result.Result
	Weight  float64
}

// Fuse merges rankings with weighted Reciprocal Rank Fusion:
// score(d) = sum of w_i / (c + rank_i(d)), ranks starting at 1.
// Only ranks matter; retriever scores are not comparable.
// Documents are ordered by fused score, ties broken by first appearance
// across the rankings in argument order.
func Fuse(c float64, rankings ...Ranking) []result.Result {
	type fused struct {
		res   result.Result
		score float64
	}

	var order []*fused
	byKey := make(map[string]*fused)

	for _, rk := range rankings {
		for rank, r := range rk.Results {
			s := rk.Weight / (c + float64(rank+1))
			key := r.Key()
			if existing, ok := byKey[key]; ok {
				existing.score += s
				continue
			}
			f := &fused{res: r, score: s}
			byKey[key] = f
			order = append(order, f)
		}
	}

	out := make([]result.Result, len(order))
	for i, f := range order {
		out[i] = f.res.WithScore(f.score)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score() > out[j].Score()
	})
	return out
}

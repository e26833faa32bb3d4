package search

import "sort"

// FuseRanks combines a semantic and a lexical ranked ID list with Reciprocal
// Rank Fusion.
//
// An entity at 1-based semantic rank r_s and lexical rank r_l scores
//
//	alpha/(k + r_s) + (1-alpha)/(k + r_l)
//
// with each term dropped when the entity is absent from that list, so an
// entity present in only one list still receives a partial score. Output is
// ordered by score descending, ties broken by ID ascending for determinism.
func FuseRanks(semantic, lexical []int64, alpha float64, k int) []Result {
	if len(semantic) == 0 && len(lexical) == 0 {
		return []Result{}
	}

	scores := make(map[int64]float64, len(semantic)+len(lexical))

	for i, id := range semantic {
		scores[id] += alpha / float64(k+i+1)
	}
	for i, id := range lexical {
		scores[id] += (1 - alpha) / float64(k+i+1)
	}

	results := make([]Result, 0, len(scores))
	for id, score := range scores {
		results = append(results, Result{ID: id, Score: score})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})

	return results
}

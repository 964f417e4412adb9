package stats

import (
	"sort"

	"github.com/verte-zerg/tutor/internal/model"
)

// SelectWeakTopics returns up to top subject keys ordered by lowest accuracy.
func SelectWeakTopics(aggs []model.AttemptAggregate, top int) []string {
	if len(aggs) == 0 {
		return nil
	}
	candidates := make([]model.AttemptAggregate, len(aggs))
	copy(candidates, aggs)
	sort.Slice(candidates, func(i, j int) bool {
		ai := Accuracy(candidates[i].Correct, candidates[i].Wrong)
		aj := Accuracy(candidates[j].Correct, candidates[j].Wrong)
		if ai == aj {
			return candidates[i].Key < candidates[j].Key
		}
		return ai < aj
	})
	if top <= 0 || top > len(candidates) {
		top = len(candidates)
	}
	out := make([]string, 0, top)
	for i := 0; i < top; i++ {
		out = append(out, candidates[i].Key)
	}
	return out
}

// RecommendedNext picks the weakest topic, or "" when no data exists.
func RecommendedNext(aggs []model.AttemptAggregate) string {
	weak := SelectWeakTopics(aggs, 1)
	if len(weak) == 0 {
		return ""
	}
	return weak[0]
}

// Package stats contains quiz statistics calculations and reporting.
package stats

import (
	"context"
	"sort"

	"github.com/verte-zerg/tutor/internal/model"
	"github.com/verte-zerg/tutor/internal/store"
)

// Report contains precomputed data for stats rendering.
type Report struct {
	Attempts     []model.AttemptRecord
	BySubject    []model.AttemptAggregate
	ByDifficulty []model.AttemptAggregate
}

// BuildReport loads and prepares attempt data for stats rendering. The
// breakdowns are aggregated in Go from the filtered attempt list so that
// every section of the report sees the same window.
func BuildReport(ctx context.Context, st *store.Store, cfg model.StatsConfig) (Report, error) {
	attempts, err := st.ListAttempts(ctx, cfg)
	if err != nil {
		return Report{}, err
	}
	return Report{
		Attempts: attempts,
		BySubject: AggregateAttempts(attempts, func(rec model.AttemptRecord) string {
			return rec.Subject
		}),
		ByDifficulty: AggregateAttempts(attempts, func(rec model.AttemptRecord) string {
			return rec.Difficulty
		}),
	}, nil
}

// AggregateAttempts groups attempts by the given key, ordered by key.
func AggregateAttempts(attempts []model.AttemptRecord, keyFn func(model.AttemptRecord) string) []model.AttemptAggregate {
	byKey := map[string]*model.AttemptAggregate{}
	for _, rec := range attempts {
		key := keyFn(rec)
		agg, ok := byKey[key]
		if !ok {
			agg = &model.AttemptAggregate{Key: key}
			byKey[key] = agg
		}
		if rec.Correct {
			agg.Correct++
		} else {
			agg.Wrong++
		}
	}
	keys := make([]string, 0, len(byKey))
	for key := range byKey {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	result := make([]model.AttemptAggregate, 0, len(keys))
	for _, key := range keys {
		result = append(result, *byKey[key])
	}
	return result
}
